// Package timeofday converts between "H:MM AM/PM" strings and minutes since midnight.
package timeofday

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MinutesPerDay = 24 * 60
	// Step is the width of one selectable segment.
	Step = 30
)

var ErrInvalidFormat = errors.New("invalid time of day format")

// TimeOfDay is a time of day expressed as minutes since midnight.
type TimeOfDay int

func FromClock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Next returns the start of the following segment.
func (t TimeOfDay) Next() TimeOfDay {
	return t + Step
}

func (t TimeOfDay) String() string {
	return Format(t)
}

// Clock renders the value as fixed-width 24h "HH:MM". 1440 renders as "24:00".
func (t TimeOfDay) Clock() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Parse reads "H:MM AM" / "HH:MM PM". The space before the meridiem is optional and
// the meridiem is case-insensitive. Minutes may be a single digit ("5:5 PM").
func Parse(text string) (TimeOfDay, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	var pm bool
	switch {
	case strings.HasSuffix(s, "AM"):
	case strings.HasSuffix(s, "PM"):
		pm = true
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}
	clock := strings.TrimSpace(s[:len(s)-2])

	hourPart, minutePart, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}
	hour, err := parseDigits(hourPart)
	if err != nil || hour < 1 || hour > 12 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}
	minute, err := parseDigits(minutePart)
	if err != nil || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}

	hour %= 12
	if pm {
		hour += 12
	}
	return FromClock(hour, minute), nil
}

// parseDigits accepts one or two ASCII digits and nothing else.
func parseDigits(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, ErrInvalidFormat
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidFormat
		}
	}
	return strconv.Atoi(s)
}

// Format renders t as "H:MM AM|PM". Values outside a single day wrap, so the end of
// a range that closes at midnight (1440) formats as "12:00 AM".
func Format(t TimeOfDay) string {
	m := int(t) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	hour, minute := m/60, m%60

	suffix := "AM"
	if m >= 12*60 {
		suffix = "PM"
	}
	switch {
	case hour == 0:
		hour = 12
	case hour > 12:
		hour -= 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}

// ParseClock reads the fixed-width "HH:MM" form produced by Clock. "24:00" is accepted
// as the end of the day.
func ParseClock(text string) (TimeOfDay, error) {
	hourPart, minutePart, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok || len(hourPart) != 2 || len(minutePart) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}
	hour, err := parseDigits(hourPart)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}
	minute, err := parseDigits(minutePart)
	if err != nil || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}
	return FromClock(hour, minute), nil
}
