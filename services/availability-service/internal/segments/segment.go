// Package segments is the weekly grid of 30-minute segments and the conversion between
// segments and the compact timeslot ranges stored for each actor.
package segments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/timeofday"
)

var (
	ErrInvalidID    = errors.New("invalid segment id")
	ErrInvalidRange = errors.New("invalid timeslot range")
)

// Day is a weekday name such as "Monday".
type Day string

// Segment is one 30-minute slot on a weekday.
type Segment struct {
	ID          string              `json:"id"`
	Day         Day                 `json:"day"`
	StartMinute timeofday.TimeOfDay `json:"start_minute"`
	EndMinute   timeofday.TimeOfDay `json:"end_minute"`
	IsSegment   bool                `json:"is_segment"`
}

func NewSegment(day Day, start timeofday.TimeOfDay) Segment {
	return Segment{
		ID:          SegmentID(day, start),
		Day:         day,
		StartMinute: start,
		EndMinute:   start.Next(),
		IsSegment:   true,
	}
}

// TimeslotRange is a contiguous run of segments on one day, [StartMinute, EndMinute).
type TimeslotRange struct {
	ID          string              `json:"id"`
	Day         Day                 `json:"day"`
	StartMinute timeofday.TimeOfDay `json:"start_minute"`
	EndMinute   timeofday.TimeOfDay `json:"end_minute"`
	Label       string              `json:"label"`
}

func NewRange(day Day, start, end timeofday.TimeOfDay) TimeslotRange {
	return TimeslotRange{
		ID:          RangeID(day, start, end),
		Day:         day,
		StartMinute: start,
		EndMinute:   end,
		Label:       Label(start, end),
	}
}

// Validate checks the structural contract: a positive, 30-minute-aligned span inside one day.
func (r TimeslotRange) Validate() error {
	span := int(r.EndMinute - r.StartMinute)
	switch {
	case r.StartMinute < 0 || r.EndMinute > timeofday.MinutesPerDay:
		return fmt.Errorf("%w: %s outside the day", ErrInvalidRange, r.Label)
	case span <= 0:
		return fmt.Errorf("%w: end must be after start", ErrInvalidRange)
	case span%timeofday.Step != 0:
		return fmt.Errorf("%w: length %d is not a multiple of %d minutes", ErrInvalidRange, span, timeofday.Step)
	case int(r.StartMinute)%timeofday.Step != 0:
		return fmt.Errorf("%w: start %d is off the %d-minute grid", ErrInvalidRange, r.StartMinute, timeofday.Step)
	}
	return nil
}

// Label renders "5:00 PM - 7:00 PM".
func Label(start, end timeofday.TimeOfDay) string {
	return timeofday.Format(start) + " - " + timeofday.Format(end)
}

// SegmentID is "<day> HH:MM". The clock suffix is fixed width, so the id splits
// unambiguously from the right and distinct (day, start) pairs never collide.
func SegmentID(day Day, start timeofday.TimeOfDay) string {
	return string(day) + " " + start.Clock()
}

// RangeID is "<day> HH:MM-HH:MM".
func RangeID(day Day, start, end timeofday.TimeOfDay) string {
	return string(day) + " " + start.Clock() + "-" + end.Clock()
}

// ParseSegmentID is the inverse of SegmentID.
func ParseSegmentID(id string) (Segment, error) {
	i := strings.LastIndexByte(id, ' ')
	if i <= 0 {
		return Segment{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	start, err := timeofday.ParseClock(id[i+1:])
	if err != nil || !start.Valid() || int(start)%timeofday.Step != 0 {
		return Segment{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return NewSegment(Day(id[:i]), start), nil
}

// ParseRangeID is the inverse of RangeID.
func ParseRangeID(id string) (TimeslotRange, error) {
	i := strings.LastIndexByte(id, ' ')
	if i <= 0 {
		return TimeslotRange{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	from, to, ok := strings.Cut(id[i+1:], "-")
	if !ok {
		return TimeslotRange{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	start, err := timeofday.ParseClock(from)
	if err != nil {
		return TimeslotRange{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	end, err := timeofday.ParseClock(to)
	if err != nil {
		return TimeslotRange{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	r := NewRange(Day(id[:i]), start, end)
	if err := r.Validate(); err != nil {
		return TimeslotRange{}, err
	}
	return r, nil
}
