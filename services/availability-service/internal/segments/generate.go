package segments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/timeofday"
)

var ErrUnknownDay = errors.New("unknown day")

// DayStarts returns the segment start times of one day, from startHour:00 up to the
// last segment ending exactly at endHour:00.
func DayStarts(startHour, endHour int) []timeofday.TimeOfDay {
	if endHour <= startHour {
		return nil
	}
	first := timeofday.FromClock(startHour, 0)
	last := timeofday.FromClock(endHour, 0)
	out := make([]timeofday.TimeOfDay, 0, (endHour-startHour)*2)
	for t := first; t < last; t = t.Next() {
		out = append(out, t)
	}
	return out
}

// Generate produces the full grid for the given days, day-major.
func Generate(days []Day, startHour, endHour int) []Segment {
	starts := DayStarts(startHour, endHour)
	out := make([]Segment, 0, len(days)*len(starts))
	for _, day := range days {
		for _, start := range starts {
			out = append(out, NewSegment(day, start))
		}
	}
	return out
}

// Week is the configured weekly grid: which days exist and which hours each day spans.
type Week struct {
	Days      []Day
	StartHour int
	EndHour   int
}

func (w Week) Segments() []Segment {
	return Generate(w.Days, w.StartHour, w.EndHour)
}

func (w Week) DaySegments(day Day) ([]Segment, error) {
	canonical, err := w.Validate(day)
	if err != nil {
		return nil, err
	}
	return Generate([]Day{canonical}, w.StartHour, w.EndHour), nil
}

// Validate returns the configured spelling of day. Matching is case-insensitive.
func (w Week) Validate(day Day) (Day, error) {
	for _, d := range w.Days {
		if strings.EqualFold(string(d), strings.TrimSpace(string(day))) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDay, day)
}

// Contains reports whether the segment lies on a configured day inside the hour window.
func (w Week) Contains(s Segment) bool {
	if _, err := w.Validate(s.Day); err != nil {
		return false
	}
	return s.StartMinute >= timeofday.FromClock(w.StartHour, 0) && s.EndMinute <= timeofday.FromClock(w.EndHour, 0)
}
