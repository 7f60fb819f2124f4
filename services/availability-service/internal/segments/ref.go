package segments

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/timeofday"
)

// Ref points at a segment either by id or by value. It is resolved once, at the
// boundary, into a Segment.
type Ref interface {
	resolve() (Segment, error)
}

// IDRef is a segment referenced by its id.
type IDRef string

func (r IDRef) resolve() (Segment, error) {
	return ParseSegmentID(string(r))
}

// ValueRef is a segment passed in full. Only day and start are trusted; id and end
// are recomputed.
type ValueRef Segment

func (r ValueRef) resolve() (Segment, error) {
	if !r.StartMinute.Valid() || int(r.StartMinute)%timeofday.Step != 0 {
		return Segment{}, fmt.Errorf("%w: start minute %d", ErrInvalidID, r.StartMinute)
	}
	if r.Day == "" {
		return Segment{}, fmt.Errorf("%w: missing day", ErrInvalidID)
	}
	return NewSegment(r.Day, r.StartMinute), nil
}

// Resolve turns refs into segments, failing on the first bad ref.
func Resolve(refs []Ref) ([]Segment, error) {
	out := make([]Segment, 0, len(refs))
	for i, ref := range refs {
		s, err := ref.resolve()
		if err != nil {
			return nil, fmt.Errorf("ref %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// RefList decodes a JSON array mixing id strings and segment objects.
type RefList []Ref

func (l *RefList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(RefList, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var id string
			if err := json.Unmarshal(item, &id); err != nil {
				return fmt.Errorf("segments[%d]: %w", i, err)
			}
			out = append(out, IDRef(id))
			continue
		}
		var v segmentJSON
		if err := json.Unmarshal(item, &v); err != nil {
			return fmt.Errorf("segments[%d]: %w", i, err)
		}
		seg, err := v.segment()
		if err != nil {
			return fmt.Errorf("segments[%d]: %w", i, err)
		}
		out = append(out, ValueRef(seg))
	}
	*l = out
	return nil
}

// segmentJSON accepts either minute offsets or human time strings for the start.
type segmentJSON struct {
	Day         Day    `json:"day"`
	StartMinute *int   `json:"start_minute"`
	StartTime   string `json:"start_time"`
}

func (v segmentJSON) segment() (Segment, error) {
	switch {
	case v.StartMinute != nil:
		return Segment{Day: v.Day, StartMinute: timeofday.TimeOfDay(*v.StartMinute)}, nil
	case v.StartTime != "":
		start, err := timeofday.Parse(v.StartTime)
		if err != nil {
			return Segment{}, err
		}
		return Segment{Day: v.Day, StartMinute: start}, nil
	}
	return Segment{}, fmt.Errorf("%w: start_minute or start_time required", ErrInvalidID)
}

// RangeInput is the wire form of a range; minutes or human time strings.
type RangeInput struct {
	Day         Day    `json:"day"`
	StartMinute *int   `json:"start_minute"`
	EndMinute   *int   `json:"end_minute"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// Range converts the input into a validated TimeslotRange.
func (in RangeInput) Range() (TimeslotRange, error) {
	if in.Day == "" {
		return TimeslotRange{}, fmt.Errorf("%w: missing day", ErrInvalidRange)
	}
	start, err := pick(in.StartMinute, in.StartTime)
	if err != nil {
		return TimeslotRange{}, err
	}
	end, err := pick(in.EndMinute, in.EndTime)
	if err != nil {
		return TimeslotRange{}, err
	}
	// "12:00 AM" as an end time means the close of the day.
	if in.EndMinute == nil && end == 0 && start > 0 {
		end = timeofday.MinutesPerDay
	}
	r := NewRange(in.Day, start, end)
	if err := r.Validate(); err != nil {
		return TimeslotRange{}, err
	}
	return r, nil
}

func pick(minute *int, text string) (timeofday.TimeOfDay, error) {
	if minute != nil {
		return timeofday.TimeOfDay(*minute), nil
	}
	if text == "" {
		return 0, fmt.Errorf("%w: minutes or time string required", ErrInvalidRange)
	}
	return timeofday.Parse(text)
}
