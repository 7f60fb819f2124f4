// Package conflicts checks weekly segments against dated busy intervals from an
// external calendar over a rolling window of days.
package conflicts

import (
	"strings"
	"time"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/segments"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/timeofday"
)

const (
	DefaultWindowDays = 30
	DateLayout        = "2006-01-02"
)

// BusyInterval is a dated block of unavailability, [StartMinute, EndMinute) on Date.
type BusyInterval struct {
	Date        string              `json:"date"`
	StartMinute timeofday.TimeOfDay `json:"start_minute"`
	EndMinute   timeofday.TimeOfDay `json:"end_minute"`
}

type State int

const (
	Candidate State = iota
	Available
	Conflicted
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case Conflicted:
		return "conflicted"
	default:
		return "candidate"
	}
}

// Conflict records the first dated busy interval that excluded a segment.
type Conflict struct {
	Segment segments.Segment `json:"segment"`
	Date    string           `json:"date"`
	Busy    BusyInterval     `json:"busy"`
}

type Result struct {
	Available   []segments.Segment `json:"available"`
	Unavailable []Conflict         `json:"unavailable"`
}

func (r Result) AvailableRanges() []segments.TimeslotRange {
	return segments.Compact(r.Available)
}

func (r Result) UnavailableRanges() []segments.TimeslotRange {
	segs := make([]segments.Segment, 0, len(r.Unavailable))
	for _, c := range r.Unavailable {
		segs = append(segs, c.Segment)
	}
	return segments.Compact(segs)
}

type Resolver struct {
	WindowDays int
	Location   *time.Location
}

func NewResolver(windowDays int, loc *time.Location) Resolver {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return Resolver{WindowDays: windowDays, Location: loc}
}

type windowDate struct {
	key     string
	weekday string
}

// Window lists the dates scanned when resolving from the given instant.
func (r Resolver) Window(from time.Time) []string {
	dates := r.window(from)
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.key)
	}
	return out
}

func (r Resolver) window(from time.Time) []windowDate {
	r = NewResolver(r.WindowDays, r.Location)
	local := from.In(r.Location)
	first := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.Location)
	out := make([]windowDate, 0, r.WindowDays)
	for i := 0; i < r.WindowDays; i++ {
		d := first.AddDate(0, 0, i)
		out = append(out, windowDate{key: d.Format(DateLayout), weekday: d.Weekday().String()})
	}
	return out
}

// Resolve partitions candidates into available segments and conflicts. Input order
// is preserved in both outputs.
func (r Resolver) Resolve(from time.Time, candidates []segments.Segment, busy []BusyInterval) Result {
	dates := r.window(from)
	byDate := make(map[string][]BusyInterval, len(busy))
	for _, b := range busy {
		byDate[b.Date] = append(byDate[b.Date], b)
	}

	res := Result{Available: []segments.Segment{}, Unavailable: []Conflict{}}
	for _, seg := range candidates {
		state, conflict := evaluate(seg, dates, byDate)
		if state == Conflicted {
			res.Unavailable = append(res.Unavailable, conflict)
			continue
		}
		res.Available = append(res.Available, seg)
	}
	return res
}

// ResolveRanges expands the candidate ranges and resolves the resulting segments.
func (r Resolver) ResolveRanges(from time.Time, candidates []segments.TimeslotRange, busy []BusyInterval) Result {
	return r.Resolve(from, segments.ExpandAll(candidates), busy)
}

func evaluate(seg segments.Segment, dates []windowDate, byDate map[string][]BusyInterval) (State, Conflict) {
	state := Candidate
	for _, d := range dates {
		if !strings.EqualFold(string(seg.Day), d.weekday) {
			continue
		}
		if b, ok := firstOverlap(seg.StartMinute, seg.EndMinute, byDate[d.key]); ok {
			state = Conflicted
			return state, Conflict{Segment: seg, Date: d.key, Busy: b}
		}
	}
	state = Available
	return state, Conflict{}
}

func firstOverlap(start, end timeofday.TimeOfDay, busy []BusyInterval) (BusyInterval, bool) {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start < b.EndMinute && b.StartMinute < end {
			return b, true
		}
	}
	return BusyInterval{}, false
}
