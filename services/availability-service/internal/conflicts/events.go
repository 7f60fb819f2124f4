package conflicts

import (
	"sort"
	"time"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/timeofday"
)

// Event is a calendar entry as reported by the calendar provider.
type Event struct {
	Summary string    `json:"summary,omitempty"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	AllDay  bool      `json:"all_day,omitempty"`
}

// BusyFromEvents reduces events to per-date busy intervals in loc, keeping the
// horizonDays dates starting at from. Events crossing midnight are split per date.
// The horizon should reach past the resolver window so later re-resolutions still
// see the dates the window moves onto.
func BusyFromEvents(events []Event, loc *time.Location, from time.Time, horizonDays int) []BusyInterval {
	r := NewResolver(horizonDays, loc)
	inWindow := make(map[string]bool, r.WindowDays)
	for _, d := range r.Window(from) {
		inWindow[d] = true
	}

	out := []BusyInterval{}
	for _, ev := range events {
		var parts []BusyInterval
		if ev.AllDay {
			parts = allDay(ev)
		} else {
			parts = timed(ev, r.Location)
		}
		for _, p := range parts {
			if inWindow[p.Date] {
				out = append(out, p)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartMinute < out[j].StartMinute
	})
	return out
}

// allDay covers whole dates. The end date is exclusive, as calendar providers report it.
func allDay(ev Event) []BusyInterval {
	first := civil(ev.Start)
	last := civil(ev.End)
	if !last.After(first) {
		last = first.AddDate(0, 0, 1)
	}
	var out []BusyInterval
	for d := first; d.Before(last); d = d.AddDate(0, 0, 1) {
		out = append(out, BusyInterval{Date: d.Format(DateLayout), StartMinute: 0, EndMinute: timeofday.MinutesPerDay})
	}
	return out
}

func timed(ev Event, loc *time.Location) []BusyInterval {
	start := ev.Start.In(loc)
	end := ev.End.In(loc)
	if !end.After(start) {
		return nil
	}

	var out []BusyInterval
	for cursor := start; cursor.Before(end); {
		midnight := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, loc)
		next := midnight.AddDate(0, 0, 1)

		startMin := timeofday.FromClock(cursor.Hour(), cursor.Minute())
		endMin := timeofday.TimeOfDay(timeofday.MinutesPerDay)
		if end.Before(next) {
			endMin = ceilMinute(end)
		}
		if endMin > startMin {
			out = append(out, BusyInterval{Date: midnight.Format(DateLayout), StartMinute: startMin, EndMinute: endMin})
		}
		cursor = next
	}
	return out
}

// ceilMinute rounds a partial minute up so a busy block is never shortened.
func ceilMinute(t time.Time) timeofday.TimeOfDay {
	m := timeofday.FromClock(t.Hour(), t.Minute())
	if t.Second() > 0 || t.Nanosecond() > 0 {
		m++
	}
	return m
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
