package segments

import (
	"sort"

	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/timeofday"
)

// Expand splits r into its segments. The union of the returned segments is exactly
// [r.StartMinute, r.EndMinute).
func Expand(r TimeslotRange) []Segment {
	if r.EndMinute <= r.StartMinute {
		return nil
	}
	out := make([]Segment, 0, int(r.EndMinute-r.StartMinute)/timeofday.Step)
	for m := r.StartMinute; m < r.EndMinute; m = m.Next() {
		out = append(out, NewSegment(r.Day, m))
	}
	return out
}

// ExpandAll expands every range in order.
func ExpandAll(ranges []TimeslotRange) []Segment {
	var out []Segment
	for _, r := range ranges {
		out = append(out, Expand(r)...)
	}
	return out
}

// Compact merges segments into the minimal set of maximal contiguous ranges per day.
// Input order does not matter. Days are emitted in the order they are first seen and
// ranges within a day ascend. Day names are not validated here.
func Compact(segs []Segment) []TimeslotRange {
	if len(segs) == 0 {
		return []TimeslotRange{}
	}

	var order []Day
	byDay := make(map[Day][]Segment)
	for _, s := range segs {
		if _, ok := byDay[s.Day]; !ok {
			order = append(order, s.Day)
		}
		byDay[s.Day] = append(byDay[s.Day], s)
	}

	out := make([]TimeslotRange, 0, len(order))
	for _, day := range order {
		group := byDay[day]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].StartMinute < group[j].StartMinute
		})

		runStart, runEnd := group[0].StartMinute, group[0].EndMinute
		for _, s := range group[1:] {
			switch {
			case s.StartMinute == runEnd:
				runEnd = s.EndMinute
			case s.StartMinute < runEnd && int(s.StartMinute-runStart)%timeofday.Step == 0:
				// repeated segment, already covered
			default:
				// Gap, or a start off the run's grid. Never merge partial overlaps.
				out = append(out, NewRange(day, runStart, runEnd))
				runStart, runEnd = s.StartMinute, s.EndMinute
			}
		}
		out = append(out, NewRange(day, runStart, runEnd))
	}
	return out
}

// IDs returns the segment ids in order.
func IDs(segs []Segment) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, s.ID)
	}
	return out
}
