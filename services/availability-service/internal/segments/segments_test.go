package segments

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/md-rashed-zaman/callboard/services/availability-service/internal/timeofday"
)

var allDays = []Day{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func TestDayStarts(t *testing.T) {
	starts := DayStarts(7, 22)
	if len(starts) != 30 {
		t.Fatalf("expected 30 starts, got %d", len(starts))
	}
	if starts[0] != 420 {
		t.Fatalf("expected first start 420, got %d", starts[0])
	}
	if last := starts[len(starts)-1]; last != 1290 || last.Next() != 1320 {
		t.Fatalf("expected last segment 21:30-22:00, got start %d", last)
	}
	if got := DayStarts(10, 10); len(got) != 0 {
		t.Fatalf("expected empty day, got %v", got)
	}
}

func TestGenerate_DayMajorAndUniqueIDs(t *testing.T) {
	segs := Generate(allDays, 7, 22)
	if len(segs) != 7*30 {
		t.Fatalf("expected %d segments, got %d", 7*30, len(segs))
	}
	if segs[0].Day != "Monday" || segs[30].Day != "Tuesday" {
		t.Fatalf("expected day-major order, got %s then %s", segs[0].Day, segs[30].Day)
	}
	seen := map[string]bool{}
	for _, s := range segs {
		if seen[s.ID] {
			t.Fatalf("duplicate id %q", s.ID)
		}
		seen[s.ID] = true
		if !s.IsSegment || s.EndMinute-s.StartMinute != 30 {
			t.Fatalf("malformed segment %+v", s)
		}
		if again := NewSegment(s.Day, s.StartMinute); again.ID != s.ID {
			t.Fatalf("id not deterministic: %q vs %q", again.ID, s.ID)
		}
	}
}

func TestSegmentID_RoundTrip(t *testing.T) {
	for _, s := range Generate([]Day{"Monday", "Some Day"}, 0, 24) {
		back, err := ParseSegmentID(s.ID)
		if err != nil {
			t.Fatalf("ParseSegmentID(%q): %v", s.ID, err)
		}
		if diff := cmp.Diff(s, back); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
	if _, err := ParseSegmentID("Monday 17:00-19:00"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("range id must not parse as a segment id, got %v", err)
	}
	if _, err := ParseSegmentID("Monday"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	for _, id := range []string{"Monday 09:15", "Monday 09:01"} {
		if _, err := ParseSegmentID(id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("%q is off the grid, expected ErrInvalidID, got %v", id, err)
		}
	}
	if _, err := ParseRangeID("Monday 09:15-09:45"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for an unaligned range, got %v", err)
	}
}

func TestResolve_RejectsUnalignedID(t *testing.T) {
	_, err := Resolve([]Ref{IDRef("Monday 09:00"), IDRef("Monday 09:15")})
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestExpand_SingleRange(t *testing.T) {
	got := Expand(NewRange("Monday", 1020, 1080))
	want := []Segment{NewSegment("Monday", 1020), NewSegment("Monday", 1050)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expand mismatch (-want +got):\n%s", diff)
	}
	if got[0].EndMinute != 1050 || got[1].EndMinute != 1080 {
		t.Fatalf("unexpected bounds: %+v", got)
	}
}

func TestExpand_Coverage(t *testing.T) {
	for start := timeofday.TimeOfDay(0); start < timeofday.MinutesPerDay; start += 30 {
		for end := start + 30; end <= timeofday.MinutesPerDay; end += 30 {
			segs := Expand(NewRange("Friday", start, end))
			cursor := start
			for _, s := range segs {
				if s.StartMinute != cursor {
					t.Fatalf("gap or overlap at %d in [%d,%d)", cursor, start, end)
				}
				cursor = s.EndMinute
			}
			if cursor != end {
				t.Fatalf("coverage of [%d,%d) stops at %d", start, end, cursor)
			}
		}
	}
}

func TestCompact_RoundTrip(t *testing.T) {
	for start := timeofday.TimeOfDay(420); start < 1320; start += 30 {
		for end := start + 30; end <= 1320; end += 30 {
			r := NewRange("Wednesday", start, end)
			got := Compact(Expand(r))
			if diff := cmp.Diff([]TimeslotRange{r}, got); diff != "" {
				t.Fatalf("compact(expand(%s)) mismatch (-want +got):\n%s", r.ID, diff)
			}
		}
	}
}

func TestCompact_NonAdjacent(t *testing.T) {
	got := Compact([]Segment{NewSegment("Monday", 540), NewSegment("Monday", 600)})
	want := []TimeslotRange{NewRange("Monday", 540, 570), NewRange("Monday", 600, 630)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompact_CrossDayIsolation(t *testing.T) {
	got := Compact([]Segment{
		NewSegment("Tuesday", 600),
		NewSegment("Monday", 540),
		NewSegment("Monday", 570),
		NewSegment("Tuesday", 540),
		NewSegment("Tuesday", 570),
	})
	want := []TimeslotRange{
		NewRange("Tuesday", 540, 630),
		NewRange("Monday", 540, 600),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompact_UnsortedAndDuplicates(t *testing.T) {
	got := Compact([]Segment{
		NewSegment("Monday", 630),
		NewSegment("Monday", 570),
		NewSegment("Monday", 600),
		NewSegment("Monday", 600),
		NewSegment("Monday", 540),
	})
	want := []TimeslotRange{NewRange("Monday", 540, 660)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCompact_NeverMergesPartialOverlap(t *testing.T) {
	odd := Segment{ID: "Monday 09:15", Day: "Monday", StartMinute: 555, EndMinute: 585, IsSegment: true}
	got := Compact([]Segment{NewSegment("Monday", 540), odd, NewSegment("Monday", 540)})
	want := []TimeslotRange{NewRange("Monday", 540, 570), NewRange("Monday", 555, 585)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	for _, r := range got {
		if span := int(r.EndMinute - r.StartMinute); span%timeofday.Step != 0 {
			t.Fatalf("range %s has length %d", r.ID, span)
		}
	}
}

func TestCompact_Empty(t *testing.T) {
	got := Compact(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestCompact_Idempotent(t *testing.T) {
	minimal := []TimeslotRange{
		NewRange("Monday", 420, 480),
		NewRange("Monday", 540, 600),
		NewRange("Sunday", 1380, 1440),
	}
	once := Compact(ExpandAll(minimal))
	twice := Compact(ExpandAll(once))
	if diff := cmp.Diff(minimal, once); diff != "" {
		t.Fatalf("first pass mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second pass mismatch (-want +got):\n%s", diff)
	}
}

func TestCompact_UnknownDayPassesThrough(t *testing.T) {
	got := Compact([]Segment{NewSegment("Caturday", 600), NewSegment("Caturday", 630)})
	if len(got) != 1 || got[0].Day != "Caturday" || got[0].StartMinute != 600 || got[0].EndMinute != 660 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRange_LabelAndID(t *testing.T) {
	r := NewRange("Monday", 1020, 1140)
	if r.Label != "5:00 PM - 7:00 PM" {
		t.Fatalf("unexpected label %q", r.Label)
	}
	back, err := ParseRangeID(r.ID)
	if err != nil {
		t.Fatalf("ParseRangeID(%q): %v", r.ID, err)
	}
	if diff := cmp.Diff(r, back); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if got := NewRange("Sunday", 1410, 1440).Label; got != "11:30 PM - 12:00 AM" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestRange_Validate(t *testing.T) {
	bad := []TimeslotRange{
		NewRange("Monday", 600, 600),
		NewRange("Monday", 600, 540),
		NewRange("Monday", 600, 615),
		NewRange("Monday", 555, 615),
		NewRange("Monday", 1410, 1470),
	}
	for _, r := range bad {
		if err := r.Validate(); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange for %+v, got %v", r, err)
		}
	}
}

func TestWeek_Validate(t *testing.T) {
	w := Week{Days: []Day{"Monday", "Tuesday"}, StartHour: 7, EndHour: 22}
	d, err := w.Validate("monday")
	if err != nil || d != "Monday" {
		t.Fatalf("expected Monday, got %q, %v", d, err)
	}
	if _, err := w.Validate("Friday"); !errors.Is(err, ErrUnknownDay) {
		t.Fatalf("expected ErrUnknownDay, got %v", err)
	}
	if !w.Contains(NewSegment("Tuesday", 1290)) {
		t.Fatal("expected 21:30 Tuesday inside the week")
	}
	if w.Contains(NewSegment("Tuesday", 1320)) {
		t.Fatal("expected 22:00 Tuesday outside the week")
	}
}

func TestRefList_Mixed(t *testing.T) {
	var refs RefList
	body := `["Monday 09:00", {"day":"Monday","start_minute":570}, {"day":"Monday","start_time":"10:00 AM","id":"ignored"}]`
	if err := json.Unmarshal([]byte(body), &refs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	segs, err := Resolve(refs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []Segment{NewSegment("Monday", 540), NewSegment("Monday", 570), NewSegment("Monday", 600)}
	if diff := cmp.Diff(want, segs); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRefList_Errors(t *testing.T) {
	var refs RefList
	if err := json.Unmarshal([]byte(`[{"day":"Monday","start_time":"25:00"}]`), &refs); !errors.Is(err, timeofday.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if err := json.Unmarshal([]byte(`["nonsense"]`), &refs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := Resolve(refs); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := Resolve([]Ref{ValueRef{Day: "Monday", StartMinute: 545}}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for unaligned start, got %v", err)
	}
}

func TestRangeInput(t *testing.T) {
	r, err := RangeInput{Day: "Monday", StartTime: "5:00 PM", EndTime: "7:00 PM"}.Range()
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if r.StartMinute != 1020 || r.EndMinute != 1140 {
		t.Fatalf("unexpected range %+v", r)
	}
	r, err = RangeInput{Day: "Sunday", StartTime: "11:00 PM", EndTime: "12:00 AM"}.Range()
	if err != nil || r.EndMinute != 1440 {
		t.Fatalf("expected range ending at midnight, got %+v, %v", r, err)
	}
	if _, err := (RangeInput{Day: "Monday", StartTime: "5:00 PM"}).Range(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
