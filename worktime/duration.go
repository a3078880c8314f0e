/*
duration.go - Worked time of one employee-day

PURPOSE:
  Turns the raw punches of a single day into gross time, statutory break and
  net time. This is the only place that pairs punches.

RULES:
  - Punches are re-sorted by timestamp; insertion order never matters.
  - Pairs are formed sequentially: 1st-2nd, 3rd-4th, ...
  - An odd final punch stays unpaired. Reporting it is PunchParityRule's job.
  - Punches from more than one calendar date make the day Indeterminate.
    Callers must skip such a day; it has no numeric answer.
  - Net = max(gross - break, 0). The break step does not look at the actual
    gaps between pairs.

SEE ALSO:
  - profile.go: Break steps per profile
  - compliance/input.go: Calculates every punched day of an evaluation
*/
package worktime

import (
	"time"

	"github.com/warp/worktime-engine/generic"
)

// Interval is one paired in/out span.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() generic.Duration { return generic.FromStd(i.End.Sub(i.Start)) }

// DayResult is the outcome of CalculateDay.
type DayResult struct {
	Date          generic.Date
	Indeterminate bool
	PunchCount    int
	Intervals     []Interval
	Unpaired      *TimeEntry
	Gross         generic.Duration
	Break         generic.Duration
	Net           generic.Duration
}

// HasPunches reports whether any punch was recorded for the day.
func (r DayResult) HasPunches() bool { return r.PunchCount > 0 }

// Odd reports an unpaired punch.
func (r DayResult) Odd() bool { return r.PunchCount%2 == 1 }

// FirstPunch / LastPunch return the outermost instants of the day. ok is
// false for days without punches.
func (r DayResult) FirstPunch() (time.Time, bool) {
	if len(r.Intervals) > 0 {
		return r.Intervals[0].Start, true
	}
	if r.Unpaired != nil {
		return r.Unpaired.At(), true
	}
	return time.Time{}, false
}

func (r DayResult) LastPunch() (time.Time, bool) {
	if r.Unpaired != nil {
		return r.Unpaired.At(), true
	}
	if len(r.Intervals) > 0 {
		return r.Intervals[len(r.Intervals)-1].End, true
	}
	return time.Time{}, false
}

// CalculateDay computes gross, break and net time for the punches of one day
// under profile p.
func CalculateDay(entries []TimeEntry, p Profile) DayResult {
	res := DayResult{PunchCount: len(entries)}
	if len(entries) == 0 {
		return res
	}

	sorted := SortEntries(entries)
	res.Date = sorted[0].Date
	for _, e := range sorted[1:] {
		if e.Date != res.Date {
			res.Indeterminate = true
			return res
		}
	}

	for i := 0; i+1 < len(sorted); i += 2 {
		iv := Interval{Start: sorted[i].At(), End: sorted[i+1].At()}
		res.Intervals = append(res.Intervals, iv)
		res.Gross += iv.Duration()
	}
	if len(sorted)%2 == 1 {
		last := sorted[len(sorted)-1]
		res.Unpaired = &last
	}

	res.Break = p.BreakFor(res.Gross)
	res.Net = (res.Gross - res.Break).ClampZero()
	return res
}

// CreditableNet is the net time of r counting only the parts of each
// interval inside the profile window. The break is re-derived from the
// trimmed gross.
func CreditableNet(r DayResult, p Profile) generic.Duration {
	if r.Indeterminate || len(r.Intervals) == 0 {
		return 0
	}
	windowStart := r.Date.At(p.WindowStart)
	windowEnd := r.Date.At(p.WindowEnd)

	var gross generic.Duration
	for _, iv := range r.Intervals {
		start, end := iv.Start, iv.End
		if start.Before(windowStart) {
			start = windowStart
		}
		if end.After(windowEnd) {
			end = windowEnd
		}
		if end.After(start) {
			gross += generic.FromStd(end.Sub(start))
		}
	}
	return (gross - p.BreakFor(gross)).ClampZero()
}
