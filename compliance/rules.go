package compliance

import (
	"fmt"
	"time"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// RULE - One independent check
// =============================================================================

// Rule is a pure evaluator. Evaluating the same Input twice yields the same
// findings.
type Rule interface {
	Name() string
	Code() Code
	Evaluate(in *Input) []Finding
}

// Lookback is implemented by rules that need data from before the period.
type Lookback interface {
	Window(p generic.Period) generic.Period
}

// =============================================================================
// MISSING WORKDAY (code 1)
// =============================================================================

// MissingWorkdayRule flags working weekdays without punches or absence once
// the day's legal window has closed.
type MissingWorkdayRule struct{}

func (MissingWorkdayRule) Name() string { return "missing_workday" }
func (MissingWorkdayRule) Code() Code   { return CodeMissingWorkday }

func (r MissingWorkdayRule) Evaluate(in *Input) []Finding {
	if !in.Options.IncludeMissingDays {
		return nil
	}
	var out []Finding
	for _, d := range in.Period.Days() {
		if !generic.IsWorkday(d, in.WorkWeek, in.Calendar) {
			continue
		}
		if d.At(in.Profile(d).WindowEnd).After(in.Now) {
			continue
		}
		if in.HasPunches(d) || in.Absent(d) {
			continue
		}
		out = append(out, Finding{Code: r.Code(), Date: d})
	}
	return out
}

// =============================================================================
// PUNCH PARITY (code 2)
// =============================================================================

// PunchParityRule flags days with an odd number of punches.
type PunchParityRule struct{}

func (PunchParityRule) Name() string { return "punch_parity" }
func (PunchParityRule) Code() Code   { return CodeMissingPunch }

func (r PunchParityRule) Evaluate(in *Input) []Finding {
	var out []Finding
	for _, d := range in.PunchedIn(in.Period) {
		if n := len(in.Entries[d]); n%2 == 1 {
			out = append(out, Finding{Code: r.Code(), Date: d, Detail: fmt.Sprintf("%d punches", n)})
		}
	}
	return out
}

// =============================================================================
// REST PERIOD (code 3)
// =============================================================================

// RestPeriodRule checks the gap between the last punch of one punched day and
// the first punch of the next punched day. Days without punches in between
// do not break the chain, so Friday to Monday is checked too.
type RestPeriodRule struct{}

func (RestPeriodRule) Name() string { return "rest_period" }
func (RestPeriodRule) Code() Code   { return CodeRestPeriod }

// Window reaches one day back: any earlier predecessor is at least a full
// calendar day away and cannot violate an 11h or 12h rest.
func (RestPeriodRule) Window(p generic.Period) generic.Period {
	return generic.Period{Start: p.Start.AddDays(-1), End: p.End}
}

func (r RestPeriodRule) Evaluate(in *Input) []Finding {
	var out []Finding
	for i := 1; i < len(in.Punched); i++ {
		prevDate, curDate := in.Punched[i-1], in.Punched[i]
		if !in.Period.Contains(curDate) {
			continue
		}
		prev, cur := in.Days[prevDate], in.Days[curDate]
		if prev.Indeterminate || cur.Indeterminate {
			continue
		}
		last, ok1 := prev.LastPunch()
		first, ok2 := cur.FirstPunch()
		if !ok1 || !ok2 {
			continue
		}
		gap := generic.FromStd(first.Sub(last))
		limit := in.Profile(curDate).MinRest
		if gap < limit {
			out = append(out, Finding{
				Code:     r.Code(),
				Date:     curDate,
				Observed: gap,
				Limit:    limit,
				Detail:   fmt.Sprintf("after %s", prevDate),
			})
		}
	}
	return out
}

// =============================================================================
// MAX DAILY TIME (code 5)
// =============================================================================

// MaxDailyRule flags a net day strictly above the profile maximum.
type MaxDailyRule struct{}

func (MaxDailyRule) Name() string { return "max_daily" }
func (MaxDailyRule) Code() Code   { return CodeMaxDailyExceeded }

func (r MaxDailyRule) Evaluate(in *Input) []Finding {
	var out []Finding
	for _, d := range in.PunchedIn(in.Period) {
		day, ok := in.countable(d)
		if !ok {
			continue
		}
		limit := in.Profile(d).MaxDaily
		if day.Net > limit {
			out = append(out, Finding{Code: r.Code(), Date: d, Observed: day.Net, Limit: limit})
		}
	}
	return out
}

// =============================================================================
// ROLLING AVERAGE (code 4)
// =============================================================================

// RollingAverageRule averages net time over the punched days of a trailing
// window ending at the period end. Days without punches do not count.
type RollingAverageRule struct {
	Months int
	Limit  generic.Duration
}

// DefaultRollingAverage is 8h over six months.
func DefaultRollingAverage() RollingAverageRule {
	return RollingAverageRule{Months: 6, Limit: 8 * generic.Hour}
}

func (RollingAverageRule) Name() string { return "rolling_average" }
func (RollingAverageRule) Code() Code   { return CodeAverageExceeded }

func (r RollingAverageRule) Window(p generic.Period) generic.Period {
	return generic.Trailing(p.End, r.months())
}

func (r RollingAverageRule) months() int {
	if r.Months <= 0 {
		return 6
	}
	return r.Months
}

func (r RollingAverageRule) Evaluate(in *Input) []Finding {
	window := r.Window(in.Period)
	var total generic.Duration
	days := 0
	for _, d := range in.PunchedIn(window) {
		day, ok := in.countable(d)
		if !ok {
			continue
		}
		total += day.Net
		days++
	}
	if days == 0 {
		return nil
	}
	avg := total.DivInt(days)
	if avg <= r.Limit {
		return nil
	}
	return []Finding{{
		Code:     r.Code(),
		Date:     in.Period.End,
		Observed: avg,
		Limit:    r.Limit,
		Detail:   monthsText(r.months()),
	}}
}

func monthsText(n int) string {
	if n == 1 {
		return "1 month"
	}
	return fmt.Sprintf("%d months", n)
}

// =============================================================================
// SUNDAY / HOLIDAY WORK (code 6)
// =============================================================================

// SundayHolidayRule flags punches on Sundays and public holidays.
type SundayHolidayRule struct{}

func (SundayHolidayRule) Name() string { return "sunday_holiday" }
func (SundayHolidayRule) Code() Code   { return CodeSundayHolidayWork }

func (r SundayHolidayRule) Evaluate(in *Input) []Finding {
	var out []Finding
	for _, d := range in.PunchedIn(in.Period) {
		switch {
		case d.Weekday() == time.Sunday:
			out = append(out, Finding{Code: r.Code(), Date: d, Detail: "Sunday"})
		case in.Calendar.IsHoliday(d):
			detail := "public holiday"
			if h, ok := in.Calendar.(interface {
				Lookup(generic.Date) (generic.Holiday, bool)
			}); ok {
				if hol, found := h.Lookup(d); found && hol.Name != "" {
					detail = hol.Name
				}
			}
			out = append(out, Finding{Code: r.Code(), Date: d, Detail: detail})
		}
	}
	return out
}

// =============================================================================
// YOUTH RULES (codes 7, 8, 9) - no-ops for adults
// =============================================================================

// weeksOf groups the minor-dated punched days of the input by ISO week,
// keeping only weeks that overlap the period.
func weeksOf(in *Input) ([]generic.Date, map[generic.Date][]generic.Date) {
	byWeek := make(map[generic.Date][]generic.Date)
	var mondays []generic.Date
	for _, d := range in.Punched {
		if !in.Employee.IsMinorOn(d) {
			continue
		}
		monday := d.StartOfWeek()
		week := generic.Period{Start: monday, End: monday.AddDays(6)}
		if _, overlaps := week.Intersect(in.Period); !overlaps {
			continue
		}
		if _, seen := byWeek[monday]; !seen {
			mondays = append(mondays, monday)
		}
		byWeek[monday] = append(byWeek[monday], d)
	}
	return mondays, byWeek
}

// weekWindow widens p to whole ISO weeks.
func weekWindow(p generic.Period) generic.Period {
	return generic.Period{Start: p.Start.StartOfWeek(), End: p.End.StartOfWeek().AddDays(6)}
}

// MinorWeeklyHoursRule flags ISO weeks above the youth weekly maximum.
type MinorWeeklyHoursRule struct{}

func (MinorWeeklyHoursRule) Name() string                           { return "minor_weekly_hours" }
func (MinorWeeklyHoursRule) Code() Code                             { return CodeMinorWeeklyHours }
func (MinorWeeklyHoursRule) Window(p generic.Period) generic.Period { return weekWindow(p) }

func (r MinorWeeklyHoursRule) Evaluate(in *Input) []Finding {
	mondays, byWeek := weeksOf(in)
	var out []Finding
	for _, monday := range mondays {
		var total generic.Duration
		for _, d := range byWeek[monday] {
			if day, ok := in.countable(d); ok {
				total += day.Net
			}
		}
		if limit := worktime.Minor.MaxWeekly; total > limit {
			out = append(out, Finding{Code: r.Code(), Date: monday, Observed: total, Limit: limit})
		}
	}
	return out
}

// MinorWorkdaysRule flags ISO weeks with more punched days than allowed.
type MinorWorkdaysRule struct{}

func (MinorWorkdaysRule) Name() string                           { return "minor_workdays" }
func (MinorWorkdaysRule) Code() Code                             { return CodeMinorWorkdays }
func (MinorWorkdaysRule) Window(p generic.Period) generic.Period { return weekWindow(p) }

func (r MinorWorkdaysRule) Evaluate(in *Input) []Finding {
	mondays, byWeek := weeksOf(in)
	var out []Finding
	for _, monday := range mondays {
		if n, limit := len(byWeek[monday]), worktime.Minor.MaxWorkdaysPerWeek; n > limit {
			out = append(out, Finding{Code: r.Code(), Date: monday, Detail: fmt.Sprintf("%d days (at most %d)", n, limit)})
		}
	}
	return out
}

// MinorWorkWindowRule flags days where a minor punched outside the youth
// work window.
type MinorWorkWindowRule struct{}

func (MinorWorkWindowRule) Name() string { return "minor_work_window" }
func (MinorWorkWindowRule) Code() Code   { return CodeMinorWorkWindow }

func (r MinorWorkWindowRule) Evaluate(in *Input) []Finding {
	p := worktime.Minor
	var out []Finding
	for _, d := range in.PunchedIn(in.Period) {
		if !in.Employee.IsMinorOn(d) {
			continue
		}
		for _, e := range in.Entries[d] {
			if !p.InWindow(e.Time) {
				out = append(out, Finding{
					Code:   r.Code(),
					Date:   d,
					Detail: fmt.Sprintf("%s (permitted %s-%s)", e.Time, p.WindowStart, p.WindowEnd),
				})
				break
			}
		}
	}
	return out
}
