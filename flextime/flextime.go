/*
Package flextime accumulates the flex-time balance (Gleitzeit) of an
employee and classifies it into a traffic-light status.

PURPOSE:
  Each calendar day contributes a delta of worked net time minus the
  contractual target for that day. A balance is the sum of the deltas over a
  period. Month, quarter and year balances are built by summing their
  calendar-month sub-periods.

DAY KINDS:
  worked         - punches present: delta = net - target
  missing        - workday without punches or absence: -target when
                   IncludeMissingDays, else 0
  absence        - vacation, sickness, ...: 0
  holiday / off  - public holiday or non-working weekday: 0
  indeterminate  - punches span dates: skipped
  unpaired       - punches but no closed in/out pair: skipped
  pending        - workday whose legal window has not closed yet: 0

TARGET:
  weekly hours valid on the day / number of working weekdays
  (40h over Mon-Fri = 8h per day)

SEE ALSO:
  - status.go: Classify (green / yellow / red)
  - engine/engine.go: GetFlexBalance, GetFlexAverage
*/
package flextime

import (
	"time"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// DAILY DELTA
// =============================================================================

type DayKind string

const (
	KindWorked        DayKind = "worked"
	KindMissing       DayKind = "missing"
	KindAbsence       DayKind = "absence"
	KindHoliday       DayKind = "holiday"
	KindOff           DayKind = "off"
	KindIndeterminate DayKind = "indeterminate"
	KindPending       DayKind = "pending"
	KindUnpaired      DayKind = "unpaired"
)

type DailyDelta struct {
	Date   generic.Date
	Kind   DayKind
	Worked generic.Duration
	Target generic.Duration
	Delta  generic.Duration
}

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	WorkWeek generic.WorkWeek
	Calendar generic.HolidayCalendar

	// IncludeMissingDays charges -target for unpunched workdays.
	IncludeMissingDays bool

	// TrimToWorkWindow credits only time inside the legal work window.
	TrimToWorkWindow bool

	// Defaults apply to employees without own thresholds.
	Defaults worktime.Thresholds

	Now func() time.Time
}

func DefaultAggregator() Aggregator {
	return Aggregator{
		WorkWeek:           generic.DefaultWorkWeek(),
		Calendar:           generic.NoHolidays{},
		IncludeMissingDays: true,
		Defaults:           worktime.DefaultThresholds(),
	}
}

func (a Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a Aggregator) workWeek() generic.WorkWeek {
	if a.WorkWeek.Len() == 0 {
		return generic.DefaultWorkWeek()
	}
	return a.WorkWeek
}

// Target is the contractual time for d: zero on non-working days and
// holidays.
func (a Aggregator) Target(emp worktime.Employee, d generic.Date) generic.Duration {
	week := a.workWeek()
	if !generic.IsWorkday(d, week, a.Calendar) {
		return 0
	}
	weekly := generic.Duration(emp.WeeklyHoursOn(d)) * generic.Hour
	return weekly.DivInt(week.Len())
}

// Deltas returns one DailyDelta per day of period, in date order.
func (a Aggregator) Deltas(emp worktime.Employee, period generic.Period, entries []worktime.TimeEntry, absences []worktime.Absence) []DailyDelta {
	byDate, _ := worktime.GroupByDate(entries)
	absent := worktime.IndexAbsences(absences, period)
	now := a.now()

	out := make([]DailyDelta, 0, period.Len())
	for _, d := range period.Days() {
		profile := worktime.ProfileFor(emp, d)
		target := a.Target(emp, d)
		dd := DailyDelta{Date: d, Target: target}

		switch punches, punched := byDate[d]; {
		case punched:
			day := worktime.CalculateDay(punches, profile)
			if day.Indeterminate {
				dd.Kind, dd.Target = KindIndeterminate, 0
				break
			}
			if len(day.Intervals) == 0 {
				dd.Kind, dd.Target = KindUnpaired, 0
				break
			}
			dd.Kind = KindWorked
			dd.Worked = day.Net
			if a.TrimToWorkWindow {
				dd.Worked = worktime.CreditableNet(day, profile)
			}
			if absent.Covers(d) {
				dd.Target = 0
			}
			dd.Delta = dd.Worked - dd.Target
		case absent.Covers(d):
			dd.Kind, dd.Target = KindAbsence, 0
		case target > 0 && d.At(profile.WindowEnd).After(now):
			dd.Kind, dd.Target = KindPending, 0
		case target > 0:
			dd.Kind = KindMissing
			if a.IncludeMissingDays {
				dd.Delta = -target
			}
		case a.Calendar != nil && a.Calendar.IsHoliday(d):
			dd.Kind = KindHoliday
		default:
			dd.Kind = KindOff
		}
		out = append(out, dd)
	}
	return out
}

// Sum adds the deltas dated within p.
func Sum(deltas []DailyDelta, p generic.Period) generic.Duration {
	var total generic.Duration
	for _, dd := range deltas {
		if p.Contains(dd.Date) {
			total += dd.Delta
		}
	}
	return total
}

// =============================================================================
// BALANCE
// =============================================================================

// Query selects the balance period: either an explicit Period or the
// elapsed part of the Granularity period containing AsOf.
type Query struct {
	Granularity generic.Granularity
	AsOf        generic.Date
	Period      *generic.Period
}

// Resolve returns the period the query covers.
func (q Query) Resolve() (generic.Period, error) {
	if q.Period != nil {
		return *q.Period, q.Period.Validate()
	}
	if err := generic.RequireDate("as of", q.AsOf); err != nil {
		return generic.Period{}, err
	}
	g, err := generic.ParseGranularity(string(q.Granularity))
	if err != nil {
		return generic.Period{}, err
	}
	return g.ToDate(q.AsOf), nil
}

// Subtotal is the balance of one calendar-month piece.
type Subtotal struct {
	Period generic.Period
	Total  generic.Duration
	Hours  generic.Amount
}

type Balance struct {
	EmployeeID  generic.EmployeeID
	Period      generic.Period
	Granularity generic.Granularity
	Total       generic.Duration
	Hours       generic.Amount
	Worked      generic.Duration
	Target      generic.Duration
	DaysWorked  int
	Status      Status
	Thresholds  worktime.Thresholds
	Breakdown   []Subtotal
}

// Balance computes the period balance by summing calendar-month
// sub-periods, then classifies it against the employee's thresholds.
func (a Aggregator) Balance(emp worktime.Employee, q Query, entries []worktime.TimeEntry, absences []worktime.Absence) (Balance, error) {
	period, err := q.Resolve()
	if err != nil {
		return Balance{}, err
	}
	deltas := a.Deltas(emp, period, entries, absences)

	b := Balance{
		EmployeeID:  emp.ID,
		Period:      period,
		Granularity: q.Granularity,
		Thresholds:  emp.ThresholdsOrDefault(a.defaults()),
	}
	for _, piece := range period.Months() {
		sub := Sum(deltas, piece)
		b.Breakdown = append(b.Breakdown, Subtotal{Period: piece, Total: sub, Hours: sub.Amount()})
		b.Total += sub
	}
	for _, dd := range deltas {
		b.Worked += dd.Worked
		b.Target += dd.Target
		if dd.Kind == KindWorked {
			b.DaysWorked++
		}
	}
	b.Hours = b.Total.Amount()
	b.Status = Classify(b.Total.Hours(), b.Thresholds)
	return b, nil
}

// =============================================================================
// AVERAGE
// =============================================================================

// Average is the mean daily flex delta over the counted days of a period.
type Average struct {
	EmployeeID generic.EmployeeID
	Period     generic.Period
	Average    generic.Duration
	Total      generic.Duration
	Days       []generic.Date
}

// Counted is the number of days the average was taken over.
func (av Average) Counted() int { return len(av.Days) }

// Average takes the mean delta over the working days of period. Worked days
// always count. Unpunched workdays count with -target only when
// IncludeMissingDays is set. Weekend work, absences, holidays and days whose
// window is still open are left out. No counted days yields a zero average.
func (a Aggregator) Average(emp worktime.Employee, period generic.Period, entries []worktime.TimeEntry, absences []worktime.Absence) (Average, error) {
	if err := period.Validate(); err != nil {
		return Average{}, err
	}
	av := Average{EmployeeID: emp.ID, Period: period}
	week := a.workWeek()
	for _, dd := range a.Deltas(emp, period, entries, absences) {
		switch {
		case dd.Kind == KindWorked && week.Contains(dd.Date.Weekday()):
		case dd.Kind == KindMissing && a.IncludeMissingDays:
		default:
			continue
		}
		av.Total += dd.Delta
		av.Days = append(av.Days, dd.Date)
	}
	av.Average = av.Total.DivInt(len(av.Days))
	return av, nil
}

func (a Aggregator) defaults() worktime.Thresholds {
	if a.Defaults == (worktime.Thresholds{}) {
		return worktime.DefaultThresholds()
	}
	return a.Defaults
}
