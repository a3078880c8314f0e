package flextime_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worktime-engine/flextime"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var anna = worktime.Employee{ID: "emp-1", Name: "Anna", WeeklyHours: 40}

func aggregator(now time.Time) flextime.Aggregator {
	a := flextime.DefaultAggregator()
	a.Calendar = generic.NewHolidays(generic.GermanFixedHolidays()...)
	a.Now = func() time.Time { return now }
	return a
}

func shift(date, in, out string) []worktime.TimeEntry {
	d := generic.MustParseDate(date)
	return []worktime.TimeEntry{
		{ID: date + "-in", EmployeeID: anna.ID, Date: d, Time: generic.MustParseTimeOfDay(in)},
		{ID: date + "-out", EmployeeID: anna.ID, Date: d, Time: generic.MustParseTimeOfDay(out)},
	}
}

func period(start, end string) generic.Period {
	return generic.Period{Start: generic.MustParseDate(start), End: generic.MustParseDate(end)}
}

func kinds(deltas []flextime.DailyDelta) []flextime.DayKind {
	out := make([]flextime.DayKind, len(deltas))
	for i, dd := range deltas {
		out[i] = dd.Kind
	}
	return out
}

// =============================================================================
// TARGET
// =============================================================================

func TestTarget(t *testing.T) {
	a := aggregator(time.Now())

	assert.Equal(t, 8*generic.Hour, a.Target(anna, generic.MustParseDate("2025-03-10")))
	assert.Equal(t, generic.Duration(0), a.Target(anna, generic.MustParseDate("2025-03-15")), "saturday")
	assert.Equal(t, generic.Duration(0), a.Target(anna, generic.MustParseDate("2025-05-01")), "holiday")

	part := anna
	part.WeeklyHours = 35
	assert.Equal(t, 7*generic.Hour, a.Target(part, generic.MustParseDate("2025-03-10")))

	// Four-day week spreads the same weekly hours over fewer days
	a.WorkWeek = generic.NewWorkWeek(time.Monday, time.Tuesday, time.Wednesday, time.Thursday)
	assert.Equal(t, 10*generic.Hour, a.Target(anna, generic.MustParseDate("2025-03-10")))
}

// =============================================================================
// DELTAS
// =============================================================================

func TestDeltas_DayKinds(t *testing.T) {
	// GIVEN: Week of 2025-04-28 evaluated on Monday 5 May at noon
	//   Mon 28: 9h net      Tue 29: vacation     Wed 30: nothing
	//   Thu  1: holiday     Fri  2: 7h net       Sat/Sun: off
	//   Mon  5: not over yet
	a := aggregator(time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC))
	var entries []worktime.TimeEntry
	entries = append(entries, shift("2025-04-28", "07:00", "16:45")...)
	entries = append(entries, shift("2025-05-02", "08:00", "15:30")...)
	vacation := worktime.Absence{
		EmployeeID: anna.ID,
		Start:      generic.MustParseDate("2025-04-29"),
		End:        generic.MustParseDate("2025-04-29"),
		Type:       worktime.AbsenceVacation,
	}

	// WHEN: Computing daily deltas
	deltas := a.Deltas(anna, period("2025-04-28", "2025-05-05"), entries, []worktime.Absence{vacation})

	// THEN: Every day gets its kind
	assert.Equal(t, []flextime.DayKind{
		flextime.KindWorked,
		flextime.KindAbsence,
		flextime.KindMissing,
		flextime.KindHoliday,
		flextime.KindWorked,
		flextime.KindOff,
		flextime.KindOff,
		flextime.KindPending,
	}, kinds(deltas))

	assert.Equal(t, generic.Hour, deltas[0].Delta)
	assert.Equal(t, generic.Duration(0), deltas[1].Delta)
	assert.Equal(t, -8*generic.Hour, deltas[2].Delta)
	assert.Equal(t, -generic.Hour, deltas[4].Delta)
	assert.Equal(t, generic.Duration(0), deltas[7].Target)

	// AND: The sum over the period
	assert.Equal(t, -8*generic.Hour, flextime.Sum(deltas, period("2025-04-28", "2025-05-05")))
}

func TestDeltas_MissingDaysCanBeIgnored(t *testing.T) {
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	a.IncludeMissingDays = false

	deltas := a.Deltas(anna, period("2025-03-10", "2025-03-14"), nil, nil)

	for _, dd := range deltas {
		assert.Equal(t, flextime.KindMissing, dd.Kind)
		assert.Equal(t, generic.Duration(0), dd.Delta)
	}
}

func TestDeltas_WeekendWorkCountsFully(t *testing.T) {
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))

	deltas := a.Deltas(anna, period("2025-03-15", "2025-03-15"), shift("2025-03-15", "09:00", "13:00"), nil)

	require.Len(t, deltas, 1)
	assert.Equal(t, flextime.KindWorked, deltas[0].Kind)
	assert.Equal(t, 4*generic.Hour, deltas[0].Delta)
}

func TestDeltas_WorkOnAbsenceDayHasNoTarget(t *testing.T) {
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	training := worktime.Absence{
		EmployeeID: anna.ID,
		Start:      generic.MustParseDate("2025-03-10"),
		End:        generic.MustParseDate("2025-03-10"),
		Type:       worktime.AbsenceTraining,
	}

	deltas := a.Deltas(anna, period("2025-03-10", "2025-03-10"), shift("2025-03-10", "09:00", "11:00"), []worktime.Absence{training})

	require.Len(t, deltas, 1)
	assert.Equal(t, 2*generic.Hour, deltas[0].Delta)
}

func TestDeltas_TrimToWorkWindow(t *testing.T) {
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	entries := shift("2025-03-10", "04:00", "13:00")

	plain := a.Deltas(anna, period("2025-03-10", "2025-03-10"), entries, nil)
	a.TrimToWorkWindow = true
	trimmed := a.Deltas(anna, period("2025-03-10", "2025-03-10"), entries, nil)

	// 9h gross = 8h30 net; trimmed to 06:00-13:00 = 6h30 net
	assert.Equal(t, generic.HoursMinutes(8, 30), plain[0].Worked)
	assert.Equal(t, generic.HoursMinutes(6, 30), trimmed[0].Worked)
	assert.Equal(t, -generic.HoursMinutes(1, 30), trimmed[0].Delta)
}

func TestDeltas_WeeklyHoursChangeMidPeriod(t *testing.T) {
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	emp := anna
	emp.HoursHistory = []worktime.WeeklyHoursChange{{ValidFrom: generic.MustParseDate("2025-03-12"), Hours: 30}}

	deltas := a.Deltas(emp, period("2025-03-10", "2025-03-14"), nil, nil)

	assert.Equal(t, 8*generic.Hour, deltas[1].Target)
	assert.Equal(t, 6*generic.Hour, deltas[2].Target)
	assert.Equal(t, -(2*8+3*6)*generic.Hour, flextime.Sum(deltas, period("2025-03-10", "2025-03-14")))
}

func TestDeltas_UnpairedDayIsNotCharged(t *testing.T) {
	// GIVEN: Monday with a single punch, Tuesday with three
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	entries := shift("2025-03-11", "08:00", "12:00")
	entries = append(entries,
		worktime.TimeEntry{ID: "mon-in", EmployeeID: anna.ID, Date: generic.MustParseDate("2025-03-10"), Time: generic.MustParseTimeOfDay("08:00")},
		worktime.TimeEntry{ID: "tue-back", EmployeeID: anna.ID, Date: generic.MustParseDate("2025-03-11"), Time: generic.MustParseTimeOfDay("13:00")},
	)

	// WHEN: Computing deltas
	deltas := a.Deltas(anna, period("2025-03-10", "2025-03-11"), entries, nil)

	// THEN: Monday has no closed pair and contributes nothing
	require.Len(t, deltas, 2)
	assert.Equal(t, flextime.KindUnpaired, deltas[0].Kind)
	assert.Equal(t, generic.Duration(0), deltas[0].Target)
	assert.Equal(t, generic.Duration(0), deltas[0].Delta)

	// AND: Tuesday counts its one closed pair against the target
	assert.Equal(t, flextime.KindWorked, deltas[1].Kind)
	assert.Equal(t, -4*generic.Hour, deltas[1].Delta)

	b, err := a.Balance(anna, flextime.Query{Period: &generic.Period{Start: deltas[0].Date, End: deltas[1].Date}}, entries, nil)
	require.NoError(t, err)
	assert.Equal(t, -4*generic.Hour, b.Total)
	assert.Equal(t, 1, b.DaysWorked)
}

// =============================================================================
// BALANCE
// =============================================================================

func TestBalance_SumsMonthPieces(t *testing.T) {
	// GIVEN: One hour overtime every workday of Q1 2025, queried on 31 March
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	var entries []worktime.TimeEntry
	for _, d := range period("2025-01-01", "2025-03-31").Days() {
		if generic.IsWorkday(d, a.WorkWeek, a.Calendar) {
			entries = append(entries, shift(d.String(), "07:00", "16:45")...)
		}
	}

	// WHEN: Asking for the quarter
	b, err := a.Balance(anna, flextime.Query{Granularity: generic.GranularityQuarter, AsOf: generic.MustParseDate("2025-03-31")}, entries, nil)
	require.NoError(t, err)

	// THEN: Jan has 22 workdays (1 Jan is a holiday), Feb 20, Mar 21
	require.Len(t, b.Breakdown, 3)
	assert.Equal(t, 22*generic.Hour, b.Breakdown[0].Total)
	assert.Equal(t, 20*generic.Hour, b.Breakdown[1].Total)
	assert.Equal(t, 21*generic.Hour, b.Breakdown[2].Total)
	assert.Equal(t, 63*generic.Hour, b.Total)
	assert.Equal(t, 63, b.DaysWorked)
	assert.Equal(t, "63.00 hours", b.Hours.String())
	assert.Equal(t, flextime.StatusRed, b.Status)
}

func TestBalance_ExplicitPeriod(t *testing.T) {
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	p := period("2025-03-10", "2025-03-11")

	b, err := a.Balance(anna, flextime.Query{Period: &p}, shift("2025-03-10", "08:00", "12:00"), nil)
	require.NoError(t, err)

	// Monday -4h, Tuesday missing -8h
	assert.Equal(t, -12*generic.Hour, b.Total)
	assert.Equal(t, 4*generic.Hour, b.Worked)
	assert.Equal(t, 16*generic.Hour, b.Target)
	assert.Equal(t, flextime.StatusRed, b.Status)
}

func TestBalance_UsesEmployeeThresholds(t *testing.T) {
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	p := period("2025-03-10", "2025-03-10")
	entries := shift("2025-03-10", "08:00", "14:00")

	// 6h worked against 8h: -2h
	b, err := a.Balance(anna, flextime.Query{Period: &p}, entries, nil)
	require.NoError(t, err)
	assert.Equal(t, flextime.StatusGreen, b.Status)

	strict := worktime.ThresholdsFromHours(1, 2)
	emp := anna
	emp.Thresholds = &strict
	b, err = a.Balance(emp, flextime.Query{Period: &p}, entries, nil)
	require.NoError(t, err)
	assert.Equal(t, flextime.StatusYellow, b.Status)
}

func TestQuery_Resolve(t *testing.T) {
	p, err := flextime.Query{AsOf: generic.MustParseDate("2025-08-14")}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "[2025-08-01, 2025-08-14]", p.String())

	_, err = flextime.Query{}.Resolve()
	assert.ErrorIs(t, err, generic.ErrMissingParameter)

	_, err = flextime.Query{Granularity: "week", AsOf: generic.MustParseDate("2025-08-14")}.Resolve()
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	bad := period("2025-08-14", "2025-08-01")
	_, err = flextime.Query{Period: &bad}.Resolve()
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

// =============================================================================
// AVERAGE
// =============================================================================

func TestAverage_CountsWorkedAndMissingDays(t *testing.T) {
	// GIVEN: Mon +1h, Tue -1h, Wed nothing, Thu +2h, Fri vacation, Sat 4h
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	var entries []worktime.TimeEntry
	entries = append(entries, shift("2025-03-10", "07:00", "16:45")...)
	entries = append(entries, shift("2025-03-11", "08:00", "15:30")...)
	entries = append(entries, shift("2025-03-13", "07:00", "18:00")...)
	entries = append(entries, shift("2025-03-15", "09:00", "13:00")...)
	vacation := worktime.Absence{
		EmployeeID: anna.ID,
		Start:      generic.MustParseDate("2025-03-14"),
		End:        generic.MustParseDate("2025-03-14"),
		Type:       worktime.AbsenceVacation,
	}
	p := period("2025-03-10", "2025-03-16")

	// WHEN: Averaging with missing days charged
	av, err := a.Average(anna, p, entries, []worktime.Absence{vacation})
	require.NoError(t, err)

	// THEN: Mon, Tue, Wed and Thu count: (+1 -1 -8 +2.25) / 4
	// Thursday is 11h gross = 10h15 net
	assert.Equal(t, 4, av.Counted())
	assert.Equal(t, -generic.HoursMinutes(5, 45), av.Total)
	assert.Equal(t, -(generic.HoursMinutes(5, 45) / 4), av.Average)

	// WHEN: Leaving missing days out
	a.IncludeMissingDays = false
	av, err = a.Average(anna, p, entries, []worktime.Absence{vacation})
	require.NoError(t, err)

	// THEN: Only the three worked weekdays count
	assert.Equal(t, []generic.Date{
		generic.MustParseDate("2025-03-10"),
		generic.MustParseDate("2025-03-11"),
		generic.MustParseDate("2025-03-13"),
	}, av.Days)
	assert.Equal(t, generic.HoursMinutes(2, 15), av.Total)
	assert.Equal(t, 45*generic.Minute, av.Average)
}

func TestAverage_NoCountedDays(t *testing.T) {
	a := aggregator(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	a.IncludeMissingDays = false

	av, err := a.Average(anna, period("2025-03-10", "2025-03-14"), nil, nil)
	require.NoError(t, err)

	assert.Zero(t, av.Counted())
	assert.Equal(t, generic.Duration(0), av.Average)

	_, err = a.Average(anna, period("2025-03-14", "2025-03-10"), nil, nil)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

// =============================================================================
// TRAFFIC LIGHT
// =============================================================================

func TestClassify(t *testing.T) {
	th := worktime.DefaultThresholds()
	cases := map[string]flextime.Status{
		"0":     flextime.StatusGreen,
		"5":     flextime.StatusGreen,
		"-5":    flextime.StatusGreen,
		"5.01":  flextime.StatusYellow,
		"-10":   flextime.StatusYellow,
		"10":    flextime.StatusYellow,
		"10.5":  flextime.StatusRed,
		"-12.0": flextime.StatusRed,
	}
	for hours, want := range cases {
		assert.Equal(t, want, flextime.Classify(decimal.RequireFromString(hours), th), hours)
	}
}
