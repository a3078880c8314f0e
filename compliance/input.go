package compliance

import (
	"time"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// Options tune one evaluation.
type Options struct {
	// IncludeMissingDays reports workdays with neither punches nor absence.
	IncludeMissingDays bool
}

func DefaultOptions() Options {
	return Options{IncludeMissingDays: true}
}

// Env is the evaluation environment shared by all employees.
type Env struct {
	Now      time.Time
	WorkWeek generic.WorkWeek
	Calendar generic.HolidayCalendar
	Options  Options
}

// Input is the normalized view every rule reads. Days holds a DayResult for
// every punched date inside Window, which may reach before Period for rules
// that look back.
type Input struct {
	Employee worktime.Employee
	Period   generic.Period
	Window   generic.Period
	Env

	Entries  map[generic.Date][]worktime.TimeEntry
	Days     map[generic.Date]worktime.DayResult
	Punched  []generic.Date // ascending
	Absences worktime.AbsenceIndex
}

// NewInput sorts, groups and calculates the raw records. Entries outside
// window are ignored.
func NewInput(emp worktime.Employee, period, window generic.Period, entries []worktime.TimeEntry, absences []worktime.Absence, env Env) *Input {
	if env.Now.IsZero() {
		env.Now = time.Now()
	}
	if env.Calendar == nil {
		env.Calendar = generic.NoHolidays{}
	}
	if env.WorkWeek.Len() == 0 {
		env.WorkWeek = generic.DefaultWorkWeek()
	}

	in := &Input{
		Employee: emp,
		Period:   period,
		Window:   window.Union(period),
		Env:      env,
		Days:     make(map[generic.Date]worktime.DayResult),
		Absences: worktime.IndexAbsences(absences, window.Union(period)),
	}

	var inWindow []worktime.TimeEntry
	for _, e := range entries {
		if in.Window.Contains(e.Date) {
			inWindow = append(inWindow, e)
		}
	}
	in.Entries, in.Punched = worktime.GroupByDate(inWindow)
	for _, d := range in.Punched {
		in.Days[d] = worktime.CalculateDay(in.Entries[d], in.Profile(d))
	}
	return in
}

// Profile returns the statutory profile for the employee on d.
func (in *Input) Profile(d generic.Date) worktime.Profile {
	return worktime.ProfileFor(in.Employee, d)
}

func (in *Input) HasPunches(d generic.Date) bool {
	_, ok := in.Days[d]
	return ok
}

func (in *Input) Absent(d generic.Date) bool {
	return in.Absences.Covers(d)
}

// PunchedIn returns the punched dates inside p, ascending.
func (in *Input) PunchedIn(p generic.Period) []generic.Date {
	var out []generic.Date
	for _, d := range in.Punched {
		if p.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// countable reports whether d carries a usable net duration for limit and
// average rules.
func (in *Input) countable(d generic.Date) (worktime.DayResult, bool) {
	day, ok := in.Days[d]
	if !ok || day.Indeterminate || in.Absent(d) {
		return day, false
	}
	return day, true
}
