package worktime

import "github.com/warp/worktime-engine/generic"

// =============================================================================
// PROFILE - Statutory limits that apply to one employee-day
// =============================================================================

// BreakStep deducts Deduct once gross time exceeds Above.
type BreakStep struct {
	Above  generic.Duration
	Deduct generic.Duration
}

// Profile bundles the legal limits for a class of employee.
type Profile struct {
	Name        string
	Breaks      []BreakStep // ascending by Above
	MaxDaily    generic.Duration
	MinRest     generic.Duration
	WindowStart generic.TimeOfDay
	WindowEnd   generic.TimeOfDay

	// Zero means no weekly limit.
	MaxWeekly          generic.Duration
	MaxWorkdaysPerWeek int
}

// Adult carries the ArbZG limits.
var Adult = Profile{
	Name: "adult",
	Breaks: []BreakStep{
		{Above: 6 * generic.Hour, Deduct: 30 * generic.Minute},
		{Above: 9 * generic.Hour, Deduct: 45 * generic.Minute},
	},
	MaxDaily:    10 * generic.Hour,
	MinRest:     11 * generic.Hour,
	WindowStart: generic.NewTimeOfDay(6, 0),
	WindowEnd:   generic.NewTimeOfDay(22, 0),
}

// Minor carries the JArbSchG limits for employees under 18.
var Minor = Profile{
	Name: "minor",
	Breaks: []BreakStep{
		{Above: generic.HoursMinutes(4, 30), Deduct: 30 * generic.Minute},
		{Above: 6 * generic.Hour, Deduct: 60 * generic.Minute},
	},
	MaxDaily:           8 * generic.Hour,
	MinRest:            12 * generic.Hour,
	WindowStart:        generic.NewTimeOfDay(6, 0),
	WindowEnd:          generic.NewTimeOfDay(20, 0),
	MaxWeekly:          40 * generic.Hour,
	MaxWorkdaysPerWeek: 5,
}

// ProfileFor picks the profile applying to e on d.
func ProfileFor(e Employee, d generic.Date) Profile {
	if e.IsMinorOn(d) {
		return Minor
	}
	return Adult
}

// BreakFor returns the statutory deduction for a gross duration. Steps use a
// strict greater-than: exactly 6h gross keeps its full 6h.
func (p Profile) BreakFor(gross generic.Duration) generic.Duration {
	var deduct generic.Duration
	for _, step := range p.Breaks {
		if gross > step.Above {
			deduct = step.Deduct
		}
	}
	return deduct
}

// InWindow reports whether tod lies inside [WindowStart, WindowEnd].
func (p Profile) InWindow(tod generic.TimeOfDay) bool {
	return tod >= p.WindowStart && tod <= p.WindowEnd
}
