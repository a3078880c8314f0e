// Package worktime holds the working-time records (employees, punches,
// absences) and the per-day duration calculation built on them.
package worktime

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the subject of every calculation.
type Employee struct {
	ID           generic.EmployeeID
	Name         string
	WeeklyHours  int          // contractual hours: 30, 35 or 40
	BirthDate    generic.Date // zero = unknown, treated as adult
	SupervisorID generic.EmployeeID
	Thresholds   *Thresholds // nil = system defaults
	HoursHistory []WeeklyHoursChange
	PasswordHash string // owned by the identity service, never read here
}

// WeeklyHoursChange records a new contractual weekly-hours value effective
// from ValidFrom.
type WeeklyHoursChange struct {
	ValidFrom generic.Date
	Hours     int
}

var allowedWeeklyHours = map[int]bool{30: true, 35: true, 40: true}

// ValidWeeklyHours reports whether h is one of the contractual options.
func ValidWeeklyHours(h int) bool { return allowedWeeklyHours[h] }

func (e Employee) Validate() error {
	if err := generic.RequireEmployeeID(e.ID); err != nil {
		return err
	}
	if e.Name == "" {
		return &generic.MissingParameterError{Name: "employee name"}
	}
	if !ValidWeeklyHours(e.WeeklyHours) {
		return fmt.Errorf("%w: weekly hours must be 30, 35 or 40, got %d", generic.ErrInvalidInput, e.WeeklyHours)
	}
	for _, c := range e.HoursHistory {
		if !ValidWeeklyHours(c.Hours) {
			return fmt.Errorf("%w: weekly hours history entry %s has %d hours", generic.ErrInvalidInput, c.ValidFrom, c.Hours)
		}
	}
	if e.Thresholds != nil {
		if err := e.Thresholds.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WeeklyHoursOn returns the contractual weekly hours valid on d: the latest
// history entry starting on or before d, else WeeklyHours.
func (e Employee) WeeklyHoursOn(d generic.Date) int {
	hours := e.WeeklyHours
	var best generic.Date
	for _, c := range e.HoursHistory {
		if c.ValidFrom.After(d) {
			continue
		}
		if best.IsZero() || c.ValidFrom.After(best) {
			best, hours = c.ValidFrom, c.Hours
		}
	}
	return hours
}

// IsMinorOn reports whether the employee is under 18 on d.
func (e Employee) IsMinorOn(d generic.Date) bool {
	if e.BirthDate.IsZero() {
		return false
	}
	return generic.YearsOld(e.BirthDate, d) < 18
}

// =============================================================================
// TRAFFIC-LIGHT THRESHOLDS
// =============================================================================

// Thresholds bound the flex balance in hours. Inside [Lower, Upper] the
// balance is green, inside [RedLower, RedUpper] yellow, beyond that red.
type Thresholds struct {
	Lower    decimal.Decimal
	Upper    decimal.Decimal
	RedLower decimal.Decimal
	RedUpper decimal.Decimal
}

// SymmetricThresholds builds ±green / ±red bounds.
func SymmetricThresholds(green, red decimal.Decimal) Thresholds {
	return Thresholds{Lower: green.Neg(), Upper: green, RedLower: red.Neg(), RedUpper: red}
}

// DefaultThresholds are ±5h green and ±10h yellow.
func DefaultThresholds() Thresholds {
	return SymmetricThresholds(decimal.NewFromInt(5), decimal.NewFromInt(10))
}

func (t Thresholds) Validate() error {
	if t.Lower.GreaterThan(t.Upper) {
		return fmt.Errorf("%w: lower threshold %s above upper %s", generic.ErrInvalidInput, t.Lower, t.Upper)
	}
	if t.RedLower.GreaterThan(t.Lower) || t.RedUpper.LessThan(t.Upper) {
		return fmt.Errorf("%w: red bounds must enclose green bounds", generic.ErrInvalidInput)
	}
	return nil
}

// ThresholdsOrDefault returns the employee's thresholds or def.
func (e Employee) ThresholdsOrDefault(def Thresholds) Thresholds {
	if e.Thresholds != nil {
		return *e.Thresholds
	}
	return def
}

// =============================================================================
// TIME ENTRY (punch)
// =============================================================================

// TimeEntry is one clock punch. Punches alternate in/out by chronological
// order. Only Validated may change after creation.
type TimeEntry struct {
	ID         string
	EmployeeID generic.EmployeeID
	Date       generic.Date
	Time       generic.TimeOfDay
	Validated  bool
}

// At is the punch instant.
func (e TimeEntry) At() time.Time { return e.Date.At(e.Time) }

// SortEntries returns a copy ordered by timestamp. Ties keep ID order so
// repeated sorts are stable regardless of insertion order.
func SortEntries(entries []TimeEntry) []TimeEntry {
	out := make([]TimeEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].At(), out[j].At()
		if !ai.Equal(aj) {
			return ai.Before(aj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GroupByDate buckets sorted entries by date. The returned dates are
// ascending.
func GroupByDate(entries []TimeEntry) (map[generic.Date][]TimeEntry, []generic.Date) {
	byDate := make(map[generic.Date][]TimeEntry)
	var dates []generic.Date
	for _, e := range SortEntries(entries) {
		if _, ok := byDate[e.Date]; !ok {
			dates = append(dates, e.Date)
		}
		byDate[e.Date] = append(byDate[e.Date], e)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return byDate, dates
}

// =============================================================================
// ABSENCE
// =============================================================================

type AbsenceType string

const (
	AbsenceVacation AbsenceType = "vacation"
	AbsenceSickness AbsenceType = "sickness"
	AbsenceTraining AbsenceType = "training"
	AbsenceOther    AbsenceType = "other"
)

func ParseAbsenceType(s string) (AbsenceType, error) {
	switch t := AbsenceType(s); t {
	case AbsenceVacation, AbsenceSickness, AbsenceTraining, AbsenceOther:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown absence type %q", generic.ErrInvalidInput, s)
}

// Absence covers the inclusive date range [Start, End].
type Absence struct {
	ID         string
	EmployeeID generic.EmployeeID
	Start      generic.Date
	End        generic.Date
	Type       AbsenceType
}

func (a Absence) Covers(d generic.Date) bool {
	return d.AfterOrEqual(a.Start) && d.BeforeOrEqual(a.End)
}

func (a Absence) Period() generic.Period { return generic.Period{Start: a.Start, End: a.End} }

func (a Absence) Validate() error {
	if err := generic.RequireEmployeeID(a.EmployeeID); err != nil {
		return err
	}
	if err := a.Period().Validate(); err != nil {
		return err
	}
	_, err := ParseAbsenceType(string(a.Type))
	return err
}

// AbsenceIndex answers "is the employee absent on d" for a set of absences.
type AbsenceIndex map[generic.Date]AbsenceType

// IndexAbsences expands absences into per-day entries clipped to within.
func IndexAbsences(absences []Absence, within generic.Period) AbsenceIndex {
	idx := make(AbsenceIndex)
	for _, a := range absences {
		p, ok := a.Period().Intersect(within)
		if !ok {
			continue
		}
		for _, d := range p.Days() {
			idx[d] = a.Type
		}
	}
	return idx
}

func (idx AbsenceIndex) Covers(d generic.Date) bool {
	_, ok := idx[d]
	return ok
}
