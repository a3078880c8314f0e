/*
store.go - Repository interfaces the engine reads working-time data through

PURPOSE:
  Defines the boundary between the calculation engine and whatever keeps
  the records. The engine only reads punches, absences and employees here;
  notifications go through notify.Store.

KEY INTERFACES:
  Reader:       The three read operations the engine needs
  Snapshotter:  Optional, runs several reads against one consistent view
  Writer:       Admin-side writes used by the API and CLI adapters
  Repository:   Reader + Writer

WRITE CONTRACT:
  - Punches and absences are insert-only.
  - MarkValidated is the single mutation and only flips false -> true.
  - Employees are never deleted.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - worktime/store/memory.go: In-memory for testing

SEE ALSO:
  - engine/engine.go: Consumes Reader / Snapshotter
*/
package worktime

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// READER - What the engine consumes
// =============================================================================

type Reader interface {
	// GetEmployee returns ErrEmployeeNotFound (wrapped) for unknown IDs.
	GetEmployee(ctx context.Context, id generic.EmployeeID) (Employee, error)

	// GetPunches returns all punches dated within the period, in no
	// particular order.
	GetPunches(ctx context.Context, id generic.EmployeeID, period generic.Period) ([]TimeEntry, error)

	// GetAbsences returns all absences overlapping the period.
	GetAbsences(ctx context.Context, id generic.EmployeeID, period generic.Period) ([]Absence, error)
}

// Snapshotter runs fn against a consistent view, so punches and absences of
// one evaluation come from the same point in time.
type Snapshotter interface {
	Snapshot(ctx context.Context, fn func(Reader) error) error
}

// HolidaySource lists stored public holidays.
type HolidaySource interface {
	ListHolidays(ctx context.Context) ([]generic.Holiday, error)
}

// =============================================================================
// WRITER - Admin-side writes (collaborator surface)
// =============================================================================

type Writer interface {
	SaveEmployee(ctx context.Context, e Employee) error
	ListEmployees(ctx context.Context) ([]Employee, error)
	SetThresholds(ctx context.Context, id generic.EmployeeID, t *Thresholds) error
	AddWeeklyHoursChange(ctx context.Context, id generic.EmployeeID, c WeeklyHoursChange) error

	AddPunch(ctx context.Context, e TimeEntry) (TimeEntry, error)
	MarkValidated(ctx context.Context, id generic.EmployeeID, through generic.Date) (int, error)
	AddAbsence(ctx context.Context, a Absence) (Absence, error)

	SaveHoliday(ctx context.Context, h generic.Holiday) error
}

// Repository is everything an admin adapter needs.
type Repository interface {
	Reader
	Writer
	HolidaySource
}

// LoadCalendar merges the fixed German holidays with stored ones.
func LoadCalendar(ctx context.Context, src HolidaySource) (*generic.Holidays, error) {
	cal := generic.NewHolidays(generic.GermanFixedHolidays()...)
	if src == nil {
		return cal, nil
	}
	stored, err := src.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	for _, h := range stored {
		cal.Add(h)
	}
	return cal, nil
}

// ThresholdsFromHours is a convenience for adapters reading float hours.
func ThresholdsFromHours(green, red float64) Thresholds {
	return SymmetricThresholds(decimal.NewFromFloat(green), decimal.NewFromFloat(red))
}
