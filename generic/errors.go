/*
errors.go - Centralized error types for the working-time engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Request errors - missing parameters, malformed periods (fail fast)
  2. Lookup errors - unknown employee
  3. Store errors - natural-key clashes on notifications
  4. Programming errors - unknown violation codes

  Compliance findings are NOT errors. They are returned as data.
  An indeterminate day is NOT an error either, see worktime.DayResult.

USAGE:
  if errors.Is(err, generic.ErrDuplicateNotification) {
      // already recorded, nothing to do
  }

SEE ALSO:
  - notify/dedup.go: Swallows ErrDuplicateNotification
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingParameter is returned when a required input is empty.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidInput is returned for malformed records (bad weekly hours,
	// unknown absence type, inconsistent thresholds).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateNotification is returned by notification stores when the
	// (employee, code, date) key already exists.
	ErrDuplicateNotification = errors.New("duplicate notification")

	// ErrDuplicateEmployee is returned when an employee ID or name is taken.
	ErrDuplicateEmployee = errors.New("duplicate employee")

	// ErrUnknownCode is returned when no message template exists for a
	// violation code.
	ErrUnknownCode = errors.New("unknown violation code")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingParameterError names the parameter that was missing.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter: %s", e.Name)
}

func (e *MissingParameterError) Unwrap() error {
	return ErrMissingParameter
}

// EmployeeNotFoundError carries the ID that failed to resolve.
type EmployeeNotFoundError struct {
	ID EmployeeID
}

func (e *EmployeeNotFoundError) Error() string {
	return fmt.Sprintf("employee not found: %s", e.ID)
}

func (e *EmployeeNotFoundError) Unwrap() error {
	return ErrEmployeeNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingParameter) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicateEmployee)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

// RequireEmployeeID fails fast on an empty ID.
func RequireEmployeeID(id EmployeeID) error {
	if id == "" {
		return &MissingParameterError{Name: "employee id"}
	}
	return nil
}

// RequireDate fails fast on a zero date.
func RequireDate(name string, d Date) error {
	if d.IsZero() {
		return &MissingParameterError{Name: name}
	}
	return nil
}
