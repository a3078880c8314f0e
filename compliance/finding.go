// Package compliance evaluates working-time law over one employee and one
// period. Every rule is a pure function of a normalized Input; violations
// are returned as Findings, never as errors.
package compliance

import (
	"fmt"
	"sort"

	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// VIOLATION CODES
// =============================================================================

// Code identifies a kind of violation. The numeric values are persisted with
// notifications and must not be renumbered.
type Code int

const (
	CodeMissingWorkday    Code = 1
	CodeMissingPunch      Code = 2
	CodeRestPeriod        Code = 3
	CodeAverageExceeded   Code = 4
	CodeMaxDailyExceeded  Code = 5
	CodeSundayHolidayWork Code = 6
	CodeMinorWeeklyHours  Code = 7
	CodeMinorWorkdays     Code = 8
	CodeMinorWorkWindow   Code = 9
)

var codeNames = map[Code]string{
	CodeMissingWorkday:    "missing_workday",
	CodeMissingPunch:      "missing_punch",
	CodeRestPeriod:        "rest_period",
	CodeAverageExceeded:   "average_exceeded",
	CodeMaxDailyExceeded:  "max_daily_exceeded",
	CodeSundayHolidayWork: "sunday_holiday_work",
	CodeMinorWeeklyHours:  "minor_weekly_hours",
	CodeMinorWorkdays:     "minor_workdays",
	CodeMinorWorkWindow:   "minor_work_window",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("code_%d", int(c))
}

// Known reports whether c is a defined code.
func (c Code) Known() bool {
	_, ok := codeNames[c]
	return ok
}

// =============================================================================
// FINDING
// =============================================================================

// Finding is one detected violation. Observed and Limit are filled when the
// rule measures a duration.
type Finding struct {
	EmployeeID generic.EmployeeID
	Code       Code
	Date       generic.Date
	Observed   generic.Duration
	Limit      generic.Duration
	Detail     string
}

// SortFindings orders by date, then code, then detail.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		if !fs[i].Date.Equal(fs[j].Date) {
			return fs[i].Date.Before(fs[j].Date)
		}
		if fs[i].Code != fs[j].Code {
			return fs[i].Code < fs[j].Code
		}
		return fs[i].Detail < fs[j].Detail
	})
}
