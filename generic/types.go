/*
Package generic provides the primitives of the working-time engine.

PURPOSE:
  This package contains the domain-agnostic value types every other package
  builds on: durations, calendar dates, times of day, periods, decimal
  amounts and the holiday calendar. Nothing in here knows about punches,
  rules or notifications.

KEY CONCEPTS IN THIS FILE (types.go):
  - Duration: A signed span of working time, counted in whole seconds
  - Amount: A decimal quantity with a unit (e.g., 7.5 hours)
  - EmployeeID: Type-safe identifier

DESIGN PRINCIPLES:
  1. Zero value is meaningful: a Duration accumulator starts at 0, never nil
  2. Precision: Durations are integers, hour figures use decimal.Decimal
  3. Type Safety: Durations are not interchangeable with raw numbers

USAGE:
  worked := generic.HoursMinutes(8, 30)
  net := worked.Sub(30 * generic.Minute)
  fmt.Println(net, net.Hours()) // 8h00m 8

SEE ALSO:
  - time.go: Date, TimeOfDay, WorkWeek, HolidayCalendar
  - period.go: Period and granularities
  - errors.go: Sentinel errors
*/
package generic

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DURATION - Working time, whole seconds
// =============================================================================

// Duration is a span of working time in seconds. It may be negative
// (flex deltas), but durations produced by the day calculator never are.
type Duration int64

const (
	Second Duration = 1
	Minute          = 60 * Second
	Hour            = 60 * Minute
)

var secondsPerHour = decimal.NewFromInt(int64(Hour))

// HoursMinutes builds a Duration from an hour and minute count.
func HoursMinutes(h, m int) Duration {
	return Duration(h)*Hour + Duration(m)*Minute
}

// FromStd converts a time.Duration, truncating below one second.
func FromStd(d time.Duration) Duration {
	return Duration(d / time.Second)
}

// DurationFromHours converts a decimal hour figure (e.g. 7.5) to a Duration,
// rounding to the nearest second.
func DurationFromHours(h decimal.Decimal) Duration {
	return Duration(h.Mul(secondsPerHour).Round(0).IntPart())
}

func (d Duration) Std() time.Duration          { return time.Duration(d) * time.Second }
func (d Duration) Add(o Duration) Duration     { return d + o }
func (d Duration) Sub(o Duration) Duration     { return d - o }
func (d Duration) Neg() Duration               { return -d }
func (d Duration) IsZero() bool                { return d == 0 }
func (d Duration) IsNegative() bool            { return d < 0 }
func (d Duration) GreaterThan(o Duration) bool { return d > o }
func (d Duration) LessThan(o Duration) bool    { return d < o }

// ClampZero floors the duration at zero.
func (d Duration) ClampZero() Duration {
	if d < 0 {
		return 0
	}
	return d
}

// DivInt divides by n, truncating toward zero. n <= 0 yields zero.
func (d Duration) DivInt(n int) Duration {
	if n <= 0 {
		return 0
	}
	return d / Duration(n)
}

// Hours returns the duration as decimal hours, exact to the second.
func (d Duration) Hours() decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(secondsPerHour)
}

// Amount returns the duration as an hour Amount rounded to two places.
func (d Duration) Amount() Amount {
	return Amount{Value: d.Hours().Round(2), Unit: UnitHours}
}

// String renders "8h30m", "-1h05m" or "45m". Seconds are only shown when
// present.
func (d Duration) String() string {
	sign := ""
	v := int64(d)
	if v < 0 {
		sign = "-"
		v = -v
	}
	h, m, s := v/3600, (v%3600)/60, v%60
	switch {
	case h == 0 && s == 0:
		return fmt.Sprintf("%s%dm", sign, m)
	case s == 0:
		return fmt.Sprintf("%s%dh%02dm", sign, h, m)
	default:
		return fmt.Sprintf("%s%dh%02dm%02ds", sign, h, m, s)
	}
}

// SumDurations adds up a slice, starting from zero.
func SumDurations(ds ...Duration) Duration {
	var total Duration
	for _, d := range ds {
		total += d
	}
	return total
}

// =============================================================================
// AMOUNT - Decimal quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Add(b Amount) Amount                { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount                { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Neg() Amount                        { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool                   { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                       { return a.Value.IsZero() }
func (a Amount) GreaterThan(b decimal.Decimal) bool { return a.Value.GreaterThan(b) }
func (a Amount) LessThan(b decimal.Decimal) bool    { return a.Value.LessThan(b) }
func (a Amount) String() string                     { return a.Value.StringFixed(2) + " " + string(a.Unit) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
