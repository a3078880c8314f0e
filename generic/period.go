package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range every evaluation runs over
// =============================================================================

// Period defines the inclusive range [Start, End] of an evaluation or
// balance query.
type Period struct {
	Start Date
	End   Date
}

func NewPeriod(start, end Date) (Period, error) {
	p := Period{Start: start, End: end}
	return p, p.Validate()
}

// Validate rejects zero bounds and reversed ranges.
func (p Period) Validate() error {
	if p.Start.IsZero() {
		return &MissingParameterError{Name: "period start"}
	}
	if p.End.IsZero() {
		return &MissingParameterError{Name: "period end"}
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for cur := p.Start; cur.BeforeOrEqual(p.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

// Len is the number of days in the period.
func (p Period) Len() int { return DaysBetween(p.Start, p.End) + 1 }

// Union returns the smallest period covering both.
func (p Period) Union(o Period) Period {
	out := p
	if o.Start.Before(out.Start) {
		out.Start = o.Start
	}
	if o.End.After(out.End) {
		out.End = o.End
	}
	return out
}

// Intersect clips p to o. ok is false when they do not overlap.
func (p Period) Intersect(o Period) (Period, bool) {
	out := p
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	return out, !out.End.Before(out.Start)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Trailing returns the window of the given number of months ending on end,
// e.g. Trailing(2025-06-30, 6) = [2025-01-01, 2025-06-30]. A start that
// falls past the end of a shorter month is clamped to that month's last day.
func Trailing(end Date, months int) Period {
	return Period{Start: end.AddDays(1).AddMonths(-months), End: end}
}

// =============================================================================
// GRANULARITY - Month / quarter / year balances
// =============================================================================

type Granularity string

const (
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case GranularityMonth, GranularityQuarter, GranularityYear:
		return g, nil
	case "":
		return GranularityMonth, nil
	default:
		return "", fmt.Errorf("%w: unknown granularity %q", ErrInvalidInput, s)
	}
}

// PeriodFor returns the full calendar month/quarter/year containing date.
func (g Granularity) PeriodFor(date Date) Period {
	switch g {
	case GranularityQuarter:
		first := time.Month((int(date.Month())-1)/3*3 + 1)
		start := StartOfMonth(date.Year(), first)
		return Period{Start: start, End: start.AddMonths(3).AddDays(-1)}
	case GranularityYear:
		return Period{Start: NewDate(date.Year(), time.January, 1), End: NewDate(date.Year(), time.December, 31)}
	default:
		return Period{Start: StartOfMonth(date.Year(), date.Month()), End: EndOfMonth(date.Year(), date.Month())}
	}
}

// ToDate returns the part of g's period containing asOf that has elapsed,
// i.e. [start of period, asOf].
func (g Granularity) ToDate(asOf Date) Period {
	p := g.PeriodFor(asOf)
	p.End = asOf
	return p
}

// Months splits the period into calendar-month pieces, clipped to p.
func (p Period) Months() []Period {
	var out []Period
	for cur := p.Start; cur.BeforeOrEqual(p.End); {
		m := GranularityMonth.PeriodFor(cur)
		piece, _ := m.Intersect(p)
		out = append(out, piece)
		cur = m.End.AddDays(1)
	}
	return out
}
