package compliance

import (
	"github.com/warp/worktime-engine/generic"
)

// Checker runs a fixed set of rules. It holds no mutable state and may be
// shared between goroutines.
type Checker struct {
	rules []Rule
}

func NewChecker(rules ...Rule) *Checker {
	return &Checker{rules: rules}
}

// DefaultRules is the full rule set. The youth rules only fire for employees
// under 18.
func DefaultRules() []Rule {
	return []Rule{
		MissingWorkdayRule{},
		PunchParityRule{},
		RestPeriodRule{},
		DefaultRollingAverage(),
		MaxDailyRule{},
		SundayHolidayRule{},
		MinorWeeklyHoursRule{},
		MinorWorkdaysRule{},
		MinorWorkWindowRule{},
	}
}

func DefaultChecker() *Checker { return NewChecker(DefaultRules()...) }

func (c *Checker) Rules() []Rule { return c.rules }

// Window returns the date range that must be loaded to evaluate p.
func (c *Checker) Window(p generic.Period) generic.Period {
	w := p
	for _, r := range c.rules {
		if lb, ok := r.(Lookback); ok {
			w = w.Union(lb.Window(p))
		}
	}
	return w
}

// Evaluate runs every rule and returns the findings ordered by date and
// code, stamped with the employee ID.
func (c *Checker) Evaluate(in *Input) []Finding {
	var out []Finding
	for _, r := range c.rules {
		for _, f := range r.Evaluate(in) {
			f.EmployeeID = in.Employee.ID
			out = append(out, f)
		}
	}
	SortFindings(out)
	return out
}
