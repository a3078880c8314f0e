/*
Package factory provides JSON to Go rule-set conversion.

PURPOSE:
  Converts a JSON rule-set document into a compliance.Checker. Which rules
  run, and the parameters of the parameterized ones, can then be changed
  without code changes.

JSON SCHEMA:
  {
    "name": "arbzg-default",
    "rules": [
      {"rule": "missing_workday"},
      {"rule": "punch_parity"},
      {"rule": "rest_period"},
      {"rule": "rolling_average", "window_months": 6, "limit_hours": 8},
      {"rule": "max_daily"},
      {"rule": "sunday_holiday"}
    ]
  }

KEY FEATURES:
  - Unknown rule names are rejected
  - A rule may appear once
  - Omitted parameters fall back to the statutory defaults

USAGE:
  checker, err := factory.ParseRuleSet(jsonString)
  svc := engine.New(repo, notes, engine.WithChecker(checker))

SEE ALSO:
  - compliance/checker.go: Checker and DefaultRules
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleSetJSON is the JSON representation of a rule set.
type RuleSetJSON struct {
	Name  string     `json:"name,omitempty"`
	Rules []RuleJSON `json:"rules"`
}

// RuleJSON selects one rule. Parameters apply to rolling_average only.
type RuleJSON struct {
	Rule         string           `json:"rule"`
	WindowMonths int              `json:"window_months,omitempty"`
	LimitHours   *decimal.Decimal `json:"limit_hours,omitempty"`
}

// DefaultRuleSetJSON reproduces compliance.DefaultRules.
const DefaultRuleSetJSON = `{
  "name": "arbzg-default",
  "rules": [
    {"rule": "missing_workday"},
    {"rule": "punch_parity"},
    {"rule": "rest_period"},
    {"rule": "rolling_average", "window_months": 6, "limit_hours": 8},
    {"rule": "max_daily"},
    {"rule": "sunday_holiday"},
    {"rule": "minor_weekly_hours"},
    {"rule": "minor_workdays"},
    {"rule": "minor_work_window"}
  ]
}`

// =============================================================================
// PARSING
// =============================================================================

// ParseRuleSet builds a checker from a JSON document.
func ParseRuleSet(jsonStr string) (*compliance.Checker, error) {
	var doc RuleSetJSON
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("invalid rule set JSON: %w", err)
	}
	return BuildRuleSet(doc)
}

// LoadRuleSet reads and parses a rule-set file.
func LoadRuleSet(path string) (*compliance.Checker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	return ParseRuleSet(string(data))
}

// BuildRuleSet converts a decoded document.
func BuildRuleSet(doc RuleSetJSON) (*compliance.Checker, error) {
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("%w: rule set has no rules", generic.ErrInvalidInput)
	}
	seen := make(map[string]bool)
	rules := make([]compliance.Rule, 0, len(doc.Rules))
	for _, rj := range doc.Rules {
		if seen[rj.Rule] {
			return nil, fmt.Errorf("%w: rule %q listed twice", generic.ErrInvalidInput, rj.Rule)
		}
		seen[rj.Rule] = true

		r, err := buildRule(rj)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return compliance.NewChecker(rules...), nil
}

func buildRule(rj RuleJSON) (compliance.Rule, error) {
	switch rj.Rule {
	case "missing_workday":
		return compliance.MissingWorkdayRule{}, nil
	case "punch_parity":
		return compliance.PunchParityRule{}, nil
	case "rest_period":
		return compliance.RestPeriodRule{}, nil
	case "max_daily":
		return compliance.MaxDailyRule{}, nil
	case "rolling_average":
		r := compliance.DefaultRollingAverage()
		if rj.WindowMonths < 0 {
			return nil, fmt.Errorf("%w: window_months must be positive", generic.ErrInvalidInput)
		}
		if rj.WindowMonths > 0 {
			r.Months = rj.WindowMonths
		}
		if rj.LimitHours != nil {
			if !rj.LimitHours.IsPositive() {
				return nil, fmt.Errorf("%w: limit_hours must be positive", generic.ErrInvalidInput)
			}
			r.Limit = generic.DurationFromHours(*rj.LimitHours)
		}
		return r, nil
	case "sunday_holiday":
		return compliance.SundayHolidayRule{}, nil
	case "minor_weekly_hours":
		return compliance.MinorWeeklyHoursRule{}, nil
	case "minor_workdays":
		return compliance.MinorWorkdaysRule{}, nil
	case "minor_work_window":
		return compliance.MinorWorkWindowRule{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rule %q", generic.ErrInvalidInput, rj.Rule)
	}
}
