/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the store with realistic
  punch data. Each scenario creates one employee and the punches and
  absences that demonstrate a specific part of the engine.

AVAILABLE SCENARIOS:
  regular-week:   Compliant Mon-Fri week, balanced flex
  violations:     Long day, short rest, odd punches, missing day, Sunday work
  youth:          Minor working six days, past 20:00 and over 40 hours
  flex-overtime:  Part-time employee building up a red flex balance

HOW SCENARIOS WORK:
  Dates are relative to "today", so a scenario always lands in the recent
  past. Loading a scenario twice fails with a duplicate-employee error;
  scenarios never delete data.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "violations"}

USAGE VIA CLI:
  zeitctl seed violations

SEE ALSO:
  - handlers.go: Handler
  - cmd/zeitctl: seed command
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, w worktime.Writer, today generic.Date) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "regular-week",
			Name:        "Regular Week",
			Description: "Full-time employee with a compliant Mon-Fri week last week",
		},
		load: loadRegularWeek,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "violations",
			Name:        "Violations",
			Description: "Long day, short rest, missing punch, missing day and Sunday work last week",
		},
		load: loadViolations,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "youth",
			Name:        "Youth Employee",
			Description: "16-year-old working six days last week, partly after 20:00",
		},
		load: loadYouth,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "flex-overtime",
			Name:        "Flex Overtime",
			Description: "35h employee working 8h30 net every day of the last four weeks",
		},
		load: loadFlexOvertime,
	},
}

// Scenarios lists the available demo scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	return out
}

// SeedScenario loads the scenario with the given ID into w.
func SeedScenario(ctx context.Context, w worktime.Writer, id string, today generic.Date) error {
	for _, s := range scenarios {
		if s.ID == id {
			return s.load(ctx, w, today)
		}
	}
	return fmt.Errorf("%w: unknown scenario %q", generic.ErrInvalidInput, id)
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s.ScenarioDTO)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := SeedScenario(r.Context(), h.Store, req.ScenarioID, h.today()); err != nil {
		h.respondError(w, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// shift is one punched day: pairs of "HH:MM" clock times, in punch order.
type shift struct {
	day     generic.Date
	punches []string
}

func seed(ctx context.Context, w worktime.Writer, emp worktime.Employee, shifts []shift) error {
	existing, err := w.ListEmployees(ctx)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.ID == emp.ID {
			return fmt.Errorf("%w: %s already loaded", generic.ErrDuplicateEmployee, emp.ID)
		}
	}
	if err := w.SaveEmployee(ctx, emp); err != nil {
		return fmt.Errorf("save employee %s: %w", emp.ID, err)
	}
	for _, s := range shifts {
		for _, p := range s.punches {
			entry := worktime.TimeEntry{
				EmployeeID: emp.ID,
				Date:       s.day,
				Time:       generic.MustParseTimeOfDay(p),
			}
			if _, err := w.AddPunch(ctx, entry); err != nil {
				return fmt.Errorf("add punch %s %s: %w", s.day, p, err)
			}
		}
	}
	return nil
}

// lastWeek returns the Monday of the week before today's week.
func lastWeek(today generic.Date) generic.Date {
	return today.StartOfWeek().AddDays(-7)
}

func loadRegularWeek(ctx context.Context, w worktime.Writer, today generic.Date) error {
	monday := lastWeek(today)
	var shifts []shift
	for i := 0; i < 5; i++ {
		shifts = append(shifts, shift{monday.AddDays(i), []string{"08:00", "12:00", "12:30", "17:00"}})
	}
	emp := worktime.Employee{ID: "demo-anna", Name: "Anna Regular", WeeklyHours: 40}
	return seed(ctx, w, emp, shifts)
}

func loadViolations(ctx context.Context, w worktime.Writer, today generic.Date) error {
	monday := lastWeek(today)
	shifts := []shift{
		// 11h45 net, over 10h
		{monday, []string{"07:00", "19:30"}},
		// 10h30 rest after Monday
		{monday.AddDays(1), []string{"06:00", "14:30"}},
		// missing punch
		{monday.AddDays(2), []string{"08:00"}},
		// no punches on Thursday
		{monday.AddDays(4), []string{"08:00", "16:30"}},
		// Sunday
		{monday.AddDays(6), []string{"10:00", "14:00"}},
	}
	emp := worktime.Employee{ID: "demo-ben", Name: "Ben Busy", WeeklyHours: 40}
	return seed(ctx, w, emp, shifts)
}

func loadYouth(ctx context.Context, w worktime.Writer, today generic.Date) error {
	monday := lastWeek(today)
	var shifts []shift
	for i := 0; i < 5; i++ {
		shifts = append(shifts, shift{monday.AddDays(i), []string{"07:00", "16:00"}})
	}
	shifts = append(shifts, shift{monday.AddDays(5), []string{"14:00", "21:00"}})

	emp := worktime.Employee{
		ID:          "demo-carla",
		Name:        "Carla Apprentice",
		WeeklyHours: 40,
		BirthDate:   today.AddYears(-16),
	}
	return seed(ctx, w, emp, shifts)
}

func loadFlexOvertime(ctx context.Context, w worktime.Writer, today generic.Date) error {
	var shifts []shift
	for d := today.AddDays(-28); d.Before(today); d = d.AddDays(1) {
		if !generic.DefaultWorkWeek().Contains(d.Weekday()) {
			continue
		}
		shifts = append(shifts, shift{d, []string{"08:00", "17:00"}})
	}
	emp := worktime.Employee{ID: "demo-dana", Name: "Dana Overtime", WeeklyHours: 35}
	if err := seed(ctx, w, emp, shifts); err != nil {
		return err
	}
	_, err := w.AddAbsence(ctx, worktime.Absence{
		EmployeeID: emp.ID,
		Start:      today.AddDays(7),
		End:        today.AddDays(11),
		Type:       worktime.AbsenceVacation,
	})
	return err
}
