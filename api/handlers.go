/*
handlers.go - HTTP API handlers for the working-time engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response and JSON
  serialization, and delegates to engine.Service for every calculation.

ENDPOINTS:
  Employees:
    GET    /api/employees                          List all employees
    POST   /api/employees                          Create employee
    GET    /api/employees/{id}                     Get employee details
    PUT    /api/employees/{id}/thresholds          Set flex thresholds
    PUT    /api/employees/{id}/weekly-hours        Add weekly-hours change

  Punches & absences:
    GET    /api/employees/{id}/punches             Punches in ?from=&to=
    POST   /api/employees/{id}/punches             Record a punch
    POST   /api/employees/{id}/punches/validate    Mark punches validated
    GET    /api/employees/{id}/absences            Absences in ?from=&to=
    POST   /api/employees/{id}/absences            Record an absence

  Engine:
    GET    /api/employees/{id}/days/{date}         Net time of one day
    POST   /api/employees/{id}/compliance          Evaluate a period
    GET    /api/employees/{id}/flex                Flex balance
    GET    /api/employees/{id}/flex/average        Mean daily flex delta
    GET    /api/employees/{id}/notifications       Recorded notifications

  Holidays:
    GET    /api/holidays                           Calendar entries
    POST   /api/holidays                           Add a holiday

  Scenarios:
    GET    /api/scenarios                          List demo scenarios
    POST   /api/scenarios/load                     Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON {error, details} with:
  - 400: Missing parameters, invalid input or period, duplicate employee
  - 404: Unknown employee
  - 500: Storage and internal errors

SECURITY NOTE:
  No authentication or authorization. Identity belongs to the surrounding
  platform.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/engine"
	"github.com/warp/worktime-engine/flextime"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *engine.Service
	Store  worktime.Repository

	// Calendar is the live holiday calendar the engine evaluates against;
	// new holidays are added to it as well as to the store.
	Calendar *generic.Holidays

	// Compliance holds the defaults query parameters override.
	Compliance compliance.Options

	Log logrus.FieldLogger
	Now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. calendar may be nil when holidays are not
// managed through the API.
func NewHandler(eng *engine.Service, store worktime.Repository, calendar *generic.Holidays, log logrus.FieldLogger) *Handler {
	return &Handler{
		Engine:     eng,
		Store:      store,
		Calendar:   calendar,
		Compliance: compliance.DefaultOptions(),
		Log:        log,
		Now:        time.Now,
	}
}

func (h *Handler) today() generic.Date { return generic.DateOf(h.Now()) }

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		h.respondError(w, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = ToEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates or replaces an employee record.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp := worktime.Employee{
		ID:           generic.EmployeeID(req.ID),
		Name:         req.Name,
		WeeklyHours:  req.WeeklyHours,
		BirthDate:    req.BirthDate,
		SupervisorID: generic.EmployeeID(req.SupervisorID),
	}
	if req.Thresholds != nil {
		t := req.Thresholds.toDomain()
		emp.Thresholds = &t
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		h.respondError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, ToEmployeeDTO(emp))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), employeeID(r))
	if err != nil {
		h.respondError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, ToEmployeeDTO(emp))
}

// SetThresholds replaces the employee's flex thresholds.
func (h *Handler) SetThresholds(w http.ResponseWriter, r *http.Request) {
	var req SetThresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var t *worktime.Thresholds
	switch {
	case req.Thresholds != nil:
		v := req.Thresholds.toDomain()
		t = &v
	case req.Green != nil && req.Red != nil:
		v := worktime.SymmetricThresholds(*req.Green, *req.Red)
		t = &v
	case req.Green != nil || req.Red != nil:
		writeError(w, http.StatusBadRequest, "green and red must be given together", nil)
		return
	}

	id := employeeID(r)
	if err := h.Store.SetThresholds(r.Context(), id, t); err != nil {
		h.respondError(w, "Failed to set thresholds", err)
		return
	}
	h.GetEmployee(w, r)
}

// AddWeeklyHours records a change of the contractual weekly hours.
func (h *Handler) AddWeeklyHours(w http.ResponseWriter, r *http.Request) {
	var req WeeklyHoursDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := generic.RequireDate("valid_from", req.ValidFrom); err != nil {
		h.respondError(w, "Invalid weekly-hours change", err)
		return
	}

	change := worktime.WeeklyHoursChange{ValidFrom: req.ValidFrom, Hours: req.Hours}
	if err := h.Store.AddWeeklyHoursChange(r.Context(), employeeID(r), change); err != nil {
		h.respondError(w, "Failed to add weekly-hours change", err)
		return
	}
	h.GetEmployee(w, r)
}

// =============================================================================
// PUNCH & ABSENCE HANDLERS
// =============================================================================

// ListPunches returns punches in ?from=&to= (default: current month).
func (h *Handler) ListPunches(w http.ResponseWriter, r *http.Request) {
	period, err := h.periodParam(r, generic.GranularityMonth.PeriodFor(h.today()))
	if err != nil {
		h.respondError(w, "Invalid period", err)
		return
	}
	id := employeeID(r)
	if _, err := h.Store.GetEmployee(r.Context(), id); err != nil {
		h.respondError(w, "Failed to list punches", err)
		return
	}
	punches, err := h.Store.GetPunches(r.Context(), id, period)
	if err != nil {
		h.respondError(w, "Failed to list punches", err)
		return
	}

	punches = worktime.SortEntries(punches)
	dtos := make([]PunchDTO, len(punches))
	for i, p := range punches {
		dtos[i] = ToPunchDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePunch records one punch. Missing date or time default to now. A punch
// that cuts the rest period short is still recorded and carries a warning.
func (h *Handler) CreatePunch(w http.ResponseWriter, r *http.Request) {
	var req CreatePunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	now := h.Now()
	entry := worktime.TimeEntry{
		EmployeeID: employeeID(r),
		Date:       req.Date,
		Time:       generic.TimeOfDayOf(now),
	}
	if entry.Date.IsZero() {
		entry.Date = generic.DateOf(now)
	}
	if req.Time != "" {
		tod, err := generic.ParseTimeOfDay(req.Time)
		if err != nil {
			h.respondError(w, "Invalid punch time", err)
			return
		}
		entry.Time = tod
	}

	check, err := h.Engine.CheckRestBeforePunch(r.Context(), entry.EmployeeID, entry.At())
	if err != nil {
		h.respondError(w, "Failed to record punch", err)
		return
	}
	saved, err := h.Store.AddPunch(r.Context(), entry)
	if err != nil {
		h.respondError(w, "Failed to record punch", err)
		return
	}
	writeJSON(w, http.StatusCreated, ToCreatePunchResponse(saved, check))
}

// ValidatePunches marks all punches up to and including "through" as
// validated (default: today).
func (h *Handler) ValidatePunches(w http.ResponseWriter, r *http.Request) {
	var req ValidatePunchesRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	if req.Through.IsZero() {
		req.Through = h.today()
	}

	id := employeeID(r)
	if _, err := h.Store.GetEmployee(r.Context(), id); err != nil {
		h.respondError(w, "Failed to validate punches", err)
		return
	}
	n, err := h.Store.MarkValidated(r.Context(), id, req.Through)
	if err != nil {
		h.respondError(w, "Failed to validate punches", err)
		return
	}
	writeJSON(w, http.StatusOK, ValidatePunchesResponse{Validated: n})
}

// ListAbsences returns absences overlapping ?from=&to= (default: current year).
func (h *Handler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	period, err := h.periodParam(r, generic.GranularityYear.PeriodFor(h.today()))
	if err != nil {
		h.respondError(w, "Invalid period", err)
		return
	}
	id := employeeID(r)
	if _, err := h.Store.GetEmployee(r.Context(), id); err != nil {
		h.respondError(w, "Failed to list absences", err)
		return
	}
	absences, err := h.Store.GetAbsences(r.Context(), id, period)
	if err != nil {
		h.respondError(w, "Failed to list absences", err)
		return
	}
	dtos := make([]AbsenceDTO, len(absences))
	for i, a := range absences {
		dtos[i] = ToAbsenceDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAbsence records an absence.
func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	var req CreateAbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	typ, err := worktime.ParseAbsenceType(req.Type)
	if err != nil {
		h.respondError(w, "Invalid absence type", err)
		return
	}

	saved, err := h.Store.AddAbsence(r.Context(), worktime.Absence{
		EmployeeID: employeeID(r),
		Start:      req.Start,
		End:        req.End,
		Type:       typ,
	})
	if err != nil {
		h.respondError(w, "Failed to record absence", err)
		return
	}
	writeJSON(w, http.StatusCreated, ToAbsenceDTO(saved))
}

// =============================================================================
// ENGINE HANDLERS
// =============================================================================

// GetDay returns the duration breakdown of one employee-day.
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, err := generic.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.respondError(w, "Invalid date", err)
		return
	}
	id := employeeID(r)
	res, err := h.Engine.ComputeDay(r.Context(), id, date)
	if err != nil {
		h.respondError(w, "Failed to compute day", err)
		return
	}
	writeJSON(w, http.StatusOK, ToDayDTO(id, res))
}

// EvaluateCompliance runs the rule set over ?from=&to= (default: the last
// seven days) and records new notifications unless dry_run is set.
func (h *Handler) EvaluateCompliance(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	period, err := h.periodParam(r, generic.Period{Start: today.AddDays(-7), End: today.AddDays(-1)})
	if err != nil {
		h.respondError(w, "Invalid period", err)
		return
	}
	opts := engine.EvalOptions{Options: h.Compliance}
	if opts.IncludeMissingDays, err = boolParam(r, "include_missing_days", opts.IncludeMissingDays); err != nil {
		h.respondError(w, "Invalid include_missing_days", err)
		return
	}
	if opts.DryRun, err = boolParam(r, "dry_run", false); err != nil {
		h.respondError(w, "Invalid dry_run", err)
		return
	}

	id := employeeID(r)
	findings, err := h.Engine.EvaluateCompliance(r.Context(), id, period, opts)
	if err != nil {
		h.respondError(w, "Failed to evaluate compliance", err)
		return
	}

	resp := ComplianceResponse{
		EmployeeID: string(id),
		Period:     PeriodDTO{Start: period.Start, End: period.End},
		DryRun:     opts.DryRun,
		Findings:   make([]FindingDTO, len(findings)),
	}
	for i, f := range findings {
		resp.Findings[i] = ToFindingDTO(f)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFlexBalance returns the flex balance. Either ?from=&to= or
// ?granularity=&as_of= select the period.
func (h *Handler) GetFlexBalance(w http.ResponseWriter, r *http.Request) {
	q := flextime.Query{Granularity: generic.Granularity(r.URL.Query().Get("granularity"))}
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, err := generic.ParseDate(v)
		if err != nil {
			h.respondError(w, "Invalid as_of", err)
			return
		}
		q.AsOf = asOf
	}
	if r.URL.Query().Get("from") != "" || r.URL.Query().Get("to") != "" {
		p, err := h.periodParam(r, generic.Period{})
		if err != nil {
			h.respondError(w, "Invalid period", err)
			return
		}
		q.Period = &p
	}

	bal, err := h.Engine.GetFlexBalance(r.Context(), employeeID(r), q)
	if err != nil {
		h.respondError(w, "Failed to compute flex balance", err)
		return
	}
	writeJSON(w, http.StatusOK, ToFlexBalanceDTO(bal))
}

// GetFlexAverage returns the mean daily flex delta over ?from=&to=, by
// default the current month to date.
func (h *Handler) GetFlexAverage(w http.ResponseWriter, r *http.Request) {
	p, err := h.periodParam(r, generic.GranularityMonth.ToDate(h.today()))
	if err != nil {
		h.respondError(w, "Invalid period", err)
		return
	}

	av, err := h.Engine.GetFlexAverage(r.Context(), employeeID(r), p)
	if err != nil {
		h.respondError(w, "Failed to compute flex average", err)
		return
	}
	writeJSON(w, http.StatusOK, ToFlexAverageDTO(av))
}

// ListNotifications returns the notifications recorded for the employee.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ns, err := h.Engine.ListNotifications(r.Context(), employeeID(r))
	if err != nil {
		h.respondError(w, "Failed to list notifications", err)
		return
	}
	dtos := make([]NotificationDTO, len(ns))
	for i, n := range ns {
		dtos[i] = ToNotificationDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the fixed national holidays plus stored ones.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	stored, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		h.respondError(w, "Failed to list holidays", err)
		return
	}
	all := append(generic.GermanFixedHolidays(), stored...)
	dtos := make([]HolidayDTO, len(all))
	for i, hol := range all {
		dtos[i] = HolidayDTO{ID: hol.ID, Date: hol.Date, Name: hol.Name, Recurring: hol.Recurring}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday stores a holiday and makes it effective immediately.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := generic.RequireDate("date", req.Date); err != nil {
		h.respondError(w, "Invalid holiday", err)
		return
	}
	if req.Name == "" {
		h.respondError(w, "Invalid holiday", &generic.MissingParameterError{Name: "name"})
		return
	}

	hol := generic.Holiday{ID: req.ID, Date: req.Date, Name: req.Name, Recurring: req.Recurring}
	if err := h.Store.SaveHoliday(r.Context(), hol); err != nil {
		h.respondError(w, "Failed to save holiday", err)
		return
	}
	if h.Calendar != nil {
		h.Calendar.Add(hol)
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// HELPERS
// =============================================================================

func employeeID(r *http.Request) generic.EmployeeID {
	return generic.EmployeeID(chi.URLParam(r, "id"))
}

// periodParam reads ?from=&to=. A missing bound falls back to def's bound.
func (h *Handler) periodParam(r *http.Request, def generic.Period) (generic.Period, error) {
	p := def
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := generic.ParseDate(v)
		if err != nil {
			return generic.Period{}, err
		}
		p.Start = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := generic.ParseDate(v)
		if err != nil {
			return generic.Period{}, err
		}
		p.End = d
	}
	return p, p.Validate()
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s: %v", generic.ErrInvalidInput, name, err)
	}
	return b, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status its kind maps to. Server-side
// failures are logged; client errors are only returned.
func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError && h.Log != nil {
		h.Log.WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
