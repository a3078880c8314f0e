/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DURATIONS:
  Durations are sent twice: as seconds (exact) and as a display string
  ("8h30m"). Hour figures are decimals rounded to two places.

VALIDATION:
  Validation is done in handlers and the domain, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/engine"
	"github.com/warp/worktime-engine/flextime"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/worktime"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	WeeklyHours  int              `json:"weekly_hours"`
	BirthDate    generic.Date     `json:"birth_date,omitempty"`
	SupervisorID string           `json:"supervisor_id,omitempty"`
	Thresholds   *ThresholdsDTO   `json:"thresholds,omitempty"`
	HoursHistory []WeeklyHoursDTO `json:"hours_history,omitempty"`
}

type CreateEmployeeRequest struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	WeeklyHours  int            `json:"weekly_hours"`
	BirthDate    generic.Date   `json:"birth_date"`
	SupervisorID string         `json:"supervisor_id"`
	Thresholds   *ThresholdsDTO `json:"thresholds"`
}

type ThresholdsDTO struct {
	Lower    decimal.Decimal `json:"lower"`
	Upper    decimal.Decimal `json:"upper"`
	RedLower decimal.Decimal `json:"red_lower"`
	RedUpper decimal.Decimal `json:"red_upper"`
}

// SetThresholdsRequest sets either explicit bounds or symmetric green/red
// hours. Both empty restores the system defaults.
type SetThresholdsRequest struct {
	Thresholds *ThresholdsDTO   `json:"thresholds"`
	Green      *decimal.Decimal `json:"green"`
	Red        *decimal.Decimal `json:"red"`
}

type WeeklyHoursDTO struct {
	ValidFrom generic.Date `json:"valid_from"`
	Hours     int          `json:"hours"`
}

func ToEmployeeDTO(e worktime.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:           string(e.ID),
		Name:         e.Name,
		WeeklyHours:  e.WeeklyHours,
		BirthDate:    e.BirthDate,
		SupervisorID: string(e.SupervisorID),
	}
	if e.Thresholds != nil {
		t := toThresholdsDTO(*e.Thresholds)
		dto.Thresholds = &t
	}
	for _, c := range e.HoursHistory {
		dto.HoursHistory = append(dto.HoursHistory, WeeklyHoursDTO{ValidFrom: c.ValidFrom, Hours: c.Hours})
	}
	return dto
}

func toThresholdsDTO(t worktime.Thresholds) ThresholdsDTO {
	return ThresholdsDTO{Lower: t.Lower, Upper: t.Upper, RedLower: t.RedLower, RedUpper: t.RedUpper}
}

func (t ThresholdsDTO) toDomain() worktime.Thresholds {
	return worktime.Thresholds{Lower: t.Lower, Upper: t.Upper, RedLower: t.RedLower, RedUpper: t.RedUpper}
}

// =============================================================================
// PUNCHES & ABSENCES
// =============================================================================

type PunchDTO struct {
	ID        string       `json:"id"`
	Date      generic.Date `json:"date"`
	Time      string       `json:"time"`
	Validated bool         `json:"validated"`
}

// CreatePunchRequest records a punch. Empty date and time mean "now".
type CreatePunchRequest struct {
	Date generic.Date `json:"date"`
	Time string       `json:"time"`
}

type ValidatePunchesRequest struct {
	Through generic.Date `json:"through"`
}

type ValidatePunchesResponse struct {
	Validated int `json:"validated"`
}

func ToPunchDTO(e worktime.TimeEntry) PunchDTO {
	return PunchDTO{ID: e.ID, Date: e.Date, Time: e.Time.String(), Validated: e.Validated}
}

// CreatePunchResponse is the recorded punch plus a warning when it cut the
// rest period short. The punch is recorded either way.
type CreatePunchResponse struct {
	PunchDTO
	Warning *RestWarningDTO `json:"warning,omitempty"`
}

type RestWarningDTO struct {
	Message   string      `json:"message"`
	Required  DurationDTO `json:"required"`
	Actual    DurationDTO `json:"actual"`
	LastPunch time.Time   `json:"last_punch"`
}

func ToCreatePunchResponse(e worktime.TimeEntry, check engine.RestCheck) CreatePunchResponse {
	resp := CreatePunchResponse{PunchDTO: ToPunchDTO(e)}
	if check.Violated {
		resp.Warning = &RestWarningDTO{
			Message: fmt.Sprintf("The rest period since %s is %s, below the required %s.",
				check.LastPunch.Format("2006-01-02 15:04"), check.Actual, check.Required),
			Required:  toDurationDTO(check.Required),
			Actual:    toDurationDTO(check.Actual),
			LastPunch: check.LastPunch,
		}
	}
	return resp
}

type AbsenceDTO struct {
	ID    string       `json:"id"`
	Start generic.Date `json:"start"`
	End   generic.Date `json:"end"`
	Type  string       `json:"type"`
}

type CreateAbsenceRequest struct {
	Start generic.Date `json:"start"`
	End   generic.Date `json:"end"`
	Type  string       `json:"type"`
}

func ToAbsenceDTO(a worktime.Absence) AbsenceDTO {
	return AbsenceDTO{ID: a.ID, Start: a.Start, End: a.End, Type: string(a.Type)}
}

// =============================================================================
// DAY
// =============================================================================

type DurationDTO struct {
	Seconds int64           `json:"seconds"`
	Hours   decimal.Decimal `json:"hours"`
	Display string          `json:"display"`
}

func toDurationDTO(d generic.Duration) DurationDTO {
	return DurationDTO{Seconds: int64(d), Hours: d.Hours().Round(2), Display: d.String()}
}

type IntervalDTO struct {
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
	Net   DurationDTO `json:"duration"`
}

type DayDTO struct {
	EmployeeID    string        `json:"employee_id"`
	Date          generic.Date  `json:"date"`
	Indeterminate bool          `json:"indeterminate"`
	PunchCount    int           `json:"punch_count"`
	Intervals     []IntervalDTO `json:"intervals"`
	Unpaired      *PunchDTO     `json:"unpaired,omitempty"`
	Gross         *DurationDTO  `json:"gross,omitempty"`
	Break         *DurationDTO  `json:"break,omitempty"`
	Net           *DurationDTO  `json:"net,omitempty"`
}

func ToDayDTO(id generic.EmployeeID, r worktime.DayResult) DayDTO {
	dto := DayDTO{
		EmployeeID:    string(id),
		Date:          r.Date,
		Indeterminate: r.Indeterminate,
		PunchCount:    r.PunchCount,
		Intervals:     []IntervalDTO{},
	}
	for _, iv := range r.Intervals {
		dto.Intervals = append(dto.Intervals, IntervalDTO{Start: iv.Start, End: iv.End, Net: toDurationDTO(iv.Duration())})
	}
	if r.Unpaired != nil {
		p := ToPunchDTO(*r.Unpaired)
		dto.Unpaired = &p
	}
	if !r.Indeterminate {
		gross, brk, net := toDurationDTO(r.Gross), toDurationDTO(r.Break), toDurationDTO(r.Net)
		dto.Gross, dto.Break, dto.Net = &gross, &brk, &net
	}
	return dto
}

// =============================================================================
// COMPLIANCE & NOTIFICATIONS
// =============================================================================

type PeriodDTO struct {
	Start generic.Date `json:"start"`
	End   generic.Date `json:"end"`
}

type FindingDTO struct {
	Code     int          `json:"code"`
	CodeName string       `json:"code_name"`
	Date     generic.Date `json:"date"`
	Observed *DurationDTO `json:"observed,omitempty"`
	Limit    *DurationDTO `json:"limit,omitempty"`
	Detail   string       `json:"detail,omitempty"`
	Message  string       `json:"message"`
}

type ComplianceResponse struct {
	EmployeeID string       `json:"employee_id"`
	Period     PeriodDTO    `json:"period"`
	DryRun     bool         `json:"dry_run"`
	Findings   []FindingDTO `json:"findings"`
}

func ToFindingDTO(f compliance.Finding) FindingDTO {
	dto := FindingDTO{
		Code:     int(f.Code),
		CodeName: f.Code.String(),
		Date:     f.Date,
		Detail:   f.Detail,
	}
	if f.Limit != 0 {
		obs, lim := toDurationDTO(f.Observed), toDurationDTO(f.Limit)
		dto.Observed, dto.Limit = &obs, &lim
	}
	// every finding the checker emits has a template
	dto.Message, _ = notify.Render(f)
	return dto
}

type NotificationDTO struct {
	ID        string       `json:"id"`
	Code      int          `json:"code"`
	CodeName  string       `json:"code_name"`
	Date      generic.Date `json:"date"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}

func ToNotificationDTO(n notify.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Code:      int(n.Code),
		CodeName:  n.Code.String(),
		Date:      n.Date,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

// =============================================================================
// FLEX BALANCE
// =============================================================================

type SubtotalDTO struct {
	Period  PeriodDTO   `json:"period"`
	Balance DurationDTO `json:"balance"`
}

type FlexBalanceDTO struct {
	EmployeeID  string        `json:"employee_id"`
	Granularity string        `json:"granularity,omitempty"`
	Period      PeriodDTO     `json:"period"`
	Balance     DurationDTO   `json:"balance"`
	Worked      DurationDTO   `json:"worked"`
	Target      DurationDTO   `json:"target"`
	DaysWorked  int           `json:"days_worked"`
	Status      string        `json:"status"`
	Thresholds  ThresholdsDTO `json:"thresholds"`
	Breakdown   []SubtotalDTO `json:"breakdown"`
}

func ToFlexBalanceDTO(b flextime.Balance) FlexBalanceDTO {
	dto := FlexBalanceDTO{
		EmployeeID:  string(b.EmployeeID),
		Granularity: string(b.Granularity),
		Period:      PeriodDTO{Start: b.Period.Start, End: b.Period.End},
		Balance:     toDurationDTO(b.Total),
		Worked:      toDurationDTO(b.Worked),
		Target:      toDurationDTO(b.Target),
		DaysWorked:  b.DaysWorked,
		Status:      string(b.Status),
		Thresholds:  toThresholdsDTO(b.Thresholds),
		Breakdown:   []SubtotalDTO{},
	}
	for _, s := range b.Breakdown {
		dto.Breakdown = append(dto.Breakdown, SubtotalDTO{
			Period:  PeriodDTO{Start: s.Period.Start, End: s.Period.End},
			Balance: toDurationDTO(s.Total),
		})
	}
	return dto
}

type FlexAverageDTO struct {
	EmployeeID string         `json:"employee_id"`
	Period     PeriodDTO      `json:"period"`
	Average    DurationDTO    `json:"average"`
	Total      DurationDTO    `json:"total"`
	Days       int            `json:"days"`
	Dates      []generic.Date `json:"dates"`
}

func ToFlexAverageDTO(av flextime.Average) FlexAverageDTO {
	dto := FlexAverageDTO{
		EmployeeID: string(av.EmployeeID),
		Period:     PeriodDTO{Start: av.Period.Start, End: av.Period.End},
		Average:    toDurationDTO(av.Average),
		Total:      toDurationDTO(av.Total),
		Days:       av.Counted(),
		Dates:      av.Days,
	}
	if dto.Dates == nil {
		dto.Dates = []generic.Date{}
	}
	return dto
}

// =============================================================================
// HOLIDAYS & SCENARIOS
// =============================================================================

type HolidayDTO struct {
	ID        string       `json:"id"`
	Date      generic.Date `json:"date"`
	Name      string       `json:"name"`
	Recurring bool         `json:"recurring"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
