/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model (worklog, payroll) from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employee:
    EmployeeDTO, CreateEmployeeRequest

  Clock:
    ClockStatusDTO, ClockOutDTO, PieceDTO, SessionDTO

  Periods:
    PeriodDTO, FinalizePeriodRequest, HoursDTO, DayHoursDTO, PayDTO

  Strategy:
    factory.StrategyJSON (used as-is)

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.
  Hours and money are decimal strings with two fractional digits.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/strategy.go: StrategyJSON type
  - factory/snapshot.go: StateJSON, served by GET /api/state
*/
package api

import (
	"time"

	"github.com/warp/payclock/factory"
	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Strategy  *factory.StrategyJSON `json:"strategy,omitempty"`
	ClockedIn bool                  `json:"clocked_in"`
	CreatedAt string                `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the body of POST /api/employees.
// A missing ID is generated.
type CreateEmployeeRequest struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Strategy *factory.StrategyJSON `json:"strategy,omitempty"`
}

// =============================================================================
// CLOCK
// =============================================================================

// SessionDTO is a work session. End is omitted while the session is open.
type SessionDTO struct {
	EmployeeID string `json:"employee_id"`
	Start      string `json:"start"`
	End        string `json:"end,omitempty"`
	Hours      string `json:"hours,omitempty"`
}

// ClockStatusDTO answers "is this employee clocked in, and for how long".
type ClockStatusDTO struct {
	EmployeeID     string `json:"employee_id"`
	ClockedIn      bool   `json:"clocked_in"`
	Created        bool   `json:"created,omitempty"`
	StartedAt      string `json:"started_at,omitempty"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
}

// PieceDTO is one per-day piece of a clocked-out session and where it was filed.
type PieceDTO struct {
	SessionDTO
	Placement string `json:"placement"`
}

// ClockOutDTO is the response of a clock-out. Closed is false when the
// employee was not clocked in.
type ClockOutDTO struct {
	EmployeeID string      `json:"employee_id"`
	Closed     bool        `json:"closed"`
	Session    *SessionDTO `json:"session,omitempty"`
	Pieces     []PieceDTO  `json:"pieces"`
}

// =============================================================================
// PERIODS
// =============================================================================

// PeriodDTO summarizes a finalized pay period.
type PeriodDTO struct {
	Index        int      `json:"index"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	DaysInPeriod int      `json:"days_in_period"`
	SessionCount int      `json:"session_count"`
	Employees    []string `json:"employees"`
}

// FinalizePeriodRequest is the body of POST /api/periods.
type FinalizePeriodRequest struct {
	Start           string `json:"start"` // YYYY-MM-DD
	End             string `json:"end"`   // YYYY-MM-DD
	WithinRangeOnly bool   `json:"within_range_only"`
}

// DayHoursDTO is one day's hours.
type DayHoursDTO struct {
	Date  string `json:"date"`
	Hours string `json:"hours"`
}

// HoursDTO is an employee's hour breakdown for one period.
type HoursDTO struct {
	PeriodIndex int           `json:"period_index"`
	EmployeeID  string        `json:"employee_id"`
	Total       string        `json:"total"`
	ByDay       []DayHoursDTO `json:"by_day"`
	ByWeek      []string      `json:"by_week"`
}

// PayDTO is an employee's pay for one period.
type PayDTO struct {
	PeriodIndex int    `json:"period_index"`
	EmployeeID  string `json:"employee_id"`
	Strategy    string `json:"strategy"`
	Rate        string `json:"rate"`
	Hours       string `json:"hours"`
	Pay         string `json:"pay"`
}

// StateSavedDTO is the response of POST /api/state/save.
type StateSavedDTO struct {
	Status  string `json:"status"`
	SaveID  string `json:"save_id,omitempty"`
	SavedAt string `json:"saved_at,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toSessionDTO(s worklog.WorkSession) SessionDTO {
	dto := SessionDTO{
		EmployeeID: string(s.EmployeeID),
		Start:      s.Start.Format(time.RFC3339),
	}
	if !s.IsOpen() {
		dto.End = s.End.Format(time.RFC3339)
		dto.Hours = s.Hours(s.End).StringFixed(2)
	}
	return dto
}

func toPeriodDTO(index int, p *worklog.PayPeriod) PeriodDTO {
	employees := p.Employees()
	ids := make([]string, len(employees))
	for i, id := range employees {
		ids[i] = string(id)
	}
	return PeriodDTO{
		Index:        index,
		Start:        p.Start().String(),
		End:          p.End().String(),
		DaysInPeriod: p.DaysInPeriod(),
		SessionCount: len(p.Sessions()),
		Employees:    ids,
	}
}

func toHoursDTO(index int, p *worklog.PayPeriod, id generic.EmployeeID) HoursDTO {
	dto := HoursDTO{
		PeriodIndex: index,
		EmployeeID:  string(id),
		Total:       p.HoursWorked(id).StringFixed(2),
		ByDay:       []DayHoursDTO{},
		ByWeek:      []string{},
	}
	days := p.Range().Days()
	for i, h := range p.HoursByDay(id) {
		dto.ByDay = append(dto.ByDay, DayHoursDTO{Date: days[i].String(), Hours: h.StringFixed(2)})
	}
	for _, h := range p.HoursByWeek(id) {
		dto.ByWeek = append(dto.ByWeek, h.StringFixed(2))
	}
	return dto
}
