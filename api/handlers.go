/*
handlers.go - HTTP API handlers for the time-accounting engine

PURPOSE:
  Exposes the work ledger and payroll calculations via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                   List all employees
    POST   /api/employees                   Create employee
    GET    /api/employees/{id}              Get employee details
    PUT    /api/employees/{id}/strategy     Replace pay strategy
    DELETE /api/employees/{id}              Remove employee (409 while clocked in)

  Clock:
    POST   /api/employees/{id}/clock-in     Open a session (no-op if open)
    POST   /api/employees/{id}/clock-out    Close, split and file a session
    GET    /api/employees/{id}/clock        Clocked-in status and elapsed time

  Periods:
    GET    /api/periods                              List finalized periods
    POST   /api/periods                              Finalize the pool
    GET    /api/periods/{index}/employees/{id}/hours Hour breakdown
    GET    /api/periods/{index}/employees/{id}/pay   Pay under the employee's strategy
    GET    /api/periods/{index}/report.csv           Pay report for everyone

  State:
    GET    /api/state                       Snapshot document
    PUT    /api/state                       Replace the ledger from a snapshot
    POST   /api/state/save                  Persist the ledger
    POST   /api/state/load                  Reload the ledger from storage

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Ledger: In-memory work ledger (source of truth while running)
  - Store: Employee registry and persisted ledger state
  - Strategies: JSON to payroll.Strategy conversion

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, malformed snapshot
  - 404: Employee or period not found
  - 409: Duplicate period end date, removing a clocked-in employee
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Automatic period finalization
*/
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/warp/payclock/factory"
	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/payroll"
	"github.com/warp/payclock/store/sqlite"
	"github.com/warp/payclock/worklog"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger     *worklog.Ledger
	Store      *sqlite.Store
	Strategies *factory.StrategyFactory

	logger *slog.Logger
}

// NewHandler creates a new handler. A nil logger discards output.
func NewHandler(ledger *worklog.Ledger, store *sqlite.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		Ledger:     ledger,
		Store:      store,
		Strategies: factory.NewStrategyFactory(),
		logger:     logger,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = h.toEmployeeDTO(e)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}

	writeJSON(w, http.StatusOK, h.toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee, optionally with a strategy.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	emp := sqlite.Employee{ID: req.ID, Name: req.Name}
	if req.Strategy != nil {
		strategy, err := h.Strategies.FromJSON(*req.Strategy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid strategy", err)
			return
		}
		emp.Strategy = &strategy
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	h.logger.Info("employee created", "employee_id", emp.ID)
	writeJSON(w, http.StatusCreated, h.toEmployeeDTO(emp))
}

// SetStrategy replaces an employee's pay strategy.
func (h *Handler) SetStrategy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var sj factory.StrategyJSON
	if err := json.NewDecoder(r.Body).Decode(&sj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	strategy, err := h.Strategies.FromJSON(sj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid strategy", err)
		return
	}

	if err := h.Store.SetStrategy(r.Context(), id, strategy); err != nil {
		writeDomainError(w, "Failed to set strategy", err)
		return
	}

	h.logger.Info("strategy changed", "employee_id", id, "strategy", strategy.String())
	out := h.Strategies.ToJSON(strategy)
	writeJSON(w, http.StatusOK, out)
}

// DeleteEmployee removes an employee record. Sessions already worked stay in
// the ledger.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.Ledger.IsClockedIn(generic.EmployeeID(id)) {
		writeDomainError(w, "Employee must clock out first", generic.ErrEmployeeClockedIn)
		return
	}

	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete employee", err)
		return
	}

	h.logger.Info("employee deleted", "employee_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toEmployeeDTO(e sqlite.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:        e.ID,
		Name:      e.Name,
		ClockedIn: h.Ledger.IsClockedIn(generic.EmployeeID(e.ID)),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	if e.Strategy != nil {
		sj := h.Strategies.ToJSON(*e.Strategy)
		dto.Strategy = &sj
	}
	return dto
}

// =============================================================================
// CLOCK HANDLERS
// =============================================================================

// ClockIn opens a session for a registered employee. Returns 201 when a
// session was opened and 200 with the existing session otherwise.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.registeredEmployee(w, r)
	if !ok {
		return
	}

	session, created := h.Ledger.ClockIn(id)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.Info("clocked in", "employee_id", id, "start", session.Start)
	}

	writeJSON(w, status, ClockStatusDTO{
		EmployeeID:     string(id),
		ClockedIn:      true,
		Created:        created,
		StartedAt:      session.Start.Format(time.RFC3339),
		ElapsedSeconds: session.Seconds(h.Ledger.Now()),
	})
}

// ClockOut closes the employee's session. Clocking out while not clocked in
// returns closed=false.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	id, ok := h.registeredEmployee(w, r)
	if !ok {
		return
	}

	result, closed := h.Ledger.ClockOut(id)
	dto := ClockOutDTO{EmployeeID: string(id), Closed: closed, Pieces: []PieceDTO{}}
	if closed {
		session := toSessionDTO(result.Closed)
		dto.Session = &session
		for _, p := range result.Pieces {
			dto.Pieces = append(dto.Pieces, PieceDTO{
				SessionDTO: toSessionDTO(p.Session),
				Placement:  string(p.Placement),
			})
		}
		h.logger.Info("clocked out", "employee_id", id, "pieces", len(result.Pieces))
	}

	writeJSON(w, http.StatusOK, dto)
}

// GetClock reports whether the employee is clocked in and for how long.
func (h *Handler) GetClock(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))

	dto := ClockStatusDTO{EmployeeID: string(id)}
	if session, ok := h.Ledger.OpenSession(id); ok {
		dto.ClockedIn = true
		dto.StartedAt = session.Start.Format(time.RFC3339)
		dto.ElapsedSeconds = session.Seconds(h.Ledger.Now())
	}

	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) registeredEmployee(w http.ResponseWriter, r *http.Request) (generic.EmployeeID, bool) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetEmployee(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return "", false
	}
	return generic.EmployeeID(id), true
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns every finalized period, newest first.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods := h.Ledger.Periods()
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(i, p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// FinalizePeriod moves the pool into a new pay period.
func (h *Handler) FinalizePeriod(w http.ResponseWriter, r *http.Request) {
	var req FinalizePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := generic.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start format (use YYYY-MM-DD)", err)
		return
	}
	end, err := generic.ParseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end format (use YYYY-MM-DD)", err)
		return
	}

	var opts []worklog.FinalizeOption
	if req.WithinRangeOnly {
		opts = append(opts, worklog.WithinRangeOnly())
	}

	period, err := h.Ledger.FinalizePeriod(start, end, opts...)
	if err != nil {
		writeDomainError(w, "Failed to finalize period", err)
		return
	}

	h.logger.Info("period finalized", "start", start, "end", end, "sessions", len(period.Sessions()))
	writeJSON(w, http.StatusCreated, toPeriodDTO(0, period))
}

// GetHours returns an employee's hour breakdown for a period.
func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	index, period, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, toHoursDTO(index, period, id))
}

// GetPay returns an employee's pay for a period under their current strategy.
func (h *Handler) GetPay(w http.ResponseWriter, r *http.Request) {
	index, period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	if emp.Strategy == nil {
		writeError(w, http.StatusBadRequest, "Employee has no pay strategy", nil)
		return
	}

	id := generic.EmployeeID(emp.ID)
	writeJSON(w, http.StatusOK, PayDTO{
		PeriodIndex: index,
		EmployeeID:  emp.ID,
		Strategy:    string(emp.Strategy.Kind),
		Rate:        emp.Strategy.Rate.StringFixed(2),
		Hours:       period.HoursWorked(id).StringFixed(2),
		Pay:         payroll.Calculate(*emp.Strategy, period, id).StringFixed(2),
	})
}

// GetReportCSV writes the pay report of a period as CSV.
func (h *Handler) GetReportCSV(w http.ResponseWriter, r *http.Request) {
	index, period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	strategies, err := h.Store.Strategies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load strategies", err)
		return
	}

	rows := payroll.Report(period, strategies)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"period-%d.csv\"", index))
	w.WriteHeader(http.StatusOK)
	if err := gocsv.Marshal(&rows, w); err != nil {
		h.logger.Error("write report", "period", index, "error", err)
	}
}

func (h *Handler) periodParam(w http.ResponseWriter, r *http.Request) (int, *worklog.PayPeriod, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period index", err)
		return 0, nil, false
	}
	period, err := h.Ledger.Period(index)
	if err != nil {
		writeDomainError(w, "Failed to get period", err)
		return 0, nil, false
	}
	return index, period, true
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

// GetState returns the ledger as a snapshot document.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.StateToJSON(h.Ledger.Export()))
}

// ImportState replaces the ledger with the snapshot in the request body.
// A malformed snapshot leaves the ledger untouched.
func (h *Handler) ImportState(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	state, err := factory.DecodeState(data)
	if err != nil {
		writeDomainError(w, "Invalid snapshot", err)
		return
	}
	if err := h.Ledger.Import(state); err != nil {
		writeDomainError(w, "Invalid snapshot", err)
		return
	}

	h.logger.Info("state imported", "open", len(state.OpenSessions), "periods", len(state.Periods))
	writeJSON(w, http.StatusOK, factory.StateToJSON(h.Ledger.Export()))
}

// SaveState persists the ledger.
func (h *Handler) SaveState(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Save(r.Context(), h.Store); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save state", err)
		return
	}

	dto := StateSavedDTO{Status: "saved"}
	if rec, err := h.Store.LastSave(r.Context()); err == nil && rec != nil {
		dto.SaveID = rec.ID
		dto.SavedAt = rec.SavedAt.Format(time.RFC3339)
	}
	h.logger.Info("state saved", "save_id", dto.SaveID)
	writeJSON(w, http.StatusOK, dto)
}

// LoadState replaces the ledger with the persisted state.
func (h *Handler) LoadState(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Load(r.Context(), h.Store); err != nil {
		writeDomainError(w, "Failed to load state", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.StateToJSON(h.Ledger.Export()))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message, Code: errorCode(status, err)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's sentinel.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, generic.ErrDuplicatePeriod), errors.Is(err, generic.ErrEmployeeClockedIn):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func errorCode(status int, err error) string {
	switch {
	case errors.Is(err, generic.ErrDuplicatePeriod):
		return "duplicate_period"
	case errors.Is(err, generic.ErrDuplicateOpenSession):
		return "duplicate_open_session"
	case errors.Is(err, generic.ErrInvalidSnapshot):
		return "invalid_snapshot"
	case errors.Is(err, generic.ErrInvalidPeriod):
		return "invalid_period"
	case errors.Is(err, generic.ErrNegativeRate):
		return "negative_rate"
	case errors.Is(err, generic.ErrUnknownStrategy):
		return "unknown_strategy"
	case errors.Is(err, generic.ErrEmployeeClockedIn):
		return "employee_clocked_in"
	case errors.Is(err, generic.ErrEmployeeNotFound):
		return "employee_not_found"
	case errors.Is(err, generic.ErrPeriodNotFound):
		return "period_not_found"
	}
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	}
	return "internal"
}
