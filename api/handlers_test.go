/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Employee registry and strategy updates
- Clock in / clock out / clock status
- Period finalization, hours, pay and the CSV report
- Snapshot export, import, save and load
*/
package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/store/sqlite"
	"github.com/warp/payclock/worklog"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func jan(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

type testServer struct {
	handler *Handler
	router  http.Handler
	clock   *testClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: jan(1, 9, 0)}
	ledger := worklog.NewLedger(worklog.WithClock(clock.Now))
	h := NewHandler(ledger, store, nil)
	return &testServer{handler: h, router: NewRouter(h), clock: clock}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (s *testServer) createEmployee(t *testing.T, id, strategy string) {
	t.Helper()
	body := `{"id":"` + id + `","name":"` + strings.ToUpper(id[:1]) + id[1:] + `"`
	if strategy != "" {
		body += `,"strategy":` + strategy
	}
	body += `}`
	rec := s.do(t, http.MethodPost, "/api/employees", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// work clocks id in and out through the ledger between two instants.
func (s *testServer) work(id string, from, to time.Time) {
	s.clock.Set(from)
	s.handler.Ledger.ClockIn(generic.EmployeeID(id))
	s.clock.Set(to)
	s.handler.Ledger.ClockOut(generic.EmployeeID(id))
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_CreateListGet(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: one employee with a strategy and one without an id
	s.createEmployee(t, "alice", `{"kind":"hourly","rate":20}`)
	rec := s.do(t, http.MethodPost, "/api/employees", `{"name":"Bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	bob := decode[EmployeeDTO](t, rec)
	assert.NotEmpty(t, bob.ID, "id is generated")
	assert.Nil(t, bob.Strategy)

	// WHEN: listing
	rec = s.do(t, http.MethodGet, "/api/employees", "")

	// THEN: both are returned
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/api/employees/alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	alice := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "Alice", alice.Name)
	require.NotNil(t, alice.Strategy)
	assert.Equal(t, "hourly", alice.Strategy.Kind)
	assert.False(t, alice.ClockedIn)
}

func TestEmployees_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/employees", `{"id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/employees", `{"name":"X","strategy":{"kind":"hourly","rate":-1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "negative_rate", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/employees", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "employee_not_found", decode[ErrorResponse](t, rec).Code)
}

func TestEmployees_SetStrategy(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "alice", "")

	rec := s.do(t, http.MethodPut, "/api/employees/alice/strategy", `{"kind":"salaried","rate":"100000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	emp, err := s.handler.Store.GetEmployee(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, emp.Strategy)
	assert.Equal(t, "salaried(100000.00)", emp.Strategy.String())

	rec = s.do(t, http.MethodPut, "/api/employees/alice/strategy", `{"kind":"commission","rate":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_strategy", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPut, "/api/employees/ghost/strategy", `{"kind":"hourly","rate":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployees_Delete(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "alice", "")
	s.do(t, http.MethodPost, "/api/employees/alice/clock-in", "")

	// GIVEN: alice is clocked in
	rec := s.do(t, http.MethodDelete, "/api/employees/alice", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "employee_clocked_in", decode[ErrorResponse](t, rec).Code)

	// WHEN: alice clocks out and is deleted
	s.clock.Set(jan(1, 17, 0))
	s.do(t, http.MethodPost, "/api/employees/alice/clock-out", "")
	rec = s.do(t, http.MethodDelete, "/api/employees/alice", "")

	// THEN: the record is gone and the session stays in the pool
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/employees/alice", "").Code)
	assert.Len(t, s.handler.Ledger.Unassigned(), 1)

	rec = s.do(t, http.MethodDelete, "/api/employees/alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CLOCK
// =============================================================================

func TestClock_InStatusOut(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "alice", "")

	// GIVEN: alice clocks in at 22:00
	s.clock.Set(jan(1, 22, 0))
	rec := s.do(t, http.MethodPost, "/api/employees/alice/clock-in", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	status := decode[ClockStatusDTO](t, rec)
	assert.True(t, status.Created)
	assert.Equal(t, "2024-01-01T22:00:00Z", status.StartedAt)

	// AND: a second clock-in is a no-op
	s.clock.Set(jan(1, 23, 0))
	rec = s.do(t, http.MethodPost, "/api/employees/alice/clock-in", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status = decode[ClockStatusDTO](t, rec)
	assert.False(t, status.Created)
	assert.Equal(t, int64(3600), status.ElapsedSeconds)

	rec = s.do(t, http.MethodGet, "/api/employees/alice/clock", "")
	assert.True(t, decode[ClockStatusDTO](t, rec).ClockedIn)

	// WHEN: alice clocks out after midnight
	s.clock.Set(jan(2, 1, 30))
	rec = s.do(t, http.MethodPost, "/api/employees/alice/clock-out", "")

	// THEN: the session is split into two pieces in the pool
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[ClockOutDTO](t, rec)
	assert.True(t, out.Closed)
	require.NotNil(t, out.Session)
	assert.Equal(t, "3.50", out.Session.Hours)
	require.Len(t, out.Pieces, 2)
	assert.Equal(t, "2.00", out.Pieces[0].Hours)
	assert.Equal(t, "1.50", out.Pieces[1].Hours)
	assert.Equal(t, "pool", out.Pieces[1].Placement)

	// AND: clocking out again reports nothing closed
	rec = s.do(t, http.MethodPost, "/api/employees/alice/clock-out", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode[ClockOutDTO](t, rec)
	assert.False(t, out.Closed)
	assert.Empty(t, out.Pieces)

	rec = s.do(t, http.MethodGet, "/api/employees/alice/clock", "")
	assert.False(t, decode[ClockStatusDTO](t, rec).ClockedIn)
}

func TestClock_UnknownEmployee(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/employees/ghost/clock-in", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, s.handler.Ledger.IsClockedIn("ghost"))

	rec = s.do(t, http.MethodPost, "/api/employees/ghost/clock-out", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// PERIODS
// =============================================================================

// payrollFixture registers alice (hourly $20) and bob (no strategy) and
// finalizes Jan 1-14 with the hours of the $330 example.
func payrollFixture(t *testing.T) *testServer {
	t.Helper()
	s := newTestServer(t)
	s.createEmployee(t, "alice", `{"kind":"hourly","rate":20}`)
	s.createEmployee(t, "bob", "")

	s.work("alice", jan(1, 9, 0), jan(1, 11, 0))
	s.work("alice", jan(1, 13, 0), jan(1, 15, 0))
	s.work("alice", jan(2, 9, 0), jan(2, 17, 0))
	s.work("alice", jan(3, 9, 0), jan(3, 13, 30))
	s.work("bob", jan(4, 9, 0), jan(4, 12, 0))

	s.clock.Set(jan(15, 8, 0))
	rec := s.do(t, http.MethodPost, "/api/periods", `{"start":"2024-01-01","end":"2024-01-14"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return s
}

func TestPeriods_Finalize(t *testing.T) {
	s := payrollFixture(t)

	rec := s.do(t, http.MethodGet, "/api/periods", "")

	require.Equal(t, http.StatusOK, rec.Code)
	periods := decode[[]PeriodDTO](t, rec)
	require.Len(t, periods, 1)
	assert.Equal(t, "2024-01-01", periods[0].Start)
	assert.Equal(t, 13, periods[0].DaysInPeriod)
	assert.Equal(t, 5, periods[0].SessionCount)
	assert.Equal(t, []string{"alice", "bob"}, periods[0].Employees)
	assert.Empty(t, s.handler.Ledger.Unassigned())
}

func TestPeriods_FinalizeErrors(t *testing.T) {
	s := payrollFixture(t)

	rec := s.do(t, http.MethodPost, "/api/periods", `{"start":"2024-01-08","end":"2024-01-14"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_period", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/periods", `{"start":"2024-01-28","end":"2024-01-15"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_period", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/periods", `{"start":"15/01/2024","end":"2024-01-28"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, s.handler.Ledger.Periods(), 1)
}

func TestPeriods_FinalizeWithinRangeOnly(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "alice", "")
	s.work("alice", jan(2, 9, 0), jan(2, 10, 0))
	s.work("alice", jan(20, 9, 0), jan(20, 10, 0))

	rec := s.do(t, http.MethodPost, "/api/periods", `{"start":"2024-01-01","end":"2024-01-14","within_range_only":true}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, decode[PeriodDTO](t, rec).SessionCount)
	assert.Len(t, s.handler.Ledger.Unassigned(), 1)
}

func TestPeriods_Hours(t *testing.T) {
	s := payrollFixture(t)

	rec := s.do(t, http.MethodGet, "/api/periods/0/employees/alice/hours", "")

	require.Equal(t, http.StatusOK, rec.Code)
	hours := decode[HoursDTO](t, rec)
	assert.Equal(t, "16.50", hours.Total)
	require.Len(t, hours.ByDay, 14)
	assert.Equal(t, DayHoursDTO{Date: "2024-01-01", Hours: "4.00"}, hours.ByDay[0])
	assert.Equal(t, "4.50", hours.ByDay[2].Hours)
	assert.Equal(t, []string{"16.50", "0.00", "0.00"}, hours.ByWeek)
}

func TestPeriods_Pay(t *testing.T) {
	s := payrollFixture(t)

	rec := s.do(t, http.MethodGet, "/api/periods/0/employees/alice/pay", "")

	require.Equal(t, http.StatusOK, rec.Code)
	pay := decode[PayDTO](t, rec)
	assert.Equal(t, "330.00", pay.Pay)
	assert.Equal(t, "hourly", pay.Strategy)
	assert.Equal(t, "20.00", pay.Rate)

	rec = s.do(t, http.MethodGet, "/api/periods/0/employees/bob/pay", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no strategy")

	rec = s.do(t, http.MethodGet, "/api/periods/3/employees/alice/pay", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "period_not_found", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/periods/latest/employees/alice/pay", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPeriods_ReportCSV(t *testing.T) {
	s := payrollFixture(t)

	rec := s.do(t, http.MethodGet, "/api/periods/0/report.csv", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "period_start,period_end,employee_id,strategy,rate,hours,pay", lines[0])
	assert.Equal(t, "2024-01-01,2024-01-14,alice,hourly,20.00,16.50,330.00", lines[1])
	assert.Equal(t, "2024-01-01,2024-01-14,bob,,,3.00,", lines[2])
}

// =============================================================================
// STATE
// =============================================================================

func TestState_ExportAndImport(t *testing.T) {
	s := payrollFixture(t)

	rec := s.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()

	// WHEN: a malformed snapshot is imported
	rec = s.do(t, http.MethodPut, "/api/state", `{"openSessions": [], "payPeriods": []}`)

	// THEN: it is rejected and the ledger keeps its periods
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_snapshot", decode[ErrorResponse](t, rec).Code)
	assert.Len(t, s.handler.Ledger.Periods(), 1)

	// WHEN: a snapshot with an open session is imported
	rec = s.do(t, http.MethodPut, "/api/state", `{
		"openSessions": [{"employeeId": "bob", "start": 1705309200}],
		"unassignedSessions": [],
		"payPeriods": []
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, s.handler.Ledger.IsClockedIn("bob"))
	assert.Empty(t, s.handler.Ledger.Periods())

	// AND: the earlier export restores the original ledger
	rec = s.do(t, http.MethodPut, "/api/state", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.handler.Ledger.Periods(), 1)
	assert.False(t, s.handler.Ledger.IsClockedIn("bob"))
}

func TestState_DuplicateOpenSessionRejected(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/state", `{
		"openSessions": [{"employeeId": "bob", "start": 1}, {"employeeId": "bob", "start": 2}],
		"unassignedSessions": [],
		"payPeriods": []
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestState_SaveAndLoad(t *testing.T) {
	s := payrollFixture(t)

	rec := s.do(t, http.MethodPost, "/api/state/save", "")
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[StateSavedDTO](t, rec)
	assert.Equal(t, "saved", saved.Status)
	assert.NotEmpty(t, saved.SaveID)

	// GIVEN: the ledger changes after the save
	s.handler.Ledger.ClockIn("alice")

	// WHEN: the persisted state is loaded back
	rec = s.do(t, http.MethodPost, "/api/state/load", "")

	// THEN: the unsaved clock-in is gone and the period is back
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.handler.Ledger.IsClockedIn("alice"))
	assert.Len(t, s.handler.Ledger.Periods(), 1)
}
