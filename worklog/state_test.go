package worklog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
	"github.com/warp/payclock/worklog/store"
)

// mockStateStore is a testify mock of worklog.StateStore.
type mockStateStore struct {
	mock.Mock
}

func (m *mockStateStore) SaveState(ctx context.Context, state worklog.State) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *mockStateStore) LoadState(ctx context.Context) (worklog.State, error) {
	args := m.Called(ctx)
	return args.Get(0).(worklog.State), args.Error(1)
}

// busyLedger returns a ledger with one open session, one pooled session and
// one finalized period.
func busyLedger(t *testing.T) *worklog.Ledger {
	t.Helper()
	ledger, clock := newLedger(jan(2, 9, 0))
	ledger.ClockIn("alice")
	clock.Set(jan(2, 17, 0))
	ledger.ClockOut("alice")
	_, err := ledger.FinalizePeriod(date("2024-01-01"), date("2024-01-14"))
	require.NoError(t, err)

	clock.Set(jan(15, 9, 0))
	ledger.ClockIn("bob")
	clock.Set(jan(15, 12, 0))
	ledger.ClockOut("bob")
	ledger.ClockIn("carol")
	return ledger
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func TestLedger_ExportImportRoundTrip(t *testing.T) {
	original := busyLedger(t)
	state := original.Export()

	require.Len(t, state.OpenSessions, 1)
	require.Len(t, state.Unassigned, 1)
	require.Len(t, state.Periods, 1)

	restored := worklog.NewLedger()
	require.NoError(t, restored.Import(state))

	assert.Equal(t, state, restored.Export())
	assert.True(t, restored.IsClockedIn("carol"))
	latest, ok := restored.Latest()
	require.True(t, ok)
	assert.Equal(t, "8", latest.HoursWorked("alice").String())
}

func TestLedger_ImportRejectsDuplicateOpenSession(t *testing.T) {
	ledger := busyLedger(t)
	before := ledger.Export()

	err := ledger.Import(worklog.State{
		OpenSessions: []worklog.WorkSession{
			session("dave", jan(1, 9, 0), time.Time{}),
			session("dave", jan(1, 10, 0), time.Time{}),
		},
	})

	assert.ErrorIs(t, err, generic.ErrDuplicateOpenSession)
	assert.ErrorIs(t, err, generic.ErrInvalidSnapshot)
	assert.Equal(t, before, ledger.Export(), "ledger keeps its previous contents")
}

func TestLedger_ImportValidation(t *testing.T) {
	tests := []struct {
		name  string
		state worklog.State
		field string
	}{
		{
			name:  "open session without employee",
			state: worklog.State{OpenSessions: []worklog.WorkSession{session("", jan(1, 9, 0), time.Time{})}},
			field: "openSessions[0].employeeId",
		},
		{
			name:  "open session with an end",
			state: worklog.State{OpenSessions: []worklog.WorkSession{session("alice", jan(1, 9, 0), jan(1, 10, 0))}},
			field: "openSessions[0].end",
		},
		{
			name:  "pooled session without start",
			state: worklog.State{Unassigned: []worklog.WorkSession{session("alice", time.Time{}, jan(1, 10, 0))}},
			field: "unassignedSessions[0].start",
		},
		{
			name:  "pooled session still open",
			state: worklog.State{Unassigned: []worklog.WorkSession{session("alice", jan(1, 9, 0), time.Time{})}},
			field: "unassignedSessions[0].end",
		},
		{
			name:  "pooled session ending before start",
			state: worklog.State{Unassigned: []worklog.WorkSession{session("alice", jan(1, 9, 0), jan(1, 8, 0))}},
			field: "unassignedSessions[0].end",
		},
		{
			name:  "period without end",
			state: worklog.State{Periods: []worklog.PeriodState{{Range: generic.DateRange{Start: date("2024-01-01")}}}},
			field: "payPeriods[0].end",
		},
		{
			name: "period session without employee",
			state: worklog.State{Periods: []worklog.PeriodState{{
				Range:    generic.DateRange{Start: date("2024-01-01"), End: date("2024-01-14")},
				Sessions: []worklog.WorkSession{session("", jan(1, 9, 0), jan(1, 10, 0))},
			}}},
			field: "payPeriods[0].sessions[0].employeeId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := worklog.NewLedger()

			err := ledger.Import(tt.state)

			var snapErr *generic.SnapshotError
			require.True(t, errors.As(err, &snapErr), "got %v", err)
			assert.Equal(t, tt.field, snapErr.Field)
			assert.ErrorIs(t, err, generic.ErrInvalidSnapshot)
		})
	}
}

func TestLedger_ImportEmptyState(t *testing.T) {
	ledger := busyLedger(t)

	require.NoError(t, ledger.Import(worklog.State{}))

	assert.Empty(t, ledger.OpenSessions())
	assert.Empty(t, ledger.Unassigned())
	assert.Empty(t, ledger.Periods())
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestLedger_LoadFromStore(t *testing.T) {
	ctx := context.Background()
	state := busyLedger(t).Export()

	repo := new(mockStateStore)
	repo.On("LoadState", ctx).Return(state, nil)

	ledger := worklog.NewLedger()
	require.NoError(t, ledger.Load(ctx, repo))

	assert.Equal(t, state, ledger.Export())
	repo.AssertExpectations(t)
}

func TestLedger_LoadErrorLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	ledger := busyLedger(t)
	before := ledger.Export()

	repo := new(mockStateStore)
	repo.On("LoadState", ctx).Return(worklog.State{}, errors.New("disk on fire"))

	err := ledger.Load(ctx, repo)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load state")
	assert.Equal(t, before, ledger.Export())
}

func TestLedger_SaveToStore(t *testing.T) {
	ctx := context.Background()
	ledger := busyLedger(t)

	repo := new(mockStateStore)
	repo.On("SaveState", ctx, mock.AnythingOfType("worklog.State")).Return(nil)

	require.NoError(t, ledger.Save(ctx, repo))
	repo.AssertNumberOfCalls(t, "SaveState", 1)
}

func TestLedger_SaveError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockStateStore)
	repo.On("SaveState", ctx, mock.Anything).Return(errors.New("read-only"))

	err := worklog.NewLedger().Save(ctx, repo)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save state")
}

func TestLedger_SaveLoadWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	original := busyLedger(t)

	require.NoError(t, original.Save(ctx, mem))
	restored := worklog.NewLedger()
	require.NoError(t, restored.Load(ctx, mem))

	assert.Equal(t, 1, mem.Saves())
	assert.Equal(t, original.Export(), restored.Export())
}
