package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
	"github.com/warp/payclock/worklog/store"
)

func newScheduler(now time.Time) (*PeriodScheduler, *testClock, *store.Memory) {
	clock := &testClock{now: now}
	ledger := worklog.NewLedger(worklog.WithClock(clock.Now))
	mem := store.NewMemory()
	calendar := generic.PeriodCalendar{Anchor: generic.NewDate(2024, time.January, 1), LengthDays: 14}
	return NewPeriodScheduler(ledger, mem, calendar, nil), clock, mem
}

func TestScheduler_NothingDueInFirstPeriod(t *testing.T) {
	ps, _, mem := newScheduler(jan(10, 12, 0))

	assert.Nil(t, ps.RunNow(context.Background()))
	assert.Empty(t, ps.Ledger.Periods())
	assert.Equal(t, 0, mem.Saves())
}

func TestScheduler_FinalizesCompletedPeriod(t *testing.T) {
	// GIVEN: work in the first period and a clock in the second
	ps, clock, mem := newScheduler(jan(3, 9, 0))
	ps.Ledger.ClockIn("alice")
	clock.Set(jan(3, 17, 0))
	ps.Ledger.ClockOut("alice")
	clock.Set(jan(15, 0, 30))

	// WHEN: the scheduler runs
	period := ps.RunNow(context.Background())

	// THEN: Jan 1-14 is finalized with the pooled session and saved
	require.NotNil(t, period)
	assert.Equal(t, generic.DateRange{Start: generic.NewDate(2024, time.January, 1), End: generic.NewDate(2024, time.January, 14)}, period.Range())
	assert.Len(t, period.Sessions(), 1)
	assert.Equal(t, 1, mem.Saves())

	// AND: running again does nothing
	assert.Nil(t, ps.RunNow(context.Background()))
	assert.Len(t, ps.Ledger.Periods(), 1)
	assert.Equal(t, 1, mem.Saves())
}

func TestScheduler_SkipsWhenFinalizedByHand(t *testing.T) {
	ps, _, mem := newScheduler(jan(16, 9, 0))
	_, err := ps.Ledger.FinalizePeriod(generic.NewDate(2024, time.January, 1), generic.NewDate(2024, time.January, 14))
	require.NoError(t, err)

	assert.Nil(t, ps.RunNow(context.Background()))
	assert.Len(t, ps.Ledger.Periods(), 1)
	assert.Equal(t, 0, mem.Saves())
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	ps, _, mem := newScheduler(jan(15, 9, 0))
	ps.CheckInterval = time.Hour

	ps.Start()
	ps.Stop()

	assert.Len(t, ps.Ledger.Periods(), 1)
	assert.Equal(t, 1, mem.Saves())

	// Stopping twice is harmless and the scheduler can be restarted.
	ps.Stop()
	ps.Start()
	ps.Stop()
	assert.Len(t, ps.Ledger.Periods(), 1)
}

func TestScheduler_StartTwiceKeepsOneLoop(t *testing.T) {
	ps, _, mem := newScheduler(jan(15, 9, 0))
	ps.CheckInterval = time.Hour

	ps.Start()
	ticker, stop := ps.ticker, ps.stop
	ps.Start()

	assert.Same(t, ticker, ps.ticker)
	assert.Equal(t, stop, ps.stop)

	ps.Stop()
	assert.Nil(t, ps.ticker)
	assert.Len(t, ps.Ledger.Periods(), 1)
	assert.Equal(t, 1, mem.Saves())
}

func TestScheduler_Disabled(t *testing.T) {
	ps, _, _ := newScheduler(jan(15, 9, 0))
	ps.Enabled = false

	ps.Start()
	ps.Stop()

	assert.Empty(t, ps.Ledger.Periods())
}
