/*
scheduler.go - Automatic pay period finalization

PURPOSE:
  Periodically checks whether a pay period on the configured calendar has
  ended without being finalized, finalizes it and persists the ledger.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Uses PeriodCalendar.LastCompleted(today) as the period that is due
  - Finalizes when the ledger has no period yet, or the latest one ends
    before the due period ends
  - A duplicate end date means someone finalized it by hand; logged, skipped

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPeriodScheduler(ledger, store, calendar, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: FinalizePeriod endpoint (manual finalization)
  - generic/period.go: PeriodCalendar
*/
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
)

// PeriodScheduler handles automated period finalization.
type PeriodScheduler struct {
	Ledger        *worklog.Ledger
	Store         worklog.StateStore
	Calendar      generic.PeriodCalendar
	CheckInterval time.Duration
	Enabled       bool

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPeriodScheduler creates a new scheduler. Store may be nil to skip saving.
func NewPeriodScheduler(ledger *worklog.Ledger, store worklog.StateStore, calendar generic.PeriodCalendar, logger *slog.Logger) *PeriodScheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PeriodScheduler{
		Ledger:        ledger,
		Store:         store,
		Calendar:      calendar,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		logger:        logger,
	}
}

// Start begins the scheduler.
func (ps *PeriodScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.logger.Info("period scheduler disabled, not starting")
		return
	}
	if ps.ticker != nil {
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan struct{})
	ps.wg.Add(1)

	go ps.run()

	ps.logger.Info("period scheduler started", "interval", ps.CheckInterval)
}

// Stop stops the scheduler.
func (ps *PeriodScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.ticker = nil
		ps.logger.Info("period scheduler stopped")
	}
}

func (ps *PeriodScheduler) run() {
	defer ps.wg.Done()

	// Run immediately on start
	ps.RunNow(context.Background())

	for {
		select {
		case <-ps.ticker.C:
			ps.RunNow(context.Background())
		case <-ps.stop:
			return
		}
	}
}

// RunNow performs one check. It returns the finalized period, or nil when
// nothing was due.
func (ps *PeriodScheduler) RunNow(ctx context.Context) *worklog.PayPeriod {
	today := generic.DateOf(ps.Ledger.Now(), ps.Ledger.Location())

	due, ok := ps.Calendar.LastCompleted(today)
	if !ok {
		ps.logger.Debug("no completed period yet", "today", today)
		return nil
	}
	if latest, ok := ps.Ledger.Latest(); ok && !latest.End().Before(due.End) {
		ps.logger.Debug("period already finalized", "due", due, "latest", latest.Range())
		return nil
	}

	period, err := ps.Ledger.FinalizePeriod(due.Start, due.End)
	if errors.Is(err, generic.ErrDuplicatePeriod) {
		ps.logger.Warn("period finalized concurrently, skipping", "due", due)
		return nil
	}
	if err != nil {
		ps.logger.Error("finalize period", "due", due, "error", err)
		return nil
	}
	ps.logger.Info("period finalized", "range", due, "sessions", len(period.Sessions()))

	if ps.Store != nil {
		if err := ps.Ledger.Save(ctx, ps.Store); err != nil {
			ps.logger.Error("save state after finalize", "error", err)
		}
	}
	return period
}
