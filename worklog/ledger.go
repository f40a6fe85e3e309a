/*
ledger.go - Clock-in/clock-out state machine and pay period finalization

PURPOSE:
  The Ledger owns every work session until a pay period takes it over.
  It holds three collections:
    - open sessions, at most one per employee
    - the pool of closed sessions not yet in a finalized period
    - finalized pay periods, newest first

STATE MACHINE (per employee):
  NOT_CLOCKED_IN --ClockIn--> CLOCKED_IN --ClockOut--> NOT_CLOCKED_IN

  ClockIn while clocked in and ClockOut while not clocked in are no-ops.
  They report what happened through their boolean result, never an error.

CLOCK-OUT FILING:
  The closed session is split at midnight (Split). A piece whose start date
  equals the start date of the latest finalized period goes straight into
  that period (a late clock-out for a shift that began before finalization).
  Every other piece goes to the pool.

FINALIZATION:
  FinalizePeriod moves the whole pool into a new period and prepends it.
  The period dates are bookkeeping, not a filter: sessions outside
  [start, end] are moved too unless WithinRangeOnly is passed.
  Finalizing a second period with the latest period's end date is rejected
  without touching anything.

CONCURRENCY:
  One RWMutex guards all three collections. Readers (e.g. an elapsed-time
  display ticking every second) never fail on a session that was closed
  between two reads: they just see "not clocked in".

SEE ALSO:
  - session.go: WorkSession and Split
  - payperiod.go: Hour aggregation over a finalized period
  - state.go: Export/Import and the StateStore lifecycle
*/
package worklog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/payclock/generic"
)

// Clock returns the current instant. Tests replace it with a fake.
type Clock func() time.Time

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the time source used for clock-in and clock-out.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		if c != nil {
			l.now = c
		}
	}
}

// WithLocation sets the reference zone used for every calendar-day decision.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the work-session ledger. The zero value is not usable; call NewLedger.
type Ledger struct {
	mu  sync.RWMutex
	now Clock
	loc *time.Location

	open    map[generic.EmployeeID]WorkSession
	pool    []WorkSession
	periods []*PayPeriod // newest first
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		now:  time.Now,
		loc:  time.UTC,
		open: make(map[generic.EmployeeID]WorkSession),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Location returns the reference zone of the ledger.
func (l *Ledger) Location() *time.Location { return l.loc }

// Now returns the ledger's current instant at second precision, in UTC.
// Instants are stored in UTC; only day decisions use the reference zone.
func (l *Ledger) Now() time.Time { return l.now().Truncate(time.Second).UTC() }

// =============================================================================
// CLOCK IN / CLOCK OUT
// =============================================================================

// ClockIn opens a session for id starting now. If id is already clocked in the
// existing open session is returned with created == false.
func (l *Ledger) ClockIn(id generic.EmployeeID) (session WorkSession, created bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.open[id]; ok {
		return existing, false
	}
	session = WorkSession{EmployeeID: id, Start: l.Now()}
	l.open[id] = session
	return session, true
}

// Placement says where a clocked-out piece was filed.
type Placement string

const (
	PlacedInPool         Placement = "pool"
	PlacedInLatestPeriod Placement = "latest_period"
)

// PlacedSession is one piece of a clocked-out session and where it went.
type PlacedSession struct {
	Session   WorkSession
	Placement Placement
}

// ClockOutResult describes the effect of a clock-out.
type ClockOutResult struct {
	Closed WorkSession     // the session as closed, before splitting
	Pieces []PlacedSession // one per calendar day the session touched
}

// ClockOut closes the open session of id at now, splits it at midnight and
// files every piece. If id is not clocked in nothing changes and closed is false.
func (l *Ledger) ClockOut(id generic.EmployeeID) (result ClockOutResult, closed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	session, ok := l.open[id]
	if !ok {
		return ClockOutResult{}, false
	}
	delete(l.open, id)

	session.End = l.Now()
	if session.End.Before(session.Start) {
		// The clock stepped backwards; keep end >= start.
		session.End = session.Start
	}
	result.Closed = session

	for _, piece := range Split(session, l.loc) {
		result.Pieces = append(result.Pieces, PlacedSession{
			Session:   piece,
			Placement: l.fileLocked(piece),
		})
	}
	return result, true
}

func (l *Ledger) fileLocked(piece WorkSession) Placement {
	if len(l.periods) > 0 && piece.StartDate(l.loc) == l.periods[0].Start() {
		if !l.periods[0].Contains(piece) {
			l.periods[0] = l.periods[0].withSession(piece)
		}
		return PlacedInLatestPeriod
	}
	l.pool = append(l.pool, piece)
	return PlacedInPool
}

// =============================================================================
// QUERIES
// =============================================================================

// IsClockedIn reports whether id has an open session.
func (l *Ledger) IsClockedIn(id generic.EmployeeID) bool {
	_, ok := l.OpenSession(id)
	return ok
}

// OpenSession returns the open session of id, if any.
func (l *Ledger) OpenSession(id generic.EmployeeID) (WorkSession, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.open[id]
	return s, ok
}

// OpenSessionDuration returns how long id has been clocked in. A missing
// session is reported as false, never as an error.
func (l *Ledger) OpenSessionDuration(id generic.EmployeeID) (time.Duration, bool) {
	s, ok := l.OpenSession(id)
	if !ok {
		return 0, false
	}
	return s.Elapsed(l.Now()), true
}

// OpenSessions returns all open sessions ordered by employee id.
func (l *Ledger) OpenSessions() []WorkSession {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.openSortedLocked()
}

func (l *Ledger) openSortedLocked() []WorkSession {
	out := make([]WorkSession, 0, len(l.open))
	for _, s := range l.open {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

// Unassigned returns a copy of the pool in filing order.
func (l *Ledger) Unassigned() []WorkSession {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]WorkSession, len(l.pool))
	copy(out, l.pool)
	return out
}

// Periods returns the finalized periods, newest first.
func (l *Ledger) Periods() []*PayPeriod {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*PayPeriod, len(l.periods))
	copy(out, l.periods)
	return out
}

// Period returns the period at index (0 is the latest).
func (l *Ledger) Period(index int) (*PayPeriod, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.periods) {
		return nil, fmt.Errorf("period %d: %w", index, generic.ErrPeriodNotFound)
	}
	return l.periods[index], nil
}

// Latest returns the most recently finalized period.
func (l *Ledger) Latest() (*PayPeriod, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.periods) == 0 {
		return nil, false
	}
	return l.periods[0], true
}

// =============================================================================
// FINALIZATION
// =============================================================================

type finalizeOptions struct {
	withinRangeOnly bool
}

// FinalizeOption tunes FinalizePeriod.
type FinalizeOption func(*finalizeOptions)

// WithinRangeOnly keeps pool sessions whose start date falls outside
// [start, end] in the pool instead of moving them into the new period.
func WithinRangeOnly() FinalizeOption {
	return func(o *finalizeOptions) { o.withinRangeOnly = true }
}

// FinalizePeriod creates a pay period from the pool and makes it the latest.
//
// Returns *generic.DuplicatePeriodError if end equals the latest period's end
// date, and generic.ErrInvalidPeriod if end is before start. Both leave the
// ledger unchanged.
func (l *Ledger) FinalizePeriod(start, end generic.Date, opts ...FinalizeOption) (*PayPeriod, error) {
	var o finalizeOptions
	for _, opt := range opts {
		opt(&o)
	}

	rng := generic.DateRange{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return nil, fmt.Errorf("finalize %s: %w", rng, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.periods) > 0 && l.periods[0].End() == end {
		return nil, &generic.DuplicatePeriodError{End: end}
	}

	take, keep := l.pool, []WorkSession(nil)
	if o.withinRangeOnly {
		take = nil
		for _, s := range l.pool {
			if rng.Contains(s.StartDate(l.loc)) {
				take = append(take, s)
			} else {
				keep = append(keep, s)
			}
		}
	}

	period := NewPayPeriod(rng, l.loc, take)
	l.periods = append([]*PayPeriod{period}, l.periods...)
	l.pool = keep
	return period, nil
}
