package worklog

import (
	"context"
	"fmt"

	"github.com/warp/payclock/generic"
)

// =============================================================================
// STATE - Everything a persistence layer needs to round-trip the ledger
// =============================================================================

// State is a full copy of the ledger's collections.
type State struct {
	OpenSessions []WorkSession
	Unassigned   []WorkSession
	Periods      []PeriodState // newest first
}

// PeriodState is the persisted shape of a PayPeriod.
type PeriodState struct {
	Range    generic.DateRange
	Sessions []WorkSession
}

// StateStore persists ledger state. It is only called at lifecycle points
// (startup, shutdown, explicit save/load), never during a calculation.
type StateStore interface {
	SaveState(ctx context.Context, state State) error
	LoadState(ctx context.Context) (State, error)
}

// Export returns a copy of the ledger state. Open sessions are ordered by
// employee id so two exports of the same ledger are identical.
func (l *Ledger) Export() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := State{
		OpenSessions: l.openSortedLocked(),
		Unassigned:   append([]WorkSession{}, l.pool...),
		Periods:      make([]PeriodState, len(l.periods)),
	}
	for i, p := range l.periods {
		state.Periods[i] = PeriodState{Range: p.Range(), Sessions: p.Sessions()}
	}
	return state
}

// Import replaces the ledger state with state. A malformed state is rejected
// with a *generic.SnapshotError and the ledger keeps its previous contents.
func (l *Ledger) Import(state State) error {
	open := make(map[generic.EmployeeID]WorkSession, len(state.OpenSessions))
	for i, s := range state.OpenSessions {
		field := fmt.Sprintf("openSessions[%d]", i)
		if s.EmployeeID == "" {
			return generic.MissingField(field + ".employeeId")
		}
		if s.Start.IsZero() {
			return generic.MissingField(field + ".start")
		}
		if !s.IsOpen() {
			return &generic.SnapshotError{Field: field + ".end", Reason: "open session has an end"}
		}
		if _, dup := open[s.EmployeeID]; dup {
			return fmt.Errorf("%w: %w", &generic.SnapshotError{Field: field, Reason: "employee " + string(s.EmployeeID) + " clocked in twice"}, generic.ErrDuplicateOpenSession)
		}
		open[s.EmployeeID] = s
	}

	for i, s := range state.Unassigned {
		if err := validateClosed(fmt.Sprintf("unassignedSessions[%d]", i), s); err != nil {
			return err
		}
	}

	periods := make([]*PayPeriod, len(state.Periods))
	for i, ps := range state.Periods {
		field := fmt.Sprintf("payPeriods[%d]", i)
		if ps.Range.Start.IsZero() {
			return generic.MissingField(field + ".start")
		}
		if ps.Range.End.IsZero() {
			return generic.MissingField(field + ".end")
		}
		for j, s := range ps.Sessions {
			if err := validateClosed(fmt.Sprintf("%s.sessions[%d]", field, j), s); err != nil {
				return err
			}
		}
		periods[i] = NewPayPeriod(ps.Range, l.loc, ps.Sessions)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = open
	l.pool = append([]WorkSession{}, state.Unassigned...)
	l.periods = periods
	return nil
}

func validateClosed(field string, s WorkSession) error {
	switch {
	case s.EmployeeID == "":
		return generic.MissingField(field + ".employeeId")
	case s.Start.IsZero():
		return generic.MissingField(field + ".start")
	case s.IsOpen():
		return generic.MissingField(field + ".end")
	case s.End.Before(s.Start):
		return &generic.SnapshotError{Field: field + ".end", Reason: "end before start"}
	}
	return nil
}

// Load replaces the ledger state with the one held by store.
func (l *Ledger) Load(ctx context.Context, store StateStore) error {
	state, err := store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	return l.Import(state)
}

// Save writes the current ledger state to store.
func (l *Ledger) Save(ctx context.Context, store StateStore) error {
	if err := store.SaveState(ctx, l.Export()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
