// Package store provides StateStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/payclock/worklog"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps the last saved state in memory and counts saves.
type Memory struct {
	mu    sync.RWMutex
	state worklog.State
	saves int
}

func NewMemory() *Memory {
	return &Memory{}
}

// SaveState stores a deep copy of state.
func (m *Memory) SaveState(_ context.Context, state worklog.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = cloneState(state)
	m.saves++
	return nil
}

// LoadState returns a deep copy of the last saved state.
func (m *Memory) LoadState(_ context.Context) (worklog.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneState(m.state), nil
}

// Saves returns how many times SaveState was called.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func cloneState(s worklog.State) worklog.State {
	out := worklog.State{
		OpenSessions: append([]worklog.WorkSession{}, s.OpenSessions...),
		Unassigned:   append([]worklog.WorkSession{}, s.Unassigned...),
		Periods:      make([]worklog.PeriodState, len(s.Periods)),
	}
	for i, p := range s.Periods {
		out.Periods[i] = worklog.PeriodState{
			Range:    p.Range,
			Sessions: append([]worklog.WorkSession{}, p.Sessions...),
		}
	}
	return out
}
