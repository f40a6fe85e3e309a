// Package jsonfile stores the ledger state as a single snapshot document on disk.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/warp/payclock/factory"
	"github.com/warp/payclock/worklog"
)

// Store implements worklog.StateStore on top of one JSON file.
type Store struct {
	path      string
	mustExist bool
	mu        sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// MustExist makes LoadState fail when the file is missing instead of
// returning an empty state. Use it for paths a user typed.
func MustExist() Option {
	return func(s *Store) { s.mustExist = true }
}

func New(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// SaveState atomically writes the snapshot file.
func (s *Store) SaveState(_ context.Context, state worklog.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := factory.EncodeState(state)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// LoadState reads the snapshot file. A missing file is an empty state unless
// the store was built with MustExist.
func (s *Store) LoadState(_ context.Context) (worklog.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) && !s.mustExist {
		return worklog.State{
			OpenSessions: []worklog.WorkSession{},
			Unassigned:   []worklog.WorkSession{},
			Periods:      []worklog.PeriodState{},
		}, nil
	}
	if err != nil {
		return worklog.State{}, fmt.Errorf("read snapshot: %w", err)
	}
	return factory.DecodeState(data)
}
