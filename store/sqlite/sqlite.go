/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the ledger state (worklog.StateStore) and the employee registry
  with each employee's pay strategy. The ledger itself stays in memory;
  this store is only touched at lifecycle points and by employee CRUD.

INTERFACES IMPLEMENTED:
  worklog.StateStore: SaveState / LoadState

KEY TABLES:
  open_sessions:   One row per clocked-in employee
  pay_periods:     Finalized periods, position 0 is the latest
  closed_sessions: Closed sessions; period_position NULL means the pool
  employees:       Employee records and their strategy (kind + rate)
  state_saves:     Audit row per SaveState, keyed by a random UUID

SAVE SEMANTICS:
  SaveState replaces the whole persisted ledger in one SQL transaction.
  A failed save leaves the previous state intact.

CONNECTIONS:
  The pool is limited to one connection so ":memory:" databases keep a
  single shared schema.

USAGE:
  store, err := sqlite.New("./data/payclock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := worklog.NewLedger()
  err = ledger.Load(ctx, store)

SEE ALSO:
  - worklog/state.go: State and the StateStore interface
  - store/jsonfile: Snapshot-file implementation
  - worklog/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/payroll"
	"github.com/warp/payclock/worklog"
)

// Store implements worklog.StateStore and the employee registry using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Open sessions (at most one per employee)
	CREATE TABLE IF NOT EXISTS open_sessions (
		employee_id TEXT PRIMARY KEY,
		start_unix INTEGER NOT NULL
	);

	-- Finalized pay periods
	CREATE TABLE IF NOT EXISTS pay_periods (
		position INTEGER PRIMARY KEY,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);

	-- Closed sessions, either in a period or in the unassigned pool
	CREATE TABLE IF NOT EXISTS closed_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		period_position INTEGER REFERENCES pay_periods(position) ON DELETE CASCADE,
		employee_id TEXT NOT NULL,
		start_unix INTEGER NOT NULL,
		end_unix INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_closed_sessions_period
		ON closed_sessions(period_position);

	-- Employees and their pay strategy
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		strategy_kind TEXT,
		strategy_rate TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Audit trail of state saves
	CREATE TABLE IF NOT EXISTS state_saves (
		id TEXT PRIMARY KEY,
		open_count INTEGER NOT NULL,
		unassigned_count INTEGER NOT NULL,
		period_count INTEGER NOT NULL,
		saved_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STATE STORE (worklog.StateStore interface)
// =============================================================================

// SaveState replaces the persisted ledger state atomically.
func (s *Store) SaveState(ctx context.Context, state worklog.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, table := range []string{"closed_sessions", "pay_periods", "open_sessions"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, o := range state.OpenSessions {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO open_sessions (employee_id, start_unix) VALUES (?, ?)",
			string(o.EmployeeID), o.Start.Unix(),
		); err != nil {
			return fmt.Errorf("failed to save open session of %s: %w", o.EmployeeID, err)
		}
	}

	if err := insertClosed(ctx, sqlTx, sql.NullInt64{}, state.Unassigned); err != nil {
		return err
	}

	for i, p := range state.Periods {
		if _, err := sqlTx.ExecContext(ctx,
			"INSERT INTO pay_periods (position, start_date, end_date) VALUES (?, ?, ?)",
			i, p.Range.Start.String(), p.Range.End.String(),
		); err != nil {
			return fmt.Errorf("failed to save pay period %s: %w", p.Range, err)
		}
		if err := insertClosed(ctx, sqlTx, sql.NullInt64{Int64: int64(i), Valid: true}, p.Sessions); err != nil {
			return err
		}
	}

	if _, err := sqlTx.ExecContext(ctx, `
		INSERT INTO state_saves (id, open_count, unassigned_count, period_count, saved_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(),
		len(state.OpenSessions), len(state.Unassigned), len(state.Periods),
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to record save: %w", err)
	}

	return sqlTx.Commit()
}

func insertClosed(ctx context.Context, tx *sql.Tx, period sql.NullInt64, sessions []worklog.WorkSession) error {
	for _, ws := range sessions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO closed_sessions (period_position, employee_id, start_unix, end_unix)
			VALUES (?, ?, ?, ?)`,
			period, string(ws.EmployeeID), ws.Start.Unix(), ws.End.Unix(),
		); err != nil {
			return fmt.Errorf("failed to save session of %s: %w", ws.EmployeeID, err)
		}
	}
	return nil
}

// LoadState returns the persisted ledger state. An empty database yields an
// empty state.
func (s *Store) LoadState(ctx context.Context) (worklog.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := worklog.State{
		OpenSessions: []worklog.WorkSession{},
		Unassigned:   []worklog.WorkSession{},
		Periods:      []worklog.PeriodState{},
	}

	rows, err := s.db.QueryContext(ctx, "SELECT employee_id, start_unix FROM open_sessions ORDER BY employee_id")
	if err != nil {
		return worklog.State{}, fmt.Errorf("failed to query open sessions: %w", err)
	}
	for rows.Next() {
		var id string
		var start int64
		if err := rows.Scan(&id, &start); err != nil {
			rows.Close()
			return worklog.State{}, err
		}
		state.OpenSessions = append(state.OpenSessions, worklog.WorkSession{
			EmployeeID: generic.EmployeeID(id),
			Start:      time.Unix(start, 0).UTC(),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return worklog.State{}, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT position, start_date, end_date FROM pay_periods ORDER BY position")
	if err != nil {
		return worklog.State{}, fmt.Errorf("failed to query pay periods: %w", err)
	}
	byPosition := map[int64]int{}
	for rows.Next() {
		var pos int64
		var start, end string
		if err := rows.Scan(&pos, &start, &end); err != nil {
			rows.Close()
			return worklog.State{}, err
		}
		rng, err := parseRange(start, end)
		if err != nil {
			rows.Close()
			return worklog.State{}, fmt.Errorf("pay period %d: %w", pos, err)
		}
		byPosition[pos] = len(state.Periods)
		state.Periods = append(state.Periods, worklog.PeriodState{Range: rng, Sessions: []worklog.WorkSession{}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return worklog.State{}, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT period_position, employee_id, start_unix, end_unix
		FROM closed_sessions
		ORDER BY id`)
	if err != nil {
		return worklog.State{}, fmt.Errorf("failed to query closed sessions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var period sql.NullInt64
		var id string
		var start, end int64
		if err := rows.Scan(&period, &id, &start, &end); err != nil {
			return worklog.State{}, err
		}
		ws := worklog.WorkSession{
			EmployeeID: generic.EmployeeID(id),
			Start:      time.Unix(start, 0).UTC(),
			End:        time.Unix(end, 0).UTC(),
		}
		if !period.Valid {
			state.Unassigned = append(state.Unassigned, ws)
			continue
		}
		idx, ok := byPosition[period.Int64]
		if !ok {
			return worklog.State{}, &generic.SnapshotError{
				Field:  fmt.Sprintf("closed_sessions.period_position=%d", period.Int64),
				Reason: "unknown pay period",
			}
		}
		state.Periods[idx].Sessions = append(state.Periods[idx].Sessions, ws)
	}
	return state, rows.Err()
}

func parseRange(start, end string) (generic.DateRange, error) {
	s, err := generic.ParseDate(start)
	if err != nil {
		return generic.DateRange{}, err
	}
	e, err := generic.ParseDate(end)
	if err != nil {
		return generic.DateRange{}, err
	}
	return generic.DateRange{Start: s, End: e}, nil
}

// SaveRecord is one audit row written by SaveState.
type SaveRecord struct {
	ID              string
	OpenCount       int
	UnassignedCount int
	PeriodCount     int
	SavedAt         time.Time
}

// LastSave returns the most recent save record, or nil if nothing was saved yet.
func (s *Store) LastSave(ctx context.Context) (*SaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r SaveRecord
	var savedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, open_count, unassigned_count, period_count, saved_at
		FROM state_saves
		ORDER BY saved_at DESC, rowid DESC
		LIMIT 1`,
	).Scan(&r.ID, &r.OpenCount, &r.UnassignedCount, &r.PeriodCount, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
	return &r, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee represents an employee record. Strategy is nil until one is set.
type Employee struct {
	ID        string
	Name      string
	Strategy  *payroll.Strategy
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveEmployee inserts or updates an employee, including its strategy.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, rate := strategyColumns(emp.Strategy)
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO employees (id, name, strategy_kind, strategy_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			strategy_kind = excluded.strategy_kind,
			strategy_rate = excluded.strategy_rate,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query, emp.ID, emp.Name, kind, rate, now, now)
	if err != nil {
		return fmt.Errorf("failed to save employee %s: %w", emp.ID, err)
	}
	return nil
}

// SetStrategy replaces the strategy of an existing employee.
func (s *Store) SetStrategy(ctx context.Context, id string, strategy payroll.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, rate := strategyColumns(&strategy)
	res, err := s.db.ExecContext(ctx,
		"UPDATE employees SET strategy_kind = ?, strategy_rate = ?, updated_at = ? WHERE id = ?",
		kind, rate, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set strategy of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %s: %w", id, generic.ErrEmployeeNotFound)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, strategy_kind, strategy_rate, created_at, updated_at FROM employees WHERE id = ?",
		id,
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", id, generic.ErrEmployeeNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, strategy_kind, strategy_rate, created_at, updated_at FROM employees ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// Strategies returns the strategy of every employee that has one.
func (s *Store) Strategies(ctx context.Context) (map[generic.EmployeeID]payroll.Strategy, error) {
	employees, err := s.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[generic.EmployeeID]payroll.Strategy, len(employees))
	for _, emp := range employees {
		if emp.Strategy != nil {
			out[generic.EmployeeID(emp.ID)] = *emp.Strategy
		}
	}
	return out, nil
}

// DeleteEmployee removes an employee record. Ledger sessions are kept.
func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %s: %w", id, generic.ErrEmployeeNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var emp Employee
	var kind, rate sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&emp.ID, &emp.Name, &kind, &rate, &createdAt, &updatedAt); err != nil {
		return Employee{}, err
	}
	if kind.Valid {
		k, err := payroll.ParseKind(kind.String)
		if err != nil {
			return Employee{}, fmt.Errorf("employee %s: %w", emp.ID, err)
		}
		r, err := decimal.NewFromString(rate.String)
		if err != nil {
			return Employee{}, fmt.Errorf("employee %s: bad rate %q: %w", emp.ID, rate.String, err)
		}
		emp.Strategy = &payroll.Strategy{Kind: k, Rate: r}
	}
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	emp.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return emp, nil
}

func strategyColumns(st *payroll.Strategy) (kind, rate sql.NullString) {
	if st == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return nullString(string(st.Kind)), nullString(st.Rate.String())
}

// =============================================================================
// UTILITIES
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
