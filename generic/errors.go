/*
errors.go - Centralized error types for the time-accounting engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Ledger errors - period finalization, snapshot import
  2. Validation errors - malformed rates, ranges, strategies
  3. Lookup errors - missing employees, periods

WHAT IS NOT AN ERROR:
  Duplicate clock-in and clock-out without an open session are guarded
  no-ops. They are reported through return values, never through errors.

USAGE:
  if errors.Is(err, generic.ErrDuplicatePeriod) {
      // latest period already ends on that date
  }

SEE ALSO:
  - worklog/ledger.go: Finalization and import
  - factory/snapshot.go: Snapshot decoding
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicatePeriod is returned when finalizing a period whose end date
	// equals the latest finalized period's end date.
	ErrDuplicatePeriod = errors.New("duplicate pay period")

	// ErrInvalidSnapshot is returned when a persisted snapshot is malformed.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrDuplicateOpenSession is returned when a snapshot holds two open
	// sessions for the same employee.
	ErrDuplicateOpenSession = errors.New("duplicate open session")

	// ErrNegativeRate is returned when a pay strategy is built with a negative rate.
	ErrNegativeRate = errors.New("rate must not be negative")

	// ErrUnknownStrategy is returned for a pay strategy kind that does not exist.
	ErrUnknownStrategy = errors.New("unknown pay strategy")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrEmployeeClockedIn is returned when removing an employee who still
	// has an open session.
	ErrEmployeeClockedIn = errors.New("employee is clocked in")

	// ErrPeriodNotFound is returned when a period index is out of range.
	ErrPeriodNotFound = errors.New("pay period not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicatePeriodError names the end date that was already finalized.
type DuplicatePeriodError struct {
	End Date
}

func (e *DuplicatePeriodError) Error() string {
	return fmt.Sprintf("pay period ending %s already finalized", e.End)
}

func (e *DuplicatePeriodError) Unwrap() error {
	return ErrDuplicatePeriod
}

// SnapshotError describes which part of a snapshot could not be used.
type SnapshotError struct {
	Field  string // e.g. "payPeriods[2].start"
	Reason string
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("invalid snapshot: %s: %s", e.Field, e.Reason)
}

func (e *SnapshotError) Unwrap() error {
	return ErrInvalidSnapshot
}

// MissingField builds a SnapshotError for a required field that is absent.
func MissingField(field string) *SnapshotError {
	return &SnapshotError{Field: field, Reason: "required field missing"}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDuplicatePeriod) ||
		errors.Is(err, ErrInvalidSnapshot) ||
		errors.Is(err, ErrDuplicateOpenSession) ||
		errors.Is(err, ErrNegativeRate) ||
		errors.Is(err, ErrUnknownStrategy) ||
		errors.Is(err, ErrEmployeeClockedIn) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrPeriodNotFound)
}
