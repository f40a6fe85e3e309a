// Package worklog tracks clocked work sessions and rolls them into pay periods.
//
// A WorkSession is opened on clock-in and closed on clock-out. Closed sessions
// that cross midnight in the ledger's reference zone are split into one piece
// per calendar day. Pieces wait in the unassigned pool until a pay period is
// finalized, at which point the period takes ownership of them.
package worklog

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payclock/generic"
)

// =============================================================================
// WORK SESSION - One contiguous clocked-in interval
// =============================================================================

// WorkSession is one contiguous interval an employee was clocked in.
// A zero End means the session is still open.
//
// Sessions compare by value: two sessions with the same employee, start and
// end (at second precision) are the same session.
type WorkSession struct {
	EmployeeID generic.EmployeeID
	Start      time.Time
	End        time.Time
}

// IsOpen reports whether the session has not been clocked out yet.
func (s WorkSession) IsOpen() bool { return s.End.IsZero() }

// Seconds returns (end or now) - start in whole seconds.
func (s WorkSession) Seconds(now time.Time) int64 {
	if s.IsOpen() {
		return now.Unix() - s.Start.Unix()
	}
	return s.End.Unix() - s.Start.Unix()
}

// Elapsed is Seconds as a time.Duration.
func (s WorkSession) Elapsed(now time.Time) time.Duration {
	return time.Duration(s.Seconds(now)) * time.Second
}

// Hours returns the session length in decimal hours. Open sessions are
// measured up to now.
func (s WorkSession) Hours(now time.Time) decimal.Decimal {
	return generic.Hours(s.Elapsed(now))
}

// StartDate is the calendar day the session starts on in loc.
func (s WorkSession) StartDate(loc *time.Location) generic.Date {
	return generic.DateOf(s.Start, loc)
}

// Equal compares the (employee, start, end) triple at second precision.
func (s WorkSession) Equal(other WorkSession) bool {
	return s.key() == other.key()
}

type sessionKey struct {
	employee generic.EmployeeID
	start    int64
	end      int64
	open     bool
}

func (s WorkSession) key() sessionKey {
	k := sessionKey{employee: s.EmployeeID, start: s.Start.Unix(), open: s.IsOpen()}
	if !k.open {
		k.end = s.End.Unix()
	}
	return k
}

// =============================================================================
// SESSION SPLITTER - Cut closed sessions at midnight
// =============================================================================

// Split cuts a closed session at every midnight it crosses in loc.
//
// The first piece keeps the original start and ends at the start of the next
// day; each following piece starts at a midnight; the last piece keeps the
// original end. A session that starts and ends on the same day is returned
// unchanged as the only element. Open sessions are returned unchanged.
func Split(s WorkSession, loc *time.Location) []WorkSession {
	if s.IsOpen() || !s.End.After(s.Start) || generic.SameDay(s.Start, s.End, loc) {
		return []WorkSession{s}
	}

	var pieces []WorkSession
	current := s
	for !generic.SameDay(current.Start, current.End, loc) {
		midnight := generic.StartOfNextDay(current.Start, loc)
		pieces = append(pieces, WorkSession{EmployeeID: s.EmployeeID, Start: current.Start, End: midnight})
		current = WorkSession{EmployeeID: s.EmployeeID, Start: midnight, End: s.End}
	}
	return append(pieces, current)
}
