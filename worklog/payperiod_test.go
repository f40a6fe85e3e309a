package worklog_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
)

func period(start, end string, sessions ...worklog.WorkSession) *worklog.PayPeriod {
	rng := generic.DateRange{Start: date(start), End: date(end)}
	return worklog.NewPayPeriod(rng, time.UTC, sessions)
}

func hours(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func assertHours(t *testing.T, expected, actual []decimal.Decimal) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.True(t, expected[i].Equal(actual[i]), "entry %d: expected %s, got %s", i, expected[i], actual[i])
	}
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewPayPeriod_CollapsesDuplicatesAndDropsOpen(t *testing.T) {
	s := session("alice", jan(1, 9, 0), jan(1, 17, 0))

	p := period("2024-01-01", "2024-01-14",
		s, s,
		session("bob", jan(1, 9, 0), time.Time{}),
	)

	require.Len(t, p.Sessions(), 1)
	assert.True(t, p.Contains(s))
	assert.Equal(t, []generic.EmployeeID{"alice"}, p.Employees())
	assert.Equal(t, 13, p.DaysInPeriod())
}

func TestPayPeriod_SessionsIsACopy(t *testing.T) {
	p := period("2024-01-01", "2024-01-14", session("alice", jan(1, 9, 0), jan(1, 17, 0)))

	got := p.Sessions()
	got[0].EmployeeID = "mallory"

	assert.Equal(t, generic.EmployeeID("alice"), p.Sessions()[0].EmployeeID)
}

func TestPayPeriod_EmployeesSorted(t *testing.T) {
	p := period("2024-01-01", "2024-01-14",
		session("carol", jan(1, 9, 0), jan(1, 10, 0)),
		session("alice", jan(2, 9, 0), jan(2, 10, 0)),
		session("carol", jan(3, 9, 0), jan(3, 10, 0)),
	)

	assert.Equal(t, []generic.EmployeeID{"alice", "carol"}, p.Employees())
}

// =============================================================================
// HOURS BY DAY
// =============================================================================

func TestPayPeriod_HoursByDay(t *testing.T) {
	// GIVEN: alice works two shifts on Monday and one on Wednesday, plus a
	// session outside the period that was finalized wholesale
	p := period("2024-01-01", "2024-01-07",
		session("alice", jan(1, 9, 0), jan(1, 11, 0)),
		session("alice", jan(1, 13, 0), jan(1, 15, 0)),
		session("alice", jan(3, 9, 0), jan(3, 17, 0)),
		session("alice", jan(10, 9, 0), jan(10, 10, 0)),
		session("bob", jan(2, 9, 0), jan(2, 10, 0)),
	)

	// THEN: one entry per day, only days inside the period
	assertHours(t, hours(4, 0, 8, 0, 0, 0, 0), p.HoursByDay("alice"))
	assert.Len(t, p.HoursByDay("alice"), p.DaysInPeriod()+1)

	// AND: HoursWorked has no date filter
	assert.True(t, decimal.NewFromInt(13).Equal(p.HoursWorked("alice")))
}

func TestPayPeriod_HoursByDayIgnoresSessionsBeforeStart(t *testing.T) {
	p := period("2024-01-02", "2024-01-03",
		session("alice", jan(1, 9, 0), jan(1, 17, 0)),
		session("alice", jan(2, 9, 0), jan(2, 10, 0)),
	)

	assertHours(t, hours(1, 0), p.HoursByDay("alice"))
}

func TestPayPeriod_HoursByDayUnknownEmployee(t *testing.T) {
	p := period("2024-01-01", "2024-01-03")

	assertHours(t, hours(0, 0, 0), p.HoursByDay("nobody"))
	assert.True(t, p.HoursWorked("nobody").IsZero())
}

func TestPayPeriod_HoursByDayIsRestartable(t *testing.T) {
	p := period("2024-01-01", "2024-01-03", session("alice", jan(2, 9, 0), jan(2, 12, 0)))

	first := p.HoursByDay("alice")
	first[1] = decimal.NewFromInt(99)

	assertHours(t, hours(0, 3, 0), p.HoursByDay("alice"))
}

// =============================================================================
// HOURS BY WEEK
// =============================================================================

func TestPayPeriod_HoursByWeekClosesOnSunday(t *testing.T) {
	// GIVEN: Monday Jan 1 to Sunday Jan 14 contains two Sundays
	p := period("2024-01-01", "2024-01-14",
		session("alice", jan(1, 9, 0), jan(1, 13, 0)),
		session("alice", jan(7, 9, 0), jan(7, 10, 0)),
		session("alice", jan(8, 9, 0), jan(8, 14, 0)),
	)

	// THEN: two full weeks plus the trailing bucket
	assertHours(t, hours(5, 5, 0), p.HoursByWeek("alice"))
}

func TestPayPeriod_HoursByWeekWithoutSunday(t *testing.T) {
	p := period("2024-01-01", "2024-01-03",
		session("alice", jan(1, 9, 0), jan(1, 10, 0)),
		session("alice", jan(2, 9, 0), jan(2, 11, 0)),
		session("alice", jan(3, 9, 0), jan(3, 12, 0)),
	)

	assertHours(t, hours(6), p.HoursByWeek("alice"))
}

func TestPayPeriod_HoursByWeekPartialWeeks(t *testing.T) {
	// Wednesday Jan 3 to Tuesday Jan 9
	p := period("2024-01-03", "2024-01-09",
		session("alice", jan(4, 9, 0), jan(4, 11, 0)),
		session("alice", jan(9, 9, 0), jan(9, 12, 0)),
	)

	assertHours(t, hours(2, 3), p.HoursByWeek("alice"))
}

func TestPayPeriod_ZeroLengthPeriod(t *testing.T) {
	p := period("2024-01-01", "2024-01-01", session("alice", jan(1, 9, 0), jan(1, 12, 0)))

	assert.Equal(t, 0, p.DaysInPeriod())
	assertHours(t, hours(3), p.HoursByDay("alice"))
	assertHours(t, hours(3), p.HoursByWeek("alice"))
}
