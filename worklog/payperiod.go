package worklog

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payclock/generic"
)

// =============================================================================
// PAY PERIOD - Finalized, dated bucket of closed sessions
// =============================================================================

// PayPeriod is a snapshot of closed sessions bounded by an inclusive date range.
//
// A PayPeriod value is never modified once built. When the ledger files a late
// clock-out into the latest period it swaps in a copy with the extra session,
// so a *PayPeriod obtained earlier keeps answering with the sessions it had.
type PayPeriod struct {
	rng      generic.DateRange
	loc      *time.Location
	sessions []WorkSession
	index    map[sessionKey]struct{}
}

// NewPayPeriod builds a period over rng. Duplicate sessions are collapsed and
// open sessions are dropped: a period only owns closed work.
func NewPayPeriod(rng generic.DateRange, loc *time.Location, sessions []WorkSession) *PayPeriod {
	if loc == nil {
		loc = time.UTC
	}
	p := &PayPeriod{
		rng:   rng,
		loc:   loc,
		index: make(map[sessionKey]struct{}, len(sessions)),
	}
	for _, s := range sessions {
		p.insert(s)
	}
	return p
}

func (p *PayPeriod) insert(s WorkSession) bool {
	if s.IsOpen() {
		return false
	}
	k := s.key()
	if _, exists := p.index[k]; exists {
		return false
	}
	p.index[k] = struct{}{}
	p.sessions = append(p.sessions, s)
	return true
}

// withSession returns a copy of p that also holds s.
func (p *PayPeriod) withSession(s WorkSession) *PayPeriod {
	next := NewPayPeriod(p.rng, p.loc, p.sessions)
	next.insert(s)
	return next
}

// Range returns the inclusive date range of the period.
func (p *PayPeriod) Range() generic.DateRange { return p.rng }
func (p *PayPeriod) Start() generic.Date      { return p.rng.Start }
func (p *PayPeriod) End() generic.Date        { return p.rng.End }

// Location is the reference zone the period resolves days in.
func (p *PayPeriod) Location() *time.Location { return p.loc }

// DaysInPeriod is End.EpochDay - Start.EpochDay.
func (p *PayPeriod) DaysInPeriod() int { return p.rng.Len() }

// Sessions returns a copy of the sessions owned by the period.
func (p *PayPeriod) Sessions() []WorkSession {
	out := make([]WorkSession, len(p.sessions))
	copy(out, p.sessions)
	return out
}

// Contains reports whether s is owned by the period.
func (p *PayPeriod) Contains(s WorkSession) bool {
	_, ok := p.index[s.key()]
	return ok
}

// Employees returns the distinct employees with sessions in the period, sorted.
func (p *PayPeriod) Employees() []generic.EmployeeID {
	seen := make(map[generic.EmployeeID]bool)
	var ids []generic.EmployeeID
	for _, s := range p.sessions {
		if !seen[s.EmployeeID] {
			seen[s.EmployeeID] = true
			ids = append(ids, s.EmployeeID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// =============================================================================
// AGGREGATION
// =============================================================================

// HoursWorked sums the hours of every session belonging to id, without any
// date filtering.
func (p *PayPeriod) HoursWorked(id generic.EmployeeID) decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.sessions {
		if s.EmployeeID == id {
			total = total.Add(s.Hours(s.End))
		}
	}
	return total
}

// HoursByDay returns one entry per day from Start to End inclusive
// (DaysInPeriod()+1 entries). Each entry sums the sessions of id that start on
// that day and overlap the period window. Recomputed on every call.
func (p *PayPeriod) HoursByDay(id generic.EmployeeID) []decimal.Decimal {
	from, to := p.rng.Window(p.loc)
	days := p.rng.Days()
	byEpochDay := make(map[int64]int, len(days))
	for i, d := range days {
		byEpochDay[d.EpochDay()] = i
	}

	hours := make([]decimal.Decimal, len(days))
	for i := range hours {
		hours[i] = decimal.Zero
	}
	for _, s := range p.sessions {
		if s.EmployeeID != id {
			continue
		}
		if !s.End.After(from) || !s.Start.Before(to) {
			continue
		}
		i, ok := byEpochDay[s.StartDate(p.loc).EpochDay()]
		if !ok {
			continue
		}
		hours[i] = hours[i].Add(s.Hours(s.End))
	}
	return hours
}

// HoursByWeek folds HoursByDay into weeks that close on every Sunday. The
// trailing bucket is always appended, so the result has one entry per Sunday
// in the period plus one.
func (p *PayPeriod) HoursByWeek(id generic.EmployeeID) []decimal.Decimal {
	days := p.rng.Days()
	byDay := p.HoursByDay(id)

	var weeks []decimal.Decimal
	week := decimal.Zero
	for i, h := range byDay {
		week = week.Add(h)
		if days[i].Weekday() == time.Sunday {
			weeks = append(weeks, week)
			week = decimal.Zero
		}
	}
	return append(weeks, week)
}
