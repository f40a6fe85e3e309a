package generic

import "time"

// =============================================================================
// DATE RANGE - Inclusive [Start, End] span of calendar days
// =============================================================================

// DateRange is an inclusive span of calendar days.
// A pay period covers one DateRange; a zero-length range (Start == End) is one day.
type DateRange struct {
	Start Date
	End   Date
}

// Validate rejects ranges whose end falls before their start.
func (r DateRange) Validate() error {
	if r.End.Before(r.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if d is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Len is End - Start in days. A range with Start == End has Len 0 and one day.
func (r DateRange) Len() int { return DaysBetween(r.Start, r.End) }

// Days returns every day in the range in order.
func (r DateRange) Days() []Date {
	days := make([]Date, 0, r.Len()+1)
	for current := r.Start; current.BeforeOrEqual(r.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Window returns the instants [start of Start, start of End+1) in loc.
func (r DateRange) Window(loc *time.Location) (from, to time.Time) {
	return r.Start.StartIn(loc), r.End.AddDays(1).StartIn(loc)
}

// Next returns the contiguous range of the same length following this one.
func (r DateRange) Next() DateRange {
	start := r.End.AddDays(1)
	return DateRange{Start: start, End: start.AddDays(r.Len())}
}

// String returns a string representation of the range.
func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// PERIOD CALENDAR - Fixed-length contiguous periods from an anchor
// =============================================================================

// PeriodCalendar lays out contiguous periods of LengthDays days starting at Anchor.
type PeriodCalendar struct {
	Anchor     Date
	LengthDays int
}

// RangeFor returns the period that contains d. Dates before the anchor
// resolve to the first period.
func (pc PeriodCalendar) RangeFor(d Date) DateRange {
	length := pc.LengthDays
	if length <= 0 {
		length = 1
	}
	offset := DaysBetween(pc.Anchor, d)
	if offset < 0 {
		offset = 0
	}
	start := pc.Anchor.AddDays(offset / length * length)
	return DateRange{Start: start, End: start.AddDays(length - 1)}
}

// LastCompleted returns the most recent period that ended strictly before d,
// or false if d is still inside the first period.
func (pc PeriodCalendar) LastCompleted(d Date) (DateRange, bool) {
	current := pc.RangeFor(d)
	if !current.Start.After(pc.Anchor) {
		return DateRange{}, false
	}
	end := current.Start.AddDays(-1)
	return DateRange{Start: end.AddDays(-(current.Len())), End: end}, true
}
