package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day in the reference zone (year, month, day)
// =============================================================================

// Date is a calendar day with no time-of-day and no zone.
// Which instants belong to a Date depends on the reference location the
// caller resolves it in (see StartIn and DateOf).
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// NewDate normalizes overflowing components (Jan 32 -> Feb 1).
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf returns the calendar day t falls on in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	t = t.In(location(loc))
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) utc() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

// StartIn returns the first instant of d in loc. That is midnight, except in
// zones where a DST change skips midnight; there the day starts at the
// transition.
func (d Date) StartIn(loc *time.Location) time.Time {
	loc = location(loc)
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	if !DateOf(t, loc).Before(d) {
		return t
	}
	if _, end := t.ZoneBounds(); !end.IsZero() && DateOf(end, loc) == d {
		return end
	}
	for DateOf(t, loc).Before(d) {
		t = t.Truncate(time.Minute).Add(time.Minute)
	}
	return t
}

// EpochDay is the number of days since 1970-01-01.
func (d Date) EpochDay() int64 { return d.utc().Unix() / 86400 }

// Comparison
func (d Date) Before(other Date) bool        { return d.EpochDay() < other.EpochDay() }
func (d Date) After(other Date) bool         { return d.EpochDay() > other.EpochDay() }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return NewDate(d.Year, d.Month, d.Day+n) }

// Properties
func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }
func (d Date) IsZero() bool          { return d == Date{} }
func (d Date) String() string        { return d.utc().Format(dateLayout) }

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Date) int { return int(to.EpochDay() - from.EpochDay()) }

// =============================================================================
// REFERENCE ZONE
// =============================================================================

// StartOfNextDay returns the first instant of the calendar day after the one t
// falls on in loc. The result is always after t.
func StartOfNextDay(t time.Time, loc *time.Location) time.Time {
	return DateOf(t, loc).AddDays(1).StartIn(loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DateOf(a, loc) == DateOf(b, loc)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
