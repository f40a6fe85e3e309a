/*
Package generic provides the domain-agnostic primitives of the time-accounting engine.

PURPOSE:
  Calendar days, day ranges, reference-zone boundaries and decimal quantities
  are shared by the ledger (worklog) and the pay rules (payroll). Nothing in
  here knows about clocking in or about salaries.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID: Type-safe identifier for whoever is clocking in
  - Hours: Decimal hours derived from durations
  - Money: Decimal amounts rounded to cents

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 4.5h * $20 is exactly $90
  2. Type Safety: Strong typing for IDs
  3. Rounding only at the edges: rates on construction, pay on output

SEE ALSO:
  - time.go: Date and reference zone helpers
  - period.go: DateRange and PeriodCalendar
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// =============================================================================
// QUANTITIES
// =============================================================================

var (
	secondsPerHour = decimal.NewFromInt(3600)
	// FortyHours is the weekly threshold used by both pay strategies.
	FortyHours = decimal.NewFromInt(40)
)

// HoursFromSeconds converts whole seconds into decimal hours.
func HoursFromSeconds(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(secondsPerHour)
}

// Hours converts a duration into decimal hours at second precision.
func Hours(d time.Duration) decimal.Decimal {
	return HoursFromSeconds(int64(d / time.Second))
}

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
