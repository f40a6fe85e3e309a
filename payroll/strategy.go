/*
strategy.go - The two fixed compensation rules

PURPOSE:
  A Strategy is a tagged value {Kind, Rate}. Calculate dispatches on Kind.
  Changing an employee's rate means building a new Strategy (WithRate);
  a Strategy is never edited in place.

HOURLY (Rate = pay per hour):
  Day pass:  every day's hours count once. A day that is the employee's
             10th or later consecutive worked day (a zero-hour day resets
             the streak) counts an extra 1.5x.
  Week pass: hours above 40 in a week count an extra 0.5x.
  The passes are independent and additive. Pay = total weighted hours * Rate.

  Example: $20/h, 2h + 2h + 8h + 4.5h on three days, no streak, no 40h week:
    16.5 * 20 = $330.00

SALARIED (Rate = annual salary):
  Daily rate = round(Rate / 365, 2). Start from DaysInPeriod days and, for
  every week under 40 hours, deduct floor(floor(40 - hours) / 8) + 1 days.
  Pay = days * daily rate. Days are not floored at zero, so enough short
  weeks produce negative pay.

  Example: $100,000/year -> $273.97/day; a 20h week deducts 3 days.

ROUNDING:
  Rates are rounded to cents on construction and pay is rounded to cents on
  output. Intermediate sums keep full precision.
*/
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
)

// Kind tags a Strategy.
type Kind string

const (
	KindHourly   Kind = "hourly"
	KindSalaried Kind = "salaried"
)

// ParseKind validates a strategy kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindHourly, KindSalaried:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%q: %w", s, generic.ErrUnknownStrategy)
}

// Strategy is a pay rule and its single rate.
type Strategy struct {
	Kind Kind
	Rate decimal.Decimal
}

// Days beyond this many consecutive worked days earn the streak premium.
const consecutiveDayLimit = 9

var (
	streakPremium = decimal.NewFromFloat(1.5)
	weeklyPremium = decimal.NewFromFloat(0.5)
	daysPerYear   = decimal.NewFromInt(365)
	hoursPerDay   = decimal.NewFromInt(8)
)

// NewStrategy validates kind and rate and rounds the rate to cents.
func NewStrategy(kind Kind, rate decimal.Decimal) (Strategy, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Strategy{}, err
	}
	if rate.IsNegative() {
		return Strategy{}, fmt.Errorf("%s rate %s: %w", kind, rate, generic.ErrNegativeRate)
	}
	return Strategy{Kind: kind, Rate: generic.RoundMoney(rate)}, nil
}

// Hourly builds an hourly strategy. Negative rates are clamped to zero; use
// NewStrategy to have them rejected instead.
func Hourly(ratePerHour decimal.Decimal) Strategy {
	return mustStrategy(KindHourly, ratePerHour)
}

// Salaried builds a salaried strategy. Negative salaries are clamped to zero;
// use NewStrategy to have them rejected instead.
func Salaried(annualSalary decimal.Decimal) Strategy {
	return mustStrategy(KindSalaried, annualSalary)
}

func mustStrategy(kind Kind, rate decimal.Decimal) Strategy {
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	s, _ := NewStrategy(kind, rate)
	return s
}

// WithRate returns a new strategy of the same kind with rate.
func (s Strategy) WithRate(rate decimal.Decimal) (Strategy, error) {
	return NewStrategy(s.Kind, rate)
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, s.Rate.StringFixed(2))
}

// =============================================================================
// CALCULATION
// =============================================================================

// Calculate returns what id is owed for period under s, rounded to cents.
// Unknown kinds pay zero.
func Calculate(s Strategy, period *worklog.PayPeriod, id generic.EmployeeID) decimal.Decimal {
	switch s.Kind {
	case KindHourly:
		return hourlyPay(s.Rate, period, id)
	case KindSalaried:
		return salariedPay(s.Rate, period, id)
	}
	return decimal.Zero
}

func hourlyPay(rate decimal.Decimal, period *worklog.PayPeriod, id generic.EmployeeID) decimal.Decimal {
	weighted := decimal.Zero

	consecutive := 0
	for _, hours := range period.HoursByDay(id) {
		if hours.IsZero() {
			consecutive = 0
		} else {
			consecutive++
		}
		if consecutive > consecutiveDayLimit {
			weighted = weighted.Add(hours.Mul(streakPremium))
		}
		weighted = weighted.Add(hours)
	}

	for _, hours := range period.HoursByWeek(id) {
		if hours.GreaterThan(generic.FortyHours) {
			weighted = weighted.Add(hours.Sub(generic.FortyHours).Mul(weeklyPremium))
		}
	}

	return generic.RoundMoney(weighted.Mul(rate))
}

// DailyRate is the annual salary spread over 365 days, rounded to cents.
func DailyRate(annualSalary decimal.Decimal) decimal.Decimal {
	return generic.RoundMoney(annualSalary.Div(daysPerYear))
}

// PaidDays is the number of salaried days owed for period after short-week
// deductions. It can be negative.
func PaidDays(period *worklog.PayPeriod, id generic.EmployeeID) int64 {
	days := int64(period.DaysInPeriod())
	for _, hours := range period.HoursByWeek(id) {
		if hours.LessThan(generic.FortyHours) {
			shortfall := generic.FortyHours.Sub(hours).Floor()
			days -= shortfall.Div(hoursPerDay).Floor().IntPart() + 1
		}
	}
	return days
}

func salariedPay(annual decimal.Decimal, period *worklog.PayPeriod, id generic.EmployeeID) decimal.Decimal {
	days := decimal.NewFromInt(PaidDays(period, id))
	return generic.RoundMoney(days.Mul(DailyRate(annual)))
}
