/*
Package factory converts between JSON documents and domain values.

PURPOSE:
  Pay strategies and ledger snapshots are stored and exchanged as JSON.
  The factory owns those JSON shapes so the domain packages never see a
  struct tag.

STRATEGY JSON:
  {"kind": "hourly",   "rate": "20.00"}
  {"kind": "salaried", "rate": 100000}

  rate accepts a JSON number or a decimal string. It is written back as a
  string so cents are never lost to float formatting.

USAGE:
  f := factory.NewStrategyFactory()
  s, err := f.ParseStrategy(`{"kind":"hourly","rate":20}`)

SEE ALSO:
  - payroll/strategy.go: Strategy and the pay rules
  - factory/snapshot.go: Ledger snapshot encoding
*/
package factory

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/warp/payclock/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// StrategyJSON is the JSON representation of a pay strategy.
type StrategyJSON struct {
	Kind string           `json:"kind"`
	Rate *decimal.Decimal `json:"rate"`
}

// =============================================================================
// FACTORY
// =============================================================================

// StrategyFactory builds payroll strategies from JSON.
type StrategyFactory struct{}

func NewStrategyFactory() *StrategyFactory {
	return &StrategyFactory{}
}

// ParseStrategy parses a JSON string into a Strategy.
func (f *StrategyFactory) ParseStrategy(jsonStr string) (payroll.Strategy, error) {
	var sj StrategyJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return payroll.Strategy{}, fmt.Errorf("failed to parse strategy JSON: %w", err)
	}
	return f.FromJSON(sj)
}

// FromJSON validates sj and converts it. A missing rate is rejected; a
// negative rate returns generic.ErrNegativeRate.
func (f *StrategyFactory) FromJSON(sj StrategyJSON) (payroll.Strategy, error) {
	kind, err := payroll.ParseKind(sj.Kind)
	if err != nil {
		return payroll.Strategy{}, err
	}
	if sj.Rate == nil {
		return payroll.Strategy{}, fmt.Errorf("strategy %s: rate is required", kind)
	}
	return payroll.NewStrategy(kind, *sj.Rate)
}

// ToJSON converts a Strategy to its JSON representation.
func (f *StrategyFactory) ToJSON(s payroll.Strategy) StrategyJSON {
	rate := s.Rate
	return StrategyJSON{Kind: string(s.Kind), Rate: &rate}
}
