// Package pairs implements the sequential mean-reversion pairs backtest: a
// periodically refitted hedge ratio, a normalized spread signal, a discrete
// position state machine, and a compounding cash ledger with transaction
// costs.
//
// Every date is processed strictly after the previous one and reads only
// data at or before itself. A run owns all of its state, so independent
// runs may execute concurrently.
package pairs

import "fmt"

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// Params are the per-run simulation parameters.
type Params struct {
	CapitalStart float64 `yaml:"capital_start" json:"capital_start"`
	LegFraction  float64 `yaml:"leg_fraction" json:"leg_fraction"`
	EntryZ       float64 `yaml:"entry_z" json:"entry_z"`
	ExitZ        float64 `yaml:"exit_z" json:"exit_z"`
	Window       int     `yaml:"window" json:"window"`
	RefreshBeta  int     `yaml:"refresh_beta" json:"refresh_beta"`
	MaxHold      int     `yaml:"max_hold" json:"max_hold"`
	CostBP       float64 `yaml:"cost_bp" json:"cost_bp"`

	// InvertB negates leg B's price before fitting and computing spreads,
	// expressing the short-one/long-other parity trade.
	InvertB bool `yaml:"invert_b" json:"invert_b"`
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	return Params{
		CapitalStart: 10_000,
		LegFraction:  0.10,
		EntryZ:       1.0,
		ExitZ:        0.5,
		Window:       252,
		RefreshBeta:  21,
		MaxHold:      10,
		CostBP:       10,
		InvertB:      true,
	}
}

// Validate reports the first parameter that cannot drive a simulation.
func (p Params) Validate() error {
	switch {
	case !(p.CapitalStart > 0):
		return fmt.Errorf("%w: capital_start must be positive, got %v", ErrInvalidParams, p.CapitalStart)
	case !(p.LegFraction > 0 && p.LegFraction <= 1):
		return fmt.Errorf("%w: leg_fraction must be in (0, 1], got %v", ErrInvalidParams, p.LegFraction)
	case p.EntryZ < 0 || p.ExitZ < 0:
		return fmt.Errorf("%w: entry_z and exit_z must be non-negative", ErrInvalidParams)
	case p.ExitZ > p.EntryZ:
		return fmt.Errorf("%w: exit_z %v exceeds entry_z %v", ErrInvalidParams, p.ExitZ, p.EntryZ)
	case p.Window < 2:
		return fmt.Errorf("%w: window must be at least 2, got %d", ErrInvalidParams, p.Window)
	case p.RefreshBeta < 1:
		return fmt.Errorf("%w: refresh_beta must be at least 1, got %d", ErrInvalidParams, p.RefreshBeta)
	case p.MaxHold < 1:
		return fmt.Errorf("%w: max_hold must be at least 1, got %d", ErrInvalidParams, p.MaxHold)
	case p.CostBP < 0:
		return fmt.Errorf("%w: cost_bp must be non-negative, got %v", ErrInvalidParams, p.CostBP)
	}
	return nil
}

// costRate is the fraction of leg notional charged per unit of position
// change, covering both legs.
func (p Params) costRate() float64 {
	return 2 * p.CostBP / 10_000
}
