package domain

import (
	"fmt"
	"math"
)

// StrategyConfig represents strategy configuration parameters.
type StrategyConfig struct {
	StrategyID string   // identifier, defaults to Type when empty
	Type       string   // "TREND_FOLLOWING" | "MEAN_REVERSION" | "BREAKOUT" | "SCHEDULED"
	Symbols    []string // symbols the strategy trades; empty means every symbol

	// Parameters are opaque tuning knobs interpreted per strategy type.
	Parameters map[string]float64

	Risk RiskParameters
}

// RiskParameters configures engine-enforced exits. Zero disables a check.
type RiskParameters struct {
	StopLossPct   float64 // close when unrealized loss reaches this %
	TakeProfitPct float64 // close when unrealized gain reaches this %
}

// Validate rejects non-finite or negative risk percentages.
func (r RiskParameters) Validate() error {
	if math.IsNaN(r.StopLossPct) || math.IsInf(r.StopLossPct, 0) || r.StopLossPct < 0 {
		return fmt.Errorf("%w: stop loss pct %v", ErrInvalidConfig, r.StopLossPct)
	}
	if math.IsNaN(r.TakeProfitPct) || math.IsInf(r.TakeProfitPct, 0) || r.TakeProfitPct < 0 {
		return fmt.Errorf("%w: take profit pct %v", ErrInvalidConfig, r.TakeProfitPct)
	}
	return nil
}

// Strategy type constants
const (
	StrategyTypeTrendFollowing = "TREND_FOLLOWING"
	StrategyTypeMeanReversion  = "MEAN_REVERSION"
	StrategyTypeBreakout       = "BREAKOUT"
	StrategyTypeScheduled      = "SCHEDULED"
)

// ID returns StrategyID, falling back to Type.
func (c StrategyConfig) ID() string {
	if c.StrategyID != "" {
		return c.StrategyID
	}
	return c.Type
}

// Validate checks the strategy's risk parameters.
func (c StrategyConfig) Validate() error {
	return c.Risk.Validate()
}

// Param returns a parameter value and whether it was set.
func (c StrategyConfig) Param(key string) (float64, bool) {
	v, ok := c.Parameters[key]
	return v, ok
}

// ParamOr returns a parameter value or def when unset.
func (c StrategyConfig) ParamOr(key string, def float64) float64 {
	if v, ok := c.Parameters[key]; ok {
		return v
	}
	return def
}

// Trades reports whether the strategy should see bars of symbol.
func (c StrategyConfig) Trades(symbol string) bool {
	if len(c.Symbols) == 0 {
		return true
	}
	for _, s := range c.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// WithParameters returns a copy with params merged over existing parameters.
func (c StrategyConfig) WithParameters(params map[string]float64) StrategyConfig {
	merged := make(map[string]float64, len(c.Parameters)+len(params))
	for k, v := range c.Parameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	c.Parameters = merged
	if len(c.Symbols) > 0 {
		c.Symbols = append([]string(nil), c.Symbols...)
	}
	return c
}
