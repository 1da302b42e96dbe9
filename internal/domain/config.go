package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned by BacktestConfig.Validate.
var ErrInvalidConfig = errors.New("invalid backtest config")

// Defaults applied when the corresponding field is zero.
const (
	DefaultBookDepth        = 10
	DefaultEquitySnapshotMs = int64(24 * 60 * 60 * 1000)
)

// BacktestConfig represents the execution parameters of one run.
type BacktestConfig struct {
	InitialCapital float64           // starting capital, quote units
	FillModel      string            // preset name or "CUSTOM"
	CustomProfile  *FillModelProfile // required when FillModel is "CUSTOM"
	CommissionRate float64           // taker fee as fraction of notional
	MakerDiscount  float64           // subtracted from CommissionRate for maker fills
	SlippageBps    *float64          // overrides profile AvgSlippageBps (nullable)
	LatencyMs      *float64          // overrides profile BaseLatencyMs (nullable)
	Seed           *int64            // deterministic seed, wall time when nil

	BookDepth        int   // synthetic levels per side, DefaultBookDepth when 0
	EquitySnapshotMs int64 // equity curve sampling interval, DefaultEquitySnapshotMs when 0
}

// Validate fails fast on values that would corrupt PnL math.
func (c *BacktestConfig) Validate() error {
	if !isPositive(c.InitialCapital) {
		return fmt.Errorf("%w: initial capital %v", ErrInvalidConfig, c.InitialCapital)
	}
	if !isNonNegative(c.CommissionRate) {
		return fmt.Errorf("%w: commission rate %v", ErrInvalidConfig, c.CommissionRate)
	}
	if !isNonNegative(c.MakerDiscount) {
		return fmt.Errorf("%w: maker discount %v", ErrInvalidConfig, c.MakerDiscount)
	}
	if c.SlippageBps != nil && !isNonNegative(*c.SlippageBps) {
		return fmt.Errorf("%w: slippage bps %v", ErrInvalidConfig, *c.SlippageBps)
	}
	if c.LatencyMs != nil && !isNonNegative(*c.LatencyMs) {
		return fmt.Errorf("%w: latency ms %v", ErrInvalidConfig, *c.LatencyMs)
	}
	if c.BookDepth < 0 {
		return fmt.Errorf("%w: book depth %d", ErrInvalidConfig, c.BookDepth)
	}
	if c.EquitySnapshotMs < 0 {
		return fmt.Errorf("%w: equity snapshot interval %d", ErrInvalidConfig, c.EquitySnapshotMs)
	}
	_, err := c.Profile()
	return err
}

// Profile resolves the fill model profile with config overrides applied.
func (c *BacktestConfig) Profile() (FillModelProfile, error) {
	var p FillModelProfile
	if c.FillModel == FillModelCustom {
		if c.CustomProfile == nil {
			return p, fmt.Errorf("%w: CUSTOM fill model requires a profile", ErrInvalidConfig)
		}
		p = *c.CustomProfile
		p.Name = FillModelCustom
	} else {
		preset, ok := FillProfileByName(c.FillModel)
		if !ok {
			return p, fmt.Errorf("%w: unknown fill model %q", ErrInvalidConfig, c.FillModel)
		}
		p = preset
	}

	if c.SlippageBps != nil {
		p.AvgSlippageBps = *c.SlippageBps
	}
	if c.LatencyMs != nil {
		p.BaseLatencyMs = *c.LatencyMs
	}

	if !isProbability(p.LimitFillProbability) || !isProbability(p.SlippageProbability) {
		return p, fmt.Errorf("%w: profile probabilities must be within [0,1]", ErrInvalidConfig)
	}
	for _, v := range []float64{p.AvgSlippageBps, p.BaseLatencyMs, p.LatencyVarianceMs, p.LatencySizeFactorMs} {
		if !isNonNegative(v) {
			return p, fmt.Errorf("%w: profile %s has negative or non-finite parameter %v", ErrInvalidConfig, p.Name, v)
		}
	}
	return p, nil
}

// Depth returns BookDepth or its default.
func (c *BacktestConfig) Depth() int {
	if c.BookDepth > 0 {
		return c.BookDepth
	}
	return DefaultBookDepth
}

// SnapshotIntervalMs returns EquitySnapshotMs or its default.
func (c *BacktestConfig) SnapshotIntervalMs() int64 {
	if c.EquitySnapshotMs > 0 {
		return c.EquitySnapshotMs
	}
	return DefaultEquitySnapshotMs
}

func isNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func isProbability(v float64) bool {
	return isNonNegative(v) && v <= 1
}
