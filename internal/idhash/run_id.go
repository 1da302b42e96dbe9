package idhash

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"backtest-lab/internal/domain"
)

// runNamespace scopes run ids generated by this module.
var runNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a10-b2c3d4e5f601")

// ComputeRunID computes a deterministic UUIDv5 for a backtest run.
// Inputs: strategy config, backtest config, effective seed and bar span.
func ComputeRunID(
	cfg domain.BacktestConfig,
	strat domain.StrategyConfig,
	seed uint32,
	startMs int64,
	endMs int64,
	barCount int,
) string {
	var b strings.Builder
	fmt.Fprintf(&b, "strategy=%s|type=%s|symbols=%s|", strat.ID(), strat.Type, strings.Join(strat.Symbols, ","))

	keys := make([]string, 0, len(strat.Parameters))
	for k := range strat.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%g|", k, strat.Parameters[k])
	}
	fmt.Fprintf(&b, "sl=%g|tp=%g|", strat.Risk.StopLossPct, strat.Risk.TakeProfitPct)

	fmt.Fprintf(&b, "capital=%g|model=%s|commission=%g|maker=%g|depth=%d|snapshot=%d|",
		cfg.InitialCapital, cfg.FillModel, cfg.CommissionRate, cfg.MakerDiscount, cfg.Depth(), cfg.SnapshotIntervalMs())
	if cfg.CustomProfile != nil {
		p := cfg.CustomProfile
		fmt.Fprintf(&b, "custom=%g,%g,%g,%g,%g,%g|",
			p.LimitFillProbability, p.SlippageProbability, p.AvgSlippageBps,
			p.BaseLatencyMs, p.LatencyVarianceMs, p.LatencySizeFactorMs)
	}
	if cfg.SlippageBps != nil {
		fmt.Fprintf(&b, "slippage=%g|", *cfg.SlippageBps)
	}
	if cfg.LatencyMs != nil {
		fmt.Fprintf(&b, "latency=%g|", *cfg.LatencyMs)
	}
	fmt.Fprintf(&b, "seed=%d|start=%d|end=%d|bars=%d", seed, startMs, endMs, barCount)

	return uuid.NewSHA1(runNamespace, []byte(b.String())).String()
}
