package sweep

import (
	"fmt"
	"sort"
	"strings"

	"backtest-lab/internal/domain"
)

// ParameterGrid expands grid into the cartesian product of parameter
// values applied over base. Keys are iterated in sorted order with the
// last key varying fastest, so the expansion is deterministic.
// Each variant gets a StrategyID naming its parameter values.
func ParameterGrid(base domain.StrategyConfig, grid map[string][]float64) []domain.StrategyConfig {
	keys := make([]string, 0, len(grid))
	for k, values := range grid {
		if len(values) == 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return []domain.StrategyConfig{base.WithParameters(nil)}
	}

	total := 1
	for _, k := range keys {
		total *= len(grid[k])
	}

	variants := make([]domain.StrategyConfig, 0, total)
	idx := make([]int, len(keys))
	for n := 0; n < total; n++ {
		params := make(map[string]float64, len(keys))
		labels := make([]string, len(keys))
		for i, k := range keys {
			v := grid[k][idx[i]]
			params[k] = v
			labels[i] = fmt.Sprintf("%s=%g", k, v)
		}

		variant := base.WithParameters(params)
		variant.StrategyID = fmt.Sprintf("%s{%s}", base.ID(), strings.Join(labels, ","))
		variants = append(variants, variant)

		// odometer increment, last key fastest
		for i := len(keys) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(grid[keys[i]]) {
				break
			}
			idx[i] = 0
		}
	}
	return variants
}

// Jobs pairs every strategy variant with the same backtest config.
func Jobs(cfg domain.BacktestConfig, strategies []domain.StrategyConfig) []Job {
	jobs := make([]Job, len(strategies))
	for i, s := range strategies {
		jobs[i] = Job{Name: s.ID(), Backtest: cfg, Strategy: s}
	}
	return jobs
}
