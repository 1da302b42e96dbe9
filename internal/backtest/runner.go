package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/replay"
	"backtest-lab/internal/storage"
)

// Runner errors
var (
	ErrNoBarStore = errors.New("runner has no bar store")
)

// Runner loads bars from storage, runs an Engine and persists the outcome.
type Runner struct {
	barStore    storage.BarStore
	resultStore storage.ResultStore
	tradeStore  storage.TradeStore
	fillStore   storage.FillStore
	logger      *zap.Logger
	metrics     *observability.Metrics
	abortPolicy AbortPolicy
}

// RunnerOptions contains configuration for creating a Runner.
// Nil stores skip the corresponding persistence step.
type RunnerOptions struct {
	BarStore    storage.BarStore
	ResultStore storage.ResultStore
	TradeStore  storage.TradeStore
	FillStore   storage.FillStore
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	AbortPolicy AbortPolicy
}

// NewRunner creates a backtest runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		barStore:    opts.BarStore,
		resultStore: opts.ResultStore,
		tradeStore:  opts.TradeStore,
		fillStore:   opts.FillStore,
		logger:      logger,
		metrics:     opts.Metrics,
		abortPolicy: opts.AbortPolicy,
	}
}

// LoadBars loads and merges the bars of symbols within [startMs, endMs].
// Empty symbols loads every stored symbol; endMs <= 0 means no upper bound.
func (r *Runner) LoadBars(ctx context.Context, symbols []string, startMs, endMs int64) ([]domain.Bar, error) {
	if r.barStore == nil {
		return nil, ErrNoBarStore
	}
	if endMs <= 0 {
		endMs = 1<<63 - 1
	}

	if len(symbols) == 0 {
		all, err := r.barStore.ListSymbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("list symbols: %w", err)
		}
		symbols = all
	}

	series := make([][]domain.Bar, 0, len(symbols))
	for _, sym := range symbols {
		stored, err := r.barStore.GetByTimeRange(ctx, sym, startMs, endMs)
		if err != nil {
			return nil, fmt.Errorf("load bars for %s: %w", sym, err)
		}
		bars := make([]domain.Bar, len(stored))
		for i, b := range stored {
			bars[i] = *b
		}
		series = append(series, bars)
	}

	return replay.MergeBars(series...), nil
}

// Run executes one backtest over stored bars.
// Steps:
//  1. Load bars for the strategy's symbols
//  2. Build engine via NewEngine(cfg, strat)
//  3. Run the engine
//  4. Persist trades, fills and the result summary
func (r *Runner) Run(ctx context.Context, cfg domain.BacktestConfig, strat domain.StrategyConfig, startMs, endMs int64) (*domain.BacktestResult, error) {
	// 1. Load bars
	bars, err := r.LoadBars(ctx, strat.Symbols, startMs, endMs)
	if err != nil {
		return nil, err
	}

	// 2-3. Build and run engine
	result, err := r.RunBars(ctx, cfg, strat, bars)
	if err != nil {
		return nil, err
	}

	// 4. Persist
	if err := r.Persist(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// RunBars runs an engine over bars already in memory without persisting.
func (r *Runner) RunBars(ctx context.Context, cfg domain.BacktestConfig, strat domain.StrategyConfig, bars []domain.Bar) (*domain.BacktestResult, error) {
	engine, err := NewEngine(cfg, strat,
		WithLogger(r.logger),
		WithMetrics(r.metrics),
		WithAbortPolicy(r.abortPolicy),
	)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, bars)
}

// Persist writes the trades, the fills and then the result summary to
// whichever stores are set. The summary goes last so a stored run always
// has its trades and fills.
func (r *Runner) Persist(ctx context.Context, result *domain.BacktestResult) error {
	if r.tradeStore != nil && len(result.Trades) > 0 {
		trades := make([]*domain.Trade, len(result.Trades))
		for i := range result.Trades {
			trades[i] = &result.Trades[i]
		}
		start := time.Now()
		err := r.tradeStore.InsertBulk(ctx, trades)
		r.metrics.RecordDBQuery("trade_store", "insert_bulk", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist trades %s: %w", result.RunID, err)
		}
	}

	if r.fillStore != nil && len(result.Fills) > 0 {
		fills := make([]*domain.SimulatedFill, len(result.Fills))
		for i := range result.Fills {
			fills[i] = &result.Fills[i]
		}
		start := time.Now()
		err := r.fillStore.InsertBulk(ctx, result.RunID, fills)
		r.metrics.RecordDBQuery("fill_store", "insert_bulk", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist fills %s: %w", result.RunID, err)
		}
	}

	if r.resultStore != nil {
		start := time.Now()
		err := r.resultStore.Insert(ctx, result)
		r.metrics.RecordDBQuery("result_store", "insert", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist result %s: %w", result.RunID, err)
		}
	}

	r.logger.Debug("result persisted",
		zap.String("run_id", result.RunID),
		zap.Int("trades", len(result.Trades)),
		zap.Int("fills", len(result.Fills)),
	)
	return nil
}

// Replay re-runs a stored result's config and strategy over bars with the
// seed the original run used. The replayed result is not persisted.
func (r *Runner) Replay(ctx context.Context, stored *domain.BacktestResult, bars []domain.Bar) (*domain.BacktestResult, error) {
	engine, err := NewEngine(stored.Config, stored.Strategy,
		WithLogger(r.logger),
		WithAbortPolicy(r.abortPolicy),
		WithSeed(stored.Seed),
	)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, bars)
}

// Load reads a stored run back with its trades and fills.
func (r *Runner) Load(ctx context.Context, runID string) (*domain.BacktestResult, error) {
	if r.resultStore == nil {
		return nil, fmt.Errorf("load run %s: %w", runID, storage.ErrNotFound)
	}
	result, err := r.resultStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if r.tradeStore != nil {
		trades, err := r.tradeStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load trades %s: %w", runID, err)
		}
		result.Trades = make([]domain.Trade, len(trades))
		for i, t := range trades {
			result.Trades[i] = *t
		}
	}

	if r.fillStore != nil {
		fills, err := r.fillStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load fills %s: %w", runID, err)
		}
		result.Fills = make([]domain.SimulatedFill, len(fills))
		for i, f := range fills {
			result.Fills[i] = *f
		}
	}

	return result, nil
}
