package storage

import (
	"context"

	"backtest-lab/internal/domain"
)

// BarStore provides access to bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Bar, error)

	// ListSymbols returns all stored symbols in ascending order.
	ListSymbols(ctx context.Context) ([]string, error)

	// GetGlobalTimeRange returns min and max timestamps across all bars.
	GetGlobalTimeRange(ctx context.Context) (minTs, maxTs int64, err error)
}

// ResultStore provides access to backtest_runs storage.
// Stored results carry the summary, configs, equity curve and open
// positions; trades and fills live in TradeStore and FillStore.
type ResultStore interface {
	// Insert adds a run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestResult) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error)

	// GetByStrategyID retrieves all runs of a strategy, ordered by run_id ASC.
	GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.BacktestResult, error)

	// List retrieves all runs, ordered by run_id ASC.
	List(ctx context.Context) ([]*domain.BacktestResult, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate trade_id.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByRunID retrieves all trades of a run in insertion order.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)
}

// FillStore provides access to fills storage.
type FillStore interface {
	// InsertBulk adds the fills of a run in order. Fails if the run already has fills.
	InsertBulk(ctx context.Context, runID string, fills []*domain.SimulatedFill) error

	// GetByRunID retrieves all fills of a run in insertion order.
	GetByRunID(ctx context.Context, runID string) ([]*domain.SimulatedFill, error)
}
