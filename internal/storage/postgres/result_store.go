package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

const resultColumns = `
	run_id, strategy_id, status, seed,
	start_ms, end_ms, bars_processed,
	initial_capital, final_capital,
	total_return, annualized_return, win_rate, max_drawdown,
	sharpe_ratio, sortino_ratio, calmar_ratio, var_95, alpha, beta,
	profit_factor, total_trades, wins, losses, avg_win, avg_loss,
	max_consecutive_losses, total_commission,
	fills_digest, dropped_orders,
	config, strategy, equity_curve, open_positions`

// Insert adds a run summary. Returns ErrDuplicateKey if run_id exists.
func (s *ResultStore) Insert(ctx context.Context, r *domain.BacktestResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	docs, err := storage.EncodeResultDocuments(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO backtest_runs (` + resultColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25,
			$26, $27,
			$28, $29,
			$30, $31, $32, $33
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.StrategyID, r.Status, int64(r.Seed),
		r.StartMs, r.EndMs, r.BarsProcessed,
		r.InitialCapital, r.FinalCapital,
		r.TotalReturn, r.AnnualizedReturn, r.WinRate, r.MaxDrawdown,
		r.SharpeRatio, r.SortinoRatio, r.CalmarRatio, r.VaR95, r.Alpha, r.Beta,
		r.ProfitFactor, r.TotalTrades, r.Wins, r.Losses, r.AvgWin, r.AvgLoss,
		r.MaxConsecutiveLosses, r.TotalCommission,
		r.FillsDigest, r.DroppedOrders,
		docs.Config, docs.Strategy, docs.EquityCurve, docs.OpenPositions,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error) {
	query := `SELECT ` + resultColumns + ` FROM backtest_runs WHERE run_id = $1`

	r, err := scanResult(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return r, nil
}

// GetByStrategyID retrieves all runs of a strategy, ordered by run_id ASC.
func (s *ResultStore) GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.BacktestResult, error) {
	query := `SELECT ` + resultColumns + ` FROM backtest_runs WHERE strategy_id = $1 ORDER BY run_id ASC`

	rows, err := s.pool.Query(ctx, query, strategyID)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by strategy: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// List retrieves all runs, ordered by run_id ASC.
func (s *ResultStore) List(ctx context.Context) ([]*domain.BacktestResult, error) {
	query := `SELECT ` + resultColumns + ` FROM backtest_runs ORDER BY run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list backtest runs: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// scanResult scans a single row into a BacktestResult.
func scanResult(row pgx.Row) (*domain.BacktestResult, error) {
	var r domain.BacktestResult
	var seed int64
	var docs storage.ResultDocuments

	err := row.Scan(
		&r.RunID, &r.StrategyID, &r.Status, &seed,
		&r.StartMs, &r.EndMs, &r.BarsProcessed,
		&r.InitialCapital, &r.FinalCapital,
		&r.TotalReturn, &r.AnnualizedReturn, &r.WinRate, &r.MaxDrawdown,
		&r.SharpeRatio, &r.SortinoRatio, &r.CalmarRatio, &r.VaR95, &r.Alpha, &r.Beta,
		&r.ProfitFactor, &r.TotalTrades, &r.Wins, &r.Losses, &r.AvgWin, &r.AvgLoss,
		&r.MaxConsecutiveLosses, &r.TotalCommission,
		&r.FillsDigest, &r.DroppedOrders,
		&docs.Config, &docs.Strategy, &docs.EquityCurve, &docs.OpenPositions,
	)
	if err != nil {
		return nil, err
	}

	r.Seed = uint32(seed)
	if err := docs.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode backtest run %s: %w", r.RunID, err)
	}
	return &r, nil
}

// scanResults scans multiple rows into a slice of BacktestResult.
func scanResults(rows pgx.Rows) ([]*domain.BacktestResult, error) {
	var results []*domain.BacktestResult

	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	return results, nil
}
