package clickhouse

import (
	"context"
	"fmt"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// ResultStore implements storage.ResultStore using ClickHouse.
// Sweeps write many summaries; the analytical table keeps them next to bars.
type ResultStore struct {
	conn *Conn
}

// NewResultStore creates a new ResultStore.
func NewResultStore(conn *Conn) *ResultStore {
	return &ResultStore{conn: conn}
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

	// Check if exists (ReplacingMergeTree will replace, but we want append-only semantics)
	exists, err := s.exists(ctx, r.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	docs, err := storage.EncodeResultDocuments(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO backtest_runs (` + resultColumns + `) VALUES (
			?, ?, ?, ?,
			?, ?, ?,
			?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?,
			?, ?,
			?, ?, ?, ?
		)
	`

	err = s.conn.Exec(ctx, query,
		r.RunID, r.StrategyID, r.Status, r.Seed,
		uint64(r.StartMs), uint64(r.EndMs), uint32(r.BarsProcessed),
		r.InitialCapital, r.FinalCapital,
		r.TotalReturn, r.AnnualizedReturn, r.WinRate, r.MaxDrawdown,
		r.SharpeRatio, r.SortinoRatio, r.CalmarRatio, r.VaR95, r.Alpha, r.Beta,
		r.ProfitFactor, uint32(r.TotalTrades), uint32(r.Wins), uint32(r.Losses), r.AvgWin, r.AvgLoss,
		uint32(r.MaxConsecutiveLosses), r.TotalCommission,
		r.FillsDigest, uint32(r.DroppedOrders),
		string(docs.Config), string(docs.Strategy), string(docs.EquityCurve), string(docs.OpenPositions),
	)
	if err != nil {
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error) {
	results, err := s.query(ctx, `WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, storage.ErrNotFound
	}
	return results[0], nil
}

// GetByStrategyID retrieves all runs of a strategy, ordered by run_id ASC.
func (s *ResultStore) GetByStrategyID(ctx context.Context, strategyID string) ([]*domain.BacktestResult, error) {
	return s.query(ctx, `WHERE strategy_id = ?`, strategyID)
}

// List retrieves all runs, ordered by run_id ASC.
func (s *ResultStore) List(ctx context.Context) ([]*domain.BacktestResult, error) {
	return s.query(ctx, ``)
}

func (s *ResultStore) query(ctx context.Context, where string, args ...interface{}) ([]*domain.BacktestResult, error) {
	query := `SELECT ` + resultColumns + ` FROM backtest_runs FINAL ` + where + ` ORDER BY run_id ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query backtest runs: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// exists checks if a run with the given ID exists.
func (s *ResultStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM backtest_runs WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanResults scans multiple rows into a slice.
func scanResults(rows chRows) ([]*domain.BacktestResult, error) {
	var results []*domain.BacktestResult

	for rows.Next() {
		var r domain.BacktestResult
		var startMs, endMs uint64
		var bars, total, wins, losses, maxLosses, dropped uint32
		var config, strat, equity, open string

		err := rows.Scan(
			&r.RunID, &r.StrategyID, &r.Status, &r.Seed,
			&startMs, &endMs, &bars,
			&r.InitialCapital, &r.FinalCapital,
			&r.TotalReturn, &r.AnnualizedReturn, &r.WinRate, &r.MaxDrawdown,
			&r.SharpeRatio, &r.SortinoRatio, &r.CalmarRatio, &r.VaR95, &r.Alpha, &r.Beta,
			&r.ProfitFactor, &total, &wins, &losses, &r.AvgWin, &r.AvgLoss,
			&maxLosses, &r.TotalCommission,
			&r.FillsDigest, &dropped,
			&config, &strat, &equity, &open,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}

		r.StartMs, r.EndMs = int64(startMs), int64(endMs)
		r.BarsProcessed = int(bars)
		r.TotalTrades, r.Wins, r.Losses = int(total), int(wins), int(losses)
		r.MaxConsecutiveLosses = int(maxLosses)
		r.DroppedOrders = int(dropped)

		docs := storage.ResultDocuments{
			Config:        []byte(config),
			Strategy:      []byte(strat),
			EquityCurve:   []byte(equity),
			OpenPositions: []byte(open),
		}
		if err := docs.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode backtest run %s: %w", r.RunID, err)
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	return results, nil
}
