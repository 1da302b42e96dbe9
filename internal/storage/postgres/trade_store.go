package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, run_id, strategy_id, symbol, fill_id,
	kind, side, quantity, price, entry_price,
	commission, pnl, net_pnl, return_pct, reason, timestamp_ns`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
// seq continues from the run's last stored trade so GetByRunID preserves insertion order.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.RunID == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	next := make(map[string]int)
	query := `
		INSERT INTO trades (seq, ` + tradeColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17
		)
	`

	for _, t := range trades {
		seq, ok := next[t.RunID]
		if !ok {
			if err := tx.QueryRow(ctx,
				`SELECT COALESCE(MAX(seq) + 1, 0) FROM trades WHERE run_id = $1`, t.RunID,
			).Scan(&seq); err != nil {
				return fmt.Errorf("next trade seq: %w", err)
			}
		}
		next[t.RunID] = seq + 1

		_, err := tx.Exec(ctx, query,
			seq, t.TradeID, t.RunID, t.StrategyID, t.Symbol, t.FillID,
			t.Kind, t.Side, t.Quantity, t.Price, t.EntryPrice,
			t.Commission, t.PnL, t.NetPnL, t.ReturnPct, t.Reason, t.TimestampNs,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves all trades of a run in insertion order.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE run_id = $1 ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade

	err := row.Scan(
		&t.TradeID, &t.RunID, &t.StrategyID, &t.Symbol, &t.FillID,
		&t.Kind, &t.Side, &t.Quantity, &t.Price, &t.EntryPrice,
		&t.Commission, &t.PnL, &t.NetPnL, &t.ReturnPct, &t.Reason, &t.TimestampNs,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
