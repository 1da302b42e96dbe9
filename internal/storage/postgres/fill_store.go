package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// FillStore implements storage.FillStore using PostgreSQL.
type FillStore struct {
	pool *Pool
}

// NewFillStore creates a new FillStore.
func NewFillStore(pool *Pool) *FillStore {
	return &FillStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FillStore = (*FillStore)(nil)

var fillColumns = []string{
	"run_id", "seq", "fill_id", "order_id", "symbol", "side",
	"quantity", "price", "commission", "timestamp_ns", "liquidity", "slippage",
}

// InsertBulk copies the fills of a run. Returns ErrDuplicateKey if the run already has fills.
func (s *FillStore) InsertBulk(ctx context.Context, runID string, fills []*domain.SimulatedFill) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(fills) == 0 {
		return nil
	}

	rows := make([][]any, len(fills))
	for i, f := range fills {
		if f == nil || f.FillID == "" {
			return storage.ErrInvalidInput
		}
		rows[i] = []any{
			runID, i, f.FillID, f.OrderID, f.Symbol, f.Side,
			f.Quantity, f.Price, f.Commission, f.TimestampNs, f.Liquidity, f.Slippage,
		}
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"fills"}, fillColumns, pgx.CopyFromRows(rows))
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy fills: %w", err)
	}
	return nil
}

// GetByRunID retrieves all fills of a run in insertion order.
func (s *FillStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SimulatedFill, error) {
	query := `
		SELECT fill_id, order_id, symbol, side,
			quantity, price, commission, timestamp_ns, liquidity, slippage
		FROM fills
		WHERE run_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get fills by run id: %w", err)
	}
	defer rows.Close()

	var fills []*domain.SimulatedFill
	for rows.Next() {
		var f domain.SimulatedFill
		err := rows.Scan(
			&f.FillID, &f.OrderID, &f.Symbol, &f.Side,
			&f.Quantity, &f.Price, &f.Commission, &f.TimestampNs, &f.Liquidity, &f.Slippage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fill row: %w", err)
		}
		fills = append(fills, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fill rows: %w", err)
	}

	return fills, nil
}
