package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func testTrade(id, runID, kind string, ts int64) *domain.Trade {
	return &domain.Trade{
		TradeID:     id,
		RunID:       runID,
		StrategyID:  "sma",
		Symbol:      "BTCUSDT",
		FillID:      "fill-" + id,
		Kind:        kind,
		Side:        domain.SideBuy,
		Quantity:    1.5,
		Price:       100.25,
		Commission:  0.15,
		Reason:      domain.ReasonSignal,
		TimestampNs: ts,
	}
}

func TestTradeStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	exit := testTrade("t2", "run-1", domain.TradeKindExit, 2000)
	exit.EntryPrice = 100.25
	exit.PnL = 12.5
	exit.NetPnL = 12.35
	exit.ReturnPct = 8.2

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{
		testTrade("t9", "run-1", domain.TradeKindEntry, 1000),
		exit,
	}))

	got, err := store.GetByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, exit, got)

	// A second batch for the same run keeps appending after the first
	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{testTrade("t1", "run-1", domain.TradeKindEntry, 3000)}))

	trades, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, []string{"t9", "t2", "t1"}, []string{trades[0].TradeID, trades[1].TradeID, trades[2].TradeID})
}

func TestTradeStore_DuplicateKeyRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{testTrade("t1", "run-1", domain.TradeKindEntry, 1)}))

	err := store.InsertBulk(ctx, []*domain.Trade{
		testTrade("t2", "run-1", domain.TradeKindEntry, 2),
		testTrade("t1", "run-1", domain.TradeKindEntry, 3),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	trades, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestTradeStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
