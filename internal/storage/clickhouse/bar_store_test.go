package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func testBar(symbol string, ts int64, close float64) *domain.Bar {
	return &domain.Bar{
		Symbol: symbol, TimestampMs: ts,
		Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 500,
	}
}

func TestBarStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	// Test empty insert
	require.NoError(t, store.InsertBulk(ctx, nil))

	quoted := testBar("BTCUSDT", 1000, 100)
	quoted.Bid = ptr(99.5)
	quoted.Ask = ptr(100.5)
	quoted.VWAP = ptr(100.1)

	err := store.InsertBulk(ctx, []*domain.Bar{quoted, testBar("BTCUSDT", 2000, 101)})
	require.NoError(t, err)

	got, err := store.GetBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1000), got[0].TimestampMs)
	assert.Equal(t, 101.0, got[0].High)
	require.NotNil(t, got[0].Bid)
	assert.Equal(t, 99.5, *got[0].Bid)
	assert.Equal(t, 100.1, *got[0].VWAP)
	assert.Nil(t, got[0].BidSize)
	assert.Nil(t, got[1].Bid)
}

func TestBarStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Bar{testBar("ETHUSDT", 1000, 2000)}))

	err := store.InsertBulk(ctx, []*domain.Bar{testBar("ETHUSDT", 1000, 2001)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.Bar{testBar("ETHUSDT", 5000, 1), testBar("ETHUSDT", 5000, 2)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBarStore_QueriesAndRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	minTs, maxTs, err := store.GetGlobalTimeRange(ctx)
	require.NoError(t, err)
	assert.Zero(t, minTs)
	assert.Zero(t, maxTs)

	var bars []*domain.Bar
	for i := int64(1); i <= 5; i++ {
		bars = append(bars, testBar("SOLUSDT", i*1000, 20))
	}
	bars = append(bars, testBar("BTCUSDT", 9000, 100))
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetByTimeRange(ctx, "SOLUSDT", 2000, 4000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(4000), got[2].TimestampMs)

	symbols, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, symbols)

	minTs, maxTs, err = store.GetGlobalTimeRange(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), minTs)
	assert.Equal(t, int64(9000), maxTs)
}
