package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func testResult(runID, strategyID string) *domain.BacktestResult {
	seed := int64(-3)
	return &domain.BacktestResult{
		RunID:          runID,
		StrategyID:     strategyID,
		Status:         domain.RunStatusPartial,
		Seed:           4_000_000_000,
		StartMs:        1_700_000_000_000,
		EndMs:          1_700_000_600_000,
		BarsProcessed:  10,
		InitialCapital: 50_000,
		FinalCapital:   49_000,
		TotalReturn:    -2,
		MaxDrawdown:    3.5,
		ProfitFactor:   0.4,
		TotalTrades:    2,
		Losses:         2,
		AvgLoss:        -500,
		FillsDigest:    "digest",
		DroppedOrders:  1,
		Config:         domain.BacktestConfig{InitialCapital: 50_000, FillModel: domain.FillModelConservative, Seed: &seed},
		Strategy:       domain.StrategyConfig{StrategyID: strategyID, Type: domain.StrategyTypeBreakout, Symbols: []string{"ETHUSDT"}},
		EquityCurve:    []domain.EquityPoint{{TimestampNs: 5, Equity: 49_500}},
		OpenPositions:  []domain.Position{{Symbol: "ETHUSDT", Quantity: 2, Side: domain.PositionLong, AvgPrice: 2000, OpenedAtNs: 7}},
	}
}

func TestResultStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(pool)
	ctx := context.Background()

	in := testResult("run-1", "breakout")
	require.NoError(t, store.Insert(ctx, in))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	assert.ErrorIs(t, store.Insert(ctx, in), storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResultStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testResult("b", "breakout")))
	require.NoError(t, store.Insert(ctx, testResult("a", "breakout")))
	require.NoError(t, store.Insert(ctx, testResult("c", "sma")))

	got, err := store.GetByStrategyID(ctx, "breakout")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].RunID)
	assert.Equal(t, "b", got[1].RunID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
