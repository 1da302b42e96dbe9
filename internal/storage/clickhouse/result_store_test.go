package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func testResult(runID, strategyID string) *domain.BacktestResult {
	seed := int64(7)
	return &domain.BacktestResult{
		RunID:          runID,
		StrategyID:     strategyID,
		Status:         domain.RunStatusCompleted,
		Seed:           7,
		StartMs:        1000,
		EndMs:          99_000,
		BarsProcessed:  99,
		InitialCapital: 10_000,
		FinalCapital:   10_250,
		TotalReturn:    2.5,
		SharpeRatio:    1.1,
		ProfitFactor:   2,
		TotalTrades:    4,
		Wins:           3,
		Losses:         1,
		FillsDigest:    "abc",
		Config:         domain.BacktestConfig{InitialCapital: 10_000, FillModel: domain.FillModelStandard, Seed: &seed},
		Strategy:       domain.StrategyConfig{Type: domain.StrategyTypeTrendFollowing, Parameters: map[string]float64{"fast_period": 5}},
		EquityCurve:    []domain.EquityPoint{{TimestampNs: 1, Equity: 10_000}, {TimestampNs: 2, Equity: 10_250}},
	}
}

func TestResultStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(conn)
	ctx := context.Background()

	in := testResult("run-1", "sma")
	require.NoError(t, store.Insert(ctx, in))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, in.FinalCapital, got.FinalCapital)
	assert.Equal(t, in.Seed, got.Seed)
	assert.Equal(t, in.TotalTrades, got.TotalTrades)
	assert.Equal(t, in.Config, got.Config)
	assert.Equal(t, in.Strategy, got.Strategy)
	assert.Equal(t, in.EquityCurve, got.EquityCurve)

	assert.ErrorIs(t, store.Insert(ctx, in), storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResultStore_Queries(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testResult("b", "sma")))
	require.NoError(t, store.Insert(ctx, testResult("a", "sma")))
	require.NoError(t, store.Insert(ctx, testResult("c", "zscore")))

	sma, err := store.GetByStrategyID(ctx, "sma")
	require.NoError(t, err)
	require.Len(t, sma, 2)
	assert.Equal(t, "a", sma[0].RunID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
