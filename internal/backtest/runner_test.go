package backtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
	"backtest-lab/internal/storage/memory"
)

func seedBarStore(t *testing.T, symbols ...string) *memory.BarStore {
	t.Helper()
	store := memory.NewBarStore()
	for _, sym := range symbols {
		bars := makeBars(sym, 50, func(i int) float64 { return 100 + float64(i%7) })
		ptrs := make([]*domain.Bar, len(bars))
		for i := range bars {
			ptrs[i] = &bars[i]
		}
		require.NoError(t, store.InsertBulk(context.Background(), ptrs))
	}
	return store
}

func newMemoryRunner(bars storage.BarStore) (*Runner, *memory.ResultStore, *memory.TradeStore, *memory.FillStore) {
	results := memory.NewResultStore()
	trades := memory.NewTradeStore()
	fills := memory.NewFillStore()
	r := NewRunner(RunnerOptions{
		BarStore:    bars,
		ResultStore: results,
		TradeStore:  trades,
		FillStore:   fills,
	})
	return r, results, trades, fills
}

func TestRunner_RunPersistsEverything(t *testing.T) {
	runner, results, trades, fills := newMemoryRunner(seedBarStore(t, "BTCUSDT"))
	ctx := context.Background()

	strat := scheduledConfig(5, 25)
	strat.Symbols = []string{"BTCUSDT"}

	res, err := runner.Run(ctx, testConfig(99), strat, 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, res.Fills)

	stored, err := results.GetByID(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.FinalCapital, stored.FinalCapital)

	storedTrades, err := trades.GetByRunID(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, storedTrades, len(res.Trades))

	storedFills, err := fills.GetByRunID(ctx, res.RunID)
	require.NoError(t, err)
	assert.Len(t, storedFills, len(res.Fills))

	loaded, err := runner.Load(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Trades, loaded.Trades)
	assert.Equal(t, res.Fills, loaded.Fills)
}

func TestRunner_RerunIsDuplicate(t *testing.T) {
	runner, _, _, _ := newMemoryRunner(seedBarStore(t, "BTCUSDT"))
	ctx := context.Background()

	_, err := runner.Run(ctx, testConfig(5), scheduledConfig(1, -1), 0, 0)
	require.NoError(t, err)

	_, err = runner.Run(ctx, testConfig(5), scheduledConfig(1, -1), 0, 0)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

// failingFillStore rejects every insert.
type failingFillStore struct {
	*memory.FillStore
}

var errFillsUnavailable = errors.New("fills unavailable")

func (s failingFillStore) InsertBulk(context.Context, string, []*domain.SimulatedFill) error {
	return errFillsUnavailable
}

func TestRunner_PersistFailureLeavesNoResult(t *testing.T) {
	results := memory.NewResultStore()
	runner := NewRunner(RunnerOptions{
		BarStore:    seedBarStore(t, "BTCUSDT"),
		ResultStore: results,
		TradeStore:  memory.NewTradeStore(),
		FillStore:   failingFillStore{memory.NewFillStore()},
	})
	ctx := context.Background()

	res, err := runner.RunBars(ctx, testConfig(3), scheduledConfig(2, 20), makeBars("BTCUSDT", 30, flat(100)))
	require.NoError(t, err)
	require.NotEmpty(t, res.Fills)

	err = runner.Persist(ctx, res)
	assert.ErrorIs(t, err, errFillsUnavailable)

	_, err = results.GetByID(ctx, res.RunID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunner_LoadBarsMergesSymbols(t *testing.T) {
	runner, _, _, _ := newMemoryRunner(seedBarStore(t, "ETHUSDT", "BTCUSDT"))

	bars, err := runner.LoadBars(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, bars, 100)
	assert.Equal(t, "BTCUSDT", bars[0].Symbol)
	assert.Equal(t, "ETHUSDT", bars[1].Symbol)
	assert.Equal(t, bars[0].TimestampMs, bars[1].TimestampMs)

	window, err := runner.LoadBars(context.Background(), []string{"ETHUSDT"}, bars[10].TimestampMs, bars[19].TimestampMs)
	require.NoError(t, err)
	assert.Len(t, window, 5)
}

func TestRunner_NoBarStore(t *testing.T) {
	runner := NewRunner(RunnerOptions{})
	_, err := runner.Run(context.Background(), testConfig(1), scheduledConfig(1, -1), 0, 0)
	assert.ErrorIs(t, err, ErrNoBarStore)
}
