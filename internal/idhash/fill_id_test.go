package idhash

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
)

func TestComputeFillID(t *testing.T) {
	a := ComputeFillID("order-1", 0)
	assert.Len(t, a, 64)
	assert.Equal(t, a, ComputeFillID("order-1", 0))
	assert.NotEqual(t, a, ComputeFillID("order-1", 1))
	assert.NotEqual(t, a, ComputeFillID("order-2", 0))
}

func TestComputeFillsDigest_BitExact(t *testing.T) {
	fills := []domain.SimulatedFill{
		{FillID: "f1", OrderID: "o1", Symbol: "X", Side: domain.SideBuy, Quantity: 1, Price: 100.1, TimestampNs: 5, Liquidity: domain.LiquidityTaker},
		{FillID: "f2", OrderID: "o2", Symbol: "X", Side: domain.SideSell, Quantity: 1, Price: 101.3, TimestampNs: 9, Liquidity: domain.LiquidityMaker},
	}
	base := ComputeFillsDigest(fills)
	assert.Len(t, base, 64)
	assert.Equal(t, base, ComputeFillsDigest(append([]domain.SimulatedFill(nil), fills...)))

	changed := append([]domain.SimulatedFill(nil), fills...)
	changed[1].Price = math.Nextafter(changed[1].Price, math.Inf(1))
	assert.NotEqual(t, base, ComputeFillsDigest(changed), "one ulp must change the digest")

	reordered := []domain.SimulatedFill{fills[1], fills[0]}
	assert.NotEqual(t, base, ComputeFillsDigest(reordered))

	assert.Equal(t, ComputeFillsDigest(nil), ComputeFillsDigest([]domain.SimulatedFill{}))
}

func TestComputeRunID(t *testing.T) {
	seed := int64(42)
	cfg := domain.BacktestConfig{InitialCapital: 10_000, FillModel: domain.FillModelStandard, CommissionRate: 0.001, Seed: &seed}
	strat := domain.StrategyConfig{
		Type:       domain.StrategyTypeTrendFollowing,
		Parameters: map[string]float64{"slow_period": 20, "fast_period": 5},
	}

	id := ComputeRunID(cfg, strat, 42, 0, 1000, 100)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	// Parameter map iteration order must not matter.
	for i := 0; i < 20; i++ {
		assert.Equal(t, id, ComputeRunID(cfg, strat, 42, 0, 1000, 100))
	}

	assert.NotEqual(t, id, ComputeRunID(cfg, strat, 43, 0, 1000, 100))
	assert.NotEqual(t, id, ComputeRunID(cfg, strat.WithParameters(map[string]float64{"fast_period": 6}), 42, 0, 1000, 100))
	assert.NotEqual(t, id, ComputeRunID(cfg, strat, 42, 0, 1000, 99))

	hourly := cfg
	hourly.EquitySnapshotMs = 60 * 60 * 1000
	assert.NotEqual(t, id, ComputeRunID(hourly, strat, 42, 0, 1000, 100))

	explicitDefault := cfg
	explicitDefault.EquitySnapshotMs = domain.DefaultEquitySnapshotMs
	assert.Equal(t, id, ComputeRunID(explicitDefault, strat, 42, 0, 1000, 100))
}
