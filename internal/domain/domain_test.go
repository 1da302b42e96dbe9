package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func validBar() Bar {
	return Bar{Symbol: "BTCUSDT", TimestampMs: 1000, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}
}

func TestBar_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Bar)
		ok     bool
	}{
		{"valid", func(b *Bar) {}, true},
		{"valid with quote", func(b *Bar) { b.Bid, b.Ask = f64(100.4), f64(100.6) }, true},
		{"zero volume", func(b *Bar) { b.Volume = 0 }, true},
		{"empty symbol", func(b *Bar) { b.Symbol = "" }, false},
		{"zero close", func(b *Bar) { b.Close = 0 }, false},
		{"nan open", func(b *Bar) { b.Open = math.NaN() }, false},
		{"inf high", func(b *Bar) { b.High = math.Inf(1) }, false},
		{"high below low", func(b *Bar) { b.High, b.Low = 98, 99 }, false},
		{"negative volume", func(b *Bar) { b.Volume = -1 }, false},
		{"negative vwap", func(b *Bar) { b.VWAP = f64(-1) }, false},
		{"crossed quote", func(b *Bar) { b.Bid, b.Ask = f64(101), f64(100) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBar()
			tt.mutate(&b)
			err := b.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidBar)
			}
		})
	}
}

func TestBar_TimestampNs(t *testing.T) {
	b := validBar()
	assert.Equal(t, int64(1_000_000_000), b.TimestampNs())
	assert.False(t, b.HasQuote())
}

func TestSimulatedOrder_Validate(t *testing.T) {
	tests := []struct {
		name  string
		order SimulatedOrder
		ok    bool
	}{
		{"market", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: OrderTypeMarket, Quantity: 1}, true},
		{"limit", SimulatedOrder{Symbol: "X", Side: SideSell, Type: OrderTypeLimit, Quantity: 1, LimitPrice: f64(10), TimeInForce: TimeInForceIOC}, true},
		{"stop limit", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: OrderTypeStopLimit, Quantity: 1, StopPrice: f64(10), LimitPrice: f64(11)}, true},
		{"limit without price", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: OrderTypeLimit, Quantity: 1}, false},
		{"stop market without stop", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: OrderTypeStopMarket, Quantity: 1}, false},
		{"stop limit without limit", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: OrderTypeStopLimit, Quantity: 1, StopPrice: f64(10)}, false},
		{"zero quantity", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: OrderTypeMarket}, false},
		{"nan quantity", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: OrderTypeMarket, Quantity: math.NaN()}, false},
		{"bad side", SimulatedOrder{Symbol: "X", Side: "HOLD", Type: OrderTypeMarket, Quantity: 1}, false},
		{"bad type", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: "ICEBERG", Quantity: 1}, false},
		{"bad tif", SimulatedOrder{Symbol: "X", Side: SideBuy, Type: OrderTypeMarket, Quantity: 1, TimeInForce: "DAY"}, false},
		{"no symbol", SimulatedOrder{Side: SideBuy, Type: OrderTypeMarket, Quantity: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidOrder)
			}
		})
	}
}

func TestSimulatedOrder_SignAndStop(t *testing.T) {
	buy := SimulatedOrder{Side: SideBuy, Type: OrderTypeStopMarket}
	sell := SimulatedOrder{Side: SideSell, Type: OrderTypeMarket}
	assert.Equal(t, 1.0, buy.Sign())
	assert.Equal(t, -1.0, sell.Sign())
	assert.True(t, buy.IsStop())
	assert.False(t, sell.IsStop())
}

func TestBacktestConfig_Validate(t *testing.T) {
	valid := BacktestConfig{InitialCapital: 1000, FillModel: FillModelStandard, CommissionRate: 0.001}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *BacktestConfig)
	}{
		{"zero capital", func(c *BacktestConfig) { c.InitialCapital = 0 }},
		{"nan commission", func(c *BacktestConfig) { c.CommissionRate = math.NaN() }},
		{"negative maker discount", func(c *BacktestConfig) { c.MakerDiscount = -0.1 }},
		{"negative slippage", func(c *BacktestConfig) { c.SlippageBps = f64(-1) }},
		{"negative latency", func(c *BacktestConfig) { c.LatencyMs = f64(-1) }},
		{"negative depth", func(c *BacktestConfig) { c.BookDepth = -1 }},
		{"negative snapshot", func(c *BacktestConfig) { c.EquitySnapshotMs = -1 }},
		{"unknown model", func(c *BacktestConfig) { c.FillModel = "YOLO" }},
		{"custom without profile", func(c *BacktestConfig) { c.FillModel = FillModelCustom }},
		{"custom bad probability", func(c *BacktestConfig) {
			c.FillModel = FillModelCustom
			c.CustomProfile = &FillModelProfile{LimitFillProbability: 1.5}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestBacktestConfig_ProfileOverrides(t *testing.T) {
	c := BacktestConfig{InitialCapital: 1, FillModel: FillModelConservative, SlippageBps: f64(1.5), LatencyMs: f64(0)}
	p, err := c.Profile()
	require.NoError(t, err)

	assert.Equal(t, FillModelConservative, p.Name)
	assert.Equal(t, 1.5, p.AvgSlippageBps)
	assert.Equal(t, 0.0, p.BaseLatencyMs)
	assert.Equal(t, FillProfileConservative.SlippageProbability, p.SlippageProbability)
	assert.Equal(t, 10.0, FillProfileConservative.AvgSlippageBps, "preset must not be mutated")
}

func TestBacktestConfig_Defaults(t *testing.T) {
	var c BacktestConfig
	assert.Equal(t, DefaultBookDepth, c.Depth())
	assert.Equal(t, DefaultEquitySnapshotMs, c.SnapshotIntervalMs())

	c.BookDepth, c.EquitySnapshotMs = 3, 60_000
	assert.Equal(t, 3, c.Depth())
	assert.Equal(t, int64(60_000), c.SnapshotIntervalMs())
}

func TestFillProfileByName(t *testing.T) {
	p, ok := FillProfileByName("")
	require.True(t, ok)
	assert.Equal(t, FillModelStandard, p.Name)

	_, ok = FillProfileByName(FillModelCustom)
	assert.False(t, ok)

	// Presets are ordered from cautious to optimistic.
	assert.Less(t, FillProfileConservative.LimitFillProbability, FillProfileStandard.LimitFillProbability)
	assert.Less(t, FillProfileStandard.LimitFillProbability, FillProfileAggressive.LimitFillProbability)
	assert.Greater(t, FillProfileConservative.AvgSlippageBps, FillProfileAggressive.AvgSlippageBps)
}

func TestPosition(t *testing.T) {
	long := PositionFromSigned("X", 2, 100, 5)
	short := PositionFromSigned("X", -2, 100, 5)
	flat := PositionFromSigned("X", 0, 100, 5)

	assert.Equal(t, PositionLong, long.Side)
	assert.Equal(t, 2.0, long.Signed())
	assert.Equal(t, 10.0, long.UnrealizedPct(110))

	assert.Equal(t, PositionShort, short.Side)
	assert.Equal(t, -2.0, short.Signed())
	assert.Equal(t, 10.0, short.UnrealizedPct(90))

	assert.True(t, flat.IsFlat())
	assert.Equal(t, 0.0, flat.AvgPrice)
	assert.Equal(t, 0.0, flat.UnrealizedPct(200))
}

func TestStrategyConfig(t *testing.T) {
	c := StrategyConfig{Type: StrategyTypeBreakout, Parameters: map[string]float64{"lookback": 5}}
	assert.Equal(t, StrategyTypeBreakout, c.ID())
	assert.Equal(t, 5.0, c.ParamOr("lookback", 20))
	assert.Equal(t, 20.0, c.ParamOr("missing", 20))
	assert.True(t, c.Trades("ANY"))

	c.StrategyID = "bo"
	c.Symbols = []string{"BTCUSDT"}
	assert.Equal(t, "bo", c.ID())
	assert.True(t, c.Trades("BTCUSDT"))
	assert.False(t, c.Trades("ETHUSDT"))
}

func TestRiskParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		risk    RiskParameters
		wantErr bool
	}{
		{"disabled", RiskParameters{}, false},
		{"both set", RiskParameters{StopLossPct: 5, TakeProfitPct: 10}, false},
		{"nan stop loss", RiskParameters{StopLossPct: math.NaN()}, true},
		{"inf take profit", RiskParameters{TakeProfitPct: math.Inf(1)}, true},
		{"negative stop loss", RiskParameters{StopLossPct: -1}, true},
		{"negative take profit", RiskParameters{TakeProfitPct: -5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StrategyConfig{Risk: tt.risk}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBacktestResult_ExitTrades(t *testing.T) {
	r := BacktestResult{Trades: []Trade{
		{TradeID: "a", Kind: TradeKindEntry},
		{TradeID: "b", Kind: TradeKindExit, NetPnL: 1},
		{TradeID: "c", Kind: TradeKindExit, NetPnL: -1},
	}}
	exits := r.ExitTrades()
	require.Len(t, exits, 2)
	assert.True(t, exits[0].IsWin())
	assert.False(t, exits[1].IsWin())
}
