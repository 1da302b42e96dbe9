package domain

// Run status constants
const (
	RunStatusCompleted     = "COMPLETED"
	RunStatusAbortedClosed = "ABORTED_CLOSED" // aborted, open positions force-closed
	RunStatusPartial       = "PARTIAL"        // aborted, open positions excluded
)

// EquityPoint is one equity curve sample.
type EquityPoint struct {
	TimestampNs int64
	Equity      float64 // capital + unrealized PnL at last close
}

// BacktestResult represents the outcome of one backtest run.
// Corresponds to backtest_results table in the Postgres schema.
type BacktestResult struct {
	RunID      string // deterministic UUIDv5
	StrategyID string // strategy identifier
	Status     string // COMPLETED | ABORTED_CLOSED | PARTIAL
	Seed       uint32 // effective PRNG seed

	// Period
	StartMs       int64 // first bar timestamp
	EndMs         int64 // last processed bar timestamp
	BarsProcessed int

	// Capital
	InitialCapital float64
	FinalCapital   float64

	// Primary metrics
	TotalReturn      float64 // %
	AnnualizedReturn float64 // %
	WinRate          float64 // %
	MaxDrawdown      float64 // %
	SharpeRatio      float64
	TotalTrades      int // exit trades

	// Secondary metrics
	CalmarRatio          float64
	SortinoRatio         float64
	VaR95                float64 // % loss per trade at 95% confidence
	Alpha                float64 // placeholder, always 0
	Beta                 float64 // placeholder, always 0
	ProfitFactor         float64
	Wins                 int
	Losses               int
	AvgWin               float64
	AvgLoss              float64
	MaxConsecutiveLosses int
	TotalCommission      float64

	// Execution record
	Trades        []Trade
	Fills         []SimulatedFill
	FillsDigest   string     // sha256 over the fill sequence
	OpenPositions []Position // positions left open in a PARTIAL result
	EquityCurve   []EquityPoint
	DroppedOrders int // orders without a book or clipped to nothing

	// Inputs
	Config   BacktestConfig
	Strategy StrategyConfig
}

// ExitTrades returns the EXIT trades in order.
func (r *BacktestResult) ExitTrades() []Trade {
	var exits []Trade
	for _, t := range r.Trades {
		if t.Kind == TradeKindExit {
			exits = append(exits, t)
		}
	}
	return exits
}
