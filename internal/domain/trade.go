package domain

// Trade is a fill-derived trade record.
// One fill yields an ENTRY, an EXIT, or both when it flips the position.
// Corresponds to trades table in the Postgres schema.
type Trade struct {
	TradeID    string // deterministic hash
	RunID      string // backtest run
	StrategyID string // strategy identifier
	Symbol     string // instrument symbol
	FillID     string // originating fill

	Kind        string  // ENTRY | EXIT
	Side        string  // BUY | SELL (fill side)
	Quantity    float64 // base units opened or closed
	Price       float64 // execution price
	EntryPrice  float64 // average entry price of the closed exposure (EXIT only)
	Commission  float64 // share of fill commission
	PnL         float64 // realized PnL before commission (EXIT only)
	NetPnL      float64 // PnL - Commission (EXIT only)
	ReturnPct   float64 // NetPnL / (EntryPrice * Quantity) * 100 (EXIT only)
	Reason      string  // reason code
	TimestampNs int64   // fill timestamp
}

// IsWin reports whether an exit trade made money after costs.
func (t *Trade) IsWin() bool {
	return t.Kind == TradeKindExit && t.NetPnL > 0
}

// Trade kind constants
const (
	TradeKindEntry = "ENTRY"
	TradeKindExit  = "EXIT"
)

// Reason codes
const (
	ReasonSignal        = "SIGNAL"
	ReasonStopLoss      = "STOP_LOSS"
	ReasonTakeProfit    = "TAKE_PROFIT"
	ReasonEndOfBacktest = "END_OF_BACKTEST"
	ReasonAborted       = "ABORTED"
)
