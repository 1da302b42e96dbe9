package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report summarizes every stored backtest run.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	RunCount      int
	StrategyCount int

	// Runs sorted by run_id
	Runs []RunRow

	// Strategies sorted by strategy_id
	Strategies []StrategyRow

	// Sum of net profit and commission over all runs
	TotalNetProfit  decimal.Decimal
	TotalCommission decimal.Decimal

	// Runs that did not complete
	Incomplete []IncompleteRunRow
}

// RunRow represents one run in the summary table.
// Money columns are decimals rounded for display; ratios stay float64.
type RunRow struct {
	RunID         string
	StrategyID    string
	Status        string
	StartMs       int64
	EndMs         int64
	BarsProcessed int

	InitialCapital  decimal.Decimal
	FinalCapital    decimal.Decimal
	NetProfit       decimal.Decimal
	TotalCommission decimal.Decimal

	TotalReturn      float64 // %
	AnnualizedReturn float64 // %
	MaxDrawdown      float64 // %
	WinRate          float64 // %
	SharpeRatio      float64
	SortinoRatio     float64
	CalmarRatio      float64
	ProfitFactor     float64
	VaR95            float64
	TotalTrades      int
	DroppedOrders    int
}

// StrategyRow aggregates runs of one strategy.
type StrategyRow struct {
	StrategyID   string
	Runs         int
	MeanReturn   float64 // %
	MeanSharpe   float64
	BestRunID    string  // highest total return, ties to lower run_id
	BestReturn   float64 // %
	WorstReturn  float64 // %
	NetProfitSum decimal.Decimal
}

// IncompleteRunRow lists a cancelled run and its open positions.
type IncompleteRunRow struct {
	RunID         string
	Status        string
	BarsProcessed int
	OpenPositions int
}

// RunReport details a single run with its trade list.
type RunReport struct {
	GeneratedAt time.Time
	Run         RunRow
	Trades      []TradeRow
	Seed        uint32
	FillsDigest string
	FillCount   int
}

// TradeRow represents one trade in the trade list.
type TradeRow struct {
	TradeID     string
	Symbol      string
	Kind        string
	Side        string
	Reason      string
	TimestampNs int64
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	EntryPrice  decimal.Decimal // zero for entries
	Commission  decimal.Decimal
	NetPnL      decimal.Decimal // zero for entries
	ReturnPct   float64
}
