package domain

// Liquidity constants
const (
	LiquidityMaker = "MAKER"
	LiquidityTaker = "TAKER"
)

// SimulatedFill is an append-only execution fact.
// Corresponds to fills table in the Postgres schema.
type SimulatedFill struct {
	FillID      string  // deterministic hash of order id and sequence
	OrderID     string  // originating order
	Symbol      string  // instrument symbol
	Side        string  // BUY | SELL
	Quantity    float64 // filled base units
	Price       float64 // execution price, slippage included
	Commission  float64 // >= 0, quote units
	TimestampNs int64   // submission time + modeled latency
	Liquidity   string  // MAKER | TAKER
	Slippage    float64 // signed price offset applied to the fill
}

// Notional returns price * quantity.
func (f *SimulatedFill) Notional() float64 {
	return f.Price * f.Quantity
}

// SignedQuantity returns quantity with buy positive and sell negative.
func (f *SimulatedFill) SignedQuantity() float64 {
	if f.Side == SideSell {
		return -f.Quantity
	}
	return f.Quantity
}
