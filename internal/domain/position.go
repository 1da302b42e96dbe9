package domain

// Position side constants
const (
	PositionLong  = "LONG"
	PositionShort = "SHORT"
	PositionFlat  = "FLAT"
)

// Position is the open exposure in one symbol.
type Position struct {
	Symbol     string
	Quantity   float64 // always >= 0
	Side       string  // LONG | SHORT | FLAT
	AvgPrice   float64 // volume-weighted entry price
	OpenedAtNs int64   // time the current exposure was opened
}

// Signed returns exposure as a signed quantity (short negative).
func (p *Position) Signed() float64 {
	if p.Side == PositionShort {
		return -p.Quantity
	}
	return p.Quantity
}

// IsFlat reports whether the position carries no exposure.
func (p *Position) IsFlat() bool {
	return p.Side == PositionFlat || p.Quantity == 0
}

// UnrealizedPct returns unrealized PnL at mark as a percentage of entry.
func (p *Position) UnrealizedPct(mark float64) float64 {
	if p.IsFlat() || p.AvgPrice == 0 {
		return 0
	}
	if p.Side == PositionShort {
		return (p.AvgPrice - mark) / p.AvgPrice * 100
	}
	return (mark - p.AvgPrice) / p.AvgPrice * 100
}

// PositionFromSigned builds a Position from signed exposure.
func PositionFromSigned(symbol string, qty, avgPrice float64, openedAtNs int64) Position {
	switch {
	case qty > 0:
		return Position{Symbol: symbol, Quantity: qty, Side: PositionLong, AvgPrice: avgPrice, OpenedAtNs: openedAtNs}
	case qty < 0:
		return Position{Symbol: symbol, Quantity: -qty, Side: PositionShort, AvgPrice: avgPrice, OpenedAtNs: openedAtNs}
	default:
		return Position{Symbol: symbol, Side: PositionFlat}
	}
}
