// Package orderbook builds immutable synthetic order books from bars.
package orderbook

import "backtest-lab/internal/domain"

// Level is one price level.
type Level struct {
	Price float64
	Size  float64
}

// OrderBook is an immutable bid/ask ladder.
// Bids are sorted by price descending, asks ascending.
type OrderBook struct {
	symbol      string
	bids        []Level
	asks        []Level
	timestampNs int64
}

// New creates a book from copies of bids and asks.
func New(symbol string, bids, asks []Level, timestampNs int64) *OrderBook {
	return &OrderBook{
		symbol:      symbol,
		bids:        append([]Level(nil), bids...),
		asks:        append([]Level(nil), asks...),
		timestampNs: timestampNs,
	}
}

// Symbol returns the book's symbol.
func (b *OrderBook) Symbol() string { return b.symbol }

// TimestampNs returns the time the book was built.
func (b *OrderBook) TimestampNs() int64 { return b.timestampNs }

// Bids returns a copy of the bid levels.
func (b *OrderBook) Bids() []Level { return append([]Level(nil), b.bids...) }

// Asks returns a copy of the ask levels.
func (b *OrderBook) Asks() []Level { return append([]Level(nil), b.asks...) }

// Opposite returns the levels an order on side would consume.
func (b *OrderBook) Opposite(side string) []Level {
	if side == domain.SideSell {
		return b.Bids()
	}
	return b.Asks()
}

// BestBid returns the top bid level.
func (b *OrderBook) BestBid() (Level, bool) {
	if len(b.bids) == 0 {
		return Level{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the top ask level.
func (b *OrderBook) BestAsk() (Level, bool) {
	if len(b.asks) == 0 {
		return Level{}, false
	}
	return b.asks[0], true
}

// Spread returns best ask - best bid, or 0 for a one-sided book.
func (b *OrderBook) Spread() float64 {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0
	}
	return ask.Price - bid.Price
}

// MidPrice returns the midpoint of the touch, or 0 for a one-sided book.
func (b *OrderBook) MidPrice() float64 {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0
	}
	return (bid.Price + ask.Price) / 2
}

// TotalSize sums the size of every level on the opposite side of an order.
func (b *OrderBook) TotalSize(side string) float64 {
	levels := b.bids
	if side != domain.SideSell {
		levels = b.asks
	}
	total := 0.0
	for _, l := range levels {
		total += l.Size
	}
	return total
}

// Valid reports whether the book has both sides with positive prices and an uncrossed touch.
func (b *OrderBook) Valid() bool {
	if b == nil {
		return false
	}
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return false
	}
	if bid.Price <= 0 || ask.Price <= 0 || bid.Price > ask.Price {
		return false
	}
	return b.bids[len(b.bids)-1].Price > 0
}
