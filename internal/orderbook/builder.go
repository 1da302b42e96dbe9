package orderbook

import (
	"math"

	"backtest-lab/internal/domain"
)

// Synthetic book shape constants
const (
	DefaultBaseSize   = 1000.0 // level-0 size when the bar has no sizes or volume
	SizeDecay         = 0.3    // size of level i is base * e^(-SizeDecay*i)
	FallbackSpreadBps = 1.0    // spread as bps of mid when the bar has no quote
	VolumeShare       = 0.1    // share of bar volume used as level-0 size
)

// Builder derives synthetic books from bars.
type Builder struct {
	Depth           int     // levels per side
	DefaultBaseSize float64 // used when a bar carries no size information
}

// NewBuilder creates a builder with depth levels per side.
func NewBuilder(depth int) *Builder {
	if depth <= 0 {
		depth = domain.DefaultBookDepth
	}
	return &Builder{Depth: depth, DefaultBaseSize: DefaultBaseSize}
}

// FromBar builds a fresh book centered on the bar's quote (or close).
// Returns nil when no positive mid can be derived.
func (b *Builder) FromBar(bar *domain.Bar) *OrderBook {
	mid, spread := midAndSpread(bar)
	if !(mid > 0) || math.IsInf(mid, 0) {
		return nil
	}

	bidBase := b.baseSize(bar, bar.BidSize)
	askBase := b.baseSize(bar, bar.AskSize)

	bids := make([]Level, 0, b.Depth)
	asks := make([]Level, 0, b.Depth)
	for i := 0; i < b.Depth; i++ {
		offset := spread/2 + float64(i)*spread*0.5
		decay := math.Exp(-SizeDecay * float64(i))

		if bidPrice := mid - offset; bidPrice > 0 {
			bids = append(bids, Level{Price: bidPrice, Size: bidBase * decay})
		}
		asks = append(asks, Level{Price: mid + offset, Size: askBase * decay})
	}

	return &OrderBook{
		symbol:      bar.Symbol,
		bids:        bids,
		asks:        asks,
		timestampNs: bar.TimestampNs(),
	}
}

// Next returns the book for bar given the symbol's previous book.
// The previous book is re-centered on the bar's mid when possible,
// otherwise a fresh book is built.
func (b *Builder) Next(prev *OrderBook, bar *domain.Bar) *OrderBook {
	if prev == nil || prev.symbol != bar.Symbol {
		return b.FromBar(bar)
	}
	mid, _ := midAndSpread(bar)
	shifted := UpdateBook(prev, mid-prev.MidPrice(), bar.TimestampNs())
	if !shifted.Valid() {
		return b.FromBar(bar)
	}
	return shifted
}

// UpdateBook returns a copy of book with every level shifted by priceDelta.
func UpdateBook(book *OrderBook, priceDelta float64, timestampNs int64) *OrderBook {
	shift := func(levels []Level) []Level {
		out := make([]Level, len(levels))
		for i, l := range levels {
			out[i] = Level{Price: l.Price + priceDelta, Size: l.Size}
		}
		return out
	}
	return &OrderBook{
		symbol:      book.symbol,
		bids:        shift(book.bids),
		asks:        shift(book.asks),
		timestampNs: timestampNs,
	}
}

func midAndSpread(bar *domain.Bar) (float64, float64) {
	if bar.HasQuote() {
		mid := (*bar.Bid + *bar.Ask) / 2
		spread := *bar.Ask - *bar.Bid
		if spread > 0 {
			return mid, spread
		}
		return mid, mid * FallbackSpreadBps / 10000
	}
	return bar.Close, bar.Close * FallbackSpreadBps / 10000
}

func (b *Builder) baseSize(bar *domain.Bar, quoted *float64) float64 {
	if quoted != nil && *quoted > 0 {
		return *quoted
	}
	if bar.Volume > 0 {
		return bar.Volume * VolumeShare
	}
	if b.DefaultBaseSize > 0 {
		return b.DefaultBaseSize
	}
	return DefaultBaseSize
}
