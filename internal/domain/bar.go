package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBar is returned when a bar carries corrupt market data.
var ErrInvalidBar = errors.New("invalid bar")

// Bar represents one OHLC market bar.
// Corresponds to bars table in the ClickHouse schema.
type Bar struct {
	Symbol      string  // instrument symbol
	TimestampMs int64   // bar open time (ms)
	Open        float64 // open price
	High        float64 // high price
	Low         float64 // low price
	Close       float64 // close price
	Volume      float64 // traded volume in base units

	VWAP    *float64 // volume-weighted average price (nullable)
	Bid     *float64 // best bid at close (nullable)
	Ask     *float64 // best ask at close (nullable)
	BidSize *float64 // size at best bid (nullable)
	AskSize *float64 // size at best ask (nullable)
}

// TimestampNs returns the bar timestamp in nanoseconds.
func (b *Bar) TimestampNs() int64 {
	return b.TimestampMs * 1_000_000
}

// HasQuote reports whether both bid and ask are present.
func (b *Bar) HasQuote() bool {
	return b.Bid != nil && b.Ask != nil
}

// Validate rejects bars that must never reach PnL math.
func (b *Bar) Validate() error {
	if b.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidBar)
	}
	prices := []struct {
		name  string
		value float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	}
	for _, p := range prices {
		if !isPositive(p.value) {
			return fmt.Errorf("%w: %s %s=%v at %d", ErrInvalidBar, b.Symbol, p.name, p.value, b.TimestampMs)
		}
	}
	if b.High < b.Low {
		return fmt.Errorf("%w: %s high %v below low %v at %d", ErrInvalidBar, b.Symbol, b.High, b.Low, b.TimestampMs)
	}
	if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
		return fmt.Errorf("%w: %s volume=%v at %d", ErrInvalidBar, b.Symbol, b.Volume, b.TimestampMs)
	}

	optional := []struct {
		name  string
		value *float64
	}{
		{"vwap", b.VWAP},
		{"bid", b.Bid},
		{"ask", b.Ask},
		{"bid_size", b.BidSize},
		{"ask_size", b.AskSize},
	}
	for _, p := range optional {
		if p.value != nil && !isPositive(*p.value) {
			return fmt.Errorf("%w: %s %s=%v at %d", ErrInvalidBar, b.Symbol, p.name, *p.value, b.TimestampMs)
		}
	}
	if b.HasQuote() && *b.Bid > *b.Ask {
		return fmt.Errorf("%w: %s crossed quote bid=%v ask=%v at %d", ErrInvalidBar, b.Symbol, *b.Bid, *b.Ask, b.TimestampMs)
	}
	return nil
}

func isPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
