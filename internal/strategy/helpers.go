package strategy

import (
	"math"

	"backtest-lab/internal/domain"
)

// window is a fixed-capacity rolling series.
type window struct {
	values []float64
	size   int
}

func newWindow(size int) *window {
	return &window{values: make([]float64, 0, size), size: size}
}

func (w *window) push(v float64) {
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
}

func (w *window) full() bool {
	return len(w.values) == w.size
}

// mean returns the mean of the last n values.
func (w *window) mean(n int) float64 {
	if n > len(w.values) {
		n = len(w.values)
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range w.values[len(w.values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// stddev returns the sample standard deviation of the window.
func (w *window) stddev() float64 {
	n := len(w.values)
	if n < 2 {
		return 0
	}
	m := w.mean(n)
	sumSq := 0.0
	for _, v := range w.values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

func (w *window) max() float64 {
	out := math.Inf(-1)
	for _, v := range w.values {
		out = math.Max(out, v)
	}
	return out
}

func (w *window) min() float64 {
	out := math.Inf(1)
	for _, v := range w.values {
		out = math.Min(out, v)
	}
	return out
}

// sizeFor returns the quantity worth pct percent of capital at price.
func sizeFor(capital, pct, price float64) float64 {
	if capital <= 0 || price <= 0 {
		return 0
	}
	return capital * pct / 100 / price
}

func marketOrder(symbol, side string, qty float64, tsNs int64, reduceOnly bool) domain.SimulatedOrder {
	return domain.SimulatedOrder{
		Symbol:      symbol,
		Side:        side,
		Type:        domain.OrderTypeMarket,
		Quantity:    qty,
		TimeInForce: domain.TimeInForceGTC,
		ReduceOnly:  reduceOnly,
		TimestampNs: tsNs,
	}
}

func limitOrder(symbol, side string, qty, price float64, tsNs int64) domain.SimulatedOrder {
	return domain.SimulatedOrder{
		Symbol:      symbol,
		Side:        side,
		Type:        domain.OrderTypeLimit,
		Quantity:    qty,
		LimitPrice:  &price,
		TimeInForce: domain.TimeInForceGTC,
		TimestampNs: tsNs,
	}
}

func stopOrder(symbol, side string, qty, stop float64, tsNs int64, reduceOnly bool) domain.SimulatedOrder {
	return domain.SimulatedOrder{
		Symbol:      symbol,
		Side:        side,
		Type:        domain.OrderTypeStopMarket,
		Quantity:    qty,
		StopPrice:   &stop,
		TimeInForce: domain.TimeInForceGTC,
		ReduceOnly:  reduceOnly,
		TimestampNs: tsNs,
	}
}
