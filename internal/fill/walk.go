package fill

import "backtest-lab/internal/orderbook"

// LevelFill is the quantity taken from one book level.
type LevelFill struct {
	Price    float64
	Quantity float64
}

// Walk is the result of consuming book levels in price priority.
type Walk struct {
	Levels []LevelFill
	Filled float64 // total quantity taken, never more than requested
	VWAP   float64 // quantity-weighted average price, 0 when nothing filled
}

// ConsumeLevels takes up to qty from levels in order. A remainder left when
// the book is exhausted stays unfilled. When the book covers qty, Filled
// equals qty exactly.
func ConsumeLevels(levels []orderbook.Level, qty float64) Walk {
	var w Walk
	if qty <= 0 {
		return w
	}

	remaining := qty
	notional := 0.0
	covered := false
	for _, l := range levels {
		if l.Size <= 0 {
			continue
		}
		take := l.Size
		if take >= remaining {
			take = remaining
			covered = true
		}
		w.Levels = append(w.Levels, LevelFill{Price: l.Price, Quantity: take})
		notional += l.Price * take
		w.Filled += take
		remaining -= take
		if covered {
			break
		}
	}

	if covered {
		w.Filled = qty
	}
	if w.Filled > 0 {
		w.VWAP = notional / w.Filled
	}
	return w
}
