package strategy

import (
	"fmt"
	"math"

	"backtest-lab/internal/domain"
)

// TrendFollowingStrategy trades fast/slow SMA crossovers.
type TrendFollowingStrategy struct {
	FastPeriod  int
	SlowPeriod  int
	PositionPct float64 // % of capital per entry
	AllowShort  bool

	closes map[string]*window
	above  map[string]bool // fast above slow on the previous bar
	primed map[string]bool
}

var _ SignalSource = (*TrendFollowingStrategy)(nil)

// NewTrendFollowingStrategy creates a new TrendFollowingStrategy.
func NewTrendFollowingStrategy(fast, slow int, positionPct float64, allowShort bool) *TrendFollowingStrategy {
	s := &TrendFollowingStrategy{
		FastPeriod:  fast,
		SlowPeriod:  slow,
		PositionPct: positionPct,
		AllowShort:  allowShort,
	}
	s.Reset()
	return s
}

// ID returns the strategy identifier including parameters.
func (s *TrendFollowingStrategy) ID() string {
	return fmt.Sprintf("TREND_FOLLOWING_%d_%d", s.FastPeriod, s.SlowPeriod)
}

// Reset clears rolling state.
func (s *TrendFollowingStrategy) Reset() {
	s.closes = make(map[string]*window)
	s.above = make(map[string]bool)
	s.primed = make(map[string]bool)
}

// Generate emits a market order on each crossover.
// Bullish cross: buy to go long (closing any short first).
// Bearish cross: sell the long, and go short when allowed.
func (s *TrendFollowingStrategy) Generate(bar *domain.Bar, state *State) ([]domain.SimulatedOrder, error) {
	w, ok := s.closes[bar.Symbol]
	if !ok {
		w = newWindow(s.SlowPeriod)
		s.closes[bar.Symbol] = w
	}
	w.push(bar.Close)
	if !w.full() {
		return nil, nil
	}

	fast := w.mean(s.FastPeriod)
	slow := w.mean(s.SlowPeriod)
	above := fast > slow

	wasPrimed := s.primed[bar.Symbol]
	prevAbove := s.above[bar.Symbol]
	s.above[bar.Symbol] = above
	s.primed[bar.Symbol] = true
	if !wasPrimed || above == prevAbove {
		return nil, nil
	}

	exposure := state.Exposure(bar.Symbol)
	size := sizeFor(state.Capital, s.PositionPct, bar.Close)

	if above {
		qty := 0.0
		if exposure < 0 {
			qty += -exposure
		}
		if exposure <= 0 {
			qty += size
		}
		if qty <= 0 {
			return nil, nil
		}
		return []domain.SimulatedOrder{marketOrder(bar.Symbol, domain.SideBuy, qty, state.TimestampNs, false)}, nil
	}

	qty := math.Max(exposure, 0)
	if s.AllowShort && exposure >= 0 {
		qty += size
	}
	if qty <= 0 {
		return nil, nil
	}
	return []domain.SimulatedOrder{marketOrder(bar.Symbol, domain.SideSell, qty, state.TimestampNs, false)}, nil
}
