package strategy

import (
	"fmt"

	"backtest-lab/internal/domain"
)

// BreakoutStrategy trades Donchian channel breakouts with stop orders.
// While flat it resubmits a buy stop at the channel high every bar; while
// long it resubmits a reduce-only sell stop at the channel low.
type BreakoutStrategy struct {
	Lookback    int
	PositionPct float64

	highs map[string]*window
	lows  map[string]*window
}

var _ SignalSource = (*BreakoutStrategy)(nil)

// NewBreakoutStrategy creates a new BreakoutStrategy.
func NewBreakoutStrategy(lookback int, positionPct float64) *BreakoutStrategy {
	s := &BreakoutStrategy{Lookback: lookback, PositionPct: positionPct}
	s.Reset()
	return s
}

// ID returns the strategy identifier including parameters.
func (s *BreakoutStrategy) ID() string {
	return fmt.Sprintf("BREAKOUT_%d", s.Lookback)
}

// Reset clears rolling state.
func (s *BreakoutStrategy) Reset() {
	s.highs = make(map[string]*window)
	s.lows = make(map[string]*window)
}

// Generate uses the channel of the previous Lookback bars, then adds bar to it.
func (s *BreakoutStrategy) Generate(bar *domain.Bar, state *State) ([]domain.SimulatedOrder, error) {
	highs, ok := s.highs[bar.Symbol]
	if !ok {
		highs = newWindow(s.Lookback)
		s.highs[bar.Symbol] = highs
		s.lows[bar.Symbol] = newWindow(s.Lookback)
	}
	lows := s.lows[bar.Symbol]

	var orders []domain.SimulatedOrder
	if highs.full() {
		exposure := state.Exposure(bar.Symbol)
		switch {
		case exposure > 0:
			orders = append(orders, stopOrder(bar.Symbol, domain.SideSell, exposure, lows.min(), state.TimestampNs, true))
		case exposure == 0:
			if size := sizeFor(state.Capital, s.PositionPct, bar.Close); size > 0 {
				orders = append(orders, stopOrder(bar.Symbol, domain.SideBuy, size, highs.max(), state.TimestampNs, false))
			}
		}
	}

	highs.push(bar.High)
	lows.push(bar.Low)
	return orders, nil
}
