// Package strategy provides signal sources that turn bars into orders.
package strategy

import (
	"backtest-lab/internal/domain"
)

// SignalSource produces orders from bars.
type SignalSource interface {
	// Generate returns the orders to submit for bar.
	// An error aborts the run.
	Generate(bar *domain.Bar, state *State) ([]domain.SimulatedOrder, error)

	// ID returns strategy identifier (includes parameters).
	ID() string
}

// Resetter is implemented by sources with per-run state.
// The engine calls Reset before the first bar.
type Resetter interface {
	Reset()
}

// State is the running engine state visible to a strategy.
// Positions is a copy; mutating it has no effect on the engine.
type State struct {
	BarIndex    int
	TimestampNs int64
	Capital     float64
	Positions   map[string]domain.Position
}

// Position returns the position in symbol, flat when absent.
func (s *State) Position(symbol string) domain.Position {
	if p, ok := s.Positions[symbol]; ok {
		return p
	}
	return domain.Position{Symbol: symbol, Side: domain.PositionFlat}
}

// Exposure returns signed exposure in symbol.
func (s *State) Exposure(symbol string) float64 {
	p := s.Position(symbol)
	return p.Signed()
}
