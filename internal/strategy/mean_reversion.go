package strategy

import (
	"fmt"

	"backtest-lab/internal/domain"
)

// MeanReversionStrategy fades z-score extremes of close against its rolling mean.
// Entries are passive limit orders at the close; exits are reduce-only market orders.
type MeanReversionStrategy struct {
	Lookback    int
	EntryZ      float64
	ExitZ       float64
	PositionPct float64
	AllowShort  bool

	closes map[string]*window
}

var _ SignalSource = (*MeanReversionStrategy)(nil)

// NewMeanReversionStrategy creates a new MeanReversionStrategy.
func NewMeanReversionStrategy(lookback int, entryZ, exitZ, positionPct float64, allowShort bool) *MeanReversionStrategy {
	s := &MeanReversionStrategy{
		Lookback:    lookback,
		EntryZ:      entryZ,
		ExitZ:       exitZ,
		PositionPct: positionPct,
		AllowShort:  allowShort,
	}
	s.Reset()
	return s
}

// ID returns the strategy identifier including parameters.
func (s *MeanReversionStrategy) ID() string {
	return fmt.Sprintf("MEAN_REVERSION_%d_%.2f_%.2f", s.Lookback, s.EntryZ, s.ExitZ)
}

// Reset clears rolling state.
func (s *MeanReversionStrategy) Reset() {
	s.closes = make(map[string]*window)
}

// Generate evaluates the z-score of the bar close.
func (s *MeanReversionStrategy) Generate(bar *domain.Bar, state *State) ([]domain.SimulatedOrder, error) {
	w, ok := s.closes[bar.Symbol]
	if !ok {
		w = newWindow(s.Lookback)
		s.closes[bar.Symbol] = w
	}
	w.push(bar.Close)
	if !w.full() {
		return nil, nil
	}

	sd := w.stddev()
	if sd == 0 {
		return nil, nil
	}
	z := (bar.Close - w.mean(s.Lookback)) / sd
	exposure := state.Exposure(bar.Symbol)

	switch {
	case exposure > 0 && z >= -s.ExitZ:
		return []domain.SimulatedOrder{marketOrder(bar.Symbol, domain.SideSell, exposure, state.TimestampNs, true)}, nil
	case exposure < 0 && z <= s.ExitZ:
		return []domain.SimulatedOrder{marketOrder(bar.Symbol, domain.SideBuy, -exposure, state.TimestampNs, true)}, nil
	case exposure != 0:
		return nil, nil
	}

	size := sizeFor(state.Capital, s.PositionPct, bar.Close)
	if size <= 0 {
		return nil, nil
	}
	switch {
	case z <= -s.EntryZ:
		return []domain.SimulatedOrder{limitOrder(bar.Symbol, domain.SideBuy, size, bar.Close, state.TimestampNs)}, nil
	case z >= s.EntryZ && s.AllowShort:
		return []domain.SimulatedOrder{limitOrder(bar.Symbol, domain.SideSell, size, bar.Close, state.TimestampNs)}, nil
	}
	return nil, nil
}
