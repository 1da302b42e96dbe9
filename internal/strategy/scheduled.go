package strategy

import (
	"fmt"

	"backtest-lab/internal/domain"
)

// ScheduledStrategy submits market orders at fixed bar indices.
// A negative index disables that side.
type ScheduledStrategy struct {
	BuyAtBar  int
	SellAtBar int
	Quantity  float64
}

var _ SignalSource = (*ScheduledStrategy)(nil)

// NewScheduledStrategy creates a new ScheduledStrategy.
func NewScheduledStrategy(buyAtBar, sellAtBar int, quantity float64) *ScheduledStrategy {
	return &ScheduledStrategy{BuyAtBar: buyAtBar, SellAtBar: sellAtBar, Quantity: quantity}
}

// ID returns the strategy identifier including parameters.
func (s *ScheduledStrategy) ID() string {
	return fmt.Sprintf("SCHEDULED_%d_%d", s.BuyAtBar, s.SellAtBar)
}

// Generate emits the scheduled order for the current bar index.
func (s *ScheduledStrategy) Generate(bar *domain.Bar, state *State) ([]domain.SimulatedOrder, error) {
	var orders []domain.SimulatedOrder
	if state.BarIndex == s.BuyAtBar {
		orders = append(orders, marketOrder(bar.Symbol, domain.SideBuy, s.Quantity, state.TimestampNs, false))
	}
	if state.BarIndex == s.SellAtBar {
		orders = append(orders, marketOrder(bar.Symbol, domain.SideSell, s.Quantity, state.TimestampNs, false))
	}
	return orders, nil
}
