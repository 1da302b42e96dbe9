package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOrder is returned for orders that cannot be matched.
var ErrInvalidOrder = errors.New("invalid order")

// Side constants
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order type constants
const (
	OrderTypeMarket     = "MARKET"
	OrderTypeLimit      = "LIMIT"
	OrderTypeStopMarket = "STOP_MARKET"
	OrderTypeStopLimit  = "STOP_LIMIT"
)

// Time-in-force constants
const (
	TimeInForceGTC = "GTC"
	TimeInForceIOC = "IOC"
	TimeInForceFOK = "FOK"
)

// SimulatedOrder is an immutable order proposed by a strategy.
type SimulatedOrder struct {
	OrderID     string   // assigned by engine when empty
	Symbol      string   // instrument symbol
	Side        string   // BUY | SELL
	Type        string   // MARKET | LIMIT | STOP_MARKET | STOP_LIMIT
	Quantity    float64  // base units, > 0
	LimitPrice  *float64 // LIMIT and STOP_LIMIT only
	StopPrice   *float64 // STOP_MARKET and STOP_LIMIT only
	TimeInForce string   // GTC | IOC | FOK
	ReduceOnly  bool     // may only shrink existing exposure
	TimestampNs int64    // submission time
}

// Sign returns +1 for buys and -1 for sells.
func (o *SimulatedOrder) Sign() float64 {
	if o.Side == SideSell {
		return -1
	}
	return 1
}

// IsStop reports whether the order waits on a stop trigger.
func (o *SimulatedOrder) IsStop() bool {
	return o.Type == OrderTypeStopMarket || o.Type == OrderTypeStopLimit
}

// Validate checks quantity, side and the prices each order type needs.
func (o *SimulatedOrder) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return fmt.Errorf("%w: side %q", ErrInvalidOrder, o.Side)
	}
	if math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) || o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %v", ErrInvalidOrder, o.Quantity)
	}

	switch o.Type {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if o.LimitPrice == nil || !isPositive(*o.LimitPrice) {
			return fmt.Errorf("%w: LIMIT requires positive limit price", ErrInvalidOrder)
		}
	case OrderTypeStopMarket:
		if o.StopPrice == nil || !isPositive(*o.StopPrice) {
			return fmt.Errorf("%w: STOP_MARKET requires positive stop price", ErrInvalidOrder)
		}
	case OrderTypeStopLimit:
		if o.StopPrice == nil || !isPositive(*o.StopPrice) {
			return fmt.Errorf("%w: STOP_LIMIT requires positive stop price", ErrInvalidOrder)
		}
		if o.LimitPrice == nil || !isPositive(*o.LimitPrice) {
			return fmt.Errorf("%w: STOP_LIMIT requires positive limit price", ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidOrder, o.Type)
	}

	switch o.TimeInForce {
	case "", TimeInForceGTC, TimeInForceIOC, TimeInForceFOK:
	default:
		return fmt.Errorf("%w: time in force %q", ErrInvalidOrder, o.TimeInForce)
	}
	return nil
}
