// Package fill matches simulated orders against synthetic order books.
package fill

import (
	"math"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/idhash"
	"backtest-lab/internal/orderbook"
	"backtest-lab/internal/random"
)

// Params configures a fill model.
type Params struct {
	LimitFillProbability float64 // chance a passive limit order fills
	SlippageProbability  float64 // chance a market fill is slipped
	AvgSlippageBps       float64 // average adverse slippage (bps)
	CommissionRate       float64 // taker rate on notional
	MakerDiscount        float64 // maker rate = max(0, CommissionRate - MakerDiscount)
	BaseLatencyMs        float64
	LatencyVarianceMs    float64
	LatencySizeFactorMs  float64 // extra ms per unit of quantity
}

// ParamsFromConfig resolves fill parameters from a backtest config.
func ParamsFromConfig(cfg *domain.BacktestConfig) (Params, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return Params{}, err
	}
	return Params{
		LimitFillProbability: profile.LimitFillProbability,
		SlippageProbability:  profile.SlippageProbability,
		AvgSlippageBps:       profile.AvgSlippageBps,
		CommissionRate:       cfg.CommissionRate,
		MakerDiscount:        cfg.MakerDiscount,
		BaseLatencyMs:        profile.BaseLatencyMs,
		LatencyVarianceMs:    profile.LatencyVarianceMs,
		LatencySizeFactorMs:  profile.LatencySizeFactorMs,
	}, nil
}

// TakerRate returns the commission rate for liquidity-removing fills.
func (p Params) TakerRate() float64 {
	return p.CommissionRate
}

// MakerRate returns the commission rate for resting fills, floored at zero.
func (p Params) MakerRate() float64 {
	return math.Max(0, p.CommissionRate-p.MakerDiscount)
}

// Model is the matching engine. It draws from rng in a fixed order per order:
// slippage decision, slippage magnitude (only when slipped), then latency
// jitter. Limit orders draw their fill decision before latency.
type Model struct {
	params Params
	rng    *random.Source
}

// NewModel creates a fill model drawing randomness from rng.
func NewModel(params Params, rng *random.Source) *Model {
	return &Model{params: params, rng: rng}
}

// Params returns the model parameters.
func (m *Model) Params() Params {
	return m.params
}

// Match returns the fills produced by order against book.
// Returns nil for a missing or invalid book, a book of another symbol,
// an untriggered stop, or an unfilled limit order.
func (m *Model) Match(order *domain.SimulatedOrder, book *orderbook.OrderBook) []domain.SimulatedFill {
	if !book.Valid() || book.Symbol() != order.Symbol {
		return nil
	}

	if order.IsStop() && !Triggered(order, book) {
		return nil
	}

	switch order.Type {
	case domain.OrderTypeMarket, domain.OrderTypeStopMarket:
		return m.matchMarket(order, book)
	case domain.OrderTypeLimit, domain.OrderTypeStopLimit:
		return m.matchLimit(order, book)
	default:
		return nil
	}
}

// Triggered reports whether a stop order's trigger condition holds.
// Buy stops trigger when best ask >= stop, sell stops when best bid <= stop.
func Triggered(order *domain.SimulatedOrder, book *orderbook.OrderBook) bool {
	if order.StopPrice == nil {
		return true
	}
	stop := *order.StopPrice
	if order.Side == domain.SideBuy {
		ask, ok := book.BestAsk()
		return ok && ask.Price >= stop
	}
	bid, ok := book.BestBid()
	return ok && bid.Price <= stop
}

// Settle fills order in full at price as a taker, without slippage or
// latency. Used for engine-driven exits at a known mark.
func (m *Model) Settle(order *domain.SimulatedOrder, price float64, timestampNs int64) domain.SimulatedFill {
	return domain.SimulatedFill{
		FillID:      idhash.ComputeFillID(order.OrderID, 0),
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    order.Quantity,
		Price:       price,
		Commission:  price * order.Quantity * m.params.TakerRate(),
		TimestampNs: timestampNs,
		Liquidity:   domain.LiquidityTaker,
	}
}

func (m *Model) matchMarket(order *domain.SimulatedOrder, book *orderbook.OrderBook) []domain.SimulatedFill {
	walk := ConsumeLevels(book.Opposite(order.Side), order.Quantity)
	if walk.Filled <= 0 {
		return nil
	}
	if order.TimeInForce == domain.TimeInForceFOK && walk.Filled < order.Quantity {
		return nil
	}

	slippage := m.slippage(walk.VWAP) * order.Sign()
	price := walk.VWAP + slippage

	return []domain.SimulatedFill{{
		FillID:      idhash.ComputeFillID(order.OrderID, 0),
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    walk.Filled,
		Price:       price,
		Commission:  price * walk.Filled * m.params.TakerRate(),
		TimestampNs: m.fillTimestamp(order, walk.Filled),
		Liquidity:   domain.LiquidityTaker,
		Slippage:    slippage,
	}}
}

func (m *Model) matchLimit(order *domain.SimulatedOrder, book *orderbook.OrderBook) []domain.SimulatedFill {
	limit := *order.LimitPrice

	if touch, crosses := crossingPrice(order.Side, limit, book); crosses {
		return []domain.SimulatedFill{{
			FillID:      idhash.ComputeFillID(order.OrderID, 0),
			OrderID:     order.OrderID,
			Symbol:      order.Symbol,
			Side:        order.Side,
			Quantity:    order.Quantity,
			Price:       touch,
			Commission:  touch * order.Quantity * m.params.TakerRate(),
			TimestampNs: m.fillTimestamp(order, order.Quantity),
			Liquidity:   domain.LiquidityTaker,
		}}
	}

	// IOC and FOK orders never rest, so a passive price cannot fill.
	if order.TimeInForce == domain.TimeInForceIOC || order.TimeInForce == domain.TimeInForceFOK {
		return nil
	}
	if m.rng.Float64() >= m.params.LimitFillProbability {
		return nil
	}

	return []domain.SimulatedFill{{
		FillID:      idhash.ComputeFillID(order.OrderID, 0),
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    order.Quantity,
		Price:       limit,
		Commission:  limit * order.Quantity * m.params.MakerRate(),
		TimestampNs: m.fillTimestamp(order, order.Quantity),
		Liquidity:   domain.LiquidityMaker,
	}}
}

// crossingPrice returns the touch price when a limit order crosses the book.
func crossingPrice(side string, limit float64, book *orderbook.OrderBook) (float64, bool) {
	if side == domain.SideBuy {
		ask, ok := book.BestAsk()
		return ask.Price, ok && limit >= ask.Price
	}
	bid, ok := book.BestBid()
	return bid.Price, ok && limit <= bid.Price
}

// slippage returns the unsigned slippage magnitude for price.
// Magnitude is price * bps/10000 * (0.5 + 0.5*|z|), z ~ N(0,1).
func (m *Model) slippage(price float64) float64 {
	if m.rng.Float64() >= m.params.SlippageProbability {
		return 0
	}
	z := m.rng.NormFloat64()
	return price * m.params.AvgSlippageBps / 10000 * (0.5 + 0.5*math.Abs(z))
}

// fillTimestamp applies modeled latency to the order's submission time.
func (m *Model) fillTimestamp(order *domain.SimulatedOrder, qty float64) int64 {
	jitter := m.rng.Uniform(-m.params.LatencyVarianceMs, m.params.LatencyVarianceMs)
	latencyMs := m.params.BaseLatencyMs + qty*m.params.LatencySizeFactorMs + jitter
	if latencyMs < 0 {
		latencyMs = 0
	}
	return order.TimestampNs + int64(math.Round(latencyMs*1e6))
}
