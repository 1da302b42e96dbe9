// Package position implements the pure position transition function.
package position

import (
	"math"

	"backtest-lab/internal/domain"
)

// Epsilon is the quantity below which exposure is treated as flat.
const Epsilon = 1e-9

// StepKind classifies the effect of one fill.
type StepKind string

// Step kinds
const (
	StepOpen   StepKind = "OPEN"   // flat -> exposure
	StepExtend StepKind = "EXTEND" // same-sign addition
	StepReduce StepKind = "REDUCE" // partial close, sign kept
	StepClose  StepKind = "CLOSE"  // exposure -> flat
	StepFlip   StepKind = "FLIP"   // full close plus opposite open
)

// Step describes how one fill changed the position.
type Step struct {
	Kind       StepKind
	FillIndex  int
	ClosedQty  float64 // quantity of prior exposure closed
	OpenedQty  float64 // quantity of new or added exposure
	EntryPrice float64 // average price of the closed exposure
	Realized   float64 // PnL realized on ClosedQty
}

// Result is the position after a batch of fills.
type Result struct {
	Quantity    float64 // signed exposure, short negative
	AvgPrice    float64 // 0 when flat
	RealizedPnL float64 // summed over the batch
	Steps       []Step  // one per fill
}

// ApplyFills folds fills in order into signed exposure qty at avgPrice.
func ApplyFills(qty, avgPrice float64, fills []domain.SimulatedFill) Result {
	res := Result{Quantity: qty, AvgPrice: avgPrice}
	if math.Abs(res.Quantity) < Epsilon {
		res.Quantity, res.AvgPrice = 0, 0
	}
	for i := range fills {
		var step Step
		res.Quantity, res.AvgPrice, step = apply(res.Quantity, res.AvgPrice, &fills[i])
		step.FillIndex = i
		res.RealizedPnL += step.Realized
		res.Steps = append(res.Steps, step)
	}
	return res
}

// ApplyFill applies a single fill.
func ApplyFill(qty, avgPrice float64, fill domain.SimulatedFill) Result {
	return ApplyFills(qty, avgPrice, []domain.SimulatedFill{fill})
}

// DetectZeroCrossing reports whether fill would flip the sign of qty.
// Closing exactly to flat is not a crossing.
func DetectZeroCrossing(qty float64, fill domain.SimulatedFill) bool {
	if math.Abs(qty) < Epsilon {
		return false
	}
	next := qty + fill.SignedQuantity()
	if math.Abs(next) < Epsilon {
		return false
	}
	return (qty > 0) != (next > 0)
}

func apply(qty, avgPrice float64, fill *domain.SimulatedFill) (float64, float64, Step) {
	delta := fill.SignedQuantity()
	price := fill.Price

	if qty == 0 {
		return delta, price, Step{Kind: StepOpen, OpenedQty: fill.Quantity}
	}

	if (qty > 0) == (delta > 0) {
		next := qty + delta
		avg := (math.Abs(qty)*avgPrice + fill.Quantity*price) / math.Abs(next)
		return next, avg, Step{Kind: StepExtend, OpenedQty: fill.Quantity}
	}

	direction := 1.0
	if qty < 0 {
		direction = -1
	}
	exposure := math.Abs(qty)
	closed := math.Min(fill.Quantity, exposure)
	step := Step{
		ClosedQty:  closed,
		EntryPrice: avgPrice,
		Realized:   closed * (price - avgPrice) * direction,
	}

	remainder := fill.Quantity - exposure
	switch {
	case remainder < -Epsilon:
		step.Kind = StepReduce
		return qty + delta, avgPrice, step
	case remainder <= Epsilon:
		step.Kind = StepClose
		return 0, 0, step
	default:
		step.Kind = StepFlip
		step.OpenedQty = remainder
		return -direction * remainder, price, step
	}
}
