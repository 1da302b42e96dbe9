// Package metrics computes aggregate performance statistics for a backtest run.
package metrics

import (
	"math"
	"sort"

	"backtest-lab/internal/domain"
)

// Metric constants
const (
	TradingDaysPerYear = 252
	MaxProfitFactor    = 999.0 // reported when there are wins and no losses
	VaRConfidence      = 0.95
	msPerYear          = 365.25 * 24 * 60 * 60 * 1000
)

// Input holds everything Compute needs.
// Trades must be in execution order.
type Input struct {
	InitialCapital float64
	FinalCapital   float64
	StartMs        int64
	EndMs          int64
	Trades         []domain.Trade
}

// Summary is the set of aggregate statistics of a run.
// Degenerate statistics are 0, never NaN or Inf.
type Summary struct {
	TotalReturn      float64 // %
	AnnualizedReturn float64 // %
	WinRate          float64 // %
	MaxDrawdown      float64 // %
	SharpeRatio      float64
	SortinoRatio     float64
	CalmarRatio      float64
	VaR95            float64 // % loss per trade
	ProfitFactor     float64

	TotalTrades          int // exit trades
	Wins                 int
	Losses               int
	AvgWin               float64
	AvgLoss              float64 // <= 0
	MaxConsecutiveLosses int
	TotalCommission      float64
}

// Compute calculates all metrics from a run's capital and trades.
func Compute(in Input) Summary {
	var exits []domain.Trade
	commission := 0.0
	for _, t := range in.Trades {
		commission += t.Commission
		if t.Kind == domain.TradeKindExit {
			exits = append(exits, t)
		}
	}

	returns := make([]float64, len(exits))
	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	for i, t := range exits {
		returns[i] = t.ReturnPct
		if t.NetPnL > 0 {
			wins++
			winSum += t.NetPnL
		} else {
			losses++
			lossSum += t.NetPnL
		}
	}

	s := Summary{
		TotalReturn:          computeTotalReturn(in.InitialCapital, in.FinalCapital),
		AnnualizedReturn:     computeAnnualizedReturn(in.InitialCapital, in.FinalCapital, in.StartMs, in.EndMs),
		WinRate:              computeWinRate(wins, len(exits)) * 100,
		MaxDrawdown:          computeMaxDrawdownPct(in.InitialCapital, exits),
		SharpeRatio:          computeSharpe(returns),
		SortinoRatio:         computeSortino(returns),
		VaR95:                computeVaR(returns, VaRConfidence),
		ProfitFactor:         computeProfitFactor(exits),
		TotalTrades:          len(exits),
		Wins:                 wins,
		Losses:               losses,
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(exits),
		TotalCommission:      commission,
	}
	if wins > 0 {
		s.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		s.AvgLoss = lossSum / float64(losses)
	}
	if s.MaxDrawdown > 0 {
		s.CalmarRatio = s.AnnualizedReturn / s.MaxDrawdown
	}
	return s
}

// Apply copies the summary into result. Alpha and Beta stay 0.
func (s Summary) Apply(r *domain.BacktestResult) {
	r.TotalReturn = s.TotalReturn
	r.AnnualizedReturn = s.AnnualizedReturn
	r.WinRate = s.WinRate
	r.MaxDrawdown = s.MaxDrawdown
	r.SharpeRatio = s.SharpeRatio
	r.SortinoRatio = s.SortinoRatio
	r.CalmarRatio = s.CalmarRatio
	r.VaR95 = s.VaR95
	r.ProfitFactor = s.ProfitFactor
	r.TotalTrades = s.TotalTrades
	r.Wins = s.Wins
	r.Losses = s.Losses
	r.AvgWin = s.AvgWin
	r.AvgLoss = s.AvgLoss
	r.MaxConsecutiveLosses = s.MaxConsecutiveLosses
	r.TotalCommission = s.TotalCommission
	r.Alpha = 0
	r.Beta = 0
}

// computeTotalReturn returns (final - initial) / initial * 100.
func computeTotalReturn(initial, final float64) float64 {
	if initial <= 0 {
		return 0
	}
	return (final - initial) / initial * 100
}

// computeAnnualizedReturn compounds the total return over the period in
// 365.25-day years. A period shorter than one millisecond yields 0.
func computeAnnualizedReturn(initial, final float64, startMs, endMs int64) float64 {
	if initial <= 0 || endMs <= startMs {
		return 0
	}
	growth := final / initial
	if growth <= 0 {
		return -100
	}
	years := float64(endMs-startMs) / msPerYear
	out := (math.Pow(growth, 1/years) - 1) * 100
	if math.IsInf(out, 0) || math.IsNaN(out) {
		return 0
	}
	return out
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeSharpe returns mean / stddev * sqrt(252) over per-trade returns.
func computeSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := computeMean(returns)
	sd := computeStddev(returns, mean)
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(TradingDaysPerYear)
}

// computeSortino returns mean / downside deviation * sqrt(252).
// Downside deviation uses a zero target over all returns.
func computeSortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
		}
	}
	dd := math.Sqrt(sumSq / float64(len(returns)))
	if dd == 0 {
		return 0
	}
	return computeMean(returns) / dd * math.Sqrt(TradingDaysPerYear)
}

// computeVaR returns historical value-at-risk as a positive loss.
func computeVaR(returns []float64, confidence float64) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := int((1 - confidence) * float64(n))
	if index >= n {
		index = n - 1
	}
	return -sorted[index]
}

// computeMaxDrawdownPct replays exit NetPnL from initial capital and returns
// the worst peak-to-trough drop as a percentage of the peak.
func computeMaxDrawdownPct(initial float64, exits []domain.Trade) float64 {
	capital := initial
	peak := initial
	maxDrawdown := 0.0

	for _, t := range exits {
		capital += t.NetPnL
		if capital > peak {
			peak = capital
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - capital) / peak * 100
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeProfitFactor returns gross profit / gross loss.
// No wins and no losses gives 0; wins without losses gives MaxProfitFactor.
func computeProfitFactor(exits []domain.Trade) float64 {
	grossWin, grossLoss := 0.0, 0.0
	for _, t := range exits {
		switch {
		case t.NetPnL > 0:
			grossWin += t.NetPnL
		case t.NetPnL < 0:
			grossLoss -= t.NetPnL
		}
	}
	if grossLoss == 0 {
		if grossWin > 0 {
			return MaxProfitFactor
		}
		return 0
	}
	return math.Min(grossWin/grossLoss, MaxProfitFactor)
}

// computeMaxConsecutiveLosses finds longest streak of NetPnL <= 0.
func computeMaxConsecutiveLosses(exits []domain.Trade) int {
	maxStreak := 0
	currentStreak := 0

	for _, t := range exits {
		if t.NetPnL <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
