// Package verification replays stored backtest runs and compares them with
// what was persisted. Two runs with the same inputs and seed must produce a
// bit-identical fill sequence.
package verification

import (
	"context"
	"math"

	"backtest-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons of derived values.
// Fills are compared exactly through their digest.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID          string            // verified run ID
	Match          bool              // true if all fields match
	Divergences    []FieldDivergence // list of divergent fields
	StoredDigest   string            // fills digest from stored run
	ReplayedDigest string            // fills digest from replayed run
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  // total runs verified
	MatchedRuns   int                  // runs that matched exactly
	DivergentRuns int                  // runs with divergences
	SkippedRuns   int                  // runs that cannot be replayed
	Results       []VerificationResult // individual results
}

// Verifier interface for run replay verification.
type Verifier interface {
	// VerifyRun verifies a single run by ID.
	// It loads the stored run, replays it over the same bars with the same
	// seed and compares the outcome.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyAll verifies all stored runs.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// divergences accumulates field mismatches.
type divergences []FieldDivergence

func (d *divergences) exact(field string, expected, actual interface{}) {
	if expected != actual {
		*d = append(*d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}
}

func (d *divergences) float(field string, expected, actual float64) {
	if !floatEquals(expected, actual) {
		*d = append(*d, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}
}

// CompareResults compares a stored run with its replay and returns divergences.
// Summary and trade values use FloatTolerance; the fill sequence must be
// bit-identical.
func CompareResults(stored, replayed *domain.BacktestResult) []FieldDivergence {
	var d divergences

	d.exact("RunID", stored.RunID, replayed.RunID)
	d.exact("StrategyID", stored.StrategyID, replayed.StrategyID)
	d.exact("Status", stored.Status, replayed.Status)
	d.exact("Seed", stored.Seed, replayed.Seed)
	d.exact("StartMs", stored.StartMs, replayed.StartMs)
	d.exact("EndMs", stored.EndMs, replayed.EndMs)
	d.exact("BarsProcessed", stored.BarsProcessed, replayed.BarsProcessed)
	d.exact("DroppedOrders", stored.DroppedOrders, replayed.DroppedOrders)

	// Capital and metrics
	d.float("InitialCapital", stored.InitialCapital, replayed.InitialCapital)
	d.float("FinalCapital", stored.FinalCapital, replayed.FinalCapital)
	d.float("TotalReturn", stored.TotalReturn, replayed.TotalReturn)
	d.float("AnnualizedReturn", stored.AnnualizedReturn, replayed.AnnualizedReturn)
	d.float("WinRate", stored.WinRate, replayed.WinRate)
	d.float("MaxDrawdown", stored.MaxDrawdown, replayed.MaxDrawdown)
	d.float("SharpeRatio", stored.SharpeRatio, replayed.SharpeRatio)
	d.float("SortinoRatio", stored.SortinoRatio, replayed.SortinoRatio)
	d.float("CalmarRatio", stored.CalmarRatio, replayed.CalmarRatio)
	d.float("VaR95", stored.VaR95, replayed.VaR95)
	d.float("ProfitFactor", stored.ProfitFactor, replayed.ProfitFactor)
	d.float("TotalCommission", stored.TotalCommission, replayed.TotalCommission)
	d.exact("TotalTrades", stored.TotalTrades, replayed.TotalTrades)
	d.exact("Wins", stored.Wins, replayed.Wins)
	d.exact("Losses", stored.Losses, replayed.Losses)
	d.exact("MaxConsecutiveLosses", stored.MaxConsecutiveLosses, replayed.MaxConsecutiveLosses)

	// Execution record
	d.exact("FillsDigest", stored.FillsDigest, replayed.FillsDigest)
	d.exact("Fills", len(stored.Fills), len(replayed.Fills))
	if len(stored.Trades) != len(replayed.Trades) {
		d.exact("Trades", len(stored.Trades), len(replayed.Trades))
	} else {
		for i := range stored.Trades {
			d = append(d, CompareTrades(&stored.Trades[i], &replayed.Trades[i])...)
		}
	}

	return d
}

// CompareTrades compares two trades and returns divergences.
// Field names are prefixed with the stored trade ID.
func CompareTrades(stored, replayed *domain.Trade) []FieldDivergence {
	var d divergences
	p := "Trade[" + stored.TradeID + "]."

	d.exact(p+"TradeID", stored.TradeID, replayed.TradeID)
	d.exact(p+"FillID", stored.FillID, replayed.FillID)
	d.exact(p+"Symbol", stored.Symbol, replayed.Symbol)
	d.exact(p+"Kind", stored.Kind, replayed.Kind)
	d.exact(p+"Side", stored.Side, replayed.Side)
	d.exact(p+"Reason", stored.Reason, replayed.Reason)
	d.exact(p+"TimestampNs", stored.TimestampNs, replayed.TimestampNs)
	d.float(p+"Quantity", stored.Quantity, replayed.Quantity)
	d.float(p+"Price", stored.Price, replayed.Price)
	d.float(p+"EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	d.float(p+"Commission", stored.Commission, replayed.Commission)
	d.float(p+"PnL", stored.PnL, replayed.PnL)
	d.float(p+"NetPnL", stored.NetPnL, replayed.NetPnL)
	d.float(p+"ReturnPct", stored.ReturnPct, replayed.ReturnPct)

	return d
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
