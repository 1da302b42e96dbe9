package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// Display precision
const (
	moneyPlaces    = 2
	quantityPlaces = 8
	pricePlaces    = 6
)

// Generator produces reports from stored runs.
type Generator struct {
	resultStore storage.ResultStore
	tradeStore  storage.TradeStore
	fillStore   storage.FillStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
// tradeStore and fillStore are only needed by GenerateRun and may be nil.
func NewGenerator(
	resultStore storage.ResultStore,
	tradeStore storage.TradeStore,
	fillStore storage.FillStore,
) *Generator {
	return &Generator{
		resultStore: resultStore,
		tradeStore:  tradeStore,
		fillStore:   fillStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a summary report over all stored runs.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	results, err := g.resultStore.List(ctx)
	if err != nil {
		return nil, err
	}
	return g.build(results), nil
}

// GenerateFor produces a summary report over the runs of one strategy.
func (g *Generator) GenerateFor(ctx context.Context, strategyID string) (*Report, error) {
	results, err := g.resultStore.GetByStrategyID(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	return g.build(results), nil
}

// GenerateRun produces a detailed report of one run with its trades.
func (g *Generator) GenerateRun(ctx context.Context, runID string) (*RunReport, error) {
	result, err := g.resultStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	rr := &RunReport{
		GeneratedAt: g.now(),
		Run:         toRunRow(result),
		Seed:        result.Seed,
		FillsDigest: result.FillsDigest,
	}

	if g.tradeStore != nil {
		trades, err := g.tradeStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, err
		}
		rr.Trades = make([]TradeRow, len(trades))
		for i, t := range trades {
			rr.Trades[i] = toTradeRow(t)
		}
	}

	if g.fillStore != nil {
		fills, err := g.fillStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, err
		}
		rr.FillCount = len(fills)
	}

	return rr, nil
}

func (g *Generator) build(results []*domain.BacktestResult) *Report {
	sort.Slice(results, func(i, j int) bool {
		return results[i].RunID < results[j].RunID
	})

	report := &Report{
		GeneratedAt:     g.now(),
		RunCount:        len(results),
		Runs:            make([]RunRow, 0, len(results)),
		TotalNetProfit:  decimal.Zero,
		TotalCommission: decimal.Zero,
	}

	for _, r := range results {
		row := toRunRow(r)
		report.Runs = append(report.Runs, row)
		report.TotalNetProfit = report.TotalNetProfit.Add(row.NetProfit)
		report.TotalCommission = report.TotalCommission.Add(row.TotalCommission)

		if r.Status != domain.RunStatusCompleted {
			report.Incomplete = append(report.Incomplete, IncompleteRunRow{
				RunID:         r.RunID,
				Status:        r.Status,
				BarsProcessed: r.BarsProcessed,
				OpenPositions: len(r.OpenPositions),
			})
		}
	}

	report.Strategies = generateStrategyRows(report.Runs)
	report.StrategyCount = len(report.Strategies)
	return report
}

// generateStrategyRows groups run rows by strategy.
// rows must be sorted by run_id so best-run ties resolve to the lower id.
func generateStrategyRows(rows []RunRow) []StrategyRow {
	byStrategy := make(map[string]*StrategyRow)
	var ids []string

	for _, r := range rows {
		s, ok := byStrategy[r.StrategyID]
		if !ok {
			s = &StrategyRow{
				StrategyID:   r.StrategyID,
				BestRunID:    r.RunID,
				BestReturn:   r.TotalReturn,
				WorstReturn:  r.TotalReturn,
				NetProfitSum: decimal.Zero,
			}
			byStrategy[r.StrategyID] = s
			ids = append(ids, r.StrategyID)
		}
		s.Runs++
		s.MeanReturn += r.TotalReturn
		s.MeanSharpe += r.SharpeRatio
		s.NetProfitSum = s.NetProfitSum.Add(r.NetProfit)
		if r.TotalReturn > s.BestReturn {
			s.BestReturn = r.TotalReturn
			s.BestRunID = r.RunID
		}
		if r.TotalReturn < s.WorstReturn {
			s.WorstReturn = r.TotalReturn
		}
	}

	sort.Strings(ids)
	out := make([]StrategyRow, 0, len(ids))
	for _, id := range ids {
		s := byStrategy[id]
		s.MeanReturn /= float64(s.Runs)
		s.MeanSharpe /= float64(s.Runs)
		out = append(out, *s)
	}
	return out
}

func toRunRow(r *domain.BacktestResult) RunRow {
	initial := decimal.NewFromFloat(r.InitialCapital)
	final := decimal.NewFromFloat(r.FinalCapital)
	return RunRow{
		RunID:            r.RunID,
		StrategyID:       r.StrategyID,
		Status:           r.Status,
		StartMs:          r.StartMs,
		EndMs:            r.EndMs,
		BarsProcessed:    r.BarsProcessed,
		InitialCapital:   initial.Round(moneyPlaces),
		FinalCapital:     final.Round(moneyPlaces),
		NetProfit:        final.Sub(initial).Round(moneyPlaces),
		TotalCommission:  decimal.NewFromFloat(r.TotalCommission).Round(moneyPlaces),
		TotalReturn:      r.TotalReturn,
		AnnualizedReturn: r.AnnualizedReturn,
		MaxDrawdown:      r.MaxDrawdown,
		WinRate:          r.WinRate,
		SharpeRatio:      r.SharpeRatio,
		SortinoRatio:     r.SortinoRatio,
		CalmarRatio:      r.CalmarRatio,
		ProfitFactor:     r.ProfitFactor,
		VaR95:            r.VaR95,
		TotalTrades:      r.TotalTrades,
		DroppedOrders:    r.DroppedOrders,
	}
}

func toTradeRow(t *domain.Trade) TradeRow {
	row := TradeRow{
		TradeID:     t.TradeID,
		Symbol:      t.Symbol,
		Kind:        t.Kind,
		Side:        t.Side,
		Reason:      t.Reason,
		TimestampNs: t.TimestampNs,
		Quantity:    decimal.NewFromFloat(t.Quantity).Round(quantityPlaces),
		Price:       decimal.NewFromFloat(t.Price).Round(pricePlaces),
		Commission:  decimal.NewFromFloat(t.Commission).Round(moneyPlaces),
	}
	if t.Kind == domain.TradeKindExit {
		row.EntryPrice = decimal.NewFromFloat(t.EntryPrice).Round(pricePlaces)
		row.NetPnL = decimal.NewFromFloat(t.NetPnL).Round(moneyPlaces)
		row.ReturnPct = t.ReturnPct
	}
	return row
}
