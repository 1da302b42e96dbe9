package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage/memory"
)

func setupTestData(t *testing.T) (*memory.ResultStore, *memory.TradeStore, *memory.FillStore) {
	ctx := context.Background()

	resultStore := memory.NewResultStore()
	tradeStore := memory.NewTradeStore()
	fillStore := memory.NewFillStore()

	results := []*domain.BacktestResult{
		{RunID: "run-b", StrategyID: "trend", Status: domain.RunStatusCompleted, BarsProcessed: 100,
			InitialCapital: 1000, FinalCapital: 1100.1, TotalReturn: 10.01, SharpeRatio: 1.5, TotalCommission: 0.3, TotalTrades: 2},
		{RunID: "run-a", StrategyID: "trend", Status: domain.RunStatusCompleted, BarsProcessed: 100,
			InitialCapital: 1000, FinalCapital: 950.2, TotalReturn: -4.98, SharpeRatio: -0.5, TotalCommission: 0.2, TotalTrades: 1},
		{RunID: "run-c", StrategyID: "mr,lookback=20", Status: domain.RunStatusPartial, BarsProcessed: 40,
			InitialCapital: 1000, FinalCapital: 1000, OpenPositions: []domain.Position{{Symbol: "BTCUSDT", Quantity: 1, AvgPrice: 100}}},
	}
	for _, r := range results {
		if err := resultStore.Insert(ctx, r); err != nil {
			t.Fatalf("Insert result failed: %v", err)
		}
	}

	trades := []*domain.Trade{
		{TradeID: "t1", RunID: "run-b", Symbol: "BTCUSDT", Kind: domain.TradeKindEntry, Side: domain.SideBuy,
			Quantity: 1, Price: 100.123456789, Commission: 0.1, Reason: domain.ReasonSignal, TimestampNs: 1},
		{TradeID: "t2", RunID: "run-b", Symbol: "BTCUSDT", Kind: domain.TradeKindExit, Side: domain.SideSell,
			Quantity: 1, Price: 110, EntryPrice: 100.123456789, Commission: 0.11, PnL: 9.876543211, NetPnL: 9.766543211,
			ReturnPct: 9.75, Reason: domain.ReasonTakeProfit, TimestampNs: 2},
	}
	if err := tradeStore.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("Insert trades failed: %v", err)
	}

	fills := []*domain.SimulatedFill{
		{FillID: "f1", OrderID: "o1", Symbol: "BTCUSDT", Side: domain.SideBuy, Quantity: 1, Price: 100.123456789, TimestampNs: 1},
		{FillID: "f2", OrderID: "o2", Symbol: "BTCUSDT", Side: domain.SideSell, Quantity: 1, Price: 110, TimestampNs: 2},
	}
	if err := fillStore.InsertBulk(ctx, "run-b", fills); err != nil {
		t.Fatalf("Insert fills failed: %v", err)
	}

	return resultStore, tradeStore, fillStore
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
}

func TestGenerator_Generate(t *testing.T) {
	results, trades, fills := setupTestData(t)
	gen := NewGenerator(results, trades, fills).WithClock(fixedClock)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.RunCount != 3 {
		t.Errorf("Expected 3 runs, got %d", report.RunCount)
	}
	if report.StrategyCount != 2 {
		t.Errorf("Expected 2 strategies, got %d", report.StrategyCount)
	}
	if report.Runs[0].RunID != "run-a" || report.Runs[2].RunID != "run-c" {
		t.Errorf("Expected runs sorted by run_id, got %s..%s", report.Runs[0].RunID, report.Runs[2].RunID)
	}
	if got := report.TotalNetProfit.StringFixed(2); got != "50.30" {
		t.Errorf("Expected total net profit 50.30, got %s", got)
	}
	if got := report.TotalCommission.StringFixed(2); got != "0.50" {
		t.Errorf("Expected total commission 0.50, got %s", got)
	}
	if len(report.Incomplete) != 1 || report.Incomplete[0].OpenPositions != 1 {
		t.Errorf("Expected one incomplete run with one open position, got %+v", report.Incomplete)
	}
}

func TestGenerator_StrategyRows(t *testing.T) {
	results, trades, fills := setupTestData(t)
	gen := NewGenerator(results, trades, fills).WithClock(fixedClock)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var trend *StrategyRow
	for i := range report.Strategies {
		if report.Strategies[i].StrategyID == "trend" {
			trend = &report.Strategies[i]
		}
	}
	if trend == nil {
		t.Fatal("Expected a trend strategy row")
	}
	if trend.Runs != 2 {
		t.Errorf("Expected 2 runs, got %d", trend.Runs)
	}
	if trend.BestRunID != "run-b" {
		t.Errorf("Expected best run run-b, got %s", trend.BestRunID)
	}
	if trend.WorstReturn != -4.98 {
		t.Errorf("Expected worst return -4.98, got %f", trend.WorstReturn)
	}
	if got := trend.MeanSharpe; got != 0.5 {
		t.Errorf("Expected mean sharpe 0.5, got %f", got)
	}
}

func TestGenerator_GenerateFor(t *testing.T) {
	results, trades, fills := setupTestData(t)
	gen := NewGenerator(results, trades, fills).WithClock(fixedClock)

	report, err := gen.GenerateFor(context.Background(), "trend")
	if err != nil {
		t.Fatalf("GenerateFor failed: %v", err)
	}
	if report.RunCount != 2 {
		t.Errorf("Expected 2 runs, got %d", report.RunCount)
	}
}

func TestGenerator_GenerateRun(t *testing.T) {
	results, trades, fills := setupTestData(t)
	gen := NewGenerator(results, trades, fills).WithClock(fixedClock)

	rr, err := gen.GenerateRun(context.Background(), "run-b")
	if err != nil {
		t.Fatalf("GenerateRun failed: %v", err)
	}
	if len(rr.Trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(rr.Trades))
	}
	if rr.FillCount != 2 {
		t.Errorf("Expected 2 fills, got %d", rr.FillCount)
	}
	if got := rr.Trades[0].Price.String(); got != "100.123457" {
		t.Errorf("Expected price rounded to 100.123457, got %s", got)
	}
	if !rr.Trades[0].NetPnL.IsZero() {
		t.Errorf("Expected zero NetPnL for entry, got %s", rr.Trades[0].NetPnL)
	}
	if got := rr.Trades[1].NetPnL.StringFixed(2); got != "9.77" {
		t.Errorf("Expected exit NetPnL 9.77, got %s", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	results, trades, fills := setupTestData(t)
	gen := NewGenerator(results, trades, fills).WithClock(fixedClock)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	md := RenderMarkdown(report)

	expectedSections := []string{
		"# Backtest Report",
		"Generated: 2024-01-15T12:00:00Z",
		"## Totals",
		"## Strategies",
		"## Runs",
		"## Incomplete Runs",
		"| run-b | trend | COMPLETED | 100 | 1100.10 | 100.10 |",
	}
	for _, section := range expectedSections {
		if !strings.Contains(md, section) {
			t.Errorf("Markdown missing %q", section)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	gen := NewGenerator(memory.NewResultStore(), nil, nil).WithClock(fixedClock)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	md := RenderMarkdown(report)

	if !strings.Contains(md, "No runs available.") {
		t.Error("Expected empty-state message")
	}
	if strings.Contains(md, "## Incomplete Runs") {
		t.Error("Incomplete section should be omitted when empty")
	}
}

func TestRenderRunMarkdown(t *testing.T) {
	results, trades, fills := setupTestData(t)
	gen := NewGenerator(results, trades, fills).WithClock(fixedClock)

	rr, err := gen.GenerateRun(context.Background(), "run-b")
	if err != nil {
		t.Fatalf("GenerateRun failed: %v", err)
	}
	md := RenderRunMarkdown(rr)

	for _, want := range []string{"# Run run-b", "| Net Profit | 100.10 |", "| Fills | 2 |", "TAKE_PROFIT"} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	results, trades, fills := setupTestData(t)
	gen := NewGenerator(results, trades, fills).WithClock(fixedClock)

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	out, err := RenderCSV(report.Runs)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "run_id,strategy_id,status") {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[3], `"mr,lookback=20"`) {
		t.Errorf("Expected quoted strategy id, got %s", lines[3])
	}
}

func TestRenderTradesCSV(t *testing.T) {
	results, trades, fills := setupTestData(t)
	gen := NewGenerator(results, trades, fills).WithClock(fixedClock)

	rr, err := gen.GenerateRun(context.Background(), "run-b")
	if err != nil {
		t.Fatalf("GenerateRun failed: %v", err)
	}
	out, err := RenderTradesCSV(rr.Trades)
	if err != nil {
		t.Fatalf("RenderTradesCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[2], "t2,2,BTCUSDT,EXIT,SELL,1,110,") {
		t.Errorf("Unexpected exit row: %s", lines[2])
	}
}
