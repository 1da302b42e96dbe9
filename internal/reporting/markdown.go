package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Strategies: %d\n\n", r.RunCount, r.StrategyCount))

	// Totals
	sb.WriteString("## Totals\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Net Profit | %s |\n", r.TotalNetProfit.StringFixed(moneyPlaces)))
	sb.WriteString(fmt.Sprintf("| Commission | %s |\n", r.TotalCommission.StringFixed(moneyPlaces)))
	sb.WriteString("\n")

	// Strategy summary
	sb.WriteString("## Strategies\n\n")
	if len(r.Strategies) > 0 {
		sb.WriteString("| Strategy | Runs | Mean Return% | Mean Sharpe | Best Return% | Worst Return% | Net Profit | Best Run |\n")
		sb.WriteString("|----------|------|--------------|-------------|--------------|---------------|------------|----------|\n")
		for _, s := range r.Strategies {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f | %.4f | %.4f | %s | %s |\n",
				escapeCell(s.StrategyID), s.Runs, s.MeanReturn, s.MeanSharpe,
				s.BestReturn, s.WorstReturn, s.NetProfitSum.StringFixed(moneyPlaces), s.BestRunID))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Runs
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Strategy | Status | Bars | Final Capital | Net Profit | Return% | Ann.% | MaxDD% | WinRate% | Sharpe | Sortino | Calmar | PF | VaR95 | Trades |\n")
		sb.WriteString("|-----|----------|--------|------|---------------|------------|---------|-------|--------|----------|--------|---------|--------|----|-------|--------|\n")
		for _, m := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %s | %.4f | %.4f | %.4f | %.2f | %.4f | %.4f | %.4f | %.4f | %.4f | %d |\n",
				m.RunID, escapeCell(m.StrategyID), m.Status, m.BarsProcessed,
				m.FinalCapital.StringFixed(moneyPlaces), m.NetProfit.StringFixed(moneyPlaces),
				m.TotalReturn, m.AnnualizedReturn, m.MaxDrawdown, m.WinRate,
				m.SharpeRatio, m.SortinoRatio, m.CalmarRatio, m.ProfitFactor, m.VaR95, m.TotalTrades))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Incomplete runs (only shown if present)
	if len(r.Incomplete) > 0 {
		sb.WriteString("## Incomplete Runs\n\n")
		for _, inc := range r.Incomplete {
			sb.WriteString(fmt.Sprintf("- %s: %s after %d bars, %d open positions\n",
				inc.RunID, inc.Status, inc.BarsProcessed, inc.OpenPositions))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderRunMarkdown renders a single run report as Markdown string.
func RenderRunMarkdown(rr *RunReport) string {
	var sb strings.Builder
	m := rr.Run

	sb.WriteString(fmt.Sprintf("# Run %s\n\n", m.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", rr.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", escapeCell(m.StrategyID)))
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", m.Status))
	sb.WriteString(fmt.Sprintf("| Seed | %d |\n", rr.Seed))
	sb.WriteString(fmt.Sprintf("| Period (ms) | %d - %d |\n", m.StartMs, m.EndMs))
	sb.WriteString(fmt.Sprintf("| Bars Processed | %d |\n", m.BarsProcessed))
	sb.WriteString(fmt.Sprintf("| Initial Capital | %s |\n", m.InitialCapital.StringFixed(moneyPlaces)))
	sb.WriteString(fmt.Sprintf("| Final Capital | %s |\n", m.FinalCapital.StringFixed(moneyPlaces)))
	sb.WriteString(fmt.Sprintf("| Net Profit | %s |\n", m.NetProfit.StringFixed(moneyPlaces)))
	sb.WriteString(fmt.Sprintf("| Commission | %s |\n", m.TotalCommission.StringFixed(moneyPlaces)))
	sb.WriteString(fmt.Sprintf("| Total Return %% | %.4f |\n", m.TotalReturn))
	sb.WriteString(fmt.Sprintf("| Annualized Return %% | %.4f |\n", m.AnnualizedReturn))
	sb.WriteString(fmt.Sprintf("| Max Drawdown %% | %.4f |\n", m.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Win Rate %% | %.2f |\n", m.WinRate))
	sb.WriteString(fmt.Sprintf("| Sharpe | %.4f |\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Sortino | %.4f |\n", m.SortinoRatio))
	sb.WriteString(fmt.Sprintf("| Calmar | %.4f |\n", m.CalmarRatio))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.4f |\n", m.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| VaR 95 %% | %.4f |\n", m.VaR95))
	sb.WriteString(fmt.Sprintf("| Exit Trades | %d |\n", m.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Fills | %d |\n", rr.FillCount))
	sb.WriteString(fmt.Sprintf("| Dropped Orders | %d |\n", m.DroppedOrders))
	sb.WriteString(fmt.Sprintf("| Fills Digest | %s |\n", rr.FillsDigest))
	sb.WriteString("\n")

	sb.WriteString("## Trades\n\n")
	if len(rr.Trades) > 0 {
		sb.WriteString("| Time (ns) | Symbol | Kind | Side | Qty | Price | Entry | Commission | Net PnL | Return% | Reason |\n")
		sb.WriteString("|-----------|--------|------|------|-----|-------|-------|------------|---------|---------|--------|\n")
		for _, t := range rr.Trades {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s | %s | %s | %.4f | %s |\n",
				t.TimestampNs, t.Symbol, t.Kind, t.Side,
				t.Quantity.String(), t.Price.String(), t.EntryPrice.String(),
				t.Commission.StringFixed(moneyPlaces), t.NetPnL.StringFixed(moneyPlaces),
				t.ReturnPct, t.Reason))
		}
	} else {
		sb.WriteString("No trades.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// escapeCell keeps strategy ids with pipes from breaking table rows.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
