package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

var runHeader = []string{
	"run_id", "strategy_id", "status", "start_ms", "end_ms", "bars_processed",
	"initial_capital", "final_capital", "net_profit", "total_commission",
	"total_return", "annualized_return", "max_drawdown", "win_rate",
	"sharpe_ratio", "sortino_ratio", "calmar_ratio", "profit_factor", "var_95",
	"total_trades", "dropped_orders",
}

var tradeHeader = []string{
	"trade_id", "timestamp_ns", "symbol", "kind", "side", "quantity", "price",
	"entry_price", "commission", "net_pnl", "return_pct", "reason",
}

// RenderCSV renders run rows as CSV string.
// Sweep strategy ids contain commas, so fields are quoted as needed.
func RenderCSV(runs []RunRow) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(runHeader); err != nil {
		return "", err
	}
	for _, m := range runs {
		record := []string{
			m.RunID,
			m.StrategyID,
			m.Status,
			strconv.FormatInt(m.StartMs, 10),
			strconv.FormatInt(m.EndMs, 10),
			strconv.Itoa(m.BarsProcessed),
			m.InitialCapital.StringFixed(moneyPlaces),
			m.FinalCapital.StringFixed(moneyPlaces),
			m.NetProfit.StringFixed(moneyPlaces),
			m.TotalCommission.StringFixed(moneyPlaces),
			formatFloat(m.TotalReturn),
			formatFloat(m.AnnualizedReturn),
			formatFloat(m.MaxDrawdown),
			formatFloat(m.WinRate),
			formatFloat(m.SharpeRatio),
			formatFloat(m.SortinoRatio),
			formatFloat(m.CalmarRatio),
			formatFloat(m.ProfitFactor),
			formatFloat(m.VaR95),
			strconv.Itoa(m.TotalTrades),
			strconv.Itoa(m.DroppedOrders),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}

// RenderTradesCSV renders a trade list as CSV string.
func RenderTradesCSV(trades []TradeRow) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(tradeHeader); err != nil {
		return "", err
	}
	for _, t := range trades {
		record := []string{
			t.TradeID,
			strconv.FormatInt(t.TimestampNs, 10),
			t.Symbol,
			t.Kind,
			t.Side,
			t.Quantity.String(),
			t.Price.String(),
			t.EntryPrice.String(),
			t.Commission.StringFixed(moneyPlaces),
			t.NetPnL.StringFixed(moneyPlaces),
			formatFloat(t.ReturnPct),
			t.Reason,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
