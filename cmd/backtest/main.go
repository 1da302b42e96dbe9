package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/storage/stores"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file")
	strategyType := flag.String("strategy", "", "Strategy: TREND_FOLLOWING, MEAN_REVERSION, BREAKOUT, SCHEDULED")
	symbols := flag.String("symbols", "", "Comma-separated symbols (default: all stored)")
	seed := flag.Int64("seed", 0, "PRNG seed (default: config or wall time)")
	fromTime := flag.String("from-time", "", "Start time (RFC3339)")
	toTime := flag.String("to-time", "", "End time (RFC3339)")

	// Storage
	barsCSV := flag.String("bars-csv", "", "CSV file or directory of bars")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist result, trades and fills")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override file and environment
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["strategy"] {
		cfg.Strategy.Type = *strategyType
	}
	if set["symbols"] {
		cfg.Strategy.Symbols = splitList(*symbols)
	}
	if set["seed"] {
		cfg.Backtest.Seed = seed
	}
	if set["bars-csv"] {
		cfg.Storage.BarsCSV = *barsCSV
	}
	if set["postgres-dsn"] {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if set["clickhouse-dsn"] {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if *fromTime != "" {
		cfg.Backtest.StartMs = mustParseTime(*fromTime)
	}
	if *toTime != "" {
		cfg.Backtest.EndMs = mustParseTime(*toTime)
	}

	logger := logging.NewLogger(cfg.Log.Level).Named("backtest")
	defer func() { _ = logger.Sync() }()

	backtestCfg, err := cfg.BacktestConfig()
	if err != nil {
		logger.Fatal("invalid backtest config", zap.Error(err))
	}
	abortPolicy, err := cfg.AbortPolicy()
	if err != nil {
		logger.Fatal("invalid abort policy", zap.Error(err))
	}
	strategyCfg := cfg.StrategyConfig()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals. The engine stops at the next bar and reports a partial result.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, stopping run", zap.String("signal", sig.String()))
		cancel()
	}()

	// Open stores with a context that survives cancellation so a partial result can be persisted
	storeCtx := context.WithoutCancel(ctx)
	storeSet, err := stores.Open(storeCtx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer storeSet.Close()

	opts := backtest.RunnerOptions{
		BarStore:    storeSet.Bars,
		Logger:      logger,
		AbortPolicy: abortPolicy,
	}
	if *persistResult {
		opts.ResultStore = storeSet.Results
		opts.TradeStore = storeSet.Trades
		opts.FillStore = storeSet.Fills
	}
	runner := backtest.NewRunner(opts)

	bars, err := runner.LoadBars(storeCtx, strategyCfg.Symbols, cfg.Backtest.StartMs, cfg.Backtest.EndMs)
	if err != nil {
		logger.Fatal("load bars", zap.Error(err))
	}

	result, err := runner.RunBars(ctx, backtestCfg, strategyCfg, bars)
	if err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}

	if *persistResult {
		if err := runner.Persist(storeCtx, result); err != nil {
			logger.Fatal("persist result", zap.Error(err))
		}
	}

	// Output result
	if *outputJSON {
		summary := *result
		summary.Fills = nil
		output, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(result)
	}
}

func printResult(r *domain.BacktestResult) {
	fmt.Printf("\n=== Backtest Result ===\n")
	fmt.Printf("Run ID:            %s\n", r.RunID)
	fmt.Printf("Strategy:          %s\n", r.StrategyID)
	fmt.Printf("Status:            %s\n", r.Status)
	fmt.Printf("Seed:              %d\n", r.Seed)
	fmt.Printf("Bars Processed:    %d\n", r.BarsProcessed)
	fmt.Printf("Period:            %s - %s\n", formatMs(r.StartMs), formatMs(r.EndMs))
	fmt.Printf("\n--- Capital ---\n")
	fmt.Printf("Initial:           %.2f\n", r.InitialCapital)
	fmt.Printf("Final:             %.2f\n", r.FinalCapital)
	fmt.Printf("Commission:        %.2f\n", r.TotalCommission)
	fmt.Printf("\n--- Metrics ---\n")
	fmt.Printf("Total Return:      %.4f%%\n", r.TotalReturn)
	fmt.Printf("Annualized Return: %.4f%%\n", r.AnnualizedReturn)
	fmt.Printf("Max Drawdown:      %.4f%%\n", r.MaxDrawdown)
	fmt.Printf("Sharpe:            %.4f\n", r.SharpeRatio)
	fmt.Printf("Sortino:           %.4f\n", r.SortinoRatio)
	fmt.Printf("Calmar:            %.4f\n", r.CalmarRatio)
	fmt.Printf("VaR 95:            %.4f%%\n", r.VaR95)
	fmt.Printf("Profit Factor:     %.4f\n", r.ProfitFactor)
	fmt.Printf("Win Rate:          %.2f%% (%d/%d)\n", r.WinRate, r.Wins, r.TotalTrades)
	fmt.Printf("Max Loss Streak:   %d\n", r.MaxConsecutiveLosses)
	fmt.Printf("\n--- Execution ---\n")
	fmt.Printf("Fills:             %d\n", len(r.Fills))
	fmt.Printf("Dropped Orders:    %d\n", r.DroppedOrders)
	fmt.Printf("Open Positions:    %d\n", len(r.OpenPositions))
	fmt.Printf("Fills Digest:      %s\n", r.FillsDigest)
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func mustParseTime(s string) int64 {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse time %q: %v\n", s, err)
		os.Exit(1)
	}
	return t.UnixMilli()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
