package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"backtest-lab/internal/config"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/storage/stores"
	"backtest-lab/internal/verification"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file")
	runID := flag.String("run-id", "", "Run to verify (default: all stored runs)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (stored runs)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (bars)")
	barsCSV := flag.String("bars-csv", "", "CSV file or directory of bars")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if *barsCSV != "" {
		cfg.Storage.BarsCSV = *barsCSV
	}

	logger := logging.NewLogger(cfg.Log.Level).Named("verify")
	defer func() { _ = logger.Sync() }()

	if cfg.Storage.PostgresDSN == "" {
		logger.Fatal("--postgres-dsn is required: runs are read from Postgres")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	storeSet, err := stores.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer storeSet.Close()

	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		BarStore:    storeSet.Bars,
		ResultStore: storeSet.Results,
		TradeStore:  storeSet.Trades,
		FillStore:   storeSet.Fills,
		Logger:      logger,
	})

	var report *verification.VerificationReport
	if *runID != "" {
		result, err := verifier.VerifyRun(ctx, *runID)
		if err != nil {
			logger.Fatal("verify run", zap.String("run_id", *runID), zap.Error(err))
		}
		report = &verification.VerificationReport{TotalRuns: 1, Results: []verification.VerificationResult{*result}}
		if result.Match {
			report.MatchedRuns = 1
		} else {
			report.DivergentRuns = 1
		}
	} else {
		report, err = verifier.VerifyAll(ctx)
		if err != nil {
			logger.Fatal("verify runs", zap.Error(err))
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		printReport(report)
	}

	if report.DivergentRuns > 0 {
		os.Exit(1)
	}
}

func printReport(r *verification.VerificationReport) {
	fmt.Printf("\n=== Verification Summary ===\n")
	fmt.Printf("Total Runs:     %d\n", r.TotalRuns)
	fmt.Printf("Matched:        %d\n", r.MatchedRuns)
	fmt.Printf("Divergent:      %d\n", r.DivergentRuns)
	fmt.Printf("Skipped:        %d\n", r.SkippedRuns)

	for _, res := range r.Results {
		if res.Match {
			continue
		}
		fmt.Printf("\nRun %s diverged:\n", res.RunID)
		for _, d := range res.Divergences {
			fmt.Printf("  %-40s stored=%v replayed=%v\n", d.Field, d.Expected, d.Actual)
		}
	}
}
