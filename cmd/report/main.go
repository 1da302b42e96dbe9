package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"backtest-lab/internal/config"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/reporting"
	"backtest-lab/internal/storage/stores"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	runID := flag.String("run-id", "", "Report a single run with its trades")
	strategyID := flag.String("strategy-id", "", "Only report runs of this strategy")
	outputDir := flag.String("output-dir", "reports", "Output directory for reports")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}

	logger := logging.NewLogger(cfg.Log.Level).Named("report")
	defer func() { _ = logger.Sync() }()

	if cfg.Storage.PostgresDSN == "" {
		logger.Fatal("--postgres-dsn is required: runs are read from Postgres")
	}

	ctx := context.Background()

	storeSet, err := stores.Open(ctx, config.StorageSection{PostgresDSN: cfg.Storage.PostgresDSN}, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer storeSet.Close()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal("create output dir", zap.Error(err))
	}

	gen := reporting.NewGenerator(storeSet.Results, storeSet.Trades, storeSet.Fills)

	if *runID != "" {
		rr, err := gen.GenerateRun(ctx, *runID)
		if err != nil {
			logger.Fatal("generate run report", zap.String("run_id", *runID), zap.Error(err))
		}
		tradesCSV, err := reporting.RenderTradesCSV(rr.Trades)
		if err != nil {
			logger.Fatal("render trades csv", zap.Error(err))
		}
		mdPath := filepath.Join(*outputDir, "RUN_"+*runID+".md")
		csvPath := filepath.Join(*outputDir, "TRADES_"+*runID+".csv")
		writeFile(logger, mdPath, reporting.RenderRunMarkdown(rr))
		writeFile(logger, csvPath, tradesCSV)

		fmt.Println("Run report generated successfully:")
		fmt.Printf("  - %s\n", mdPath)
		fmt.Printf("  - %s\n", csvPath)
		return
	}

	var report *reporting.Report
	if *strategyID != "" {
		report, err = gen.GenerateFor(ctx, *strategyID)
	} else {
		report, err = gen.Generate(ctx)
	}
	if err != nil {
		logger.Fatal("generate report", zap.Error(err))
	}

	runsCSV, err := reporting.RenderCSV(report.Runs)
	if err != nil {
		logger.Fatal("render runs csv", zap.Error(err))
	}
	mdPath := filepath.Join(*outputDir, "REPORT.md")
	csvPath := filepath.Join(*outputDir, "RUNS.csv")
	writeFile(logger, mdPath, reporting.RenderMarkdown(report))
	writeFile(logger, csvPath, runsCSV)

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
}

func writeFile(logger *zap.Logger, path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logger.Fatal("write file", zap.String("path", path), zap.Error(err))
	}
}
