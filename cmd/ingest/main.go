package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/storage/csvfile"
	"backtest-lab/internal/storage/stores"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file")
	input := flag.String("input", "", "CSV file or directory of per-symbol CSV files to import")
	export := flag.String("export", "", "Write stored bars of --symbol to this CSV file instead of importing")
	symbol := flag.String("symbol", "", "Symbol to export")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	migrate := flag.Bool("migrate", false, "Apply embedded ClickHouse migrations first")
	batchSize := flag.Int("batch-size", 10_000, "Bars per insert batch")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if *migrate {
		cfg.Storage.Migrate = true
	}
	// Bars are read from --input here, never through the store set.
	cfg.Storage.BarsCSV = ""
	cfg.Storage.PostgresDSN = ""

	logger := logging.NewLogger(cfg.Log.Level).Named("ingest")
	defer func() { _ = logger.Sync() }()

	if *input == "" && *export == "" {
		logger.Fatal("--input or --export is required")
	}
	if cfg.Storage.ClickHouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}
	if *batchSize <= 0 {
		logger.Fatal("--batch-size must be positive")
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

	if *export != "" {
		if *symbol == "" {
			logger.Fatal("--symbol is required with --export")
		}
		bars, err := storeSet.Bars.GetBySymbol(ctx, *symbol)
		if err != nil {
			logger.Fatal("load bars", zap.Error(err))
		}
		if err := writeCSV(*export, bars); err != nil {
			logger.Fatal("export bars", zap.Error(err))
		}
		logger.Info("bars exported", zap.String("symbol", *symbol), zap.Int("bars", len(bars)), zap.String("path", *export))
		return
	}

	start := time.Now()
	bars, err := stores.LoadCSV(*input)
	if err != nil {
		logger.Fatal("read csv", zap.Error(err))
	}

	for i := 0; i < len(bars); i += *batchSize {
		end := i + *batchSize
		if end > len(bars) {
			end = len(bars)
		}
		if err := storeSet.Bars.InsertBulk(ctx, bars[i:end]); err != nil {
			logger.Fatal("insert bars", zap.Int("offset", i), zap.Error(err))
		}
		logger.Debug("batch inserted", zap.Int("offset", i), zap.Int("size", end-i))
	}

	logger.Info("bars imported",
		zap.String("input", *input),
		zap.Int("bars", len(bars)),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func writeCSV(path string, bars []*domain.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csvfile.WriteBars(f, bars); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
