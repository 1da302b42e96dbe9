package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"backtest-lab/internal/backtest"
	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/logging"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage/stores"
	"backtest-lab/internal/sweep"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file with strategy and sweep.grid")
	workers := flag.Int("workers", 0, "Concurrent jobs (default: config)")
	folds := flag.Int("folds", -1, "Walk-forward folds, 0 for a plain sweep (default: config)")
	barsCSV := flag.String("bars-csv", "", "CSV file or directory of bars")
	persist := flag.Bool("persist", false, "Persist every run and its summary")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Sweep.Workers = *workers
	}
	if *folds >= 0 {
		cfg.Sweep.Folds = *folds
	}
	if *barsCSV != "" {
		cfg.Storage.BarsCSV = *barsCSV
	}

	logger := logging.NewLogger(cfg.Log.Level).Named("sweep")
	defer func() { _ = logger.Sync() }()

	backtestCfg, err := cfg.BacktestConfig()
	if err != nil {
		logger.Fatal("invalid backtest config", zap.Error(err))
	}
	abortPolicy, err := cfg.AbortPolicy()
	if err != nil {
		logger.Fatal("invalid abort policy", zap.Error(err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling sweep", zap.String("signal", sig.String()))
		cancel()
	}()

	// Metrics
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("btlab", reg)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.HandlerFor(reg))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", zap.String("addr", *metricsAddr))
	}

	storeSet, err := stores.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer storeSet.Close()

	runnerOpts := backtest.RunnerOptions{
		BarStore: storeSet.Bars,
		Logger:   logger,
		Metrics:  metrics,
	}
	if *persist {
		runnerOpts.ResultStore = storeSet.Results
		runnerOpts.TradeStore = storeSet.Trades
		runnerOpts.FillStore = storeSet.Fills
	}
	btRunner := backtest.NewRunner(runnerOpts)

	strategyCfg := cfg.StrategyConfig()
	bars, err := btRunner.LoadBars(ctx, strategyCfg.Symbols, cfg.Backtest.StartMs, cfg.Backtest.EndMs)
	if err != nil {
		logger.Fatal("load bars", zap.Error(err))
	}

	strategies := sweep.ParameterGrid(strategyCfg, cfg.Sweep.Grid)
	jobs := sweep.Jobs(backtestCfg, strategies)
	logger.Info("sweep configured",
		zap.Int("jobs", len(jobs)),
		zap.Int("workers", cfg.Sweep.Workers),
		zap.Int("bars", len(bars)),
		zap.Int("folds", cfg.Sweep.Folds),
	)

	// Called from worker goroutines.
	onOutcome := func(ctx context.Context, o *sweep.Outcome) error {
		if o.Err != nil || !*persist {
			return nil
		}
		if err := btRunner.Persist(ctx, o.Result); err != nil {
			return err
		}
		if storeSet.SweepResults != nil {
			return storeSet.SweepResults.Insert(ctx, o.Result)
		}
		return nil
	}

	sweepRunner := sweep.NewRunner(sweep.Options{
		Workers:     cfg.Sweep.Workers,
		Logger:      logger,
		Metrics:     metrics,
		AbortPolicy: abortPolicy,
		OnOutcome:   onOutcome,
	})

	if cfg.Sweep.Folds > 0 {
		runWalkForward(ctx, logger, sweepRunner, bars, jobs, cfg.Sweep, *outputJSON)
		return
	}

	outcomes, err := sweepRunner.Run(ctx, bars, jobs)
	if err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(summarize(outcomes), "", "  ")
		fmt.Println(string(output))
		return
	}
	printOutcomes(outcomes)
}

func runWalkForward(ctx context.Context, logger *zap.Logger, r *sweep.Runner, bars []domain.Bar, jobs []sweep.Job, cfg config.SweepSection, outputJSON bool) {
	foldResults, err := r.WalkForward(ctx, bars, jobs, cfg.Folds, cfg.InSampleFrac)
	if err != nil {
		logger.Fatal("walk-forward failed", zap.Error(err))
	}

	if outputJSON {
		rows := make([]foldRow, len(foldResults))
		for i, f := range foldResults {
			rows[i] = foldRow{
				Index:          f.Index,
				InSample:       f.InSample,
				OutOfSample:    f.OutOfSample,
				Best:           f.Best.Name,
				InSampleSharpe: f.InSampleResult.SharpeRatio,
				OutSampleRet:   f.OutOfSampleResult.TotalReturn,
				OutSampleRunID: f.OutOfSampleResult.RunID,
			}
		}
		output, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("\n=== Walk-Forward (%d folds) ===\n", len(foldResults))
	fmt.Printf("%-4s %-40s %12s %12s %12s\n", "Fold", "Best", "IS Sharpe", "OOS Sharpe", "OOS Ret%")
	for _, f := range foldResults {
		fmt.Printf("%-4d %-40s %12.4f %12.4f %12.4f\n",
			f.Index, f.Best.Name,
			f.InSampleResult.SharpeRatio,
			f.OutOfSampleResult.SharpeRatio,
			f.OutOfSampleResult.TotalReturn)
	}
}

type foldRow struct {
	Index          int
	InSample       sweep.Window
	OutOfSample    sweep.Window
	Best           string
	InSampleSharpe float64
	OutSampleRet   float64
	OutSampleRunID string
}

type outcomeRow struct {
	Name        string
	Outcome     string
	RunID       string  `json:",omitempty"`
	TotalReturn float64 `json:",omitempty"`
	Sharpe      float64 `json:",omitempty"`
	MaxDrawdown float64 `json:",omitempty"`
	Error       string  `json:",omitempty"`
}

func summarize(outcomes []sweep.Outcome) []outcomeRow {
	rows := make([]outcomeRow, len(outcomes))
	for i := range outcomes {
		o := &outcomes[i]
		rows[i] = outcomeRow{Name: o.Job.Name, Outcome: o.Label()}
		if o.Err != nil {
			rows[i].Error = o.Err.Error()
			continue
		}
		rows[i].RunID = o.Result.RunID
		rows[i].TotalReturn = o.Result.TotalReturn
		rows[i].Sharpe = o.Result.SharpeRatio
		rows[i].MaxDrawdown = o.Result.MaxDrawdown
	}
	return rows
}

func printOutcomes(outcomes []sweep.Outcome) {
	fmt.Printf("\n=== Sweep (%d jobs) ===\n", len(outcomes))
	fmt.Printf("%-40s %-8s %12s %12s %12s\n", "Job", "Outcome", "Return%", "Sharpe", "MaxDD%")
	for _, row := range summarize(outcomes) {
		if row.Error != "" {
			fmt.Printf("%-40s %-8s %s\n", row.Name, row.Outcome, row.Error)
			continue
		}
		fmt.Printf("%-40s %-8s %12.4f %12.4f %12.4f\n", row.Name, row.Outcome, row.TotalReturn, row.Sharpe, row.MaxDrawdown)
	}

	if best := sweep.Best(outcomes); best >= 0 {
		fmt.Printf("\nBest: %s (Sharpe %.4f)\n", outcomes[best].Job.Name, outcomes[best].Result.SharpeRatio)
	} else {
		fmt.Println("\nNo job completed.")
	}
}
