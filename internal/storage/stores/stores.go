// Package stores opens the storage backends selected by configuration.
package stores

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"backtest-lab/internal/config"
	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
	chstore "backtest-lab/internal/storage/clickhouse"
	"backtest-lab/internal/storage/csvfile"
	"backtest-lab/internal/storage/memory"
	"backtest-lab/internal/storage/migrations"
	pgstore "backtest-lab/internal/storage/postgres"
)

// Set holds one store per concern.
// Without DSNs every store is in-memory.
type Set struct {
	Bars    storage.BarStore
	Results storage.ResultStore
	Trades  storage.TradeStore
	Fills   storage.FillStore

	// SweepResults is the ClickHouse summary table when configured, nil otherwise.
	SweepResults storage.ResultStore

	closers []func()
}

// Close releases all connections.
func (s *Set) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Open connects the configured backends.
// Bars come from BarsCSV when set, else ClickHouse, else memory.
// Results, trades and fills go to Postgres when configured, else memory.
func Open(ctx context.Context, cfg config.StorageSection, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Set{
		Bars:    memory.NewBarStore(),
		Results: memory.NewResultStore(),
		Trades:  memory.NewTradeStore(),
		Fills:   memory.NewFillStore(),
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if cfg.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				s.Close()
				return nil, err
			}
		}
		s.Results = pgstore.NewResultStore(pool)
		s.Trades = pgstore.NewTradeStore(pool)
		s.Fills = pgstore.NewFillStore(pool)
		logger.Info("postgres stores ready")
	}

	if cfg.ClickHouseDSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
		}
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.Bars = chstore.NewBarStore(conn)
		s.SweepResults = chstore.NewResultStore(conn)
		logger.Info("clickhouse stores ready")
	}

	if cfg.BarsCSV != "" {
		bars, err := LoadCSV(cfg.BarsCSV)
		if err != nil {
			s.Close()
			return nil, err
		}
		mem := memory.NewBarStore()
		if err := mem.InsertBulk(ctx, bars); err != nil {
			s.Close()
			return nil, fmt.Errorf("load csv bars: %w", err)
		}
		s.Bars = mem
		logger.Info("csv bars loaded", zap.String("path", cfg.BarsCSV), zap.Int("bars", len(bars)))
	}

	return s, nil
}

// LoadCSV reads a CSV file, or every *.csv file of a directory in name order.
func LoadCSV(path string) ([]*domain.Bar, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return csvfile.ReadFile(path)
	}

	files, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var all []*domain.Bar
	for _, f := range files {
		bars, err := csvfile.ReadFile(f)
		if err != nil {
			return nil, err
		}
		all = append(all, bars...)
	}
	return all, nil
}
