package memory

import (
	"context"
	"errors"
	"testing"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func TestResultStore_InsertAndGet(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	r := &domain.BacktestResult{
		RunID:        "run-b",
		StrategyID:   "sma",
		Status:       domain.RunStatusCompleted,
		FinalCapital: 101_000,
		Trades:       []domain.Trade{{TradeID: "t1"}},
		Fills:        []domain.SimulatedFill{{FillID: "f1"}},
		EquityCurve:  []domain.EquityPoint{{TimestampNs: 1, Equity: 100_000}},
	}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-b")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FinalCapital != 101_000 || len(got.EquityCurve) != 1 {
		t.Errorf("Summary mismatch: %+v", got)
	}
	if got.Trades != nil || got.Fills != nil {
		t.Errorf("Trades and fills must not be retained")
	}
	if len(r.Trades) != 1 {
		t.Errorf("Insert must not modify the caller's result")
	}
}

func TestResultStore_DuplicateAndNotFound(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	r := &domain.BacktestResult{RunID: "run-a"}
	if err := store.Insert(ctx, r); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Insert(ctx, &domain.BacktestResult{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestResultStore_Queries(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	for _, r := range []*domain.BacktestResult{
		{RunID: "c", StrategyID: "sma"},
		{RunID: "a", StrategyID: "sma"},
		{RunID: "b", StrategyID: "zscore"},
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	sma, _ := store.GetByStrategyID(ctx, "sma")
	if len(sma) != 2 || sma[0].RunID != "a" || sma[1].RunID != "c" {
		t.Errorf("GetByStrategyID: unexpected %v", runIDs(sma))
	}

	all, _ := store.List(ctx)
	if len(all) != 3 || all[0].RunID != "a" || all[2].RunID != "c" {
		t.Errorf("List: unexpected %v", runIDs(all))
	}
}

func runIDs(rs []*domain.BacktestResult) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.RunID
	}
	return ids
}
