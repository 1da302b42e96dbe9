package memory

import (
	"context"
	"errors"
	"testing"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func bar(symbol string, ts int64, close float64) *domain.Bar {
	return &domain.Bar{Symbol: symbol, TimestampMs: ts, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestBarStore_InsertBulkAndGet(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	bid, ask := 99.5, 100.5
	b := bar("BTCUSDT", 1000, 100)
	b.Bid, b.Ask = &bid, &ask

	if err := store.InsertBulk(ctx, []*domain.Bar{b, bar("BTCUSDT", 2000, 101)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetBySymbol(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(got))
	}
	if !got[0].HasQuote() || *got[0].Bid != 99.5 {
		t.Errorf("Quote not preserved: %+v", got[0])
	}

	// Mutating the input must not leak into the store
	bid = 1
	got, _ = store.GetBySymbol(ctx, "BTCUSDT")
	if *got[0].Bid != 99.5 {
		t.Errorf("Store shares memory with caller: bid=%v", *got[0].Bid)
	}
}

func TestBarStore_DuplicateKey(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.Bar{bar("BTCUSDT", 1000, 100)}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.Bar{bar("BTCUSDT", 1000, 101)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestBarStore_IntraBatchDuplicate(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Bar{
		bar("BTCUSDT", 1000, 100),
		bar("BTCUSDT", 1000, 101),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Batch must be atomic
	got, _ := store.GetBySymbol(ctx, "BTCUSDT")
	if len(got) != 0 {
		t.Errorf("Expected empty store after failed batch, got %d bars", len(got))
	}
}

func TestBarStore_GetByTimeRange(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	var bars []*domain.Bar
	for i := int64(1); i <= 5; i++ {
		bars = append(bars, bar("ETHUSDT", i*1000, 2000))
	}
	bars = append(bars, bar("BTCUSDT", 3000, 100))
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, "ETHUSDT", 2000, 4000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 bars, got %d", len(got))
	}
	for i, b := range got {
		if want := int64(i+2) * 1000; b.TimestampMs != want {
			t.Errorf("bar %d: got ts %d, want %d", i, b.TimestampMs, want)
		}
	}
}

func TestBarStore_SymbolsAndRange(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	minTs, maxTs, err := store.GetGlobalTimeRange(ctx)
	if err != nil || minTs != 0 || maxTs != 0 {
		t.Errorf("Empty store range: got (%d, %d, %v)", minTs, maxTs, err)
	}

	_ = store.InsertBulk(ctx, []*domain.Bar{
		bar("SOLUSDT", 5000, 20),
		bar("BTCUSDT", 3000, 100),
		bar("ETHUSDT", 9000, 2000),
	})

	symbols, err := store.ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbol %d: got %s, want %s", i, symbols[i], want[i])
		}
	}

	minTs, maxTs, _ = store.GetGlobalTimeRange(ctx)
	if minTs != 3000 || maxTs != 9000 {
		t.Errorf("Range: got (%d, %d), want (3000, 9000)", minTs, maxTs)
	}
}

func TestBarStore_InvalidInput(t *testing.T) {
	store := NewBarStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Bar{nil})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil bar, got %v", err)
	}

	err = store.InsertBulk(ctx, []*domain.Bar{bar("", 1000, 1)})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty symbol, got %v", err)
	}
}

func TestBarStore_EmptyBulk(t *testing.T) {
	store := NewBarStore()

	if err := store.InsertBulk(context.Background(), nil); err != nil {
		t.Errorf("Expected nil for empty bulk, got %v", err)
	}
}
