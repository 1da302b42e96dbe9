package memory

import (
	"context"
	"sort"
	"sync"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestResult // keyed by run_id
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		data: make(map[string]*domain.BacktestResult),
	}
}

// Insert adds a run summary. Trades and fills are not retained.
func (s *ResultStore) Insert(_ context.Context, r *domain.BacktestResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = copySummary(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByID(_ context.Context, runID string) (*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySummary(r), nil
}

// GetByStrategyID retrieves all runs of a strategy, ordered by run_id ASC.
func (s *ResultStore) GetByStrategyID(_ context.Context, strategyID string) ([]*domain.BacktestResult, error) {
	return s.filter(func(r *domain.BacktestResult) bool { return r.StrategyID == strategyID }), nil
}

// List retrieves all runs, ordered by run_id ASC.
func (s *ResultStore) List(_ context.Context) ([]*domain.BacktestResult, error) {
	return s.filter(func(*domain.BacktestResult) bool { return true }), nil
}

func (s *ResultStore) filter(keep func(*domain.BacktestResult) bool) []*domain.BacktestResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BacktestResult
	for _, r := range s.data {
		if keep(r) {
			result = append(result, copySummary(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})
	return result
}

// copySummary copies r without trades and fills.
func copySummary(r *domain.BacktestResult) *domain.BacktestResult {
	c := *r
	c.Trades = nil
	c.Fills = nil
	c.OpenPositions = append([]domain.Position(nil), r.OpenPositions...)
	c.EquityCurve = append([]domain.EquityPoint(nil), r.EquityCurve...)
	return &c
}

var _ storage.ResultStore = (*ResultStore)(nil)
