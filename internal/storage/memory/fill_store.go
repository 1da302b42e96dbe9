package memory

import (
	"context"
	"sync"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// FillStore is an in-memory implementation of storage.FillStore.
type FillStore struct {
	mu   sync.RWMutex
	data map[string][]domain.SimulatedFill // keyed by run_id
}

// NewFillStore creates a new in-memory fill store.
func NewFillStore() *FillStore {
	return &FillStore{
		data: make(map[string][]domain.SimulatedFill),
	}
}

// InsertBulk adds the fills of a run. Returns ErrDuplicateKey if the run already has fills.
func (s *FillStore) InsertBulk(_ context.Context, runID string, fills []*domain.SimulatedFill) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(fills) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := make([]domain.SimulatedFill, len(fills))
	for i, f := range fills {
		if f == nil || f.FillID == "" {
			return storage.ErrInvalidInput
		}
		stored[i] = *f
	}
	s.data[runID] = stored
	return nil
}

// GetByRunID retrieves all fills of a run in insertion order.
func (s *FillStore) GetByRunID(_ context.Context, runID string) ([]*domain.SimulatedFill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[runID]
	result := make([]*domain.SimulatedFill, len(stored))
	for i := range stored {
		fillCopy := stored[i]
		result[i] = &fillCopy
	}
	return result, nil
}

var _ storage.FillStore = (*FillStore)(nil)
