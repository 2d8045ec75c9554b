package memory

import (
	"context"
	"sync"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// HoldingStore is an in-memory implementation of storage.HoldingStore.
type HoldingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Holding // keyed by holding_id
}

// NewHoldingStore creates a new in-memory holding store.
func NewHoldingStore() *HoldingStore {
	return &HoldingStore{
		data: make(map[string]*domain.Holding),
	}
}

// ReplaceAll swaps the stored set. On error the previous set is kept.
func (s *HoldingStore) ReplaceAll(_ context.Context, holdings []*domain.Holding) error {
	next := make(map[string]*domain.Holding, len(holdings))
	for _, h := range holdings {
		if h == nil || h.HoldingID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := next[h.HoldingID]; exists {
			return storage.HoldingError(h.HoldingID, storage.ErrDuplicateKey)
		}
		copy := *h
		next[h.HoldingID] = &copy
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

// GetByAccount retrieves an account's holdings ordered by symbol.
func (s *HoldingStore) GetByAccount(_ context.Context, accountID string) ([]*domain.Holding, error) {
	return s.filter(func(h *domain.Holding) bool { return h.AccountID == accountID }), nil
}

// GetAll retrieves every holding ordered by (account_id, symbol).
func (s *HoldingStore) GetAll(_ context.Context) ([]*domain.Holding, error) {
	return s.filter(func(*domain.Holding) bool { return true }), nil
}

func (s *HoldingStore) filter(keep func(*domain.Holding) bool) []*domain.Holding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Holding
	for _, h := range s.data {
		if keep(h) {
			copy := *h
			result = append(result, &copy)
		}
	}

	storage.SortHoldingPtrs(result)
	return result
}

var _ storage.HoldingStore = (*HoldingStore)(nil)
