package memory

import (
	"context"
	"sync"

	"fraud-trade-lab/internal/domain"
	"fraud-trade-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.TradeError(t.TradeID, storage.ErrDuplicateKey)
	}

	copy := *t
	s.data[t.TradeID] = &copy
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TradeID]; exists {
			return storage.TradeError(t.TradeID, storage.ErrDuplicateKey)
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.TradeError(t.TradeID, storage.ErrDuplicateKey)
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	for _, t := range trades {
		copy := *t
		s.data[t.TradeID] = &copy
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, tradeID string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetByAccount retrieves all trades of an account in stream order.
func (s *TradeStore) GetByAccount(_ context.Context, accountID string) ([]*domain.Trade, error) {
	return s.filter(func(t *domain.Trade) bool { return t.AccountID == accountID }), nil
}

// GetByScenario retrieves all trades of a scenario in stream order.
func (s *TradeStore) GetByScenario(_ context.Context, scenarioID string) ([]*domain.Trade, error) {
	return s.filter(func(t *domain.Trade) bool { return t.ScenarioID == scenarioID }), nil
}

// GetAll retrieves every trade in stream order.
func (s *TradeStore) GetAll(_ context.Context) ([]*domain.Trade, error) {
	return s.filter(func(*domain.Trade) bool { return true }), nil
}

func (s *TradeStore) filter(keep func(*domain.Trade) bool) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if keep(t) {
			copy := *t
			result = append(result, &copy)
		}
	}

	storage.SortTradePtrs(result)
	return result
}

var _ storage.TradeStore = (*TradeStore)(nil)
