package memory

import (
	"context"
	"sort"
	"sync"

	"debond-math/internal/domain"
	"debond-math/internal/storage"
)

// BondClassStore is an in-memory implementation of storage.BondClassStore.
type BondClassStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BondClass // keyed by class_id
}

// NewBondClassStore creates a new in-memory bond class store.
func NewBondClassStore() *BondClassStore {
	return &BondClassStore{
		data: make(map[string]*domain.BondClass),
	}
}

// Upsert inserts or replaces a bond class.
func (s *BondClassStore) Upsert(_ context.Context, c *domain.BondClass) error {
	if c == nil || c.ClassID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *c
	s.data[c.ClassID] = &copy
	return nil
}

// GetByID retrieves a bond class. Returns ErrNotFound if not exists.
func (s *BondClassStore) GetByID(_ context.Context, classID string) (*domain.BondClass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[classID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *c
	return &copy, nil
}

// List retrieves all bond classes ordered by class_id ASC.
func (s *BondClassStore) List(_ context.Context) ([]*domain.BondClass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BondClass, 0, len(s.data))
	for _, c := range s.data {
		copy := *c
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ClassID < result[j].ClassID
	})
	return result, nil
}

var _ storage.BondClassStore = (*BondClassStore)(nil)
