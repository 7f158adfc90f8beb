package memory

import (
	"context"
	"sort"
	"sync"

	"debond-math/internal/domain"
	"debond-math/internal/storage"
)

// RateSnapshotStore is an in-memory implementation of storage.RateSnapshotStore.
type RateSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RateSnapshot // keyed by snapshot_id
}

// NewRateSnapshotStore creates a new in-memory rate snapshot store.
func NewRateSnapshotStore() *RateSnapshotStore {
	return &RateSnapshotStore{
		data: make(map[string]*domain.RateSnapshot),
	}
}

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *RateSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.RateSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(snapshots))

	// First pass: check for duplicates (existing + intra-batch)
	for _, r := range snapshots {
		if r == nil || r.SnapshotID == "" || r.ClassID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.SnapshotID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.SnapshotID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.SnapshotID] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range snapshots {
		copy := *r
		s.data[r.SnapshotID] = &copy
	}
	return nil
}

// GetByClassID retrieves all snapshots of a class, ordered by taken_at ASC.
func (s *RateSnapshotStore) GetByClassID(_ context.Context, classID string) ([]*domain.RateSnapshot, error) {
	return s.filter(func(r *domain.RateSnapshot) bool { return r.ClassID == classID }), nil
}

// GetByTimeRange retrieves snapshots of a class within [start, end] (inclusive).
func (s *RateSnapshotStore) GetByTimeRange(_ context.Context, classID string, start, end int64) ([]*domain.RateSnapshot, error) {
	return s.filter(func(r *domain.RateSnapshot) bool {
		return r.ClassID == classID && r.TakenAt >= start && r.TakenAt <= end
	}), nil
}

func (s *RateSnapshotStore) filter(keep func(*domain.RateSnapshot) bool) []*domain.RateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RateSnapshot
	for _, r := range s.data {
		if keep(r) {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TakenAt < result[j].TakenAt
	})
	return result
}

var _ storage.RateSnapshotStore = (*RateSnapshotStore)(nil)
