package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"debond-math/internal/domain"
	"debond-math/internal/storage"
)

// EvaluationStore is an in-memory implementation of storage.EvaluationStore.
type EvaluationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Evaluation // keyed by evaluation_id
}

// NewEvaluationStore creates a new in-memory evaluation store.
func NewEvaluationStore() *EvaluationStore {
	return &EvaluationStore{
		data: make(map[string]*domain.Evaluation),
	}
}

func cloneEvaluation(e *domain.Evaluation) *domain.Evaluation {
	c := *e
	c.Args = maps.Clone(e.Args)
	return &c
}

// Insert adds a new evaluation. Returns ErrDuplicateKey if evaluation_id exists.
func (s *EvaluationStore) Insert(_ context.Context, e *domain.Evaluation) error {
	if e == nil || e.EvaluationID == "" || e.Operation == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EvaluationID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[e.EvaluationID] = cloneEvaluation(e)
	return nil
}

// GetByID retrieves an evaluation by its ID. Returns ErrNotFound if not exists.
func (s *EvaluationStore) GetByID(_ context.Context, evaluationID string) (*domain.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[evaluationID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneEvaluation(e), nil
}

// GetByOperation retrieves all evaluations of an operation, ordered by as_of ASC.
func (s *EvaluationStore) GetByOperation(_ context.Context, operation string) ([]*domain.Evaluation, error) {
	return s.filter(func(e *domain.Evaluation) bool { return e.Operation == operation }), nil
}

// GetByTimeRange retrieves evaluations with as_of within [start, end] (inclusive).
func (s *EvaluationStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Evaluation, error) {
	return s.filter(func(e *domain.Evaluation) bool { return e.AsOf >= start && e.AsOf <= end }), nil
}

func (s *EvaluationStore) filter(keep func(*domain.Evaluation) bool) []*domain.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Evaluation
	for _, e := range s.data {
		if keep(e) {
			result = append(result, cloneEvaluation(e))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AsOf != result[j].AsOf {
			return result[i].AsOf < result[j].AsOf
		}
		return result[i].EvaluationID < result[j].EvaluationID
	})
	return result
}

var _ storage.EvaluationStore = (*EvaluationStore)(nil)
