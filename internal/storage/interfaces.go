package storage

import (
	"context"

	"debond-math/internal/domain"
)

// EvaluationStore provides access to the evaluations journal.
type EvaluationStore interface {
	// Insert adds a new evaluation. Returns ErrDuplicateKey if evaluation_id exists.
	Insert(ctx context.Context, e *domain.Evaluation) error

	// GetByID retrieves an evaluation by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, evaluationID string) (*domain.Evaluation, error)

	// GetByOperation retrieves all evaluations of an operation, ordered by as_of ASC.
	GetByOperation(ctx context.Context, operation string) ([]*domain.Evaluation, error)

	// GetByTimeRange retrieves evaluations with as_of within [start, end] (inclusive),
	// ordered by as_of ASC, evaluation_id ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Evaluation, error)
}

// BondClassStore provides access to bond_classes storage.
// Unlike the journals it is mutable: callers replace a class wholesale.
type BondClassStore interface {
	// Upsert inserts or replaces a bond class.
	Upsert(ctx context.Context, c *domain.BondClass) error

	// GetByID retrieves a bond class. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, classID string) (*domain.BondClass, error)

	// List retrieves all bond classes ordered by class_id ASC.
	List(ctx context.Context) ([]*domain.BondClass, error)
}

// RateSnapshotStore provides access to rate_snapshots storage.
type RateSnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate snapshot_id.
	InsertBulk(ctx context.Context, snapshots []*domain.RateSnapshot) error

	// GetByClassID retrieves all snapshots of a class, ordered by taken_at ASC.
	GetByClassID(ctx context.Context, classID string) ([]*domain.RateSnapshot, error)

	// GetByTimeRange retrieves snapshots of a class within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, classID string, start, end int64) ([]*domain.RateSnapshot, error)
}
