package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"debond-math/internal/domain"
	"debond-math/internal/storage"
)

// EvaluationStore implements storage.EvaluationStore using PostgreSQL.
type EvaluationStore struct {
	pool *Pool
}

// NewEvaluationStore creates a new EvaluationStore.
func NewEvaluationStore(pool *Pool) *EvaluationStore {
	return &EvaluationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EvaluationStore = (*EvaluationStore)(nil)

const evaluationColumns = `
	evaluation_id, operation, args, result, error, error_kind, as_of, created_at
`

// Insert adds a new evaluation. Returns ErrDuplicateKey if evaluation_id exists.
func (s *EvaluationStore) Insert(ctx context.Context, e *domain.Evaluation) (err error) {
	if e == nil || e.EvaluationID == "" || e.Operation == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_evaluation", start, err) }(time.Now())

	args := e.Args
	if args == nil {
		args = map[string]string{}
	}

	query := `
		INSERT INTO evaluations (` + evaluationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.pool.Exec(ctx, query,
		e.EvaluationID, e.Operation, args, e.Result, e.Error, e.ErrorKind, e.AsOf, e.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// GetByID retrieves an evaluation by its ID. Returns ErrNotFound if not exists.
func (s *EvaluationStore) GetByID(ctx context.Context, evaluationID string) (e *domain.Evaluation, err error) {
	defer func(start time.Time) { observe("get_evaluation", start, err) }(time.Now())

	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE evaluation_id = $1`

	e, err = scanEvaluation(s.pool.QueryRow(ctx, query, evaluationID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get evaluation by id: %w", err)
	}
	return e, nil
}

// GetByOperation retrieves all evaluations of an operation, ordered by as_of ASC.
func (s *EvaluationStore) GetByOperation(ctx context.Context, operation string) ([]*domain.Evaluation, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE operation = $1
		ORDER BY as_of ASC, evaluation_id ASC
	`
	return s.query(ctx, "evaluations_by_operation", query, operation)
}

// GetByTimeRange retrieves evaluations with as_of within [start, end] (inclusive).
func (s *EvaluationStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Evaluation, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE as_of >= $1 AND as_of <= $2
		ORDER BY as_of ASC, evaluation_id ASC
	`
	return s.query(ctx, "evaluations_by_time_range", query, start, end)
}

func (s *EvaluationStore) query(ctx context.Context, operation, query string, args ...any) (result []*domain.Evaluation, err error) {
	defer func(start time.Time) { observe(operation, start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", operation, err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return result, nil
}

func scanEvaluation(row pgx.Row) (*domain.Evaluation, error) {
	var e domain.Evaluation
	err := row.Scan(
		&e.EvaluationID, &e.Operation, &e.Args, &e.Result,
		&e.Error, &e.ErrorKind, &e.AsOf, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
