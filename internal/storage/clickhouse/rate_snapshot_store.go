package clickhouse

import (
	"context"
	"fmt"
	"time"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
	"debond-math/internal/observability"
	"debond-math/internal/storage"
)

// RateSnapshotStore implements storage.RateSnapshotStore using ClickHouse.
type RateSnapshotStore struct {
	conn *Conn
}

// NewRateSnapshotStore creates a new RateSnapshotStore.
func NewRateSnapshotStore(conn *Conn) *RateSnapshotStore {
	return &RateSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RateSnapshotStore = (*RateSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate snapshot_id.
// MergeTree does not enforce uniqueness, so duplicates are checked before the insert.
func (s *RateSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.RateSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "insert_rate_snapshots", time.Since(start).Seconds(), err)
	}(time.Now())

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(snapshots))
	for _, r := range snapshots {
		if r == nil || r.SnapshotID == "" || r.ClassID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.SnapshotID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.SnapshotID] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, r := range snapshots {
		exists, err := s.exists(ctx, r.SnapshotID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO rate_snapshots (
			snapshot_id, class_id, taken_at, fixed_rate, floating_rate,
			deficit, in_crisis, redemption_time
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range snapshots {
		var crisis uint8
		if r.InCrisis {
			crisis = 1
		}
		err = batch.Append(
			r.SnapshotID, r.ClassID, r.TakenAt, r.FixedRate.String(), r.FloatingRate.String(),
			r.Deficit.String(), crisis, r.RedemptionTime,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByClassID retrieves all snapshots of a class, ordered by taken_at ASC.
func (s *RateSnapshotStore) GetByClassID(ctx context.Context, classID string) ([]*domain.RateSnapshot, error) {
	query := `
		SELECT snapshot_id, class_id, taken_at, fixed_rate, floating_rate,
			deficit, in_crisis, redemption_time
		FROM rate_snapshots
		WHERE class_id = ?
		ORDER BY taken_at ASC, snapshot_id ASC
	`

	rows, err := s.conn.Query(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("query by class id: %w", err)
	}
	defer rows.Close()

	return scanRateSnapshots(rows)
}

// GetByTimeRange retrieves snapshots of a class within [start, end] (inclusive).
func (s *RateSnapshotStore) GetByTimeRange(ctx context.Context, classID string, start, end int64) ([]*domain.RateSnapshot, error) {
	query := `
		SELECT snapshot_id, class_id, taken_at, fixed_rate, floating_rate,
			deficit, in_crisis, redemption_time
		FROM rate_snapshots
		WHERE class_id = ? AND taken_at >= ? AND taken_at <= ?
		ORDER BY taken_at ASC, snapshot_id ASC
	`

	rows, err := s.conn.Query(ctx, query, classID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanRateSnapshots(rows)
}

// exists checks if a snapshot with the given id exists.
func (s *RateSnapshotStore) exists(ctx context.Context, snapshotID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM rate_snapshots WHERE snapshot_id = ?`, snapshotID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanRateSnapshots scans multiple rows.
func scanRateSnapshots(rows chRows) ([]*domain.RateSnapshot, error) {
	var snapshots []*domain.RateSnapshot

	for rows.Next() {
		var r domain.RateSnapshot
		var fixed, floating, deficit string
		var crisis uint8

		err := rows.Scan(
			&r.SnapshotID, &r.ClassID, &r.TakenAt, &fixed, &floating,
			&deficit, &crisis, &r.RedemptionTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rate snapshot row: %w", err)
		}

		if r.FixedRate, err = fixedpoint.Parse(fixed); err != nil {
			return nil, fmt.Errorf("fixed_rate: %w", err)
		}
		if r.FloatingRate, err = fixedpoint.Parse(floating); err != nil {
			return nil, fmt.Errorf("floating_rate: %w", err)
		}
		if r.Deficit, err = fixedpoint.Parse(deficit); err != nil {
			return nil, fmt.Errorf("deficit: %w", err)
		}
		r.InCrisis = crisis == 1
		snapshots = append(snapshots, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate snapshot rows: %w", err)
	}

	return snapshots, nil
}
