// Package snapshot periodically evaluates every bond class and records its
// rate split and liquidity health.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
	"debond-math/internal/idhash"
	"debond-math/internal/interest"
	"debond-math/internal/liquidity"
	"debond-math/internal/observability"
	"debond-math/internal/storage"
)

// Options for creating Job.
type Options struct {
	Classes   storage.BondClassStore
	Snapshots storage.RateSnapshotStore
	Clock     func() time.Time
	Logger    zerolog.Logger
}

// Job evaluates all bond classes at one instant and writes the results in a
// single batch.
type Job struct {
	classes   storage.BondClassStore
	snapshots storage.RateSnapshotStore
	clock     func() time.Time
	logger    zerolog.Logger
}

// NewJob creates a new Job.
func NewJob(opts Options) *Job {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Job{
		classes:   opts.Classes,
		snapshots: opts.Snapshots,
		clock:     clock,
		logger:    opts.Logger,
	}
}

// RunResult contains results from one run.
type RunResult struct {
	TakenAt  int64
	Classes  int
	Written  int
	InCrisis int
	Errors   []string
}

// Evaluate computes the snapshot of one class at takenAt.
func Evaluate(c *domain.BondClass, takenAt int64) (*domain.RateSnapshot, error) {
	split, err := interest.Split(c.Position, c.BenchmarkIR)
	if err != nil {
		return nil, fmt.Errorf("class %s: rates: %w", c.ClassID, err)
	}
	health, err := liquidity.Assess(c.MaturityTime, c.Liquidity, c.BenchmarkIR, c.NonceDuration)
	if err != nil {
		return nil, fmt.Errorf("class %s: liquidity: %w", c.ClassID, err)
	}
	return &domain.RateSnapshot{
		SnapshotID:     idhash.ComputeSnapshotID(c.ClassID, takenAt),
		ClassID:        c.ClassID,
		TakenAt:        takenAt,
		FixedRate:      split.Fixed,
		FloatingRate:   split.Floating,
		Deficit:        health.Deficit,
		InCrisis:       health.InCrisis,
		RedemptionTime: health.RedemptionTime,
	}, nil
}

// Run snapshots every class. A class that fails to evaluate is logged and
// skipped; the others are still written. A second run within the same
// second finds its snapshots already present and writes nothing.
func (j *Job) Run(ctx context.Context) (result *RunResult, err error) {
	start := time.Now()
	result = &RunResult{TakenAt: j.clock().Unix()}

	defer func() {
		status := observability.StatusOK
		if err != nil {
			status = observability.StatusError
		}
		observability.RecordSnapshotRun(status, time.Since(start).Seconds(), result.Written, result.InCrisis, time.Now().Unix())
	}()

	classes, err := j.classes.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list bond classes: %w", err)
	}
	result.Classes = len(classes)

	snaps := make([]*domain.RateSnapshot, 0, len(classes))
	for _, c := range classes {
		snap, evalErr := Evaluate(c, result.TakenAt)
		if evalErr != nil {
			kind := fixedpoint.Kind(evalErr)
			observability.RecordSnapshotClassError(kind)
			j.logger.Warn().Err(evalErr).Str("class_id", c.ClassID).Str("kind", kind).Msg("snapshot skipped class")
			result.Errors = append(result.Errors, evalErr.Error())
			continue
		}
		snaps = append(snaps, snap)
	}

	if len(snaps) > 0 {
		if err = j.snapshots.InsertBulk(ctx, snaps); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				j.logger.Info().Int64("taken_at", result.TakenAt).Msg("snapshot already taken")
				return result, nil
			}
			return result, fmt.Errorf("insert snapshots: %w", err)
		}
	}

	result.Written = len(snaps)
	for _, s := range snaps {
		if s.InCrisis {
			result.InCrisis++
		}
	}

	j.logger.Info().
		Int("classes", result.Classes).
		Int("written", result.Written).
		Int("in_crisis", result.InCrisis).
		Int("errors", len(result.Errors)).
		Dur("took", time.Since(start)).
		Msg("snapshot complete")
	return result, nil
}
