// Package verification replays journaled evaluations through the engine
// and reports any record whose stored outcome no longer reproduces.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"debond-math/internal/domain"
	"debond-math/internal/engine"
	"debond-math/internal/idhash"
	"debond-math/internal/storage"
)

// ErrEvaluationNotFound is returned when an evaluation id is not journaled.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// FieldDivergence is a mismatch between a stored and a replayed field.
type FieldDivergence struct {
	Field    string `json:"field"`
	Expected string `json:"expected"` // stored
	Actual   string `json:"actual"`   // replayed
}

// Result is the outcome of verifying one evaluation.
type Result struct {
	EvaluationID string            `json:"evaluation_id"`
	Operation    string            `json:"operation"`
	Match        bool              `json:"match"`
	Divergences  []FieldDivergence `json:"divergences,omitempty"`
}

// Report summarizes a batch verification.
type Report struct {
	Total     int      `json:"total"`
	Matched   int      `json:"matched"`
	Divergent int      `json:"divergent"`
	Results   []Result `json:"results"`
}

// Options for creating Verifier.
type Options struct {
	Journal storage.EvaluationStore
	Logger  zerolog.Logger
}

// Verifier checks the evaluations journal against fresh evaluations.
type Verifier struct {
	journal storage.EvaluationStore
	logger  zerolog.Logger
}

// New creates a new Verifier.
func New(opts Options) *Verifier {
	return &Verifier{
		journal: opts.Journal,
		logger:  opts.Logger,
	}
}

// VerifyEvaluation replays a single journaled evaluation.
func (v *Verifier) VerifyEvaluation(ctx context.Context, evaluationID string) (*Result, error) {
	stored, err := v.journal.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", evaluationID, ErrEvaluationNotFound)
		}
		return nil, err
	}
	res, err := v.verify(ctx, stored)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// VerifyRange replays every evaluation with as_of within [start, end].
func (v *Verifier) VerifyRange(ctx context.Context, start, end int64) (*Report, error) {
	stored, err := v.journal.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := &Report{Results: make([]Result, 0, len(stored))}
	for _, ev := range stored {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := v.verify(ctx, ev)
		if err != nil {
			return nil, err
		}
		report.Total++
		if res.Match {
			report.Matched++
		} else {
			report.Divergent++
		}
		report.Results = append(report.Results, res)
	}

	v.logger.Info().
		Int64("from", start).
		Int64("to", end).
		Int("total", report.Total).
		Int("divergent", report.Divergent).
		Msg("journal verified")
	return report, nil
}

func (v *Verifier) verify(ctx context.Context, stored *domain.Evaluation) (Result, error) {
	var divs []FieldDivergence
	replayed, err := Replay(ctx, stored)
	switch {
	case errors.Is(err, engine.ErrUnknownOperation):
		divs = []FieldDivergence{{Field: "Operation", Expected: stored.Operation, Actual: "unregistered"}}
	case err != nil:
		return Result{}, err
	default:
		divs = CompareEvaluations(stored, replayed)
	}
	if len(divs) > 0 {
		v.logger.Warn().
			Str("evaluation_id", stored.EvaluationID).
			Str("operation", stored.Operation).
			Int("divergences", len(divs)).
			Msg("evaluation does not reproduce")
	}
	return Result{
		EvaluationID: stored.EvaluationID,
		Operation:    stored.Operation,
		Match:        len(divs) == 0,
		Divergences:  divs,
	}, nil
}

// Replay re-runs stored on an unjournaled engine whose clock is pinned at
// the stored as_of. Only an unknown operation is returned as an error;
// evaluation failures are part of the replayed record.
func Replay(ctx context.Context, stored *domain.Evaluation) (*domain.Evaluation, error) {
	if _, ok := engine.Lookup(stored.Operation); !ok {
		return nil, fmt.Errorf("%q: %w", stored.Operation, engine.ErrUnknownOperation)
	}

	asOf := time.Unix(stored.AsOf, 0)
	e := engine.New(engine.Options{Clock: func() time.Time { return asOf }})

	args := make(engine.Args, len(stored.Args))
	for k, val := range stored.Args {
		args[k] = val
	}

	replayed := &domain.Evaluation{
		EvaluationID: idhash.ComputeEvaluationID(stored.Operation, stored.Args, stored.AsOf),
		Operation:    stored.Operation,
		Args:         stored.Args,
		AsOf:         stored.AsOf,
	}
	res, err := e.Evaluate(ctx, stored.Operation, args)
	if err != nil {
		replayed.Error = err.Error()
		replayed.ErrorKind = engine.ErrorKind(err)
		return replayed, nil
	}
	replayed.Result = res.Value
	replayed.AsOf = res.AsOf
	return replayed, nil
}

// CompareEvaluations compares the outcome fields of two evaluations.
// CreatedAt is not compared.
func CompareEvaluations(stored, replayed *domain.Evaluation) []FieldDivergence {
	var divs []FieldDivergence
	check := func(field, want, got string) {
		if want != got {
			divs = append(divs, FieldDivergence{Field: field, Expected: want, Actual: got})
		}
	}

	check("EvaluationID", stored.EvaluationID, replayed.EvaluationID)
	check("Operation", stored.Operation, replayed.Operation)
	check("Result", stored.Result, replayed.Result)
	check("Error", stored.Error, replayed.Error)
	check("ErrorKind", stored.ErrorKind, replayed.ErrorKind)
	if stored.AsOf != replayed.AsOf {
		divs = append(divs, FieldDivergence{
			Field:    "AsOf",
			Expected: fmt.Sprint(stored.AsOf),
			Actual:   fmt.Sprint(replayed.AsOf),
		})
	}
	return divs
}
