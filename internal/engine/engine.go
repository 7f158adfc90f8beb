// Package engine exposes the bond math as named operations over string
// arguments, the common entry point of the CLI, the HTTP API and the
// snapshot job.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"debond-math/internal/domain"
	"debond-math/internal/idhash"
	"debond-math/internal/observability"
	"debond-math/internal/storage"
)

// Result is the outcome of one evaluation.
type Result struct {
	Operation    string           `json:"operation"`
	Value        string           `json:"value"`
	Raw          string           `json:"raw,omitempty"` // scaled integer, amounts only
	Kind         ResultKind       `json:"kind"`
	Progress     *domain.Progress `json:"progress,omitempty"`
	AsOf         int64            `json:"as_of"`
	EvaluationID string           `json:"evaluation_id,omitempty"`
}

// Options for creating Engine.
type Options struct {
	// Journal receives one record per evaluation. Optional.
	Journal storage.EvaluationStore

	// Clock supplies "now" for operations that take it. Defaults to time.Now.
	Clock func() time.Time

	Logger zerolog.Logger
}

// Engine evaluates registered operations. Safe for concurrent use.
type Engine struct {
	journal storage.EvaluationStore
	clock   func() time.Time
	logger  zerolog.Logger
}

// New creates a new Engine. A zero Options gives a silent, unjournaled
// engine on the wall clock.
func New(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		journal: opts.Journal,
		clock:   clock,
		logger:  opts.Logger,
	}
}

// Evaluate runs operation op on args.
//
// A missing "now" argument is taken from the clock and recorded in the
// journaled arguments, so the evaluation id identifies the call exactly.
// Journal failures are logged and counted; they never fail the evaluation.
func (e *Engine) Evaluate(ctx context.Context, op string, args Args) (*Result, error) {
	def, ok := registry[op]
	if !ok {
		return nil, fmt.Errorf("%q: %w", op, ErrUnknownOperation)
	}

	start := time.Now()
	asOf := e.clock().Unix()

	resolved, err := args.check(def.Params)
	if err == nil {
		if v, ok := resolved.lookup(nowParam); ok {
			// A malformed now keeps the clock value so the failure is journaled at call time.
			if parsed, perr := strconv.ParseInt(v, 10, 64); perr != nil {
				err = fmt.Errorf("%s=%q: %w", nowParam, v, ErrBadArg)
			} else {
				asOf = parsed
			}
		} else if takesNow(def) {
			resolved[nowParam] = strconv.FormatInt(asOf, 10)
		}
	}

	var res *Result
	if err == nil {
		res, err = def.run(resolved)
	}
	if err != nil {
		err = fmt.Errorf("%s: %w", op, err)
	}

	kind := ErrorKind(err)
	observability.RecordEvaluation(op, kind, time.Since(start).Seconds())

	if resolved == nil {
		resolved = Args{}
		for k, v := range args {
			resolved[k] = v
		}
	}
	id := e.record(ctx, op, resolved, asOf, res, err)

	if err != nil {
		e.logger.Debug().Str("operation", op).Str("kind", kind).Err(err).Msg("evaluation failed")
		return nil, err
	}

	res.Operation = op
	res.AsOf = asOf
	res.EvaluationID = id
	e.logger.Debug().
		Str("operation", op).
		Str("value", res.Value).
		Dur("took", time.Since(start)).
		Msg("evaluated")
	return res, nil
}

// record journals the evaluation and returns its id, or "" without a journal.
func (e *Engine) record(ctx context.Context, op string, args Args, asOf int64, res *Result, evalErr error) string {
	if e.journal == nil {
		return ""
	}

	ev := &domain.Evaluation{
		EvaluationID: idhash.ComputeEvaluationID(op, args, asOf),
		Operation:    op,
		Args:         args,
		AsOf:         asOf,
		CreatedAt:    e.clock().UnixMilli(),
	}
	if evalErr != nil {
		ev.Error = evalErr.Error()
		ev.ErrorKind = ErrorKind(evalErr)
	} else {
		ev.Result = res.Value
	}

	err := e.journal.Insert(ctx, ev)
	switch {
	case err == nil, errors.Is(err, storage.ErrDuplicateKey):
		return ev.EvaluationID
	default:
		observability.RecordJournalError()
		e.logger.Warn().Err(err).Str("operation", op).Str("evaluation_id", ev.EvaluationID).Msg("journal insert failed")
		return ""
	}
}

func takesNow(op *Operation) bool {
	for _, p := range op.Params {
		if p.Name == nowParam {
			return true
		}
	}
	return false
}
