package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"debond-math/internal/domain"
	"debond-math/internal/engine"
	"debond-math/internal/fixedpoint"
	"debond-math/internal/snapshot"
	"debond-math/internal/storage"
	"debond-math/internal/verification"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// EvalRequest is the body of POST /v1/eval/{op}. Values may be JSON strings,
// numbers or booleans.
type EvalRequest struct {
	Args map[string]any `json:"args"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error, kind string) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// writeEngineError maps engine and storage errors to status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	kind := engine.ErrorKind(err)
	switch {
	case errors.Is(err, engine.ErrUnknownOperation), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err, kind)
	case kind == fixedpoint.KindUnknown:
		writeError(w, http.StatusInternalServerError, err, kind)
	default:
		writeError(w, http.StatusBadRequest, err, kind)
	}
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path), Kind: "not_found"})
}

type healthResponse struct {
	Status    string           `json:"status"`
	Snapshots *snapshot.Status `json:"snapshots,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.Snapshots = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, engine.Operations())
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	op := mux.Vars(r)["op"]

	var req EvalRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err), "bad_request")
		return
	}

	args, err := toArgs(req.Args)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, fixedpoint.KindDomain)
		return
	}

	res, err := s.engine.Evaluate(r.Context(), op, args)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func toArgs(in map[string]any) (engine.Args, error) {
	args := make(engine.Args, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			args[k] = t
		case json.Number:
			args[k] = t.String()
		case bool:
			args[k] = strconv.FormatBool(t)
		default:
			return nil, fmt.Errorf("argument %q: want string, number or bool: %w", k, engine.ErrBadArg)
		}
	}
	return args, nil
}

func (s *Server) handlePutClass(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var c domain.BondClass
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode bond class: %w", err), "bad_request")
		return
	}
	if c.ClassID != "" && c.ClassID != id {
		writeError(w, http.StatusBadRequest, fmt.Errorf("class_id %q does not match path %q", c.ClassID, id), "bad_request")
		return
	}
	c.ClassID = id
	if err := validateClass(&c); err != nil {
		writeEngineError(w, err)
		return
	}
	c.UpdatedAt = s.clock().UnixMilli()

	if err := s.classes.Upsert(r.Context(), &c); err != nil {
		s.storageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &c)
}

// validateClass accepts one-sided positions; they fail only when rated.
func validateClass(c *domain.BondClass) error {
	if c.Position.FixedRateBond.IsNegative() || c.Position.FloatingRateBond.IsNegative() {
		return fmt.Errorf("position: negative supply: %w", fixedpoint.ErrDomain)
	}
	if err := fixedpoint.RequireNonNegative("benchmark_ir", c.BenchmarkIR); err != nil {
		return err
	}
	if err := c.Liquidity.Validate(); err != nil {
		return err
	}
	if c.NonceDuration < 0 {
		return fmt.Errorf("negative nonce_duration %d: %w", c.NonceDuration, fixedpoint.ErrDomain)
	}
	return nil
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	c, err := s.classes.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := s.classes.List(r.Context())
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	if classes == nil {
		classes = []*domain.BondClass{}
	}
	writeJSON(w, http.StatusOK, classes)
}

// handleClassSnapshots lists a class's snapshots, optionally bounded by
// from/to (unix seconds of taken_at).
func (s *Server) handleClassSnapshots(w http.ResponseWriter, r *http.Request) {
	classID := mux.Vars(r)["id"]
	q := r.URL.Query()

	var snaps []*domain.RateSnapshot
	var err error
	if !q.Has("from") && !q.Has("to") {
		snaps, err = s.snapshots.GetByClassID(r.Context(), classID)
	} else {
		from, to, rerr := queryRange(r)
		if rerr != nil {
			writeError(w, http.StatusBadRequest, rerr, fixedpoint.KindDomain)
			return
		}
		snaps, err = s.snapshots.GetByTimeRange(r.Context(), classID, from, to)
	}
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []*domain.RateSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	if s.evaluations == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("evaluation journal disabled"), "unavailable")
		return
	}
	ev, err := s.evaluations.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleListEvaluations lists the journaled evaluations of ?operation=.
func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	if s.evaluations == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("evaluation journal disabled"), "unavailable")
		return
	}
	op := r.URL.Query().Get("operation")
	if op == "" {
		writeError(w, http.StatusBadRequest, errors.New("operation query parameter is required"), fixedpoint.KindDomain)
		return
	}
	if _, ok := engine.Lookup(op); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%q: %w", op, engine.ErrUnknownOperation), engine.KindUnknownOperation)
		return
	}

	evs, err := s.evaluations.GetByOperation(r.Context(), op)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	if evs == nil {
		evs = []*domain.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Server) handleVerifyEvaluation(w http.ResponseWriter, r *http.Request) {
	if s.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("evaluation journal disabled"), "unavailable")
		return
	}
	res, err := s.verifier.VerifyEvaluation(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, verification.ErrEvaluationNotFound) {
		writeError(w, http.StatusNotFound, err, "not_found")
		return
	}
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleVerifyRange replays the journal between from and to (unix seconds of as_of).
func (s *Server) handleVerifyRange(w http.ResponseWriter, r *http.Request) {
	if s.verifier == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("evaluation journal disabled"), "unavailable")
		return
	}
	from, to, err := queryRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err, fixedpoint.KindDomain)
		return
	}
	report, err := s.verifier.VerifyRange(r.Context(), from, to)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) storageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err, "not_found")
	case errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err, "bad_request")
	default:
		s.logger.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("storage error")
		writeError(w, http.StatusInternalServerError, errors.New("internal error"), "storage")
	}
}

func queryRange(r *http.Request) (from, to int64, err error) {
	if from, err = queryInt(r, "from", 0); err != nil {
		return 0, 0, err
	}
	if to, err = queryInt(r, "to", math.MaxInt64); err != nil {
		return 0, 0, err
	}
	if from > to {
		return 0, 0, fmt.Errorf("from %d after to %d", from, to)
	}
	return from, to, nil
}

func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query %s=%q: %w", name, raw, engine.ErrBadArg)
	}
	return v, nil
}
