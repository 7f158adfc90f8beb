package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debond-math/internal/domain"
	"debond-math/internal/engine"
	"debond-math/internal/observability"
	"debond-math/internal/snapshot"
	"debond-math/internal/storage/memory"
	"debond-math/internal/verification"
)

var fixedNow = time.Unix(1_700_000_000, 0)

type fixture struct {
	server      *Server
	classes     *memory.BondClassStore
	snapshots   *memory.RateSnapshotStore
	evaluations *memory.EvaluationStore
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	f := &fixture{
		classes:     memory.NewBondClassStore(),
		snapshots:   memory.NewRateSnapshotStore(),
		evaluations: memory.NewEvaluationStore(),
	}
	opts := Options{
		Engine:              engine.New(engine.Options{Journal: f.evaluations, Clock: clock}),
		Classes:             f.classes,
		Snapshots:           f.snapshots,
		Evaluations:         f.evaluations,
		Metrics:             observability.Handler(),
		Clock:               clock,
		Logger:              zerolog.Nop(),
		RequestTimeout:      time.Second,
		FeedMinInterval:     time.Millisecond,
		FeedDefaultInterval: 10 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&opts)
	}
	f.server = New(opts)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestHealth_ReportsSnapshotScheduler(t *testing.T) {
	classes := memory.NewBondClassStore()
	job := snapshot.NewJob(snapshot.Options{
		Classes:   classes,
		Snapshots: memory.NewRateSnapshotStore(),
		Clock:     func() time.Time { return fixedNow },
		Logger:    zerolog.Nop(),
	})
	sched := snapshot.NewScheduler(context.Background(), job, zerolog.Nop())
	require.True(t, sched.TryRun(context.Background()))

	f := newFixture(t, func(o *Options) { o.Scheduler = sched })
	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Snapshots)
	assert.Equal(t, 1, resp.Snapshots.Runs)
	assert.False(t, resp.Snapshots.Running)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/health", "")
	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestOperations(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/operations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	ops := decode[[]engine.Operation](t, rec)
	assert.Len(t, ops, len(engine.Operations()))
	assert.Equal(t, "amountToAddEntry", ops[0].Name)
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/eval/getLockedBalance",
		`{"args": {"collateralizedSupply": 100, "airdropSupply": "100", "airdropBalance": 100}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[engine.Result](t, rec)
	assert.Equal(t, "getLockedBalance", res.Operation)
	assert.Equal(t, "95", res.Value)
	assert.Equal(t, engine.KindAmount, res.Kind)
	require.NotEmpty(t, res.EvaluationID)

	rec = f.do(t, http.MethodGet, "/v1/evaluations/"+res.EvaluationID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	ev := decode[domain.Evaluation](t, rec)
	assert.Equal(t, "95", ev.Result)
	assert.Equal(t, "100", ev.Args["airdropSupply"])
}

func TestEvaluate_BooleanArg(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/eval/currentPrice",
		`{"args": {"startingTime": 1000, "duration": 604800, "curve": false, "maxAmount": 100, "minAmount": 50, "now": 303400}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "75", decode[engine.Result](t, rec).Value)
}

func TestEvaluate_Progress(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/eval/getProgress",
		`{"args": {"maturityDate": 1000, "period": 100, "now": 950}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[engine.Result](t, rec)
	require.NotNil(t, res.Progress)
	assert.Equal(t, domain.Progress{Achieved: 50, Remaining: 50}, *res.Progress)
}

func TestEvaluate_Errors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		kind   string
	}{
		{"unknown op", "/v1/eval/nope", `{}`, http.StatusNotFound, engine.KindUnknownOperation},
		{"division by zero", "/v1/eval/mulDiv", `{"args": {"x": 1, "y": 1, "denominator": 0}}`, http.StatusBadRequest, "division_by_zero"},
		{"underflow", "/v1/eval/amountToRemoveEntry", `{"args": {"oldEntries": 1, "totalEntries": 200, "totalBalance": 100, "amount": 5}}`, http.StatusBadRequest, "underflow"},
		{"missing arg", "/v1/eval/sigmoid", `{"args": {"x": "0.5"}}`, http.StatusBadRequest, "domain"},
		{"array arg", "/v1/eval/sigmoid", `{"args": {"x": [1], "c": "0.5"}}`, http.StatusBadRequest, "domain"},
		{"malformed body", "/v1/eval/sigmoid", `{"args":`, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestEvaluate_WrongMethod(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/eval/mulDiv", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetEvaluation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/evaluations/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	noJournal := newFixture(t, func(o *Options) { o.Evaluations = nil })
	rec = noJournal.do(t, http.MethodGet, "/v1/evaluations/missing", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListEvaluations(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`{"args": {"x": "2", "y": "3", "denominator": "4"}}`,
		`{"args": {"x": "1", "y": "1", "denominator": "0"}}`,
	} {
		f.do(t, http.MethodPost, "/v1/eval/mulDiv", body)
	}
	f.do(t, http.MethodPost, "/v1/eval/getAmountOut", `{"args": {"amountIn": 1, "reserveIn": 1, "reserveOut": 1}}`)

	rec := f.do(t, http.MethodGet, "/v1/evaluations?operation=mulDiv", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	evs := decode[[]domain.Evaluation](t, rec)
	require.Len(t, evs, 2)
	for _, ev := range evs {
		assert.Equal(t, "mulDiv", ev.Operation)
	}

	rec = f.do(t, http.MethodGet, "/v1/evaluations?operation=sigmoid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/evaluations", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/evaluations?operation=nope", "").Code)

	noJournal := newFixture(t, func(o *Options) { o.Evaluations = nil })
	assert.Equal(t, http.StatusServiceUnavailable, noJournal.do(t, http.MethodGet, "/v1/evaluations?operation=mulDiv", "").Code)
}

func TestVerifyEvaluations(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/eval/mulDiv", `{"args": {"x": "2", "y": "3", "denominator": "4"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[engine.Result](t, rec)

	rec = f.do(t, http.MethodGet, "/v1/evaluations/"+res.EvaluationID+"/verify", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	one := decode[verification.Result](t, rec)
	assert.True(t, one.Match)
	assert.Equal(t, "mulDiv", one.Operation)

	rec = f.do(t, http.MethodGet, "/v1/evaluations/verify", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[verification.Report](t, rec)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Matched)

	rec = f.do(t, http.MethodGet, "/v1/evaluations/verify?from=10&to=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/evaluations/missing/verify", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	noJournal := newFixture(t, func(o *Options) { o.Evaluations = nil })
	rec = noJournal.do(t, http.MethodGet, "/v1/evaluations/verify", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

const classBody = `{
	"position": {"fixed_rate_bond": "300000000000000000000", "floating_rate_bond": "700000000000000000000"},
	"benchmark_ir": "50000000000000000",
	"liquidity": {
		"sum_of_liquidity_flow": "100000000000000000000",
		"sum_of_liquidity_of_last_nonce": "100000000000000000000",
		"last_month_liquidity_flow": "10000000000000000000"
	},
	"maturity_time": 1000,
	"nonce_duration": 100
}`

func TestClasses(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/v1/classes/class-1", classBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	put := decode[domain.BondClass](t, rec)
	assert.Equal(t, "class-1", put.ClassID)
	assert.Equal(t, fixedNow.UnixMilli(), put.UpdatedAt)

	rec = f.do(t, http.MethodGet, "/v1/classes/class-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.BondClass](t, rec)
	assert.True(t, got.BenchmarkIR.Equal(put.BenchmarkIR))

	rec = f.do(t, http.MethodGet, "/v1/classes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.BondClass](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/v1/classes/absent", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClasses_EmptyList(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/classes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPutClass_Rejects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/v1/classes/a", `{"class_id": "b"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/classes/a", `{"benchmark_ir": "-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "domain", decode[errorResponse](t, rec).Kind)

	rec = f.do(t, http.MethodPut, "/v1/classes/a", `{"benchmark_ir": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/classes/a", `{"nonce_duration": -5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassSnapshots(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/classes/class-1", classBody).Code)

	job := snapshot.NewJob(snapshot.Options{
		Classes:   f.classes,
		Snapshots: f.snapshots,
		Clock:     func() time.Time { return fixedNow },
		Logger:    zerolog.Nop(),
	})
	_, err := job.Run(context.Background())
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/v1/classes/class-1/snapshots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snaps := decode[[]domain.RateSnapshot](t, rec)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].InCrisis)
	assert.Equal(t, int64(1050), snaps[0].RedemptionTime)

	rec = f.do(t, http.MethodGet, "/v1/classes/other/snapshots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/classes/class-1/snapshots?to=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/classes/class-1/snapshots?from=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/classes/class-1/snapshots?from=10&to=5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.RateLimit = 0.001
		o.RateBurst = 2
	})

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/operations", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/operations", "").Code)

	rec := f.do(t, http.MethodGet, "/v1/operations", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode[errorResponse](t, rec).Kind)

	// Health is not rate limited.
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorResponse](t, rec).Kind)
}
