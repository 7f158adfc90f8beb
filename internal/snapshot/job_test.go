package snapshot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debond-math/internal/domain"
	"debond-math/internal/fixedpoint"
	"debond-math/internal/storage"
	"debond-math/internal/storage/memory"
)

var takenAt = time.Unix(1_700_000_000, 0)

func scaled(t *testing.T, s string) fixedpoint.Amount {
	t.Helper()
	a, err := fixedpoint.FromDecimalString(s)
	require.NoError(t, err)
	return a
}

func healthyClass(t *testing.T, id string) *domain.BondClass {
	return &domain.BondClass{
		ClassID: id,
		Position: domain.BondPosition{
			FixedRateBond:    scaled(t, "300"),
			FloatingRateBond: scaled(t, "700"),
		},
		BenchmarkIR: scaled(t, "0.05"),
		Liquidity: domain.LiquidityState{
			SumOfLiquidityFlow:        scaled(t, "100"),
			SumOfLiquidityOfLastNonce: scaled(t, "100"),
			LastMonthLiquidityFlow:    scaled(t, "10"),
		},
		MaturityTime:  1000,
		NonceDuration: 100,
	}
}

func newJob(t *testing.T, classes ...*domain.BondClass) (*Job, *memory.RateSnapshotStore) {
	t.Helper()
	cs := memory.NewBondClassStore()
	for _, c := range classes {
		require.NoError(t, cs.Upsert(context.Background(), c))
	}
	ss := memory.NewRateSnapshotStore()
	job := NewJob(Options{
		Classes:   cs,
		Snapshots: ss,
		Clock:     func() time.Time { return takenAt },
		Logger:    zerolog.Nop(),
	})
	return job, ss
}

func TestEvaluate(t *testing.T) {
	snap, err := Evaluate(healthyClass(t, "class-1"), takenAt.Unix())
	require.NoError(t, err)

	assert.Equal(t, "class-1", snap.ClassID)
	assert.Equal(t, takenAt.Unix(), snap.TakenAt)
	assert.True(t, snap.Deficit.Equal(scaled(t, "5")))
	assert.True(t, snap.InCrisis)
	assert.Equal(t, int64(1050), snap.RedemptionTime)

	// The split always sums to twice the benchmark.
	sum, err := fixedpoint.Add(snap.FixedRate, snap.FloatingRate)
	require.NoError(t, err)
	assert.True(t, sum.Equal(scaled(t, "0.1")), "fixed+floating = %s", sum)
}

func TestRun_WritesAllClasses(t *testing.T) {
	healthy := healthyClass(t, "a")
	surplus := healthyClass(t, "b")
	surplus.Liquidity.SumOfLiquidityOfLastNonce = scaled(t, "200")

	job, ss := newJob(t, healthy, surplus)
	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Classes)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 1, res.InCrisis)
	assert.Empty(t, res.Errors)

	got, err := ss.GetByClassID(context.Background(), "b")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].InCrisis)
	assert.Less(t, got[0].RedemptionTime, int64(1000))
}

func TestRun_SkipsFailingClass(t *testing.T) {
	bad := healthyClass(t, "bad")
	bad.Liquidity.LastMonthLiquidityFlow = fixedpoint.Zero()
	oneSided := healthyClass(t, "one-sided")
	oneSided.Position.FloatingRateBond = fixedpoint.Zero()

	job, ss := newJob(t, healthyClass(t, "good"), bad, oneSided)
	res, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Classes)
	assert.Equal(t, 1, res.Written)
	assert.Len(t, res.Errors, 2)

	got, err := ss.GetByTimeRange(context.Background(), "good", takenAt.Unix(), takenAt.Unix())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRun_SameSecondIsIdempotent(t *testing.T) {
	job, ss := newJob(t, healthyClass(t, "a"))

	_, err := job.Run(context.Background())
	require.NoError(t, err)
	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Written)

	got, err := ss.GetByClassID(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRun_NoClasses(t *testing.T) {
	job, _ := newJob(t)
	res, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Classes)
	assert.Equal(t, 0, res.Written)
}

// blockingClasses holds List until release is closed.
type blockingClasses struct {
	storage.BondClassStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingClasses) List(context.Context) ([]*domain.BondClass, error) {
	close(b.entered)
	<-b.release
	return nil, nil
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	classes := &blockingClasses{entered: make(chan struct{}), release: make(chan struct{})}
	job := NewJob(Options{Classes: classes, Snapshots: memory.NewRateSnapshotStore(), Logger: zerolog.Nop()})
	s := NewScheduler(context.Background(), job, zerolog.Nop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.True(t, s.TryRun(context.Background()))
	}()

	<-classes.entered
	assert.True(t, s.Status().Running)
	assert.False(t, s.TryRun(context.Background()), "overlapping run should be skipped")

	close(classes.release)
	wg.Wait()

	st := s.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.Runs)
	assert.False(t, st.LastRun.IsZero())
}

func TestScheduler_Register(t *testing.T) {
	job, _ := newJob(t)
	s := NewScheduler(context.Background(), job, zerolog.Nop())

	assert.NoError(t, s.Register("*/30 * * * * *"))
	assert.Error(t, s.Register("not a schedule"))

	s.Start()
	s.Stop()
}
