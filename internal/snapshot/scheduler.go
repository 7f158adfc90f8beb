package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs a Job on a cron schedule with a seconds field.
type Scheduler struct {
	cron   *cron.Cron
	job    *Job
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
	runs    int
	ctx     context.Context
}

// NewScheduler creates a new Scheduler. Runs started by the schedule use ctx.
func NewScheduler(ctx context.Context, job *Job, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		job:    job,
		logger: logger,
		ctx:    ctx,
	}
}

// Register adds the job at spec, e.g. "0 */5 * * * *".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.TryRun(s.ctx) }); err != nil {
		return fmt.Errorf("register snapshot job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("snapshot scheduler started")
}

// Stop stops the scheduler and waits for a running snapshot to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("snapshot scheduler stopped")
}

// TryRun runs the job unless a run is already in progress. Reports whether
// it ran.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug().Msg("snapshot already running, skipping")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now()
		s.runs++
		s.mu.Unlock()
	}()

	if _, err := s.job.Run(ctx); err != nil {
		s.logger.Error().Err(err).Msg("snapshot failed")
	}
	return true
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running bool      `json:"running"`
	LastRun time.Time `json:"last_run"`
	Runs    int       `json:"runs"`
}

// Status returns the scheduler status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Running: s.running, LastRun: s.lastRun, Runs: s.runs}
}
