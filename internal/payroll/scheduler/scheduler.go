package scheduler

import (
	"context"
	"time"

	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the stale check-in sweep at 01:00 local time
const DefaultSweepSchedule = "0 1 * * *"

// Sweeper closes check-ins left open on previous days
type Sweeper interface {
	SweepStaleCheckIns(ctx context.Context, now time.Time) (int, error)
}

// Scheduler runs the periodic payroll jobs
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// New creates a scheduler whose schedules are interpreted in loc
func New(sweeper Sweeper, loc *time.Location, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		logger:  log,
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
}

// RegisterSweep schedules the stale check-in sweep
func (s *Scheduler) RegisterSweep(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return err
	}
	s.logger.Info().Str("schedule", schedule).Msg("stale check-in sweep scheduled")
	return nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := s.now()
	closed, err := s.sweeper.SweepStaleCheckIns(ctx, started)
	if err != nil {
		s.logger.Error().Err(err).Msg("stale check-in sweep failed")
		return
	}
	s.logger.Info().
		Int("closed", closed).
		Dur("took", time.Since(started)).
		Msg("stale check-in sweep finished")
}
