// Package scheduler runs the discovery pipeline unattended on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/jobradar/jobradar/internal/pipeline"
)

// Scheduler triggers scheduled runs. Runs never overlap: cron entries are
// skipped while a previous invocation is still in flight.
type Scheduler struct {
	runner   *pipeline.Runner
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// New creates a scheduler around the runner. The schedule is a standard
// five-field cron expression.
func New(runner *pipeline.Runner, schedule string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		logger:   logger,
	}
}

// Start runs all profiles once immediately, then keeps running them on the
// schedule until ctx is cancelled. It blocks until shutdown completes.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler starting", "schedule", s.schedule)

	s.runOnce(ctx)

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))
	if _, err := s.cron.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	// Wait for any in-flight cron invocation to finish.
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.runner.RunAll(ctx, "scheduled"); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}
}
