package usecase

import (
	"context"
	"log/slog"
	"time"

	"AptScanner/internal/ports"
)

// Runner executes one pass for a trigger time.
type Runner interface {
	Run(ctx context.Context, now time.Time) (RunResult, error)
}

// Scheduler wires the ticking driver with a runner.
type Scheduler struct {
	driver ports.Scheduler
	runner Runner
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers the runner with the provided scheduler. Failed runs are
// logged; the next tick starts a fresh run.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		result, err := s.runner.Run(ctx, trigger)
		if err != nil {
			s.logger.Error("scheduled run failed", "error", err)
			return
		}
		s.logger.Info("scheduled run done", "status", result.Status)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
