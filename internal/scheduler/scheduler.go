package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context) error

// Scheduler wraps gocron v2 and runs the ledger's periodic maintenance jobs.
type Scheduler struct {
	gocronScheduler gocron.Scheduler
	jobs            map[string]gocron.Job
	logger          *slog.Logger
}

// New creates an empty scheduler. Jobs run in UTC.
func New(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	gocronScheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(newGocronLoggerAdapter(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		gocronScheduler: gocronScheduler,
		jobs:            make(map[string]gocron.Job),
		logger:          logger,
	}, nil
}

// AddJob registers a named job to run every interval. A failing run is
// logged and retried on the next tick, never fatal.
func (s *Scheduler) AddJob(ctx context.Context, name string, interval time.Duration, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("job %q: interval must be positive, got %s", name, interval)
	}

	job, err := s.gocronScheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := fn(ctx); err != nil {
				s.logger.Error("Job execution failed", "job", name, "error", err)
			}
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %q: %w", name, err)
	}

	s.jobs[name] = job
	s.logger.Info("Job registered", "job", name, "interval", interval.String())
	return nil
}

// Start begins executing all registered jobs.
func (s *Scheduler) Start() {
	s.gocronScheduler.Start()

	for name, job := range s.jobs {
		if nextRun, err := job.NextRun(); err == nil {
			s.logger.Info("Scheduler started job", "job", name, "next_run", nextRun.Format(time.RFC3339))
		}
	}
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.gocronScheduler.Shutdown()
}

// NextRun returns the next scheduled run time of the named job.
func (s *Scheduler) NextRun(name string) (time.Time, error) {
	job, ok := s.jobs[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown job %q", name)
	}
	nextRun, err := job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return nextRun, nil
}

// LastRun returns the last run time of the named job.
func (s *Scheduler) LastRun(name string) (time.Time, error) {
	job, ok := s.jobs[name]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown job %q", name)
	}
	lastRun, err := job.LastRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	return lastRun, nil
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger interface
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

func (a *gocronLoggerAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

func (a *gocronLoggerAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

func (a *gocronLoggerAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}
