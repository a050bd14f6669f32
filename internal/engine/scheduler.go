package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/worktime/internal/logfields"
)

// Scheduler wraps a gocron scheduler for the engine ticks.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a scheduler driven by clock.
func NewScheduler(clock clockwork.Clock) (*Scheduler, error) {
	opts := []gocron.SchedulerOption{}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins running jobs.
func (s *Scheduler) Start(_ context.Context) {
	slog.Debug("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	slog.Debug("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs fn every interval. A run still in progress when the next
// one is due causes that run to be skipped.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, fn func()) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("invalid interval for %s: %s", name, interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Scheduled job panicked", logfields.Job(name), slog.Any("panic", r))
				}
			}()
			fn()
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return job.ID().String(), nil
}
