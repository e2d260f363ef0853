package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-tracker/internal/observability"
)

// SessionPruner is the part of the session store the scheduler drives.
type SessionPruner interface {
	Prune(now time.Time) int
	Len() int
}

// Scheduler periodically prunes idle tracker sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     SessionPruner
	metrics   *observability.Metrics
	logger    *slog.Logger
	interval  time.Duration
}

// New creates a new Scheduler.
func New(store SessionPruner, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
	}
}

// Start schedules the pruning job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce prunes idle sessions and refreshes the session gauge.
func (s *Scheduler) RunOnce() {
	removed := s.store.Prune(time.Now())
	remaining := s.store.Len()

	s.metrics.SessionsPruned.Add(float64(removed))
	s.metrics.Sessions.Set(float64(remaining))
	if removed > 0 {
		s.logger.Info("pruned idle sessions", "removed", removed, "remaining", remaining)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
