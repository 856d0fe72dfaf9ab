package scheduler

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/temperature-logger/internal/logging"
	"github.com/i474232898/temperature-logger/internal/metrics"
)

// Verifier compares durable state with memory.
type Verifier interface {
	Verify() error
}

// Scheduler periodically verifies that the data file still matches the in-memory log.
type Scheduler struct {
	scheduler *gocron.Scheduler
	verifier  Verifier
	interval  time.Duration
	log       *logging.Logger
	metrics   *metrics.Metrics

	mu      sync.RWMutex
	lastErr error
	lastRun time.Time
}

// New creates a new Scheduler.
func New(verifier Verifier, interval time.Duration, log *logging.Logger, m *metrics.Metrics) *Scheduler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		verifier:  verifier,
		interval:  interval,
		log:       log,
		metrics:   m,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.verifier == nil || s.interval <= 0 {
		s.log.Infow("scheduler: integrity check disabled")
		return nil
	}

	if _, err := s.scheduler.Every(s.interval).Do(func() {
		_ = s.RunCheck()
	}); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Infow("scheduler: integrity check scheduled", "interval", s.interval.String())
	return nil
}

// RunCheck performs one verification and records its outcome.
func (s *Scheduler) RunCheck() error {
	if s.verifier == nil {
		return nil
	}

	err := s.verifier.Verify()

	s.mu.Lock()
	s.lastErr = err
	s.lastRun = time.Now().UTC()
	s.mu.Unlock()

	if err != nil {
		s.metrics.IncIntegrityFailure()
		s.log.Errorw("scheduler: integrity check failed", "error", err)
		return err
	}
	s.log.Debugw("scheduler: integrity check passed")
	return nil
}

// Healthy returns the error of the most recent check, or nil.
func (s *Scheduler) Healthy() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// LastRun returns when the most recent check completed.
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
