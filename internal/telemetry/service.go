package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service owns the reading log and is injected into the HTTP handlers.
type Service struct {
	repo      Repository
	publisher Publisher
	recorder  Recorder
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher forwards every accepted reading to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRecorder reports ingestion, reset and export counters to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder != nil {
		s.recorder.SetStoredReadings(repo.Count())
	}
	return s
}

// Record stamps fields with the current server time, appends the reading and
// returns the stored copy.
func (s *Service) Record(ctx context.Context, fields map[string]any) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored, err := s.repo.Append(NewReading(fields, s.now()))
	if err != nil {
		return nil, fmt.Errorf("append reading: %w", err)
	}

	if s.recorder != nil {
		s.recorder.IncReadings()
		s.recorder.SetStoredReadings(s.repo.Count())
	}
	if s.publisher != nil {
		s.publisher.Publish(stored.Clone())
	}
	return stored, nil
}

// All returns the complete document.
func (s *Service) All() Document {
	return s.repo.Snapshot()
}

// Count returns the number of stored readings.
func (s *Service) Count() int {
	return s.repo.Count()
}

// Reset discards every reading. The repository keeps lastReset from moving
// backwards, even if the wall clock does.
func (s *Service) Reset() (Document, error) {
	doc, err := s.repo.Reset(s.now())
	if err != nil {
		return Document{}, fmt.Errorf("reset readings: %w", err)
	}

	if s.recorder != nil {
		s.recorder.IncResets()
		s.recorder.SetStoredReadings(0)
	}
	return doc, nil
}

// Export renders all readings as CSV, or ErrNoData when there are none.
func (s *Service) Export() ([]byte, error) {
	csv, err := ExportCSV(s.repo.Snapshot().Data)
	if s.recorder != nil {
		switch {
		case errors.Is(err, ErrNoData):
			s.recorder.IncExport("empty")
		case err != nil:
			s.recorder.IncExport("error")
		default:
			s.recorder.IncExport("ok")
		}
	}
	return csv, err
}
