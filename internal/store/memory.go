package store

import (
	"sync"
	"time"

	"github.com/i474232898/temperature-logger/internal/telemetry"
)

// MemoryStore is a concurrency-safe in-memory implementation of telemetry.Repository.
// When commit is set, every mutation is handed to it under the write lock and
// only becomes visible once commit succeeds.
type MemoryStore struct {
	mu  sync.RWMutex
	doc telemetry.Document

	commit func(telemetry.Document) error
}

// NewMemoryStore creates an empty MemoryStore whose lastReset is at.
func NewMemoryStore(at time.Time) *MemoryStore {
	return &MemoryStore{doc: telemetry.NewDocument(at)}
}

func newCommittedStore(doc telemetry.Document, commit func(telemetry.Document) error) *MemoryStore {
	if doc.Data == nil {
		doc.Data = []telemetry.Reading{}
	}
	return &MemoryStore{doc: doc, commit: commit}
}

// Append adds a reading at the end of the log.
func (s *MemoryStore) Append(r telemetry.Reading) (telemetry.Reading, error) {
	stored := r.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.doc.Data)
	s.doc.Data = append(s.doc.Data, stored)
	if s.commit != nil {
		if err := s.commit(s.doc); err != nil {
			s.doc.Data[n] = nil
			s.doc.Data = s.doc.Data[:n]
			return nil, err
		}
	}
	return stored.Clone(), nil
}

// Reset replaces the document with an empty one stamped at, or with the
// previous lastReset if that is later.
func (s *MemoryStore) Reset(at time.Time) (telemetry.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, err := telemetry.ParseTimestamp(s.doc.LastReset); err == nil && prev.After(at) {
		at = prev
	}
	next := telemetry.NewDocument(at)
	if s.commit != nil {
		if err := s.commit(next); err != nil {
			return telemetry.Document{}, err
		}
	}
	s.doc = next
	return next.Clone(), nil
}

// Snapshot returns a deep copy of the current document.
func (s *MemoryStore) Snapshot() telemetry.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Count returns the number of stored readings.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.Data)
}

// LastReset returns the timestamp of the last reset.
func (s *MemoryStore) LastReset() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.LastReset
}
