package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/i474232898/temperature-logger/internal/logging"
	"github.com/i474232898/temperature-logger/internal/metrics"
	"github.com/i474232898/temperature-logger/internal/telemetry"
)

var (
	// ErrDrift is returned by Verify when the data file no longer matches memory.
	ErrDrift = errors.New("data file diverged from memory")
)

// FileStore mirrors a MemoryStore to a single pretty-printed JSON file.
// The whole document is rewritten after every mutation.
type FileStore struct {
	*MemoryStore

	path    string
	log     *logging.Logger
	metrics *metrics.Metrics
}

// NewFileStore loads path, creating it with an empty document when absent.
// A file that does not parse is a fatal error; it is never repaired.
func NewFileStore(path string, log *logging.Logger, m *metrics.Metrics) (*FileStore, error) {
	if log == nil {
		log = logging.NewNop()
	}
	st := &FileStore{path: path, log: log, metrics: m}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		if err := writeDocument(path, telemetry.NewDocument(time.Now())); err != nil {
			return nil, fmt.Errorf("initialize %s: %w", path, err)
		}
		log.Infow("created data file", "path", path)
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	st.MemoryStore = newCommittedStore(doc, st.write)

	log.Infow("loaded data file", "path", path, "readings", len(doc.Data), "lastReset", doc.LastReset)
	return st, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Verify re-reads the data file and compares it with memory without changing either.
func (s *FileStore) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	onDisk, err := ReadDocument(s.path)
	if err != nil {
		return err
	}
	if len(onDisk.Data) != len(s.doc.Data) {
		return fmt.Errorf("%w: %d readings on disk, %d in memory", ErrDrift, len(onDisk.Data), len(s.doc.Data))
	}
	if onDisk.LastReset != s.doc.LastReset {
		return fmt.Errorf("%w: lastReset %q on disk, %q in memory", ErrDrift, onDisk.LastReset, s.doc.LastReset)
	}
	return nil
}

func (s *FileStore) write(doc telemetry.Document) error {
	start := time.Now()
	err := writeDocument(s.path, doc)
	s.metrics.ObservePersist(time.Since(start), err)
	if err != nil {
		s.log.Errorw("persist failed", "path", s.path, "error", err)
		return fmt.Errorf("persist %s: %w", s.path, err)
	}
	return nil
}

// ReadDocument parses the data file at path. A null data array is treated as empty.
func ReadDocument(path string) (telemetry.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return telemetry.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	var doc telemetry.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return telemetry.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Data == nil {
		doc.Data = []telemetry.Reading{}
	}
	return doc, nil
}

// writeDocument replaces path atomically: temp file in the same directory,
// fsync, then rename.
func writeDocument(path string, doc telemetry.Document) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
