package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/temperature-logger/internal/logging"
	"github.com/i474232898/temperature-logger/internal/telemetry"
)

func TestNewFileStoreCreatesMissingFile(t *testing.T) {
	st, path := newTestFileStore(t)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"data": []`)) {
		t.Fatalf("expected empty data array on disk, got %s", raw)
	}
	if st.Count() != 0 {
		t.Fatalf("expected 0 readings, got %d", st.Count())
	}
	if st.LastReset() == "" {
		t.Fatalf("expected lastReset to be set")
	}
}

// TestFileStoreRoundTrip writes readings, reopens the file and expects the same document.
func TestFileStoreRoundTrip(t *testing.T) {
	st, path := newTestFileStore(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := telemetry.NewReading(map[string]any{"tempC1": 20.0 + float64(i), "location": "kitchen"}, at.Add(time.Duration(i)*time.Second))
		if _, err := st.Append(r); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	before := st.Snapshot()

	reopened, err := NewFileStore(path, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	after := reopened.Snapshot()

	if after.LastReset != before.LastReset {
		t.Fatalf("lastReset changed: %q != %q", after.LastReset, before.LastReset)
	}
	if len(after.Data) != len(before.Data) {
		t.Fatalf("expected %d readings, got %d", len(before.Data), len(after.Data))
	}
	for i := range before.Data {
		if after.Data[i]["tempC1"] != before.Data[i]["tempC1"] ||
			after.Data[i].Timestamp() != before.Data[i].Timestamp() ||
			after.Data[i]["location"] != "kitchen" {
			t.Fatalf("reading %d differs: %v vs %v", i, after.Data[i], before.Data[i])
		}
	}
}

func TestFileStoreWritesPrettyJSON(t *testing.T) {
	st, path := newTestFileStore(t)
	if _, err := st.Append(telemetry.NewReading(map[string]any{"tempF1": 70.7}, time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(raw), "\n  \"data\": [\n") {
		t.Fatalf("expected two-space indented output, got %s", raw)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestFileStoreResetPersists(t *testing.T) {
	st, path := newTestFileStore(t)
	if _, err := st.Append(telemetry.NewReading(map[string]any{"tempC2": 18.0}, time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}

	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	doc, err := st.Reset(at)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(doc.Data) != 0 || doc.LastReset != "2030-01-01T00:00:00.000Z" {
		t.Fatalf("unexpected document after reset: %+v", doc)
	}

	onDisk, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if len(onDisk.Data) != 0 || onDisk.LastReset != doc.LastReset {
		t.Fatalf("reset not persisted: %+v", onDisk)
	}
}

// TestNewFileStoreRejectsCorruptFile mirrors the fatal boot path for hand-edited files.
func TestNewFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temperature_data.json")
	if err := os.WriteFile(path, []byte(`{"data": [`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewFileStore(path, logging.NewNop(), nil); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Fatalf("expected parse error, got %v", err)
	}

	raw, _ := os.ReadFile(path)
	if string(raw) != `{"data": [` {
		t.Fatalf("corrupt file must not be rewritten, got %s", raw)
	}
}

func TestNewFileStoreAcceptsNullData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temperature_data.json")
	if err := os.WriteFile(path, []byte(`{"data": null, "lastReset": "2024-01-01T00:00:00.000Z"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	st, err := NewFileStore(path, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if doc := st.Snapshot(); doc.Data == nil || len(doc.Data) != 0 {
		t.Fatalf("expected empty non-nil data, got %#v", doc.Data)
	}
}

func TestVerifyDetectsDrift(t *testing.T) {
	st, path := newTestFileStore(t)
	if err := st.Verify(); err != nil {
		t.Fatalf("baseline verify: %v", err)
	}

	if _, err := st.Append(telemetry.NewReading(map[string]any{"tempDS2": 22.0}, time.Now())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"data": [], "lastReset": "2024-01-01T00:00:00.000Z"}`), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	if err := st.Verify(); !errors.Is(err, ErrDrift) {
		t.Fatalf("expected ErrDrift, got %v", err)
	}
	if st.Count() != 1 {
		t.Fatalf("verify must not change memory, got %d readings", st.Count())
	}
}

func TestMemoryStoreRollsBackFailedCommit(t *testing.T) {
	boom := errors.New("no space left on device")
	fail := false
	st := newCommittedStore(telemetry.NewDocument(time.Now()), func(telemetry.Document) error {
		if fail {
			return boom
		}
		return nil
	})

	if _, err := st.Append(telemetry.Reading{"tempC1": 1.0}); err != nil {
		t.Fatalf("append: %v", err)
	}
	fail = true
	if _, err := st.Append(telemetry.Reading{"tempC1": 2.0}); !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if st.Count() != 1 {
		t.Fatalf("failed append must not be visible, got %d readings", st.Count())
	}

	prev := st.LastReset()
	if _, err := st.Reset(time.Now().Add(time.Hour)); !errors.Is(err, boom) {
		t.Fatalf("expected commit error on reset, got %v", err)
	}
	if st.Count() != 1 || st.LastReset() != prev {
		t.Fatalf("failed reset must leave the document untouched")
	}
}

func TestMemoryStoreSnapshotIsCopy(t *testing.T) {
	st := NewMemoryStore(time.Now())
	if _, err := st.Append(telemetry.Reading{"tempC1": 1.0}); err != nil {
		t.Fatalf("append: %v", err)
	}

	snap := st.Snapshot()
	snap.Data[0]["tempC1"] = 99.0

	if got := st.Snapshot().Data[0]["tempC1"]; got != 1.0 {
		t.Fatalf("snapshot mutation leaked into store: %v", got)
	}
}

// TestResetKeepsLatestLastReset commits resets in the reverse order of their
// clock reads; the earlier stamp must not overwrite the later one.
func TestResetKeepsLatestLastReset(t *testing.T) {
	st, path := newTestFileStore(t)
	base := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

	if _, err := st.Reset(base.Add(2 * time.Second)); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	doc, err := st.Reset(base.Add(time.Second))
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}

	want := "2030-05-01T12:00:02.000Z"
	if doc.LastReset != want || st.LastReset() != want {
		t.Fatalf("lastReset moved backwards: returned %s, stored %s", doc.LastReset, st.LastReset())
	}
	onDisk, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if onDisk.LastReset != want {
		t.Fatalf("expected %s on disk, got %s", want, onDisk.LastReset)
	}
}

func TestConcurrentResetsAreMonotonic(t *testing.T) {
	st := NewMemoryStore(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	base := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

	const n = 32
	var wg sync.WaitGroup
	for i := n; i > 0; i-- {
		wg.Add(1)
		go func(at time.Time) {
			defer wg.Done()
			if _, err := st.Reset(at); err != nil {
				t.Errorf("reset: %v", err)
			}
		}(base.Add(time.Duration(i) * time.Second))
	}
	wg.Wait()

	if want := telemetry.FormatTimestamp(base.Add(n * time.Second)); st.LastReset() != want {
		t.Fatalf("expected lastReset %s, got %s", want, st.LastReset())
	}
}

// TestConcurrentAppendsMatchFile appends from many goroutines and expects the
// data file and memory to hold the same readings afterwards.
func TestConcurrentAppendsMatchFile(t *testing.T) {
	st, path := newTestFileStore(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := telemetry.NewReading(map[string]any{"tempDS1": float64(i)}, time.Now())
			if _, err := st.Append(r); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if st.Count() != n {
		t.Fatalf("expected %d readings in memory, got %d", n, st.Count())
	}
	if err := st.Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}

	onDisk, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if len(onDisk.Data) != n {
		t.Fatalf("expected %d readings on disk, got %d", n, len(onDisk.Data))
	}
	seen := make(map[float64]bool, n)
	for i, r := range st.Snapshot().Data {
		v, _ := r["tempDS1"].(float64)
		if onDisk.Data[i]["tempDS1"] != v {
			t.Fatalf("reading %d differs between memory and disk", i)
		}
		seen[v] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct readings, got %d", n, len(seen))
	}
}

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "temperature_data.json")
	st, err := NewFileStore(path, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return st, path
}
