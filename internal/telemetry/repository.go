package telemetry

import (
	"errors"
	"time"
)

var (
	// ErrNoData is returned when an export is requested while no readings are stored.
	ErrNoData = errors.New("no data to export")
)

// Repository is the contract the file-backed store (and the in-memory store) must satisfy.
// Mutations must update memory and durable state as one unit, and Reset must
// never move lastReset backwards.
type Repository interface {
	Append(r Reading) (Reading, error)
	Reset(at time.Time) (Document, error)
	Snapshot() Document
	Count() int
	LastReset() string
}

// Publisher receives every reading accepted by the service.
// Implementations must not block the request path.
type Publisher interface {
	Publish(r Reading)
}

// Recorder collects service level counters.
type Recorder interface {
	IncReadings()
	IncResets()
	IncExport(result string)
	SetStoredReadings(n int)
}
