package telemetry

import (
	"time"
)

// TimestampField is the key under which the server-assigned ingestion time is stored.
const TimestampField = "timestamp"

// TimestampLayout renders UTC instants with millisecond precision and a Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Channels lists the recognized sensor keys in export column order.
var Channels = []string{
	"tempC1", "tempF1",
	"tempC2", "tempF2",
	"tempDS1", "tempDS2", "tempDS3", "tempDS4", "tempDS5", "tempDS6",
}

// FormatTimestamp converts t to the persisted timestamp representation.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts the persisted layout as well as any RFC3339 value.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// Reading is one submitted set of sensor values plus the server timestamp.
// Values are kept exactly as decoded from JSON; unrecognized keys are retained.
type Reading map[string]any

// NewReading copies fields into a fresh Reading stamped with at.
// A client-supplied timestamp field is overwritten.
func NewReading(fields map[string]any, at time.Time) Reading {
	r := make(Reading, len(fields)+1)
	for k, v := range fields {
		r[k] = cloneValue(v)
	}
	r[TimestampField] = FormatTimestamp(at)
	return r
}

// Timestamp returns the stored timestamp string, or "" when missing.
func (r Reading) Timestamp() string {
	ts, _ := r[TimestampField].(string)
	return ts
}

// Clone returns a deep copy of the reading.
func (r Reading) Clone() Reading {
	if r == nil {
		return nil
	}
	c := make(Reading, len(r))
	for k, v := range r {
		c[k] = cloneValue(v)
	}
	return c
}

// Document is the complete persisted state: all readings plus the last reset time.
type Document struct {
	Data      []Reading `json:"data"`
	LastReset string    `json:"lastReset"`
}

// NewDocument returns an empty document whose lastReset is at.
func NewDocument(at time.Time) Document {
	return Document{
		Data:      []Reading{},
		LastReset: FormatTimestamp(at),
	}
}

// Clone returns a deep copy; Data is never nil in the result.
func (d Document) Clone() Document {
	out := Document{
		Data:      make([]Reading, len(d.Data)),
		LastReset: d.LastReset,
	}
	for i, r := range d.Data {
		out.Data[i] = r.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}
