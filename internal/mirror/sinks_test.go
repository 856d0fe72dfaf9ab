package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/i474232898/temperature-logger/internal/telemetry"
)

func TestReadingPoint(t *testing.T) {
	r := telemetry.Reading{
		"timestamp": "2024-05-01T10:00:00.000Z",
		"tempC1":    21.5,
		"location":  "kitchen",
		"ok":        true,
		"tempDS1":   json.Number("19.25"),
		"meta":      map[string]any{"a": 1.0},
		"missing":   nil,
	}

	p, ok := ReadingPoint(r)
	if !ok {
		t.Fatalf("expected a point")
	}
	if p.Name() != Measurement {
		t.Fatalf("unexpected measurement %q", p.Name())
	}
	if want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC); !p.Time().Equal(want) {
		t.Fatalf("expected time %v, got %v", want, p.Time())
	}

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if len(fields) != 4 {
		t.Fatalf("expected 4 scalar fields, got %v", fields)
	}
	if fields["tempC1"] != 21.5 || fields["tempDS1"] != 19.25 || fields["location"] != "kitchen" || fields["ok"] != true {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, ok := fields["timestamp"]; ok {
		t.Fatalf("timestamp must not be written as a field")
	}
}

func TestReadingPointWithoutFields(t *testing.T) {
	if _, ok := ReadingPoint(telemetry.Reading{"timestamp": "2024-05-01T10:00:00.000Z"}); ok {
		t.Fatalf("expected no point for a reading without values")
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSinkWrite(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}

	r := telemetry.Reading{"timestamp": "2024-05-01T10:00:00.000Z", "tempC2": 18.0}
	if err := sink.Write(context.Background(), r); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "2024-05-01T10:00:00.000Z" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded["tempC2"] != 18.0 {
		t.Fatalf("unexpected payload %s", msg.Value)
	}
	if !msg.Time.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected message time %v", msg.Time)
	}

	if err := sink.Close(); err != nil || !w.closed {
		t.Fatalf("expected writer to be closed, err=%v", err)
	}
}

func TestKafkaSinkPropagatesError(t *testing.T) {
	boom := errors.New("leader not available")
	sink := &KafkaSink{writer: &fakeWriter{err: boom}}

	if err := sink.Write(context.Background(), telemetry.Reading{"tempC1": 1.0}); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
}
