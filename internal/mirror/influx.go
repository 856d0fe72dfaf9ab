package mirror

import (
	"context"
	"encoding/json"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/i474232898/temperature-logger/internal/telemetry"
)

// Measurement is the InfluxDB measurement readings are written to.
const Measurement = "temperature_reading"

// InfluxSink writes each reading as one point with a field per scalar value.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink creates a sink writing to org/bucket on the server at url.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}
}

// Name identifies the sink in logs and metrics.
func (s *InfluxSink) Name() string {
	return "influxdb"
}

// Write stores r as one point. Readings without scalar values are skipped.
func (s *InfluxSink) Write(ctx context.Context, r telemetry.Reading) error {
	p, ok := ReadingPoint(r)
	if !ok {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client and its connections.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

// ReadingPoint converts a reading to an InfluxDB point. Numbers, strings and
// booleans become fields; nested values are skipped. The point is stamped with
// the reading's timestamp, or the current time when it cannot be parsed.
// ok is false when the reading carries no usable field.
func ReadingPoint(r telemetry.Reading) (*write.Point, bool) {
	fields := make(map[string]interface{}, len(r))
	for k, v := range r {
		if k == telemetry.TimestampField {
			continue
		}
		switch t := v.(type) {
		case float64, string, bool:
			fields[k] = t
		case json.Number:
			if f, err := t.Float64(); err == nil {
				fields[k] = f
			}
		}
	}
	if len(fields) == 0 {
		return nil, false
	}

	ts, err := telemetry.ParseTimestamp(r.Timestamp())
	if err != nil {
		ts = time.Now().UTC()
	}

	tags := map[string]string{"source": "temperature-logger"}
	return influxdb2.NewPoint(Measurement, tags, fields, ts), true
}
