package mirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/i474232898/temperature-logger/internal/telemetry"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each reading as a JSON message keyed by its timestamp.
type KafkaSink struct {
	writer messageWriter
}

// NewKafkaSink creates a sink producing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Name identifies the sink in logs and metrics.
func (s *KafkaSink) Name() string {
	return "kafka"
}

// Write produces r as a single message.
func (s *KafkaSink) Write(ctx context.Context, r telemetry.Reading) error {
	msg, err := readingMessage(r)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func readingMessage(r telemetry.Reading) (kafka.Message, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, err
	}
	ts, err := telemetry.ParseTimestamp(r.Timestamp())
	if err != nil {
		ts = time.Now().UTC()
	}
	return kafka.Message{Key: []byte(r.Timestamp()), Value: b, Time: ts}, nil
}
