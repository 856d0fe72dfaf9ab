package mirror

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/temperature-logger/internal/logging"
	"github.com/i474232898/temperature-logger/internal/metrics"
	"github.com/i474232898/temperature-logger/internal/telemetry"
)

// Sink abstracts a downstream copy of the reading log (e.g. InfluxDB, Kafka).
type Sink interface {
	Name() string
	Write(ctx context.Context, r telemetry.Reading) error
	Close() error
}

// Options configures a Dispatcher. Zero values fall back to defaults.
type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
	Backoff      BackoffConfig
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
}

type guardedSink struct {
	sink    Sink
	circuit *gobreaker.CircuitBreaker
}

// Dispatcher fans accepted readings out to every sink from a single worker.
// Publish never blocks: when the queue is full the reading is dropped from the
// mirror only; the store already holds it.
type Dispatcher struct {
	sinks   []guardedSink
	queue   chan telemetry.Reading
	opts    Options
	log     *logging.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher for sinks. Call Start to begin delivery.
func NewDispatcher(sinks []Sink, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.Backoff == (BackoffConfig{}) {
		opts.Backoff = DefaultBackoff
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	guarded := make([]guardedSink, 0, len(sinks))
	for _, s := range sinks {
		guarded = append(guarded, guardedSink{sink: s, circuit: newBreaker(s.Name())})
	}

	return &Dispatcher{
		sinks:   guarded,
		queue:   make(chan telemetry.Reading, opts.QueueSize),
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Metrics,
		done:    make(chan struct{}),
	}
}

// Sinks returns the names of the configured sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.sink.Name())
	}
	return names
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	if len(d.sinks) == 0 {
		d.log.Infow("mirror: no sinks configured")
	}
	go d.run()
}

// Publish enqueues r for delivery to every sink.
func (d *Dispatcher) Publish(r telemetry.Reading) {
	if len(d.sinks) == 0 {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- r:
	default:
		d.metrics.IncMirrorDropped()
		d.log.Warnw("mirror: queue full, dropping reading", "timestamp", r.Timestamp())
	}
}

// Close stops accepting readings, drains the queue until ctx expires and
// closes every sink.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	var drainErr error
	if started {
		select {
		case <-d.done:
		case <-ctx.Done():
			drainErr = ctx.Err()
		}
	}

	var errs []error
	if drainErr != nil {
		errs = append(errs, drainErr)
	}
	for _, s := range d.sinks {
		if err := s.sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for r := range d.queue {
		for _, s := range d.sinks {
			d.deliver(s, r)
		}
	}
}

func (d *Dispatcher) deliver(s guardedSink, r telemetry.Reading) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.WriteTimeout)
	defer cancel()

	name := s.sink.Name()
	err := executeWithResilience(ctx, d.opts.Backoff, s.circuit, func(ctx context.Context) error {
		return s.sink.Write(ctx, r)
	})
	switch {
	case err == nil:
		d.metrics.MirrorResult(name, "ok")
	case errors.Is(err, errCircuitOpen):
		d.metrics.MirrorResult(name, "circuit_open")
		d.log.Warnw("mirror: circuit open, skipping sink", "sink", name, "timestamp", r.Timestamp())
	default:
		d.metrics.MirrorResult(name, "error")
		d.log.Errorw("mirror: write failed", "sink", name, "timestamp", r.Timestamp(), "error", err)
	}
}
