// Package metrics exposes the Prometheus collectors of the temperature logger.
// All methods are safe to call on a nil *Metrics so components can run uninstrumented.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "temperature_logger"

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	readingsIngested prometheus.Counter
	resets           prometheus.Counter
	exports          *prometheus.CounterVec
	storedReadings   prometheus.Gauge

	persistDuration prometheus.Histogram
	persistFailures prometheus.Counter

	mirrorResults *prometheus.CounterVec
	mirrorDropped prometheus.Counter

	integrityFailures prometheus.Counter
}

// New builds the registry with Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		readingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Readings accepted and persisted",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Completed resets of the reading log",
		}),
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "CSV export requests by result",
			},
			[]string{"result"},
		),
		storedReadings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_readings",
			Help:      "Readings currently held in the store",
		}),
		persistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "persist_duration_seconds",
			Help:      "Time spent rewriting the data file",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed data file writes",
		}),
		mirrorResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mirror_writes_total",
				Help:      "Mirror sink deliveries by sink and result",
			},
			[]string{"sink", "result"},
		),
		mirrorDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_dropped_total",
			Help:      "Readings dropped because the mirror queue was full",
		}),
		integrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_check_failures_total",
			Help:      "Integrity checks that found the data file diverged or unreadable",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.readingsIngested,
		m.resets,
		m.exports,
		m.storedReadings,
		m.persistDuration,
		m.persistFailures,
		m.mirrorResults,
		m.mirrorDropped,
		m.integrityFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest counts an HTTP request and records its latency by route template.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncReadings counts one accepted reading.
func (m *Metrics) IncReadings() {
	if m == nil {
		return
	}
	m.readingsIngested.Inc()
}

// IncResets counts one completed reset.
func (m *Metrics) IncResets() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

// IncExport counts an export request by result ("ok", "empty" or "error").
func (m *Metrics) IncExport(result string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(result).Inc()
}

// SetStoredReadings sets the number of readings currently held.
func (m *Metrics) SetStoredReadings(n int) {
	if m == nil {
		return
	}
	m.storedReadings.Set(float64(n))
}

// ObservePersist records a data file write and counts it as failed when err is set.
func (m *Metrics) ObservePersist(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.persistDuration.Observe(d.Seconds())
	if err != nil {
		m.persistFailures.Inc()
	}
}

// MirrorResult counts a mirror delivery attempt for sink by result.
func (m *Metrics) MirrorResult(sink, result string) {
	if m == nil {
		return
	}
	m.mirrorResults.WithLabelValues(sink, result).Inc()
}

// IncMirrorDropped counts a reading dropped because the mirror queue was full.
func (m *Metrics) IncMirrorDropped() {
	if m == nil {
		return
	}
	m.mirrorDropped.Inc()
}

// IncIntegrityFailure counts a failed data file integrity check.
func (m *Metrics) IncIntegrityFailure() {
	if m == nil {
		return
	}
	m.integrityFailures.Inc()
}
