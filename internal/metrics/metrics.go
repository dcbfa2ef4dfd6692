// Package metrics exposes Prometheus collectors for the acquisition pipeline,
// the batch controller, and the HTTP surface. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and collectors.
type Metrics struct {
	registry         *prometheus.Registry
	outcomesTotal    *prometheus.CounterVec
	acquireAttempts  *prometheus.CounterVec
	inflightTracks   prometheus.Gauge
	transcodeSeconds prometheus.Histogram
	requestsTotal    prometheus.Counter
	errorsTotal      prometheus.Counter
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	outcomesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trackpull_outcomes_total",
		Help: "Track outcomes by terminal status and error kind",
	}, []string{"status", "kind"})
	acquireAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trackpull_acquire_attempts_total",
		Help: "Acquisition attempts by strategy and result",
	}, []string{"strategy", "result"})
	inflightTracks := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trackpull_inflight_tracks",
		Help: "Tracks currently admitted by the batch controller",
	})
	transcodeSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trackpull_transcode_seconds",
		Help:    "Wall time of successful transcode runs",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
	})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackpull_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trackpull_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		outcomesTotal,
		acquireAttempts,
		inflightTracks,
		transcodeSeconds,
		requestsTotal,
		errorsTotal,
	)

	return &Metrics{
		registry:         registry,
		outcomesTotal:    outcomesTotal,
		acquireAttempts:  acquireAttempts,
		inflightTracks:   inflightTracks,
		transcodeSeconds: transcodeSeconds,
		requestsTotal:    requestsTotal,
		errorsTotal:      errorsTotal,
	}
}

// Outcome counts one finished track.
func (m *Metrics) Outcome(status, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	m.outcomesTotal.WithLabelValues(status, kind).Inc()
}

// AcquireAttempt counts one strategy attempt.
func (m *Metrics) AcquireAttempt(strategy, result string) {
	if m == nil {
		return
	}
	m.acquireAttempts.WithLabelValues(strategy, result).Inc()
}

// TrackStarted increments the in-flight gauge.
func (m *Metrics) TrackStarted() {
	if m == nil {
		return
	}
	m.inflightTracks.Inc()
}

// TrackFinished decrements the in-flight gauge.
func (m *Metrics) TrackFinished() {
	if m == nil {
		return
	}
	m.inflightTracks.Dec()
}

// TranscodeDuration observes one successful transcode.
func (m *Metrics) TranscodeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.transcodeSeconds.Observe(d.Seconds())
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
