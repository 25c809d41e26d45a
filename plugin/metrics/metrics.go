// Package metrics provides Prometheus metrics export for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports webhook and reply metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	eventsReceived *prometheus.CounterVec
	eventsDropped  prometheus.Counter
	dedupHits      prometheus.Counter

	replies     *prometheus.CounterVec
	modelErrors *prometheus.CounterVec

	handleLatency *prometheus.HistogramVec
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewExporter creates a new Prometheus metrics exporter.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.eventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupmate",
			Subsystem: "intake",
			Name:      "events_total",
			Help:      "Total number of webhook events received",
		},
		[]string{"type"},
	)

	e.eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "groupmate",
			Subsystem: "intake",
			Name:      "events_dropped_total",
			Help:      "Events dropped because the dispatch queue was full",
		},
	)

	e.dedupHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "groupmate",
			Subsystem: "intake",
			Name:      "dedup_hits_total",
			Help:      "Events discarded as webhook redeliveries",
		},
	)

	e.replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupmate",
			Subsystem: "bot",
			Name:      "replies_total",
			Help:      "Total replies sent, by kind",
		},
		[]string{"kind"},
	)

	e.modelErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupmate",
			Subsystem: "bot",
			Name:      "model_errors_total",
			Help:      "Total model gateway errors",
		},
		[]string{"op"},
	)

	e.handleLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "groupmate",
			Subsystem: "bot",
			Name:      "handle_latency_seconds",
			Help:      "Event handling latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"type"},
	)

	registry.MustRegister(
		e.eventsReceived,
		e.eventsDropped,
		e.dedupHits,
		e.replies,
		e.modelErrors,
		e.handleLatency,
	)
	return e
}

// RecordEvent counts an inbound webhook event.
func (e *Exporter) RecordEvent(eventType string) {
	e.eventsReceived.WithLabelValues(eventType).Inc()
}

// RecordDropped counts an event dropped by the dispatch queue.
func (e *Exporter) RecordDropped() {
	e.eventsDropped.Inc()
}

// RecordDedupHit counts a discarded webhook redelivery.
func (e *Exporter) RecordDedupHit() {
	e.dedupHits.Inc()
}

// RecordReply counts an outbound reply. kind is one of mention, sticky,
// proactive, draw, command or welcome.
func (e *Exporter) RecordReply(kind string) {
	e.replies.WithLabelValues(kind).Inc()
}

// RecordModelError counts a model gateway failure.
func (e *Exporter) RecordModelError(op string) {
	e.modelErrors.WithLabelValues(op).Inc()
}

// ObserveHandleLatency records how long one event took end to end.
func (e *Exporter) ObserveHandleLatency(eventType string, d time.Duration) {
	e.handleLatency.WithLabelValues(eventType).Observe(d.Seconds())
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *Exporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
