// Package metrics defines the Prometheus collectors of the coaching service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Conversation metrics
	TurnsTotal      *prometheus.CounterVec
	TurnDuration    *prometheus.HistogramVec
	ModeAdoptions   *prometheus.CounterVec
	PlansDelivered  *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SessionsEvicted prometheus.Counter

	// Provider metrics
	GenerationRequests *prometheus.CounterVec
	GenerationLatency  prometheus.Histogram
	Transcriptions     *prometheus.CounterVec

	// System metrics
	PersistenceErrors   *prometheus.CounterVec
	SessionsCleanedUp   prometheus.Counter
	FeedbackTotal       *prometheus.CounterVec
	RateLimited         *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics once per process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			TurnsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_turns_total",
					Help: "Chat turns processed, by mode, selector state and reply source",
				},
				[]string{"mode", "state", "source"},
			),
			TurnDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "nux_turn_duration_seconds",
					Help:    "Time to process one chat turn",
					Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
				},
				[]string{"source"},
			),
			ModeAdoptions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_mode_adoptions_total",
					Help: "Mode changes, by previous and new mode",
				},
				[]string{"from", "to"},
			),
			PlansDelivered: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_plans_delivered_total",
					Help: "Plans delivered, by mode",
				},
				[]string{"mode"},
			),
			ActiveSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "nux_active_sessions",
					Help: "Sessions currently held in memory",
				},
			),
			SessionsEvicted: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "nux_sessions_evicted_total",
					Help: "Idle sessions dropped from memory",
				},
			),
			GenerationRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_generation_requests_total",
					Help: "Text generation calls, by result",
				},
				[]string{"result"},
			),
			GenerationLatency: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "nux_generation_latency_seconds",
					Help:    "Latency of text generation calls",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
				},
			),
			Transcriptions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_transcriptions_total",
					Help: "Transcription calls, by result",
				},
				[]string{"result"},
			),
			PersistenceErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_persistence_errors_total",
					Help: "Swallowed persistence failures, by operation",
				},
				[]string{"op"},
			),
			SessionsCleanedUp: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "nux_sessions_cleaned_up_total",
					Help: "Sessions removed from the store by retention cleanup",
				},
			),
			FeedbackTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_feedback_total",
					Help: "Feedback received, by rating",
				},
				[]string{"rating"},
			),
			RateLimited: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_rate_limited_total",
					Help: "Requests rejected by the per-user limiter, by route",
				},
				[]string{"route"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nux_http_requests_total",
					Help: "HTTP requests, by method, route and status",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "nux_http_request_duration_seconds",
					Help:    "HTTP request duration",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
		}
	})
	return sharedMetrics
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}
