// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "debate_coach"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Upstream metrics
	UpstreamLatency *prometheus.HistogramVec
	UpstreamErrors  *prometheus.CounterVec

	// Domain metrics
	Transcriptions   *prometheus.CounterVec
	Evaluations      *prometheus.CounterVec
	RationalityScore prometheus.Histogram
	ParseFallbacks   *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"route", "method"}),

		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Latency of calls to external AI services",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"service"}),
		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Total number of failed calls to external AI services",
		}, []string{"service", "kind"}),

		Transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Total number of transcription requests by outcome",
		}, []string{"provider", "outcome"}),
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of argument evaluations by outcome",
		}, []string{"outcome"}),
		RationalityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rationality_score",
			Help:      "Distribution of parsed rationality scores",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ParseFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_fallbacks_total",
			Help:      "Number of times a field of the model reply fell back to its placeholder",
		}, []string{"field"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events handed to the event sink",
		}, []string{"sink", "outcome"}),
	}
}

// RecordRequest records a finished HTTP request.
func (m *Metrics) RecordRequest(route, method, status string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(durationSeconds)
}

// RecordUpstream records one call to an external service.
func (m *Metrics) RecordUpstream(service string, durationSeconds float64, errKind string) {
	m.UpstreamLatency.WithLabelValues(service).Observe(durationSeconds)
	if errKind != "" {
		m.UpstreamErrors.WithLabelValues(service, errKind).Inc()
	}
}

// RecordTranscription records a transcription outcome.
func (m *Metrics) RecordTranscription(provider, outcome string) {
	m.Transcriptions.WithLabelValues(provider, outcome).Inc()
}

// RecordEvaluation records an evaluation outcome.
func (m *Metrics) RecordEvaluation(outcome string) {
	m.Evaluations.WithLabelValues(outcome).Inc()
}

// RecordScore records a parsed rationality score.
func (m *Metrics) RecordScore(score float64) {
	m.RationalityScore.Observe(score)
}

// RecordParseFallback records a placeholder substitution.
func (m *Metrics) RecordParseFallback(field string) {
	m.ParseFallbacks.WithLabelValues(field).Inc()
}

// RecordEvent records an event publish attempt.
func (m *Metrics) RecordEvent(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(sink, outcome).Inc()
}
