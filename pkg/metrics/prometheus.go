package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	upstreamRequests *prometheus.CounterVec
	toolInvocations  *prometheus.CounterVec
	modelTurns       prometheus.Counter
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		upstreamRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundlens_upstream_requests_total",
				Help: "Total number of requests issued to upstream data sources",
			},
			[]string{"source", "op"},
		),
		toolInvocations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundlens_tool_invocations_total",
				Help: "Total number of tool invocations by outcome",
			},
			[]string{"tool", "outcome"},
		),
		modelTurns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fundlens_model_turns_total",
				Help: "Total number of model conversation turns",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundlens_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundlens_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordUpstreamRequest records a request to an upstream data source.
func (r *Recorder) RecordUpstreamRequest(source, op string) {
	r.upstreamRequests.WithLabelValues(source, op).Inc()
}

// RecordToolCall records a tool invocation outcome.
func (r *Recorder) RecordToolCall(tool, outcome string) {
	r.toolInvocations.WithLabelValues(tool, outcome).Inc()
}

// RecordModelTurn records one model conversation turn.
func (r *Recorder) RecordModelTurn() {
	r.modelTurns.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
