package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlquery",
			Name:      "generation_requests_total",
			Help:      "Total number of query generation requests",
		},
		[]string{"mode", "status"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlquery",
			Name:      "llm_requests_total",
			Help:      "Total number of text-generation service calls",
		},
		[]string{"provider", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nlquery",
			Name:      "llm_request_duration_seconds",
			Help:      "Text-generation service call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider", "model"},
	)

	SanitizerRemovedClausesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nlquery",
			Name:      "sanitizer_removed_clauses_total",
			Help:      "Total malformed operator clauses dropped by the sanitizer",
		},
	)

	RunRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlquery",
			Name:      "run_requests_total",
			Help:      "Total number of query run requests",
		},
		[]string{"mode", "status"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(SanitizerRemovedClausesTotal)
	prometheus.MustRegister(RunRequestsTotal)
	pipelineMetricsRegistered = true
}
