package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nahida_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nahida_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nahida_pipeline_requests_total",
			Help: "Total number of reply pipelines run, by outcome.",
		},
		[]string{"outcome"},
	)

	JobResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nahida_job_results_total",
			Help: "Generation job results by job and whether an artifact was produced.",
		},
		[]string{"job", "result"},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nahida_gateway_request_duration_seconds",
			Help:    "Generation provider call duration in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"capability", "status"},
	)

	RunsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nahida_runs_recorded_total",
			Help: "Run summaries handed to the journal, by sink and result.",
		},
		[]string{"sink", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PipelineRequestsTotal,
		JobResultsTotal,
		GatewayRequestDuration,
		RunsRecordedTotal,
	)
}
