package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	scoringRunsTotal     *prometheus.CounterVec
	scoringLatency       *prometheus.HistogramVec
	scoringFinalScore    *prometheus.HistogramVec
	scoringBatchDuration prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors for the HTTP surface
// and the scoring pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gema_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gema_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gema_http_errors_total",
			Help: "Total number of error responses.",
		}, []string{"method", "route", "status"})

		scoringRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gema_scoring_runs_total",
			Help: "Scoring runs by target type and outcome.",
		}, []string{"target", "outcome"})

		scoringLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gema_scoring_duration_seconds",
			Help:    "End-to-end duration of a single scoring run.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"target"})

		scoringFinalScore = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gema_scoring_final_percent",
			Help:    "Final score as a percentage of the template total.",
			Buckets: []float64{0, 60, 70, 80, 90, 100},
		}, []string{"file_type"})

		scoringBatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gema_scoring_batch_duration_seconds",
			Help:    "Duration of batch scoring requests.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			scoringRunsTotal,
			scoringLatency,
			scoringFinalScore,
			scoringBatchDuration,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ScoringRuns counts scoring runs by target and outcome (scored, vetoed, failed).
func ScoringRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return scoringRunsTotal
}

// ScoringLatency exposes the per-run duration histogram.
func ScoringLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return scoringLatency
}

// ScoringFinalPercent exposes the distribution of final percentages.
func ScoringFinalPercent() *prometheus.HistogramVec {
	RegisterMetrics()
	return scoringFinalScore
}

// ScoringBatchDuration exposes the batch duration histogram.
func ScoringBatchDuration() prometheus.Histogram {
	RegisterMetrics()
	return scoringBatchDuration
}
