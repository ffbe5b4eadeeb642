package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Claim/execution metrics

	ClaimLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "queuectl",
		Name:      "claim_latency_seconds",
		Help:      "Time from a job's next_run_at becoming due to being claimed.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	ExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "queuectl",
		Name:      "job_execution_duration_seconds",
		Help:      "Duration of one job command execution, by outcome.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"outcome"})

	JobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "queuectl",
		Name:      "worker_jobs_in_flight",
		Help:      "Number of jobs currently being executed across the pool.",
	})

	JobsFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queuectl",
		Name:      "jobs_finished_total",
		Help:      "Total jobs finished, by outcome (completed, retried, dlq).",
	}, []string{"outcome"})

	// Reaper metrics

	ReaperReclaimedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queuectl",
		Name:      "reaper_reclaimed_total",
		Help:      "Total expired-lease jobs handled by the reaper, by action.",
	}, []string{"action"})

	ReaperCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "queuectl",
		Name:      "reaper_cycle_duration_seconds",
		Help:      "Time taken for one reaper cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// Worker lifecycle

	WorkerStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "queuectl",
		Name:      "worker_start_time_seconds",
		Help:      "Unix timestamp when the worker pool started.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "queuectl",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queuectl",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		ClaimLatency,
		ExecutionDuration,
		JobsInFlight,
		JobsFinishedTotal,
		ReaperReclaimedTotal,
		ReaperCycleDuration,
		WorkerStartTime,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
