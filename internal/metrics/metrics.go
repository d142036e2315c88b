// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlJobsTotal             *prometheus.CounterVec
	fetchAttemptsTotal         *prometheus.CounterVec
	eventsReviewedTotal        *prometheus.CounterVec
	eventConfidence            prometheus.Histogram
	rateLimitDelaySeconds      prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_jobs_total",
				Help: "Total number of crawl jobs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_attempts_total",
				Help: "Total number of fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		eventsReviewedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_reviewed_total",
				Help: "Total number of review dispositions, labeled by status.",
			},
			[]string{"status"},
		)

		eventConfidence = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "event_overall_confidence",
				Help:    "Histogram of overall confidence scores for extracted events.",
				Buckets: []float64{10, 25, 40, 55, 70, 80, 90, 95, 100},
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fetch_rate_limit_delay_seconds",
				Help:    "Histogram of delays introduced by per-domain rate limiting.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given terminal status.
func ObserveJob(status string) {
	Init()
	crawlJobsTotal.WithLabelValues(status).Inc()
}

// ObserveFetchAttempt increments the fetch attempt counter.
// Outcome is one of success, transient, bot_detected.
func ObserveFetchAttempt(outcome string) {
	Init()
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveReview increments the review disposition counter.
func ObserveReview(status string) {
	Init()
	eventsReviewedTotal.WithLabelValues(status).Inc()
}

// ObserveConfidence records the overall confidence of a new event.
func ObserveConfidence(score float64) {
	Init()
	eventConfidence.Observe(score)
}

// ObserveRateLimitDelay records time spent waiting on a domain token bucket.
func ObserveRateLimitDelay(delay time.Duration) {
	Init()
	rateLimitDelaySeconds.Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
