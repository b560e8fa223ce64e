// Package metrics Prometheus 指标，由 /metrics 暴露
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 上游 GitHub 调用，outcome: ok / status / transport
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statcard_upstream_requests_total",
			Help: "GitHub API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	UpstreamBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statcard_upstream_breaker_open",
			Help: "1 when the GitHub circuit breaker is open",
		},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "statcard_aggregation_duration_seconds",
			Help:    "Time spent aggregating one account summary",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	// tier: edge / value，result: hit / miss / error
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statcard_cache_lookups_total",
			Help: "Cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	// kind: summary / error
	CardsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statcard_cards_rendered_total",
			Help: "Rendered cards by kind",
		},
		[]string{"kind"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statcard_api_requests_total",
			Help: "Inbound HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statcard_api_request_duration_seconds",
			Help:    "Inbound HTTP request duration",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)
)

// ObserveAggregation 记录一次聚合耗时
func ObserveAggregation(start time.Time) {
	AggregationDuration.Observe(time.Since(start).Seconds())
}
