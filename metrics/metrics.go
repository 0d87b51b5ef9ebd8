// Package metrics declares the Prometheus collectors shared by the catalog
// components. Collectors are registered with the default registry and exposed
// through the server's MetricsHandler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts cache lookups by tier and result
	// (hit, miss, expired).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_cache_lookups_total",
		Help: "Cache lookups by tier and result.",
	}, []string{"tier", "result"})

	// InFlightCoalesced counts callers that joined an already pending request
	// instead of issuing their own.
	InFlightCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamecatalog_inflight_coalesced_total",
		Help: "Requests served by joining an identical in-flight request.",
	})

	// UpstreamRequests counts outbound RAWG calls by route and status class.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_upstream_requests_total",
		Help: "Outbound catalog API requests by route and status.",
	}, []string{"route", "status"})

	// UpstreamDuration observes outbound call latency by route.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gamecatalog_upstream_request_duration_seconds",
		Help:    "Latency of outbound catalog API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// RetryAttempts counts re-attempts issued by the retry policy.
	RetryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamecatalog_retry_attempts_total",
		Help: "Re-attempts issued after a failed upstream call.",
	})

	// CategoryFailures counts categories that were downgraded to an empty list.
	CategoryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_category_failures_total",
		Help: "Category queries that failed and were rendered empty.",
	}, []string{"category"})

	// AggregateDuration observes full fan-out latency.
	AggregateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gamecatalog_aggregate_duration_seconds",
		Help:    "Duration of a full category aggregation.",
		Buckets: prometheus.DefBuckets,
	})

	// RPCHandled counts served gRPC calls by method and status code.
	RPCHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_rpc_handled_total",
		Help: "gRPC calls completed by method and code.",
	}, []string{"method", "code"})

	// RPCRejected counts gRPC calls refused by the server rate limiter.
	RPCRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_rpc_rate_limited_total",
		Help: "gRPC calls rejected by the rate limiter.",
	}, []string{"method"})
)

// ObserveUpstream records one outbound call.
func ObserveUpstream(route, status string, start time.Time) {
	UpstreamRequests.WithLabelValues(route, status).Inc()
	UpstreamDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}
