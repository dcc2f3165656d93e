// CineBrain - Content Loading and Recommendation Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinebrain

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend Fetch Metrics
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_fetch_requests_total",
			Help: "Total number of backend API requests by endpoint, method and outcome",
		},
		[]string{"endpoint", "method", "outcome"}, // outcome: ok, timeout, auth_expired, not_found, rate_limited, unavailable, api_error, network, canceled
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinebrain_fetch_duration_seconds",
			Help:    "Duration of backend API requests in seconds",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"endpoint", "method"},
	)

	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_fetch_retries_total",
			Help: "Total number of retried backend requests after rate limiting",
		},
		[]string{"endpoint"},
	)

	MalformedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_malformed_responses_total",
			Help: "Responses whose shape was not recognized and degraded to an empty list",
		},
		[]string{"endpoint"},
	)

	ResponseShapes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_response_shapes_total",
			Help: "Recognized response shapes by endpoint",
		},
		[]string{"endpoint", "shape"},
	)

	// Response Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"tier"}, // "local", "redis"
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebrain_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	CacheStaleServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebrain_cache_stale_served_total",
			Help: "Total number of stale entries served while revalidating",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinebrain_cache_entries",
			Help: "Current number of entries in the local response cache",
		},
	)

	CacheClears = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_cache_clears_total",
			Help: "Total number of cache clear operations",
		},
		[]string{"scope"}, // "all", "matching"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinebrain_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_circuit_breaker_requests_total",
			Help: "Total requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinebrain_circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Loader Metrics
	RowLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_row_loads_total",
			Help: "Total number of row load attempts by tier and result",
		},
		[]string{"tier", "result"}, // tier: high, low, retry, resume; result: loaded, error, cached, superseded
	)

	RowLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinebrain_row_load_duration_seconds",
			Help:    "Time from row start to settle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tier"},
	)

	PageSettleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinebrain_page_settle_duration_seconds",
			Help:    "Time from Load to every row settled in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	DedupeDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_dedupe_dropped_total",
			Help: "Items dropped by the deduplicator",
		},
		[]string{"reason"}, // duplicate, missing_id
	)

	// Collection Metrics
	OptimisticRollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_optimistic_rollbacks_total",
			Help: "Optimistic updates reverted after a failed request",
		},
		[]string{"action"},
	)

	CollectionMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_collection_mutations_total",
			Help: "Collection mutations by kind, operation and result",
		},
		[]string{"kind", "op", "result"},
	)

	MissingTreatedAsRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_collection_missing_removed_total",
			Help: "Removals answered with 404 that were treated as success",
		},
		[]string{"kind"},
	)

	// Notification and WebSocket Metrics
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_notifications_published_total",
			Help: "Notifications published by level",
		},
		[]string{"level"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinebrain_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebrain_websocket_messages_sent_total",
			Help: "Total WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_websocket_errors_total",
			Help: "Total WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Preview API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_http_requests_total",
			Help: "Total HTTP requests served by the preview API",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinebrain_http_request_duration_seconds",
			Help:    "Preview API request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)

	// Search Metrics
	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebrain_search_queries_total",
			Help: "Search queries by result",
		},
		[]string{"result"}, // ok, too_short, superseded, error
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinebrain_app_info",
			Help: "Application build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordFetch records one backend request.
func RecordFetch(endpoint, method, outcome string, duration time.Duration) {
	FetchRequestsTotal.WithLabelValues(endpoint, method, outcome).Inc()
	FetchDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// RecordRowLoad records a settled row.
func RecordRowLoad(tier, result string, duration time.Duration) {
	RowLoads.WithLabelValues(tier, result).Inc()
	if duration > 0 {
		RowLoadDuration.WithLabelValues(tier).Observe(duration.Seconds())
	}
}

// RecordDedupe records the drops of one dedup pass.
func RecordDedupe(duplicates, missingID int) {
	if duplicates > 0 {
		DedupeDropped.WithLabelValues("duplicate").Add(float64(duplicates))
	}
	if missingID > 0 {
		DedupeDropped.WithLabelValues("missing_id").Add(float64(missingID))
	}
}

// RecordAPIRequest records a preview API request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCollectionMutation records an add/remove against a collection.
func RecordCollectionMutation(kind, op string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	CollectionMutations.WithLabelValues(kind, op, result).Inc()
}
