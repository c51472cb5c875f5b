package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkhub_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// ClaimDecisions counts content claim authorisation outcomes by action and path
	// (override|claimed|unclaimed|denied).
	ClaimDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkhub_claim_decisions_total",
			Help: "Total number of content claim authorisation decisions",
		},
		[]string{"action", "path"},
	)

	// StoreConflicts counts uniqueness violations mapped to domain outcomes.
	StoreConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkhub_store_conflicts_total",
			Help: "Uniqueness violations reported by the store",
		},
		[]string{"entity"},
	)

	// RequestsRefused counts API requests answered 401 or 403, by resource.
	RequestsRefused = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkhub_api_requests_refused_total",
			Help: "API requests refused for missing credentials or permissions",
		},
		[]string{"resource", "status"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inkhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
