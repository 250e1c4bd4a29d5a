// Package metrics defines the Prometheus collectors of the task client. It
// is the single source of truth for metric names, labels and help strings.
//
// Collectors register with the default registry on package init through
// promauto; the CLI exposes nothing, so they matter mostly to long-running
// embedders of the client packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskclient"

// ── Remote calls ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts requests sent to the task service.
// Labels:
//   - operation: logical operation name (e.g. "login", "list_tasks")
//   - outcome: "ok", or the failure kind ("validation", "unauthenticated",
//     "not_found", "conflict", "request", "server", "network")
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of requests sent to the task service, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// HTTPRequestDuration measures round-trip time per operation, failures included.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Round-trip duration of requests sent to the task service.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// ── Credential store ──────────────────────────────────────────────────────────

// StoreErrorsTotal counts credential store failures. A missing key is not a failure.
// Label:
//   - operation: "save_token", "get_token", "remove_token", "save_user",
//     "get_user", "remove_user" or "clear_all"
var StoreErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_errors_total",
		Help:      "Total number of credential store operations that failed.",
	},
	[]string{"operation"},
)

// ── Session ───────────────────────────────────────────────────────────────────

// SessionTransitionsTotal counts session state changes.
// Label:
//   - state: the state entered ("checking", "authenticated", "anonymous")
var SessionTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Total number of session state transitions, by target state.",
	},
	[]string{"state"},
)
