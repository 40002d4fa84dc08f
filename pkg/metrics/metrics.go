// Package metrics provides the centralized Prometheus metrics registry for
// the request layer. All metrics are defined in their owning packages (api,
// auth, netmon) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the request layer.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/api):
//   - api_requests_total{endpoint, status} (Counter): Transport calls by endpoint and HTTP status;
//     status is also "offline" (rejected before transport) or "transport_error"
//   - api_request_duration_seconds{endpoint} (Histogram): Logical request duration, retries included
//   - api_errors_total{category} (Counter): Terminal classified errors by category
//
// Retry Metrics (pkg/api):
//   - api_retries_total{category} (Counter): Retry attempts by error category
//   - api_retry_exhausted_total{category} (Counter): Requests that exhausted max retries
//
// Auth Metrics (pkg/auth):
//   - auth_refresh_total{outcome} (Counter): Token refresh executions by outcome (success, failure)
//   - auth_refresh_shared_total (Counter): Waiters that joined an already in-flight refresh
//
// Connectivity Metrics (pkg/netmon):
//   - netmon_probes_total{result} (Counter): Probes by result (online, offline, error)
//   - netmon_wait_seconds (Histogram): Time spent awaiting connectivity
//
// Example Prometheus Queries:
//
//   # Terminal Error Rate by Category
//   rate(api_errors_total[5m])
//
//   # Share of Refreshes That Were Deduplicated
//   rate(auth_refresh_shared_total[5m]) / rate(auth_refresh_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(api_request_duration_seconds_bucket[5m]))
//
//   # Offline Rejections
//   rate(api_requests_total{status="offline"}[5m])
