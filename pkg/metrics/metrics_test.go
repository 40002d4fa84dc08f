package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/lumenapp/lumen-api-client/pkg/api"
	_ "github.com/lumenapp/lumen-api-client/pkg/auth"
	"github.com/lumenapp/lumen-api-client/pkg/metrics"
	_ "github.com/lumenapp/lumen-api-client/pkg/netmon"
)

func TestRegistry_IsDefaultRegisterer(t *testing.T) {
	if metrics.Registry == nil {
		t.Fatal("Registry should not be nil")
	}
	if metrics.Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

// Every metric documented in this package is owned and registered by another
// package at init time. Registering a colliding collector must fail for each
// documented name, proving the real collector is already on the registry.
func TestDocumentedMetricsAreRegistered(t *testing.T) {
	names := []string{
		"api_requests_total",
		"api_request_duration_seconds",
		"api_errors_total",
		"api_retries_total",
		"api_retry_exhausted_total",
		"auth_refresh_total",
		"auth_refresh_shared_total",
		"netmon_probes_total",
		"netmon_wait_seconds",
	}

	for _, name := range names {
		collider := prometheus.NewCounter(prometheus.CounterOpts{
			Name: name,
			Help: "collision check",
		})
		if err := metrics.Registry.Register(collider); err == nil {
			metrics.Registry.Unregister(collider)
			t.Errorf("metric %q is documented but not registered", name)
		}
	}
}
