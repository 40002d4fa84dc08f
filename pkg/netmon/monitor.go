// Package netmon reports device connectivity to the request executor.
package netmon

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for connectivity probes.
var (
	netmonProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netmon_probes_total",
		Help: "Total connectivity probes by result",
	}, []string{"result"})

	netmonWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netmon_wait_seconds",
		Help:    "Time spent waiting for connectivity to return",
		Buckets: []float64{0.5, 1, 2, 5, 10},
	})
)

// DefaultPollInterval is the gap between probes while awaiting connectivity.
const DefaultPollInterval = 500 * time.Millisecond

// Prober answers a single point-in-time connectivity question.
type Prober interface {
	// Probe returns whether the network is reachable. An error means the
	// probe itself could not run; the monitor treats that as offline.
	Probe(ctx context.Context) (bool, error)
}

// Monitor wraps a Prober with the polling and fail-open semantics the
// request executor relies on.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   zerolog.Logger
}

// NewMonitor returns a monitor polling at DefaultPollInterval.
func NewMonitor(prober Prober, logger zerolog.Logger) *Monitor {
	return &Monitor{
		prober:   prober,
		interval: DefaultPollInterval,
		logger:   logger.With().Str("component", "netmon").Logger(),
	}
}

// SetPollInterval overrides the polling interval (for testing).
func (m *Monitor) SetPollInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// IsOnline reports current connectivity. Unknown is treated as offline so
// the executor never hammers a dead network on a broken probe.
func (m *Monitor) IsOnline(ctx context.Context) bool {
	online, err := m.prober.Probe(ctx)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Connectivity probe failed, assuming offline")
		netmonProbesTotal.WithLabelValues("error").Inc()
		return false
	}
	if online {
		netmonProbesTotal.WithLabelValues("online").Inc()
	} else {
		netmonProbesTotal.WithLabelValues("offline").Inc()
	}
	return online
}

// AwaitOnline polls until connectivity is observed or maxWait elapses, and
// reports whether connectivity was achieved. It never blocks longer than
// maxWait and returns early if ctx is cancelled.
func (m *Monitor) AwaitOnline(ctx context.Context, maxWait time.Duration) bool {
	start := time.Now()
	defer func() {
		netmonWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	if m.IsOnline(ctx) {
		return true
	}

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			m.logger.Debug().Dur("max_wait", maxWait).Msg("Gave up waiting for connectivity")
			return false
		case <-ticker.C:
			if m.IsOnline(ctx) {
				m.logger.Debug().Dur("waited", time.Since(start)).Msg("Connectivity restored")
				return true
			}
		}
	}
}
