package auth

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Prometheus metrics for token refresh.
var (
	authRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_total",
		Help: "Total token refresh executions by outcome",
	}, []string{"outcome"})

	authRefreshSharedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_shared_total",
		Help: "Refresh waiters that joined an already in-flight refresh",
	})
)

// ErrNoRefreshFunc is returned when a refresh is requested but no refresh
// capability is registered.
var ErrNoRefreshFunc = errors.New("no refresh callback registered")

// refreshKey is the singleflight key; there is one logical refresh
// operation per process.
const refreshKey = "token-refresh"

// Coordinator guarantees at most one in-flight token refresh across all
// concurrent requests. Every caller that observes a 401 while a refresh is
// running awaits that same refresh and shares its outcome; the singleflight
// key is released before results fan out, so a caller arriving after
// settlement always starts a fresh refresh rather than joining a stale one.
type Coordinator struct {
	store  *Store
	group  singleflight.Group
	logger zerolog.Logger
}

// NewCoordinator returns a coordinator bound to the given store.
func NewCoordinator(store *Store, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: logger.With().Str("component", "auth-refresh").Logger(),
	}
}

// Refresh runs the registered refresh callback, deduplicating concurrent
// calls. On success the callback has already installed the new token into
// the store. The error, if any, is the refresh operation's own error; the
// request executor surfaces the original 401 to its caller instead.
func (c *Coordinator) Refresh(ctx context.Context) error {
	fn := c.store.refreshFunc()
	if fn == nil {
		return ErrNoRefreshFunc
	}

	_, err, shared := c.group.Do(refreshKey, func() (interface{}, error) {
		c.logger.Debug().Msg("Starting token refresh")
		return nil, fn(ctx)
	})

	if shared {
		authRefreshSharedTotal.Inc()
	}

	if err != nil {
		authRefreshTotal.WithLabelValues("failure").Inc()
		c.logger.Warn().Err(err).Bool("shared", shared).Msg("Token refresh failed")
		return err
	}

	authRefreshTotal.WithLabelValues("success").Inc()
	c.logger.Debug().Bool("shared", shared).Msg("Token refresh succeeded")
	return nil
}
