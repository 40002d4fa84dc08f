// Package api provides the authenticated request executor for the Lumen
// backend: connectivity pre-checks, bearer auth, single-flight token
// refresh, and classified retries with exponential backoff.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/lumenapp/lumen-api-client/pkg/apierr"
	"github.com/lumenapp/lumen-api-client/pkg/auth"
	"github.com/lumenapp/lumen-api-client/pkg/backoff"
	"github.com/lumenapp/lumen-api-client/pkg/logging"
	"github.com/lumenapp/lumen-api-client/pkg/netmon"
)

// Prometheus metrics for request execution.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_request_duration_seconds",
		Help:    "Logical request duration in seconds by endpoint, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_errors_total",
		Help: "Total classified errors by category",
	}, []string{"category"})

	apiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_retries_total",
		Help: "Total retry attempts by error category",
	}, []string{"category"})

	apiRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_retry_exhausted_total",
		Help: "Requests that exhausted all retry attempts by error category",
	}, []string{"category"})
)

// CallOptions carries per-call extras supplied by the caller.
type CallOptions struct {
	// Headers are merged into the request after the standard headers, so
	// a caller may override Content-Type if an endpoint needs it.
	Headers map[string]string
}

// Client is the authenticated API request executor.
type Client struct {
	httpClient *http.Client
	cfg        Config
	tokens     *auth.Store
	refresh    *auth.Coordinator
	monitor    *netmon.Monitor
	policy     backoff.Policy
	logger     zerolog.Logger
}

// New creates a request executor for the configured backend.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = backoff.DefaultBase
	}
	if cfg.OfflineWait <= 0 {
		cfg.OfflineWait = 5 * time.Second
	}

	logger := logging.NewLogger("api-client")
	store := auth.NewStore()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:     cfg,
		tokens:  store,
		refresh: auth.NewCoordinator(store, logger),
		monitor: netmon.NewMonitor(netmon.NewDialProber(), logger),
		policy:  backoff.Policy{Base: cfg.RetryBaseDelay, Cap: backoff.DefaultCap},
		logger:  logger,
	}, nil
}

// Tokens exposes the credential store so the app's auth flow can install
// tokens on login and register the refresh callback.
func (c *Client) Tokens() *auth.Store {
	return c.tokens
}

// Get issues a GET request and unmarshals the envelope data into out.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.Call(ctx, http.MethodGet, endpoint, nil, out, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Call(ctx, http.MethodPost, endpoint, body, out, nil)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.Call(ctx, http.MethodPatch, endpoint, body, out, nil)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.Call(ctx, http.MethodDelete, endpoint, nil, out, nil)
}

// Call performs one logical request: connectivity pre-check, auth header,
// transport call with timeout, classification, and retry or refresh-then-
// retry. On success the envelope's data field is unmarshaled into out (out
// may be nil to discard it). On failure the returned error is a
// *apierr.Classified whose message is the stable user-facing text.
func (c *Client) Call(ctx context.Context, method, endpoint string, body, out any, opts *CallOptions) error {
	start := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("method", method).
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Logger()

	// Connectivity pre-check, before the first attempt only. Offline with
	// no recovery inside the wait window means no transport call at all.
	if !c.monitor.IsOnline(ctx) {
		logger.Warn().Dur("offline_wait", c.cfg.OfflineWait).Msg("Device offline, awaiting connectivity")
		if !c.monitor.AwaitOnline(ctx, c.cfg.OfflineWait) {
			apiRequestsTotal.WithLabelValues(endpoint, "offline").Inc()
			offline := apierr.NewOffline()
			apiErrorsTotal.WithLabelValues(string(offline.Category)).Inc()
			return offline
		}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return apierr.Classify(fmt.Errorf("encode request body: %w", err))
		}
	}

	for attempt := 0; ; attempt++ {
		data, tokenSent, cls := c.doAttempt(ctx, method, endpoint, payload, opts, requestID, attempt, logger)
		if cls == nil {
			if attempt > 0 {
				logger.Info().Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return decodeData(data, out)
		}

		// A first-attempt 401 with a token on the wire and a refresh
		// capability registered gets exactly one refresh-then-retry. A
		// failed refresh surfaces the original 401, not its own error.
		if cls.StatusCode == http.StatusUnauthorized && attempt == 0 && tokenSent && c.tokens.CanRefresh() {
			if err := c.refresh.Refresh(ctx); err == nil {
				logger.Debug().Msg("Token refreshed, retrying request")
				continue
			}
			logger.Warn().Str("category", string(cls.Category)).Msg("Token refresh failed, surfacing original error")
			apiErrorsTotal.WithLabelValues(string(cls.Category)).Inc()
			return cls
		}

		if cls.Retryable && attempt < c.cfg.MaxAttempts {
			delay := c.policy.Delay(attempt)
			apiRetriesTotal.WithLabelValues(string(cls.Category)).Inc()
			logger.Warn().
				Int("attempt", attempt).
				Str("category", string(cls.Category)).
				Dur("backoff", delay).
				Msg("Retrying request after backoff")

			select {
			case <-ctx.Done():
				return apierr.Classify(ctx.Err())
			case <-time.After(delay):
			}
			continue
		}

		if cls.Retryable {
			apiRetryExhaustedTotal.WithLabelValues(string(cls.Category)).Inc()
			logger.Error().
				Int("max_attempts", c.cfg.MaxAttempts).
				Str("category", string(cls.Category)).
				Msg("Retry attempts exhausted")
		}
		apiErrorsTotal.WithLabelValues(string(cls.Category)).Inc()
		return cls
	}
}

// doAttempt performs a single transport call. It returns the envelope data
// on success, whether a bearer token was attached, and the classified
// failure if any.
func (c *Client) doAttempt(ctx context.Context, method, endpoint string, payload []byte, opts *CallOptions, requestID string, attempt int, logger zerolog.Logger) (json.RawMessage, bool, *apierr.Classified) {
	token := c.tokens.AccessToken()

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.cfg.BaseURL+endpoint, reader)
	if err != nil {
		return nil, token != "", apierr.Classify(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if opts != nil {
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger.Debug().Int("attempt", attempt).Msg("Executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cls := apierr.Classify(err)
		apiRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		logger.Warn().
			Int("attempt", attempt).
			Str("category", string(cls.Category)).
			Err(err).
			Msg("Transport call failed")
		return nil, token != "", cls
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		apiRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, token != "", apierr.Classify(fmt.Errorf("read response body: %w", err))
	}

	apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(raw) == 0 {
			return nil, token != "", nil
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// A 2xx we cannot parse is a broken server contract, not
			// a transient fault. Never retried.
			logger.Error().Int("status", resp.StatusCode).Msg("Malformed success response body")
			return nil, token != "", apierr.NewContractViolation("malformed response body on HTTP "+strconv.Itoa(resp.StatusCode), err)
		}
		return env.Data, token != "", nil
	}

	msg := extractErrorMessage(raw, resp.StatusCode)
	cls := apierr.ClassifyStatus(resp.StatusCode, msg)
	logger.Warn().
		Int("attempt", attempt).
		Int("status", resp.StatusCode).
		Str("category", string(cls.Category)).
		Msg("Request returned error status")
	return nil, token != "", cls
}

// decodeData unmarshals the envelope data field into out. A data field the
// caller asked for but cannot be decoded is treated like a malformed
// success body.
func decodeData(data json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apierr.NewContractViolation("undecodable data field in response envelope", err)
	}
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetNetworkMonitor replaces the connectivity monitor (for testing).
func (c *Client) SetNetworkMonitor(m *netmon.Monitor) {
	c.monitor = m
}
