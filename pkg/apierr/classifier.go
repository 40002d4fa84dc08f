// Package apierr maps raw request failures to a stable error taxonomy.
//
// Every failure observed by the request executor, whether a transport
// exception or an HTTP error status, is normalized into a Classified value.
// Callers across the app branch on Category and show UserMessage; raw
// transport text never leaks past this package.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Category identifies a class of request failure.
type Category string

const (
	// CategoryNetwork represents lost or absent connectivity.
	CategoryNetwork Category = "network"

	// CategoryTimeout represents a client-side timeout or aborted call.
	CategoryTimeout Category = "timeout"

	// CategoryUnauthorized represents an expired or invalid session (401).
	CategoryUnauthorized Category = "unauthorized"

	// CategoryForbidden represents a permission failure (403).
	CategoryForbidden Category = "forbidden"

	// CategoryNotFound represents a missing resource (404).
	CategoryNotFound Category = "not_found"

	// CategoryRateLimited represents throttling by the server (429).
	CategoryRateLimited Category = "rate_limited"

	// CategoryServer represents 5xx server errors.
	CategoryServer Category = "server"

	// CategoryClient represents other 4xx client errors.
	CategoryClient Category = "client"

	// CategoryUnknown is the defensive fallback for unrecognized failures.
	CategoryUnknown Category = "unknown"
)

// Fixed user-facing templates per category. These strings are a behavioral
// contract: UI code matches on them and they must stay stable across
// releases.
const (
	MsgNetwork      = "No internet connection. Please check your network settings."
	MsgTimeout      = "The request timed out. Please try again."
	MsgUnauthorized = "Your session has expired. Please sign in again."
	MsgForbidden    = "You don't have permission to perform this action."
	MsgNotFound     = "The requested resource was not found."
	MsgRateLimited  = "Too many requests. Please wait a moment and try again."
	MsgServer       = "Something went wrong on our end. Please try again later."
	MsgClient       = "Invalid request. Please check your input and try again."
	MsgUnknown      = "An unexpected error occurred. Please try again."
)

// maxRawInUserMessage bounds how much raw error text may surface through the
// Unknown fallback before it is generalized.
const maxRawInUserMessage = 100

// Classified is the normalized description of a single failure. Values are
// created fresh per failure and never mutated.
type Classified struct {
	// RawMessage is the original failure text, kept for logs only.
	RawMessage string

	// UserMessage is the stable, user-facing text for this failure.
	UserMessage string

	// Category is the taxonomy entry.
	Category Category

	// StatusCode is the HTTP status when one was involved, else 0.
	StatusCode int

	// Retryable reports whether the executor may transparently retry.
	// A 401 is not retryable here; the refresh-then-retry path is
	// handled separately by the executor.
	Retryable bool

	cause error
}

// Error returns the user-facing message. Callers only ever observe the
// stable vocabulary, never transport internals.
func (c *Classified) Error() string {
	return c.UserMessage
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (c *Classified) Unwrap() error {
	return c.cause
}

// StatusError carries an HTTP status through the error chain so the
// classifier can branch on a typed code instead of re-parsing message text.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// statusPattern extracts a status code from errors that only carry it as a
// message marker ("HTTP 503: ...").
var statusPattern = regexp.MustCompile(`HTTP (\d{3})`)

var networkPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"failed to fetch",
	"dial tcp",
	"dns",
	"broken pipe",
}

var timeoutPatterns = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"context canceled",
	"aborted",
}

// Classify maps any failure to a Classified value. It is pure and total:
// the same input always yields the same result, every input (including nil)
// yields a valid value, and it never panics.
func Classify(err error) *Classified {
	if err == nil {
		return newClassified("", CategoryUnknown, MsgUnknown, 0, true, nil)
	}

	raw := err.Error()

	// Typed status takes precedence over message sniffing.
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode, raw, err)
	}

	// Timeouts and aborts. context.DeadlineExceeded also satisfies
	// net.Error, so check it before the network branch.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newClassified(raw, CategoryTimeout, MsgTimeout, 0, true, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newClassified(raw, CategoryTimeout, MsgTimeout, 0, true, err)
	}

	lower := strings.ToLower(raw)
	if matchesAny(lower, networkPatterns) {
		return newClassified(raw, CategoryNetwork, MsgNetwork, 0, true, err)
	}
	if errors.As(err, &netErr) {
		return newClassified(raw, CategoryNetwork, MsgNetwork, 0, true, err)
	}
	if matchesAny(lower, timeoutPatterns) {
		return newClassified(raw, CategoryTimeout, MsgTimeout, 0, true, err)
	}

	// Status code embedded in the message.
	if m := statusPattern.FindStringSubmatch(raw); m != nil {
		code, _ := strconv.Atoi(m[1])
		return classifyStatus(code, raw, err)
	}

	// Defensive fallback. Long raw messages are generalized so verbose
	// internals never reach the user.
	userMsg := MsgUnknown
	if len(raw) > 0 && len(raw) <= maxRawInUserMessage {
		userMsg = raw
	}
	return newClassified(raw, CategoryUnknown, userMsg, 0, true, err)
}

// ClassifyStatus maps an HTTP status code directly, using message for the
// raw record. The executor uses this for error responses it has already
// parsed.
func ClassifyStatus(statusCode int, message string) *Classified {
	return classifyStatus(statusCode, message, nil)
}

func classifyStatus(code int, raw string, cause error) *Classified {
	switch {
	case code == 400:
		return newClassified(raw, CategoryClient, MsgClient, code, false, cause)
	case code == 401:
		return newClassified(raw, CategoryUnauthorized, MsgUnauthorized, code, false, cause)
	case code == 403:
		return newClassified(raw, CategoryForbidden, MsgForbidden, code, false, cause)
	case code == 404:
		return newClassified(raw, CategoryNotFound, MsgNotFound, code, false, cause)
	case code == 429:
		return newClassified(raw, CategoryRateLimited, MsgRateLimited, code, true, cause)
	case code >= 500 && code <= 599:
		return newClassified(raw, CategoryServer, MsgServer, code, true, cause)
	case code >= 400 && code < 500:
		return newClassified(raw, CategoryClient, MsgClient, code, false, cause)
	default:
		return newClassified(raw, CategoryUnknown, MsgUnknown, code, true, cause)
	}
}

// NewOffline marks a request that was refused before any transport call
// because the device stayed offline past the connectivity wait. Retries are
// pointless at this layer, the executor already waited for the network.
func NewOffline() *Classified {
	return newClassified("device offline", CategoryNetwork, MsgNetwork, 0, false, nil)
}

// NewContractViolation marks a malformed success-body response. It is never
// retryable: a 2xx with an unparseable body signals a broken server
// contract, not a transient fault.
func NewContractViolation(raw string, cause error) *Classified {
	return newClassified(raw, CategoryUnknown, MsgUnknown, 0, false, cause)
}

func newClassified(raw string, cat Category, userMsg string, code int, retryable bool, cause error) *Classified {
	return &Classified{
		RawMessage:  raw,
		UserMessage: userMsg,
		Category:    cat,
		StatusCode:  code,
		Retryable:   retryable,
		cause:       cause,
	}
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
