// Package testutil provides testing utilities for the Lumen API client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock backend endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable mock API server speaking the response
// envelope contract.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	AuthHeaders       []string
	RequestIDs        []string
	LastRequestHeader http.Header
}

// NewMockBackend creates a new mock backend server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.AuthHeaders = append(mock.AuthHeaders, r.Header.Get("Authorization"))
		mock.RequestIDs = append(mock.RequestIDs, r.Header.Get("X-Request-ID"))
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.AuthHeaders = nil
	m.RequestIDs = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockBackend) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockBackend) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.Headers["Content-Type"] == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence configures a path to walk a response sequence, one response
// per request, repeating the final entry once exhausted. Useful for
// fail-then-recover scenarios like a 401 followed by a 200.
func (m *MockBackend) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	index := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[index]
		if index < len(responses)-1 {
			index++
		}
		mu.Unlock()

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBackend) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetAuthHeaders returns the Authorization header of every request seen, in
// arrival order.
func (m *MockBackend) GetAuthHeaders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.AuthHeaders))
	copy(out, m.AuthHeaders)
	return out
}

// GetRequestIDs returns the X-Request-ID header of every request seen, in
// arrival order.
func (m *MockBackend) GetRequestIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.RequestIDs))
	copy(out, m.RequestIDs)
	return out
}

// defaultHandler answers with an empty success envelope.
func (m *MockBackend) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "ok", "data": null, "errors": null}`))
}

// NewDataResponse creates a 200 response wrapping data in the envelope.
func NewDataResponse(dataJSON string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"message": "ok", "data": %s, "errors": null}`, dataJSON),
	}
}

// NewErrorResponse creates an error response carrying detail in the errors
// object.
func NewErrorResponse(statusCode int, detail string) MockResponse {
	return MockResponse{
		StatusCode: statusCode,
		Body:       fmt.Sprintf(`{"message": "error", "data": null, "errors": {"detail": %q}}`, detail),
	}
}

// NewUnauthorizedResponse creates a 401 response.
func NewUnauthorizedResponse() MockResponse {
	return NewErrorResponse(http.StatusUnauthorized, "Authentication credentials were not provided or are invalid")
}

// NewServerErrorResponse creates a 503 response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusServiceUnavailable, "Service temporarily unavailable")
}
