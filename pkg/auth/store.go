// Package auth holds session credentials and coordinates token refresh.
package auth

import (
	"context"
	"sync"
)

// Credentials is the token pair issued at login and rotated on refresh.
type Credentials struct {
	Access  string
	Refresh string
}

// RefreshFunc performs the refresh HTTP call and installs the new access
// token into the Store on success.
type RefreshFunc func(ctx context.Context) error

// Store keeps the current credentials in memory. It is safe for concurrent
// use; the request layer reads the access token on every attempt while the
// auth flow may rotate it at any time.
type Store struct {
	mu        sync.RWMutex
	creds     Credentials
	refreshFn RefreshFunc
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// AccessToken returns the current access token, or "" when signed out.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Access
}

// RefreshToken returns the current refresh token, or "".
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Refresh
}

// SetCredentials installs a full token pair, as on login or refresh.
func (s *Store) SetCredentials(creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// SetAccessToken replaces only the access token.
func (s *Store) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.Access = token
}

// Clear wipes both tokens, as on logout or irrecoverable refresh failure.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
}

// SetRefreshFunc registers the refresh capability. Pass nil to deregister,
// after which 401 responses surface directly without a refresh attempt.
func (s *Store) SetRefreshFunc(fn RefreshFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFn = fn
}

func (s *Store) refreshFunc() RefreshFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshFn
}

// CanRefresh reports whether a refresh capability is registered.
func (s *Store) CanRefresh() bool {
	return s.refreshFunc() != nil
}
