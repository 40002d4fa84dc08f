package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCoordinator_NoRefreshFunc(t *testing.T) {
	store := NewStore()
	coord := NewCoordinator(store, zerolog.Nop())

	err := coord.Refresh(context.Background())
	if !errors.Is(err, ErrNoRefreshFunc) {
		t.Errorf("Refresh() = %v, want ErrNoRefreshFunc", err)
	}
}

func TestCoordinator_SingleFlight(t *testing.T) {
	store := NewStore()
	coord := NewCoordinator(store, zerolog.Nop())

	var refreshCalls int32
	started := make(chan struct{})
	release := make(chan struct{})

	store.SetRefreshFunc(func(ctx context.Context) error {
		if atomic.AddInt32(&refreshCalls, 1) == 1 {
			close(started)
		}
		<-release
		store.SetAccessToken("fresh-token")
		return nil
	})

	const waiters = 20
	var wg sync.WaitGroup
	errs := make([]error, waiters)

	// First caller enters the refresh, the rest pile up behind it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = coord.Refresh(context.Background())
	}()
	<-started

	for i := 1; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = coord.Refresh(context.Background())
		}()
	}

	// Give the stragglers time to join the in-flight refresh.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls := atomic.LoadInt32(&refreshCalls); calls != 1 {
		t.Errorf("refresh callback invoked %d times, want 1", calls)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("waiter %d got error %v, want nil", i, err)
		}
	}
	if got := store.AccessToken(); got != "fresh-token" {
		t.Errorf("AccessToken() = %q, want fresh-token", got)
	}
}

func TestCoordinator_FailureFansOut(t *testing.T) {
	store := NewStore()
	coord := NewCoordinator(store, zerolog.Nop())

	refreshErr := errors.New("refresh token revoked")
	var refreshCalls int32
	started := make(chan struct{})
	release := make(chan struct{})

	store.SetRefreshFunc(func(ctx context.Context) error {
		if atomic.AddInt32(&refreshCalls, 1) == 1 {
			close(started)
		}
		<-release
		return refreshErr
	})

	const waiters = 10
	var wg sync.WaitGroup
	errs := make([]error, waiters)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = coord.Refresh(context.Background())
	}()
	<-started

	for i := 1; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = coord.Refresh(context.Background())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls := atomic.LoadInt32(&refreshCalls); calls != 1 {
		t.Errorf("refresh callback invoked %d times, want 1", calls)
	}
	for i, err := range errs {
		if !errors.Is(err, refreshErr) {
			t.Errorf("waiter %d got %v, want the shared refresh error", i, err)
		}
	}
}

func TestCoordinator_SequentialRefreshesRunSeparately(t *testing.T) {
	store := NewStore()
	coord := NewCoordinator(store, zerolog.Nop())

	var refreshCalls int32
	store.SetRefreshFunc(func(ctx context.Context) error {
		atomic.AddInt32(&refreshCalls, 1)
		return nil
	})

	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}

	if calls := atomic.LoadInt32(&refreshCalls); calls != 2 {
		t.Errorf("refresh callback invoked %d times, want 2 for sequential calls", calls)
	}
}
