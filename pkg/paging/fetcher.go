// Package paging fetches multi-page content lists through a bounded worker
// pool.
//
// Content feeds (lessons, decks, leaderboards) are paginated; the backend
// reports the total page count alongside page one. The fetcher retrieves
// page one to learn the total, then fans the remaining pages out across an
// errgroup with a concurrency limit, collecting results in page order.
package paging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PageFetcher retrieves a single page and reports the total page count.
// The api.Client satisfies this through a thin adapter in the app.
type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, page int) (data json.RawMessage, totalPages int, err error)
}

// Config holds fetcher configuration.
type Config struct {
	// MaxConcurrency bounds parallel page fetches.
	MaxConcurrency int

	// Timeout bounds each page fetch.
	Timeout time.Duration
}

// DefaultConfig returns a conservative default for mobile clients.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// Fetcher fans out page fetches for one endpoint.
type Fetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewFetcher creates a fetcher over the given page source.
func NewFetcher(fetcher PageFetcher, config Config) *Fetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Fetcher{fetcher: fetcher, config: config}
}

// FetchAll fetches every page of an endpoint and returns them indexed by
// page number, starting at 1. The first failing page cancels the remaining
// fetches and fails the whole call.
func (f *Fetcher) FetchAll(ctx context.Context, endpoint string) (map[int]json.RawMessage, error) {
	start := time.Now()

	first, totalPages, err := f.fetcher.FetchPage(ctx, endpoint, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	if totalPages < 1 {
		totalPages = 1
	}

	results := map[int]json.RawMessage{1: first}
	if totalPages == 1 {
		return results, nil
	}

	log.Debug().
		Str("endpoint", endpoint).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.MaxConcurrency)

	for page := 2; page <= totalPages; page++ {
		g.Go(func() error {
			pageCtx, cancel := context.WithTimeout(gctx, f.config.Timeout)
			defer cancel()

			data, _, err := f.fetcher.FetchPage(pageCtx, endpoint, page)
			if err != nil {
				return fmt.Errorf("fetch page %d: %w", page, err)
			}

			mu.Lock()
			results[page] = data
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("endpoint", endpoint).
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Page fetch complete")

	return results, nil
}
