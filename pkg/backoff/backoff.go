// Package backoff computes retry delays for the request executor.
package backoff

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBase is the initial delay before the first retry.
const DefaultBase = 1 * time.Second

// DefaultCap is the upper bound on any single retry delay.
const DefaultCap = 10 * time.Second

// Policy computes exponential retry delays. The zero value is not usable;
// construct with NewPolicy or fill Base and Cap explicitly.
type Policy struct {
	// Base is the delay for attempt 0.
	Base time.Duration

	// Cap bounds the delay for any attempt.
	Cap time.Duration

	// Jitter enables ±20% randomization. Off by default so that
	// Delay stays a pure function of the attempt index.
	Jitter bool
}

// NewPolicy returns a deterministic policy with the default base and cap.
func NewPolicy() Policy {
	return Policy{Base: DefaultBase, Cap: DefaultCap}
}

// Delay returns the wait before retrying attempt. It grows as
// Base * 2^attempt and never exceeds Cap. With Jitter disabled the result
// depends only on the attempt index.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.Multiplier = 2.0
	b.MaxInterval = p.Cap
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	if p.Jitter {
		b.RandomizationFactor = 0.2
	}
	// The constructor snapshots its defaults as the current interval;
	// re-arm so the first interval honors Base, not the library default.
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	if d > p.Cap {
		d = p.Cap
	}
	return d
}
