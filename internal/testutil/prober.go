package testutil

import (
	"context"
	"sync"
)

// StubProber is a controllable connectivity prober for tests.
type StubProber struct {
	mu     sync.Mutex
	online bool
	err    error
	calls  int
}

// NewStubProber returns a prober reporting the given state.
func NewStubProber(online bool) *StubProber {
	return &StubProber{online: online}
}

// Probe implements netmon.Prober.
func (p *StubProber) Probe(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return false, p.err
	}
	return p.online, nil
}

// SetOnline flips the reported connectivity state.
func (p *StubProber) SetOnline(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

// SetError makes subsequent probes fail with err.
func (p *StubProber) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Calls returns how many probes have run.
func (p *StubProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
