package netmon

import (
	"context"
	"net"
	"time"
)

// defaultProbeAddrs are well-known anycast resolvers; reaching any one of
// them counts as online.
var defaultProbeAddrs = []string{
	"1.1.1.1:443",
	"8.8.8.8:443",
}

// DialProber checks connectivity by opening a TCP connection to one of a
// set of probe addresses.
type DialProber struct {
	// Addrs are host:port targets tried in order.
	Addrs []string

	// Timeout bounds each dial attempt.
	Timeout time.Duration

	dialer net.Dialer
}

// NewDialProber returns a prober against the default probe addresses with a
// 2 second per-dial timeout.
func NewDialProber() *DialProber {
	return &DialProber{
		Addrs:   defaultProbeAddrs,
		Timeout: 2 * time.Second,
	}
}

// Probe dials each address until one succeeds. All addresses failing means
// offline; that is a definitive answer, not a probe error.
func (p *DialProber) Probe(ctx context.Context) (bool, error) {
	for _, addr := range p.Addrs {
		dialCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		conn, err := p.dialer.DialContext(dialCtx, "tcp", addr)
		cancel()
		if err == nil {
			conn.Close()
			return true, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
	return false, nil
}
