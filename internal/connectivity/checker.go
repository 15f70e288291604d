// Package connectivity answers "is the catalog reachable right now?" for
// status reporting. It never gates fetches: the paging layer lets a fetch
// fail naturally when offline.
package connectivity

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Checker probes a TCP address and caches the answer for a short TTL.
type Checker struct {
	addr    string
	timeout time.Duration
	ttl     time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	now     func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	checked time.Time
	up      bool
}

// NewChecker probes host:port derived from baseURL (port 443 for https,
// 80 otherwise, unless the URL names one).
func NewChecker(baseURL string, timeout, ttl time.Duration) (*Checker, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := &net.Dialer{Timeout: timeout}
	return &Checker{
		addr:    net.JoinHostPort(u.Hostname(), port),
		timeout: timeout,
		ttl:     ttl,
		dial:    d.DialContext,
		now:     time.Now,
	}, nil
}

// Addr returns the probed address.
func (c *Checker) Addr() string { return c.addr }

// IsConnected reports whether a TCP connection to the catalog host can be
// opened. Results are cached for the TTL; concurrent callers share a probe.
func (c *Checker) IsConnected(ctx context.Context) bool {
	c.mu.Lock()
	if c.ttl > 0 && !c.checked.IsZero() && c.now().Sub(c.checked) < c.ttl {
		up := c.up
		c.mu.Unlock()
		return up
	}
	c.mu.Unlock()

	v, _, _ := c.group.Do("probe", func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		conn, err := c.dial(ctx, "tcp", c.addr)
		up := err == nil
		if up {
			_ = conn.Close()
		}

		c.mu.Lock()
		c.checked, c.up = c.now(), up
		c.mu.Unlock()
		return up, nil
	})
	return v.(bool)
}
