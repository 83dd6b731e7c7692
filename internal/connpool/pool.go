// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package connpool provides a host-keyed pool of *http.Client values for the
// streamable-HTTP client transport, so repeated connections to the same MCP
// server reuse TCP connections and respect a shared concurrency ceiling
// rather than each Connect call building its own http.Transport.
package connpool

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Pool hands out *http.Client values keyed by target host, each wrapping a
// semaphore-limited RoundTripper so no single host can exhaust the
// process's file descriptors under concurrent sessions. A background sweep
// goroutine evicts clients that have gone idle past IdleTimeout.
type Pool struct {
	// MaxIdlePerHost bounds idle connections the transport keeps open per
	// host. Zero uses http.Transport's own default.
	MaxIdlePerHost int
	// MaxConnections bounds in-flight requests per host. Zero means
	// unbounded.
	MaxConnections int
	// IdleTimeout is both the http.Transport idle-connection lifetime and
	// the threshold after which an unused client is swept from the pool.
	IdleTimeout time.Duration

	mu      sync.Mutex
	clients map[string]*pooledClient
	stop    chan struct{}
	once    sync.Once
}

type pooledClient struct {
	client   *http.Client
	lastUsed time.Time
}

// New returns a Pool. sweepInterval governs how often the background
// eviction sweep runs; a non-positive value disables the sweep goroutine,
// so clients are never evicted (Close still closes their idle connections).
func New(maxConnections, maxIdlePerHost int, idleTimeout, sweepInterval time.Duration) *Pool {
	p := &Pool{
		MaxIdlePerHost: maxIdlePerHost,
		MaxConnections: maxConnections,
		IdleTimeout:    idleTimeout,
		clients:        make(map[string]*pooledClient),
	}
	if sweepInterval > 0 {
		p.stop = make(chan struct{})
		go p.sweepLoop(sweepInterval)
	}
	return p
}

// Client returns the *http.Client for rawURL's host, creating and caching
// one on first use.
func (p *Pool) Client(rawURL string) (*http.Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	host := u.Host

	p.mu.Lock()
	defer p.mu.Unlock()
	if pc, ok := p.clients[host]; ok {
		pc.lastUsed = time.Now()
		return pc.client, nil
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: p.MaxIdlePerHost,
		IdleConnTimeout:     p.IdleTimeout,
	}
	var rt http.RoundTripper = transport
	if p.MaxConnections > 0 {
		rt = &boundedRoundTripper{base: transport, sem: make(chan struct{}, p.MaxConnections)}
	}
	pc := &pooledClient{client: &http.Client{Transport: rt}, lastUsed: time.Now()}
	p.clients[host] = pc
	return pc.client, nil
}

func (p *Pool) sweepLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.sweep()
		case <-p.stop:
			return
		}
	}
}

func (p *Pool) sweep() {
	if p.IdleTimeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-p.IdleTimeout)
	p.mu.Lock()
	defer p.mu.Unlock()
	for host, pc := range p.clients {
		if pc.lastUsed.Before(cutoff) {
			pc.client.CloseIdleConnections()
			delete(p.clients, host)
		}
	}
}

// Close stops the background sweep goroutine and closes idle connections
// held by every client in the pool.
func (p *Pool) Close() {
	p.once.Do(func() {
		if p.stop != nil {
			close(p.stop)
		}
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pc := range p.clients {
		pc.client.CloseIdleConnections()
	}
}

// boundedRoundTripper caps the number of in-flight requests through base,
// blocking new requests once the cap is reached until the request's
// context is done or a slot frees up.
type boundedRoundTripper struct {
	base http.RoundTripper
	sem  chan struct{}
}

func (b *boundedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	select {
	case b.sem <- struct{}{}:
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
	defer func() { <-b.sem }()
	return b.base.RoundTrip(req)
}
