// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ratelimit provides a keyed token-bucket limiter for bounding the
// rate of inbound requests per client identity, built on
// golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Bucket bounds the request rate of an arbitrary number of independent
// identities (session IDs, remote addresses, bearer-token subjects) behind
// a shared quota, evicting per-identity limiters that have gone idle so
// memory use tracks active identities rather than all identities ever seen.
type Bucket struct {
	rps   rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// New returns a Bucket that allows rps events per second per identity, with
// bursts up to burst, evicting an identity's limiter once it has been idle
// longer than idle. A non-positive idle disables eviction.
func New(rps float64, burst int, idle time.Duration) *Bucket {
	return &Bucket{
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		entries: make(map[string]*entry),
	}
}

// Allow reports whether an event for identity may proceed now, consuming a
// token from its bucket if so. An identity seen for the first time starts
// with a full bucket.
func (b *Bucket) Allow(identity string) bool {
	return b.limiterFor(identity).Allow()
}

// Remaining reports the number of tokens currently available for identity,
// rounded down, without consuming one.
func (b *Bucket) Remaining(identity string) int {
	l := b.limiterFor(identity)
	return int(l.Tokens())
}

// RetryAfter reports how long identity should wait before its next request
// is likely to be allowed, for use in a Retry-After response header.
func (b *Bucket) RetryAfter(identity string) time.Duration {
	l := b.limiterFor(identity)
	r := l.Reserve()
	if !r.OK() {
		return 0
	}
	delay := r.Delay()
	r.Cancel()
	return delay
}

func (b *Bucket) limiterFor(identity string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictLocked()
	e, ok := b.entries[identity]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(b.rps, b.burst)}
		b.entries[identity] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

// evictLocked removes entries that have been idle longer than b.idle.
// Callers must hold b.mu.
func (b *Bucket) evictLocked() {
	if b.idle <= 0 {
		return
	}
	cutoff := time.Now().Add(-b.idle)
	for identity, e := range b.entries {
		if e.lastUse.Before(cutoff) {
			delete(b.entries, identity)
		}
	}
}
