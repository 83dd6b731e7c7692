// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcpcore/sdk/jsonrpc"
)

// defaultTimeouts maps a JSON-RPC method to the duration after which an
// in-flight request of that kind is cancelled with a synthetic timeout, if
// the peer hasn't replied. Methods not listed here use defaultTimeout.
var defaultTimeouts = map[string]time.Duration{
	methodPing:                  5 * time.Second,
	methodInitialize:            30 * time.Second,
	methodListTools:             10 * time.Second,
	methodListResources:         10 * time.Second,
	methodListResourceTemplates: 10 * time.Second,
	methodListPrompts:           10 * time.Second,
	methodListRoots:             10 * time.Second,
	methodReadResource:          60 * time.Second,
	methodCallTool:              300 * time.Second,
	methodCreateMessage:         120 * time.Second,
	methodComplete:              30 * time.Second,
	methodGetPrompt:             10 * time.Second,
	methodElicit:                120 * time.Second,
}

const defaultTimeout = 30 * time.Second

// shutdownTimeout is not referenced by the shutdown path: ServerSession.Close
// moves straight to the shutdown phase and does not wait for in-flight
// requests to settle.
const shutdownTimeout = 10 * time.Second

// timeoutFor returns the operation-class timeout for method.
func timeoutFor(method string) time.Duration {
	if d, ok := defaultTimeouts[method]; ok {
		return d
	}
	return defaultTimeout
}

// callRegistry correlates outgoing requests (messages this side sent and is
// awaiting a response to) with their eventual jsonrpc.Response. One
// callRegistry exists per session, shared by both directions when a peer
// can issue its own requests (e.g. a server calling back into the client
// for sampling).
type callRegistry struct {
	mu      sync.Mutex
	nextID  int64
	pending map[jsonrpc.ID]chan *jsonrpc.Response
}

func newCallRegistry() *callRegistry {
	return &callRegistry{pending: make(map[jsonrpc.ID]chan *jsonrpc.Response)}
}

// newID allocates a fresh request id for an outgoing call.
func (r *callRegistry) newID() jsonrpc.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return jsonrpc.IntID(r.nextID)
}

// register records that id is awaiting a response, returning a channel that
// receives exactly one *jsonrpc.Response.
func (r *callRegistry) register(id jsonrpc.ID) chan *jsonrpc.Response {
	ch := make(chan *jsonrpc.Response, 1)
	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()
	return ch
}

// deliver completes the pending call for resp.ID, if any is outstanding. It
// reports whether a waiter was found; at-most-once delivery is guaranteed by
// removing the entry before sending.
func (r *callRegistry) deliver(resp *jsonrpc.Response) bool {
	r.mu.Lock()
	ch, ok := r.pending[resp.ID]
	if ok {
		delete(r.pending, resp.ID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- resp
	return true
}

// cancel removes id from the registry and, if it was outstanding, delivers a
// synthetic request-failed (CodeRequestFailed) response so the waiter unblocks.
func (r *callRegistry) cancel(id jsonrpc.ID, err error) {
	r.mu.Lock()
	ch, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if ok {
		ch <- &jsonrpc.Response{ID: id, Error: jsonrpc.NewError(jsonrpc.CodeRequestFailed, err.Error(), nil)}
	}
}

// drain cancels every outstanding call, used when a connection is closing.
func (r *callRegistry) drain(err error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[jsonrpc.ID]chan *jsonrpc.Response)
	r.mu.Unlock()
	for id, ch := range pending {
		ch <- &jsonrpc.Response{ID: id, Error: jsonrpc.NewError(jsonrpc.CodeRequestFailed, err.Error(), nil)}
	}
}

// inFlight tracks a single incoming request this side is currently handling,
// so that a later notifications/cancelled or a deadline can cancel it
// exactly once.
type inFlight struct {
	cancel   context.CancelFunc
	progTok  any
	deadline time.Time
}

// inFlightRegistry tracks every incoming request a session is currently
// handling, keyed by request id, to support cooperative cancellation and
// deadline enforcement. One exists per session, for requests flowing in
// that session's "server" direction (i.e. requests this side must answer).
type inFlightRegistry struct {
	mu  sync.Mutex
	set map[jsonrpc.ID]*inFlight
}

func newInFlightRegistry() *inFlightRegistry {
	return &inFlightRegistry{set: make(map[jsonrpc.ID]*inFlight)}
}

// start begins tracking id, deriving a cancellable context with the
// operation-class deadline for method. The caller must call finish when the
// request completes, exactly once.
func (r *inFlightRegistry) start(ctx context.Context, id jsonrpc.ID, method string, progressToken any) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, timeoutFor(method))
	if id.IsValid() {
		r.mu.Lock()
		r.set[id] = &inFlight{cancel: cancel, progTok: progressToken, deadline: time.Now().Add(timeoutFor(method))}
		r.mu.Unlock()
	}
	return ctx, cancel
}

// finish stops tracking id. Safe to call even if id was never started, or
// was already finished (at-most-once via map deletion).
func (r *inFlightRegistry) finish(id jsonrpc.ID) {
	if !id.IsValid() {
		return
	}
	r.mu.Lock()
	e, ok := r.set[id]
	if ok {
		delete(r.set, id)
	}
	r.mu.Unlock()
	if ok {
		e.cancel()
	}
}

// cancelRequest implements cooperative cancellation for a
// notifications/cancelled message: if id is still in flight, its context is
// cancelled, but the entry is left in place until the handler goroutine
// itself calls finish, preserving at-most-once completion semantics.
func (r *inFlightRegistry) cancelRequest(id jsonrpc.ID) error {
	r.mu.Lock()
	e, ok := r.set[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no in-flight request with id %v", id)
	}
	e.cancel()
	return nil
}
