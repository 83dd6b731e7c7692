// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"io/fs"
	"sync"
)

// SessionState is the subset of a session's state that must survive a
// reconnect on a new HTTP connection: the negotiated initialize params and
// the logging level set via logging/setLevel. It does not cover resource
// subscriptions, which live only on the in-memory ServerSession
// (see handleSubscribe in operations.go) and are lost on reconnect.
//
// TODO: carry subscriptions through SessionState once a server needs
// subscriptions to survive reconnect.
type SessionState struct {
	// InitializeParams are the parameters from the initialize request.
	InitializeParams *InitializeParams `json:"initializeParams"`

	// LogLevel is the logging level for the session.
	LogLevel LoggingLevel `json:"logLevel"`
}

// SessionStore persists SessionState across reconnects, keyed by the
// transport-level session ID (the Mcp-Session-Id header for streamable HTTP).
// A Server with a configured SessionStore can accept a new connection
// carrying a previously issued session ID and resume where the old
// connection left off, rather than forcing the client to re-initialize.
type SessionStore interface {
	// Load retrieves the session state for the given session ID.
	// If there is none, it returns nil, fs.ErrNotExist.
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	// Store saves the session state for the given session ID.
	Store(ctx context.Context, sessionID string, state *SessionState) error
	// Delete removes the session state for the given session ID.
	Delete(ctx context.Context, sessionID string) error
}

// MemorySessionStore is the default SessionStore: an in-memory map that is
// safe for concurrent use but does not survive a process restart. Servers
// that need sessions to resume across restarts should supply their own
// SessionStore backed by durable storage.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*SessionState
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*SessionState),
	}
}

// Load retrieves the session state for the given session ID.
func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return state, nil
}

// Store saves the session state for the given session ID.
func (s *MemorySessionStore) Store(ctx context.Context, sessionID string, state *SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = state
	return nil
}

// Delete removes the session state for the given session ID.
func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
