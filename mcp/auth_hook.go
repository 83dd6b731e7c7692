// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"fmt"
	"net/http"

	"github.com/mcpcore/sdk/internal/util"
)

// A Principal identifies the caller an [Authenticator] admitted.
type Principal struct {
	// ID is an opaque identifier for the caller, used as the rate-limit
	// and audit-log key. It need not be human readable.
	ID string
	// Scopes lists what the caller is authorized to do, for handlers that
	// want to enforce finer-grained access than "connected or not."
	Scopes []string
}

// AuthError is returned by an [Authenticator] to control the HTTP status
// code of the rejection.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("authentication failed with status %d", e.Status)
}

// An Authenticator admits or rejects an incoming streamable-HTTP request
// before it reaches any session or transport machinery. Implementations
// should return an *AuthError to control the response status; any other
// error is reported as 401 Unauthorized without leaking whether a session
// exists.
type Authenticator interface {
	Authenticate(req *http.Request) (Principal, error)
}

// AuthenticatorFunc adapts a function to an [Authenticator].
type AuthenticatorFunc func(req *http.Request) (Principal, error)

func (f AuthenticatorFunc) Authenticate(req *http.Request) (Principal, error) { return f(req) }

// originAllowed reports whether req's Origin header is acceptable given
// allowlist. A request with no Origin header (same-origin, or a non-browser
// client like a CLI) is always allowed, since DNS rebinding specifically
// targets browser-issued cross-origin requests. An allowlist entry of "*"
// admits any origin; a nil allowlist admits only origins that resolve to
// loopback, the default posture for a local MCP server.
func originAllowed(req *http.Request, allowlist []string) bool {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range allowlist {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	if allowlist != nil {
		return false
	}
	return originIsLoopback(origin)
}

func originIsLoopback(origin string) bool {
	host, err := parseOriginHost(origin)
	if err != nil {
		return false
	}
	return util.IsLoopback(host)
}

func parseOriginHost(origin string) (string, error) {
	// Origin headers are "scheme://host[:port]" with no path; http.NewRequest
	// parses this shape fine via its URL field, so reuse that parser rather
	// than hand-rolling one.
	req, err := http.NewRequest(http.MethodGet, origin, nil)
	if err != nil {
		return "", err
	}
	return req.URL.Hostname(), nil
}
