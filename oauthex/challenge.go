// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// This file implements parsing of the WWW-Authenticate header, as defined by
// RFC 7235 ยง4.1 (the auth-param / challenge grammar).

//go:build mcp_go_client_oauth

package oauthex

import (
	"fmt"
	"strings"
)

// A challenge is one auth-scheme, param-list pair parsed out of a
// WWW-Authenticate header, e.g.
//
//	Bearer realm="example", resource_metadata="https://example.com/.well-known/oauth-protected-resource"
//
// parses to challenge{Scheme: "bearer", Params: {"realm": "example", "resource_metadata": "..."}}.
type challenge struct {
	Scheme string
	Params map[string]string
}

// ParseWWWAuthenticate parses the values of one or more WWW-Authenticate
// headers into a list of challenges.
func ParseWWWAuthenticate(headers []string) ([]challenge, error) {
	var cs []challenge
	for _, h := range headers {
		parsed, err := parseChallenges(h)
		if err != nil {
			return nil, fmt.Errorf("parsing WWW-Authenticate header %q: %w", h, err)
		}
		cs = append(cs, parsed...)
	}
	return cs, nil
}

// parseChallenges splits a single WWW-Authenticate header value, which may
// contain multiple comma-separated challenges, each introduced by a scheme
// token followed by a space.
func parseChallenges(header string) ([]challenge, error) {
	var cs []challenge
	rest := strings.TrimSpace(header)
	for rest != "" {
		scheme, tail, ok := strings.Cut(rest, " ")
		if !ok {
			// A bare scheme with no params (e.g. "Bearer").
			cs = append(cs, challenge{Scheme: strings.ToLower(scheme), Params: map[string]string{}})
			break
		}
		params, remainder, err := parseParams(tail)
		if err != nil {
			return nil, err
		}
		cs = append(cs, challenge{Scheme: strings.ToLower(scheme), Params: params})
		rest = strings.TrimSpace(remainder)
	}
	return cs, nil
}

// parseParams parses a comma-separated list of key="value" auth-params,
// stopping (and returning the remainder) when it encounters the start of a
// new challenge, i.e. a bare token not followed by '='.
func parseParams(s string) (map[string]string, string, error) {
	params := map[string]string{}
	for {
		s = strings.TrimSpace(strings.TrimPrefix(s, ","))
		s = strings.TrimSpace(s)
		if s == "" {
			return params, "", nil
		}
		key, tail, ok := strings.Cut(s, "=")
		if !ok {
			// No '=' means this token starts the next challenge.
			return params, s, nil
		}
		key = strings.TrimSpace(key)
		tail = strings.TrimSpace(tail)
		if !strings.HasPrefix(tail, `"`) {
			// Unquoted value: runs until the next comma.
			value, remainder, _ := strings.Cut(tail, ",")
			params[key] = strings.TrimSpace(value)
			s = remainder
			continue
		}
		// Quoted value: find the matching closing quote.
		end := strings.Index(tail[1:], `"`)
		if end < 0 {
			return nil, "", fmt.Errorf("unterminated quoted value for %q", key)
		}
		params[key] = tail[1 : 1+end]
		s = tail[1+end+1:]
	}
}
