// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build mcp_go_client_oauth

package oauthex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	internaljson "github.com/mcpcore/sdk/internal/json"
)

// getJSON issues a GET request to urlStr using c (or http.DefaultClient if
// nil), decodes the response body as a T, and returns it. The response body
// is capped at maxBytes to bound memory use against a misbehaving server.
func getJSON[T any](ctx context.Context, c *http.Client, urlStr string, maxBytes int64) (*T, error) {
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", urlStr, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	var v T
	if err := internaljson.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decoding JSON from %s: %w", urlStr, err)
	}
	return &v, nil
}

// checkURLScheme rejects URLs whose scheme is neither http nor https, to
// guard against an authorization server returning a javascript: or data:
// URL that a naive caller might later open in a browser (see #526).
func checkURLScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return nil
	default:
		return fmt.Errorf("URL %q has disallowed scheme %q", rawURL, u.Scheme)
	}
}
