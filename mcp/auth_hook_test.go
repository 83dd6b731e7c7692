// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name      string
		origin    string
		allowlist []string
		want      bool
	}{
		{"no origin header", "", nil, true},
		{"loopback default", "http://127.0.0.1:8080", nil, true},
		{"localhost default", "http://localhost:8080", nil, true},
		{"remote default rejected", "https://evil.example", nil, false},
		{"wildcard allows anything", "https://evil.example", []string{"*"}, true},
		{"exact match", "https://app.example", []string{"https://app.example"}, true},
		{"no match in allowlist", "https://other.example", []string{"https://app.example"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://server.invalid/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := originAllowed(req, tt.allowlist); got != tt.want {
				t.Errorf("originAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowlist, got, tt.want)
			}
		})
	}
}

func TestAuthenticatorRejection(t *testing.T) {
	server := NewServer(testImpl, nil)
	handler := NewStreamableHTTPHandler(
		func(*http.Request) *Server { return server },
		&StreamableHTTPOptions{
			Authenticator: AuthenticatorFunc(func(req *http.Request) (Principal, error) {
				if req.Header.Get("Authorization") == "Bearer good" {
					return Principal{ID: "user-1"}, nil
				}
				return Principal{}, &AuthError{Status: http.StatusUnauthorized, Message: "bad token"}
			}),
		},
	)
	httpServer := httptest.NewServer(handler)
	defer httpServer.Close()

	req, _ := http.NewRequest(http.MethodGet, httpServer.URL, nil)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
