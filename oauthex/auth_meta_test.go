// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build mcp_go_client_oauth

package oauthex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMetaParse(t *testing.T) {
	const data = `{
		"issuer": "https://accounts.example.com",
		"authorization_endpoint": "https://accounts.example.com/o/oauth2/auth",
		"token_endpoint": "https://accounts.example.com/o/oauth2/token",
		"registration_endpoint": "https://accounts.example.com/register",
		"code_challenge_methods_supported": ["plain", "S256"]
	}`
	var a AuthServerMeta
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		t.Fatal(err)
	}
	if g, w := a.Issuer, "https://accounts.example.com"; g != w {
		t.Errorf("Issuer = %q, want %q", g, w)
	}
	if !a.SupportsS256() {
		t.Error("SupportsS256() = false, want true")
	}
}

func TestGetAuthServerMeta(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&AuthServerMeta{
			Issuer:                        "http://" + r.Host,
			AuthorizationEndpoint:         "http://" + r.Host + "/authorize",
			TokenEndpoint:                 "http://" + r.Host + "/token",
			RegistrationEndpoint:          "http://" + r.Host + "/register",
			CodeChallengeMethodsSupported: []string{"S256"},
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	meta, err := GetAuthServerMeta(ctx, ts.URL, ts.Client())
	if err != nil {
		t.Fatal(err)
	}
	if meta == nil {
		t.Fatal("GetAuthServerMeta returned nil, nil")
	}
	if !meta.SupportsS256() {
		t.Error("discovered metadata does not advertise S256 support")
	}
	if meta.RegistrationEndpoint == "" {
		t.Error("discovered metadata is missing registration_endpoint")
	}
}

func TestGetAuthServerMetaNotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	meta, err := GetAuthServerMeta(context.Background(), ts.URL, ts.Client())
	if err != nil {
		t.Fatalf("GetAuthServerMeta returned an error for a server with no metadata: %v", err)
	}
	if meta != nil {
		t.Errorf("GetAuthServerMeta = %+v, want nil", meta)
	}
}

func TestRegisterClient(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "want POST", http.StatusMethodNotAllowed)
			return
		}
		var req ClientRegistrationMetadata
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.RedirectURIs) == 0 {
			http.Error(w, "missing redirect_uris", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(&ClientInfo{ClientID: "test-client-id"})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	info, err := RegisterClient(ctx, ts.URL+"/register", &ClientRegistrationMetadata{
		ClientName:   "test client",
		RedirectURIs: []string{"http://localhost:3000/callback"},
	}, ts.Client())
	if err != nil {
		t.Fatal(err)
	}
	if info.ClientID != "test-client-id" {
		t.Errorf("ClientID = %q, want %q", info.ClientID, "test-client-id")
	}
}

func TestRegisterClientNoEndpoint(t *testing.T) {
	_, err := RegisterClient(context.Background(), "", &ClientRegistrationMetadata{}, nil)
	if err == nil {
		t.Fatal("RegisterClient with empty endpoint: got nil error, want non-nil")
	}
}
