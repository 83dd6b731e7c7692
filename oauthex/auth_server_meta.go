// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// This file implements OAuth 2.0 Authorization Server Metadata (RFC 8414)
// discovery and Dynamic Client Registration (RFC 7591).

//go:build mcp_go_client_oauth

package oauthex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	internaljson "github.com/mcpcore/sdk/internal/json"
)

// AuthServerMeta is OAuth 2.0 Authorization Server Metadata, as defined by
// RFC 8414.
type AuthServerMeta struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                     string   `json:"token_endpoint,omitempty"`
	RegistrationEndpoint              string   `json:"registration_endpoint,omitempty"`
	JWKSURI                           string   `json:"jwks_uri,omitempty"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported               []string `json:"grant_types_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported,omitempty"`
	// ClientIDMetadataDocumentSupported reports whether the authorization
	// server accepts Client ID Metadata Document based client identifiers
	// (SEP-991), rather than requiring preregistration or dynamic
	// registration.
	ClientIDMetadataDocumentSupported bool `json:"client_id_metadata_document_supported,omitempty"`
}

// SupportsS256 reports whether the authorization server advertises support
// for the S256 PKCE code challenge method.
func (m *AuthServerMeta) SupportsS256() bool {
	for _, cm := range m.CodeChallengeMethodsSupported {
		if cm == "S256" {
			return true
		}
	}
	return false
}

const (
	oauthWellKnownPath = "/.well-known/oauth-authorization-server"
	oidcWellKnownPath  = "/.well-known/openid-configuration"
)

// GetAuthServerMeta fetches Authorization Server Metadata for the
// authorization server at authServerURL, trying the RFC 8414 well-known
// path and falling back to the OpenID Connect discovery path. It returns
// (nil, nil) if the server has neither.
func GetAuthServerMeta(ctx context.Context, authServerURL string, c *http.Client) (_ *AuthServerMeta, err error) {
	u, err := url.Parse(authServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid authorization server URL %q: %w", authServerURL, err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	base := u.Scheme + "://" + u.Host
	trimmedPath := strings.TrimRight(u.Path, "/")

	for _, suffix := range []string{oauthWellKnownPath, oidcWellKnownPath} {
		candidate := base + trimmedPath + suffix
		meta, getErr := getJSON[AuthServerMeta](ctx, c, candidate, 1<<20)
		if getErr == nil {
			for _, asURL := range meta.AuthorizationServers() {
				if schemeErr := checkURLScheme(asURL); schemeErr != nil {
					return nil, schemeErr
				}
			}
			return meta, nil
		}
	}
	return nil, nil
}

// AuthorizationServers returns the endpoint URLs worth scheme-validating
// before they're used to build a redirect or request.
func (m *AuthServerMeta) AuthorizationServers() []string {
	var urls []string
	if m.AuthorizationEndpoint != "" {
		urls = append(urls, m.AuthorizationEndpoint)
	}
	if m.TokenEndpoint != "" {
		urls = append(urls, m.TokenEndpoint)
	}
	if m.RegistrationEndpoint != "" {
		urls = append(urls, m.RegistrationEndpoint)
	}
	return urls
}

// ClientRegistrationMetadata is a Dynamic Client Registration request, as
// defined by RFC 7591 ยง2.
type ClientRegistrationMetadata struct {
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// ClientInfo is the authorization server's response to a Dynamic Client
// Registration request, as defined by RFC 7591 ยง3.2.1.
type ClientInfo struct {
	ClientID                string `json:"client_id"`
	ClientSecret            string `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64  `json:"client_id_issued_at,omitempty"`
	ClientSecretExpiresAt   int64  `json:"client_secret_expires_at,omitempty"`
	TokenEndpointAuthMethod string `json:"token_endpoint_auth_method,omitempty"`
}

// oauthRegistrationError is the error response shape defined by RFC 7591
// ยง3.2.2.
type oauthRegistrationError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RegisterClient performs Dynamic Client Registration (RFC 7591) against
// registrationEndpoint, using c (or http.DefaultClient if nil), and returns
// the resulting client credentials.
func RegisterClient(ctx context.Context, registrationEndpoint string, metadata *ClientRegistrationMetadata, c *http.Client) (*ClientInfo, error) {
	if registrationEndpoint == "" {
		return nil, errors.New("server metadata does not contain a registration_endpoint")
	}
	if err := checkURLScheme(registrationEndpoint); err != nil {
		return nil, err
	}
	if c == nil {
		c = http.DefaultClient
	}
	body, err := internaljson.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling registration request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, registrationEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registration request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading registration response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var regErr oauthRegistrationError
		if jsonErr := internaljson.Unmarshal(respBody, &regErr); jsonErr == nil && regErr.Error != "" {
			return nil, fmt.Errorf("registration failed: %s (%s)", regErr.Error, regErr.ErrorDescription)
		}
		return nil, fmt.Errorf("registration failed with status %s", resp.Status)
	}

	var info ClientInfo
	if err := internaljson.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("decoding registration response: %w", err)
	}
	if info.ClientID == "" {
		return nil, errors.New("registration response is missing required 'client_id' field")
	}
	return &info, nil
}
