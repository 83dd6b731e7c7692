// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidToken is returned by a TokenVerifier when the presented token
// is malformed, unknown, or has been revoked.
var ErrInvalidToken = errors.New("invalid token")

// ErrOAuth is returned by a TokenVerifier when the authorization server
// itself reported an OAuth-level error (e.g. the token endpoint rejected
// the request), as distinct from the token simply being invalid.
var ErrOAuth = errors.New("oauth error")

// TokenInfo describes a verified bearer token.
type TokenInfo struct {
	// Expiration is when the token stops being valid. The zero value is
	// treated as "never verified an expiration", which RequireBearerToken
	// rejects rather than treating as non-expiring.
	Expiration time.Time
	// Scopes lists the OAuth scopes granted to the token.
	Scopes []string
	// Subject identifies the principal the token was issued to, if known.
	Subject string
}

func (t *TokenInfo) hasScope(scope string) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// TokenVerifier validates a bearer token extracted from an incoming
// request and returns what it learned about it.
type TokenVerifier func(ctx context.Context, token string, req *http.Request) (*TokenInfo, error)

// RequireBearerTokenOptions configures [RequireBearerToken].
type RequireBearerTokenOptions struct {
	// Scopes lists the scopes a token must carry to be admitted. A token
	// missing any listed scope is rejected with 403 Forbidden.
	Scopes []string
	// ResourceMetadataURL, if set, is advertised in the WWW-Authenticate
	// header of rejected requests per RFC 9728, pointing clients at the
	// protected resource metadata they need to start an OAuth flow.
	ResourceMetadataURL string
}

// RequireBearerToken returns HTTP middleware that verifies the
// Authorization header of every request using verifier, rejecting requests
// with a missing, invalid, expired, or insufficiently-scoped token before
// they reach next.
//
// It does not forward the client's Authorization header to any request
// next's handler makes on its own behalf: per the MCP security best
// practices, a server must not pass a token it received through to
// downstream services unless that token was explicitly issued for them.
func RequireBearerToken(verifier TokenVerifier, opts *RequireBearerTokenOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			info, msg, code := verify(req, verifier, opts)
			if code != 0 {
				if opts != nil && opts.ResourceMetadataURL != "" {
					w.Header().Set("WWW-Authenticate", "Bearer resource_metadata="+opts.ResourceMetadataURL)
				}
				http.Error(w, msg, code)
				return
			}
			next.ServeHTTP(w, req.WithContext(withTokenInfo(req.Context(), info)))
		})
	}
}

type tokenInfoContextKey struct{}

func withTokenInfo(ctx context.Context, info *TokenInfo) context.Context {
	return context.WithValue(ctx, tokenInfoContextKey{}, info)
}

// TokenInfoFromContext returns the TokenInfo verified by
// [RequireBearerToken] for the current request, or nil if the request did
// not pass through that middleware.
func TokenInfoFromContext(ctx context.Context) *TokenInfo {
	info, _ := ctx.Value(tokenInfoContextKey{}).(*TokenInfo)
	return info
}

// verify extracts and checks the bearer token on req, returning the
// verified TokenInfo on success or an HTTP status/message pair describing
// why the request was rejected.
func verify(req *http.Request, verifier TokenVerifier, opts *RequireBearerTokenOptions) (*TokenInfo, string, int) {
	auth := req.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, "no bearer token", http.StatusUnauthorized
	}

	info, err := verifier(req.Context(), token, req)
	switch {
	case errors.Is(err, ErrOAuth):
		return nil, "oauth error", http.StatusBadRequest
	case errors.Is(err, ErrInvalidToken):
		return nil, "invalid token", http.StatusUnauthorized
	case err != nil:
		return nil, fmt.Sprintf("token verification failed: %v", err), http.StatusUnauthorized
	}

	if info.Expiration.IsZero() {
		return nil, "token missing expiration", http.StatusUnauthorized
	}
	if info.Expiration.Before(time.Now()) {
		return nil, "token expired", http.StatusUnauthorized
	}

	if opts != nil {
		for _, s := range opts.Scopes {
			if !info.hasScope(s) {
				return nil, "insufficient scope", http.StatusForbidden
			}
		}
	}

	return info, "", 0
}
