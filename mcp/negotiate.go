// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

// latestProtocolVersion is the protocol version this package implements
// fully; it is offered by clients and preferred by servers.
const latestProtocolVersion = "2025-06-18"

// supportedProtocolVersions lists every wire version this implementation can
// speak, newest first.
var supportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
}

// negotiateProtocolVersion implements the server side of version
// negotiation: if the client's requested version is one we support, it is
// echoed back; otherwise the server's newest supported version is offered,
// per the MCP initialize handshake.
func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range supportedProtocolVersions {
		if v == clientVersion {
			return clientVersion
		}
	}
	return latestProtocolVersion
}

// supportsProtocolVersion reports whether v is a version this
// implementation can speak.
func supportsProtocolVersion(v string) bool {
	for _, s := range supportedProtocolVersions {
		if s == v {
			return true
		}
	}
	return false
}

// negotiateServerCapabilities builds the ServerCapabilities advertised in
// the initialize response from the capabilities a Server was actually
// configured with; it never depends on what the client requested, since the
// spec defines capabilities as independently-advertised, not intersected.
func negotiateServerCapabilities(s *ServerCapabilities) *ServerCapabilities {
	if s == nil {
		return &ServerCapabilities{}
	}
	return s.clone()
}

// clientSupportsSampling, clientSupportsElicitation and clientSupportsRoots
// report whether the client's negotiated capabilities
// include sampling, elicitation, or roots support, as recorded at
// initialize time. Servers must consult this before issuing the
// corresponding client-invoked requests.
func clientSupportsSampling(c *ClientCapabilities) bool {
	return c != nil && c.Sampling != nil
}

func clientSupportsElicitation(c *ClientCapabilities) bool {
	return c != nil && c.Elicitation != nil
}

func clientSupportsRoots(c *ClientCapabilities) bool {
	return c != nil && (c.RootsV2 != nil || c.Roots.ListChanged)
}
