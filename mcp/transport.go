// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import "context"

// A Transport establishes a logical bidirectional connection over which
// JSON-RPC messages are exchanged with a single peer.
//
// Transport implementations include [StdioTransport], [StreamableClientTransport],
// [StreamableServerTransport], and [WebSocketClientTransport].
type Transport interface {
	// Connect establishes the connection and returns a [Connection] that can
	// be used to read and write messages until it is closed.
	Connect(ctx context.Context) (Connection, error)
}

// A Connection is a logical bidirectional JSON-RPC message stream with a
// single peer.
//
// Read and Write may be called concurrently; Close must be safe to call
// more than once.
type Connection interface {
	// Read reads the next message from the connection, blocking until one is
	// available or ctx is done. It returns io.EOF when the peer has closed
	// the connection gracefully.
	Read(ctx context.Context) (JSONRPCMessage, error)
	// Write sends a message to the peer.
	Write(ctx context.Context, msg JSONRPCMessage) error
	// Close releases resources associated with the connection. It is safe to
	// call Close multiple times.
	Close() error
	// SessionID returns the identifier associated with this logical session,
	// or the empty string for transports (such as stdio) that carry exactly
	// one implicit session.
	SessionID() string
}
