// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"io"
	"sync"
)

// NewInMemoryTransports returns two [Transport] values wired directly to
// each other through channels, without any serialization or real I/O. One
// is meant for a [Client], the other for a [Server]; connecting both yields
// a working session useful for tests and in-process embedding.
func NewInMemoryTransports() (clientTransport, serverTransport Transport) {
	c2s := make(chan JSONRPCMessage, 16)
	s2c := make(chan JSONRPCMessage, 16)
	closed := make(chan struct{})
	var once sync.Once

	client := &inMemoryTransport{read: s2c, write: c2s, closed: closed, closeOnce: &once}
	server := &inMemoryTransport{read: c2s, write: s2c, closed: closed, closeOnce: &once}
	return client, server
}

// inMemoryTransport is a [Transport] and [Connection] backed by channels
// shared with its peer. Connect is a no-op: the channels are already live.
type inMemoryTransport struct {
	read      <-chan JSONRPCMessage
	write     chan<- JSONRPCMessage
	closed    chan struct{}
	closeOnce *sync.Once
}

func (t *inMemoryTransport) Connect(ctx context.Context) (Connection, error) {
	return t, nil
}

func (t *inMemoryTransport) Read(ctx context.Context) (JSONRPCMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, io.EOF
	case msg, ok := <-t.read:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	}
}

func (t *inMemoryTransport) Write(ctx context.Context, msg JSONRPCMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.closed:
		return io.EOF
	case t.write <- msg:
		return nil
	}
}

func (t *inMemoryTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *inMemoryTransport) SessionID() string { return "" }
