// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mcpcore/sdk/jsonrpc"
)

// StdioTransport is a Transport that communicates over newline-delimited
// JSON-RPC messages on the given reader and writer. It has no notion of a
// session identifier, since a stdio pipe serves exactly one peer.
type StdioTransport struct {
	Reader io.Reader
	Writer io.Writer
}

// NewStdioTransport returns a StdioTransport reading stdin and writing
// stdout, the conventional wiring for an MCP server launched as a child
// process.
func NewStdioTransport() *StdioTransport {
	return &StdioTransport{}
}

// Connect returns the single Connection for this transport. It never fails.
func (t *StdioTransport) Connect(ctx context.Context) (Connection, error) {
	r, w := t.Reader, t.Writer
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 32*1024*1024)
	return &stdioConn{scanner: scanner, w: w}, nil
}

type stdioConn struct {
	scanner *bufio.Scanner
	w       io.Writer
	wmu     sync.Mutex
}

func (c *stdioConn) Read(ctx context.Context) (jsonrpc.Message, error) {
	type result struct {
		msg jsonrpc.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		if !c.scanner.Scan() {
			err := c.scanner.Err()
			if err == nil {
				err = io.EOF
			}
			ch <- result{nil, err}
			return
		}
		line := c.scanner.Bytes()
		msg, err := jsonrpc.DecodeMessage(line)
		if err != nil {
			ch <- result{nil, fmt.Errorf("decoding stdio message: %w", err)}
			return
		}
		ch <- result{msg, nil}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.msg, r.err
	}
}

func (c *stdioConn) Write(ctx context.Context, msg jsonrpc.Message) error {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing stdio message: %w", err)
	}
	return nil
}

// Close is a no-op: stdin/stdout are owned by the process, not the
// connection, so closing them here would make them unusable by anything
// else running afterward.
func (c *stdioConn) Close() error {
	return nil
}

func (c *stdioConn) SessionID() string { return "" }

// LoggingTransport wraps another Transport, copying every message read and
// written to Log for debugging. It is typically placed between a
// StdioTransport and the Server/Client, writing to os.Stderr.
type LoggingTransport struct {
	Transport Transport
	Log       io.Writer
}

// NewLoggingTransport wraps t so that every message passing through it is
// also written to w, one JSON value per line, prefixed to indicate
// direction.
func NewLoggingTransport(t Transport, w io.Writer) *LoggingTransport {
	return &LoggingTransport{Transport: t, Log: w}
}

func (t *LoggingTransport) Connect(ctx context.Context) (Connection, error) {
	conn, err := t.Transport.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &loggingConn{Connection: conn, log: t.Log}, nil
}

type loggingConn struct {
	Connection
	log io.Writer
	mu  sync.Mutex
}

func (c *loggingConn) Read(ctx context.Context) (jsonrpc.Message, error) {
	msg, err := c.Connection.Read(ctx)
	if err == nil {
		c.logLine("<-", msg)
	}
	return msg, err
}

func (c *loggingConn) Write(ctx context.Context, msg jsonrpc.Message) error {
	c.logLine("->", msg)
	return c.Connection.Write(ctx, msg)
}

func (c *loggingConn) logLine(dir string, msg jsonrpc.Message) {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		data = []byte(fmt.Sprintf("<!%s>", err))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.log, "%s %s %s\n", time.Now().Format(time.RFC3339Nano), dir, data)
}
