// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/mcpcore/sdk/jsonrpc"
)

// event is a single parsed Server-Sent Event.
type event struct {
	name string
	id   string
	data []byte
}

// writeEvent writes a single SSE event to w, framed per the SSE wire format:
// an optional "id:" line, an optional "event:" line, one or more "data:"
// lines (one per line of payload), and a terminating blank line.
//
// It returns the number of bytes written.
func writeEvent(w io.Writer, evt event) (int, error) {
	var buf bytes.Buffer
	if evt.id != "" {
		fmt.Fprintf(&buf, "id: %s\n", evt.id)
	}
	if evt.name != "" {
		fmt.Fprintf(&buf, "event: %s\n", evt.name)
	}
	for _, line := range bytes.Split(evt.data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	n, err := w.Write(buf.Bytes())
	if f, ok := w.(interface{ Flush() }); ok {
		f.Flush()
	}
	return n, err
}

// scanEvents parses the SSE stream read from r, yielding one event at a
// time. Comment lines (starting with ':') are used as heartbeats and are
// skipped; they never appear in the yielded sequence.
//
// The sequence ends with a final (zero, io.EOF) pair when r is exhausted, or
// (zero, err) if a read error occurred.
func scanEvents(r io.Reader) iter.Seq2[event, error] {
	return func(yield func(event, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

		var cur event
		var data bytes.Buffer
		haveEvent := false

		emit := func() bool {
			if !haveEvent {
				return true
			}
			cur.data = append([]byte(nil), bytes.TrimSuffix(data.Bytes(), []byte("\n"))...)
			ok := yield(cur, nil)
			cur = event{}
			data.Reset()
			haveEvent = false
			return ok
		}

		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if !emit() {
					return
				}
			case strings.HasPrefix(line, ":"):
				// heartbeat/comment; ignore
			case strings.HasPrefix(line, "id:"):
				cur.id = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
				haveEvent = true
			case strings.HasPrefix(line, "event:"):
				cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				haveEvent = true
			case strings.HasPrefix(line, "data:"):
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
				data.WriteByte('\n')
				haveEvent = true
			default:
				// Unrecognized field; ignore per the SSE spec.
			}
		}
		if err := scanner.Err(); err != nil {
			yield(event{}, err)
			return
		}
		// Flush a trailing event not terminated by a blank line.
		if !emit() {
			return
		}
		yield(event{}, io.EOF)
	}
}

// readBatch decodes an HTTP request/response body as either a single
// JSON-RPC message or a batch array, delegating to jsonrpc.ReadBatch.
func readBatch(body []byte) ([]JSONRPCMessage, bool, error) {
	return jsonrpc.ReadBatch(body)
}
