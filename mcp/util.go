// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"crypto/rand"
	"encoding/json"
)

// invariant panics with msg if cond does not hold. Used to guard conditions
// that a correct caller inside this package can never violate, as opposed to
// user input, which must be rejected with an error instead.
func invariant(cond bool, msg string) {
	if !cond {
		panic(msg)
	}
}

// newOpaqueID returns a random, unguessable identifier suitable for session
// and request correlation IDs.
func newOpaqueID() string {
	return rand.Text()
}

// reshape round-trips from through JSON encoding into to, which must be a
// pointer. It's used to convert between wire structs and the loosely typed
// schema/config values (map[string]any, json.RawMessage) scattered through
// the capability and tool-call paths.
func reshape(from, to any) error {
	data, err := json.Marshal(from)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, to); err != nil {
		return err
	}
	return nil
}
