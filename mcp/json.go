// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"encoding/json"

	internaljson "github.com/mcpcore/sdk/internal/json"
)

// internalMarshal encodes v for the wire. A nil v (e.g. a notification with
// no parameters) marshals to nothing, matching jsonrpc's omitempty framing.
func internalMarshal(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return internaljson.Marshal(v)
}

// internalUnmarshal decodes data into v, applying the same strict-decoding
// rules used for every other message on the wire. An empty data unmarshals
// into the zero value of v without error, since many params/results are
// entirely optional.
func internalUnmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return internaljson.Unmarshal(data, v)
}

// unmarshalStrict is an alias of internalUnmarshal, used at call sites that
// decode a single notification payload rather than a full request/response.
func unmarshalStrict(data json.RawMessage, v any) error {
	return internalUnmarshal(data, v)
}
