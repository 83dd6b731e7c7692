// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package json provides internal JSON utilities.

package json

import (
	"fmt"

	"github.com/segmentio/encoding/json"
)

// Unmarshal decodes data into v using segmentio/encoding/json, a drop-in
// replacement for encoding/json tuned for the small, high-frequency decodes
// the wire protocol produces. Unlike encoding/json, object keys are matched
// to struct fields case-sensitively. DisallowUnknownFields is intentionally
// NOT set: unrecognized fields are how the protocol stays forward compatible
// with newer clients and servers.
func Unmarshal(data []byte, v any) error {
	rest, err := json.Parse(data, v, json.DontMatchCaseInsensitiveStructFields)
	if err == nil && len(rest) != 0 {
		return fmt.Errorf("invalid character %q after top-level value", rest[0])
	}
	return err
}

// Marshal encodes v using segmentio/encoding/json.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
