// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"github.com/mcpcore/sdk/jsonrpc"
)

// Type aliases giving the mcp package its own names for the wire types
// defined in jsonrpc, so the rest of this package (and callers) never need
// to import jsonrpc directly for ordinary message handling.
type (
	JSONRPCMessage      = jsonrpc.Message
	JSONRPCID           = jsonrpc.ID
	JSONRPCRequest      = jsonrpc.Request
	JSONRPCResponse     = jsonrpc.Response
	JSONRPCNotification = jsonrpc.Notification
)

// Meta is reserved by the protocol to let clients and servers attach
// additional metadata to requests, results, and notifications. It is
// embedded anonymously by every params/result type in protocol.go so that
// it marshals as the top-level "_meta" field.
//
// The reserved "progressToken" key is used to correlate progress
// notifications with the request that is proceeding; it is accessed via
// GetProgressToken/SetProgressToken rather than directly.
type Meta map[string]any

// progressTokenKey is the reserved _meta key carrying a progress token.
const progressTokenKey = "progressToken"

// metaHolder is implemented by every params/result struct by virtue of
// embedding Meta: the embedded field's pointer-receiver methods are promoted
// to the enclosing type.
type metaHolder interface {
	getMetaField() Meta
	setMetaField(Meta)
}

func (m *Meta) getMetaField() Meta { return *m }

func (m *Meta) setMetaField(v Meta) { *m = v }

// getProgressToken is called by each params type's GetProgressToken method.
func getProgressToken(x metaHolder) any {
	m := x.getMetaField()
	if m == nil {
		return nil
	}
	return m[progressTokenKey]
}

// setProgressToken is called by each params type's SetProgressToken method.
func setProgressToken(x metaHolder, t any) {
	m := x.getMetaField()
	if m == nil {
		m = Meta{}
	}
	m[progressTokenKey] = t
	x.setMetaField(m)
}

// Params is implemented by every request/notification parameter type
// defined in protocol.go. The isParams marker method keeps arbitrary types
// from satisfying the interface by accident.
type Params interface {
	isParams()
	GetProgressToken() any
	SetProgressToken(any)
}

// Result is implemented by every result type defined in protocol.go. The
// isResult marker method keeps arbitrary types from satisfying the
// interface by accident.
type Result interface {
	isResult()
}

// emptyResult is returned by methods (such as "ping" or "notifications/*")
// that carry no meaningful result payload beyond _meta.
type emptyResult struct {
	Meta `json:"_meta,omitempty"`
}

func (x *emptyResult) isResult() {}
