// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jsonrpc defines the wire-level JSON-RPC 2.0 message types shared by
// every MCP transport: the request/response/notification envelopes, the
// reserved error codes, and the encode/decode functions that discriminate
// between them.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mcpcore/sdk/internal/jsonrpc2"
	"github.com/mcpcore/sdk/internal/mcpgodebug"
)

// Version is the only JSON-RPC version this package understands.
const Version = "2.0"

// Reserved JSON-RPC and MCP-specific error codes.
//
// The first five are mandated by the JSON-RPC 2.0 spec; the rest are
// MCP-specific extensions in the range reserved for implementation-defined
// server errors.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeRequestFailed     = -32000 // initialize failure, request timeout, or expired session
	CodeCapabilityMissing = -32001
	CodeResourceNotFound  = -32002
	CodeToolExecution     = -32003
	CodeInvalidURI        = -32004
	CodeAccessDenied      = -32005
)

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("jsonrpc: code %d: %s", e.Code, e.Message)
}

// NewError constructs an *Error with the given code and message.
func NewError(code int, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// ID is a JSON-RPC request identifier: either a string (at most 1000
// characters) or an integer in [-999_999_999, 999_999_999]. The zero value is
// invalid (neither a valid string nor integer id was set).
type ID struct {
	s    string
	n    int64
	kind idKind
}

type idKind uint8

const (
	idInvalid idKind = iota
	idString
	idInt
)

const (
	maxIDStringLen = 1000
	minIDInt       = -999_999_999
	maxIDInt       = 999_999_999
)

// StringID returns an ID holding a string value.
func StringID(s string) ID { return ID{s: s, kind: idString} }

// IntID returns an ID holding an integer value.
func IntID(n int64) ID { return ID{n: n, kind: idInt} }

// IsValid reports whether id was explicitly set (as opposed to the zero
// value, which never correlates with a real request) and lies within the
// string-length or integer-range bounds above.
func (id ID) IsValid() bool {
	switch id.kind {
	case idString:
		return len(id.s) <= maxIDStringLen
	case idInt:
		return id.n >= minIDInt && id.n <= maxIDInt
	default:
		return false
	}
}

// Raw returns the underlying string or int64 value, or nil if id is invalid.
func (id ID) Raw() any {
	switch id.kind {
	case idString:
		return id.s
	case idInt:
		return id.n
	default:
		return nil
	}
}

func (id ID) String() string {
	switch id.kind {
	case idString:
		return id.s
	case idInt:
		return strconv.FormatInt(id.n, 10)
	default:
		return "<invalid>"
	}
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idString:
		return json.Marshal(id.s)
	case idInt:
		return json.Marshal(id.n)
	default:
		return nil, fmt.Errorf("jsonrpc: cannot marshal invalid id")
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID{s: s, kind: idString}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID{n: n, kind: idInt}
		return nil
	}
	return fmt.Errorf("jsonrpc: id must be a string or integer, got %s", data)
}

// Message is implemented by *Request, *Response, and *Notification.
type Message interface {
	isMessage()
}

// Request is a JSON-RPC request: it carries an id and expects exactly one
// Response.
type Request struct {
	ID     ID              `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (*Request) isMessage() {}

// Response is a JSON-RPC response: exactly one of Result or Error is set.
type Response struct {
	ID     ID              `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

func (*Response) isMessage() {}

// Notification is a JSON-RPC message with no id; no response is expected.
type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (*Notification) isMessage() {}

// wireEnvelope is the union of fields across all three message shapes, used
// to discriminate an incoming frame before picking a concrete type.
type wireEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// DecodeMessage discriminates data into exactly one of *Request, *Response,
// or *Notification, per the JSON-RPC 2.0 shape rules in the MCP spec.
//
// By default it rejects frames with case-variant or unknown field names
// (see [jsonrpc2.StrictUnmarshal]). Setting MCPGODEBUG=laxjsonrpc=1 falls
// back to ordinary case-insensitive decoding, for a deployment that must
// keep talking to a peer emitting such frames while it is fixed.
func DecodeMessage(data []byte) (Message, error) {
	var env wireEnvelope
	var err error
	if mcpgodebug.Value("laxjsonrpc") == "1" {
		err = json.Unmarshal(data, &env)
	} else {
		err = jsonrpc2.StrictUnmarshal(data, &env)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if env.JSONRPC != Version {
		return nil, fmt.Errorf("%w: missing or invalid jsonrpc version", ErrInvalidRequest)
	}

	hasResult := env.Result != nil
	hasError := env.Error != nil

	switch {
	case env.Method != "" && env.ID != nil:
		return &Request{ID: *env.ID, Method: env.Method, Params: env.Params}, nil
	case env.Method != "" && env.ID == nil:
		return &Notification{Method: env.Method, Params: env.Params}, nil
	case env.ID != nil && (hasResult || hasError):
		if hasResult && hasError {
			return nil, fmt.Errorf("%w: response has both result and error", ErrInvalidRequest)
		}
		return &Response{ID: *env.ID, Result: env.Result, Error: env.Error}, nil
	default:
		return nil, fmt.Errorf("%w: message is neither a request, response, nor notification", ErrInvalidRequest)
	}
}

// EncodeMessage marshals msg to its wire form.
func EncodeMessage(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *Request:
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      ID              `json:"id"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params,omitempty"`
		}{Version, m.ID, m.Method, m.Params})
	case *Response:
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      ID              `json:"id"`
			Result  json.RawMessage `json:"result,omitempty"`
			Error   *Error          `json:"error,omitempty"`
		}{Version, m.ID, m.Result, m.Error})
	case *Notification:
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params,omitempty"`
		}{Version, m.Method, m.Params})
	default:
		return nil, fmt.Errorf("jsonrpc: unknown message type %T", msg)
	}
}

// ReadBatch decodes data as either a single JSON-RPC message or a JSON array
// of messages. MCP does not require batch support; batches are accepted for
// parsing but a transport MAY reject them with ErrInvalidRequest.
func ReadBatch(data []byte) ([]Message, bool, error) {
	trimmed := trimSpace(data)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("%w: empty body", ErrParse)
	}
	if trimmed[0] != '[' {
		msg, err := DecodeMessage(data)
		if err != nil {
			return nil, false, err
		}
		return []Message{msg}, false, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrParse, err)
	}
	msgs := make([]Message, 0, len(raws))
	for _, r := range raws {
		msg, err := DecodeMessage(r)
		if err != nil {
			return nil, true, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, true, nil
}

func trimSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}

// Sentinel errors classifying decode failures; wrap with fmt.Errorf("%w", ...)
// so callers can map them to the reserved codes via errors.Is.
var (
	ErrParse          = fmt.Errorf("parse error")
	ErrInvalidRequest = fmt.Errorf("invalid request")
	ErrMethodNotFound = fmt.Errorf("method not found")
	ErrInvalidParams  = fmt.Errorf("invalid params")
)

// CodeFor maps a decode-time sentinel error to its reserved JSON-RPC code.
func CodeFor(err error) int {
	switch {
	case errors.Is(err, ErrParse):
		return CodeParseError
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrMethodNotFound):
		return CodeMethodNotFound
	case errors.Is(err, ErrInvalidParams):
		return CodeInvalidParams
	default:
		return CodeInternalError
	}
}
