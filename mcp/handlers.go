// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcpcore/sdk/jsonrpc"
)

// unmarshalParams decodes raw into the concrete Params type registered for
// method. clientSide selects between the handful of methods that carry
// different payloads depending on which peer is the recipient (currently
// none do, but the flag is threaded through for symmetry with
// [Client]/[Server] dispatch).
func unmarshalParams(method string, raw json.RawMessage, clientSide bool) (Params, error) {
	var p Params
	switch method {
	case methodInitialize:
		p = &InitializeParams{}
	case notificationInitialized:
		p = &InitializedParams{}
	case methodPing:
		p = &PingParams{}
	case methodListTools:
		p = &ListToolsParams{}
	case methodCallTool:
		p = &CallToolParamsRaw{}
	case methodListResources:
		p = &ListResourcesParams{}
	case methodListResourceTemplates:
		p = &ListResourceTemplatesParams{}
	case methodReadResource:
		p = &ReadResourceParams{}
	case methodSubscribe:
		p = &SubscribeParams{}
	case methodUnsubscribe:
		p = &UnsubscribeParams{}
	case methodListPrompts:
		p = &ListPromptsParams{}
	case methodGetPrompt:
		p = &GetPromptParams{}
	case methodComplete:
		p = &CompleteParams{}
	case methodSetLevel:
		p = &SetLoggingLevelParams{}
	case methodCreateMessage:
		p = &CreateMessageParams{}
	case methodElicit:
		p = &ElicitParams{}
	case notificationElicitationComplete:
		p = &ElicitationCompleteParams{}
	case methodListRoots:
		p = &ListRootsParams{}
	case notificationLoggingMessage:
		p = &LoggingMessageParams{}
	case notificationProgress:
		p = &ProgressNotificationParams{}
	case notificationCancelled:
		p = &CancelledParams{}
	case notificationToolListChanged:
		p = &ToolListChangedParams{}
	case notificationResourceListChanged:
		p = &ResourceListChangedParams{}
	case notificationResourceUpdated:
		p = &ResourceUpdatedNotificationParams{}
	case notificationPromptListChanged:
		p = &PromptListChangedParams{}
	case notificationRootsListChanged:
		p = &RootsListChangedParams{}
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
	if err := internalUnmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("unmarshaling params for %q: %w", method, err)
	}
	return p, nil
}

// baseHandler returns the MethodHandler implementing the server's core
// business logic, before any user middleware is applied. Lifecycle-special
// methods (initialize's phase transition, notifications/cancelled,
// notifications/initialized) are handled directly by ServerSession and never
// reach here.
func (s *Server) baseHandler() MethodHandler[*ServerSession] {
	return func(ctx context.Context, ss *ServerSession, method string, params Params) (Result, error) {
		switch method {
		case methodInitialize:
			return ss.handleInitialize(ctx, params.(*InitializeParams))
		case methodPing:
			return &emptyResult{}, nil
		case methodListTools:
			return s.handleListTools(ctx, params.(*ListToolsParams))
		case methodCallTool:
			return s.handleCallTool(ctx, ss, params.(*CallToolParamsRaw))
		case methodListResources:
			return s.handleListResources(ctx, params.(*ListResourcesParams))
		case methodListResourceTemplates:
			return s.handleListResourceTemplates(ctx, params.(*ListResourceTemplatesParams))
		case methodReadResource:
			return s.handleReadResource(ctx, ss, params.(*ReadResourceParams))
		case methodSubscribe:
			return ss.handleSubscribe(params.(*SubscribeParams))
		case methodUnsubscribe:
			return ss.handleUnsubscribe(params.(*UnsubscribeParams))
		case methodListPrompts:
			return s.handleListPrompts(ctx, params.(*ListPromptsParams))
		case methodGetPrompt:
			return s.handleGetPrompt(ctx, ss, params.(*GetPromptParams))
		case methodComplete:
			return s.handleComplete(ctx, params.(*CompleteParams))
		case methodSetLevel:
			return ss.handleSetLevel(params.(*SetLoggingLevelParams))
		default:
			return nil, fmt.Errorf("%w: %q", jsonrpc.ErrMethodNotFound, method)
		}
	}
}

func toJSONRPCError(err error) *jsonrpc.Error {
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return jsonrpc.NewError(jsonrpc.CodeFor(err), err.Error(), nil)
}

// toJSONRPCID converts a JSON-decoded request identifier carried in an any
// field (as CancelledParams.RequestID is, since it names an id the protocol
// treats as opaque) into a jsonrpc.ID. JSON numbers decode to float64, so
// that case is handled explicitly alongside the string and already-typed
// forms.
func toJSONRPCID(v any) (jsonrpc.ID, bool) {
	switch x := v.(type) {
	case string:
		return jsonrpc.StringID(x), true
	case float64:
		return jsonrpc.IntID(int64(x)), true
	case int64:
		return jsonrpc.IntID(x), true
	case int:
		return jsonrpc.IntID(int64(x)), true
	case jsonrpc.ID:
		return x, true
	default:
		return jsonrpc.ID{}, false
	}
}
