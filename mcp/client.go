// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcpcore/sdk/jsonrpc"
)

// A SamplingHandler answers a server's sampling/createMessage request by
// invoking the client's configured LLM.
type SamplingHandler func(ctx context.Context, req *CreateMessageRequest) (*CreateMessageResult, error)

// An ElicitationHandler answers a server's elicitation/create request by
// collecting input from the user.
type ElicitationHandler func(ctx context.Context, req *ElicitRequest) (*ElicitResult, error)

// A RootsHandler returns the filesystem roots the client exposes to servers.
type RootsHandler func(ctx context.Context, req *ListRootsRequest) (*ListRootsResult, error)

// A LoggingHandler receives logging/message notifications forwarded by a
// connected server.
type LoggingHandler func(ctx context.Context, params *LoggingMessageParams)

// ClientOptions configures a [Client].
type ClientOptions struct {
	// CreateMessageHandler answers sampling requests from a connected server.
	// If nil, the client reports that it does not support sampling.
	CreateMessageHandler SamplingHandler
	// ElicitationHandler answers elicitation requests from a connected server.
	// If nil, the client reports that it does not support elicitation.
	ElicitationHandler ElicitationHandler
	// RootsHandler answers roots/list requests from a connected server. If
	// nil, the client reports that it does not support roots.
	RootsHandler RootsHandler
	// LoggingHandler receives logging/message notifications. If nil, log
	// messages are discarded.
	LoggingHandler LoggingHandler
	// Logger receives structured logs describing session lifecycle events.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// KeepAlive, if positive, causes every session opened from this client to
	// periodically ping its server, closing the session if a ping fails to
	// get a response.
	KeepAlive time.Duration
}

// A Client speaks the Model Context Protocol to one or more servers. A
// single Client may open many concurrent ClientSessions; all exported
// methods are safe for concurrent use.
type Client struct {
	impl *Implementation
	opts ClientOptions
	mw   []Middleware[*ClientSession]

	mu sync.Mutex
}

// NewClient creates a Client with the given implementation identity.
func NewClient(impl *Implementation, opts *ClientOptions) *Client {
	c := &Client{impl: impl}
	if opts != nil {
		c.opts = *opts
	}
	if c.opts.Logger == nil {
		c.opts.Logger = slog.Default()
	}
	return c
}

// AddMiddleware appends mw to the chain of middleware applied to every
// method handled by sessions opened from this client.
func (c *Client) AddMiddleware(mw ...Middleware[*ClientSession]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mw = append(c.mw, mw...)
}

func (c *Client) capabilities() *ClientCapabilities {
	caps := &ClientCapabilities{}
	if c.opts.CreateMessageHandler != nil {
		caps.Sampling = &SamplingCapabilities{}
	}
	if c.opts.ElicitationHandler != nil {
		caps.Elicitation = &ElicitationCapabilities{}
	}
	if c.opts.RootsHandler != nil {
		caps.RootsV2 = &RootCapabilities{ListChanged: true}
		caps.Roots.ListChanged = true
	}
	return caps
}

// ClientSessionOptions is reserved for future per-session overrides to
// [Client.Connect]. It currently has no fields.
type ClientSessionOptions struct{}

// Connect establishes a connection over t and performs the initialize
// handshake, blocking until the server has responded (or ctx is done). The
// returned ClientSession is in the operating phase on success.
func (c *Client) Connect(ctx context.Context, t Transport, opts *ClientSessionOptions) (*ClientSession, error) {
	conn, err := t.Connect(ctx)
	if err != nil {
		return nil, err
	}
	cs := &ClientSession{
		client:   c,
		conn:     conn,
		calls:    newCallRegistry(),
		inflight: newInFlightRegistry(),
	}
	go cs.run(ctx)

	res, err := cs.initialize(ctx)
	if err != nil {
		cs.Close()
		return nil, err
	}
	cs.mu.Lock()
	cs.serverCaps = res.Capabilities
	cs.mu.Unlock()
	if err := cs.notify(ctx, notificationInitialized, &InitializedParams{}); err != nil {
		cs.Close()
		return nil, err
	}
	if err := cs.advance(phaseOperating); err != nil {
		cs.Close()
		return nil, err
	}
	if c.opts.KeepAlive > 0 {
		go cs.keepAlive(ctx, c.opts.KeepAlive)
	}
	return cs, nil
}

// keepAlive pings the server every interval until the session closes,
// closing it itself if a ping fails.
func (cs *ClientSession) keepAlive(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-cs.doneCh():
			return
		case <-t.C:
			if err := cs.Ping(ctx, nil); err != nil {
				cs.Close()
				return
			}
		}
	}
}

// A ClientSession is one active connection from a Client to a single
// server, from initialize through shutdown.
type ClientSession struct {
	lifecycle

	client *Client
	conn   Connection

	calls    *callRegistry
	inflight *inFlightRegistry

	mu         sync.Mutex
	serverCaps *ServerCapabilities
	serverInfo *Implementation
	done       chan struct{}
	closeOnce  sync.Once
	runErr     error
}

// ID returns the session identifier assigned by the transport, or the empty
// string if the transport does not use session identifiers.
func (cs *ClientSession) ID() string { return cs.conn.SessionID() }

// ServerCapabilities returns the capabilities the server advertised at
// initialize time.
func (cs *ClientSession) ServerCapabilities() *ServerCapabilities {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.serverCaps
}

// Wait blocks until the session's dispatch loop has exited.
func (cs *ClientSession) Wait() error {
	<-cs.doneCh()
	return cs.runErr
}

func (cs *ClientSession) doneCh() chan struct{} {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.done == nil {
		cs.done = make(chan struct{})
	}
	return cs.done
}

// Close terminates the session and its underlying connection.
func (cs *ClientSession) Close() error {
	cs.closeOnce.Do(func() {
		cs.advance(phaseShutdown)
		cs.calls.drain(fmt.Errorf("session closed"))
		close(cs.doneCh())
	})
	return cs.conn.Close()
}

func (cs *ClientSession) run(ctx context.Context) {
	defer cs.Close()
	for {
		msg, err := cs.conn.Read(ctx)
		if err != nil {
			cs.mu.Lock()
			cs.runErr = err
			cs.mu.Unlock()
			return
		}
		switch m := msg.(type) {
		case *jsonrpc.Request:
			go cs.handleRequest(ctx, m)
		case *jsonrpc.Notification:
			go cs.handleNotification(ctx, m)
		case *jsonrpc.Response:
			cs.calls.deliver(m)
		}
	}
}

// initialize sends the initialize request and returns the server's result,
// without transitioning the lifecycle past phaseInitializing; the caller
// advances to phaseOperating after sending notifications/initialized.
func (cs *ClientSession) initialize(ctx context.Context) (*InitializeResult, error) {
	if err := cs.advance(phaseInitializing); err != nil {
		return nil, err
	}
	params := &InitializeParams{
		Capabilities:    cs.client.capabilities(),
		ClientInfo:      cs.client.impl,
		ProtocolVersion: latestProtocolVersion,
	}
	var res InitializeResult
	if err := cs.callLocked(ctx, methodInitialize, params, &res); err != nil {
		return nil, err
	}
	if !supportsProtocolVersion(res.ProtocolVersion) {
		return nil, fmt.Errorf("server negotiated unsupported protocol version %q", res.ProtocolVersion)
	}
	cs.mu.Lock()
	cs.serverInfo = res.ServerInfo
	cs.mu.Unlock()
	return &res, nil
}

// callLocked issues method before the lifecycle admits ordinary operating
// calls, bypassing the admit check that call performs; it exists solely for
// the initialize handshake.
func (cs *ClientSession) callLocked(ctx context.Context, method string, params Params, result Result) error {
	id := cs.calls.newID()
	ch := cs.calls.register(id)
	data, err := internalMarshal(params)
	if err != nil {
		cs.calls.cancel(id, err)
		return err
	}
	if err := cs.conn.Write(ctx, &jsonrpc.Request{ID: id, Method: method, Params: data}); err != nil {
		cs.calls.cancel(id, err)
		return err
	}
	select {
	case <-ctx.Done():
		cs.calls.cancel(id, ctx.Err())
		return ctx.Err()
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil {
			return internalUnmarshal(resp.Result, result)
		}
		return nil
	}
}

// call issues a client-to-server request and blocks for the response,
// enforcing that the session has finished initializing.
func (cs *ClientSession) call(ctx context.Context, method string, params Params, result Result) error {
	if err := cs.admit(method); err != nil {
		return err
	}
	return cs.callLocked(ctx, method, params, result)
}

func (cs *ClientSession) notify(ctx context.Context, method string, params Params) error {
	data, err := internalMarshal(params)
	if err != nil {
		return err
	}
	return cs.conn.Write(ctx, &jsonrpc.Notification{Method: method, Params: data})
}

// NotifyProgress sends a notifications/progress message to the server.
func (cs *ClientSession) NotifyProgress(ctx context.Context, params *ProgressNotificationParams) error {
	return cs.notify(ctx, notificationProgress, params)
}

// ListTools lists the tools the server currently exposes.
func (cs *ClientSession) ListTools(ctx context.Context, params *ListToolsParams) (*ListToolsResult, error) {
	if params == nil {
		params = &ListToolsParams{}
	}
	var res ListToolsResult
	if err := cs.call(ctx, methodListTools, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CallTool invokes a tool by name with the given raw arguments.
func (cs *ClientSession) CallTool(ctx context.Context, params *CallToolParams) (*CallToolResult, error) {
	var res CallToolResult
	if err := cs.call(ctx, methodCallTool, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListResources lists the resources the server currently exposes.
func (cs *ClientSession) ListResources(ctx context.Context, params *ListResourcesParams) (*ListResourcesResult, error) {
	if params == nil {
		params = &ListResourcesParams{}
	}
	var res ListResourcesResult
	if err := cs.call(ctx, methodListResources, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListResourceTemplates lists the resource templates the server currently
// exposes.
func (cs *ClientSession) ListResourceTemplates(ctx context.Context, params *ListResourceTemplatesParams) (*ListResourceTemplatesResult, error) {
	if params == nil {
		params = &ListResourceTemplatesParams{}
	}
	var res ListResourceTemplatesResult
	if err := cs.call(ctx, methodListResourceTemplates, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ReadResource reads the contents of a resource by URI.
func (cs *ClientSession) ReadResource(ctx context.Context, params *ReadResourceParams) (*ReadResourceResult, error) {
	var res ReadResourceResult
	if err := cs.call(ctx, methodReadResource, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Subscribe asks the server to send resources/updated notifications for a
// URI.
func (cs *ClientSession) Subscribe(ctx context.Context, params *SubscribeParams) error {
	return cs.call(ctx, methodSubscribe, params, nil)
}

// Unsubscribe cancels a previous Subscribe.
func (cs *ClientSession) Unsubscribe(ctx context.Context, params *UnsubscribeParams) error {
	return cs.call(ctx, methodUnsubscribe, params, nil)
}

// ListPrompts lists the prompts the server currently exposes.
func (cs *ClientSession) ListPrompts(ctx context.Context, params *ListPromptsParams) (*ListPromptsResult, error) {
	if params == nil {
		params = &ListPromptsParams{}
	}
	var res ListPromptsResult
	if err := cs.call(ctx, methodListPrompts, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetPrompt renders a prompt by name.
func (cs *ClientSession) GetPrompt(ctx context.Context, params *GetPromptParams) (*GetPromptResult, error) {
	var res GetPromptResult
	if err := cs.call(ctx, methodGetPrompt, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Complete requests autocompletion suggestions for a prompt argument or
// resource template variable.
func (cs *ClientSession) Complete(ctx context.Context, params *CompleteParams) (*CompleteResult, error) {
	var res CompleteResult
	if err := cs.call(ctx, methodComplete, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SetLoggingLevel asks the server to only send log messages at or above
// level.
func (cs *ClientSession) SetLoggingLevel(ctx context.Context, level LoggingLevel) error {
	return cs.call(ctx, methodSetLevel, &SetLoggingLevelParams{Level: level}, nil)
}

// Ping checks that the server is still responsive. params may be nil.
func (cs *ClientSession) Ping(ctx context.Context, params *PingParams) error {
	if params == nil {
		params = &PingParams{}
	}
	return cs.call(ctx, methodPing, params, nil)
}

// handleRequest dispatches an incoming server-to-client request (sampling,
// elicitation, or roots) to the client's configured handlers.
func (cs *ClientSession) handleRequest(ctx context.Context, req *jsonrpc.Request) {
	params, err := unmarshalParams(req.Method, req.Params, true)
	if err != nil {
		cs.reply(ctx, req.ID, nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error(), nil))
		return
	}
	rctx, cancel := cs.inflight.start(withRequestID(ctx, req.ID), req.ID, req.Method, nil)
	defer cs.inflight.finish(req.ID)
	defer cancel()

	handler := addMiddleware(cs.baseHandler(), cs.client.mw)
	result, err := handler(rctx, cs, req.Method, params)
	if err != nil {
		cs.reply(ctx, req.ID, nil, toJSONRPCError(err))
		return
	}
	cs.reply(ctx, req.ID, result, nil)
}

func (cs *ClientSession) handleNotification(ctx context.Context, note *jsonrpc.Notification) {
	switch note.Method {
	case notificationLoggingMessage:
		if cs.client.opts.LoggingHandler == nil {
			return
		}
		var p LoggingMessageParams
		if err := unmarshalStrict(note.Params, &p); err == nil {
			cs.client.opts.LoggingHandler(ctx, &p)
		}
	}
}

// baseHandler returns the MethodHandler answering server-initiated requests.
func (cs *ClientSession) baseHandler() MethodHandler[*ClientSession] {
	return func(ctx context.Context, cs *ClientSession, method string, params Params) (Result, error) {
		switch method {
		case methodPing:
			return &emptyResult{}, nil
		case methodCreateMessage:
			if cs.client.opts.CreateMessageHandler == nil {
				return nil, jsonrpc.NewError(jsonrpc.CodeCapabilityMissing, "client does not support sampling", nil)
			}
			return cs.client.opts.CreateMessageHandler(ctx, &CreateMessageRequest{Session: cs, Params: params.(*CreateMessageParams)})
		case methodElicit:
			if cs.client.opts.ElicitationHandler == nil {
				return nil, jsonrpc.NewError(jsonrpc.CodeCapabilityMissing, "client does not support elicitation", nil)
			}
			return cs.client.opts.ElicitationHandler(ctx, &ElicitRequest{Session: cs, Params: params.(*ElicitParams)})
		case methodListRoots:
			if cs.client.opts.RootsHandler == nil {
				return nil, jsonrpc.NewError(jsonrpc.CodeCapabilityMissing, "client does not support roots", nil)
			}
			return cs.client.opts.RootsHandler(ctx, &ListRootsRequest{Session: cs, Params: params.(*ListRootsParams)})
		default:
			return nil, fmt.Errorf("%w: %q", jsonrpc.ErrMethodNotFound, method)
		}
	}
}

func (cs *ClientSession) reply(ctx context.Context, id jsonrpc.ID, result Result, rpcErr *jsonrpc.Error) {
	if !id.IsValid() {
		return
	}
	resp := &jsonrpc.Response{ID: id}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		data, err := internalMarshal(result)
		if err != nil {
			resp.Error = jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error(), nil)
		} else {
			resp.Result = data
		}
	}
	_ = cs.conn.Write(ctx, resp)
}
