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

// ServerOptions configures a [Server].
type ServerOptions struct {
	// Capabilities, if non-nil, is advertised verbatim to clients during
	// initialize. If nil, capabilities are inferred from the tools,
	// resources, and prompts registered on the server before it is first
	// connected.
	Capabilities *ServerCapabilities
	// Instructions are returned in the initialize response as a hint to the
	// client (and, transitively, the model) about how to use the server.
	Instructions string
	// Logger receives structured logs describing session lifecycle events
	// and handler errors. If nil, slog.Default() is used.
	Logger *slog.Logger
	// SessionStore persists session state across reconnects of the
	// Streamable HTTP transport. If nil, an in-memory store is used.
	SessionStore SessionStore
	// KeepAlive, if positive, causes every session opened from this server to
	// periodically ping its client, closing the session if a ping fails to
	// get a response. This surfaces a dead peer (e.g. a client that vanished
	// without a clean shutdown) instead of leaving the session open
	// indefinitely.
	KeepAlive time.Duration
	// InitializedHandler, if non-nil, is called when a session receives the
	// notifications/initialized notification completing the handshake.
	InitializedHandler func(context.Context, *InitializedRequest)
	// SchemaCache, if non-nil, caches the schemas AddToolFor infers from Go
	// types via reflection. Supplying one avoids repeated reflection-based
	// schema generation for servers that re-register the same typed tools on
	// every request, such as stateless HTTP deployments. Create one with
	// [NewSchemaCache].
	SchemaCache *schemaCache
}

// A Server serves the Model Context Protocol over one or more sessions. A
// single Server may be shared by many concurrently connected sessions; all
// exported methods are safe for concurrent use.
type Server struct {
	impl    *Implementation
	opts    ServerOptions
	logger  *slog.Logger
	mw      []Middleware[*ServerSession]

	mu            sync.Mutex
	tools         map[string]*serverTool
	toolOrder     []string
	resources     map[string]*serverResource
	resourceOrder []string
	templates     map[string]*serverResourceTemplate
	templateOrder []string
	prompts       map[string]*serverPrompt
	promptOrder   []string
	sessions      map[*ServerSession]bool
}

// NewServer creates a Server with the given implementation identity.
//
// Tools, resources, and prompts may be registered with AddTool, AddResource,
// and AddPrompt either before or after the server starts accepting
// connections; newly added capabilities are visible to sessions connected
// afterward and trigger list-changed notifications for sessions already
// connected.
func NewServer(impl *Implementation, opts *ServerOptions) *Server {
	s := &Server{
		impl:      impl,
		tools:     make(map[string]*serverTool),
		resources: make(map[string]*serverResource),
		templates: make(map[string]*serverResourceTemplate),
		prompts:   make(map[string]*serverPrompt),
		sessions:  make(map[*ServerSession]bool),
	}
	if opts != nil {
		s.opts = *opts
	}
	if s.opts.SessionStore == nil {
		s.opts.SessionStore = NewMemorySessionStore()
	}
	s.logger = s.opts.Logger
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// AddMiddleware appends mw to the chain of middleware applied to every
// method handled by sessions of this server. The chain is read for each
// incoming message, so middleware added after Connect also applies to
// sessions that are already connected, from their next message on.
func (s *Server) AddMiddleware(mw ...Middleware[*ServerSession]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mw = append(s.mw, mw...)
}

type serverResource struct {
	resource *Resource
	handler  ResourceHandler
}

type serverResourceTemplate struct {
	template *ResourceTemplate
	handler  ResourceHandler
	compiled *compiledTemplate
}

type serverPrompt struct {
	prompt  *Prompt
	handler PromptHandler
}

// A ResourceHandler serves the contents of a resource or resource template
// match for a resources/read request.
type ResourceHandler func(ctx context.Context, req *ReadResourceRequest) (*ReadResourceResult, error)

// A PromptHandler renders a prompt for a prompts/get request.
type PromptHandler func(ctx context.Context, req *GetPromptRequest) (*GetPromptResult, error)

// AddTool registers a tool identified by an untyped JSON-schema-validated
// handler. t.InputSchema must be set to a *jsonschema.Schema describing the
// tool's arguments.
func AddTool(s *Server, t *Tool, h ToolHandler) error {
	st, err := newServerTool(s.opts.SchemaCache, t, h)
	if err != nil {
		return fmt.Errorf("adding tool %q: %w", t.Name, err)
	}
	s.addTool(t.Name, st)
	return nil
}

// AddToolFor registers a tool whose input (and optionally output) schema is
// inferred from the In and Out type parameters via reflection.
func AddToolFor[In, Out any](s *Server, t *Tool, h TypedToolHandler[In, Out]) error {
	st, err := newTypedServerTool(s.opts.SchemaCache, t, h)
	if err != nil {
		return fmt.Errorf("adding tool %q: %w", t.Name, err)
	}
	s.addTool(t.Name, st)
	return nil
}

func (s *Server) addTool(name string, st *serverTool) {
	s.mu.Lock()
	if _, exists := s.tools[name]; !exists {
		s.toolOrder = append(s.toolOrder, name)
	}
	s.tools[name] = st
	s.mu.Unlock()
	s.notifyListChanged(notificationToolListChanged)
}

// RemoveTool removes a previously added tool by name.
func (s *Server) RemoveTool(name string) {
	s.mu.Lock()
	delete(s.tools, name)
	for i, n := range s.toolOrder {
		if n == name {
			s.toolOrder = append(s.toolOrder[:i], s.toolOrder[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notifyListChanged(notificationToolListChanged)
}

// AddResource registers a static resource and the handler that serves its
// contents.
func (s *Server) AddResource(r *Resource, h ResourceHandler) {
	s.mu.Lock()
	if _, exists := s.resources[r.URI]; !exists {
		s.resourceOrder = append(s.resourceOrder, r.URI)
	}
	s.resources[r.URI] = &serverResource{resource: r, handler: h}
	s.mu.Unlock()
	s.notifyListChanged(notificationResourceListChanged)
}

// AddResourceTemplate registers a URI-templated family of resources (see
// RFC 6570) and the handler that serves matches against it.
func (s *Server) AddResourceTemplate(t *ResourceTemplate, h ResourceHandler) error {
	compiled, err := compileResourceTemplate(t.URITemplate)
	if err != nil {
		return fmt.Errorf("adding resource template %q: %w", t.URITemplate, err)
	}
	s.mu.Lock()
	if _, exists := s.templates[t.URITemplate]; !exists {
		s.templateOrder = append(s.templateOrder, t.URITemplate)
	}
	s.templates[t.URITemplate] = &serverResourceTemplate{template: t, handler: h, compiled: compiled}
	s.mu.Unlock()
	s.notifyListChanged(notificationResourceListChanged)
	return nil
}

// AddPrompt registers a prompt and its rendering handler.
func (s *Server) AddPrompt(p *Prompt, h PromptHandler) {
	s.mu.Lock()
	if _, exists := s.prompts[p.Name]; !exists {
		s.promptOrder = append(s.promptOrder, p.Name)
	}
	s.prompts[p.Name] = &serverPrompt{prompt: p, handler: h}
	s.mu.Unlock()
	s.notifyListChanged(notificationPromptListChanged)
}

// capabilities computes the ServerCapabilities to advertise, from explicit
// options if given, or else inferred from what's registered.
func (s *Server) capabilities() *ServerCapabilities {
	if s.opts.Capabilities != nil {
		return negotiateServerCapabilities(s.opts.Capabilities)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	caps := &ServerCapabilities{
		Logging: &LoggingCapabilities{},
	}
	if len(s.tools) > 0 {
		caps.Tools = &ToolCapabilities{ListChanged: true}
	}
	if len(s.resources) > 0 || len(s.templates) > 0 {
		caps.Resources = &ResourceCapabilities{ListChanged: true, Subscribe: true}
	}
	if len(s.prompts) > 0 {
		caps.Prompts = &PromptCapabilities{ListChanged: true}
	}
	return caps
}

// notifyListChanged broadcasts a list-changed notification of the given
// method to every currently connected session.
func (s *Server) notifyListChanged(method string) {
	s.mu.Lock()
	sessions := make([]*ServerSession, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		if sess.current() != phaseOperating {
			continue
		}
		go sess.notify(context.Background(), method, emptyListChangedParams(method))
	}
}

func emptyListChangedParams(method string) Params {
	switch method {
	case notificationToolListChanged:
		return &ToolListChangedParams{}
	case notificationResourceListChanged:
		return &ResourceListChangedParams{}
	case notificationPromptListChanged:
		return &PromptListChangedParams{}
	default:
		return &ToolListChangedParams{}
	}
}

// ServerSessionOptions is reserved for future per-session overrides to
// [Server.Connect]. It currently has no fields.
type ServerSessionOptions struct{}

// Connect starts serving t: it establishes the connection, performs the
// JSON-RPC dispatch loop in a background goroutine, and returns the
// resulting ServerSession immediately (without waiting for the client's
// initialize handshake).
func (s *Server) Connect(ctx context.Context, t Transport, opts *ServerSessionOptions) (*ServerSession, error) {
	conn, err := t.Connect(ctx)
	if err != nil {
		return nil, err
	}
	ss := &ServerSession{
		server:   s,
		conn:     conn,
		calls:    newCallRegistry(),
		inflight: newInFlightRegistry(),
	}
	s.mu.Lock()
	s.sessions[ss] = true
	s.mu.Unlock()

	go ss.run(ctx)
	if s.opts.KeepAlive > 0 {
		go ss.keepAlive(ctx, s.opts.KeepAlive)
	}
	return ss, nil
}

// Run connects t and blocks until the resulting session terminates, closing
// the connection on return. It is a convenience for single-session
// transports such as stdio.
func (s *Server) Run(ctx context.Context, t Transport) error {
	ss, err := s.Connect(ctx, t, nil)
	if err != nil {
		return err
	}
	return ss.Wait()
}

// keepAlive pings the client every interval until the session closes,
// closing it itself if a ping fails.
func (ss *ServerSession) keepAlive(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ss.doneCh():
			return
		case <-t.C:
			if err := ss.Ping(ctx, nil); err != nil {
				ss.Close()
				return
			}
		}
	}
}

func (s *Server) forgetSession(ss *ServerSession) {
	s.mu.Lock()
	delete(s.sessions, ss)
	s.mu.Unlock()
}

// A ServerSession is one active connection between a Server and a single
// client, from initialize through shutdown.
type ServerSession struct {
	lifecycle

	server *Server
	conn   Connection

	calls    *callRegistry
	inflight *inFlightRegistry

	mu              sync.Mutex
	initParams      *InitializeParams
	clientCaps      *ClientCapabilities
	logLevel        LoggingLevel
	subscriptions   map[string]bool
	done            chan struct{}
	closeOnce       sync.Once
	runErr          error
}

// ID returns the session identifier assigned by the transport, or the empty
// string if the transport does not use session identifiers (e.g. stdio).
func (ss *ServerSession) ID() string { return ss.conn.SessionID() }

// Wait blocks until the session's dispatch loop has exited, returning the
// error (if any) that caused it to stop.
func (ss *ServerSession) Wait() error {
	<-ss.doneCh()
	return ss.runErr
}

func (ss *ServerSession) doneCh() chan struct{} {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.done == nil {
		ss.done = make(chan struct{})
	}
	return ss.done
}

// Close terminates the session and its underlying connection.
func (ss *ServerSession) Close() error {
	ss.closeOnce.Do(func() {
		ss.advance(phaseShutdown)
		ss.calls.drain(fmt.Errorf("session closed"))
		close(ss.doneCh())
	})
	return ss.conn.Close()
}

func (ss *ServerSession) run(ctx context.Context) {
	defer ss.server.forgetSession(ss)
	defer ss.Close()
	for {
		msg, err := ss.conn.Read(ctx)
		if err != nil {
			ss.mu.Lock()
			ss.runErr = err
			ss.mu.Unlock()
			return
		}
		switch m := msg.(type) {
		case *jsonrpc.Request:
			go ss.handleRequest(ctx, m)
		case *jsonrpc.Notification:
			go ss.handleNotification(ctx, m)
		case *jsonrpc.Response:
			ss.calls.deliver(m)
		}
	}
}

// handleRequest dispatches an incoming JSON-RPC request to the appropriate
// server method handler, enforcing lifecycle admissibility and
// operation-class timeouts, and writes back exactly one response.
func (ss *ServerSession) handleRequest(ctx context.Context, req *jsonrpc.Request) {
	if err := ss.admit(req.Method); err != nil {
		ss.reply(ctx, req.ID, nil, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, err.Error(), nil))
		return
	}

	params, err := unmarshalParams(req.Method, req.Params, false)
	if err != nil {
		ss.reply(ctx, req.ID, nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error(), nil))
		return
	}

	var progTok any
	if params != nil {
		progTok = params.GetProgressToken()
	}
	rctx, cancel := ss.inflight.start(withRequestID(ctx, req.ID), req.ID, req.Method, progTok)
	defer ss.inflight.finish(req.ID)
	defer cancel()

	handler := addMiddleware(ss.server.baseHandler(), ss.server.mw)
	result, err := handler(rctx, ss, req.Method, params)
	if err != nil {
		ss.reply(ctx, req.ID, nil, toJSONRPCError(err))
		return
	}
	ss.reply(ctx, req.ID, result, nil)
}

func (ss *ServerSession) handleNotification(ctx context.Context, note *jsonrpc.Notification) {
	switch note.Method {
	case notificationCancelled:
		var p CancelledParams
		if err := unmarshalStrict(note.Params, &p); err == nil {
			if id, ok := toJSONRPCID(p.RequestID); ok {
				_ = ss.inflight.cancelRequest(id)
			}
		}
		return
	case notificationInitialized:
		_ = ss.advance(phaseOperating)
		if h := ss.server.opts.InitializedHandler; h != nil {
			p := new(InitializedParams)
			_ = unmarshalStrict(note.Params, p)
			h(ctx, &InitializedRequest{Session: ss, Params: p})
		}
		return
	}
	params, err := unmarshalParams(note.Method, note.Params, false)
	if err != nil {
		return
	}
	handler := addMiddleware(ss.server.baseHandler(), ss.server.mw)
	_, _ = handler(ctx, ss, note.Method, params)
}

func (ss *ServerSession) reply(ctx context.Context, id jsonrpc.ID, result Result, rpcErr *jsonrpc.Error) {
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
	_ = ss.conn.Write(ctx, resp)
}

// notify sends a one-way notification to the client.
func (ss *ServerSession) notify(ctx context.Context, method string, params Params) error {
	data, err := internalMarshal(params)
	if err != nil {
		return err
	}
	return ss.conn.Write(ctx, &jsonrpc.Notification{Method: method, Params: data})
}

// NotifyProgress sends a notifications/progress message to the client.
func (ss *ServerSession) NotifyProgress(ctx context.Context, params *ProgressNotificationParams) error {
	return ss.notify(ctx, notificationProgress, params)
}

// call issues a server-to-client request and blocks for the response.
func (ss *ServerSession) call(ctx context.Context, method string, params Params, result Result) error {
	if ss.clientCaps == nil {
		return fmt.Errorf("session has not completed initialization")
	}
	id := ss.calls.newID()
	ch := ss.calls.register(id)
	data, err := internalMarshal(params)
	if err != nil {
		ss.calls.cancel(id, err)
		return err
	}
	if err := ss.conn.Write(ctx, &jsonrpc.Request{ID: id, Method: method, Params: data}); err != nil {
		ss.calls.cancel(id, err)
		return err
	}
	select {
	case <-ctx.Done():
		ss.calls.cancel(id, ctx.Err())
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

// CreateMessage asks the client to sample from its configured LLM.
func (ss *ServerSession) CreateMessage(ctx context.Context, params *CreateMessageParams) (*CreateMessageResult, error) {
	if !clientSupportsSampling(ss.clientCaps) {
		return nil, fmt.Errorf("client does not support sampling")
	}
	var res CreateMessageResult
	if err := ss.call(ctx, methodCreateMessage, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Elicit asks the client to collect additional input from the user.
func (ss *ServerSession) Elicit(ctx context.Context, params *ElicitParams) (*ElicitResult, error) {
	if !clientSupportsElicitation(ss.clientCaps) {
		return nil, fmt.Errorf("client does not support elicitation")
	}
	var res ElicitResult
	if err := ss.call(ctx, methodElicit, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListRoots asks the client for its configured filesystem roots.
func (ss *ServerSession) ListRoots(ctx context.Context, params *ListRootsParams) (*ListRootsResult, error) {
	if !clientSupportsRoots(ss.clientCaps) {
		return nil, fmt.Errorf("client does not support roots")
	}
	var res ListRootsResult
	if err := ss.call(ctx, methodListRoots, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Ping sends a ping request to the client, for liveness checks such as
// [ServerOptions.KeepAlive]. params may be nil.
func (ss *ServerSession) Ping(ctx context.Context, params *PingParams) error {
	if params == nil {
		params = &PingParams{}
	}
	return ss.call(ctx, methodPing, params, nil)
}

// Log sends a logging/message notification, subject to the session's
// currently configured minimum log level.
func (ss *ServerSession) Log(ctx context.Context, params *LoggingMessageParams) error {
	ss.mu.Lock()
	level := ss.logLevel
	ss.mu.Unlock()
	if level != "" && levelSeverity(params.Level) < levelSeverity(level) {
		return nil
	}
	return ss.notify(ctx, notificationLoggingMessage, params)
}

var logLevelOrder = []LoggingLevel{"debug", "info", "notice", "warning", "error", "critical", "alert", "emergency"}

func levelSeverity(l LoggingLevel) int {
	for i, v := range logLevelOrder {
		if v == l {
			return i
		}
	}
	return 0
}

func withRequestID(ctx context.Context, id jsonrpc.ID) context.Context {
	return context.WithValue(ctx, idContextKey{}, id)
}
