// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"

	"github.com/mcpcore/sdk/jsonrpc"
)

// pageSize bounds how many items a single list response returns; callers
// page through the rest with the returned cursor.
const pageSize = 50

// handleInitialize processes the client's initialize request: it records the
// negotiated capabilities and protocol version on the session and advances
// the lifecycle out of phaseUninitialized. The session does not reach
// phaseOperating until the client's subsequent notifications/initialized.
func (ss *ServerSession) handleInitialize(ctx context.Context, p *InitializeParams) (*InitializeResult, error) {
	if err := ss.advance(phaseInitializing); err != nil {
		return nil, err
	}
	ss.mu.Lock()
	ss.initParams = p
	ss.clientCaps = p.Capabilities
	ss.mu.Unlock()

	return &InitializeResult{
		Capabilities:    ss.server.capabilities(),
		Instructions:    ss.server.opts.Instructions,
		ProtocolVersion: negotiateProtocolVersion(p.ProtocolVersion),
		ServerInfo:      ss.server.impl,
	}, nil
}

func (ss *ServerSession) handleSubscribe(p *SubscribeParams) (*emptyResult, error) {
	ss.mu.Lock()
	if ss.subscriptions == nil {
		ss.subscriptions = make(map[string]bool)
	}
	ss.subscriptions[p.URI] = true
	ss.mu.Unlock()
	return &emptyResult{}, nil
}

func (ss *ServerSession) handleUnsubscribe(p *UnsubscribeParams) (*emptyResult, error) {
	ss.mu.Lock()
	delete(ss.subscriptions, p.URI)
	ss.mu.Unlock()
	return &emptyResult{}, nil
}

func (ss *ServerSession) handleSetLevel(p *SetLoggingLevelParams) (*emptyResult, error) {
	ss.mu.Lock()
	ss.logLevel = p.Level
	ss.mu.Unlock()
	return &emptyResult{}, nil
}

func (s *Server) handleListTools(ctx context.Context, p *ListToolsParams) (*ListToolsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := pageNames(s.toolOrder, p.Cursor)
	res := &ListToolsResult{Tools: make([]*Tool, 0, len(names))}
	for i, name := range names {
		if i == pageSize {
			res.NextCursor = names[i-1]
			break
		}
		res.Tools = append(res.Tools, s.tools[name].tool)
	}
	return res, nil
}

func (s *Server) handleCallTool(ctx context.Context, ss *ServerSession, p *CallToolParamsRaw) (*CallToolResult, error) {
	s.mu.Lock()
	st, ok := s.tools[p.Name]
	s.mu.Unlock()
	if !ok {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, fmt.Sprintf("unknown tool %q", p.Name), nil)
	}
	req := &CallToolRequest{Session: ss, Params: p}
	return st.handler(ctx, req)
}

func (s *Server) handleListResources(ctx context.Context, p *ListResourcesParams) (*ListResourcesResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := pageNames(s.resourceOrder, p.Cursor)
	res := &ListResourcesResult{Resources: make([]*Resource, 0, min(len(uris), pageSize))}
	for i, uri := range uris {
		if i == pageSize {
			res.NextCursor = uris[i-1]
			break
		}
		res.Resources = append(res.Resources, s.resources[uri].resource)
	}
	return res, nil
}

func (s *Server) handleListResourceTemplates(ctx context.Context, p *ListResourceTemplatesParams) (*ListResourceTemplatesResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := pageNames(s.templateOrder, p.Cursor)
	res := &ListResourceTemplatesResult{ResourceTemplates: make([]*ResourceTemplate, 0, len(uris))}
	for i, uri := range uris {
		if i == pageSize {
			res.NextCursor = uris[i-1]
			break
		}
		res.ResourceTemplates = append(res.ResourceTemplates, s.templates[uri].template)
	}
	return res, nil
}

func (s *Server) handleReadResource(ctx context.Context, ss *ServerSession, p *ReadResourceParams) (*ReadResourceResult, error) {
	s.mu.Lock()
	r, ok := s.resources[p.URI]
	s.mu.Unlock()
	if ok {
		return r.handler(ctx, &ReadResourceRequest{Session: ss, Params: p})
	}

	tmpl, vars, ok := s.matchResourceTemplate(p.URI)
	if !ok {
		return nil, jsonrpc.NewError(jsonrpc.CodeResourceNotFound, fmt.Sprintf("no resource matches %q", p.URI), nil)
	}
	return tmpl.handler(withTemplateVars(ctx, vars), &ReadResourceRequest{Session: ss, Params: p})
}

func (s *Server) handleListPrompts(ctx context.Context, p *ListPromptsParams) (*ListPromptsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := pageNames(s.promptOrder, p.Cursor)
	res := &ListPromptsResult{Prompts: make([]*Prompt, 0, len(names))}
	for i, name := range names {
		if i == pageSize {
			res.NextCursor = names[i-1]
			break
		}
		res.Prompts = append(res.Prompts, s.prompts[name].prompt)
	}
	return res, nil
}

func (s *Server) handleGetPrompt(ctx context.Context, ss *ServerSession, p *GetPromptParams) (*GetPromptResult, error) {
	s.mu.Lock()
	pr, ok := s.prompts[p.Name]
	s.mu.Unlock()
	if !ok {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, fmt.Sprintf("unknown prompt %q", p.Name), nil)
	}
	return pr.handler(ctx, &GetPromptRequest{Session: ss, Params: p})
}

// handleComplete serves completion/complete for both prompt-argument and
// resource-template-variable references, since the two share a wire shape
// that differs only in CompleteReference.Type.
func (s *Server) handleComplete(ctx context.Context, p *CompleteParams) (*CompleteResult, error) {
	if p.Ref == nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "completion reference is required", nil)
	}
	var candidates []string
	switch p.Ref.Type {
	case "ref/prompt":
		s.mu.Lock()
		pr, ok := s.prompts[p.Ref.Name]
		s.mu.Unlock()
		if !ok {
			return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, fmt.Sprintf("unknown prompt %q", p.Ref.Name), nil)
		}
		for _, a := range pr.prompt.Arguments {
			if a.Name == p.Argument.Name {
				candidates = completionCandidates(a.Name, p.Argument.Value)
			}
		}
	case "ref/resource":
		candidates = completionCandidates(p.Argument.Name, p.Argument.Value)
	default:
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, fmt.Sprintf("unknown reference type %q", p.Ref.Type), nil)
	}
	return &CompleteResult{Completion: CompletionResultDetails{Values: candidates}}, nil
}

// completionCandidates returns no candidates for any argument or prefix: the
// server has no completion source to consult, so completion/complete always
// answers with an empty set rather than an error.
func completionCandidates(argName, prefix string) []string {
	return nil
}

// pageNames returns the slice of registration-ordered names starting
// immediately after cursor (the last name returned on the previous page).
// An empty cursor starts from the beginning. A cursor that no longer
// appears in order (the item was removed between pages) is treated as the
// beginning rather than an error, since list-changed notifications already
// tell clients their view may be stale.
func pageNames(order []string, cursor string) []string {
	if cursor == "" {
		return order
	}
	for i, name := range order {
		if name == cursor {
			return order[i+1:]
		}
	}
	return order
}
