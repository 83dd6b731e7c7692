// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"
)

// A ToolHandler handles a call to tools/call.
// req.Params.Arguments will contain a json.RawMessage containing the arguments.
// args will contain a value that has been validated against the input schema.
type ToolHandler func(ctx context.Context, req *CallToolRequest, args any) (*CallToolResult, error)

type rawToolHandler func(ctx context.Context, req *CallToolRequest) (*CallToolResult, error)

// A serverTool is a tool definition that is bound to a tool handler.
type serverTool struct {
	tool    *Tool
	handler rawToolHandler
	// Resolved tool schemas. Set in newServerTool.
	inputResolved, outputResolved *jsonschema.Resolved
}

// A TypedToolHandler handles a call to tools/call with typed arguments and results.
type TypedToolHandler[In, Out any] func(context.Context, *CallToolRequest, In) (*CallToolResult, Out, error)

func asSchema(v any) (*jsonschema.Schema, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(*jsonschema.Schema)
	if !ok {
		return nil, fmt.Errorf("schema field holds %T, not *jsonschema.Schema", v)
	}
	return s, nil
}

func newServerTool(cache *schemaCache, t *Tool, h ToolHandler) (*serverTool, error) {
	st := &serverTool{tool: t}
	if t.newArgs == nil {
		t.newArgs = func() any { return &map[string]any{} }
	}
	inputSchema, err := asSchema(t.InputSchema)
	if err != nil {
		return nil, err
	}
	if inputSchema == nil {
		// This prevents the tool author from forgetting to write a schema where
		// one should be provided. If we papered over this by supplying the empty
		// schema, then every input would be validated and the problem wouldn't be
		// discovered until runtime, when the LLM sent bad data.
		return nil, errors.New("missing input schema")
	}
	st.inputResolved, err = resolveSchema(cache, inputSchema)
	if err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	outputSchema, err := asSchema(t.OutputSchema)
	if err != nil {
		return nil, err
	}
	if outputSchema != nil {
		st.outputResolved, err = resolveSchema(cache, outputSchema)
		if err != nil {
			return nil, fmt.Errorf("output schema: %w", err)
		}
	}
	st.handler = func(ctx context.Context, req *CallToolRequest) (*CallToolResult, error) {
		rawArgs := req.Params.Arguments
		args := t.newArgs()
		if err := unmarshalSchema(rawArgs, st.inputResolved, args); err != nil {
			return nil, err
		}
		res, err := h(ctx, req, args)
		if err != nil {
			res := &CallToolResult{}
			res.SetError(err)
			return res, nil
		}
		return res, nil
	}
	return st, nil
}

// newTypedServerTool creates a serverTool from a tool and a handler.
// If the tool doesn't have an input schema, it is inferred from In.
// If the tool doesn't have an output schema and Out != any, it is inferred from Out.
// cache, if non-nil, is consulted and populated so repeated registrations of
// the same In/Out pair skip reflection-based schema generation.
func newTypedServerTool[In, Out any](cache *schemaCache, t *Tool, h TypedToolHandler[In, Out]) (*serverTool, error) {
	invariant(t.newArgs == nil, "newArgs is already set")
	t.newArgs = func() any { var x In; return &x }

	var err error
	if t.InputSchema == nil {
		if t.InputSchema, err = schemaForType[In](cache); err != nil {
			return nil, err
		}
	}
	if t.OutputSchema == nil && reflect.TypeFor[Out]() != reflect.TypeFor[any]() {
		if t.OutputSchema, err = schemaForType[Out](cache); err != nil {
			return nil, err
		}
	}

	toolHandler := func(ctx context.Context, req *CallToolRequest, args any) (*CallToolResult, error) {
		res, out, err := h(ctx, req, *args.(*In))
		if err != nil {
			return nil, err
		}
		if res == nil {
			res = &CallToolResult{}
		}
		res.StructuredContent = out
		if res.Content == nil && t.OutputSchema != nil {
			data, err := json.Marshal(out)
			if err != nil {
				return nil, err
			}
			res.Content = []Content{&TextContent{Text: string(data)}}
		}
		return res, nil
	}
	return newServerTool(cache, t, toolHandler)
}

// schemaForType returns the schema for T, generating it via reflection and
// populating cache on a miss. cache may be nil, in which case every call
// regenerates the schema.
func schemaForType[T any](cache *schemaCache) (*jsonschema.Schema, error) {
	rt := reflect.TypeFor[T]()
	if cache != nil {
		if schema, _, ok := cache.getByType(rt); ok {
			return schema, nil
		}
	}
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.setByType(rt, schema, nil)
	}
	return schema, nil
}

// resolveSchema resolves schema, consulting and populating cache by pointer
// identity on a hit/miss. cache may be nil, in which case every call
// re-resolves.
func resolveSchema(cache *schemaCache, schema *jsonschema.Schema) (*jsonschema.Resolved, error) {
	if cache != nil {
		if resolved, ok := cache.getBySchema(schema); ok {
			return resolved, nil
		}
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.setBySchema(schema, resolved)
	}
	return resolved, nil
}

// unmarshalSchema unmarshals data into v and validates the result according to
// the given resolved schema.
func unmarshalSchema(data json.RawMessage, resolved *jsonschema.Resolved, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	// Disallow unknown fields.
	// Otherwise, if the tool was built with a struct, the client could send extra
	// fields and json.Unmarshal would ignore them, so the schema would never get
	// a chance to declare the extra args invalid.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("unmarshaling: %w", err)
	}

	if resolved != nil {
		if err := resolved.ApplyDefaults(v); err != nil {
			return fmt.Errorf("applying defaults from \n\t%s\nto\n\t%s:\n%w", schemaJSON(resolved.Schema()), data, err)
		}
		if err := resolved.Validate(v); err != nil {
			return fmt.Errorf("validating\n\t%s\nagainst\n\t %s:\n %w", data, schemaJSON(resolved.Schema()), err)
		}
	}
	return nil
}

// schemaJSON returns the JSON value for s as a string, or a string indicating an error.
func schemaJSON(s *jsonschema.Schema) string {
	m, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("<!%s>", err)
	}
	return string(m)
}
