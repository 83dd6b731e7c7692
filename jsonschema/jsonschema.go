// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jsonschema is a thin, self-contained façade over the upstream
// jsonschema-go types used for tool and resource schema generation in the
// mcp package. It exists so callers that only need schema construction (for
// example the logging-middleware sample) can depend on a narrow surface
// instead of the full upstream module, while [For] and [ForType] remain
// wired to the same resolver the mcp package uses for validation.
package jsonschema

import (
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"
)

// Ptr returns a pointer to a copy of x, which is convenient for setting
// pointer-typed optional Schema fields (Minimum, MaxItems, and so on).
func Ptr[T any](x T) *T {
	return jsonschema.Ptr(x)
}

type ForOptions = jsonschema.ForOptions

type Resolved = jsonschema.Resolved

type ResolveOptions = jsonschema.ResolveOptions

type Schema = jsonschema.Schema

func For[T any](opts *ForOptions) (*Schema, error) {
	return jsonschema.For[T](opts)
}

func ForType(t reflect.Type, opts *ForOptions) (*Schema, error) {
	return jsonschema.ForType(t, opts)
}
