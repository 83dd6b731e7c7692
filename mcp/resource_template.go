// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// compiledTemplate pairs a parsed RFC 6570 template (used to validate the
// template and enumerate its variables) with a regexp that matches concrete
// URIs against it and recovers the variable bindings. uritemplate/v3
// expands templates into URIs but does not match URIs back against a
// template, so the matching side is built here from the same variable list
// it parses out.
type compiledTemplate struct {
	tmpl  *uritemplate.Template
	regex *regexp.Regexp
	names []string
}

func compileResourceTemplate(raw string) (*compiledTemplate, error) {
	tmpl, err := uritemplate.New(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing resource template %q: %w", raw, err)
	}
	re, names, err := templateRegexp(raw)
	if err != nil {
		return nil, err
	}
	return &compiledTemplate{tmpl: tmpl, regex: re, names: names}, nil
}

// match reports whether uri matches the template, returning the bound
// variable values (percent-decoded) if so.
func (c *compiledTemplate) match(uri string) (map[string]string, bool) {
	m := c.regex.FindStringSubmatch(uri)
	if m == nil {
		return nil, false
	}
	vars := make(map[string]string, len(c.names))
	for i, name := range c.names {
		v, err := url.PathUnescape(m[i+1])
		if err != nil {
			v = m[i+1]
		}
		vars[name] = v
	}
	return vars, true
}

// templateRegexp builds a matching regexp for the {var} simple-string
// expansions MCP resource templates use, along with the ordered list of
// variable names each capture group corresponds to. A simple {var} matches
// one or more characters other than '/'; a reserved-expansion {+var} matches
// one or more characters of any kind, slashes included.
func templateRegexp(raw string) (*regexp.Regexp, []string, error) {
	var b strings.Builder
	var names []string
	b.WriteByte('^')
	rest := raw
	for {
		lit, after, ok := strings.Cut(rest, "{")
		b.WriteString(regexp.QuoteMeta(lit))
		if !ok {
			break
		}
		expr, after2, ok := strings.Cut(after, "}")
		if !ok {
			return nil, nil, fmt.Errorf("unterminated expression in template %q", raw)
		}
		name := strings.TrimPrefix(expr, "+")
		if name == "" {
			return nil, nil, fmt.Errorf("empty variable name in template %q", raw)
		}
		names = append(names, name)
		if strings.HasPrefix(expr, "+") {
			b.WriteString(`(.+)`)
		} else {
			b.WriteString(`([^/]+)`)
		}
		rest = after2
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, nil, err
	}
	return re, names, nil
}

// matchResourceTemplate finds the registered template matching uri, if any,
// returning its handler wrapper and the variables bound by the match.
func (s *Server) matchResourceTemplate(uri string) (*serverResourceTemplate, map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.templateOrder {
		t := s.templates[name]
		if t.compiled == nil {
			continue
		}
		if vars, ok := t.compiled.match(uri); ok {
			return t, vars, true
		}
	}
	return nil, nil, false
}

// templateVarsContextKey is the context key under which a resources/read
// handler invoked via a matched ResourceTemplate can retrieve the variable
// bindings parsed from the request URI.
type templateVarsContextKey struct{}

// TemplateVars returns the URI template variables bound by the request that
// led to a resources/read call against a [ResourceTemplate], or nil if the
// request targeted a plain (non-templated) Resource.
func TemplateVars(ctx context.Context) map[string]string {
	v, _ := ctx.Value(templateVarsContextKey{}).(map[string]string)
	return v
}

func withTemplateVars(ctx context.Context, vars map[string]string) context.Context {
	return context.WithValue(ctx, templateVarsContextKey{}, vars)
}
