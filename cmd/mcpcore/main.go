// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// The mcpcore command runs a small Model Context Protocol server exposing a
// handful of built-in example tools, resources, and prompts, to exercise the
// SDK end-to-end over stdio or Streamable HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/mcpcore/sdk/mcp"
)

var (
	httpAddr = flag.String("http", "", "if set, serve Streamable HTTP at this address instead of stdio")
	logLevel = flag.String("log-level", "info", "minimum log level: debug, info, warn, error")
)

type echoArgs struct {
	Text string `json:"text"`
}

func echoTool(ctx context.Context, req *mcp.CallToolRequest, args echoArgs) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: args.Text}},
	}, nil, nil
}

type addArgs struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type addResult struct {
	Sum float64 `json:"sum"`
}

func addTool(ctx context.Context, req *mcp.CallToolRequest, args addArgs) (*mcp.CallToolResult, addResult, error) {
	out := addResult{Sum: args.X + args.Y}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%g", out.Sum)}},
	}, out, nil
}

func motdResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: req.Params.URI, MIMEType: "text/plain", Text: "mcpcore example server is running"},
		},
	}, nil
}

func greetPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := req.Params.Arguments["name"]
	if name == "" {
		name = "there"
	}
	return &mcp.GetPromptResult{
		Description: "A friendly greeting prompt",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: "Say hello to " + name + "."},
			},
		},
	}, nil
}

func newExampleServer(logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "mcpcore", Version: "v0.1.0"}, &mcp.ServerOptions{
		Instructions: "mcpcore exposes a few toy tools, resources, and prompts for exercising the SDK.",
		Logger:       logger,
	})

	mcp.AddToolFor(server, &mcp.Tool{Name: "echo", Description: "echo back the given text"}, echoTool)
	mcp.AddToolFor(server, &mcp.Tool{Name: "add", Description: "add two numbers"}, addTool)

	server.AddResource(&mcp.Resource{
		URI:      "mcpcore://motd",
		Name:     "motd",
		MIMEType: "text/plain",
	}, motdResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "greet",
		Description: "greet someone by name",
		Arguments: []*mcp.PromptArgument{
			{Name: "name", Description: "the name to greet"},
		},
	}, greetPrompt)

	return server
}

func main() {
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		log.Fatalf("invalid -log-level %q: %v", *logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	if *httpAddr == "" {
		server := newExampleServer(logger)
		if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
			log.Fatal(err)
		}
		return
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return newExampleServer(logger)
	}, nil)
	logger.Info("serving streamable HTTP", "addr", *httpAddr)
	if err := http.ListenAndServe(*httpAddr, handler); err != nil {
		log.Fatal(err)
	}
}
