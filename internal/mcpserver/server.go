// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package mcpserver exposes the edit engine as Model Context Protocol
// tools. Every tool accepts an optional "session" argument; calls without
// one share the server's default session.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/petar-djukic/semedit/internal/engine"
	"github.com/petar-djukic/semedit/internal/feedback"
)

// Name is the MCP implementation name.
const Name = "semedit"

// Server binds an Engine to MCP tool handlers.
type Server struct {
	eng            *engine.Engine
	logger         *slog.Logger
	defaultSession string

	mu   sync.Mutex
	seen map[string]struct{} // named sessions used by the client
}

// New creates a Server with a fresh default session.
func New(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		eng:            eng,
		logger:         logger,
		defaultSession: eng.NewSession(),
		seen:           make(map[string]struct{}),
	}
}

// MCP returns an MCP server with every tool registered.
func (s *Server) MCP(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	s.Register(srv)
	return srv
}

// Run serves the tools over t until ctx is done or the client disconnects.
// Every session the client used is closed on the way out.
func (s *Server) Run(ctx context.Context, version string, t mcp.Transport) error {
	s.logger.Info("mcp server starting", "version", version, "languages", s.eng.Languages())
	err := s.MCP(version).Run(ctx, t)
	s.closeAll()
	return err
}

func (s *Server) closeAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.seen)+1)
	for id := range s.seen {
		ids = append(ids, id)
	}
	clear(s.seen)
	s.mu.Unlock()

	ids = append(ids, s.defaultSession)
	for _, id := range ids {
		s.eng.CloseSession(id)
	}
}

// result is what a tool handler returns. Extra holds additional plain
// text blocks such as a unified diff.
type result struct {
	value any
	extra []string
}

type handler func(ctx context.Context, args json.RawMessage) (result, error)

func inputSchema(properties map[string]any, required ...string) map[string]any {
	properties["session"] = map[string]any{
		"type":        "string",
		"description": "Session id; omit to use the default session",
	}
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// addTool registers h under tool. Engine failures become tool errors
// rendered with feedback.Report.
func (s *Server) addTool(srv *mcp.Server, tool *mcp.Tool, h handler) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		res, err := h(ctx, args)
		if err != nil {
			s.logger.Debug("tool failed", "tool", tool.Name, "error", err)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: feedback.Report(err)}},
			}, nil
		}

		data, err := json.MarshalIndent(res.value, "", "  ")
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("encoding result: %v", err)}},
			}, nil
		}
		content := []mcp.Content{&mcp.TextContent{Text: string(data)}}
		for _, text := range res.extra {
			content = append(content, &mcp.TextContent{Text: text})
		}
		return &mcp.CallToolResult{Content: content}, nil
	})
}

func (s *Server) session(id string) string {
	if id == "" {
		return s.defaultSession
	}
	s.mu.Lock()
	s.seen[id] = struct{}{}
	s.mu.Unlock()
	return id
}

func (s *Server) forget(id string) {
	s.mu.Lock()
	delete(s.seen, id)
	s.mu.Unlock()
}

func decode[T any](args json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(args, &v); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return &v, nil
}
