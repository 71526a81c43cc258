// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/petar-djukic/semedit/internal/diff"
	"github.com/petar-djukic/semedit/internal/engine"
	"github.com/petar-djukic/semedit/internal/outline"
	"github.com/petar-djukic/semedit/pkg/types"
)

// ErrNotAcknowledged is returned by commit_staged without acknowledge.
var ErrNotAcknowledged = errors.New("commit_staged requires acknowledge: true after reviewing the preview diff")

var selectorSchema = map[string]any{
	"type": "object",
	"description": "Where to edit. by is one of name, kind, query, position, anchor. " +
		"name: {name, kind?}; kind: {kind}; query: {query} (a @target capture narrows matches); " +
		"position: {line, column} 1-based or {offset}; anchor: {anchor, occurrence?, end?}",
	"properties": map[string]any{
		"by":         map[string]any{"type": "string", "enum": []string{"name", "kind", "query", "position", "anchor"}},
		"name":       map[string]any{"type": "string"},
		"kind":       map[string]any{"type": "string"},
		"query":      map[string]any{"type": "string"},
		"line":       map[string]any{"type": "integer"},
		"column":     map[string]any{"type": "integer"},
		"offset":     map[string]any{"type": "integer"},
		"anchor":     map[string]any{"type": "string"},
		"occurrence": map[string]any{"type": "integer"},
		"end":        map[string]any{"type": "string"},
	},
	"required": []string{"by"},
}

var indexSchema = map[string]any{
	"type":        "integer",
	"description": "Pick the candidate at this 0-based index when the selector matches several nodes",
}

// Register adds every tool to srv.
func (s *Server) Register(srv *mcp.Server) {
	s.addTool(srv, &mcp.Tool{
		Name:        "set_context",
		Description: "Set the working directory that relative document paths resolve against.",
		InputSchema: inputSchema(map[string]any{
			"dir": map[string]any{"type": "string", "description": "Absolute, ~-relative or context-relative directory"},
		}, "dir"),
	}, s.setContext)

	s.addTool(srv, &mcp.Tool{
		Name:        "open_document",
		Description: "Load a source file into the document cache and return its id and revision.",
		InputSchema: inputSchema(map[string]any{
			"path":     map[string]any{"type": "string"},
			"language": map[string]any{"type": "string", "description": "Override language detection by extension"},
		}, "path"),
	}, s.openDocument)

	s.addTool(srv, &mcp.Tool{
		Name: "stage_operation",
		Description: "Resolve a selector, validate the edit against syntax and language placement rules, " +
			"and stage it. Returns an operation id and a preview diff. Nothing is written until commit_staged.",
		InputSchema: inputSchema(map[string]any{
			"document_id": map[string]any{"type": "string"},
			"selector":    selectorSchema,
			"operation": map[string]any{
				"type": "string",
				"enum": []string{"insert_before", "insert_after", "insert_after_node", "replace_range", "replace_exact", "replace_node"},
			},
			"text":  map[string]any{"type": "string"},
			"index": indexSchema,
		}, "document_id", "selector", "operation", "text"),
	}, s.stageOperation)

	s.addTool(srv, &mcp.Tool{
		Name:        "retarget_staged",
		Description: "Point a staged operation at a different target, keeping its text and mode. On failure the operation is unchanged.",
		InputSchema: inputSchema(map[string]any{
			"operation_id": map[string]any{"type": "string"},
			"selector":     selectorSchema,
			"index":        indexSchema,
		}, "operation_id", "selector"),
	}, s.retargetStaged)

	s.addTool(srv, &mcp.Tool{
		Name:        "commit_staged",
		Description: "Re-validate and write a staged operation. Requires acknowledge: true.",
		InputSchema: inputSchema(map[string]any{
			"operation_id": map[string]any{"type": "string"},
			"acknowledge":  map[string]any{"type": "boolean", "description": "Confirms the preview diff was reviewed"},
		}, "operation_id", "acknowledge"),
	}, s.commitStaged)

	s.addTool(srv, &mcp.Tool{
		Name:        "abort_staged",
		Description: "Discard a staged operation. Aborting twice is harmless.",
		InputSchema: inputSchema(map[string]any{
			"operation_id": map[string]any{"type": "string"},
		}, "operation_id"),
	}, s.abortStaged)

	s.addTool(srv, &mcp.Tool{
		Name:        "close_session",
		Description: "Abort every live operation of the session and forget its working context.",
		InputSchema: inputSchema(map[string]any{}),
	}, s.closeSession)

	s.addTool(srv, &mcp.Tool{
		Name:        "cache_stats",
		Description: "Report document cache hits, misses, evictions and hit rate.",
		InputSchema: inputSchema(map[string]any{}),
	}, s.cacheStats)

	s.addTool(srv, &mcp.Tool{
		Name:        "list_languages",
		Description: "List the languages with a grammar.",
		InputSchema: inputSchema(map[string]any{}),
	}, s.listLanguages)
}

type sessionArgs struct {
	Session string `json:"session"`
}

func (s *Server) setContext(_ context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[struct {
		sessionArgs
		Dir string `json:"dir"`
	}](raw)
	if err != nil {
		return result{}, err
	}
	dir, err := s.eng.SetWorkingContext(s.session(args.Session), args.Dir)
	if err != nil {
		return result{}, err
	}
	return result{value: map[string]string{"dir": dir}}, nil
}

func (s *Server) openDocument(ctx context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[struct {
		sessionArgs
		Path     string `json:"path"`
		Language string `json:"language"`
	}](raw)
	if err != nil {
		return result{}, err
	}
	info, err := s.eng.OpenDocument(ctx, s.session(args.Session), args.Path, args.Language)
	if err != nil {
		return result{}, err
	}
	return result{value: info}, nil
}

func (s *Server) documentInfo(_ context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[struct {
		sessionArgs
		DocumentID string `json:"document_id"`
	}](raw)
	if err != nil {
		return result{}, err
	}
	info, err := s.eng.DocumentInfo(args.DocumentID)
	if err != nil {
		return result{}, err
	}
	return result{value: info}, nil
}

func (s *Server) documentOutline(_ context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[struct {
		sessionArgs
		DocumentID string `json:"document_id"`
	}](raw)
	if err != nil {
		return result{}, err
	}
	info, err := s.eng.DocumentInfo(args.DocumentID)
	if err != nil {
		return result{}, err
	}
	syms, rev, err := s.eng.Outline(args.DocumentID)
	if err != nil {
		return result{}, err
	}
	return result{
		value: map[string]any{"document_id": info.ID, "revision": rev, "definitions": len(syms)},
		extra: []string{outline.Render(info.Path, syms, 0)},
	}, nil
}

func policyOf(index *int) types.Policy {
	if index == nil {
		return types.RequireUnique()
	}
	return types.SelectIndex(*index)
}

func (s *Server) stageOperation(ctx context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[struct {
		sessionArgs
		DocumentID string          `json:"document_id"`
		Selector   types.Selector  `json:"selector"`
		Operation  types.Operation `json:"operation"`
		Text       string          `json:"text"`
		Index      *int            `json:"index"`
	}](raw)
	if err != nil {
		return result{}, err
	}
	p, err := s.eng.Stage(ctx, s.session(args.Session), engine.StageRequest{
		Document:  args.DocumentID,
		Selector:  args.Selector,
		Operation: args.Operation,
		Text:      args.Text,
		Policy:    policyOf(args.Index),
	})
	if err != nil {
		return result{}, err
	}
	return previewResult(p), nil
}

func (s *Server) retargetStaged(ctx context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[struct {
		sessionArgs
		OperationID string         `json:"operation_id"`
		Selector    types.Selector `json:"selector"`
		Index       *int           `json:"index"`
	}](raw)
	if err != nil {
		return result{}, err
	}
	if err := s.eng.CheckSession(s.session(args.Session), args.OperationID); err != nil {
		return result{}, err
	}
	p, err := s.eng.Retarget(ctx, args.OperationID, args.Selector, policyOf(args.Index))
	if err != nil {
		return result{}, err
	}
	return previewResult(p), nil
}

func (s *Server) commitStaged(ctx context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[struct {
		sessionArgs
		OperationID string `json:"operation_id"`
		Acknowledge bool   `json:"acknowledge"`
	}](raw)
	if err != nil {
		return result{}, err
	}
	if !args.Acknowledge {
		return result{}, ErrNotAcknowledged
	}
	if err := s.eng.CheckSession(s.session(args.Session), args.OperationID); err != nil {
		return result{}, err
	}
	res, err := s.eng.Commit(ctx, args.OperationID)
	if err != nil {
		return result{}, err
	}
	return result{value: summary{
		OperationID: res.OperationID,
		Status:      engine.Committed.String(),
		Revision:    res.Revision,
		Written:     res.Written,
		Metrics:     res.Diff.Metrics,
	}, extra: diffText(res.Diff)}, nil
}

func (s *Server) abortStaged(ctx context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[struct {
		sessionArgs
		OperationID string `json:"operation_id"`
	}](raw)
	if err != nil {
		return result{}, err
	}
	if err := s.eng.CheckSession(s.session(args.Session), args.OperationID); err != nil {
		return result{}, err
	}
	if err := s.eng.Abort(ctx, args.OperationID); err != nil {
		return result{}, err
	}
	// A committed operation stays committed.
	status, err := s.eng.OperationStatus(args.OperationID)
	if err != nil {
		return result{}, err
	}
	return result{value: map[string]string{"operation_id": args.OperationID, "status": status.String()}}, nil
}

func (s *Server) closeSession(_ context.Context, raw json.RawMessage) (result, error) {
	args, err := decode[sessionArgs](raw)
	if err != nil {
		return result{}, err
	}
	id := s.session(args.Session)
	s.eng.CloseSession(id)
	if id != s.defaultSession {
		s.forget(id)
	}
	return result{value: map[string]bool{"closed": true}}, nil
}

func (s *Server) cacheStats(context.Context, json.RawMessage) (result, error) {
	return result{value: s.eng.CacheStats()}, nil
}

func (s *Server) listLanguages(context.Context, json.RawMessage) (result, error) {
	return result{value: map[string][]string{"languages": s.eng.Languages()}}, nil
}

// summary is the JSON block of stage, retarget and commit results. The
// diff itself follows as a separate text block.
type summary struct {
	OperationID string       `json:"operation_id"`
	Status      string       `json:"status"`
	Revision    uint64       `json:"revision"`
	Range       *types.Span  `json:"range,omitempty"`
	Written     bool         `json:"written,omitempty"`
	Metrics     diff.Metrics `json:"metrics"`
}

func previewResult(p *engine.Preview) result {
	r := p.Range
	return result{value: summary{
		OperationID: p.OperationID,
		Status:      p.Status.String(),
		Revision:    p.Revision,
		Range:       &r,
		Metrics:     p.Diff.Metrics,
	}, extra: diffText(p.Diff)}
}

func diffText(d *diff.Diff) []string {
	var b strings.Builder
	if d.Empty() {
		b.WriteString("(no changes)\n")
	} else {
		fmt.Fprintf(&b, "```diff\n%s```\n", d.Unified)
	}
	if d.Metrics.Tip != "" {
		fmt.Fprintf(&b, "\nTip: %s\n", d.Metrics.Tip)
	}
	return []string{b.String()}
}
