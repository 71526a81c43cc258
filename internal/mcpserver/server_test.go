// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/semedit/internal/engine"
	"github.com/petar-djukic/semedit/pkg/types"
)

const rustLib = `fn parse(s: &str) -> i32 {
    0
}

mod inner {
    fn parse(s: &str) -> i32 {
        1
    }
}
`

var testImpl = &mcp.Implementation{Name: "semedit-test", Version: "0.0.1"}

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := engine.New(engine.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	srv := New(eng, logger).MCP("test")
	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(testImpl, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

// call returns the text blocks of a tool result and whether it is an error.
func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) ([]string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	var texts []string
	for _, c := range res.Content {
		tc, ok := c.(*mcp.TextContent)
		require.True(t, ok)
		texts = append(texts, tc.Text)
	}
	return texts, res.IsError
}

func callOK(t *testing.T, session *mcp.ClientSession, name string, args map[string]any, out any) []string {
	t.Helper()
	texts, isErr := call(t, session, name, args)
	require.False(t, isErr, "%s failed: %v", name, texts)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(texts[0]), out))
	}
	return texts
}

func setup(t *testing.T, session *mcp.ClientSession) (dir, docID string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte(rustLib), 0o644))
	callOK(t, session, "set_context", map[string]any{"dir": dir}, nil)

	var info struct {
		ID       string `json:"document_id"`
		Revision uint64 `json:"revision"`
		Language string `json:"language"`
	}
	callOK(t, session, "open_document", map[string]any{"path": "lib.rs"}, &info)
	require.NotEmpty(t, info.ID)
	assert.Equal(t, uint64(1), info.Revision)
	assert.Equal(t, "rust", info.Language)
	return dir, info.ID
}

type summaryOut struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
	Revision    uint64 `json:"revision"`
	Written     bool   `json:"written"`
}

func TestTools_StageCommit(t *testing.T) {
	session := connect(t)
	dir, docID := setup(t, session)

	var staged summaryOut
	texts := callOK(t, session, "stage_operation", map[string]any{
		"document_id": docID,
		"selector":    map[string]any{"by": "name", "name": "parse"},
		"operation":   "replace_node",
		"text":        "fn parse(s: &str) -> i32 {\n    42\n}",
		"index":       0,
	}, &staged)
	assert.Equal(t, "staged", staged.Status)
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "```diff\n--- a/")
	assert.Contains(t, texts[1], "+    42\n")

	texts, isErr := call(t, session, "commit_staged", map[string]any{"operation_id": staged.OperationID})
	assert.True(t, isErr)
	assert.Contains(t, texts[0], "acknowledge")

	var committed summaryOut
	callOK(t, session, "commit_staged", map[string]any{"operation_id": staged.OperationID, "acknowledge": true}, &committed)
	assert.True(t, committed.Written)
	assert.Equal(t, uint64(2), committed.Revision)

	var info struct {
		Revision  uint64 `json:"revision"`
		HasErrors bool   `json:"has_errors"`
		Holds     int    `json:"holds"`
	}
	callOK(t, session, "document_info", map[string]any{"document_id": docID}, &info)
	assert.Equal(t, uint64(2), info.Revision)
	assert.False(t, info.HasErrors)
	assert.Zero(t, info.Holds)

	data, err := os.ReadFile(filepath.Join(dir, "lib.rs"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "fn parse(s: &str) -> i32 {\n    42\n}"))

	var aborted summaryOut
	callOK(t, session, "abort_staged", map[string]any{"operation_id": staged.OperationID}, &aborted)
	assert.Equal(t, "committed", aborted.Status)
	callOK(t, session, "document_info", map[string]any{"document_id": docID}, &info)
	assert.Equal(t, uint64(2), info.Revision)
}

func TestTools_Errors(t *testing.T) {
	session := connect(t)
	_, docID := setup(t, session)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want []string
	}{
		{
			name: "ambiguous lists candidates",
			tool: "stage_operation",
			args: map[string]any{
				"document_id": docID,
				"selector":    map[string]any{"by": "name", "name": "parse"},
				"operation":   "replace_node",
				"text":        "fn parse() {}",
			},
			want: []string{"ambiguous", "## Candidates", "[0] function_item at line 1", "[1] function_item at line 6"},
		},
		{
			name: "unknown selector variant",
			tool: "stage_operation",
			args: map[string]any{
				"document_id": docID,
				"selector":    map[string]any{"by": "regex"},
				"operation":   "replace_node",
				"text":        "x",
			},
			want: []string{"invalid_selector"},
		},
		{
			name: "not found suggests names",
			tool: "stage_operation",
			args: map[string]any{
				"document_id": docID,
				"selector":    map[string]any{"by": "name", "name": "pars"},
				"operation":   "replace_node",
				"text":        "x",
			},
			want: []string{"not_found", "## Did you mean", "parse"},
		},
		{
			name: "syntax error shows context",
			tool: "stage_operation",
			args: map[string]any{
				"document_id": docID,
				"selector":    map[string]any{"by": "kind", "kind": "integer_literal"},
				"operation":   "replace_node",
				"text":        "(1 +",
				"index":       0,
			},
			want: []string{"syntax_violation", "```\n", "│"},
		},
		{
			name: "unknown operation id",
			tool: "retarget_staged",
			args: map[string]any{
				"operation_id": "missing",
				"selector":     map[string]any{"by": "kind", "kind": "integer_literal"},
			},
			want: []string{"unknown_operation"},
		},
		{
			name: "unknown document",
			tool: "stage_operation",
			args: map[string]any{
				"document_id": "missing",
				"selector":    map[string]any{"by": "kind", "kind": "integer_literal"},
				"operation":   "replace_node",
				"text":        "1",
			},
			want: []string{"unknown_document"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			texts, isErr := call(t, session, tt.tool, tt.args)
			require.True(t, isErr, "expected error, got %v", texts)
			for _, w := range tt.want {
				assert.Contains(t, texts[0], w)
			}
		})
	}
}

func TestTools_RetargetAbort(t *testing.T) {
	session := connect(t)
	_, docID := setup(t, session)

	var staged summaryOut
	callOK(t, session, "stage_operation", map[string]any{
		"document_id": docID,
		"selector":    map[string]any{"by": "kind", "kind": "integer_literal"},
		"operation":   "replace_node",
		"text":        "7",
		"index":       0,
	}, &staged)

	var moved summaryOut
	callOK(t, session, "retarget_staged", map[string]any{
		"operation_id": staged.OperationID,
		"selector":     map[string]any{"by": "kind", "kind": "integer_literal"},
		"index":        1,
	}, &moved)
	assert.Equal(t, "retargeted", moved.Status)

	callOK(t, session, "abort_staged", map[string]any{"operation_id": staged.OperationID}, nil)
	callOK(t, session, "abort_staged", map[string]any{"operation_id": staged.OperationID}, nil)

	texts, isErr := call(t, session, "commit_staged", map[string]any{"operation_id": staged.OperationID, "acknowledge": true})
	assert.True(t, isErr)
	assert.Contains(t, texts[0], "already_aborted")
}

func TestTools_Sessions(t *testing.T) {
	session := connect(t)
	setup(t, session)

	texts, isErr := call(t, session, "open_document", map[string]any{"path": "lib.rs", "session": "other"})
	assert.True(t, isErr)
	assert.Contains(t, texts[0], "context_not_found")
	assert.Contains(t, texts[0], "set_context")

	callOK(t, session, "close_session", map[string]any{}, nil)
	_, isErr = call(t, session, "open_document", map[string]any{"path": "lib.rs"})
	assert.True(t, isErr)
}

func TestTools_SessionOwnership(t *testing.T) {
	session := connect(t)
	_, docID := setup(t, session)

	var staged summaryOut
	callOK(t, session, "stage_operation", map[string]any{
		"document_id": docID,
		"selector":    map[string]any{"by": "kind", "kind": "integer_literal"},
		"operation":   "replace_node",
		"text":        "7",
		"index":       0,
	}, &staged)

	foreign := []struct {
		tool string
		args map[string]any
	}{
		{"retarget_staged", map[string]any{"selector": map[string]any{"by": "kind", "kind": "integer_literal"}, "index": 1}},
		{"commit_staged", map[string]any{"acknowledge": true}},
		{"abort_staged", map[string]any{}},
	}
	for _, tt := range foreign {
		t.Run(tt.tool, func(t *testing.T) {
			tt.args["operation_id"] = staged.OperationID
			tt.args["session"] = "other"
			texts, isErr := call(t, session, tt.tool, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, texts[0], "unknown_operation")
		})
	}

	var committed summaryOut
	callOK(t, session, "commit_staged", map[string]any{"operation_id": staged.OperationID, "acknowledge": true}, &committed)
	assert.Equal(t, "committed", committed.Status)
}

func TestRun_ClosesClientSessions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := engine.New(engine.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte(rustLib), 0o644))

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = New(eng, logger).Run(ctx, "test", serverT)
	}()
	session, err := mcp.NewClient(testImpl, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)

	callOK(t, session, "set_context", map[string]any{"dir": dir, "session": "named"}, nil)
	var info struct {
		ID string `json:"document_id"`
	}
	callOK(t, session, "open_document", map[string]any{"path": "lib.rs", "session": "named"}, &info)
	var staged summaryOut
	callOK(t, session, "stage_operation", map[string]any{
		"document_id": info.ID,
		"selector":    map[string]any{"by": "kind", "kind": "integer_literal"},
		"operation":   "replace_node",
		"text":        "7",
		"index":       0,
		"session":     "named",
	}, &staged)

	doc, err := eng.DocumentInfo(info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Holds)

	require.NoError(t, session.Close())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after the client disconnected")
	}

	doc, err = eng.DocumentInfo(info.ID)
	require.NoError(t, err)
	assert.Zero(t, doc.Holds)
	_, err = eng.OperationStatus(staged.OperationID)
	assert.ErrorIs(t, err, types.ErrUnknownOperation)
}

func TestTools_Info(t *testing.T) {
	session := connect(t)
	setup(t, session)

	var stats struct {
		Entries int   `json:"entries"`
		Misses  int64 `json:"misses"`
	}
	callOK(t, session, "cache_stats", nil, &stats)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Misses)

	var langs struct {
		Languages []string `json:"languages"`
	}
	callOK(t, session, "list_languages", nil, &langs)
	assert.Contains(t, langs.Languages, "go")
	assert.Contains(t, langs.Languages, "rust")

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"set_context", "open_document", "stage_operation", "retarget_staged",
		"commit_staged", "abort_staged", "close_session", "cache_stats", "list_languages",
		"document_info", "document_outline",
	}, names)
}

func TestTools_Outline(t *testing.T) {
	session := connect(t)
	_, docID := setup(t, session)

	var out struct {
		Revision    uint64 `json:"revision"`
		Definitions int    `json:"definitions"`
	}
	texts := callOK(t, session, "document_outline", map[string]any{"document_id": docID}, &out)
	assert.Equal(t, uint64(1), out.Revision)
	assert.Equal(t, 3, out.Definitions)
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "(3/3 definitions)")
	assert.Contains(t, texts[1], "   5  mod inner {")
	assert.Contains(t, texts[1], "     6  fn parse(s: &str) -> i32 {")
}
