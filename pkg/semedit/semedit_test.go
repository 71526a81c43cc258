// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package semedit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/semedit/pkg/types"
)

func TestNew_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing workdir", Config{}},
		{"workdir not found", Config{WorkDir: filepath.Join(dir, "missing")}},
		{"workdir is a file", Config{WorkDir: file}},
		{"negative cache", Config{WorkDir: dir, CacheSize: -1}},
		{"unknown eviction", Config{WorkDir: dir, Eviction: "lru"}},
		{"missing rules file", Config{WorkDir: dir, RulesFile: filepath.Join(dir, "rules.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{WorkDir: "/x"}
	applyDefaults(&cfg)
	assert.Equal(t, defaultCacheSize, cfg.CacheSize)
	assert.NotNil(t, cfg.Logger)
}

func newEditor(t *testing.T, files map[string]string) (Editor, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	ed, err := New(Config{WorkDir: dir, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	t.Cleanup(func() { ed.Close() })
	return ed, dir
}

func TestEditor_Apply(t *testing.T) {
	src := "def greet(name):\n    return name\n"
	ed, dir := newEditor(t, map[string]string{"greet.py": src})

	res, err := ed.Apply(context.Background(), Request{
		Path:      "greet.py",
		Selector:  types.ByName("greet", ""),
		Operation: types.InsertAfterNode,
		Text:      "\n\ndef farewell(name):\n    return name\n",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Revision)
	assert.GreaterOrEqual(t, res.Diff.Metrics.LinesAdded, 3)

	data, err := os.ReadFile(filepath.Join(dir, "greet.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "def farewell(name):")
}

func TestEditor_ApplyRejected(t *testing.T) {
	src := "def greet(name):\n    return name\n"
	ed, dir := newEditor(t, map[string]string{"greet.py": src})

	_, err := ed.Apply(context.Background(), Request{
		Path:      "greet.py",
		Selector:  types.ByName("greet", ""),
		Operation: types.InsertAfterNode,
		Text:      "\nreturn 1\n",
	})
	assert.True(t, errors.Is(err, ErrContextViolation), "got %v", err)

	data, err := os.ReadFile(filepath.Join(dir, "greet.py"))
	require.NoError(t, err)
	assert.Equal(t, src, string(data))
	assert.Zero(t, ed.Stats().Evictions)
}

func TestEditor_ApplyWriteFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind root")
	}
	src := "def greet(name):\n    return name\n"
	ed, dir := newEditor(t, map[string]string{"greet.py": src})
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	_, err := ed.Apply(context.Background(), Request{
		Path:      "greet.py",
		Selector:  types.ByName("greet", ""),
		Operation: types.InsertBefore,
		Text:      "# greeting\n",
	})
	assert.True(t, errors.Is(err, ErrIoFailure), "got %v", err)

	info, err := ed.Open(context.Background(), "greet.py", "")
	require.NoError(t, err)
	assert.Zero(t, info.Holds, "failed commit leaves no pinned operation")
	assert.Equal(t, uint64(1), info.Revision)
}

func TestEditor_StageAbort(t *testing.T) {
	ed, _ := newEditor(t, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})
	ctx := context.Background()

	p, err := ed.Stage(ctx, Request{
		Path:      "main.go",
		Selector:  types.ByName("main", "function_declaration"),
		Operation: types.InsertBefore,
		Text:      "// main runs the program.\n",
	})
	require.NoError(t, err)
	require.NoError(t, ed.Abort(ctx, p.OperationID))

	_, err = ed.Commit(ctx, p.OperationID)
	assert.True(t, errors.Is(err, ErrAlreadyAborted))
	assert.Contains(t, ed.Languages(), "python")
}
