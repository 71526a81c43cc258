// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package semedit is the public interface of the semantic edit engine:
// selector-addressed edits on source files that are validated against the
// language grammar and placement rules before anything touches disk.
package semedit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/petar-djukic/semedit/internal/docstore"
	"github.com/petar-djukic/semedit/internal/engine"
	"github.com/petar-djukic/semedit/pkg/types"
)

// ErrInvalidConfig reports a Config rejected by New.
var ErrInvalidConfig = errors.New("invalid config")

// Engine failures, matched with errors.Is.
var (
	ErrNotFound         = types.ErrNotFound
	ErrAmbiguous        = types.ErrAmbiguous
	ErrInvalidBoundary  = types.ErrInvalidBoundary
	ErrContextViolation = types.ErrContextViolation
	ErrSyntaxViolation  = types.ErrSyntaxViolation
	ErrStaleTarget      = types.ErrStaleTarget
	ErrAlreadyCommitted = types.ErrAlreadyCommitted
	ErrAlreadyAborted   = types.ErrAlreadyAborted
	ErrIoFailure        = types.ErrIoFailure
	ErrInvalidSelector  = types.ErrInvalidSelector
	ErrUnknownOperation = types.ErrUnknownOperation
	ErrUnknownDocument  = types.ErrUnknownDocument
	ErrContextNotFound  = types.ErrContextNotFound
	ErrCacheFull        = types.ErrCacheFull
)

// Config configures an Editor.
type Config struct {
	WorkDir   string       // Directory relative paths resolve against (required)
	CacheSize int          // Documents kept parsed (default 64)
	Eviction  string       // "refuse" (default) or "abort"
	Format    bool         // Run the language formatter on validated edits
	Watch     bool         // Reload documents changed on disk
	RulesFile string       // Extra YAML placement rules
	Logger    *slog.Logger // Defaults to slog.Default()
}

// Request describes one edit of the file at Path.
type Request struct {
	Path      string
	Language  string // Empty detects by extension
	Selector  types.Selector
	Operation types.Operation
	Text      string
	Policy    types.Policy
}

type (
	Preview      = engine.Preview
	CommitResult = engine.CommitResult
	DocumentInfo = docstore.Info
	CacheStats   = docstore.Stats
)

// Editor stages, commits and aborts edits. Implementations are safe for
// concurrent use.
type Editor interface {
	// Open loads path into the document cache.
	Open(ctx context.Context, path, language string) (DocumentInfo, error)

	// Stage validates req and records it without writing. The returned
	// preview carries the operation id and the diff the commit would write.
	Stage(ctx context.Context, req Request) (*Preview, error)

	// Retarget points a staged operation at a new target.
	Retarget(ctx context.Context, opID string, sel types.Selector, policy types.Policy) (*Preview, error)

	// Commit re-validates and writes a staged operation.
	Commit(ctx context.Context, opID string) (*CommitResult, error)

	// Abort discards a staged operation.
	Abort(ctx context.Context, opID string) error

	// Apply stages and commits req in one step.
	Apply(ctx context.Context, req Request) (*CommitResult, error)

	// ServeMCP exposes the editor as MCP tools over t until ctx is done.
	ServeMCP(ctx context.Context, t mcp.Transport, version string) error

	Languages() []string
	Stats() CacheStats
	Close() error
}
