// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package engine is the edit orchestrator. It owns sessions, working
// contexts and staged operations, and drives selector resolution, edit
// placement, validation and commits against the document cache.
//
// An operation moves Staged → (Retargeted)* → Committed or Aborted. Its
// edit has always passed both validation layers against the revision it
// records, and commit runs them again against whatever the document holds
// at that moment. Locks are taken cache → engine → operation → document.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/petar-djukic/semedit/internal/docstore"
	"github.com/petar-djukic/semedit/internal/language"
	"github.com/petar-djukic/semedit/internal/outline"
	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/internal/validate"
	"github.com/petar-djukic/semedit/pkg/types"
)

// Options configures an Engine. Zero values select built-in grammars and
// capabilities and an engine-owned document cache.
type Options struct {
	Provider     *syntax.Provider
	Capabilities *language.Registry

	CacheSize int
	Eviction  docstore.EvictionPolicy
	Watch     bool

	// Format runs the language formatter over validated buffers.
	Format bool

	Logger *slog.Logger
}

// Engine is safe for concurrent use. Close tears down every session.
type Engine struct {
	provider  *syntax.Provider
	caps      *language.Registry
	validator *validate.Validator
	store     *docstore.Store
	format    bool
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	ops      map[string]*operation
	closed   bool
}

type session struct {
	id      string
	workdir string
	ops     map[string]*operation
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Provider == nil {
		opts.Provider = syntax.NewProvider()
	}
	if opts.Capabilities == nil {
		opts.Capabilities = language.Builtin()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	store, err := docstore.New(opts.Provider, docstore.Options{
		Capacity: opts.CacheSize,
		Policy:   opts.Eviction,
		Watch:    opts.Watch,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		provider:  opts.Provider,
		caps:      opts.Capabilities,
		validator: validate.New(opts.Provider, opts.Capabilities),
		store:     store,
		format:    opts.Format,
		logger:    opts.Logger,
		sessions:  make(map[string]*session),
		ops:       make(map[string]*operation),
	}
	store.OnEvict(e.abortDocument)
	return e, nil
}

// Languages lists the languages with a grammar.
func (e *Engine) Languages() []string { return e.provider.Languages() }

// Capabilities returns the capability registry.
func (e *Engine) Capabilities() *language.Registry { return e.caps }

// NewSession returns the id of a new, empty session.
func (e *Engine) NewSession() string {
	id := uuid.NewString()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions[id] = &session{id: id, ops: make(map[string]*operation)}
	return id
}

// sessionLocked returns the session with id, creating it on first use.
func (e *Engine) sessionLocked(id string) *session {
	s, ok := e.sessions[id]
	if !ok {
		s = &session{id: id, ops: make(map[string]*operation)}
		e.sessions[id] = s
	}
	return s
}

// SetWorkingContext sets the directory relative paths of the session
// resolve against. dir itself may be absolute, start with ~, or be
// relative to the current context. It returns the resolved directory.
func (e *Engine) SetWorkingContext(sessionID, dir string) (string, error) {
	resolved, err := e.ResolvePath(sessionID, dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("not a directory")
		}
		return "", &types.Error{
			Kind:    types.KindContextNotFound,
			Message: fmt.Sprintf("working context %s is not a directory", resolved),
			Path:    resolved,
			Err:     err,
		}
	}

	e.mu.Lock()
	e.sessionLocked(sessionID).workdir = resolved
	e.mu.Unlock()
	e.logger.Info("working context set", "session", sessionID, "dir", resolved)
	return resolved, nil
}

// ResolvePath maps path to an absolute path: ~ expands to the home
// directory, absolute paths are cleaned, relative paths join the
// session's working context.
func (e *Engine) ResolvePath(sessionID, path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &types.Error{Kind: types.KindContextNotFound, Message: "cannot expand ~", Path: path, Err: err}
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	e.mu.Lock()
	var workdir string
	if s, ok := e.sessions[sessionID]; ok {
		workdir = s.workdir
	}
	e.mu.Unlock()
	if workdir == "" {
		return "", &types.Error{
			Kind:    types.KindContextNotFound,
			Message: fmt.Sprintf("relative path %q needs a working context; call set_context first", path),
			Path:    path,
		}
	}
	return filepath.Join(workdir, path), nil
}

// OpenDocument loads a file into the cache and returns its description.
func (e *Engine) OpenDocument(ctx context.Context, sessionID, path, hint string) (info docstore.Info, err error) {
	ctx, span := startSpan(ctx, "OpenDocument", attribute.String("semedit.path", path))
	defer func() { endSpan(ctx, span, "open_document", err) }()

	resolved, err := e.ResolvePath(sessionID, path)
	if err != nil {
		return docstore.Info{}, err
	}
	if hint != "" {
		if _, ok := e.provider.Grammar(hint); !ok && hint != syntax.PlainText {
			return docstore.Info{}, fmt.Errorf("unknown language %q (known: %s)", hint, strings.Join(e.provider.Languages(), ", "))
		}
	}
	doc, err := e.store.Open(ctx, resolved, hint)
	if err != nil {
		return docstore.Info{}, err
	}
	info = doc.Info()
	e.logger.Debug("document opened", "session", sessionID, "doc", info.ID, "path", resolved, "revision", info.Revision)
	return info, nil
}

// DocumentInfo describes an open document.
func (e *Engine) DocumentInfo(id string) (docstore.Info, error) {
	doc, err := e.store.Get(id)
	if err != nil {
		return docstore.Info{}, err
	}
	return doc.Info(), nil
}

// Outline lists the definitions of an open document at its current
// revision.
func (e *Engine) Outline(id string) (syms []outline.Symbol, rev uint64, err error) {
	doc, err := e.store.Get(id)
	if err != nil {
		return nil, 0, err
	}
	err = doc.Read(func(tree *syntax.Tree, r uint64) error {
		rev = r
		syms, err = outline.Extract(tree)
		return err
	})
	return syms, rev, err
}

// CacheStats reports document cache statistics.
func (e *Engine) CacheStats() docstore.Stats { return e.store.Stats() }

// CloseSession aborts the session's live operations and forgets it.
// Closing an unknown session is a no-op.
func (e *Engine) CloseSession(sessionID string) {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if ok {
		delete(e.sessions, sessionID)
		for id := range s.ops {
			delete(e.ops, id)
		}
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	aborted := 0
	for _, op := range s.ops {
		if op.abort() {
			aborted++
		}
	}
	e.logger.Info("session closed", "session", sessionID, "aborted", aborted)
}

// Close ends every session and releases the document cache.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.CloseSession(id)
	}
	return e.store.Close()
}

// abortDocument is the cache eviction hook. It runs with the cache lock
// held and only takes engine, operation and document-pin locks.
func (e *Engine) abortDocument(doc *docstore.Document) {
	e.mu.Lock()
	var victims []*operation
	for _, op := range e.ops {
		if op.doc == doc {
			victims = append(victims, op)
		}
	}
	e.mu.Unlock()

	for _, op := range victims {
		if op.abort() {
			e.logger.Warn("operation aborted by cache eviction", "op", op.id, "doc", doc.ID(), "path", doc.Path())
		}
	}
}

func (e *Engine) lookup(opID string) (*operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	op, ok := e.ops[opID]
	if !ok {
		return nil, &types.Error{Kind: types.KindUnknownOperation, Message: fmt.Sprintf("no staged operation %q", opID)}
	}
	return op, nil
}
