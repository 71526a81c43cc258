// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package semedit

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/petar-djukic/semedit/internal/docstore"
	"github.com/petar-djukic/semedit/internal/engine"
	"github.com/petar-djukic/semedit/internal/language"
	"github.com/petar-djukic/semedit/internal/mcpserver"
	"github.com/petar-djukic/semedit/pkg/types"
)

const defaultCacheSize = 64

// New validates cfg and returns a ready Editor whose working context is
// cfg.WorkDir.
func New(cfg Config) (Editor, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)

	caps := language.Builtin()
	if cfg.RulesFile != "" {
		if err := caps.LoadRules(cfg.RulesFile); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	policy, _ := docstore.ParsePolicy(cfg.Eviction)

	eng, err := engine.New(engine.Options{
		Capabilities: caps,
		CacheSize:    cfg.CacheSize,
		Eviction:     policy,
		Watch:        cfg.Watch,
		Format:       cfg.Format,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	session := eng.NewSession()
	if _, err := eng.SetWorkingContext(session, cfg.WorkDir); err != nil {
		eng.Close()
		return nil, err
	}
	return &editor{eng: eng, session: session, logger: cfg.Logger}, nil
}

// editor adapts the engine to the public Editor interface with a single
// session.
type editor struct {
	eng     *engine.Engine
	session string
	logger  *slog.Logger
}

func (ed *editor) Open(ctx context.Context, path, lang string) (DocumentInfo, error) {
	return ed.eng.OpenDocument(ctx, ed.session, path, lang)
}

func (ed *editor) Stage(ctx context.Context, req Request) (*Preview, error) {
	info, err := ed.Open(ctx, req.Path, req.Language)
	if err != nil {
		return nil, err
	}
	return ed.eng.Stage(ctx, ed.session, engine.StageRequest{
		Document:  info.ID,
		Selector:  req.Selector,
		Operation: req.Operation,
		Text:      req.Text,
		Policy:    req.Policy,
	})
}

func (ed *editor) Retarget(ctx context.Context, opID string, sel types.Selector, policy types.Policy) (*Preview, error) {
	return ed.eng.Retarget(ctx, opID, sel, policy)
}

func (ed *editor) Commit(ctx context.Context, opID string) (*CommitResult, error) {
	return ed.eng.Commit(ctx, opID)
}

func (ed *editor) Abort(ctx context.Context, opID string) error {
	return ed.eng.Abort(ctx, opID)
}

func (ed *editor) Apply(ctx context.Context, req Request) (*CommitResult, error) {
	p, err := ed.Stage(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := ed.eng.Commit(ctx, p.OperationID)
	if err != nil {
		if aerr := ed.eng.Abort(ctx, p.OperationID); aerr != nil {
			ed.logger.Warn("aborting uncommitted operation", "op", p.OperationID, "error", aerr)
		}
		return nil, err
	}
	return res, nil
}

func (ed *editor) ServeMCP(ctx context.Context, t mcp.Transport, version string) error {
	return mcpserver.New(ed.eng, ed.logger).Run(ctx, version, t)
}

func (ed *editor) Languages() []string { return ed.eng.Languages() }

func (ed *editor) Stats() CacheStats { return ed.eng.CacheStats() }

func (ed *editor) Close() error { return ed.eng.Close() }

// validateConfig checks required fields and enumerations.
func validateConfig(cfg Config) error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("WorkDir is required")
	}
	if info, err := os.Stat(cfg.WorkDir); err != nil || !info.IsDir() {
		return fmt.Errorf("WorkDir %q does not exist or is not a directory", cfg.WorkDir)
	}
	if cfg.CacheSize < 0 {
		return fmt.Errorf("CacheSize must not be negative, got %d", cfg.CacheSize)
	}
	if _, err := docstore.ParsePolicy(cfg.Eviction); err != nil {
		return err
	}
	return nil
}

// applyDefaults fills in zero-value fields.
func applyDefaults(cfg *Config) {
	if cfg.CacheSize == 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}
