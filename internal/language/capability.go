// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package language holds per-language capabilities: formatting and the
// structural rules checked by the context validation layer. Capabilities
// are plain records looked up by language tag.
package language

import (
	"context"
	"sort"
	"sync"

	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

// EditContext is what a capability sees of a speculative edit.
type EditContext struct {
	Before *syntax.Tree // tree the edit was computed against
	After  *syntax.Tree // tree of the speculative buffer
	Target types.Span   // replaced span in Before
	Edited types.Span   // replacement span in After
}

// Violation is a broken structural rule.
type Violation struct {
	Rule       string
	Reason     string
	Suggestion string
	NodeKind   string
	Span       types.Span
}

// Capability is the function set registered for one language. Nil fields
// mean "not supported" and are skipped.
type Capability struct {
	Language   string
	Extensions []string

	Format func(ctx context.Context, src []byte) ([]byte, error)
	Check  func(ctx context.Context, ec EditContext) (*Violation, error)
	Rules  *Rules
}

// SupportedExtensions returns the file extensions the capability claims.
func (c *Capability) SupportedExtensions() []string { return c.Extensions }

// ChecksContext reports whether the context layer has anything to run.
func (c *Capability) ChecksContext() bool {
	return c.Check != nil || (c.Rules != nil && !c.Rules.empty())
}

// FormatText formats src, returning it unchanged when the capability has no
// formatter.
func (c *Capability) FormatText(ctx context.Context, src []byte) ([]byte, error) {
	if c.Format == nil {
		return src, nil
	}
	return c.Format(ctx, src)
}

// CheckContext runs the declarative rules, then the custom check.
func (c *Capability) CheckContext(ctx context.Context, ec EditContext) (*Violation, error) {
	if c.Rules != nil {
		v, err := c.Rules.Check(ctx, ec)
		if err != nil || v != nil {
			return v, err
		}
	}
	if c.Check != nil {
		return c.Check(ctx, ec)
	}
	return nil, nil
}

// Default is used for languages without a registered capability: no
// formatting and no context rules.
var Default = &Capability{}

// Registry maps language tags to capabilities.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]*Capability
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]*Capability)}
}

// Builtin returns a registry with every capability shipped with semedit.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(goCapability())
	r.Register(rustCapability())
	r.Register(pythonCapability())
	for _, c := range ecmaCapabilities() {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the capability for c.Language.
func (r *Registry) Register(c *Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.Language] = c
}

// Lookup returns the capability for lang, or Default.
func (r *Registry) Lookup(lang string) *Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.caps[lang]; ok {
		return c
	}
	return Default
}

// Languages lists registered tags in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.caps))
	for name := range r.caps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AddRules merges extra rules into lang's capability, creating one when the
// language has none. The registered capability is replaced by a copy.
func (r *Registry) AddRules(lang string, rules *Rules) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := &Capability{Language: lang}
	if cur, ok := r.caps[lang]; ok {
		cp := *cur
		next = &cp
	}
	next.Rules = next.Rules.merge(rules)
	r.caps[lang] = next
}
