// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package validate gates every edit behind two checks run on a speculative
// copy of the buffer: the language's structural context rules, then a
// re-parse that must not introduce new syntax errors near the edit.
package validate

import (
	"context"
	"fmt"

	"github.com/petar-djukic/semedit/internal/edit"
	"github.com/petar-djukic/semedit/internal/feedback"
	"github.com/petar-djukic/semedit/internal/language"
	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

// Validator runs the context and syntax layers.
type Validator struct {
	provider *syntax.Provider
	caps     *language.Registry
}

// New returns a Validator parsing with provider and looking up rules in
// caps.
func New(provider *syntax.Provider, caps *language.Registry) *Validator {
	return &Validator{provider: provider, caps: caps}
}

// Speculation is a buffer that passed both layers, with its parse tree.
// Close releases the tree unless Keep transferred ownership.
type Speculation struct {
	Text []byte
	Edit edit.Edit

	tree *syntax.Tree
	kept bool
}

// Tree returns the speculative parse tree.
func (s *Speculation) Tree() *syntax.Tree { return s.tree }

// Keep hands the tree to the caller; Close becomes a no-op.
func (s *Speculation) Keep() *syntax.Tree {
	s.kept = true
	return s.tree
}

// Close releases the speculative tree.
func (s *Speculation) Close() {
	if !s.kept && s.tree != nil {
		s.tree.Close()
	}
}

// Validate applies e to a copy of before's buffer and checks the result.
// Rule violations come back as *types.Error of kind ContextViolation or
// SyntaxViolation; any other error is an infrastructure failure. On error
// nothing needs to be closed.
func (v *Validator) Validate(ctx context.Context, before *syntax.Tree, e edit.Edit) (*Speculation, error) {
	text, err := e.Apply(before.Source())
	if err != nil {
		return nil, err
	}

	after, err := v.provider.Parse(ctx, before.Language(), text)
	if err != nil {
		return nil, fmt.Errorf("re-parsing speculative buffer: %w", err)
	}
	sp := &Speculation{Text: text, Edit: e, tree: after}
	ok := false
	defer func() {
		if !ok {
			sp.Close()
		}
	}()

	if err := v.checkContext(ctx, before, after, e); err != nil {
		return nil, err
	}
	if err := checkSyntax(before, after, e); err != nil {
		return nil, err
	}

	ok = true
	return sp, nil
}

// Reparse checks a buffer produced outside the edit pipeline, such as
// formatter output, with the syntax layer only. The whole buffer counts as
// edited, so any error not present before is reported.
func (v *Validator) Reparse(ctx context.Context, before *syntax.Tree, e edit.Edit, text []byte) (*Speculation, error) {
	after, err := v.provider.Parse(ctx, before.Language(), text)
	if err != nil {
		return nil, fmt.Errorf("re-parsing formatted buffer: %w", err)
	}
	whole := edit.New(types.EditPosition{
		Span: types.Span{Start: 0, End: len(before.Source())},
		Mode: types.ReplaceRange,
	}, string(text), before.Language(), e.Revision())
	if err := checkSyntax(before, after, whole); err != nil {
		after.Close()
		return nil, err
	}
	return &Speculation{Text: text, Edit: e, tree: after}, nil
}

func (v *Validator) checkContext(ctx context.Context, before, after *syntax.Tree, e edit.Edit) error {
	c := v.caps.Lookup(before.Language())
	if !c.ChecksContext() {
		return nil
	}
	viol, err := c.CheckContext(ctx, language.EditContext{
		Before: before,
		After:  after,
		Target: e.Target(),
		Edited: e.Edited(),
	})
	if err != nil {
		return fmt.Errorf("checking %s context rules: %w", before.Language(), err)
	}
	if viol == nil {
		return nil
	}
	span := viol.Span
	line := after.LineOf(span.Start)
	return &types.Error{
		Kind:       types.KindContextViolation,
		Message:    viol.Reason,
		NodeKind:   viol.NodeKind,
		Range:      &span,
		Line:       line,
		Rule:       viol.Rule,
		Reason:     viol.Reason,
		Suggestion: viol.Suggestion,
		Context:    feedback.Snippet(after.Source(), line, feedback.ContextLines),
	}
}
