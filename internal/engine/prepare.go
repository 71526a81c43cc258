// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"bytes"
	"context"
	"time"

	"github.com/petar-djukic/semedit/internal/diff"
	"github.com/petar-djukic/semedit/internal/docstore"
	"github.com/petar-djukic/semedit/internal/edit"
	"github.com/petar-djukic/semedit/internal/selector"
	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/internal/validate"
	"github.com/petar-djukic/semedit/pkg/types"
)

type prepared struct {
	edit edit.Edit
	diff *diff.Diff
}

// prepare runs the pipeline from selector to preview diff under the
// document's read lock.
func (e *Engine) prepare(ctx context.Context, doc *docstore.Document, sel types.Selector, mode types.Operation, text string, policy types.Policy) (*prepared, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	var out *prepared
	err := doc.Read(func(tree *syntax.Tree, rev uint64) error {
		cand, err := selector.Select(tree, rev, sel, policy)
		if err != nil {
			return err
		}
		pos, err := edit.Place(tree, rev, cand, mode)
		if err != nil {
			return err
		}
		sp, err := e.validateVariants(ctx, tree, edit.New(pos, text, doc.Language(), rev))
		if err != nil {
			return err
		}
		sp = e.formatted(ctx, tree, sp)
		defer sp.Close()

		d, err := diff.Compute(doc.Path(), tree.Source(), sp.Text)
		if err != nil {
			return err
		}
		d.Assess(text)
		out = &prepared{edit: sp.Edit, diff: d}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validateVariants validates the literal text and then its spacing
// variants, returning the first that passes. When none passes, the error
// of the literal text is returned.
func (e *Engine) validateVariants(ctx context.Context, tree *syntax.Tree, ed edit.Edit) (*validate.Speculation, error) {
	var first error
	for i, text := range edit.Variants(ed.Position().Mode, ed.Text()) {
		sp, err := e.validateTimed(ctx, tree, ed.WithText(text))
		if err == nil {
			if i > 0 {
				e.logger.Debug("spacing variant accepted", "variant", i, "language", tree.Language())
			}
			return sp, nil
		}
		switch types.KindOf(err) {
		case types.KindContextViolation, types.KindSyntaxViolation:
		default:
			return nil, err
		}
		if first == nil {
			first = err
		}
	}
	return nil, first
}

func (e *Engine) validateTimed(ctx context.Context, tree *syntax.Tree, ed edit.Edit) (*validate.Speculation, error) {
	start := time.Now()
	sp, err := e.validator.Validate(ctx, tree, ed)
	recordValidation(ctx, tree.Language(), time.Since(start), err)
	return sp, err
}

// formatted swaps sp for the formatter's output when formatting is on
// and the output introduces no syntax error. Otherwise sp is returned
// unchanged.
func (e *Engine) formatted(ctx context.Context, before *syntax.Tree, sp *validate.Speculation) *validate.Speculation {
	if !e.format {
		return sp
	}
	out, err := e.caps.Lookup(before.Language()).FormatText(ctx, sp.Text)
	if err != nil {
		e.logger.Debug("formatter failed, keeping unformatted text", "language", before.Language(), "error", err)
		return sp
	}
	if bytes.Equal(out, sp.Text) {
		return sp
	}
	fs, err := e.validator.Reparse(ctx, before, sp.Edit, out)
	if err != nil {
		e.logger.Debug("formatter output rejected", "language", before.Language(), "error", err)
		return sp
	}
	sp.Close()
	return fs
}
