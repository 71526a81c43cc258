// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package validate

import (
	"fmt"

	"github.com/petar-djukic/semedit/internal/edit"
	"github.com/petar-djukic/semedit/internal/feedback"
	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

type errorKey struct {
	kind string
	span types.Span
}

// checkSyntax reports the first new error node adjacent to the edit.
//
// An error node of the new tree is pre-existing when the old tree has an
// error of the same kind whose span, mapped through the edit, is identical.
// Spans before the target are unchanged, spans after it shift by the
// length delta, and spans enclosing the target grow by the delta; spans
// partially overlapping the target do not survive the mapping.
//
// A new error is adjacent when its span and the edited span intersect as
// closed intervals, or when both sit under the same top-level node.
func checkSyntax(before, after *syntax.Tree, e edit.Edit) error {
	id, found := firstNewError(before, after, e)
	if !found {
		return nil
	}
	n := after.Node(id)
	span := n.Span
	line := after.LineOf(span.Start)

	what := "syntax error"
	if n.Missing {
		what = fmt.Sprintf("missing %q", n.Kind)
	}
	return &types.Error{
		Kind:     types.KindSyntaxViolation,
		Message:  fmt.Sprintf("edit introduces a %s at line %d", what, line),
		NodeKind: n.Kind,
		Range:    &span,
		Line:     line,
		Context:  feedback.Snippet(after.Source(), line, feedback.ContextLines),
	}
}

func firstNewError(before, after *syntax.Tree, e edit.Edit) (syntax.NodeID, bool) {
	target, edited, delta := e.Target(), e.Edited(), e.Delta()

	old := make(map[errorKey]int)
	for _, id := range before.Errors() {
		n := before.Node(id)
		if s, ok := carry(n.Span, target, delta); ok {
			old[errorKey{kind: n.Kind, span: s}]++
		}
	}

	root := after.Root()
	editedTop := after.TopLevel(after.SmallestEnclosing(edited, false))
	for _, id := range after.Errors() {
		n := after.Node(id)
		key := errorKey{kind: n.Kind, span: n.Span}
		if old[key] > 0 {
			old[key]--
			continue
		}
		if blocks(n.Span, edited, after.TopLevel(id), editedTop, root) {
			return id, true
		}
	}
	return syntax.NoNode, false
}

// carry maps the span of an old error through an edit replacing target
// with text delta bytes longer.
func carry(s, target types.Span, delta int) (types.Span, bool) {
	switch {
	case s.End <= target.Start:
		return s, true
	case s.Start >= target.End:
		return types.Span{Start: s.Start + delta, End: s.End + delta}, true
	case s.Start <= target.Start && s.End >= target.End:
		return types.Span{Start: s.Start, End: s.End + delta}, true
	}
	return types.Span{}, false
}

// blocks reports whether a new error spanning span under the top-level
// node top rejects an edit producing edited under editedTop.
func blocks(span, edited types.Span, top, editedTop, root syntax.NodeID) bool {
	if span.Touches(edited) {
		return true
	}
	return editedTop != root && top == editedTop
}
