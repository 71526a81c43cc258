// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package edit turns a chosen candidate into a concrete byte span and
// models the immutable edit applied at that span.
package edit

import (
	"fmt"

	"github.com/petar-djukic/semedit/internal/selector"
	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

// terminators are trailing tokens that InsertAfterNode steps over.
var terminators = map[string]bool{";": true, ",": true}

// Place converts a candidate into an EditPosition. Node operations use node
// boundaries; anchored candidates use their text-search span for
// InsertBefore, InsertAfter, ReplaceExact and ReplaceRange. The candidate
// must have been captured against tree at revision.
func Place(tree *syntax.Tree, revision uint64, c selector.Candidate, op types.Operation) (types.EditPosition, error) {
	if c.Revision != revision || !tree.Valid(c.Node) || tree.Node(c.Node).Span != c.Span {
		return types.EditPosition{}, &types.Error{
			Kind:             types.KindStaleTarget,
			Message:          "candidate belongs to a superseded parse tree",
			ExpectedRevision: c.Revision,
			ActualRevision:   revision,
		}
	}

	node := c.Span
	var span types.Span
	switch op {
	case types.ReplaceNode:
		span = node
	case types.InsertBefore:
		p := node.Start
		if c.Match != nil {
			p = c.Match.Start
		}
		span = types.Span{Start: p, End: p}
	case types.InsertAfter:
		p := node.End
		if c.Match != nil {
			p = c.Match.End
		}
		span = types.Span{Start: p, End: p}
	case types.InsertAfterNode:
		p := afterNode(tree, c.Node)
		span = types.Span{Start: p, End: p}
	case types.ReplaceExact, types.ReplaceRange:
		span = node
		if c.Match != nil {
			span = *c.Match
		}
	default:
		return types.EditPosition{}, &types.Error{
			Kind:    types.KindInvalidSelector,
			Message: fmt.Sprintf("unknown operation %d", op),
		}
	}

	if err := checkBoundaries(tree.Source(), span); err != nil {
		return types.EditPosition{}, err
	}
	return types.EditPosition{Span: span, Mode: op}, nil
}

// afterNode returns the offset following the node and any terminator that
// directly follows it on the same line.
func afterNode(tree *syntax.Tree, id syntax.NodeID) int {
	src := tree.Source()
	end := tree.Node(id).Span.End
	for {
		sib := tree.NextSibling(id)
		if sib == syntax.NoNode {
			return end
		}
		n := tree.Node(sib)
		if n.Named || !terminators[n.Kind] || !onlyBlanks(src[end:n.Span.Start]) {
			return end
		}
		end, id = n.Span.End, sib
	}
}

func onlyBlanks(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}

// checkBoundaries rejects spans whose endpoints fall outside src or inside
// a multi-byte code point.
func checkBoundaries(src []byte, span types.Span) error {
	if span.Start > span.End {
		return &types.Error{
			Kind:    types.KindInvalidBoundary,
			Message: fmt.Sprintf("span %s is inverted", span),
			Range:   &span,
			Offset:  span.Start,
		}
	}
	for _, off := range []int{span.Start, span.End} {
		if !syntax.IsBoundary(src, off) {
			return &types.Error{
				Kind:    types.KindInvalidBoundary,
				Message: fmt.Sprintf("offset %d is not a code point boundary", off),
				Range:   &span,
				Offset:  off,
			}
		}
	}
	return nil
}
