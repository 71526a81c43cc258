// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package selector resolves target descriptors against a parse tree and
// narrows the resulting candidates to a single edit target.
package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

// Candidate references one node of a specific tree. It is only meaningful
// together with the revision it was captured against.
type Candidate struct {
	Node      syntax.NodeID
	Revision  uint64
	Kind      string
	Span      types.Span
	Line      int
	Ancestors []string

	// Match is the text-search span of anchor selectors. Node-based
	// selectors leave it nil.
	Match *types.Span

	Score float64
}

// Resolve returns every node of tree matching sel, in pre-order (or query
// match order for ByQuery). Resolving the same selector against the same
// tree always yields the same sequence. An empty result is a NotFound
// error.
func Resolve(tree *syntax.Tree, revision uint64, sel types.Selector) ([]Candidate, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	var (
		cands []Candidate
		err   error
	)
	switch sel.Kind() {
	case types.SelectByName:
		cands = byName(tree, revision, sel.Name(), sel.NodeKind())
	case types.SelectByKind:
		cands = byKind(tree, revision, sel.NodeKind())
	case types.SelectByQuery:
		cands, err = byQuery(tree, revision, sel.Query())
	case types.SelectByPosition:
		cands, err = byPosition(tree, revision, sel)
	case types.SelectByAnchor:
		cands = byAnchor(tree, revision, sel)
	}
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, &types.Error{
			Kind:    types.KindNotFound,
			Message: fmt.Sprintf("no node matches %s", sel),
		}
	}
	return cands, nil
}

func newCandidate(tree *syntax.Tree, revision uint64, id syntax.NodeID) Candidate {
	n := tree.Node(id)
	return Candidate{
		Node:      id,
		Revision:  revision,
		Kind:      n.Kind,
		Span:      n.Span,
		Line:      n.Line,
		Ancestors: tree.Ancestors(id),
		Score:     1.0,
	}
}

func byName(tree *syntax.Tree, revision uint64, name, kind string) []Candidate {
	var out []Candidate
	for i := 0; i < tree.Len(); i++ {
		id := syntax.NodeID(i)
		got, ok := tree.Name(id)
		if !ok || got != name {
			continue
		}
		if kind != "" && tree.Node(id).Kind != kind {
			continue
		}
		out = append(out, newCandidate(tree, revision, id))
	}
	return out
}

func byKind(tree *syntax.Tree, revision uint64, kind string) []Candidate {
	var out []Candidate
	for i := 0; i < tree.Len(); i++ {
		if tree.Node(syntax.NodeID(i)).Kind == kind {
			out = append(out, newCandidate(tree, revision, syntax.NodeID(i)))
		}
	}
	return out
}

// targetCapture restricts ByQuery results when the query names it.
const targetCapture = "target"

func byQuery(tree *syntax.Tree, revision uint64, query string) ([]Candidate, error) {
	captures, err := tree.Query(query)
	if err != nil {
		if errors.Is(err, syntax.ErrNoGrammar) {
			return nil, &types.Error{
				Kind:    types.KindInvalidSelector,
				Message: fmt.Sprintf("structural queries need a grammar, document language is %q", tree.Language()),
			}
		}
		return nil, &types.Error{Kind: types.KindInvalidSelector, Message: "query rejected by grammar", Err: err}
	}

	onlyTarget := false
	for _, c := range captures {
		if c.Name == targetCapture {
			onlyTarget = true
			break
		}
	}

	seen := make(map[syntax.NodeID]bool)
	var out []Candidate
	for _, c := range captures {
		if onlyTarget && c.Name != targetCapture {
			continue
		}
		if seen[c.Node] {
			continue
		}
		seen[c.Node] = true
		out = append(out, newCandidate(tree, revision, c.Node))
	}
	return out, nil
}

func byPosition(tree *syntax.Tree, revision uint64, sel types.Selector) ([]Candidate, error) {
	offset, ok := sel.Offset()
	if !ok {
		line, col, _ := sel.LineColumn()
		offset, ok = tree.OffsetOf(line, col)
		if !ok {
			return nil, nil
		}
	}
	if offset > len(tree.Source()) {
		return nil, nil
	}
	if !tree.IsBoundary(offset) {
		return nil, &types.Error{
			Kind:    types.KindInvalidBoundary,
			Message: fmt.Sprintf("offset %d splits a code point", offset),
			Offset:  offset,
		}
	}
	id := tree.SmallestEnclosing(types.Span{Start: offset, End: offset}, true)
	return []Candidate{newCandidate(tree, revision, id)}, nil
}

func byAnchor(tree *syntax.Tree, revision uint64, sel types.Selector) []Candidate {
	src := string(tree.Source())
	pattern, end := sel.Anchor(), sel.End()

	var out []Candidate
	from := 0
	for k := 0; ; k++ {
		i := strings.Index(src[from:], pattern)
		if i < 0 {
			break
		}
		start := from + i
		from = start + len(pattern)
		if sel.Occurrence() != types.AllOccurrences && k != sel.Occurrence() {
			continue
		}

		match := types.Span{Start: start, End: start + len(pattern)}
		if end != "" {
			j := strings.Index(src[match.End:], end)
			if j < 0 {
				continue
			}
			match.End += j + len(end)
		}

		c := newCandidate(tree, revision, tree.SmallestEnclosing(match, true))
		c.Match = &match
		c.Line = tree.LineOf(match.Start)
		out = append(out, c)
	}
	return out
}
