// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package syntax

import (
	"context"
	"fmt"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/petar-djukic/semedit/pkg/types"
)

// Parse parses src with the grammar registered for language. Languages
// without a grammar, including PlainText, produce a single "document" node
// with no errors, so syntax validation degrades to a no-op for them.
func (p *Provider) Parse(ctx context.Context, language string, src []byte) (*Tree, error) {
	g, ok := p.Grammar(language)
	if !ok {
		return plainTree(language, src), nil
	}
	return g.Parse(ctx, src)
}

// Parse parses src with this grammar.
func (g *Grammar) Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.lang)

	raw, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", g.Name, err)
	}

	t := &Tree{
		language: g.Name,
		src:      src,
		lines:    lineStarts(src),
		grammar:  g,
		raw:      raw,
		index:    make(map[nodeKey]NodeID),
	}
	if err := t.flatten(raw.RootNode(), NoNode, 0); err != nil {
		raw.Close()
		return nil, err
	}
	return t, nil
}

// Grammar returns the grammar the tree was parsed with, or nil for plain
// text.
func (t *Tree) Grammar() *Grammar { return t.grammar }

// flatten appends n and its subtree to the arena in pre-order.
func (t *Tree) flatten(n *sitter.Node, parent NodeID, depth int) error {
	span, err := spanOf(n)
	if err != nil {
		return err
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{
		Kind:    n.Type(),
		Span:    span,
		Line:    int(n.StartPoint().Row) + 1,
		Parent:  parent,
		Depth:   depth,
		Named:   n.IsNamed(),
		Error:   n.IsError(),
		Missing: n.IsMissing(),
	})
	key := nodeKey{start: span.Start, end: span.End, kind: n.Type()}
	if _, seen := t.index[key]; !seen {
		t.index[key] = id
	}
	if parent != NoNode {
		t.nodes[parent].children = append(t.nodes[parent].children, id)
	}

	if n.IsNamed() {
		if name := n.ChildByFieldName("name"); name != nil {
			ns, err := spanOf(name)
			if err != nil {
				return err
			}
			t.nodes[id].NameSpan = &ns
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if err := t.flatten(n.Child(i), id, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func spanOf(n *sitter.Node) (types.Span, error) {
	start, err := safecast.Conv[int](n.StartByte())
	if err != nil {
		return types.Span{}, fmt.Errorf("node start offset: %w", err)
	}
	end, err := safecast.Conv[int](n.EndByte())
	if err != nil {
		return types.Span{}, fmt.Errorf("node end offset: %w", err)
	}
	return types.Span{Start: start, End: end}, nil
}

// lookup maps a tree-sitter node of this tree back to its arena id.
func (t *Tree) lookup(n *sitter.Node) (NodeID, bool) {
	span, err := spanOf(n)
	if err != nil {
		return NoNode, false
	}
	id, ok := t.index[nodeKey{start: span.Start, end: span.End, kind: n.Type()}]
	return id, ok
}

func plainTree(language string, src []byte) *Tree {
	if language == "" {
		language = PlainText
	}
	return &Tree{
		language: language,
		src:      src,
		lines:    lineStarts(src),
		nodes: []Node{{
			Kind:   "document",
			Span:   types.Span{Start: 0, End: len(src)},
			Line:   1,
			Parent: NoNode,
			Named:  true,
		}},
	}
}
