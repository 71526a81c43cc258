// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package syntax

import (
	"sort"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/petar-djukic/semedit/pkg/types"
)

// NodeID indexes a node inside its Tree's arena. IDs follow pre-order, so
// iterating 0..Len()-1 is a deterministic pre-order traversal.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// Node is one arena entry. Nodes are plain values; they never point back
// into tree-sitter memory.
type Node struct {
	Kind    string
	Span    types.Span
	Line    int // 1-based line of Span.Start
	Parent  NodeID
	Depth   int
	Named   bool
	Error   bool
	Missing bool

	// NameSpan covers the node's "name" field child, when it has one.
	NameSpan *types.Span

	children []NodeID
}

// Tree is an immutable parse of one buffer.
type Tree struct {
	language string
	src      []byte
	nodes    []Node
	lines    []int // byte offset of each line start

	grammar *Grammar
	raw     *sitter.Tree
	index   map[nodeKey]NodeID
}

type nodeKey struct {
	start, end int
	kind       string
}

// Language returns the tag the tree was parsed with.
func (t *Tree) Language() string { return t.language }

// Source returns the parsed buffer. Callers must not modify it.
func (t *Tree) Source() []byte { return t.src }

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root node id.
func (t *Tree) Root() NodeID { return 0 }

// Node returns the node stored at id.
func (t *Tree) Node(id NodeID) Node { return t.nodes[id] }

// Valid reports whether id addresses a node of this tree.
func (t *Tree) Valid(id NodeID) bool { return id >= 0 && int(id) < len(t.nodes) }

// Children returns the direct children of id in source order.
func (t *Tree) Children(id NodeID) []NodeID { return t.nodes[id].children }

// Text returns the source text covered by id.
func (t *Tree) Text(id NodeID) string {
	s := t.nodes[id].Span
	return string(t.src[s.Start:s.End])
}

// Name returns the text of the node's name field.
func (t *Tree) Name(id NodeID) (string, bool) {
	ns := t.nodes[id].NameSpan
	if ns == nil {
		return "", false
	}
	return string(t.src[ns.Start:ns.End]), true
}

// Ancestors returns the kinds of id's ancestors, nearest first.
func (t *Tree) Ancestors(id NodeID) []string {
	var kinds []string
	for p := t.nodes[id].Parent; p != NoNode; p = t.nodes[p].Parent {
		kinds = append(kinds, t.nodes[p].Kind)
	}
	return kinds
}

// TopLevel returns the ancestor of id that is a direct child of the root,
// or the root itself.
func (t *Tree) TopLevel(id NodeID) NodeID {
	for id != 0 && t.nodes[id].Parent != 0 && t.nodes[id].Parent != NoNode {
		id = t.nodes[id].Parent
	}
	return id
}

// NextSibling returns the sibling following id, or NoNode.
func (t *Tree) NextSibling(id NodeID) NodeID {
	p := t.nodes[id].Parent
	if p == NoNode {
		return NoNode
	}
	siblings := t.nodes[p].children
	for i, c := range siblings {
		if c == id && i+1 < len(siblings) {
			return siblings[i+1]
		}
	}
	return NoNode
}

// Errors returns every ERROR or MISSING node in pre-order.
func (t *Tree) Errors() []NodeID {
	var ids []NodeID
	for i := range t.nodes {
		if t.nodes[i].Error || t.nodes[i].Missing {
			ids = append(ids, NodeID(i))
		}
	}
	return ids
}

// HasErrors reports whether the tree contains any ERROR or MISSING node.
func (t *Tree) HasErrors() bool {
	for i := range t.nodes {
		if t.nodes[i].Error || t.nodes[i].Missing {
			return true
		}
	}
	return false
}

// SmallestEnclosing returns the deepest node whose span contains s. An
// empty span at offset p is enclosed by nodes with Start <= p < End, so a
// position on a token's end boundary belongs to what follows it. The root
// always encloses.
func (t *Tree) SmallestEnclosing(s types.Span, namedOnly bool) NodeID {
	best := t.Root()
	for i := 1; i < len(t.nodes); i++ {
		n := &t.nodes[i]
		if namedOnly && !n.Named {
			continue
		}
		if n.Span.Start > s.Start || n.Span.End < s.End {
			continue
		}
		if s.Len() == 0 && n.Span.End == s.Start {
			continue
		}
		if n.Depth >= t.nodes[best].Depth {
			best = NodeID(i)
		}
	}
	return best
}

// StrictlyEnclosing returns the deepest named node that contains s and is
// not s itself. It identifies the container an edit lands in.
func (t *Tree) StrictlyEnclosing(s types.Span) NodeID {
	best := t.Root()
	for i := 1; i < len(t.nodes); i++ {
		n := &t.nodes[i]
		if !n.Named || n.Span == s {
			continue
		}
		if n.Span.Start > s.Start || n.Span.End < s.End {
			continue
		}
		if n.Span.Start == s.Start && s.Len() == 0 || n.Span.End == s.End && s.Len() == 0 {
			continue
		}
		if n.Depth >= t.nodes[best].Depth {
			best = NodeID(i)
		}
	}
	return best
}

// LineOf returns the 1-based line containing offset.
func (t *Tree) LineOf(offset int) int {
	return sort.Search(len(t.lines), func(i int) bool { return t.lines[i] > offset })
}

// LineText returns the text of a 1-based line without its newline.
func (t *Tree) LineText(line int) string {
	if line < 1 || line > len(t.lines) {
		return ""
	}
	start := t.lines[line-1]
	end := len(t.src)
	if line < len(t.lines) {
		end = t.lines[line] - 1
	}
	return string(t.src[start:end])
}

// LineCount returns the number of lines in the buffer.
func (t *Tree) LineCount() int { return len(t.lines) }

// OffsetOf converts a 1-based line and 1-based code point column into a
// byte offset. The column may point one past the last character of the
// line.
func (t *Tree) OffsetOf(line, column int) (int, bool) {
	if line < 1 || line > len(t.lines) || column < 1 {
		return 0, false
	}
	off := t.lines[line-1]
	for col := 1; col < column; col++ {
		if off >= len(t.src) || t.src[off] == '\n' {
			return 0, false
		}
		_, size := utf8.DecodeRune(t.src[off:])
		off += size
	}
	return off, true
}

// IsBoundary reports whether offset falls on a code point boundary of the
// buffer. len(src) is a boundary.
func (t *Tree) IsBoundary(offset int) bool {
	return IsBoundary(t.src, offset)
}

// IsBoundary reports whether offset is a valid code point boundary of src.
func IsBoundary(src []byte, offset int) bool {
	if offset < 0 || offset > len(src) {
		return false
	}
	return offset == len(src) || utf8.RuneStart(src[offset])
}

// Close releases the tree-sitter tree backing t. The arena stays usable;
// only Query needs the backing tree.
func (t *Tree) Close() {
	if t.raw != nil {
		t.raw.Close()
		t.raw = nil
	}
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
