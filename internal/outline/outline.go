// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package outline lists the definitions of a parsed document so callers
// can see which names and kinds a selector can address.
package outline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

const (
	defaultBudget = 8192
	maxLineLength = 100
)

// definitions holds one query per language. Every pattern captures the
// whole definition node as @def.
var definitions = map[string]string{
	"go": `
		(function_declaration) @def
		(method_declaration) @def
		(type_spec) @def
	`,
	"rust": `
		(function_item) @def
		(struct_item) @def
		(enum_item) @def
		(trait_item) @def
		(impl_item) @def
		(mod_item) @def
		(const_item) @def
	`,
	"python": `
		(function_definition) @def
		(class_definition) @def
	`,
	"javascript": `
		(function_declaration) @def
		(class_declaration) @def
		(method_definition) @def
	`,
	"typescript": `
		(function_declaration) @def
		(class_declaration) @def
		(method_definition) @def
		(interface_declaration) @def
		(type_alias_declaration) @def
	`,
	"c": `
		(function_definition) @def
		(struct_specifier body: (_)) @def
	`,
	"cpp": `
		(function_definition) @def
		(class_specifier body: (_)) @def
		(struct_specifier body: (_)) @def
		(namespace_definition) @def
	`,
	"bash": `
		(function_definition) @def
	`,
	"toml": `
		(table) @def
	`,
}

func init() {
	definitions["tsx"] = definitions["typescript"]
}

// Symbol is one definition in a document.
type Symbol struct {
	Name      string     `json:"name,omitempty"`
	Kind      string     `json:"kind"`
	Line      int        `json:"line"`
	Range     types.Span `json:"range"`
	Depth     int        `json:"depth"` // number of enclosing definitions
	Signature string     `json:"signature"`
}

// Supported reports whether lang has a definition query.
func Supported(lang string) bool {
	_, ok := definitions[lang]
	return ok
}

// Extract returns the definitions of tree in source order. Languages
// without a definition query yield nil.
func Extract(tree *syntax.Tree) ([]Symbol, error) {
	q, ok := definitions[tree.Language()]
	if !ok {
		return nil, nil
	}
	captures, err := tree.Query(q)
	if err != nil {
		return nil, fmt.Errorf("outline query for %s: %w", tree.Language(), err)
	}

	ids := make([]syntax.NodeID, 0, len(captures))
	defs := make(map[syntax.NodeID]bool, len(captures))
	for _, c := range captures {
		if !defs[c.Node] {
			defs[c.Node] = true
			ids = append(ids, c.Node)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return tree.Node(ids[i]).Span.Start < tree.Node(ids[j]).Span.Start
	})

	out := make([]Symbol, 0, len(ids))
	for _, id := range ids {
		n := tree.Node(id)
		name, _ := tree.Name(id)
		out = append(out, Symbol{
			Name:      name,
			Kind:      n.Kind,
			Line:      n.Line,
			Range:     n.Span,
			Depth:     depth(tree, id, defs),
			Signature: signature(tree.Text(id)),
		})
	}
	return out, nil
}

func depth(tree *syntax.Tree, id syntax.NodeID, defs map[syntax.NodeID]bool) int {
	d := 0
	for p := tree.Node(id).Parent; p != syntax.NoNode; p = tree.Node(p).Parent {
		if defs[p] {
			d++
		}
	}
	return d
}

// signature is the first line of a definition, shortened for display.
func signature(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if len(text) > maxLineLength {
		cut := maxLineLength - 3
		for cut > 0 && !syntax.IsBoundary([]byte(text), cut) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

// Render writes syms as an indented listing headed by path, stopping
// before the text exceeds budget bytes. A budget of zero selects the
// default.
func Render(path string, syms []Symbol, budget int) string {
	if budget <= 0 {
		budget = defaultBudget
	}

	var body strings.Builder
	shown := 0
	for _, s := range syms {
		line := fmt.Sprintf("%s%4d  %s\n", strings.Repeat("  ", s.Depth), s.Line, s.Signature)
		if body.Len()+len(line) > budget {
			break
		}
		body.WriteString(line)
		shown++
	}

	header := fmt.Sprintf("%s (%d/%d definitions)\n", path, shown, len(syms))
	return header + body.String()
}
