// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package feedback

import (
	"fmt"
	"unicode/utf8"

	"github.com/petar-djukic/semedit/internal/syntax"
)

// Diagnostic is one syntax error found in a parsed file.
type Diagnostic struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", d.Path, d.Line, d.Column, d.Message)
}

// Diagnostics lists the outermost ERROR and MISSING nodes of tree in
// source order. Errors nested inside a reported error are skipped.
func Diagnostics(path string, tree *syntax.Tree) []Diagnostic {
	var out []Diagnostic
	lastEnd := -1
	for _, id := range tree.Errors() {
		n := tree.Node(id)
		if n.Span.Start < lastEnd {
			continue
		}
		lastEnd = max(n.Span.End, n.Span.Start+1)

		line := tree.LineOf(n.Span.Start)
		msg := fmt.Sprintf("syntax error near %q", excerpt(tree.Text(id)))
		if n.Missing {
			msg = fmt.Sprintf("missing %q", n.Kind)
		}
		out = append(out, Diagnostic{
			Path:    path,
			Line:    line,
			Column:  column(tree, line, n.Span.Start),
			Kind:    n.Kind,
			Message: msg,
		})
	}
	return out
}

// column returns the 1-based code point column of offset on line.
func column(tree *syntax.Tree, line, offset int) int {
	lineStart, _ := tree.OffsetOf(line, 1)
	return utf8.RuneCount(tree.Source()[lineStart:offset]) + 1
}

func excerpt(s string) string {
	const limit = 40
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
