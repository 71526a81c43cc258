// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package feedback renders engine failures for clients that cannot see the
// file: numbered code context, candidate lists and ranked suggestions.
package feedback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/petar-djukic/semedit/pkg/types"
)

// ContextLines is the number of lines shown above and below a failure.
const ContextLines = 3

// Snippet returns numbered lines of src around a 1-based line, marking
// that line with "> ".
func Snippet(src []byte, line, radius int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(string(src), "\n")
	if line > len(lines) {
		return ""
	}
	start := max(0, line-radius-1)
	end := min(len(lines), line+radius)

	var buf strings.Builder
	for i := start; i < end; i++ {
		num := i + 1
		marker := "  "
		if num == line {
			marker = "> "
		}
		fmt.Fprintf(&buf, "%s%4d │ %s\n", marker, num, lines[i])
	}
	return buf.String()
}

// Report renders err for a human or a model reading tool output. Errors
// other than *types.Error render as their message.
func Report(err error) string {
	var e *types.Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %s\n", e.Kind, e.Message)

	switch e.Kind {
	case types.KindContextViolation:
		fmt.Fprintf(&buf, "\nRule: %s\n", e.Rule)
		if e.Suggestion != "" {
			fmt.Fprintf(&buf, "Suggestion: %s\n", e.Suggestion)
		}
	case types.KindStaleTarget:
		fmt.Fprintf(&buf, "\nExpected revision %d, document is at %d. Retarget the operation or stage it again.\n",
			e.ExpectedRevision, e.ActualRevision)
	case types.KindInvalidBoundary:
		fmt.Fprintf(&buf, "\nOffset %d is not on a character boundary.\n", e.Offset)
	}

	if len(e.Candidates) > 0 {
		buf.WriteString("\n## Candidates\n\n")
		for _, c := range e.Candidates {
			fmt.Fprintf(&buf, "- [%d] %s at line %d %s: %s\n", c.Index, c.Kind, c.Line, c.Range, c.Summary)
		}
	}
	if len(e.Suggestions) > 0 {
		buf.WriteString("\n## Did you mean\n\n")
		for _, s := range e.Suggestions {
			if s.Line > 0 {
				fmt.Fprintf(&buf, "- %s (line %d, %.0f%% similar)\n", s.Text, s.Line, s.Score*100)
				continue
			}
			fmt.Fprintf(&buf, "- %s (%.0f%% similar)\n", s.Text, s.Score*100)
		}
	}
	if e.Context != "" {
		buf.WriteString("\n```\n")
		buf.WriteString(e.Context)
		buf.WriteString("```\n")
	}
	return buf.String()
}
