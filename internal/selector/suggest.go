// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

const (
	maxSuggestions     = 5
	minSuggestionScore = 0.4
)

// Suggest ranks likely corrections for a selector that matched nothing.
// It never changes resolution; the result only enriches NotFound.
func Suggest(tree *syntax.Tree, sel types.Selector) []types.Suggestion {
	switch sel.Kind() {
	case types.SelectByName:
		return rank(sel.Name(), identifiers(tree))
	case types.SelectByKind:
		return rank(sel.NodeKind(), kinds(tree))
	case types.SelectByAnchor:
		text, score, line := closestLines(string(tree.Source()), sel.Anchor())
		if score < minSuggestionScore {
			return nil
		}
		return []types.Suggestion{{Text: text, Score: score, Line: line}}
	case types.SelectByPosition:
		return []types.Suggestion{{
			Text:  fmt.Sprintf("lines 1-%d, offsets 0-%d", tree.LineCount(), len(tree.Source())),
			Score: 1,
		}}
	}
	return nil
}

// term is a candidate suggestion with the first line it appears on.
type term struct {
	text string
	line int
}

// identifiers collects definition names and identifier tokens.
func identifiers(tree *syntax.Tree) []term {
	seen := make(map[string]bool)
	var out []term
	add := func(text string, line int) {
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		out = append(out, term{text: text, line: line})
	}
	for i := 0; i < tree.Len(); i++ {
		id := syntax.NodeID(i)
		n := tree.Node(id)
		if name, ok := tree.Name(id); ok {
			add(name, n.Line)
		}
		if len(tree.Children(id)) == 0 && strings.Contains(n.Kind, "identifier") {
			add(tree.Text(id), n.Line)
		}
	}
	return out
}

func kinds(tree *syntax.Tree) []term {
	seen := make(map[string]bool)
	var out []term
	for i := 0; i < tree.Len(); i++ {
		n := tree.Node(syntax.NodeID(i))
		if !n.Named || seen[n.Kind] {
			continue
		}
		seen[n.Kind] = true
		out = append(out, term{text: n.Kind, line: n.Line})
	}
	return out
}

func rank(target string, terms []term) []types.Suggestion {
	want := strings.ToLower(target)
	var out []types.Suggestion
	for _, t := range terms {
		score := similarity(want, strings.ToLower(t.text))
		if score < minSuggestionScore {
			continue
		}
		out = append(out, types.Suggestion{Text: t.text, Score: score, Line: t.line})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Line < out[j].Line
	})
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// closestLines slides a window of the search text's line count over the
// content and returns the most similar region with its 1-based first line.
func closestLines(content, search string) (closest string, score float64, line int) {
	if search == "" || content == "" {
		return "", 0, 0
	}

	contentLines := strings.Split(content, "\n")
	searchLen := len(strings.Split(search, "\n"))
	if searchLen > len(contentLines) {
		searchLen = len(contentLines)
	}

	bestStart := 0
	for i := 0; i <= len(contentLines)-searchLen; i++ {
		candidate := strings.Join(contentLines[i:i+searchLen], "\n")
		trimmed := strings.TrimSpace(candidate)
		if trimmed == "" {
			continue
		}
		if s := similarity(trimmed, strings.TrimSpace(search)); s > score {
			score = s
			bestStart = i
		}
	}
	if score == 0 {
		return "", 0, 0
	}
	closest = strings.TrimSpace(strings.Join(contentLines[bestStart:bestStart+searchLen], "\n"))
	return closest, score, bestStart + 1
}

// similarity computes the Levenshtein-based similarity ratio between two
// strings. Returns a value between 0.0 and 1.0.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(distance)/float64(maxLen)
}
