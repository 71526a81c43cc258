// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

const maxSummaryLen = 80

// Narrow reduces candidates to one according to policy. An empty list
// becomes a NotFound error enriched with suggestions for sel.
func Narrow(tree *syntax.Tree, sel types.Selector, cands []Candidate, policy types.Policy) (Candidate, error) {
	if len(cands) == 0 {
		return Candidate{}, &types.Error{
			Kind:        types.KindNotFound,
			Message:     fmt.Sprintf("no node matches %s", sel),
			Suggestions: Suggest(tree, sel),
		}
	}

	if policy.ByIndex {
		if policy.Index < 0 || policy.Index >= len(cands) {
			return Candidate{}, &types.Error{
				Kind:       types.KindNotFound,
				Message:    fmt.Sprintf("index %d out of range, %s matched %d candidates", policy.Index, sel, len(cands)),
				Candidates: Summaries(tree, cands),
			}
		}
		return cands[policy.Index], nil
	}

	if len(cands) > 1 {
		return Candidate{}, &types.Error{
			Kind:       types.KindAmbiguous,
			Message:    fmt.Sprintf("%s matched %d candidates, select one by index", sel, len(cands)),
			Candidates: Summaries(tree, cands),
		}
	}
	return cands[0], nil
}

// Select resolves sel and narrows the result in one step. NotFound errors
// from resolution are enriched with suggestions.
func Select(tree *syntax.Tree, revision uint64, sel types.Selector, policy types.Policy) (Candidate, error) {
	cands, err := Resolve(tree, revision, sel)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return Narrow(tree, sel, nil, policy)
		}
		return Candidate{}, err
	}
	return Narrow(tree, sel, cands, policy)
}

// Summaries describes candidates for error payloads.
func Summaries(tree *syntax.Tree, cands []Candidate) []types.CandidateSummary {
	out := make([]types.CandidateSummary, len(cands))
	for i, c := range cands {
		span := c.Span
		if c.Match != nil {
			span = *c.Match
		}
		out[i] = types.CandidateSummary{
			Index:   i,
			Kind:    c.Kind,
			Range:   span,
			Line:    c.Line,
			Summary: firstLine(string(tree.Source()[span.Start:span.End])),
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if len(s) > maxSummaryLen {
		cut := maxSummaryLen
		for cut > 0 && !syntax.IsBoundary([]byte(s), cut) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
