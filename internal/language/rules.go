// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package language

import (
	"context"
	"fmt"
	"strings"

	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

// invalidPrefix marks query captures that report a rule violation.
const invalidPrefix = "invalid."

// Message is the reason/suggestion pair reported for a rule.
type Message struct {
	Reason     string `yaml:"reason"`
	Suggestion string `yaml:"suggestion"`
}

// Placement forbids introducing nodes of certain kinds inside certain
// containers. A container is a node kind, or "parent>kind" to also
// constrain the container's parent.
type Placement struct {
	Rule       string   `yaml:"rule"`
	Containers []string `yaml:"containers"`
	Forbidden  []string `yaml:"forbidden"`
	Message    `yaml:",inline"`
}

// Rules is the declarative part of a capability.
//
// Queries run against the speculative tree; a capture named invalid.<rule>
// that touches the edited range is a violation. Placements compare the
// container the edit lands in (taken from the pre-edit tree) with the
// top-level node kinds of the replacement text parsed on its own, which
// keeps them reliable when the grammar cannot parse the illegal nesting.
type Rules struct {
	Queries    []string           `yaml:"queries"`
	Placements []Placement        `yaml:"placements"`
	Messages   map[string]Message `yaml:"messages"`
}

func (r *Rules) empty() bool {
	return len(r.Queries) == 0 && len(r.Placements) == 0
}

// merge returns a new Rules holding both r and other.
func (r *Rules) merge(other *Rules) *Rules {
	out := &Rules{Messages: make(map[string]Message)}
	for _, src := range []*Rules{r, other} {
		if src == nil {
			continue
		}
		out.Queries = append(out.Queries, src.Queries...)
		out.Placements = append(out.Placements, src.Placements...)
		for k, v := range src.Messages {
			out.Messages[k] = v
		}
	}
	return out
}

// Check evaluates placements first, then queries.
func (r *Rules) Check(ctx context.Context, ec EditContext) (*Violation, error) {
	if v, err := r.checkPlacements(ctx, ec); err != nil || v != nil {
		return v, err
	}
	return r.checkQueries(ec)
}

func (r *Rules) checkPlacements(ctx context.Context, ec EditContext) (*Violation, error) {
	if len(r.Placements) == 0 || ec.Before == nil {
		return nil, nil
	}
	container := ec.Before.StrictlyEnclosing(ec.Target)

	var introduced []string
	for _, p := range r.Placements {
		if !containerMatches(ec.Before, container, p.Containers) {
			continue
		}
		if introduced == nil {
			var err error
			if introduced, err = topLevelKinds(ctx, ec.After, ec.Edited); err != nil {
				return nil, err
			}
		}
		for _, kind := range introduced {
			if contains(p.Forbidden, kind) {
				msg := p.Message
				if msg.Reason == "" {
					msg = r.message(p.Rule)
				}
				return &Violation{
					Rule:       p.Rule,
					Reason:     msg.Reason,
					Suggestion: msg.Suggestion,
					NodeKind:   kind,
					Span:       ec.Edited,
				}, nil
			}
		}
	}
	return nil, nil
}

func (r *Rules) checkQueries(ec EditContext) (*Violation, error) {
	if ec.After == nil || ec.After.Grammar() == nil {
		return nil, nil
	}
	for _, q := range r.Queries {
		captures, err := ec.After.Query(q)
		if err != nil {
			return nil, fmt.Errorf("context rule query for %s: %w", ec.After.Language(), err)
		}
		for _, c := range captures {
			if !strings.HasPrefix(c.Name, invalidPrefix) {
				continue
			}
			n := ec.After.Node(c.Node)
			if !n.Span.Touches(ec.Edited) {
				continue
			}
			rule := strings.TrimPrefix(c.Name, invalidPrefix)
			msg := r.message(rule)
			return &Violation{
				Rule:       rule,
				Reason:     msg.Reason,
				Suggestion: msg.Suggestion,
				NodeKind:   n.Kind,
				Span:       n.Span,
			}, nil
		}
	}
	return nil, nil
}

func (r *Rules) message(rule string) Message {
	if m, ok := r.Messages[rule]; ok {
		return m
	}
	return Message{
		Reason:     fmt.Sprintf("Invalid placement: %s", strings.ReplaceAll(rule, ".", " ")),
		Suggestion: "Move the code to a location where this construct is allowed",
	}
}

func containerMatches(tree *syntax.Tree, id syntax.NodeID, patterns []string) bool {
	n := tree.Node(id)
	for _, pat := range patterns {
		parent, kind, nested := strings.Cut(pat, ">")
		if !nested {
			if n.Kind == pat {
				return true
			}
			continue
		}
		if n.Kind == kind && n.Parent != syntax.NoNode && tree.Node(n.Parent).Kind == parent {
			return true
		}
	}
	return false
}

// topLevelKinds parses the edited text on its own with the same grammar
// and returns the kinds of its top-level named nodes, comments excluded.
func topLevelKinds(ctx context.Context, after *syntax.Tree, edited types.Span) ([]string, error) {
	g := after.Grammar()
	if g == nil || edited.Len() == 0 {
		return []string{}, nil
	}
	snippet := after.Source()[edited.Start:edited.End]
	tree, err := g.Parse(ctx, snippet)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	kinds := []string{}
	for _, id := range tree.Children(tree.Root()) {
		n := tree.Node(id)
		if !n.Named || strings.Contains(n.Kind, "comment") {
			continue
		}
		kinds = append(kinds, n.Kind)
	}
	return kinds, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
