// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package syntax

import (
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrNoGrammar is returned by Query on trees without a tree-sitter grammar.
var ErrNoGrammar = errors.New("document has no grammar")

// Capture is one query capture resolved to an arena node.
type Capture struct {
	Name string
	Node NodeID
}

// QueryError reports a query that the grammar rejected.
type QueryError struct {
	Pattern string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Query runs a tree-sitter query over the whole tree and returns captures
// in match order, first capture of each match first. Predicates such as
// #eq? and #match? are applied.
func (t *Tree) Query(pattern string) ([]Capture, error) {
	if t.grammar == nil {
		return nil, ErrNoGrammar
	}
	if t.raw == nil {
		return nil, fmt.Errorf("tree for %s already closed", t.language)
	}

	q, err := sitter.NewQuery([]byte(pattern), t.grammar.lang)
	if err != nil {
		return nil, &QueryError{Pattern: pattern, Err: err}
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, t.raw.RootNode())

	var captures []Capture
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, t.src)
		for _, c := range m.Captures {
			id, ok := t.lookup(c.Node)
			if !ok {
				continue
			}
			captures = append(captures, Capture{Name: q.CaptureNameForId(c.Index), Node: id})
		}
	}
	return captures, nil
}
