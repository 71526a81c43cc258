// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"encoding/json"
	"fmt"
)

// Operation identifies how a resolved target is turned into a byte span.
type Operation int

const (
	InsertBefore    Operation = iota // Insert at the target's start
	InsertAfter                      // Insert at the target's own end
	InsertAfterNode                  // Insert after the node and its trailing terminator
	ReplaceRange                     // Replace from an anchor match to an end match
	ReplaceExact                     // Replace exactly the matched text
	ReplaceNode                      // Replace the whole node
)

var operationNames = [...]string{
	InsertBefore:    "insert_before",
	InsertAfter:     "insert_after",
	InsertAfterNode: "insert_after_node",
	ReplaceRange:    "replace_range",
	ReplaceExact:    "replace_exact",
	ReplaceNode:     "replace_node",
}

func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return "unknown"
	}
	return operationNames[o]
}

// IsInsert reports whether the operation produces a zero-width span.
func (o Operation) IsInsert() bool {
	return o == InsertBefore || o == InsertAfter || o == InsertAfterNode
}

// ParseOperation maps a wire name such as "replace_node" to an Operation.
func ParseOperation(s string) (Operation, error) {
	for i, name := range operationNames {
		if name == s {
			return Operation(i), nil
		}
	}
	return 0, &Error{Kind: KindInvalidSelector, Message: fmt.Sprintf("unknown operation %q", s)}
}

func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	op, err := ParseOperation(s)
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

func (s Span) String() string { return fmt.Sprintf("[%d,%d)", s.Start, s.End) }

// Touches reports whether s and o intersect as closed intervals, so spans
// that only share a boundary byte still touch.
func (s Span) Touches(o Span) bool {
	return s.Start <= o.End && s.End >= o.Start
}

// Contains reports whether o lies entirely inside s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// EditPosition is a resolved byte span plus the operation that produced it.
// Insert operations always carry Start == End.
type EditPosition struct {
	Span
	Mode Operation `json:"mode"`
}

// Policy decides how the disambiguator narrows a candidate list. The zero
// value requires a unique candidate.
type Policy struct {
	ByIndex bool `json:"by_index,omitempty"`
	Index   int  `json:"index,omitempty"` // 0-based, used when ByIndex is set
}

// RequireUnique fails with Ambiguous unless exactly one candidate remains.
func RequireUnique() Policy { return Policy{} }

// SelectIndex picks the candidate at index n.
func SelectIndex(n int) Policy { return Policy{ByIndex: true, Index: n} }

func (p Policy) String() string {
	if !p.ByIndex {
		return "unique"
	}
	return fmt.Sprintf("index %d", p.Index)
}
