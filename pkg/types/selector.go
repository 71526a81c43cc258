// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SelectorKind names the variant of a Selector.
type SelectorKind int

const (
	SelectByName SelectorKind = iota + 1
	SelectByKind
	SelectByQuery
	SelectByPosition
	SelectByAnchor
)

var selectorKindNames = map[SelectorKind]string{
	SelectByName:     "name",
	SelectByKind:     "kind",
	SelectByQuery:    "query",
	SelectByPosition: "position",
	SelectByAnchor:   "anchor",
}

func (k SelectorKind) String() string {
	if s, ok := selectorKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// AllOccurrences makes ByAnchor consider every match of the pattern.
const AllOccurrences = -1

// Selector is an immutable description of where to edit. Build one with the
// By* constructors; the zero value is invalid.
type Selector struct {
	kind SelectorKind

	name     string
	nodeKind string
	query    string

	line, column int
	offset       int
	hasOffset    bool

	anchor     string
	occurrence int
	end        string
}

// ByName matches nodes whose name field equals name. A non-empty kind
// restricts matches to that node kind.
func ByName(name, kind string) Selector {
	return Selector{kind: SelectByName, name: name, nodeKind: kind}
}

// ByKind matches every node of the given kind.
func ByKind(kind string) Selector {
	return Selector{kind: SelectByKind, nodeKind: kind}
}

// ByQuery matches the captures of a tree-sitter query. When the query has a
// @target capture only those nodes are candidates.
func ByQuery(query string) Selector {
	return Selector{kind: SelectByQuery, query: query}
}

// ByLineColumn selects the smallest named node at a 1-based line and
// 1-based column counted in code points.
func ByLineColumn(line, column int) Selector {
	return Selector{kind: SelectByPosition, line: line, column: column}
}

// ByOffset selects the smallest named node enclosing a 0-based byte offset.
func ByOffset(offset int) Selector {
	return Selector{kind: SelectByPosition, offset: offset, hasOffset: true}
}

// ByAnchor matches exact occurrences of pattern. occurrence selects one
// 0-based occurrence, or AllOccurrences.
func ByAnchor(pattern string, occurrence int) Selector {
	return Selector{kind: SelectByAnchor, anchor: pattern, occurrence: occurrence}
}

// WithEnd returns a copy of an anchor selector that also carries the end
// pattern used by replace_range.
func (s Selector) WithEnd(end string) Selector {
	s.end = end
	return s
}

func (s Selector) Kind() SelectorKind { return s.kind }
func (s Selector) Name() string       { return s.name }
func (s Selector) NodeKind() string   { return s.nodeKind }
func (s Selector) Query() string      { return s.query }
func (s Selector) Anchor() string     { return s.anchor }
func (s Selector) Occurrence() int    { return s.occurrence }
func (s Selector) End() string        { return s.end }

// LineColumn returns the position and whether the selector uses it.
func (s Selector) LineColumn() (line, column int, ok bool) {
	return s.line, s.column, s.kind == SelectByPosition && !s.hasOffset
}

// Offset returns the byte offset and whether the selector uses it.
func (s Selector) Offset() (int, bool) {
	return s.offset, s.kind == SelectByPosition && s.hasOffset
}

// Target returns the text suggestions are ranked against.
func (s Selector) Target() string {
	switch s.kind {
	case SelectByName:
		return s.name
	case SelectByKind:
		return s.nodeKind
	case SelectByAnchor:
		return s.anchor
	case SelectByQuery:
		return s.query
	}
	return ""
}

// Validate rejects selectors that can never match.
func (s Selector) Validate() error {
	invalid := func(format string, args ...any) error {
		return &Error{Kind: KindInvalidSelector, Message: fmt.Sprintf(format, args...)}
	}
	switch s.kind {
	case SelectByName:
		if s.name == "" {
			return invalid("name selector requires a name")
		}
	case SelectByKind:
		if s.nodeKind == "" {
			return invalid("kind selector requires a node kind")
		}
	case SelectByQuery:
		if strings.TrimSpace(s.query) == "" {
			return invalid("query selector requires a query")
		}
	case SelectByPosition:
		if s.hasOffset {
			if s.offset < 0 {
				return invalid("offset %d is negative", s.offset)
			}
		} else if s.line < 1 || s.column < 1 {
			return invalid("line and column are 1-based, got %d:%d", s.line, s.column)
		}
	case SelectByAnchor:
		if s.anchor == "" {
			return invalid("anchor selector requires a pattern")
		}
		if s.occurrence < AllOccurrences {
			return invalid("occurrence %d is invalid", s.occurrence)
		}
	default:
		return invalid("empty selector")
	}
	return nil
}

func (s Selector) String() string {
	switch s.kind {
	case SelectByName:
		if s.nodeKind != "" {
			return "name:" + s.name + ":" + s.nodeKind
		}
		return "name:" + s.name
	case SelectByKind:
		return "kind:" + s.nodeKind
	case SelectByQuery:
		return "query:" + s.query
	case SelectByPosition:
		if s.hasOffset {
			return "offset:" + strconv.Itoa(s.offset)
		}
		return fmt.Sprintf("pos:%d:%d", s.line, s.column)
	case SelectByAnchor:
		if s.occurrence != AllOccurrences {
			return fmt.Sprintf("anchor:%s#%d", s.anchor, s.occurrence)
		}
		return "anchor:" + s.anchor
	}
	return ""
}

// ParseSelector parses the CLI form produced by String: name:NAME[:KIND],
// kind:KIND, query:QUERY, pos:LINE:COL, offset:N, anchor:TEXT[#N].
func ParseSelector(s string) (Selector, error) {
	prefix, rest, ok := strings.Cut(s, ":")
	if !ok {
		return Selector{}, &Error{Kind: KindInvalidSelector, Message: fmt.Sprintf("selector %q has no variant prefix", s)}
	}
	var sel Selector
	switch prefix {
	case "name":
		name, kind, _ := strings.Cut(rest, ":")
		sel = ByName(name, kind)
	case "kind":
		sel = ByKind(rest)
	case "query":
		sel = ByQuery(rest)
	case "pos":
		l, c, ok := strings.Cut(rest, ":")
		line, err1 := strconv.Atoi(l)
		col, err2 := strconv.Atoi(c)
		if !ok || err1 != nil || err2 != nil {
			return Selector{}, &Error{Kind: KindInvalidSelector, Message: fmt.Sprintf("position %q is not LINE:COL", rest)}
		}
		sel = ByLineColumn(line, col)
	case "offset":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Selector{}, &Error{Kind: KindInvalidSelector, Message: fmt.Sprintf("offset %q is not a number", rest), Err: err}
		}
		sel = ByOffset(n)
	case "anchor":
		pattern, occ := rest, AllOccurrences
		if i := strings.LastIndex(rest, "#"); i >= 0 {
			if n, err := strconv.Atoi(rest[i+1:]); err == nil {
				pattern, occ = rest[:i], n
			}
		}
		sel = ByAnchor(pattern, occ)
	default:
		return Selector{}, &Error{Kind: KindInvalidSelector, Message: fmt.Sprintf("unknown selector variant %q", prefix)}
	}
	return sel, sel.Validate()
}

// selectorWire is the JSON form shared by the MCP tools and the public API.
type selectorWire struct {
	By         string `json:"by"`
	Name       string `json:"name,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Query      string `json:"query,omitempty"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Offset     *int   `json:"offset,omitempty"`
	Anchor     string `json:"anchor,omitempty"`
	Occurrence *int   `json:"occurrence,omitempty"`
	End        string `json:"end,omitempty"`
}

func (s Selector) MarshalJSON() ([]byte, error) {
	w := selectorWire{By: s.kind.String()}
	switch s.kind {
	case SelectByName:
		w.Name, w.Kind = s.name, s.nodeKind
	case SelectByKind:
		w.Kind = s.nodeKind
	case SelectByQuery:
		w.Query = s.query
	case SelectByPosition:
		if s.hasOffset {
			off := s.offset
			w.Offset = &off
		} else {
			w.Line, w.Column = s.line, s.column
		}
	case SelectByAnchor:
		w.Anchor, w.End = s.anchor, s.end
		if s.occurrence != AllOccurrences {
			occ := s.occurrence
			w.Occurrence = &occ
		}
	}
	return json.Marshal(w)
}

func (s *Selector) UnmarshalJSON(data []byte) error {
	var w selectorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return &Error{Kind: KindInvalidSelector, Message: "malformed selector", Err: err}
	}
	var sel Selector
	switch w.By {
	case "name":
		sel = ByName(w.Name, w.Kind)
	case "kind":
		sel = ByKind(w.Kind)
	case "query":
		sel = ByQuery(w.Query)
	case "position":
		if w.Offset != nil {
			sel = ByOffset(*w.Offset)
		} else {
			sel = ByLineColumn(w.Line, w.Column)
		}
	case "anchor":
		occ := AllOccurrences
		if w.Occurrence != nil {
			occ = *w.Occurrence
		}
		sel = ByAnchor(w.Anchor, occ).WithEnd(w.End)
	default:
		return &Error{Kind: KindInvalidSelector, Message: fmt.Sprintf("unknown selector variant %q", w.By)}
	}
	if err := sel.Validate(); err != nil {
		return err
	}
	*s = sel
	return nil
}
