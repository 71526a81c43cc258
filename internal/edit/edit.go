// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package edit

import (
	"strings"

	"github.com/petar-djukic/semedit/pkg/types"
)

// Edit is an immutable proposed mutation: a resolved position, the text
// that replaces it, and the document revision the position was computed
// against.
type Edit struct {
	pos      types.EditPosition
	text     string
	language string
	revision uint64
}

// New builds an Edit.
func New(pos types.EditPosition, text, language string, revision uint64) Edit {
	return Edit{pos: pos, text: text, language: language, revision: revision}
}

func (e Edit) Position() types.EditPosition { return e.pos }
func (e Edit) Text() string                 { return e.text }
func (e Edit) Language() string             { return e.language }
func (e Edit) Revision() uint64             { return e.revision }

// Target is the span of the original buffer that the edit replaces.
func (e Edit) Target() types.Span { return e.pos.Span }

// Edited is the span the replacement text occupies in the new buffer.
func (e Edit) Edited() types.Span {
	return types.Span{Start: e.pos.Start, End: e.pos.Start + len(e.text)}
}

// Delta is the change in buffer length caused by the edit.
func (e Edit) Delta() int { return len(e.text) - e.pos.Len() }

// WithText returns a copy of e carrying different replacement text.
func (e Edit) WithText(text string) Edit {
	e.text = text
	return e
}

// Apply returns a new buffer with the edit applied. src is never modified.
func (e Edit) Apply(src []byte) ([]byte, error) {
	if e.pos.End > len(src) {
		span := e.pos.Span
		return nil, &types.Error{
			Kind:    types.KindInvalidBoundary,
			Message: "edit span exceeds the buffer",
			Range:   &span,
			Offset:  e.pos.End,
		}
	}
	if err := checkBoundaries(src, e.pos.Span); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(src)+e.Delta())
	out = append(out, src[:e.pos.Start]...)
	out = append(out, e.text...)
	out = append(out, src[e.pos.End:]...)
	return out, nil
}

// Variants returns the replacement texts tried for op, literal text first.
// Inserts also try a separating space and then a newline on the side
// facing the target.
func Variants(op types.Operation, text string) []string {
	out := []string{text}
	switch op {
	case types.InsertBefore:
		if !strings.HasSuffix(text, " ") && !strings.HasSuffix(text, "\n") {
			out = append(out, text+" ", text+"\n")
		}
	case types.InsertAfter, types.InsertAfterNode:
		if !strings.HasPrefix(text, " ") && !strings.HasPrefix(text, "\n") {
			out = append(out, " "+text, "\n"+text)
		}
	}
	return out
}
