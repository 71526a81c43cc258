// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind tags every engine failure so callers can react without parsing
// messages.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindAmbiguous        ErrorKind = "ambiguous"
	KindInvalidBoundary  ErrorKind = "invalid_boundary"
	KindContextViolation ErrorKind = "context_violation"
	KindSyntaxViolation  ErrorKind = "syntax_violation"
	KindStaleTarget      ErrorKind = "stale_target"
	KindAlreadyCommitted ErrorKind = "already_committed"
	KindAlreadyAborted   ErrorKind = "already_aborted"
	KindIoFailure        ErrorKind = "io_failure"
	KindInvalidSelector  ErrorKind = "invalid_selector"
	KindUnknownOperation ErrorKind = "unknown_operation"
	KindUnknownDocument  ErrorKind = "unknown_document"
	KindContextNotFound  ErrorKind = "context_not_found"
	KindCacheFull        ErrorKind = "cache_full"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrNotFound         = errors.New("target not found")
	ErrAmbiguous        = errors.New("ambiguous target")
	ErrInvalidBoundary  = errors.New("offset splits a code point")
	ErrContextViolation = errors.New("structural rule violated")
	ErrSyntaxViolation  = errors.New("edit introduces a syntax error")
	ErrStaleTarget      = errors.New("document changed since the edit was validated")
	ErrAlreadyCommitted = errors.New("operation already committed")
	ErrAlreadyAborted   = errors.New("operation already aborted")
	ErrIoFailure        = errors.New("i/o failure")
	ErrInvalidSelector  = errors.New("invalid selector")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrUnknownDocument  = errors.New("unknown document")
	ErrContextNotFound  = errors.New("no working context")
	ErrCacheFull        = errors.New("document cache full")
)

var sentinels = map[ErrorKind]error{
	KindNotFound:         ErrNotFound,
	KindAmbiguous:        ErrAmbiguous,
	KindInvalidBoundary:  ErrInvalidBoundary,
	KindContextViolation: ErrContextViolation,
	KindSyntaxViolation:  ErrSyntaxViolation,
	KindStaleTarget:      ErrStaleTarget,
	KindAlreadyCommitted: ErrAlreadyCommitted,
	KindAlreadyAborted:   ErrAlreadyAborted,
	KindIoFailure:        ErrIoFailure,
	KindInvalidSelector:  ErrInvalidSelector,
	KindUnknownOperation: ErrUnknownOperation,
	KindUnknownDocument:  ErrUnknownDocument,
	KindContextNotFound:  ErrContextNotFound,
	KindCacheFull:        ErrCacheFull,
}

// CandidateSummary describes one candidate in an Ambiguous or out-of-range
// NotFound error.
type CandidateSummary struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Range   Span   `json:"range"`
	Line    int    `json:"line"`
	Summary string `json:"summary"`
}

// Suggestion is a ranked correction attached to NotFound.
type Suggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Line  int     `json:"line,omitempty"`
}

// Error is the single error type returned by the engine. Only the fields
// relevant to Kind are populated.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	NodeKind string `json:"node_kind,omitempty"`
	Range    *Span  `json:"range,omitempty"`
	Line     int    `json:"line,omitempty"`

	Candidates  []CandidateSummary `json:"candidates,omitempty"`
	Suggestions []Suggestion       `json:"suggestions,omitempty"`

	Rule       string `json:"rule,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`

	Offset int `json:"offset,omitempty"`

	ExpectedRevision uint64 `json:"expected_revision,omitempty"`
	ActualRevision   uint64 `json:"actual_revision,omitempty"`

	Path string `json:"path,omitempty"`

	// Context holds numbered source lines around Line.
	Context string `json:"context,omitempty"`

	Err error `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	var errs []error
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind tag of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IoError wraps an underlying read or write failure.
func IoError(path string, err error) *Error {
	return &Error{Kind: KindIoFailure, Message: "accessing " + path, Path: path, Err: err}
}
