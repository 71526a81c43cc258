// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/petar-djukic/semedit/internal/diff"
	"github.com/petar-djukic/semedit/internal/docstore"
	"github.com/petar-djukic/semedit/internal/edit"
	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

// Status is the lifecycle state of a staged operation.
type Status int

const (
	Staged Status = iota
	Retargeted
	Committed
	Aborted
)

func (s Status) String() string {
	switch s {
	case Staged:
		return "staged"
	case Retargeted:
		return "retargeted"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText encodes the status name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == Committed || s == Aborted }

// StageRequest describes an edit to stage.
type StageRequest struct {
	Document  string
	Selector  types.Selector
	Operation types.Operation
	Text      string
	Policy    types.Policy
}

// Preview is the result of staging or retargeting.
type Preview struct {
	OperationID string     `json:"operation_id"`
	Status      Status     `json:"status"`
	Revision    uint64     `json:"revision"`
	Range       types.Span `json:"range"`
	Diff        *diff.Diff `json:"preview_diff"`
}

// CommitResult is the result of a successful commit.
type CommitResult struct {
	OperationID string     `json:"operation_id"`
	Written     bool       `json:"written"`
	Revision    uint64     `json:"revision"`
	Diff        *diff.Diff `json:"final_diff"`
}

// operation is a staged edit. Its edit has always passed both validation
// layers against revision edit.Revision().
type operation struct {
	id      string
	session string
	doc     *docstore.Document

	mu     sync.Mutex
	status Status
	mode   types.Operation
	text   string
	sel    types.Selector
	policy types.Policy
	edit   edit.Edit
	diff   *diff.Diff
}

func (op *operation) preview() *Preview {
	return &Preview{
		OperationID: op.id,
		Status:      op.status,
		Revision:    op.edit.Revision(),
		Range:       op.edit.Target(),
		Diff:        op.diff,
	}
}

func (op *operation) terminalError() error {
	switch op.status {
	case Committed:
		return &types.Error{Kind: types.KindAlreadyCommitted, Message: fmt.Sprintf("operation %s was committed", op.id)}
	case Aborted:
		return &types.Error{Kind: types.KindAlreadyAborted, Message: fmt.Sprintf("operation %s was aborted", op.id)}
	}
	return nil
}

// abort moves a live operation to Aborted and releases its document pin.
// It reports whether a transition happened.
func (op *operation) abort() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.status.Terminal() {
		return false
	}
	op.abortLocked()
	return true
}

func (op *operation) abortLocked() {
	op.status = Aborted
	op.doc.Release()
}

// Stage resolves, places and validates an edit, and records it as a staged
// operation pinned to the document's current revision. Nothing is created
// on failure.
func (e *Engine) Stage(ctx context.Context, sessionID string, req StageRequest) (p *Preview, err error) {
	ctx, span := startSpan(ctx, "Stage",
		attribute.String("semedit.document", req.Document),
		attribute.String("semedit.selector", req.Selector.String()),
		attribute.String("semedit.mode", req.Operation.String()),
	)
	defer func() { endSpan(ctx, span, "stage", err) }()

	doc, err := e.store.Get(req.Document)
	if err != nil {
		return nil, err
	}
	prep, err := e.prepare(ctx, doc, req.Selector, req.Operation, req.Text, req.Policy)
	if err != nil {
		return nil, err
	}

	op := &operation{
		id:      uuid.NewString(),
		session: sessionID,
		doc:     doc,
		status:  Staged,
		mode:    req.Operation,
		text:    req.Text,
		sel:     req.Selector,
		policy:  req.Policy,
		edit:    prep.edit,
		diff:    prep.diff,
	}
	// The eviction hook scans e.ops under e.mu, so pinning and registering
	// together means the hook either sees this operation or the hold fails.
	e.mu.Lock()
	if !doc.Hold() {
		e.mu.Unlock()
		return nil, &types.Error{Kind: types.KindUnknownDocument, Message: fmt.Sprintf("document %s left the cache while staging", doc.ID())}
	}
	e.sessionLocked(sessionID).ops[op.id] = op
	e.ops[op.id] = op
	e.mu.Unlock()

	e.logger.Info("operation staged",
		"op", op.id, "session", sessionID, "doc", doc.Path(),
		"mode", req.Operation, "selector", req.Selector.String(), "revision", prep.edit.Revision())
	return op.preview(), nil
}

// Retarget re-resolves a live operation with a new selector and policy.
// On any failure the operation is left exactly as it was.
func (e *Engine) Retarget(ctx context.Context, opID string, sel types.Selector, policy types.Policy) (p *Preview, err error) {
	ctx, span := startSpan(ctx, "Retarget",
		attribute.String("semedit.operation", opID),
		attribute.String("semedit.selector", sel.String()),
	)
	defer func() { endSpan(ctx, span, "retarget", err) }()

	op, err := e.lookup(opID)
	if err != nil {
		return nil, err
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	if err := op.terminalError(); err != nil {
		return nil, err
	}

	prep, err := e.prepare(ctx, op.doc, sel, op.mode, op.text, policy)
	if err != nil {
		return nil, err
	}
	op.sel, op.policy = sel, policy
	op.edit, op.diff = prep.edit, prep.diff
	op.status = Retargeted

	e.logger.Info("operation retargeted", "op", op.id, "selector", sel.String(), "revision", prep.edit.Revision())
	return op.preview(), nil
}

// Commit re-validates and writes a live operation. The document must
// still be at the revision the edit was validated against; otherwise the
// attempt fails with StaleTarget and the operation stays live.
func (e *Engine) Commit(ctx context.Context, opID string) (res *CommitResult, err error) {
	ctx, span := startSpan(ctx, "Commit", attribute.String("semedit.operation", opID))
	defer func() { endSpan(ctx, span, "commit", err) }()

	op, err := e.lookup(opID)
	if err != nil {
		return nil, err
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	if err := op.terminalError(); err != nil {
		return nil, err
	}

	var final *diff.Diff
	rev, err := op.doc.Update(ctx, op.edit.Revision(), func(ctx context.Context, cur *syntax.Tree) ([]byte, *syntax.Tree, error) {
		sp, err := e.validateTimed(ctx, cur, op.edit)
		if err != nil {
			return nil, nil, err
		}
		sp = e.formatted(ctx, cur, sp)
		d, err := diff.Compute(op.doc.Path(), cur.Source(), sp.Text)
		if err != nil {
			sp.Close()
			return nil, nil, err
		}
		d.Assess(op.edit.Text())
		final = d
		return sp.Text, sp.Keep(), nil
	})
	if err != nil {
		e.logger.Info("commit failed", "op", op.id, "doc", op.doc.Path(), "kind", outcome(err))
		return nil, err
	}

	op.status = Committed
	op.diff = final
	op.doc.Release()
	recordCommit(ctx, op.doc.Language())
	e.logger.Info("operation committed", "op", op.id, "doc", op.doc.Path(), "revision", rev,
		"added", final.Metrics.LinesAdded, "removed", final.Metrics.LinesRemoved)

	return &CommitResult{OperationID: op.id, Written: true, Revision: rev, Diff: final}, nil
}

// Abort discards a live operation. Aborting a terminal operation, committed
// or aborted, changes nothing.
func (e *Engine) Abort(ctx context.Context, opID string) (err error) {
	ctx, span := startSpan(ctx, "Abort", attribute.String("semedit.operation", opID))
	defer func() { endSpan(ctx, span, "abort", err) }()

	op, err := e.lookup(opID)
	if err != nil {
		return err
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.status.Terminal() {
		return nil
	}
	op.abortLocked()
	e.logger.Info("operation aborted", "op", op.id)
	return nil
}

// OperationStatus returns the current status of an operation.
func (e *Engine) OperationStatus(opID string) (Status, error) {
	op, err := e.lookup(opID)
	if err != nil {
		return 0, err
	}
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.status, nil
}

// CheckSession fails with UnknownOperation unless opID names an operation
// staged in sessionID.
func (e *Engine) CheckSession(sessionID, opID string) error {
	op, err := e.lookup(opID)
	if err != nil {
		return err
	}
	if op.session != sessionID {
		return &types.Error{Kind: types.KindUnknownOperation, Message: fmt.Sprintf("no staged operation %q in this session", opID)}
	}
	return nil
}
