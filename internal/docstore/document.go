// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package docstore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

// Document is a cached file: its buffer, parse tree and revision. Readers
// share the tree under Read; Update replaces buffer and tree together.
type Document struct {
	id       string
	path     string
	language string
	provider *syntax.Provider

	mu       sync.RWMutex
	text     []byte
	tree     *syntax.Tree
	revision uint64
	modTime  time.Time
	size     int64

	// pin guards holds and leaving. A document that is leaving the
	// cache accepts no new holds.
	pin     sync.Mutex
	holds   int
	leaving bool

	evicted atomic.Bool
}

// Info describes a document for clients.
type Info struct {
	ID        string `json:"document_id"`
	Path      string `json:"path"`
	Language  string `json:"language"`
	Revision  uint64 `json:"revision"`
	Bytes     int    `json:"bytes"`
	Lines     int    `json:"lines"`
	HasErrors bool   `json:"has_errors"`
	Holds     int    `json:"holds"`
}

func (d *Document) ID() string       { return d.id }
func (d *Document) Path() string     { return d.path }
func (d *Document) Language() string { return d.language }

// Revision returns the current revision.
func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// Text returns a copy of the current buffer.
func (d *Document) Text() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return bytes.Clone(d.text)
}

// Info returns a snapshot of the document's metadata.
func (d *Document) Info() Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Info{
		ID:        d.id,
		Path:      d.path,
		Language:  d.language,
		Revision:  d.revision,
		Bytes:     len(d.text),
		Lines:     d.tree.LineCount(),
		HasErrors: d.tree.HasErrors(),
		Holds:     d.holdCount(),
	}
}

func (d *Document) holdCount() int {
	d.pin.Lock()
	defer d.pin.Unlock()
	return d.holds
}

// Read calls fn with the current tree and revision under the shared lock.
// fn must not retain the tree.
func (d *Document) Read(fn func(tree *syntax.Tree, revision uint64) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.evicted.Load() {
		return d.unknown()
	}
	return fn(d.tree, d.revision)
}

// Hold pins the document for a staged operation. It fails once the
// cache has chosen the document for eviction.
func (d *Document) Hold() bool {
	d.pin.Lock()
	defer d.pin.Unlock()
	if d.leaving {
		return false
	}
	d.holds++
	return true
}

// Release drops a pin taken by Hold.
func (d *Document) Release() {
	d.pin.Lock()
	defer d.pin.Unlock()
	d.holds--
}

// Evicted reports whether the document has left, or is leaving, the cache.
func (d *Document) Evicted() bool {
	d.pin.Lock()
	defer d.pin.Unlock()
	return d.leaving
}

// claim marks the document as leaving the cache. Without force a held
// document is not claimed.
func (d *Document) claim(force bool) bool {
	d.pin.Lock()
	defer d.pin.Unlock()
	if d.holds > 0 && !force {
		return false
	}
	d.leaving = true
	return true
}

// Rebuild produces the next buffer and its tree from the current tree.
type Rebuild func(ctx context.Context, current *syntax.Tree) (text []byte, tree *syntax.Tree, err error)

// Update commits a new buffer if the document is still at expected. The
// file on disk is checked first; an external change is loaded as a new
// revision and reported as StaleTarget. On success the file is written
// atomically, the tree replaced and the revision incremented by one.
func (d *Document) Update(ctx context.Context, expected uint64, rebuild Rebuild) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.evicted.Load() {
		return 0, d.unknown()
	}
	if _, err := d.syncLocked(ctx); err != nil {
		return 0, err
	}
	if d.revision != expected {
		return 0, &types.Error{
			Kind:             types.KindStaleTarget,
			Message:          fmt.Sprintf("%s is at revision %d, edit was validated against %d", d.path, d.revision, expected),
			ExpectedRevision: expected,
			ActualRevision:   d.revision,
			Path:             d.path,
		}
	}

	text, tree, err := rebuild(ctx, d.tree)
	if err != nil {
		return 0, err
	}
	if err := atomicWrite(d.path, text); err != nil {
		tree.Close()
		return 0, types.IoError(d.path, err)
	}
	d.replaceLocked(text, tree)
	d.statLocked()
	return d.revision, nil
}

// Sync reloads the document if the file changed on disk and reports
// whether a new revision was created.
func (d *Document) Sync(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.evicted.Load() {
		return false, d.unknown()
	}
	return d.syncLocked(ctx)
}

func (d *Document) syncLocked(ctx context.Context) (bool, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		return false, types.IoError(d.path, err)
	}
	if info.ModTime().Equal(d.modTime) && info.Size() == d.size {
		return false, nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return false, types.IoError(d.path, err)
	}
	d.modTime, d.size = info.ModTime(), info.Size()
	if bytes.Equal(data, d.text) {
		return false, nil
	}
	tree, err := d.provider.Parse(ctx, d.language, data)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", d.path, err)
	}
	d.replaceLocked(data, tree)
	return true, nil
}

func (d *Document) replaceLocked(text []byte, tree *syntax.Tree) {
	old := d.tree
	d.text, d.tree = text, tree
	d.revision++
	if old != nil {
		old.Close()
	}
}

func (d *Document) statLocked() {
	if info, err := os.Stat(d.path); err == nil {
		d.modTime, d.size = info.ModTime(), info.Size()
	}
}

// evict marks the document gone and releases its tree.
func (d *Document) evict() {
	d.claim(true)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evicted.Store(true)
	if d.tree != nil {
		d.tree.Close()
	}
}

func (d *Document) unknown() error {
	return &types.Error{
		Kind:    types.KindUnknownDocument,
		Message: fmt.Sprintf("document %s was evicted from the cache", d.id),
		Path:    d.path,
	}
}
