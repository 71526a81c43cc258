// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package docstore caches open documents with their parse trees. The cache
// is a bounded LRU; documents pinned by staged operations are evicted only
// under the abort policy, after the eviction hook has run.
//
// Locking:
//
//	Store.mu      cache order and indexes; held while the eviction hook runs
//	Document.mu   buffer, tree and revision; Read shares it, Update owns it
//	Document.pin  hold count and the leaving flag; never held across a call
//
// Eviction claims a victim under its pin lock before anything else. Once
// claimed a document refuses new holds, so a caller that pins a document
// and registers its operation under its own lock is either seen by the
// hook or told the document is gone. Callers above the Store take their
// locks first; the Store never calls upward except through the hook.
package docstore

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

const defaultCapacity = 64

// EvictionPolicy decides what happens when every cached document is
// pinned and a new one must be opened.
type EvictionPolicy string

const (
	// EvictRefuse fails the open with CacheFull.
	EvictRefuse EvictionPolicy = "refuse"
	// EvictAbort evicts the least recently used document after the
	// eviction hook has aborted its operations.
	EvictAbort EvictionPolicy = "abort"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (EvictionPolicy, error) {
	switch p := EvictionPolicy(s); p {
	case EvictRefuse, EvictAbort:
		return p, nil
	case "":
		return EvictRefuse, nil
	default:
		return "", fmt.Errorf("unknown eviction policy %q (want refuse or abort)", s)
	}
}

// Options configures a Store.
type Options struct {
	Capacity int
	Policy   EvictionPolicy
	// Watch reloads documents changed on disk by other programs.
	Watch  bool
	Logger *slog.Logger
}

// Stats reports cache effectiveness.
type Stats struct {
	Entries   int     `json:"entries"`
	Capacity  int     `json:"capacity"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// Store is the document cache.
type Store struct {
	provider *syntax.Provider
	capacity int
	policy   EvictionPolicy
	logger   *slog.Logger

	mu      sync.Mutex
	order   *list.List // front is most recently used
	byID    map[string]*list.Element
	byPath  map[string]*list.Element
	onEvict func(*Document)
	closed  bool

	flight singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	watch *watcher
}

// New creates a Store parsing with provider.
func New(provider *syntax.Provider, opts Options) (*Store, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.Policy == "" {
		opts.Policy = EvictRefuse
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Store{
		provider: provider,
		capacity: opts.Capacity,
		policy:   opts.Policy,
		logger:   opts.Logger,
		order:    list.New(),
		byID:     make(map[string]*list.Element),
		byPath:   make(map[string]*list.Element),
	}
	if opts.Watch {
		w, err := newWatcher(s)
		if err != nil {
			return nil, fmt.Errorf("starting file watcher: %w", err)
		}
		s.watch = w
	}
	return s, nil
}

// OnEvict registers a hook run synchronously, with the cache lock held,
// before a pinned document leaves the cache. The hook must not call back
// into the Store.
func (s *Store) OnEvict(fn func(*Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Open returns the cached document for path, loading it on a miss. path
// must be absolute. hint overrides extension-based language detection.
// Concurrent opens of the same path share one load.
func (s *Store) Open(ctx context.Context, path, hint string) (*Document, error) {
	if d, ok := s.lookupPath(path); ok {
		s.hits.Add(1)
		return d, nil
	}

	v, err, _ := s.flight.Do(path, func() (any, error) {
		if d, ok := s.lookupPath(path); ok {
			return d, nil
		}
		s.misses.Add(1)
		d, err := s.load(ctx, path, hint)
		if err != nil {
			return nil, err
		}
		if err := s.insert(d); err != nil {
			d.evict()
			return nil, err
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

// Get returns an open document by id and marks it recently used.
func (s *Store) Get(id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.byID[id]
	if !ok {
		return nil, &types.Error{Kind: types.KindUnknownDocument, Message: fmt.Sprintf("no open document %q", id)}
	}
	s.order.MoveToFront(el)
	return el.Value.(*Document), nil
}

// Refresh reloads a document from disk when its file changed.
func (s *Store) Refresh(ctx context.Context, id string) (bool, error) {
	d, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return d.Sync(ctx)
}

// Stats returns cache statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	entries := s.order.Len()
	s.mu.Unlock()

	st := Stats{
		Entries:   entries,
		Capacity:  s.capacity,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

// Close stops the watcher and releases every document.
func (s *Store) Close() error {
	if s.watch != nil {
		s.watch.close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for el := s.order.Front(); el != nil; el = el.Next() {
		el.Value.(*Document).evict()
	}
	s.order.Init()
	clear(s.byID)
	clear(s.byPath)
	return nil
}

func (s *Store) lookupPath(path string) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.byPath[path]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*Document), true
}

func (s *Store) load(ctx context.Context, path, hint string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.IoError(path, err)
	}
	if info.IsDir() {
		return nil, types.IoError(path, fmt.Errorf("%s is a directory", path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.IoError(path, err)
	}

	lang := hint
	if lang == "" {
		lang = s.provider.DetectLanguage(path)
	}
	tree, err := s.provider.Parse(ctx, lang, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	s.logger.Debug("document loaded", "path", path, "language", lang, "bytes", len(data))
	return &Document{
		id:       uuid.NewString(),
		path:     path,
		language: lang,
		provider: s.provider,
		text:     data,
		tree:     tree,
		revision: 1,
		modTime:  info.ModTime(),
		size:     info.Size(),
	}, nil
}

func (s *Store) insert(d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("document store is closed")
	}
	for s.order.Len() >= s.capacity {
		if err := s.evictOneLocked(); err != nil {
			return err
		}
	}
	el := s.order.PushFront(d)
	s.byID[d.id] = el
	s.byPath[d.path] = el
	if s.watch != nil {
		s.watch.add(d.path)
	}
	return nil
}

// evictOneLocked removes the least recently used unpinned document, or
// under the abort policy the least recently used one.
func (s *Store) evictOneLocked() error {
	var victim *list.Element
	for el := s.order.Back(); el != nil; el = el.Prev() {
		if el.Value.(*Document).claim(false) {
			victim = el
			break
		}
	}
	if victim == nil {
		if s.policy != EvictAbort {
			return &types.Error{
				Kind:    types.KindCacheFull,
				Message: fmt.Sprintf("all %d cached documents have staged operations", s.order.Len()),
			}
		}
		// Claimed before the hook runs: holds taken from here on fail,
		// so the hook sees every operation pinning the document.
		victim = s.order.Back()
		d := victim.Value.(*Document)
		d.claim(true)
		if s.onEvict != nil {
			s.onEvict(d)
		}
	}

	d := victim.Value.(*Document)
	s.order.Remove(victim)
	delete(s.byID, d.id)
	delete(s.byPath, d.path)
	if s.watch != nil {
		s.watch.remove(d.path)
	}
	d.evict()
	s.evictions.Add(1)
	s.logger.Debug("document evicted", "path", d.path, "doc", d.id)
	return nil
}
