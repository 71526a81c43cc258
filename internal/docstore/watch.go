// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package docstore

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// watcher follows the directories of cached documents. Directories are
// watched instead of files because atomic writes replace the inode.
type watcher struct {
	store *Store
	fsw   *fsnotify.Watcher

	mu   sync.Mutex
	dirs map[string]int

	done chan struct{}
	wg   sync.WaitGroup
}

func newWatcher(s *Store) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		store: s,
		fsw:   fsw,
		dirs:  make(map[string]int),
		done:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *watcher) add(path string) {
	dir := filepath.Dir(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			w.store.logger.Warn("watching directory", "dir", dir, "error", err)
			return
		}
	}
	w.dirs[dir]++
}

func (w *watcher) remove(path string) {
	dir := filepath.Dir(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.dirs[dir]
	if !ok {
		return
	}
	if n > 1 {
		w.dirs[dir] = n - 1
		return
	}
	delete(w.dirs, dir)
	_ = w.fsw.Remove(dir)
}

func (w *watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.changed(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.store.logger.Warn("file watcher", "error", err)
		}
	}
}

func (w *watcher) changed(path string) {
	d, ok := w.store.lookupPath(filepath.Clean(path))
	if !ok {
		return
	}
	reloaded, err := d.Sync(context.Background())
	if err != nil {
		w.store.logger.Debug("reloading changed document", "path", path, "error", err)
		return
	}
	if reloaded {
		w.store.logger.Info("document changed on disk", "path", path, "doc", d.ID(), "revision", d.Revision())
	}
}

func (w *watcher) close() {
	select {
	case <-w.done:
		return
	default:
	}
	close(w.done)
	_ = w.fsw.Close()
	w.wg.Wait()
}
