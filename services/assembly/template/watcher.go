// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/clauseforge/pkg/logging"
)

// DefaultDebounce is how long the watcher waits after the last
// filesystem event before reloading. Editors tend to emit bursts of
// writes for a single save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher hot-reloads templates when files in a directory change.
//
// Thread Safety: Start may be called once; the registry it updates is
// safe for concurrent readers.
type Watcher struct {
	registry *Registry
	dir      string
	debounce time.Duration
	logger   *logging.Logger

	mu sync.Mutex
	// paths maps file path to the template ID loaded from it, so a
	// removed file can evict its template.
	paths map[string]string
}

// NewWatcher creates a watcher that keeps registry in sync with dir.
// A zero debounce uses DefaultDebounce; a nil logger uses the default.
func NewWatcher(registry *Registry, dir string, debounce time.Duration, logger *logging.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		registry: registry,
		dir:      dir,
		debounce: debounce,
		logger:   logger,
		paths:    make(map[string]string),
	}
}

// Start performs an initial load, then watches until ctx is cancelled.
// It blocks; run it in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.reloadDir(); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching templates", "dir", w.dir)

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := make(map[string]fsnotify.Op)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isTemplateFile(event.Name) {
				continue
			}
			pending[event.Name] |= event.Op
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.apply(pending)
			pending = make(map[string]fsnotify.Op)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("template watcher error", "error", err)
		}
	}
}

// apply processes a debounced batch of events.
func (w *Watcher) apply(pending map[string]fsnotify.Op) {
	for path, op := range pending {
		switch {
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
			w.evict(path)
		case op.Has(fsnotify.Write) || op.Has(fsnotify.Create):
			w.reloadFile(path)
		}
	}
}

func (w *Watcher) reloadFile(path string) {
	t, err := LoadFile(path)
	if err != nil {
		// Keep the last good version registered.
		w.logger.Warn("template reload failed", "path", path, "error", err)
		return
	}

	w.mu.Lock()
	if oldID, ok := w.paths[path]; ok && oldID != t.ID {
		w.registry.Remove(oldID)
	}
	w.paths[path] = t.ID
	w.mu.Unlock()

	w.registry.Put(t)
	w.logger.Info("template reloaded", "path", path, "template", t.ID)
}

func (w *Watcher) evict(path string) {
	w.mu.Lock()
	id, ok := w.paths[path]
	delete(w.paths, path)
	w.mu.Unlock()
	if !ok {
		return
	}
	w.registry.Remove(id)
	w.logger.Info("template removed", "path", path, "template", id)
}

// reloadDir loads every template file in the directory and records
// which path owns which template ID, so later removals evict correctly.
func (w *Watcher) reloadDir() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read template dir %s: %w", w.dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !isTemplateFile(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		t, err := LoadFile(path)
		if err != nil {
			w.logger.Warn("skipping template", "path", path, "error", err)
			continue
		}
		w.mu.Lock()
		w.paths[path] = t.ID
		w.mu.Unlock()
		w.registry.Put(t)
		loaded++
	}
	w.logger.Info("templates loaded", "dir", w.dir, "count", loaded)
	return loaded, nil
}
