// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces editor write bursts into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher watches the config file and delivers a freshly loaded Config
// whenever it changes on disk. The app uses this to pick up token or
// backend URL edits without restarting, re-running the model fetch
// against the new credentials.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	changes chan *Config

	mu      sync.Mutex
	lastSig time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for the default config path.
func NewWatcher() (*Watcher, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return NewWatcherFor(path)
}

// NewWatcherFor creates a watcher for a specific config file.
func NewWatcherFor(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher: fsw,
		path:    path,
		changes: make(chan *Config, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	// Watch the directory, not the file: atomic saves replace the file
	// and a file-level watch would go stale after the first rename.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		cancel()
		return nil, err
	}

	go w.run()
	return w, nil
}

// Changes delivers reloaded configs. Invalid intermediate states (a
// half-written file) are dropped silently; only configs that load and
// validate come through.
func (w *Watcher) Changes() <-chan *Config {
	return w.changes
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.debouncedReload()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next event may still land.
		}
	}
}

func (w *Watcher) debouncedReload() {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastSig) < watchDebounce {
		w.mu.Unlock()
		return
	}
	w.lastSig = now
	w.mu.Unlock()

	// Small grace period so the writer finishes before we read.
	time.Sleep(50 * time.Millisecond)

	cfg, err := LoadFromPath(w.path)
	if err != nil {
		return
	}

	select {
	case w.changes <- cfg:
	default:
		// A pending unconsumed config is replaced by draining it first.
		select {
		case <-w.changes:
		default:
		}
		w.changes <- cfg
	}
}
