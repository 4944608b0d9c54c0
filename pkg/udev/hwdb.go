/*
Copyright 2026 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package udev

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/deckhouse/udev-devd/pkg/hwdb"
)

// Hwdb serves device properties from the compiled hardware database.
type Hwdb struct {
	path string
	log  *slog.Logger

	mu    sync.RWMutex
	db    *hwdb.Database
	props List
}

type HwdbOption func(*Hwdb)

func HwdbWithLogger(log *slog.Logger) HwdbOption {
	return func(h *Hwdb) {
		h.log = log
	}
}

// NewHwdb opens the database at path. A missing or malformed database is
// an error, callers treat it as having no hardware metadata.
func NewHwdb(path string, opts ...HwdbOption) (*Hwdb, error) {
	h := &Hwdb{
		path: path,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	db, err := hwdb.Open(path)
	if err != nil {
		return nil, err
	}
	h.db = db
	return h, nil
}

func (h *Hwdb) Path() string {
	return h.path
}

// PropertiesListEntry looks modalias up and returns the first property or
// nil when nothing matched. When a key is emitted more than once the last
// value wins. The entries are valid until the next call.
func (h *Hwdb) PropertiesListEntry(modalias string) (*ListEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.props.Clear()
	if err := h.lookup(modalias, &h.props); err != nil {
		h.props.Clear()
		return nil, err
	}
	return h.props.First(), nil
}

// Properties is PropertiesListEntry into a list owned by the caller. It may
// be called concurrently.
func (h *Hwdb) Properties(modalias string) (*List, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	props := NewList()
	if err := h.lookup(modalias, props); err != nil {
		return nil, err
	}
	return props, nil
}

func (h *Hwdb) lookup(modalias string, props *List) error {
	if h.db == nil {
		return hwdb.ErrClosed
	}
	return h.db.Lookup(modalias, func(key, value string) error {
		props.InsertValue(key, value)
		return nil
	})
}

// Reload reopens the database. The current one stays in use if that fails.
func (h *Hwdb) Reload() error {
	db, err := hwdb.Open(h.path)
	if err != nil {
		return err
	}

	h.mu.Lock()
	old := h.db
	h.db = db
	h.props.Clear()
	h.mu.Unlock()

	if err := old.Close(); err != nil {
		h.log.Warn("failed to close replaced hwdb", slog.String("error", err.Error()))
	}
	h.log.Info("hwdb reloaded", slog.String("path", h.path))
	return nil
}

// Watch reloads the database whenever the file is written or replaced.
// It blocks until ctx is canceled.
func (h *Hwdb) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, the file itself is replaced by rename.
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	base := filepath.Base(h.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if err := h.Reload(); err != nil {
				h.log.Warn("failed to reload hwdb", slog.String("path", h.path), slog.String("error", err.Error()))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.log.Error("hwdb watcher error", slog.String("error", err.Error()))
		}
	}
}

func (h *Hwdb) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.props.Clear()
	err := h.db.Close()
	h.db = nil
	return err
}
