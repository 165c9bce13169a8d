package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"prompt-explorer/internal/logging"
	"prompt-explorer/internal/metrics"
)

// DefaultQuiet is how long the watched folder must stay quiet before a
// reload fires. Bulk operations (a render job dropping hundreds of
// files) collapse into a single reload.
const DefaultQuiet = 500 * time.Millisecond

// Watcher monitors one folder for PNG changes and invokes a reload
// callback after events settle. The watch is flat, matching the
// browser's non-recursive folder model.
type Watcher struct {
	onChange func(folder string)
	quiet    time.Duration

	mu      sync.Mutex
	fw      *fsnotify.Watcher
	folder  string
	pending *time.Timer
}

// New creates a Watcher that calls onChange with the watched folder
// path after changes settle. Call Run to start event processing.
func New(onChange func(folder string)) *Watcher {
	return &Watcher{
		onChange: onChange,
		quiet:    DefaultQuiet,
	}
}

// SetQuiet overrides the settle duration. Tests use short values.
func (w *Watcher) SetQuiet(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.quiet = d
}

// Watch switches monitoring to folder, dropping any previous watch.
// An empty folder stops monitoring entirely.
func (w *Watcher) Watch(folder string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fw == nil {
		return nil // not running
	}
	if w.folder != "" {
		if err := w.fw.Remove(w.folder); err != nil {
			logging.Debug("Watcher: remove %s: %v", w.folder, err)
		}
		w.folder = ""
	}
	w.cancelPendingLocked()

	if folder == "" {
		return nil
	}
	if err := w.fw.Add(folder); err != nil {
		metrics.WatcherErrors.Inc()
		return err
	}
	w.folder = folder
	logging.Debug("Watcher: watching %s", folder)
	return nil
}

// Run starts the watcher and processes events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return err
	}

	w.mu.Lock()
	w.fw = fw
	folder := w.folder
	w.mu.Unlock()

	if folder != "" {
		if err := fw.Add(folder); err != nil {
			logging.Warn("Watcher: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}

	defer func() {
		w.mu.Lock()
		w.cancelPendingLocked()
		w.fw = nil
		w.mu.Unlock()
		if err := fw.Close(); err != nil {
			logging.Error("Watcher: close: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only PNG churn matters; editors and the OS touch plenty of
	// other files in render folders.
	if !strings.EqualFold(filepath.Ext(event.Name), ".png") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.folder == "" {
		return
	}
	folder := w.folder

	// Restart the quiet period on every event; the reload fires once
	// the folder stops changing.
	w.cancelPendingLocked()
	w.pending = time.AfterFunc(w.quiet, func() {
		metrics.WatcherReloads.Inc()
		logging.Debug("Watcher: folder %s settled, reloading", folder)
		w.onChange(folder)
	})
}

func (w *Watcher) cancelPendingLocked() {
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	default:
		return "other"
	}
}
