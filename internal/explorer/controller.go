package explorer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prompt-explorer/internal/grid"
	"prompt-explorer/internal/index"
	"prompt-explorer/internal/logging"
	"prompt-explorer/internal/metrics"
	"prompt-explorer/internal/runloop"
	"prompt-explorer/internal/settings"
	"prompt-explorer/internal/thumbs"
)

// ThumbSizeStep is the fixed increment for the modifier+wheel (or
// keyboard) thumbnail size gesture.
const ThumbSizeStep = 16

// Controller coordinates scans, filtering, selection, and settings.
// All methods must be called on the run loop; background scans marshal
// their results back through Post.
type Controller struct {
	loop    *runloop.Loop
	scanner *index.Scanner
	cache   *thumbs.Cache
	view    *grid.View
	store   *settings.Store
	emit    func(Event)

	requests runloop.Requests

	folder   string
	entries  []index.Entry
	filtered []index.Entry
	query    string
	mode     index.Mode
	scanning bool

	// onFolderChanged lets the folder watcher follow the active
	// folder. Optional.
	onFolderChanged func(folder string)
}

// Config collects the Controller's collaborators. Emit is required;
// everything else is wired by main.
type Config struct {
	Loop    *runloop.Loop
	Scanner *index.Scanner
	Cache   *thumbs.Cache
	View    *grid.View
	Store   *settings.Store
	Emit    func(Event)

	OnFolderChanged func(folder string)
}

// New builds a Controller.
func New(cfg Config) *Controller {
	return &Controller{
		loop:            cfg.Loop,
		scanner:         cfg.Scanner,
		cache:           cfg.Cache,
		view:            cfg.View,
		store:           cfg.Store,
		emit:            cfg.Emit,
		mode:            index.ModeTokensAnd,
		onFolderChanged: cfg.OnFolderChanged,
	}
}

// Folder returns the active folder path, or "" before the first load.
func (c *Controller) Folder() string { return c.folder }

// Entries returns the unfiltered scan result.
func (c *Controller) Entries() []index.Entry { return c.entries }

// Filtered returns the currently displayed collection.
func (c *Controller) Filtered() []index.Entry { return c.filtered }

// Scanning reports whether a scan is in flight.
func (c *Controller) Scanning() bool { return c.scanning }

// Status is the snapshot the debug server's health endpoint reports.
func (c *Controller) Status() (folder string, entries int, scanning bool) {
	return c.folder, len(c.entries), c.scanning
}

// LoadFolder validates path and starts a background scan. An invalid
// path emits an error event and leaves the current state untouched. A
// newer LoadFolder supersedes the results of any scan still running.
func (c *Controller) LoadFolder(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		c.emit(ErrorEvent{Message: "Folder path is empty"})
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		c.emit(ErrorEvent{Message: fmt.Sprintf("Not a folder: %s", path)})
		return
	}

	id := c.requests.Next()
	c.folder = path
	c.scanning = true
	c.entries = nil
	c.filtered = nil
	c.cache.Clear()
	c.view.SetEntries(nil)
	c.emit(StatusEvent{Text: fmt.Sprintf("Scanning %s...", path)})

	if c.onFolderChanged != nil {
		c.onFolderChanged(path)
	}

	go c.runScan(id, path)
}

// Reload rescans the active folder, keeping the current filter. Used
// by the folder watcher and the manual refresh binding.
func (c *Controller) Reload() {
	if c.folder == "" {
		return
	}
	id := c.requests.Next()
	c.scanning = true
	c.emit(StatusEvent{Text: fmt.Sprintf("Reloading %s...", c.folder)})
	go c.runScan(id, c.folder)
}

func (c *Controller) runScan(id uint64, folder string) {
	progress := func(done, total int) {
		c.loop.Post(func() {
			if !c.requests.Current(id) {
				return
			}
			c.emit(ScanProgressEvent{Done: done, Total: total})
		})
	}

	entries, err := c.scanner.Scan(context.Background(), folder, progress)

	c.loop.Post(func() {
		if !c.requests.Current(id) {
			metrics.ScanSupersededTotal.Inc()
			logging.Debug("Scan %d superseded, dropping %d entries", id, len(entries))
			return
		}
		c.scanning = false
		if err != nil {
			c.emit(ErrorEvent{Message: fmt.Sprintf("Scan failed: %v", err)})
			c.emit(StatusEvent{Text: "Scan failed"})
			return
		}
		c.entries = entries
		c.applyCurrentFilter()
		c.emit(FolderLoadedEvent{Folder: folder, Count: len(entries)})
	})
}

// ApplyFilter filters the scanned entries and feeds the grid. The
// first match is selected so the prompt pane is never stale.
func (c *Controller) ApplyFilter(query string, mode index.Mode) {
	c.query = query
	c.mode = mode
	c.applyCurrentFilter()
}

// ResetSearch clears the filter, showing the full collection.
func (c *Controller) ResetSearch() {
	c.query = ""
	c.applyCurrentFilter()
}

func (c *Controller) applyCurrentFilter() {
	c.filtered = index.Filter(c.entries, c.query, c.mode)
	c.view.SetEntries(c.filtered)
	c.emit(FilterAppliedEvent{
		Query: strings.TrimSpace(c.query),
		Hits:  len(c.filtered),
		Total: len(c.entries),
	})
	if len(c.filtered) > 0 {
		c.view.SelectFirst()
	}
}

// Selection plumbing: the grid's callbacks land here.

// HandleSelect forwards a grid selection to the presentation layer.
func (c *Controller) HandleSelect(e index.Entry) {
	c.emit(SelectionEvent{Entry: e})
}

// HandleSelectionCleared forwards a dropped selection.
func (c *Controller) HandleSelectionCleared() {
	c.emit(SelectionEvent{Cleared: true})
}

// ExportPrompt writes the selected entry's prompt to a .txt file next
// to the image, replacing any existing file.
func (c *Controller) ExportPrompt() {
	path, ok := c.view.SelectedPath()
	if !ok {
		c.emit(ErrorEvent{Message: "Nothing selected"})
		return
	}
	entry, found := c.entryByPath(path)
	if !found {
		c.emit(ErrorEvent{Message: "Selected image is no longer in the folder"})
		return
	}

	target := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	if err := os.WriteFile(target, []byte(entry.Prompt), 0o644); err != nil {
		c.emit(ErrorEvent{Message: fmt.Sprintf("Export failed: %v", err)})
		return
	}
	logging.Debug("Exported prompt to %s", target)
	c.emit(ExportedEvent{Path: target})
	c.emit(StatusEvent{Text: fmt.Sprintf("Exported %s", filepath.Base(target))})
}

func (c *Controller) entryByPath(path string) (index.Entry, bool) {
	for _, e := range c.filtered {
		if e.Path == path {
			return e, true
		}
	}
	return index.Entry{}, false
}

// Settings operations

// SetDefaultFolder persists the startup folder.
func (c *Controller) SetDefaultFolder(folder string) {
	c.store.SetDefaultFolder(folder)
	c.emit(StatusEvent{Text: "Default folder saved"})
}

// AddPreset saves a folder preset.
func (c *Controller) AddPreset(folder string) {
	if c.store.AddPreset(folder) {
		c.emit(PresetsChangedEvent{Presets: c.store.Current().Presets})
		c.emit(StatusEvent{Text: "Preset added"})
	}
}

// RemovePreset deletes a folder preset.
func (c *Controller) RemovePreset(folder string) {
	if c.store.RemovePreset(folder) {
		c.emit(PresetsChangedEvent{Presets: c.store.Current().Presets})
		c.emit(StatusEvent{Text: "Preset removed"})
	}
}

// Presets returns the saved folder presets.
func (c *Controller) Presets() []string {
	return c.store.Current().Presets
}

// OpenPreset loads a preset folder.
func (c *Controller) OpenPreset(folder string) {
	c.LoadFolder(folder)
}

// Layout operations

// SetColumns updates the grid column count and persists it.
func (c *Controller) SetColumns(columns int) {
	if columns < 1 {
		columns = 1
	}
	c.view.SetColumns(columns)
	c.store.SetColumns(columns)
}

// SetThumbSize updates the thumbnail size and persists the clamped
// value.
func (c *Controller) SetThumbSize(px int) {
	c.view.SetThumbSize(px)
	c.store.SetThumbSize(c.view.ThumbSize())
}

// AdjustThumbSize steps the thumbnail size by the wheel increment:
// positive direction grows, negative shrinks.
func (c *Controller) AdjustThumbSize(direction int) {
	step := ThumbSizeStep
	if direction < 0 {
		step = -ThumbSizeStep
	}
	c.SetThumbSize(c.view.ThumbSize() + step)
}
