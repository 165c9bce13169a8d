package explorer

import "prompt-explorer/internal/index"

// Event is a state change the presentation layer renders. Events are
// always delivered on the run loop.
type Event interface{ isEvent() }

// StatusEvent updates the status line.
type StatusEvent struct {
	Text string
}

// ScanProgressEvent reports scan progress for the active folder.
type ScanProgressEvent struct {
	Done  int
	Total int
}

// FolderLoadedEvent fires when a scan completes and its results were
// accepted (not superseded).
type FolderLoadedEvent struct {
	Folder string
	Count  int
}

// FilterAppliedEvent reports the hit count after a filter run.
type FilterAppliedEvent struct {
	Query string
	Hits  int
	Total int
}

// SelectionEvent fires when the selected entry changes. Entry is the
// zero value when Cleared is true.
type SelectionEvent struct {
	Entry   index.Entry
	Cleared bool
}

// PresetsChangedEvent carries the preset list after a mutation.
type PresetsChangedEvent struct {
	Presets []string
}

// ErrorEvent requests a user-visible error dialog.
type ErrorEvent struct {
	Message string
}

// ExportedEvent fires after a prompt was written to its sidecar file.
type ExportedEvent struct {
	Path string
}

func (StatusEvent) isEvent()       {}
func (ScanProgressEvent) isEvent() {}
func (FolderLoadedEvent) isEvent() {}
func (FilterAppliedEvent) isEvent() {}
func (SelectionEvent) isEvent()      {}
func (PresetsChangedEvent) isEvent() {}
func (ErrorEvent) isEvent()        {}
func (ExportedEvent) isEvent()     {}
