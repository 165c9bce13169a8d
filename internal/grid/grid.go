package grid

import (
	"image"
	"time"

	"prompt-explorer/internal/index"
	"prompt-explorer/internal/logging"
	"prompt-explorer/internal/metrics"
	"prompt-explorer/internal/thumbs"
)

const (
	// MinThumbSize and MaxThumbSize bound the thumbnail pixel size.
	MinThumbSize = 48
	MaxThumbSize = 512

	// DefaultColumns and DefaultThumbSize match the initial layout.
	DefaultColumns   = 5
	DefaultThumbSize = 160

	// batchSize is how many slot records are staged per scheduling
	// tick when a new entry set arrives; batchDelay spaces the ticks
	// so user input interleaves with population.
	batchSize  = 24
	batchDelay = 30 * time.Millisecond

	// labelAllowance is the vertical room reserved under each
	// thumbnail for the file-name label, used when the surface has
	// not reported a measured row height yet.
	labelAllowance = 40

	// minMargin is the smallest pre-warm margin above and below the
	// viewport, in pixels.
	minMargin = 128
)

// Scheduler posts work onto the interactive loop. *runloop.Loop
// satisfies it; tests substitute a manual implementation.
type Scheduler interface {
	Post(fn func())
	PostDelayed(d time.Duration, fn func())
}

// Surface is the narrow interface the presentation layer provides.
// The grid never talks to a widget toolkit directly.
type Surface interface {
	// Invalidate requests a repaint after grid state changed.
	Invalidate()

	// MeasureRowHeight reports the true pixel height of one realized
	// row at the given thumbnail size, or 0 when the surface is not
	// realized yet (the grid falls back to computed geometry and
	// retries on the next pass).
	MeasureRowHeight(thumbSize int) int
}

// Slot is one presentation slot: a viewport position currently bound to
// an entry. Slots exist only for the realized window, never one per
// entry.
type Slot struct {
	Index    int // entry index in the filtered collection
	Entry    index.Entry
	Thumb    image.Image
	Selected bool
}

// View is the virtualized grid state machine. It owns the filtered
// entry collection reference, layout parameters, scroll state, and the
// bounded slot pool. All methods must be called on the interactive
// loop.
type View struct {
	cache     *thumbs.Cache
	scheduler Scheduler
	surface   Surface

	// onSelect fires when the user selects an entry; onClear fires
	// when a new entry set drops the previous selection.
	onSelect func(index.Entry)
	onClear  func()

	entries   []index.Entry
	columns   int
	thumbSize int

	scrollOffset   int
	viewportHeight int

	// populated counts how many entries have slot records staged so
	// far; it trails len(entries) while batch construction runs.
	populated  int
	generation uint64 // invalidates in-flight batch ticks

	measuredRowHeight int

	selectedIndex int // -1 = none
	selectedPath  string

	// window is the realized slot pool: slots[i] presents entry
	// windowStart+i.
	windowStart int
	slots       []Slot

	visibilityPending bool
}

// Config collects the collaborators a View needs.
type Config struct {
	Cache     *thumbs.Cache
	Scheduler Scheduler
	Surface   Surface
	OnSelect  func(index.Entry)
	OnClear   func()

	Columns   int
	ThumbSize int
}

// New builds an empty grid view.
func New(cfg Config) *View {
	columns := cfg.Columns
	if columns < 1 {
		columns = DefaultColumns
	}
	thumbSize := clampThumbSize(cfg.ThumbSize)

	return &View{
		cache:         cfg.Cache,
		scheduler:     cfg.Scheduler,
		surface:       cfg.Surface,
		onSelect:      cfg.OnSelect,
		onClear:       cfg.OnClear,
		columns:       columns,
		thumbSize:     thumbSize,
		selectedIndex: -1,
	}
}

func clampThumbSize(px int) int {
	if px < MinThumbSize {
		if px == 0 {
			return DefaultThumbSize
		}
		return MinThumbSize
	}
	if px > MaxThumbSize {
		return MaxThumbSize
	}
	return px
}

// Geometry

// Position returns the (row, column) of entry index i under the
// current column count, row-major.
func (v *View) Position(i int) (row, col int) {
	return i / v.columns, i % v.columns
}

// Rows returns the total row count for the current entry collection.
func (v *View) Rows() int {
	if len(v.entries) == 0 {
		return 0
	}
	return (len(v.entries) + v.columns - 1) / v.columns
}

// Columns returns the current column count.
func (v *View) Columns() int { return v.columns }

// ThumbSize returns the current thumbnail pixel size.
func (v *View) ThumbSize() int { return v.thumbSize }

// Len returns the size of the current entry collection.
func (v *View) Len() int { return len(v.entries) }

// ScrollOffset returns the current scroll position in pixels.
func (v *View) ScrollOffset() int { return v.scrollOffset }

// RowHeight returns the effective row height: the surface-measured
// value when available, otherwise thumbnail size plus label allowance.
func (v *View) RowHeight() int {
	if v.measuredRowHeight > 0 {
		return v.measuredRowHeight
	}
	return v.thumbSize + labelAllowance
}

// ContentHeight returns the total pixel height of all rows.
func (v *View) ContentHeight() int {
	return v.Rows() * v.RowHeight()
}

// Entry collection

// SetEntries replaces the displayed collection. Slot records are staged
// in batches on the scheduler so large result sets never stall the
// interactive loop. Any previous selection is cleared (a new filtered
// set never auto-restores selection, even when the same entry is still
// present).
func (v *View) SetEntries(entries []index.Entry) {
	v.releaseWindow()
	v.entries = entries
	v.populated = 0
	v.generation++
	v.scrollOffset = 0
	v.clearSelection()

	if len(entries) == 0 {
		v.invalidate()
		return
	}
	v.buildNextBatch(v.generation)
}

func (v *View) buildNextBatch(gen uint64) {
	if gen != v.generation {
		return // superseded by a newer SetEntries
	}
	remaining := len(v.entries) - v.populated
	if remaining <= 0 {
		v.scheduleVisibilityUpdate()
		return
	}
	if remaining > batchSize {
		remaining = batchSize
	}
	v.populated += remaining
	v.scheduleVisibilityUpdate()

	if v.populated < len(v.entries) {
		v.scheduler.PostDelayed(batchDelay, func() { v.buildNextBatch(gen) })
	} else {
		logging.Debug("Grid: populated %d entries", v.populated)
	}
}

// Layout parameters

// SetColumns changes the column count (minimum 1). Slot positions are
// recomputed; thumbnails already realized stay valid because the
// thumbnail size did not change.
func (v *View) SetColumns(columns int) {
	if columns < 1 {
		columns = 1
	}
	if columns == v.columns {
		return
	}
	v.columns = columns
	v.clampScroll()
	v.scheduleVisibilityUpdate()
}

// SetThumbSize changes the thumbnail pixel size, clamped to
// [MinThumbSize, MaxThumbSize]. Every cached render is keyed by size,
// so the cache is cleared, the measured row height is forgotten, and
// the realized window is rebuilt at the new size.
func (v *View) SetThumbSize(px int) {
	px = clampThumbSize(px)
	if px == v.thumbSize {
		return
	}
	v.thumbSize = px
	if v.cache != nil {
		v.cache.Clear()
	}
	v.measuredRowHeight = 0
	v.releaseWindow()
	v.clampScroll()
	v.scheduleVisibilityUpdate()
}

// Viewport and scrolling

// SetViewport reports the viewport height in pixels. Zero is accepted
// and simply defers visibility work until the surface is realized.
func (v *View) SetViewport(heightPx int) {
	if heightPx == v.viewportHeight {
		return
	}
	v.viewportHeight = heightPx
	v.clampScroll()
	v.scheduleVisibilityUpdate()
}

// ScrollTo sets the absolute scroll offset, clamped to the content.
func (v *View) ScrollTo(offsetPx int) {
	v.scrollOffset = offsetPx
	v.clampScroll()
	v.scheduleVisibilityUpdate()
}

// ScrollBy adjusts the scroll offset by a delta, clamped to content.
func (v *View) ScrollBy(deltaPx int) {
	v.ScrollTo(v.scrollOffset + deltaPx)
}

func (v *View) clampScroll() {
	max := v.ContentHeight() - v.viewportHeight
	if max < 0 {
		max = 0
	}
	if v.scrollOffset > max {
		v.scrollOffset = max
	}
	if v.scrollOffset < 0 {
		v.scrollOffset = 0
	}
}

// Selection

// Select marks the entry at index i as selected, updates the realized
// slots' selected flags, and notifies the controller. Out-of-range
// indices are ignored.
func (v *View) Select(i int) {
	if i < 0 || i >= len(v.entries) {
		return
	}
	v.selectedIndex = i
	v.selectedPath = v.entries[i].Path
	for s := range v.slots {
		v.slots[s].Selected = v.windowStart+s == i
	}
	v.invalidate()
	if v.onSelect != nil {
		v.onSelect(v.entries[i])
	}
}

// SelectFirst selects the first entry of the current collection, if
// any.
func (v *View) SelectFirst() {
	if len(v.entries) > 0 {
		v.Select(0)
	}
}

// SelectedIndex returns the selected entry index, or -1.
func (v *View) SelectedIndex() int { return v.selectedIndex }

// SelectedPath returns the selected entry path and whether a selection
// exists.
func (v *View) SelectedPath() (string, bool) {
	if v.selectedIndex < 0 {
		return "", false
	}
	return v.selectedPath, true
}

func (v *View) clearSelection() {
	hadSelection := v.selectedIndex >= 0
	v.selectedIndex = -1
	v.selectedPath = ""
	if hadSelection && v.onClear != nil {
		v.onClear()
	}
}

// Visibility / virtualization

// scheduleVisibilityUpdate coalesces triggers into at most one pending
// pass on the scheduler.
func (v *View) scheduleVisibilityUpdate() {
	if v.visibilityPending || v.scheduler == nil {
		return
	}
	v.visibilityPending = true
	v.scheduler.Post(func() {
		v.visibilityPending = false
		v.updateVisibleSlots()
	})
}

// updateVisibleSlots recomputes the realized window from the scroll
// offset and viewport, releasing thumbnails that fell outside it and
// realizing the ones that entered it.
func (v *View) updateVisibleSlots() {
	if v.viewportHeight <= 0 {
		// Surface not realized yet; retry on the next layout pass.
		return
	}
	if v.populated == 0 {
		v.releaseWindow()
		v.invalidate()
		return
	}

	if v.measuredRowHeight == 0 && v.surface != nil {
		if h := v.surface.MeasureRowHeight(v.thumbSize); h > 0 {
			v.measuredRowHeight = h
		}
	}

	margin := v.thumbSize
	if margin < minMargin {
		margin = minMargin
	}
	rh := v.RowHeight()

	top := v.scrollOffset - margin
	if top < 0 {
		top = 0
	}
	bottom := v.scrollOffset + v.viewportHeight + margin

	startRow := top / rh
	endRow := bottom / rh // inclusive

	start := startRow * v.columns
	end := (endRow + 1) * v.columns
	if end > v.populated {
		end = v.populated
	}
	if start >= end {
		v.releaseWindow()
		v.invalidate()
		return
	}

	v.rebindWindow(start, end)
	v.invalidate()
}

// rebindWindow moves the slot pool to cover entries [start, end),
// carrying over thumbnails for entries present in both the old and new
// windows and releasing the rest.
func (v *View) rebindWindow(start, end int) {
	oldStart := v.windowStart
	oldSlots := v.slots

	newSlots := make([]Slot, end-start)
	for i := range newSlots {
		idx := start + i
		newSlots[i] = Slot{
			Index:    idx,
			Entry:    v.entries[idx],
			Selected: idx == v.selectedIndex,
		}
		// Reuse the realized thumbnail when the entry stayed in
		// the window.
		if old := idx - oldStart; old >= 0 && old < len(oldSlots) && oldSlots[old].Thumb != nil {
			newSlots[i].Thumb = oldSlots[old].Thumb
			oldSlots[old].Thumb = nil
		}
	}

	// Whatever still holds a thumbnail fell outside the new window.
	for i := range oldSlots {
		if oldSlots[i].Thumb != nil {
			oldSlots[i].Thumb = nil
			metrics.GridSlotReleases.Inc()
		}
	}

	// Realize the slots that need a thumbnail.
	for i := range newSlots {
		if newSlots[i].Thumb == nil && v.cache != nil {
			newSlots[i].Thumb = v.cache.Get(newSlots[i].Entry.Path, v.thumbSize)
			metrics.GridSlotBinds.Inc()
		}
	}

	v.windowStart = start
	v.slots = newSlots
	metrics.GridRealizedSlots.Set(float64(len(newSlots)))
}

// releaseWindow drops every realized slot.
func (v *View) releaseWindow() {
	for i := range v.slots {
		if v.slots[i].Thumb != nil {
			metrics.GridSlotReleases.Inc()
		}
	}
	v.windowStart = 0
	v.slots = nil
	metrics.GridRealizedSlots.Set(0)
}

// RealizedRange returns the entry index range [start, end) currently
// backed by slots.
func (v *View) RealizedRange() (start, end int) {
	return v.windowStart, v.windowStart + len(v.slots)
}

// SlotFor returns the slot bound to entry index i, if i is inside the
// realized window.
func (v *View) SlotFor(i int) (Slot, bool) {
	pos := i - v.windowStart
	if pos < 0 || pos >= len(v.slots) {
		return Slot{}, false
	}
	return v.slots[pos], true
}

// EntryAt returns the entry at index i, if in range. The presentation
// layer uses it for rows inside the viewport whose slots are still
// being staged.
func (v *View) EntryAt(i int) (index.Entry, bool) {
	if i < 0 || i >= len(v.entries) {
		return index.Entry{}, false
	}
	return v.entries[i], true
}

func (v *View) invalidate() {
	if v.surface != nil {
		v.surface.Invalidate()
	}
}
