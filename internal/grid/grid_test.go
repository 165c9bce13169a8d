package grid

import (
	"fmt"
	"image"
	"testing"
	"time"

	"prompt-explorer/internal/index"
	"prompt-explorer/internal/thumbs"
)

// manualScheduler records posted work so tests control exactly when the
// grid's deferred passes run.
type manualScheduler struct {
	immediate []func()
	delayed   []func()
}

func (s *manualScheduler) Post(fn func()) {
	s.immediate = append(s.immediate, fn)
}

func (s *manualScheduler) PostDelayed(_ time.Duration, fn func()) {
	s.delayed = append(s.delayed, fn)
}

// pump runs all queued work, including work queued by the work itself,
// until the queues drain.
func (s *manualScheduler) pump() {
	for len(s.immediate) > 0 || len(s.delayed) > 0 {
		batch := s.immediate
		s.immediate = nil
		for _, fn := range batch {
			fn()
		}
		batch = s.delayed
		s.delayed = nil
		for _, fn := range batch {
			fn()
		}
	}
}

// pumpImmediate runs only already-posted immediate work, leaving
// delayed ticks queued.
func (s *manualScheduler) pumpImmediate() {
	for len(s.immediate) > 0 {
		batch := s.immediate
		s.immediate = nil
		for _, fn := range batch {
			fn()
		}
	}
}

type fakeSurface struct {
	invalidations int
	rowHeight     int
}

func (s *fakeSurface) Invalidate() { s.invalidations++ }

func (s *fakeSurface) MeasureRowHeight(int) int { return s.rowHeight }

func testEntries(n int) []index.Entry {
	entries := make([]index.Entry, n)
	for i := range entries {
		entries[i] = index.NewEntry(fmt.Sprintf("/pics/img-%03d.png", i), "prompt")
	}
	return entries
}

func testCache(t *testing.T) *thumbs.Cache {
	t.Helper()
	cache := thumbs.NewCache(thumbs.DefaultCapacity)
	cache.SetDecodeFunc(func(path string, size int) (image.Image, error) {
		return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
	})
	return cache
}

func newTestView(t *testing.T) (*View, *manualScheduler, *fakeSurface) {
	t.Helper()
	sched := &manualScheduler{}
	surface := &fakeSurface{}
	view := New(Config{
		Cache:     testCache(t),
		Scheduler: sched,
		Surface:   surface,
		Columns:   DefaultColumns,
		ThumbSize: DefaultThumbSize,
	})
	return view, sched, surface
}

func TestGeometry(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetEntries(testEntries(23))
	sched.pump()

	row, col := view.Position(12)
	if row != 2 || col != 2 {
		t.Errorf("Position(12) = (%d, %d); want (2, 2)", row, col)
	}
	if rows := view.Rows(); rows != 5 {
		t.Errorf("Rows() = %d; want 5", rows)
	}
}

func TestRowsEmpty(t *testing.T) {
	view, _, _ := newTestView(t)
	if rows := view.Rows(); rows != 0 {
		t.Errorf("Rows() on empty collection = %d; want 0", rows)
	}
}

func TestVirtualizationBoundsWindow(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(1000))
	sched.pump()

	start, end := view.RealizedRange()
	if start != 0 {
		t.Errorf("window start = %d; want 0", start)
	}
	realized := end - start
	if realized == 0 {
		t.Fatal("no slots realized")
	}
	// Viewport 600px plus 160px margins covers at most ~5 rows of
	// 200px plus one partial row each side; anywhere near the full
	// collection means virtualization is broken.
	if realized > 50 {
		t.Errorf("realized %d slots for a 600px viewport; expected a bounded window", realized)
	}
}

func TestScrollReleasesAndRealizes(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(1000))
	sched.pump()

	// Scroll deep into the collection: row height is 200, so offset
	// 20000 lands at row 100.
	view.ScrollTo(20000)
	sched.pump()

	start, end := view.RealizedRange()
	if start == 0 {
		t.Error("window start still 0 after scrolling to row 100")
	}
	margin := view.ThumbSize()
	if margin < minMargin {
		margin = minMargin
	}
	wantRow := (20000 - margin) / view.RowHeight()
	wantStart := wantRow * view.Columns()
	if start != wantStart {
		t.Errorf("window start = %d; want %d", start, wantStart)
	}
	if _, ok := view.SlotFor(0); ok {
		t.Error("entry 0 still realized after scrolling far away")
	}
	if _, ok := view.SlotFor(start); !ok {
		t.Error("first window entry not realized")
	}
	if end <= start {
		t.Errorf("empty window [%d, %d) after scroll", start, end)
	}
}

func TestSlotsCarryOverAcrossSmallScrolls(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(200))
	sched.pump()

	before, ok := view.SlotFor(10)
	if !ok || before.Thumb == nil {
		t.Fatal("entry 10 not realized before scroll")
	}

	view.ScrollBy(100) // less than one row, window overlaps heavily
	sched.pump()

	after, ok := view.SlotFor(10)
	if !ok {
		t.Fatal("entry 10 fell out of the window after a 100px scroll")
	}
	if after.Thumb != before.Thumb {
		t.Error("overlapping slot re-realized instead of carried over")
	}
}

func TestBatchPopulation(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(100))

	// First batch is staged synchronously; the rest waits on delayed
	// ticks.
	sched.pumpImmediate()
	if view.populated != batchSize {
		t.Errorf("populated after first batch = %d; want %d", view.populated, batchSize)
	}
	if len(sched.delayed) == 0 {
		t.Fatal("no follow-up batch scheduled")
	}

	sched.pump()
	if view.populated != 100 {
		t.Errorf("populated after pump = %d; want 100", view.populated)
	}
}

func TestBatchPopulationSuperseded(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(100))
	sched.pumpImmediate()

	// Replace the collection while batches are still pending. The
	// stale ticks must not touch the new collection's progress.
	view.SetEntries(testEntries(10))
	sched.pump()

	if view.populated != 10 {
		t.Errorf("populated = %d; want 10", view.populated)
	}
	if view.Len() != 10 {
		t.Errorf("Len() = %d; want 10", view.Len())
	}
}

func TestSetEntriesClearsSelection(t *testing.T) {
	var cleared int
	var selected []string
	sched := &manualScheduler{}
	view := New(Config{
		Cache:     testCache(t),
		Scheduler: sched,
		Surface:   &fakeSurface{},
		OnSelect:  func(e index.Entry) { selected = append(selected, e.Path) },
		OnClear:   func() { cleared++ },
	})
	view.SetViewport(600)
	view.SetEntries(testEntries(20))
	sched.pump()

	view.Select(3)
	if got, ok := view.SelectedPath(); !ok || got != "/pics/img-003.png" {
		t.Fatalf("SelectedPath() = %q, %v", got, ok)
	}
	if len(selected) != 1 {
		t.Fatalf("OnSelect fired %d times; want 1", len(selected))
	}

	// Same entries again: selection is dropped, never restored.
	view.SetEntries(testEntries(20))
	sched.pump()
	if cleared != 1 {
		t.Errorf("OnClear fired %d times; want 1", cleared)
	}
	if view.SelectedIndex() != -1 {
		t.Errorf("SelectedIndex() = %d after SetEntries; want -1", view.SelectedIndex())
	}
}

func TestSelectFlagsRealizedSlot(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(20))
	sched.pump()

	view.Select(4)
	slot, ok := view.SlotFor(4)
	if !ok {
		t.Fatal("entry 4 not realized")
	}
	if !slot.Selected {
		t.Error("slot 4 not flagged selected")
	}
	if other, ok := view.SlotFor(3); ok && other.Selected {
		t.Error("slot 3 flagged selected")
	}
}

func TestSelectOutOfRangeIgnored(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetEntries(testEntries(5))
	sched.pump()

	view.Select(99)
	view.Select(-1)
	if view.SelectedIndex() != -1 {
		t.Errorf("SelectedIndex() = %d; want -1", view.SelectedIndex())
	}
}

func TestSetColumnsPreservesSelection(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(30))
	sched.pump()
	view.Select(7)

	view.SetColumns(3)
	sched.pump()

	if view.SelectedIndex() != 7 {
		t.Errorf("SelectedIndex() = %d after column change; want 7", view.SelectedIndex())
	}
	row, col := view.Position(7)
	if row != 2 || col != 1 {
		t.Errorf("Position(7) under 3 columns = (%d, %d); want (2, 1)", row, col)
	}
}

func TestSetThumbSizeClampsAndClearsCache(t *testing.T) {
	view, sched, _ := newTestView(t)
	cache := view.cache
	view.SetViewport(600)
	view.SetEntries(testEntries(20))
	sched.pump()

	if cache.Len() == 0 {
		t.Fatal("no thumbnails cached after initial realization")
	}

	view.SetThumbSize(MaxThumbSize + 100)
	if view.ThumbSize() != MaxThumbSize {
		t.Errorf("ThumbSize() = %d; want clamp to %d", view.ThumbSize(), MaxThumbSize)
	}
	sched.pump()

	// The window re-realized at the new size; no stale-size entries
	// may remain.
	for _, size := range []int{DefaultThumbSize} {
		if cache.Contains("/pics/img-000.png", size) {
			t.Errorf("cache still holds size %d after size change", size)
		}
	}

	view.SetThumbSize(1)
	if view.ThumbSize() != MinThumbSize {
		t.Errorf("ThumbSize() = %d; want clamp to %d", view.ThumbSize(), MinThumbSize)
	}
}

func TestSetThumbSizeSameValueNoop(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(10))
	sched.pump()
	cache := view.cache
	before := cache.Len()

	view.SetThumbSize(view.ThumbSize())
	sched.pump()
	if cache.Len() != before {
		t.Error("cache cleared on a no-op size change")
	}
}

func TestZeroViewportDefersRealization(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetEntries(testEntries(50))
	sched.pump()

	if start, end := view.RealizedRange(); end != start {
		t.Errorf("realized [%d, %d) with zero viewport; want empty", start, end)
	}

	view.SetViewport(600)
	sched.pump()
	if start, end := view.RealizedRange(); end == start {
		t.Error("nothing realized after viewport became available")
	}
}

func TestMeasuredRowHeightPreferred(t *testing.T) {
	view, sched, surface := newTestView(t)
	surface.rowHeight = 250
	view.SetViewport(600)
	view.SetEntries(testEntries(10))
	sched.pump()

	if got := view.RowHeight(); got != 250 {
		t.Errorf("RowHeight() = %d; want measured 250", got)
	}

	// A size change forgets the measurement until remeasured.
	surface.rowHeight = 0
	view.SetThumbSize(DefaultThumbSize + 16)
	sched.pump()
	want := view.ThumbSize() + labelAllowance
	if got := view.RowHeight(); got != want {
		t.Errorf("RowHeight() after size change = %d; want computed %d", got, want)
	}
}

func TestScrollClampedToContent(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(10)) // 2 rows, 400px content
	sched.pump()

	view.ScrollTo(100000)
	if view.ScrollOffset() != 0 {
		// Content shorter than the viewport clamps to 0.
		t.Errorf("ScrollOffset() = %d; want 0", view.ScrollOffset())
	}

	view.ScrollBy(-500)
	if view.ScrollOffset() != 0 {
		t.Errorf("ScrollOffset() = %d after negative scroll; want 0", view.ScrollOffset())
	}
}

func TestVisibilityUpdatesCoalesce(t *testing.T) {
	view, sched, _ := newTestView(t)
	view.SetViewport(600)
	view.SetEntries(testEntries(200))
	sched.pump()

	view.ScrollBy(10)
	view.ScrollBy(10)
	view.ScrollBy(10)
	if len(sched.immediate) != 1 {
		t.Errorf("%d visibility passes queued; want 1", len(sched.immediate))
	}
	sched.pump()
}
