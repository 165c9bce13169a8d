package ui

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt-explorer/internal/explorer"
	"prompt-explorer/internal/grid"
	"prompt-explorer/internal/index"
	"prompt-explorer/internal/runloop"
	"prompt-explorer/internal/settings"
	"prompt-explorer/internal/thumbs"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()

	loop := runloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cache := thumbs.NewCache(thumbs.DefaultCapacity)
	cache.SetDecodeFunc(func(path string, size int) (image.Image, error) {
		return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
	})

	msgs := make(chan tea.Msg, 256)
	store := settings.Load(filepath.Join(t.TempDir(), "settings.json"))

	var ctrl *explorer.Controller
	view := grid.New(grid.Config{
		Cache:     cache,
		Scheduler: loop,
		Surface:   NewSurface(msgs),
		OnSelect:  func(e index.Entry) { ctrl.HandleSelect(e) },
		OnClear:   func() { ctrl.HandleSelectionCleared() },
	})
	ctrl = explorer.New(explorer.Config{
		Loop:    loop,
		Scanner: index.NewScanner(nil),
		Cache:   cache,
		View:    view,
		Store:   store,
		Emit:    Emit(msgs),
	})

	return NewModel(Config{
		Loop:     loop,
		Ctrl:     ctrl,
		View:     view,
		Msgs:     msgs,
		Settings: store.Current(),
	})
}

// sync waits for everything queued on the run loop to finish.
func syncLoop(t *testing.T, m *Model) {
	t.Helper()
	done := make(chan struct{})
	m.loop.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run loop stalled")
	}
}

func TestHandleEventUpdatesFields(t *testing.T) {
	m := newTestModel(t)

	m.handleEvent(explorer.StatusEvent{Text: "Scanning..."})
	assert.Equal(t, "Scanning...", m.status)

	m.handleEvent(explorer.FilterAppliedEvent{Hits: 2, Total: 5})
	assert.Equal(t, 2, m.hits)
	assert.Equal(t, 5, m.total)

	m.handleEvent(explorer.SelectionEvent{Entry: index.NewEntry("/pics/a.png", "red cat")})
	assert.Equal(t, "a.png", m.selected)
	assert.Equal(t, "red cat", m.promptText)

	m.handleEvent(explorer.SelectionEvent{Cleared: true})
	assert.Empty(t, m.selected)
	assert.Empty(t, m.promptText)

	m.handleEvent(explorer.PresetsChangedEvent{Presets: []string{"/a", "/b"}})
	assert.Len(t, m.presets, 2)
}

func TestErrorDialogShownAndDismissed(t *testing.T) {
	m := newTestModel(t)
	m.width = 100
	m.height = 40

	m.handleEvent(explorer.ErrorEvent{Message: "Not a folder: /nope"})
	assert.Contains(t, m.View(), "Not a folder: /nope")

	// Any key dismisses the dialog.
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m = updated.(*Model)
	assert.NotContains(t, m.View(), "Not a folder")
}

func TestCycleFocus(t *testing.T) {
	m := newTestModel(t)
	require.Equal(t, focusFolder, m.focus)

	m.cycleFocus(1)
	assert.Equal(t, focusSearch, m.focus)
	assert.True(t, m.searchInput.Focused())

	m.cycleFocus(1)
	assert.Equal(t, focusGrid, m.focus)

	m.cycleFocus(1)
	assert.Equal(t, focusFolder, m.focus)
	assert.True(t, m.folderInput.Focused())

	m.cycleFocus(-1)
	assert.Equal(t, focusGrid, m.focus)
}

func TestToggleModeFlips(t *testing.T) {
	m := newTestModel(t)
	require.Equal(t, index.ModeTokensAnd, m.mode)

	m.toggleMode()
	assert.Equal(t, index.ModeExact, m.mode)
	m.toggleMode()
	assert.Equal(t, index.ModeTokensAnd, m.mode)
	syncLoop(t, m)
}

func TestSnapshotCoversVisibleRows(t *testing.T) {
	m := newTestModel(t)
	m.height = 60

	entries := make([]index.Entry, 30)
	for i := range entries {
		entries[i] = index.NewEntry(fmt.Sprintf("/pics/img-%02d.png", i), "prompt")
	}

	var snap gridSnapshot
	m.loop.Post(func() {
		m.applyViewport()
		m.view.SetEntries(entries)
	})
	syncLoop(t, m)
	m.loop.Post(func() { snap = m.buildSnapshot() })
	syncLoop(t, m)

	require.NotEmpty(t, snap.rows)
	assert.Equal(t, 0, snap.firstRow)
	assert.Equal(t, grid.DefaultColumns, snap.columns)
	assert.Equal(t, 6, snap.totalRow)
	assert.Len(t, snap.rows[0], grid.DefaultColumns)
}

func TestLiveSearchAppliesFinalQueryOfBurst(t *testing.T) {
	m := newTestModel(t)
	m.cycleFocus(1)
	require.Equal(t, focusSearch, m.focus)

	for _, r := range "cat" {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(*Model)
	}
	// Two passes: each keystroke task may queue the debounced run
	// behind the first sync marker.
	syncLoop(t, m)
	syncLoop(t, m)

	// However the keystrokes and debounced runs interleaved, the last
	// filter applied must be for the full input, not a stale prefix.
	var applied []string
	for drained := false; !drained; {
		select {
		case msg := <-m.msgs:
			if ev, ok := msg.(eventMsg); ok {
				if fe, ok := ev.event.(explorer.FilterAppliedEvent); ok {
					applied = append(applied, fe.Query)
				}
			}
		default:
			drained = true
		}
	}
	require.NotEmpty(t, applied, "no filter ran after typing")
	assert.Equal(t, "cat", applied[len(applied)-1])
}

func TestRefreshUnblocksWhenLoopStopped(t *testing.T) {
	loop := runloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()
	cancel()
	<-done

	m := &Model{loop: loop}
	result := make(chan tea.Msg, 1)
	go func() { result <- m.refresh()() }()

	select {
	case msg := <-result:
		assert.Nil(t, msg)
	case <-time.After(3 * time.Second):
		t.Fatal("refresh blocked after the loop stopped")
	}
}

func TestEmitUnblocksWithoutReceiver(t *testing.T) {
	msgs := make(chan tea.Msg)
	emit := Emit(msgs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		emit(explorer.StatusEvent{Text: "late"})
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Emit blocked with no receiver")
	}
}

func TestMosaicDimensions(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	out := renderMosaic(img, 8, 4)

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 4)
	for _, line := range lines {
		assert.Equal(t, 8, strings.Count(line, "▀"))
		assert.Contains(t, line, "\x1b[38;2;")
		assert.True(t, strings.HasSuffix(line, "\x1b[0m"))
	}
}

func TestMosaicSizeMapping(t *testing.T) {
	assert.Equal(t, 20, mosaicCols(160))
	assert.Equal(t, 10, mosaicRows(160))

	// Tiny sizes stay renderable.
	assert.Equal(t, 4, mosaicCols(8))
	assert.Equal(t, 2, mosaicRows(8))
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "short.png", truncateName("short.png", 20))
	assert.Equal(t, "a-very-lon…", truncateName("a-very-long-file-name.png", 11))
}

func TestViewRendersChrome(t *testing.T) {
	m := newTestModel(t)
	m.width = 100
	m.height = 40
	m.hits = 3
	m.total = 7
	m.status = "Loaded"

	out := m.View()
	assert.Contains(t, out, "3/7")
	assert.Contains(t, out, "Loaded")
	assert.Contains(t, out, "mode:")
	assert.Contains(t, out, "(no images)")
}
