package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"prompt-explorer/internal/explorer"
	"prompt-explorer/internal/grid"
	"prompt-explorer/internal/index"
	"prompt-explorer/internal/logging"
	"prompt-explorer/internal/runloop"
	"prompt-explorer/internal/settings"
)

// focusArea identifies which widget receives keystrokes.
type focusArea int

const (
	focusFolder focusArea = iota
	focusSearch
	focusGrid
)

// Messages flowing through the notification channel.
type (
	// redrawMsg asks for a fresh grid snapshot.
	redrawMsg struct{}

	// eventMsg wraps a controller event.
	eventMsg struct{ event explorer.Event }
)

// slotCell is one rendered grid cell.
type slotCell struct {
	name     string
	mosaic   string
	selected bool
	blank    bool
}

// gridSnapshot is an immutable render of the visible grid region,
// built on the run loop and handed to the tea goroutine.
type gridSnapshot struct {
	rows     [][]slotCell
	firstRow int
	lastRow  int
	totalRow int
	columns  int
	cols     int // mosaic cells per thumbnail
	cellRows int // mosaic text rows per thumbnail
}

// NewSurface adapts the notification channel into the grid's Surface.
// Invalidations coalesce; a dropped notification is fine because a
// newer one is already queued.
func NewSurface(msgs chan<- tea.Msg) grid.Surface {
	return notifySurface{msgs: msgs}
}

type notifySurface struct{ msgs chan<- tea.Msg }

func (s notifySurface) Invalidate() {
	select {
	case s.msgs <- redrawMsg{}:
	default:
	}
}

func (s notifySurface) MeasureRowHeight(int) int { return 0 }

// Emit adapts the notification channel into the controller's event
// sink. The send is bounded so a receiver that has already exited
// during shutdown cannot wedge the run loop.
func Emit(msgs chan<- tea.Msg) func(explorer.Event) {
	return func(e explorer.Event) {
		select {
		case msgs <- eventMsg{event: e}:
		case <-time.After(time.Second):
			logging.Debug("ui: event dropped, receiver gone")
		}
	}
}

// Config wires the model to the application core.
type Config struct {
	Loop     *runloop.Loop
	Ctrl     *explorer.Controller
	View     *grid.View
	Msgs     chan tea.Msg
	Settings settings.Settings
}

// Model is the bubbletea application model. Controller and grid calls
// are posted onto the run loop; the model's own fields are only
// touched on the tea goroutine, except loopState which only run-loop
// closures use.
type Model struct {
	loop *runloop.Loop
	ctrl *explorer.Controller
	view *grid.View
	msgs chan tea.Msg

	folderInput textinput.Model
	searchInput textinput.Model
	mode        index.Mode
	focus       focusArea

	width  int
	height int

	status     string
	errText    string
	hits       int
	total      int
	scanning   bool
	scanDone   int
	scanTotal  int
	promptText string
	selected   string
	presets    []string
	presetIdx  int

	snap gridSnapshot

	// filterDebounce coalesces search keystrokes into one filter run
	// on the loop.
	filterDebounce *runloop.Debouncer

	// loopState is touched only inside closures running on the run
	// loop.
	loopState struct {
		viewportPx   int
		mosaicCache  map[string]string
		pendingQuery string
		pendingMode  index.Mode
	}
}

// NewModel builds the application model.
func NewModel(cfg Config) *Model {
	folder := textinput.New()
	folder.Placeholder = "Folder path..."
	folder.CharLimit = 512
	folder.Width = 48
	folder.SetValue(cfg.Settings.DefaultFolder)
	folder.Focus()

	search := textinput.New()
	search.Placeholder = "Search prompts..."
	search.CharLimit = 200
	search.Width = 40

	m := &Model{
		loop:        cfg.Loop,
		ctrl:        cfg.Ctrl,
		view:        cfg.View,
		msgs:        cfg.Msgs,
		folderInput: folder,
		searchInput: search,
		mode:        index.ModeTokensAnd,
		focus:       focusFolder,
		status:      "Open a folder to begin",
		presets:     cfg.Settings.Presets,
	}
	m.loopState.mosaicCache = make(map[string]string)
	m.loopState.pendingMode = m.mode
	m.filterDebounce = runloop.NewDebouncer(cfg.Loop, func() {
		m.ctrl.ApplyFilter(m.loopState.pendingQuery, m.loopState.pendingMode)
	})
	return m
}

// Init starts the event listener and, when a default folder is
// configured, loads it.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.listen()}
	if folder := m.folderInput.Value(); folder != "" {
		m.post(func() { m.ctrl.LoadFolder(folder) })
	}
	return tea.Batch(cmds...)
}

// listen returns the next notification as a message.
func (m *Model) listen() tea.Cmd {
	return func() tea.Msg { return <-m.msgs }
}

// post runs fn on the run loop without waiting.
func (m *Model) post(fn func()) {
	m.loop.Post(fn)
}

// refresh builds a grid snapshot on the run loop. A stopped loop drops
// the task, so the wait is bounded.
func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		var snap gridSnapshot
		done := make(chan struct{})
		m.loop.Post(func() {
			snap = m.buildSnapshot()
			close(done)
		})
		select {
		case <-done:
			return snap
		case <-time.After(time.Second):
			return nil
		}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.post(func() { m.applyViewport() })
		return m, m.refresh()

	case redrawMsg:
		return m, tea.Batch(m.listen(), m.refresh())

	case eventMsg:
		m.handleEvent(msg.event)
		return m, tea.Batch(m.listen(), m.refresh())

	case gridSnapshot:
		m.snap = msg
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	return m, nil
}

// handleMouse implements wheel scrolling and the modifier+wheel size
// gesture.
func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if msg.Ctrl {
			m.post(func() {
				m.ctrl.AdjustThumbSize(1)
				m.loopState.mosaicCache = make(map[string]string)
				m.applyViewport()
			})
		} else {
			m.post(func() { m.view.ScrollBy(-m.view.RowHeight()) })
		}
	case tea.MouseButtonWheelDown:
		if msg.Ctrl {
			m.post(func() {
				m.ctrl.AdjustThumbSize(-1)
				m.loopState.mosaicCache = make(map[string]string)
				m.applyViewport()
			})
		} else {
			m.post(func() { m.view.ScrollBy(m.view.RowHeight()) })
		}
	}
	return m, nil
}

func (m *Model) handleEvent(e explorer.Event) {
	switch e := e.(type) {
	case explorer.StatusEvent:
		m.status = e.Text
	case explorer.ScanProgressEvent:
		m.scanning = true
		m.scanDone = e.Done
		m.scanTotal = e.Total
	case explorer.FolderLoadedEvent:
		m.scanning = false
		m.status = fmt.Sprintf("Loaded %d images from %s", e.Count, e.Folder)
	case explorer.FilterAppliedEvent:
		m.hits = e.Hits
		m.total = e.Total
	case explorer.SelectionEvent:
		if e.Cleared {
			m.selected = ""
			m.promptText = ""
		} else {
			m.selected = e.Entry.FileName()
			m.promptText = e.Entry.Prompt
		}
	case explorer.PresetsChangedEvent:
		m.presets = e.Presets
	case explorer.ErrorEvent:
		m.errText = e.Message
	case explorer.ExportedEvent:
		m.errText = ""
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// An error dialog swallows the next key.
	if m.errText != "" {
		m.errText = ""
		return m, nil
	}

	switch key {
	case "tab":
		m.cycleFocus(1)
		return m, nil
	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil
	}

	switch m.focus {
	case focusFolder:
		return m.handleFolderKey(msg)
	case focusSearch:
		return m.handleSearchKey(msg)
	default:
		return m.handleGridKey(key)
	}
}

func (m *Model) cycleFocus(dir int) {
	m.folderInput.Blur()
	m.searchInput.Blur()
	m.focus = focusArea((int(m.focus) + dir + 3) % 3)
	switch m.focus {
	case focusFolder:
		m.folderInput.Focus()
	case focusSearch:
		m.searchInput.Focus()
	}
}

func (m *Model) handleFolderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		folder := m.folderInput.Value()
		m.post(func() { m.ctrl.LoadFolder(folder) })
		m.focus = focusGrid
		m.folderInput.Blur()
		return m, nil
	case "ctrl+p":
		m.openNextPreset()
		return m, nil
	}
	var cmd tea.Cmd
	m.folderInput, cmd = m.folderInput.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := m.searchInput.Value()
		mode := m.mode
		m.post(func() { m.ctrl.ApplyFilter(query, mode) })
		return m, nil
	case "esc":
		m.searchInput.SetValue("")
		m.post(func() { m.ctrl.ResetSearch() })
		return m, nil
	case "ctrl+t":
		m.toggleMode()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	// Live filtering. The pending query update and the trigger run in
	// one task, so a recomputation queued by an earlier keystroke can
	// never consume this trigger before the new query lands.
	query := m.searchInput.Value()
	mode := m.mode
	m.post(func() {
		m.loopState.pendingQuery = query
		m.loopState.pendingMode = mode
		m.filterDebounce.Trigger()
	})
	return m, cmd
}

func (m *Model) handleGridKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit

	case "left", "h":
		m.moveSelection(-1)
	case "right", "l":
		m.moveSelection(1)
	case "up", "k":
		m.post(func() { m.moveSelectionBy(-m.view.Columns()) })
	case "down", "j":
		m.post(func() { m.moveSelectionBy(m.view.Columns()) })

	case "pgup":
		m.post(func() { m.view.ScrollBy(-m.loopState.viewportPx) })
	case "pgdown":
		m.post(func() { m.view.ScrollBy(m.loopState.viewportPx) })
	case "home":
		m.post(func() {
			m.view.ScrollTo(0)
			m.view.SelectFirst()
		})

	case "+", "=":
		m.post(func() {
			m.ctrl.AdjustThumbSize(1)
			m.loopState.mosaicCache = make(map[string]string)
			m.applyViewport()
		})
	case "-", "_":
		m.post(func() {
			m.ctrl.AdjustThumbSize(-1)
			m.loopState.mosaicCache = make(map[string]string)
			m.applyViewport()
		})

	case "[":
		m.post(func() { m.ctrl.SetColumns(m.view.Columns() - 1) })
	case "]":
		m.post(func() { m.ctrl.SetColumns(m.view.Columns() + 1) })

	case "ctrl+t":
		m.toggleMode()
	case "e":
		m.post(func() { m.ctrl.ExportPrompt() })
	case "r":
		m.post(func() { m.ctrl.Reload() })
	case "d":
		m.post(func() {
			if folder := m.ctrl.Folder(); folder != "" {
				m.ctrl.SetDefaultFolder(folder)
			}
		})
	case "P":
		m.post(func() {
			if folder := m.ctrl.Folder(); folder != "" {
				m.ctrl.AddPreset(folder)
			}
		})
	case "ctrl+p":
		m.openNextPreset()
	case "ctrl+x":
		m.post(func() {
			if folder := m.ctrl.Folder(); folder != "" {
				m.ctrl.RemovePreset(folder)
			}
		})
	case "esc":
		m.searchInput.SetValue("")
		m.post(func() { m.ctrl.ResetSearch() })
	}
	return m, nil
}

func (m *Model) toggleMode() {
	if m.mode == index.ModeTokensAnd {
		m.mode = index.ModeExact
	} else {
		m.mode = index.ModeTokensAnd
	}
	query := m.searchInput.Value()
	mode := m.mode
	m.post(func() { m.ctrl.ApplyFilter(query, mode) })
}

func (m *Model) openNextPreset() {
	if len(m.presets) == 0 {
		return
	}
	folder := m.presets[m.presetIdx%len(m.presets)]
	m.presetIdx++
	m.folderInput.SetValue(folder)
	m.post(func() { m.ctrl.OpenPreset(folder) })
}

func (m *Model) moveSelection(delta int) {
	m.post(func() { m.moveSelectionBy(delta) })
}

// Run-loop side helpers.

// moveSelectionBy shifts the selection and keeps it scrolled into
// view. Runs on the run loop.
func (m *Model) moveSelectionBy(delta int) {
	cur := m.view.SelectedIndex()
	if cur < 0 {
		m.view.SelectFirst()
		return
	}
	target := cur + delta
	if target < 0 || target >= m.view.Len() {
		return
	}
	m.view.Select(target)
	m.scrollIntoView(target)
}

func (m *Model) scrollIntoView(idx int) {
	rh := m.view.RowHeight()
	row, _ := m.view.Position(idx)
	top := row * rh
	bottom := top + rh

	offset := m.view.ScrollOffset()
	viewport := m.loopState.viewportPx
	if viewport <= 0 {
		return
	}
	if top < offset {
		m.view.ScrollTo(top)
	} else if bottom > offset+viewport {
		m.view.ScrollTo(bottom - viewport)
	}
}

// applyViewport recomputes the grid viewport from the terminal size
// and the current thumbnail size. Runs on the run loop.
func (m *Model) applyViewport() {
	// Fixed chrome: input row (3 lines with borders), status line,
	// prompt pane (6), help line.
	const chromeLines = 3 + 1 + 6 + 1
	gridLines := m.height - chromeLines
	if gridLines < 0 {
		gridLines = 0
	}

	linesPerRow := mosaicRows(m.view.ThumbSize()) + 2 // name + spacing
	visibleRows := gridLines / linesPerRow
	m.loopState.viewportPx = visibleRows * m.view.RowHeight()
	m.view.SetViewport(m.loopState.viewportPx)
}

// buildSnapshot renders the visible grid region. Runs on the run loop.
func (m *Model) buildSnapshot() gridSnapshot {
	thumbSize := m.view.ThumbSize()
	snap := gridSnapshot{
		totalRow: m.view.Rows(),
		columns:  m.view.Columns(),
		cols:     mosaicCols(thumbSize),
		cellRows: mosaicRows(thumbSize),
	}
	if m.view.Len() == 0 || m.loopState.viewportPx <= 0 {
		return snap
	}

	rh := m.view.RowHeight()
	snap.firstRow = m.view.ScrollOffset() / rh
	visibleRows := m.loopState.viewportPx / rh
	if visibleRows < 1 {
		visibleRows = 1
	}
	snap.lastRow = snap.firstRow + visibleRows - 1
	if snap.lastRow >= snap.totalRow {
		snap.lastRow = snap.totalRow - 1
	}

	for row := snap.firstRow; row <= snap.lastRow; row++ {
		var cells []slotCell
		for col := 0; col < snap.columns; col++ {
			idx := row*snap.columns + col
			if idx >= m.view.Len() {
				break
			}
			cells = append(cells, m.renderCell(idx, thumbSize, snap.cols, snap.cellRows))
		}
		snap.rows = append(snap.rows, cells)
	}
	return snap
}

func (m *Model) renderCell(idx, thumbSize, cols, cellRows int) slotCell {
	slot, ok := m.view.SlotFor(idx)
	if !ok || slot.Thumb == nil {
		entry, _ := m.view.EntryAt(idx)
		return slotCell{
			name:     entry.FileName(),
			blank:    true,
			selected: idx == m.view.SelectedIndex(),
		}
	}

	key := fmt.Sprintf("%s|%d", slot.Entry.Path, thumbSize)
	mosaic, cached := m.loopState.mosaicCache[key]
	if !cached {
		mosaic = renderMosaic(slot.Thumb, cols, cellRows)
		m.loopState.mosaicCache[key] = mosaic
	}
	return slotCell{
		name:     slot.Entry.FileName(),
		mosaic:   mosaic,
		selected: slot.Selected,
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderTopBar())
	b.WriteByte('\n')
	b.WriteString(m.renderStatus())
	b.WriteByte('\n')
	b.WriteString(m.renderGrid())
	b.WriteByte('\n')
	b.WriteString(m.renderPromptPane())
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render(
		"[Tab] Focus  [Enter] Open/Search  [Ctrl+T] Mode  [+/-] Size  [[/]] Columns  [E]xport  [R]eload  [Q]uit"))

	if m.errText != "" {
		return b.String() + "\n" + errorStyle.Render("Error: "+m.errText+" (any key to dismiss)")
	}
	return b.String()
}

func (m *Model) renderTopBar() string {
	folderBox := inputBoxStyle
	searchBox := inputBoxStyle
	if m.focus == focusFolder {
		folderBox = focusedInputBoxStyle
	}
	if m.focus == focusSearch {
		searchBox = focusedInputBoxStyle
	}

	modeLabel := "tokens"
	if m.mode == index.ModeExact {
		modeLabel = "exact"
	}

	return lipgloss.JoinHorizontal(lipgloss.Center,
		folderBox.Render(m.folderInput.View()),
		" ",
		searchBox.Render(m.searchInput.View()),
		" ",
		labelStyle.Render("mode: ")+hitCountStyle.Render(modeLabel),
	)
}

func (m *Model) renderStatus() string {
	left := statusStyle.Render(m.status)
	if m.scanning && m.scanTotal > 0 {
		left = statusStyle.Render(fmt.Sprintf("Scanning %d/%d...", m.scanDone, m.scanTotal))
	}
	counts := hitCountStyle.Render(fmt.Sprintf("%d/%d", m.hits, m.total))
	return left + "  " + counts
}

func (m *Model) renderGrid() string {
	if len(m.snap.rows) == 0 {
		return labelStyle.Render("  (no images)")
	}

	var rows []string
	for _, cells := range m.snap.rows {
		var rendered []string
		for _, cell := range cells {
			rendered = append(rendered, m.renderTile(cell))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}

	pos := fmt.Sprintf("rows %d-%d of %d", m.snap.firstRow+1, m.snap.lastRow+1, m.snap.totalRow)
	return strings.Join(rows, "\n\n") + "\n" + labelStyle.Render(pos)
}

func (m *Model) renderTile(cell slotCell) string {
	body := cell.mosaic
	if cell.blank {
		body = blankMosaic(m.snap.cols, m.snap.cellRows)
	}

	name := truncateName(cell.name, m.snap.cols)
	if cell.selected {
		name = selectedNameStyle.Render(name)
	} else {
		name = fileNameStyle.Render(name)
	}
	return body + "\n" + name + " "
}

func (m *Model) renderPromptPane() string {
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	title := labelStyle.Render("Prompt")
	if m.selected != "" {
		title = labelStyle.Render("Prompt: ") + fileNameStyle.Render(m.selected)
	}

	text := m.promptText
	if text == "" {
		text = "(no prompt)"
	}
	return promptPaneStyle.Width(width).Height(4).Render(title + "\n" + text)
}

func truncateName(name string, width int) string {
	if width < 4 {
		width = 4
	}
	if len(name) <= width {
		return name
	}
	return name[:width-1] + "…"
}
