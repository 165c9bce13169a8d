package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"prompt-explorer/internal/database"
	"prompt-explorer/internal/debugserver"
	"prompt-explorer/internal/explorer"
	"prompt-explorer/internal/grid"
	"prompt-explorer/internal/index"
	"prompt-explorer/internal/logging"
	"prompt-explorer/internal/runloop"
	"prompt-explorer/internal/settings"
	"prompt-explorer/internal/thumbs"
	"prompt-explorer/internal/ui"
	"prompt-explorer/internal/watcher"
)

// promptCacheMaxAge bounds how long rows for vanished files linger in
// the prompt cache before the startup prune drops them.
const promptCacheMaxAge = 90 * 24 * time.Hour

func main() {
	configDir := filepath.Dir(settings.DefaultPath())

	// The TUI owns stdout, so logs go to a rotating file.
	if err := logging.UseRotatingFile(filepath.Join(configDir, "prompt-explorer.log")); err != nil {
		logging.Warn("File logging unavailable: %v", err)
	}
	defer logging.CloseFile()
	logging.Info("prompt-explorer %s starting", debugserver.Version)

	store := settings.Load(settings.DefaultPath())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistent prompt cache. Failure degrades to extraction-only
	// scans rather than blocking startup.
	var db *database.Database
	if opened, err := database.New(ctx, filepath.Join(configDir, "prompts.db")); err != nil {
		logging.Warn("Prompt cache unavailable: %v", err)
	} else {
		db = opened
		defer db.Close()
		go func() {
			if pruned, err := db.Prune(ctx, promptCacheMaxAge); err == nil && pruned > 0 {
				logging.Info("Pruned %d stale prompt cache rows", pruned)
			}
		}()
	}

	loop := runloop.New()
	go loop.Run(ctx)

	cache := thumbs.NewCache(thumbs.DefaultCapacity)
	scanner := index.NewScanner(db)
	msgs := make(chan tea.Msg, 256)
	current := store.Current()

	var ctrl *explorer.Controller
	watch := watcher.New(func(string) {
		loop.Post(func() { ctrl.Reload() })
	})

	view := grid.New(grid.Config{
		Cache:     cache,
		Scheduler: loop,
		Surface:   ui.NewSurface(msgs),
		Columns:   current.Columns,
		ThumbSize: current.ThumbSize,
		OnSelect:  func(e index.Entry) { ctrl.HandleSelect(e) },
		OnClear:   func() { ctrl.HandleSelectionCleared() },
	})
	ctrl = explorer.New(explorer.Config{
		Loop:    loop,
		Scanner: scanner,
		Cache:   cache,
		View:    view,
		Store:   store,
		Emit:    ui.Emit(msgs),
		OnFolderChanged: func(folder string) {
			if err := watch.Watch(folder); err != nil {
				logging.Warn("Cannot watch %s: %v", folder, err)
			}
		},
	})

	go func() {
		if err := watch.Run(ctx); err != nil && err != context.Canceled {
			logging.Error("Folder watcher stopped: %v", err)
		}
	}()

	if addr := debugserver.AddrFromEnv(); addr != "" {
		srv := debugserver.New(addr, controllerStatus(loop, ctrl))
		go func() {
			if err := srv.Run(ctx); err != nil {
				logging.Error("Debug server failed: %v", err)
			}
		}()
	}

	model := ui.NewModel(ui.Config{
		Loop:     loop,
		Ctrl:     ctrl,
		View:     view,
		Msgs:     msgs,
		Settings: current,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		logging.Error("UI error: %v", err)
		cancel()
		os.Exit(1)
	}
	logging.Info("prompt-explorer exiting")
}

// controllerStatus snapshots controller state on the run loop for the
// health endpoint. A stopped loop yields an empty snapshot instead of
// hanging the request.
func controllerStatus(loop *runloop.Loop, ctrl *explorer.Controller) debugserver.StatusFunc {
	return func() debugserver.Status {
		var st debugserver.Status
		done := make(chan struct{})
		loop.Post(func() {
			folder, entries, scanning := ctrl.Status()
			st = debugserver.Status{Folder: folder, Entries: entries, Scanning: scanning}
			close(done)
		})
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return st
	}
}
