// Package main provides the entry point for the Pattern Projector application.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"pattern-projector/internal/app"
	"pattern-projector/internal/config"
	"pattern-projector/internal/control"
	"pattern-projector/internal/version"
	"pattern-projector/ui/mainwindow"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"github.com/gogpu/gg"
)

const (
	appID    = "io.github.pattern-projector"
	appTitle = "Pattern Projector"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)
	gg.SetLogger(slog.Default())

	configPath := flag.String("config", config.DefaultPath(), "configuration file")
	flag.Parse()

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.ProjectorTheme{})

	if created, err := config.EnsureFile(*configPath); err != nil {
		log.Printf("Failed to write default configuration: %v", err)
	} else if created {
		log.Printf("Wrote default configuration")
	}

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fatal(fyneApp, err)
		return
	}

	appState := app.NewState(cfg)
	appPrefs := config.LoadPrefs()
	ctrl := control.New(appState, cfg.NudgeCM)

	win := mainwindow.New(fyneApp, appState, appPrefs, ctrl)
	projector := mainwindow.NewProjectorWindow(fyneApp, appState, ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	appState.Start(ctx)

	watcher := setupDocumentWatcher(appState, cfg)
	defer watcher.Stop()

	// Handle command line arguments
	if flag.NArg() > 0 {
		win.OpenDocument(flag.Arg(0))
	} else {
		win.RestoreLastDocument()
	}

	projector.Show()
	win.ShowAndRun()

	if err := appState.Close(); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}

// setupDocumentWatcher reloads the current page, keeping the placement,
// whenever the open document changes on disk.
func setupDocumentWatcher(state *app.State, cfg config.Config) *app.DocumentWatcher {
	watcher := app.NewDocumentWatcher(cfg.WatchInterval, func(path string) {
		log.Printf("Watcher: %s changed, reloading page", path)
		if err := state.ReloadPage(); err != nil {
			log.Printf("Watcher: reload failed: %v", err)
		}
	})
	state.On(app.EventDocumentOpened, func(data interface{}) {
		if path, ok := data.(string); ok {
			watcher.Watch(path)
		}
	})
	watcher.Start()
	return watcher
}

// fatal reports a startup error in a dialog and exits with status 1 once it
// is dismissed.
func fatal(fyneApp fyne.App, err error) {
	log.Printf("Startup failed: %v", err)

	msg := err.Error()
	if errors.Is(err, config.ErrNoProjector) {
		msg = "No projector found! Exiting..."
	}

	win := fyneApp.NewWindow(appTitle)
	win.Resize(fyne.NewSize(400, 200))
	dlg := dialog.NewInformation(appTitle, msg, win)
	dlg.SetOnClosed(func() { os.Exit(1) })
	win.SetOnClosed(func() { os.Exit(1) })
	win.Show()
	dlg.Show()
	fyneApp.Run()
	os.Exit(1)
}
