// Package main provides the entry point for the Flow Studio application.
package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"flow-studio/internal/app"
	"flow-studio/internal/store"
	"flow-studio/internal/version"
	"flow-studio/internal/workflow"
	"flow-studio/ui/mainwindow"
	"flow-studio/ui/prefs"
)

const (
	appTitle = "Flow Studio"
	appID    = "io.flowstudio.editor"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", appTitle, version.Version)

	appPrefs := prefs.Load()

	client := workflow.NewClient(appPrefs.String(prefs.KeyAPIBaseURL, workflow.DefaultBaseURL))
	appState := app.NewState(client)
	appState.SetShowGrid(appPrefs.Bool(prefs.KeyShowGrid, true))
	appState.SetShowMinimap(appPrefs.Bool(prefs.KeyShowMinimap, true))

	library, err := store.Open(filepath.Join(prefs.Dir(), "library.db"))
	if err != nil {
		log.Printf("Draft library unavailable: %v", err)
		library = nil
	} else {
		defer library.Close()
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.FlowTheme{})

	win := mainwindow.New(fyneApp, appState, appPrefs, library)

	// Handle command line arguments
	if len(os.Args) > 1 {
		path := os.Args[1]
		if err := appState.OpenWorkflow(path); err != nil {
			log.Printf("Failed to open workflow %s: %v", path, err)
		}
	}

	if os.Getenv("FLOW_STUDIO_DEV") != "" {
		if reloader := setupHotReload(win); reloader != nil {
			defer reloader.Stop()
		}
	}

	win.ShowAndRun()
}

// setupHotReload configures automatic restart detection when the binary is
// recompiled. Returns the reloader so main can stop it on exit, or nil when
// watching is unavailable.
func setupHotReload(win *mainwindow.MainWindow) *app.HotReloader {
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		log.Println("Hot reload: unable to determine executable path")
		return nil
	}

	reloader.OnNewBinary(func() {
		log.Println("Hot reload: newer binary detected")
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(restart bool) {
				if !restart {
					reloader.ResetBaseline()
					reloader.Start()
					return
				}
				log.Println("Hot reload: restarting...")
				if err := reloader.Restart(); err != nil {
					log.Printf("Hot reload: restart failed: %v", err)
				}
			}, win.Window)
	})

	reloader.Start()
	return reloader
}
