// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"flow-studio/internal/app"
	"flow-studio/internal/render"
	"flow-studio/internal/store"
	"flow-studio/internal/version"
	"flow-studio/internal/workflow"
	"flow-studio/pkg/geometry"
	"flow-studio/ui/canvas"
	"flow-studio/ui/dialogs"
	"flow-studio/ui/panels"
	"flow-studio/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	state   *app.State
	prefs   *prefs.Prefs
	library *store.Library

	canvas     *canvas.EditorCanvas
	palette    *panels.Palette
	properties *panels.Properties

	statusBar   *widget.Label
	zoomLabel   *widget.Label
	countsLabel *widget.Label

	// Menu items that need state tracking
	gridItem    *fyne.MenuItem
	minimapItem *fyne.MenuItem

	// Library draft backing this session, if any. Saving to the library
	// again updates the same draft instead of adding a new one.
	draftID string
}

// New creates a new main window. A nil library disables the draft menu
// entries but nothing else.
func New(fyneApp fyne.App, state *app.State, appPrefs *prefs.Prefs, library *store.Library) *MainWindow {
	win := fyneApp.NewWindow("Flow Studio")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		state:   state,
		prefs:   appPrefs,
		library: library,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()

	win.Resize(fyne.NewSize(
		float32(appPrefs.Float(prefs.KeyWindowWidth, 1280)),
		float32(appPrefs.Float(prefs.KeyWindowHeight, 800)),
	))
	win.SetCloseIntercept(func() {
		mw.savePreferences()
		mw.Close()
	})

	mw.refreshTitle()
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.New(mw.state)
	mw.palette = panels.NewPalette(mw.state, mw.canvas)
	mw.properties = panels.NewProperties(mw.state)

	mw.statusBar = widget.NewLabel("Ready")
	mw.zoomLabel = widget.NewLabel("100%")
	mw.countsLabel = widget.NewLabel("0 nodes, 0 connections")

	toolbar := mw.createToolbar()

	// Canvas area with toolbar on top
	canvasArea := container.NewBorder(
		toolbar, // top
		nil,     // bottom
		nil,     // left
		nil,     // right
		mw.canvas,
	)

	// Main layout: palette | canvas | properties
	inner := container.NewHSplit(canvasArea, mw.properties.Container())
	inner.SetOffset(0.75)
	split := container.NewHSplit(mw.palette.Container(), inner)
	split.SetOffset(0.18)

	statusRow := container.NewBorder(
		nil, nil,
		mw.statusBar,
		container.NewHBox(mw.countsLabel, mw.zoomLabel),
	)

	content := container.NewBorder(
		nil,                            // top
		container.NewPadded(statusRow), // bottom
		nil,                            // left
		nil,                            // right
		split,                          // center
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with zoom and workflow controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	zoomOutBtn := widget.NewButton("-", mw.canvas.ZoomOut)
	zoomInBtn := widget.NewButton("+", mw.canvas.ZoomIn)
	fitBtn := widget.NewButton("Fit", mw.canvas.FitToContent)
	actualBtn := widget.NewButton("1:1", mw.canvas.ResetZoom)
	runBtn := widget.NewButton("Run", mw.onRunWorkflow)
	saveBtn := widget.NewButton("Save to Server", mw.onSaveToServer)

	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
		actualBtn,
		widget.NewSeparator(),
		runBtn,
		saveBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	templateNames := workflow.ListTemplates()
	templateItems := make([]*fyne.MenuItem, 0, len(templateNames))
	for _, name := range templateNames {
		templateItems = append(templateItems, fyne.NewMenuItem(name, func() {
			mw.onLoadTemplate(name)
		}))
	}
	newFromTemplate := fyne.NewMenuItem("New from Template", nil)
	newFromTemplate.ChildMenu = fyne.NewMenu("", templateItems...)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New", mw.onNewWorkflow),
		newFromTemplate,
		fyne.NewMenuItem("Open...", mw.onOpenWorkflow),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", mw.onSave),
		fyne.NewMenuItem("Save As...", mw.onSaveAs),
		fyne.NewMenuItem("Rename...", mw.onRenameWorkflow),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Import JSON...", mw.onImportJSON),
		fyne.NewMenuItem("Export JSON...", mw.onExportJSON),
		fyne.NewMenuItem("Export PNG...", mw.onExportPNG),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save to Library", mw.onSaveToLibrary),
		fyne.NewMenuItem("Browse Library...", mw.onBrowseLibrary),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Preferences...", mw.onPreferences),
		fyne.NewMenuItem("Quit", func() {
			mw.savePreferences()
			mw.app.Quit()
		}),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.state.Undo),
		fyne.NewMenuItem("Redo", mw.state.Redo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Duplicate", mw.state.DuplicateSelected),
		fyne.NewMenuItem("Delete", mw.canvas.DeleteSelected),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Clear Canvas", mw.state.ClearCanvas),
	)

	mw.gridItem = fyne.NewMenuItem(checkLabel("Show Grid", mw.state.ShowGrid()), mw.onToggleGrid)
	mw.minimapItem = fyne.NewMenuItem(checkLabel("Show Minimap", mw.state.ShowMinimap()), mw.onToggleMinimap)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.canvas.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.canvas.ZoomOut),
		fyne.NewMenuItem("Reset Zoom", mw.canvas.ResetZoom),
		fyne.NewMenuItem("Fit to Content", mw.canvas.FitToContent),
		fyne.NewMenuItemSeparator(),
		mw.gridItem,
		mw.minimapItem,
	)

	workflowMenu := fyne.NewMenu("Workflow",
		fyne.NewMenuItem("Validate", mw.onValidate),
		fyne.NewMenuItem("Auto-Layout", mw.onAutoLayout),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save to Server", mw.onSaveToServer),
		fyne.NewMenuItem("Run", mw.onRunWorkflow),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, editMenu, viewMenu, workflowMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

// setupShortcuts wires the keyboard. Delete works whenever no entry has
// focus, so typing in the properties panel never removes nodes.
func (mw *MainWindow) setupShortcuts() {
	c := mw.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl},
		func(fyne.Shortcut) { mw.state.Undo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl | fyne.KeyModifierShift},
		func(fyne.Shortcut) { mw.state.Redo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl},
		func(fyne.Shortcut) { mw.onSave() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyD, Modifier: fyne.KeyModifierControl},
		func(fyne.Shortcut) { mw.state.DuplicateSelected() })
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			mw.canvas.DeleteSelected()
		}
	})
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventWorkflowLoaded, func(data any) {
		mw.refreshTitle()
		if name, ok := data.(string); ok {
			mw.updateStatus("Loaded " + name)
		}
	})

	mw.state.On(app.EventModified, func(_ any) {
		mw.refreshTitle()
	})

	mw.state.On(app.EventSceneChanged, func(_ any) {
		mw.updateCounts()
	})

	mw.state.On(app.EventViewportChanged, func(data any) {
		v, ok := data.(geometry.Viewport)
		if !ok {
			return
		}
		text := fmt.Sprintf("%d%%", int(math.Round(v.Zoom*100)))
		if mw.zoomLabel.Text != text {
			mw.zoomLabel.SetText(text)
		}
	})

	mw.state.On(app.EventWorkflowSaved, func(data any) {
		if s, ok := data.(string); ok {
			mw.updateStatus("Saved " + s)
		}
	})

	mw.state.On(app.EventSaveFailed, func(data any) {
		mw.updateStatus("Save failed: " + eventText(data))
	})

	mw.state.On(app.EventExecutionStarted, func(data any) {
		mw.updateStatus("Running " + eventText(data) + "...")
	})

	mw.state.On(app.EventExecutionFinished, func(data any) {
		mw.updateStatus("Execution finished: " + eventText(data))
	})

	mw.state.On(app.EventExecutionFailed, func(data any) {
		mw.updateStatus("Execution failed: " + eventText(data))
	})
}

func eventText(data any) string {
	if s, ok := data.(string); ok {
		return s
	}
	return fmt.Sprint(data)
}

func checkLabel(text string, on bool) string {
	if on {
		return "✓ " + text
	}
	return "  " + text
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) updateCounts() {
	s := mw.state.Scene()
	mw.countsLabel.SetText(fmt.Sprintf("%d nodes, %d connections",
		s.NodeCount(), s.ConnectionCount()))
}

func (mw *MainWindow) refreshTitle() {
	title := "Flow Studio - " + mw.state.Name()
	if mw.state.Modified() {
		title += " *"
	}
	mw.SetTitle(title)
}

// savePreferences persists window size and view toggles.
func (mw *MainWindow) savePreferences() {
	sz := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(sz.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(sz.Height))
	mw.prefs.SetBool(prefs.KeyShowGrid, mw.state.ShowGrid())
	mw.prefs.SetBool(prefs.KeyShowMinimap, mw.state.ShowMinimap())
	if err := mw.prefs.Save(); err != nil {
		log.Printf("save preferences: %v", err)
	}
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir, "")
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// confirmDiscard runs action directly when the session is clean, and asks
// first when unsaved changes would be thrown away.
func (mw *MainWindow) confirmDiscard(action func()) {
	if !mw.state.Modified() {
		action()
		return
	}
	dialog.ShowConfirm("Unsaved Changes",
		"Discard changes to the current workflow?",
		func(ok bool) {
			if ok {
				action()
			}
		}, mw.Window)
}

// Menu action handlers

func (mw *MainWindow) onNewWorkflow() {
	mw.confirmDiscard(func() {
		mw.state.NewWorkflow()
		mw.draftID = ""
	})
}

func (mw *MainWindow) onLoadTemplate(name string) {
	mw.confirmDiscard(func() {
		if err := mw.state.LoadTemplate(name); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.draftID = ""
	})
}

func (mw *MainWindow) onOpenWorkflow() {
	mw.confirmDiscard(func() {
		fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil || reader == nil {
				return
			}
			reader.Close()
			path := reader.URI().Path()
			mw.saveLastDir(path)
			if err := mw.state.OpenWorkflow(path); err != nil {
				dialog.ShowError(err, mw.Window)
				return
			}
			mw.draftID = ""
		}, mw.Window)
		fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
		if loc := mw.getLastDir(); loc != nil {
			fd.SetLocation(loc)
		}
		fd.Show()
	})
}

func (mw *MainWindow) onSave() {
	if mw.state.FilePath() == "" {
		mw.onSaveAs()
		return
	}
	if err := mw.state.SaveWorkflow(mw.state.FilePath()); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".json" {
			path += ".json"
		}
		mw.saveLastDir(path)
		if err := mw.state.SaveWorkflow(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName(mw.state.Name() + ".json")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// onRenameWorkflow changes the workflow name without touching the file path.
// The server addresses runs by name, so a rename affects the next Run.
func (mw *MainWindow) onRenameWorkflow() {
	entry := widget.NewEntry()
	entry.SetText(mw.state.Name())
	items := []*widget.FormItem{widget.NewFormItem("Name", entry)}
	dialog.ShowForm("Rename Workflow", "Rename", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		name := strings.TrimSpace(entry.Text)
		if name == "" || name == mw.state.Name() {
			return
		}
		mw.state.SetName(name)
	}, mw.Window)
}

// onImportJSON merges a document into the current session as one undoable
// step, unlike Open which starts a fresh session.
func (mw *MainWindow) onImportJSON() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		doc, err := workflow.Load(path)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if err := mw.state.ImportDocument(doc); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportJSON() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".json" {
			path += ".json"
		}
		mw.saveLastDir(path)
		if err := mw.state.Document().Save(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName(mw.state.Name() + ".json")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportPNG() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".png" {
			path += ".png"
		}
		mw.saveLastDir(path)
		if err := mw.exportPNG(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName(mw.state.Name() + ".png")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) exportPNG(path string) error {
	s := mw.state.Scene()
	bounds, ok := s.ContentBounds()
	if !ok {
		return errors.New("nothing to export")
	}

	const exportW, exportH = 1600, 1200
	img := render.NewFrame(render.State{
		Scene:    s,
		Viewport: geometry.FitTo(bounds, exportW, exportH),
	}, exportW, exportH)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func (mw *MainWindow) onSaveToLibrary() {
	if mw.library == nil {
		mw.updateStatus("Library unavailable")
		return
	}
	info, err := mw.library.SaveDraft(mw.draftID, mw.state.Document())
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.draftID = info.ID
	mw.updateStatus("Saved draft " + info.Name)
}

func (mw *MainWindow) onBrowseLibrary() {
	if mw.library == nil {
		mw.updateStatus("Library unavailable")
		return
	}
	dialogs.NewLibraryDialog(mw.library, mw.Window, func(id string, doc workflow.Document) {
		if err := mw.state.ImportDocument(doc); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.draftID = id
	}).Show()
}

// onPreferences edits settings that take effect without a restart. The API
// base URL is applied by swapping the workflow client on the live session.
func (mw *MainWindow) onPreferences() {
	urlEntry := widget.NewEntry()
	urlEntry.SetText(mw.prefs.String(prefs.KeyAPIBaseURL, workflow.DefaultBaseURL))
	items := []*widget.FormItem{widget.NewFormItem("API base URL", urlEntry)}
	dialog.ShowForm("Preferences", "Apply", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		base := strings.TrimSpace(urlEntry.Text)
		if base == "" {
			base = workflow.DefaultBaseURL
		}
		mw.prefs.SetString(prefs.KeyAPIBaseURL, base)
		if err := mw.prefs.Save(); err != nil {
			log.Printf("Failed to save preferences: %v", err)
		}
		mw.state.SetClient(workflow.NewClient(base))
		mw.updateStatus("Backend: " + base)
	}, mw.Window)
}

func (mw *MainWindow) onToggleGrid() {
	show := !mw.state.ShowGrid()
	mw.state.SetShowGrid(show)
	mw.gridItem.Label = checkLabel("Show Grid", show)
	mw.canvas.Refresh()
}

func (mw *MainWindow) onToggleMinimap() {
	show := !mw.state.ShowMinimap()
	mw.state.SetShowMinimap(show)
	mw.minimapItem.Label = checkLabel("Show Minimap", show)
	mw.canvas.Refresh()
}

func (mw *MainWindow) onValidate() {
	order, err := mw.state.ValidateGraph()
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	if len(order) == 0 {
		dialog.ShowInformation("Validate Workflow", "The workflow is empty.", mw.Window)
		return
	}

	s := mw.state.Scene()
	var b strings.Builder
	b.WriteString("Execution order:\n")
	for i, id := range order {
		label := id
		if n := s.FindNode(id); n != nil {
			label = n.Label
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, label)
	}
	dialog.ShowInformation("Validate Workflow", b.String(), mw.Window)
}

func (mw *MainWindow) onAutoLayout() {
	mw.state.AutoLayout()
	mw.canvas.FitToContent()
}

func (mw *MainWindow) onSaveToServer() {
	mw.updateStatus("Saving to server...")
	mw.state.SaveToServer()
}

func (mw *MainWindow) onRunWorkflow() {
	mw.state.RunWorkflow()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Flow Studio",
		fmt.Sprintf("Flow Studio v%s\n\n"+
			"A visual workflow builder.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
