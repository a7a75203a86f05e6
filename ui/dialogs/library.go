// Package dialogs provides application dialogs.
package dialogs

import (
	"fmt"

	"flow-studio/internal/store"
	"flow-studio/internal/workflow"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// LibraryDialog browses the draft library. Confirming loads the selected
// draft through the onLoad callback; drafts can also be deleted in place.
type LibraryDialog struct {
	library *store.Library
	window  fyne.Window

	list     *widget.List
	drafts   []store.DraftInfo
	selected int

	onLoad func(id string, doc workflow.Document)
}

// NewLibraryDialog creates a library browser over the given store.
func NewLibraryDialog(library *store.Library, window fyne.Window, onLoad func(id string, doc workflow.Document)) *LibraryDialog {
	return &LibraryDialog{
		library:  library,
		window:   window,
		selected: -1,
		onLoad:   onLoad,
	}
}

// Show displays the dialog.
func (d *LibraryDialog) Show() {
	d.list = widget.NewList(
		func() int { return len(d.drafts) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			info := d.drafts[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s  (%s)",
				info.Name, info.UpdatedAt.Local().Format("2006-01-02 15:04")))
		},
	)
	d.list.OnSelected = func(id widget.ListItemID) { d.selected = id }
	d.reload()

	deleteBtn := widget.NewButton("Delete Draft", d.deleteSelected)
	content := container.NewBorder(nil, deleteBtn, nil, nil, d.list)

	dlg := dialog.NewCustomConfirm(
		"Workflow Library",
		"Load",
		"Cancel",
		content,
		func(load bool) {
			if !load || d.selected < 0 || d.selected >= len(d.drafts) {
				return
			}
			id := d.drafts[d.selected].ID
			doc, err := d.library.LoadDraft(id)
			if err != nil {
				dialog.ShowError(err, d.window)
				return
			}
			if d.onLoad != nil {
				d.onLoad(id, doc)
			}
		},
		d.window,
	)
	dlg.Resize(fyne.NewSize(460, 420))
	dlg.Show()
}

func (d *LibraryDialog) reload() {
	drafts, err := d.library.ListDrafts()
	if err != nil {
		dialog.ShowError(err, d.window)
	}
	d.drafts = drafts
	d.selected = -1
	d.list.UnselectAll()
	d.list.Refresh()
}

func (d *LibraryDialog) deleteSelected() {
	if d.selected < 0 || d.selected >= len(d.drafts) {
		return
	}
	if err := d.library.DeleteDraft(d.drafts[d.selected].ID); err != nil {
		dialog.ShowError(err, d.window)
		return
	}
	d.reload()
}
