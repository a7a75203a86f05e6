// Package panels provides the side panels of the main window.
package panels

import (
	"flow-studio/internal/app"
	"flow-studio/internal/scene"
	"flow-studio/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Canvas is the part of the editor canvas the palette needs to place
// nodes: drop-point resolution for drags and center placement for taps.
type Canvas interface {
	WorldAt(abs fyne.Position) (geometry.Point2D, bool)
	AddNodeAtCenter(nodeType string)
}

// Palette lists the node type catalog. Tapping an entry adds a node at
// the view center; dragging one onto the canvas adds it at the cursor.
type Palette struct {
	state     *app.State
	canvas    Canvas
	container fyne.CanvasObject
}

// NewPalette creates the node palette.
func NewPalette(state *app.State, canvas Canvas) *Palette {
	p := &Palette{state: state, canvas: canvas}

	items := container.NewVBox()
	for _, info := range scene.Catalog() {
		items.Add(newPaletteItem(p, info))
	}

	p.container = container.NewBorder(
		widget.NewLabel("Nodes"),
		nil, nil, nil,
		container.NewVScroll(items),
	)
	return p
}

// Container returns the panel container.
func (p *Palette) Container() fyne.CanvasObject {
	return p.container
}

// paletteItem is one draggable catalog row.
type paletteItem struct {
	widget.BaseWidget
	palette *Palette
	info    scene.TypeInfo

	content fyne.CanvasObject
	lastAbs fyne.Position
	dragged bool
}

func newPaletteItem(p *Palette, info scene.TypeInfo) *paletteItem {
	it := &paletteItem{palette: p, info: info}

	swatch := fynecanvas.NewRectangle(scene.CategoryOf(info.Type).HeaderColor())
	swatch.SetMinSize(fyne.NewSize(14, 14))
	swatch.CornerRadius = 3

	it.content = container.NewHBox(swatch, widget.NewLabel(info.Label))
	it.ExtendBaseWidget(it)
	return it
}

func (it *paletteItem) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(it.content)
}

// Tapped adds a node of this type at the view center.
func (it *paletteItem) Tapped(*fyne.PointEvent) {
	it.palette.canvas.AddNodeAtCenter(it.info.Type)
}

// Dragged tracks the cursor so DragEnd knows where the row was released.
func (it *paletteItem) Dragged(ev *fyne.DragEvent) {
	it.dragged = true
	it.lastAbs = ev.AbsolutePosition
}

// DragEnd drops the carried node type onto the canvas. Releases outside
// the drawing surface discard the drop.
func (it *paletteItem) DragEnd() {
	if !it.dragged {
		return
	}
	it.dragged = false
	if world, ok := it.palette.canvas.WorldAt(it.lastAbs); ok {
		it.palette.state.AddNodeAt(it.info.Type, world)
	}
}
