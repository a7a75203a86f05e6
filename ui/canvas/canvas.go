// Package canvas provides the interactive workflow editing surface.
package canvas

import (
	"image"

	"flow-studio/internal/app"
	"flow-studio/internal/interaction"
	"flow-studio/internal/render"
	"flow-studio/internal/scene"
	"flow-studio/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Menu-driven zoom uses the same factors as the scroll wheel so both
// paths walk the identical zoom ladder.
const (
	zoomInStep  = 1.1
	zoomOutStep = 0.9
)

// EditorCanvas displays the workflow graph and feeds pointer input to the
// interaction machine. The minimap floats over the bottom-right corner.
type EditorCanvas struct {
	widget.BaseWidget

	state   *app.State
	machine *interaction.Machine

	surface *surface
	mini    *MinimapView
	stack   *fyne.Container
}

// New creates the editor canvas bound to the application state.
func New(state *app.State) *EditorCanvas {
	ec := &EditorCanvas{
		state:   state,
		machine: interaction.New(state),
	}

	ec.surface = newSurface(ec)
	ec.mini = NewMinimapView(ec)

	corner := container.NewVBox(
		layout.NewSpacer(),
		container.NewHBox(layout.NewSpacer(), ec.mini),
	)
	ec.stack = container.NewStack(ec.surface, container.NewPadded(corner))

	ec.ExtendBaseWidget(ec)

	state.On(app.EventSceneChanged, func(_ any) { ec.Refresh() })
	state.On(app.EventSelectionChanged, func(_ any) { ec.Refresh() })
	state.On(app.EventViewportChanged, func(_ any) { ec.Refresh() })
	state.On(app.EventWorkflowLoaded, func(_ any) { ec.FitToContent() })

	return ec
}

// CreateRenderer implements fyne.Widget.
func (ec *EditorCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(ec.stack)
}

// Refresh redraws the surface and the minimap from current state.
func (ec *EditorCanvas) Refresh() {
	ec.surface.Refresh()
	ec.mini.Refresh()
}

// Machine returns the interaction machine driving this canvas.
func (ec *EditorCanvas) Machine() *interaction.Machine {
	return ec.machine
}

// DeleteSelected removes the selected node and its connections.
func (ec *EditorCanvas) DeleteSelected() {
	ec.machine.DeleteSelected()
}

// ZoomIn zooms one step in, anchored at the canvas center.
func (ec *EditorCanvas) ZoomIn() {
	ec.zoomAtCenter(zoomInStep)
}

// ZoomOut zooms one step out, anchored at the canvas center.
func (ec *EditorCanvas) ZoomOut() {
	ec.zoomAtCenter(zoomOutStep)
}

func (ec *EditorCanvas) zoomAtCenter(factor float64) {
	sz := ec.surface.Size()
	center := geometry.Point2D{X: float64(sz.Width) / 2, Y: float64(sz.Height) / 2}
	ec.state.SetViewport(ec.state.Viewport().ZoomAt(center, factor))
}

// ResetZoom returns to 1:1 zoom, keeping the world point under the canvas
// center in place.
func (ec *EditorCanvas) ResetZoom() {
	sz := ec.surface.Size()
	w, h := float64(sz.Width), float64(sz.Height)
	v := ec.state.Viewport()
	world := v.ScreenToWorld(geometry.Point2D{X: w / 2, Y: h / 2})
	v.Zoom = 1
	ec.state.SetViewport(v.CenterOn(world, w, h))
}

// FitToContent frames all nodes in the view. Empty scenes and canvases
// that have not been laid out yet are left alone.
func (ec *EditorCanvas) FitToContent() {
	bounds, ok := ec.state.Scene().ContentBounds()
	if !ok {
		return
	}
	sz := ec.surface.Size()
	if sz.Width <= 0 || sz.Height <= 0 {
		return
	}
	ec.state.SetViewport(geometry.FitTo(bounds, float64(sz.Width), float64(sz.Height)))
}

// ViewCenterWorld returns the world point under the canvas center.
func (ec *EditorCanvas) ViewCenterWorld() geometry.Point2D {
	sz := ec.surface.Size()
	return ec.state.Viewport().ScreenToWorld(geometry.Point2D{
		X: float64(sz.Width) / 2,
		Y: float64(sz.Height) / 2,
	})
}

// AddNodeAtCenter places a new node of the given type centered in the view.
func (ec *EditorCanvas) AddNodeAtCenter(nodeType string) {
	world := ec.ViewCenterWorld()
	world.X -= scene.DefaultNodeWidth / 2
	world.Y -= scene.DefaultNodeHeight / 2
	ec.state.AddNodeAt(nodeType, world)
}

// WorldAt converts an absolute screen position to world coordinates. The
// second return is false when the position falls outside the surface,
// which palette drags use to discard drops that end elsewhere.
func (ec *EditorCanvas) WorldAt(abs fyne.Position) (geometry.Point2D, bool) {
	origin := fyne.CurrentApp().Driver().AbsolutePositionForObject(ec.surface)
	sz := ec.surface.Size()
	local := geometry.Point2D{
		X: float64(abs.X - origin.X),
		Y: float64(abs.Y - origin.Y),
	}
	if local.X < 0 || local.Y < 0 ||
		local.X > float64(sz.Width) || local.Y > float64(sz.Height) {
		return geometry.Point2D{}, false
	}
	return ec.state.Viewport().ScreenToWorld(local), true
}

// surface owns the raster and forwards pointer events to the machine in
// canvas coordinates.
type surface struct {
	widget.BaseWidget
	canvas *EditorCanvas
	raster *fynecanvas.Raster
}

func newSurface(ec *EditorCanvas) *surface {
	sf := &surface{canvas: ec}
	sf.raster = fynecanvas.NewRaster(sf.draw)
	sf.raster.ScaleMode = fynecanvas.ImageScalePixels
	sf.raster.SetMinSize(fyne.NewSize(400, 300))
	sf.ExtendBaseWidget(sf)
	return sf
}

func (sf *surface) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(sf.raster)
}

// Refresh redraws the raster.
func (sf *surface) Refresh() {
	sf.raster.Refresh()
}

// draw renders one frame. The raster is sized in device pixels while
// pointer events arrive in points, so the view transform is scaled to
// keep the two aligned on high-DPI displays.
func (sf *surface) draw(w, h int) image.Image {
	st := sf.canvas.state
	vp := st.Viewport()
	if sz := sf.Size(); sz.Width > 0 {
		scale := float64(w) / float64(sz.Width)
		vp.OffsetX *= scale
		vp.OffsetY *= scale
		vp.Zoom *= scale
	}

	frame := render.State{
		Scene:      st.Scene(),
		Viewport:   vp,
		SelectedID: st.Selection(),
		ShowGrid:   st.ShowGrid(),
	}
	if from, to, ok := sf.canvas.machine.Preview(); ok {
		frame.Preview = &render.Preview{From: from, To: to}
	}
	return render.NewFrame(frame, w, h)
}

// MouseDown starts a gesture. Only the primary button drives the machine.
func (sf *surface) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	sf.canvas.machine.PointerDown(pointFor(ev.Position))
	sf.canvas.Refresh()
}

// MouseUp finishes the active gesture.
func (sf *surface) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	sf.canvas.machine.PointerUp(pointFor(ev.Position))
	sf.canvas.Refresh()
}

// Dragged advances the active gesture frame by frame.
func (sf *surface) Dragged(ev *fyne.DragEvent) {
	sf.canvas.machine.PointerMove(pointFor(ev.Position))
	sf.canvas.Refresh()
}

// DragEnd is handled through MouseUp, which carries the release position.
func (sf *surface) DragEnd() {}

// Scrolled zooms at the pointer position.
func (sf *surface) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY == 0 {
		return
	}
	sf.canvas.machine.Wheel(pointFor(ev.Position), ev.Scrolled.DY > 0)
	sf.canvas.Refresh()
}

func pointFor(p fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
}
