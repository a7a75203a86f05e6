package canvas

import (
	"image"

	"flow-studio/internal/minimap"
	"flow-studio/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// MinimapView is the floating overview panel. It mirrors the whole graph
// at a fixed size, shows the main viewport as a translucent rectangle and
// recenters the view where the user taps. The panel hides itself while
// the scene is empty or the minimap is toggled off.
type MinimapView struct {
	widget.BaseWidget
	canvas *EditorCanvas
	raster *fynecanvas.Raster
}

// NewMinimapView creates the overview panel for ec.
func NewMinimapView(ec *EditorCanvas) *MinimapView {
	mv := &MinimapView{canvas: ec}
	mv.raster = fynecanvas.NewRaster(mv.draw)
	mv.ExtendBaseWidget(mv)
	return mv
}

// CreateRenderer implements fyne.Widget.
func (mv *MinimapView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(mv.raster)
}

// MinSize pins the panel to its fixed dimensions.
func (mv *MinimapView) MinSize() fyne.Size {
	return fyne.NewSize(minimap.Width, minimap.Height)
}

// Refresh synchronizes visibility with the scene and redraws the panel.
func (mv *MinimapView) Refresh() {
	st := mv.canvas.state
	show := st.ShowMinimap() && st.Scene().NodeCount() > 0
	if show != mv.Visible() {
		if show {
			mv.Show()
		} else {
			mv.Hide()
		}
	}
	if show {
		mv.raster.Refresh()
	}
}

func (mv *MinimapView) draw(_, _ int) image.Image {
	st := mv.canvas.state
	sz := mv.canvas.surface.Size()
	return minimap.NewImage(minimap.Frame{
		Scene:      st.Scene(),
		Viewport:   st.Viewport(),
		SelectedID: st.Selection(),
		CanvasW:    float64(sz.Width),
		CanvasH:    float64(sz.Height),
	})
}

// Tapped recenters the main viewport on the tapped world position.
func (mv *MinimapView) Tapped(ev *fyne.PointEvent) {
	st := mv.canvas.state
	p := minimap.NewProjector(st.Scene())
	if !p.Visible {
		return
	}
	sz := mv.canvas.surface.Size()
	click := geometry.Point2D{X: float64(ev.Position.X), Y: float64(ev.Position.Y)}
	st.SetViewport(p.Recenter(click, st.Viewport(), float64(sz.Width), float64(sz.Height)))
}

// MouseDown swallows presses so the surface underneath never starts a
// pan or drag from a tap on the panel.
func (mv *MinimapView) MouseDown(*desktop.MouseEvent) {}

// MouseUp completes the swallowed press.
func (mv *MinimapView) MouseUp(*desktop.MouseEvent) {}

// Scrolled keeps wheel input over the panel from zooming the main view.
func (mv *MinimapView) Scrolled(*fyne.ScrollEvent) {}
