// Package minimap projects the scene onto a fixed-size overview panel and
// maps clicks on that panel back into world space. The projector is
// recomputed from the content bounds on every frame; nothing is retained
// between redraws.
package minimap

import (
	"image"
	"math"

	"github.com/fogleman/gg"

	"flow-studio/internal/scene"
	"flow-studio/pkg/colorutil"
	"flow-studio/pkg/geometry"
)

// Panel dimensions in pixels. The minimap never resizes with the window.
const (
	Width  = 200
	Height = 140
)

// contentPadding is the world-space margin added around the content bounds
// before fitting, so edge nodes do not touch the panel border.
const contentPadding = 40.0

// Projector is the world-to-panel transform for one frame: a uniform scale
// fitting the padded content bounds into the panel, centered on both axes.
// The zero Projector is the empty-scene case and reports Visible false.
type Projector struct {
	World   geometry.Rect // padded content bounds
	Scale   float64
	OffsetX float64 // pixel offsets centering the scaled content
	OffsetY float64
	Visible bool
}

// NewProjector fits the scene's content bounds into the panel. The panel is
// hidden exactly when the scene has no nodes, regardless of zoom or content
// size.
func NewProjector(s *scene.Scene) Projector {
	bounds, ok := s.ContentBounds()
	if !ok {
		return Projector{}
	}
	world := bounds.Expand(contentPadding)
	scale := math.Min(Width/world.Width, Height/world.Height)
	return Projector{
		World:   world,
		Scale:   scale,
		OffsetX: (Width - world.Width*scale) / 2,
		OffsetY: (Height - world.Height*scale) / 2,
		Visible: true,
	}
}

// ToMini maps a world point to panel pixels.
func (p Projector) ToMini(w geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: (w.X-p.World.X)*p.Scale + p.OffsetX,
		Y: (w.Y-p.World.Y)*p.Scale + p.OffsetY,
	}
}

// FromMini maps panel pixels back to a world point. Inverse of ToMini.
func (p Projector) FromMini(m geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: (m.X-p.OffsetX)/p.Scale + p.World.X,
		Y: (m.Y-p.OffsetY)/p.Scale + p.World.Y,
	}
}

// miniRect maps a world rectangle to panel pixels.
func (p Projector) miniRect(r geometry.Rect) geometry.Rect {
	tl := p.ToMini(r.TopLeft())
	return geometry.Rect{X: tl.X, Y: tl.Y, Width: r.Width * p.Scale, Height: r.Height * p.Scale}
}

// ViewportRect returns the main viewport's visible world area in panel
// pixels, for a main canvas of w by h pixels.
func (p Projector) ViewportRect(v geometry.Viewport, w, h float64) geometry.Rect {
	return p.miniRect(v.VisibleWorldRect(w, h))
}

// Recenter returns the main viewport recentered on the world point under
// the clicked panel pixel. Zoom is unchanged.
func (p Projector) Recenter(click geometry.Point2D, v geometry.Viewport, w, h float64) geometry.Viewport {
	return v.CenterOn(p.FromMini(click), w, h)
}

// Frame bundles everything one minimap redraw needs. CanvasW and CanvasH
// are the main canvas dimensions, used only for the viewport rectangle.
type Frame struct {
	Scene      *scene.Scene
	Viewport   geometry.Viewport
	SelectedID string
	CanvasW    float64
	CanvasH    float64
}

// Render draws the overview into img: connections as straight lines, nodes
// as filled rectangles in their category color with the selected node
// outlined, and the main-viewport rectangle on top. The panel carries its
// own background and border so it reads as a floating overlay on the
// canvas.
func Render(img *image.RGBA, f Frame) {
	dc := gg.NewContextForRGBA(img)
	dc.SetColor(colorutil.White)
	dc.Clear()

	if p := NewProjector(f.Scene); p.Visible {
		drawContent(dc, p, f)
	}

	dc.SetColor(colorutil.NodeBorder)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, float64(img.Bounds().Dx())-1, float64(img.Bounds().Dy())-1)
	dc.Stroke()
}

// NewImage renders a fresh panel-sized frame.
func NewImage(f Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	Render(img, f)
	return img
}

func drawContent(dc *gg.Context, p Projector, f Frame) {
	dc.SetColor(colorutil.ConnectionLine)
	dc.SetLineWidth(1)
	for _, c := range f.Scene.Connections() {
		src := f.Scene.FindNode(c.Source)
		dst := f.Scene.FindNode(c.Target)
		if src == nil || dst == nil {
			continue
		}
		a := p.ToMini(src.OutputPos())
		b := p.ToMini(dst.InputPos())
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
	}
	dc.Stroke()

	for _, n := range f.Scene.Nodes() {
		r := p.miniRect(n.Rect())
		dc.SetColor(scene.CategoryOf(n.Type).HeaderColor())
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		dc.Fill()
		if n.ID == f.SelectedID {
			dc.SetColor(colorutil.Selection)
			dc.SetLineWidth(2)
			dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
			dc.Stroke()
		}
	}

	vr := p.ViewportRect(f.Viewport, f.CanvasW, f.CanvasH)
	dc.SetColor(colorutil.WithAlpha(colorutil.Selection, 40))
	dc.DrawRectangle(vr.X, vr.Y, vr.Width, vr.Height)
	dc.Fill()
	dc.SetColor(colorutil.Selection)
	dc.SetLineWidth(1)
	dc.DrawRectangle(vr.X, vr.Y, vr.Width, vr.Height)
	dc.Stroke()
}
