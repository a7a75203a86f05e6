package geometry

import "math"

// Zoom limits for the editor viewport. Zoom requests outside this range are
// clamped, never rejected.
const (
	MinZoom = 0.1
	MaxZoom = 3.0
)

// Viewport is the affine mapping from world space to canvas pixels:
//
//	screen = world*Zoom + Offset
//
// Zoom is uniform in both axes. Node positions are stored in world space;
// the viewport only changes how they are presented.
type Viewport struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Zoom    float64 `json:"zoom"`
}

// NewViewport returns the identity viewport: no pan, 1:1 zoom.
func NewViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ClampZoom forces z into [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// WorldToScreen maps a world-space point to canvas pixels.
func (v Viewport) WorldToScreen(p Point2D) Point2D {
	return Point2D{X: p.X*v.Zoom + v.OffsetX, Y: p.Y*v.Zoom + v.OffsetY}
}

// ScreenToWorld maps canvas pixels back to world space. Exact inverse of
// WorldToScreen up to floating-point error.
func (v Viewport) ScreenToWorld(p Point2D) Point2D {
	return Point2D{X: (p.X - v.OffsetX) / v.Zoom, Y: (p.Y - v.OffsetY) / v.Zoom}
}

// ZoomAt scales Zoom by factor and recomputes the offset so the world point
// currently under the given screen point stays under it. The resulting zoom
// is clamped; when the clamp bites, the anchor is still preserved at the
// clamped zoom.
func (v Viewport) ZoomAt(screen Point2D, factor float64) Viewport {
	world := v.ScreenToWorld(screen)
	z := ClampZoom(v.Zoom * factor)
	return Viewport{
		OffsetX: screen.X - world.X*z,
		OffsetY: screen.Y - world.Y*z,
		Zoom:    z,
	}
}

// Pan returns the viewport shifted by a raw screen-space delta. Panning is
// deliberately not divided by zoom: the content follows the pointer 1:1
// regardless of zoom level.
func (v Viewport) Pan(dx, dy float64) Viewport {
	return Viewport{OffsetX: v.OffsetX + dx, OffsetY: v.OffsetY + dy, Zoom: v.Zoom}
}

// CenterOn returns a viewport with the same zoom centered on the given world
// point for a canvas of w by h pixels.
func (v Viewport) CenterOn(world Point2D, w, h float64) Viewport {
	return Viewport{
		OffsetX: w/2 - world.X*v.Zoom,
		OffsetY: h/2 - world.Y*v.Zoom,
		Zoom:    v.Zoom,
	}
}

// VisibleWorldRect returns the world-space rectangle covered by a canvas of
// w by h pixels under this viewport.
func (v Viewport) VisibleWorldRect(w, h float64) Rect {
	tl := v.ScreenToWorld(Point2D{})
	br := v.ScreenToWorld(Point2D{X: w, Y: h})
	return Rect{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}
}

// FitTo returns a viewport that shows all of bounds within a w by h canvas,
// centered, with a 5% margin. Degenerate inputs fall back to the identity
// viewport.
func FitTo(bounds Rect, w, h float64) Viewport {
	if bounds.Width <= 0 || bounds.Height <= 0 || w <= 0 || h <= 0 {
		return NewViewport()
	}
	zoom := ClampZoom(math.Min(w/bounds.Width, h/bounds.Height) * 0.95)
	c := bounds.Center()
	return Viewport{
		OffsetX: w/2 - c.X*zoom,
		OffsetY: h/2 - c.Y*zoom,
		Zoom:    zoom,
	}
}
