// Package render draws the editor scene with gg. Rendering is immediate
// mode: every frame is drawn from scratch in screen space from the scene
// and viewport, with no retained drawing state between frames. The same
// code paints the interactive canvas, the minimap content and PNG exports.
package render

import (
	"image"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"flow-studio/internal/scene"
	"flow-studio/pkg/colorutil"
	"flow-studio/pkg/geometry"
)

// World-space drawing constants.
const (
	GridSize         = 20.0 // grid cell edge in world units
	headerHeight     = 22.0
	cornerRadius     = 6.0
	handleDrawRadius = 5.0
	labelFontSize    = 13.0
	labelPadding     = 8.0
)

// minBezierOffset is the smallest horizontal control-point offset of a
// connection curve, in world units.
const minBezierOffset = 50.0

// Preview is the transient connection being dragged out of an output
// handle, in world coordinates.
type Preview struct {
	From geometry.Point2D
	To   geometry.Point2D
}

// State bundles everything one frame needs.
type State struct {
	Scene      *scene.Scene
	Viewport   geometry.Viewport
	SelectedID string
	ShowGrid   bool
	Preview    *Preview
}

// BezierControlPoints returns the two control points of the connection
// curve between an output handle and an input handle. The points are
// offset horizontally by max(|dx|*0.5, 50) world units, which keeps the
// curve near-horizontal at both endpoints whatever the vertical distance.
func BezierControlPoints(from, to geometry.Point2D) (c1, c2 geometry.Point2D) {
	offset := math.Max(math.Abs(to.X-from.X)*0.5, minBezierOffset)
	return geometry.Point2D{X: from.X + offset, Y: from.Y},
		geometry.Point2D{X: to.X - offset, Y: to.Y}
}

// Render draws one full frame into img. Draw order: grid, connections,
// connection preview, then nodes in scene order so later nodes sit on top.
func Render(img *image.RGBA, st State) {
	dc := gg.NewContextForRGBA(img)
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	dc.SetColor(colorutil.CanvasBackground)
	dc.Clear()

	if st.ShowGrid {
		drawGrid(dc, st.Viewport, w, h)
	}
	drawConnections(dc, st)
	if st.Preview != nil {
		drawPreview(dc, st)
	}
	drawNodes(dc, st)
}

// NewFrame allocates an image of the given size and renders into it.
func NewFrame(st State, w, h int) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	Render(img, st)
	return img
}

// drawGrid strokes only the grid lines crossing the visible viewport,
// starting from the world bounds floored to the nearest cell.
func drawGrid(dc *gg.Context, v geometry.Viewport, w, h float64) {
	visible := v.VisibleWorldRect(w, h)
	startX := math.Floor(visible.X/GridSize) * GridSize
	startY := math.Floor(visible.Y/GridSize) * GridSize

	dc.SetColor(colorutil.GridLine)
	dc.SetLineWidth(1)
	for x := startX; x <= visible.X+visible.Width; x += GridSize {
		sx := v.WorldToScreen(geometry.Point2D{X: x}).X
		dc.DrawLine(sx, 0, sx, h)
	}
	for y := startY; y <= visible.Y+visible.Height; y += GridSize {
		sy := v.WorldToScreen(geometry.Point2D{Y: y}).Y
		dc.DrawLine(0, sy, w, sy)
	}
	dc.Stroke()
}

func drawConnections(dc *gg.Context, st State) {
	dc.SetColor(colorutil.ConnectionLine)
	dc.SetLineWidth(math.Max(1, 2*st.Viewport.Zoom))
	for _, c := range st.Scene.Connections() {
		src := st.Scene.FindNode(c.Source)
		dst := st.Scene.FindNode(c.Target)
		if src == nil || dst == nil {
			continue
		}
		strokeCurve(dc, st.Viewport, src.OutputPos(), dst.InputPos())
	}
}

func drawPreview(dc *gg.Context, st State) {
	zoom := st.Viewport.Zoom
	dc.SetColor(colorutil.Selection)
	dc.SetLineWidth(math.Max(1, 2*zoom))
	dc.SetDash(6, 4)
	strokeCurve(dc, st.Viewport, st.Preview.From, st.Preview.To)
	dc.SetDash()
}

// strokeCurve draws the cubic Bezier between two world points. An affine
// viewport maps a Bezier's control polygon to the control polygon of the
// mapped curve, so transforming the four points is exact.
func strokeCurve(dc *gg.Context, v geometry.Viewport, from, to geometry.Point2D) {
	c1, c2 := BezierControlPoints(from, to)
	p0 := v.WorldToScreen(from)
	p1 := v.WorldToScreen(c1)
	p2 := v.WorldToScreen(c2)
	p3 := v.WorldToScreen(to)
	dc.MoveTo(p0.X, p0.Y)
	dc.CubicTo(p1.X, p1.Y, p2.X, p2.Y, p3.X, p3.Y)
	dc.Stroke()
}

func drawNodes(dc *gg.Context, st State) {
	for _, n := range st.Scene.Nodes() {
		drawNode(dc, st, n)
	}
}

func drawNode(dc *gg.Context, st State, n *scene.Node) {
	v := st.Viewport
	zoom := v.Zoom
	tl := v.WorldToScreen(geometry.Point2D{X: n.X, Y: n.Y})
	w := n.Width * zoom
	h := n.Height * zoom
	r := cornerRadius * zoom
	hh := headerHeight * zoom

	// Body.
	dc.DrawRoundedRectangle(tl.X, tl.Y, w, h, r)
	dc.SetColor(colorutil.NodeBody)
	dc.FillPreserve()
	if n.ID == st.SelectedID {
		dc.SetColor(colorutil.Selection)
		dc.SetLineWidth(math.Max(1, 2.5*zoom))
	} else {
		dc.SetColor(colorutil.NodeBorder)
		dc.SetLineWidth(math.Max(1, 1.5*zoom))
	}
	dc.Stroke()

	// Header bar keyed by category; square off its bottom corners so only
	// the top matches the body's rounding.
	header := scene.CategoryOf(n.Type).HeaderColor()
	dc.SetColor(header)
	dc.DrawRoundedRectangle(tl.X, tl.Y, w, hh, r)
	dc.Fill()
	dc.DrawRectangle(tl.X, tl.Y+hh/2, w, hh/2)
	dc.Fill()

	// Label centered in the area below the header.
	dc.SetFontFace(faceForZoom(zoom))
	dc.SetColor(colorutil.LabelText)
	label := fitLabel(dc, n.Label, w-2*labelPadding*zoom)
	dc.DrawStringAnchored(label, tl.X+w/2, tl.Y+hh+(h-hh)/2, 0.5, 0.5)

	// Handles: green input on the left edge, blue output on the right,
	// both with a white outline.
	hr := handleDrawRadius * zoom
	outline := math.Max(1, 1.5*zoom)
	in := v.WorldToScreen(n.InputPos())
	dc.DrawCircle(in.X, in.Y, hr)
	dc.SetColor(colorutil.InputHandle)
	dc.FillPreserve()
	dc.SetColor(colorutil.White)
	dc.SetLineWidth(outline)
	dc.Stroke()

	out := v.WorldToScreen(n.OutputPos())
	dc.DrawCircle(out.X, out.Y, hr)
	dc.SetColor(colorutil.OutputHandle)
	dc.FillPreserve()
	dc.SetColor(colorutil.White)
	dc.SetLineWidth(outline)
	dc.Stroke()

	// Disabled nodes get washed out under a translucent overlay.
	if !n.Enabled {
		dc.DrawRoundedRectangle(tl.X, tl.Y, w, h, r)
		dc.SetColor(colorutil.WithAlpha(colorutil.CanvasBackground, 170))
		dc.Fill()
	}
}

// fitLabel trims the label with an ellipsis until it fits maxW pixels.
func fitLabel(dc *gg.Context, label string, maxW float64) string {
	if w, _ := dc.MeasureString(label); w <= maxW {
		return label
	}
	runes := []rune(label)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if w, _ := dc.MeasureString(candidate); w <= maxW {
			return candidate
		}
	}
	return "…"
}

var (
	fontOnce sync.Once
	baseFont *truetype.Font

	faceMu    sync.Mutex
	faceCache = map[int]font.Face{}
)

// faceForZoom returns a label face scaled for the zoom level. Faces are
// cached on half-point boundaries; the zoom range keeps the cache small.
func faceForZoom(zoom float64) font.Face {
	fontOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			panic("render: parse embedded font: " + err.Error())
		}
		baseFont = f
	})

	key := int(math.Round(labelFontSize * zoom * 2))
	if key < 2 {
		key = 2
	}
	faceMu.Lock()
	defer faceMu.Unlock()
	if f, ok := faceCache[key]; ok {
		return f
	}
	f := truetype.NewFace(baseFont, &truetype.Options{Size: float64(key) / 2})
	faceCache[key] = f
	return f
}
