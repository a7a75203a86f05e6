package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"flow-studio/internal/scene"
	"flow-studio/pkg/colorutil"
	"flow-studio/pkg/geometry"
)

func identityState(s *scene.Scene) State {
	return State{Scene: s, Viewport: geometry.NewViewport()}
}

func framesDiffer(a, b State, w, h int) bool {
	return !bytes.Equal(NewFrame(a, w, h).Pix, NewFrame(b, w, h).Pix)
}

func TestBezierControlPoints(t *testing.T) {
	t.Parallel()

	// Wide spans use half the horizontal distance.
	c1, c2 := BezierControlPoints(geometry.Point2D{X: 0, Y: 10}, geometry.Point2D{X: 300, Y: 90})
	require.Equal(t, geometry.Point2D{X: 150, Y: 10}, c1)
	require.Equal(t, geometry.Point2D{X: 150, Y: 90}, c2)

	// Short spans never drop below the 50-unit minimum.
	c1, c2 = BezierControlPoints(geometry.Point2D{X: 0, Y: 0}, geometry.Point2D{X: 40, Y: 200})
	require.Equal(t, geometry.Point2D{X: 50, Y: 0}, c1)
	require.Equal(t, geometry.Point2D{X: -10, Y: 200}, c2)

	// Backward connections keep the same outward bow.
	c1, c2 = BezierControlPoints(geometry.Point2D{X: 200, Y: 0}, geometry.Point2D{X: 0, Y: 0})
	require.Equal(t, geometry.Point2D{X: 300, Y: 0}, c1)
	require.Equal(t, geometry.Point2D{X: -100, Y: 0}, c2)
}

func TestNewFrameSize(t *testing.T) {
	t.Parallel()

	img := NewFrame(identityState(scene.New()), 320, 200)
	require.Equal(t, 320, img.Bounds().Dx())
	require.Equal(t, 200, img.Bounds().Dy())

	tiny := NewFrame(identityState(scene.New()), 0, -5)
	require.Equal(t, 1, tiny.Bounds().Dx())
	require.Equal(t, 1, tiny.Bounds().Dy())
}

func TestBackgroundFill(t *testing.T) {
	t.Parallel()

	img := NewFrame(identityState(scene.New()), 100, 100)
	require.Equal(t, colorutil.CanvasBackground, img.RGBAAt(50, 50))
	require.Equal(t, colorutil.CanvasBackground, img.RGBAAt(0, 0))
}

func TestGridOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	off := identityState(scene.New())
	on := off
	on.ShowGrid = true

	require.True(t, framesDiffer(off, on, 200, 120))

	// Without the grid every pixel is plain background.
	img := NewFrame(off, 200, 120)
	for x := 0; x < 200; x += 7 {
		require.Equal(t, colorutil.CanvasBackground, img.RGBAAt(x, 60))
	}

	// With the grid, the row crossed by vertical lines is no longer uniform.
	img = NewFrame(on, 200, 120)
	uniform := true
	for x := 0; x < 200; x++ {
		if img.RGBAAt(x, 60) != colorutil.CanvasBackground {
			uniform = false
			break
		}
	}
	require.False(t, uniform)
}

func TestNodeBodyAndHeaderColors(t *testing.T) {
	t.Parallel()

	s := scene.New()
	s.AddNode("PROCESSOR_LLM", 10, 10)
	img := NewFrame(identityState(s), 400, 200)

	// Interior of the header bar carries the processor category color.
	want := scene.CategoryProcessor.HeaderColor()
	require.Equal(t, want, img.RGBAAt(55, 21))

	// Interior of the body below the header is the node fill.
	require.Equal(t, colorutil.NodeBody, img.RGBAAt(30, 50))

	// Outside the node is still background.
	require.Equal(t, colorutil.CanvasBackground, img.RGBAAt(350, 150))
}

func TestNodeScalesWithZoom(t *testing.T) {
	t.Parallel()

	s := scene.New()
	s.AddNode("PROCESSOR_LLM", 10, 10)
	st := State{Scene: s, Viewport: geometry.Viewport{Zoom: 2}}
	img := NewFrame(st, 500, 300)

	// At zoom 2 the node spans screen x 20..380; a point inside the scaled
	// body is node fill, a point just past the scaled edge is background.
	require.Equal(t, colorutil.NodeBody, img.RGBAAt(350, 90))
	require.Equal(t, colorutil.CanvasBackground, img.RGBAAt(395, 90))
}

func TestDisabledOverlayWashesNode(t *testing.T) {
	t.Parallel()

	s := scene.New()
	n := s.AddNode("PROCESSOR_LLM", 10, 10)
	enabled := NewFrame(identityState(s), 400, 200).RGBAAt(30, 50)

	s.SetEnabled(n.ID, false)
	disabled := NewFrame(identityState(s), 400, 200).RGBAAt(30, 50)

	require.Equal(t, colorutil.NodeBody, enabled)
	require.NotEqual(t, enabled, disabled)
}

func TestSelectionChangesBorder(t *testing.T) {
	t.Parallel()

	s := scene.New()
	n := s.AddNode("OUTPUT_EMAIL", 40, 40)

	plain := identityState(s)
	selected := plain
	selected.SelectedID = n.ID
	require.True(t, framesDiffer(plain, selected, 400, 240))
}

func TestConnectionIsDrawn(t *testing.T) {
	t.Parallel()

	s := scene.New()
	a := s.AddNode("DATA_SOURCE_API", 10, 10)
	b := s.AddNode("OUTPUT_EMAIL", 400, 100)
	before := NewFrame(identityState(s), 700, 300)

	require.True(t, s.AddConnection(a.ID, b.ID))
	after := NewFrame(identityState(s), 700, 300)

	require.False(t, bytes.Equal(before.Pix, after.Pix))

	// The curve midpoint lies halfway between the two handles; some pixel
	// near it must no longer be background.
	mid := struct{ x, y int }{295, 90}
	found := false
	for dx := -3; dx <= 3 && !found; dx++ {
		for dy := -3; dy <= 3 && !found; dy++ {
			if after.RGBAAt(mid.x+dx, mid.y+dy) != colorutil.CanvasBackground {
				found = true
			}
		}
	}
	require.True(t, found, "no connection stroke near the curve midpoint")
}

func TestPreviewIsDrawnWhileConnecting(t *testing.T) {
	t.Parallel()

	s := scene.New()
	n := s.AddNode("DATA_SOURCE_API", 10, 10)

	idle := identityState(s)
	connecting := idle
	connecting.Preview = &Preview{From: n.OutputPos(), To: geometry.Point2D{X: 500, Y: 200}}
	require.True(t, framesDiffer(idle, connecting, 640, 360))
}

func TestFitLabelKeepsShortLabels(t *testing.T) {
	t.Parallel()

	// A long label must be trimmed, but trimming must not corrupt a frame:
	// render a node whose label is far wider than the node.
	s := scene.New()
	n := s.AddNode("PROCESSOR_LLM", 10, 10)
	s.SetLabel(n.ID, "An Exceedingly Verbose Label That Cannot Possibly Fit")
	img := NewFrame(identityState(s), 400, 200)
	require.Equal(t, colorutil.NodeBody, img.RGBAAt(16, 36), "label never paints outside the node")
}
