// Package interaction turns pointer and key input into scene and viewport
// mutations. The gesture machine is plain logic over an Editor interface so
// it can be driven headless in tests; the canvas widget feeds it events and
// redraws after each call.
package interaction

import (
	"flow-studio/internal/scene"
	"flow-studio/pkg/geometry"
)

// State is the gesture the machine is currently in. Every gesture starts
// and ends in Idle.
type State int

const (
	Idle State = iota
	DraggingNode
	Panning
	ConnectingEdge
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case DraggingNode:
		return "dragging-node"
	case Panning:
		return "panning"
	case ConnectingEdge:
		return "connecting-edge"
	default:
		return "idle"
	}
}

// Zoom factors applied per wheel notch. Zoom changes multiplicatively so
// steps feel even at every scale.
const (
	zoomInFactor  = 1.1
	zoomOutFactor = 0.9
)

// Editor is the surface a gesture drives: the scene being edited, the
// viewport, the selection, and a history commit for completed mutations.
// app.State satisfies it.
type Editor interface {
	Scene() *scene.Scene
	Viewport() geometry.Viewport
	SetViewport(geometry.Viewport)
	Selection() string
	Select(id string)
	Commit()
}

// Machine tracks one pointer gesture at a time. All methods take canvas
// pixel coordinates; the machine converts to world space itself using the
// editor's current viewport.
type Machine struct {
	ed Editor

	state State

	// DraggingNode gesture.
	dragID     string
	grabOffset geometry.Point2D
	dragStart  geometry.Point2D

	// Panning gesture.
	lastScreen geometry.Point2D

	// ConnectingEdge gesture.
	sourceID    string
	previewFrom geometry.Point2D
	previewTo   geometry.Point2D
}

// New returns an idle machine driving ed.
func New(ed Editor) *Machine {
	return &Machine{ed: ed}
}

// State returns the current gesture state.
func (m *Machine) State() State {
	return m.state
}

// Preview returns the endpoints of the connection being dragged out of an
// output handle, in world space. active is false outside ConnectingEdge.
func (m *Machine) Preview() (from, to geometry.Point2D, active bool) {
	return m.previewFrom, m.previewTo, m.state == ConnectingEdge
}

// PointerDown starts a gesture from a press. Hit-test order decides which:
// an output handle starts a connection drag, a node body selects the node
// and starts a move, empty background clears the selection and starts a
// pan. A press while a gesture is already active is ignored.
func (m *Machine) PointerDown(screen geometry.Point2D) {
	if m.state != Idle {
		return
	}
	world := m.ed.Viewport().ScreenToWorld(screen)

	if n := m.ed.Scene().NodeAtOutputHandle(world); n != nil {
		m.state = ConnectingEdge
		m.sourceID = n.ID
		m.previewFrom = n.OutputPos()
		m.previewTo = world
		return
	}
	if n := m.ed.Scene().NodeAt(world); n != nil {
		m.state = DraggingNode
		m.dragID = n.ID
		m.grabOffset = world.Sub(geometry.Point2D{X: n.X, Y: n.Y})
		m.dragStart = geometry.Point2D{X: n.X, Y: n.Y}
		m.ed.Select(n.ID)
		return
	}
	m.state = Panning
	m.lastScreen = screen
	m.ed.Select("")
}

// PointerMove advances the active gesture. A node drag keeps the grabbed
// point under the cursor in world space; a pan applies the raw screen
// delta, never divided by zoom; a connection drag moves only the preview
// endpoint.
func (m *Machine) PointerMove(screen geometry.Point2D) {
	switch m.state {
	case DraggingNode:
		pos := m.ed.Viewport().ScreenToWorld(screen).Sub(m.grabOffset)
		m.ed.Scene().MoveNode(m.dragID, pos.X, pos.Y)
	case Panning:
		m.ed.SetViewport(m.ed.Viewport().Pan(screen.X-m.lastScreen.X, screen.Y-m.lastScreen.Y))
		m.lastScreen = screen
	case ConnectingEdge:
		m.previewTo = m.ed.Viewport().ScreenToWorld(screen)
	}
}

// PointerUp ends the gesture and returns to Idle. A node drag commits once
// if the node actually moved; a pan commits nothing; a connection drag
// adds the connection when released on another node's input handle and
// commits only if the scene accepted it.
func (m *Machine) PointerUp(screen geometry.Point2D) {
	switch m.state {
	case DraggingNode:
		if n := m.ed.Scene().FindNode(m.dragID); n != nil {
			if n.X != m.dragStart.X || n.Y != m.dragStart.Y {
				m.ed.Commit()
			}
		}
	case ConnectingEdge:
		world := m.ed.Viewport().ScreenToWorld(screen)
		if t := m.ed.Scene().NodeAtInputHandle(world); t != nil && t.ID != m.sourceID {
			if m.ed.Scene().AddConnection(m.sourceID, t.ID) {
				m.ed.Commit()
			}
		}
	}
	m.state = Idle
}

// Wheel applies one zoom notch anchored at the cursor so the world point
// under it stays put. up zooms in.
func (m *Machine) Wheel(screen geometry.Point2D, up bool) {
	factor := zoomOutFactor
	if up {
		factor = zoomInFactor
	}
	m.ed.SetViewport(m.ed.Viewport().ZoomAt(screen, factor))
}

// DeleteSelected removes the selected node and its connections in one
// history step. No-op without a selection; a stale selection is cleared
// without committing.
func (m *Machine) DeleteSelected() {
	id := m.ed.Selection()
	if id == "" {
		return
	}
	if m.ed.Scene().FindNode(id) == nil {
		m.ed.Select("")
		return
	}
	m.ed.Scene().DeleteNode(id)
	m.ed.Select("")
	m.ed.Commit()
}
