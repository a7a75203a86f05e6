// Package scene implements the workflow graph the editor manipulates: typed
// nodes placed in world space and the directed connections between them.
// A Scene is owned by exactly one goroutine (the UI thread); it performs no
// locking of its own.
package scene

import (
	"fmt"
	"strconv"
	"strings"

	"flow-studio/pkg/geometry"
)

// Default node dimensions in world units. Nodes are not user-resizable.
const (
	DefaultNodeWidth  = 180.0
	DefaultNodeHeight = 70.0
)

// HandleHitRadius is the radius in world units of the circular hot-zone
// around a connection handle used for hit-testing.
const HandleHitRadius = 8.0

// Handle identifiers carried on every connection. Connections always run
// from a source node's output handle to a target node's input handle.
const (
	HandleOutput = "output"
	HandleInput  = "input"
)

// duplicateOffset is how far a duplicated node is placed from its original.
const duplicateOffset = 30.0

// Node is a single workflow step placed on the canvas. Position is the
// top-left corner in world coordinates.
type Node struct {
	ID      string
	Type    string
	Label   string
	X       float64
	Y       float64
	Width   float64
	Height  float64
	Config  map[string]any
	Enabled bool
}

// Rect returns the node's bounding box in world space.
func (n *Node) Rect() geometry.Rect {
	return geometry.Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// InputPos returns the world position of the input handle, centered on the
// left-middle edge.
func (n *Node) InputPos() geometry.Point2D {
	return geometry.Point2D{X: n.X, Y: n.Y + n.Height/2}
}

// OutputPos returns the world position of the output handle, centered on the
// right-middle edge.
func (n *Node) OutputPos() geometry.Point2D {
	return geometry.Point2D{X: n.X + n.Width, Y: n.Y + n.Height/2}
}

// Clone returns a deep copy of the node, including its config map.
func (n *Node) Clone() *Node {
	c := *n
	c.Config = make(map[string]any, len(n.Config))
	for k, v := range n.Config {
		c.Config[k] = v
	}
	return &c
}

// Connection joins the output handle of one node to the input handle of
// another. Endpoints are stored as node ids, never pointers, so snapshots
// and documents can re-resolve them.
type Connection struct {
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
}

// Scene owns the node list and the connection list. Node order is draw
// order: later nodes draw on top and win hit-testing ties.
type Scene struct {
	nodes       []*Node
	connections []Connection
	nextID      int
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{nextID: 1}
}

// AddNode creates a node of the given type at (x, y) and appends it on top
// of the draw order. The id comes from a monotonic counter and is never
// reused, even after deletions. The node starts with the default size, an
// empty config and enabled=true.
func (s *Scene) AddNode(nodeType string, x, y float64) *Node {
	n := &Node{
		ID:      fmt.Sprintf("node-%d", s.nextID),
		Type:    nodeType,
		Label:   DisplayLabel(nodeType),
		X:       x,
		Y:       y,
		Width:   DefaultNodeWidth,
		Height:  DefaultNodeHeight,
		Config:  map[string]any{},
		Enabled: true,
	}
	s.nextID++
	s.nodes = append(s.nodes, n)
	return n
}

// DeleteNode removes the node and, in the same step, every connection whose
// source or target is the node. No-op if the id is absent.
func (s *Scene) DeleteNode(id string) {
	idx := -1
	for i, n := range s.nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	s.nodes = append(s.nodes[:idx], s.nodes[idx+1:]...)

	kept := s.connections[:0]
	for _, c := range s.connections {
		if c.Source != id && c.Target != id {
			kept = append(kept, c)
		}
	}
	s.connections = kept
}

// AddConnection appends a connection from source's output handle to
// target's input handle and reports whether it was added. Self-connections,
// absent endpoints and duplicate (source, target) pairs are silently
// ignored; a sloppy pointer release is normal, not an error.
func (s *Scene) AddConnection(source, target string) bool {
	if source == target {
		return false
	}
	if s.FindNode(source) == nil || s.FindNode(target) == nil {
		return false
	}
	for _, c := range s.connections {
		if c.Source == source && c.Target == target {
			return false
		}
	}
	s.connections = append(s.connections, Connection{
		Source:       source,
		Target:       target,
		SourceHandle: HandleOutput,
		TargetHandle: HandleInput,
	})
	return true
}

// MoveNode sets the node's position. Overlap with other nodes is allowed;
// no-op if the id is absent.
func (s *Scene) MoveNode(id string, x, y float64) {
	if n := s.FindNode(id); n != nil {
		n.X = x
		n.Y = y
	}
}

// FindNode returns the node with the given id, or nil.
func (s *Scene) FindNode(id string) *Node {
	for _, n := range s.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// NodeAt returns the topmost node whose bounding box contains the world
// point, or nil. Later nodes in the draw order win.
func (s *Scene) NodeAt(p geometry.Point2D) *Node {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].Rect().Contains(p) {
			return s.nodes[i]
		}
	}
	return nil
}

// NodeAtOutputHandle returns the topmost node whose output-handle hot-zone
// contains the world point, or nil.
func (s *Scene) NodeAtOutputHandle(p geometry.Point2D) *Node {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].OutputPos().Distance(p) <= HandleHitRadius {
			return s.nodes[i]
		}
	}
	return nil
}

// NodeAtInputHandle returns the topmost node whose input-handle hot-zone
// contains the world point, or nil.
func (s *Scene) NodeAtInputHandle(p geometry.Point2D) *Node {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if s.nodes[i].InputPos().Distance(p) <= HandleHitRadius {
			return s.nodes[i]
		}
	}
	return nil
}

// Nodes returns the node list in draw order. The slice is owned by the
// scene; callers must not modify it.
func (s *Scene) Nodes() []*Node {
	return s.nodes
}

// Connections returns the connection list. The slice is owned by the scene;
// callers must not modify it.
func (s *Scene) Connections() []Connection {
	return s.connections
}

// NodeCount returns the number of nodes.
func (s *Scene) NodeCount() int {
	return len(s.nodes)
}

// ConnectionCount returns the number of connections.
func (s *Scene) ConnectionCount() int {
	return len(s.connections)
}

// ContentBounds returns the union bounding box of all node rectangles.
// ok is false when the scene has no nodes.
func (s *Scene) ContentBounds() (bounds geometry.Rect, ok bool) {
	if len(s.nodes) == 0 {
		return geometry.Rect{}, false
	}
	bounds = s.nodes[0].Rect()
	for _, n := range s.nodes[1:] {
		bounds = bounds.Union(n.Rect())
	}
	return bounds, true
}

// DuplicateNode appends a copy of the node with a fresh id, offset slightly
// so the copy is visible. Connections are not copied. Returns nil if the id
// is absent.
func (s *Scene) DuplicateNode(id string) *Node {
	src := s.FindNode(id)
	if src == nil {
		return nil
	}
	dup := src.Clone()
	dup.ID = fmt.Sprintf("node-%d", s.nextID)
	s.nextID++
	dup.X += duplicateOffset
	dup.Y += duplicateOffset
	s.nodes = append(s.nodes, dup)
	return dup
}

// Clear removes every node and connection. The id counter keeps counting so
// ids from before the clear are never reissued.
func (s *Scene) Clear() {
	s.nodes = nil
	s.connections = nil
}

// SetLabel updates a node's label. Reports whether the node exists.
func (s *Scene) SetLabel(id, label string) bool {
	n := s.FindNode(id)
	if n == nil {
		return false
	}
	n.Label = label
	return true
}

// SetEnabled updates a node's enabled flag. Reports whether the node exists.
func (s *Scene) SetEnabled(id string, enabled bool) bool {
	n := s.FindNode(id)
	if n == nil {
		return false
	}
	n.Enabled = enabled
	return true
}

// SetConfigValue sets one key of a node's config map. Reports whether the
// node exists.
func (s *Scene) SetConfigValue(id, key string, value any) bool {
	n := s.FindNode(id)
	if n == nil {
		return false
	}
	if n.Config == nil {
		n.Config = map[string]any{}
	}
	n.Config[key] = value
	return true
}

// DeleteConfigValue removes one key of a node's config map. Reports whether
// the node exists.
func (s *Scene) DeleteConfigValue(id, key string) bool {
	n := s.FindNode(id)
	if n == nil {
		return false
	}
	delete(n.Config, key)
	return true
}

// Replace swaps in a new node and connection list, deep-copying nothing:
// the caller hands over ownership. Connections whose endpoints are missing,
// self-referential or duplicated are dropped silently, so the scene
// invariants hold no matter what the caller supplies. The id counter is
// advanced past every numeric node id so future AddNode calls cannot
// collide with the installed ids.
func (s *Scene) Replace(nodes []*Node, connections []Connection) {
	s.nodes = nodes
	s.connections = nil

	seen := make(map[[2]string]bool, len(connections))
	for _, c := range connections {
		if c.Source == c.Target {
			continue
		}
		if s.FindNode(c.Source) == nil || s.FindNode(c.Target) == nil {
			continue
		}
		key := [2]string{c.Source, c.Target}
		if seen[key] {
			continue
		}
		seen[key] = true
		if c.SourceHandle == "" {
			c.SourceHandle = HandleOutput
		}
		if c.TargetHandle == "" {
			c.TargetHandle = HandleInput
		}
		s.connections = append(s.connections, c)
	}

	for _, n := range nodes {
		if num, ok := numericSuffix(n.ID); ok && num >= s.nextID {
			s.nextID = num + 1
		}
	}
}

// numericSuffix extracts N from ids of the form "node-N".
func numericSuffix(id string) (int, bool) {
	rest, found := strings.CutPrefix(id, "node-")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
