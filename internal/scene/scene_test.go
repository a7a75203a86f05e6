package scene

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flow-studio/pkg/geometry"
)

func TestAddNodeDefaults(t *testing.T) {
	t.Parallel()

	s := New()
	n := s.AddNode("PROCESSOR_LLM", 100, 100)

	require.Equal(t, "node-1", n.ID)
	require.Equal(t, "PROCESSOR_LLM", n.Type)
	require.Equal(t, "LLM Processor", n.Label)
	require.Equal(t, 100.0, n.X)
	require.Equal(t, 100.0, n.Y)
	require.Equal(t, DefaultNodeWidth, n.Width)
	require.Equal(t, DefaultNodeHeight, n.Height)
	require.NotNil(t, n.Config)
	require.Empty(t, n.Config)
	require.True(t, n.Enabled)
}

func TestNodeIDsNeverRepeatAfterDeletion(t *testing.T) {
	t.Parallel()

	s := New()
	a := s.AddNode("PROCESSOR_LLM", 0, 0)
	b := s.AddNode("OUTPUT_EMAIL", 10, 10)
	require.Equal(t, "node-2", b.ID)

	s.DeleteNode(a.ID)
	s.DeleteNode(b.ID)
	require.Zero(t, s.NodeCount())

	c := s.AddNode("CONDITION_IF", 20, 20)
	require.Equal(t, "node-3", c.ID)
}

func TestAddConnectionRejections(t *testing.T) {
	t.Parallel()

	s := New()
	a := s.AddNode("DATA_SOURCE_API", 0, 0)
	b := s.AddNode("OUTPUT_EMAIL", 300, 0)

	require.True(t, s.AddConnection(a.ID, b.ID))
	require.False(t, s.AddConnection(a.ID, b.ID), "duplicate ordered pair")
	require.False(t, s.AddConnection(a.ID, a.ID), "self connection")
	require.False(t, s.AddConnection(a.ID, "node-99"), "absent target")
	require.False(t, s.AddConnection("node-99", b.ID), "absent source")
	require.Equal(t, 1, s.ConnectionCount())

	// Reverse direction is a distinct pair and is allowed.
	require.True(t, s.AddConnection(b.ID, a.ID))
	require.Equal(t, 2, s.ConnectionCount())

	c := s.Connections()[0]
	require.Equal(t, HandleOutput, c.SourceHandle)
	require.Equal(t, HandleInput, c.TargetHandle)
}

func TestDeleteNodeCascadesConnections(t *testing.T) {
	t.Parallel()

	s := New()
	a := s.AddNode("DATA_SOURCE_API", 0, 0)
	b := s.AddNode("PROCESSOR_LLM", 300, 0)
	c := s.AddNode("OUTPUT_EMAIL", 600, 0)
	require.True(t, s.AddConnection(a.ID, b.ID))
	require.True(t, s.AddConnection(b.ID, c.ID))
	require.True(t, s.AddConnection(a.ID, c.ID))

	s.DeleteNode(b.ID)

	require.Equal(t, 2, s.NodeCount())
	require.Equal(t, 1, s.ConnectionCount())
	for _, conn := range s.Connections() {
		require.NotEqual(t, b.ID, conn.Source)
		require.NotEqual(t, b.ID, conn.Target)
	}
	// The connection not touching the deleted node survives untouched.
	require.Equal(t, a.ID, s.Connections()[0].Source)
	require.Equal(t, c.ID, s.Connections()[0].Target)
}

func TestDeleteNodeAbsentIsNoOp(t *testing.T) {
	t.Parallel()

	s := New()
	s.AddNode("PROCESSOR_LLM", 0, 0)
	s.DeleteNode("node-42")
	require.Equal(t, 1, s.NodeCount())
}

func TestNodeAtReturnsTopmost(t *testing.T) {
	t.Parallel()

	s := New()
	bottom := s.AddNode("DATA_SOURCE_API", 0, 0)
	top := s.AddNode("PROCESSOR_LLM", 50, 20)

	// Point inside both boxes: the later node wins.
	hit := s.NodeAt(geometry.Point2D{X: 60, Y: 30})
	require.NotNil(t, hit)
	require.Equal(t, top.ID, hit.ID)

	// Point only inside the first box.
	hit = s.NodeAt(geometry.Point2D{X: 5, Y: 5})
	require.NotNil(t, hit)
	require.Equal(t, bottom.ID, hit.ID)

	// Bounding boxes are inclusive on the far edge.
	hit = s.NodeAt(geometry.Point2D{X: bottom.X + bottom.Width, Y: bottom.Y + 5})
	require.NotNil(t, hit)

	require.Nil(t, s.NodeAt(geometry.Point2D{X: -1000, Y: -1000}))
}

func TestHandleHitZones(t *testing.T) {
	t.Parallel()

	s := New()
	n := s.AddNode("PROCESSOR_LLM", 100, 100)

	out := n.OutputPos()
	require.Equal(t, geometry.Point2D{X: 100 + DefaultNodeWidth, Y: 100 + DefaultNodeHeight/2}, out)
	in := n.InputPos()
	require.Equal(t, geometry.Point2D{X: 100, Y: 100 + DefaultNodeHeight/2}, in)

	require.NotNil(t, s.NodeAtOutputHandle(geometry.Point2D{X: out.X + HandleHitRadius, Y: out.Y}))
	require.Nil(t, s.NodeAtOutputHandle(geometry.Point2D{X: out.X + HandleHitRadius + 0.01, Y: out.Y}))
	require.NotNil(t, s.NodeAtInputHandle(geometry.Point2D{X: in.X, Y: in.Y - HandleHitRadius}))
	require.Nil(t, s.NodeAtInputHandle(geometry.Point2D{X: in.X, Y: in.Y - HandleHitRadius - 0.01}))
}

func TestMoveNodeAllowsOverlap(t *testing.T) {
	t.Parallel()

	s := New()
	a := s.AddNode("DATA_SOURCE_API", 0, 0)
	b := s.AddNode("PROCESSOR_LLM", 500, 500)

	s.MoveNode(b.ID, a.X, a.Y)
	require.Equal(t, a.X, b.X)
	require.Equal(t, a.Y, b.Y)
	require.True(t, a.Rect().Intersects(b.Rect()))

	s.MoveNode("node-99", 1, 1) // absent: no-op, no panic
}

func TestContentBounds(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok := s.ContentBounds()
	require.False(t, ok)

	s.AddNode("DATA_SOURCE_API", 0, 0)
	s.AddNode("OUTPUT_EMAIL", 400, 100)
	bounds, ok := s.ContentBounds()
	require.True(t, ok)
	require.Equal(t, geometry.Rect{X: 0, Y: 0, Width: 400 + DefaultNodeWidth, Height: 100 + DefaultNodeHeight}, bounds)
}

func TestDuplicateNode(t *testing.T) {
	t.Parallel()

	s := New()
	a := s.AddNode("PROCESSOR_LLM", 100, 100)
	a.Config["model"] = "gpt"
	b := s.AddNode("OUTPUT_EMAIL", 400, 100)
	require.True(t, s.AddConnection(a.ID, b.ID))

	dup := s.DuplicateNode(a.ID)
	require.NotNil(t, dup)
	require.Equal(t, "node-3", dup.ID)
	require.Equal(t, a.X+duplicateOffset, dup.X)
	require.Equal(t, a.Y+duplicateOffset, dup.Y)
	require.Equal(t, a.Config, dup.Config)

	// The copy owns its config and carries none of the connections.
	dup.Config["model"] = "other"
	require.Equal(t, "gpt", a.Config["model"])
	require.Equal(t, 1, s.ConnectionCount())

	require.Nil(t, s.DuplicateNode("node-99"))
}

func TestClearKeepsCounting(t *testing.T) {
	t.Parallel()

	s := New()
	s.AddNode("DATA_SOURCE_API", 0, 0)
	s.AddNode("PROCESSOR_LLM", 10, 10)
	s.Clear()
	require.Zero(t, s.NodeCount())
	require.Zero(t, s.ConnectionCount())

	n := s.AddNode("OUTPUT_EMAIL", 0, 0)
	require.Equal(t, "node-3", n.ID)
}

func TestPropertySetters(t *testing.T) {
	t.Parallel()

	s := New()
	n := s.AddNode("PROCESSOR_LLM", 0, 0)

	require.True(t, s.SetLabel(n.ID, "Summarize"))
	require.Equal(t, "Summarize", n.Label)

	require.True(t, s.SetEnabled(n.ID, false))
	require.False(t, n.Enabled)

	require.True(t, s.SetConfigValue(n.ID, "model", "small"))
	require.Equal(t, "small", n.Config["model"])
	require.True(t, s.DeleteConfigValue(n.ID, "model"))
	require.NotContains(t, n.Config, "model")

	require.False(t, s.SetLabel("node-99", "x"))
	require.False(t, s.SetEnabled("node-99", true))
	require.False(t, s.SetConfigValue("node-99", "k", 1))
	require.False(t, s.DeleteConfigValue("node-99", "k"))
}

func TestReplaceDropsInvalidConnections(t *testing.T) {
	t.Parallel()

	s := New()
	nodes := []*Node{
		{ID: "node-3", Type: "DATA_SOURCE_API", Width: DefaultNodeWidth, Height: DefaultNodeHeight, Enabled: true},
		{ID: "node-7", Type: "OUTPUT_EMAIL", X: 300, Width: DefaultNodeWidth, Height: DefaultNodeHeight, Enabled: true},
	}
	conns := []Connection{
		{Source: "node-3", Target: "node-7"},
		{Source: "node-3", Target: "node-7"},  // duplicate pair
		{Source: "node-3", Target: "node-3"},  // self
		{Source: "node-3", Target: "node-99"}, // dangling
	}

	s.Replace(nodes, conns)

	require.Equal(t, 2, s.NodeCount())
	require.Equal(t, 1, s.ConnectionCount())
	got := s.Connections()[0]
	require.Equal(t, HandleOutput, got.SourceHandle, "missing handles are filled in")
	require.Equal(t, HandleInput, got.TargetHandle)

	// Counter has moved past the largest installed id.
	n := s.AddNode("CONDITION_IF", 0, 0)
	require.Equal(t, "node-8", n.ID)
}

func TestReplaceIgnoresForeignIDsForCounter(t *testing.T) {
	t.Parallel()

	s := New()
	s.Replace([]*Node{{ID: "step-alpha", Type: "PROCESSOR_LLM", Enabled: true}}, nil)
	n := s.AddNode("OUTPUT_EMAIL", 0, 0)
	require.Equal(t, "node-1", n.ID)
}
