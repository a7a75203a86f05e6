// Package layout derives graph-level structure from a scene: a valid
// execution order for the backend, and an automatic column arrangement of
// node positions by dependency depth.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"flow-studio/internal/scene"
)

// Spacing between auto-arranged nodes in world units.
const (
	arrangeOriginX = 60.0
	arrangeOriginY = 60.0
	columnGap      = 100.0
	rowGap         = 40.0
)

// CycleError reports that the connections form at least one dependency
// cycle, naming the nodes involved.
type CycleError struct {
	NodeIDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("workflow contains a cycle through %s", strings.Join(e.NodeIDs, ", "))
}

// ExecutionOrder returns node ids in a source-to-sink order the backend
// could run them in. Disconnected nodes are included. Returns a *CycleError
// when the graph cannot be ordered.
func ExecutionOrder(s *scene.Scene) ([]string, error) {
	g, ids := buildGraph(s)

	sorted, err := topo.Sort(g)
	if err != nil {
		var unorderable topo.Unorderable
		if errors.As(err, &unorderable) {
			var cyclic []string
			for _, component := range unorderable {
				for _, n := range component {
					cyclic = append(cyclic, ids[n.ID()])
				}
			}
			sort.Strings(cyclic)
			return nil, &CycleError{NodeIDs: cyclic}
		}
		return nil, fmt.Errorf("order workflow graph: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for _, n := range sorted {
		order = append(order, ids[n.ID()])
	}
	return order, nil
}

// Arrange assigns new node positions: columns by dependency depth (a node
// sits one column right of its deepest predecessor), rows within a column
// in scene order. Nodes trapped in cycles are stacked in one extra column
// after everything orderable. Positions change; nothing else does.
func Arrange(s *scene.Scene) {
	if s.NodeCount() == 0 {
		return
	}
	g, ids := buildGraph(s)

	sorted, err := topo.Sort(g)
	if err != nil && !errors.As(err, new(topo.Unorderable)) {
		return
	}

	// Longest-path depth, walked in topological order. Unorderable members
	// appear as nil placeholders in the sorted slice.
	depth := make(map[string]int, s.NodeCount())
	maxDepth := 0
	for _, gn := range sorted {
		if gn == nil {
			continue
		}
		id := ids[gn.ID()]
		d := 0
		preds := g.To(gn.ID())
		for preds.Next() {
			if pd, ok := depth[ids[preds.Node().ID()]]; ok && pd+1 > d {
				d = pd + 1
			}
		}
		depth[id] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	cycleColumn := maxDepth + 1
	rows := map[int]int{}
	for _, n := range s.Nodes() {
		d, ok := depth[n.ID]
		if !ok {
			d = cycleColumn
		}
		row := rows[d]
		rows[d] = row + 1
		s.MoveNode(n.ID,
			arrangeOriginX+float64(d)*(scene.DefaultNodeWidth+columnGap),
			arrangeOriginY+float64(row)*(scene.DefaultNodeHeight+rowGap))
	}
}

// buildGraph maps scene nodes onto dense gonum int64 ids. The returned
// slice maps them back: ids[i] is the scene id of graph node i.
func buildGraph(s *scene.Scene) (*simple.DirectedGraph, []string) {
	g := simple.NewDirectedGraph()
	ids := make([]string, 0, s.NodeCount())
	index := make(map[string]int64, s.NodeCount())

	for i, n := range s.Nodes() {
		g.AddNode(simple.Node(int64(i)))
		ids = append(ids, n.ID)
		index[n.ID] = int64(i)
	}
	for _, c := range s.Connections() {
		g.SetEdge(g.NewEdge(simple.Node(index[c.Source]), simple.Node(index[c.Target])))
	}
	return g, ids
}
