// Package history implements linear snapshot-based undo/redo over the
// editor scene. One snapshot per committed user action; intermediate drag
// frames are never recorded.
package history

import (
	"flow-studio/internal/scene"
)

// Snapshot is a deep, self-contained copy of a scene: cloned nodes plus
// connections kept as id pairs. Restoring re-resolves the pairs against the
// restored node list, so a snapshot never holds live pointers into a scene.
type Snapshot struct {
	Nodes       []*scene.Node
	Connections []scene.Connection
}

// Manager keeps a linear stack of snapshots and a cursor into it. The entry
// at cursor 0 is the initial (normally empty) state, which makes the empty
// canvas a valid undo target.
type Manager struct {
	entries []Snapshot
	cursor  int
}

// New returns a manager seeded with a snapshot of the given scene.
func New(s *scene.Scene) *Manager {
	return &Manager{entries: []Snapshot{capture(s)}}
}

// Commit truncates any redo tail, appends a deep snapshot of the scene and
// advances the cursor. Standard linear history: taking a new action after an
// undo discards what was undone.
func (m *Manager) Commit(s *scene.Scene) {
	m.entries = append(m.entries[:m.cursor+1], capture(s))
	m.cursor++
}

// CanUndo reports whether an earlier snapshot exists.
func (m *Manager) CanUndo() bool {
	return m.cursor > 0
}

// CanRedo reports whether a later snapshot exists.
func (m *Manager) CanRedo() bool {
	return m.cursor < len(m.entries)-1
}

// Undo moves the cursor back one entry and restores that snapshot into the
// scene. Reports whether anything changed; undoing past the start is a
// no-op.
func (m *Manager) Undo(s *scene.Scene) bool {
	if !m.CanUndo() {
		return false
	}
	m.cursor--
	restore(s, m.entries[m.cursor])
	return true
}

// Redo moves the cursor forward one entry and restores that snapshot into
// the scene. Reports whether anything changed; redoing past the end is a
// no-op.
func (m *Manager) Redo(s *scene.Scene) bool {
	if !m.CanRedo() {
		return false
	}
	m.cursor++
	restore(s, m.entries[m.cursor])
	return true
}

// Len returns the number of stored snapshots.
func (m *Manager) Len() int {
	return len(m.entries)
}

// Cursor returns the index of the snapshot matching the live scene.
func (m *Manager) Cursor() int {
	return m.cursor
}

func capture(s *scene.Scene) Snapshot {
	snap := Snapshot{
		Nodes:       make([]*scene.Node, 0, s.NodeCount()),
		Connections: append([]scene.Connection(nil), s.Connections()...),
	}
	for _, n := range s.Nodes() {
		snap.Nodes = append(snap.Nodes, n.Clone())
	}
	return snap
}

// restore installs a deep copy of the snapshot; the snapshot itself must
// stay untouched so it can be restored again.
func restore(s *scene.Scene, snap Snapshot) {
	nodes := make([]*scene.Node, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes = append(nodes, n.Clone())
	}
	s.Replace(nodes, append([]scene.Connection(nil), snap.Connections...))
}
