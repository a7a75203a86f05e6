// Package workflow handles the workflow document: the JSON form of a scene
// exchanged with the backend API, the local library and import/export files.
package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"flow-studio/internal/scene"
)

// Position is a node's world-space location on the wire.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is the wire form of one workflow step.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Label    string         `json:"label"`
	Position Position       `json:"position"`
	Config   map[string]any `json:"config"`
	Enabled  bool           `json:"enabled"`
}

// Connection is the wire form of one edge.
type Connection struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}

// Document is a complete workflow as written to disk and sent to the server.
type Document struct {
	Name        string       `json:"name"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// FromScene captures the scene as a document under the given name. Node
// order is preserved so a later import restores the same draw order.
func FromScene(s *scene.Scene, name string) Document {
	doc := Document{
		Name:        name,
		Nodes:       make([]Node, 0, s.NodeCount()),
		Connections: make([]Connection, 0, s.ConnectionCount()),
	}
	for _, n := range s.Nodes() {
		// The document owns its config maps: captures must stay stable
		// while a save goroutine marshals them.
		cfg := make(map[string]any, len(n.Config))
		for k, v := range n.Config {
			cfg[k] = v
		}
		doc.Nodes = append(doc.Nodes, Node{
			ID:       n.ID,
			Type:     n.Type,
			Label:    n.Label,
			Position: Position{X: n.X, Y: n.Y},
			Config:   cfg,
			Enabled:  n.Enabled,
		})
	}
	for _, c := range s.Connections() {
		doc.Connections = append(doc.Connections, Connection{
			Source:       c.Source,
			Target:       c.Target,
			SourceHandle: c.SourceHandle,
			TargetHandle: c.TargetHandle,
		})
	}
	return doc
}

// Validate checks the structural invariants a document must satisfy before
// it may replace a scene: non-empty unique node ids, connection endpoints
// that exist, no self connections, no duplicate ordered pairs.
func (d Document) Validate() error {
	ids := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: empty id", i)
		}
		if ids[n.ID] {
			return fmt.Errorf("node %d: duplicate id %q", i, n.ID)
		}
		ids[n.ID] = true
		if n.Type == "" {
			return fmt.Errorf("node %q: empty type", n.ID)
		}
	}

	pairs := make(map[[2]string]bool, len(d.Connections))
	for i, c := range d.Connections {
		if !ids[c.Source] {
			return fmt.Errorf("connection %d: unknown source %q", i, c.Source)
		}
		if !ids[c.Target] {
			return fmt.Errorf("connection %d: unknown target %q", i, c.Target)
		}
		if c.Source == c.Target {
			return fmt.Errorf("connection %d: source and target are both %q", i, c.Source)
		}
		key := [2]string{c.Source, c.Target}
		if pairs[key] {
			return fmt.Errorf("connection %d: duplicate pair %q -> %q", i, c.Source, c.Target)
		}
		pairs[key] = true
	}
	return nil
}

// Apply validates the document and replaces the scene's content with it.
// On error the scene is left exactly as it was; an import is all or
// nothing.
func (d Document) Apply(s *scene.Scene) error {
	if err := d.Validate(); err != nil {
		return err
	}

	nodes := make([]*scene.Node, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		cfg := make(map[string]any, len(n.Config))
		for k, v := range n.Config {
			cfg[k] = v
		}
		// Node size is not part of the wire format; every node gets the
		// editor's fixed dimensions.
		nodes = append(nodes, &scene.Node{
			ID:      n.ID,
			Type:    n.Type,
			Label:   n.labelOrDefault(),
			X:       n.Position.X,
			Y:       n.Position.Y,
			Width:   scene.DefaultNodeWidth,
			Height:  scene.DefaultNodeHeight,
			Config:  cfg,
			Enabled: n.Enabled,
		})
	}

	conns := make([]scene.Connection, 0, len(d.Connections))
	for _, c := range d.Connections {
		conns = append(conns, scene.Connection{
			Source:       c.Source,
			Target:       c.Target,
			SourceHandle: c.SourceHandle,
			TargetHandle: c.TargetHandle,
		})
	}

	s.Replace(nodes, conns)
	return nil
}

func (n Node) labelOrDefault() string {
	if n.Label != "" {
		return n.Label
	}
	return scene.DisplayLabel(n.Type)
}

// UnmarshalJSON defaults enabled to true when the field is absent, matching
// the default for newly created nodes. Only an explicit false disables a
// node.
func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node
	aux := struct {
		*alias
		Enabled *bool `json:"enabled"`
	}{alias: (*alias)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	n.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

// Parse decodes and validates a document from JSON bytes.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse workflow document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, fmt.Errorf("invalid workflow document: %w", err)
	}
	return doc, nil
}

// Encode renders the document as indented JSON, the format used for files
// on disk and for the request body sent to the server.
func (d Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode workflow document: %w", err)
	}
	return data, nil
}

// Load reads and validates a document file.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read workflow file: %w", err)
	}
	return Parse(data)
}

// Save writes the document to a file.
func (d Document) Save(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workflow file: %w", err)
	}
	return nil
}
