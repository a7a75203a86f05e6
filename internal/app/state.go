// Package app provides the application state, its event bus and the
// editor theme.
package app

import (
	"context"
	"fmt"
	"sync"

	"flow-studio/internal/history"
	"flow-studio/internal/layout"
	"flow-studio/internal/scene"
	"flow-studio/internal/workflow"
	"flow-studio/pkg/geometry"
)

// DefaultWorkflowName is used for fresh and unnamed documents.
const DefaultWorkflowName = "Untitled Workflow"

// State holds the live editing session: the scene, the viewport, the
// selection and the undo history, plus the listener registry the UI hangs
// off. Scene and history mutations happen on the UI goroutine only; the
// mutex guards the listener registry and the small fields that status
// displays read back while network calls are in flight.
type State struct {
	mu sync.RWMutex

	scene    *scene.Scene
	viewport geometry.Viewport
	selected string
	history  *history.Manager

	name     string
	filePath string
	modified bool

	showGrid    bool
	showMinimap bool

	client *workflow.Client

	listeners map[EventType][]EventListener
}

// EventType identifies application events.
type EventType int

const (
	EventSceneChanged EventType = iota
	EventSelectionChanged
	EventViewportChanged
	EventHistoryChanged
	EventModified
	EventWorkflowLoaded
	EventWorkflowSaved
	EventSaveFailed
	EventExecutionStarted
	EventExecutionFinished
	EventExecutionFailed
)

// EventListener is called when an event occurs. Listeners attached to the
// save and execution events may be invoked from network goroutines.
type EventListener func(data any)

// NewState creates a fresh editing session over an empty scene. The empty
// scene seeds the history, so undo never walks off the stack.
func NewState(client *workflow.Client) *State {
	s := scene.New()
	return &State{
		scene:       s,
		viewport:    geometry.NewViewport(),
		history:     history.New(s),
		name:        DefaultWorkflowName,
		showGrid:    true,
		showMinimap: true,
		client:      client,
		listeners:   make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data any) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Scene returns the live scene. UI goroutine only.
func (s *State) Scene() *scene.Scene {
	return s.scene
}

// Viewport returns the current viewport.
func (s *State) Viewport() geometry.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// SetViewport installs a new viewport. Viewport changes are never part of
// the undo history.
func (s *State) SetViewport(v geometry.Viewport) {
	s.mu.Lock()
	s.viewport = v
	s.mu.Unlock()
	s.Emit(EventViewportChanged, v)
}

// Selection returns the selected node id, or "" when nothing is selected.
func (s *State) Selection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Select changes the selection. Re-selecting the current node is a no-op
// and emits nothing.
func (s *State) Select(id string) {
	s.mu.Lock()
	if s.selected == id {
		s.mu.Unlock()
		return
	}
	s.selected = id
	s.mu.Unlock()
	s.Emit(EventSelectionChanged, id)
}

// Commit pushes one history snapshot of the current scene, marks the
// document modified and notifies listeners. Exactly one call per completed
// user action.
func (s *State) Commit() {
	s.history.Commit(s.scene)
	s.SetModified(true)
	s.Emit(EventHistoryChanged, nil)
	s.Emit(EventSceneChanged, nil)
}

// Name returns the workflow name.
func (s *State) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName renames the workflow. The name lives outside the undo history.
func (s *State) SetName(name string) {
	if name == "" {
		name = DefaultWorkflowName
	}
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	s.SetModified(true)
}

// FilePath returns the path of the last open or save, or "".
func (s *State) FilePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filePath
}

// Modified reports whether the document has unsaved changes.
func (s *State) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// SetModified marks the document as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// ShowGrid reports whether the background grid is drawn.
func (s *State) ShowGrid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showGrid
}

// SetShowGrid toggles the background grid.
func (s *State) SetShowGrid(show bool) {
	s.mu.Lock()
	s.showGrid = show
	s.mu.Unlock()
}

// ShowMinimap reports whether the minimap overlay is wanted. The minimap
// still hides itself while the scene is empty.
func (s *State) ShowMinimap() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showMinimap
}

// SetShowMinimap toggles the minimap overlay.
func (s *State) SetShowMinimap(show bool) {
	s.mu.Lock()
	s.showMinimap = show
	s.mu.Unlock()
}

// SetClient swaps the backend client, typically after the API base URL
// preference changed.
func (s *State) SetClient(client *workflow.Client) {
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
}

// CanUndo reports whether an undo step exists.
func (s *State) CanUndo() bool {
	return s.history.CanUndo()
}

// CanRedo reports whether a redo step exists.
func (s *State) CanRedo() bool {
	return s.history.CanRedo()
}

// Undo restores the previous snapshot. The selection is cleared if the
// node it pointed at is gone from the restored scene.
func (s *State) Undo() {
	if !s.history.Undo(s.scene) {
		return
	}
	s.reconcileSelection()
	s.SetModified(true)
	s.Emit(EventHistoryChanged, nil)
	s.Emit(EventSceneChanged, nil)
}

// Redo re-applies the next snapshot.
func (s *State) Redo() {
	if !s.history.Redo(s.scene) {
		return
	}
	s.reconcileSelection()
	s.SetModified(true)
	s.Emit(EventHistoryChanged, nil)
	s.Emit(EventSceneChanged, nil)
}

func (s *State) reconcileSelection() {
	if id := s.Selection(); id != "" && s.scene.FindNode(id) == nil {
		s.Select("")
	}
}

// AddNodeAt creates a node of the given type at a world position, selects
// it and commits.
func (s *State) AddNodeAt(nodeType string, world geometry.Point2D) *scene.Node {
	n := s.scene.AddNode(nodeType, world.X, world.Y)
	s.Select(n.ID)
	s.Commit()
	return n
}

// DuplicateSelected copies the selected node next to the original, moves
// the selection to the copy and commits. No-op without a selection.
func (s *State) DuplicateSelected() {
	dup := s.scene.DuplicateNode(s.Selection())
	if dup == nil {
		return
	}
	s.Select(dup.ID)
	s.Commit()
}

// ClearCanvas removes every node and connection in one history step.
// No-op on an already empty scene.
func (s *State) ClearCanvas() {
	if s.scene.NodeCount() == 0 && s.scene.ConnectionCount() == 0 {
		return
	}
	s.scene.Clear()
	s.Select("")
	s.Commit()
}

// SetNodeLabel renames a node as one history step. Submitting the current
// label again is a no-op.
func (s *State) SetNodeLabel(id, label string) {
	n := s.scene.FindNode(id)
	if n == nil || n.Label == label {
		return
	}
	s.scene.SetLabel(id, label)
	s.Commit()
}

// SetNodeEnabled flips a node's enabled flag as one history step.
func (s *State) SetNodeEnabled(id string, enabled bool) {
	n := s.scene.FindNode(id)
	if n == nil || n.Enabled == enabled {
		return
	}
	s.scene.SetEnabled(id, enabled)
	s.Commit()
}

// SetNodeConfig sets one config key as one history step.
func (s *State) SetNodeConfig(id, key string, value any) {
	if s.scene.SetConfigValue(id, key, value) {
		s.Commit()
	}
}

// DeleteNodeConfig removes one config key as one history step.
func (s *State) DeleteNodeConfig(id, key string) {
	n := s.scene.FindNode(id)
	if n == nil {
		return
	}
	if _, ok := n.Config[key]; !ok {
		return
	}
	s.scene.DeleteConfigValue(id, key)
	s.Commit()
}

// startSession swaps in a new scene with a fresh history seeded on it.
// Loading is not an undoable action: the loaded state is the floor of the
// new history.
func (s *State) startSession(fresh *scene.Scene, name, path string) {
	s.scene = fresh
	s.history = history.New(fresh)
	if name == "" {
		name = DefaultWorkflowName
	}
	s.mu.Lock()
	s.name = name
	s.filePath = path
	s.mu.Unlock()
	s.Select("")
	s.SetModified(false)
	s.Emit(EventWorkflowLoaded, name)
	s.Emit(EventHistoryChanged, nil)
	s.Emit(EventSceneChanged, nil)
}

// NewWorkflow resets the session to an empty untitled document.
func (s *State) NewWorkflow() {
	s.startSession(scene.New(), "", "")
}

// OpenWorkflow loads a document from disk and starts a fresh session on
// it. The current session survives any load or validation error.
func (s *State) OpenWorkflow(path string) error {
	doc, err := workflow.Load(path)
	if err != nil {
		return err
	}
	fresh := scene.New()
	if err := doc.Apply(fresh); err != nil {
		return err
	}
	s.startSession(fresh, doc.Name, path)
	return nil
}

// LoadTemplate starts a fresh session from a built-in starter workflow.
func (s *State) LoadTemplate(name string) error {
	t, ok := workflow.TemplateByName(name)
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	fresh := scene.New()
	if err := t.Doc.Apply(fresh); err != nil {
		return err
	}
	s.startSession(fresh, t.Doc.Name, "")
	return nil
}

// ImportDocument swaps the validated document into the live scene as one
// undoable step, keeping the session's history. A document that fails
// validation is rejected wholly and the scene is untouched.
func (s *State) ImportDocument(doc workflow.Document) error {
	if err := doc.Apply(s.scene); err != nil {
		return err
	}
	if doc.Name != "" {
		s.mu.Lock()
		s.name = doc.Name
		s.mu.Unlock()
	}
	s.Select("")
	s.Commit()
	s.Emit(EventWorkflowLoaded, s.Name())
	return nil
}

// Document captures the current scene as a workflow document.
func (s *State) Document() workflow.Document {
	return workflow.FromScene(s.scene, s.Name())
}

// SaveWorkflow exports the scene to path and clears the modified flag.
func (s *State) SaveWorkflow(path string) error {
	if err := s.Document().Save(path); err != nil {
		return err
	}
	s.mu.Lock()
	s.filePath = path
	s.mu.Unlock()
	s.SetModified(false)
	s.Emit(EventWorkflowSaved, path)
	return nil
}

// SaveToServer pushes the current document to the backend without
// blocking the canvas. The snapshot is taken synchronously so later edits
// cannot leak into the request; the outcome comes back as an event. A
// failed save never rolls back the scene or the history.
func (s *State) SaveToServer() {
	doc := s.Document()
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	go func() {
		res, err := client.Save(context.Background(), doc)
		switch {
		case err != nil:
			s.Emit(EventSaveFailed, err.Error())
		case !res.Success:
			s.Emit(EventSaveFailed, res.Error)
		default:
			s.Emit(EventWorkflowSaved, doc.Name)
		}
	}()
}

// RunWorkflow asks the backend to execute the workflow, addressed by its
// name. Fire and forget: the canvas stays interactive and the outcome
// comes back as events.
func (s *State) RunWorkflow() {
	name := s.Name()
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	s.Emit(EventExecutionStarted, name)
	go func() {
		res, err := client.Execute(context.Background(), name)
		switch {
		case err != nil:
			s.Emit(EventExecutionFailed, err.Error())
		case !res.Success:
			s.Emit(EventExecutionFailed, res.Error)
		default:
			s.Emit(EventExecutionFinished, res.ExecutionID)
		}
	}()
}

// ValidateGraph returns the execution order of the current scene, or the
// cycle that prevents one. A cycle is a warning for the author, never a
// block on saving or running.
func (s *State) ValidateGraph() ([]string, error) {
	return layout.ExecutionOrder(s.scene)
}

// AutoLayout arranges the nodes into dependency layers as one history
// step. No-op on an empty scene.
func (s *State) AutoLayout() {
	if s.scene.NodeCount() == 0 {
		return
	}
	layout.Arrange(s.scene)
	s.Commit()
}
