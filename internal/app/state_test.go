package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flow-studio/internal/layout"
	"flow-studio/internal/workflow"
	"flow-studio/pkg/geometry"
)

func newTestState() *State {
	return NewState(workflow.NewClient(""))
}

func countEvents(st *State, event EventType) *int {
	n := new(int)
	st.On(event, func(any) { *n++ })
	return n
}

func waitEvent(t *testing.T, ch <-chan any) any {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestAddNodeCommitsAndSelects(t *testing.T) {
	t.Parallel()

	st := newTestState()
	sceneEvents := countEvents(st, EventSceneChanged)
	historyEvents := countEvents(st, EventHistoryChanged)
	var selected string
	st.On(EventSelectionChanged, func(d any) { selected = d.(string) })

	n := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 100, Y: 100})
	require.Equal(t, n.ID, st.Selection())
	require.Equal(t, n.ID, selected)
	require.Equal(t, 1, *sceneEvents)
	require.Equal(t, 1, *historyEvents)
	require.True(t, st.Modified())
	require.True(t, st.CanUndo())
	require.False(t, st.CanRedo())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	t.Parallel()

	st := newTestState()
	a := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 0, Y: 0})
	b := st.AddNodeAt("OUTPUT_EMAIL", geometry.Point2D{X: 400, Y: 0})
	require.True(t, st.Scene().AddConnection(a.ID, b.ID))
	st.Commit()

	st.Undo()
	st.Undo()
	st.Undo()
	require.Zero(t, st.Scene().NodeCount())
	require.False(t, st.CanUndo())
	require.Empty(t, st.Selection(), "selection cannot outlive its node")

	st.Redo()
	st.Redo()
	st.Redo()
	require.Equal(t, 2, st.Scene().NodeCount())
	require.Equal(t, 1, st.Scene().ConnectionCount())
	require.False(t, st.CanRedo())
}

func TestUndoPastStartIsNoop(t *testing.T) {
	t.Parallel()

	st := newTestState()
	historyEvents := countEvents(st, EventHistoryChanged)
	st.Undo()
	st.Redo()
	require.Zero(t, *historyEvents)
}

func TestSelectEmitsOnlyOnChange(t *testing.T) {
	t.Parallel()

	st := newTestState()
	selectionEvents := countEvents(st, EventSelectionChanged)

	st.Select("node-1")
	st.Select("node-1")
	require.Equal(t, 1, *selectionEvents)

	st.Select("")
	require.Equal(t, 2, *selectionEvents)
}

func TestNewWorkflowResetsSession(t *testing.T) {
	t.Parallel()

	st := newTestState()
	st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 10, Y: 10})
	st.SetName("Renamed")

	st.NewWorkflow()
	require.Zero(t, st.Scene().NodeCount())
	require.Equal(t, DefaultWorkflowName, st.Name())
	require.Empty(t, st.FilePath())
	require.False(t, st.Modified())
	require.False(t, st.CanUndo())

	// The new session has its own id sequence.
	n := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{})
	require.Equal(t, "node-1", n.ID)
}

func TestOpenWorkflowStartsFreshSession(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flow.json")
	doc := workflow.Document{
		Name: "Test Flow",
		Nodes: []workflow.Node{
			{ID: "node-1", Type: "PROCESSOR_LLM",
				Position: workflow.Position{X: 10, Y: 20},
				Config:   map[string]any{}, Enabled: true},
		},
		Connections: []workflow.Connection{},
	}
	require.NoError(t, doc.Save(path))

	st := newTestState()
	st.AddNodeAt("OUTPUT_EMAIL", geometry.Point2D{X: 5, Y: 5})

	require.NoError(t, st.OpenWorkflow(path))
	require.Equal(t, "Test Flow", st.Name())
	require.Equal(t, path, st.FilePath())
	require.Equal(t, 1, st.Scene().NodeCount())
	require.False(t, st.Modified())
	require.False(t, st.CanUndo(), "a load is the floor of its history")
}

func TestOpenWorkflowRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": "nope"`), 0o644))

	st := newTestState()
	st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 5, Y: 5})

	require.Error(t, st.OpenWorkflow(path))
	require.Equal(t, 1, st.Scene().NodeCount(), "failed open leaves the session alone")
	require.Equal(t, DefaultWorkflowName, st.Name())
}

func TestImportDocumentIsUndoable(t *testing.T) {
	t.Parallel()

	st := newTestState()
	orig := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 5, Y: 5})

	doc := workflow.Document{
		Name: "Imported",
		Nodes: []workflow.Node{
			{ID: "node-10", Type: "DATA_SOURCE_API", Config: map[string]any{}, Enabled: true},
			{ID: "node-11", Type: "OUTPUT_EMAIL", Config: map[string]any{}, Enabled: true},
		},
	}
	require.NoError(t, st.ImportDocument(doc))
	require.Equal(t, 2, st.Scene().NodeCount())
	require.Equal(t, "Imported", st.Name())
	require.True(t, st.Modified())

	st.Undo()
	require.Equal(t, 1, st.Scene().NodeCount())
	require.NotNil(t, st.Scene().FindNode(orig.ID))
}

func TestImportInvalidDocumentRejectedWholly(t *testing.T) {
	t.Parallel()

	st := newTestState()
	orig := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 5, Y: 5})
	historyEvents := countEvents(st, EventHistoryChanged)

	bad := workflow.Document{
		Nodes: []workflow.Node{
			{ID: "node-7", Type: "DATA_SOURCE_API", Config: map[string]any{}, Enabled: true},
			{ID: "node-7", Type: "OUTPUT_EMAIL", Config: map[string]any{}, Enabled: true},
		},
	}
	require.Error(t, st.ImportDocument(bad))
	require.Equal(t, 1, st.Scene().NodeCount())
	require.NotNil(t, st.Scene().FindNode(orig.ID))
	require.Zero(t, *historyEvents)
}

func TestSaveWorkflowWritesFileAndClearsModified(t *testing.T) {
	t.Parallel()

	st := newTestState()
	st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 100, Y: 100})
	var savedPath string
	st.On(EventWorkflowSaved, func(d any) { savedPath = d.(string) })

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, st.SaveWorkflow(path))
	require.Equal(t, path, savedPath)
	require.Equal(t, path, st.FilePath())
	require.False(t, st.Modified())

	doc, err := workflow.Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultWorkflowName, doc.Name)
	require.Len(t, doc.Nodes, 1)
}

func TestSaveToServerSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	st := NewState(workflow.NewClient(srv.URL))
	st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 1, Y: 1})

	saved := make(chan any, 1)
	st.On(EventWorkflowSaved, func(d any) { saved <- d })

	st.SaveToServer()
	require.Equal(t, DefaultWorkflowName, waitEvent(t, saved))
}

func TestSaveToServerFailureNeverRollsBack(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "error": "backend down"}`))
	}))
	defer srv.Close()

	st := NewState(workflow.NewClient(srv.URL))
	st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 1, Y: 1})

	failed := make(chan any, 1)
	st.On(EventSaveFailed, func(d any) { failed <- d })

	st.SaveToServer()
	msg := waitEvent(t, failed)
	require.NotEmpty(t, msg)

	require.Equal(t, 1, st.Scene().NodeCount())
	require.True(t, st.CanUndo())
	require.True(t, st.Modified(), "authoring state stays the source of truth")
}

func TestRunWorkflowLifecycle(t *testing.T) {
	t.Parallel()

	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "executionId": "exec-7"}`))
	}))
	defer srv.Close()

	st := NewState(workflow.NewClient(srv.URL))
	started := countEvents(st, EventExecutionStarted)
	finished := make(chan any, 1)
	st.On(EventExecutionFinished, func(d any) { finished <- d })

	st.RunWorkflow()
	require.Equal(t, 1, *started, "start is reported synchronously")
	require.Equal(t, "exec-7", waitEvent(t, finished))
	require.Equal(t, "/api/workflows/Untitled%20Workflow/execute", <-paths)
}

func TestRunWorkflowFailureIsInformational(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "error": "no active trigger"}`))
	}))
	defer srv.Close()

	st := NewState(workflow.NewClient(srv.URL))
	failed := make(chan any, 1)
	st.On(EventExecutionFailed, func(d any) { failed <- d })

	st.RunWorkflow()
	require.Equal(t, "no active trigger", waitEvent(t, failed))
}

func TestLoadTemplateStartsSession(t *testing.T) {
	t.Parallel()

	st := newTestState()
	require.NoError(t, st.LoadTemplate("Email Digest"))
	require.Equal(t, "Email Digest", st.Name())
	require.Equal(t, 3, st.Scene().NodeCount())
	require.Equal(t, 2, st.Scene().ConnectionCount())
	require.False(t, st.Modified())

	require.Error(t, st.LoadTemplate("Nonexistent"))
}

func TestValidateGraphReportsCycle(t *testing.T) {
	t.Parallel()

	st := newTestState()
	a := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 0, Y: 0})
	b := st.AddNodeAt("PROCESSOR_FILTER", geometry.Point2D{X: 300, Y: 0})
	st.Scene().AddConnection(a.ID, b.ID)
	st.Scene().AddConnection(b.ID, a.ID)
	st.Commit()

	_, err := st.ValidateGraph()
	var cycleErr *layout.CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.ElementsMatch(t, []string{a.ID, b.ID}, cycleErr.NodeIDs)
}

func TestAutoLayoutCommitsOnce(t *testing.T) {
	t.Parallel()

	st := newTestState()
	a := st.AddNodeAt("DATA_SOURCE_API", geometry.Point2D{X: 900, Y: 900})
	b := st.AddNodeAt("OUTPUT_EMAIL", geometry.Point2D{X: 10, Y: 10})
	st.Scene().AddConnection(a.ID, b.ID)
	st.Commit()

	historyEvents := countEvents(st, EventHistoryChanged)
	st.AutoLayout()
	require.Equal(t, 1, *historyEvents)
	require.Less(t, a.X, b.X, "source layer sits left of its dependent")

	// Empty scenes have nothing to arrange.
	st.NewWorkflow()
	historyEvents = countEvents(st, EventHistoryChanged)
	st.AutoLayout()
	require.Zero(t, *historyEvents)
}

func TestNodeEditsSkipNoopCommits(t *testing.T) {
	t.Parallel()

	st := newTestState()
	n := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 0, Y: 0})
	historyEvents := countEvents(st, EventHistoryChanged)

	st.SetNodeLabel(n.ID, n.Label)
	st.SetNodeEnabled(n.ID, true)
	st.DeleteNodeConfig(n.ID, "missing")
	require.Zero(t, *historyEvents)

	st.SetNodeLabel(n.ID, "Summarize")
	require.Equal(t, 1, *historyEvents)
	st.SetNodeEnabled(n.ID, false)
	require.Equal(t, 2, *historyEvents)
	st.SetNodeConfig(n.ID, "prompt", "hello")
	require.Equal(t, 3, *historyEvents)
	st.DeleteNodeConfig(n.ID, "prompt")
	require.Equal(t, 4, *historyEvents)
}

func TestDuplicateSelectedCopiesAndSelects(t *testing.T) {
	t.Parallel()

	st := newTestState()
	n := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 50, Y: 60})
	st.SetNodeConfig(n.ID, "prompt", "v1")

	st.DuplicateSelected()
	require.Equal(t, 2, st.Scene().NodeCount())
	dupID := st.Selection()
	require.NotEqual(t, n.ID, dupID)

	dup := st.Scene().FindNode(dupID)
	require.Equal(t, "v1", dup.Config["prompt"])
	require.Equal(t, 80.0, dup.X)
	require.Equal(t, 90.0, dup.Y)
}

func TestClearCanvasIsOneStep(t *testing.T) {
	t.Parallel()

	st := newTestState()
	a := st.AddNodeAt("PROCESSOR_LLM", geometry.Point2D{X: 0, Y: 0})
	b := st.AddNodeAt("OUTPUT_EMAIL", geometry.Point2D{X: 300, Y: 0})
	st.Scene().AddConnection(a.ID, b.ID)
	st.Commit()

	historyEvents := countEvents(st, EventHistoryChanged)
	st.ClearCanvas()
	require.Zero(t, st.Scene().NodeCount())
	require.Zero(t, st.Scene().ConnectionCount())
	require.Equal(t, 1, *historyEvents)

	st.ClearCanvas()
	require.Equal(t, 1, *historyEvents, "clearing an empty canvas is a no-op")

	st.Undo()
	require.Equal(t, 2, st.Scene().NodeCount())
	require.Equal(t, 1, st.Scene().ConnectionCount())
}
