package editor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/codec"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/interact"
	"github.com/meikuraledutech/flowchart/memstore"
)

func chain(t *testing.T, e *Editor) (p, x, c string) {
	t.Helper()
	var err error
	p, err = e.AddNode(flowchart.Producer, geom.Pt(0, 0), "P")
	require.NoError(t, err)
	x, err = e.AddNode(flowchart.Processor, geom.Pt(200, 0), "X")
	require.NoError(t, err)
	c, err = e.AddNode(flowchart.Consumer, geom.Pt(400, 0), "C")
	require.NoError(t, err)
	_, err = e.Connect(p, x)
	require.NoError(t, err)
	_, err = e.Connect(x, c)
	require.NoError(t, err)
	return p, x, c
}

func TestScenario_ConnectionRules(t *testing.T) {
	e := New(DefaultConfig())
	p, err := e.AddNode(flowchart.Producer, geom.Pt(0, 0), "")
	require.NoError(t, err)
	c, err := e.AddNode(flowchart.Consumer, geom.Pt(300, 0), "")
	require.NoError(t, err)
	x, err := e.AddNode(flowchart.Processor, geom.Pt(150, 150), "")
	require.NoError(t, err)

	_, err = e.Connect(c, x)
	assert.ErrorIs(t, err, flowchart.ErrValidationRejected)
	_, err = e.Connect(x, p)
	assert.ErrorIs(t, err, flowchart.ErrValidationRejected)
	_, err = e.Connect(p, x)
	require.NoError(t, err)
	_, err = e.Connect(x, c)
	require.NoError(t, err)
	assert.Equal(t, 2, e.View().ConnectionCount())
	assert.Equal(t, 5, historyDepth(e))
}

func historyDepth(e *Editor) int { return e.hist.UndoDepth() }

func TestScenario_ChainDeleteUndo(t *testing.T) {
	e := New(DefaultConfig())
	_, x, _ := chain(t, e)
	before := e.Document()

	require.NoError(t, e.DeleteNodes(x))
	assert.Equal(t, 2, e.View().NodeCount())
	assert.Zero(t, e.View().ConnectionCount())

	require.NoError(t, e.Undo())
	if diff := cmp.Diff(before, e.Document()); diff != "" {
		t.Fatalf("undo mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_SnapDrag(t *testing.T) {
	e := New(DefaultConfig())
	id, err := e.AddNode(flowchart.Processor, geom.Pt(0, 0), "")
	require.NoError(t, err)

	e.Press(geom.Pt(0, 0), interact.Modifiers{Snap: true})
	e.Move(geom.Pt(10, 10))

	f := e.Snapshot()
	require.Len(t, f.Nodes, 1)
	assert.True(t, f.Nodes[0].Dragging)
	assert.Equal(t, geom.Pt(20, 20), f.Nodes[0].Position)

	require.NoError(t, e.Release(geom.Pt(10, 10)))
	n, _ := e.View().Node(id)
	assert.Equal(t, geom.Pt(20, 20), n.Position)

	require.NoError(t, e.Undo())
	n, _ = e.View().Node(id)
	assert.Equal(t, geom.Pt(0, 0), n.Position)
}

func TestScenario_LoadDanglingConnectionKeepsDocument(t *testing.T) {
	e := New(DefaultConfig())
	chain(t, e)
	e.SelectAll()
	before := e.Document()
	selected := e.Selected()

	bad := `{"version":1,"nodes":[{"id":"a","kind":"producer","x":0,"y":0,"label":""}],
		"connections":[{"id":"c","source_id":"a","target_id":"ghost"}]}`
	err := e.Load([]byte(bad), codec.FormatJSON)
	var perr *flowchart.ParseError
	require.ErrorAs(t, err, &perr)

	if diff := cmp.Diff(before, e.Document()); diff != "" {
		t.Fatalf("document changed (-want +got):\n%s", diff)
	}
	assert.Equal(t, selected, e.Selected())
	assert.True(t, e.CanUndo())
}

func TestSaveLoad_ResetsHistoryAndSelection(t *testing.T) {
	e := New(DefaultConfig())
	chain(t, e)
	data, err := e.Save(codec.FormatYAML)
	require.NoError(t, err)
	assert.False(t, e.Dirty())
	want := e.Document()

	other := New(DefaultConfig())
	_, err = other.AddNode(flowchart.Consumer, geom.Point{}, "")
	require.NoError(t, err)
	other.SelectAll()

	require.NoError(t, other.Load(data, codec.FormatYAML))
	if diff := cmp.Diff(want, other.Document()); diff != "" {
		t.Fatalf("loaded mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, other.CanUndo())
	assert.False(t, other.CanRedo())
	assert.Empty(t, other.Selected())
	assert.False(t, other.Dirty())

	id, err := other.AddNode(flowchart.Processor, geom.Point{}, "")
	require.NoError(t, err)
	n, _ := other.View().Node(id)
	assert.Equal(t, "node4", n.Label)
}

func TestDefaultLabels(t *testing.T) {
	e := New(DefaultConfig())
	a, _ := e.AddNode(flowchart.Producer, geom.Point{}, "")
	b, _ := e.AddNode(flowchart.Producer, geom.Point{}, "named")
	c, _ := e.AddNode(flowchart.Producer, geom.Point{}, "")

	for id, want := range map[string]string{a: "node1", b: "named", c: "node3"} {
		n, ok := e.View().Node(id)
		require.True(t, ok)
		assert.Equal(t, want, n.Label)
	}

	require.NoError(t, e.Reset())
	d, _ := e.AddNode(flowchart.Producer, geom.Point{}, "")
	n, _ := e.View().Node(d)
	assert.Equal(t, "node1", n.Label)
}

func TestNoOpEditsAreNotRecorded(t *testing.T) {
	e := New(DefaultConfig())
	id, err := e.AddNode(flowchart.Producer, geom.Pt(5, 5), "a")
	require.NoError(t, err)
	depth := historyDepth(e)

	require.NoError(t, e.MoveNode(id, geom.Pt(5, 5)))
	require.NoError(t, e.Rename(id, "a"))
	require.NoError(t, e.DeleteNodes())
	require.NoError(t, e.DeleteSelection())
	assert.Equal(t, depth, historyDepth(e))

	assert.ErrorIs(t, e.MoveNode("ghost", geom.Point{}), flowchart.ErrNotFound)
	assert.ErrorIs(t, e.Rename("ghost", "x"), flowchart.ErrNotFound)
	assert.ErrorIs(t, e.Disconnect("ghost"), flowchart.ErrNotFound)
}

func TestUndoRedo_PrunesSelection(t *testing.T) {
	e := New(DefaultConfig())
	id, err := e.AddNode(flowchart.Producer, geom.Point{}, "")
	require.NoError(t, err)
	e.Select(id)

	require.NoError(t, e.Undo())
	assert.Empty(t, e.Selected())
	require.NoError(t, e.Redo())
	assert.Equal(t, 1, e.View().NodeCount())

	assert.ErrorIs(t, e.Redo(), flowchart.ErrNothingToRedo)
	require.NoError(t, e.Undo())
	assert.ErrorIs(t, e.Undo(), flowchart.ErrNothingToUndo)
}

func TestGestureBlocksMutations(t *testing.T) {
	e := New(DefaultConfig())
	id, err := e.AddNode(flowchart.Processor, geom.Pt(0, 0), "")
	require.NoError(t, err)
	data, err := e.Save(codec.FormatJSON)
	require.NoError(t, err)

	e.Press(geom.Pt(0, 0), interact.Modifiers{})
	assert.ErrorIs(t, e.Undo(), ErrGestureActive)
	assert.ErrorIs(t, e.Redo(), ErrGestureActive)
	assert.ErrorIs(t, e.Load(data, codec.FormatJSON), ErrGestureActive)
	assert.ErrorIs(t, e.DeleteNodes(id), ErrGestureActive)
	assert.ErrorIs(t, e.Reset(), ErrGestureActive)
	_, err = e.AddNode(flowchart.Producer, geom.Point{}, "")
	assert.ErrorIs(t, err, ErrGestureActive)

	require.NoError(t, e.Release(geom.Pt(0, 0)))
	assert.NoError(t, e.Undo())
}

func TestDeleteSelection_OneUndoStep(t *testing.T) {
	e := New(DefaultConfig())
	p, x, _ := chain(t, e)
	before := e.Document()

	e.Select(p, x)
	require.NoError(t, e.DeleteSelection())
	assert.Equal(t, 1, e.View().NodeCount())
	assert.Empty(t, e.Selected())

	require.NoError(t, e.Undo())
	if diff := cmp.Diff(before, e.Document()); diff != "" {
		t.Fatalf("undo mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectGesture(t *testing.T) {
	e := New(DefaultConfig())
	p, err := e.AddNode(flowchart.Producer, geom.Pt(0, 0), "")
	require.NoError(t, err)
	c, err := e.AddNode(flowchart.Consumer, geom.Pt(300, 0), "")
	require.NoError(t, err)

	e.Press(geom.Pt(50, 0), interact.Modifiers{})
	e.Move(geom.Pt(300, 0))
	f := e.Snapshot()
	require.NotNil(t, f.Connect)
	assert.True(t, f.Connect.Valid)
	require.NoError(t, e.Release(geom.Pt(300, 0)))

	assert.True(t, e.View().HasEdge(p, c))
	f = e.Snapshot()
	require.Len(t, f.Connections, 1)
	assert.Equal(t, geom.Pt(0, 0), f.Connections[0].From)
	assert.Equal(t, geom.Pt(300, 0), f.Connections[0].To)
	assert.True(t, f.Nodes[0].HasPort)
	assert.False(t, f.Nodes[1].HasPort)
	assert.True(t, f.CanUndo)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	e := New(DefaultConfig())
	chain(t, e)
	want := e.Document()

	require.NoError(t, e.SaveTo(ctx, store, "flow"))

	other := New(DefaultConfig())
	require.NoError(t, other.LoadFrom(ctx, store, "flow"))
	if diff := cmp.Diff(want, other.Document()); diff != "" {
		t.Fatalf("store mismatch (-want +got):\n%s", diff)
	}

	err := other.LoadFrom(ctx, store, "missing")
	assert.ErrorIs(t, err, flowchart.ErrDocumentNotFound)
}

type counting struct {
	applied int
	resets  int
}

func (c *counting) OnApply(string, int) { c.applied++ }
func (c *counting) OnUndo(string, int)  {}
func (c *counting) OnRedo(string, int)  {}
func (c *counting) OnEvict(string)      {}
func (c *counting) OnReset()            { c.resets++ }

func TestWithObserver(t *testing.T) {
	obs := &counting{}
	e := New(DefaultConfig(), WithObserver(obs))
	chain(t, e)
	assert.Equal(t, 5, obs.applied)
}

func TestLoadResetsObserverDepth(t *testing.T) {
	obs := &counting{}
	e := New(DefaultConfig(), WithObserver(obs))
	chain(t, e)
	data, err := e.Save(codec.FormatJSON)
	require.NoError(t, err)

	require.NoError(t, e.Load(data, codec.FormatJSON))
	require.NoError(t, e.Reset())
	assert.Equal(t, 2, obs.resets)
}

func TestDefaultLabels_FailedAddKeepsNumber(t *testing.T) {
	e := New(DefaultConfig())
	_, err := e.AddNode(flowchart.Kind(0), geom.Point{}, "")
	require.Error(t, err)

	a, err := e.AddNode(flowchart.Processor, geom.Pt(0, 0), "")
	require.NoError(t, err)
	e.Press(geom.Pt(0, 0), interact.Modifiers{})
	_, err = e.AddNode(flowchart.Processor, geom.Pt(300, 0), "")
	require.ErrorIs(t, err, ErrGestureActive)
	require.NoError(t, e.Release(geom.Pt(0, 0)))

	b, err := e.AddNode(flowchart.Processor, geom.Pt(300, 0), "")
	require.NoError(t, err)

	na, _ := e.View().Node(a)
	nb, _ := e.View().Node(b)
	assert.Equal(t, "node1", na.Label)
	assert.Equal(t, "node2", nb.Label)
}

func TestGroupSelection_CreateThenExtend(t *testing.T) {
	e := New(DefaultConfig())
	p, x, c := chain(t, e)

	e.Select(p, x)
	gid, err := e.GroupSelection()
	require.NoError(t, err)
	require.NotEmpty(t, gid)
	assert.Equal(t, gid, e.SelectedGroup(), "a new group becomes the selection")
	assert.Empty(t, e.Selected())

	g, ok := e.View().Group(gid)
	require.True(t, ok)
	assert.Equal(t, "Group 1", g.Name)

	e.Press(geom.Pt(400, 0), interact.Modifiers{Shift: true})
	require.NoError(t, e.Release(geom.Pt(400, 0)))
	got, err := e.GroupSelection()
	require.NoError(t, err)
	assert.Equal(t, gid, got)
	g, _ = e.View().Group(gid)
	assert.Equal(t, []string{p, x, c}, g.Members)

	other, err := e.GroupNodes("", c)
	require.NoError(t, err)
	g, _ = e.View().Group(other)
	assert.Equal(t, "Group 2", g.Name)

	require.NoError(t, e.Undo())
	require.NoError(t, e.Undo())
	g, _ = e.View().Group(gid)
	assert.Equal(t, []string{p, x}, g.Members)
}

func TestDeleteSelection_GroupOnly(t *testing.T) {
	e := New(DefaultConfig())
	p, x, _ := chain(t, e)
	gid, err := e.GroupNodes("pair", p, x)
	require.NoError(t, err)

	e.SelectGroup(gid)
	require.NoError(t, e.DeleteSelection())
	assert.Empty(t, e.View().Groups())
	assert.Equal(t, 3, e.View().NodeCount())
	assert.Empty(t, e.SelectedGroup())

	require.NoError(t, e.Undo())
	assert.Len(t, e.View().Groups(), 1)
}

func TestGroupEdits(t *testing.T) {
	e := New(DefaultConfig())
	p, x, _ := chain(t, e)
	gid, err := e.GroupNodes("pair", p, x)
	require.NoError(t, err)
	depth := historyDepth(e)

	require.NoError(t, e.RenameGroup(gid, "pair"))
	require.NoError(t, e.SetGroupDrawing(gid, flowchart.DrawRectangle))
	assert.Equal(t, depth, historyDepth(e), "no-op edits are not recorded")

	require.NoError(t, e.RenameGroup(gid, "ingest"))
	require.NoError(t, e.SetGroupDrawing(gid, flowchart.DrawPolygon))
	g, _ := e.View().Group(gid)
	assert.Equal(t, "ingest", g.Name)
	assert.Equal(t, flowchart.DrawPolygon, g.Drawing)

	assert.ErrorIs(t, e.RenameGroup("ghost", "x"), flowchart.ErrNotFound)
	_, err = e.GroupNodes("empty")
	assert.Error(t, err)

	require.NoError(t, e.DeleteNodes(x))
	g, _ = e.View().Group(gid)
	assert.Equal(t, []string{p}, g.Members)
	require.NoError(t, e.Undo())
	g, _ = e.View().Group(gid)
	assert.Equal(t, []string{p, x}, g.Members)

	require.NoError(t, e.DeleteGroup(gid))
	assert.Empty(t, e.View().Groups())
}

func TestSnapshot_GroupFollowsDrag(t *testing.T) {
	e := New(DefaultConfig())
	a, err := e.AddNode(flowchart.Processor, geom.Pt(0, 0), "")
	require.NoError(t, err)
	gid, err := e.GroupNodes("", a)
	require.NoError(t, err)
	e.SelectGroup(gid)

	f := e.Snapshot()
	require.Len(t, f.Groups, 1)
	assert.True(t, f.Groups[0].Selected)
	assert.Equal(t, geom.Pt(-75, -60), f.Groups[0].Outline.Rect.Min)

	e.Press(geom.Pt(0, 0), interact.Modifiers{})
	e.Move(geom.Pt(100, 0))
	f = e.Snapshot()
	require.Len(t, f.Groups, 1)
	assert.Equal(t, geom.Pt(25, -60), f.Groups[0].Outline.Rect.Min)
	assert.False(t, f.Groups[0].Selected, "pressing a node clears the group")
	require.NoError(t, e.Release(geom.Pt(100, 0)))

	require.NoError(t, e.DeleteNodes(a))
	assert.Empty(t, e.Snapshot().Groups, "a group with no members is not drawn")
}

func TestLoad_ContinuesGroupNumbering(t *testing.T) {
	e := New(DefaultConfig())
	p, x, _ := chain(t, e)
	_, err := e.GroupNodes("", p)
	require.NoError(t, err)
	data, err := e.Save(codec.FormatJSON)
	require.NoError(t, err)

	other := New(DefaultConfig())
	require.NoError(t, other.Load(data, codec.FormatJSON))
	gid, err := other.GroupNodes("", x)
	require.NoError(t, err)
	g, _ := other.View().Group(gid)
	assert.Equal(t, "Group 2", g.Name)
}
