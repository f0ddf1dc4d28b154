package editor

import (
	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/interact"
)

// NodeFrame is a node as it should be drawn this frame.
type NodeFrame struct {
	flowchart.Node
	Selected bool
	// Dragging is set when Position is a drag preview rather than the
	// committed position.
	Dragging bool
	// Port is the centre of the output port; HasPort is false for
	// consumers.
	Port    geom.Point
	HasPort bool
}

// ConnectionFrame is a connection with its endpoints resolved.
type ConnectionFrame struct {
	flowchart.Connection
	From     geom.Point
	To       geom.Point
	Selected bool
}

// GroupFrame is a group with its background shape for this frame. Groups
// without any drawable member are left out of the frame.
type GroupFrame struct {
	flowchart.Group
	Outline  interact.Outline
	Selected bool
}

// Frame is everything a renderer needs for one repaint. It is a copy and
// stays valid after further edits.
type Frame struct {
	Nodes       []NodeFrame
	Connections []ConnectionFrame
	Groups      []GroupFrame
	Connect     *interact.ConnectPreview
	Marquee     *geom.Rect
	Mode        interact.Mode
	CanUndo     bool
	CanRedo     bool
	Dirty       bool
}

// Snapshot returns the current frame, with drag previews applied to node
// positions and connection endpoints.
func (e *Editor) Snapshot() Frame {
	st := e.ctrl.State()
	selected := make(map[string]bool, len(st.Selected))
	for _, id := range st.Selected {
		selected[id] = true
	}

	nodes := e.View().Nodes()
	f := Frame{
		Nodes:   make([]NodeFrame, 0, len(nodes)),
		Connect: st.Connect,
		Marquee: st.Marquee,
		Mode:    st.Mode,
		CanUndo: e.hist.CanUndo(),
		CanRedo: e.hist.CanRedo(),
		Dirty:   e.dirty,
	}
	pos := make(map[string]geom.Point, len(nodes))
	drawn := make(map[string]flowchart.Node, len(nodes))
	for _, n := range nodes {
		nf := NodeFrame{Node: n, Selected: selected[n.ID]}
		if p, ok := st.Previews[n.ID]; ok {
			nf.Position = p
			nf.Dragging = true
		}
		if n.Kind.CanSend() {
			nf.Port = interact.PortPosition(nf.Node)
			nf.HasPort = true
		}
		pos[n.ID] = nf.Position
		drawn[n.ID] = nf.Node
		f.Nodes = append(f.Nodes, nf)
	}

	lookup := func(id string) (flowchart.Node, bool) {
		n, ok := drawn[id]
		return n, ok
	}
	groups := e.View().Groups()
	f.Groups = make([]GroupFrame, 0, len(groups))
	for _, g := range groups {
		o, ok := interact.GroupOutline(g, lookup)
		if !ok {
			continue
		}
		f.Groups = append(f.Groups, GroupFrame{Group: g, Outline: o, Selected: g.ID == st.SelectedGroup})
	}

	conns := e.View().Connections()
	f.Connections = make([]ConnectionFrame, 0, len(conns))
	for _, c := range conns {
		f.Connections = append(f.Connections, ConnectionFrame{
			Connection: c,
			From:       pos[c.SourceID],
			To:         pos[c.TargetID],
			Selected:   c.ID == st.SelectedConnection,
		})
	}
	return f
}
