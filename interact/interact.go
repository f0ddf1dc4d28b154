// Package interact turns pointer events into selection changes and
// candidate commands. It reads the graph through a graph.View and never
// mutates it: a finished gesture yields a history.Command (or nil) for the
// caller to apply.
//
// Hit-testing is topmost first, and topmost means most recently inserted:
// nodes are scanned in reverse insertion order and the first node whose
// output port or body contains the point wins, so a node drawn on top
// shields the ports beneath it. Nodes are tested before connections and
// connections before group backgrounds.
//
// A Controller is not safe for concurrent use.
package interact

import (
	"slices"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/graph"
	"github.com/meikuraledutech/flowchart/history"
)

// Config holds the tunables of pointer handling, in world units.
type Config struct {
	// GridStep is the snap grid spacing.
	GridStep float64
	// DragThreshold is how far the pointer must travel from the press
	// before a node drag starts. Shorter gestures are clicks.
	DragThreshold float64
	// PortRadius is the radius of the output port drawn at the middle of a
	// node's right edge.
	PortRadius float64
	// ConnectionTolerance is the maximum distance from a connection line
	// that still counts as a hit.
	ConnectionTolerance float64
}

// DefaultConfig returns the stock canvas settings.
func DefaultConfig() Config {
	return Config{
		GridStep:            20,
		DragThreshold:       4,
		PortRadius:          8,
		ConnectionTolerance: 10,
	}
}

// Modifiers is the modifier-key state sampled at press time.
type Modifiers struct {
	// Shift toggles node membership on click and makes marquees additive.
	Shift bool
	// Snap quantizes a node drag to the grid. It is latched for the whole
	// drag.
	Snap bool
}

// Mode is the gesture in progress.
type Mode int

const (
	ModeIdle Mode = iota
	// ModePressed is a press on a node that has not yet travelled far
	// enough to be a drag.
	ModePressed
	ModeNodeDrag
	ModeConnectDrag
	ModeMarquee
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModePressed:
		return "pressed"
	case ModeNodeDrag:
		return "node-drag"
	case ModeConnectDrag:
		return "connect-drag"
	case ModeMarquee:
		return "marquee"
	default:
		return "unknown"
	}
}

// ConnectPreview describes a connection being drawn.
type ConnectPreview struct {
	Source string
	Cursor geom.Point
	// Target is the node under the cursor, if any; Valid tells whether
	// releasing there would create the connection.
	Target string
	Valid  bool
}

// State is the read-only interaction state handed to renderers.
type State struct {
	Mode               Mode
	Selected           []string
	SelectedConnection string
	// Previews maps node ids to their in-flight positions during a drag.
	Previews map[string]geom.Point
	Connect  *ConnectPreview
	Marquee  *geom.Rect
	// SelectedGroup is the group picked by clicking its background.
	SelectedGroup string
}

// Controller tracks selection and the gesture in progress.
type Controller struct {
	view graph.View
	cfg  Config

	selected     []string
	selectedConn string
	selectedGrp  string

	mode     Mode
	press    geom.Point
	cursor   geom.Point
	anchor   string
	snap     bool
	additive bool
	from     string
	origins  map[string]geom.Point
	order    []string
	previews map[string]geom.Point
}

// New creates a controller reading from view.
func New(view graph.View, cfg Config) *Controller {
	return &Controller{view: view, cfg: cfg}
}

// SetView points the controller at another graph and clears selection.
// It must only be called while idle.
func (c *Controller) SetView(view graph.View) {
	c.view = view
	c.ClearSelection()
}

// Mode returns the gesture in progress.
func (c *Controller) Mode() Mode { return c.mode }

// Busy reports whether a gesture is in progress.
func (c *Controller) Busy() bool { return c.mode != ModeIdle }

// Press starts a gesture at p. Presses while a gesture is already running
// are ignored.
func (c *Controller) Press(p geom.Point, mods Modifiers) {
	if c.mode != ModeIdle {
		return
	}
	c.press, c.cursor = p, p

	if id, port, ok := c.hit(p); ok {
		if port {
			c.mode = ModeConnectDrag
			c.from = id
			return
		}
		if mods.Shift {
			c.toggle(id)
			return
		}
		c.selectedConn = ""
		c.selectedGrp = ""
		if !c.IsSelected(id) {
			c.selected = []string{id}
		}
		c.mode = ModePressed
		c.anchor = id
		c.snap = mods.Snap
		c.origins = make(map[string]geom.Point, len(c.selected))
		c.order = c.order[:0]
		for _, sid := range c.selected {
			if n, ok := c.view.Node(sid); ok {
				c.origins[sid] = n.Position
				c.order = append(c.order, sid)
			}
		}
		return
	}

	if cid, ok := c.ConnectionAt(p); ok {
		c.selected = nil
		c.selectedConn = cid
		c.selectedGrp = ""
		return
	}

	if gid, ok := c.GroupAt(p); ok {
		c.selected = nil
		c.selectedConn = ""
		c.selectedGrp = gid
		return
	}

	c.mode = ModeMarquee
	c.additive = mods.Shift
	if !c.additive {
		c.ClearSelection()
	}
}

// Move updates the gesture in progress with the pointer at p.
func (c *Controller) Move(p geom.Point) {
	c.cursor = p
	switch c.mode {
	case ModePressed:
		if geom.Dist(p, c.press) < c.cfg.DragThreshold {
			return
		}
		c.mode = ModeNodeDrag
		c.updatePreviews(p)
	case ModeNodeDrag:
		c.updatePreviews(p)
	}
}

// Release ends the gesture at p and returns the command it produced, or
// nil when the gesture changes nothing in the graph: clicks, marquees,
// drags that moved no node and connections dropped on empty space or on an
// incompatible node.
func (c *Controller) Release(p geom.Point) history.Command {
	defer c.reset()
	c.cursor = p

	switch c.mode {
	case ModePressed:
		c.selected = []string{c.anchor}
		return nil

	case ModeNodeDrag:
		c.updatePreviews(p)
		var moves []history.Move
		for _, id := range c.order {
			from, to := c.origins[id], c.previews[id]
			if from == to {
				continue
			}
			if _, ok := c.view.Node(id); !ok {
				continue
			}
			moves = append(moves, history.Move{ID: id, From: from, To: to})
		}
		if len(moves) == 0 {
			return nil
		}
		return history.NewMoveNodes(moves...)

	case ModeConnectDrag:
		target, ok := c.NodeAt(p)
		if !ok || c.canConnect(c.from, target) != nil {
			return nil
		}
		return history.NewCreateConnection(c.from, target)

	case ModeMarquee:
		rect := geom.RectFromCorners(c.press, p)
		for _, n := range c.view.Nodes() {
			if rect.Contains(n.Position) && !c.IsSelected(n.ID) {
				c.selected = append(c.selected, n.ID)
			}
		}
		if len(c.selected) > 0 {
			c.selectedConn = ""
		}
		return nil
	}
	return nil
}

func (c *Controller) reset() {
	c.mode = ModeIdle
	c.anchor = ""
	c.from = ""
	c.snap = false
	c.additive = false
	c.origins = nil
	c.previews = nil
	c.order = c.order[:0]
}

// updatePreviews positions every dragged node relative to the press point,
// so the result depends only on the current pointer and never drifts.
func (c *Controller) updatePreviews(p geom.Point) {
	origin := c.origins[c.anchor]
	target := origin.Add(p.Sub(c.press))
	if c.snap {
		target = geom.Snap(target, c.cfg.GridStep)
	}
	delta := target.Sub(origin)
	if c.previews == nil {
		c.previews = make(map[string]geom.Point, len(c.order))
	}
	for _, id := range c.order {
		c.previews[id] = c.origins[id].Add(delta)
	}
}

func (c *Controller) canConnect(source, target string) error {
	src, ok := c.view.Node(source)
	if !ok {
		return flowchart.ErrNotFound
	}
	dst, ok := c.view.Node(target)
	if !ok {
		return flowchart.ErrNotFound
	}
	return flowchart.CanConnect(src.Kind, dst.Kind, c.view.Connections(), source, target)
}

// hit returns the topmost node under p and whether p is on its output
// port rather than its body.
func (c *Controller) hit(p geom.Point) (id string, port bool, ok bool) {
	nodes := c.view.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Kind.CanSend() && geom.Dist(p, PortPosition(n)) <= c.cfg.PortRadius {
			return n.ID, true, true
		}
		if n.Bounds().Contains(p) {
			return n.ID, false, true
		}
	}
	return "", false, false
}

// NodeAt returns the topmost node whose body contains p.
func (c *Controller) NodeAt(p geom.Point) (string, bool) {
	nodes := c.view.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Bounds().Contains(p) {
			return nodes[i].ID, true
		}
	}
	return "", false
}

// PortAt returns the node whose output port is under p, unless a node
// drawn above it covers that point. Consumers have no output port.
func (c *Controller) PortAt(p geom.Point) (string, bool) {
	id, port, ok := c.hit(p)
	if !ok || !port {
		return "", false
	}
	return id, true
}

// ConnectionAt returns the topmost connection passing within the
// configured tolerance of p. Connections are drawn centre to centre.
func (c *Controller) ConnectionAt(p geom.Point) (string, bool) {
	conns := c.view.Connections()
	for i := len(conns) - 1; i >= 0; i-- {
		src, ok1 := c.view.Node(conns[i].SourceID)
		dst, ok2 := c.view.Node(conns[i].TargetID)
		if !ok1 || !ok2 {
			continue
		}
		if geom.SegmentDistance(p, src.Position, dst.Position) < c.cfg.ConnectionTolerance {
			return conns[i].ID, true
		}
	}
	return "", false
}

// PortPosition returns the centre of a node's output port.
func PortPosition(n flowchart.Node) geom.Point {
	return geom.Point{X: n.Position.X + n.Size.W/2, Y: n.Position.Y}
}

// Selected returns the selected node ids in selection order.
func (c *Controller) Selected() []string { return slices.Clone(c.selected) }

// SelectedConnection returns the selected connection id, if any.
func (c *Controller) SelectedConnection() string { return c.selectedConn }

// IsSelected reports whether id is selected.
func (c *Controller) IsSelected(id string) bool { return slices.Contains(c.selected, id) }

// SelectedGroup returns the selected group id, if any.
func (c *Controller) SelectedGroup() string { return c.selectedGrp }

// SelectGroup makes id the selected group, keeping node selection. An
// unknown id clears the group selection.
func (c *Controller) SelectGroup(id string) {
	c.selectedGrp = ""
	if _, ok := c.view.Group(id); ok {
		c.selectedGrp = id
	}
}

// Select replaces the selection with the given existing nodes.
func (c *Controller) Select(ids ...string) {
	c.selected = c.selected[:0]
	c.selectedConn = ""
	c.selectedGrp = ""
	for _, id := range ids {
		if _, ok := c.view.Node(id); ok && !c.IsSelected(id) {
			c.selected = append(c.selected, id)
		}
	}
}

// SelectAll selects every node.
func (c *Controller) SelectAll() {
	c.selected = c.selected[:0]
	c.selectedConn = ""
	c.selectedGrp = ""
	for _, n := range c.view.Nodes() {
		c.selected = append(c.selected, n.ID)
	}
}

// ClearSelection deselects everything.
func (c *Controller) ClearSelection() {
	c.selected = nil
	c.selectedConn = ""
	c.selectedGrp = ""
}

// Prune drops selected ids that are no longer in the graph.
func (c *Controller) Prune() {
	c.selected = slices.DeleteFunc(c.selected, func(id string) bool {
		_, ok := c.view.Node(id)
		return !ok
	})
	if c.selectedConn != "" {
		if _, ok := c.view.Connection(c.selectedConn); !ok {
			c.selectedConn = ""
		}
	}
	if c.selectedGrp != "" {
		if _, ok := c.view.Group(c.selectedGrp); !ok {
			c.selectedGrp = ""
		}
	}
}

// DeleteSelection returns one command deleting the selected connection and
// nodes, or nil when nothing is selected. The connection goes first so a
// cascade from a selected endpoint cannot remove it twice. A selected
// group takes precedence: only the group is deleted and its nodes stay.
func (c *Controller) DeleteSelection() history.Command {
	if c.selectedGrp != "" {
		if _, ok := c.view.Group(c.selectedGrp); ok {
			return history.NewDeleteGroup(c.selectedGrp)
		}
	}
	var cmds []history.Command
	if c.selectedConn != "" {
		if _, ok := c.view.Connection(c.selectedConn); ok {
			cmds = append(cmds, history.NewDeleteConnection(c.selectedConn))
		}
	}
	for _, id := range c.selected {
		if _, ok := c.view.Node(id); ok {
			cmds = append(cmds, history.NewDeleteNode(id))
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return history.NewBatch("delete-selection", cmds...)
}

// State returns a copy of the interaction state for rendering.
func (c *Controller) State() State {
	s := State{
		Mode:               c.mode,
		Selected:           slices.Clone(c.selected),
		SelectedConnection: c.selectedConn,
		SelectedGroup:      c.selectedGrp,
	}
	if c.mode == ModeNodeDrag && len(c.previews) > 0 {
		s.Previews = make(map[string]geom.Point, len(c.previews))
		for id, p := range c.previews {
			s.Previews[id] = p
		}
	}
	switch c.mode {
	case ModeConnectDrag:
		cp := &ConnectPreview{Source: c.from, Cursor: c.cursor}
		if id, ok := c.NodeAt(c.cursor); ok {
			cp.Target = id
			cp.Valid = c.canConnect(c.from, id) == nil
		}
		s.Connect = cp
	case ModeMarquee:
		r := geom.RectFromCorners(c.press, c.cursor)
		s.Marquee = &r
	}
	return s
}

func (c *Controller) toggle(id string) {
	if i := slices.Index(c.selected, id); i >= 0 {
		c.selected = slices.Delete(c.selected, i, i+1)
		return
	}
	c.selected = append(c.selected, id)
}
