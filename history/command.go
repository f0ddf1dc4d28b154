package history

import (
	"fmt"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/graph"
)

// Command is a reversible unit of change. Apply must either fully succeed
// or leave the model untouched, and Revert must undo exactly what the last
// Apply did. Commands capture the ids they create on the first Apply, so a
// redo reproduces the same ids.
//
// A command only ever sees the model, never the History, so it cannot
// enqueue further commands while it runs.
type Command interface {
	Apply(m *graph.Model) error
	Revert(m *graph.Model) error
	Name() string
}

// CreateNode adds one node.
type CreateNode struct {
	Kind     flowchart.Kind
	Position geom.Point
	Label    string

	id      string
	removal *graph.Removal
}

// NewCreateNode returns a command adding a node of the given kind.
func NewCreateNode(kind flowchart.Kind, pos geom.Point, label string) *CreateNode {
	return &CreateNode{Kind: kind, Position: pos, Label: label}
}

// ID returns the id of the created node, empty before the first Apply.
func (c *CreateNode) ID() string { return c.id }

func (c *CreateNode) Name() string { return "create-node" }

func (c *CreateNode) Apply(m *graph.Model) error {
	if c.removal != nil {
		if err := m.Restore(*c.removal); err != nil {
			return err
		}
		c.removal = nil
		return nil
	}
	id, err := m.AddNode(c.Kind, c.Position, c.Label)
	if err != nil {
		return err
	}
	c.id = id
	return nil
}

func (c *CreateNode) Revert(m *graph.Model) error {
	r, err := m.RemoveNode(c.id)
	if err != nil {
		return err
	}
	c.removal = &r
	return nil
}

// DeleteNode removes one node and, with it, every incident connection.
// Revert restores all of them with their original ids.
type DeleteNode struct {
	ID string

	removal graph.Removal
}

// NewDeleteNode returns a command deleting the node id.
func NewDeleteNode(id string) *DeleteNode {
	return &DeleteNode{ID: id}
}

func (c *DeleteNode) Name() string { return "delete-node" }

// Removed returns what the last Apply took out of the model.
func (c *DeleteNode) Removed() graph.Removal { return c.removal }

func (c *DeleteNode) Apply(m *graph.Model) error {
	r, err := m.RemoveNode(c.ID)
	if err != nil {
		return err
	}
	c.removal = r
	return nil
}

func (c *DeleteNode) Revert(m *graph.Model) error {
	return m.Restore(c.removal)
}

// Move is the relocation of a single node.
type Move struct {
	ID   string
	From geom.Point
	To   geom.Point
}

// MoveNodes relocates any number of nodes as one step of history.
type MoveNodes struct {
	Moves []Move
}

// NewMoveNodes returns a command applying every move at once.
func NewMoveNodes(moves ...Move) *MoveNodes {
	return &MoveNodes{Moves: moves}
}

func (c *MoveNodes) Name() string { return "move-nodes" }

func (c *MoveNodes) Apply(m *graph.Model) error {
	return c.set(m, func(mv Move) geom.Point { return mv.To })
}

func (c *MoveNodes) Revert(m *graph.Model) error {
	return c.set(m, func(mv Move) geom.Point { return mv.From })
}

func (c *MoveNodes) set(m *graph.Model, pick func(Move) geom.Point) error {
	for _, mv := range c.Moves {
		if _, ok := m.Node(mv.ID); !ok {
			return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, mv.ID)
		}
	}
	for _, mv := range c.Moves {
		if err := m.MoveNode(mv.ID, pick(mv)); err != nil {
			return err
		}
	}
	return nil
}

// RenameNode changes the label of a node.
type RenameNode struct {
	ID    string
	Label string

	old string
}

// NewRenameNode returns a command setting the label of id.
func NewRenameNode(id, label string) *RenameNode {
	return &RenameNode{ID: id, Label: label}
}

func (c *RenameNode) Name() string { return "rename-node" }

func (c *RenameNode) Apply(m *graph.Model) error {
	old, err := m.RenameNode(c.ID, c.Label)
	if err != nil {
		return err
	}
	c.old = old
	return nil
}

func (c *RenameNode) Revert(m *graph.Model) error {
	_, err := m.RenameNode(c.ID, c.old)
	return err
}

// CreateConnection adds a source -> target connection. Its inverse is the
// removal of that same connection id.
type CreateConnection struct {
	Source string
	Target string

	conn    flowchart.Connection
	index   int
	created bool
}

// NewCreateConnection returns a command connecting source to target.
func NewCreateConnection(source, target string) *CreateConnection {
	return &CreateConnection{Source: source, Target: target}
}

// ID returns the id of the created connection, empty before the first Apply.
func (c *CreateConnection) ID() string { return c.conn.ID }

func (c *CreateConnection) Name() string { return "create-connection" }

func (c *CreateConnection) Apply(m *graph.Model) error {
	if c.created {
		return m.InsertConnection(c.conn, c.index)
	}
	id, err := m.AddConnection(c.Source, c.Target)
	if err != nil {
		return err
	}
	c.conn, _ = m.Connection(id)
	c.index = -1
	c.created = true
	return nil
}

func (c *CreateConnection) Revert(m *graph.Model) error {
	cr, err := m.RemoveConnection(c.conn.ID)
	if err != nil {
		return err
	}
	c.index = cr.Index
	return nil
}

// DeleteConnection removes one connection; Revert puts it back in its
// original slot.
type DeleteConnection struct {
	ID string

	removal graph.ConnectionRemoval
}

// NewDeleteConnection returns a command deleting the connection id.
func NewDeleteConnection(id string) *DeleteConnection {
	return &DeleteConnection{ID: id}
}

func (c *DeleteConnection) Name() string { return "delete-connection" }

func (c *DeleteConnection) Apply(m *graph.Model) error {
	cr, err := m.RemoveConnection(c.ID)
	if err != nil {
		return err
	}
	c.removal = cr
	return nil
}

func (c *DeleteConnection) Revert(m *graph.Model) error {
	return m.InsertConnection(c.removal.Connection, c.removal.Index)
}

// CreateGroup adds one group over existing nodes.
type CreateGroup struct {
	Label   string
	Drawing flowchart.GroupDrawing
	Members []string

	group   flowchart.Group
	index   int
	created bool
}

// NewCreateGroup returns a command grouping members under name.
func NewCreateGroup(name string, drawing flowchart.GroupDrawing, members []string) *CreateGroup {
	return &CreateGroup{Label: name, Drawing: drawing, Members: members}
}

// ID returns the id of the created group, empty before the first Apply.
func (c *CreateGroup) ID() string { return c.group.ID }

func (c *CreateGroup) Name() string { return "create-group" }

func (c *CreateGroup) Apply(m *graph.Model) error {
	if c.created {
		return m.InsertGroup(c.group, c.index)
	}
	id, err := m.AddGroup(c.Label, c.Drawing, c.Members)
	if err != nil {
		return err
	}
	c.group, _ = m.Group(id)
	c.index = -1
	c.created = true
	return nil
}

func (c *CreateGroup) Revert(m *graph.Model) error {
	gr, err := m.RemoveGroup(c.group.ID)
	if err != nil {
		return err
	}
	c.group = gr.Group
	c.index = gr.Index
	return nil
}

// DeleteGroup removes a group and keeps its member nodes.
type DeleteGroup struct {
	ID string

	removal graph.GroupRemoval
}

// NewDeleteGroup returns a command deleting the group id.
func NewDeleteGroup(id string) *DeleteGroup {
	return &DeleteGroup{ID: id}
}

func (c *DeleteGroup) Name() string { return "delete-group" }

func (c *DeleteGroup) Apply(m *graph.Model) error {
	gr, err := m.RemoveGroup(c.ID)
	if err != nil {
		return err
	}
	c.removal = gr
	return nil
}

func (c *DeleteGroup) Revert(m *graph.Model) error {
	return m.InsertGroup(c.removal.Group, c.removal.Index)
}

// SetGroupMembers replaces the member list of a group.
type SetGroupMembers struct {
	ID      string
	Members []string

	old []string
}

// NewSetGroupMembers returns a command setting the members of id.
func NewSetGroupMembers(id string, members []string) *SetGroupMembers {
	return &SetGroupMembers{ID: id, Members: members}
}

func (c *SetGroupMembers) Name() string { return "set-group-members" }

func (c *SetGroupMembers) Apply(m *graph.Model) error {
	old, err := m.SetMembers(c.ID, c.Members)
	if err != nil {
		return err
	}
	c.old = old
	return nil
}

func (c *SetGroupMembers) Revert(m *graph.Model) error {
	_, err := m.SetMembers(c.ID, c.old)
	return err
}

// RenameGroup changes the name of a group.
type RenameGroup struct {
	ID    string
	Label string

	old string
}

// NewRenameGroup returns a command setting the name of id.
func NewRenameGroup(id, name string) *RenameGroup {
	return &RenameGroup{ID: id, Label: name}
}

func (c *RenameGroup) Name() string { return "rename-group" }

func (c *RenameGroup) Apply(m *graph.Model) error {
	old, err := m.RenameGroup(c.ID, c.Label)
	if err != nil {
		return err
	}
	c.old = old
	return nil
}

func (c *RenameGroup) Revert(m *graph.Model) error {
	_, err := m.RenameGroup(c.ID, c.old)
	return err
}

// SetGroupDrawing switches a group between rectangle and polygon outlines.
type SetGroupDrawing struct {
	ID      string
	Drawing flowchart.GroupDrawing

	old flowchart.GroupDrawing
}

// NewSetGroupDrawing returns a command setting the drawing mode of id.
func NewSetGroupDrawing(id string, d flowchart.GroupDrawing) *SetGroupDrawing {
	return &SetGroupDrawing{ID: id, Drawing: d}
}

func (c *SetGroupDrawing) Name() string { return "set-group-drawing" }

func (c *SetGroupDrawing) Apply(m *graph.Model) error {
	old, err := m.SetDrawing(c.ID, c.Drawing)
	if err != nil {
		return err
	}
	c.old = old
	return nil
}

func (c *SetGroupDrawing) Revert(m *graph.Model) error {
	_, err := m.SetDrawing(c.ID, c.old)
	return err
}

// Batch groups commands into one step of history. Children apply in order
// and revert in reverse order. If a child fails, the children already
// applied are reverted before the error is returned.
type Batch struct {
	Label    string
	Commands []Command
}

// NewBatch returns a compound command.
func NewBatch(label string, cmds ...Command) *Batch {
	return &Batch{Label: label, Commands: cmds}
}

// DeleteNodes returns one command deleting every id, cascading their
// connections.
func DeleteNodes(ids ...string) *Batch {
	b := &Batch{Label: "delete-nodes"}
	for _, id := range ids {
		b.Commands = append(b.Commands, NewDeleteNode(id))
	}
	return b
}

func (b *Batch) Name() string {
	if b.Label != "" {
		return b.Label
	}
	return "batch"
}

func (b *Batch) Apply(m *graph.Model) error {
	for i, c := range b.Commands {
		if err := c.Apply(m); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = b.Commands[j].Revert(m)
			}
			return err
		}
	}
	return nil
}

func (b *Batch) Revert(m *graph.Model) error {
	for i := len(b.Commands) - 1; i >= 0; i-- {
		if err := b.Commands[i].Revert(m); err != nil {
			for j := i + 1; j < len(b.Commands); j++ {
				_ = b.Commands[j].Apply(m)
			}
			return err
		}
	}
	return nil
}
