// Package graph owns the canonical set of nodes, connections and groups
// of a flowchart and keeps its structural invariants: no dangling connection,
// no self-loop, no duplicate edge, no consumer as source and no producer
// as target.
//
// Every mutating method validates first and mutates last, so a returned
// error means the model is exactly as it was. Elements keep their
// insertion order, which is the order used for serialization.
//
// A Model is not safe for concurrent use.
package graph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/geom"
)

// View is read-only access to a graph, handed to the interaction layer
// and to renderers.
type View interface {
	Node(id string) (flowchart.Node, bool)
	Connection(id string) (flowchart.Connection, bool)
	Nodes() []flowchart.Node
	Connections() []flowchart.Connection
	Incident(id string) []flowchart.Connection
	HasEdge(source, target string) bool
	NodeCount() int
	ConnectionCount() int
	Group(id string) (flowchart.Group, bool)
	Groups() []flowchart.Group
}

// ConnectionRemoval records a removed connection and the slot it held in
// connection order.
type ConnectionRemoval struct {
	Connection flowchart.Connection
	Index      int
}

// Membership records the slot a node held in a group's member list.
type Membership struct {
	GroupID string
	Index   int
}

// Removal is everything RemoveNode took out of the model: the node, its
// slot in node order, its incident connections in ascending slot order
// and its group memberships. Restore puts all of it back verbatim.
type Removal struct {
	Node        flowchart.Node
	Index       int
	Connections []ConnectionRemoval
	Memberships []Membership
}

// GroupRemoval records a removed group and the slot it held in group
// order.
type GroupRemoval struct {
	Group flowchart.Group
	Index int
}

// Option configures a Model.
type Option func(*Model)

// WithNodeSize sets the hit box given to nodes inserted without a size.
func WithNodeSize(s geom.Size) Option {
	return func(m *Model) {
		m.nodeSize = s
	}
}

// Model is the graph of a single flowchart document.
type Model struct {
	nodes     map[string]flowchart.Node
	nodeOrder []string
	conns     map[string]flowchart.Connection
	connOrder []string
	groups    map[string]flowchart.Group
	grpOrder  []string
	nodeSize  geom.Size
}

var _ View = (*Model)(nil)

// New creates an empty model.
func New(opts ...Option) *Model {
	m := &Model{
		nodes:    make(map[string]flowchart.Node),
		conns:    make(map[string]flowchart.Connection),
		groups:   make(map[string]flowchart.Group),
		nodeSize: flowchart.DefaultNodeSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NodeSize returns the default hit box of the model.
func (m *Model) NodeSize() geom.Size { return m.nodeSize }

// AddNode creates a node with a fresh id and returns that id.
func (m *Model) AddNode(kind flowchart.Kind, pos geom.Point, label string) (string, error) {
	n := flowchart.Node{
		ID:       uuid.NewString(),
		Kind:     kind,
		Position: pos,
		Label:    label,
	}
	if err := m.InsertNode(n, -1); err != nil {
		return "", err
	}
	return n.ID, nil
}

// InsertNode adds n with its own id at the given slot of node order.
// An out-of-range index appends. A zero Size gets the model default.
func (m *Model) InsertNode(n flowchart.Node, index int) error {
	if n.ID == "" {
		return fmt.Errorf("graph: node id must not be empty")
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("graph: node %s: invalid kind %d", n.ID, int(n.Kind))
	}
	if _, exists := m.nodes[n.ID]; exists {
		return fmt.Errorf("%w: node %s", flowchart.ErrDuplicateID, n.ID)
	}
	if n.Size == (geom.Size{}) {
		n.Size = m.nodeSize
	}
	m.nodes[n.ID] = n
	m.nodeOrder = insertAt(m.nodeOrder, index, n.ID)
	return nil
}

// RemoveNode deletes a node together with every connection touching it
// and drops it from every group. It never consults the connection rules:
// removal cannot produce an invalid graph. A group left without members
// stays in the model.
func (m *Model) RemoveNode(id string) (Removal, error) {
	n, ok := m.nodes[id]
	if !ok {
		return Removal{}, fmt.Errorf("%w: node %s", flowchart.ErrNotFound, id)
	}
	r := Removal{Node: n, Index: slices.Index(m.nodeOrder, id)}

	kept := m.connOrder[:0:0]
	for i, cid := range m.connOrder {
		c := m.conns[cid]
		if c.Touches(id) {
			r.Connections = append(r.Connections, ConnectionRemoval{Connection: c, Index: i})
			continue
		}
		kept = append(kept, cid)
	}

	for _, gid := range m.grpOrder {
		g := m.groups[gid]
		if i := slices.Index(g.Members, id); i >= 0 {
			r.Memberships = append(r.Memberships, Membership{GroupID: gid, Index: i})
		}
	}

	for _, cr := range r.Connections {
		delete(m.conns, cr.Connection.ID)
	}
	m.connOrder = kept
	for _, ms := range r.Memberships {
		g := m.groups[ms.GroupID]
		g.Members = slices.Delete(slices.Clone(g.Members), ms.Index, ms.Index+1)
		m.groups[ms.GroupID] = g
	}
	delete(m.nodes, id)
	m.nodeOrder = slices.Delete(m.nodeOrder, r.Index, r.Index+1)
	return r, nil
}

// Restore reverses a RemoveNode, putting the node and its connections back
// with their original ids and order slots. Like every mutation it is all
// or nothing.
func (m *Model) Restore(r Removal) error {
	n := r.Node
	if n.ID == "" || !n.Kind.Valid() {
		return fmt.Errorf("graph: restore: invalid node %q", n.ID)
	}
	if _, exists := m.nodes[n.ID]; exists {
		return fmt.Errorf("%w: node %s", flowchart.ErrDuplicateID, n.ID)
	}

	kindOf := func(id string) (flowchart.Kind, bool) {
		if id == n.ID {
			return n.Kind, true
		}
		other, ok := m.nodes[id]
		return other.Kind, ok
	}
	pending := m.Connections()
	for _, cr := range r.Connections {
		c := cr.Connection
		if _, exists := m.conns[c.ID]; exists {
			return fmt.Errorf("%w: connection %s", flowchart.ErrDuplicateID, c.ID)
		}
		if !c.Touches(n.ID) {
			return fmt.Errorf("graph: restore: connection %s does not touch node %s", c.ID, n.ID)
		}
		sk, ok := kindOf(c.SourceID)
		if !ok {
			return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, c.SourceID)
		}
		tk, ok := kindOf(c.TargetID)
		if !ok {
			return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, c.TargetID)
		}
		if err := flowchart.CanConnect(sk, tk, pending, c.SourceID, c.TargetID); err != nil {
			return err
		}
		pending = append(pending, c)
	}
	for _, ms := range r.Memberships {
		g, ok := m.groups[ms.GroupID]
		if !ok {
			return fmt.Errorf("%w: group %s", flowchart.ErrNotFound, ms.GroupID)
		}
		if g.Has(n.ID) {
			return fmt.Errorf("%w: node %s in group %s", flowchart.ErrDuplicateID, n.ID, ms.GroupID)
		}
	}

	if n.Size == (geom.Size{}) {
		n.Size = m.nodeSize
	}
	m.nodes[n.ID] = n
	m.nodeOrder = insertAt(m.nodeOrder, r.Index, n.ID)
	for _, cr := range r.Connections {
		m.conns[cr.Connection.ID] = cr.Connection
		m.connOrder = insertAt(m.connOrder, cr.Index, cr.Connection.ID)
	}
	for _, ms := range r.Memberships {
		g := m.groups[ms.GroupID]
		g.Members = insertAt(slices.Clone(g.Members), ms.Index, n.ID)
		m.groups[ms.GroupID] = g
	}
	return nil
}

// MoveNode sets the position of a node.
func (m *Model) MoveNode(id string, pos geom.Point) error {
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, id)
	}
	n.Position = pos
	m.nodes[id] = n
	return nil
}

// RenameNode sets the label of a node and returns the previous one.
func (m *Model) RenameNode(id, label string) (string, error) {
	n, ok := m.nodes[id]
	if !ok {
		return "", fmt.Errorf("%w: node %s", flowchart.ErrNotFound, id)
	}
	old := n.Label
	n.Label = label
	m.nodes[id] = n
	return old, nil
}

// AddConnection creates a source -> target connection with a fresh id.
// It fails with ErrNotFound when an endpoint is missing and with a
// *flowchart.ValidationError when the connection rules reject the edge.
func (m *Model) AddConnection(source, target string) (string, error) {
	c := flowchart.Connection{
		ID:       uuid.NewString(),
		SourceID: source,
		TargetID: target,
	}
	if err := m.InsertConnection(c, -1); err != nil {
		return "", err
	}
	return c.ID, nil
}

// InsertConnection adds c with its own id at the given slot of connection
// order. The connection rules apply exactly as for AddConnection.
func (m *Model) InsertConnection(c flowchart.Connection, index int) error {
	if c.ID == "" {
		return fmt.Errorf("graph: connection id must not be empty")
	}
	if _, exists := m.conns[c.ID]; exists {
		return fmt.Errorf("%w: connection %s", flowchart.ErrDuplicateID, c.ID)
	}
	src, ok := m.nodes[c.SourceID]
	if !ok {
		return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, c.SourceID)
	}
	dst, ok := m.nodes[c.TargetID]
	if !ok {
		return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, c.TargetID)
	}
	if err := flowchart.CanConnect(src.Kind, dst.Kind, m.Connections(), c.SourceID, c.TargetID); err != nil {
		return err
	}
	m.conns[c.ID] = c
	m.connOrder = insertAt(m.connOrder, index, c.ID)
	return nil
}

// RemoveConnection deletes a connection and reports the slot it held.
func (m *Model) RemoveConnection(id string) (ConnectionRemoval, error) {
	c, ok := m.conns[id]
	if !ok {
		return ConnectionRemoval{}, fmt.Errorf("%w: connection %s", flowchart.ErrNotFound, id)
	}
	i := slices.Index(m.connOrder, id)
	delete(m.conns, id)
	m.connOrder = slices.Delete(m.connOrder, i, i+1)
	return ConnectionRemoval{Connection: c, Index: i}, nil
}

// ── Groups ──

// AddGroup creates a group with a fresh id over the given members and
// returns that id.
func (m *Model) AddGroup(name string, drawing flowchart.GroupDrawing, members []string) (string, error) {
	g := flowchart.Group{
		ID:      uuid.NewString(),
		Name:    name,
		Members: members,
		Drawing: drawing,
	}
	if err := m.InsertGroup(g, -1); err != nil {
		return "", err
	}
	return g.ID, nil
}

// InsertGroup adds g with its own id at the given slot of group order.
// Every member must be an existing node and may appear only once.
func (m *Model) InsertGroup(g flowchart.Group, index int) error {
	if g.ID == "" {
		return fmt.Errorf("graph: group id must not be empty")
	}
	if !g.Drawing.Valid() {
		return fmt.Errorf("graph: group %s: invalid drawing %d", g.ID, int(g.Drawing))
	}
	if _, exists := m.groups[g.ID]; exists {
		return fmt.Errorf("%w: group %s", flowchart.ErrDuplicateID, g.ID)
	}
	if err := m.checkMembers(g.Members); err != nil {
		return fmt.Errorf("graph: group %s: %w", g.ID, err)
	}
	g.Members = slices.Clone(g.Members)
	m.groups[g.ID] = g
	m.grpOrder = insertAt(m.grpOrder, index, g.ID)
	return nil
}

// RemoveGroup deletes a group. Its members stay in the model.
func (m *Model) RemoveGroup(id string) (GroupRemoval, error) {
	g, ok := m.groups[id]
	if !ok {
		return GroupRemoval{}, fmt.Errorf("%w: group %s", flowchart.ErrNotFound, id)
	}
	i := slices.Index(m.grpOrder, id)
	delete(m.groups, id)
	m.grpOrder = slices.Delete(m.grpOrder, i, i+1)
	return GroupRemoval{Group: g, Index: i}, nil
}

// SetMembers replaces the member list of a group and returns the
// previous one.
func (m *Model) SetMembers(id string, members []string) ([]string, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", flowchart.ErrNotFound, id)
	}
	if err := m.checkMembers(members); err != nil {
		return nil, fmt.Errorf("graph: group %s: %w", id, err)
	}
	old := g.Members
	g.Members = slices.Clone(members)
	m.groups[id] = g
	return old, nil
}

// RenameGroup sets the name of a group and returns the previous one.
func (m *Model) RenameGroup(id, name string) (string, error) {
	g, ok := m.groups[id]
	if !ok {
		return "", fmt.Errorf("%w: group %s", flowchart.ErrNotFound, id)
	}
	old := g.Name
	g.Name = name
	m.groups[id] = g
	return old, nil
}

// SetDrawing sets the drawing mode of a group and returns the previous one.
func (m *Model) SetDrawing(id string, d flowchart.GroupDrawing) (flowchart.GroupDrawing, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("graph: group %s: invalid drawing %d", id, int(d))
	}
	g, ok := m.groups[id]
	if !ok {
		return 0, fmt.Errorf("%w: group %s", flowchart.ErrNotFound, id)
	}
	old := g.Drawing
	g.Drawing = d
	m.groups[id] = g
	return old, nil
}

func (m *Model) checkMembers(members []string) error {
	seen := make(map[string]bool, len(members))
	for _, id := range members {
		if _, ok := m.nodes[id]; !ok {
			return fmt.Errorf("%w: node %s", flowchart.ErrNotFound, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: member %s", flowchart.ErrDuplicateID, id)
		}
		seen[id] = true
	}
	return nil
}

// Group returns the group with the given id. The member slice is a copy.
func (m *Model) Group(id string) (flowchart.Group, bool) {
	g, ok := m.groups[id]
	g.Members = slices.Clone(g.Members)
	return g, ok
}

// Groups returns a copy of all groups in insertion order.
func (m *Model) Groups() []flowchart.Group {
	out := make([]flowchart.Group, 0, len(m.grpOrder))
	for _, id := range m.grpOrder {
		g := m.groups[id]
		g.Members = slices.Clone(g.Members)
		out = append(out, g)
	}
	return out
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (flowchart.Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Connection returns the connection with the given id.
func (m *Model) Connection(id string) (flowchart.Connection, bool) {
	c, ok := m.conns[id]
	return c, ok
}

// Nodes returns a copy of all nodes in insertion order.
func (m *Model) Nodes() []flowchart.Node {
	out := make([]flowchart.Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		out = append(out, m.nodes[id])
	}
	return out
}

// Connections returns a copy of all connections in insertion order.
func (m *Model) Connections() []flowchart.Connection {
	out := make([]flowchart.Connection, 0, len(m.connOrder))
	for _, id := range m.connOrder {
		out = append(out, m.conns[id])
	}
	return out
}

// Incident returns the connections that have id as an endpoint.
func (m *Model) Incident(id string) []flowchart.Connection {
	var out []flowchart.Connection
	for _, cid := range m.connOrder {
		if c := m.conns[cid]; c.Touches(id) {
			out = append(out, c)
		}
	}
	return out
}

// HasEdge reports whether a source -> target connection exists.
func (m *Model) HasEdge(source, target string) bool {
	for _, cid := range m.connOrder {
		if c := m.conns[cid]; c.SourceID == source && c.TargetID == target {
			return true
		}
	}
	return false
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.nodes) }

// ConnectionCount returns the number of connections.
func (m *Model) ConnectionCount() int { return len(m.conns) }

func insertAt(ids []string, index int, id string) []string {
	if index < 0 || index > len(ids) {
		return append(ids, id)
	}
	return slices.Insert(ids, index, id)
}
