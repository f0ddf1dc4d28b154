// Package flowchart defines the shared vocabulary of the flowchart document
// engine: node kinds, nodes, connections, the persisted Document, the
// connection rules and the error kinds every other package reports.
//
// The graph itself lives in package graph, the undo/redo engine in
// package history and pointer handling in package interact.
package flowchart

import (
	"fmt"
	"slices"

	"github.com/meikuraledutech/flowchart/geom"
)

// Kind is the closed set of node types. The connection rules switch over
// it exhaustively, so adding a kind means revisiting CanConnect.
type Kind int

const (
	// Producer nodes emit and never receive.
	Producer Kind = iota + 1
	// Consumer nodes receive and never emit.
	Consumer
	// Processor nodes both receive and emit.
	Processor
)

func (k Kind) String() string {
	switch k {
	case Producer:
		return "producer"
	case Consumer:
		return "consumer"
	case Processor:
		return "processor"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case Producer, Consumer, Processor:
		return true
	default:
		return false
	}
}

// CanSend reports whether a node of this kind may be a connection source.
func (k Kind) CanSend() bool { return k == Producer || k == Processor }

// CanReceive reports whether a node of this kind may be a connection target.
func (k Kind) CanReceive() bool { return k == Consumer || k == Processor }

// ParseKind maps the persisted name of a kind back to its value.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "producer":
		return Producer, nil
	case "consumer":
		return Consumer, nil
	case "processor":
		return Processor, nil
	default:
		return 0, fmt.Errorf("flowchart: unknown node kind %q", s)
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("flowchart: cannot encode %s", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// DefaultNodeSize is the hit box of a node unless the model is configured
// otherwise.
var DefaultNodeSize = geom.Size{W: 100, H: 70}

// Node is a typed, positioned vertex. Position is the centre of the node;
// Size is the hit box around it. The ID never changes for the node's life.
type Node struct {
	ID       string
	Kind     Kind
	Position geom.Point
	Label    string
	Size     geom.Size
}

// Bounds returns the hit box of the node.
func (n Node) Bounds() geom.Rect {
	return geom.RectFromCenter(n.Position, n.Size)
}

// Connection is a directed edge between two nodes, referenced by id.
type Connection struct {
	ID       string
	SourceID string
	TargetID string
}

// Touches reports whether the connection has nodeID as either endpoint.
func (c Connection) Touches(nodeID string) bool {
	return c.SourceID == nodeID || c.TargetID == nodeID
}

// GroupDrawing selects how a group outline is derived from its members.
type GroupDrawing int

const (
	// DrawRectangle outlines the padded union of the member boxes.
	DrawRectangle GroupDrawing = iota + 1
	// DrawPolygon outlines the convex hull of the padded member boxes.
	DrawPolygon
)

func (d GroupDrawing) String() string {
	switch d {
	case DrawRectangle:
		return "rectangle"
	case DrawPolygon:
		return "polygon"
	default:
		return fmt.Sprintf("drawing(%d)", int(d))
	}
}

// Valid reports whether d is one of the declared drawing modes.
func (d GroupDrawing) Valid() bool { return d == DrawRectangle || d == DrawPolygon }

// ParseGroupDrawing maps a persisted drawing name back to its value.
func ParseGroupDrawing(s string) (GroupDrawing, error) {
	switch s {
	case "rectangle":
		return DrawRectangle, nil
	case "polygon":
		return DrawPolygon, nil
	default:
		return 0, fmt.Errorf("flowchart: unknown group drawing %q", s)
	}
}

// MarshalText encodes the drawing mode by name.
func (d GroupDrawing) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("flowchart: cannot encode %s", d)
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a drawing mode name.
func (d *GroupDrawing) UnmarshalText(b []byte) error {
	v, err := ParseGroupDrawing(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// GroupPadding is the margin between member boxes and a group outline.
const GroupPadding = 25.0

// Group is a named set of nodes drawn as one background shape. Groups
// carry no rules: deleting a group keeps its nodes, and deleting a node
// drops it from every group.
type Group struct {
	ID      string
	Name    string
	Members []string
	Drawing GroupDrawing
}

// Has reports whether nodeID is a member of the group.
func (g Group) Has(nodeID string) bool {
	return slices.Contains(g.Members, nodeID)
}

// Document is the persisted snapshot of a graph. It carries no selection
// state and no history.
type Document struct {
	Version     int                  `json:"version" yaml:"version"`
	Nodes       []DocumentNode       `json:"nodes" yaml:"nodes"`
	Connections []DocumentConnection `json:"connections" yaml:"connections"`
	Groups      []DocumentGroup      `json:"groups" yaml:"groups"`
}

// DocumentNode is the persisted form of a Node.
type DocumentNode struct {
	ID    string  `json:"id" yaml:"id"`
	Kind  Kind    `json:"kind" yaml:"kind"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Label string  `json:"label" yaml:"label"`
}

// DocumentConnection is the persisted form of a Connection.
type DocumentConnection struct {
	ID       string `json:"id" yaml:"id"`
	SourceID string `json:"source_id" yaml:"source_id"`
	TargetID string `json:"target_id" yaml:"target_id"`
}

// DocumentGroup is the persisted form of a Group.
type DocumentGroup struct {
	ID      string       `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	Members []string     `json:"members" yaml:"members"`
	Drawing GroupDrawing `json:"drawing" yaml:"drawing"`
}
