package codec

import (
	"errors"
	"fmt"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/graph"
)

// ToDocument snapshots v in insertion order.
func ToDocument(v graph.View) flowchart.Document {
	nodes := v.Nodes()
	conns := v.Connections()
	groups := v.Groups()
	doc := flowchart.Document{
		Version:     CurrentVersion,
		Nodes:       make([]flowchart.DocumentNode, 0, len(nodes)),
		Connections: make([]flowchart.DocumentConnection, 0, len(conns)),
		Groups:      make([]flowchart.DocumentGroup, 0, len(groups)),
	}
	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, flowchart.DocumentNode{
			ID:    n.ID,
			Kind:  n.Kind,
			X:     n.Position.X,
			Y:     n.Position.Y,
			Label: n.Label,
		})
	}
	for _, c := range conns {
		doc.Connections = append(doc.Connections, flowchart.DocumentConnection{
			ID:       c.ID,
			SourceID: c.SourceID,
			TargetID: c.TargetID,
		})
	}
	for _, g := range groups {
		doc.Groups = append(doc.Groups, flowchart.DocumentGroup{
			ID:      g.ID,
			Name:    g.Name,
			Members: append([]string{}, g.Members...),
			Drawing: g.Drawing,
		})
	}
	return doc
}

// FromDocument builds a fresh model from doc, keeping every id and the
// document order. Any violated invariant aborts with a *flowchart.ParseError
// and no model.
func FromDocument(doc flowchart.Document, opts ...graph.Option) (*graph.Model, error) {
	if doc.Version < MinVersion || doc.Version > CurrentVersion {
		return nil, &flowchart.ParseError{
			Reason: fmt.Sprintf("unsupported version %d (want %d..%d)", doc.Version, MinVersion, CurrentVersion),
		}
	}

	m := graph.New(opts...)
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return nil, &flowchart.ParseError{Reason: "node with empty id"}
		}
		if !n.Kind.Valid() {
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("node %q: unknown kind %s", n.ID, n.Kind)}
		}
		err := m.InsertNode(flowchart.Node{
			ID:       n.ID,
			Kind:     n.Kind,
			Position: geom.Pt(n.X, n.Y),
			Label:    n.Label,
		}, -1)
		if errors.Is(err, flowchart.ErrDuplicateID) {
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("duplicate node id %q", n.ID), Err: err}
		}
		if err != nil {
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("node %q", n.ID), Err: err}
		}
	}

	for _, c := range doc.Connections {
		if c.ID == "" {
			return nil, &flowchart.ParseError{Reason: "connection with empty id"}
		}
		err := m.InsertConnection(flowchart.Connection{
			ID:       c.ID,
			SourceID: c.SourceID,
			TargetID: c.TargetID,
		}, -1)
		var verr *flowchart.ValidationError
		switch {
		case err == nil:
		case errors.Is(err, flowchart.ErrDuplicateID):
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("duplicate connection id %q", c.ID), Err: err}
		case errors.Is(err, flowchart.ErrNotFound):
			return nil, &flowchart.ParseError{
				Reason: fmt.Sprintf("connection %q: dangling endpoint %s -> %s", c.ID, c.SourceID, c.TargetID),
				Err:    err,
			}
		case errors.As(err, &verr):
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("connection %q: %s", c.ID, verr.Reason), Err: err}
		default:
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("connection %q", c.ID), Err: err}
		}
	}

	for _, g := range doc.Groups {
		if g.ID == "" {
			return nil, &flowchart.ParseError{Reason: "group with empty id"}
		}
		if !g.Drawing.Valid() {
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("group %q: unknown drawing %s", g.ID, g.Drawing)}
		}
		err := m.InsertGroup(flowchart.Group{
			ID:      g.ID,
			Name:    g.Name,
			Members: g.Members,
			Drawing: g.Drawing,
		}, -1)
		switch {
		case err == nil:
		case errors.Is(err, flowchart.ErrNotFound):
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("group %q: unknown member", g.ID), Err: err}
		case errors.Is(err, flowchart.ErrDuplicateID):
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("group %q: duplicate id or member", g.ID), Err: err}
		default:
			return nil, &flowchart.ParseError{Reason: fmt.Sprintf("group %q", g.ID), Err: err}
		}
	}
	return m, nil
}

// Marshal snapshots v and encodes it.
func Marshal(v graph.View, f Format) ([]byte, error) {
	return Encode(ToDocument(v), f)
}

// Unmarshal decodes data and builds a model from it.
func Unmarshal(data []byte, f Format, opts ...graph.Option) (*graph.Model, error) {
	doc, err := Decode(data, f)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc, opts...)
}
