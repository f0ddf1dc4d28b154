// Package codec converts between the in-memory graph and the persisted
// document, and encodes documents as JSON or YAML.
//
// Decoding never repairs input. Missing required fields, unknown kinds,
// dangling or invalid connections and unsupported versions all yield a
// *flowchart.ParseError and no graph.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/flowchart"
)

const (
	// CurrentVersion is the schema version written by Encode.
	CurrentVersion = 1
	// MinVersion is the oldest schema version Decode accepts.
	MinVersion = 1
)

// Format is a document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("codec: unknown format %q", s)
	}
}

// FormatFromPath picks the format from a file extension. Paths without an
// extension are JSON.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return ParseFormat(ext)
}

// Encode serialises doc.
func Encode(doc flowchart.Document, f Format) ([]byte, error) {
	if doc.Nodes == nil {
		doc.Nodes = []flowchart.DocumentNode{}
	}
	if doc.Connections == nil {
		doc.Connections = []flowchart.DocumentConnection{}
	}
	groups := make([]flowchart.DocumentGroup, 0, len(doc.Groups))
	for _, g := range doc.Groups {
		if g.Members == nil {
			g.Members = []string{}
		}
		groups = append(groups, g)
	}
	doc.Groups = groups
	switch f {
	case FormatJSON:
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("codec: encode json: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("codec: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("codec: encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("codec: unknown format %v", f)
	}
}

// The wire types use pointers so a missing field can be told apart from a
// zero value. Groups postdate the first documents and stay optional.
type wireDocument struct {
	Version     *int              `json:"version" yaml:"version"`
	Nodes       *[]wireNode       `json:"nodes" yaml:"nodes"`
	Connections *[]wireConnection `json:"connections" yaml:"connections"`
	Groups      *[]wireGroup      `json:"groups" yaml:"groups"`
}

type wireNode struct {
	ID    *string  `json:"id" yaml:"id"`
	Kind  *string  `json:"kind" yaml:"kind"`
	X     *float64 `json:"x" yaml:"x"`
	Y     *float64 `json:"y" yaml:"y"`
	Label *string  `json:"label" yaml:"label"`
}

type wireConnection struct {
	ID       *string `json:"id" yaml:"id"`
	SourceID *string `json:"source_id" yaml:"source_id"`
	TargetID *string `json:"target_id" yaml:"target_id"`
}

type wireGroup struct {
	ID      *string   `json:"id" yaml:"id"`
	Name    *string   `json:"name" yaml:"name"`
	Members *[]string `json:"members" yaml:"members"`
	Drawing *string   `json:"drawing" yaml:"drawing"`
}

// Decode parses data into a document. It checks the shape of the input
// only; graph invariants are checked by FromDocument.
func Decode(data []byte, f Format) (flowchart.Document, error) {
	var w wireDocument
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, &w); err != nil {
			return flowchart.Document{}, &flowchart.ParseError{Reason: "malformed json", Err: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &w); err != nil {
			return flowchart.Document{}, &flowchart.ParseError{Reason: "malformed yaml", Err: err}
		}
	default:
		return flowchart.Document{}, fmt.Errorf("codec: unknown format %v", f)
	}
	return w.document()
}

// DecodeReader is Decode over a reader.
func DecodeReader(r io.Reader, f Format) (flowchart.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return flowchart.Document{}, fmt.Errorf("codec: read: %w", err)
	}
	return Decode(data, f)
}

func missing(field string) error {
	return &flowchart.ParseError{Reason: "missing field " + field}
}

func (w wireDocument) document() (flowchart.Document, error) {
	switch {
	case w.Version == nil:
		return flowchart.Document{}, missing("version")
	case w.Nodes == nil:
		return flowchart.Document{}, missing("nodes")
	case w.Connections == nil:
		return flowchart.Document{}, missing("connections")
	}

	doc := flowchart.Document{
		Version:     *w.Version,
		Nodes:       make([]flowchart.DocumentNode, 0, len(*w.Nodes)),
		Connections: make([]flowchart.DocumentConnection, 0, len(*w.Connections)),
		Groups:      []flowchart.DocumentGroup{},
	}
	for i, n := range *w.Nodes {
		at := func(f string) error { return missing(fmt.Sprintf("nodes[%d].%s", i, f)) }
		switch {
		case n.ID == nil:
			return flowchart.Document{}, at("id")
		case n.Kind == nil:
			return flowchart.Document{}, at("kind")
		case n.X == nil:
			return flowchart.Document{}, at("x")
		case n.Y == nil:
			return flowchart.Document{}, at("y")
		case n.Label == nil:
			return flowchart.Document{}, at("label")
		}
		kind, err := flowchart.ParseKind(*n.Kind)
		if err != nil {
			return flowchart.Document{}, &flowchart.ParseError{
				Reason: fmt.Sprintf("node %q: unknown kind %q", *n.ID, *n.Kind),
				Err:    err,
			}
		}
		doc.Nodes = append(doc.Nodes, flowchart.DocumentNode{
			ID: *n.ID, Kind: kind, X: *n.X, Y: *n.Y, Label: *n.Label,
		})
	}
	for i, c := range *w.Connections {
		at := func(f string) error { return missing(fmt.Sprintf("connections[%d].%s", i, f)) }
		switch {
		case c.ID == nil:
			return flowchart.Document{}, at("id")
		case c.SourceID == nil:
			return flowchart.Document{}, at("source_id")
		case c.TargetID == nil:
			return flowchart.Document{}, at("target_id")
		}
		doc.Connections = append(doc.Connections, flowchart.DocumentConnection{
			ID: *c.ID, SourceID: *c.SourceID, TargetID: *c.TargetID,
		})
	}
	if w.Groups == nil {
		return doc, nil
	}
	for i, g := range *w.Groups {
		at := func(f string) error { return missing(fmt.Sprintf("groups[%d].%s", i, f)) }
		switch {
		case g.ID == nil:
			return flowchart.Document{}, at("id")
		case g.Members == nil:
			return flowchart.Document{}, at("members")
		}
		dg := flowchart.DocumentGroup{
			ID:      *g.ID,
			Members: append([]string{}, *g.Members...),
			Drawing: flowchart.DrawRectangle,
		}
		if g.Name != nil {
			dg.Name = *g.Name
		}
		if g.Drawing != nil {
			d, err := flowchart.ParseGroupDrawing(*g.Drawing)
			if err != nil {
				return flowchart.Document{}, &flowchart.ParseError{
					Reason: fmt.Sprintf("group %q: unknown drawing %q", *g.ID, *g.Drawing),
					Err:    err,
				}
			}
			dg.Drawing = d
		}
		doc.Groups = append(doc.Groups, dg)
	}
	return doc, nil
}

// IsParseError reports whether err is, or wraps, a *flowchart.ParseError.
func IsParseError(err error) bool {
	var perr *flowchart.ParseError
	return errors.As(err, &perr)
}
