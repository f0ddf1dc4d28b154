package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/graph"
)

func sample(t *testing.T) *graph.Model {
	t.Helper()
	m := graph.New()
	p, err := m.AddNode(flowchart.Producer, geom.Pt(0, 0), "source")
	require.NoError(t, err)
	x, err := m.AddNode(flowchart.Processor, geom.Pt(200, 12.5), "filter")
	require.NoError(t, err)
	c, err := m.AddNode(flowchart.Consumer, geom.Pt(400, -40), "")
	require.NoError(t, err)
	_, err = m.AddConnection(p, x)
	require.NoError(t, err)
	_, err = m.AddConnection(x, c)
	require.NoError(t, err)
	_, err = m.AddConnection(p, c)
	require.NoError(t, err)
	_, err = m.AddGroup("ingest", flowchart.DrawPolygon, []string{p, x})
	require.NoError(t, err)
	return m
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(f.String(), func(t *testing.T) {
			m := sample(t)
			want := ToDocument(m)

			data, err := Encode(want, f)
			require.NoError(t, err)
			doc, err := Decode(data, f)
			require.NoError(t, err)
			loaded, err := FromDocument(doc)
			require.NoError(t, err)

			if diff := cmp.Diff(want, ToDocument(loaded)); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(m.Nodes(), loaded.Nodes()); diff != "" {
				t.Fatalf("nodes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmptyDocument(t *testing.T) {
	data, err := Marshal(graph.New(), FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"nodes": []`)

	m, err := Unmarshal(data, FormatJSON)
	require.NoError(t, err)
	assert.Zero(t, m.NodeCount())
}

func TestDecode_JSON(t *testing.T) {
	in := `{
		"version": 1,
		"extra": {"ignored": true},
		"nodes": [
			{"id": "a", "kind": "producer", "x": 1, "y": 2, "label": "A", "colour": "red"},
			{"id": "b", "kind": "consumer", "x": 3, "y": 4, "label": ""}
		],
		"connections": [{"id": "ab", "source_id": "a", "target_id": "b"}]
	}`
	doc, err := Decode([]byte(in), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, flowchart.Document{
		Version: 1,
		Nodes: []flowchart.DocumentNode{
			{ID: "a", Kind: flowchart.Producer, X: 1, Y: 2, Label: "A"},
			{ID: "b", Kind: flowchart.Consumer, X: 3, Y: 4, Label: ""},
		},
		Connections: []flowchart.DocumentConnection{{ID: "ab", SourceID: "a", TargetID: "b"}},
		Groups:      []flowchart.DocumentGroup{},
	}, doc)
}

func TestDecode_Groups(t *testing.T) {
	in := `{
		"version": 1,
		"nodes": [{"id": "a", "kind": "producer", "x": 1, "y": 2, "label": "A"}],
		"connections": [],
		"groups": [
			{"id": "g1", "name": "one", "members": ["a"], "drawing": "polygon"},
			{"id": "g2", "members": []}
		]
	}`
	doc, err := Decode([]byte(in), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []flowchart.DocumentGroup{
		{ID: "g1", Name: "one", Members: []string{"a"}, Drawing: flowchart.DrawPolygon},
		{ID: "g2", Name: "", Members: []string{}, Drawing: flowchart.DrawRectangle},
	}, doc.Groups)

	m, err := FromDocument(doc)
	require.NoError(t, err)
	require.Len(t, m.Groups(), 2)

	data, err := Encode(doc, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"drawing": "polygon"`)
	assert.Contains(t, string(data), `"members": []`)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		reason string
	}{
		{"malformed", `{"version":`, "malformed json"},
		{"no version", `{"nodes":[],"connections":[]}`, "missing field version"},
		{"no nodes", `{"version":1,"connections":[]}`, "missing field nodes"},
		{"null connections", `{"version":1,"nodes":[],"connections":null}`, "missing field connections"},
		{"node id", `{"version":1,"nodes":[{"kind":"producer","x":0,"y":0,"label":""}],"connections":[]}`, "missing field nodes[0].id"},
		{"node y", `{"version":1,"nodes":[{"id":"a","kind":"producer","x":0,"label":""}],"connections":[]}`, "missing field nodes[0].y"},
		{"node label", `{"version":1,"nodes":[{"id":"a","kind":"producer","x":0,"y":0}],"connections":[]}`, "missing field nodes[0].label"},
		{"unknown kind", `{"version":1,"nodes":[{"id":"a","kind":"sink","x":0,"y":0,"label":""}],"connections":[]}`, `node "a": unknown kind "sink"`},
		{"connection target", `{"version":1,"nodes":[],"connections":[{"id":"c","source_id":"a"}]}`, "missing field connections[0].target_id"},
		{"group id", `{"version":1,"nodes":[],"connections":[],"groups":[{"members":[]}]}`, "missing field groups[0].id"},
		{"group members", `{"version":1,"nodes":[],"connections":[],"groups":[{"id":"g"}]}`, "missing field groups[0].members"},
		{"group drawing", `{"version":1,"nodes":[],"connections":[],"groups":[{"id":"g","members":[],"drawing":"blob"}]}`, `group "g": unknown drawing "blob"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in), FormatJSON)
			var perr *flowchart.ParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.reason, perr.Reason)
		})
	}
}

func TestDecode_YAML(t *testing.T) {
	in := `
version: 1
nodes:
  - {id: a, kind: processor, x: 10, y: 20, label: step}
connections: []
`
	doc, err := Decode([]byte(in), FormatYAML)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, flowchart.Processor, doc.Nodes[0].Kind)
	assert.Equal(t, 20.0, doc.Nodes[0].Y)

	_, err = Decode([]byte("version: [1"), FormatYAML)
	assert.True(t, IsParseError(err))

	_, err = Decode([]byte("version: 1\nnodes: []\n"), FormatYAML)
	assert.True(t, IsParseError(err))
}

func TestFromDocument_Errors(t *testing.T) {
	node := func(id string, k flowchart.Kind) flowchart.DocumentNode {
		return flowchart.DocumentNode{ID: id, Kind: k}
	}
	conn := func(id, s, d string) flowchart.DocumentConnection {
		return flowchart.DocumentConnection{ID: id, SourceID: s, TargetID: d}
	}
	group := func(id string, members ...string) flowchart.DocumentGroup {
		return flowchart.DocumentGroup{ID: id, Members: members, Drawing: flowchart.DrawRectangle}
	}
	tests := []struct {
		name string
		doc  flowchart.Document
		is   error
	}{
		{
			name: "future version",
			doc:  flowchart.Document{Version: CurrentVersion + 1},
		},
		{
			name: "zero version",
			doc:  flowchart.Document{Version: 0},
		},
		{
			name: "dangling connection",
			doc: flowchart.Document{Version: 1,
				Nodes:       []flowchart.DocumentNode{node("a", flowchart.Producer)},
				Connections: []flowchart.DocumentConnection{conn("c", "a", "ghost")}},
			is: flowchart.ErrNotFound,
		},
		{
			name: "duplicate node",
			doc: flowchart.Document{Version: 1,
				Nodes: []flowchart.DocumentNode{node("a", flowchart.Producer), node("a", flowchart.Consumer)}},
			is: flowchart.ErrDuplicateID,
		},
		{
			name: "duplicate connection id",
			doc: flowchart.Document{Version: 1,
				Nodes: []flowchart.DocumentNode{node("a", flowchart.Producer), node("b", flowchart.Processor), node("c", flowchart.Consumer)},
				Connections: []flowchart.DocumentConnection{
					conn("e", "a", "b"),
					conn("e", "b", "c"),
				}},
			is: flowchart.ErrDuplicateID,
		},
		{
			name: "consumer source",
			doc: flowchart.Document{Version: 1,
				Nodes:       []flowchart.DocumentNode{node("a", flowchart.Consumer), node("b", flowchart.Consumer)},
				Connections: []flowchart.DocumentConnection{conn("e", "a", "b")}},
			is: flowchart.ErrValidationRejected,
		},
		{
			name: "self loop",
			doc: flowchart.Document{Version: 1,
				Nodes:       []flowchart.DocumentNode{node("a", flowchart.Processor)},
				Connections: []flowchart.DocumentConnection{conn("e", "a", "a")}},
			is: flowchart.ErrValidationRejected,
		},
		{
			name: "invalid kind",
			doc: flowchart.Document{Version: 1,
				Nodes: []flowchart.DocumentNode{node("a", flowchart.Kind(9))}},
		},
		{
			name: "empty node id",
			doc: flowchart.Document{Version: 1,
				Nodes: []flowchart.DocumentNode{node("", flowchart.Producer)}},
		},
		{
			name: "group with unknown member",
			doc: flowchart.Document{Version: 1,
				Nodes:  []flowchart.DocumentNode{node("a", flowchart.Producer)},
				Groups: []flowchart.DocumentGroup{group("g", "a", "ghost")}},
			is: flowchart.ErrNotFound,
		},
		{
			name: "duplicate group id",
			doc: flowchart.Document{Version: 1,
				Nodes:  []flowchart.DocumentNode{node("a", flowchart.Producer)},
				Groups: []flowchart.DocumentGroup{group("g", "a"), group("g", "a")}},
			is: flowchart.ErrDuplicateID,
		},
		{
			name: "duplicate member",
			doc: flowchart.Document{Version: 1,
				Nodes:  []flowchart.DocumentNode{node("a", flowchart.Producer)},
				Groups: []flowchart.DocumentGroup{group("g", "a", "a")}},
			is: flowchart.ErrDuplicateID,
		},
		{
			name: "group drawing",
			doc: flowchart.Document{Version: 1,
				Groups: []flowchart.DocumentGroup{{ID: "g", Members: []string{}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := FromDocument(tt.doc)
			assert.Nil(t, m)
			assert.True(t, IsParseError(err), "got %v", err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.json":       FormatJSON,
		"dir/b.yaml":   FormatYAML,
		"c.YML":        FormatYAML,
		"no-extension": FormatJSON,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatFromPath("d.txt")
	assert.Error(t, err)
}

func TestMermaid(t *testing.T) {
	out := Mermaid(ToDocument(sample(t)))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "flowchart LR", lines[0])
	assert.Equal(t, `    subgraph g1["ingest"]`, lines[4])
	assert.Equal(t, "        n1", lines[5])
	assert.Equal(t, "        n2", lines[6])
	assert.Equal(t, "    end", lines[7])
	assert.Contains(t, out, `n1(["source"])`)
	assert.Contains(t, out, `n2["filter"]`)
	assert.Contains(t, out, "n3[(")
	assert.Contains(t, out, "n1 --> n2")
	assert.Contains(t, out, "n2 --> n3")
	assert.Contains(t, out, "n1 --> n3")
}

func TestMermaid_EscapesLabels(t *testing.T) {
	doc := flowchart.Document{
		Version: 1,
		Nodes: []flowchart.DocumentNode{
			{ID: "a", Kind: flowchart.Processor, Label: "first\nsecond\r\nthird"},
			{ID: "b", Kind: flowchart.Processor, Label: `say "hi"`},
		},
		Groups: []flowchart.DocumentGroup{
			{ID: "g", Name: "two\nlines", Members: []string{"a", "b"}, Drawing: flowchart.DrawRectangle},
			{ID: "h", Members: []string{"a"}, Drawing: flowchart.DrawRectangle},
		},
	}
	out := Mermaid(doc)
	assert.Contains(t, out, `n1["first<br/>second<br/>third"]`)
	assert.Contains(t, out, `n2["say 'hi'"]`)
	assert.Contains(t, out, `subgraph g1["two<br/>lines"]`)
	assert.NotContains(t, out, "g2", "a group whose members are placed elsewhere is skipped")

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.NotContains(t, line, "\r")
	}
}
