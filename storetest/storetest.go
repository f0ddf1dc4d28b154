// Package storetest holds the contract every flowchart.Store must meet.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowchart"
)

// Document returns a small valid document: producer -> processor ->
// consumer plus a producer -> consumer shortcut, one polygon group over
// the first two nodes and one empty group.
func Document() *flowchart.Document {
	return &flowchart.Document{
		Version: 1,
		Nodes: []flowchart.DocumentNode{
			{ID: "p", Kind: flowchart.Producer, X: 0, Y: 0, Label: "source"},
			{ID: "x", Kind: flowchart.Processor, X: 200, Y: 12.5, Label: "filter"},
			{ID: "c", Kind: flowchart.Consumer, X: 400, Y: -40, Label: ""},
		},
		Connections: []flowchart.DocumentConnection{
			{ID: "px", SourceID: "p", TargetID: "x"},
			{ID: "xc", SourceID: "x", TargetID: "c"},
			{ID: "pc", SourceID: "p", TargetID: "c"},
		},
		Groups: []flowchart.DocumentGroup{
			{ID: "g", Name: "ingest", Members: []string{"p", "x"}, Drawing: flowchart.DrawPolygon},
			{ID: "e", Name: "", Members: []string{}, Drawing: flowchart.DrawRectangle},
		},
	}
}

// Run verifies that store adheres to the flowchart.Store contract. The
// store should start empty or at least hold no ids with the run prefix.
func Run(t *testing.T, store flowchart.Store) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")
	id := func(s string) string { return fmt.Sprintf("%s-%s", prefix, s) }

	t.Run("Save and Load", func(t *testing.T) {
		want := Document()
		require.NoError(t, store.Save(ctx, id("a"), want))

		got, err := store.Load(ctx, id("a"))
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("document mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Save replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id("b"), Document()))
		small := &flowchart.Document{
			Version:     1,
			Nodes:       []flowchart.DocumentNode{{ID: "only", Kind: flowchart.Processor, Label: "solo"}},
			Connections: []flowchart.DocumentConnection{},
			Groups:      []flowchart.DocumentGroup{},
		}
		require.NoError(t, store.Save(ctx, id("b"), small))

		got, err := store.Load(ctx, id("b"))
		require.NoError(t, err)
		require.Len(t, got.Nodes, 1)
		assert.Equal(t, "only", got.Nodes[0].ID)
		assert.Empty(t, got.Connections)
		assert.Empty(t, got.Groups)
	})

	t.Run("Save copies", func(t *testing.T) {
		doc := Document()
		require.NoError(t, store.Save(ctx, id("c"), doc))
		doc.Nodes[0].Label = "mutated"
		doc.Groups[0].Members[0] = "mutated"

		got, err := store.Load(ctx, id("c"))
		require.NoError(t, err)
		assert.Equal(t, "source", got.Nodes[0].Label)
		assert.Equal(t, []string{"p", "x"}, got.Groups[0].Members)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, id("missing"))
		assert.ErrorIs(t, err, flowchart.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id("d"), Document()))
		require.NoError(t, store.Delete(ctx, id("d")))

		_, err := store.Load(ctx, id("d"))
		assert.ErrorIs(t, err, flowchart.ErrDocumentNotFound)
		assert.NoError(t, store.Delete(ctx, id("d")), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := id("l1"), id("l2")
		require.NoError(t, store.Save(ctx, id1, Document()))
		require.NoError(t, store.Save(ctx, id2, Document()))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.NotContains(t, ids, id("d"))
	})
}
