package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/codec"
	"github.com/meikuraledutech/flowchart/editor"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/interact"
	"github.com/meikuraledutech/flowchart/memstore"
	"github.com/meikuraledutech/flowchart/postgres"
)

func main() {
	ctx := context.Background()

	// Wire up a store: postgres when DATABASE_URL is set, memory otherwise.
	var store flowchart.Store = memstore.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := postgres.Connect(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		fmt.Println("schema created")
		store = pg
	}

	ed := editor.New(editor.DefaultConfig())

	// ── Build a pipeline with direct commands ─────────────────────────
	src, err := ed.AddNode(flowchart.Producer, geom.Pt(0, 0), "orders")
	must("add producer", err)
	filter, err := ed.AddNode(flowchart.Processor, geom.Pt(200, 0), "")
	must("add processor", err)
	sink, err := ed.AddNode(flowchart.Consumer, geom.Pt(400, 0), "warehouse")
	must("add consumer", err)

	_, err = ed.Connect(src, filter)
	must("connect", err)

	// Consumers have no output port, so this is refused.
	if _, err := ed.Connect(sink, filter); err != nil {
		fmt.Printf("rejected: %v\n", err)
	}

	// ── Connect by dragging from the processor's port ─────────────────
	n, _ := ed.View().Node(filter)
	port := interact.PortPosition(n)
	ed.Press(port, interact.Modifiers{})
	ed.Move(geom.Pt(400, 0))
	must("connect gesture", ed.Release(geom.Pt(400, 0)))
	fmt.Printf("connections: %d\n", ed.View().ConnectionCount())

	// ── Snap-drag the consumer, then undo it ──────────────────────────
	ed.Press(geom.Pt(400, 0), interact.Modifiers{Snap: true})
	ed.Move(geom.Pt(433, 27))
	must("drag", ed.Release(geom.Pt(433, 27)))
	n, _ = ed.View().Node(sink)
	fmt.Printf("consumer moved to %v\n", n.Position)

	must("undo", ed.Undo())
	n, _ = ed.View().Node(sink)
	fmt.Printf("after undo: %v\n", n.Position)

	// ── Group the first two nodes, as Ctrl+G would ────────────────────
	ed.Select(src, filter)
	gid, err := ed.GroupSelection()
	must("group", err)
	g, _ := ed.View().Group(gid)
	fmt.Printf("%s holds %d nodes\n", g.Name, len(g.Members))

	// ── Save ──────────────────────────────────────────────────────────
	data, err := ed.Save(codec.FormatJSON)
	must("save", err)
	fmt.Printf("\ndocument:\n%s", data)

	must("store", ed.SaveTo(ctx, store, "orders-pipeline"))
	ids, err := store.List(ctx)
	must("list", err)
	fmt.Printf("\nstored: %v\n", ids)

	// ── Reload into a fresh editor and export ─────────────────────────
	other := editor.New(editor.DefaultConfig())
	must("load", other.LoadFrom(ctx, store, "orders-pipeline"))
	fmt.Printf("\n%s", codec.Mermaid(other.Document()))

	// ── Cleanup ───────────────────────────────────────────────────────
	must("delete", store.Delete(ctx, "orders-pipeline"))
	fmt.Println("\ndocument deleted")
}

func must(what string, err error) {
	if err != nil {
		log.Fatalf("%s: %v", what, err)
	}
}
