package interact

import (
	"slices"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/geom"
	"github.com/meikuraledutech/flowchart/history"
)

// Outline is the background shape of a group. Polygon is set only for
// polygon groups; Rect is always the bounding box of the shape.
type Outline struct {
	Rect    geom.Rect
	Polygon []geom.Point
}

// Contains reports whether p lies inside the outline.
func (o Outline) Contains(p geom.Point) bool {
	if o.Polygon != nil {
		return geom.PolygonContains(o.Polygon, p)
	}
	return o.Rect.Contains(p)
}

// GroupOutline computes the outline of g from its members as returned by
// node. Members node cannot find are skipped. It reports false when no
// shape can be drawn.
func GroupOutline(g flowchart.Group, node func(id string) (flowchart.Node, bool)) (Outline, bool) {
	var boxes []geom.Rect
	for _, id := range g.Members {
		if n, ok := node(id); ok {
			boxes = append(boxes, n.Bounds().Expand(flowchart.GroupPadding))
		}
	}
	if len(boxes) == 0 {
		return Outline{}, false
	}

	if g.Drawing == flowchart.DrawPolygon {
		var corners []geom.Point
		for _, b := range boxes {
			corners = append(corners, b.Corners()...)
		}
		hull := geom.ConvexHull(corners)
		if hull == nil {
			return Outline{}, false
		}
		return Outline{Rect: geom.BoundsOf(hull), Polygon: hull}, true
	}

	r := boxes[0]
	for _, b := range boxes[1:] {
		r = r.Union(b)
	}
	return Outline{Rect: r}, true
}

// GroupAt returns the group whose background contains p. When outlines
// overlap the smallest one wins, so nested groups stay reachable.
func (c *Controller) GroupAt(p geom.Point) (string, bool) {
	best, area := "", 0.0
	for _, g := range c.view.Groups() {
		o, ok := GroupOutline(g, c.view.Node)
		if !ok || !o.Contains(p) {
			continue
		}
		if a := o.Rect.Area(); best == "" || a < area {
			best, area = g.ID, a
		}
	}
	return best, best != ""
}

// GroupSelection returns the command grouping the selected nodes. With a
// group selected the nodes are added to it; otherwise a new group named
// name is created around them. It returns nil when there is nothing to
// group or every selected node is already a member.
func (c *Controller) GroupSelection(name string) history.Command {
	var ids []string
	for _, id := range c.selected {
		if _, ok := c.view.Node(id); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	if g, ok := c.view.Group(c.selectedGrp); ok {
		members := slices.Clone(g.Members)
		for _, id := range ids {
			if !slices.Contains(members, id) {
				members = append(members, id)
			}
		}
		if len(members) == len(g.Members) {
			return nil
		}
		return history.NewSetGroupMembers(g.ID, members)
	}
	return history.NewCreateGroup(name, flowchart.DrawRectangle, ids)
}
