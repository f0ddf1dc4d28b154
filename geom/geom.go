// Package geom holds the pure geometry used by the flowchart canvas:
// points, rectangles, grid snapping and hit-testing helpers. Nothing in
// here keeps state.
package geom

import "math"

// Point is a position in world coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p multiplied by k.
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Len returns the euclidean length of p seen as a vector.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the distance between p and q.
func Dist(p, q Point) float64 { return p.Sub(q).Len() }

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned rectangle. Min is the top-left corner and Max
// the bottom-right one; a normalized Rect always has Min <= Max.
type Rect struct {
	Min, Max Point
}

// RectFromCenter returns the rectangle of the given size centred on c.
func RectFromCenter(c Point, s Size) Rect {
	hw, hh := s.W/2, s.H/2
	return Rect{
		Min: Point{X: c.X - hw, Y: c.Y - hh},
		Max: Point{X: c.X + hw, Y: c.Y + hh},
	}
}

// RectFromCorners returns the normalized rectangle spanned by two
// opposite corners given in any order, as produced by a marquee drag.
func RectFromCorners(a, b Point) Rect {
	return Rect{
		Min: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Contains reports whether p lies inside r. Edges are inclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Center returns the centre of r.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y
}

// Snap rounds p to the nearest intersection of a grid with the given
// step. Halves round away from zero. A non-positive step returns p as is.
func Snap(p Point, step float64) Point {
	if step <= 0 {
		return p
	}
	return Point{
		X: math.Round(p.X/step) * step,
		Y: math.Round(p.Y/step) * step,
	}
}

// SegmentDistance returns the distance from p to the segment a-b.
// A degenerate segment is treated as the point a.
func SegmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	ap := p.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < 1e-9 {
		return ap.Len()
	}
	t := ap.Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return Dist(p, a.Add(ab.Scale(t)))
}

// Union returns the smallest rectangle containing r and s.
func (r Rect) Union(s Rect) Rect {
	return Rect{
		Min: Point{X: math.Min(r.Min.X, s.Min.X), Y: math.Min(r.Min.Y, s.Min.Y)},
		Max: Point{X: math.Max(r.Max.X, s.Max.X), Y: math.Max(r.Max.Y, s.Max.Y)},
	}
}

// Expand grows r by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{
		Min: Point{X: r.Min.X - d, Y: r.Min.Y - d},
		Max: Point{X: r.Max.X + d, Y: r.Max.Y + d},
	}
}

// Area returns the area of r.
func (r Rect) Area() float64 {
	return (r.Max.X - r.Min.X) * (r.Max.Y - r.Min.Y)
}

// Corners returns the four corners of r clockwise from Min.
func (r Rect) Corners() []Point {
	return []Point{r.Min, {X: r.Max.X, Y: r.Min.Y}, r.Max, {X: r.Min.X, Y: r.Max.Y}}
}

// BoundsOf returns the bounding rectangle of pts. It is the zero Rect for
// no points.
func BoundsOf(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r = r.Union(Rect{Min: p, Max: p})
	}
	return r
}
