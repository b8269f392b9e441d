// Package geometry provides the 2D pixel-space primitives the takeoff kernel
// measures: rings, polygons with holes, open polylines, and bounding boxes.
// All coordinates are in pixel space with y growing downward, matching the
// rasterized drawing.
package geometry

import (
	"errors"
	"math"
)

// Geometry errors.
var (
	ErrDegenerateRing  = errors.New("ring requires at least 3 vertices")
	ErrDegenerateLine  = errors.New("line requires at least 2 vertices")
	ErrNothingToSplit  = errors.New("cut polygon does not intersect the target")
	ErrUnsupportedCut  = errors.New("cut target has no area geometry")
	ErrUnknownShape    = errors.New("unknown shape encoding")
)

// Point represents a 2D point in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance to q.
func (p Point) DistanceTo(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Shape is the geometry variant attached to an annotation. Exactly three
// concrete types implement it: Ring (simple polygon), Polygon (outer ring
// plus holes), and Line (open polyline). Consumers must handle each variant;
// an annotation with no Shape is measured from its bounding box rectangle.
type Shape interface {
	// Area returns the unsigned enclosed area in pixel². Zero for lines.
	Area() float64
	// Perimeter returns the boundary length in pixels. For lines this is
	// the open path length.
	Perimeter() float64
	// Bounds returns the axis-aligned bounding box.
	Bounds() BoundingBox

	shape()
}

// Ring is a simple polygon: an ordered vertex list, implicitly closed.
type Ring []Point

func (Ring) shape() {}

// NewRing validates and returns a ring. Rings with fewer than 3 vertices are
// rejected at construction, never silently fixed.
func NewRing(pts []Point) (Ring, error) {
	if len(pts) < 3 {
		return nil, ErrDegenerateRing
	}
	return Ring(pts), nil
}

// Area returns the unsigned shoelace area in pixel².
func (r Ring) Area() float64 {
	return math.Abs(r.SignedArea())
}

// SignedArea returns the shoelace area; positive when the ring winds
// clockwise in screen coordinates (y down).
func (r Ring) SignedArea() float64 {
	if len(r) < 3 {
		return 0
	}
	var sum float64
	for i, p := range r {
		q := r[(i+1)%len(r)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// Perimeter returns the closed boundary length in pixels.
func (r Ring) Perimeter() float64 {
	if len(r) < 2 {
		return 0
	}
	var sum float64
	for i, p := range r {
		sum += p.DistanceTo(r[(i+1)%len(r)])
	}
	return sum
}

// Bounds returns the ring's axis-aligned bounding box.
func (r Ring) Bounds() BoundingBox {
	return boundsOf(r)
}

// Contains reports whether pt lies inside the ring, using even-odd ray
// crossing. Points exactly on the boundary are not guaranteed either way.
func (r Ring) Contains(pt Point) bool {
	inside := false
	for i, a := range r {
		b := r[(i+1)%len(r)]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Translate returns a copy of the ring shifted by (dx, dy).
func (r Ring) Translate(dx, dy float64) Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[i] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// Polygon is an outer ring with zero or more hole rings.
type Polygon struct {
	Outer Ring   `json:"outer"`
	Holes []Ring `json:"holes,omitempty"`
}

func (Polygon) shape() {}

// NewPolygon validates the outer ring and every hole ring.
func NewPolygon(outer Ring, holes ...Ring) (Polygon, error) {
	if len(outer) < 3 {
		return Polygon{}, ErrDegenerateRing
	}
	for _, h := range holes {
		if len(h) < 3 {
			return Polygon{}, ErrDegenerateRing
		}
	}
	return Polygon{Outer: outer, Holes: holes}, nil
}

// Area returns outer area minus the sum of hole areas, in pixel².
func (p Polygon) Area() float64 {
	area := p.Outer.Area()
	for _, h := range p.Holes {
		area -= h.Area()
	}
	if area < 0 {
		return 0
	}
	return area
}

// Perimeter returns the outer perimeter plus every hole's perimeter.
func (p Polygon) Perimeter() float64 {
	sum := p.Outer.Perimeter()
	for _, h := range p.Holes {
		sum += h.Perimeter()
	}
	return sum
}

// Bounds returns the outer ring's bounding box.
func (p Polygon) Bounds() BoundingBox {
	return p.Outer.Bounds()
}

// Simple reports whether the polygon has no holes.
func (p Polygon) Simple() bool {
	return len(p.Holes) == 0
}

// Line is an open polyline, used for linear annotations such as gutters,
// fascia runs, and explicitly drawn corners.
type Line []Point

func (Line) shape() {}

// NewLine validates and returns a polyline.
func NewLine(pts []Point) (Line, error) {
	if len(pts) < 2 {
		return nil, ErrDegenerateLine
	}
	return Line(pts), nil
}

// Area of an open polyline is zero.
func (Line) Area() float64 { return 0 }

// Perimeter returns the open path length in pixels.
func (l Line) Perimeter() float64 {
	var sum float64
	for i := 1; i < len(l); i++ {
		sum += l[i-1].DistanceTo(l[i])
	}
	return sum
}

// Bounds returns the polyline's bounding box.
func (l Line) Bounds() BoundingBox {
	return boundsOf(l)
}

func boundsOf(pts []Point) BoundingBox {
	if len(pts) == 0 {
		return BoundingBox{}
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return BoundingBox{
		CenterX: (minX + maxX) / 2,
		CenterY: (minY + maxY) / 2,
		Width:   maxX - minX,
		Height:  maxY - minY,
	}
}

// BoundingBox is an axis-aligned box stored as center plus dimensions,
// matching the extraction pipeline's wire format.
type BoundingBox struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// MinX returns the left edge.
func (b BoundingBox) MinX() float64 { return b.CenterX - b.Width/2 }

// MaxX returns the right edge.
func (b BoundingBox) MaxX() float64 { return b.CenterX + b.Width/2 }

// MinY returns the top edge (y grows downward).
func (b BoundingBox) MinY() float64 { return b.CenterY - b.Height/2 }

// MaxY returns the bottom edge.
func (b BoundingBox) MaxY() float64 { return b.CenterY + b.Height/2 }

// Ring returns the box's 4-corner rectangle, clockwise from the top-left.
// This is the uniform fallback geometry for box-only annotations.
func (b BoundingBox) Ring() Ring {
	return Ring{
		{X: b.MinX(), Y: b.MinY()},
		{X: b.MaxX(), Y: b.MinY()},
		{X: b.MaxX(), Y: b.MaxY()},
		{X: b.MinX(), Y: b.MaxY()},
	}
}

// Translate returns a copy shifted by (dx, dy).
func (b BoundingBox) Translate(dx, dy float64) BoundingBox {
	b.CenterX += dx
	b.CenterY += dy
	return b
}
