package geometry

import (
	polyclip "github.com/akavel/polyclip-go"
)

// intersectionEpsilon rejects slivers that the clipper produces when the cut
// only grazes the target boundary.
const intersectionEpsilon = 1e-9

// SplitResult holds the decomposition of a shape along a cut polygon.
// Carved is the region removed; Remaining is what is left, possibly several
// disjoint pieces, any of which may carry holes when the cut was fully
// interior.
type SplitResult struct {
	Carved    []Polygon
	Remaining []Polygon
}

// Pieces returns carved followed by remaining polygons.
func (r SplitResult) Pieces() []Polygon {
	out := make([]Polygon, 0, len(r.Carved)+len(r.Remaining))
	out = append(out, r.Carved...)
	out = append(out, r.Remaining...)
	return out
}

// TotalArea returns the summed pixel² area of every piece. For a valid split
// this equals the original shape's area within floating-point tolerance.
func (r SplitResult) TotalArea() float64 {
	var sum float64
	for _, p := range r.Pieces() {
		sum += p.Area()
	}
	return sum
}

// Split carves cut out of shape using boolean clipping. shape must be a Ring
// or Polygon (use BoundingBox.Ring() for box-only annotations). A cut that
// does not overlap the shape returns ErrNothingToSplit and no pieces.
func Split(shape Shape, cut Ring) (SplitResult, error) {
	if len(cut) < 3 {
		return SplitResult{}, ErrDegenerateRing
	}

	subject, ok := toClip(shape)
	if !ok {
		return SplitResult{}, ErrUnsupportedCut
	}

	clip := polyclip.Polygon{clipContour(cut)}

	carved := fromClip(subject.Construct(polyclip.INTERSECTION, clip))
	if len(carved) == 0 || totalArea(carved) <= intersectionEpsilon {
		return SplitResult{}, ErrNothingToSplit
	}

	remaining := fromClip(subject.Construct(polyclip.DIFFERENCE, clip))

	return SplitResult{Carved: carved, Remaining: remaining}, nil
}

func totalArea(polys []Polygon) float64 {
	var sum float64
	for _, p := range polys {
		sum += p.Area()
	}
	return sum
}
