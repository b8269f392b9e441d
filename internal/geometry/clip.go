package geometry

import (
	"sort"

	polyclip "github.com/akavel/polyclip-go"
)

// toClip converts an area shape into a polyclip subject. Holes travel as
// additional contours; the clipper's even-odd bookkeeping keeps them holes.
func toClip(s Shape) (polyclip.Polygon, bool) {
	switch v := s.(type) {
	case Ring:
		return polyclip.Polygon{clipContour(v)}, true
	case Polygon:
		out := polyclip.Polygon{clipContour(v.Outer)}
		for _, h := range v.Holes {
			out = append(out, clipContour(h))
		}
		return out, true
	default:
		return nil, false
	}
}

func clipContour(r Ring) polyclip.Contour {
	c := make(polyclip.Contour, len(r))
	for i, p := range r {
		c[i] = polyclip.Point{X: p.X, Y: p.Y}
	}
	return c
}

func fromClipContour(c polyclip.Contour) Ring {
	r := make(Ring, len(c))
	for i, p := range c {
		r[i] = Point{X: p.X, Y: p.Y}
	}
	return r
}

// fromClip regroups a clipper result into polygons with holes. A result
// contour is a hole when its boundary lies inside an odd number of other
// contours; each hole is attached to the smallest outer ring containing it.
func fromClip(p polyclip.Polygon) []Polygon {
	type contour struct {
		ring  Ring
		area  float64
		depth int
	}

	contours := make([]contour, 0, len(p))
	for _, c := range p {
		if len(c) < 3 {
			continue
		}
		r := fromClipContour(c)
		if r.Area() <= 0 {
			continue
		}
		contours = append(contours, contour{ring: r, area: r.Area()})
	}

	for i := range contours {
		for j := range contours {
			if i == j {
				continue
			}
			if ringInside(contours[i].ring, contours[j].ring) {
				contours[i].depth++
			}
		}
	}

	// Outer rings first, largest to smallest, so hole attachment can pick
	// the tightest enclosing outer.
	order := make([]int, len(contours))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return contours[order[a]].area > contours[order[b]].area
	})

	var polys []Polygon
	outerIdx := make([]int, 0, len(contours))
	for _, i := range order {
		if contours[i].depth%2 == 0 {
			polys = append(polys, Polygon{Outer: contours[i].ring})
			outerIdx = append(outerIdx, i)
		}
	}

	for _, i := range order {
		if contours[i].depth%2 == 0 {
			continue
		}
		// polys is ordered largest-first; walk backwards to find the
		// smallest containing outer.
		for k := len(polys) - 1; k >= 0; k-- {
			if ringInside(contours[i].ring, contours[outerIdx[k]].ring) {
				polys[k].Holes = append(polys[k].Holes, contours[i].ring)
				break
			}
		}
	}

	return polys
}

// ringInside reports whether inner's boundary lies inside outer, tested on a
// vertex of inner that outer does not share. Clipper output contours never
// cross, so a single boundary vertex decides the whole contour.
func ringInside(inner, outer Ring) bool {
	shared := make(map[Point]struct{}, len(outer))
	for _, p := range outer {
		shared[p] = struct{}{}
	}
	for _, v := range inner {
		if _, ok := shared[v]; !ok {
			return outer.Contains(v)
		}
	}
	return false
}
