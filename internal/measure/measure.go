// Package measure turns a detection's pixel geometry plus a page's
// pixels-per-foot ratio into real-world construction quantities. Every
// function is pure: identical inputs always reproduce identical outputs, so
// the cached values on a detection can be recomputed at any time.
package measure

import (
	"math"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/geometry"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

// Quantities are the per-detection real-world measurements. Which fields are
// populated depends on the detection class.
type Quantities struct {
	AreaSF      float64 `json:"area_sf"`
	PerimeterLF float64 `json:"perimeter_lf"`
	LengthLF    float64 `json:"length_lf"`
	HeadLF      float64 `json:"head_lf"`
	JambLF      float64 `json:"jamb_lf"`
	SillLF      float64 `json:"sill_lf"`
	RakeLF      float64 `json:"rake_lf"`
	StarterLF   float64 `json:"starter_lf"`
	Count       int     `json:"count"`
}

// Add returns the element-wise sum.
func (q Quantities) Add(o Quantities) Quantities {
	return Quantities{
		AreaSF:      q.AreaSF + o.AreaSF,
		PerimeterLF: q.PerimeterLF + o.PerimeterLF,
		LengthLF:    q.LengthLF + o.LengthLF,
		HeadLF:      q.HeadLF + o.HeadLF,
		JambLF:      q.JambLF + o.JambLF,
		SillLF:      q.SillLF + o.SillLF,
		RakeLF:      q.RakeLF + o.RakeLF,
		StarterLF:   q.StarterLF + o.StarterLF,
		Count:       q.Count + o.Count,
	}
}

// Detection derives the quantities for one detection at the given scale
// ratio (pixels per foot). Non-positive ratios yield zero quantities; counts
// are scale-independent and always populate.
func Detection(d *model.Detection, pxPerFt float64) Quantities {
	switch d.Class.Kind() {
	case model.KindCount:
		return Quantities{Count: 1}
	case model.KindLinear:
		if pxPerFt <= 0 {
			return Quantities{}
		}
		return Quantities{LengthLF: linearRun(d) / pxPerFt}
	default:
		if pxPerFt <= 0 {
			return Quantities{}
		}
		return areaQuantities(d, pxPerFt)
	}
}

// Refresh recomputes the detection's cached measurements. AreaSF holds the
// area for area classes; PerimeterLF holds the perimeter for area classes
// and the run length for linear classes.
func Refresh(d *model.Detection, pxPerFt float64) {
	q := Detection(d, pxPerFt)
	d.AreaSF = q.AreaSF
	switch d.Class.Kind() {
	case model.KindLinear:
		d.PerimeterLF = q.LengthLF
	case model.KindCount:
		d.PerimeterLF = 0
	default:
		d.PerimeterLF = q.PerimeterLF
	}
}

// linearRun returns the pixel run length of a linear detection: the drawn
// path when one exists, otherwise the longer bounding box side (linear items
// drawn as thin rectangles).
func linearRun(d *model.Detection) float64 {
	if line, ok := d.Geometry.(geometry.Line); ok {
		return line.Perimeter()
	}
	return math.Max(d.BBox.Width, d.BBox.Height)
}

func areaQuantities(d *model.Detection, pxPerFt float64) Quantities {
	shape := d.Shape()
	q := Quantities{
		AreaSF:      shape.Area() / (pxPerFt * pxPerFt),
		PerimeterLF: shape.Perimeter() / pxPerFt,
	}

	switch d.Class {
	case model.ClassFacade:
		q.StarterLF = bottomEdgeRun(outerRing(shape)) / pxPerFt
	case model.ClassWindow, model.ClassDoor, model.ClassGarage:
		q.HeadLF = d.BBox.Width / pxPerFt
		q.JambLF = 2 * d.BBox.Height / pxPerFt
		if d.Class == model.ClassWindow {
			q.SillLF = d.BBox.Width / pxPerFt
		}
	case model.ClassGable:
		q.RakeLF = slopedEdgeRun(outerRing(shape)) / pxPerFt
	}

	return q
}

// outerRing extracts the measurable boundary ring of an area shape.
func outerRing(s geometry.Shape) geometry.Ring {
	switch v := s.(type) {
	case geometry.Ring:
		return v
	case geometry.Polygon:
		return v.Outer
	default:
		return s.Bounds().Ring()
	}
}

// bottomEdgeTolerance is how close (as a fraction of polygon height, with a
// 2px floor) an edge must sit to the lowest extent to count as the baseline.
const bottomEdgeTolerance = 0.02

// bottomEdgeRun sums the near-horizontal edges lying along the polygon's
// lowest extent, in pixels. This is the level starter run for a facade.
func bottomEdgeRun(r geometry.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	b := r.Bounds()
	tol := math.Max(2, b.Height*bottomEdgeTolerance)
	bottom := b.MaxY()

	var run float64
	for i, p := range r {
		q := r[(i+1)%len(r)]
		if bottom-p.Y <= tol && bottom-q.Y <= tol {
			run += p.DistanceTo(q)
		}
	}
	return run
}

// axisAngleSin bounds how far from axis-aligned an edge may tilt and still
// classify as horizontal or vertical (sin of ~15 degrees).
const axisAngleSin = 0.26

// slopedEdgeRun sums the edges that are neither horizontal nor vertical, in
// pixels. For a gable these are the two rake edges.
func slopedEdgeRun(r geometry.Ring) float64 {
	var run float64
	for i, p := range r {
		q := r[(i+1)%len(r)]
		length := p.DistanceTo(q)
		if length == 0 {
			continue
		}
		dx := math.Abs(q.X-p.X) / length
		dy := math.Abs(q.Y-p.Y) / length
		if dy < axisAngleSin || dx < axisAngleSin {
			continue // horizontal or vertical
		}
		run += length
	}
	return run
}
