// Package corners derives inside and outside corner counts and lengths from
// the wall polygons on a page when corners were not explicitly drawn. The
// heuristic is additive: explicitly drawn corner annotations contribute to
// totals independently.
package corners

import (
	"sort"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

const (
	// RowTolerancePx groups walls into a horizontal row when their
	// vertical centers lie within this distance.
	RowTolerancePx = 50.0
	// GapThresholdPx is the minimum horizontal gap between two walls in a
	// row before the gap produces inside corners.
	GapThresholdPx = 10.0
)

// Totals accumulates corner counts and lengths for a page or job.
type Totals struct {
	InsideCount  int     `json:"inside_count"`
	OutsideCount int     `json:"outside_count"`
	InsideLF     float64 `json:"inside_lf"`
	OutsideLF    float64 `json:"outside_lf"`
}

// Add returns the element-wise sum.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		InsideCount:  t.InsideCount + o.InsideCount,
		OutsideCount: t.OutsideCount + o.OutsideCount,
		InsideLF:     t.InsideLF + o.InsideLF,
		OutsideLF:    t.OutsideLF + o.OutsideLF,
	}
}

// Infer derives corner totals from the facade detections on one page.
// Deleted detections and non-facade classes are ignored. A non-positive
// scale ratio yields zero totals.
func Infer(detections []*model.Detection, pxPerFt float64) Totals {
	if pxPerFt <= 0 {
		return Totals{}
	}

	var walls []*model.Detection
	for _, d := range detections {
		if d.Class == model.ClassFacade && !d.Deleted() {
			walls = append(walls, d)
		}
	}
	if len(walls) == 0 {
		return Totals{}
	}

	var totals Totals
	for _, row := range groupRows(walls) {
		sort.Slice(row, func(i, j int) bool {
			return row[i].BBox.MinX() < row[j].BBox.MinX()
		})

		// The row's outermost edges are outside corners.
		totals.OutsideCount += 2
		totals.OutsideLF += row[0].BBox.Height / pxPerFt
		totals.OutsideLF += row[len(row)-1].BBox.Height / pxPerFt

		// Each gap between adjacent walls produces an inside corner on
		// both bordering edges.
		for i := 1; i < len(row); i++ {
			gap := row[i].BBox.MinX() - row[i-1].BBox.MaxX()
			if gap > GapThresholdPx {
				totals.InsideCount += 2
				totals.InsideLF += row[i-1].BBox.Height / pxPerFt
				totals.InsideLF += row[i].BBox.Height / pxPerFt
			}
		}
	}
	return totals
}

// groupRows buckets walls whose vertical centers sit within RowTolerancePx
// of the first wall seen in the row.
func groupRows(walls []*model.Detection) [][]*model.Detection {
	sorted := make([]*model.Detection, len(walls))
	copy(sorted, walls)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].BBox.CenterY < sorted[j].BBox.CenterY
	})

	var rows [][]*model.Detection
	var rowStart float64
	for i, w := range sorted {
		if i == 0 || w.BBox.CenterY-rowStart > RowTolerancePx {
			rows = append(rows, []*model.Detection{w})
			rowStart = w.BBox.CenterY
			continue
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], w)
	}
	return rows
}
