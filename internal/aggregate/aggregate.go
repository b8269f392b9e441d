// Package aggregate rolls per-detection quantities into per-page and
// cross-page totals. Aggregation is a pure function of the current detection
// set and page scale ratios; nothing accumulates across calls.
package aggregate

import (
	"github.com/Hutch7777777/ai-estimator-sub002/internal/corners"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/measure"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

// PageTotals sums every class's measured quantities for one page, using that
// page's own scale ratio. Soft-deleted detections are excluded.
type PageTotals struct {
	ByClass         map[model.Class]measure.Quantities `json:"by_class"`
	PageID          string                             `json:"page_id"`
	NetSidingSF     float64                            `json:"net_siding_sf"`
	InferredCorners corners.Totals                     `json:"inferred_corners"`
}

// JobTotals sums totals across every calibrated elevation page. Pages still
// carrying the uncalibrated sentinel are excluded entirely so incompatible
// units never mix into one total.
type JobTotals struct {
	ByClass         map[model.Class]measure.Quantities `json:"by_class"`
	Pages           []PageTotals                       `json:"pages"`
	NetSidingSF     float64                            `json:"net_siding_sf"`
	InferredCorners corners.Totals                     `json:"inferred_corners"`
}

// ForPage computes the totals for one page.
func ForPage(page *model.Page, detections []*model.Detection) PageTotals {
	totals := PageTotals{
		PageID:  page.ID,
		ByClass: make(map[model.Class]measure.Quantities),
	}

	var onPage []*model.Detection
	for _, d := range detections {
		if d.PageID != page.ID || d.Deleted() {
			continue
		}
		onPage = append(onPage, d)
		q := measure.Detection(d, page.ScaleRatio)
		totals.ByClass[d.Class] = totals.ByClass[d.Class].Add(q)
	}

	totals.NetSidingSF = netSiding(totals.ByClass)
	totals.InferredCorners = corners.Infer(onPage, page.ScaleRatio)
	return totals
}

// ForJob computes cross-page totals from calibrated elevation pages.
// Per-page totals are still reported for every page.
func ForJob(pages []*model.Page, detections []*model.Detection) JobTotals {
	job := JobTotals{
		ByClass: make(map[model.Class]measure.Quantities),
	}

	for _, page := range pages {
		pt := ForPage(page, detections)
		job.Pages = append(job.Pages, pt)

		if page.Classification != model.PageElevation || !page.Calibrated() {
			continue
		}
		for class, q := range pt.ByClass {
			job.ByClass[class] = job.ByClass[class].Add(q)
		}
		job.NetSidingSF += pt.NetSidingSF
		job.InferredCorners = job.InferredCorners.Add(pt.InferredCorners)
	}
	return job
}

// netSiding is the facade gross area minus every opening's area on the same
// page, clamped to zero.
func netSiding(byClass map[model.Class]measure.Quantities) float64 {
	net := byClass[model.ClassFacade].AreaSF
	for class, q := range byClass {
		if class.Opening() {
			net -= q.AreaSF
		}
	}
	if net < 0 {
		return 0
	}
	return net
}
