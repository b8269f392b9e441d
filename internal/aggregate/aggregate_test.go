package aggregate

import (
	"math"
	"testing"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/geometry"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

func page(id string, ratio float64, class model.PageClassification) *model.Page {
	return &model.Page{
		ID:             id,
		JobID:          "job",
		WidthPx:        3000,
		HeightPx:       2000,
		ScaleRatio:     ratio,
		Classification: class,
	}
}

func rectDet(id, pageID string, class model.Class, minX, minY, w, h float64) *model.Detection {
	d := &model.Detection{
		ID:     id,
		PageID: pageID,
		JobID:  "job",
		Class:  class,
		Status: model.StatusAuto,
		Geometry: geometry.Ring{
			{X: minX, Y: minY}, {X: minX + w, Y: minY}, {X: minX + w, Y: minY + h}, {X: minX, Y: minY + h},
		},
	}
	d.SyncBBox()
	return d
}

func TestForPage_SumsByClass(t *testing.T) {
	p := page("p1", 50, model.PageElevation)
	dets := []*model.Detection{
		rectDet("f1", "p1", model.ClassFacade, 0, 0, 500, 250),  // 50 sf
		rectDet("w1", "p1", model.ClassWindow, 50, 50, 100, 50), // 2 sf
		rectDet("w2", "p1", model.ClassWindow, 200, 50, 100, 50),
		{ID: "v1", PageID: "p1", JobID: "job", Class: model.ClassVent},
	}

	got := ForPage(p, dets)

	if q := got.ByClass[model.ClassFacade]; math.Abs(q.AreaSF-50) > 1e-9 {
		t.Errorf("facade AreaSF = %v, want 50", q.AreaSF)
	}
	if q := got.ByClass[model.ClassWindow]; math.Abs(q.AreaSF-4) > 1e-9 {
		t.Errorf("window AreaSF = %v, want 4", q.AreaSF)
	}
	if q := got.ByClass[model.ClassVent]; q.Count != 1 {
		t.Errorf("vent count = %d, want 1", q.Count)
	}
	if math.Abs(got.NetSidingSF-46) > 1e-9 {
		t.Errorf("NetSidingSF = %v, want 46", got.NetSidingSF)
	}
}

func TestForPage_ExcludesDeleted(t *testing.T) {
	p := page("p1", 50, model.PageElevation)
	deleted := rectDet("f2", "p1", model.ClassFacade, 0, 0, 500, 250)
	deleted.Status = model.StatusDeleted

	got := ForPage(p, []*model.Detection{deleted})

	if len(got.ByClass) != 0 {
		t.Errorf("ByClass = %v, want empty", got.ByClass)
	}
	if got.NetSidingSF != 0 {
		t.Errorf("NetSidingSF = %v, want 0", got.NetSidingSF)
	}
}

func TestForPage_NetSidingNeverNegative(t *testing.T) {
	p := page("p1", 50, model.PageElevation)
	dets := []*model.Detection{
		rectDet("f1", "p1", model.ClassFacade, 0, 0, 100, 100),    // 4 sf
		rectDet("g1", "p1", model.ClassGarage, 200, 0, 500, 400), // 80 sf > facade
	}

	got := ForPage(p, dets)
	if got.NetSidingSF != 0 {
		t.Errorf("NetSidingSF = %v, want 0 when openings exceed facade", got.NetSidingSF)
	}
}

func TestForJob_ExcludesUncalibratedPages(t *testing.T) {
	pages := []*model.Page{
		page("cal", 50, model.PageElevation),
		page("uncal", model.ScaleUncalibrated, model.PageElevation),
	}
	dets := []*model.Detection{
		rectDet("f1", "cal", model.ClassFacade, 0, 0, 500, 250),
		// Non-zero pixel geometry on the uncalibrated page must not leak.
		rectDet("f2", "uncal", model.ClassFacade, 0, 0, 5000, 2500),
	}

	got := ForJob(pages, dets)

	if q := got.ByClass[model.ClassFacade]; math.Abs(q.AreaSF-50) > 1e-9 {
		t.Errorf("job facade AreaSF = %v, want 50 (calibrated page only)", q.AreaSF)
	}
	if len(got.Pages) != 2 {
		t.Errorf("per-page totals = %d, want 2 (reported for every page)", len(got.Pages))
	}
}

func TestForJob_OnlyElevationPagesContribute(t *testing.T) {
	pages := []*model.Page{
		page("elev", 50, model.PageElevation),
		page("roof", 50, model.PageRoofPlan),
	}
	dets := []*model.Detection{
		rectDet("f1", "elev", model.ClassFacade, 0, 0, 500, 250),
		rectDet("f2", "roof", model.ClassFacade, 0, 0, 500, 250),
	}

	got := ForJob(pages, dets)
	if q := got.ByClass[model.ClassFacade]; math.Abs(q.AreaSF-50) > 1e-9 {
		t.Errorf("job facade AreaSF = %v, want 50 (elevation only)", q.AreaSF)
	}
}

func TestForJob_SumsNetSidingPerPage(t *testing.T) {
	pages := []*model.Page{
		page("p1", 50, model.PageElevation),
		page("p2", 50, model.PageElevation),
	}
	dets := []*model.Detection{
		rectDet("f1", "p1", model.ClassFacade, 0, 0, 500, 250),  // 50 sf gross
		rectDet("w1", "p1", model.ClassWindow, 0, 0, 100, 50),   // 2 sf
		rectDet("f2", "p2", model.ClassFacade, 0, 0, 250, 250),  // 25 sf gross
		rectDet("d1", "p2", model.ClassDoor, 0, 0, 100, 200),    // 16 sf
	}

	got := ForJob(pages, dets)
	if math.Abs(got.NetSidingSF-57) > 1e-9 {
		t.Errorf("job NetSidingSF = %v, want 57 (48 + 9)", got.NetSidingSF)
	}
}

func TestForJob_IsPure(t *testing.T) {
	pages := []*model.Page{page("p1", 50, model.PageElevation)}
	dets := []*model.Detection{rectDet("f1", "p1", model.ClassFacade, 0, 0, 500, 250)}

	first := ForJob(pages, dets)
	second := ForJob(pages, dets)

	if first.NetSidingSF != second.NetSidingSF ||
		first.ByClass[model.ClassFacade] != second.ByClass[model.ClassFacade] {
		t.Error("repeated aggregation produced different totals")
	}
}

func TestForPage_InferredCorners(t *testing.T) {
	p := page("p1", 50, model.PageElevation)
	dets := []*model.Detection{
		rectDet("f1", "p1", model.ClassFacade, 0, 0, 200, 100),
		rectDet("f2", "p1", model.ClassFacade, 240, 0, 160, 100),
	}

	got := ForPage(p, dets)
	if got.InferredCorners.InsideCount != 2 || got.InferredCorners.OutsideCount != 2 {
		t.Errorf("InferredCorners = %+v, want 2 inside / 2 outside", got.InferredCorners)
	}
}
