package corners

import (
	"math"
	"testing"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/geometry"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

func wall(id string, minX, minY, w, h float64) *model.Detection {
	return &model.Detection{
		ID:    id,
		Class: model.ClassFacade,
		BBox: geometry.BoundingBox{
			CenterX: minX + w/2, CenterY: minY + h/2, Width: w, Height: h,
		},
	}
}

func TestInfer_TwoWallsWithGap(t *testing.T) {
	// Two walls in one row separated by a 40px gap: 2 outside corners at
	// the row extremes, 2 inside corners bordering the gap.
	walls := []*model.Detection{
		wall("left", 0, 0, 200, 100),
		wall("right", 240, 0, 160, 100),
	}

	got := Infer(walls, 50)

	if got.OutsideCount != 2 {
		t.Errorf("OutsideCount = %d, want 2", got.OutsideCount)
	}
	if got.InsideCount != 2 {
		t.Errorf("InsideCount = %d, want 2", got.InsideCount)
	}
	// Every edge here is 100px tall at 50 px/ft.
	if math.Abs(got.OutsideLF-4) > 1e-9 {
		t.Errorf("OutsideLF = %v, want 4", got.OutsideLF)
	}
	if math.Abs(got.InsideLF-4) > 1e-9 {
		t.Errorf("InsideLF = %v, want 4", got.InsideLF)
	}
}

func TestInfer_SingleWall(t *testing.T) {
	got := Infer([]*model.Detection{wall("w", 0, 0, 300, 120)}, 60)

	if got.OutsideCount != 2 {
		t.Errorf("OutsideCount = %d, want 2 (both edges of the lone wall)", got.OutsideCount)
	}
	if got.InsideCount != 0 {
		t.Errorf("InsideCount = %d, want 0", got.InsideCount)
	}
	if math.Abs(got.OutsideLF-4) > 1e-9 {
		t.Errorf("OutsideLF = %v, want 4", got.OutsideLF)
	}
}

func TestInfer_TouchingWallsProduceNoInsideCorners(t *testing.T) {
	walls := []*model.Detection{
		wall("a", 0, 0, 200, 100),
		wall("b", 205, 0, 200, 100), // 5px gap, below threshold
	}

	got := Infer(walls, 50)
	if got.InsideCount != 0 {
		t.Errorf("InsideCount = %d, want 0 for sub-threshold gap", got.InsideCount)
	}
}

func TestInfer_SeparateRows(t *testing.T) {
	// Two walls far apart vertically form independent rows.
	walls := []*model.Detection{
		wall("upper", 0, 0, 200, 100),
		wall("lower", 0, 300, 200, 100),
	}

	got := Infer(walls, 50)
	if got.OutsideCount != 4 {
		t.Errorf("OutsideCount = %d, want 4 (two per row)", got.OutsideCount)
	}
	if got.InsideCount != 0 {
		t.Errorf("InsideCount = %d, want 0", got.InsideCount)
	}
}

func TestInfer_IgnoresDeletedAndNonFacade(t *testing.T) {
	deleted := wall("gone", 300, 0, 100, 100)
	deleted.Status = model.StatusDeleted
	window := wall("win", 600, 0, 50, 50)
	window.Class = model.ClassWindow

	got := Infer([]*model.Detection{wall("w", 0, 0, 200, 100), deleted, window}, 50)

	if got.OutsideCount != 2 {
		t.Errorf("OutsideCount = %d, want 2", got.OutsideCount)
	}
	if got.InsideCount != 0 {
		t.Errorf("InsideCount = %d, want 0", got.InsideCount)
	}
}

func TestInfer_UncalibratedRatioYieldsNothing(t *testing.T) {
	got := Infer([]*model.Detection{wall("w", 0, 0, 200, 100)}, 0)
	if got != (Totals{}) {
		t.Errorf("Infer() at zero ratio = %+v, want zero value", got)
	}
}
