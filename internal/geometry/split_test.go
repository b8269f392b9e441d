package geometry

import (
	"errors"
	"math"
	"testing"
)

func rect(minX, minY, maxX, maxY float64) Ring {
	return Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
}

func TestSplit_HalvesRectangle(t *testing.T) {
	original := rect(0, 0, 100, 50)
	cut := rect(50, -10, 120, 60) // covers the right half

	result, err := Split(original, cut)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(result.Carved) != 1 {
		t.Fatalf("carved pieces = %d, want 1", len(result.Carved))
	}
	if len(result.Remaining) != 1 {
		t.Fatalf("remaining pieces = %d, want 1", len(result.Remaining))
	}
	if got := result.Carved[0].Area(); math.Abs(got-2500) > 1e-6 {
		t.Errorf("carved area = %v, want 2500", got)
	}
	if got := result.Remaining[0].Area(); math.Abs(got-2500) > 1e-6 {
		t.Errorf("remaining area = %v, want 2500", got)
	}
}

func TestSplit_ConservesArea(t *testing.T) {
	tests := []struct {
		name     string
		original Shape
		cut      Ring
	}{
		{
			name:     "half cut",
			original: rect(0, 0, 100, 50),
			cut:      rect(40, -10, 120, 60),
		},
		{
			name:     "corner cut",
			original: rect(0, 0, 100, 100),
			cut:      rect(60, 60, 140, 140),
		},
		{
			name:     "L-shaped target",
			original: Ring{{0, 0}, {100, 0}, {100, 40}, {40, 40}, {40, 100}, {0, 100}},
			cut:      rect(20, 20, 60, 60),
		},
		{
			name:     "triangle diagonal cut",
			original: Ring{{0, 0}, {80, 0}, {40, 60}},
			cut:      rect(-10, -10, 40, 70),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Split(tt.original, tt.cut)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			original := tt.original.Area()
			if got := result.TotalArea(); math.Abs(got-original)/original > 1e-6 {
				t.Errorf("pieces area = %v, original = %v (relative error %v)",
					got, original, math.Abs(got-original)/original)
			}
		})
	}
}

func TestSplit_InteriorCutProducesHole(t *testing.T) {
	original := rect(0, 0, 100, 100)
	cut := rect(30, 30, 70, 70) // fully interior

	result, err := Split(original, cut)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if len(result.Carved) != 1 {
		t.Fatalf("carved pieces = %d, want 1", len(result.Carved))
	}
	if got := result.Carved[0].Area(); math.Abs(got-1600) > 1e-6 {
		t.Errorf("carved area = %v, want 1600", got)
	}

	if len(result.Remaining) != 1 {
		t.Fatalf("remaining pieces = %d, want 1", len(result.Remaining))
	}
	remaining := result.Remaining[0]
	if remaining.Simple() {
		t.Fatal("remaining piece has no hole after fully interior cut")
	}
	if got := remaining.Area(); math.Abs(got-8400) > 1e-6 {
		t.Errorf("remaining area = %v, want 8400", got)
	}
}

func TestSplit_CutInsideHoleIsNoOp(t *testing.T) {
	target := Polygon{
		Outer: rect(0, 0, 100, 100),
		Holes: []Ring{rect(20, 20, 80, 80)},
	}
	cut := rect(40, 40, 60, 60) // entirely within the hole

	_, err := Split(target, cut)
	if !errors.Is(err, ErrNothingToSplit) {
		t.Errorf("Split() error = %v, want ErrNothingToSplit", err)
	}
}

func TestSplit_InteriorCutOnHoledTargetAddsSecondHole(t *testing.T) {
	target := Polygon{
		Outer: rect(0, 0, 100, 100),
		Holes: []Ring{rect(40, 40, 60, 60)},
	}
	cut := rect(10, 10, 30, 30) // interior to the solid band

	result, err := Split(target, cut)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if got := totalArea(result.Carved); math.Abs(got-400) > 1e-6 {
		t.Errorf("carved area = %v, want 400", got)
	}
	if len(result.Remaining) != 1 {
		t.Fatalf("remaining pieces = %d, want 1", len(result.Remaining))
	}
	if got := len(result.Remaining[0].Holes); got != 2 {
		t.Errorf("remaining holes = %d, want 2", got)
	}
	original := target.Area()
	if got := result.TotalArea(); math.Abs(got-original)/original > 1e-6 {
		t.Errorf("pieces area = %v, original = %v", got, original)
	}
}

func TestSplit_DisjointCutIsNoOp(t *testing.T) {
	original := rect(0, 0, 100, 50)
	cut := rect(200, 200, 300, 300)

	_, err := Split(original, cut)
	if !errors.Is(err, ErrNothingToSplit) {
		t.Errorf("Split() error = %v, want ErrNothingToSplit", err)
	}
}

func TestSplit_CutCanDisconnectTarget(t *testing.T) {
	original := rect(0, 0, 100, 30)
	cut := rect(40, -10, 60, 40) // vertical band through the middle

	result, err := Split(original, cut)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(result.Remaining) != 2 {
		t.Fatalf("remaining pieces = %d, want 2 disjoint pieces", len(result.Remaining))
	}
	total := result.Remaining[0].Area() + result.Remaining[1].Area()
	if math.Abs(total-2400) > 1e-6 {
		t.Errorf("remaining total = %v, want 2400", total)
	}
}

func TestSplit_RejectsInvalidInputs(t *testing.T) {
	if _, err := Split(rect(0, 0, 10, 10), Ring{{0, 0}, {1, 1}}); !errors.Is(err, ErrDegenerateRing) {
		t.Errorf("degenerate cut error = %v, want ErrDegenerateRing", err)
	}
	if _, err := Split(Line{{0, 0}, {10, 10}}, rect(0, 0, 5, 5)); !errors.Is(err, ErrUnsupportedCut) {
		t.Errorf("line target error = %v, want ErrUnsupportedCut", err)
	}
}

func TestSplit_PolygonWithHoleTarget(t *testing.T) {
	target := Polygon{
		Outer: rect(0, 0, 100, 100),
		Holes: []Ring{rect(40, 40, 60, 60)},
	}
	cut := rect(-10, -10, 50, 110) // left half

	result, err := Split(target, cut)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	original := target.Area()
	if got := result.TotalArea(); math.Abs(got-original)/original > 1e-6 {
		t.Errorf("pieces area = %v, original = %v", got, original)
	}
}
