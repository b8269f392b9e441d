package scale

import (
	"errors"
	"math"
	"testing"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

func TestCalibrate(t *testing.T) {
	tests := []struct {
		name         string
		pixels       float64
		length       RealLength
		wantRatio    float64
		wantNotation string
		wantErr      error
	}{
		{
			name:         "exact quarter inch scale",
			pixels:       375,
			length:       RealLength{Feet: 10},
			wantRatio:    37.5,
			wantNotation: `1/4" = 1'-0"`,
		},
		{
			name:         "feet and inches",
			pixels:       300,
			length:       RealLength{Feet: 7, Inches: 6},
			wantRatio:    40,
			wantNotation: `1/4" = 1'-0"`, // 6.7% off 37.5, within tolerance
		},
		{
			name:      "far from any standard scale",
			pixels:    1000,
			length:    RealLength{Feet: 1},
			wantRatio: 1000,
			// 1000 px/ft is >30% from the largest table entry (450)
			wantNotation: "",
		},
		{
			name:    "zero pixels rejected",
			pixels:  0,
			length:  RealLength{Feet: 10},
			wantErr: ErrNonPositiveInput,
		},
		{
			name:    "negative length rejected",
			pixels:  100,
			length:  RealLength{Feet: -2},
			wantErr: ErrNonPositiveInput,
		},
		{
			name:    "zero length rejected",
			pixels:  100,
			length:  RealLength{},
			wantErr: ErrNonPositiveInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calibrate(tt.pixels, tt.length)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Calibrate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Calibrate() error = %v", err)
			}
			if math.Abs(got.PixelsPerFoot-tt.wantRatio) > 1e-9 {
				t.Errorf("PixelsPerFoot = %v, want %v", got.PixelsPerFoot, tt.wantRatio)
			}
			if got.Notation != tt.wantNotation {
				t.Errorf("Notation = %q, want %q", got.Notation, tt.wantNotation)
			}
		})
	}
}

func TestRealLength_TotalFeet(t *testing.T) {
	l := RealLength{Feet: 5, Inches: 6}
	if got := l.TotalFeet(); got != 5.5 {
		t.Errorf("TotalFeet() = %v, want 5.5", got)
	}
}

func TestResult_ApplyTo(t *testing.T) {
	page := &model.Page{ID: "p1", ScaleRatio: model.ScaleUncalibrated}
	result, err := Calibrate(750, RealLength{Feet: 20})
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}

	result.ApplyTo(page)

	if page.ScaleRatio != 37.5 {
		t.Errorf("ScaleRatio = %v, want 37.5", page.ScaleRatio)
	}
	if !page.Calibrated() {
		t.Error("page still reports uncalibrated after ApplyTo")
	}
}

func TestCalibrate_FailureLeavesPageUntouched(t *testing.T) {
	page := &model.Page{ID: "p1", ScaleRatio: model.ScaleUncalibrated}
	if _, err := Calibrate(-5, RealLength{Feet: 10}); err == nil {
		t.Fatal("Calibrate() accepted negative pixels")
	}
	if page.ScaleRatio != model.ScaleUncalibrated {
		t.Error("failed calibration mutated the page scale")
	}
}
