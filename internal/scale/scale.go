// Package scale converts a user-drawn reference segment plus a real-world
// length into a page's pixels-per-foot ratio, optionally naming the nearest
// standard architectural drawing scale.
package scale

import (
	"errors"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

// ErrNonPositiveInput rejects calibrations with a non-positive pixel
// distance or real length. The existing page scale is left untouched.
var ErrNonPositiveInput = errors.New("calibration inputs must be positive")

// rasterDPI is the assumed rasterization density of drawing sheets, used
// only for standard-notation matching.
const rasterDPI = 150.0

// notationTolerance is the maximum relative error against a standard scale
// entry before the notation is suppressed.
const notationTolerance = 0.30

// RealLength is a real-world length expressed as feet plus inches.
type RealLength struct {
	Feet   float64
	Inches float64
}

// TotalFeet returns the length in decimal feet.
func (l RealLength) TotalFeet() float64 {
	return l.Feet + l.Inches/12
}

// Result is a successful calibration.
type Result struct {
	// Notation is the nearest standard drawing scale, empty when no table
	// entry is within tolerance. The ratio is valid either way.
	Notation string
	// PixelsPerFoot is the calibrated scale ratio.
	PixelsPerFoot float64
}

// standardScales maps architectural scale notations to pixels per foot at
// the assumed raster DPI (inches-per-foot on paper times DPI).
var standardScales = []struct {
	notation string
	pxPerFt  float64
}{
	{`1/16" = 1'-0"`, rasterDPI / 16},
	{`3/32" = 1'-0"`, rasterDPI * 3 / 32},
	{`1/8" = 1'-0"`, rasterDPI / 8},
	{`3/16" = 1'-0"`, rasterDPI * 3 / 16},
	{`1/4" = 1'-0"`, rasterDPI / 4},
	{`3/8" = 1'-0"`, rasterDPI * 3 / 8},
	{`1/2" = 1'-0"`, rasterDPI / 2},
	{`3/4" = 1'-0"`, rasterDPI * 3 / 4},
	{`1" = 1'-0"`, rasterDPI},
	{`1-1/2" = 1'-0"`, rasterDPI * 3 / 2},
	{`3" = 1'-0"`, rasterDPI * 3},
}

// Calibrate derives the pixels-per-foot ratio from a measured pixel distance
// and the real length it represents.
func Calibrate(pixelDist float64, length RealLength) (Result, error) {
	feet := length.TotalFeet()
	if pixelDist <= 0 || feet <= 0 {
		return Result{}, ErrNonPositiveInput
	}

	ratio := pixelDist / feet
	return Result{
		PixelsPerFoot: ratio,
		Notation:      nearestNotation(ratio),
	}, nil
}

// nearestNotation returns the standard scale closest to ratio, or "" when
// the best match exceeds the relative-error tolerance.
func nearestNotation(ratio float64) string {
	best := ""
	bestErr := notationTolerance
	for _, s := range standardScales {
		relErr := (ratio - s.pxPerFt) / s.pxPerFt
		if relErr < 0 {
			relErr = -relErr
		}
		if relErr <= bestErr {
			best = s.notation
			bestErr = relErr
		}
	}
	return best
}

// ApplyTo writes the calibrated ratio onto the page. This is the only writer
// of Page.ScaleRatio.
func (r Result) ApplyTo(p *model.Page) {
	p.ScaleRatio = r.PixelsPerFoot
}
