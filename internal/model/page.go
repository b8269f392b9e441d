package model

import "time"

// ScaleUncalibrated is the sentinel ScaleRatio the extraction pipeline
// assigns before a page has been calibrated. Pages carrying it are excluded
// from cross-page totals.
const ScaleUncalibrated = 1.0

// PageClassification is the drawing type of a sheet.
type PageClassification string

// Page classifications.
const (
	PageElevation PageClassification = "elevation"
	PageRoofPlan  PageClassification = "roof_plan"
	PageFloorPlan PageClassification = "floor_plan"
	PageSchedule  PageClassification = "schedule"
	PageUnknown   PageClassification = "unknown"
)

// Page represents one drawing sheet. Immutable once created except
// ScaleRatio, which only scale calibration rewrites.
type Page struct {
	CreatedAt      time.Time          `json:"created_at"`
	ID             string             `json:"id"`
	JobID          string             `json:"job_id"`
	Classification PageClassification `json:"classification"`
	WidthPx        float64            `json:"width_px"`
	HeightPx       float64            `json:"height_px"`
	ScaleRatio     float64            `json:"scale_ratio"` // pixels per foot
}

// Calibrated reports whether the page has a usable scale ratio.
func (p *Page) Calibrated() bool {
	return p.ScaleRatio > 0 && p.ScaleRatio != ScaleUncalibrated
}

// Job owns a set of pages and their detections.
type Job struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
}
