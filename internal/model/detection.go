package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/geometry"
)

// DetectionStatus is the lifecycle state of a detection.
type DetectionStatus string

// Detection statuses. Deleted is a soft tombstone: the detection stays
// addressable for undo until the edit session commits.
const (
	StatusAuto     DetectionStatus = "auto"
	StatusEdited   DetectionStatus = "edited"
	StatusVerified DetectionStatus = "verified"
	StatusDeleted  DetectionStatus = "deleted"
)

// Detection is one annotation over a page: geometry in pixel space, a class
// from the closed set, and a lifecycle status. AreaSF and PerimeterLF are a
// cache of the measurement engine's output, recomputable from geometry plus
// the owning page's scale ratio; they are never authoritative.
type Detection struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Geometry     geometry.Shape
	OriginalBBox *geometry.BoundingBox
	CostOverride *float64
	ID           string
	PageID       string
	JobID        string
	Class        Class
	Status       DetectionStatus
	MaterialID   string
	Notes        string
	Color        string
	BBox         geometry.BoundingBox
	Confidence   float64
	AreaSF       float64
	PerimeterLF  float64
}

// NewDetection builds a detection with a fresh id and synced bounding box.
func NewDetection(jobID, pageID string, class Class, shape geometry.Shape, bbox geometry.BoundingBox) *Detection {
	d := &Detection{
		ID:        uuid.NewString(),
		JobID:     jobID,
		PageID:    pageID,
		Class:     class,
		Status:    StatusAuto,
		Geometry:  shape,
		BBox:      bbox,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	d.SyncBBox()
	return d
}

// Shape returns the detection's geometry, falling back to the bounding box
// rectangle so every detection can be measured uniformly.
func (d *Detection) Shape() geometry.Shape {
	if d.Geometry != nil {
		return d.Geometry
	}
	return d.BBox.Ring()
}

// SyncBBox recomputes the bounding box from the geometry. The box is
// derived, never independently authored, so every geometry mutation must
// call this.
func (d *Detection) SyncBBox() {
	if d.Geometry != nil {
		d.BBox = d.Geometry.Bounds()
	}
}

// Deleted reports whether the detection is soft-deleted.
func (d *Detection) Deleted() bool {
	return d.Status == StatusDeleted
}

// Clone returns a deep copy.
func (d *Detection) Clone() *Detection {
	out := *d
	switch g := d.Geometry.(type) {
	case geometry.Ring:
		out.Geometry = append(geometry.Ring(nil), g...)
	case geometry.Line:
		out.Geometry = append(geometry.Line(nil), g...)
	case geometry.Polygon:
		p := geometry.Polygon{Outer: append(geometry.Ring(nil), g.Outer...)}
		for _, h := range g.Holes {
			p.Holes = append(p.Holes, append(geometry.Ring(nil), h...))
		}
		out.Geometry = p
	}
	if d.OriginalBBox != nil {
		b := *d.OriginalBBox
		out.OriginalBBox = &b
	}
	if d.CostOverride != nil {
		c := *d.CostOverride
		out.CostOverride = &c
	}
	return &out
}

// detectionJSON mirrors Detection for serialization; the geometry variant
// travels as its canonical encoded form.
type detectionJSON struct {
	ID           string                `json:"id"`
	PageID       string                `json:"page_id"`
	JobID        string                `json:"job_id"`
	Class        Class                 `json:"class"`
	Status       DetectionStatus       `json:"status"`
	Confidence   float64               `json:"confidence"`
	Geometry     json.RawMessage       `json:"geometry"`
	BBox         geometry.BoundingBox  `json:"bbox"`
	OriginalBBox *geometry.BoundingBox `json:"original_bbox,omitempty"`
	AreaSF       float64               `json:"area_sf"`
	PerimeterLF  float64               `json:"perimeter_lf"`
	MaterialID   string                `json:"material_id,omitempty"`
	CostOverride *float64              `json:"cost_override,omitempty"`
	Notes        string                `json:"notes,omitempty"`
	Color        string                `json:"color,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// MarshalJSON implements json.Marshaler.
func (d *Detection) MarshalJSON() ([]byte, error) {
	geom, err := geometry.EncodeShape(d.Geometry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode detection %s geometry: %w", d.ID, err)
	}
	return json.Marshal(detectionJSON{
		ID:           d.ID,
		PageID:       d.PageID,
		JobID:        d.JobID,
		Class:        d.Class,
		Status:       d.Status,
		Confidence:   d.Confidence,
		Geometry:     geom,
		BBox:         d.BBox,
		OriginalBBox: d.OriginalBBox,
		AreaSF:       d.AreaSF,
		PerimeterLF:  d.PerimeterLF,
		MaterialID:   d.MaterialID,
		CostOverride: d.CostOverride,
		Notes:        d.Notes,
		Color:        d.Color,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Detection) UnmarshalJSON(data []byte) error {
	var enc detectionJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}
	shape, err := geometry.DecodeShape(enc.Geometry)
	if err != nil {
		return fmt.Errorf("failed to decode detection %s geometry: %w", enc.ID, err)
	}
	*d = Detection{
		ID:           enc.ID,
		PageID:       enc.PageID,
		JobID:        enc.JobID,
		Class:        enc.Class,
		Status:       enc.Status,
		Confidence:   enc.Confidence,
		Geometry:     shape,
		BBox:         enc.BBox,
		OriginalBBox: enc.OriginalBBox,
		AreaSF:       enc.AreaSF,
		PerimeterLF:  enc.PerimeterLF,
		MaterialID:   enc.MaterialID,
		CostOverride: enc.CostOverride,
		Notes:        enc.Notes,
		Color:        enc.Color,
		CreatedAt:    enc.CreatedAt,
		UpdatedAt:    enc.UpdatedAt,
	}
	return nil
}

// Draft is a crash-recovery snapshot of a job's full detection set.
type Draft struct {
	SavedAt    time.Time    `json:"saved_at"`
	JobID      string       `json:"job_id"`
	Detections []*Detection `json:"detections"`
}
