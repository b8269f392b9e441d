// Package extraction decodes the AI extraction pipeline's payload: page
// metadata plus raw detections in pixel space. The pipeline itself is an
// external collaborator; this is its interface boundary.
package extraction

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/geometry"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

// Payload is the extraction pipeline's wire format for one job.
type Payload struct {
	Job        JobMeta        `json:"job"`
	Pages      []PageMeta     `json:"pages"`
	Detections []RawDetection `json:"detections"`
}

// JobMeta identifies the job.
type JobMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PageMeta describes one rasterized sheet.
type PageMeta struct {
	ID             string  `json:"id"`
	Classification string  `json:"classification"`
	WidthPx        float64 `json:"width_px"`
	HeightPx       float64 `json:"height_px"`
	// ScaleRatio defaults to the uncalibrated sentinel when absent.
	ScaleRatio float64 `json:"scale_ratio,omitempty"`
}

// RawDetection is one pipeline detection. Polygon vertices, when present,
// take precedence over the bounding box for measurement.
type RawDetection struct {
	PageID     string       `json:"page_id"`
	Class      string       `json:"class"`
	Confidence float64      `json:"confidence"`
	BBox       [4]float64   `json:"bbox"` // center x, center y, width, height
	Polygon    [][2]float64 `json:"polygon,omitempty"`
	Line       [][2]float64 `json:"line,omitempty"`
}

// DecodeJob parses a payload stream.
func DecodeJob(r io.Reader) (*Payload, error) {
	var p Payload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode extraction payload: %w", err)
	}
	if p.Job.ID == "" {
		return nil, fmt.Errorf("extraction payload missing job id")
	}
	return &p, nil
}

// Model converts the payload into domain objects. Unknown class names map to
// the generic class and are logged, never dropped. Degenerate geometry on a
// raw detection falls back to its bounding box.
func (p *Payload) Model() (*model.Job, []*model.Page, []*model.Detection) {
	job := &model.Job{
		ID:        p.Job.ID,
		Name:      p.Job.Name,
		CreatedAt: time.Now(),
	}

	pages := make([]*model.Page, 0, len(p.Pages))
	for _, pm := range p.Pages {
		ratio := pm.ScaleRatio
		if ratio <= 0 {
			ratio = model.ScaleUncalibrated
		}
		pages = append(pages, &model.Page{
			ID:             pm.ID,
			JobID:          job.ID,
			WidthPx:        pm.WidthPx,
			HeightPx:       pm.HeightPx,
			ScaleRatio:     ratio,
			Classification: parseClassification(pm.Classification),
			CreatedAt:      time.Now(),
		})
	}

	detections := make([]*model.Detection, 0, len(p.Detections))
	for _, raw := range p.Detections {
		class, known := model.ParseClass(raw.Class)
		if !known {
			slog.Warn("unknown detection class, treating as generic",
				"class", raw.Class, "page_id", raw.PageID)
		}

		bbox := geometry.BoundingBox{
			CenterX: raw.BBox[0],
			CenterY: raw.BBox[1],
			Width:   raw.BBox[2],
			Height:  raw.BBox[3],
		}

		d := &model.Detection{
			ID:         uuid.NewString(),
			JobID:      job.ID,
			PageID:     raw.PageID,
			Class:      class,
			Status:     model.StatusAuto,
			Confidence: raw.Confidence,
			Geometry:   rawShape(raw),
			BBox:       bbox,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		d.SyncBBox()
		detections = append(detections, d)
	}

	return job, pages, detections
}

func rawShape(raw RawDetection) geometry.Shape {
	if len(raw.Polygon) > 0 {
		ring, err := geometry.NewRing(toPoints(raw.Polygon))
		if err != nil {
			slog.Warn("degenerate polygon from pipeline, using bbox",
				"page_id", raw.PageID, "vertices", len(raw.Polygon))
			return nil
		}
		return ring
	}
	if len(raw.Line) > 0 {
		line, err := geometry.NewLine(toPoints(raw.Line))
		if err != nil {
			slog.Warn("degenerate line from pipeline, using bbox",
				"page_id", raw.PageID, "vertices", len(raw.Line))
			return nil
		}
		return line
	}
	return nil
}

func toPoints(coords [][2]float64) []geometry.Point {
	pts := make([]geometry.Point, len(coords))
	for i, c := range coords {
		pts[i] = geometry.Point{X: c[0], Y: c[1]}
	}
	return pts
}

func parseClassification(name string) model.PageClassification {
	switch model.PageClassification(name) {
	case model.PageElevation, model.PageRoofPlan, model.PageFloorPlan, model.PageSchedule:
		return model.PageClassification(name)
	default:
		return model.PageUnknown
	}
}
