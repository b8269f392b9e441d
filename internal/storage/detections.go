package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/common"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/geometry"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/service"
)

// SaveJob upserts a job.
func (s *SQLiteStorage) SaveJob(ctx context.Context, job *model.Job) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: job", ErrNilParameter)
	}
	if err := validateString(job.ID, "job.ID"); err != nil {
		return err
	}

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		job.ID, job.Name, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob fetches a job by id.
func (s *SQLiteStorage) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var job model.Job
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM jobs WHERE id = ?`, id).
		Scan(&job.ID, &job.Name, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// SavePages upserts pages in one transaction.
func (s *SQLiteStorage) SavePages(ctx context.Context, pages []*model.Page) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i, p := range pages {
		if err := validatePage(p); err != nil {
			return fmt.Errorf("page at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range pages {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (id, job_id, width_px, height_px, scale_ratio, classification, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				scale_ratio = excluded.scale_ratio,
				classification = excluded.classification`,
			p.ID, p.JobID, p.WidthPx, p.HeightPx, p.ScaleRatio, p.Classification, createdAt); err != nil {
			return fmt.Errorf("failed to save page %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// GetPages fetches the pages of a job, oldest first.
func (s *SQLiteStorage) GetPages(ctx context.Context, jobID string) ([]*model.Page, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, width_px, height_px, scale_ratio, classification, created_at
		 FROM pages WHERE job_id = ? ORDER BY created_at, id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []*model.Page
	for rows.Next() {
		var p model.Page
		if err := rows.Scan(&p.ID, &p.JobID, &p.WidthPx, &p.HeightPx, &p.ScaleRatio, &p.Classification, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, &p)
	}
	return pages, rows.Err()
}

// UpdatePageScale writes a calibrated scale ratio onto a page. This is the
// persistence half of scale calibration, its only caller.
func (s *SQLiteStorage) UpdatePageScale(ctx context.Context, pageID string, scaleRatio float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(pageID, "pageID"); err != nil {
		return err
	}
	if scaleRatio <= 0 {
		return fmt.Errorf("%w: non-positive scale ratio", ErrInvalidPage)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pages SET scale_ratio = ? WHERE id = ?`, scaleRatio, pageID)
	if err != nil {
		return fmt.Errorf("failed to update page scale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: page %s", common.ErrNotFound, pageID)
	}
	return nil
}

// SaveDetections upserts detections in one transaction. Either every
// detection lands or none do.
func (s *SQLiteStorage) SaveDetections(ctx context.Context, detections []*model.Detection) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i, d := range detections {
		if err := validateDetection(d); err != nil {
			return fmt.Errorf("detection at index %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range detections {
		if err := saveDetectionTx(ctx, tx, d); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func saveDetectionTx(ctx context.Context, tx *sql.Tx, d *model.Detection) error {
	geom, err := geometry.EncodeShape(d.Geometry)
	if err != nil {
		return fmt.Errorf("failed to encode geometry for %s: %w", d.ID, err)
	}

	var originalBBox any
	if d.OriginalBBox != nil {
		data, marshalErr := json.Marshal(d.OriginalBBox)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode original bbox for %s: %w", d.ID, marshalErr)
		}
		originalBBox = string(data)
	}

	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := d.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO detections (
			id, page_id, job_id, class, status, confidence, geometry,
			bbox_cx, bbox_cy, bbox_w, bbox_h, original_bbox,
			area_sf, perimeter_lf, material_id, cost_override, notes, color,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			class = excluded.class,
			status = excluded.status,
			confidence = excluded.confidence,
			geometry = excluded.geometry,
			bbox_cx = excluded.bbox_cx,
			bbox_cy = excluded.bbox_cy,
			bbox_w = excluded.bbox_w,
			bbox_h = excluded.bbox_h,
			original_bbox = excluded.original_bbox,
			area_sf = excluded.area_sf,
			perimeter_lf = excluded.perimeter_lf,
			material_id = excluded.material_id,
			cost_override = excluded.cost_override,
			notes = excluded.notes,
			color = excluded.color,
			updated_at = excluded.updated_at`,
		d.ID, d.PageID, d.JobID, d.Class, d.Status, d.Confidence, string(geom),
		d.BBox.CenterX, d.BBox.CenterY, d.BBox.Width, d.BBox.Height, originalBBox,
		d.AreaSF, d.PerimeterLF, d.MaterialID, d.CostOverride, d.Notes, d.Color,
		createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save detection %s: %w", d.ID, err)
	}
	return nil
}

// GetDetections fetches every detection of a job, oldest first.
func (s *SQLiteStorage) GetDetections(ctx context.Context, jobID string) ([]*model.Detection, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, page_id, job_id, class, status, confidence, geometry,
			bbox_cx, bbox_cy, bbox_w, bbox_h, original_bbox,
			area_sf, perimeter_lf, material_id, cost_override, notes, color,
			created_at, updated_at
		 FROM detections WHERE job_id = ? ORDER BY created_at, id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var detections []*model.Detection
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

func scanDetection(rows *sql.Rows) (*model.Detection, error) {
	var (
		d            model.Detection
		geom         sql.NullString
		originalBBox sql.NullString
		costOverride sql.NullFloat64
	)
	if err := rows.Scan(
		&d.ID, &d.PageID, &d.JobID, &d.Class, &d.Status, &d.Confidence, &geom,
		&d.BBox.CenterX, &d.BBox.CenterY, &d.BBox.Width, &d.BBox.Height, &originalBBox,
		&d.AreaSF, &d.PerimeterLF, &d.MaterialID, &costOverride, &d.Notes, &d.Color,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan detection: %w", err)
	}

	if geom.Valid {
		shape, err := geometry.DecodeShape([]byte(geom.String))
		if err != nil {
			return nil, fmt.Errorf("failed to decode geometry for %s: %w", d.ID, err)
		}
		d.Geometry = shape
	}
	if originalBBox.Valid {
		var box geometry.BoundingBox
		if err := json.Unmarshal([]byte(originalBBox.String), &box); err != nil {
			return nil, fmt.Errorf("failed to decode original bbox for %s: %w", d.ID, err)
		}
		d.OriginalBBox = &box
	}
	if costOverride.Valid {
		c := costOverride.Float64
		d.CostOverride = &c
	}
	return &d, nil
}

// CommitDetections implements the commit endpoint on local storage. Invalid
// detections are reported per id; the remaining valid set is written in one
// transaction so a failure never partially applies.
func (s *SQLiteStorage) CommitDetections(ctx context.Context, jobID string, detections []*model.Detection) ([]service.DetectionFailure, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return nil, err
	}

	var failures []service.DetectionFailure
	valid := make([]*model.Detection, 0, len(detections))
	for _, d := range detections {
		if err := validateDetection(d); err != nil {
			id := ""
			if d != nil {
				id = d.ID
			}
			failures = append(failures, service.DetectionFailure{
				DetectionID: id,
				Reason:      err.Error(),
			})
			continue
		}
		valid = append(valid, d)
	}

	if err := s.SaveDetections(ctx, valid); err != nil {
		return failures, fmt.Errorf("failed to commit detections: %w", err)
	}
	return failures, nil
}
