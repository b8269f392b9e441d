package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/common"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

// SaveDraft upserts a job's recovery snapshot.
func (s *SQLiteStorage) SaveDraft(ctx context.Context, draft *model.Draft) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if draft == nil {
		return fmt.Errorf("%w: draft", ErrNilParameter)
	}
	if err := validateString(draft.JobID, "draft.JobID"); err != nil {
		return err
	}

	payload, err := json.Marshal(draft.Detections)
	if err != nil {
		return fmt.Errorf("failed to encode draft payload: %w", err)
	}

	savedAt := draft.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (job_id, payload, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
		draft.JobID, string(payload), savedAt)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// GetDraft fetches a job's recovery snapshot, common.ErrNotFound when none
// exists.
func (s *SQLiteStorage) GetDraft(ctx context.Context, jobID string) (*model.Draft, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return nil, err
	}

	var (
		payload string
		savedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, saved_at FROM drafts WHERE job_id = ?`, jobID).
		Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: draft for job %s", common.ErrNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	draft := &model.Draft{JobID: jobID, SavedAt: savedAt}
	if err := json.Unmarshal([]byte(payload), &draft.Detections); err != nil {
		return nil, fmt.Errorf("failed to decode draft payload: %w", err)
	}
	return draft, nil
}

// DeleteDraft removes a job's recovery snapshot. Deleting a missing draft is
// not an error.
func (s *SQLiteStorage) DeleteDraft(ctx context.Context, jobID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(jobID, "jobID"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
