// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

// DetectionStore defines the contract for the durable persistence layer.
type DetectionStore interface {
	// Job operations
	SaveJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)

	// Page operations
	SavePages(ctx context.Context, pages []*model.Page) error
	GetPages(ctx context.Context, jobID string) ([]*model.Page, error)
	UpdatePageScale(ctx context.Context, pageID string, scaleRatio float64) error

	// Detection operations
	SaveDetections(ctx context.Context, detections []*model.Detection) error
	GetDetections(ctx context.Context, jobID string) ([]*model.Detection, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// DraftStore persists crash-recovery snapshots of in-progress edit sessions,
// one per job.
type DraftStore interface {
	SaveDraft(ctx context.Context, draft *model.Draft) error
	GetDraft(ctx context.Context, jobID string) (*model.Draft, error)
	DeleteDraft(ctx context.Context, jobID string) error
}

// DetectionFailure reports one detection the commit endpoint rejected.
type DetectionFailure struct {
	DetectionID string
	Reason      string
}

// CommitEndpoint accepts a job's full detection set at the validate
// boundary. A returned error means nothing was applied; per-detection
// failures report partial rejection without discarding the caller's state.
type CommitEndpoint interface {
	CommitDetections(ctx context.Context, jobID string, detections []*model.Detection) ([]DetectionFailure, error)
}
