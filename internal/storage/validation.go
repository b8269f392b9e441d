package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidPage      = errors.New("invalid page")
	ErrInvalidDetection = errors.New("invalid detection")
	ErrInvalidDraft     = errors.New("invalid draft")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePage validates a single page.
func validatePage(page *model.Page) error {
	if page == nil {
		return fmt.Errorf("%w: page", ErrNilParameter)
	}
	if page.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPage)
	}
	if page.JobID == "" {
		return fmt.Errorf("%w: missing job ID", ErrInvalidPage)
	}
	if page.WidthPx <= 0 || page.HeightPx <= 0 {
		return fmt.Errorf("%w: non-positive dimensions", ErrInvalidPage)
	}
	return nil
}

// validateDetection validates a single detection.
func validateDetection(d *model.Detection) error {
	if d == nil {
		return fmt.Errorf("%w: detection", ErrNilParameter)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidDetection)
	}
	if d.PageID == "" {
		return fmt.Errorf("%w: missing page ID", ErrInvalidDetection)
	}
	if d.JobID == "" {
		return fmt.Errorf("%w: missing job ID", ErrInvalidDetection)
	}
	if d.Class == "" {
		return fmt.Errorf("%w: missing class", ErrInvalidDetection)
	}
	switch d.Status {
	case model.StatusAuto, model.StatusEdited, model.StatusVerified, model.StatusDeleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidDetection, d.Status)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence out of range", ErrInvalidDetection)
	}
	return nil
}
