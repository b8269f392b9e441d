// Package session implements the local-first edit session over one job's
// detection set: an explicit Clean/Dirty/Validating/Error state machine with
// an append-only inverse-operation log driving undo/redo, periodic draft
// snapshots for crash recovery, and a single commit ("validate") boundary.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/common"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/geometry"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/measure"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/service"
)

// State is the session's position in the edit lifecycle.
type State int

// Session states.
const (
	StateClean State = iota
	StateDirty
	StateValidating
	StateError
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateValidating:
		return "validating"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Session errors.
var (
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrNothingToRedo     = errors.New("nothing to redo")
	ErrUnknownDetection  = errors.New("unknown detection")
	ErrDetectionDeleted  = errors.New("detection is deleted")
	ErrNotSplittable     = errors.New("detection is not an area annotation")
	ErrDraftUnavailable  = errors.New("no restorable draft")
	ErrEditsAlreadyMade  = errors.New("draft can only be restored before any edits")
)

// MaxDraftAge is how old a persisted draft may be before session open
// silently discards it instead of offering restoration.
const MaxDraftAge = time.Hour

// splitAreaTolerance is the relative tolerance for the split operator's
// area-conservation guarantee.
const splitAreaTolerance = 1e-6

// Config holds tunables for the edit session.
type Config struct {
	// DraftInterval is how many mutations pass between automatic draft
	// snapshots.
	DraftInterval int
	// MaxDraftAge overrides the default draft expiry.
	MaxDraftAge time.Duration
	// Retry configures the commit path's backoff.
	Retry common.RetryOptions
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		DraftInterval: 10,
		MaxDraftAge:   MaxDraftAge,
	}
}

// Properties are the optional per-detection overrides an operator can edit.
// Nil fields are left untouched; ClearCostOverride removes the override.
type Properties struct {
	MaterialID        *string
	Notes             *string
	Color             *string
	CostOverride      *float64
	ClearCostOverride bool
}

// Session is the single-writer edit context for one job. All geometry and
// measurement work happens synchronously under the session lock; only the
// commit call and draft writes touch external stores.
type Session struct {
	jobID        string
	cfg          Config
	drafts       service.DraftStore
	endpoint     service.CommitEndpoint
	mu           sync.Mutex
	pages        map[string]*model.Page
	current      map[string]*model.Detection
	committed    map[string]*model.Detection
	undoStack    []*editRecord
	redoStack    []*editRecord
	state        State
	lastErr      error
	generation   uint64
	sinceDraft   int
	commitSeq    uint64
	commitCancel context.CancelFunc
}

// Open creates a session over the job's committed detection set. If a draft
// snapshot younger than the configured maximum age exists it is returned for
// the caller to offer to the user; stale drafts are deleted. Restoration is
// never forced.
func Open(ctx context.Context, jobID string, pages []*model.Page, detections []*model.Detection, drafts service.DraftStore, endpoint service.CommitEndpoint, cfg Config) (*Session, *model.Draft, error) {
	if cfg.DraftInterval <= 0 {
		cfg.DraftInterval = DefaultConfig().DraftInterval
	}
	if cfg.MaxDraftAge <= 0 {
		cfg.MaxDraftAge = MaxDraftAge
	}

	s := &Session{
		jobID:     jobID,
		cfg:       cfg,
		drafts:    drafts,
		endpoint:  endpoint,
		pages:     make(map[string]*model.Page, len(pages)),
		current:   make(map[string]*model.Detection, len(detections)),
		committed: make(map[string]*model.Detection, len(detections)),
		state:     StateClean,
	}
	for _, p := range pages {
		s.pages[p.ID] = p
	}
	for _, d := range detections {
		s.current[d.ID] = d.Clone()
		s.committed[d.ID] = d.Clone()
	}

	var offered *model.Draft
	if drafts != nil {
		draft, err := drafts.GetDraft(ctx, jobID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to load draft: %w", err)
		}
		if draft != nil {
			if time.Since(draft.SavedAt) > cfg.MaxDraftAge {
				slog.Info("discarding stale draft", "job_id", jobID, "saved_at", draft.SavedAt)
				if delErr := drafts.DeleteDraft(ctx, jobID); delErr != nil {
					slog.Warn("failed to delete stale draft", "job_id", jobID, "error", delErr)
				}
			} else {
				offered = draft
			}
		}
	}

	return s, offered, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports whether uncommitted edits exist.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateClean
}

// LastError returns the most recent commit error, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// JobID returns the owning job id.
func (s *Session) JobID() string {
	return s.jobID
}

// Detections returns a clone of the full working set, soft-deleted entries
// included, ordered by creation time then id.
func (s *Session) Detections() []*model.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Visible returns non-deleted detections at or above the confidence
// threshold, the set a renderer draws.
func (s *Session) Visible(minConfidence float64) []*model.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Detection
	for _, d := range s.current {
		if d.Deleted() || d.Confidence < minConfidence {
			continue
		}
		out = append(out, d.Clone())
	}
	sortDetections(out)
	return out
}

// Get returns a clone of one detection, deleted or not.
func (s *Session) Get(id string) (*model.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.current[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDetection, id)
	}
	return d.Clone(), nil
}

// Create adds an operator-drawn detection. The detection gets status edited
// and full confidence; measurements are computed from the owning page.
func (s *Session) Create(d *model.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	det := d.Clone()
	det.Status = model.StatusEdited
	det.Confidence = 1.0
	det.SyncBBox()
	measure.Refresh(det, s.pageRatioLocked(det.PageID))

	before := captureImages(s.current, []string{det.ID})
	s.current[det.ID] = det
	s.pushLocked("create", before, captureImages(s.current, []string{det.ID}))
	return nil
}

// Delete soft-deletes a detection. It remains addressable for undo until the
// session commits.
func (s *Session) Delete(id string) error {
	return s.edit("delete", id, func(d *model.Detection) error {
		d.Status = model.StatusDeleted
		return nil
	})
}

// Move translates a detection by (dx, dy) pixels.
func (s *Session) Move(id string, dx, dy float64) error {
	return s.edit("move", id, func(d *model.Detection) error {
		switch g := d.Geometry.(type) {
		case geometry.Ring:
			d.Geometry = g.Translate(dx, dy)
		case geometry.Line:
			d.Geometry = geometry.Line(geometry.Ring(g).Translate(dx, dy))
		case geometry.Polygon:
			moved := geometry.Polygon{Outer: g.Outer.Translate(dx, dy)}
			for _, h := range g.Holes {
				moved.Holes = append(moved.Holes, h.Translate(dx, dy))
			}
			d.Geometry = moved
		}
		d.BBox = d.BBox.Translate(dx, dy)
		d.SyncBBox()
		d.Status = model.StatusEdited
		measure.Refresh(d, s.pageRatioLocked(d.PageID))
		return nil
	})
}

// Resize fits the detection to a new bounding box, mapping any polygon or
// line geometry through the box-to-box affine transform. The first resize
// records the original box for audit.
func (s *Session) Resize(id string, box geometry.BoundingBox) error {
	return s.edit("resize", id, func(d *model.Detection) error {
		if d.OriginalBBox == nil {
			orig := d.BBox
			d.OriginalBBox = &orig
		}
		old := d.BBox
		if d.Geometry != nil && old.Width > 0 && old.Height > 0 {
			sx := box.Width / old.Width
			sy := box.Height / old.Height
			remap := func(r geometry.Ring) geometry.Ring {
				out := make(geometry.Ring, len(r))
				for i, p := range r {
					out[i] = geometry.Point{
						X: box.MinX() + (p.X-old.MinX())*sx,
						Y: box.MinY() + (p.Y-old.MinY())*sy,
					}
				}
				return out
			}
			switch g := d.Geometry.(type) {
			case geometry.Ring:
				d.Geometry = remap(g)
			case geometry.Line:
				d.Geometry = geometry.Line(remap(geometry.Ring(g)))
			case geometry.Polygon:
				resized := geometry.Polygon{Outer: remap(g.Outer)}
				for _, h := range g.Holes {
					resized.Holes = append(resized.Holes, remap(h))
				}
				d.Geometry = resized
			}
		}
		d.BBox = box
		d.SyncBBox()
		d.Status = model.StatusEdited
		measure.Refresh(d, s.pageRatioLocked(d.PageID))
		return nil
	})
}

// Reclassify changes a detection's class and rederives its quantities.
func (s *Session) Reclassify(id string, class model.Class) error {
	return s.edit("reclassify", id, func(d *model.Detection) error {
		d.Class = class
		d.Status = model.StatusEdited
		measure.Refresh(d, s.pageRatioLocked(d.PageID))
		return nil
	})
}

// Verify marks a detection operator-verified.
func (s *Session) Verify(id string) error {
	return s.edit("verify", id, func(d *model.Detection) error {
		d.Status = model.StatusVerified
		d.Confidence = 1.0
		return nil
	})
}

// ReplaceGeometry swaps in a new shape and rederives box and quantities.
func (s *Session) ReplaceGeometry(id string, shape geometry.Shape) error {
	return s.edit("replace_geometry", id, func(d *model.Detection) error {
		d.Geometry = shape
		d.SyncBBox()
		d.Status = model.StatusEdited
		measure.Refresh(d, s.pageRatioLocked(d.PageID))
		return nil
	})
}

// SetProperties applies the non-nil override fields.
func (s *Session) SetProperties(id string, props Properties) error {
	return s.edit("set_properties", id, func(d *model.Detection) error {
		if props.MaterialID != nil {
			d.MaterialID = *props.MaterialID
		}
		if props.Notes != nil {
			d.Notes = *props.Notes
		}
		if props.Color != nil {
			d.Color = *props.Color
		}
		if props.ClearCostOverride {
			d.CostOverride = nil
		} else if props.CostOverride != nil {
			c := *props.CostOverride
			d.CostOverride = &c
		}
		d.Status = model.StatusEdited
		return nil
	})
}

// Split carves the cut polygon out of a detection, replacing it with the
// carved piece and whatever remains. The original is soft-deleted; the new
// detections keep its class and carry operator confidence. A cut that misses
// the detection entirely is a no-op reported as geometry.ErrNothingToSplit.
func (s *Session) Split(id string, cut geometry.Ring) ([]*model.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.current[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDetection, id)
	}
	if orig.Deleted() {
		return nil, fmt.Errorf("%w: %s", ErrDetectionDeleted, id)
	}
	if orig.Class.Kind() != model.KindArea {
		return nil, fmt.Errorf("%w: %s", ErrNotSplittable, id)
	}

	result, err := geometry.Split(orig.Shape(), cut)
	if err != nil {
		return nil, err
	}

	originalArea := orig.Shape().Area()
	if !scalar.EqualWithinRel(result.TotalArea(), originalArea, splitAreaTolerance) {
		slog.Warn("split pieces do not conserve area",
			"detection_id", id,
			"original_px2", originalArea,
			"pieces_px2", result.TotalArea())
	}

	ratio := s.pageRatioLocked(orig.PageID)
	created := make([]*model.Detection, 0, len(result.Carved)+len(result.Remaining))
	for _, piece := range result.Pieces() {
		var shape geometry.Shape
		if piece.Simple() {
			shape = piece.Outer
		} else {
			shape = piece
		}
		d := model.NewDetection(orig.JobID, orig.PageID, orig.Class, shape, shape.Bounds())
		d.Status = model.StatusEdited
		d.Confidence = 1.0
		d.MaterialID = orig.MaterialID
		d.Color = orig.Color
		measure.Refresh(d, ratio)
		created = append(created, d)
	}

	ids := make([]string, 0, len(created)+1)
	ids = append(ids, id)
	for _, d := range created {
		ids = append(ids, d.ID)
	}

	before := captureImages(s.current, ids)
	s.current[id].Status = model.StatusDeleted
	s.current[id].UpdatedAt = time.Now()
	for _, d := range created {
		s.current[d.ID] = d
	}
	s.pushLocked("split", before, captureImages(s.current, ids))

	out := make([]*model.Detection, len(created))
	for i, d := range created {
		out[i] = d.Clone()
	}
	return out, nil
}

// Undo reverses the most recent edit.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undoStack) == 0 {
		return ErrNothingToUndo
	}
	rec := s.undoStack[len(s.undoStack)-1]
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	rec.undo(s.current)
	s.redoStack = append(s.redoStack, rec)
	s.generation++
	s.maybeSnapshotLocked()
	return nil
}

// Redo reapplies the most recently undone edit.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redoStack) == 0 {
		return ErrNothingToRedo
	}
	rec := s.redoStack[len(s.redoStack)-1]
	s.redoStack = s.redoStack[:len(s.redoStack)-1]
	rec.redo(s.current)
	s.undoStack = append(s.undoStack, rec)
	s.generation++
	s.maybeSnapshotLocked()
	return nil
}

// CanUndo reports whether the undo stack is non-empty.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undoStack) > 0
}

// CanRedo reports whether the redo stack is non-empty.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redoStack) > 0
}

// Reset discards all local edits, restoring the last committed snapshot and
// clearing the undo/redo history and the draft.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.current = make(map[string]*model.Detection, len(s.committed))
	for id, d := range s.committed {
		s.current[id] = d.Clone()
	}
	s.undoStack = nil
	s.redoStack = nil
	s.state = StateClean
	s.lastErr = nil
	s.generation++
	s.mu.Unlock()

	return s.clearDraft(ctx)
}

// Commit sends the full current detection set to the commit endpoint. On
// success the history and draft are cleared and the session returns to
// Clean, unless edits arrived while the commit was in flight, in which case
// it stays Dirty and the next commit sends the newer state. Failure, total
// or per-detection, leaves every local edit intact for retry. A commit
// superseded by a newer one returns ErrCommitCanceled and leaves session
// state to the superseding call, whatever the endpoint eventually answered.
func (s *Session) Commit(ctx context.Context) ([]service.DetectionFailure, error) {
	s.mu.Lock()
	if s.state == StateClean {
		s.mu.Unlock()
		return nil, nil
	}
	// A newer commit supersedes any in-flight one.
	if s.commitCancel != nil {
		s.commitCancel()
	}
	cctx, cancel := context.WithCancel(ctx)
	s.commitCancel = cancel
	s.commitSeq++
	seq := s.commitSeq
	snapshot := s.snapshotLocked()
	gen := s.generation
	s.state = StateValidating
	s.mu.Unlock()

	defer cancel()

	var failures []service.DetectionFailure
	err := common.WithRetry(cctx, func() error {
		f, commitErr := s.endpoint.CommitDetections(cctx, s.jobID, snapshot)
		failures = f
		return commitErr
	}, s.cfg.Retry)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.commitSeq {
		// The session now belongs to the newer commit: this one must not
		// record an error state or install its stale snapshot.
		return nil, common.ErrCommitCanceled
	}

	if err != nil {
		s.state = StateError
		s.lastErr = err
		slog.Error("commit failed, local edits preserved", "job_id", s.jobID, "error", err)
		return failures, fmt.Errorf("%w: %v", common.ErrCommitFailed, err)
	}
	if len(failures) > 0 {
		s.state = StateError
		s.lastErr = common.ErrCommitFailed
		slog.Warn("commit partially rejected", "job_id", s.jobID, "failed", len(failures))
		return failures, fmt.Errorf("%w: %d detections rejected", common.ErrCommitFailed, len(failures))
	}

	s.committed = make(map[string]*model.Detection, len(snapshot))
	for _, d := range snapshot {
		s.committed[d.ID] = d.Clone()
	}
	s.lastErr = nil

	if gen != s.generation {
		// Edits landed while validating; they stay pending.
		s.state = StateDirty
		return nil, nil
	}

	s.undoStack = nil
	s.redoStack = nil
	s.state = StateClean
	go func() {
		if clearErr := s.clearDraft(context.Background()); clearErr != nil {
			slog.Warn("failed to clear draft after commit", "job_id", s.jobID, "error", clearErr)
		}
	}()
	return nil, nil
}

// SaveDraft writes a recovery snapshot of the working set now.
func (s *Session) SaveDraft(ctx context.Context) error {
	if s.drafts == nil {
		return nil
	}
	s.mu.Lock()
	draft := &model.Draft{
		JobID:      s.jobID,
		SavedAt:    time.Now(),
		Detections: s.snapshotLocked(),
	}
	s.sinceDraft = 0
	s.mu.Unlock()

	if err := s.drafts.SaveDraft(ctx, draft); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// RestoreDraft replaces the working set with a previously offered draft.
// Only permitted before any edits have been made.
func (s *Session) RestoreDraft(draft *model.Draft) error {
	if draft == nil {
		return ErrDraftUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undoStack) > 0 || len(s.redoStack) > 0 || s.state != StateClean {
		return ErrEditsAlreadyMade
	}

	s.current = make(map[string]*model.Detection, len(draft.Detections))
	for _, d := range draft.Detections {
		s.current[d.ID] = d.Clone()
	}
	s.state = StateDirty
	s.generation++
	slog.Info("restored draft", "job_id", s.jobID, "saved_at", draft.SavedAt, "detections", len(draft.Detections))
	return nil
}

// Close tears the session down. Dirty sessions persist a final draft so a
// crash-free exit still leaves a recovery point; clean sessions clear any
// leftover draft.
func (s *Session) Close(ctx context.Context) error {
	if s.Dirty() {
		return s.SaveDraft(ctx)
	}
	return s.clearDraft(ctx)
}

// edit runs a single-detection mutation through the command log.
func (s *Session) edit(name, id string, mutate func(*model.Detection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.current[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDetection, id)
	}
	if d.Deleted() && name != "delete" {
		return fmt.Errorf("%w: %s", ErrDetectionDeleted, id)
	}

	before := captureImages(s.current, []string{id})
	if err := mutate(d); err != nil {
		return err
	}
	d.UpdatedAt = time.Now()
	s.pushLocked(name, before, captureImages(s.current, []string{id}))
	return nil
}

// pushLocked records an applied edit: push its inverse material onto the
// undo stack, clear redo, flip to Dirty.
func (s *Session) pushLocked(name string, before, after map[string]*model.Detection) {
	s.undoStack = append(s.undoStack, &editRecord{name: name, before: before, after: after})
	s.redoStack = nil
	s.state = StateDirty
	s.lastErr = nil
	s.generation++
	s.maybeSnapshotLocked()
}

// maybeSnapshotLocked fires a background draft write every DraftInterval
// mutations. Editing never blocks on the draft store.
func (s *Session) maybeSnapshotLocked() {
	s.sinceDraft++
	if s.drafts == nil || s.sinceDraft < s.cfg.DraftInterval {
		return
	}
	s.sinceDraft = 0
	draft := &model.Draft{
		JobID:      s.jobID,
		SavedAt:    time.Now(),
		Detections: s.snapshotLocked(),
	}
	go func() {
		if err := s.drafts.SaveDraft(context.Background(), draft); err != nil {
			slog.Warn("draft snapshot failed", "job_id", s.jobID, "error", err)
		}
	}()
}

func (s *Session) clearDraft(ctx context.Context) error {
	if s.drafts == nil {
		return nil
	}
	if err := s.drafts.DeleteDraft(ctx, s.jobID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

func (s *Session) pageRatioLocked(pageID string) float64 {
	if p, ok := s.pages[pageID]; ok {
		return p.ScaleRatio
	}
	return 0
}

func (s *Session) snapshotLocked() []*model.Detection {
	out := make([]*model.Detection, 0, len(s.current))
	for _, d := range s.current {
		out = append(out, d.Clone())
	}
	sortDetections(out)
	return out
}

func sortDetections(dets []*model.Detection) {
	sort.Slice(dets, func(i, j int) bool {
		if !dets[i].CreatedAt.Equal(dets[j].CreatedAt) {
			return dets[i].CreatedAt.Before(dets[j].CreatedAt)
		}
		return dets[i].ID < dets[j].ID
	})
}
