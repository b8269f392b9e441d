package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hutch7777777/ai-estimator-sub002/internal/common"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/geometry"
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

func testStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "takeoff.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedJob(t *testing.T, store *SQLiteStorage) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveJob(ctx, &model.Job{ID: "job-1", Name: "Maple St remodel"}))
	require.NoError(t, store.SavePages(ctx, []*model.Page{{
		ID:             "page-1",
		JobID:          "job-1",
		WidthPx:        3000,
		HeightPx:       2000,
		ScaleRatio:     model.ScaleUncalibrated,
		Classification: model.PageElevation,
	}}))
}

func sampleDetection(id string) *model.Detection {
	d := &model.Detection{
		ID:         id,
		PageID:     "page-1",
		JobID:      "job-1",
		Class:      model.ClassFacade,
		Status:     model.StatusAuto,
		Confidence: 0.92,
		Geometry:   geometry.Ring{{X: 0, Y: 0}, {X: 400, Y: 0}, {X: 400, Y: 200}, {X: 0, Y: 200}},
		CreatedAt:  time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	d.SyncBBox()
	return d
}

func TestMigrate_IsIdempotent(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))

	var version int
	require.NoError(t, store.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestJobRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, &model.Job{ID: "job-1", Name: "first"}))
	require.NoError(t, store.SaveJob(ctx, &model.Job{ID: "job-1", Name: "renamed"}))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", job.Name)

	_, err = store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPageRoundTripAndScaleUpdate(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	seedJob(t, store)

	pages, err := store.GetPages(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, model.ScaleUncalibrated, pages[0].ScaleRatio)
	assert.False(t, pages[0].Calibrated())

	require.NoError(t, store.UpdatePageScale(ctx, "page-1", 37.5))
	pages, err = store.GetPages(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 37.5, pages[0].ScaleRatio)
	assert.True(t, pages[0].Calibrated())

	assert.ErrorIs(t, store.UpdatePageScale(ctx, "missing", 37.5), common.ErrNotFound)
	assert.ErrorIs(t, store.UpdatePageScale(ctx, "page-1", -1), ErrInvalidPage)
}

func TestDetectionRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	seedJob(t, store)

	cost := 3.75
	origBox := geometry.BoundingBox{CenterX: 200, CenterY: 100, Width: 400, Height: 200}
	withHole := sampleDetection("det-poly")
	withHole.Geometry = geometry.Polygon{
		Outer: geometry.Ring{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
		Holes: []geometry.Ring{{{X: 20, Y: 20}, {X: 40, Y: 20}, {X: 40, Y: 40}, {X: 20, Y: 40}}},
	}
	withHole.SyncBBox()
	withHole.OriginalBBox = &origBox
	withHole.CostOverride = &cost
	withHole.MaterialID = "vinyl-lap"
	withHole.Notes = "hole from split"
	withHole.Color = "#ff8800"

	bare := sampleDetection("det-bare")
	bare.Geometry = nil
	bare.BBox = geometry.BoundingBox{CenterX: 10, CenterY: 10, Width: 20, Height: 20}
	bare.Class = model.ClassVent

	require.NoError(t, store.SaveDetections(ctx, []*model.Detection{withHole, bare}))

	got, err := store.GetDetections(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := map[string]*model.Detection{got[0].ID: got[0], got[1].ID: got[1]}

	poly, ok := byID["det-poly"].Geometry.(geometry.Polygon)
	require.True(t, ok, "polygon geometry survives the round trip")
	assert.InDelta(t, 100*100-20*20, poly.Area(), 1e-9)
	require.NotNil(t, byID["det-poly"].OriginalBBox)
	assert.Equal(t, origBox, *byID["det-poly"].OriginalBBox)
	require.NotNil(t, byID["det-poly"].CostOverride)
	assert.Equal(t, 3.75, *byID["det-poly"].CostOverride)
	assert.Equal(t, "vinyl-lap", byID["det-poly"].MaterialID)
	assert.Equal(t, "hole from split", byID["det-poly"].Notes)

	assert.Nil(t, byID["det-bare"].Geometry, "bbox-only detections stay bbox-only")
	assert.Nil(t, byID["det-bare"].CostOverride)
}

func TestSaveDetections_UpsertsOnConflict(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	seedJob(t, store)

	d := sampleDetection("det-1")
	require.NoError(t, store.SaveDetections(ctx, []*model.Detection{d}))

	d.Status = model.StatusVerified
	d.Confidence = 1.0
	require.NoError(t, store.SaveDetections(ctx, []*model.Detection{d}))

	got, err := store.GetDetections(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusVerified, got[0].Status)
	assert.Equal(t, 1.0, got[0].Confidence)
}

func TestSaveDetections_RejectsInvalidBatchAtomically(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	seedJob(t, store)

	valid := sampleDetection("det-1")
	invalid := sampleDetection("det-2")
	invalid.Confidence = 7

	err := store.SaveDetections(ctx, []*model.Detection{valid, invalid})
	require.ErrorIs(t, err, ErrInvalidDetection)

	got, gerr := store.GetDetections(ctx, "job-1")
	require.NoError(t, gerr)
	assert.Empty(t, got, "a rejected batch writes nothing")
}

func TestCommitDetections_ReportsPerDetectionFailures(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	seedJob(t, store)

	valid := sampleDetection("det-ok")
	invalid := sampleDetection("det-bad")
	invalid.Class = ""

	failures, err := store.CommitDetections(ctx, "job-1", []*model.Detection{valid, invalid})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "det-bad", failures[0].DetectionID)
	assert.NotEmpty(t, failures[0].Reason)

	got, err := store.GetDetections(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "det-ok", got[0].ID)
}

func TestDraftLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	seedJob(t, store)

	_, err := store.GetDraft(ctx, "job-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	draft := &model.Draft{
		JobID:      "job-1",
		SavedAt:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Detections: []*model.Detection{sampleDetection("det-1")},
	}
	require.NoError(t, store.SaveDraft(ctx, draft))

	got, err := store.GetDraft(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, got.Detections, 1)
	assert.Equal(t, "det-1", got.Detections[0].ID)
	ring, ok := got.Detections[0].Geometry.(geometry.Ring)
	require.True(t, ok)
	assert.InDelta(t, 400*200, ring.Area(), 1e-9)

	// Second save replaces the first.
	draft.Detections = nil
	require.NoError(t, store.SaveDraft(ctx, draft))
	got, err = store.GetDraft(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, got.Detections)

	require.NoError(t, store.DeleteDraft(ctx, "job-1"))
	_, err = store.GetDraft(ctx, "job-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.DeleteDraft(ctx, "job-1"), "deleting a missing draft is not an error")
}

func TestValidation_RejectsBadInput(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveJob(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveJob(ctx, &model.Job{}), ErrEmptyString)
	//nolint:staticcheck // exercising the nil-context guard
	assert.ErrorIs(t, store.SaveJob(nil, &model.Job{ID: "j"}), ErrNilContext)

	_, err := store.GetDetections(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyString)

	err = store.SavePages(ctx, []*model.Page{{ID: "p", JobID: ""}})
	assert.ErrorIs(t, err, ErrInvalidPage)
}
