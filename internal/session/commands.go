package session

import (
	"github.com/Hutch7777777/ai-estimator-sub002/internal/model"
)

// editRecord is one reversible entry in the session's command log. It stores
// the affected detections' full before and after images keyed by id; a nil
// image means the detection is absent on that side. Undo and redo are both
// mechanical replays of these maps, which makes the inverse laws hold by
// construction.
type editRecord struct {
	before map[string]*model.Detection
	after  map[string]*model.Detection
	name   string
}

// redo writes the after images into the working set.
func (e *editRecord) redo(set map[string]*model.Detection) {
	applyImages(set, e.after)
}

// undo writes the before images into the working set.
func (e *editRecord) undo(set map[string]*model.Detection) {
	applyImages(set, e.before)
}

func applyImages(set map[string]*model.Detection, images map[string]*model.Detection) {
	for id, img := range images {
		if img == nil {
			delete(set, id)
			continue
		}
		set[id] = img.Clone()
	}
}

// captureImages clones the current state of the given ids; absent ids record
// a nil image.
func captureImages(set map[string]*model.Detection, ids []string) map[string]*model.Detection {
	images := make(map[string]*model.Detection, len(ids))
	for _, id := range ids {
		if d, ok := set[id]; ok {
			images[id] = d.Clone()
		} else {
			images[id] = nil
		}
	}
	return images
}
