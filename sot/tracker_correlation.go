package sot

import (
	"image"

	"github.com/pkg/errors"
)

// CorrelationTracker follows the object by searching a window around its last position
// for the best normalized correlation with the previous appearance.
// The reference patch is refreshed on every successful update.
type CorrelationTracker struct {
	opts      TrackerOptions
	reference *patch
	box       image.Rectangle
	lastScore float64
}

// NewCorrelationTracker creates tracker. It must be seeded with Init before Update.
func NewCorrelationTracker(opts TrackerOptions) *CorrelationTracker {
	return &CorrelationTracker{
		opts: opts.withDefaults(),
	}
}

// Init seeds tracker with object at bbox
func (tracker *CorrelationTracker) Init(frame *Frame, bbox Rectangle) error {
	region, err := cropRegion(frame, bbox)
	if err != nil {
		return errors.Wrap(err, "Can't init correlation tracker")
	}
	tracker.reference = newPatch(frame, region)
	tracker.box = region
	tracker.lastScore = 1.0
	return nil
}

// Update searches frame around last box
func (tracker *CorrelationTracker) Update(frame *Frame) (Rectangle, bool, error) {
	if frame.Empty() {
		return Rectangle{}, false, errors.Wrap(ErrInvalidInput, "Can't update correlation tracker")
	}
	if tracker.reference == nil {
		return Rectangle{}, false, ErrNotInitialized
	}
	size := tracker.reference.size()
	margin := tracker.opts.marginFor(size.X, size.Y)
	area := searchArea(tracker.box, margin, frame.Bounds())
	if area.Dx() < size.X || area.Dy() < size.Y {
		// Object left the frame
		tracker.lastScore = 0
		return Rectangle{}, false, nil
	}
	match, err := tracker.reference.bestMatch(frame, area, tracker.opts.Workers)
	if err != nil {
		return Rectangle{}, false, errors.Wrap(err, "Can't search object")
	}
	tracker.lastScore = match.Score
	if match.Score < tracker.opts.MinScore {
		return Rectangle{}, false, nil
	}
	tracker.box = image.Rectangle{Min: match.Location, Max: match.Location.Add(size)}
	tracker.reference = newPatch(frame, tracker.box)
	return NewRectFrom(tracker.box), true, nil
}

// LastScore returns similarity of the last update
func (tracker *CorrelationTracker) LastScore() float64 {
	return tracker.lastScore
}
