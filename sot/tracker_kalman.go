package sot

import (
	"image"
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// KalmanTracker is correlation tracker which searches around the position predicted by
// an 8-D Kalman filter instead of the last position.
// State vector: [cx, cy, w, h, vx, vy, vw, vh] - center position, size, and velocities.
// Output boxes are the filter's smoothed estimate.
type KalmanTracker struct {
	opts          TrackerOptions
	dt            float64
	reference     *patch
	measured      image.Rectangle
	currentBBox   Rectangle
	predictedBBox Rectangle
	track         []Point
	maxTrackLen   int
	lastScore     float64
	tracker       *kalman_filter.KalmanBBox
}

// NewKalmanTracker creates tracker with time step of 1.0 (one frame)
func NewKalmanTracker(opts TrackerOptions) *KalmanTracker {
	return NewKalmanTrackerWithTime(opts, 1.0)
}

// NewKalmanTrackerWithTime creates tracker with specified time step
func NewKalmanTrackerWithTime(opts TrackerOptions, dt float64) *KalmanTracker {
	return &KalmanTracker{
		opts:        opts.withDefaults(),
		dt:          dt,
		maxTrackLen: 150,
	}
}

// Init seeds tracker with object at bbox. The filter is rebuilt, so velocity starts from zero.
func (kt *KalmanTracker) Init(frame *Frame, bbox Rectangle) error {
	region, err := cropRegion(frame, bbox)
	if err != nil {
		return errors.Wrap(err, "Can't init kalman tracker")
	}
	box := NewRectFrom(region)
	center := box.Center()

	// Kalman filter props. No control input: object acceleration is unknown
	uCx := 0.0
	uCy := 0.0
	uW := 0.0
	uH := 0.0
	stdDevA := 2.0
	stdDevMCx := 0.1
	stdDevMCy := 0.1
	stdDevMW := 0.1
	stdDevMH := 0.1
	kt.tracker = kalman_filter.NewKalmanBBox(
		kt.dt, uCx, uCy, uW, uH,
		stdDevA, stdDevMCx, stdDevMCy, stdDevMW, stdDevMH,
		kalman_filter.WithStateBBox(center.X, center.Y, box.Width, box.Height),
	)
	kt.reference = newPatch(frame, region)
	kt.measured = region
	kt.currentBBox = box
	kt.predictedBBox = box
	kt.track = make([]Point, 0, kt.maxTrackLen)
	kt.track = append(kt.track, center)
	kt.lastScore = 1.0
	return nil
}

// Update predicts object position, searches around prediction and corrects the filter with the match
func (kt *KalmanTracker) Update(frame *Frame) (Rectangle, bool, error) {
	if frame.Empty() {
		return Rectangle{}, false, errors.Wrap(ErrInvalidInput, "Can't update kalman tracker")
	}
	if kt.tracker == nil {
		return Rectangle{}, false, ErrNotInitialized
	}
	kt.predictNextPosition()

	size := kt.reference.size()
	bounds := frame.Bounds()
	if size.X > bounds.Dx() || size.Y > bounds.Dy() {
		return Rectangle{}, false, errors.Wrapf(ErrDimensionMismatch, "frame %v can't hold %v object", bounds, size)
	}
	center := kt.predictedBBox.Center()
	origin := image.Pt(int(math.Round(center.X-float64(size.X)/2.0)), int(math.Round(center.Y-float64(size.Y)/2.0)))
	predicted := clampBox(image.Rectangle{Min: origin, Max: origin.Add(size)}, bounds)

	margin := kt.opts.marginFor(size.X, size.Y)
	match, err := kt.reference.bestMatch(frame, searchArea(predicted, margin, bounds), kt.opts.Workers)
	if err != nil {
		return Rectangle{}, false, errors.Wrap(err, "Can't search object")
	}
	kt.lastScore = match.Score
	if match.Score < kt.opts.MinScore {
		return Rectangle{}, false, nil
	}

	kt.measured = image.Rectangle{Min: match.Location, Max: match.Location.Add(size)}
	if err := kt.correct(NewRectFrom(kt.measured)); err != nil {
		return Rectangle{}, false, err
	}
	kt.reference = newPatch(frame, kt.measured)
	return kt.currentBBox, true, nil
}

// predictNextPosition executes Kalman filter prediction step
func (kt *KalmanTracker) predictNextPosition() {
	kt.tracker.Predict()
	cx, cy, w, h := kt.tracker.GetState()
	kt.predictedBBox = Rectangle{
		X:      cx - w/2.0,
		Y:      cy - h/2.0,
		Width:  w,
		Height: h,
	}
}

// correct executes Kalman filter update step with measured box
func (kt *KalmanTracker) correct(measurement Rectangle) error {
	center := measurement.Center()
	err := kt.tracker.Update(center.X, center.Y, measurement.Width, measurement.Height)
	if err != nil {
		return errors.Wrap(err, "Can't update object tracker")
	}
	cx, cy, w, h := kt.tracker.GetState()
	kt.currentBBox = Rectangle{
		X:      cx - w/2.0,
		Y:      cy - h/2.0,
		Width:  w,
		Height: h,
	}
	kt.track = append(kt.track, Point{X: cx, Y: cy})
	if len(kt.track) > kt.maxTrackLen {
		kt.track = kt.track[1:]
	}
	return nil
}

// LastScore returns similarity of the last update
func (kt *KalmanTracker) LastScore() float64 {
	return kt.lastScore
}

// GetPredictedBBox returns bounding box predicted for the last updated frame
func (kt *KalmanTracker) GetPredictedBBox() Rectangle {
	return kt.predictedBBox
}

// GetTrack returns centers since last Init. Be careful: this is not copy of track, but reference to it
func (kt *KalmanTracker) GetTrack() []Point {
	return kt.track
}

// GetVelocity returns current center velocity estimate (vx, vy) in pixels per time step
func (kt *KalmanTracker) GetVelocity() (float64, float64) {
	if kt.tracker == nil {
		return 0, 0
	}
	vx, vy, _, _ := kt.tracker.GetVelocity()
	return vx, vy
}
