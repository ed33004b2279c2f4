package sot

import (
	"image"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TrackingStateMachine follows one object through a frame sequence.
// While Tracking it asks the tracker for the next box; once the tracker fails it switches to Lost
// and searches every following frame for the appearance template until a match beats the threshold,
// then reseeds the tracker there.
//
// It is not safe for concurrent use: frames must be processed one at a time, in order.
type TrackingStateMachine struct {
	id         uuid.UUID
	state      TrackerState
	bbox       Rectangle
	hasBBox    bool
	template   *AppearanceTemplate
	tracker    SingleObjectTracker
	threshold  float64
	workers    int
	frameSize  image.Point
	frameIndex int
	unusable   bool
	logger     zerolog.Logger
}

// NewTrackingStateMachine captures the appearance template at bbox, seeds tracker and starts in Tracking state.
// ErrInvalidRegion is returned if bbox does not fit frame. The machine owns tracker from now on.
func NewTrackingStateMachine(frame *Frame, bbox Rectangle, tracker SingleObjectTracker, opts Options) (*TrackingStateMachine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if tracker == nil {
		return nil, errors.New("tracker must not be nil")
	}
	id := uuid.New()
	machine := &TrackingStateMachine{
		id:        id,
		tracker:   tracker,
		threshold: opts.MatchThreshold,
		workers:   opts.Workers,
		logger:    opts.logger().With().Str("session", id.String()).Logger(),
	}
	if err := machine.seed(frame, bbox); err != nil {
		return nil, err
	}
	machine.logger.Info().
		Int("width", machine.frameSize.X).
		Int("height", machine.frameSize.Y).
		Interface("bbox", bbox).
		Float64("threshold", machine.threshold).
		Msg("tracking session started")
	return machine, nil
}

// seed builds template and initializes tracker. Machine is untouched on error
func (machine *TrackingStateMachine) seed(frame *Frame, bbox Rectangle) error {
	if frame.Empty() {
		return errors.Wrap(ErrInvalidInput, "Can't start tracking on empty frame")
	}
	template, err := NewAppearanceTemplate(frame, bbox, WithWorkers(machine.workers))
	if err != nil {
		return errors.Wrap(err, "Can't capture appearance template")
	}
	if template.patch.flat() {
		machine.logger.Warn().Interface("bbox", bbox).Msg("selected region has no texture, re-detection will never succeed")
	}
	if err := machine.tracker.Init(frame, bbox); err != nil {
		return errors.Wrap(err, "Can't initialize tracker")
	}
	machine.template = template
	machine.frameSize = image.Pt(frame.Width(), frame.Height())
	machine.state = StateTracking
	machine.bbox = bbox
	machine.hasBBox = true
	machine.unusable = false
	return nil
}

// Reinitialize starts tracking over with a new selection, e.g. after ErrDimensionMismatch.
// A fresh template is captured and the same tracker is reseeded. The frame counts as processed.
func (machine *TrackingStateMachine) Reinitialize(frame *Frame, bbox Rectangle) (Result, error) {
	if err := machine.seed(frame, bbox); err != nil {
		return Result{}, err
	}
	machine.frameIndex++
	machine.logger.Info().Int("frame", machine.frameIndex).Interface("bbox", bbox).Msg("tracking session reinitialized")
	return machine.Current(), nil
}

// ProcessFrame runs one step of the state machine on frame.
//
// Tracking loss and failed re-detection are ordinary results. Errors are returned only for
// bad input: ErrInvalidInput leaves the machine as it was, so the caller may go on with the next
// frame; ErrDimensionMismatch makes the machine unusable until Reinitialize.
func (machine *TrackingStateMachine) ProcessFrame(frame *Frame) (Result, error) {
	if frame.Empty() {
		return Result{}, errors.Wrapf(ErrInvalidInput, "frame after %d", machine.frameIndex)
	}
	if machine.unusable {
		return Result{}, errors.Wrap(ErrDimensionMismatch, "session must be reinitialized")
	}
	if frame.Width() != machine.frameSize.X || frame.Height() != machine.frameSize.Y {
		machine.unusable = true
		machine.hasBBox = false
		return Result{}, errors.Wrapf(ErrDimensionMismatch, "got %dx%d, session expects %dx%d",
			frame.Width(), frame.Height(), machine.frameSize.X, machine.frameSize.Y)
	}
	frameIndex := machine.frameIndex + 1
	switch machine.state {
	case StateTracking:
		return machine.track(frame, frameIndex)
	case StateLost:
		return machine.redetect(frame, frameIndex)
	default:
		return Result{}, errors.Errorf("unexpected state %s", machine.state)
	}
}

// track advances tracker. On failure the object is lost and no box is reported for this frame
func (machine *TrackingStateMachine) track(frame *Frame, frameIndex int) (Result, error) {
	bbox, ok, err := machine.tracker.Update(frame)
	if err != nil {
		return Result{}, errors.Wrapf(err, "Can't update tracker on frame %d", frameIndex)
	}
	machine.frameIndex = frameIndex
	result := Result{
		FrameIndex: frameIndex,
		Score:      machine.trackerScore(),
	}
	if !ok {
		machine.state = StateLost
		machine.hasBBox = false
		result.State = StateLost
		machine.logger.Info().Int("frame", frameIndex).Float64("score", result.Score).Msg("tracking lost")
		return result, nil
	}
	machine.bbox = bbox
	machine.hasBBox = true
	result.State = StateTracking
	result.BBox = bbox
	result.HasBBox = true
	machine.logger.Debug().Int("frame", frameIndex).Interface("bbox", bbox).Float64("score", result.Score).Msg("tracking")
	return result, nil
}

// redetect searches whole frame for the template and reseeds tracker on a strong enough match
func (machine *TrackingStateMachine) redetect(frame *Frame, frameIndex int) (Result, error) {
	match, err := machine.template.MatchBest(frame)
	if err != nil {
		return Result{}, errors.Wrapf(err, "Can't search template on frame %d", frameIndex)
	}
	lost := Result{
		FrameIndex: frameIndex,
		State:      StateLost,
		Score:      match.Score,
	}
	if !(match.Score > machine.threshold) {
		machine.frameIndex = frameIndex
		machine.hasBBox = false
		machine.logger.Debug().Int("frame", frameIndex).Float64("score", match.Score).Msg("searching")
		return lost, nil
	}
	bbox := machine.template.BoxAt(match.Location)
	if err := machine.tracker.Init(frame, bbox); err != nil {
		if !errors.Is(err, ErrTrackerRejected) {
			return Result{}, errors.Wrapf(err, "Can't reseed tracker on frame %d", frameIndex)
		}
		machine.frameIndex = frameIndex
		machine.hasBBox = false
		machine.logger.Warn().Int("frame", frameIndex).Interface("bbox", bbox).Msg("tracker rejected re-detected box")
		return lost, nil
	}
	machine.frameIndex = frameIndex
	machine.state = StateTracking
	machine.bbox = bbox
	machine.hasBBox = true
	machine.logger.Info().Int("frame", frameIndex).Interface("bbox", bbox).Float64("score", match.Score).Msg("object re-detected")
	return Result{
		FrameIndex: frameIndex,
		State:      StateTracking,
		BBox:       bbox,
		HasBBox:    true,
		Score:      match.Score,
		Redetected: true,
	}, nil
}

func (machine *TrackingStateMachine) trackerScore() float64 {
	if reporter, ok := machine.tracker.(ScoreReporter); ok {
		return reporter.LastScore()
	}
	return 0
}

// Current describes the last processed frame without processing anything
func (machine *TrackingStateMachine) Current() Result {
	result := Result{
		FrameIndex: machine.frameIndex,
		State:      machine.state,
	}
	if machine.hasBBox {
		result.BBox = machine.bbox
		result.HasBBox = true
	}
	return result
}

// ID returns session identifier
func (machine *TrackingStateMachine) ID() uuid.UUID {
	return machine.id
}

// State returns current state
func (machine *TrackingStateMachine) State() TrackerState {
	return machine.state
}

// BBox returns box of the last processed frame if that frame produced one
func (machine *TrackingStateMachine) BBox() (Rectangle, bool) {
	return machine.bbox, machine.hasBBox
}

// Template returns appearance template captured at selection
func (machine *TrackingStateMachine) Template() *AppearanceTemplate {
	return machine.template
}

// Threshold returns re-detection acceptance threshold
func (machine *TrackingStateMachine) Threshold() float64 {
	return machine.threshold
}

// FrameSize returns frame dimensions the session expects
func (machine *TrackingStateMachine) FrameSize() image.Point {
	return machine.frameSize
}

// Usable reports whether ProcessFrame can be called without Reinitialize
func (machine *TrackingStateMachine) Usable() bool {
	return !machine.unusable
}

// Annotate converts result into data for a FrameSink
func (machine *TrackingStateMachine) Annotate(result Result) Annotation {
	return Annotation{
		SessionID:  machine.id,
		FrameIndex: result.FrameIndex,
		State:      result.State,
		Label:      result.Label(),
		BBox:       result.BBox,
		HasBBox:    result.HasBBox,
		Score:      result.Score,
		Redetected: result.Redetected,
	}
}

// Close releases tracker resources if it holds any
func (machine *TrackingStateMachine) Close() error {
	if closer, ok := machine.tracker.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
