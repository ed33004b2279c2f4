package sot

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FrameSource supplies decoded frames in presentation order.
// End of stream is reported as io.EOF.
type FrameSource interface {
	NextFrame(ctx context.Context) (*Frame, error)
}

// RegionSelector picks the object to follow on the first frame. It is called once per session.
type RegionSelector interface {
	Select(frame *Frame) (Rectangle, error)
}

// FrameSink consumes frames with their annotation, e.g. draws and displays them.
// Returning ErrStopRequested ends the session loop without error.
type FrameSink interface {
	Present(frame *Frame, annotation Annotation) error
}

// Annotation is what a sink needs to render one frame
type Annotation struct {
	SessionID  uuid.UUID
	FrameIndex int
	State      TrackerState
	Label      string
	BBox       Rectangle
	HasBBox    bool
	Score      float64
	Redetected bool
}

// Stats summarizes a session loop
type Stats struct {
	// Frames accepted by the state machine, seeding frame included
	Frames         int
	TrackingFrames int
	LostFrames     int
	// Transitions Tracking -> Lost
	LossEvents   int
	Redetections int
	// Frames dropped as invalid input
	Skipped int
}

func (stats *Stats) add(result Result) {
	stats.Frames++
	switch result.State {
	case StateTracking:
		stats.TrackingFrames++
	case StateLost:
		stats.LostFrames++
	}
	if result.Redetected {
		stats.Redetections++
	}
}

// Run drives a whole session: reads the first frame, asks selector for the object,
// then feeds every following frame to a TrackingStateMachine and hands results to sink.
//
// The loop ends cleanly on end of stream or when sink returns ErrStopRequested.
// Context cancellation is honoured between frames and returned as ctx.Err().
// Frames rejected as invalid input are skipped; any other error stops the loop.
// Run owns tracker and closes it before returning.
func Run(ctx context.Context, source FrameSource, selector RegionSelector, sink FrameSink, tracker SingleObjectTracker, opts Options) (Stats, error) {
	stats := Stats{}
	logger := opts.logger()
	defer func() {
		if closer, ok := tracker.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Warn().Err(err).Msg("can't close tracker")
			}
		}
	}()

	first, err := source.NextFrame(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return stats, ErrNoFrames
		}
		return stats, errors.Wrap(err, "Can't read first frame")
	}
	bbox, err := selector.Select(first)
	if err != nil {
		return stats, errors.Wrap(err, "Can't select object")
	}
	machine, err := NewTrackingStateMachine(first, bbox, tracker, opts)
	if err != nil {
		return stats, err
	}
	logger = machine.logger

	initial := machine.Current()
	stats.add(initial)
	if err := sink.Present(first, machine.Annotate(initial)); err != nil {
		if errors.Is(err, ErrStopRequested) {
			return stats, nil
		}
		return stats, errors.Wrap(err, "Can't present frame")
	}

	prevState := initial.State
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		frame, err := source.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return stats, errors.Wrap(err, "Can't read frame")
		}
		result, err := machine.ProcessFrame(frame)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				stats.Skipped++
				logger.Warn().Err(err).Msg("frame skipped")
				continue
			}
			return stats, err
		}
		stats.add(result)
		if prevState == StateTracking && result.State == StateLost {
			stats.LossEvents++
		}
		prevState = result.State
		if err := sink.Present(frame, machine.Annotate(result)); err != nil {
			if errors.Is(err, ErrStopRequested) {
				break
			}
			return stats, errors.Wrap(err, "Can't present frame")
		}
	}
	logger.Info().
		Int("frames", stats.Frames).
		Int("lost_frames", stats.LostFrames).
		Int("loss_events", stats.LossEvents).
		Int("redetections", stats.Redetections).
		Int("skipped", stats.Skipped).
		Msg("tracking session finished")
	return stats, nil
}
