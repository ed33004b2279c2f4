package sot

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidRegion is returned when a box has non-positive extent or does not fit inside the frame
	ErrInvalidRegion = errors.New("region is empty or lies outside of frame")
	// ErrInvalidInput is returned for nil or empty frames
	ErrInvalidInput = errors.New("frame is empty")
	// ErrDimensionMismatch is returned when frame size differs from the size tracking was initialized with
	ErrDimensionMismatch = errors.New("frame dimensions do not match session")
	// ErrNotInitialized is returned by trackers updated before Init
	ErrNotInitialized = errors.New("tracker is not initialized")
	// ErrTrackerRejected is returned by trackers which refuse to be seeded with given box
	ErrTrackerRejected = errors.New("tracker rejected initial box")
	// ErrUnsupportedAlgorithm is returned when a tracker variant is unknown or not available in this build
	ErrUnsupportedAlgorithm = errors.New("unsupported tracking algorithm")
	// ErrNoFrames is returned when source ends before the first frame
	ErrNoFrames = errors.New("source has no frames")
	// ErrStopRequested may be returned by a FrameSink to end the session loop early
	ErrStopRequested = errors.New("stop requested")
)
