package sot

import (
	"strings"

	"github.com/pkg/errors"
)

// SingleObjectTracker is a short-horizon visual tracker following one object frame to frame.
// Implementations are interchangeable; the state machine only relies on this contract.
type SingleObjectTracker interface {
	// Init seeds (or reseeds) tracker to follow object at bbox in frame.
	// Nothing from a previous seed survives except what the algorithm keeps by construction.
	Init(frame *Frame, bbox Rectangle) error
	// Update advances tracking by one frame.
	// Losing the object is reported as ok == false with nil error; errors are kept for malformed input.
	Update(frame *Frame) (bbox Rectangle, ok bool, err error)
}

// ScoreReporter is implemented by trackers which can tell how confident their last Update was
type ScoreReporter interface {
	LastScore() float64
}

// Algorithm is for tracker variant selection
type Algorithm string

const (
	// AlgorithmCorrelation is local normalized cross-correlation search with a refreshed reference patch
	AlgorithmCorrelation Algorithm = "ncc"
	// AlgorithmKalman is correlation search steered by a constant velocity Kalman filter
	AlgorithmKalman Algorithm = "kalman"
	// AlgorithmMedianFlow is median of block-matching optical flow with forward-backward check
	AlgorithmMedianFlow Algorithm = "medianflow"
	// AlgorithmMIL is OpenCV's multiple instance learning tracker
	AlgorithmMIL Algorithm = "mil"
	// AlgorithmKCF is OpenCV's kernelized correlation filter tracker
	AlgorithmKCF Algorithm = "kcf"
	// AlgorithmCSRT is OpenCV's discriminative correlation filter tracker with channel and spatial reliability
	AlgorithmCSRT Algorithm = "csrt"
)

// KnownAlgorithms lists every variant
func KnownAlgorithms() []Algorithm {
	return []Algorithm{
		AlgorithmCorrelation,
		AlgorithmKalman,
		AlgorithmMedianFlow,
		AlgorithmMIL,
		AlgorithmKCF,
		AlgorithmCSRT,
	}
}

// ParseAlgorithm converts case-insensitive name into Algorithm
func ParseAlgorithm(name string) (Algorithm, error) {
	algo := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range KnownAlgorithms() {
		if algo == known {
			return algo, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedAlgorithm, "unknown algorithm '%s'", name)
}

// Native reports whether variant is implemented in this package without OpenCV
func (algo Algorithm) Native() bool {
	switch algo {
	case AlgorithmCorrelation, AlgorithmKalman, AlgorithmMedianFlow:
		return true
	default:
		return false
	}
}

func (algo Algorithm) String() string {
	return string(algo)
}

// TrackerOptions holds tuning shared by the native trackers
type TrackerOptions struct {
	// Pixels added around the last box when searching for the object. Zero means half of the larger box side
	SearchMargin int
	// Minimum similarity to accept a frame-to-frame match. Default is 0.5
	MinScore float64
	// Flow tracker: number of grid points per box side. Default is 10
	FlowGrid int
	// Flow tracker: half size of the block compared around each point. Default is 4
	FlowWindow int
	// Flow tracker: maximum displacement searched per frame. Default is 8
	FlowRadius int
	// Flow tracker: median forward-backward error (pixels) above which tracking is lost. Default is 2.0
	MaxForwardBackwardError float64
	// Concurrent row bands for correlation search. Non-positive means runtime.NumCPU()
	Workers int
}

// DefaultTrackerOptions returns default tuning
func DefaultTrackerOptions() TrackerOptions {
	return TrackerOptions{
		SearchMargin:            0,
		MinScore:                0.5,
		FlowGrid:                10,
		FlowWindow:              4,
		FlowRadius:              8,
		MaxForwardBackwardError: 2.0,
		Workers:                 0,
	}
}

// withDefaults fills zero values with defaults
func (opts TrackerOptions) withDefaults() TrackerOptions {
	def := DefaultTrackerOptions()
	if opts.MinScore <= 0 {
		opts.MinScore = def.MinScore
	}
	if opts.FlowGrid <= 0 {
		opts.FlowGrid = def.FlowGrid
	}
	if opts.FlowWindow <= 0 {
		opts.FlowWindow = def.FlowWindow
	}
	if opts.FlowRadius <= 0 {
		opts.FlowRadius = def.FlowRadius
	}
	if opts.MaxForwardBackwardError <= 0 {
		opts.MaxForwardBackwardError = def.MaxForwardBackwardError
	}
	return opts
}

// marginFor returns search margin for a box of given size
func (opts TrackerOptions) marginFor(width, height int) int {
	if opts.SearchMargin > 0 {
		return opts.SearchMargin
	}
	return maxInt(1, maxInt(width, height)/2)
}

// NewTracker creates native tracker for given algorithm.
// OpenCV backed variants are built by package gocvio; here they give ErrUnsupportedAlgorithm.
func NewTracker(algo Algorithm, opts TrackerOptions) (SingleObjectTracker, error) {
	switch algo {
	case AlgorithmCorrelation:
		return NewCorrelationTracker(opts), nil
	case AlgorithmKalman:
		return NewKalmanTracker(opts), nil
	case AlgorithmMedianFlow:
		return NewFlowTracker(opts), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "algorithm '%s' is not available without OpenCV", algo)
	}
}
