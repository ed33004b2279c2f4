package gocvio

import (
	"github.com/LdDl/sot-go/sot"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// OpenCVTracker wraps one of OpenCV trackers into sot.SingleObjectTracker
type OpenCVTracker struct {
	algo    sot.Algorithm
	create  func() gocv.Tracker
	tracker gocv.Tracker
}

// NewOpenCVTracker creates wrapper for 'mil', 'kcf' or 'csrt'
func NewOpenCVTracker(algo sot.Algorithm) (*OpenCVTracker, error) {
	var create func() gocv.Tracker
	switch algo {
	case sot.AlgorithmMIL:
		create = func() gocv.Tracker { return gocv.NewTrackerMIL() }
	case sot.AlgorithmKCF:
		create = func() gocv.Tracker { return contrib.NewTrackerKCF() }
	case sot.AlgorithmCSRT:
		create = func() gocv.Tracker { return contrib.NewTrackerCSRT() }
	default:
		return nil, errors.Wrapf(sot.ErrUnsupportedAlgorithm, "'%s' is not an OpenCV tracker", algo)
	}
	return &OpenCVTracker{
		algo:   algo,
		create: create,
	}, nil
}

// Init starts tracking bbox from scratch. Previous OpenCV state is released
func (ot *OpenCVTracker) Init(frame *sot.Frame, bbox sot.Rectangle) error {
	mat, err := frameToMat(frame)
	if err != nil {
		return err
	}
	defer mat.Close()
	rect := bbox.ImageRect().Intersect(frame.Bounds())
	if rect.Empty() {
		return errors.Wrapf(sot.ErrInvalidRegion, "box %v is outside of frame", bbox)
	}
	if err := ot.Close(); err != nil {
		return err
	}
	ot.tracker = ot.create()
	if !ot.tracker.Init(mat, rect) {
		return errors.Wrapf(sot.ErrTrackerRejected, "%s tracker refused box %v", ot.algo, rect)
	}
	return nil
}

// Update asks OpenCV for new box
func (ot *OpenCVTracker) Update(frame *sot.Frame) (sot.Rectangle, bool, error) {
	if ot.tracker == nil {
		return sot.Rectangle{}, false, sot.ErrNotInitialized
	}
	mat, err := frameToMat(frame)
	if err != nil {
		return sot.Rectangle{}, false, err
	}
	defer mat.Close()
	rect, ok := ot.tracker.Update(mat)
	if !ok || rect.Empty() {
		return sot.Rectangle{}, false, nil
	}
	return sot.NewRectFrom(rect), true, nil
}

// Close releases OpenCV tracker
func (ot *OpenCVTracker) Close() error {
	if ot.tracker == nil {
		return nil
	}
	err := ot.tracker.Close()
	ot.tracker = nil
	return err
}

// NewTracker creates any known tracker: OpenCV ones here, native ones via sot.NewTracker
func NewTracker(algo sot.Algorithm, opts sot.TrackerOptions) (sot.SingleObjectTracker, error) {
	if algo.Native() {
		return sot.NewTracker(algo, opts)
	}
	return NewOpenCVTracker(algo)
}
