package sot

// TrackerState is for state of tracking session
type TrackerState uint16

const (
	// StateUninitialized is zero value: no box was supplied yet
	StateUninitialized TrackerState = iota
	// StateTracking means the tracker follows the object frame to frame
	StateTracking
	// StateLost means tracking failed and the whole frame is searched for the template
	StateLost
)

func (state TrackerState) String() string {
	switch state {
	case StateTracking:
		return "Tracking"
	case StateLost:
		return "Lost"
	default:
		return "Uninitialized"
	}
}

const (
	LabelTracking   = "Tracking"
	LabelRedetected = "Re-detected"
	LabelSearching  = "Searching..."
)

// Result is outcome of a single processed frame
type Result struct {
	// Number of accepted frames since the session started. The seeding frame is 0
	FrameIndex int
	// State after this frame's transition
	State TrackerState
	// Box produced from this frame. Valid only if HasBBox
	BBox    Rectangle
	HasBBox bool
	// Similarity behind this frame's decision: tracker confidence while tracking,
	// best template score while searching. Zero if nothing was measured
	Score float64
	// Set on the frame where re-detection succeeded
	Redetected bool
}

// Label returns overlay caption for result
func (result Result) Label() string {
	switch {
	case result.State == StateTracking && result.Redetected:
		return LabelRedetected
	case result.State == StateTracking:
		return LabelTracking
	default:
		return LabelSearching
	}
}
