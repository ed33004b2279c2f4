package sot

import (
	"image"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestProcessFrameTranslatingObject(t *testing.T) {
	tracker := &scriptedTracker{step: Point{X: 1, Y: 0}}
	machine, err := NewTrackingStateMachine(scene(image.Pt(50, 50)), NewRect(50, 50, 30, 30), tracker, DefaultOptions())
	if err != nil {
		t.Fatalf("Can't create state machine: %v", err)
	}
	if machine.State() != StateTracking {
		t.Errorf("Expected initial state %s, got %s", StateTracking, machine.State())
	}

	expected := []Result{
		{FrameIndex: 1, State: StateTracking, BBox: NewRect(51, 50, 30, 30), HasBBox: true},
		{FrameIndex: 2, State: StateTracking, BBox: NewRect(52, 50, 30, 30), HasBBox: true},
	}
	for k, want := range expected {
		got, err := machine.ProcessFrame(scene(image.Pt(51+k, 50)))
		if err != nil {
			t.Fatalf("Frame %d failed: %v", k+1, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Frame %d result mismatch (-want +got):\n%s", k+1, diff)
		}
	}
}

func TestProcessFrameLostAndRedetected(t *testing.T) {
	tracker := &scriptedTracker{failOn: map[int]bool{5: true}}
	bbox := NewRect(50, 50, 30, 30)
	machine, err := NewTrackingStateMachine(scene(image.Pt(50, 50)), bbox, tracker, DefaultOptions())
	if err != nil {
		t.Fatalf("Can't create state machine: %v", err)
	}

	for k := 1; k <= 4; k++ {
		result, err := machine.ProcessFrame(scene(image.Pt(50, 50)))
		if err != nil {
			t.Fatalf("Frame %d failed: %v", k, err)
		}
		if result.State != StateTracking || !result.HasBBox {
			t.Errorf("Frame %d: expected tracking with box, got %+v", k, result)
		}
	}

	lost, err := machine.ProcessFrame(scene(image.Pt(50, 50)))
	if err != nil {
		t.Fatalf("Frame 5 failed: %v", err)
	}
	if lost.State != StateLost {
		t.Errorf("Expected state %s at frame 5, got %s", StateLost, lost.State)
	}
	if lost.HasBBox {
		t.Errorf("Lost frame must not carry a box, got %+v", lost.BBox)
	}
	if lost.Label() != LabelSearching {
		t.Errorf("Expected label %q, got %q", LabelSearching, lost.Label())
	}
	if _, ok := machine.BBox(); ok {
		t.Error("Machine must not report a current box after loss")
	}

	found, err := machine.ProcessFrame(scene(image.Pt(50, 50)))
	if err != nil {
		t.Fatalf("Frame 6 failed: %v", err)
	}
	if found.State != StateTracking || !found.Redetected {
		t.Errorf("Expected re-detection at frame 6, got %+v", found)
	}
	if found.BBox != bbox {
		t.Errorf("Expected re-detected box %+v, got %+v", bbox, found.BBox)
	}
	if math.Abs(found.Score-1.0) > 1e-6 {
		t.Errorf("Expected score 1.0, got %f", found.Score)
	}
	if found.Label() != LabelRedetected {
		t.Errorf("Expected label %q, got %q", LabelRedetected, found.Label())
	}
	if len(tracker.inits) != 2 || tracker.inits[1] != bbox {
		t.Errorf("Expected tracker to be reseeded with %+v, got inits %+v", bbox, tracker.inits)
	}

	next, err := machine.ProcessFrame(scene(image.Pt(50, 50)))
	if err != nil {
		t.Fatalf("Frame 7 failed: %v", err)
	}
	if next.State != StateTracking || next.Redetected {
		t.Errorf("Expected plain tracking at frame 7, got %+v", next)
	}
}

func TestProcessFrameStaysLostWhileObjectIsAbsent(t *testing.T) {
	tracker := &scriptedTracker{failOn: map[int]bool{1: true}}
	machine, err := NewTrackingStateMachine(scene(image.Pt(50, 50)), NewRect(50, 50, 30, 30), tracker, DefaultOptions())
	if err != nil {
		t.Fatalf("Can't create state machine: %v", err)
	}
	if _, err := machine.ProcessFrame(sceneWithoutObject()); err != nil {
		t.Fatalf("Frame 1 failed: %v", err)
	}
	for k := 2; k <= 4; k++ {
		result, err := machine.ProcessFrame(sceneWithoutObject())
		if err != nil {
			t.Fatalf("Frame %d failed: %v", k, err)
		}
		if result.State != StateLost || result.HasBBox {
			t.Errorf("Frame %d: expected lost without box, got %+v", k, result)
		}
		if result.Score > machine.Threshold() {
			t.Errorf("Frame %d: background scored %f above threshold", k, result.Score)
		}
	}
	if tracker.updates != 1 {
		t.Errorf("Tracker must not be updated while lost, got %d updates", tracker.updates)
	}

	// Object reappears somewhere else
	result, err := machine.ProcessFrame(scene(image.Pt(100, 70)))
	if err != nil {
		t.Fatalf("Frame 5 failed: %v", err)
	}
	want := Result{FrameIndex: 5, State: StateTracking, BBox: NewRect(100, 70, 30, 30), HasBBox: true, Score: 1.0, Redetected: true}
	if diff := cmp.Diff(want, result, cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-6 })); diff != "" {
		t.Errorf("Re-detection mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessFrameThresholdIsExclusive(t *testing.T) {
	first := scene(image.Pt(50, 50))
	bbox := NewRect(50, 50, 30, 30)
	distorted := distortedScene(image.Pt(40, 60), 7)

	template, err := NewAppearanceTemplate(first, bbox)
	if err != nil {
		t.Fatalf("Can't create template: %v", err)
	}
	match, err := template.MatchBest(distorted)
	if err != nil {
		t.Fatalf("Can't match: %v", err)
	}
	if !(match.Score > 0 && match.Score < 1) {
		t.Fatalf("Distorted object should score inside (0, 1), got %f", match.Score)
	}

	run := func(threshold float64) Result {
		tracker := &scriptedTracker{failOn: map[int]bool{1: true}}
		opts := DefaultOptions()
		opts.MatchThreshold = threshold
		machine, err := NewTrackingStateMachine(first, bbox, tracker, opts)
		if err != nil {
			t.Fatalf("Can't create state machine: %v", err)
		}
		if _, err := machine.ProcessFrame(distorted); err != nil {
			t.Fatalf("Frame 1 failed: %v", err)
		}
		result, err := machine.ProcessFrame(distorted)
		if err != nil {
			t.Fatalf("Frame 2 failed: %v", err)
		}
		return result
	}

	atThreshold := run(match.Score)
	if atThreshold.State != StateLost {
		t.Errorf("Score equal to threshold must be rejected, got %+v", atThreshold)
	}
	if atThreshold.Score != match.Score {
		t.Errorf("Expected reported score %v, got %v", match.Score, atThreshold.Score)
	}
	below := run(math.Nextafter(match.Score, 0))
	if below.State != StateTracking || !below.Redetected {
		t.Errorf("Score above threshold must be accepted, got %+v", below)
	}
	if below.BBox != NewRect(40, 60, 30, 30) {
		t.Errorf("Expected box at distorted object, got %+v", below.BBox)
	}
}

func TestProcessFrameInvalidInputKeepsState(t *testing.T) {
	tracker := &scriptedTracker{step: Point{X: 1}}
	machine, err := NewTrackingStateMachine(scene(image.Pt(50, 50)), NewRect(50, 50, 30, 30), tracker, DefaultOptions())
	if err != nil {
		t.Fatalf("Can't create state machine: %v", err)
	}
	if _, err := machine.ProcessFrame(scene(image.Pt(51, 50))); err != nil {
		t.Fatalf("Frame 1 failed: %v", err)
	}
	before := machine.Current()

	for _, frame := range []*Frame{nil, NewFrame(nil), NewFrame(image.NewRGBA(image.Rect(0, 0, 0, 0)))} {
		_, err := machine.ProcessFrame(frame)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	}
	if diff := cmp.Diff(before, machine.Current()); diff != "" {
		t.Errorf("State changed after invalid input (-before +after):\n%s", diff)
	}
	if tracker.updates != 1 {
		t.Errorf("Tracker must not see invalid frames, got %d updates", tracker.updates)
	}

	result, err := machine.ProcessFrame(scene(image.Pt(52, 50)))
	if err != nil {
		t.Fatalf("Frame after invalid input failed: %v", err)
	}
	if result.FrameIndex != 2 || result.BBox != NewRect(52, 50, 30, 30) {
		t.Errorf("Unexpected result after invalid input: %+v", result)
	}
}

func TestProcessFrameDimensionMismatch(t *testing.T) {
	tracker := &scriptedTracker{}
	machine, err := NewTrackingStateMachine(scene(image.Pt(50, 50)), NewRect(50, 50, 30, 30), tracker, DefaultOptions())
	if err != nil {
		t.Fatalf("Can't create state machine: %v", err)
	}
	_, err = machine.ProcessFrame(NewFrame(noiseImage(sceneWidth/2, sceneHeight, 3)))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}
	if machine.Usable() {
		t.Error("Machine should be unusable after dimension mismatch")
	}
	_, err = machine.ProcessFrame(scene(image.Pt(50, 50)))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch until reinitialized, got %v", err)
	}

	small := NewFrame(noiseImage(80, 60, 4))
	result, err := machine.Reinitialize(small, NewRect(10, 10, 20, 20))
	if err != nil {
		t.Fatalf("Reinitialize failed: %v", err)
	}
	if result.State != StateTracking || !result.HasBBox {
		t.Errorf("Expected tracking after reinitialize, got %+v", result)
	}
	if machine.FrameSize() != image.Pt(80, 60) {
		t.Errorf("Expected frame size 80x60, got %v", machine.FrameSize())
	}
	if _, err := machine.ProcessFrame(NewFrame(noiseImage(80, 60, 4))); err != nil {
		t.Errorf("Frame after reinitialize failed: %v", err)
	}
}

func TestProcessFrameTrackerRejectsRedetection(t *testing.T) {
	tracker := &scriptedTracker{failOn: map[int]bool{1: true}, rejectInits: true}
	machine, err := NewTrackingStateMachine(scene(image.Pt(50, 50)), NewRect(50, 50, 30, 30), tracker, DefaultOptions())
	if err != nil {
		t.Fatalf("Can't create state machine: %v", err)
	}
	for k := 1; k <= 3; k++ {
		result, err := machine.ProcessFrame(scene(image.Pt(50, 50)))
		if err != nil {
			t.Fatalf("Frame %d failed: %v", k, err)
		}
		if result.State != StateLost || result.HasBBox {
			t.Errorf("Frame %d: expected lost without box, got %+v", k, result)
		}
	}
}

func TestNewTrackingStateMachineErrors(t *testing.T) {
	frame := scene(image.Pt(50, 50))
	if _, err := NewTrackingStateMachine(frame, NewRect(150, 50, 30, 30), &scriptedTracker{}, DefaultOptions()); !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("Expected ErrInvalidRegion, got %v", err)
	}
	if _, err := NewTrackingStateMachine(nil, NewRect(50, 50, 30, 30), &scriptedTracker{}, DefaultOptions()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewTrackingStateMachine(frame, NewRect(50, 50, 30, 30), nil, DefaultOptions()); err == nil {
		t.Error("Expected error for nil tracker")
	}
	for _, threshold := range []float64{0, -0.1, 1.01, math.NaN()} {
		opts := DefaultOptions()
		opts.MatchThreshold = threshold
		if _, err := NewTrackingStateMachine(frame, NewRect(50, 50, 30, 30), &scriptedTracker{}, opts); err == nil {
			t.Errorf("Expected error for threshold %v", threshold)
		}
	}
	opts := DefaultOptions()
	opts.MatchThreshold = 1.0
	if _, err := NewTrackingStateMachine(frame, NewRect(50, 50, 30, 30), &scriptedTracker{}, opts); err != nil {
		t.Errorf("Threshold 1.0 should be accepted, got %v", err)
	}
}

func TestStateMachineWithNativeTrackers(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmCorrelation, AlgorithmKalman, AlgorithmMedianFlow} {
		t.Run(algo.String(), func(t *testing.T) {
			tracker, err := NewTracker(algo, DefaultTrackerOptions())
			if err != nil {
				t.Fatalf("Can't create tracker: %v", err)
			}
			machine, err := NewTrackingStateMachine(scene(image.Pt(50, 50)), NewRect(50, 50, 30, 30), tracker, DefaultOptions())
			if err != nil {
				t.Fatalf("Can't create state machine: %v", err)
			}
			for k := 1; k <= 10; k++ {
				result, err := machine.ProcessFrame(scene(image.Pt(50+k, 50)))
				if err != nil {
					t.Fatalf("Frame %d failed: %v", k, err)
				}
				if result.State != StateTracking {
					t.Fatalf("Frame %d: expected tracking, got %+v", k, result)
				}
				if math.Abs(result.BBox.X-float64(50+k)) > 1.0 || math.Abs(result.BBox.Y-50) > 1.0 {
					t.Errorf("Frame %d: expected box near (%d, 50), got %+v", k, 50+k, result.BBox)
				}
			}
			if err := machine.Close(); err != nil {
				t.Errorf("Close failed: %v", err)
			}
		})
	}
}
