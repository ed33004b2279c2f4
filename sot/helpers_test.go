package sot

import (
	"image"
	"image/color"
	"math/rand"
)

const (
	sceneWidth  = 160
	sceneHeight = 120
	objectSide  = 30
)

// noiseImage fills image with deterministic random colors
func noiseImage(width, height int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

// paste copies src onto dst with src's top-left at pt
func paste(dst *image.RGBA, src *image.RGBA, pt image.Point) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if !(image.Pt(pt.X+x, pt.Y+y).In(dst.Bounds())) {
				continue
			}
			dst.Set(pt.X+x, pt.Y+y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
}

// scene renders the object patch over a fixed background at given position
func scene(objectAt image.Point) *Frame {
	img := noiseImage(sceneWidth, sceneHeight, 1)
	paste(img, noiseImage(objectSide, objectSide, 2), objectAt)
	return NewFrame(img)
}

// sceneWithoutObject renders background only
func sceneWithoutObject() *Frame {
	return NewFrame(noiseImage(sceneWidth, sceneHeight, 1))
}

// distortedScene renders object at pt with part of its pixels replaced
func distortedScene(objectAt image.Point, seed int64) *Frame {
	img := noiseImage(sceneWidth, sceneHeight, 1)
	object := noiseImage(objectSide, objectSide, 2)
	rng := rand.New(rand.NewSource(seed))
	for y := 0; y < objectSide; y++ {
		for x := 0; x < objectSide; x++ {
			if rng.Intn(4) == 0 {
				object.Set(x, y, color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
			}
		}
	}
	paste(img, object, objectAt)
	return NewFrame(img)
}

// scriptedTracker moves its box by a fixed step per update and fails on chosen update calls
type scriptedTracker struct {
	step        Point
	failOn      map[int]bool
	rejectInits bool
	box         Rectangle
	updates     int
	inits       []Rectangle
	closed      bool
}

func (st *scriptedTracker) Init(frame *Frame, bbox Rectangle) error {
	if st.rejectInits && len(st.inits) > 0 {
		return ErrTrackerRejected
	}
	st.inits = append(st.inits, bbox)
	st.box = bbox
	return nil
}

func (st *scriptedTracker) Update(frame *Frame) (Rectangle, bool, error) {
	if frame.Empty() {
		return Rectangle{}, false, ErrInvalidInput
	}
	st.updates++
	if st.failOn[st.updates] {
		return Rectangle{}, false, nil
	}
	st.box = st.box.Translate(st.step.X, st.step.Y)
	return st.box, true, nil
}

func (st *scriptedTracker) Close() error {
	st.closed = true
	return nil
}
