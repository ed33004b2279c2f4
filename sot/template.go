package sot

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// AppearanceTemplate is the reference look of the tracked object, captured once at selection time.
// It owns a private copy of the cropped samples and is never modified afterwards.
type AppearanceTemplate struct {
	patch   *patch
	bounds  image.Rectangle
	workers int
}

// TemplateOption configures AppearanceTemplate
type TemplateOption func(*AppearanceTemplate)

// WithWorkers sets how many row bands MatchBest evaluates concurrently. Non-positive means runtime.NumCPU().
func WithWorkers(workers int) TemplateOption {
	return func(t *AppearanceTemplate) {
		t.workers = workers
	}
}

// NewAppearanceTemplate crops frame to bbox.
// It fails with ErrInvalidRegion if bbox has non-positive extent or does not lie fully inside frame.
func NewAppearanceTemplate(frame *Frame, bbox Rectangle, options ...TemplateOption) (*AppearanceTemplate, error) {
	region, err := cropRegion(frame, bbox)
	if err != nil {
		return nil, err
	}
	tpl := &AppearanceTemplate{
		patch:  newPatch(frame, region),
		bounds: region,
	}
	for _, option := range options {
		option(tpl)
	}
	return tpl, nil
}

// cropRegion validates bbox against frame and returns its pixel rectangle
func cropRegion(frame *Frame, bbox Rectangle) (image.Rectangle, error) {
	if frame.Empty() {
		return image.Rectangle{}, errors.Wrap(ErrInvalidInput, "can't crop empty frame")
	}
	if bbox.Empty() || !finite(bbox.X, bbox.Y, bbox.Width, bbox.Height) {
		return image.Rectangle{}, errors.Wrapf(ErrInvalidRegion, "box %+v", bbox)
	}
	region := bbox.ImageRect()
	if region.Empty() || !region.In(frame.Bounds()) {
		return image.Rectangle{}, errors.Wrapf(ErrInvalidRegion, "box %v does not fit frame %v", region, frame.Bounds())
	}
	return region, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MatchBest slides the template over the whole frame and returns the best scoring window.
// Score is the normalized correlation coefficient, so it is comparable across frames.
func (t *AppearanceTemplate) MatchBest(frame *Frame) (Match, error) {
	if frame.Empty() {
		return Match{}, errors.Wrap(ErrInvalidInput, "can't match against empty frame")
	}
	return t.patch.bestMatch(frame, frame.Bounds(), t.workers)
}

// Width returns template's width in pixels
func (t *AppearanceTemplate) Width() int {
	return t.patch.width
}

// Height returns template's height in pixels
func (t *AppearanceTemplate) Height() int {
	return t.patch.height
}

// Bounds returns the frame region the template was cropped from
func (t *AppearanceTemplate) Bounds() image.Rectangle {
	return t.bounds
}

// BoxAt returns a template-sized box with top-left corner at pt
func (t *AppearanceTemplate) BoxAt(pt image.Point) Rectangle {
	return NewRect(float64(pt.X), float64(pt.Y), float64(t.patch.width), float64(t.patch.height))
}

// Pixels returns a copy of template samples: interleaved RGB, row-major
func (t *AppearanceTemplate) Pixels() []float64 {
	pix := make([]float64, len(t.patch.raw))
	copy(pix, t.patch.raw)
	return pix
}

// Image renders template samples into a new RGBA image
func (t *AppearanceTemplate) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.patch.width, t.patch.height))
	for i := 0; i < t.patch.width*t.patch.height; i++ {
		img.Pix[i*4] = uint8(t.patch.raw[i*channels])
		img.Pix[i*4+1] = uint8(t.patch.raw[i*channels+1])
		img.Pix[i*4+2] = uint8(t.patch.raw[i*channels+2])
		img.Pix[i*4+3] = 255
	}
	return img
}
