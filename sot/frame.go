package sot

import (
	"image"

	"golang.org/x/image/draw"
)

const channels = 3

// Frame is a decoded video frame. Samples are kept as interleaved RGB float64 values in [0, 255].
// Frame is never modified after construction.
type Frame struct {
	img    image.Image
	width  int
	height int
	pix    []float64
}

// NewFrame converts img into a Frame. A nil or zero-sized image gives an empty frame.
func NewFrame(img image.Image) *Frame {
	if img == nil {
		return &Frame{}
	}
	b := img.Bounds()
	if b.Empty() {
		return &Frame{img: img}
	}
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	width, height := b.Dx(), b.Dy()
	pix := make([]float64, width*height*channels)
	for y := 0; y < height; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
		dst := pix[y*width*channels : (y+1)*width*channels]
		for x := 0; x < width; x++ {
			dst[x*channels] = float64(src[x*4])
			dst[x*channels+1] = float64(src[x*4+1])
			dst[x*channels+2] = float64(src[x*4+2])
		}
	}
	return &Frame{
		img:    img,
		width:  width,
		height: height,
		pix:    pix,
	}
}

// Width returns frame's width in pixels
func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return f.width
}

// Height returns frame's height in pixels
func (f *Frame) Height() int {
	if f == nil {
		return 0
	}
	return f.height
}

// Bounds returns frame's pixel extent with origin at (0, 0)
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width(), f.Height())
}

// Empty reports whether frame carries no pixels
func (f *Frame) Empty() bool {
	return f == nil || f.width <= 0 || f.height <= 0 || len(f.pix) == 0
}

// Image returns the image frame was built from.
// Adapters backed by other imaging libraries convert from it.
func (f *Frame) Image() image.Image {
	if f == nil {
		return nil
	}
	return f.img
}

// RGBA returns an opaque zero-origin copy of frame pixels
func (f *Frame) RGBA() *image.RGBA {
	if f.Empty() {
		return image.NewRGBA(image.Rectangle{})
	}
	rgba := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for i := 0; i < f.width*f.height; i++ {
		rgba.Pix[i*4] = uint8(f.pix[i*channels])
		rgba.Pix[i*4+1] = uint8(f.pix[i*channels+1])
		rgba.Pix[i*4+2] = uint8(f.pix[i*channels+2])
		rgba.Pix[i*4+3] = 0xff
	}
	return rgba
}

// row returns interleaved samples of pixels [x0, x1) on line y. It is a view, not a copy.
func (f *Frame) row(y, x0, x1 int) []float64 {
	start := (y*f.width + x0) * channels
	return f.pix[start : start+(x1-x0)*channels]
}

// Luminance returns a fresh width*height plane of Rec. 601 luma values.
func (f *Frame) Luminance() []float64 {
	if f.Empty() {
		return nil
	}
	lum := make([]float64, f.width*f.height)
	for i := range lum {
		p := f.pix[i*channels : i*channels+channels]
		lum[i] = 0.299*p[0] + 0.587*p[1] + 0.114*p[2]
	}
	return lum
}
