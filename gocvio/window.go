package gocvio

import (
	"image"
	"image/color"

	"github.com/LdDl/sot-go/sot"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	colorBox        = color.RGBA{0, 255, 0, 0}
	colorTracking   = color.RGBA{0, 255, 0, 0}
	colorRedetected = color.RGBA{0, 0, 255, 0}
	colorSearching  = color.RGBA{255, 0, 0, 0}
)

const (
	fontScale     = 0.7
	lineThickness = 2
	quitKey       = 'q'
)

var searchingLabelPosition = image.Pt(100, 50)

// ROISelector asks user to draw the object box in a window
type ROISelector struct {
	Title string
}

// Select shows frame and blocks until user confirms a box. Cancelled selection yields ErrInvalidRegion
func (sel ROISelector) Select(frame *sot.Frame) (sot.Rectangle, error) {
	title := sel.Title
	if title == "" {
		title = "Select Object"
	}
	mat, err := frameToMat(frame)
	if err != nil {
		return sot.Rectangle{}, err
	}
	defer mat.Close()
	window := gocv.NewWindow(title)
	defer window.Close()
	rect := window.SelectROI(mat)
	if rect.Empty() {
		return sot.Rectangle{}, errors.Wrap(sot.ErrInvalidRegion, "selection cancelled")
	}
	return sot.NewRectFrom(rect), nil
}

// WindowSink shows every frame with box and state label drawn on it
type WindowSink struct {
	window *gocv.Window
	// Milliseconds to wait for a key press after each frame
	delay int
}

// NewWindowSink opens a preview window
func NewWindowSink(title string) *WindowSink {
	return &WindowSink{
		window: gocv.NewWindow(title),
		delay:  1,
	}
}

// Present draws annotation and shows frame. Pressing 'q' gives ErrStopRequested
func (sink *WindowSink) Present(frame *sot.Frame, annotation sot.Annotation) error {
	mat, err := frameToMat(frame)
	if err != nil {
		return err
	}
	defer mat.Close()
	drawAnnotation(&mat, annotation)
	sink.window.IMShow(mat)
	if sink.window.WaitKey(sink.delay)&0xFF == quitKey {
		return sot.ErrStopRequested
	}
	return nil
}

// Close destroys window
func (sink *WindowSink) Close() error {
	return sink.window.Close()
}

func drawAnnotation(mat *gocv.Mat, annotation sot.Annotation) {
	if !annotation.HasBBox {
		gocv.PutText(mat, annotation.Label, searchingLabelPosition, gocv.FontHersheySimplex, fontScale, colorSearching, lineThickness)
		return
	}
	rect := annotation.BBox.ImageRect()
	gocv.Rectangle(mat, rect, colorBox, lineThickness)
	labelColor := colorTracking
	if annotation.Redetected {
		labelColor = colorRedetected
	}
	gocv.PutText(mat, annotation.Label, image.Pt(rect.Min.X, rect.Min.Y-10), gocv.FontHersheySimplex, fontScale, labelColor, lineThickness)
}
