package gocvio

import (
	"context"
	"io"
	"strconv"

	"github.com/LdDl/sot-go/sot"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// VideoSource reads frames from a video file, stream URL or capture device
type VideoSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenVideo opens a video file or stream
func OpenVideo(path string) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open video source '%s'", path)
	}
	return newVideoSource(capture), nil
}

// OpenDevice opens a capture device. Device is given by its numeric id, e.g. "0"
func OpenDevice(device string) (*VideoSource, error) {
	id, err := strconv.Atoi(device)
	if err != nil {
		return nil, errors.Wrapf(err, "Bad device id '%s'", device)
	}
	capture, err := gocv.VideoCaptureDevice(id)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open capture device %d", id)
	}
	return newVideoSource(capture), nil
}

func newVideoSource(capture *gocv.VideoCapture) *VideoSource {
	return &VideoSource{
		capture: capture,
		mat:     gocv.NewMat(),
	}
}

// NextFrame grabs next frame. io.EOF is returned when capture has no more frames
func (src *VideoSource) NextFrame(ctx context.Context) (*sot.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := src.capture.Read(&src.mat); !ok || src.mat.Empty() {
		return nil, io.EOF
	}
	return matToFrame(src.mat)
}

// FPS returns frame rate reported by capture
func (src *VideoSource) FPS() float64 {
	return src.capture.Get(gocv.VideoCaptureFPS)
}

// Close releases capture
func (src *VideoSource) Close() error {
	if err := src.mat.Close(); err != nil {
		return err
	}
	return src.capture.Close()
}
