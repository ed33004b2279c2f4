package gocvio

import (
	"github.com/LdDl/sot-go/sot"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// frameToMat copies frame pixels into a new BGR Mat. Caller must close it unless error is returned.
func frameToMat(frame *sot.Frame) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.Mat{}, errors.Wrap(sot.ErrInvalidInput, "empty frame")
	}
	mat, err := gocv.ImageToMatRGB(frame.RGBA())
	if err != nil {
		return gocv.Mat{}, errors.Wrap(err, "Can't convert frame to Mat")
	}
	return mat, nil
}

// matToFrame copies Mat pixels into a sot.Frame
func matToFrame(mat gocv.Mat) (*sot.Frame, error) {
	if mat.Empty() {
		return sot.NewFrame(nil), nil
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert Mat to image")
	}
	return sot.NewFrame(img), nil
}
