package gocvio

import (
	"image"
	"image/color"
	"testing"

	"github.com/LdDl/sot-go/sot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackerDispatch(t *testing.T) {
	for _, algo := range []sot.Algorithm{sot.AlgorithmCorrelation, sot.AlgorithmKalman, sot.AlgorithmMedianFlow} {
		tracker, err := NewTracker(algo, sot.DefaultTrackerOptions())
		require.NoError(t, err, algo)
		_, isOpenCV := tracker.(*OpenCVTracker)
		assert.False(t, isOpenCV, algo)
	}
	for _, algo := range []sot.Algorithm{sot.AlgorithmMIL, sot.AlgorithmKCF, sot.AlgorithmCSRT} {
		tracker, err := NewTracker(algo, sot.DefaultTrackerOptions())
		require.NoError(t, err, algo)
		_, isOpenCV := tracker.(*OpenCVTracker)
		assert.True(t, isOpenCV, algo)
	}
	_, err := NewOpenCVTracker(sot.AlgorithmKalman)
	require.ErrorIs(t, err, sot.ErrUnsupportedAlgorithm)
}

func TestOpenCVTrackerRequiresInit(t *testing.T) {
	tracker, err := NewOpenCVTracker(sot.AlgorithmCSRT)
	require.NoError(t, err)
	_, ok, err := tracker.Update(sot.NewFrame(image.NewRGBA(image.Rect(0, 0, 8, 8))))
	require.ErrorIs(t, err, sot.ErrNotInitialized)
	assert.False(t, ok)
	require.NoError(t, tracker.Close())
}

func TestOpenCVTrackerRejectsOutsideBox(t *testing.T) {
	tracker, err := NewOpenCVTracker(sot.AlgorithmMIL)
	require.NoError(t, err)
	defer tracker.Close()
	frame := sot.NewFrame(image.NewRGBA(image.Rect(0, 0, 32, 32)))
	err = tracker.Init(frame, sot.NewRect(40, 40, 10, 10))
	require.ErrorIs(t, err, sot.ErrInvalidRegion)
	err = tracker.Init(sot.NewFrame(nil), sot.NewRect(0, 0, 10, 10))
	require.ErrorIs(t, err, sot.ErrInvalidInput)
}

func TestFrameMatConversion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	img.SetRGBA(3, 2, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	mat, err := frameToMat(sot.NewFrame(img))
	require.NoError(t, err)
	defer mat.Close()
	assert.Equal(t, 4, mat.Rows())
	assert.Equal(t, 6, mat.Cols())

	frame, err := matToFrame(mat)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 6, 4), frame.Bounds())
	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, frame.RGBA().RGBAAt(3, 2))

	_, err = frameToMat(sot.NewFrame(nil))
	require.ErrorIs(t, err, sot.ErrInvalidInput)
}
