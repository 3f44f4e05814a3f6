package render

import (
	iface "ObstacleVisServer/interface"
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func blankMat(t *testing.T) gocv.Mat {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { _ = mat.Close() })
	return mat
}

func TestMatCanvas_EmptyLeavesImageUnchanged(t *testing.T) {
	mat := blankMat(t)
	before := mat.ToBytes()

	r := New(DefaultFontScale)
	canvas := NewMatCanvas(&mat)
	r.DrawBoxes(nil, canvas)
	r.DrawLabelsBelow(nil, canvas)

	assert.True(t, bytes.Equal(before, mat.ToBytes()))
}

func TestMatCanvas_DrawBoxes(t *testing.T) {
	mat := blankMat(t)
	obj := &iface.VisualObject{
		UpperLeft:  iface.Point2D{X: 10, Y: 40},
		LowerRight: iface.Point2D{X: 200, Y: 120},
	}

	New(DefaultFontScale).DrawBoxes([]*iface.VisualObject{obj}, NewMatCanvas(&mat))

	left := mat.GetVecbAt(80, 10)
	assert.Equal(t, gocv.Vecb{255, 255, 255}, left)
	bottom := mat.GetVecbAt(120, 100)
	assert.Equal(t, gocv.Vecb{255, 255, 255}, bottom)
	inside := mat.GetVecbAt(80, 100)
	assert.Equal(t, gocv.Vecb{0, 0, 0}, inside)
}

func TestMatCanvas_ClipsOutOfBounds(t *testing.T) {
	mat := blankMat(t)
	obj := &iface.VisualObject{
		UpperLeft:  iface.Point2D{X: -50, Y: -50},
		LowerRight: iface.Point2D{X: 5000, Y: 5000},
	}
	assert.NotPanics(t, func() {
		r := New(DefaultFontScale)
		r.DrawBoxes([]*iface.VisualObject{obj}, NewMatCanvas(&mat))
		r.DrawLabelsBelow([]*iface.VisualObject{obj}, NewMatCanvas(&mat))
	})
	assert.Equal(t, 240, mat.Rows())
	assert.Equal(t, 320, mat.Cols())
}

func TestImageIO(t *testing.T) {
	mat := blankMat(t)
	New(DefaultFontScale).DrawBoxes([]*iface.VisualObject{{
		UpperLeft:  iface.Point2D{X: 5, Y: 5},
		LowerRight: iface.Point2D{X: 50, Y: 50},
	}}, NewMatCanvas(&mat))

	data, err := EncodeJPEG(mat)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := DecodeImage(data)
	require.NoError(t, err)
	defer decoded.Close()
	assert.Equal(t, mat.Rows(), decoded.Rows())
	assert.Equal(t, mat.Cols(), decoded.Cols())

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, WriteImage(path, mat))
	read, err := ReadImage(path)
	require.NoError(t, err)
	defer read.Close()
	assert.Equal(t, mat.Cols(), read.Cols())

	_, err = DecodeImage([]byte("not an image"))
	assert.Error(t, err)
	_, err = ReadImage(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, ErrEmptyImage)
	empty := gocv.NewMat()
	defer empty.Close()
	_, err = EncodeJPEG(empty)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestStripDataURL(t *testing.T) {
	assert.Equal(t, "QUJD", StripDataURL("data:image/jpeg;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURL("QUJD"))
}
