package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"
)

// MatCanvas draws on an OpenCV Mat. OpenCV clips shapes and text that fall
// outside the image.
type MatCanvas struct {
	mat *gocv.Mat
}

func NewMatCanvas(mat *gocv.Mat) *MatCanvas {
	return &MatCanvas{mat: mat}
}

func (c *MatCanvas) Rectangle(r image.Rectangle, col color.RGBA, thickness int) {
	gocv.Rectangle(c.mat, r, col, thickness)
}

func (c *MatCanvas) PutText(text string, org image.Point, scale float64, col color.RGBA) {
	gocv.PutText(c.mat, text, org, gocv.FontHersheyPlain, scale, col, 1)
}

var ErrEmptyImage = errors.New("image is empty or in an unsupported format")

func ReadImage(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		_ = mat.Close()
		return gocv.NewMat(), fmt.Errorf("read %s: %w", path, ErrEmptyImage)
	}
	return mat, nil
}

func WriteImage(path string, mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("write %s: %w", path, ErrEmptyImage)
	}
	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("write %s: encoder failed", path)
	}
	return nil
}

// DecodeImage decodes an encoded image (jpeg, png, ...) into a BGR Mat.
func DecodeImage(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), ErrEmptyImage
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), err
	}
	if mat.Empty() {
		_ = mat.Close()
		return gocv.NewMat(), ErrEmptyImage
	}
	return mat, nil
}

// StripDataURL drops a "data:image/...;base64," prefix if present.
func StripDataURL(b64 string) string {
	if i := strings.Index(b64, ","); i != -1 && strings.HasPrefix(b64, "data:") {
		return b64[i+1:]
	}
	return b64
}

func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
