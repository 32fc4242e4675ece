package opencv

import (
	"fmt"
	"image"

	pkgerrors "github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

var (
	_ calibration.Frame   = &Frame{}
	_ calibration.Decoder = Decoder{}
)

// Frame wraps a BGR gocv.Mat.
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

func (f *Frame) Size() image.Point {
	return image.Pt(f.mat.Cols(), f.mat.Rows())
}

// Mat returns the underlying matrix. It stays owned by f.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Close() error {
	return f.mat.Close()
}

// MatOf extracts the matrix from a frame decoded by this package.
func MatOf(frame calibration.Frame) (gocv.Mat, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("unsupported frame type %T", frame)
	}
	if f.mat.Empty() {
		return gocv.Mat{}, fmt.Errorf("frame is empty")
	}
	return f.mat, nil
}

// Decoder reads images with OpenCV's imread.
type Decoder struct{}

func (Decoder) Decode(path string) (calibration.Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		_ = mat.Close()
		return nil, pkgerrors.Errorf("failed to decode image %s", path)
	}
	return NewFrame(mat), nil
}
