// Package highgui implements previewers on top of OpenCV: on-screen windows
// and a comparison image written to disk.
package highgui

import (
	"image"

	pkgerrors "github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/charlie0129/lenscal/pkg/calibration"
	"github.com/charlie0129/lenscal/pkg/engine/opencv"
	"github.com/charlie0129/lenscal/pkg/preview"
)

const (
	cornersWindowName    = "findCorners"
	comparisonWindowName = "Comparison"
)

var (
	_ preview.Previewer = &Window{}
	_ preview.Previewer = &ComparisonWriter{}
)

// Window shows corner overlays and the before/after comparison in HighGUI
// windows. Each image stays up for a fixed delay; key presses are ignored.
type Window struct {
	CornersSize     image.Point
	CornersDelay    int // milliseconds
	ComparisonSize  image.Point
	ComparisonDelay int // milliseconds

	corners    *gocv.Window
	comparison *gocv.Window
}

// NewWindow returns a Window with a 640x480 corner view shown for 200ms and
// a 960x320 comparison shown for 3s.
func NewWindow() *Window {
	return &Window{
		CornersSize:     image.Pt(640, 480),
		CornersDelay:    200,
		ComparisonSize:  image.Pt(960, 320),
		ComparisonDelay: 3000,
	}
}

func (w *Window) ShowCorners(frame calibration.Frame, points calibration.PatternPoints, geometry calibration.PatternGeometry) error {
	src, err := opencv.MatOf(frame)
	if err != nil {
		return err
	}

	overlay := src.Clone()
	defer overlay.Close()
	if err := drawCorners(&overlay, points, geometry); err != nil {
		return err
	}

	if w.corners == nil {
		w.corners = gocv.NewWindow(cornersWindowName)
		if err := w.corners.ResizeWindow(w.CornersSize.X, w.CornersSize.Y); err != nil {
			return pkgerrors.Wrap(err, "failed to resize corners window")
		}
	}
	if err := w.corners.IMShow(overlay); err != nil {
		return pkgerrors.Wrap(err, "failed to show corners")
	}
	w.corners.WaitKey(w.CornersDelay)

	return nil
}

func (w *Window) ShowComparison(original, undistorted calibration.Frame) error {
	// Corner windows are gone by the time the comparison is shown.
	if w.corners != nil {
		if err := w.corners.Close(); err != nil {
			return pkgerrors.Wrap(err, "failed to close corners window")
		}
		w.corners = nil
	}

	combined, err := sideBySide(original, undistorted)
	if err != nil {
		return err
	}
	defer combined.Close()

	if w.comparison == nil {
		w.comparison = gocv.NewWindow(comparisonWindowName)
		if err := w.comparison.ResizeWindow(w.ComparisonSize.X, w.ComparisonSize.Y); err != nil {
			return pkgerrors.Wrap(err, "failed to resize comparison window")
		}
	}
	if err := w.comparison.IMShow(combined); err != nil {
		return pkgerrors.Wrap(err, "failed to show comparison")
	}
	w.comparison.WaitKey(w.ComparisonDelay)

	return nil
}

func (w *Window) Close() error {
	var err error
	for _, win := range []*gocv.Window{w.corners, w.comparison} {
		if win == nil {
			continue
		}
		if cerr := win.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	w.corners, w.comparison = nil, nil
	return err
}

// ComparisonWriter saves the before/after comparison to Path.
type ComparisonWriter struct {
	Path string
}

func (c *ComparisonWriter) ShowCorners(calibration.Frame, calibration.PatternPoints, calibration.PatternGeometry) error {
	return nil
}

func (c *ComparisonWriter) ShowComparison(original, undistorted calibration.Frame) error {
	combined, err := sideBySide(original, undistorted)
	if err != nil {
		return err
	}
	defer combined.Close()

	if ok := gocv.IMWrite(c.Path, combined); !ok {
		return pkgerrors.Errorf("failed to write comparison image %s", c.Path)
	}
	return nil
}

func (c *ComparisonWriter) Close() error { return nil }

func sideBySide(original, undistorted calibration.Frame) (gocv.Mat, error) {
	left, err := opencv.MatOf(original)
	if err != nil {
		return gocv.Mat{}, err
	}
	right, err := opencv.MatOf(undistorted)
	if err != nil {
		return gocv.Mat{}, err
	}
	if left.Rows() != right.Rows() || left.Type() != right.Type() {
		return gocv.Mat{}, pkgerrors.Errorf("cannot compare %dx%d and %dx%d images", left.Cols(), left.Rows(), right.Cols(), right.Rows())
	}

	combined := gocv.NewMat()
	if err := gocv.Hconcat(left, right, &combined); err != nil {
		_ = combined.Close()
		return gocv.Mat{}, pkgerrors.Wrap(err, "failed to join images")
	}
	return combined, nil
}

func drawCorners(img *gocv.Mat, points calibration.PatternPoints, geometry calibration.PatternGeometry) error {
	corners, err := opencv.PointsMat(points.Image)
	if err != nil {
		return err
	}
	defer corners.Close()

	found := len(points.Image) == geometry.Count()
	if err := gocv.DrawChessboardCorners(img, geometry.PatternSize(), corners, found); err != nil {
		return pkgerrors.Wrap(err, "failed to draw corners")
	}
	return nil
}
