// Package opencv implements the calibration engine on top of OpenCV through
// gocv.
package opencv

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"unsafe"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

var _ calibration.Engine = &Engine{}

// Engine is a calibration.Engine backed by OpenCV's calib3d module.
type Engine struct {
	// ChessboardFlags are passed to findChessboardCorners.
	ChessboardFlags gocv.CalibCBFlag
	// CalibFlags are passed to calibrateCamera.
	CalibFlags gocv.CalibFlag

	Log *logrus.Entry
}

func (e *Engine) log() *logrus.Entry {
	if e.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return e.Log
}

// New returns an engine with OpenCV's default chessboard flags.
func New() *Engine {
	return &Engine{
		ChessboardFlags: gocv.CalibCBAdaptiveThresh | gocv.CalibCBNormalizeImage,
	}
}

func (e *Engine) DetectPattern(frame calibration.Frame, geometry calibration.PatternGeometry, criteria calibration.Criteria) (calibration.PatternPoints, error) {
	src, err := MatOf(frame)
	if err != nil {
		return calibration.PatternPoints{}, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(src, &gray, gocv.ColorBGRToGray); err != nil {
		return calibration.PatternPoints{}, fmt.Errorf("failed to convert image to grayscale: %w", err)
	}

	corners := gocv.NewMat()
	defer corners.Close()

	if !gocv.FindChessboardCorners(gray, geometry.PatternSize(), &corners, e.ChessboardFlags) {
		return calibration.PatternPoints{}, calibration.ErrPatternNotDetected
	}

	term := gocv.NewTermCriteria(gocv.Count|gocv.EPS, criteria.MaxIterations, criteria.Epsilon)
	win := image.Pt(criteria.WindowSize, criteria.WindowSize)
	if err := gocv.CornerSubPix(gray, &corners, win, image.Pt(-1, -1), term); err != nil {
		return calibration.PatternPoints{}, fmt.Errorf("failed to refine corners: %w", err)
	}

	vec := gocv.NewPoint2fVectorFromMat(corners)
	defer vec.Close()

	raw := vec.ToPoints()
	pts := make([]calibration.Point2, len(raw))
	for i, p := range raw {
		pts[i] = calibration.Point2{X: float64(p.X), Y: float64(p.Y)}
	}

	e.log().WithField("corners", corners.Rows()*corners.Cols()).Trace("chessboard corners refined")

	return calibration.PatternPoints{
		World: geometry.WorldPoints(),
		Image: pts,
	}, nil
}

func (e *Engine) Solve(points []calibration.PatternPoints, imageSize image.Point) (calibration.Result, error) {
	if len(points) == 0 {
		return calibration.Result{}, fmt.Errorf("no pattern points to calibrate with")
	}

	objectPoints := gocv.NewPoints3fVector()
	defer objectPoints.Close()
	imagePoints := gocv.NewPoints2fVector()
	defer imagePoints.Close()

	for _, p := range points {
		world := make([]gocv.Point3f, len(p.World))
		for i, w := range p.World {
			world[i] = gocv.Point3f{X: float32(w.X), Y: float32(w.Y), Z: float32(w.Z)}
		}
		wv := gocv.NewPoint3fVectorFromPoints(world)
		objectPoints.Append(wv)
		wv.Close()

		img := make([]gocv.Point2f, len(p.Image))
		for i, q := range p.Image {
			img[i] = gocv.Point2f{X: float32(q.X), Y: float32(q.Y)}
		}
		iv := gocv.NewPoint2fVectorFromPoints(img)
		imagePoints.Append(iv)
		iv.Close()
	}

	cameraMatrix := gocv.NewMat()
	defer cameraMatrix.Close()
	distCoeffs := gocv.NewMat()
	defer distCoeffs.Close()
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(objectPoints, imagePoints, imageSize, &cameraMatrix, &distCoeffs, &rvecs, &tvecs, e.CalibFlags)

	camera, err := intrinsicsFromMat(cameraMatrix)
	if err != nil {
		return calibration.Result{}, err
	}
	dist, err := distortionFromMat(distCoeffs)
	if err != nil {
		return calibration.Result{}, err
	}

	extrinsics := make([]calibration.Extrinsics, len(points))
	if rvecs.Total() == len(points) && tvecs.Total() == len(points) {
		for i := range extrinsics {
			extrinsics[i].Rotation = vec3At(rvecs, i)
			extrinsics[i].Translation = vec3At(tvecs, i)
		}
	} else {
		e.log().WithFields(logrus.Fields{
			"rvecs":  rvecs.Total(),
			"tvecs":  tvecs.Total(),
			"images": len(points),
		}).Warn("unexpected extrinsics layout, leaving them empty")
	}

	return calibration.Result{
		ImageSize:  imageSize,
		Camera:     camera,
		Distortion: dist,
		Extrinsics: extrinsics,
		RMS:        rms,
	}, nil
}

func (e *Engine) OptimalIntrinsics(result calibration.Result, size image.Point) (calibration.Intrinsics, error) {
	k := intrinsicsToMat(result.Camera)
	defer k.Close()
	d := distortionToMat(result.Distortion)
	defer d.Close()

	// alpha 0 keeps the full field of view at size.
	optimal, _ := gocv.GetOptimalNewCameraMatrixWithParams(k, d, size, 0, size, false)
	defer optimal.Close()

	return intrinsicsFromMat(optimal)
}

func (e *Engine) RemapTable(camera calibration.Intrinsics, distortion calibration.Distortion, size image.Point) (calibration.RemapTable, error) {
	k := intrinsicsToMat(camera)
	defer k.Close()
	d := distortionToMat(distortion)
	defer d.Close()
	r := gocv.NewMat()
	defer r.Close()

	mapX := gocv.NewMat()
	defer mapX.Close()
	mapY := gocv.NewMat()
	defer mapY.Close()

	if err := gocv.InitUndistortRectifyMap(k, d, r, k, size, int(gocv.MatTypeCV32F), mapX, mapY); err != nil {
		return calibration.RemapTable{}, fmt.Errorf("failed to compute undistort maps: %w", err)
	}

	if mapX.Cols() != size.X || mapX.Rows() != size.Y || mapY.Cols() != size.X || mapY.Rows() != size.Y {
		return calibration.RemapTable{}, fmt.Errorf("undistort maps are %dx%d, want %dx%d", mapX.Cols(), mapX.Rows(), size.X, size.Y)
	}

	xs, err := mapX.DataPtrFloat32()
	if err != nil {
		return calibration.RemapTable{}, fmt.Errorf("failed to read x map: %w", err)
	}
	ys, err := mapY.DataPtrFloat32()
	if err != nil {
		return calibration.RemapTable{}, fmt.Errorf("failed to read y map: %w", err)
	}

	table := calibration.NewRemapTable(size.X, size.Y)
	copy(table.MapX, xs)
	copy(table.MapY, ys)

	return table, nil
}

func (e *Engine) Undistort(frame calibration.Frame, table calibration.RemapTable) (calibration.Frame, error) {
	src, err := MatOf(frame)
	if err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}

	mapX, err := matFromFloat32(table.Height, table.Width, gocv.MatTypeCV32F, table.MapX)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap x map: %w", err)
	}
	defer mapX.Close()
	mapY, err := matFromFloat32(table.Height, table.Width, gocv.MatTypeCV32F, table.MapY)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap y map: %w", err)
	}
	defer mapY.Close()

	dst := gocv.NewMat()
	if err := gocv.Remap(src, &dst, &mapX, &mapY, gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{}); err != nil {
		_ = dst.Close()
		return nil, fmt.Errorf("failed to remap image: %w", err)
	}

	return NewFrame(dst), nil
}

// PointsMat packs points into an N x 1 CV_32FC2 mat, the layout
// findChessboardCorners produces. The caller closes it.
func PointsMat(points []calibration.Point2) (gocv.Mat, error) {
	if len(points) == 0 {
		return gocv.NewMat(), nil
	}
	flat := make([]float32, 0, 2*len(points))
	for _, p := range points {
		flat = append(flat, float32(p.X), float32(p.Y))
	}
	return matFromFloat32(len(points), 1, gocv.MatTypeCV32FC2, flat)
}

// matFromFloat32 copies v into a new mat.
func matFromFloat32(rows, cols int, mt gocv.MatType, v []float32) (gocv.Mat, error) {
	if len(v) == 0 {
		return gocv.Mat{}, fmt.Errorf("no data for %dx%d mat", cols, rows)
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
	// NewMatFromBytes borrows b, so the clone is what outlives this call.
	view, err := gocv.NewMatFromBytes(rows, cols, mt, b)
	if err != nil {
		return gocv.Mat{}, err
	}
	m := view.Clone()
	_ = view.Close()
	runtime.KeepAlive(v)
	return m, nil
}

func intrinsicsToMat(k calibration.Intrinsics) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, k[r][c])
		}
	}
	return m
}

func intrinsicsFromMat(m gocv.Mat) (calibration.Intrinsics, error) {
	var k calibration.Intrinsics
	if m.Rows() != 3 || m.Cols() != 3 || m.Type() != gocv.MatTypeCV64F {
		return k, fmt.Errorf("unexpected camera matrix %dx%d type %v", m.Rows(), m.Cols(), m.Type())
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			k[r][c] = m.GetDoubleAt(r, c)
		}
	}
	return k, nil
}

func distortionToMat(d calibration.Distortion) gocv.Mat {
	m := gocv.NewMatWithSize(1, len(d), gocv.MatTypeCV64F)
	for i, v := range d {
		m.SetDoubleAt(0, i, v)
	}
	return m
}

func distortionFromMat(m gocv.Mat) (calibration.Distortion, error) {
	var d calibration.Distortion
	if m.Total() < len(d) || m.Type() != gocv.MatTypeCV64F {
		return d, fmt.Errorf("unexpected distortion vector %dx%d type %v", m.Rows(), m.Cols(), m.Type())
	}
	for i := range d {
		if m.Rows() == 1 {
			d[i] = m.GetDoubleAt(0, i)
		} else {
			d[i] = m.GetDoubleAt(i, 0)
		}
	}
	return d, nil
}

// vec3At reads the i-th 3-channel vector of an N x 1 (or 1 x N) CV_64FC3 mat.
func vec3At(m gocv.Mat, i int) [3]float64 {
	var v gocv.Vecd
	if m.Rows() == 1 {
		v = m.GetVecdAt(0, i)
	} else {
		v = m.GetVecdAt(i, 0)
	}
	var out [3]float64
	copy(out[:], v)
	return out
}
