// Package calibrationtest provides in-memory implementations of the
// calibration capabilities for tests.
package calibrationtest

import (
	"errors"
	"image"
	"os"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

// Frame is a sized placeholder image.
type Frame struct {
	Path   string
	W, H   int
	Closed bool
}

func (f *Frame) Size() image.Point { return image.Pt(f.W, f.H) }

func (f *Frame) Close() error {
	if f.Closed {
		return errors.New("frame closed twice")
	}
	f.Closed = true
	return nil
}

// Decoder decodes any existing file into a Frame of a fixed size. Paths in
// Unreadable fail to decode; Sizes overrides the size per path.
type Decoder struct {
	W, H       int
	Sizes      map[string]image.Point
	Unreadable map[string]bool

	Frames []*Frame
}

func (d *Decoder) Decode(path string) (calibration.Frame, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if d.Unreadable[path] {
		return nil, errors.New("cannot decode image")
	}
	f := &Frame{Path: path, W: d.W, H: d.H}
	if s, ok := d.Sizes[path]; ok {
		f.W, f.H = s.X, s.Y
	}
	d.Frames = append(d.Frames, f)
	return f, nil
}

// OpenFrames counts frames that have not been closed.
func (d *Decoder) OpenFrames() int {
	n := 0
	for _, f := range d.Frames {
		if !f.Closed {
			n++
		}
	}
	return n
}

// Engine fakes the computer-vision backend. Detection "finds" a perfect grid
// unless the frame path is listed in NoPattern. The remap table maps every
// pixel to itself shifted by Shift, which makes border pixels negative when
// Shift is negative.
type Engine struct {
	NoPattern map[string]bool
	Shift     float32
	Camera    calibration.Intrinsics
	Dist      calibration.Distortion

	Detected   []string
	SolvedWith []calibration.PatternPoints
	SolveSize  image.Point
	RemapWith  calibration.Intrinsics
}

func (e *Engine) DetectPattern(frame calibration.Frame, g calibration.PatternGeometry, _ calibration.Criteria) (calibration.PatternPoints, error) {
	f := frame.(*Frame)
	if e.NoPattern[f.Path] {
		return calibration.PatternPoints{}, calibration.ErrPatternNotDetected
	}
	e.Detected = append(e.Detected, f.Path)

	world := g.WorldPoints()
	img := make([]calibration.Point2, len(world))
	for i, w := range world {
		img[i] = calibration.Point2{X: 10 + w.X, Y: 10 + w.Y}
	}
	return calibration.PatternPoints{Path: f.Path, World: world, Image: img}, nil
}

func (e *Engine) Solve(points []calibration.PatternPoints, size image.Point) (calibration.Result, error) {
	if len(points) == 0 {
		return calibration.Result{}, errors.New("no points")
	}
	e.SolvedWith = points
	e.SolveSize = size
	ext := make([]calibration.Extrinsics, len(points))
	for i := range ext {
		ext[i].Translation = [3]float64{0, 0, float64(i + 1)}
	}
	return calibration.Result{
		ImageSize:  size,
		Camera:     e.Camera,
		Distortion: e.Dist,
		Extrinsics: ext,
		RMS:        0.25,
	}, nil
}

func (e *Engine) OptimalIntrinsics(result calibration.Result, size image.Point) (calibration.Intrinsics, error) {
	k := result.Camera
	k[0][2] = float64(size.X) / 2
	k[1][2] = float64(size.Y) / 2
	return k, nil
}

func (e *Engine) RemapTable(camera calibration.Intrinsics, _ calibration.Distortion, size image.Point) (calibration.RemapTable, error) {
	e.RemapWith = camera
	t := calibration.NewRemapTable(size.X, size.Y)
	for r := 0; r < size.Y; r++ {
		for c := 0; c < size.X; c++ {
			t.Set(r, c, float32(c)+e.Shift, float32(r)+e.Shift)
		}
	}
	return t, nil
}

func (e *Engine) Undistort(frame calibration.Frame, table calibration.RemapTable) (calibration.Frame, error) {
	f := frame.(*Frame)
	return &Frame{Path: f.Path + "#undistorted", W: table.Width, H: table.Height}, nil
}
