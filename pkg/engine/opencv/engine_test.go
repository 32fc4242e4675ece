package opencv

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

const (
	boardSquare = 40
	boardMargin = 40
)

// syntheticBoard draws a 10x10 chessboard, giving 9x9 inner corners at
// boardMargin + k*boardSquare.
func syntheticBoard(t *testing.T) *Frame {
	t.Helper()
	side := 2*boardMargin + 10*boardSquare
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), side, side, gocv.MatTypeCV8UC3)
	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			if (r+c)%2 != 0 {
				continue
			}
			x, y := boardMargin+c*boardSquare, boardMargin+r*boardSquare
			rect := image.Rect(x, y, x+boardSquare-1, y+boardSquare-1)
			if err := gocv.Rectangle(&img, rect, color.RGBA{A: 255}, -1); err != nil {
				t.Fatal(err)
			}
		}
	}
	f := NewFrame(img)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestEngine_DetectPattern(t *testing.T) {
	frame := syntheticBoard(t)
	g := calibration.DefaultPatternGeometry()

	pts, err := New().DetectPattern(frame, g, calibration.DefaultCriteria())
	if err != nil {
		t.Fatalf("DetectPattern() error = %v", err)
	}
	if len(pts.Image) != 81 || len(pts.World) != 81 {
		t.Fatalf("DetectPattern() found %d image / %d world points, want 81", len(pts.Image), len(pts.World))
	}
	if err := pts.Validate(g); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	for i, p := range pts.Image {
		// Every corner sits on the lattice, whichever end detection starts from.
		dx := math.Mod(p.X-boardMargin+boardSquare/2, boardSquare) - boardSquare/2
		dy := math.Mod(p.Y-boardMargin+boardSquare/2, boardSquare) - boardSquare/2
		if math.Abs(dx) > 1 || math.Abs(dy) > 1 {
			t.Errorf("corner %d at (%.2f, %.2f) is off the board lattice", i, p.X, p.Y)
		}
	}
}

func TestEngine_DetectPattern_NotFound(t *testing.T) {
	blank := NewFrame(gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 200, 200, gocv.MatTypeCV8UC3))
	defer blank.Close()

	_, err := New().DetectPattern(blank, calibration.DefaultPatternGeometry(), calibration.DefaultCriteria())
	if !errors.Is(err, calibration.ErrPatternNotDetected) {
		t.Errorf("DetectPattern() error = %v, want ErrPatternNotDetected", err)
	}
}

func TestEngine_RemapTable_Identity(t *testing.T) {
	size := image.Pt(8, 6)
	k := calibration.Intrinsics{{100, 0, 4}, {0, 100, 3}, {0, 0, 1}}

	table, err := New().RemapTable(k, calibration.Distortion{}, size)
	if err != nil {
		t.Fatalf("RemapTable() error = %v", err)
	}
	if table.Size() != size {
		t.Fatalf("table size = %v, want %v", table.Size(), size)
	}
	for r := 0; r < size.Y; r++ {
		for c := 0; c < size.X; c++ {
			x, y := table.At(r, c)
			if math.Abs(float64(x)-float64(c)) > 1e-3 || math.Abs(float64(y)-float64(r)) > 1e-3 {
				t.Errorf("At(%d, %d) = (%v, %v), want identity", r, c, x, y)
			}
		}
	}
}

func TestEngine_Undistort(t *testing.T) {
	src := NewFrame(gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 6, 8, gocv.MatTypeCV8UC3))
	defer src.Close()
	table := calibration.NewRemapTable(8, 6)
	for r := 0; r < 6; r++ {
		for c := 0; c < 8; c++ {
			table.Set(r, c, float32(c), float32(r))
		}
	}

	out, err := New().Undistort(src, table)
	if err != nil {
		t.Fatalf("Undistort() error = %v", err)
	}
	defer out.Close()
	if out.Size() != image.Pt(8, 6) {
		t.Errorf("Undistort() size = %v, want 8x6", out.Size())
	}

	if _, err := New().Undistort(src, calibration.RemapTable{Width: 8, Height: 6}); err == nil {
		t.Error("expected an error for an empty table")
	}
}

func TestIntrinsicsMatRoundTrip(t *testing.T) {
	want := calibration.Intrinsics{{1000.5, 0, 960.25}, {0, 1001.75, 540.125}, {0, 0, 1}}
	m := intrinsicsToMat(want)
	defer m.Close()

	got, err := intrinsicsFromMat(m)
	if err != nil {
		t.Fatalf("intrinsicsFromMat() error = %v", err)
	}
	if got != want {
		t.Errorf("round trip = %v, want %v", got, want)
	}

	bad := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer bad.Close()
	if _, err := intrinsicsFromMat(bad); err == nil {
		t.Error("expected an error for a 2x3 matrix")
	}
}

func TestDistortionFromMat(t *testing.T) {
	want := calibration.Distortion{-0.3, 0.12, 0.001, -0.002, 0.05}

	row := distortionToMat(want)
	defer row.Close()
	col := gocv.NewMatWithSize(len(want), 1, gocv.MatTypeCV64F)
	defer col.Close()
	for i, v := range want {
		col.SetDoubleAt(i, 0, v)
	}

	for name, m := range map[string]gocv.Mat{"row": row, "column": col} {
		got, err := distortionFromMat(m)
		if err != nil {
			t.Fatalf("%s: distortionFromMat() error = %v", name, err)
		}
		if got != want {
			t.Errorf("%s: distortionFromMat() = %v, want %v", name, got, want)
		}
	}

	short := gocv.NewMatWithSize(1, 4, gocv.MatTypeCV64F)
	defer short.Close()
	if _, err := distortionFromMat(short); err == nil {
		t.Error("expected an error for four coefficients")
	}
}

func TestVec3At(t *testing.T) {
	m := gocv.NewMatWithSize(2, 1, gocv.MatTypeCV64FC3)
	defer m.Close()
	for i := 0; i < 2; i++ {
		for ch := 0; ch < 3; ch++ {
			m.SetDoubleAt(i, ch, float64(10*i+ch))
		}
	}

	if got := vec3At(m, 1); got != [3]float64{10, 11, 12} {
		t.Errorf("vec3At(m, 1) = %v, want [10 11 12]", got)
	}
}

func TestPointsMat(t *testing.T) {
	in := []calibration.Point2{{X: 1.5, Y: 2.25}, {X: 300, Y: 0.125}}
	m, err := PointsMat(in)
	if err != nil {
		t.Fatalf("PointsMat() error = %v", err)
	}
	defer m.Close()

	if m.Rows() != 2 || m.Cols() != 1 || m.Type() != gocv.MatTypeCV32FC2 {
		t.Fatalf("PointsMat() is %dx%d type %v", m.Rows(), m.Cols(), m.Type())
	}
	vec := gocv.NewPoint2fVectorFromMat(m)
	defer vec.Close()
	for i, p := range vec.ToPoints() {
		if float64(p.X) != in[i].X || float64(p.Y) != in[i].Y {
			t.Errorf("point %d = %v, want %v", i, p, in[i])
		}
	}
}
