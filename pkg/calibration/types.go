package calibration

import (
	"fmt"
	"image"
)

const (
	// DefaultPatternColumns and DefaultPatternRows count the inner corners of
	// a 10x10 square chessboard.
	DefaultPatternColumns = 9
	DefaultPatternRows    = 9
	// DefaultSquareSize is the physical length of one square in millimetres.
	DefaultSquareSize = 26.2

	DefaultSubPixWindow  = 11
	DefaultMaxIterations = 30
	DefaultEpsilon       = 0.001
)

// Point2 is a pixel coordinate.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3 is a world coordinate on the pattern plane.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PatternGeometry describes a planar chessboard by its inner corner grid.
type PatternGeometry struct {
	Columns    int
	Rows       int
	SquareSize float64
}

// DefaultPatternGeometry returns the 9x9, 26.2mm board.
func DefaultPatternGeometry() PatternGeometry {
	return PatternGeometry{
		Columns:    DefaultPatternColumns,
		Rows:       DefaultPatternRows,
		SquareSize: DefaultSquareSize,
	}
}

// PatternSize is the grid size in the (columns, rows) form OpenCV expects.
func (g PatternGeometry) PatternSize() image.Point {
	return image.Pt(g.Columns, g.Rows)
}

// Count is the number of inner corners on the board.
func (g PatternGeometry) Count() int {
	return g.Columns * g.Rows
}

// WorldPoints returns the corner positions in pattern space, row by row with
// X varying fastest: (0,0,0), (s,0,0), ..., (s*(c-1), s*(r-1), 0).
func (g PatternGeometry) WorldPoints() []Point3 {
	pts := make([]Point3, 0, g.Count())
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Columns; c++ {
			pts = append(pts, Point3{
				X: float64(c) * g.SquareSize,
				Y: float64(r) * g.SquareSize,
			})
		}
	}
	return pts
}

// Criteria controls subpixel corner refinement. Refinement stops after
// MaxIterations or once a step moves a corner by less than Epsilon.
type Criteria struct {
	MaxIterations int
	Epsilon       float64
	// WindowSize is the half side length of the search window.
	WindowSize int
}

// DefaultCriteria returns 30 iterations / 0.001 epsilon with an 11px window.
func DefaultCriteria() Criteria {
	return Criteria{
		MaxIterations: DefaultMaxIterations,
		Epsilon:       DefaultEpsilon,
		WindowSize:    DefaultSubPixWindow,
	}
}

// PatternPoints holds the correspondences detected in one image. World[i]
// and Image[i] describe the same chessboard intersection.
type PatternPoints struct {
	Path  string
	World []Point3
	Image []Point2
}

// Validate checks that the correspondences are complete for g.
func (p PatternPoints) Validate(g PatternGeometry) error {
	if len(p.World) != len(p.Image) {
		return fmt.Errorf("%s: %d world points but %d image points", p.Path, len(p.World), len(p.Image))
	}
	if len(p.Image) != g.Count() {
		return fmt.Errorf("%s: expected %d corners, got %d", p.Path, g.Count(), len(p.Image))
	}
	return nil
}

// Intrinsics is a 3x3 camera matrix
//
//	fx  0 cx
//	 0 fy cy
//	 0  0  1
type Intrinsics [3][3]float64

func (k Intrinsics) Fx() float64 { return k[0][0] }
func (k Intrinsics) Fy() float64 { return k[1][1] }
func (k Intrinsics) Cx() float64 { return k[0][2] }
func (k Intrinsics) Cy() float64 { return k[1][2] }

// Distortion holds the coefficients (k1, k2, p1, p2, k3).
type Distortion [5]float64

func (d Distortion) K1() float64 { return d[0] }
func (d Distortion) K2() float64 { return d[1] }
func (d Distortion) P1() float64 { return d[2] }
func (d Distortion) P2() float64 { return d[3] }
func (d Distortion) K3() float64 { return d[4] }

// Extrinsics is the pose of the pattern in one calibration image, as a
// Rodrigues rotation vector and a translation vector.
type Extrinsics struct {
	Rotation    [3]float64 `json:"rotation"`
	Translation [3]float64 `json:"translation"`
}

// Result is the output of a calibration solve.
type Result struct {
	ImageSize  image.Point
	Camera     Intrinsics
	Distortion Distortion
	// Extrinsics has one entry per calibration image, in input order.
	Extrinsics []Extrinsics
	// RMS is the root mean square reprojection error in pixels.
	RMS float64
}

// RemapTable stores two row-major Height x Width maps. MapX[i] and MapY[i]
// are the source column and row sampled for output pixel i.
type RemapTable struct {
	Width  int
	Height int
	MapX   []float32
	MapY   []float32
}

// NewRemapTable allocates a zeroed table.
func NewRemapTable(width, height int) RemapTable {
	return RemapTable{
		Width:  width,
		Height: height,
		MapX:   make([]float32, width*height),
		MapY:   make([]float32, width*height),
	}
}

// Size returns (Width, Height).
func (t RemapTable) Size() image.Point {
	return image.Pt(t.Width, t.Height)
}

// At returns the source coordinate for output pixel (row, col).
func (t RemapTable) At(row, col int) (x, y float32) {
	i := row*t.Width + col
	return t.MapX[i], t.MapY[i]
}

// Set stores the source coordinate for output pixel (row, col).
func (t RemapTable) Set(row, col int, x, y float32) {
	i := row*t.Width + col
	t.MapX[i] = x
	t.MapY[i] = y
}

// Validate checks that both maps cover Width x Height.
func (t RemapTable) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("invalid remap table size %dx%d", t.Width, t.Height)
	}
	n := t.Width * t.Height
	if len(t.MapX) != n || len(t.MapY) != n {
		return fmt.Errorf("remap table %dx%d has %d/%d entries, want %d", t.Width, t.Height, len(t.MapX), len(t.MapY), n)
	}
	return nil
}
