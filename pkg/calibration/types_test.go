package calibration

import (
	"errors"
	"fmt"
	"testing"
)

func TestPatternGeometry_WorldPoints(t *testing.T) {
	g := DefaultPatternGeometry()
	pts := g.WorldPoints()

	if len(pts) != 81 {
		t.Fatalf("expected 81 world points, got %d", len(pts))
	}

	tests := []struct {
		name  string
		index int
		want  Point3
	}{
		{name: "origin", index: 0, want: Point3{}},
		{name: "x varies fastest", index: 1, want: Point3{X: 26.2}},
		{name: "end of first row", index: 8, want: Point3{X: 8 * 26.2}},
		{name: "start of second row", index: 9, want: Point3{Y: 26.2}},
		{name: "last corner", index: 80, want: Point3{X: 8 * 26.2, Y: 8 * 26.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pts[tt.index]; got != tt.want {
				t.Errorf("WorldPoints()[%d] = %v, want %v", tt.index, got, tt.want)
			}
		})
	}

	for i, p := range pts {
		if p.Z != 0 {
			t.Fatalf("point %d is not planar: %v", i, p)
		}
	}
}

func TestPatternPoints_Validate(t *testing.T) {
	g := PatternGeometry{Columns: 3, Rows: 2, SquareSize: 1}
	full := make([]Point2, 6)

	tests := []struct {
		name    string
		points  PatternPoints
		wantErr bool
	}{
		{
			name:   "complete",
			points: PatternPoints{World: g.WorldPoints(), Image: full},
		},
		{
			name:    "length mismatch",
			points:  PatternPoints{World: g.WorldPoints(), Image: full[:5]},
			wantErr: true,
		},
		{
			name:    "wrong corner count",
			points:  PatternPoints{World: g.WorldPoints()[:4], Image: full[:4]},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.points.Validate(g)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemapTable_SetAt(t *testing.T) {
	table := NewRemapTable(4, 3)
	if err := table.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	table.Set(2, 1, 1.5, -0.25)
	x, y := table.At(2, 1)
	if x != 1.5 || y != -0.25 {
		t.Errorf("At(2, 1) = (%v, %v), want (1.5, -0.25)", x, y)
	}
	if table.MapX[2*4+1] != 1.5 {
		t.Errorf("table is not row-major")
	}

	broken := RemapTable{Width: 4, Height: 3, MapX: make([]float32, 12), MapY: make([]float32, 11)}
	if err := broken.Validate(); err == nil {
		t.Errorf("expected error for short MapY")
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "no images", err: fmt.Errorf("scan: %w", ErrNoImagesFound), want: true},
		{name: "test image", err: ErrTestImageUnreadable, want: true},
		{name: "pattern", err: &PatternNotDetectedError{Path: "a.png"}, want: false},
		{name: "other", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverable(tt.err); got != tt.want {
				t.Errorf("IsRecoverable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPatternNotDetectedError(t *testing.T) {
	var err error = &PatternNotDetectedError{Path: "board/03.jpg"}
	if !errors.Is(err, ErrPatternNotDetected) {
		t.Fatalf("expected errors.Is to match ErrPatternNotDetected")
	}
	var pnd *PatternNotDetectedError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &pnd) || pnd.Path != "board/03.jpg" {
		t.Fatalf("expected errors.As to recover the path")
	}
}
