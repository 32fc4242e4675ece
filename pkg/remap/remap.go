package remap

import (
	"fmt"
	"image"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

// Build computes the optimal camera matrix for size and the dense remap
// table derived from it. It has no side effects beyond calling engine.
func Build(engine calibration.Engine, result calibration.Result, size image.Point) (calibration.Intrinsics, calibration.RemapTable, error) {
	if size.X <= 0 || size.Y <= 0 {
		return calibration.Intrinsics{}, calibration.RemapTable{}, fmt.Errorf("invalid target size %dx%d", size.X, size.Y)
	}

	optimal, err := engine.OptimalIntrinsics(result, size)
	if err != nil {
		return calibration.Intrinsics{}, calibration.RemapTable{}, fmt.Errorf("failed to compute optimal camera matrix: %w", err)
	}
	table, err := engine.RemapTable(optimal, result.Distortion, size)
	if err != nil {
		return calibration.Intrinsics{}, calibration.RemapTable{}, fmt.Errorf("failed to compute remap table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return calibration.Intrinsics{}, calibration.RemapTable{}, err
	}
	if table.Size() != size {
		return calibration.Intrinsics{}, calibration.RemapTable{}, fmt.Errorf("remap table is %dx%d, want %dx%d", table.Width, table.Height, size.X, size.Y)
	}

	return optimal, table, nil
}
