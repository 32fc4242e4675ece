// Package preview shows intermediate calibration results. Nothing a
// Previewer does may affect the calibration output; errors are reported to
// the caller only so that they can be logged.
package preview

import (
	"errors"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

// Previewer receives diagnostics from the calibration pipeline.
type Previewer interface {
	// ShowCorners is called once per calibration image after detection.
	ShowCorners(frame calibration.Frame, points calibration.PatternPoints, geometry calibration.PatternGeometry) error
	// ShowComparison is called once with the test image before and after
	// undistortion.
	ShowComparison(original, undistorted calibration.Frame) error
	// Close releases windows and other resources.
	Close() error
}

// Disabled is a Previewer that does nothing.
type Disabled struct{}

func (Disabled) ShowCorners(calibration.Frame, calibration.PatternPoints, calibration.PatternGeometry) error {
	return nil
}

func (Disabled) ShowComparison(calibration.Frame, calibration.Frame) error { return nil }

func (Disabled) Close() error { return nil }

// Multi fans out to several previewers, collecting every error.
type Multi []Previewer

func (m Multi) ShowCorners(frame calibration.Frame, points calibration.PatternPoints, geometry calibration.PatternGeometry) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.ShowCorners(frame, points, geometry))
	}
	return errors.Join(errs...)
}

func (m Multi) ShowComparison(original, undistorted calibration.Frame) error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.ShowComparison(original, undistorted))
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
