package calibration

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImagesFound is returned when the input directory holds no image
	// with an accepted extension.
	ErrNoImagesFound = errors.New("no images found")

	// ErrTestImageUnreadable is returned when the test image is missing or
	// cannot be decoded.
	ErrTestImageUnreadable = errors.New("test image not found or could not be read")

	// ErrPatternNotDetected is returned when a calibration image has no
	// recognizable chessboard.
	ErrPatternNotDetected = errors.New("chessboard pattern not detected")

	// ErrImageSizeMismatch is returned when calibration images differ in size.
	ErrImageSizeMismatch = errors.New("calibration images differ in size")
)

// PatternNotDetectedError identifies the calibration image that failed
// detection. It matches ErrPatternNotDetected with errors.Is.
type PatternNotDetectedError struct {
	Path string
}

func (e *PatternNotDetectedError) Error() string {
	return fmt.Sprintf("no chessboard corners found in %s: check the image quality and ensure the chessboard is fully visible and clear", e.Path)
}

func (e *PatternNotDetectedError) Unwrap() error {
	return ErrPatternNotDetected
}

// IsRecoverable reports whether err ends the run gracefully rather than
// aborting it. Only missing inputs are recoverable.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNoImagesFound) || errors.Is(err, ErrTestImageUnreadable)
}
