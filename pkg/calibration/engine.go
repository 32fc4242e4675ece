package calibration

import "image"

// Frame is a decoded raster image owned by the backend that decoded it.
type Frame interface {
	// Size returns (width, height) in pixels.
	Size() image.Point
	Close() error
}

// Decoder loads image files into frames.
type Decoder interface {
	Decode(path string) (Frame, error)
}

// Engine is the computer-vision backend. Implementations only ever receive
// frames produced by their own Decoder.
type Engine interface {
	// DetectPattern finds the chessboard corners in frame and refines them to
	// subpixel precision. It returns ErrPatternNotDetected when the board is
	// not found.
	DetectPattern(frame Frame, geometry PatternGeometry, criteria Criteria) (PatternPoints, error)
	// Solve runs the camera calibration over all correspondences.
	Solve(points []PatternPoints, imageSize image.Point) (Result, error)
	// OptimalIntrinsics computes a camera matrix for size that keeps the full
	// field of view after undistortion.
	OptimalIntrinsics(result Result, size image.Point) (Intrinsics, error)
	// RemapTable computes the undistortion maps for size.
	RemapTable(camera Intrinsics, distortion Distortion, size image.Point) (RemapTable, error)
	// Undistort applies table to frame. The caller closes the returned frame.
	Undistort(frame Frame, table RemapTable) (Frame, error)
}
