// Package calibration defines the types used by the lens calibration
// workflow. It contains:
//
//   - PatternGeometry / Criteria: how the chessboard is described and how
//     corners are refined
//   - PatternPoints: the world/image correspondences found in one image
//   - Result: the solved intrinsic matrix, distortion and extrinsics
//   - RemapTable: the dense per-pixel undistortion lookup
//   - Engine / Decoder / Frame: the capabilities a computer-vision backend
//     has to provide
//
// These types are shared across the pipeline, the OpenCV engine, the preview
// and the config serializer so that none of them depend on each other.
package calibration
