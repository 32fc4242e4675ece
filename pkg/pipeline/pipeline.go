// Package pipeline runs a complete lens calibration: discover images, detect
// the chessboard in each, solve the camera model, build the remap table for
// the test image and write it as a GDC custom config.
package pipeline

import (
	"fmt"
	"image"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/lenscal/pkg/calibration"
	"github.com/charlie0129/lenscal/pkg/gdcconfig"
	"github.com/charlie0129/lenscal/pkg/imageset"
	"github.com/charlie0129/lenscal/pkg/preview"
	"github.com/charlie0129/lenscal/pkg/remap"
)

// Pipeline wires the calibration capabilities together. Engine and Decoder
// are required; a nil Previewer disables previews.
type Pipeline struct {
	Engine    calibration.Engine
	Decoder   calibration.Decoder
	Previewer preview.Previewer

	Geometry   calibration.PatternGeometry
	Criteria   calibration.Criteria
	Extensions []string

	Log *logrus.Entry
}

// Request holds the per-run inputs.
type Request struct {
	InputDir   string
	TestImage  string
	OutputFile string
	Format     gdcconfig.Options
}

// Outcome describes a successful run.
type Outcome struct {
	Images  []string
	Result  calibration.Result
	Optimal calibration.Intrinsics
	// TargetSize is the test image size, which is also the remap table size.
	TargetSize image.Point
	OutputFile string
	Elapsed    time.Duration
}

func (p *Pipeline) log() *logrus.Entry {
	if p.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return p.Log
}

func (p *Pipeline) previewer() preview.Previewer {
	if p.Previewer == nil {
		return preview.Disabled{}
	}
	return p.Previewer
}

// Run performs one calibration. The output file is written only when every
// step succeeds. Errors matching calibration.ErrNoImagesFound or
// calibration.ErrTestImageUnreadable are returned before any image is
// processed.
func (p *Pipeline) Run(req Request) (*Outcome, error) {
	start := time.Now()
	log := p.log()
	pv := p.previewer()
	defer func() {
		if err := pv.Close(); err != nil {
			log.Warnf("failed to close preview: %v", err)
		}
	}()

	images, err := imageset.Discover(req.InputDir, p.Extensions)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"dir":    req.InputDir,
		"images": len(images),
	}).Debug("discovered calibration images")

	testFrame, err := imageset.LoadTestImage(p.Decoder, req.TestImage)
	if err != nil {
		return nil, err
	}
	defer closeFrame(log, testFrame)

	log.WithFields(logrus.Fields{
		"images":    len(images),
		"testImage": req.TestImage,
	}).Info("starting calibration")

	points, imageSize, err := p.detectAll(images)
	if err != nil {
		return nil, err
	}

	result, err := p.Engine.Solve(points, imageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to calibrate camera: %w", err)
	}
	log.WithFields(logrus.Fields{
		"rms":        result.RMS,
		"distortion": result.Distortion,
	}).Info("camera calibrated")

	target := testFrame.Size()
	optimal, table, err := remap.Build(p.Engine, result, target)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"fx": optimal.Fx(),
		"fy": optimal.Fy(),
		"cx": optimal.Cx(),
		"cy": optimal.Cy(),
	}).Debug("optimal camera matrix computed")

	p.showComparison(testFrame, table)

	if err := gdcconfig.WriteFile(req.OutputFile, table, req.Format); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"path":   req.OutputFile,
		"width":  table.Width,
		"height": table.Height,
	}).Info("remap table written")

	return &Outcome{
		Images:     images,
		Result:     result,
		Optimal:    optimal,
		TargetSize: target,
		OutputFile: req.OutputFile,
		Elapsed:    time.Since(start),
	}, nil
}

// detectAll stops at the first image without a detectable pattern.
func (p *Pipeline) detectAll(images []string) ([]calibration.PatternPoints, image.Point, error) {
	var (
		points    = make([]calibration.PatternPoints, 0, len(images))
		imageSize image.Point
	)

	for i, path := range images {
		pts, size, err := p.detectOne(path)
		if err != nil {
			return nil, image.Point{}, err
		}
		if i == 0 {
			imageSize = size
		} else if size != imageSize {
			return nil, image.Point{}, fmt.Errorf("%w: %s is %dx%d, expected %dx%d",
				calibration.ErrImageSizeMismatch, path, size.X, size.Y, imageSize.X, imageSize.Y)
		}
		points = append(points, pts)
	}

	return points, imageSize, nil
}

func (p *Pipeline) detectOne(path string) (calibration.PatternPoints, image.Point, error) {
	log := p.log().WithField("path", path)

	frame, err := imageset.LoadCalibrationImage(p.Decoder, path)
	if err != nil {
		return calibration.PatternPoints{}, image.Point{}, err
	}
	defer closeFrame(log, frame)

	pts, err := p.Engine.DetectPattern(frame, p.Geometry, p.Criteria)
	if err != nil {
		if pkgerrors.Is(err, calibration.ErrPatternNotDetected) {
			log.Error("no chessboard corners found")
			return calibration.PatternPoints{}, image.Point{}, &calibration.PatternNotDetectedError{Path: path}
		}
		return calibration.PatternPoints{}, image.Point{}, pkgerrors.Wrapf(err, "failed to detect pattern in %s", path)
	}
	pts.Path = path
	if err := pts.Validate(p.Geometry); err != nil {
		return calibration.PatternPoints{}, image.Point{}, err
	}
	log.WithField("points", len(pts.Image)).Info("chessboard corners found")

	if err := p.previewer().ShowCorners(frame, pts, p.Geometry); err != nil {
		log.Warnf("failed to preview corners: %v", err)
	}

	return pts, frame.Size(), nil
}

// showComparison is best effort; nothing it does affects the output.
func (p *Pipeline) showComparison(testFrame calibration.Frame, table calibration.RemapTable) {
	if _, disabled := p.previewer().(preview.Disabled); disabled {
		return
	}

	undistorted, err := p.Engine.Undistort(testFrame, table)
	if err != nil {
		p.log().Warnf("failed to undistort test image for preview: %v", err)
		return
	}
	defer closeFrame(p.log(), undistorted)

	if err := p.previewer().ShowComparison(testFrame, undistorted); err != nil {
		p.log().Warnf("failed to preview comparison: %v", err)
	}
}

func closeFrame(log *logrus.Entry, f calibration.Frame) {
	if err := f.Close(); err != nil {
		log.Warnf("failed to release image: %v", err)
	}
}
