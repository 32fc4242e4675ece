// Package report records the outcome of a calibration run as JSON.
package report

import (
	"image"
	"time"

	"github.com/google/renameio/v2"
	jsoniter "github.com/json-iterator/go"
	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Report struct {
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`

	InputDir   string   `json:"inputDir"`
	TestImage  string   `json:"testImage"`
	OutputFile string   `json:"outputFile"`
	Images     []string `json:"images"`

	Pattern    Pattern `json:"pattern"`
	ImageSize  Size    `json:"imageSize"`
	TargetSize Size    `json:"targetSize"`

	CameraMatrix  calibration.Intrinsics `json:"cameraMatrix"`
	Distortion    Distortion             `json:"distortion"`
	OptimalMatrix calibration.Intrinsics `json:"optimalCameraMatrix"`
	RMS           float64                `json:"rms"`
	Views         []View                 `json:"views"`

	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

type Pattern struct {
	Columns    int     `json:"columns"`
	Rows       int     `json:"rows"`
	SquareSize float64 `json:"squareSize"`
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Distortion names the coefficients in OpenCV order.
type Distortion struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
	K3 float64 `json:"k3"`
}

// View is the pose of the pattern in one calibration image.
type View struct {
	Image       string     `json:"image"`
	Rotation    [3]float64 `json:"rvec"`
	Translation [3]float64 `json:"tvec"`
}

// Input is everything New needs besides the calibration result.
type Input struct {
	RunID      string
	InputDir   string
	TestImage  string
	OutputFile string
	Images     []string
	Geometry   calibration.PatternGeometry
	Result     calibration.Result
	Optimal    calibration.Intrinsics
	TargetSize image.Point
	Elapsed    time.Duration
}

func New(in Input) *Report {
	r := &Report{
		RunID:      in.RunID,
		CreatedAt:  time.Now().UTC(),
		InputDir:   in.InputDir,
		TestImage:  in.TestImage,
		OutputFile: in.OutputFile,
		Images:     in.Images,
		Pattern: Pattern{
			Columns:    in.Geometry.Columns,
			Rows:       in.Geometry.Rows,
			SquareSize: in.Geometry.SquareSize,
		},
		ImageSize:  sizeOf(in.Result.ImageSize),
		TargetSize: sizeOf(in.TargetSize),

		CameraMatrix:  in.Result.Camera,
		OptimalMatrix: in.Optimal,
		RMS:           in.Result.RMS,

		ElapsedSeconds: in.Elapsed.Seconds(),
	}

	d := in.Result.Distortion
	r.Distortion = Distortion{K1: d[0], K2: d[1], P1: d[2], P2: d[3], K3: d[4]}

	r.Views = make([]View, len(in.Result.Extrinsics))
	for i, e := range in.Result.Extrinsics {
		v := View{Rotation: e.Rotation, Translation: e.Translation}
		if i < len(in.Images) {
			v.Image = in.Images[i]
		}
		r.Views[i] = v
	}

	return r
}

func sizeOf(p image.Point) Size {
	return Size{Width: p.X, Height: p.Y}
}

// WriteFile writes r to path as indented JSON.
func WriteFile(path string, r *Report) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal report")
	}
	b = append(b, '\n')

	if err := renameio.WriteFile(path, b, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write report %s", path)
	}
	return nil
}
