package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/lenscal/pkg/calibration"
	"github.com/charlie0129/lenscal/pkg/config"
	"github.com/charlie0129/lenscal/pkg/engine/opencv"
	"github.com/charlie0129/lenscal/pkg/gdcconfig"
	"github.com/charlie0129/lenscal/pkg/pipeline"
	"github.com/charlie0129/lenscal/pkg/preview"
	"github.com/charlie0129/lenscal/pkg/preview/highgui"
	"github.com/charlie0129/lenscal/pkg/report"
)

type calibrateOptions struct {
	inputDir         string
	testImage        string
	outputFile       string
	preview          bool
	comparisonOutput string
	reportPath       string
	precision        int

	patternColumns int
	patternRows    int
	squareSize     float64
}

func newCalibrateOptions() *calibrateOptions {
	return &calibrateOptions{
		inputDir:   "./chessboard",
		testImage:  "./chessboard/vlcsnap-2024-05-06-09h53m19s733.jpg",
		outputFile: "custom_config.txt",
		// Windows need a display server.
		preview:        os.Getenv("DISPLAY") != "",
		precision:      gdcconfig.ShortestPrecision,
		patternColumns: calibration.DefaultPatternColumns,
		patternRows:    calibration.DefaultPatternRows,
		squareSize:     calibration.DefaultSquareSize,
	}
}

func (o *calibrateOptions) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.inputDir, "input_images_dir", "i", o.inputDir, "directory of chessboard images")
	f.StringVarP(&o.testImage, "test_image", "t", o.testImage, "image to undistort, defines the size of the remap table")
	f.StringVarP(&o.outputFile, "output_file", "o", o.outputFile, "where to write the GDC custom config")
	f.BoolVar(&o.preview, "preview", o.preview, "show detected corners and the undistorted test image (default: on when $DISPLAY is set)")
	f.StringVar(&o.comparisonOutput, "comparison-output", "", "write the original and undistorted test image side by side to this file")
	f.StringVar(&o.reportPath, "report", "", "write a JSON calibration report to this file")
	f.IntVar(&o.precision, "precision", o.precision, "decimals per remap value, -1 for the shortest exact form")
	f.IntVar(&o.patternColumns, "pattern-columns", o.patternColumns, "inner corners per chessboard row (overrides config)")
	f.IntVar(&o.patternRows, "pattern-rows", o.patternRows, "inner corners per chessboard column (overrides config)")
	f.Float64Var(&o.squareSize, "square-size", o.squareSize, "chessboard square size in millimetres (overrides config)")
}

func (o *calibrateOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("pattern-columns") {
		conf.SetPatternColumns(o.patternColumns)
	}
	if flags.Changed("pattern-rows") {
		conf.SetPatternRows(o.patternRows)
	}
	if flags.Changed("square-size") {
		conf.SetSquareSize(o.squareSize)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (o *calibrateOptions) previewer(log *logrus.Entry) preview.Previewer {
	var m preview.Multi
	if o.preview {
		m = append(m, highgui.NewWindow())
	} else if os.Getenv("DISPLAY") == "" {
		log.Info("No graphical environment detected, preview disabled")
	}
	if o.comparisonOutput != "" {
		m = append(m, &highgui.ComparisonWriter{Path: o.comparisonOutput})
	}

	if len(m) == 0 {
		return preview.Disabled{}
	}
	return m
}

func runCalibration(cmd *cobra.Command, o *calibrateOptions) error {
	if o.precision < gdcconfig.ShortestPrecision {
		return fmt.Errorf("invalid precision %d", o.precision)
	}

	conf, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	log := logrus.WithField("run", runID)
	log.WithFields(conf.LogrusFields()).Debug("config loaded")

	engine := opencv.New()
	engine.Log = log

	p := &pipeline.Pipeline{
		Engine:     engine,
		Decoder:    opencv.Decoder{},
		Previewer:  o.previewer(log),
		Geometry:   conf.Geometry(),
		Criteria:   conf.Criteria(),
		Extensions: conf.Extensions(),
		Log:        log,
	}

	out, err := p.Run(pipeline.Request{
		InputDir:   o.inputDir,
		TestImage:  o.testImage,
		OutputFile: o.outputFile,
		Format:     gdcconfig.Options{Precision: o.precision},
	})
	if err != nil {
		return err
	}

	if o.reportPath != "" {
		r := report.New(report.Input{
			RunID:      runID,
			InputDir:   o.inputDir,
			TestImage:  o.testImage,
			OutputFile: out.OutputFile,
			Images:     out.Images,
			Geometry:   conf.Geometry(),
			Result:     out.Result,
			Optimal:    out.Optimal,
			TargetSize: out.TargetSize,
			Elapsed:    out.Elapsed,
		})
		if err := report.WriteFile(o.reportPath, r); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.WithField("path", o.reportPath).Debug("report written")
	}

	printSummary(cmd, out)

	return nil
}
