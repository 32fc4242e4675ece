package config

import (
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

// Config holds the calibration settings that are not per-run inputs.
type Config interface {
	PatternColumns() int
	PatternRows() int
	SquareSize() float64
	SubPixWindow() int
	MaxIterations() int
	Epsilon() float64
	Extensions() []string

	SetPatternColumns(int)
	SetPatternRows(int)
	SetSquareSize(float64)

	// Geometry and Criteria assemble the values above for the engine.
	Geometry() calibration.PatternGeometry
	Criteria() calibration.Criteria

	// Validate checks that every value is usable.
	Validate() error
	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
