package config

import (
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/lenscal/pkg/calibration"
	"github.com/charlie0129/lenscal/pkg/imageset"
	"github.com/charlie0129/lenscal/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		PatternColumns: ptr.To(calibration.DefaultPatternColumns),
		PatternRows:    ptr.To(calibration.DefaultPatternRows),
		SquareSize:     ptr.To(calibration.DefaultSquareSize),
		SubPixWindow:   ptr.To(calibration.DefaultSubPixWindow),
		MaxIterations:  ptr.To(calibration.DefaultMaxIterations),
		Epsilon:        ptr.To(calibration.DefaultEpsilon),
		Extensions:     imageset.DefaultExtensions,
	}

	validate = validator.New()

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	filepath string
}

// NewFile loads the config at configPath. An empty path, a missing file or
// an empty file all yield the defaults.
func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

// DefaultRawFileConfig returns a config with every field set to its default.
func DefaultRawFileConfig() *RawFileConfig {
	d := defaultFileConfig
	return &RawFileConfig{
		PatternColumns: ptr.To(*d.PatternColumns),
		PatternRows:    ptr.To(*d.PatternRows),
		SquareSize:     ptr.To(*d.SquareSize),
		SubPixWindow:   ptr.To(*d.SubPixWindow),
		MaxIterations:  ptr.To(*d.MaxIterations),
		Epsilon:        ptr.To(*d.Epsilon),
		Extensions:     append([]string(nil), d.Extensions...),
	}
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	return &File{
		c:        c,
		filepath: configPath,
	}
}

type RawFileConfig struct {
	PatternColumns *int     `json:"patternColumns,omitempty"`
	PatternRows    *int     `json:"patternRows,omitempty"`
	SquareSize     *float64 `json:"squareSize,omitempty"`
	SubPixWindow   *int     `json:"subPixWindow,omitempty"`
	MaxIterations  *int     `json:"maxIterations,omitempty"`
	Epsilon        *float64 `json:"epsilon,omitempty"`
	Extensions     []string `json:"extensions,omitempty"`
}

// resolved is what gets validated once defaults are applied.
type resolved struct {
	PatternColumns int      `validate:"min=2"`
	PatternRows    int      `validate:"min=2"`
	SquareSize     float64  `validate:"gt=0"`
	SubPixWindow   int      `validate:"min=1"`
	MaxIterations  int      `validate:"min=1"`
	Epsilon        float64  `validate:"gt=0"`
	Extensions     []string `validate:"min=1,dive,startswith=."`
}

func valueOr[T any](v, def *T) T {
	if v != nil {
		return *v
	}
	return *def
}

func (f *File) raw() *RawFileConfig {
	if f.c == nil {
		panic("config is nil")
	}
	return f.c
}

func (f *File) PatternColumns() int {
	return valueOr(f.raw().PatternColumns, defaultFileConfig.PatternColumns)
}

func (f *File) PatternRows() int {
	return valueOr(f.raw().PatternRows, defaultFileConfig.PatternRows)
}

func (f *File) SquareSize() float64 {
	return valueOr(f.raw().SquareSize, defaultFileConfig.SquareSize)
}

func (f *File) SubPixWindow() int {
	return valueOr(f.raw().SubPixWindow, defaultFileConfig.SubPixWindow)
}

func (f *File) MaxIterations() int {
	return valueOr(f.raw().MaxIterations, defaultFileConfig.MaxIterations)
}

func (f *File) Epsilon() float64 {
	return valueOr(f.raw().Epsilon, defaultFileConfig.Epsilon)
}

func (f *File) Extensions() []string {
	exts := f.raw().Extensions
	if len(exts) == 0 {
		exts = defaultFileConfig.Extensions
	}
	out := make([]string, len(exts))
	for i, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out[i] = e
	}
	return out
}

func (f *File) SetPatternColumns(i int) {
	f.raw().PatternColumns = &i
}

func (f *File) SetPatternRows(i int) {
	f.raw().PatternRows = &i
}

func (f *File) SetSquareSize(s float64) {
	f.raw().SquareSize = &s
}

func (f *File) Geometry() calibration.PatternGeometry {
	return calibration.PatternGeometry{
		Columns:    f.PatternColumns(),
		Rows:       f.PatternRows(),
		SquareSize: f.SquareSize(),
	}
}

func (f *File) Criteria() calibration.Criteria {
	return calibration.Criteria{
		MaxIterations: f.MaxIterations(),
		Epsilon:       f.Epsilon(),
		WindowSize:    f.SubPixWindow(),
	}
}

func (f *File) Validate() error {
	r := resolved{
		PatternColumns: f.PatternColumns(),
		PatternRows:    f.PatternRows(),
		SquareSize:     f.SquareSize(),
		SubPixWindow:   f.SubPixWindow(),
		MaxIterations:  f.MaxIterations(),
		Epsilon:        f.Epsilon(),
		Extensions:     f.Extensions(),
	}
	if err := validate.Struct(r); err != nil {
		return pkgerrors.Wrapf(err, "invalid config %s", f.filepath)
	}
	return nil
}

func (f *File) Load() error {
	if f.filepath == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	if f.c == nil {
		return pkgerrors.New("config is nil")
	}
	if f.filepath == "" {
		return pkgerrors.New("config file path is empty")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"patternColumns": f.PatternColumns(),
		"patternRows":    f.PatternRows(),
		"squareSize":     f.SquareSize(),
		"subPixWindow":   f.SubPixWindow(),
		"maxIterations":  f.MaxIterations(),
		"epsilon":        f.Epsilon(),
		"extensions":     f.Extensions(),
	}
}
