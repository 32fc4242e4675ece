package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

var (
	logLevel   = "info"
	logFile    = ""
	configPath = ""

	logWriter *lumberjack.Logger
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	if logFile != "" {
		logWriter = &lumberjack.Logger{
			Filename:   logFile,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, logWriter))
	}

	return nil
}

func handleCmdError(err error) {
	var pnd *calibration.PatternNotDetectedError
	switch {
	case errors.Is(err, calibration.ErrNoImagesFound):
		fmt.Fprintln(os.Stderr, "\nError: no calibration images found")
		fmt.Fprintln(os.Stderr, "  - Put *.png or *.jpg chessboard photos in the directory given by --input_images_dir")
	case errors.Is(err, calibration.ErrTestImageUnreadable):
		fmt.Fprintln(os.Stderr, "\nError: the test image cannot be read")
		fmt.Fprintln(os.Stderr, "  - Check the path given by --test_image")
	case errors.As(err, &pnd):
		fmt.Fprintf(os.Stderr, "\nError: no chessboard found in %s\n", pnd.Path)
		fmt.Fprintln(os.Stderr, "  - Remove or retake the image, every image must show the whole board")
		fmt.Fprintln(os.Stderr, "  - Check that --pattern-columns and --pattern-rows count inner corners")
	case errors.Is(err, calibration.ErrImageSizeMismatch):
		fmt.Fprintln(os.Stderr, "\nError: calibration images must all come from the same camera mode")
	}
}

// exitCode is 2 for failures the user can fix by pointing at other inputs.
func exitCode(err error) int {
	if calibration.IsRecoverable(err) {
		return 2
	}
	return 1
}

func main() {
	cmd := NewCommand()
	err := cmd.Execute()
	if logWriter != nil {
		_ = logWriter.Close()
	}
	if err != nil {
		handleCmdError(err)
		os.Exit(exitCode(err))
	}
}

func NewCommand() *cobra.Command {
	opts := newCalibrateOptions()

	cmd := &cobra.Command{
		Use:   "lenscal",
		Short: "lenscal calibrates a camera lens and exports a GDC remap table",
		Long: `lenscal calibrates a camera lens from chessboard photos and exports the
undistortion remap table as a GDC custom config.

Every image in the input directory must show the whole chessboard. The remap
table is computed for the size of the test image.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalibration(cmd, opts)
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&logFile, "log-file", "", "also write logs to this file, rotated by size")
	globalFlags.StringVar(&configPath, "config", "", "JSON config file with pattern geometry and refinement criteria")

	opts.addFlags(cmd)

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewVersionCommand(),
		NewInspectCommand(),
		NewConfigCommand(),
	)

	return cmd
}
