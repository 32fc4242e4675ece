package main

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/lenscal/pkg/calibration"
	"github.com/charlie0129/lenscal/pkg/pipeline"
)

func printSummary(cmd *cobra.Command, out *pipeline.Outcome) {
	cmd.Printf("%s calibrated from %d images in %s\n", okMark(), len(out.Images), out.Elapsed.Round(time.Millisecond))
	cmd.Println()

	cmd.Println(bold("Camera matrix:"))
	printMatrix(cmd, out.Result.Camera)
	cmd.Println(bold("Optimal camera matrix (%dx%d):", out.TargetSize.X, out.TargetSize.Y))
	printMatrix(cmd, out.Optimal)

	d := out.Result.Distortion
	cmd.Println(bold("Distortion coefficients:"))
	cmd.Printf("  k1=%.6f k2=%.6f p1=%.6f p2=%.6f k3=%.6f\n", d.K1(), d.K2(), d.P1(), d.P2(), d.K3())

	cmd.Printf("%s %s\n", bold("RMS reprojection error:"), rmsText(out.Result.RMS))
	cmd.Printf("%s %s\n", bold("Remap table written to:"), out.OutputFile)
}

func printMatrix(cmd *cobra.Command, k calibration.Intrinsics) {
	for _, row := range k {
		cmd.Printf("  [%12.4f %12.4f %12.4f]\n", row[0], row[1], row[2])
	}
}

// rmsText colours the error: under one pixel is a usable calibration.
func rmsText(rms float64) string {
	switch {
	case rms < 0.5:
		return color.GreenString("%.4f px", rms)
	case rms < 1:
		return color.YellowString("%.4f px", rms)
	default:
		return color.RedString("%.4f px", rms)
	}
}

func okMark() string {
	return color.New(color.Bold, color.FgGreen).Sprint("✔")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
