package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/lenscal/pkg/config"
	"github.com/charlie0129/lenscal/pkg/gdcconfig"
	"github.com/charlie0129/lenscal/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "inspect [file]",
		Short:   "Check a GDC custom config and print its header",
		GroupID: gBasic,
		Long: `Check a GDC custom config and print its header.

The whole file is parsed. The command fails if the number of rows or tokens
does not match the declared size.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gdcconfig.ReadFile(args[0])
			if err != nil {
				return err
			}

			minX, maxX, minY, maxY := cfg.Range()
			t := cfg.Table

			cmd.Printf("%s %d\n", bold("Version:"), cfg.Version)
			cmd.Printf("%s %d %d\n", bold("Margin:"), cfg.Margin[0], cfg.Margin[1])
			cmd.Printf("%s %dx%d\n", bold("Size:"), t.Width, t.Height)
			cmd.Printf("%s row %d, col %d\n", bold("Center:"), cfg.CenterRow, cfg.CenterCol)
			cmd.Printf("%s %g .. %g\n", bold("X range:"), minX, maxX)
			cmd.Printf("%s %g .. %g\n", bold("Y range:"), minY, maxY)

			if r, c := gdcconfig.Center(t.Width, t.Height); r != cfg.CenterRow || c != cfg.CenterCol {
				logrus.Warnf("center (%d, %d) does not match the table size, expected (%d, %d)", cfg.CenterRow, cfg.CenterCol, r, c)
			}

			return nil
		},
	}
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage the calibration config file",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write a config file with every default spelled out",
			Long: `Write a config file with every default spelled out.

The file is written to the path given by --config.`,
			Args: cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				if configPath == "" {
					return fmt.Errorf("--config is required")
				}
				if err := config.NewFileFromConfig(config.DefaultRawFileConfig(), configPath).Save(); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
				logrus.Infof("successfully wrote default config to %s", configPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective config",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				conf, err := config.NewFile(configPath)
				if err != nil {
					return err
				}
				if err := conf.Validate(); err != nil {
					return err
				}
				g, c := conf.Geometry(), conf.Criteria()
				cmd.Printf("%s %dx%d inner corners, %gmm squares\n", bold("Pattern:"), g.Columns, g.Rows, g.SquareSize)
				cmd.Printf("%s window %d, %d iterations, eps %g\n", bold("Refinement:"), c.WindowSize, c.MaxIterations, c.Epsilon)
				cmd.Printf("%s %v\n", bold("Extensions:"), conf.Extensions())
				return nil
			},
		},
	)

	return cmd
}
