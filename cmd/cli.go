// Package cmd defines the command line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"audioviz/internal/app"
	"audioviz/internal/config"
	"audioviz/internal/render"
	"audioviz/pkg/build"
)

// Execute parses args and runs the selected command. ctx cancellation
// aborts a running render.
//
// Precedence, lowest to highest: defaults, config file, environment,
// flags. Flags parse into a separate Config so the file overlay cannot
// clobber explicitly set flags.
func Execute(ctx context.Context, args []string) error {
	flagCfg := config.NewConfig()
	var configPath string

	root := &cobra.Command{
		Use:           "audioviz",
		Short:         "Render audio tracks as bar-spectrum video frames",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewConfig()
			if configPath != "" {
				if err := cfg.LoadYAML(configPath); err != nil {
					return err
				}
			}
			cfg.ApplyEnv()
			applyChangedFlags(cmd, cfg, flagCfg)
			return app.Run(ctx, cfg)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVarP(&flagCfg.Input, "input", "i", flagCfg.Input, "input WAV file (empty plays the demo track)")
	flags.StringVarP(&flagCfg.Output, "output", "o", flagCfg.Output, "output path (raw file or png directory)")
	flags.StringVar(&flagCfg.Format, "format", flagCfg.Format, "output format: raw or png")
	flags.IntVar(&flagCfg.Width, "width", flagCfg.Width, "frame width in pixels")
	flags.IntVar(&flagCfg.Height, "height", flagCfg.Height, "frame height in pixels")
	flags.IntVar(&flagCfg.Bars, "bars", flagCfg.Bars, "number of spectrum bars")
	flags.IntVar(&flagCfg.FPS, "fps", flagCfg.FPS, "frames per second")
	flags.StringVar(&flagCfg.Layout, "layout", flagCfg.Layout, "bar layout: vertical, horizontal, or mirror")
	flags.BoolVar(&flagCfg.Glow, "glow", flagCfg.Glow, "draw a glow halo around bars")
	flags.StringVar(&flagCfg.ColorLow, "color-low", flagCfg.ColorLow, "bar color at the lowest band (#rrggbb)")
	flags.StringVar(&flagCfg.ColorHigh, "color-high", flagCfg.ColorHigh, "bar color at the highest band (#rrggbb)")
	flags.IntVar(&flagCfg.FFTSize, "fft-size", flagCfg.FFTSize, "analysis window size (power of two)")
	flags.Float64Var(&flagCfg.Sensitivity, "sensitivity", flagCfg.Sensitivity, "beat detection sensitivity")
	flags.IntVar(&flagCfg.Workers, "workers", flagCfg.Workers, "compute workers (0 = all cores)")
	flags.StringVar(&flagCfg.WSAddr, "ws-addr", flagCfg.WSAddr, "websocket listen address for frame data")
	flags.StringVar(&flagCfg.UDPAddr, "udp-addr", flagCfg.UDPAddr, "udp target address for frame data")
	flags.BoolVarP(&flagCfg.Verbose, "verbose", "v", flagCfg.Verbose, "debug logging")

	root.AddCommand(versionCommand(), layoutsCommand())

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// applyChangedFlags copies values for explicitly set flags from the
// flag target into the resolved config.
func applyChangedFlags(cmd *cobra.Command, cfg, flagCfg *config.Config) {
	apply := map[string]func(){
		"input":       func() { cfg.Input = flagCfg.Input },
		"output":      func() { cfg.Output = flagCfg.Output },
		"format":      func() { cfg.Format = flagCfg.Format },
		"width":       func() { cfg.Width = flagCfg.Width },
		"height":      func() { cfg.Height = flagCfg.Height },
		"bars":        func() { cfg.Bars = flagCfg.Bars },
		"fps":         func() { cfg.FPS = flagCfg.FPS },
		"layout":      func() { cfg.Layout = flagCfg.Layout },
		"glow":        func() { cfg.Glow = flagCfg.Glow },
		"color-low":   func() { cfg.ColorLow = flagCfg.ColorLow },
		"color-high":  func() { cfg.ColorHigh = flagCfg.ColorHigh },
		"fft-size":    func() { cfg.FFTSize = flagCfg.FFTSize },
		"sensitivity": func() { cfg.Sensitivity = flagCfg.Sensitivity },
		"workers":     func() { cfg.Workers = flagCfg.Workers },
		"ws-addr":     func() { cfg.WSAddr = flagCfg.WSAddr },
		"udp-addr":    func() { cfg.UDPAddr = flagCfg.UDPAddr },
		"verbose":     func() { cfg.Verbose = flagCfg.Verbose },
	}
	for name, set := range apply {
		if cmd.Flags().Changed(name) {
			set()
		}
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.GetBuildFlags())
		},
	}
}

func layoutsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "List available bar layouts",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, l := range []render.Layout{render.LayoutVertical, render.LayoutHorizontal, render.LayoutMirror} {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
		},
	}
}
