package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/playadev/playa/pkg/playa"
)

var errNoWindowFlags = errors.New("no window flags given")

func playCommand() *cobra.Command {
	var (
		preset     string
		start      float64
		title      string
		noProgress bool
		intervalMS int64
		extraArgs  []string
		windowSet  windowFlags
	)

	cmd := &cobra.Command{
		Use:   "play <source>",
		Short: "Start playback of a file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			opts := playa.DefaultPlaybackOptions()
			opts.Preset = preset
			opts.Title = title
			opts.ExtraArgs = extraArgs
			opts.ReportProgress = !noProgress
			if cmd.Flags().Changed("interval") {
				opts.ProgressIntervalMS = intervalMS
			}
			if cmd.Flags().Changed("start") {
				opts.StartTime = &start
			}
			if window, ok := windowSet.options(cmd); ok {
				opts.Window = window
			}

			result, err := app.service.Play(ctx, "", args[0], opts)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "quality preset name")
	cmd.Flags().Float64Var(&start, "start", 0, "start position in seconds")
	cmd.Flags().StringVar(&title, "title", "", "window title")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable progress monitoring")
	cmd.Flags().Int64Var(&intervalMS, "interval", 1000, "progress interval in milliseconds")
	cmd.Flags().StringArrayVar(&extraArgs, "arg", nil, "extra player argument (repeatable)")
	windowSet.register(cmd)

	return cmd
}

// windowFlags collects window geometry flags shared by play and window.
type windowFlags struct {
	borderless bool
	onTop      bool
	hidden     bool
	x, y       int
	width      int
	height     int
	opacity    float64
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&w.borderless, "borderless", false, "borderless window")
	cmd.Flags().BoolVar(&w.onTop, "ontop", false, "keep window on top")
	cmd.Flags().BoolVar(&w.hidden, "hidden", false, "start with window hidden")
	cmd.Flags().IntVar(&w.x, "x", 0, "window x position")
	cmd.Flags().IntVar(&w.y, "y", 0, "window y position")
	cmd.Flags().IntVar(&w.width, "width", 0, "window width")
	cmd.Flags().IntVar(&w.height, "height", 0, "window height")
	cmd.Flags().Float64Var(&w.opacity, "opacity", 1, "window opacity (0-1)")
}

func (w *windowFlags) options(cmd *cobra.Command) (*playa.WindowOptions, bool) {
	changed := false
	opts := &playa.WindowOptions{
		Borderless:  w.borderless,
		AlwaysOnTop: w.onTop,
		StartHidden: w.hidden,
	}
	for _, name := range []string{"borderless", "ontop", "hidden"} {
		if cmd.Flags().Changed(name) {
			changed = true
		}
	}
	if cmd.Flags().Changed("x") {
		opts.X = &w.x
		changed = true
	}
	if cmd.Flags().Changed("y") {
		opts.Y = &w.y
		changed = true
	}
	if cmd.Flags().Changed("width") {
		opts.Width = &w.width
		changed = true
	}
	if cmd.Flags().Changed("height") {
		opts.Height = &w.height
		changed = true
	}
	if cmd.Flags().Changed("opacity") {
		opts.Opacity = &w.opacity
		changed = true
	}
	return opts, changed
}
