package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/playadev/playa/internal/core"
)

func nodesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List online nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Nodes(ctx)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a node's retained state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Status(ctx, "")
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
}

func lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List player instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Instances(ctx, "")
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
}

func closeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "close <instance>",
		Short: "Close a player instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			if err := app.service.Close(ctx, "", args[0]); err != nil {
				return err
			}
			return app.printer.Print("ok")
		},
	}
}

func closeAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "close-all",
		Short: "Close all player instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			if err := app.service.CloseAll(ctx, ""); err != nil {
				return err
			}
			return app.printer.Print("ok")
		},
	}
}

func pauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <instance>",
		Short: "Pause playback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			if err := app.service.Pause(ctx, "", args[0]); err != nil {
				return err
			}
			return app.printer.Print("ok")
		},
	}
}

func resumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <instance>",
		Short: "Resume playback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			if err := app.service.Resume(ctx, "", args[0]); err != nil {
				return err
			}
			return app.printer.Print("ok")
		},
	}
}

func seekCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seek <instance> <seconds>",
		Short: "Seek to an absolute position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			position, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return core.WrapError(core.ExitUsage, "position", err)
			}
			if err := app.service.Seek(ctx, "", args[0], position); err != nil {
				return err
			}
			return app.printer.Print("ok")
		},
	}
}

func volumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "volume <instance> <0-100>",
		Short: "Set playback volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			volume, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return core.WrapError(core.ExitUsage, "volume", err)
			}
			if err := app.service.Volume(ctx, "", args[0], volume); err != nil {
				return err
			}
			return app.printer.Print("ok")
		},
	}
}

func windowCommand() *cobra.Command {
	var windowSet windowFlags

	cmd := &cobra.Command{
		Use:   "window <instance>",
		Short: "Update window properties of a running instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			window, ok := windowSet.options(cmd)
			if !ok {
				return core.WrapError(core.ExitUsage, "window", errNoWindowFlags)
			}
			if err := app.service.Window(ctx, "", args[0], *window); err != nil {
				return err
			}
			return app.printer.Print("ok")
		},
	}

	windowSet.register(cmd)
	return cmd
}

func progressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <instance>",
		Short: "Show a progress snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Progress(ctx, "", args[0])
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <instance>",
		Short: "Show detailed instance state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Info(ctx, "", args[0])
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
}
