package main

import (
	"context"

	"github.com/spf13/cobra"
)

func presetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Inspect quality presets on a node",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Presets(ctx, "")
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show a preset's flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Preset(ctx, "", args[0])
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recommended",
		Short: "Show the preset recommended for the node's hardware",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.Recommended(ctx, "")
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	})

	return cmd
}
