package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/playadev/playa/internal/adapters/output"
)

func watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream playback events from a node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			node, stateCh, eventCh, errCh, err := app.service.Watch(ctx, "")
			if err != nil {
				return err
			}
			if !app.quiet && !app.json {
				fmt.Fprintf(os.Stdout, "watching %s (ctrl-c to stop)\n", node)
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case err, ok := <-errCh:
					if !ok {
						return nil
					}
					return err
				case state, ok := <-stateCh:
					if !ok {
						return nil
					}
					if app.json {
						payload, _ := json.Marshal(state)
						fmt.Fprintln(os.Stdout, string(payload))
						continue
					}
					fmt.Fprintf(os.Stdout, "state: %d instance(s)\n", len(state.Instances))
				case ev, ok := <-eventCh:
					if !ok {
						return nil
					}
					if app.json {
						payload, _ := json.Marshal(ev)
						fmt.Fprintln(os.Stdout, string(payload))
						continue
					}
					fmt.Fprintln(os.Stdout, output.FormatEvent(ev))
				}
			}
		},
	}
}
