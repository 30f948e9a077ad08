package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"TOTAL", "WAITING", "IN FLIGHT", "FAILED", "FINISHED"},
				[][]string{{
					fmt.Sprintf("%d", health.Total),
					fmt.Sprintf("%d", health.Waiting),
					fmt.Sprintf("%d", health.InFlight),
					fmt.Sprintf("%d", health.Failed),
					fmt.Sprintf("%d", health.Finished),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
