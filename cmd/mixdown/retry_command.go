package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Return failed jobs to the queue",
		Long:  "Moves failed jobs back to paid so the worker picks them up again. With no arguments every failed job is retried.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			retried, err := store.RetryFailed(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "retried %d job(s)\n", retried)
			return nil
		},
	}
}
