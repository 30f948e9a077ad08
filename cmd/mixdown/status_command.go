package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			job, err := store.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:        %s\n", job.ID)
			fmt.Fprintf(out, "Owner:      %s\n", job.OwnerID)
			fmt.Fprintf(out, "Plan:       %s\n", job.PlanCode)
			fmt.Fprintf(out, "Status:     %s\n", job.Status)
			fmt.Fprintf(out, "Preset:     %s\n", orDash(job.PresetKey))
			fmt.Fprintf(out, "Offset:     %d ms\n", job.OffsetMS)
			fmt.Fprintf(out, "Target:     %.1f LUFS\n", job.TargetLUFS)
			if job.MeasuredLUFS != 0 {
				fmt.Fprintf(out, "Measured:   %.1f LUFS (peak %.1f dB)\n", job.MeasuredLUFS, job.TruePeak)
			}
			fmt.Fprintf(out, "Result:     %s\n", orDash(job.ResultPath))
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:      %s\n", job.ErrorMessage)
			}
			fmt.Fprintf(out, "Created:    %s\n", job.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Updated:    %s\n", job.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
