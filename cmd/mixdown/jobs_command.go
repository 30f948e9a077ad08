package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mixdown/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			var statuses []queue.Status
			if statusFlag != "" {
				for _, raw := range strings.Split(statusFlag, ",") {
					status, ok := queue.ParseStatus(strings.TrimSpace(raw))
					if !ok {
						return fmt.Errorf("unknown status %q", raw)
					}
					statuses = append(statuses, status)
				}
			}

			jobs, err := store.ListJobs(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					job.PlanCode,
					string(job.Status),
					job.PresetKey,
					fmt.Sprintf("%d", job.OffsetMS),
					job.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "PLAN", "STATUS", "PRESET", "OFFSET MS", "CREATED"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Comma-separated status filter (e.g. paid,failed)")
	return cmd
}
