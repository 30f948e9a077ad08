package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixdown/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			results := preflight.RunAll(cfg)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				state := "ok"
				if !result.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"CHECK", "STATE", "DETAIL"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			statuses := preflight.CheckSystemDeps(cfg)
			depRows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = "missing"
					if status.Optional {
						state = "missing (optional)"
					}
				}
				detail := status.Detail
				if detail == "" {
					detail = status.Command
				}
				depRows = append(depRows, []string{status.Name, state, detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"DEPENDENCY", "STATE", "DETAIL"},
				depRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
