package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixdown/internal/presets"
)

func newPresetsCommand() *cobra.Command {
	var planFlag string

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List mixing presets available to a plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			available := presets.ForPlan(planFlag)
			defaultKey := presets.DefaultForPlan(planFlag)

			rows := make([][]string, 0, len(available))
			for _, preset := range available {
				marker := ""
				if preset.Key == defaultKey {
					marker = "default"
				}
				rows = append(rows, []string{
					preset.Key,
					string(preset.Category),
					preset.DisplayName,
					preset.Description,
					marker,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"KEY", "CATEGORY", "NAME", "DESCRIPTION", ""},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&planFlag, "plan", "creator", "Plan code to list presets for (lite, standard, creator)")
	return cmd
}
