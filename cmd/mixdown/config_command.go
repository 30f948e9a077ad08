package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixdown/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented sample configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = *ctx.configFlag
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Data dir:     %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Scratch dir:  %s\n", cfg.Paths.ScratchDir)
			fmt.Fprintf(out, "Log dir:      %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Store root:   %s\n", cfg.Paths.StoreRoot)
			fmt.Fprintf(out, "Database:     %s\n", cfg.DatabasePath())
			fmt.Fprintf(out, "Rate limit:   %s\n", cfg.RateLimit.Backend)
			return nil
		},
	}
}
