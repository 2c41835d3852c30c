package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"chansync/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lines, err := logs.Tail(filepath.Join(cfg.Paths.LogDir, "chansync.log"), limit)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No log output yet")
				return nil
			}
			out := cmd.OutOrStdout()
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "lines", "n", 50, "Number of lines to show")
	return cmd
}
