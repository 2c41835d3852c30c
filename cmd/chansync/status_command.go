package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chansync/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-channel state counts and environment health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, keys, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer keys.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPreflight(preflight.RunAll(cmd.Context(), cfg)))

			rows := make([][]string, 0, len(cfg.Channels))
			for _, ch := range cfg.Channels {
				st, err := store.Load(ch.ID)
				if err != nil {
					rows = append(rows, []string{ch.ID, "-", "-", "-", "-", err.Error()})
					continue
				}
				rows = append(rows, []string{
					ch.ID,
					strconv.Itoa(st.Saved.Len()),
					strconv.Itoa(st.Queued.Len()),
					strconv.Itoa(st.Blocked.Len()),
					yesNo(ch.KeepClean),
					"",
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Channel", "Saved", "Queued", "Blocked", "Keep clean", "Problem"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func renderPreflight(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		status := "ok"
		if !result.Passed {
			status = "FAIL"
		}
		rows = append(rows, []string{result.Name, status, result.Detail})
	}
	return renderTable(
		[]string{"Check", "Status", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	)
}
