package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/preflight"
	"chansync/internal/services/ytdlp"
	"chansync/internal/workflow"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var retryFailed bool
	var channelFilter []string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a full sync pass across all configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if retryFailed {
				cfg.Policy.RetryFailed = true
			}
			if len(channelFilter) > 0 {
				filtered, err := selectChannels(cfg, channelFilter)
				if err != nil {
					return err
				}
				cfg.Channels = filtered
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if !preflight.Passed(results) {
				fmt.Fprintln(cmd.ErrOrStderr(), renderPreflight(results))
				return fmt.Errorf("preflight checks failed")
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, keys, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer keys.Close()

			client, err := ytdlp.New(cfg.Ytdlp)
			if err != nil {
				return err
			}
			manager, err := workflow.New(cfg, store, keys, client,
				func(ch config.Channel) catalog.DownloadExecutor { return client.Downloader(ch) },
				logger)
			if err != nil {
				return err
			}

			summary, err := manager.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))
			if failed := summary.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d channels failed", len(failed), len(summary.Channels))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Clear blocked items and re-attempt them this run")
	cmd.Flags().StringSliceVar(&channelFilter, "channel", nil, "Restrict the run to the given channel ids")
	return cmd
}

func selectChannels(cfg *config.Config, ids []string) ([]config.Channel, error) {
	selected := make([]config.Channel, 0, len(ids))
	for _, id := range ids {
		ch, ok := cfg.ChannelByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown channel %q", id)
		}
		selected = append(selected, ch)
	}
	return selected, nil
}

func renderSummary(summary *workflow.Summary) string {
	rows := make([][]string, 0, len(summary.Channels))
	for _, ch := range summary.Channels {
		status := "ok"
		if ch.Err != nil {
			status = "failed: " + ch.Err.Error()
		}
		rows = append(rows, []string{
			ch.ChannelID,
			strconv.Itoa(ch.Saved),
			strconv.Itoa(ch.Queued),
			strconv.Itoa(ch.Blocked),
			strconv.Itoa(ch.Downloads.Succeeded),
			strconv.Itoa(ch.Renames),
			strconv.Itoa(ch.Swept),
			status,
		})
	}
	return renderTable(
		[]string{"Channel", "Saved", "Queued", "Blocked", "Downloaded", "Renamed", "Swept", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}
