package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <channel>",
		Short: "Remove a channel's cached catalog data",
		Long: "Remove the channel's cached catalog response. The queued, saved, and\n" +
			"blocked lists are never touched; they are rebuilt only by sync runs.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Policy.CleanupDataAllowed {
				return fmt.Errorf("data cleanup is disabled; set policy.cleanup_data_allowed in the config to enable it")
			}
			channelID := args[0]
			if _, ok := cfg.ChannelByID(channelID); !ok {
				return fmt.Errorf("unknown channel %q", channelID)
			}

			store, keys, err := ctx.openStores()
			if err != nil {
				return err
			}
			defer keys.Close()

			if err := store.CleanupData(channelID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cached catalog data for %s\n", channelID)
			return nil
		},
	}
}
