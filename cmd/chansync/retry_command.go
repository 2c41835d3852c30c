package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <channel>",
		Short: "Clear a channel's blocked items so the next sync re-attempts them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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

			st, err := store.Load(channelID)
			if err != nil {
				return err
			}
			cleared := st.Blocked.Len()
			if cleared == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Channel %s has no blocked items\n", channelID)
				return nil
			}
			st.Blocked.Clear()
			if err := store.Save(st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d blocked items for %s; run `chansync sync` to re-attempt them\n", cleared, channelID)
			return nil
		},
	}
}
