package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nadzzz/scenerelay/internal/chat"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the relay's response feed and apply every reply to the scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			u, err := feedURL(opts.relayURL)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return chat.Watch(ctx, u, s.bus)
		},
	}
}
