package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadzzz/scenerelay/internal/chat"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [utterance]",
		Short: "Send utterances to the relay and apply the replies to the scene",
		Long: `Sends one utterance given as arguments, or reads one utterance per line
from stdin. Each reply is dispatched into an in-memory scene.

Interactive commands: /scene prints the scene, /reset starts a new conversation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, args)
		},
	}
}

func runChat(cmd *cobra.Command, opts *rootOptions, args []string) error {
	s, err := newSession(cmd, opts)
	if err != nil {
		return err
	}
	client := chat.NewClient(opts.relayURL, s.bus)
	ctx := cmd.Context()

	if len(args) > 0 {
		_, err := client.Send(ctx, strings.Join(args, " "))
		return err
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/scene":
			s.printScene()
			continue
		case "/reset":
			client.Reset()
			fmt.Fprintln(s.out, "conversation reset")
			continue
		}

		if _, err := client.Send(ctx, line); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}
	return scanner.Err()
}
