// Scenectl drives an in-memory 3D scene from the chat relay.
//
// It sends utterances to a running scenerelay (chat) or follows the relay's
// response feed (watch), runs every response through the command dispatcher,
// and prints the resulting mutations and scene state.
//
// Usage:
//
//	scenectl chat --relay http://localhost:3000
//	scenectl chat "ajoute une sphère rouge"
//	scenectl watch --relay http://localhost:3000
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

type rootOptions struct {
	relayURL    string
	configFile  string
	vocabulary  string
	implicitAdd bool
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "scenectl",
		Short:         "Drive a 3D scene from the chat relay",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.relayURL, "relay", "http://localhost:3000", "base URL of the scenerelay server")
	flags.StringVar(&opts.configFile, "config", "", "path to config file (scene section is used)")
	flags.StringVar(&opts.vocabulary, "vocabulary", "", "vocabulary YAML file overriding the built-in one")
	flags.BoolVar(&opts.implicitAdd, "implicit-add", true, "add and recolor whenever an object and a color are recognized together")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newChatCmd(opts), newWatchCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
