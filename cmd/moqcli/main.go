package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var opts rootOptions

	rootCmd := &cobra.Command{
		Use:   "moqcli",
		Short: "Media over QUIC Transport client",
		Long: `moqcli connects to a MOQ Transport relay over WebTransport (https://)
or raw QUIC (moqt://) and subscribes to or publishes a track.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(rootCmd)

	rootCmd.AddCommand(
		subscribeCmd(&opts),
		publishCmd(&opts),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
