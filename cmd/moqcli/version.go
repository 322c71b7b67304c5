package main

import (
	"fmt"
	"runtime"

	"github.com/OkutaniDaichi0106/moqtransport/moqt/message"
	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return
			}

			fmt.Fprintf(out, "moqcli %s (%s)\n", version, commit)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			for _, v := range message.SupportedVersions() {
				fmt.Fprintf(out, "  Supports:   %s\n", v)
			}
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}
