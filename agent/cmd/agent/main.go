package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "capturestack-agent",
		Short: "capturestack agent - records and serves stitched stacks",
		Long: `capturestack-agent runs the capture store with its query surfaces.

Commands:
  run       Start the agent (HTTP API, WebSocket stream, gRPC, metrics)
  stack     Fetch the stitched stack for an object id from a running agent
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults apply when empty)")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newStackCommand(&configPath))
	root.AddCommand(versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "capturestack-agent %s (commit: %s)\n", version, commit)
		},
	}
}
