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
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "corkboard",
		Short: "Real-time collaborative whiteboard server",
		Long: `Corkboard keeps shared sticky-note boards in sync across clients.

The server holds board state in memory, fans out changes over
WebSocket to everyone viewing the same board, and periodically
snapshots the full collection to durable storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		initCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
