// Package main provides the CLI entry point for the cloudquill AWS
// assistant.
//
// commands.go contains the cobra command definitions; handlers.go
// contains the logic each command runs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cloudquill",
		Short: "cloudquill - conversational AWS assistant",
		Long: `cloudquill connects a chat model to AWS operations with a knowledge base.

The serve command runs the HTTP gateway; chat and sessions talk to a
running server.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildChatCmd(),
		buildSessionsCmd(),
	)

	return rootCmd
}
