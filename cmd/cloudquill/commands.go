package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the gateway.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cloudquill HTTP gateway",
		Long: `Start the HTTP gateway with the configured model provider and
AWS connector.

The server will:
1. Load configuration from the specified file (defaults apply without one)
2. Open the knowledge and audit databases
3. Register the AWS connector tools
4. Serve chat, knowledge, history, health and metrics endpoints

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with defaults
  cloudquill serve

  # Start with a custom config
  cloudquill serve --config /etc/cloudquill/production.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML or JSON5)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

// buildChatCmd creates the "chat" command that sends one message to a
// running server and streams the events.
func buildChatCmd() *cobra.Command {
	var (
		serverURL string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a chat message to a running server",
		Args:  cobra.ExactArgs(1),
		Example: `  cloudquill chat "list my ec2 instances"
  cloudquill chat --session ops "what did that cost last month?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), serverURL, sessionID, args[0])
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the cloudquill server")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID (empty uses the default session)")

	return cmd
}

// buildSessionsCmd creates the "sessions" command group.
func buildSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage conversation sessions on a running server",
	}
	cmd.AddCommand(buildSessionsClearCmd())
	return cmd
}

func buildSessionsClearCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Clear a session's conversation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsClear(cmd.Context(), serverURL, args[0])
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the cloudquill server")

	return cmd
}
