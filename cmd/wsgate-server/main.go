// Wsgate-server accepts WebSocket connections and negotiates an OCPP
// subprotocol before handing messages to the application.
//
// Connections that offer no acceptable subprotocol are rejected during the
// handshake. Accepted messages are logged and, when capture is configured,
// recorded to a JSON Lines file that can be archived to S3 on shutdown.
//
// Usage:
//
//	wsgate-server server [flags]
//	wsgate-server config init|show
//
// See 'wsgate-server --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/villekr/wsgate/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wsgate-server",
	Short: "WebSocket gateway with subprotocol negotiation",
	Long: `A WebSocket server that only accepts peers offering a supported
subprotocol (ocpp2.0.1 by default).

Configuration is read from a YAML file (see 'wsgate-server config init');
command-line flags override it.

For testing a running server, use the separate 'wsgate-probe' utility.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wsgate-server %s\n", version.Full())
	},
}
