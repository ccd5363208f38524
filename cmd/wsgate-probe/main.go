// Wsgate-probe is a diagnostic client for wsgate servers.
//
// It opens a WebSocket connection offering a list of subprotocols, reports
// which one the server negotiated, and can exchange a single message. It
// also lists servers announced on the local network via mDNS.
//
// Usage:
//
//	wsgate-probe connect <url> [flags]
//	wsgate-probe discover [flags]
//
// See 'wsgate-probe --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/villekr/wsgate/internal/logging"
	"github.com/villekr/wsgate/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	logLevel string
	plain    bool
)

var rootCmd = &cobra.Command{
	Use:   "wsgate-probe",
	Short: "Diagnostic client for wsgate servers",
	Long: `Connects to a wsgate server and reports the subprotocol negotiation.

Output is rendered for terminals; redirect it or pass --plain for
script-friendly text.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent by default")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Plain text output without colors or borders")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wsgate-probe %s\n", version.Full())
	},
}

// plainOverride returns the --plain setting when given, or nil to let the
// output decide.
func plainOverride(cmd *cobra.Command) *bool {
	if cmd.Flags().Changed("plain") {
		return &plain
	}
	return nil
}
