package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/villekr/wsgate/internal/discovery"
	"github.com/villekr/wsgate/internal/ui"
)

var scanTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List wsgate servers announced on the local network",
	Long: `Browse mDNS for _wsgate._tcp services and list each server with its
connection URL and advertised subprotocols.`,
	Example: `  # Browse for 5 seconds (default)
  wsgate-probe discover

  # Longer scan for busy networks
  wsgate-probe discover --timeout 15s`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Scan timeout")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	plain := !ui.IsTerminal(out)
	if p := plainOverride(cmd); p != nil {
		plain = *p
	}

	header := ui.NewHeader("Discover", cmd.CommandPath(), map[string]string{
		"Service": discovery.ServiceType,
		"Timeout": scanTimeout.String(),
	})
	header.Plain = plain
	fmt.Fprintln(out, header.Render())
	fmt.Fprintln(out)

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	gateways, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	var result *ui.Result
	if len(gateways) == 0 {
		result = ui.NewWarningResult("No servers found", map[string]string{
			"Hint": "start wsgate-server with --announce <name>",
		})
	} else {
		details := make(map[string]string, len(gateways))
		for i, gw := range gateways {
			key := fmt.Sprintf("%d. %s", i+1, gw.Instance)
			details[key] = describeGateway(gw)
		}
		result = ui.NewSuccessResult("Found "+strconv.Itoa(len(gateways))+" server(s)", details)
	}
	result.Plain = plain

	if plain {
		fmt.Fprintln(out, result.Render())
		return nil
	}
	return ui.RenderOnce(out, result.Render())
}

func describeGateway(gw *discovery.Gateway) string {
	desc := gw.URL()
	if subs := gw.Subprotocols(); len(subs) > 0 {
		desc += " [" + strings.Join(subs, ", ") + "]"
	}
	if v := gw.GetMetadata(discovery.TXTVersion); v != "" {
		desc += " v" + v
	}
	return desc
}
