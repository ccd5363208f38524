package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/villekr/wsgate/internal/discovery"
	"github.com/villekr/wsgate/internal/probe"
	"github.com/villekr/wsgate/internal/subprotocol"
	"github.com/villekr/wsgate/internal/ui"
)

// Connect command flags
var (
	offered        []string
	allowNone      bool
	message        string
	connectTimeout time.Duration
	insecure       bool
	instance       string
)

var connectCmd = &cobra.Command{
	Use:   "connect [url]",
	Short: "Open a connection and report the negotiated subprotocol",
	Long: `Open a WebSocket connection offering the given subprotocols and report
the one the server chose.

The probe fails when the handshake is rejected (the HTTP status is shown) or
when the server accepts without choosing a subprotocol, unless --allow-none
is given. With --message, one text frame is sent and the reply awaited.

Instead of a URL, --instance resolves an announced server by its mDNS name.`,
	Example: `  # Offer ocpp2.0.1 only (default)
  wsgate-probe connect ws://192.168.1.20:9000/ocpp/CP001

  # Offer several versions in order
  wsgate-probe connect ws://localhost:9000/ -s ocpp1.6 -s ocpp2.0.1

  # Send a heartbeat and wait for the reply
  wsgate-probe connect ws://localhost:9000/ --message '[2,"1","Heartbeat",{}]'

  # Self-signed TLS
  wsgate-probe connect wss://localhost:9000/ --insecure

  # Resolve an announced server
  wsgate-probe connect --instance "Depot A"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	f := connectCmd.Flags()
	f.StringSliceVarP(&offered, "subprotocol", "s", []string{subprotocol.OCPP201}, "Subprotocols to offer, in order")
	f.BoolVar(&allowNone, "allow-none", false, "Succeed when no subprotocol is negotiated")
	f.StringVarP(&message, "message", "m", "", "Text message to send after the handshake")
	f.DurationVar(&connectTimeout, "timeout", probe.DefaultTimeout, "Handshake and reply timeout")
	f.BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	f.StringVar(&instance, "instance", "", "Resolve the URL from an mDNS-announced server name")
}

// targetURL returns the URL argument or resolves --instance via mDNS.
func targetURL(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) == 1 && instance != "":
		return "", errors.New("give either a URL or --instance, not both")
	case len(args) == 1:
		return args[0], nil
	case instance == "":
		return "", errors.New("a URL or --instance is required")
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = connectTimeout
	gw, err := scanner.WaitFor(cmd.Context(), instance)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", instance, err)
	}
	return gw.URL(), nil
}

func runConnect(cmd *cobra.Command, args []string) error {
	url, err := targetURL(cmd, args)
	if err != nil {
		return err
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Subprotocol Probe",
		Command: cmd.CommandPath() + " " + url,
		Params: map[string]string{
			"URL":     url,
			"Offered": strings.Join(offered, ", "),
			"Timeout": connectTimeout.String(),
		},
		StepNames: probe.StepNames,
		Troubleshooting: []string{
			"Check the server is running and the URL path is correct",
			"A 403 status means none of the offered subprotocols is accepted",
			"Use 'wsgate-probe discover' to find servers on the local network",
			"Use --insecure for servers with self-signed certificates",
		},
		Output: cmd.OutOrStdout(),
		Plain:  plainOverride(cmd),
	})

	return runner.Run(cmd.Context(), func(onStep ui.StepCallback) (map[string]string, error) {
		result, err := probe.Run(cmd.Context(), probe.Options{
			URL:          url,
			Subprotocols: offered,
			AllowNone:    allowNone,
			Message:      message,
			Timeout:      connectTimeout,
			Insecure:     insecure,
		}, onStep)
		if result == nil {
			return nil, err
		}
		return result.Details(), err
	})
}
