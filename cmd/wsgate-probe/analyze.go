package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/villekr/wsgate/internal/capture"
	"github.com/villekr/wsgate/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture.jsonl>",
	Short: "Summarize a capture file recorded by wsgate-server",
	Long: `Read a capture file written with 'wsgate-server server --capture-dir'
and summarize it: message counts per peer and subprotocol, and the OCPP-J
message kinds and call actions seen.`,
	Example: `  wsgate-probe analyze ./captures/capture-20251121-030905.jsonl`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	summary, err := capture.Analyze(f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	plain := !ui.IsTerminal(out)
	if p := plainOverride(cmd); p != nil {
		plain = *p
	}

	details := summaryDetails(summary)
	var result *ui.Result
	if summary.Messages == 0 {
		result = ui.NewWarningResult("No messages in "+args[0], details)
	} else {
		result = ui.NewSuccessResult("Capture "+args[0], details)
	}
	result.Plain = plain
	fmt.Fprintln(out, result.Render())
	return nil
}

func summaryDetails(s *capture.Summary) map[string]string {
	d := map[string]string{
		"Messages": strconv.Itoa(s.Messages),
		"Bytes":    strconv.Itoa(s.Bytes),
	}
	if s.Malformed > 0 {
		d["Malformed lines"] = strconv.Itoa(s.Malformed)
	}
	if s.Messages == 0 {
		return d
	}
	d["Duration"] = s.Duration().String()
	d["Peers"] = formatCounts(s.Peers)
	d["Subprotocols"] = formatCounts(s.Subprotocols)
	d["Frames"] = formatCounts(s.FrameTypes)
	d["Kinds"] = formatCounts(s.Kinds)
	if len(s.Actions) > 0 {
		d["Actions"] = formatCounts(s.Actions)
	}
	return d
}

// formatCounts renders "name=count" pairs, most frequent first.
func formatCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, len(names))
	for i, name := range names {
		if name == "" {
			parts[i] = fmt.Sprintf("(none)=%d", counts[name])
			continue
		}
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, ", ")
}
