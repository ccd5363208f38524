// Package ui provides terminal output components for the wsgate-probe CLI.
//
// The components use Lipgloss for styling and follow a "run once and exit"
// pattern: they render a command's progress and result but never ask for
// input.
//
//   - Header: command banner showing the operation and its parameters
//   - Progress: step list with a progress bar
//   - Result: success, failure or warning box with details
//   - Runner: drives header, steps and result for one operation
//
// When the output is not a terminal, every component renders plain text
// without colours or borders, so probe output can be piped and grepped.
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Subprotocol Probe",
//	    Command:   "wsgate-probe connect ws://gateway:9000/",
//	    Params:    map[string]string{"Offered": "ocpp2.0.1"},
//	    StepNames: []string{"Dial", "Negotiate", "Close"},
//	})
//
//	err := runner.Run(ctx, func(onStep ui.StepCallback) (map[string]string, error) {
//	    onStep(1, "", ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, "", ui.StepComplete, "12ms")
//	    return map[string]string{"Subprotocol": "ocpp2.0.1"}, nil
//	})
//
// # Logging Integration
//
// This package expects logging to be controlled via the WSGATE_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, so the
// UI output is displayed cleanly.
package ui
