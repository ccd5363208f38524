package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for one probe operation
type RunnerConfig struct {
	Title           string            // Command title (e.g., "Subprotocol Probe")
	Command         string            // Full command line
	Params          map[string]string // Parameters to display in header
	StepNames       []string          // Names for each step
	Troubleshooting []string          // Tips shown when the operation fails
	Output          io.Writer         // Output writer (default: os.Stdout)
	Plain           *bool             // Force plain output; nil detects a terminal
}

// Runner drives the header → steps → result flow of one operation.
type Runner struct {
	config   RunnerConfig
	out      io.Writer
	plain    bool
	width    int
	progress *Progress
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	plain := !IsTerminal(out)
	if config.Plain != nil {
		plain = *config.Plain
	}

	p := NewProgress(config.StepNames)
	p.Plain = plain

	return &Runner{
		config:   config,
		out:      out,
		plain:    plain,
		width:    GetTerminalWidth(),
		progress: p,
	}
}

// Operation is the work reported by a Runner. It returns the details shown
// in the success box.
type Operation func(onStep StepCallback) (map[string]string, error)

// Run prints the header, executes op while printing finished steps, and
// prints the result. op's error is returned unchanged.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	header := NewHeader(r.config.Title, r.config.Command, r.config.Params)
	header.Width = r.width
	header.Plain = r.plain
	r.println(header.Render())
	r.println("")

	start := time.Now()
	details, err := op(r.onStep)
	duration := time.Since(start).Round(time.Millisecond)

	r.println("")
	var result *Result
	if err != nil {
		result = NewFailureResult(r.config.Title+" failed", err, r.config.Troubleshooting)
		for k, v := range details {
			result.AddDetail(k, v)
		}
	} else {
		result = NewSuccessResult(r.config.Title+" complete", details)
	}
	result.AddDetail("Duration", duration.String())
	result.Width = r.width
	result.Plain = r.plain
	r.println(result.Render())

	return err
}

// Steps returns the current step states
func (r *Runner) Steps() []Step {
	return append([]Step(nil), r.progress.Steps...)
}

func (r *Runner) onStep(stepNumber int, name string, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > r.progress.Total() {
		return
	}
	if name != "" {
		r.progress.Steps[stepNumber-1].Name = name
	}
	r.progress.UpdateStep(stepNumber, status, message)

	step := r.progress.Steps[stepNumber-1]
	switch {
	case status.finished():
		r.println(r.progress.RenderStep(step))
	case status == StepRunning && !r.plain:
		// Overwritten when the step finishes
		_, _ = fmt.Fprint(r.out, r.progress.RenderStep(step)+"\r")
	}
}

func (r *Runner) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}
