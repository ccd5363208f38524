package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
	StepSkipped                    // Skipped
)

func (s StepStatus) finished() bool {
	return s == StepComplete || s == StepFailed || s == StepSkipped
}

// Step represents a single step in a multi-step operation
type Step struct {
	Number  int        // Step number (1-based)
	Name    string     // Step description
	Status  StepStatus // Current status
	Message string     // Optional status message (e.g., "12ms", "403 Forbidden")
}

// Progress tracks the steps of an operation and renders them with a bar
type Progress struct {
	Steps   []Step
	Current int     // Current step (1-based)
	Percent float64 // Progress percentage (0.0 - 1.0)
	Plain   bool    // Render without styling
	bar     progress.Model
}

// NewProgress creates a progress tracker with one pending step per name
func NewProgress(names []string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Number: i + 1, Name: name, Status: StepPending}
	}
	return &Progress{
		Steps: steps,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
	}
}

// Total returns the number of steps
func (p *Progress) Total() int {
	return len(p.Steps)
}

// UpdateStep updates a specific step's status and optional message
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) {
	if stepNumber < 1 || stepNumber > len(p.Steps) {
		return
	}
	idx := stepNumber - 1
	p.Steps[idx].Status = status
	p.Steps[idx].Message = message

	if status == StepRunning {
		p.Current = stepNumber
		return
	}
	if status.finished() {
		completed := 0
		for _, s := range p.Steps {
			if s.Status == StepComplete || s.Status == StepSkipped {
				completed++
			}
		}
		p.Percent = float64(completed) / float64(len(p.Steps))
	}
}

// Render returns the progress bar followed by the step list
func (p *Progress) Render() string {
	var lines []string
	if !p.Plain {
		bar := fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, p.Total())
		lines = append(lines, lipgloss.NewStyle().PaddingLeft(2).Render(bar), "")
	}
	for _, step := range p.Steps {
		lines = append(lines, p.RenderStep(step))
	}
	return strings.Join(lines, "\n")
}

// RenderStep renders a single step line
func (p *Progress) RenderStep(step Step) string {
	var (
		marker string
		style  lipgloss.Style
	)
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	prefix := fmt.Sprintf("  [%d/%d] ", step.Number, p.Total())

	if p.Plain {
		line := prefix + step.Name + " " + marker
		if step.Message != "" {
			line += " (" + step.Message + ")"
		}
		return line
	}

	// Align markers at a consistent column
	padding := 40 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(style.Render(step.Name))
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))
	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

// StepCallback is the function signature for step progress updates.
// An empty name keeps the configured step name.
type StepCallback func(stepNumber int, name string, status StepStatus, message string)
