package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

func (t ResultType) label() string {
	switch t {
	case ResultFailure:
		return "FAILED"
	case ResultWarning:
		return "WARNING"
	default:
		return "SUCCESS"
	}
}

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType        // Success, failure, or warning
	Title           string            // e.g., "Negotiated ocpp2.0.1"
	Details         map[string]string // Key-value details to display
	Error           error             // Error (for failure results)
	Troubleshooting []string          // Troubleshooting tips (for failure results)
	Width           int               // Terminal width
	Plain           bool              // Render without styling
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Troubleshooting: troubleshooting, Width: GetTerminalWidth()}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the result as a string
func (r *Result) Render() string {
	if r.Plain {
		return r.renderPlain()
	}

	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var (
		marker     string
		titleStyle lipgloss.Style
		border     lipgloss.Color
	)
	switch r.Type {
	case ResultFailure:
		marker, titleStyle, border = FailureMarker, ErrorTitleStyle, ErrorColor
	case ResultWarning:
		marker, titleStyle, border = WarningMarker, WarningTitleStyle, WarningColor
	default:
		marker, titleStyle, border = SuccessMarker, SuccessTitleStyle, SuccessColor
	}

	lines := []string{"", titleStyle.Render(fmt.Sprintf("   %s  %s  ─  %s", marker, r.Type.label(), r.Title)), ""}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	for _, key := range sortedKeys(r.Details) {
		lines = append(lines, ResultKeyStyle.Render("   "+key+":")+" "+ResultValueStyle.Render(r.Details[key]))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	innerWidth := width - 12
	if innerWidth < 40 {
		innerWidth = 40
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

func (r *Result) renderPlain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", r.Type.label(), r.Title)
	if r.Error != nil {
		fmt.Fprintf(&b, "  Error: %s\n", r.Error)
	}
	for _, key := range sortedKeys(r.Details) {
		fmt.Fprintf(&b, "  %s: %s\n", key, r.Details[key])
	}
	for _, tip := range r.Troubleshooting {
		fmt.Fprintf(&b, "  - %s\n", tip)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
