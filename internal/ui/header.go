package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header represents a command header with title, command, and parameters.
type Header struct {
	Title   string            // e.g., "SUBPROTOCOL PROBE"
	Command string            // e.g., "wsgate-probe connect ws://gateway:9000/"
	Params  map[string]string // e.g., {"Offered": "ocpp2.0.1, ocpp1.6"}
	Width   int               // Terminal width for responsive rendering
	Plain   bool              // Render without styling
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params map[string]string) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// Render returns the header as a string
func (h *Header) Render() string {
	if h.Plain {
		return h.renderPlain()
	}

	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)

	content := top
	if len(h.Params) > 0 {
		var lines []string
		for _, key := range sortedKeys(h.Params) {
			lines = append(lines, HeaderParamKeyStyle.Render(key+":")+" "+HeaderParamValueStyle.Render(h.Params[key]))
		}
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider(width-6), strings.Join(lines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

func (h *Header) renderPlain() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(h.Title))
	b.WriteString("\n")
	if h.Command != "" {
		b.WriteString(h.Command)
		b.WriteString("\n")
	}
	for _, key := range sortedKeys(h.Params) {
		b.WriteString("  " + key + ": " + h.Params[key] + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
