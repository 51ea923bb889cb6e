package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar summarizes a generation: settled sections, stubs and token usage.
type StatusBar struct {
	settled      int
	total        int
	stubs        int
	inputTokens  int64
	outputTokens int64
	style        lipgloss.Style
}

// NewStatusBar creates an empty StatusBar.
func NewStatusBar() *StatusBar {
	return &StatusBar{
		style: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}),
	}
}

// SetProgress sets the settled and total section counts.
func (s *StatusBar) SetProgress(settled, total int) { s.settled = settled; s.total = total }

// SetStubs sets the number of stubbed sections.
func (s *StatusBar) SetStubs(n int) { s.stubs = n }

// SetTokens sets the cumulative input and output token counts.
func (s *StatusBar) SetTokens(in, out int64) { s.inputTokens = in; s.outputTokens = out }

// View renders the status bar as a styled string.
func (s *StatusBar) View() string {
	line := fmt.Sprintf(" %d/%d sections  %d stubbed", s.settled, s.total, s.stubs)
	if s.inputTokens > 0 || s.outputTokens > 0 {
		line += fmt.Sprintf("  %s in / %s out tokens", formatTokens(s.inputTokens), formatTokens(s.outputTokens))
	}
	return s.style.Render(line)
}

// formatTokens formats a token count for compact display.
func formatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1000:
		if n%1000 == 0 {
			return fmt.Sprintf("%dk", n/1000)
		}
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}
