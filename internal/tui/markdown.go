// Package tui holds the terminal presentation used by the CLI: styled
// progress lines, a generation status bar and Markdown rendering for
// documentation pages.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Page widths are clamped to this range.
const (
	DefaultPageWidth = 80
	MaxPageWidth     = 100
)

// MarkdownRenderer renders documentation pages for a terminal. The zero
// value passes Markdown through unchanged.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdownRenderer builds a renderer wrapping at width columns, clamped
// to MaxPageWidth. A non-positive width means DefaultPageWidth. Unstyled
// renderers use the notty theme so no escape codes are emitted.
func NewMarkdownRenderer(width int, styled bool) (*MarkdownRenderer, error) {
	switch {
	case width <= 0:
		width = DefaultPageWidth
	case width > MaxPageWidth:
		width = MaxPageWidth
	}
	theme := "notty"
	if styled {
		theme = "dark"
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(theme), glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	return &MarkdownRenderer{renderer: r, width: width}, nil
}

// Width reports the wrap width in use.
func (m *MarkdownRenderer) Width() int { return m.width }

// Render renders a page. Leading blank lines glamour adds are dropped.
func (m *MarkdownRenderer) Render(md string) (string, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}
	if m.renderer == nil {
		return md, nil
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return strings.TrimLeft(out, "\n"), nil
}
