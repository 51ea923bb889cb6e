package tui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianshen/docweave/internal/wiki"
)

var (
	startedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#666666"})
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008800", Dark: "#44CC44"})
	stubbedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC8800", Dark: "#FFAA00"})
)

// ProgressPrinter writes one line per progress event. Styled output colors
// the line by status; plain output is exactly wiki.FormatProgress.
type ProgressPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
	stubs  int
	last   wiki.ProgressEvent
}

// NewProgressPrinter creates a ProgressPrinter writing to w.
func NewProgressPrinter(w io.Writer, styled bool) *ProgressPrinter {
	return &ProgressPrinter{w: w, styled: styled}
}

// Print renders ev. It has the signature of wiki.ProgressFunc.
func (p *ProgressPrinter) Print(ev wiki.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev.Status == wiki.ProgressStubbed {
		p.stubs++
	}
	if ev.Status != wiki.ProgressStarted {
		p.last = ev
	}

	line := wiki.FormatProgress(ev)
	if p.styled {
		switch ev.Status {
		case wiki.ProgressStarted:
			line = startedStyle.Render(line)
		case wiki.ProgressDone:
			line = doneStyle.Render(line)
		case wiki.ProgressStubbed:
			line = stubbedStyle.Render(line)
		}
	}
	fmt.Fprintln(p.w, line)
}

// Status fills a StatusBar from the events printed so far.
func (p *ProgressPrinter) Status(sb *StatusBar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sb.SetProgress(p.last.Settled, p.last.Total)
	sb.SetStubs(p.stubs)
}
