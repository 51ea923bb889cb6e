// internal/output/markdown.go
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianshen/docweave/internal/wiki"
)

// MarkdownFormatter outputs a report as human-readable Markdown.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format renders the report as Markdown.
func (f *MarkdownFormatter) Format(r *wiki.Report) ([]byte, error) {
	var b strings.Builder

	b.WriteString("## Documentation generated\n\n")
	fmt.Fprintf(&b, "- **Repository**: %s\n", r.Repository)
	fmt.Fprintf(&b, "- **Output**: %s\n", r.OutputDir)
	if r.RunID != "" {
		fmt.Fprintf(&b, "- **Run**: %s\n", r.RunID)
	}
	if r.TaxonomyVersion != "" {
		fmt.Fprintf(&b, "- **Taxonomy**: %s\n", r.TaxonomyVersion)
	}
	fmt.Fprintf(&b, "- **Sections**: %d (%d ok, %d stubbed)\n", r.Nodes, r.OK, len(r.Stubs))

	if r.Canceled {
		b.WriteString("\n> Generation was canceled. Unfinished sections are stubbed.\n")
	}

	if len(r.Regenerated) > 0 {
		b.WriteString("\n### Regenerated\n\n")
		for _, id := range r.Regenerated {
			fmt.Fprintf(&b, "- %s\n", id)
		}
	}

	if len(r.Stubs) > 0 {
		b.WriteString("\n### Stubbed sections\n\n")
		b.WriteString("| Section | Failure | Attempts |\n")
		b.WriteString("|---|---|---|\n")
		for _, s := range r.Stubs {
			fmt.Fprintf(&b, "| %s (`%s`) | %s | %d |\n", s.Title, s.Node, s.Kind, s.Attempts)
		}
		if r.RunID != "" {
			fmt.Fprintf(&b, "\nRun `docweave regen %s` to retry them.\n", r.RunID)
		}
	}

	if len(r.Duplicates) > 0 {
		b.WriteString("\n### Duplicate topics resolved\n\n")
		for _, d := range r.Duplicates {
			fmt.Fprintf(&b, "- %q: kept `%s` (depth %d), dropped `%s` (depth %d)\n",
				d.Title, d.Kept, d.KeptDepth, d.Dropped, d.DroppedDepth)
		}
	}

	fmt.Fprintf(&b, "\n---\n*Completed in %s*\n", r.Duration.Round(100*time.Millisecond))
	return []byte(b.String()), nil
}
