// internal/output/formatter.go
package output

import (
	"fmt"

	"github.com/julianshen/docweave/internal/wiki"
)

// Formatter formats a run report into output bytes.
type Formatter interface {
	Format(report *wiki.Report) ([]byte, error)
}

// New returns the formatter for "json" or "markdown".
func New(format string) (Formatter, error) {
	switch format {
	case "", "markdown", "md":
		return NewMarkdownFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	}
	return nil, fmt.Errorf("unknown report format %q (want markdown or json)", format)
}
