// internal/output/json.go
package output

import (
	"encoding/json"

	"github.com/julianshen/docweave/internal/wiki"
)

// JSONFormatter outputs a report as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format marshals the report as indented JSON with a trailing newline.
func (f *JSONFormatter) Format(report *wiki.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
