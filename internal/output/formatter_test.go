// internal/output/formatter_test.go
package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/docweave/internal/synth"
	"github.com/julianshen/docweave/internal/wiki"
)

func sampleReport() *wiki.Report {
	return &wiki.Report{
		RunID:           "3f2b9c1e-0000-4000-8000-000000000001",
		Repository:      "https://github.com/facebook/react",
		OutputDir:       "docs/facebook_react/20261014_093000",
		TaxonomyVersion: "1.0.0",
		Nodes:           3,
		OK:              2,
		Stubs: []wiki.StubEntry{
			{Node: "build-system", Title: "Build System and Tooling", Kind: synth.KindTimeout, Attempts: 3},
		},
		Duplicates: []wiki.DuplicateTopicResolved{
			{Title: "Testing Strategy", Kept: "testing", KeptDepth: 0, Dropped: "unit-testing", DroppedDepth: 1},
		},
		StartedAt: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
		Duration:  2 * time.Second,
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "markdown", "md"} {
		f, err := New(name)
		require.NoError(t, err)
		assert.IsType(t, &MarkdownFormatter{}, f)
	}
	f, err := New("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	_, err = New("xml")
	assert.Error(t, err)
}
