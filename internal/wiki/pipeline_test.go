package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/docweave/internal/profile"
	"github.com/julianshen/docweave/internal/synth"
)

func webSignals() profile.Signals {
	return profile.Signals{
		RepositoryURL: "https://github.com/facebook/react",
		Name:          "react",
		Description:   "The library for web and native user interfaces.",
		Topics:        []string{"react", "frontend", "ui", "javascript"},
		Readme:        "React is a JavaScript library for building user interfaces with reusable components.",
		Languages:     map[string]int64{"JavaScript": 9000, "TypeScript": 1000},
		Manifests:     []string{"package.json"},
		Dependencies:  []string{"react", "react-dom"},
		LOC:           250_000,
		FileCount:     2500,
	}
}

// memRecorder keeps runs in memory.
type memRecorder struct {
	mu   sync.Mutex
	runs []RunInfo
	docs map[string][]GeneratedDocument
}

func (r *memRecorder) BeginRun(_ context.Context, run RunInfo) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return "run-1", nil
}

func (r *memRecorder) SaveDocuments(_ context.Context, runID string, docs []GeneratedDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.docs == nil {
		r.docs = make(map[string][]GeneratedDocument)
	}
	r.docs[runID] = append(r.docs[runID], docs...)
	return nil
}

func quietConfig(root string) Config {
	return Config{
		OutputRoot: root,
		Generate:   GenerateConfig{Concurrency: 3, Now: fixedNow},
		Quiet:      true,
	}
}

func TestRunThreeSections(t *testing.T) {
	out := t.TempDir()
	report, err := Run(context.Background(), webSignals(), mustTaxonomy(t, threeSections), &mockSynth{}, quietConfig(out))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Nodes)
	assert.Equal(t, 3, report.OK)
	assert.Empty(t, report.Stubs)
	assert.Equal(t, "1.0.0", report.TaxonomyVersion)
	assert.Equal(t, out, report.OutputDir)

	readme := readTestFile(t, filepath.Join(out, indexFile))
	for _, title := range []string{"Overview", "Component Architecture", "Integration Patterns"} {
		assert.Contains(t, readme, "- ["+title+"](<./"+title+".md>)")
		assertFileExists(t, filepath.Join(out, title+".md"))
	}

	var structure []map[string]any
	require.NoError(t, json.Unmarshal([]byte(readTestFile(t, filepath.Join(out, StructureFile))), &structure))
	require.Len(t, structure, 3)
	for _, e := range structure {
		assert.Equal(t, float64(0), e["depth"])
	}
}

func TestRunChildLinksBackToParent(t *testing.T) {
	out := t.TempDir()
	_, err := Run(context.Background(), webSignals(), mustTaxonomy(t, withRenderers), &mockSynth{}, quietConfig(out))
	require.NoError(t, err)

	child := readTestFile(t, filepath.Join(out, "Custom Renderer Development.md"))
	assert.Contains(t, child, "[Platform Renderers](<./Platform Renderers.md>)")

	parent := readTestFile(t, filepath.Join(out, "Platform Renderers.md"))
	assert.Contains(t, parent, "[Custom Renderer Development](<./Custom Renderer Development.md>)")
}

func TestRunTimeoutStubsOneNode(t *testing.T) {
	tax := mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: overview, title: Overview, patterns: [Component-based]}
  - {id: build-system, title: Build System and Tooling, patterns: [Component-based]}
  - {id: testing, title: Testing Strategy, patterns: [Component-based]}
`)
	var mu sync.Mutex
	calls := map[string]int{}
	base := synth.Func(func(ctx context.Context, req synth.Request) synth.Result {
		mu.Lock()
		calls[req.NodeID]++
		mu.Unlock()
		if req.NodeID == "build-system" {
			return synth.Failed(synth.Timeout(context.DeadlineExceeded))
		}
		return synth.Ok("# " + req.Title + "\n\nFine.\n")
	})
	s := synth.Chain(base, synth.WithRetry(synth.RetryPolicy{
		MaxAttempts: 3,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}))

	out := t.TempDir()
	rec := &memRecorder{}
	cfg := quietConfig(out)
	cfg.Recorder = rec
	report, err := Run(context.Background(), webSignals(), tax, s, cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, calls["build-system"])
	require.Len(t, report.Stubs, 1)
	assert.Equal(t, StubEntry{Node: "build-system", Title: "Build System and Tooling", Kind: synth.KindTimeout, Attempts: 3}, report.Stubs[0])
	assert.Equal(t, 2, report.OK)
	assert.Equal(t, "run-1", report.RunID)

	structure := readTestFile(t, filepath.Join(out, StructureFile))
	assert.Contains(t, structure, `"id": "build-system"`)

	stub := readTestFile(t, filepath.Join(out, "Build System and Tooling.md"))
	assert.Contains(t, stub, "content generation failed for this section")

	for _, sibling := range []string{"Overview.md", "Testing Strategy.md"} {
		page := readTestFile(t, filepath.Join(out, sibling))
		assert.Contains(t, page, "[Build System and Tooling](<./Build System and Tooling.md>)", sibling)
	}

	require.Len(t, rec.runs, 1)
	assert.Equal(t, out, rec.runs[0].OutputDir)
	saved := rec.docs["run-1"]
	require.Len(t, saved, 3)
	for _, d := range saved {
		assert.NotContains(t, d.Content, "Related Documentation", "the ledger keeps raw content")
	}
}

func TestRunIncompleteProfileWritesNothing(t *testing.T) {
	sig := webSignals()
	sig.Languages = nil

	out := filepath.Join(t.TempDir(), "bundle")
	m := &mockSynth{}
	_, err := Run(context.Background(), sig, mustTaxonomy(t, threeSections), m, quietConfig(out))

	var incomplete *profile.IncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, "languageHistogram", incomplete.Field)
	assert.Empty(t, m.requests)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunEmptyPlanWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bundle")
	_, err := Run(context.Background(), webSignals(), mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: services, title: Services, patterns: [Microservices]}
`), &mockSynth{}, quietConfig(out))

	var empty *EmptyPlanError
	require.True(t, errors.As(err, &empty))
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCanceledBeforeGeneration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(t.TempDir(), "bundle")
	_, err := Run(ctx, webSignals(), mustTaxonomy(t, threeSections), &mockSynth{}, quietConfig(out))
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunVersionedLayout(t *testing.T) {
	root := t.TempDir()
	cfg := quietConfig(root)
	cfg.Versioned = true
	report, err := Run(context.Background(), webSignals(), mustTaxonomy(t, threeSections), &mockSynth{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "facebook_react", "20261014_093000"), report.OutputDir)
	assertFileExists(t, filepath.Join(report.OutputDir, StructureFile))
}

func TestRegenerateStubs(t *testing.T) {
	tree := sampleTree(t)
	docs := okDocs(tree, nil)
	for _, id := range []NodeID{"reconciler", "build-system"} {
		d := docs[id]
		d.Status = StatusStub
		d.FailureKind = synth.KindRateLimited
		d.Content = stubContent(Node{Title: string(id)})
		docs[id] = d
	}

	out := t.TempDir()
	m := &mockSynth{}
	rec := &memRecorder{}
	cfg := quietConfig(out)
	cfg.Recorder = rec
	report, err := Regenerate(context.Background(), RegenInput{RunID: "run-9", OutputDir: out, Tree: tree, Documents: docs}, m, cfg)
	require.NoError(t, err)

	assert.Equal(t, []NodeID{"reconciler", "build-system"}, report.Regenerated)
	assert.Empty(t, report.Stubs)
	assert.Len(t, m.requests, 2)

	saved := rec.docs["run-9"]
	require.Len(t, saved, 2)
	for _, d := range saved {
		assert.Equal(t, 2, d.Generation)
		assert.Equal(t, StatusOK, d.Status)
	}
	assert.Equal(t, 1, docs["reconciler"].Generation, "input documents are not patched")

	page := readTestFile(t, filepath.Join(out, "Reconciler.md"))
	assert.Contains(t, page, "Generated.")
	assert.True(t, strings.Contains(page, "**Parent:** [Platform Renderers](<./Platform Renderers.md>)"))
	assertFileExists(t, filepath.Join(out, "Overview.md"))
}

func TestRegenerateNamedNodes(t *testing.T) {
	tree := sampleTree(t)
	docs := okDocs(tree, nil)
	m := &mockSynth{}

	report, err := Regenerate(context.Background(), RegenInput{OutputDir: t.TempDir(), Tree: tree, Documents: docs, Nodes: []NodeID{"overview"}}, m, quietConfig(""))
	require.NoError(t, err)
	assert.Equal(t, []NodeID{"overview"}, report.Regenerated)
	assert.Len(t, m.requests, 1)

	_, err = Regenerate(context.Background(), RegenInput{Tree: tree, Documents: docs, Nodes: []NodeID{"missing"}}, m, quietConfig(""))
	assert.Error(t, err)
}

func TestRegenerateCanceledBeforeGeneration(t *testing.T) {
	tree := sampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "bundle")
	m := &mockSynth{}
	rec := &memRecorder{}
	cfg := quietConfig(out)
	cfg.Recorder = rec
	_, err := Regenerate(ctx, RegenInput{RunID: "run-9", OutputDir: out, Tree: tree, Documents: okDocs(tree, nil), Nodes: []NodeID{"overview"}}, m, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.requests)
	assert.Empty(t, rec.docs)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRegenerateCanceledKeepsGoodDocuments(t *testing.T) {
	tree := sampleTree(t)
	docs := okDocs(tree, nil)
	stub := docs["reconciler"]
	stub.Status = StatusStub
	stub.FailureKind = synth.KindTimeout
	stub.Content = stubContent(Node{Title: "Reconciler"})
	docs["reconciler"] = stub

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &mockSynth{answer: func(req synth.Request) synth.Result {
		cancel()
		return synth.Failed(synth.Canceled(context.Canceled))
	}}

	out := t.TempDir()
	rec := &memRecorder{}
	cfg := quietConfig(out)
	cfg.Generate.Concurrency = 1
	cfg.Recorder = rec
	report, err := Regenerate(ctx, RegenInput{
		RunID:     "run-9",
		OutputDir: out,
		Tree:      tree,
		Documents: docs,
		Nodes:     []NodeID{"overview", "build-system", "reconciler"},
	}, m, cfg)
	require.NoError(t, err)

	assert.True(t, report.Canceled)
	assert.Equal(t, []NodeID{"reconciler"}, report.Regenerated, "only the stub is replaced")

	saved := rec.docs["run-9"]
	require.Len(t, saved, 1)
	assert.Equal(t, NodeID("reconciler"), saved[0].NodeID)
	assert.Equal(t, synth.KindCanceled, saved[0].FailureKind)
	assert.Equal(t, 2, saved[0].Generation)

	assert.Contains(t, readTestFile(t, filepath.Join(out, "Overview.md")), "Body.")
	assert.Contains(t, readTestFile(t, filepath.Join(out, "Build System and Tooling.md")), "Body.")
}
