package wiki

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/julianshen/docweave/internal/profile"
	"github.com/julianshen/docweave/internal/synth"
	"github.com/julianshen/docweave/internal/taxonomy"
)

// Recorder persists runs so stubbed nodes can be regenerated later.
type Recorder interface {
	BeginRun(ctx context.Context, run RunInfo) (string, error)
	SaveDocuments(ctx context.Context, runID string, docs []GeneratedDocument) error
}

// RunInfo describes a run when it is first recorded.
type RunInfo struct {
	OutputDir       string
	TaxonomyVersion string
	Profile         profile.Profile
	Tree            *Tree
	StartedAt       time.Time
}

// Config holds all pipeline configuration.
type Config struct {
	// OutputRoot is the base directory; see BundleDir.
	OutputRoot string
	Versioned  bool
	Format     string
	Generate   GenerateConfig
	Recorder   Recorder // optional
	// Quiet suppresses stage lines on stderr.
	Quiet bool
}

// Run executes the full pipeline: profile -> plan -> generate -> reconcile ->
// assemble -> write. Profiling and planning failures abort before anything
// is written. Generation failures only produce stubs. A run canceled during
// generation still writes a consistent bundle with the unfinished nodes
// stubbed and reports Canceled.
func Run(ctx context.Context, sig profile.Signals, tax *taxonomy.Taxonomy, s synth.Synthesizer, cfg Config) (*Report, error) {
	now := cfg.Generate.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	cfg.stage("profiling %s...", sig.RepositoryURL)
	p, err := profile.Classify(sig)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}

	cfg.stage("planning (%s, %s)...", p.BusinessDomain, p.ArchitecturePattern)
	tree, err := Plan(p, tax)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := BundleDir(cfg.OutputRoot, p, started, cfg.Versioned)
	version := tax.Version().Original()
	runID := cfg.begin(ctx, RunInfo{
		OutputDir:       dir,
		TaxonomyVersion: version,
		Profile:         p,
		Tree:            tree,
		StartedAt:       started,
	})

	cfg.stage("generating %d sections...", tree.Len())
	docs := Generate(ctx, tree, s, cfg.Generate)
	canceled := ctx.Err() != nil
	cfg.save(ctx, runID, tree.Nodes(), docs)

	report, err := finish(tree, docs, dir, cfg)
	if err != nil {
		return nil, err
	}
	report.RunID = runID
	report.TaxonomyVersion = version
	report.Canceled = canceled
	report.StartedAt = started
	report.Duration = now().Sub(started)
	return report, nil
}

// RegenInput identifies the recorded run to regenerate.
type RegenInput struct {
	RunID     string
	OutputDir string
	Tree      *Tree
	// Documents holds the latest generation of every node.
	Documents Documents
	// Nodes limits regeneration; empty means every stubbed node.
	Nodes []NodeID
}

// Regenerate re-runs generation for selected nodes of a recorded run without
// re-planning, then reconciles and writes the whole bundle again in place.
// A node canceled before it settles keeps its recorded ok document.
func Regenerate(ctx context.Context, in RegenInput, s synth.Synthesizer, cfg Config) (*Report, error) {
	now := cfg.Generate.Now
	if now == nil {
		now = time.Now
	}
	started := now()

	targets, err := regenTargets(in)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg.stage("regenerating %d sections...", len(targets))
	fresh := generate(ctx, in.Tree, targets, s, cfg.Generate, in.Documents)
	canceled := ctx.Err() != nil
	if canceled {
		targets = keepSettled(targets, fresh, in.Documents)
	}
	cfg.save(ctx, in.RunID, targets, fresh)

	merged := make(Documents, len(in.Documents))
	for id, d := range in.Documents {
		merged[id] = d
	}
	for _, n := range targets {
		merged[n.ID] = fresh[n.ID]
	}

	report, err := finish(in.Tree, merged, in.OutputDir, cfg)
	if err != nil {
		return nil, err
	}
	report.RunID = in.RunID
	for _, n := range targets {
		report.Regenerated = append(report.Regenerated, n.ID)
	}
	report.Canceled = canceled
	report.StartedAt = started
	report.Duration = now().Sub(started)
	return report, nil
}

// keepSettled drops targets whose fresh document is a cancellation stub but
// whose recorded document is ok. The recorded document stays latest.
func keepSettled(targets []Node, fresh, prev Documents) []Node {
	kept := make([]Node, 0, len(targets))
	for _, n := range targets {
		d := fresh[n.ID]
		old, ok := prev[n.ID]
		if d.Stub() && d.FailureKind == synth.KindCanceled && ok && !old.Stub() {
			delete(fresh, n.ID)
			continue
		}
		kept = append(kept, n)
	}
	return kept
}

func regenTargets(in RegenInput) ([]Node, error) {
	var targets []Node
	if len(in.Nodes) > 0 {
		for _, id := range in.Nodes {
			n, ok := in.Tree.Node(id)
			if !ok {
				return nil, fmt.Errorf("regen: no node %q in run %s", id, in.RunID)
			}
			targets = append(targets, n)
		}
		return targets, nil
	}
	for _, n := range in.Tree.Nodes() {
		if d, ok := in.Documents[n.ID]; !ok || d.Stub() {
			targets = append(targets, n)
		}
	}
	return targets, nil
}

// finish runs reconciliation and assembly once every document has settled.
func finish(tree *Tree, docs Documents, dir string, cfg Config) (*Report, error) {
	cfg.stage("reconciling links...")
	linked, err := Reconcile(tree, docs)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	bundle, err := Assemble(tree.Profile(), tree, linked, AssembleConfig{Format: cfg.Format})
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	cfg.stage("writing %d documents to %s...", len(bundle.Pages)+1, dir)
	if err := Write(dir, bundle); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	report := buildReport(tree, linked)
	report.OutputDir = dir
	return report, nil
}

func (cfg Config) begin(ctx context.Context, run RunInfo) string {
	if cfg.Recorder == nil {
		return ""
	}
	id, err := cfg.Recorder.BeginRun(ctx, run)
	if err != nil {
		log.Printf("WARNING: recording run: %v", err)
		return ""
	}
	return id
}

// save records generated documents. It runs even after cancellation so a
// canceled run can still be regenerated.
func (cfg Config) save(ctx context.Context, runID string, nodes []Node, docs Documents) {
	if cfg.Recorder == nil || runID == "" || len(nodes) == 0 {
		return
	}
	out := make([]GeneratedDocument, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, docs[n.ID])
	}
	if err := cfg.Recorder.SaveDocuments(context.WithoutCancel(ctx), runID, out); err != nil {
		log.Printf("WARNING: recording documents for run %s: %v", runID, err)
	}
}

func (cfg Config) stage(format string, args ...any) {
	if cfg.Quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "docweave: "+format+"\n", args...)
}
