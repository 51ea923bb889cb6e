package wiki

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianshen/docweave/internal/synth"
)

// GenerateConfig controls content generation.
type GenerateConfig struct {
	Concurrency int // max concurrent synthesizer calls
	Progress    ProgressFunc
	// Now stamps generated documents. Nil uses time.Now.
	Now func() time.Time
}

// DefaultGenerateConfig returns sensible defaults for generation.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Concurrency: 5}
}

// Generate produces a document for every node in the tree.
func Generate(ctx context.Context, t *Tree, s synth.Synthesizer, cfg GenerateConfig) Documents {
	return generate(ctx, t, t.Nodes(), s, cfg, nil)
}

// generate fans out one task per node through a bounded pool and returns once
// every task has settled. Each task writes only its own slot. Failed
// generations become stubs; nodes not started before ctx is done are stubbed
// as canceled, so the result always covers every requested node.
func generate(ctx context.Context, t *Tree, nodes []Node, s synth.Synthesizer, cfg GenerateConfig, prev Documents) Documents {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	prog := newProgress(cfg.Progress, len(nodes))

	slots := make([]GeneratedDocument, len(nodes))
	filled := make([]bool, len(nodes))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, n := range nodes {
		if ctx.Err() != nil {
			break
		}
		generation := prev[n.ID].Generation + 1
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			prog.started(n)
			res := s.Generate(ctx, requestFor(t, n))
			doc := documentFor(n, res, now().UTC(), generation)
			if doc.Stub() {
				log.Printf("WARNING: node %q stubbed after %d attempt(s): %v", n.ID, doc.Attempts, res.Err)
			}
			slots[i] = doc
			filled[i] = true
			prog.finished(n, doc)
			return nil
		})
	}
	_ = g.Wait()

	out := make(Documents, len(nodes))
	for i, n := range nodes {
		if !filled[i] {
			slots[i] = documentFor(n, synth.Result{Err: synth.Canceled(ctx.Err())}, now().UTC(), prev[n.ID].Generation+1)
			prog.finished(n, slots[i])
		}
		out[n.ID] = slots[i]
	}
	return out
}

// requestFor builds the structural context for one node: titles of its
// parent, siblings and children, never their content.
func requestFor(t *Tree, n Node) synth.Request {
	req := synth.Request{
		NodeID:      string(n.ID),
		Title:       n.Title,
		Description: n.Description,
		Profile:     t.Profile(),
	}
	if parent, ok := t.Parent(n.ID); ok {
		req.ParentTitle = parent.Title
	}
	for _, s := range t.Siblings(n.ID) {
		req.SiblingTitles = append(req.SiblingTitles, s.Title)
	}
	for _, c := range t.Children(n.ID) {
		req.ChildTitles = append(req.ChildTitles, c.Title)
	}
	return req
}

func documentFor(n Node, res synth.Result, at time.Time, generation int) GeneratedDocument {
	doc := GeneratedDocument{
		NodeID:      n.ID,
		GeneratedAt: at,
		Attempts:    res.Attempts,
		Generation:  generation,
		CrossLinks:  []CrossLink{},
	}
	if res.OK() {
		doc.Status = StatusOK
		doc.Content = res.Markdown
		return doc
	}
	doc.Status = StatusStub
	doc.FailureKind = res.Kind()
	doc.Content = stubContent(n)
	return doc
}

func stubContent(n Node) string {
	return fmt.Sprintf("# %s\n\n> %s\n", n.Title, stubBody)
}
