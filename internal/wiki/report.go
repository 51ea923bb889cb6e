package wiki

import (
	"time"

	"github.com/julianshen/docweave/internal/synth"
)

// Report summarizes a run for operators.
type Report struct {
	RunID           string                   `json:"runId,omitempty"`
	Repository      string                   `json:"repository"`
	OutputDir       string                   `json:"outputDir"`
	TaxonomyVersion string                   `json:"taxonomyVersion,omitempty"`
	Nodes           int                      `json:"nodes"`
	OK              int                      `json:"ok"`
	Stubs           []StubEntry              `json:"stubs"`
	Regenerated     []NodeID                 `json:"regenerated,omitempty"`
	Duplicates      []DuplicateTopicResolved `json:"duplicatesResolved,omitempty"`
	Canceled        bool                     `json:"canceled,omitempty"`
	StartedAt       time.Time                `json:"startedAt"`
	Duration        time.Duration            `json:"durationNs"`
}

// StubEntry names a node that fell back to a stub.
type StubEntry struct {
	Node     NodeID          `json:"nodeId"`
	Title    string          `json:"title"`
	Kind     synth.ErrorKind `json:"failureKind"`
	Attempts int             `json:"attempts"`
}

// StubIDs returns the ids of stubbed nodes in display order.
func (r *Report) StubIDs() []NodeID {
	ids := make([]NodeID, len(r.Stubs))
	for i, s := range r.Stubs {
		ids[i] = s.Node
	}
	return ids
}

func buildReport(t *Tree, docs Documents) *Report {
	r := &Report{
		Repository: t.Profile().RepositoryURL,
		Nodes:      t.Len(),
		Stubs:      []StubEntry{},
		Duplicates: t.Resolved(),
	}
	for _, n := range t.Nodes() {
		d := docs[n.ID]
		if d.Stub() {
			r.Stubs = append(r.Stubs, StubEntry{Node: n.ID, Title: n.Title, Kind: d.FailureKind, Attempts: d.Attempts})
			continue
		}
		r.OK++
	}
	return r
}
