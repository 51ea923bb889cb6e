package wiki

import (
	"fmt"
	"sync"
)

// ProgressStatus is the state of one node during content generation.
type ProgressStatus string

const (
	ProgressStarted ProgressStatus = "started"
	ProgressDone    ProgressStatus = "done"
	ProgressStubbed ProgressStatus = "stubbed"
)

// ProgressEvent reports a node changing state during content generation.
type ProgressEvent struct {
	Node     NodeID
	Title    string
	Status   ProgressStatus
	Attempts int
	Reason   string
	Settled  int
	Total    int
}

// ProgressFunc receives progress events. Calls are serialized.
type ProgressFunc func(ProgressEvent)

// progress serializes calls to a ProgressFunc and counts settled nodes.
type progress struct {
	mu      sync.Mutex
	fn      ProgressFunc
	settled int
	total   int
}

func newProgress(fn ProgressFunc, total int) *progress {
	return &progress{fn: fn, total: total}
}

func (p *progress) started(n Node) {
	p.emit(ProgressEvent{Node: n.ID, Title: n.Title, Status: ProgressStarted}, false)
}

func (p *progress) finished(n Node, doc GeneratedDocument) {
	ev := ProgressEvent{Node: n.ID, Title: n.Title, Status: ProgressDone, Attempts: doc.Attempts}
	if doc.Stub() {
		ev.Status = ProgressStubbed
		ev.Reason = string(doc.FailureKind)
	}
	p.emit(ev, true)
}

func (p *progress) emit(ev ProgressEvent, settle bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if settle {
		p.settled++
	}
	if p.fn == nil {
		return
	}
	ev.Settled, ev.Total = p.settled, p.total
	p.fn(ev)
}

// FormatProgress renders an event as a one-line status.
func FormatProgress(ev ProgressEvent) string {
	switch ev.Status {
	case ProgressStarted:
		return fmt.Sprintf("  ● %s...", ev.Title)
	case ProgressDone:
		return fmt.Sprintf("  ✓ %s [%d/%d]", ev.Title, ev.Settled, ev.Total)
	case ProgressStubbed:
		return fmt.Sprintf("  ✗ %s stubbed after %d attempt(s): %s [%d/%d]", ev.Title, ev.Attempts, ev.Reason, ev.Settled, ev.Total)
	default:
		return fmt.Sprintf("  ? %s", ev.Title)
	}
}
