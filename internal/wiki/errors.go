package wiki

import "fmt"

// EmptyPlanError reports a plan with no top-level sections.
type EmptyPlanError struct {
	Domain  string
	Pattern string
}

func (e *EmptyPlanError) Error() string {
	return fmt.Sprintf("empty plan: no top-level topic applies to domain %q with pattern %q", e.Domain, e.Pattern)
}

// TreeInvariantError reports a tree that breaks a structural rule.
type TreeInvariantError struct {
	Node   NodeID
	Reason string
}

func (e *TreeInvariantError) Error() string {
	if e.Node == "" {
		return "tree invariant: " + e.Reason
	}
	return fmt.Sprintf("tree invariant: node %q: %s", e.Node, e.Reason)
}

// BrokenLinkInvariantError reports a link to a node that is not in the tree.
// It means the tree was corrupted after planning and the run must stop.
type BrokenLinkInvariantError struct {
	Source NodeID
	Target NodeID
	Path   string
}

func (e *BrokenLinkInvariantError) Error() string {
	return fmt.Sprintf("broken link invariant: %q links to %q (%s) which is not in the tree", e.Source, e.Target, e.Path)
}
