package wiki

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/julianshen/docweave/internal/profile"
	"github.com/julianshen/docweave/internal/synth"
)

// NodeID identifies a node within one tree. Planned nodes use the id of the
// template they were selected from.
type NodeID string

// Node is one topic in a documentation tree.
type Node struct {
	ID          NodeID
	Title       string
	Description string
	ParentID    NodeID // empty for top-level nodes
	Children    []NodeID
	Depth       int
}

// Root reports whether the node is top-level.
func (n Node) Root() bool { return n.ParentID == "" }

func (n Node) clone() Node {
	n.Children = append([]NodeID(nil), n.Children...)
	return n
}

// Tree is the fixed topic hierarchy for one repository. Nodes live in an arena
// in display order (each root followed by its children) and are addressed by
// id through an index, so nothing outside the package holds node pointers.
// A Tree is read-only once built.
type Tree struct {
	profile profile.Profile
	nodes   []Node
	index   map[NodeID]int
	// duplicates dropped while planning
	resolved []DuplicateTopicResolved
}

// Resolved returns a copy of the duplicate topics dropped while planning.
func (t *Tree) Resolved() []DuplicateTopicResolved {
	return append([]DuplicateTopicResolved(nil), t.resolved...)
}

// DuplicateTopicResolved records a template dropped because another selected
// topic already claimed its title.
type DuplicateTopicResolved struct {
	Title        string `json:"title"`
	Kept         NodeID `json:"kept"`
	KeptDepth    int    `json:"keptDepth"`
	Dropped      NodeID `json:"dropped"`
	DroppedDepth int    `json:"droppedDepth"`
}

// NewTree builds and validates a tree. Roots keep the order in which they
// appear in nodes; children follow the order of their parent's Children list.
func NewTree(p profile.Profile, nodes []Node) (*Tree, error) {
	byID := make(map[NodeID]Node, len(nodes))
	var roots []NodeID
	for _, n := range nodes {
		if n.ID == "" {
			return nil, &TreeInvariantError{Reason: fmt.Sprintf("node %q has an empty id", n.Title)}
		}
		if _, dup := byID[n.ID]; dup {
			return nil, &TreeInvariantError{Node: n.ID, Reason: "duplicate node id"}
		}
		byID[n.ID] = n.clone()
		if n.Root() {
			roots = append(roots, n.ID)
		}
	}

	t := &Tree{profile: p, index: make(map[NodeID]int, len(nodes))}
	for _, id := range roots {
		if _, seen := t.index[id]; seen {
			return nil, &TreeInvariantError{Node: id, Reason: "top-level node listed as a child"}
		}
		t.add(byID[id])
		for _, cid := range byID[id].Children {
			c, ok := byID[cid]
			if !ok {
				return nil, &TreeInvariantError{Node: id, Reason: fmt.Sprintf("child %q does not exist", cid)}
			}
			if c.ParentID != id {
				return nil, &TreeInvariantError{Node: cid, Reason: fmt.Sprintf("listed under %q but its parent is %q", id, c.ParentID)}
			}
			if _, seen := t.index[cid]; seen {
				return nil, &TreeInvariantError{Node: cid, Reason: "listed as a child more than once"}
			}
			t.add(c)
		}
	}
	if len(t.nodes) != len(nodes) {
		for _, n := range nodes {
			if _, ok := t.index[n.ID]; !ok {
				return nil, &TreeInvariantError{Node: n.ID, Reason: fmt.Sprintf("not reachable from parent %q", n.ParentID)}
			}
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) add(n Node) {
	t.index[n.ID] = len(t.nodes)
	t.nodes = append(t.nodes, n)
}

// Validate checks the forest invariants: depth is 0 or 1 and matches the
// parent link, every parent exists and lists the node, no node is its own
// ancestor, and siblings never share a title or a file name.
func (t *Tree) Validate() error {
	for _, n := range t.nodes {
		if n.Root() {
			if n.Depth != 0 {
				return &TreeInvariantError{Node: n.ID, Reason: fmt.Sprintf("top-level node at depth %d", n.Depth)}
			}
			continue
		}
		if n.Depth != 1 {
			return &TreeInvariantError{Node: n.ID, Reason: fmt.Sprintf("subsection at depth %d", n.Depth)}
		}
		if n.ParentID == n.ID {
			return &TreeInvariantError{Node: n.ID, Reason: "node is its own parent"}
		}
		pi, ok := t.index[n.ParentID]
		if !ok {
			return &TreeInvariantError{Node: n.ID, Reason: fmt.Sprintf("parent %q does not exist", n.ParentID)}
		}
		parent := t.nodes[pi]
		if !parent.Root() {
			return &TreeInvariantError{Node: n.ID, Reason: fmt.Sprintf("parent %q is not top-level", n.ParentID)}
		}
		if !containsID(parent.Children, n.ID) {
			return &TreeInvariantError{Node: n.ID, Reason: fmt.Sprintf("parent %q does not list it", n.ParentID)}
		}
		if len(n.Children) > 0 {
			return &TreeInvariantError{Node: n.ID, Reason: "subsections cannot have children"}
		}
	}

	for _, group := range t.siblingGroups() {
		titles := make(map[string]NodeID, len(group))
		files := make(map[string]NodeID, len(group))
		for _, n := range group {
			key := strings.ToLower(n.Title)
			if other, dup := titles[key]; dup {
				return &TreeInvariantError{Node: n.ID, Reason: fmt.Sprintf("sibling %q has the same title", other)}
			}
			titles[key] = n.ID
			file := strings.ToLower(FileName(n.Title))
			if other, dup := files[file]; dup {
				return &TreeInvariantError{Node: n.ID, Reason: fmt.Sprintf("sibling %q has the same file name", other)}
			}
			files[file] = n.ID
		}
	}
	return nil
}

func (t *Tree) siblingGroups() [][]Node {
	groups := [][]Node{t.Roots()}
	for _, r := range t.Roots() {
		groups = append(groups, t.Children(r.ID))
	}
	return groups
}

// Profile returns the profile the tree was planned for.
func (t *Tree) Profile() profile.Profile { return t.profile }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Nodes returns every node in display order.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.clone()
	}
	return out
}

// Node looks up a node by id.
func (t *Tree) Node(id NodeID) (Node, bool) {
	i, ok := t.index[id]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i].clone(), true
}

// Roots returns the top-level nodes in display order.
func (t *Tree) Roots() []Node {
	var out []Node
	for _, n := range t.nodes {
		if n.Root() {
			out = append(out, n.clone())
		}
	}
	return out
}

// Children returns the children of id in display order.
func (t *Tree) Children(id NodeID) []Node {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	out := make([]Node, 0, len(t.nodes[i].Children))
	for _, cid := range t.nodes[i].Children {
		out = append(out, t.nodes[t.index[cid]].clone())
	}
	return out
}

// Parent returns the parent of id, if any.
func (t *Tree) Parent(id NodeID) (Node, bool) {
	n, ok := t.Node(id)
	if !ok || n.Root() {
		return Node{}, false
	}
	return t.Node(n.ParentID)
}

// Siblings returns the other nodes sharing id's parent. Top-level nodes are
// siblings of each other.
func (t *Tree) Siblings(id NodeID) []Node {
	n, ok := t.Node(id)
	if !ok {
		return nil
	}
	var group []Node
	if n.Root() {
		group = t.Roots()
	} else {
		group = t.Children(n.ParentID)
	}
	out := make([]Node, 0, len(group))
	for _, s := range group {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func containsID(ids []NodeID, id NodeID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Status is the outcome of generating one document.
type Status string

const (
	StatusOK   Status = "ok"
	StatusStub Status = "stub-on-failure"
)

// stubBody is the placeholder used when generation exhausts its retries.
const stubBody = "content generation failed for this section"

// CrossLink is a resolved link from one document to another node.
type CrossLink struct {
	Target       NodeID `json:"targetNodeId"`
	RelativePath string `json:"relativePath"`
}

// GeneratedDocument is the content produced for one node. Documents are never
// patched; regeneration and reconciliation produce new values.
type GeneratedDocument struct {
	NodeID      NodeID          `json:"nodeId"`
	Content     string          `json:"contentMarkdown"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Status      Status          `json:"status"`
	CrossLinks  []CrossLink     `json:"crossLinks"`
	Attempts    int             `json:"attempts"`
	FailureKind synth.ErrorKind `json:"failureKind,omitempty"`
	// Generation counts regenerations of the node, starting at 1.
	Generation int `json:"generation"`
}

// Stub reports whether the document is a placeholder.
func (d GeneratedDocument) Stub() bool { return d.Status == StatusStub }

// Documents maps node ids to their documents.
type Documents map[NodeID]GeneratedDocument

// structureEntry is one element of documentation_structure.json.
type structureEntry struct {
	ID       NodeID   `json:"id"`
	Title    string   `json:"title"`
	ParentID *NodeID  `json:"parentId"`
	Children []NodeID `json:"children"`
	Depth    int      `json:"depth"`
}

// MarshalStructure serializes the tree as an array of
// {id, title, parentId, children, depth} in display order.
func MarshalStructure(t *Tree) ([]byte, error) {
	entries := make([]structureEntry, 0, len(t.nodes))
	for _, n := range t.nodes {
		e := structureEntry{ID: n.ID, Title: n.Title, Children: n.Children, Depth: n.Depth}
		if e.Children == nil {
			e.Children = []NodeID{}
		}
		if !n.Root() {
			parent := n.ParentID
			e.ParentID = &parent
		}
		entries = append(entries, e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal structure: %w", err)
	}
	return append(data, '\n'), nil
}

// ParseStructure rebuilds a tree from documentation_structure.json.
// Descriptions are not part of the structure and come back empty.
func ParseStructure(p profile.Profile, data []byte) (*Tree, error) {
	var entries []structureEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse structure: %w", err)
	}
	nodes := make([]Node, 0, len(entries))
	for _, e := range entries {
		n := Node{ID: e.ID, Title: e.Title, Children: e.Children, Depth: e.Depth}
		if e.ParentID != nil {
			n.ParentID = *e.ParentID
		}
		nodes = append(nodes, n)
	}
	return NewTree(p, nodes)
}

type snapshotNode struct {
	ID          NodeID   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ParentID    NodeID   `json:"parentId,omitempty"`
	Children    []NodeID `json:"children,omitempty"`
	Depth       int      `json:"depth"`
}

// Snapshot serializes the tree including node descriptions, for the ledger.
func (t *Tree) Snapshot() ([]byte, error) {
	out := make([]snapshotNode, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = snapshotNode(n)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("snapshot tree: %w", err)
	}
	return data, nil
}

// RestoreTree rebuilds a tree from Snapshot output.
func RestoreTree(p profile.Profile, data []byte) (*Tree, error) {
	var in []snapshotNode
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("restore tree: %w", err)
	}
	nodes := make([]Node, len(in))
	for i, n := range in {
		nodes[i] = Node(n)
	}
	return NewTree(p, nodes)
}
