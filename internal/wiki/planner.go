package wiki

import (
	"log"
	"sort"
	"strings"

	"github.com/julianshen/docweave/internal/profile"
	"github.com/julianshen/docweave/internal/taxonomy"
)

// Plan selects the applicable templates for a profile and arranges them into
// a two-level tree. Every applicable top-level template becomes a section.
// Children are chosen per selected parent and ordered by (order, id). Topics
// that map to the same file name are deduplicated across the whole tree,
// keeping the shallower one; at equal depth the first in display order wins.
// A dropped top-level topic hands its children to the topic that replaced it.
//
// Plan is deterministic and single-threaded.
func Plan(p profile.Profile, tax *taxonomy.Taxonomy) (*Tree, error) {
	var roots []taxonomy.Template
	children := make(map[string][]taxonomy.Template)
	for _, tpl := range tax.Templates() {
		ok, err := tax.Applicable(tpl, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if tpl.TopLevel() {
			roots = append(roots, tpl)
		} else {
			children[tpl.ParentID] = append(children[tpl.ParentID], tpl)
		}
	}
	if len(roots) == 0 {
		return nil, &EmptyPlanError{Domain: p.BusinessDomain, Pattern: p.ArchitecturePattern}
	}
	sortTemplates(roots)
	for _, kids := range children {
		sortTemplates(kids)
	}

	d := &deduper{claimed: make(map[string]claim)}

	// Top-level topics are claimed before any child so the shallower slot
	// always wins a collision.
	var kept []*Node
	sources := make(map[NodeID][]string)
	for _, tpl := range roots {
		id, fresh := d.claim(tpl, 0)
		if fresh {
			kept = append(kept, &Node{ID: id, Title: tpl.Title, Description: tpl.Description})
		}
		sources[id] = append(sources[id], tpl.ID)
	}

	nodes := make([]Node, 0, len(kept))
	var subsections []Node
	for _, n := range kept {
		for _, src := range sources[n.ID] {
			for _, tpl := range children[src] {
				id, fresh := d.claim(tpl, 1)
				if !fresh {
					continue
				}
				n.Children = append(n.Children, id)
				subsections = append(subsections, Node{
					ID:          id,
					Title:       tpl.Title,
					Description: tpl.Description,
					ParentID:    n.ID,
					Depth:       1,
				})
			}
		}
		nodes = append(nodes, *n)
	}
	nodes = append(nodes, subsections...)

	t, err := NewTree(p, nodes)
	if err != nil {
		return nil, err
	}
	t.resolved = d.resolved
	return t, nil
}

type claim struct {
	id    NodeID
	depth int
}

// deduper hands out titles. Two titles collide when they map to the same file
// name ignoring case, which also covers case-insensitive title equality.
type deduper struct {
	claimed  map[string]claim
	resolved []DuplicateTopicResolved
}

// claim returns the node id owning tpl's title and whether tpl got it.
func (d *deduper) claim(tpl taxonomy.Template, depth int) (NodeID, bool) {
	key := strings.ToLower(FileName(tpl.Title))
	if c, dup := d.claimed[key]; dup {
		ev := DuplicateTopicResolved{
			Title:        tpl.Title,
			Kept:         c.id,
			KeptDepth:    c.depth,
			Dropped:      NodeID(tpl.ID),
			DroppedDepth: depth,
		}
		log.Printf("wiki: DuplicateTopicResolved title=%q kept=%s depth=%d dropped=%s depth=%d",
			ev.Title, ev.Kept, ev.KeptDepth, ev.Dropped, ev.DroppedDepth)
		d.resolved = append(d.resolved, ev)
		return c.id, false
	}
	id := NodeID(tpl.ID)
	d.claimed[key] = claim{id: id, depth: depth}
	return id, true
}

func sortTemplates(tpls []taxonomy.Template) {
	sort.SliceStable(tpls, func(i, j int) bool {
		if tpls[i].Order != tpls[j].Order {
			return tpls[i].Order < tpls[j].Order
		}
		return tpls[i].ID < tpls[j].ID
	})
}
