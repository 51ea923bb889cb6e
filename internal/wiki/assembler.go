package wiki

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/julianshen/docweave/internal/profile"
)

// Bundle artifact names.
const (
	StructureFile = "documentation_structure.json"
	MetadataFile  = "repository_metadata.json"
)

// Page formats.
const (
	FormatMarkdown   = "markdown"
	FormatHugo       = "hugo"
	FormatDocusaurus = "docusaurus"
)

// Page is one markdown file of a bundle.
type Page struct {
	Node NodeID // empty for the index
	Name string
	Data []byte
}

// Bundle is the serialized output of a run, ready to be written.
type Bundle struct {
	Structure []byte
	Metadata  []byte
	Pages     []Page
	Index     Page
}

// AssembleConfig controls page serialization.
type AssembleConfig struct {
	// Format adds front matter for a static site generator. Empty means plain
	// markdown.
	Format string
}

// Assemble serializes the tree, the profile and one page per reconciled
// document. Output depends only on its inputs.
func Assemble(p profile.Profile, t *Tree, docs Documents, cfg AssembleConfig) (*Bundle, error) {
	frontMatter, err := frontMatterFor(cfg.Format)
	if err != nil {
		return nil, err
	}

	structure, err := MarshalStructure(t)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	metadata, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("assemble: marshal profile: %w", err)
	}

	b := &Bundle{Structure: structure, Metadata: append(metadata, '\n')}
	var latest time.Time
	for i, n := range t.Nodes() {
		doc, ok := docs[n.ID]
		if !ok {
			return nil, &TreeInvariantError{Node: n.ID, Reason: "no document to assemble"}
		}
		if doc.GeneratedAt.After(latest) {
			latest = doc.GeneratedAt
		}
		var page strings.Builder
		page.WriteString(frontMatter(n, i+1))
		page.WriteString(strings.TrimRight(doc.Content, "\n"))
		page.WriteString("\n\n")
		page.WriteString(footer(doc.GeneratedAt, p.RepositoryURL))
		b.Pages = append(b.Pages, Page{Node: n.ID, Name: FileName(n.Title), Data: []byte(page.String())})
	}
	b.Index = Page{Name: indexFile, Data: []byte(buildIndex(p, t, docs, latest))}
	return b, nil
}

func footer(at time.Time, repoURL string) string {
	return fmt.Sprintf("---\n\n*Generated on %s from %s*\n", at.UTC().Format(time.RFC3339), repoURL)
}

func frontMatterFor(format string) (func(Node, int) string, error) {
	switch format {
	case "", FormatMarkdown:
		return func(Node, int) string { return "" }, nil
	case FormatHugo:
		return func(n Node, weight int) string {
			return fmt.Sprintf("---\ntitle: %q\nweight: %d\n---\n\n", n.Title, weight)
		}, nil
	case FormatDocusaurus:
		return func(n Node, position int) string {
			return fmt.Sprintf("---\nsidebar_position: %d\nsidebar_label: %q\n---\n\n", position, n.Title)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported page format: %s", format)
	}
}

// buildIndex renders README.md: repository facts and every section as a link,
// with subsections nested under their parent.
func buildIndex(p profile.Profile, t *Tree, docs Documents, at time.Time) string {
	var b strings.Builder
	name := p.Name
	if name == "" {
		name = p.RepositoryURL
	}
	fmt.Fprintf(&b, "# %s Documentation\n\n", name)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Description)
	}

	b.WriteString("## Repository\n\n")
	fmt.Fprintf(&b, "- **Repository**: %s\n", p.RepositoryURL)
	fmt.Fprintf(&b, "- **Business Domain**: %s\n", p.BusinessDomain)
	fmt.Fprintf(&b, "- **Architecture Pattern**: %s\n", p.ArchitecturePattern)
	stack := p.TechnologyStack.All()
	if len(stack) == 0 {
		b.WriteString("- **Technology Stack**: not detected\n\n")
	} else {
		fmt.Fprintf(&b, "- **Technology Stack**: %s\n\n", strings.Join(stack, ", "))
	}

	b.WriteString("## Sections\n\n")
	for _, r := range t.Roots() {
		fmt.Fprintf(&b, "- %s%s\n", mdLink(r.Title, RelativePath(r)), stubMarker(docs[r.ID]))
		for _, c := range t.Children(r.ID) {
			fmt.Fprintf(&b, "  - %s%s\n", mdLink(c.Title, RelativePath(c)), stubMarker(docs[c.ID]))
		}
	}
	b.WriteString("\n")
	b.WriteString(footer(at, p.RepositoryURL))
	return b.String()
}

func stubMarker(d GeneratedDocument) string {
	if d.Stub() {
		return " (pending regeneration)"
	}
	return ""
}
