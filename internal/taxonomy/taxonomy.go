// Package taxonomy holds the versioned catalog of candidate documentation
// topics and the rules deciding which of them apply to a repository profile.
// A Taxonomy is immutable after loading and is passed explicitly to the planner.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/julianshen/docweave/internal/profile"
)

// AnyDomain in a template's domain list matches every business domain.
const AnyDomain = "any"

// MaxDepth is the deepest level a template may occupy.
const MaxDepth = 1

//go:embed default.yaml
var defaultCatalog []byte

// Template is one candidate documentation topic.
type Template struct {
	ID          string
	Title       string
	Description string
	Patterns    []string
	Domains     []string
	ParentID    string
	MaxDepth    int
	Order       int
	When        string
}

// TopLevel reports whether the template has no parent.
func (t Template) TopLevel() bool { return t.ParentID == "" }

// fileTemplate mirrors the YAML layout. Pointers distinguish omitted fields.
type fileTemplate struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Patterns    []string `yaml:"patterns"`
	Domains     []string `yaml:"domains"`
	Parent      string   `yaml:"parent"`
	MaxDepth    *int     `yaml:"max_depth"`
	Order       *int     `yaml:"order"`
	When        string   `yaml:"when"`
}

type catalogFile struct {
	Version string `yaml:"version"`
	// Definitions holds YAML anchors shared by templates; it is not read.
	Definitions yaml.Node      `yaml:"definitions"`
	Templates   []fileTemplate `yaml:"templates"`
}

// Taxonomy is an immutable, versioned catalog of templates.
type Taxonomy struct {
	source     string
	version    *semver.Version
	templates  []Template
	byID       map[string]int
	predicates map[string]*predicate
}

// ValidationError reports a catalog that breaks a structural rule.
type ValidationError struct {
	Source string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("taxonomy validation (%s): %s", e.Source, e.Reason)
}

// Default returns the embedded catalog.
func Default() (*Taxonomy, error) {
	return Parse(defaultCatalog, "builtin")
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a YAML catalog. Templates without an explicit
// order take their declared position.
func Parse(data []byte, source string) (*Taxonomy, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", source, err)
	}

	if f.Version == "" {
		return nil, &ValidationError{Source: source, Reason: "version is required"}
	}
	v, err := semver.NewVersion(f.Version)
	if err != nil {
		return nil, &ValidationError{Source: source, Reason: fmt.Sprintf("invalid version %q: %v", f.Version, err)}
	}

	templates := make([]Template, 0, len(f.Templates))
	for i, ft := range f.Templates {
		templates = append(templates, ft.toTemplate(i))
	}
	return build(source, v, templates)
}

func (ft fileTemplate) toTemplate(position int) Template {
	t := Template{
		ID:          strings.TrimSpace(ft.ID),
		Title:       strings.TrimSpace(ft.Title),
		Description: strings.TrimSpace(ft.Description),
		Patterns:    ft.Patterns,
		Domains:     ft.Domains,
		ParentID:    strings.TrimSpace(ft.Parent),
		Order:       position,
		When:        strings.TrimSpace(ft.When),
	}
	if ft.Order != nil {
		t.Order = *ft.Order
	}
	if ft.MaxDepth != nil {
		t.MaxDepth = *ft.MaxDepth
	} else if t.ParentID != "" {
		t.MaxDepth = 1
	}
	if len(t.Domains) == 0 {
		t.Domains = []string{AnyDomain}
	}
	return t
}

// build validates templates and compiles their predicates.
func build(source string, v *semver.Version, templates []Template) (*Taxonomy, error) {
	bad := func(format string, args ...any) error {
		return &ValidationError{Source: source, Reason: fmt.Sprintf(format, args...)}
	}

	if len(templates) == 0 {
		return nil, bad("at least one template is required")
	}

	byID := make(map[string]int, len(templates))
	for i, t := range templates {
		if t.ID == "" {
			return nil, bad("template %d: id is required", i)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, bad("duplicate template id %q", t.ID)
		}
		if t.Title == "" {
			return nil, bad("template %q: title is required", t.ID)
		}
		if len(t.Patterns) == 0 {
			return nil, bad("template %q: at least one pattern is required", t.ID)
		}
		byID[t.ID] = i
	}

	preds := make(map[string]*predicate)
	for _, t := range templates {
		switch {
		case t.MaxDepth < 0 || t.MaxDepth > MaxDepth:
			return nil, bad("template %q: max_depth %d outside 0..%d", t.ID, t.MaxDepth, MaxDepth)
		case t.TopLevel() && t.MaxDepth != 0:
			return nil, bad("template %q: top-level templates must have max_depth 0", t.ID)
		case !t.TopLevel() && t.MaxDepth != 1:
			return nil, bad("template %q: subsection templates must have max_depth 1", t.ID)
		}
		if !t.TopLevel() {
			pi, ok := byID[t.ParentID]
			if !ok {
				return nil, bad("template %q: unknown parent %q", t.ID, t.ParentID)
			}
			if !templates[pi].TopLevel() {
				return nil, bad("template %q: parent %q is itself a subsection", t.ID, t.ParentID)
			}
		}
		if t.When != "" {
			p, err := compilePredicate(t.ID, t.When)
			if err != nil {
				return nil, bad("template %q: %v", t.ID, err)
			}
			preds[t.ID] = p
		}
	}

	return &Taxonomy{
		source:     source,
		version:    v,
		templates:  templates,
		byID:       byID,
		predicates: preds,
	}, nil
}

// Version returns the catalog version.
func (t *Taxonomy) Version() *semver.Version { return t.version }

// Source names where the catalog was loaded from.
func (t *Taxonomy) Source() string { return t.source }

// Templates returns a copy of the templates in declaration order.
func (t *Taxonomy) Templates() []Template {
	out := make([]Template, len(t.templates))
	copy(out, t.templates)
	return out
}

// Template looks up a template by id.
func (t *Taxonomy) Template(id string) (Template, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Template{}, false
	}
	return t.templates[i], true
}

// Applicable reports whether a template applies to a profile: the domain
// matches exactly or the template accepts any domain, the pattern matches
// exactly, and the optional predicate holds.
func (t *Taxonomy) Applicable(tpl Template, p profile.Profile) (bool, error) {
	if !contains(tpl.Patterns, p.ArchitecturePattern) {
		return false, nil
	}
	if !contains(tpl.Domains, AnyDomain) && !contains(tpl.Domains, p.BusinessDomain) {
		return false, nil
	}
	pred, ok := t.predicates[tpl.ID]
	if !ok {
		return true, nil
	}
	return pred.eval(p)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.TrimSpace(v) == s {
			return true
		}
	}
	return false
}
