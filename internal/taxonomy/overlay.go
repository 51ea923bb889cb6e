package taxonomy

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// VersionError reports a catalog whose version falls outside a constraint.
type VersionError struct {
	Constraint string
	Version    string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("taxonomy version %s does not satisfy %q", e.Version, e.Constraint)
}

// Require checks the catalog version against a semver constraint such as
// "^1.2". An empty constraint accepts every version.
func (t *Taxonomy) Require(constraint string) error {
	return checkVersion(t.version, constraint)
}

func checkVersion(v *semver.Version, constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	if !c.Check(v) {
		return &VersionError{Constraint: constraint, Version: v.Original()}
	}
	return nil
}

// Strategy decides where new overlay templates are placed.
type Strategy string

const (
	StrategyPrepend Strategy = "prepend"
	StrategyAppend  Strategy = "append"
)

type overlayFile struct {
	Requires    string         `yaml:"requires"`
	Strategy    Strategy       `yaml:"strategy"`
	Definitions yaml.Node      `yaml:"definitions"`
	Templates   []fileTemplate `yaml:"templates"`
}

// Overlay adds custom sections to a base catalog. A template whose id already
// exists replaces the base template in place; the rest are placed before or
// after the base templates according to Strategy.
type Overlay struct {
	Source    string
	Requires  string
	Strategy  Strategy
	templates []fileTemplate
}

// LoadOverlay reads an overlay from a YAML file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy overlay: %w", err)
	}
	return ParseOverlay(data, path)
}

// ParseOverlay decodes an overlay. Strategy defaults to append.
func ParseOverlay(data []byte, source string) (*Overlay, error) {
	var f overlayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy overlay %s: %w", source, err)
	}
	switch f.Strategy {
	case "":
		f.Strategy = StrategyAppend
	case StrategyPrepend, StrategyAppend:
	default:
		return nil, &ValidationError{Source: source, Reason: fmt.Sprintf("unknown strategy %q", f.Strategy)}
	}
	return &Overlay{
		Source:    source,
		Requires:  f.Requires,
		Strategy:  f.Strategy,
		templates: f.Templates,
	}, nil
}

// WithOverlay returns a new catalog with the overlay applied. The receiver is
// left untouched.
func (t *Taxonomy) WithOverlay(o *Overlay) (*Taxonomy, error) {
	if err := checkVersion(t.version, o.Requires); err != nil {
		return nil, fmt.Errorf("overlay %s: %w", o.Source, err)
	}

	merged := t.Templates()
	lo, hi := 0, 0
	for i, tpl := range merged {
		if i == 0 || tpl.Order < lo {
			lo = tpl.Order
		}
		if i == 0 || tpl.Order > hi {
			hi = tpl.Order
		}
	}

	var added []Template
	for _, ft := range o.templates {
		tpl := ft.toTemplate(0)
		if i, ok := t.byID[tpl.ID]; ok {
			if ft.Order == nil {
				tpl.Order = merged[i].Order
			}
			merged[i] = tpl
			continue
		}
		added = append(added, tpl)
	}

	for i := range added {
		if overlayOrderSet(o, added[i].ID) {
			continue
		}
		if o.Strategy == StrategyPrepend {
			added[i].Order = lo - len(added) + i
		} else {
			added[i].Order = hi + 1 + i
		}
	}

	if o.Strategy == StrategyPrepend {
		merged = append(added, merged...)
	} else {
		merged = append(merged, added...)
	}
	return build(t.source+"+"+o.Source, t.version, merged)
}

func overlayOrderSet(o *Overlay, id string) bool {
	for _, ft := range o.templates {
		if ft.ID == id {
			return ft.Order != nil
		}
	}
	return false
}
