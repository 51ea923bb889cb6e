package taxonomy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/docweave/internal/profile"
)

func webProfile() profile.Profile {
	return profile.Profile{
		RepositoryURL:       "https://github.com/acme/ui",
		BusinessDomain:      "Web Development",
		ArchitecturePattern: "Component-based",
		SizeSignal:          profile.SizeSmall,
		TechnologyStack: profile.Stack{
			Languages: []string{"TypeScript"},
			Frontend:  []string{"React"},
			DevOps:    []string{"Docker"},
		},
	}
}

func TestDefaultCatalogLoads(t *testing.T) {
	tax, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", tax.Version().Original())
	assert.Equal(t, "builtin", tax.Source())

	tpl, ok := tax.Template("custom-renderer-development")
	require.True(t, ok)
	assert.Equal(t, "platform-renderers", tpl.ParentID)
	assert.Equal(t, 1, tpl.MaxDepth)

	overview, ok := tax.Template("overview")
	require.True(t, ok)
	assert.Len(t, overview.Patterns, 13)
	assert.Equal(t, []string{AnyDomain}, overview.Domains)
}

func TestParseAssignsDeclaredOrder(t *testing.T) {
	tax, err := Parse([]byte(`
version: 2.1.0
templates:
  - {id: b, title: B, patterns: [MVC]}
  - {id: a, title: A, patterns: [MVC], order: 7}
  - {id: c, title: C, patterns: [MVC]}
`), "inline")
	require.NoError(t, err)

	tpls := tax.Templates()
	require.Len(t, tpls, 3)
	assert.Equal(t, 0, tpls[0].Order)
	assert.Equal(t, 7, tpls[1].Order)
	assert.Equal(t, 2, tpls[2].Order)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		reason string
	}{
		{"missing version", `templates: [{id: a, title: A, patterns: [MVC]}]`, "version is required"},
		{"bad version", "version: one\ntemplates: [{id: a, title: A, patterns: [MVC]}]", "invalid version"},
		{"no templates", "version: 1.0.0", "at least one template"},
		{"duplicate id", "version: 1.0.0\ntemplates: [{id: a, title: A, patterns: [MVC]}, {id: a, title: B, patterns: [MVC]}]", "duplicate template id"},
		{"missing title", "version: 1.0.0\ntemplates: [{id: a, patterns: [MVC]}]", "title is required"},
		{"missing patterns", "version: 1.0.0\ntemplates: [{id: a, title: A}]", "at least one pattern"},
		{"unknown parent", "version: 1.0.0\ntemplates: [{id: a, title: A, patterns: [MVC], parent: z}]", "unknown parent"},
		{"grandchild", "version: 1.0.0\ntemplates: [{id: a, title: A, patterns: [MVC]}, {id: b, title: B, patterns: [MVC], parent: a}, {id: c, title: C, patterns: [MVC], parent: b}]", "itself a subsection"},
		{"depth too deep", "version: 1.0.0\ntemplates: [{id: a, title: A, patterns: [MVC], max_depth: 2}]", "outside 0..1"},
		{"top-level depth", "version: 1.0.0\ntemplates: [{id: a, title: A, patterns: [MVC], max_depth: 1}]", "top-level templates must have max_depth 0"},
		{"bad predicate", "version: 1.0.0\ntemplates: [{id: a, title: A, patterns: [MVC], when: 'len(('}]", "parse when"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "inline")
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %T: %v", err, err)
			assert.Contains(t, ve.Reason, tt.reason)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("version: [1"), "inline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse taxonomy inline")
}

func TestApplicable(t *testing.T) {
	tax, err := Parse([]byte(`
version: 1.0.0
templates:
  - {id: any, title: Any, patterns: [Component-based]}
  - {id: web, title: Web, patterns: [Component-based], domains: [Web Development]}
  - {id: games, title: Games, patterns: [Component-based], domains: [Game Development]}
  - {id: mvc, title: MVC, patterns: [MVC]}
  - {id: lower, title: Lower, patterns: [component-based]}
  - {id: react, title: React, patterns: [Component-based], when: 'has("react") and "TypeScript" in languages'}
  - {id: db, title: DB, patterns: [Component-based], when: 'len(databases) > 0'}
`), "inline")
	require.NoError(t, err)

	want := map[string]bool{
		"any":   true,
		"web":   true,
		"games": false,
		"mvc":   false,
		"lower": false,
		"react": true,
		"db":    false,
	}
	for id, expected := range want {
		tpl, ok := tax.Template(id)
		require.True(t, ok)
		got, err := tax.Applicable(tpl, webProfile())
		require.NoError(t, err, id)
		assert.Equal(t, expected, got, id)
	}
}

func TestApplicablePredicateErrors(t *testing.T) {
	tax, err := Parse([]byte(`
version: 1.0.0
templates:
  - {id: str, title: Str, patterns: [Component-based], when: 'domain'}
  - {id: undefined, title: Undefined, patterns: [Component-based], when: 'nope > 1'}
  - {id: loop, title: Loop, patterns: [Component-based], when: 'len([x for x in range(100000000)]) > 0'}
`), "inline")
	require.NoError(t, err)

	for _, id := range []string{"str", "undefined", "loop"} {
		tpl, _ := tax.Template(id)
		_, err := tax.Applicable(tpl, webProfile())
		assert.Error(t, err, id)
	}
}

func TestRequire(t *testing.T) {
	tax, err := Default()
	require.NoError(t, err)

	assert.NoError(t, tax.Require(""))
	assert.NoError(t, tax.Require("^1"))

	err = tax.Require(">=2.0.0")
	var verr *VersionError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "1.0.0", verr.Version)

	assert.Error(t, tax.Require("not a constraint"))
}

func TestWithOverlay(t *testing.T) {
	base, err := Parse([]byte(`
version: 1.3.0
templates:
  - {id: overview, title: Overview, patterns: [MVC]}
  - {id: usage, title: Usage, patterns: [MVC]}
`), "base")
	require.NoError(t, err)

	t.Run("append", func(t *testing.T) {
		o, err := ParseOverlay([]byte(`
templates:
  - {id: faq, title: FAQ, patterns: [MVC]}
  - {id: glossary, title: Glossary, patterns: [MVC]}
`), "overlay")
		require.NoError(t, err)
		assert.Equal(t, StrategyAppend, o.Strategy)

		merged, err := base.WithOverlay(o)
		require.NoError(t, err)
		faq, _ := merged.Template("faq")
		glossary, _ := merged.Template("glossary")
		assert.Equal(t, 2, faq.Order)
		assert.Equal(t, 3, glossary.Order)
		assert.Len(t, base.Templates(), 2, "base catalog is untouched")
	})

	t.Run("prepend", func(t *testing.T) {
		o, err := ParseOverlay([]byte(`
strategy: prepend
templates:
  - {id: tldr, title: TL;DR, patterns: [MVC]}
  - {id: news, title: News, patterns: [MVC]}
`), "overlay")
		require.NoError(t, err)

		merged, err := base.WithOverlay(o)
		require.NoError(t, err)
		tldr, _ := merged.Template("tldr")
		news, _ := merged.Template("news")
		overview, _ := merged.Template("overview")
		assert.Less(t, tldr.Order, news.Order)
		assert.Less(t, news.Order, overview.Order)
	})

	t.Run("replace keeps position", func(t *testing.T) {
		o, err := ParseOverlay([]byte(`
templates:
  - {id: usage, title: How To Use, patterns: [MVC]}
`), "overlay")
		require.NoError(t, err)

		merged, err := base.WithOverlay(o)
		require.NoError(t, err)
		usage, _ := merged.Template("usage")
		assert.Equal(t, "How To Use", usage.Title)
		assert.Equal(t, 1, usage.Order)
		assert.Len(t, merged.Templates(), 2)
	})

	t.Run("requires", func(t *testing.T) {
		o, err := ParseOverlay([]byte("requires: ^2\ntemplates: []"), "overlay")
		require.NoError(t, err)
		_, err = base.WithOverlay(o)
		var verr *VersionError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("bad strategy", func(t *testing.T) {
		_, err := ParseOverlay([]byte("strategy: sideways"), "overlay")
		assert.Error(t, err)
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1.0.0\ntemplates: [{id: a, title: A, patterns: [MVC]}]\n"), 0o644))

	tax, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, tax.Source())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
