package wiki

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/docweave/internal/profile"
	"github.com/julianshen/docweave/internal/taxonomy"
)

// ---------- helpers ----------

func webProfile() profile.Profile {
	return profile.Profile{
		RepositoryURL:       "https://github.com/facebook/react",
		Name:                "react",
		BusinessDomain:      "Web Development",
		ArchitecturePattern: "Component-based",
		SizeSignal:          profile.SizeLarge,
		TechnologyStack: profile.Stack{
			Languages: []string{"JavaScript"},
			Frontend:  []string{"React"},
		},
	}
}

func mustTaxonomy(t *testing.T, src string) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.Parse([]byte(src), "test")
	require.NoError(t, err)
	return tax
}

const threeSections = `
version: 1.0.0
templates:
  - {id: overview, title: Overview, patterns: [Component-based]}
  - {id: component-architecture, title: Component Architecture, patterns: [Component-based]}
  - {id: integration-patterns, title: Integration Patterns, patterns: [Component-based]}
  - {id: service-catalog, title: Service Catalog, patterns: [Microservices]}
`

const withRenderers = `
version: 1.0.0
templates:
  - {id: overview, title: Overview, patterns: [Component-based]}
  - {id: component-architecture, title: Component Architecture, patterns: [Component-based]}
  - {id: platform-renderers, title: Platform Renderers, patterns: [Component-based]}
  - {id: custom-renderer-development, title: Custom Renderer Development, patterns: [Component-based], parent: platform-renderers}
  - {id: native-renderers, title: Native Renderers, patterns: [MVC], parent: platform-renderers}
  - {id: integration-patterns, title: Integration Patterns, patterns: [Component-based]}
`

func titles(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Title
	}
	return out
}

// ---------- tests ----------

func TestPlanTopLevelOnly(t *testing.T) {
	tree, err := Plan(webProfile(), mustTaxonomy(t, threeSections))
	require.NoError(t, err)

	assert.Equal(t, []string{"Overview", "Component Architecture", "Integration Patterns"}, titles(tree.Roots()))
	assert.Equal(t, 3, tree.Len())
	for _, n := range tree.Nodes() {
		assert.Equal(t, 0, n.Depth)
		assert.Empty(t, n.Children)
	}
}

func TestPlanAttachesChildren(t *testing.T) {
	tree, err := Plan(webProfile(), mustTaxonomy(t, withRenderers))
	require.NoError(t, err)

	kids := tree.Children("platform-renderers")
	require.Len(t, kids, 1)
	assert.Equal(t, "Custom Renderer Development", kids[0].Title)
	assert.Equal(t, 1, kids[0].Depth)
	assert.Equal(t, NodeID("platform-renderers"), kids[0].ParentID)

	_, ok := tree.Node("native-renderers")
	assert.False(t, ok, "children must pass the applicability filter on their own")

	ids := make([]NodeID, 0, tree.Len())
	for _, n := range tree.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []NodeID{"overview", "component-architecture", "platform-renderers", "custom-renderer-development", "integration-patterns"}, ids)
}

func TestPlanSkipsChildrenOfUnselectedParents(t *testing.T) {
	tax := mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: overview, title: Overview, patterns: [Component-based]}
  - {id: services, title: Services, patterns: [Microservices]}
  - {id: service-mesh, title: Service Mesh, patterns: [Component-based], parent: services}
`)
	tree, err := Plan(webProfile(), tax)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
}

func TestPlanChildOrdering(t *testing.T) {
	tax := mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: guide, title: Guide, patterns: [Component-based]}
  - {id: zeta, title: Zeta, patterns: [Component-based], parent: guide, order: 1}
  - {id: alpha, title: Alpha, patterns: [Component-based], parent: guide, order: 1}
  - {id: first, title: First, patterns: [Component-based], parent: guide, order: 0}
`)
	tree, err := Plan(webProfile(), tax)
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Alpha", "Zeta"}, titles(tree.Children("guide")))
}

func TestPlanDuplicateKeepsShallower(t *testing.T) {
	tax := mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: guide, title: Guide, patterns: [Component-based]}
  - {id: guide-overview, title: Overview, patterns: [Component-based], parent: guide}
  - {id: usage, title: Usage, patterns: [Component-based], parent: guide}
  - {id: overview, title: overview, patterns: [Component-based]}
`)
	tree, err := Plan(webProfile(), tax)
	require.NoError(t, err)

	var overviews []Node
	for _, n := range tree.Nodes() {
		if n.Title == "Overview" || n.Title == "overview" {
			overviews = append(overviews, n)
		}
	}
	require.Len(t, overviews, 1)
	assert.Equal(t, NodeID("overview"), overviews[0].ID)
	assert.Equal(t, 0, overviews[0].Depth)
	assert.Equal(t, []string{"Usage"}, titles(tree.Children("guide")))

	require.Len(t, tree.Resolved(), 1)
	assert.Equal(t, DuplicateTopicResolved{
		Title:        "Overview",
		Kept:         "overview",
		KeptDepth:    0,
		Dropped:      "guide-overview",
		DroppedDepth: 1,
	}, tree.Resolved()[0])
}

func TestPlanDuplicateRootMergesChildren(t *testing.T) {
	tax := mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: setup, title: Setup, patterns: [Component-based]}
  - {id: install, title: Install, patterns: [Component-based], parent: setup}
  - {id: setup-again, title: SETUP, patterns: [Component-based]}
  - {id: configure, title: Configure, patterns: [Component-based], parent: setup-again}
`)
	tree, err := Plan(webProfile(), tax)
	require.NoError(t, err)

	assert.Equal(t, []string{"Setup"}, titles(tree.Roots()))
	assert.Equal(t, []string{"Install", "Configure"}, titles(tree.Children("setup")))
	c, ok := tree.Node("configure")
	require.True(t, ok)
	assert.Equal(t, NodeID("setup"), c.ParentID)
}

func TestPlanDuplicateByFileName(t *testing.T) {
	tax := mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: io, title: "Input/Output", patterns: [Component-based]}
  - {id: io2, title: "Input_Output", patterns: [Component-based]}
`)
	tree, err := Plan(webProfile(), tax)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
	assert.Len(t, tree.Resolved(), 1)
}

func TestPlanEmpty(t *testing.T) {
	_, err := Plan(webProfile(), mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: services, title: Services, patterns: [Microservices]}
`))
	var empty *EmptyPlanError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "Component-based", empty.Pattern)
}

func TestPlanPredicateError(t *testing.T) {
	_, err := Plan(webProfile(), mustTaxonomy(t, `
version: 1.0.0
templates:
  - {id: broken, title: Broken, patterns: [Component-based], when: 'nope'}
`))
	assert.Error(t, err)
}

func TestPlanDeterministic(t *testing.T) {
	tax, err := taxonomy.Default()
	require.NoError(t, err)

	first, err := Plan(webProfile(), tax)
	require.NoError(t, err)
	a, err := MarshalStructure(first)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Plan(webProfile(), tax)
		require.NoError(t, err)
		b, err := MarshalStructure(again)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestPlanDefaultCatalogInvariants(t *testing.T) {
	tax, err := taxonomy.Default()
	require.NoError(t, err)

	profiles := []profile.Profile{
		webProfile(),
		{RepositoryURL: "x", BusinessDomain: "Finance", ArchitecturePattern: "Microservices", SizeSignal: profile.SizeHuge,
			TechnologyStack: profile.Stack{Backend: []string{"Spring"}, Databases: []string{"PostgreSQL"}, DevOps: []string{"Docker"}}},
		{RepositoryURL: "y", BusinessDomain: "Software Development", ArchitecturePattern: "Library/Utility", SizeSignal: profile.SizeTiny},
		{RepositoryURL: "z", BusinessDomain: "Data Science", ArchitecturePattern: "Pipeline", SizeSignal: profile.SizeMedium},
	}
	for _, p := range profiles {
		tree, err := Plan(p, tax)
		require.NoError(t, err, p.ArchitecturePattern)
		require.NoError(t, tree.Validate())

		seen := make(map[string]bool)
		for _, n := range tree.Nodes() {
			assert.LessOrEqual(t, n.Depth, 1)
			assert.NotEqual(t, n.ID, n.ParentID)
			if !n.Root() {
				parent, ok := tree.Parent(n.ID)
				require.True(t, ok)
				assert.True(t, parent.Root(), "no node is its own ancestor")
			}
			key := FileName(n.Title)
			assert.False(t, seen[key], "duplicate title %q", n.Title)
			seen[key] = true
		}
	}
}
