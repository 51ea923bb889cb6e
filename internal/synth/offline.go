package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianshen/docweave/internal/profile"
)

// Offline builds pages from the profile alone, without a backend. Output is
// deterministic for a given request.
type Offline struct{}

// Generate renders a skeleton page for req.
func (Offline) Generate(ctx context.Context, req Request) Result {
	if err := ctx.Err(); err != nil {
		return Failed(Canceled(err))
	}
	return Ok(skeleton(req))
}

func skeleton(req Request) string {
	p := req.Profile
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", req.Description)
	}

	b.WriteString("## Project Context\n\n")
	fmt.Fprintf(&b, "- **Repository**: %s\n", p.RepositoryURL)
	fmt.Fprintf(&b, "- **Business Domain**: %s\n", p.BusinessDomain)
	fmt.Fprintf(&b, "- **Architecture**: %s\n\n", p.ArchitecturePattern)

	if len(p.TechnologyStack.All()) > 0 {
		b.WriteString("## Technology Stack\n\n")
		for _, c := range stackCategories(p.TechnologyStack) {
			if len(c.items) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", c.name)
			for _, it := range c.items {
				fmt.Fprintf(&b, "- %s\n", it)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Scope\n\n")
	name := p.Name
	if name == "" {
		name = p.RepositoryURL
	}
	fmt.Fprintf(&b, "This page covers %s for %s.", strings.ToLower(req.Title), name)
	if req.ParentTitle != "" {
		fmt.Fprintf(&b, " It is part of %s.", req.ParentTitle)
	}
	b.WriteString("\n")
	if len(req.ChildTitles) > 0 {
		fmt.Fprintf(&b, "\nDetails are split into %s.\n", strings.Join(req.ChildTitles, ", "))
	}
	return b.String()
}

type stackCategory struct {
	name  string
	items []string
}

func stackCategories(s profile.Stack) []stackCategory {
	return []stackCategory{
		{"Languages", s.Languages},
		{"Frameworks", s.Frameworks},
		{"Frontend", s.Frontend},
		{"Backend", s.Backend},
		{"Databases", s.Databases},
		{"DevOps", s.DevOps},
	}
}
