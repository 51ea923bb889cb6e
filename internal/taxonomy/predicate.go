package taxonomy

import (
	"fmt"
	"strings"

	starlib "go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/julianshen/docweave/internal/profile"
)

// maxPredicateSteps bounds the work a single `when` expression may do.
const maxPredicateSteps = 10_000

var fileOptions = &syntax.FileOptions{}

// predicate is a compiled `when` expression over a repository profile.
type predicate struct {
	id   string
	expr syntax.Expr
}

func compilePredicate(id, src string) (*predicate, error) {
	expr, err := fileOptions.ParseExpr("when:"+id, src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse when: %w", err)
	}
	return &predicate{id: id, expr: expr}, nil
}

// eval runs the expression with the profile bound to predeclared names. The
// environment holds only frozen values derived from the profile, so repeated
// evaluation of the same profile always gives the same answer.
func (p *predicate) eval(prof profile.Profile) (bool, error) {
	thread := &starlib.Thread{Name: "when:" + p.id}
	thread.SetMaxExecutionSteps(maxPredicateSteps)

	v, err := starlib.EvalExprOptions(fileOptions, thread, p.expr, predicateEnv(prof))
	if err != nil {
		return false, fmt.Errorf("template %q: evaluate when: %w", p.id, err)
	}
	b, ok := v.(starlib.Bool)
	if !ok {
		return false, fmt.Errorf("template %q: when must be a bool, got %s", p.id, v.Type())
	}
	return bool(b), nil
}

func predicateEnv(prof profile.Profile) starlib.StringDict {
	s := prof.TechnologyStack
	env := starlib.StringDict{
		"domain":     starlib.String(prof.BusinessDomain),
		"pattern":    starlib.String(prof.ArchitecturePattern),
		"size":       starlib.String(prof.SizeSignal),
		"languages":  stringList(s.Languages),
		"frameworks": stringList(s.Frameworks),
		"frontend":   stringList(s.Frontend),
		"backend":    stringList(s.Backend),
		"databases":  stringList(s.Databases),
		"devops":     stringList(s.DevOps),
		"has":        starlib.NewBuiltin("has", builtinHas(s)),
	}
	env.Freeze()
	return env
}

func stringList(items []string) *starlib.List {
	vals := make([]starlib.Value, len(items))
	for i, it := range items {
		vals[i] = starlib.String(it)
	}
	return starlib.NewList(vals)
}

// builtinHas implements has(name) -> bool, a case-insensitive lookup across
// every stack category.
func builtinHas(s profile.Stack) func(*starlib.Thread, *starlib.Builtin, starlib.Tuple, []starlib.Tuple) (starlib.Value, error) {
	return func(_ *starlib.Thread, fn *starlib.Builtin, args starlib.Tuple, kwargs []starlib.Tuple) (starlib.Value, error) {
		var name string
		if err := starlib.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &name); err != nil {
			return nil, err
		}
		return starlib.Bool(s.Has(strings.TrimSpace(name))), nil
	}
}
