// Package alias implements §4.4's alias normalizer: every declared
// `Alias(surface, canonical)` rewrites constructor references
// everywhere a constructor name can occur — facts, rule heads and
// bodies, defn bodies, and patterns — so that every later stage only
// ever sees canonical constructor names. Aliases never change how
// source renders; they change identity for resolution, typing, the
// logic engine, and lint.
package alias

import (
	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
)

// Normalize resolves every Alias chain to its terminal canonical
// constructor name and rewrites all constructor-name occurrences in
// prog in place. An alias chain that does not terminate in a declared
// constructor, or that cycles back on itself, is reported as
// E-RESOLVE. An alias on a cycle is left unrewritten; an alias whose
// canonical name is not a declared constructor is still rewritten to
// that name.
func Normalize(prog *ast.Program) *diagnostics.Bag {
	bag := diagnostics.NewBag()

	ctorNames := make(map[string]bool)
	for _, d := range prog.Datas {
		for _, c := range d.Constructors {
			ctorNames[c.Name] = true
		}
	}

	raw := make(map[string]*ast.Alias)
	for _, a := range prog.Aliases {
		raw[a.Surface] = a
	}

	resolved := make(map[string]string, len(raw))
	for surface := range raw {
		resolveChain(surface, raw, ctorNames, resolved, nil, bag)
	}

	for _, f := range prog.Facts {
		for i, t := range f.Terms {
			f.Terms[i] = rewriteTerm(t, resolved)
		}
	}
	for _, r := range prog.Rules {
		rewriteAtomTerms(r.Head, resolved)
		r.Body = rewriteFormula(r.Body, resolved)
	}
	for _, a := range prog.Asserts {
		a.Formula = rewriteFormula(a.Formula, resolved)
	}
	for _, u := range prog.Universes {
		for i, t := range u.Values {
			u.Values[i] = rewriteTerm(t, resolved)
		}
	}
	for _, d := range prog.Defns {
		d.Body = rewriteExpr(d.Body, resolved)
	}

	return bag
}

// resolveChain follows surface -> ... -> canonical, memoizing into
// resolved and reporting a cycle or an undefined terminal canonical
// name as E-RESOLVE. path tracks the chain walked so far to detect
// cycles.
func resolveChain(name string, raw map[string]*ast.Alias, ctorNames map[string]bool, resolved map[string]string, path []string, bag *diagnostics.Bag) string {
	if target, ok := resolved[name]; ok {
		return target
	}
	a, isAlias := raw[name]
	if !isAlias {
		// name is not itself an alias surface: if it is the chain's
		// starting point resolving a bare constructor name, leave it.
		return name
	}
	for _, seen := range path {
		if seen == name {
			bag.Add(diagnostics.New(diagnostics.EResolve, a.Sp.File, a.Sp, "alias cycle involving %q", name))
			resolved[name] = name
			return name
		}
	}
	next := a.Canonical
	if _, isAliasAgain := raw[next]; isAliasAgain {
		next = resolveChain(next, raw, ctorNames, resolved, append(path, name), bag)
	} else if !ctorNames[next] {
		bag.Add(diagnostics.New(diagnostics.EResolve, a.Sp.File, a.Sp, "alias %q has no declared constructor %q", name, next))
		next = a.Canonical
	}
	resolved[name] = next
	return next
}

func rename(name string, resolved map[string]string) string {
	if r, ok := resolved[name]; ok {
		return r
	}
	return name
}

func rewriteAtomTerms(a *ast.Atom, resolved map[string]string) {
	for i, t := range a.Args {
		a.Args[i] = rewriteTerm(t, resolved)
	}
}

func rewriteTerm(t ast.Term, resolved map[string]string) ast.Term {
	switch v := t.(type) {
	case *ast.CtorTerm:
		v.Name = rename(v.Name, resolved)
		for i, arg := range v.Args {
			v.Args[i] = rewriteTerm(arg, resolved)
		}
		return v
	case *ast.NameTerm:
		if r, ok := resolved[v.Name]; ok {
			return &ast.CtorTerm{Sp: v.Sp, Name: r}
		}
		return v
	default:
		return t
	}
}

func rewriteFormula(f ast.Formula, resolved map[string]string) ast.Formula {
	switch v := f.(type) {
	case *ast.AndFormula:
		for i, t := range v.Terms {
			v.Terms[i] = rewriteFormula(t, resolved)
		}
		return v
	case *ast.AtomFormula:
		rewriteAtomTerms(v.Atom, resolved)
		return v
	case *ast.NotFormula:
		rewriteAtomTerms(v.Atom, resolved)
		return v
	default:
		return f
	}
}

func rewriteExpr(e ast.Expr, resolved map[string]string) ast.Expr {
	switch v := e.(type) {
	case *ast.CallExpr:
		v.Name = rename(v.Name, resolved)
		for i, a := range v.Args {
			v.Args[i] = rewriteExpr(a, resolved)
		}
		return v
	case *ast.LetExpr:
		for _, b := range v.Bindings {
			b.Value = rewriteExpr(b.Value, resolved)
		}
		v.Body = rewriteExpr(v.Body, resolved)
		return v
	case *ast.IfExpr:
		v.Cond = rewriteExpr(v.Cond, resolved)
		v.Then = rewriteExpr(v.Then, resolved)
		v.Else = rewriteExpr(v.Else, resolved)
		return v
	case *ast.MatchExpr:
		v.Scrutinee = rewriteExpr(v.Scrutinee, resolved)
		for _, arm := range v.Arms {
			arm.Pattern = rewritePattern(arm.Pattern, resolved)
			arm.Body = rewriteExpr(arm.Body, resolved)
		}
		return v
	default:
		return e
	}
}

func rewritePattern(p ast.Pattern, resolved map[string]string) ast.Pattern {
	if v, ok := p.(*ast.CtorPattern); ok {
		v.Name = rename(v.Name, resolved)
		for i, a := range v.Args {
			v.Args[i] = rewritePattern(a, resolved)
		}
		return v
	}
	return p
}
