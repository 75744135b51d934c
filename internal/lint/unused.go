// Package lint implements §4.12's duplicate/unused checks over a
// resolved Program: L-DUP-EXACT, L-UNUSED-DECL, and — in semantic mode
// — L-DUP-MAYBE (with its L-DUP-SKIP-UNIVERSE/L-DUP-SKIP-EVAL-DEPTH
// companions).
package lint

import (
	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/resolve"
)

// reachability computes L-UNUSED-DECL's mark set: every relation,
// sort, data, defn and universe transitively referenced from an
// assert obligation or a refined defn (§4.12's usage roots).
type reachability struct {
	ns          *resolve.Namespaces
	rulesByHead map[string][]*ast.Rule

	relations map[string]bool
	sorts     map[string]bool
	datas     map[string]bool
	defns     map[string]bool
	universes map[string]bool // type-ref names needed by a quantifier

	queue []func()
}

func newReachability(prog *ast.Program, ns *resolve.Namespaces) *reachability {
	r := &reachability{
		ns:          ns,
		rulesByHead: make(map[string][]*ast.Rule),
		relations:   make(map[string]bool),
		sorts:       make(map[string]bool),
		datas:       make(map[string]bool),
		defns:       make(map[string]bool),
		universes:   make(map[string]bool),
	}
	for _, rule := range prog.Rules {
		r.rulesByHead[rule.Head.Pred] = append(r.rulesByHead[rule.Head.Pred], rule)
	}
	return r
}

func (r *reachability) run() {
	for len(r.queue) > 0 {
		job := r.queue[0]
		r.queue = r.queue[1:]
		job()
	}
}

func (r *reachability) markType(t ast.Type) {
	named, ok := t.(*ast.NamedType)
	if !ok {
		if refine, ok := t.(*ast.RefineType); ok {
			r.markType(refine.Base)
		}
		return
	}
	if _, ok := r.ns.Sorts[named.Name]; ok {
		r.sorts[named.Name] = true
		return
	}
	if data, ok := r.ns.Datas[named.Name]; ok {
		if r.datas[named.Name] {
			return
		}
		r.datas[named.Name] = true
		r.queue = append(r.queue, func() {
			for _, c := range data.Constructors {
				for _, arg := range c.Args {
					r.markType(arg)
				}
			}
		})
	}
}

func (r *reachability) markQuantifierType(t ast.Type) {
	r.markType(t)
	switch v := t.(type) {
	case *ast.NamedType:
		r.universes[v.Name] = true
	case *ast.BoolType:
		r.universes["Bool"] = true
	case *ast.IntType:
		r.universes["Int"] = true
	case *ast.SymbolType:
		r.universes["Symbol"] = true
	}
}

func (r *reachability) markRelation(name string) {
	if r.relations[name] {
		return
	}
	r.relations[name] = true
	r.queue = append(r.queue, func() {
		if rel, ok := r.ns.Relations[name]; ok {
			for _, t := range rel.ArgTypes {
				r.markType(t)
			}
		}
		for _, rule := range r.rulesByHead[name] {
			for _, a := range rule.Head.Args {
				r.markTermCtors(a)
			}
			r.markFormula(rule.Body)
		}
	})
}

func (r *reachability) markDefn(name string) {
	if r.defns[name] {
		return
	}
	r.defns[name] = true
	r.queue = append(r.queue, func() {
		d, ok := r.ns.Defns[name]
		if !ok {
			return
		}
		for _, p := range d.Params {
			r.markType(p.Type)
		}
		r.markType(d.ReturnType)
		r.markExpr(d.Body)
	})
}

// markDataByCtor marks the data declaration owning a constructor name
// as used, expanding its constructors' field types the same way
// markType does for a type reference.
func (r *reachability) markDataByCtor(ctorName string) {
	if owner, ok := r.ns.CtorOwner[ctorName]; ok {
		r.markType(&ast.NamedType{Name: owner.Name})
	}
}

func (r *reachability) markTermCtors(t ast.Term) {
	ct, ok := t.(*ast.CtorTerm)
	if !ok {
		return
	}
	r.markDataByCtor(ct.Name)
	for _, a := range ct.Args {
		r.markTermCtors(a)
	}
}

func (r *reachability) markAtom(a *ast.Atom) {
	r.markRelation(a.Pred)
	for _, arg := range a.Args {
		r.markTermCtors(arg)
	}
}

func (r *reachability) markFormula(f ast.Formula) {
	switch v := f.(type) {
	case *ast.AndFormula:
		for _, t := range v.Terms {
			r.markFormula(t)
		}
	case *ast.AtomFormula:
		r.markAtom(v.Atom)
	case *ast.NotFormula:
		r.markAtom(v.Atom)
	}
}

func (r *reachability) markExpr(e ast.Expr) {
	switch v := e.(type) {
	case *ast.CallExpr:
		switch v.Kind {
		case ast.CallRelation:
			r.markRelation(v.Name)
		case ast.CallDefn:
			r.markDefn(v.Name)
		case ast.CallCtor:
			r.markDataByCtor(v.Name)
		}
		for _, a := range v.Args {
			r.markExpr(a)
		}
	case *ast.LetExpr:
		for _, b := range v.Bindings {
			r.markExpr(b.Value)
		}
		r.markExpr(v.Body)
	case *ast.IfExpr:
		r.markExpr(v.Cond)
		r.markExpr(v.Then)
		r.markExpr(v.Else)
	case *ast.MatchExpr:
		r.markExpr(v.Scrutinee)
		for _, arm := range v.Arms {
			r.markPattern(arm.Pattern)
			r.markExpr(arm.Body)
		}
	}
}

func (r *reachability) markPattern(p ast.Pattern) {
	ctorPat, ok := p.(*ast.CtorPattern)
	if !ok {
		return
	}
	r.markDataByCtor(ctorPat.Name)
	for _, sub := range ctorPat.Args {
		r.markPattern(sub)
	}
}

// CheckUnused reports L-UNUSED-DECL for every relation/sort/data/
// universe/defn not reachable from an assert or refined-defn root.
func CheckUnused(prog *ast.Program, ns *resolve.Namespaces) *diagnostics.Bag {
	bag := diagnostics.NewBag()
	r := newReachability(prog, ns)

	for _, a := range prog.Asserts {
		for _, b := range a.Binders {
			r.markQuantifierType(b.Type)
		}
		r.markFormula(a.Formula)
	}
	for _, d := range prog.Defns {
		if _, ok := d.ReturnType.(*ast.RefineType); !ok {
			continue
		}
		r.defns[d.Name] = true
		for _, p := range d.Params {
			r.markQuantifierType(p.Type)
		}
		r.markType(d.ReturnType)
		if refine, ok := d.ReturnType.(*ast.RefineType); ok {
			r.markFormula(refine.Predicate)
		}
		r.markExpr(d.Body)
	}
	r.run()

	for _, rel := range prog.Relations {
		if !r.relations[rel.Name] {
			bag.Add(diagnostics.New(diagnostics.LUnusedDecl, rel.Sp.File, rel.Sp,
				"relation %q is never referenced by an assert or defn refinement", rel.Name))
		}
	}
	for _, s := range prog.Sorts {
		if !r.sorts[s.Name] {
			bag.Add(diagnostics.New(diagnostics.LUnusedDecl, s.Sp.File, s.Sp,
				"sort %q is never referenced by an assert or defn refinement", s.Name))
		}
	}
	for _, d := range prog.Datas {
		if !r.datas[d.Name] {
			bag.Add(diagnostics.New(diagnostics.LUnusedDecl, d.Sp.File, d.Sp,
				"data %q is never referenced by an assert or defn refinement", d.Name))
		}
	}
	for _, d := range prog.Defns {
		if !r.defns[d.Name] {
			bag.Add(diagnostics.New(diagnostics.LUnusedDecl, d.Sp.File, d.Sp,
				"defn %q is never referenced by an assert or defn refinement", d.Name))
		}
	}
	for _, u := range prog.Universes {
		if !r.universes[u.TypeRef] {
			bag.Add(diagnostics.New(diagnostics.LUnusedDecl, u.Sp.File, u.Sp,
				"universe for %q is never needed by any quantifier", u.TypeRef))
		}
	}

	return bag
}
