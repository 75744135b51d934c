// Package types implements §4.7's bidirectional type checker. The
// semantic Type here is a distinct, smaller representation than
// ast.Type (the syntax the programmer wrote): a `Refine` annotation
// collapses to its base type, since "any context expecting base
// accepts it" — the refinement predicate itself is read directly off
// ast.Defn.ReturnType by internal/prove when it builds proof
// obligations, not carried through the type system.
package types

import (
	"fmt"
	"sort"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/resolve"
)

// Kind distinguishes the five type families (§4.7 Symbol, Domain and
// Adt, plus the primitive Bool and Int). They are mutually
// non-coercible except that compatible accepts a Symbol where a Domain
// is expected.
type Kind int

const (
	Bool Kind = iota
	Int
	Symbol
	Domain // an open `sort` axis
	Adt    // a closed `data` type
)

// Type is Bool, Int, Symbol, Domain(sort name), or Adt(data name).
type Type struct {
	Kind Kind
	Name string // sort or data name; empty for Bool/Int/Symbol
}

func (t Type) String() string {
	switch t.Kind {
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Symbol:
		return "Symbol"
	case Domain:
		return "Domain(" + t.Name + ")"
	default:
		return "Adt(" + t.Name + ")"
	}
}

func (t Type) Equal(o Type) bool { return t.Kind == o.Kind && t.Name == o.Name }

// compatible is Equal widened for one case: a ground Symbol (every
// bare-atom literal, including domain values — there is no separate
// literal syntax for them, §3 "each universe value is a ground term
// typed type_ref") filling a Domain(sort)-typed position. Everywhere
// else non-coercion still holds.
func compatible(a, b Type) bool {
	if a.Equal(b) {
		return true
	}
	return (a.Kind == Symbol && b.Kind == Domain) || (b.Kind == Symbol && a.Kind == Domain)
}

// Sig is a defn's checked signature: parameter types in declaration
// order and the (base, refinement-dropped) return type.
type Sig struct {
	Params []Type
	Return Type
}

// Table holds every expression's checked type, keyed by the
// expression node itself, plus every defn's checked signature — the
// artifact internal/prove and internal/lint read back.
type Table struct {
	Exprs map[ast.Expr]Type
	Defns map[string]*Sig
}

type checker struct {
	ns    *resolve.Namespaces
	bag   *diagnostics.Bag
	table *Table
}

// Check type-checks every fact, rule, assert, and defn in prog against
// the namespaces resolve.Resolve built. Each diagnostic's Source is
// read off the offending node's own Span.File rather than prog.File,
// since the loader merges every imported file into one Program (§6/§7
// "file-accurate source even under import or multi-file input").
func Check(prog *ast.Program, ns *resolve.Namespaces) (*Table, *diagnostics.Bag) {
	c := &checker{
		ns:  ns,
		bag: diagnostics.NewBag(),
		table: &Table{
			Exprs: make(map[ast.Expr]Type),
			Defns: make(map[string]*Sig),
		},
	}

	// Signatures are built before any body is checked so mutually
	// recursive defns resolve each other's call types.
	for _, d := range prog.Defns {
		sig := &Sig{Return: c.convertReturn(d.ReturnType)}
		for _, p := range d.Params {
			sig.Params = append(sig.Params, c.convert(p.Type))
		}
		c.table.Defns[d.Name] = sig
	}

	for _, f := range prog.Facts {
		c.checkFact(f)
	}
	for _, rule := range prog.Rules {
		c.checkFormula(rule.Body, nil)
		c.checkAtomAgainstRelation(rule.Head, nil)
	}
	for _, a := range prog.Asserts {
		env := make(map[string]Type, len(a.Binders))
		for _, b := range a.Binders {
			env[b.Name] = c.convert(b.Type)
		}
		c.checkFormula(a.Formula, env)
	}
	for _, d := range prog.Defns {
		env := make(map[string]Type, len(d.Params))
		for _, p := range d.Params {
			env[p.Name] = c.convert(p.Type)
		}
		bodyType, ok := c.typeOfExpr(d.Body, env)
		sig := c.table.Defns[d.Name]
		if ok && !compatible(bodyType, sig.Return) {
			c.bag.Add(diagnostics.New(diagnostics.EType, d.Sp.File, d.Sp,
				"defn %q returns %s, declared %s", d.Name, bodyType, sig.Return))
		}
	}

	return c.table, c.bag
}

// convert turns a syntax-level ast.Type into a semantic Type, dropping
// Refine to its base. An unknown NamedType (neither a declared sort
// nor data) is E-RESOLVE: a resolver bug upstream should have already
// caught this, so this is a defensive backstop, not the primary check.
func (c *checker) convert(t ast.Type) Type {
	switch v := t.(type) {
	case *ast.BoolType:
		return Type{Kind: Bool}
	case *ast.IntType:
		return Type{Kind: Int}
	case *ast.SymbolType:
		return Type{Kind: Symbol}
	case *ast.NamedType:
		if _, ok := c.ns.Datas[v.Name]; ok {
			return Type{Kind: Adt, Name: v.Name}
		}
		if _, ok := c.ns.Sorts[v.Name]; ok {
			return Type{Kind: Domain, Name: v.Name}
		}
		c.bag.Add(diagnostics.New(diagnostics.EResolve, v.Sp.File, v.Sp, "unknown type %q", v.Name))
		return Type{Kind: Symbol}
	case *ast.RefineType:
		return c.convert(v.Base)
	default:
		return Type{Kind: Symbol}
	}
}

func (c *checker) convertReturn(t ast.Type) Type { return c.convert(t) }

func (c *checker) relationArgTypes(rel *ast.Relation) []Type {
	out := make([]Type, 0, len(rel.ArgTypes))
	for _, t := range rel.ArgTypes {
		out = append(out, c.convert(t))
	}
	return out
}

// checkFact type checks a ground fact's terms against its relation's
// declared argument types.
func (c *checker) checkFact(f *ast.Fact) {
	rel, ok := c.ns.Relations[f.Relation]
	if !ok {
		c.bag.Add(diagnostics.New(diagnostics.EResolve, f.Sp.File, f.Sp, "unknown relation %q", f.Relation))
		return
	}
	argTypes := c.relationArgTypes(rel)
	if len(f.Terms) != len(argTypes) {
		c.bag.Add(diagnostics.New(diagnostics.EType, f.Sp.File, f.Sp,
			"fact %q has %d term(s), relation declares %d", f.Relation, len(f.Terms), len(argTypes)))
		return
	}
	for i, term := range f.Terms {
		tt, ok := c.typeOfTerm(term)
		if ok && !compatible(tt, argTypes[i]) {
			c.bag.Add(diagnostics.New(diagnostics.EType, term.Span().File, term.Span(),
				"fact %q argument %d has type %s, want %s", f.Relation, i+1, tt, argTypes[i]))
		}
	}
}

func (c *checker) checkAtomAgainstRelation(a *ast.Atom, env map[string]Type) {
	rel, ok := c.ns.Relations[a.Pred]
	if !ok {
		c.bag.Add(diagnostics.New(diagnostics.EResolve, a.Sp.File, a.Sp, "unknown relation %q", a.Pred))
		return
	}
	argTypes := c.relationArgTypes(rel)
	if len(a.Args) != len(argTypes) {
		c.bag.Add(diagnostics.New(diagnostics.EType, a.Sp.File, a.Sp,
			"%q applied to %d argument(s), relation declares %d", a.Pred, len(a.Args), len(argTypes)))
		return
	}
	for i, term := range a.Args {
		tt, ok := c.typeOfTerm(term)
		if ok && !compatible(tt, argTypes[i]) {
			c.bag.Add(diagnostics.New(diagnostics.EType, term.Span().File, term.Span(),
				"%q argument %d has type %s, want %s", a.Pred, i+1, tt, argTypes[i]))
		}
	}
	_ = env
}

func (c *checker) checkFormula(f ast.Formula, env map[string]Type) {
	switch v := f.(type) {
	case *ast.AndFormula:
		for _, t := range v.Terms {
			c.checkFormula(t, env)
		}
	case *ast.AtomFormula:
		c.checkAtomAgainstRelation(v.Atom, env)
	case *ast.NotFormula:
		c.checkAtomAgainstRelation(v.Atom, env)
	}
}

// typeOfTerm types a ground (or rule-variable) term. Rule variables
// have no declared type of their own in this fragment — their type is
// implied entirely by the relation argument position they occupy — so
// a bare VarTerm reports no type (ok is false), and callers skip the
// comparison for it.
func (c *checker) typeOfTerm(t ast.Term) (Type, bool) {
	switch v := t.(type) {
	case *ast.VarTerm:
		return Type{}, false
	case *ast.LitTerm:
		switch v.Kind {
		case ast.LitBool:
			return Type{Kind: Bool}, true
		case ast.LitInt:
			return Type{Kind: Int}, true
		default:
			return Type{Kind: Symbol}, true
		}
	case *ast.CtorTerm:
		data, ok := c.ns.CtorOwner[v.Name]
		if !ok {
			c.bag.Add(diagnostics.New(diagnostics.EResolve, v.Sp.File, v.Sp, "unknown constructor %q", v.Name))
			return Type{}, false
		}
		ctor := findCtor(data, v.Name)
		if ctor != nil && len(v.Args) != len(ctor.Args) {
			c.bag.Add(diagnostics.New(diagnostics.EData, v.Sp.File, v.Sp,
				"constructor %q applied to %d argument(s), declares %d", v.Name, len(v.Args), len(ctor.Args)))
		} else if ctor != nil {
			for i, arg := range v.Args {
				at, ok := c.typeOfTerm(arg)
				want := c.convert(ctor.Args[i])
				if ok && !compatible(at, want) {
					c.bag.Add(diagnostics.New(diagnostics.EData, arg.Span().File, arg.Span(),
						"constructor %q argument %d has type %s, want %s", v.Name, i+1, at, want))
				}
			}
		}
		return Type{Kind: Adt, Name: data.Name}, true
	default:
		return Type{}, false
	}
}

func findCtor(d *ast.Data, name string) *ast.Constructor {
	for _, c := range d.Constructors {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// typeOfExpr is the bidirectional core: every node synthesizes its own
// type, consulting env for variables and consulting c.table.Defns /
// c.ns for calls.
func (c *checker) typeOfExpr(e ast.Expr, env map[string]Type) (Type, bool) {
	t, ok := c.typeOfExprInner(e, env)
	if ok {
		c.table.Exprs[e] = t
	}
	return t, ok
}

func (c *checker) typeOfExprInner(e ast.Expr, env map[string]Type) (Type, bool) {
	switch v := e.(type) {
	case *ast.VarExpr:
		if t, ok := env[v.Name]; ok {
			return t, true
		}
		c.bag.Add(diagnostics.New(diagnostics.EResolve, v.Sp.File, v.Sp, "unknown identifier %q", v.Name))
		return Type{}, false
	case *ast.LitExpr:
		switch v.Kind {
		case ast.LitBool:
			return Type{Kind: Bool}, true
		case ast.LitInt:
			return Type{Kind: Int}, true
		default:
			return Type{Kind: Symbol}, true
		}
	case *ast.CallExpr:
		return c.typeOfCall(v, env)
	case *ast.LetExpr:
		cur := env
		for _, b := range v.Bindings {
			bt, ok := c.typeOfExpr(b.Value, cur)
			if !ok {
				return Type{}, false
			}
			cur = withBinding(cur, b.Name, bt)
		}
		return c.typeOfExpr(v.Body, cur)
	case *ast.IfExpr:
		condT, ok := c.typeOfExpr(v.Cond, env)
		if ok && condT.Kind != Bool {
			c.bag.Add(diagnostics.New(diagnostics.EType, v.Cond.Span().File, v.Cond.Span(), "if condition has type %s, want Bool", condT))
		}
		thenT, thenOK := c.typeOfExpr(v.Then, env)
		elseT, elseOK := c.typeOfExpr(v.Else, env)
		if thenOK && elseOK && !compatible(thenT, elseT) {
			c.bag.Add(diagnostics.New(diagnostics.EType, v.Sp.File, v.Sp, "if branches disagree: %s vs %s", thenT, elseT))
			return Type{}, false
		}
		if thenOK {
			return thenT, true
		}
		return elseT, elseOK
	case *ast.MatchExpr:
		return c.typeOfMatch(v, env)
	default:
		return Type{}, false
	}
}

func withBinding(env map[string]Type, name string, t Type) map[string]Type {
	next := make(map[string]Type, len(env)+1)
	for k, v := range env {
		next[k] = v
	}
	next[name] = t
	return next
}

func (c *checker) typeOfCall(v *ast.CallExpr, env map[string]Type) (Type, bool) {
	switch v.Kind {
	case ast.CallCtor:
		data, ok := c.ns.CtorOwner[v.Name]
		if !ok {
			c.bag.Add(diagnostics.New(diagnostics.EResolve, v.Sp.File, v.Sp, "unknown constructor %q", v.Name))
			return Type{}, false
		}
		ctor := findCtor(data, v.Name)
		if ctor != nil && len(v.Args) != len(ctor.Args) {
			c.bag.Add(diagnostics.New(diagnostics.EData, v.Sp.File, v.Sp,
				"constructor %q applied to %d argument(s), declares %d", v.Name, len(v.Args), len(ctor.Args)))
		}
		for i, arg := range v.Args {
			at, ok := c.typeOfExpr(arg, env)
			if ctor != nil && i < len(ctor.Args) && ok {
				want := c.convert(ctor.Args[i])
				if !compatible(at, want) {
					c.bag.Add(diagnostics.New(diagnostics.EData, arg.Span().File, arg.Span(),
						"constructor %q argument %d has type %s, want %s", v.Name, i+1, at, want))
				}
			}
		}
		return Type{Kind: Adt, Name: data.Name}, true
	case ast.CallRelation:
		rel := c.ns.Relations[v.Name]
		argTypes := c.relationArgTypes(rel)
		if len(v.Args) != len(argTypes) {
			c.bag.Add(diagnostics.New(diagnostics.EType, v.Sp.File, v.Sp,
				"%q applied to %d argument(s), relation declares %d", v.Name, len(v.Args), len(argTypes)))
			return Type{Kind: Bool}, true
		}
		for i, arg := range v.Args {
			if !isRelationArgShape(arg) {
				c.bag.Add(diagnostics.New(diagnostics.EType, arg.Span().File, arg.Span(),
					"relation call argument must be a variable, literal, or constructor term"))
				continue
			}
			at, ok := c.typeOfExpr(arg, env)
			if ok && !compatible(at, argTypes[i]) {
				c.bag.Add(diagnostics.New(diagnostics.EType, arg.Span().File, arg.Span(),
					"%q argument %d has type %s, want %s", v.Name, i+1, at, argTypes[i]))
			}
		}
		return Type{Kind: Bool}, true
	case ast.CallDefn:
		sig, ok := c.table.Defns[v.Name]
		if !ok {
			c.bag.Add(diagnostics.New(diagnostics.EResolve, v.Sp.File, v.Sp, "unknown defn %q", v.Name))
			return Type{}, false
		}
		if len(v.Args) != len(sig.Params) {
			c.bag.Add(diagnostics.New(diagnostics.EType, v.Sp.File, v.Sp,
				"%q applied to %d argument(s), declares %d", v.Name, len(v.Args), len(sig.Params)))
			return sig.Return, true
		}
		for i, arg := range v.Args {
			at, ok := c.typeOfExpr(arg, env)
			if ok && !compatible(at, sig.Params[i]) {
				c.bag.Add(diagnostics.New(diagnostics.EType, arg.Span().File, arg.Span(),
					"%q argument %d has type %s, want %s", v.Name, i+1, at, sig.Params[i]))
			}
		}
		return sig.Return, true
	default:
		c.bag.Add(diagnostics.New(diagnostics.EResolve, v.Sp.File, v.Sp, "unresolved call %q", v.Name))
		return Type{}, false
	}
}

// isRelationArgShape enforces §4.7's restriction on relation-call
// arguments: variable, literal, or constructor term — never an
// arbitrary expression (if/let/match/nested relation or defn call).
func isRelationArgShape(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.VarExpr, *ast.LitExpr:
		return true
	case *ast.CallExpr:
		if v.Kind != ast.CallCtor {
			return false
		}
		for _, a := range v.Args {
			if !isRelationArgShape(a) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (c *checker) typeOfMatch(m *ast.MatchExpr, env map[string]Type) (Type, bool) {
	scrutType, ok := c.typeOfExpr(m.Scrutinee, env)
	if !ok {
		return Type{}, false
	}

	var armType Type
	haveArmType := false
	wildcardSeen := false
	covered := make(map[string]bool)

	for _, arm := range m.Arms {
		label, isWildcard := patternLabel(arm.Pattern)
		if wildcardSeen || (!isWildcard && covered[label]) {
			c.bag.Add(diagnostics.New(diagnostics.EMatch, arm.Sp.File, arm.Sp, "unreachable match arm"))
		}
		if isWildcard {
			wildcardSeen = true
		} else {
			covered[label] = true
		}

		armEnv, ok := c.checkPattern(arm.Pattern, scrutType, env)
		if !ok {
			continue
		}
		at, ok := c.typeOfExpr(arm.Body, armEnv)
		if !ok {
			continue
		}
		if !haveArmType {
			armType, haveArmType = at, true
		} else if !compatible(at, armType) {
			c.bag.Add(diagnostics.New(diagnostics.EType, arm.Sp.File, arm.Sp, "match arm type %s disagrees with %s", at, armType))
		}
	}

	if !wildcardSeen {
		missing := missingLabels(scrutType, covered, c.ns)
		if len(missing) > 0 {
			c.bag.Add(diagnostics.New(diagnostics.EMatch, m.Sp.File, m.Sp, "match is not exhaustive").
				WithExtra("missing", missing))
		}
	}
	return armType, haveArmType
}

func patternLabel(p ast.Pattern) (label string, isWildcard bool) {
	switch v := p.(type) {
	case *ast.WildcardPattern:
		return "", true
	case *ast.VarPattern:
		return "", true
	case *ast.LitPattern:
		if v.Kind == ast.LitBool {
			return fmt.Sprintf("bool:%v", v.Bool), false
		}
		return fmt.Sprintf("int:%d", v.Int), false
	case *ast.CtorPattern:
		return "ctor:" + v.Name, false
	default:
		return "", true
	}
}

func missingLabels(scrutType Type, covered map[string]bool, ns *resolve.Namespaces) []string {
	switch scrutType.Kind {
	case Bool:
		var missing []string
		if !covered["bool:true"] {
			missing = append(missing, "true")
		}
		if !covered["bool:false"] {
			missing = append(missing, "false")
		}
		return missing
	case Adt:
		data := ns.Datas[scrutType.Name]
		if data == nil {
			return nil
		}
		var missing []string
		for _, c := range data.Constructors {
			if !covered["ctor:"+c.Name] {
				missing = append(missing, c.Name)
			}
		}
		sort.Strings(missing)
		return missing
	default:
		return nil
	}
}

func (c *checker) checkPattern(p ast.Pattern, scrutType Type, env map[string]Type) (map[string]Type, bool) {
	switch v := p.(type) {
	case *ast.WildcardPattern:
		return env, true
	case *ast.VarPattern:
		return withBinding(env, v.Name, scrutType), true
	case *ast.LitPattern:
		want := Bool
		if v.Kind == ast.LitInt {
			want = Int
		}
		if scrutType.Kind != want {
			c.bag.Add(diagnostics.New(diagnostics.EType, v.Sp.File, v.Sp, "pattern type disagrees with scrutinee type %s", scrutType))
			return env, false
		}
		return env, true
	case *ast.CtorPattern:
		if scrutType.Kind != Adt {
			c.bag.Add(diagnostics.New(diagnostics.EType, v.Sp.File, v.Sp, "constructor pattern used on non-Adt scrutinee %s", scrutType))
			return env, false
		}
		data := c.ns.Datas[scrutType.Name]
		ctor := findCtor(data, v.Name)
		if ctor == nil {
			c.bag.Add(diagnostics.New(diagnostics.EData, v.Sp.File, v.Sp, "constructor %q is not a variant of %s", v.Name, scrutType))
			return env, false
		}
		if len(v.Args) != len(ctor.Args) {
			c.bag.Add(diagnostics.New(diagnostics.EData, v.Sp.File, v.Sp,
				"pattern %q has %d sub-pattern(s), constructor declares %d", v.Name, len(v.Args), len(ctor.Args)))
			return env, false
		}
		cur := env
		ok := true
		for i, sub := range v.Args {
			var subOK bool
			cur, subOK = c.checkPattern(sub, c.convert(ctor.Args[i]), cur)
			ok = ok && subOK
		}
		return cur, ok
	default:
		return env, false
	}
}
