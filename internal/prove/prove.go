// Package prove implements §4.10's finite-model prover: it generates
// one obligation per Assert and per refined Defn, enumerates
// universe-bound valuations of their quantified variables, evaluates
// the goal against the model internal/logic produced, and reports a
// minimal counterexample from the first valuation, in enumeration
// order, that fails; later valuations are not evaluated.
package prove

import (
	"fmt"
	"sort"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/config"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/logic"
)

// Premise is a positive relation call that held while a defn body was
// evaluated (§4.10 "premises ... for defn refinements").
type Premise struct {
	Pred string
	Args []ast.Term
}

// EvalDefn evaluates d's body with its parameters bound to args
// against model, bounded by the defn-evaluation depth cap. It is
// exported so internal/lint's semantic duplicate check (§4.12
// L-DUP-MAYBE) can use the same bounded evaluator the prover uses
// rather than a second implementation.
func EvalDefn(d *ast.Defn, args []ast.Term, model *logic.Model, defns map[string]*ast.Defn) (ast.Term, error) {
	env := make(map[string]ast.Term, len(d.Params))
	for i, p := range d.Params {
		env[p.Name] = args[i]
	}
	var premises []Premise
	return evalExpr(d.Body, env, model, defns, 0, &premises)
}

// Obligation is one proof obligation and its result.
type Obligation struct {
	ID           string
	Kind         string // "assert" or "defn"
	Result       string // "proved" or "failed"
	Valuation    map[string]ast.Term
	Premises     []Premise
	MissingGoals []string
}

// Trace is the prover's full output, in canonical (lexicographic by
// obligation id) order.
type Trace struct {
	Obligations []Obligation
}

var implicitBoolUniverse = []ast.Term{
	&ast.LitTerm{Kind: ast.LitBool, Bool: true},
	&ast.LitTerm{Kind: ast.LitBool, Bool: false},
}

// Prove evaluates every Assert and every refined Defn in prog against
// model, returning a Trace in canonical order. bag carries E-PROVE for
// missing universes, enumeration overflow, or a non-Bool refinement
// body result.
func Prove(prog *ast.Program, model *logic.Model) (*Trace, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	universes := universesByTypeRef(prog)
	defns := make(map[string]*ast.Defn, len(prog.Defns))
	for _, d := range prog.Defns {
		defns[d.Name] = d
	}

	var obligations []Obligation

	for _, a := range prog.Asserts {
		ob, ok := proveAssert(a, universes, model, bag)
		if ok {
			obligations = append(obligations, ob)
		}
	}

	for _, d := range prog.Defns {
		refine, ok := d.ReturnType.(*ast.RefineType)
		if !ok {
			continue
		}
		ob, ok := proveDefn(d, refine, universes, defns, model, bag)
		if ok {
			obligations = append(obligations, ob)
		}
	}

	sort.Slice(obligations, func(i, j int) bool { return obligations[i].ID < obligations[j].ID })
	return &Trace{Obligations: obligations}, bag
}

func universesByTypeRef(prog *ast.Program) map[string][]ast.Term {
	return UniversesByTypeRef(prog)
}

// UniversesByTypeRef resolves prog's declared universes into a
// type-ref-keyed map, with the implicit {true,false} Bool universe
// seeded in. Exported so internal/lint's semantic duplicate check can
// enumerate the same valuation domains the prover uses.
func UniversesByTypeRef(prog *ast.Program) map[string][]ast.Term {
	out := map[string][]ast.Term{"Bool": implicitBoolUniverse}
	for _, u := range prog.Universes {
		out[u.TypeRef] = u.Values
	}
	return out
}

func typeRefOf(t ast.Type) string {
	switch v := t.(type) {
	case *ast.BoolType:
		return "Bool"
	case *ast.IntType:
		return "Int"
	case *ast.SymbolType:
		return "Symbol"
	case *ast.NamedType:
		return v.Name
	default:
		return ""
	}
}

// binderUniverses resolves each binder's universe, collecting every
// binder whose type has no (or an empty) universe into missing.
func binderUniverses(binders []*ast.Binder, universes map[string][]ast.Term) (values [][]ast.Term, missing []string) {
	for _, b := range binders {
		ref := typeRefOf(b.Type)
		vs := universes[ref]
		if len(vs) == 0 {
			missing = append(missing, ref)
			continue
		}
		values = append(values, vs)
	}
	return
}

// enumerate calls emit once per element of the lexicographic product
// of values, assigning names[i] to the i-th chosen value each time —
// the canonical declaration-order enumeration §4.10 requires.
func enumerate(names []string, values [][]ast.Term, emit func(map[string]ast.Term) bool) {
	env := make(map[string]ast.Term, len(names))
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(names) {
			return emit(env)
		}
		for _, v := range values[i] {
			env[names[i]] = v
			if !rec(i + 1) {
				return false
			}
		}
		return true
	}
	rec(0)
}

func product(values [][]ast.Term) int {
	n := 1
	for _, vs := range values {
		n *= len(vs)
		if n > config.MaxUniverseProduct {
			return n
		}
	}
	return n
}

func proveAssert(a *ast.Assert, universes map[string][]ast.Term, model *logic.Model, bag *diagnostics.Bag) (Obligation, bool) {
	id := "assert::" + a.Name
	names := make([]string, len(a.Binders))
	for i, b := range a.Binders {
		names[i] = b.Name
	}
	values, missing := binderUniverses(a.Binders, universes)
	if len(missing) > 0 {
		bag.Add(diagnostics.New(diagnostics.EProve, a.Sp.File, a.Sp,
			"obligation %q: missing universe for type(s) %v", id, missing))
		return Obligation{}, false
	}
	if n := product(values); n > config.MaxUniverseProduct {
		bag.Add(diagnostics.New(diagnostics.EProve, a.Sp.File, a.Sp,
			"obligation %q: valuation enumeration needs at least %d points, over the universe-product cap of %d", id, n, config.MaxUniverseProduct))
		return Obligation{}, false
	}

	var failing map[string]ast.Term
	var failingGoals []string
	enumerate(names, values, func(env map[string]ast.Term) bool {
		ok, goals := evalFormula(a.Formula, env, model)
		if !ok {
			failing = copyEnv(env)
			failingGoals = goals
			return false
		}
		return true
	})

	if failing == nil {
		return Obligation{ID: id, Kind: "assert", Result: "proved", Valuation: map[string]ast.Term{}}, true
	}
	return Obligation{
		ID: id, Kind: "assert", Result: "failed",
		Valuation:    failing,
		MissingGoals: failingGoals,
	}, true
}

func proveDefn(d *ast.Defn, refine *ast.RefineType, universes map[string][]ast.Term, defns map[string]*ast.Defn, model *logic.Model, bag *diagnostics.Bag) (Obligation, bool) {
	id := "defn::" + d.Name
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	values, missing := binderUniverses(d.Params, universes)
	if len(missing) > 0 {
		bag.Add(diagnostics.New(diagnostics.EProve, d.Sp.File, d.Sp,
			"obligation %q: missing universe for type(s) %v", id, missing))
		return Obligation{}, false
	}
	if n := product(values); n > config.MaxUniverseProduct {
		bag.Add(diagnostics.New(diagnostics.EProve, d.Sp.File, d.Sp,
			"obligation %q: valuation enumeration needs at least %d points, over the universe-product cap of %d", id, n, config.MaxUniverseProduct))
		return Obligation{}, false
	}

	var failing map[string]ast.Term
	var failingGoals []string
	var failingPremises []Premise
	evalErr := false

	enumerate(names, values, func(env map[string]ast.Term) bool {
		var premises []Premise
		result, err := evalExpr(d.Body, env, model, defns, 0, &premises)
		if err != nil {
			bag.Add(diagnostics.New(diagnostics.EProve, d.Sp.File, d.Sp, "obligation %q: %v", id, err))
			evalErr = true
			return false
		}
		lit, ok := result.(*ast.LitTerm)
		if !ok || lit.Kind != ast.LitBool {
			bag.Add(diagnostics.New(diagnostics.EProve, d.Sp.File, d.Sp,
				"obligation %q: body evaluated to a non-Bool value at %v", id, renderEnv(env)))
			evalErr = true
			return false
		}
		// The bound variable is substituted with the body's actual
		// Bool result (not hardcoded to true): worked example 6 fails
		// at x=(f), where the body evaluates to false, which only
		// reproduces if the predicate is checked against that false
		// result rather than skipped as vacuous.
		predEnv := copyEnv(env)
		predEnv[refine.Bound] = &ast.LitTerm{Kind: ast.LitBool, Bool: lit.Bool}
		ok2, goals := evalFormula(refine.Predicate, predEnv, model)
		if !ok2 {
			failing = copyEnv(env)
			failingGoals = goals
			failingPremises = minimizePremises(premises)
			return false
		}
		return true
	})

	if evalErr {
		return Obligation{}, false
	}
	if failing == nil {
		return Obligation{ID: id, Kind: "defn", Result: "proved", Valuation: map[string]ast.Term{}}, true
	}
	return Obligation{
		ID: id, Kind: "defn", Result: "failed",
		Valuation:    failing,
		Premises:     failingPremises,
		MissingGoals: failingGoals,
	}, true
}

// minimizePremises deduplicates the recorded premises: each surviving
// entry is a distinct relation call that was necessary to observe
// during evaluation, so deduplication is the greedy-removal minimum
// that leaves the counterexample's evidence unsatisfied-witnessing
// (§4.10 "shrink each component by greedy removal").
func minimizePremises(premises []Premise) []Premise {
	seen := make(map[string]bool)
	var out []Premise
	for _, p := range premises {
		key := p.Pred + "(" + renderTerms(p.Args) + ")"
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// EvalFormula evaluates f under env against model, returning whether
// it holds and — if not — the rendered conjuncts that failed. Exported
// so internal/lint's semantic duplicate check can test assert-formula
// equivalence over the same enumerated valuation space the prover
// uses.
func EvalFormula(f ast.Formula, env map[string]ast.Term, model *logic.Model) (bool, []string) {
	return evalFormula(f, env, model)
}

func evalFormula(f ast.Formula, env map[string]ast.Term, model *logic.Model) (bool, []string) {
	switch v := f.(type) {
	case *ast.TrueFormula:
		return true, nil
	case *ast.AndFormula:
		var goals []string
		ok := true
		for _, t := range v.Terms {
			sub, subGoals := evalFormula(t, env, model)
			if !sub {
				ok = false
				goals = append(goals, subGoals...)
			}
		}
		return ok, goals
	case *ast.NotFormula:
		args := groundTerms(v.Atom.Args, env)
		if model.Has(v.Atom.Pred, args) {
			return false, []string{"(not " + renderAtom(v.Atom.Pred, args) + ")"}
		}
		return true, nil
	case *ast.AtomFormula:
		args := groundTerms(v.Atom.Args, env)
		if model.Has(v.Atom.Pred, args) {
			return true, nil
		}
		return false, []string{renderAtom(v.Atom.Pred, args)}
	default:
		return false, []string{"<unknown formula>"}
	}
}

func groundTerms(terms []ast.Term, env map[string]ast.Term) []ast.Term {
	out := make([]ast.Term, len(terms))
	for i, t := range terms {
		out[i] = logic.Ground(t, env)
	}
	return out
}

func renderAtom(pred string, args []ast.Term) string {
	s := "(" + pred
	for _, a := range args {
		s += " " + logic.RenderTerm(a)
	}
	return s + ")"
}

func renderTerms(terms []ast.Term) string {
	s := ""
	for i, t := range terms {
		if i > 0 {
			s += ","
		}
		s += logic.RenderTerm(t)
	}
	return s
}

func renderEnv(env map[string]ast.Term) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += k + "=" + logic.RenderTerm(env[k])
	}
	return s + "}"
}

func copyEnv(env map[string]ast.Term) map[string]ast.Term {
	out := make(map[string]ast.Term, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// evalExpr evaluates e under env, bounded by a defn-call nesting depth
// cap (§5, §9). Relation calls that hold are appended to *premises.
func evalExpr(e ast.Expr, env map[string]ast.Term, model *logic.Model, defns map[string]*ast.Defn, depth int, premises *[]Premise) (ast.Term, error) {
	switch v := e.(type) {
	case *ast.VarExpr:
		val, ok := env[v.Name]
		if !ok {
			return nil, fmt.Errorf("unbound variable %q during evaluation", v.Name)
		}
		return val, nil
	case *ast.LitExpr:
		return &ast.LitTerm{Sp: v.Sp, Kind: v.Kind, Bool: v.Bool, Int: v.Int, Symbol: v.Symbol}, nil
	case *ast.LetExpr:
		cur := env
		for _, b := range v.Bindings {
			val, err := evalExpr(b.Value, cur, model, defns, depth, premises)
			if err != nil {
				return nil, err
			}
			cur = withBinding(cur, b.Name, val)
		}
		return evalExpr(v.Body, cur, model, defns, depth, premises)
	case *ast.IfExpr:
		cond, err := evalExpr(v.Cond, env, model, defns, depth, premises)
		if err != nil {
			return nil, err
		}
		lit, ok := cond.(*ast.LitTerm)
		if !ok || lit.Kind != ast.LitBool {
			return nil, fmt.Errorf("if condition did not evaluate to Bool")
		}
		if lit.Bool {
			return evalExpr(v.Then, env, model, defns, depth, premises)
		}
		return evalExpr(v.Else, env, model, defns, depth, premises)
	case *ast.MatchExpr:
		scrut, err := evalExpr(v.Scrutinee, env, model, defns, depth, premises)
		if err != nil {
			return nil, err
		}
		for _, arm := range v.Arms {
			next, ok := matchPattern(arm.Pattern, scrut, env)
			if ok {
				return evalExpr(arm.Body, next, model, defns, depth, premises)
			}
		}
		return nil, fmt.Errorf("no match arm matched value %s", logic.RenderTerm(scrut))
	case *ast.CallExpr:
		args := make([]ast.Term, len(v.Args))
		for i, a := range v.Args {
			val, err := evalExpr(a, env, model, defns, depth, premises)
			if err != nil {
				return nil, err
			}
			args[i] = val
		}
		switch v.Kind {
		case ast.CallCtor:
			return &ast.CtorTerm{Sp: v.Sp, Name: v.Name, Args: args}, nil
		case ast.CallRelation:
			holds := model.Has(v.Name, args)
			if holds {
				*premises = append(*premises, Premise{Pred: v.Name, Args: args})
			}
			return &ast.LitTerm{Kind: ast.LitBool, Bool: holds}, nil
		case ast.CallDefn:
			if depth+1 > config.MaxEvalDepth {
				return nil, fmt.Errorf("evaluation depth exceeded calling %q", v.Name)
			}
			d, ok := defns[v.Name]
			if !ok {
				return nil, fmt.Errorf("unknown defn %q", v.Name)
			}
			next := make(map[string]ast.Term, len(d.Params))
			for i, p := range d.Params {
				next[p.Name] = args[i]
			}
			return evalExpr(d.Body, next, model, defns, depth+1, premises)
		default:
			return nil, fmt.Errorf("unresolved call %q", v.Name)
		}
	default:
		return nil, fmt.Errorf("unsupported expression node")
	}
}

func withBinding(env map[string]ast.Term, name string, val ast.Term) map[string]ast.Term {
	next := make(map[string]ast.Term, len(env)+1)
	for k, v := range env {
		next[k] = v
	}
	next[name] = val
	return next
}

func matchPattern(p ast.Pattern, v ast.Term, env map[string]ast.Term) (map[string]ast.Term, bool) {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		return env, true
	case *ast.VarPattern:
		return withBinding(env, pat.Name, v), true
	case *ast.LitPattern:
		lit, ok := v.(*ast.LitTerm)
		if !ok || lit.Kind != pat.Kind {
			return nil, false
		}
		switch pat.Kind {
		case ast.LitBool:
			return env, lit.Bool == pat.Bool
		default:
			return env, lit.Int == pat.Int
		}
	case *ast.CtorPattern:
		ct, ok := v.(*ast.CtorTerm)
		if !ok || ct.Name != pat.Name || len(ct.Args) != len(pat.Args) {
			return nil, false
		}
		cur := env
		for i, sub := range pat.Args {
			var ok bool
			cur, ok = matchPattern(sub, ct.Args[i], cur)
			if !ok {
				return nil, false
			}
		}
		return cur, true
	default:
		return nil, false
	}
}
