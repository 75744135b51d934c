package lint

import (
	"fmt"
	"sort"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/config"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/logic"
	"github.com/specverify/specverify/internal/prove"
)

// renamer assigns canonical `v0, v1, ...` names to variables in order
// of first occurrence, so two declarations that differ only in
// variable/parameter naming render to the same string (§4.12's
// "alpha-renaming of rule variables").
type renamer struct {
	next  int
	names map[string]string
}

func newRenamer() *renamer { return &renamer{names: make(map[string]string)} }

func (r *renamer) of(name string) string {
	if v, ok := r.names[name]; ok {
		return v
	}
	v := fmt.Sprintf("v%d", r.next)
	r.next++
	r.names[name] = v
	return v
}

func canonTerm(t ast.Term, r *renamer) string {
	switch v := t.(type) {
	case *ast.VarTerm:
		return "?" + r.of(v.Name)
	case *ast.LitTerm:
		switch v.Kind {
		case ast.LitBool:
			return fmt.Sprintf("b:%v", v.Bool)
		case ast.LitInt:
			return fmt.Sprintf("i:%d", v.Int)
		default:
			return "s:" + v.Symbol
		}
	case *ast.CtorTerm:
		s := v.Name + "("
		for i, a := range v.Args {
			if i > 0 {
				s += ","
			}
			s += canonTerm(a, r)
		}
		return s + ")"
	default:
		return ""
	}
}

func canonAtom(a *ast.Atom, r *renamer) string {
	s := a.Pred + "("
	for i, t := range a.Args {
		if i > 0 {
			s += ","
		}
		s += canonTerm(t, r)
	}
	return s + ")"
}

func canonFormula(f ast.Formula, r *renamer) string {
	switch v := f.(type) {
	case *ast.TrueFormula:
		return "true"
	case *ast.AtomFormula:
		return canonAtom(v.Atom, r)
	case *ast.NotFormula:
		return "not(" + canonAtom(v.Atom, r) + ")"
	case *ast.AndFormula:
		s := "and("
		for i, t := range v.Terms {
			if i > 0 {
				s += ","
			}
			s += canonFormula(t, r)
		}
		return s + ")"
	default:
		return ""
	}
}

func canonRule(rule *ast.Rule) string {
	r := newRenamer()
	head := canonAtom(rule.Head, r)
	body := canonFormula(rule.Body, r)
	return head + ":-" + body
}

func canonAssert(a *ast.Assert) string {
	r := newRenamer()
	for _, b := range a.Binders {
		r.of(b.Name)
	}
	return canonFormula(a.Formula, r)
}

func canonType(t ast.Type, r *renamer) string {
	switch v := t.(type) {
	case *ast.BoolType:
		return "Bool"
	case *ast.IntType:
		return "Int"
	case *ast.SymbolType:
		return "Symbol"
	case *ast.NamedType:
		return v.Name
	case *ast.RefineType:
		return "Refine(" + r.of(v.Bound) + "," + canonType(v.Base, r) + "," + canonFormula(v.Predicate, r) + ")"
	default:
		return ""
	}
}

func canonDefn(d *ast.Defn) string {
	r := newRenamer()
	params := ""
	for i, p := range d.Params {
		if i > 0 {
			params += ","
		}
		params += r.of(p.Name) + ":" + canonType(p.Type, r)
	}
	ret := canonType(d.ReturnType, r)
	return "(" + params + ")->" + ret + "=" + canonExpr(d.Body, r)
}

func canonExpr(e ast.Expr, r *renamer) string {
	switch v := e.(type) {
	case *ast.VarExpr:
		return "?" + r.of(v.Name)
	case *ast.LitExpr:
		switch v.Kind {
		case ast.LitBool:
			return fmt.Sprintf("b:%v", v.Bool)
		case ast.LitInt:
			return fmt.Sprintf("i:%d", v.Int)
		default:
			return "s:" + v.Symbol
		}
	case *ast.CallExpr:
		s := v.Name + "("
		for i, a := range v.Args {
			if i > 0 {
				s += ","
			}
			s += canonExpr(a, r)
		}
		return s + ")"
	case *ast.LetExpr:
		s := "let("
		for _, b := range v.Bindings {
			val := canonExpr(b.Value, r)
			s += r.of(b.Name) + "=" + val + ";"
		}
		return s + canonExpr(v.Body, r) + ")"
	case *ast.IfExpr:
		return "if(" + canonExpr(v.Cond, r) + "," + canonExpr(v.Then, r) + "," + canonExpr(v.Else, r) + ")"
	case *ast.MatchExpr:
		s := "match(" + canonExpr(v.Scrutinee, r)
		for _, arm := range v.Arms {
			s += ";" + canonPattern(arm.Pattern, r) + "=>" + canonExpr(arm.Body, r)
		}
		return s + ")"
	default:
		return ""
	}
}

func canonPattern(p ast.Pattern, r *renamer) string {
	switch v := p.(type) {
	case *ast.WildcardPattern:
		return "_"
	case *ast.VarPattern:
		return r.of(v.Name)
	case *ast.LitPattern:
		switch v.Kind {
		case ast.LitBool:
			return fmt.Sprintf("b:%v", v.Bool)
		default:
			return fmt.Sprintf("i:%d", v.Int)
		}
	case *ast.CtorPattern:
		s := v.Name + "("
		for i, sub := range v.Args {
			if i > 0 {
				s += ","
			}
			s += canonPattern(sub, r)
		}
		return s + ")"
	default:
		return ""
	}
}

func canonFact(f *ast.Fact) string {
	r := newRenamer()
	s := f.Relation + "("
	for i, t := range f.Terms {
		if i > 0 {
			s += ","
		}
		s += canonTerm(t, r)
	}
	return s + ")"
}

// CheckDuplicatesExact reports L-DUP-EXACT for every pair of
// same-kind declarations (rule, assert, defn, fact) whose canonical,
// alpha-renamed rendering is identical (§4.12).
func CheckDuplicatesExact(prog *ast.Program) *diagnostics.Bag {
	bag := diagnostics.NewBag()

	reportPairs := func(kind string, n int, spanOf func(int) ast.Span, key func(int) string) {
		seen := make(map[string]int) // canonical string -> first index seen
		for i := 0; i < n; i++ {
			k := key(i)
			if first, ok := seen[k]; ok {
				bag.Add(diagnostics.New(diagnostics.LDupExact, spanOf(i).File, spanOf(i),
					"duplicate %s: identical to the one declared at %s:%d:%d",
					kind, spanOf(first).File, spanOf(first).Line, spanOf(first).Col))
				continue
			}
			seen[k] = i
		}
	}

	reportPairs("rule", len(prog.Rules),
		func(i int) ast.Span { return prog.Rules[i].Sp },
		func(i int) string { return canonRule(prog.Rules[i]) })
	reportPairs("assert", len(prog.Asserts),
		func(i int) ast.Span { return prog.Asserts[i].Sp },
		func(i int) string { return canonAssert(prog.Asserts[i]) })
	reportPairs("defn", len(prog.Defns),
		func(i int) ast.Span { return prog.Defns[i].Sp },
		func(i int) string { return canonDefn(prog.Defns[i]) })
	reportPairs("fact", len(prog.Facts),
		func(i int) ast.Span { return prog.Facts[i].Sp },
		func(i int) string { return canonFact(prog.Facts[i]) })

	return bag
}

// typeKey renders a type for the purpose of comparing two defns'
// signatures before attempting a semantic comparison.
func typeKey(t ast.Type) string {
	r := newRenamer()
	return canonType(t, r)
}

func universeForType(t ast.Type, universes map[string][]ast.Term) (string, []ast.Term) {
	var ref string
	switch v := t.(type) {
	case *ast.BoolType:
		ref = "Bool"
	case *ast.IntType:
		ref = "Int"
	case *ast.SymbolType:
		ref = "Symbol"
	case *ast.NamedType:
		ref = v.Name
	}
	return ref, universes[ref]
}

// DuplicateCandidate reports a likely-duplicate pair found in semantic
// mode, with the confidence formula resolved in DESIGN.md.
type DuplicateCandidate struct {
	KindA, NameA string
	KindB, NameB string
	Confidence   float64
}

// CheckDuplicatesSemantic implements L-DUP-MAYBE: assert pairs and
// defn pairs whose semantics agree under finite-model evaluation.
// Pairs requiring a universe that is missing report
// L-DUP-SKIP-UNIVERSE instead; pairs where every valuation hit the
// evaluation-depth cap report L-DUP-SKIP-EVAL-DEPTH.
func CheckDuplicatesSemantic(prog *ast.Program, model *logic.Model, universeValues map[string][]ast.Term) ([]DuplicateCandidate, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	var candidates []DuplicateCandidate

	for i := 0; i < len(prog.Asserts); i++ {
		for j := i + 1; j < len(prog.Asserts); j++ {
			a, b := prog.Asserts[i], prog.Asserts[j]
			if len(a.Binders) != len(b.Binders) {
				continue
			}
			sameShape := true
			for k := range a.Binders {
				if typeKey(a.Binders[k].Type) != typeKey(b.Binders[k].Type) {
					sameShape = false
					break
				}
			}
			if !sameShape {
				continue
			}
			agree, checked, total, missing := compareAsserts(a, b, model, universeValues)
			if len(missing) > 0 {
				bag.Add(diagnostics.New(diagnostics.LDupSkipUniv, b.Sp.File, b.Sp,
					"cannot compare assert %q with %q: missing universe for %v", a.Name, b.Name, missing))
				continue
			}
			if total == 0 {
				continue
			}
			if checked == 0 {
				bag.Add(diagnostics.New(diagnostics.LDupSkipDepth, b.Sp.File, b.Sp,
					"cannot compare assert %q with %q: evaluation depth cap hit on every point", a.Name, b.Name))
				continue
			}
			if agree {
				confidence := confidenceOf(checked, total, 0, 0)
				candidates = append(candidates, DuplicateCandidate{"assert", a.Name, "assert", b.Name, confidence})
				bag.Add(diagnostics.New(diagnostics.LDupMaybe, b.Sp.File, b.Sp,
					"assert %q may be semantically equivalent to %q", b.Name, a.Name).
					WithExtra("confidence", confidence))
			}
		}
	}

	defns := make(map[string]*ast.Defn, len(prog.Defns))
	for _, d := range prog.Defns {
		defns[d.Name] = d
	}
	for i := 0; i < len(prog.Defns); i++ {
		for j := i + 1; j < len(prog.Defns); j++ {
			a, b := prog.Defns[i], prog.Defns[j]
			if !sameSignature(a, b) {
				continue
			}
			agree, checked, total, missing := compareDefns(a, b, model, defns, universeValues)
			if len(missing) > 0 {
				bag.Add(diagnostics.New(diagnostics.LDupSkipUniv, b.Sp.File, b.Sp,
					"cannot compare defn %q with %q: missing universe for %v", a.Name, b.Name, missing))
				continue
			}
			if total == 0 {
				continue
			}
			if checked == 0 {
				bag.Add(diagnostics.New(diagnostics.LDupSkipDepth, b.Sp.File, b.Sp,
					"cannot compare defn %q with %q: evaluation depth cap hit on every point", a.Name, b.Name))
				continue
			}
			if agree {
				confidence := confidenceOf(checked, total, 0, 0)
				candidates = append(candidates, DuplicateCandidate{"defn", a.Name, "defn", b.Name, confidence})
				bag.Add(diagnostics.New(diagnostics.LDupMaybe, b.Sp.File, b.Sp,
					"defn %q may be semantically equivalent to %q", b.Name, a.Name).
					WithExtra("confidence", confidence))
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].NameA != candidates[j].NameA {
			return candidates[i].NameA < candidates[j].NameA
		}
		return candidates[i].NameB < candidates[j].NameB
	})
	return candidates, bag
}

func sameSignature(a, b *ast.Defn) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if typeKey(a.Params[i].Type) != typeKey(b.Params[i].Type) {
			return false
		}
	}
	return typeKey(baseType(a.ReturnType)) == typeKey(baseType(b.ReturnType))
}

func baseType(t ast.Type) ast.Type {
	if r, ok := t.(*ast.RefineType); ok {
		return r.Base
	}
	return t
}

// confidenceOf implements DESIGN.md's resolved confidence formula:
// checked_points / model_points attenuated by the fraction of greedy
// counterexample-search attempts that found a distinguishing point.
// This implementation performs only exhaustive, capped enumeration
// (no separate greedy refutation search beyond it), so attempted is
// always 0 and the attenuation term is 1.
func confidenceOf(checked, total, refuted, attempted int) float64 {
	c := float64(checked) / float64(total)
	if attempted > 0 {
		c *= 1 - float64(refuted)/float64(attempted)
	}
	if c > 0.99 {
		c = 0.99
	}
	return c
}

func compareAsserts(a, b *ast.Assert, model *logic.Model, universeValues map[string][]ast.Term) (agree bool, checked, total int, missing []string) {
	names := make([]string, len(a.Binders))
	values := make([][]ast.Term, len(a.Binders))
	for i, binder := range a.Binders {
		ref, vs := universeForType(binder.Type, universeValues)
		if len(vs) == 0 {
			missing = append(missing, ref)
			continue
		}
		names[i] = binder.Name
		values[i] = vs
	}
	if len(missing) > 0 {
		return false, 0, 0, missing
	}
	total = 1
	for _, vs := range values {
		total *= len(vs)
		if total > config.MaxUniverseProduct {
			break
		}
	}
	agree = true
	enumerateEnv(names, values, func(env map[string]ast.Term) bool {
		envB := remapEnv(env, a.Binders, b.Binders)
		okA, _ := prove.EvalFormula(a.Formula, env, model)
		okB, _ := prove.EvalFormula(b.Formula, envB, model)
		checked++
		if okA != okB {
			agree = false
			return false
		}
		return true
	})
	return agree, checked, total, nil
}

func remapEnv(env map[string]ast.Term, from, to []*ast.Binder) map[string]ast.Term {
	out := make(map[string]ast.Term, len(env))
	for i, b := range from {
		out[to[i].Name] = env[b.Name]
	}
	return out
}

func compareDefns(a, b *ast.Defn, model *logic.Model, defns map[string]*ast.Defn, universeValues map[string][]ast.Term) (agree bool, checked, total int, missing []string) {
	names := make([]string, len(a.Params))
	values := make([][]ast.Term, len(a.Params))
	for i, p := range a.Params {
		ref, vs := universeForType(p.Type, universeValues)
		if len(vs) == 0 {
			missing = append(missing, ref)
			continue
		}
		names[i] = p.Name
		values[i] = vs
	}
	if len(missing) > 0 {
		return false, 0, 0, missing
	}
	total = 1
	for _, vs := range values {
		total *= len(vs)
		if total > config.MaxUniverseProduct {
			break
		}
	}
	agree = true
	enumerateEnv(names, values, func(env map[string]ast.Term) bool {
		argsA := make([]ast.Term, len(a.Params))
		for i, p := range a.Params {
			argsA[i] = env[p.Name]
		}
		argsB := make([]ast.Term, len(b.Params))
		for i := range b.Params {
			argsB[i] = argsA[i]
		}
		resA, errA := prove.EvalDefn(a, argsA, model, defns)
		resB, errB := prove.EvalDefn(b, argsB, model, defns)
		if errA != nil || errB != nil {
			return true // depth cap or similar: skip this point, not counted as checked
		}
		checked++
		if logic.RenderTerm(resA) != logic.RenderTerm(resB) {
			agree = false
			return false
		}
		return true
	})
	return agree, checked, total, nil
}

func enumerateEnv(names []string, values [][]ast.Term, emit func(map[string]ast.Term) bool) {
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
