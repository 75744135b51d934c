// Package logic implements §4.9's fixpoint engine: the least model of
// a Program's facts and rules under the Closed World Assumption,
// computed stratum by stratum (lowest first) so that every negative
// literal's truth value is already fixed by the time its stratum is
// evaluated.
package logic

import (
	"fmt"
	"sort"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/config"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/strata"
)

// Fact is one ground tuple, derived or extensional.
type Fact struct {
	Relation string
	Terms    []ast.Term
}

// Model is the engine's output: every relation's complete derived
// fact set (extensional facts included).
type Model struct {
	Facts map[string][]Fact
	keys  map[string]map[string]bool // relation -> rendered tuple -> present
}

func newModel() *Model {
	return &Model{Facts: make(map[string][]Fact), keys: make(map[string]map[string]bool)}
}

func (m *Model) has(relation string, terms []ast.Term) bool {
	if m.keys[relation] == nil {
		return false
	}
	return m.keys[relation][renderTerms(terms)]
}

// Has reports whether relation(terms...) is in the model's fact set.
// Exported so internal/prove can test relation calls against the
// model the logic engine produced, without duplicating the engine's
// tuple-rendering scheme.
func (m *Model) Has(relation string, terms []ast.Term) bool { return m.has(relation, terms) }

// Ground substitutes subst into t, exported for internal/prove's
// defn-body and formula evaluator, which needs the same variable
// substitution the engine uses to instantiate rule heads.
func Ground(t ast.Term, subst map[string]ast.Term) ast.Term { return ground(t, subst) }

// RenderTerm renders t the same way the engine keys its fact tuples,
// exported so internal/prove and internal/lint can compare ground
// terms for equality without re-implementing the rendering scheme.
func RenderTerm(t ast.Term) string { return renderTerm(t) }

func (m *Model) add(relation string, terms []ast.Term) bool {
	if m.keys[relation] == nil {
		m.keys[relation] = make(map[string]bool)
	}
	key := renderTerms(terms)
	if m.keys[relation][key] {
		return false
	}
	m.keys[relation][key] = true
	m.Facts[relation] = append(m.Facts[relation], Fact{Relation: relation, Terms: terms})
	return true
}

// Evaluate computes the stratified least fixpoint of prog's facts and
// rules. strataOf assigns each relation its stratum; a relation never
// heading a rule behaves as stratum 0 (facts only).
func Evaluate(prog *ast.Program, strataOf strata.Strata) (*Model, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	model := newModel()

	for _, f := range prog.Facts {
		if depth(ctorTermOf(f.Terms)) > config.MaxFactTermDepth {
			bag.Add(diagnostics.New(diagnostics.EProve, f.Sp.File, f.Sp, "fact %q exceeds the maximum term depth", f.Relation))
			continue
		}
		model.add(f.Relation, f.Terms)
	}

	maxStratum := 0
	for _, s := range strataOf {
		if s > maxStratum {
			maxStratum = s
		}
	}

	rulesByStratum := make(map[int][]*ast.Rule)
	for _, r := range prog.Rules {
		s := strataOf[r.Head.Pred]
		rulesByStratum[s] = append(rulesByStratum[s], r)
	}

	for stratum := 0; stratum <= maxStratum; stratum++ {
		rules := rulesByStratum[stratum]
		if len(rules) == 0 {
			continue
		}
		sort.Slice(rules, func(i, j int) bool { return rules[i].Head.Pred < rules[j].Head.Pred })

		for changed := true; changed; {
			changed = false
			for _, rule := range rules {
				positives, negatives := splitLiterals(rule.Body)
				forEachSubstitution(positives, model, nil, func(subst map[string]ast.Term) {
					for _, neg := range negatives {
						groundArgs := groundAll(neg.Args, subst)
						if model.has(neg.Pred, groundArgs) {
							return // negative literal is true: substitution fails
						}
					}
					head := groundAll(rule.Head.Args, subst)
					if depth(ctorTermOf(head)) > config.MaxFactTermDepth {
						bag.Add(diagnostics.New(diagnostics.EProve, rule.Sp.File, rule.Sp,
							"derivation of %q exceeds the maximum term depth", rule.Head.Pred))
						return
					}
					if model.add(rule.Head.Pred, head) {
						changed = true
					}
				})
			}
		}
	}

	return model, bag
}

// splitLiterals flattens a rule body (restricted to And/Atom/Not) into
// its positive and negative literals, in source order.
func splitLiterals(f ast.Formula) (positives, negatives []*ast.Atom) {
	switch v := f.(type) {
	case *ast.AndFormula:
		for _, t := range v.Terms {
			p, n := splitLiterals(t)
			positives = append(positives, p...)
			negatives = append(negatives, n...)
		}
	case *ast.AtomFormula:
		positives = append(positives, v.Atom)
	case *ast.NotFormula:
		negatives = append(negatives, v.Atom)
	}
	return
}

// forEachSubstitution enumerates every ground substitution of the
// positive literals' free variables that makes each literal true in
// model, via a naive nested join, and invokes emit once per
// substitution. Enumeration order does not affect the final fact set
// (§4.9's metamorphic tie-break requirement) because the caller only
// ever uses the substitution to test membership or insert a tuple,
// both idempotent.
func forEachSubstitution(literals []*ast.Atom, model *Model, subst map[string]ast.Term, emit func(map[string]ast.Term)) {
	if len(literals) == 0 {
		emit(subst)
		return
	}
	lit := literals[0]
	for _, fact := range model.Facts[lit.Pred] {
		if len(fact.Terms) != len(lit.Args) {
			continue
		}
		next, ok := unifyArgs(lit.Args, fact.Terms, subst)
		if !ok {
			continue
		}
		forEachSubstitution(literals[1:], model, next, emit)
	}
}

func unifyArgs(patterns, values []ast.Term, subst map[string]ast.Term) (map[string]ast.Term, bool) {
	cur := subst
	for i, p := range patterns {
		var ok bool
		cur, ok = unify(p, values[i], cur)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func unify(pattern, value ast.Term, subst map[string]ast.Term) (map[string]ast.Term, bool) {
	switch p := pattern.(type) {
	case *ast.VarTerm:
		if existing, bound := subst[p.Name]; bound {
			if termsEqual(existing, value) {
				return subst, true
			}
			return nil, false
		}
		next := make(map[string]ast.Term, len(subst)+1)
		for k, v := range subst {
			next[k] = v
		}
		next[p.Name] = value
		return next, true
	case *ast.LitTerm:
		v, ok := value.(*ast.LitTerm)
		if !ok || v.Kind != p.Kind {
			return nil, false
		}
		switch p.Kind {
		case ast.LitBool:
			if v.Bool != p.Bool {
				return nil, false
			}
		case ast.LitInt:
			if v.Int != p.Int {
				return nil, false
			}
		default:
			if v.Symbol != p.Symbol {
				return nil, false
			}
		}
		return subst, true
	case *ast.CtorTerm:
		v, ok := value.(*ast.CtorTerm)
		if !ok || v.Name != p.Name || len(v.Args) != len(p.Args) {
			return nil, false
		}
		return unifyArgs(p.Args, v.Args, subst)
	default:
		return nil, false
	}
}

func termsEqual(a, b ast.Term) bool {
	return renderTerm(a) == renderTerm(b)
}

func groundAll(terms []ast.Term, subst map[string]ast.Term) []ast.Term {
	out := make([]ast.Term, len(terms))
	for i, t := range terms {
		out[i] = ground(t, subst)
	}
	return out
}

func ground(t ast.Term, subst map[string]ast.Term) ast.Term {
	switch v := t.(type) {
	case *ast.VarTerm:
		if g, ok := subst[v.Name]; ok {
			return g
		}
		return v
	case *ast.CtorTerm:
		args := make([]ast.Term, len(v.Args))
		for i, a := range v.Args {
			args[i] = ground(a, subst)
		}
		return &ast.CtorTerm{Sp: v.Sp, Name: v.Name, Args: args}
	default:
		return t
	}
}

func renderTerms(terms []ast.Term) string {
	s := ""
	for i, t := range terms {
		if i > 0 {
			s += ","
		}
		s += renderTerm(t)
	}
	return s
}

func renderTerm(t ast.Term) string {
	switch v := t.(type) {
	case *ast.VarTerm:
		return "?" + v.Name
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
			s += renderTerm(a)
		}
		return s + ")"
	default:
		return ""
	}
}

// ctorTermOf wraps a tuple's terms in a synthetic constructor so depth
// can be measured uniformly with a single recursive function.
func ctorTermOf(terms []ast.Term) ast.Term {
	return &ast.CtorTerm{Name: "\x00tuple", Args: terms}
}

func depth(t ast.Term) int {
	ct, ok := t.(*ast.CtorTerm)
	if !ok {
		return 1
	}
	max := 0
	for _, a := range ct.Args {
		if d := depth(a); d > max {
			max = d
		}
	}
	return max + 1
}
