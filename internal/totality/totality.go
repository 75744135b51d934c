// Package totality implements §4.8's totality analyzer: the defn call
// graph, its SCCs, and — for every recursive edge inside a
// non-trivial SCC (including self-loops) — the tail-position and
// strict-subterm-decrease checks that together establish structural
// termination.
package totality

import (
	"sort"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/resolve"
)

// Reason names why a recursive call failed the totality check (§4.8).
type Reason string

const (
	ReasonNonTailRecursiveCall       Reason = "non_tail_recursive_call"
	ReasonRecursiveCallArityMismatch Reason = "recursive_call_arity_mismatch"
	ReasonNoADTParameter             Reason = "no_adt_parameter"
	ReasonNonDecreasingArgument      Reason = "non_decreasing_argument"
)

// Check runs the totality analyzer over every defn in prog, reporting
// E-TOTAL for each recursive edge that fails. Non-recursive SCCs (a
// defn with no self- or mutual recursion) are always accepted.
func Check(prog *ast.Program, ns *resolve.Namespaces) *diagnostics.Bag {
	bag := diagnostics.NewBag()

	defnByName := make(map[string]*ast.Defn, len(prog.Defns))
	for _, d := range prog.Defns {
		defnByName[d.Name] = d
	}

	graph := make(map[string][]string)
	for _, d := range prog.Defns {
		graph[d.Name] = calleesOf(d.Body)
	}

	comps := sccOf(graph, defnNames(prog.Defns))
	compOf := make(map[string]int, len(comps))
	for i, comp := range comps {
		for _, n := range comp {
			compOf[n] = i
		}
	}

	for _, d := range prog.Defns {
		adtParams := adtParamIndices(d, ns)
		initial := initialStrict(d, adtParams)
		for _, call := range collectCalls(d.Body, true, initial) {
			if call.name != d.Name && compOf[call.name] != compOf[d.Name] {
				continue // not a recursive edge within d's SCC
			}
			if _, isDefn := defnByName[call.name]; !isDefn {
				continue
			}
			checkRecursiveCall(bag, d, call, adtParams)
		}
	}

	return bag
}

func defnNames(defns []*ast.Defn) []string {
	out := make([]string, 0, len(defns))
	for _, d := range defns {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

// calleesOf returns every defn name called anywhere in e (tail or not)
// for building the call graph.
func calleesOf(e ast.Expr) []string {
	var out []string
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch v := e.(type) {
		case *ast.CallExpr:
			if v.Kind == ast.CallDefn {
				out = append(out, v.Name)
			}
			for _, a := range v.Args {
				walk(a)
			}
		case *ast.LetExpr:
			for _, b := range v.Bindings {
				walk(b.Value)
			}
			walk(v.Body)
		case *ast.IfExpr:
			walk(v.Cond)
			walk(v.Then)
			walk(v.Else)
		case *ast.MatchExpr:
			walk(v.Scrutinee)
			for _, arm := range v.Arms {
				walk(arm.Body)
			}
		}
	}
	walk(e)
	return out
}

// call is one call-site discovered by collectCalls.
type call struct {
	name     string
	expr     *ast.CallExpr
	tail     bool
	bindings map[string]strictSubtermOf // variable name -> which param index it's a strict subterm of, in scope at this call site
}

// strictSubtermOf records that a bound variable is a strict subterm of
// parameter paramIndex of the enclosing defn (§4.8 "propagate through
// let aliasing").
type strictSubtermOf struct {
	paramIndex int
}

// collectCalls walks e, tracking tail position and the set of
// variables currently known to be strict subterms of an ADT
// parameter, and returns every defn call found together with that
// context.
func collectCalls(e ast.Expr, tail bool, strict map[string]strictSubtermOf) []call {
	switch v := e.(type) {
	case *ast.CallExpr:
		var out []call
		if v.Kind == ast.CallDefn {
			out = append(out, call{name: v.Name, expr: v, tail: tail, bindings: strict})
		}
		for _, a := range v.Args {
			out = append(out, collectCalls(a, false, strict)...)
		}
		return out
	case *ast.LetExpr:
		var out []call
		cur := strict
		for _, b := range v.Bindings {
			out = append(out, collectCalls(b.Value, false, cur)...)
			if src, ok := subtermSourceVar(b.Value, cur); ok {
				cur = withStrict(cur, b.Name, src)
			}
		}
		out = append(out, collectCalls(v.Body, tail, cur)...)
		return out
	case *ast.IfExpr:
		var out []call
		out = append(out, collectCalls(v.Cond, false, strict)...)
		out = append(out, collectCalls(v.Then, tail, strict)...)
		out = append(out, collectCalls(v.Else, tail, strict)...)
		return out
	case *ast.MatchExpr:
		var out []call
		out = append(out, collectCalls(v.Scrutinee, false, strict)...)
		for _, arm := range v.Arms {
			armStrict := bindStrictFromPattern(arm.Pattern, v.Scrutinee, strict)
			out = append(out, collectCalls(arm.Body, tail, armStrict)...)
		}
		return out
	default:
		return nil
	}
}

func withStrict(strict map[string]strictSubtermOf, name string, v strictSubtermOf) map[string]strictSubtermOf {
	next := make(map[string]strictSubtermOf, len(strict)+1)
	for k, val := range strict {
		next[k] = val
	}
	next[name] = v
	return next
}

// subtermSourceVar reports whether e is a plain variable reference
// that is itself already known to be a strict subterm, propagating the
// relation through a `let` alias.
func subtermSourceVar(e ast.Expr, strict map[string]strictSubtermOf) (strictSubtermOf, bool) {
	v, ok := e.(*ast.VarExpr)
	if !ok {
		return strictSubtermOf{}, false
	}
	s, ok := strict[v.Name]
	return s, ok
}

// bindStrictFromPattern extends strict with every variable a
// `(Ctor p1 ... pk)` pattern binds over scrutinee, when scrutinee is
// itself a parameter or an already-known strict subterm.
func bindStrictFromPattern(p ast.Pattern, scrutinee ast.Expr, strict map[string]strictSubtermOf) map[string]strictSubtermOf {
	ctorPat, ok := p.(*ast.CtorPattern)
	if !ok {
		return strict
	}
	paramIdx, isParamOrStrict := subtermRoot(scrutinee, strict)
	if !isParamOrStrict {
		return strict
	}
	cur := strict
	for _, sub := range ctorPat.Args {
		if vp, ok := sub.(*ast.VarPattern); ok {
			cur = withStrict(cur, vp.Name, strictSubtermOf{paramIndex: paramIdx})
		}
	}
	return cur
}

// subtermRoot reports the originating parameter index when scrutinee
// is a direct parameter reference (tracked by the sentinel entries
// initialStrict puts in strict) or an existing strict-subterm
// variable.
func subtermRoot(scrutinee ast.Expr, strict map[string]strictSubtermOf) (int, bool) {
	v, ok := scrutinee.(*ast.VarExpr)
	if !ok {
		return 0, false
	}
	if s, ok := strict[v.Name]; ok {
		return s.paramIndex, true
	}
	if s, ok := strict[paramSentinel(v.Name)]; ok {
		return s.paramIndex, true
	}
	return 0, false
}

func paramSentinel(name string) string { return "\x00param:" + name }

func adtParamIndices(d *ast.Defn, ns *resolve.Namespaces) map[int]string {
	out := make(map[int]string)
	for i, p := range d.Params {
		if named, ok := p.Type.(*ast.NamedType); ok {
			if _, isData := ns.Datas[named.Name]; isData {
				out[i] = named.Name
			}
		}
	}
	return out
}

// initialStrict seeds the strict-subterm tracker with a sentinel entry
// per ADT-typed parameter, so subtermRoot can recognize a bare
// reference to the parameter itself as the root of index paramIndex.
func initialStrict(d *ast.Defn, adtParams map[int]string) map[string]strictSubtermOf {
	strict := make(map[string]strictSubtermOf)
	for i, p := range d.Params {
		if _, ok := adtParams[i]; ok {
			strict[paramSentinel(p.Name)] = strictSubtermOf{paramIndex: i}
		}
	}
	return strict
}

func checkRecursiveCall(bag *diagnostics.Bag, d *ast.Defn, c call, adtParams map[int]string) {
	if !c.tail {
		bag.Add(diagnostics.New(diagnostics.ETotal, c.expr.Sp.File, c.expr.Sp,
			"recursive call to %q is not in tail position", c.name).
			WithExtra("reason", string(ReasonNonTailRecursiveCall)))
		return
	}
	if c.name == d.Name && len(c.expr.Args) != len(d.Params) {
		bag.Add(diagnostics.New(diagnostics.ETotal, c.expr.Sp.File, c.expr.Sp,
			"recursive call to %q has %d argument(s), defn declares %d", c.name, len(c.expr.Args), len(d.Params)).
			WithExtra("reason", string(ReasonRecursiveCallArityMismatch)))
		return
	}
	if len(adtParams) == 0 {
		bag.Add(diagnostics.New(diagnostics.ETotal, c.expr.Sp.File, c.expr.Sp,
			"defn %q has no ADT-typed parameter to decrease", d.Name).
			WithExtra("reason", string(ReasonNoADTParameter)))
		return
	}

	strict := c.bindings
	var decreasing []int
	for i, arg := range c.expr.Args {
		if av, ok := arg.(*ast.VarExpr); ok {
			if s, ok := strict[av.Name]; ok && i < len(d.Params) {
				if s.paramIndex == i {
					decreasing = append(decreasing, i+1)
				}
			}
		}
	}
	if len(decreasing) == 0 {
		var argIndices []int
		for i := range adtParams {
			argIndices = append(argIndices, i+1)
		}
		sort.Ints(argIndices)
		bag.Add(diagnostics.New(diagnostics.ETotal, c.expr.Sp.File, c.expr.Sp,
			"recursive call to %q has no strictly decreasing argument", c.name).
			WithExtra("reason", string(ReasonNonDecreasingArgument)).
			WithExtra("arg_indices", argIndices))
	}
}

func sccOf(graph map[string][]string, order []string) [][]string {
	index := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	counter := 0
	var comps [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		deps := append([]string(nil), graph[v]...)
		sort.Strings(deps)
		for _, w := range deps {
			if _, ok := index[w]; !ok {
				if _, known := graph[w]; !known {
					continue // not a defn (e.g. an unresolved/relation name)
				}
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var comp []string
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			comps = append(comps, comp)
		}
	}

	for _, v := range order {
		if _, ok := index[v]; !ok {
			strongconnect(v)
		}
	}
	return comps
}
