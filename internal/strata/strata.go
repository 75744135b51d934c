// Package strata implements §4.6's stratifier: a relation dependency
// graph (r -> s when a rule with head r mentions s in its body,
// labeled negative if s appears under `not`), its strongly connected
// components, and a stratum assignment such that every negative edge
// goes from a strictly higher stratum to a strictly lower one.
package strata

import (
	"sort"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
)

// edge is one dependency r -> s discovered in a rule body, carrying
// the span of the atom that introduced it so a later E-STRATIFY
// diagnostic can attribute itself to the right file.
type edge struct {
	to       string
	negative bool
	sp       ast.Span
}

// Strata maps every declared relation, and every relation a rule
// mentions, to its assigned stratum index (0-based, lowest first).
// Relations that never head a rule are assigned stratum 0.
type Strata map[string]int

// Compute builds the dependency graph from prog's rules, finds its
// SCCs, and assigns strata. A negative edge inside a non-trivial SCC
// (or a self-loop negative edge) is E-STRATIFY.
func Compute(prog *ast.Program) (Strata, *diagnostics.Bag) {
	bag := diagnostics.NewBag()

	graph := make(map[string][]edge)
	relations := make(map[string]bool)
	for _, rel := range prog.Relations {
		relations[rel.Name] = true
	}
	for _, rule := range prog.Rules {
		head := rule.Head.Pred
		relations[head] = true
		for _, dep := range bodyDeps(rule.Body) {
			relations[dep.to] = true
			graph[head] = append(graph[head], dep)
		}
	}

	order := sortedKeys(relations)
	comps := tarjanSCC(order, graph)
	compOf := make(map[string]int, len(relations))
	for i, comp := range comps {
		for _, r := range comp {
			compOf[r] = i
		}
	}

	// A negative edge within the same SCC means r depends negatively
	// on something that (transitively) depends back on r: unstratifiable.
	for head, deps := range graph {
		for _, d := range deps {
			if d.negative && compOf[head] == compOf[d.to] {
				bag.Add(diagnostics.New(diagnostics.EStratify, d.sp.File, d.sp,
					"relation %q has a negative dependency on %q within a cycle", head, d.to))
			}
		}
	}
	if bag.HasFatal() {
		return nil, bag
	}

	// Condensation: the SCC DAG is itself acyclic; assign each SCC a
	// stratum equal to one more than the max stratum among SCCs it
	// depends on negatively (and at least the max among SCCs it depends
	// on positively, to keep positive dependents no higher than needed).
	compStratum := make([]int, len(comps))
	// Process SCCs in reverse topological order of discovery: Tarjan
	// emits components in reverse topological order already.
	stratumOf := func(name string) int { return compStratum[compOf[name]] }
	for i := range comps {
		for _, r := range comps[i] {
			for _, d := range graph[r] {
				if compOf[d.to] == i {
					continue
				}
				need := stratumOf(d.to)
				if d.negative {
					need++
				}
				if need > compStratum[i] {
					compStratum[i] = need
				}
			}
		}
	}

	result := make(Strata, len(relations))
	for r := range relations {
		result[r] = compStratum[compOf[r]]
	}
	return result, bag
}

func bodyDeps(f ast.Formula) []edge {
	switch v := f.(type) {
	case *ast.AndFormula:
		var out []edge
		for _, t := range v.Terms {
			out = append(out, bodyDeps(t)...)
		}
		return out
	case *ast.AtomFormula:
		return []edge{{to: v.Atom.Pred, negative: false, sp: v.Atom.Sp}}
	case *ast.NotFormula:
		return []edge{{to: v.Atom.Pred, negative: true, sp: v.Atom.Sp}}
	default:
		return nil
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// tarjanSCC computes strongly connected components in reverse
// topological order (components with no outgoing edge to an
// unprocessed component come first), over the deterministic node
// order given by order.
func tarjanSCC(order []string, graph map[string][]edge) [][]string {
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

		deps := graph[v]
		sorted := make([]edge, len(deps))
		copy(sorted, deps)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].to < sorted[j].to })
		for _, d := range sorted {
			w := d.to
			if _, seen := index[w]; !seen {
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
			sort.Strings(comp)
			comps = append(comps, comp)
		}
	}

	for _, v := range order {
		if _, seen := index[v]; !seen {
			strongconnect(v)
		}
	}
	return comps
}
