package logic_test

import (
	"testing"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/logic"
	"github.com/specverify/specverify/internal/parser"
	"github.com/specverify/specverify/internal/strata"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	forms, bag := parser.ReadForms("t.spec", src)
	if !bag.Empty() {
		t.Fatalf("ReadForms: %v", bag.Items())
	}
	prog, bag := parser.BuildProgram("t.spec", forms)
	if !bag.Empty() {
		t.Fatalf("BuildProgram: %v", bag.Items())
	}
	return prog
}

func hasFact(m *logic.Model, relation string, render func(*ast.CtorTerm) bool) bool {
	for _, f := range m.Facts[relation] {
		if len(f.Terms) == 1 {
			if ct, ok := f.Terms[0].(*ast.CtorTerm); ok && render(ct) {
				return true
			}
		}
	}
	return false
}

func TestEvaluateDerivesTransitiveClosure(t *testing.T) {
	prog := parseProgram(t, `
		(data Node (a) (b) (c))
		(relation edge Node Node)
		(relation path Node Node)
		(fact edge (a) (b))
		(fact edge (b) (c))
		(rule (path ?x ?y) (edge ?x ?y))
		(rule (path ?x ?z) (and (edge ?x ?y) (path ?y ?z)))
	`)
	st, bag := strata.Compute(prog)
	if !bag.Empty() {
		t.Fatalf("strata.Compute: %v", bag.Items())
	}
	model, bag := logic.Evaluate(prog, st)
	if !bag.Empty() {
		t.Fatalf("Evaluate: %v", bag.Items())
	}
	if len(model.Facts["path"]) != 3 {
		t.Fatalf("path facts = %d, want 3 (a-b, b-c, a-c)", len(model.Facts["path"]))
	}
}

func TestEvaluateHandlesStratifiedNegation(t *testing.T) {
	prog := parseProgram(t, `
		(data Node (a) (b))
		(relation known Node)
		(relation unknown Node)
		(fact known (a))
		(rule (unknown ?x) (and (known ?x) (not (known ?x))))
	`)
	st, bag := strata.Compute(prog)
	if !bag.Empty() {
		t.Fatalf("strata.Compute: %v", bag.Items())
	}
	model, bag := logic.Evaluate(prog, st)
	if !bag.Empty() {
		t.Fatalf("Evaluate: %v", bag.Items())
	}
	if len(model.Facts["unknown"]) != 0 {
		t.Fatalf("expected no unknown facts, got %d", len(model.Facts["unknown"]))
	}
}

func TestEvaluateDeduplicatesDerivedFacts(t *testing.T) {
	prog := parseProgram(t, `
		(data Node (a) (b))
		(relation edge Node Node)
		(relation path Node Node)
		(fact edge (a) (b))
		(fact edge (a) (b))
		(rule (path ?x ?y) (edge ?x ?y))
	`)
	st, bag := strata.Compute(prog)
	if !bag.Empty() {
		t.Fatalf("strata.Compute: %v", bag.Items())
	}
	model, bag := logic.Evaluate(prog, st)
	if !bag.Empty() {
		t.Fatalf("Evaluate: %v", bag.Items())
	}
	if len(model.Facts["path"]) != 1 {
		t.Fatalf("path facts = %d, want 1 (deduplicated)", len(model.Facts["path"]))
	}
}
