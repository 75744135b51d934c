package prove_test

import (
	"testing"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/logic"
	"github.com/specverify/specverify/internal/parser"
	"github.com/specverify/specverify/internal/prove"
	"github.com/specverify/specverify/internal/resolve"
	"github.com/specverify/specverify/internal/strata"
)

func buildAndSolve(t *testing.T, src string) (*ast.Program, *logic.Model) {
	t.Helper()
	forms, bag := parser.ReadForms("t.spec", src)
	if !bag.Empty() {
		t.Fatalf("ReadForms: %v", bag.Items())
	}
	prog, bag := parser.BuildProgram("t.spec", forms)
	if !bag.Empty() {
		t.Fatalf("BuildProgram: %v", bag.Items())
	}
	if _, bag := resolve.Resolve(prog); !bag.Empty() {
		t.Fatalf("Resolve: %v", bag.Items())
	}
	st, bag := strata.Compute(prog)
	if !bag.Empty() {
		t.Fatalf("strata.Compute: %v", bag.Items())
	}
	model, bag := logic.Evaluate(prog, st)
	if !bag.Empty() {
		t.Fatalf("logic.Evaluate: %v", bag.Items())
	}
	return prog, model
}

func TestProveAssertSucceedsOnSingleSubjectUniverse(t *testing.T) {
	prog, model := buildAndSolve(t, `
		(sort Subject)
		(sort Resource)
		(data Action (read) (write))
		(relation can-access Subject Resource Action)
		(fact can-access alice doc1 (read))
		(universe Subject (alice))
		(universe Resource (doc1))
		(universe Action ((read) (write)))
		(assert read-granted ((u Subject)) (can-access u doc1 (read)))
	`)
	trace, bag := prove.Prove(prog, model)
	if !bag.Empty() {
		t.Fatalf("Prove: %v", bag.Items())
	}
	if len(trace.Obligations) != 1 || trace.Obligations[0].ID != "assert::read-granted" {
		t.Fatalf("obligations = %+v", trace.Obligations)
	}
	if trace.Obligations[0].Result != "proved" {
		t.Fatalf("result = %q, want proved", trace.Obligations[0].Result)
	}
}

func TestProveDefnRefinementFailsWithCounterexample(t *testing.T) {
	prog, model := buildAndSolve(t, `
		(data B (t) (f))
		(relation holds B)
		(fact holds (t))
		(universe B ((t) (f)))
		(defn ok ((x B)) (Refine b Bool (holds x)) (holds x))
	`)
	trace, bag := prove.Prove(prog, model)
	if !bag.Empty() {
		t.Fatalf("Prove: %v", bag.Items())
	}
	if len(trace.Obligations) != 1 {
		t.Fatalf("obligations = %+v", trace.Obligations)
	}
	ob := trace.Obligations[0]
	if ob.ID != "defn::ok" || ob.Result != "failed" {
		t.Fatalf("obligation = %+v, want defn::ok failed", ob)
	}
	val, ok := ob.Valuation["x"].(*ast.CtorTerm)
	if !ok || val.Name != "f" {
		t.Fatalf("valuation[x] = %+v, want (f)", ob.Valuation["x"])
	}
}

func TestProveReportsMissingUniverse(t *testing.T) {
	prog, model := buildAndSolve(t, `
		(sort Subject)
		(relation active Subject)
		(assert always-active ((u Subject)) (active u))
	`)
	trace, bag := prove.Prove(prog, model)
	if bag.Empty() {
		t.Fatalf("expected E-PROVE for missing Subject universe")
	}
	if len(trace.Obligations) != 0 {
		t.Fatalf("expected no obligations to be produced, got %+v", trace.Obligations)
	}
}
