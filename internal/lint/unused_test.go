package lint_test

import (
	"testing"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/lint"
	"github.com/specverify/specverify/internal/logic"
	"github.com/specverify/specverify/internal/parser"
	"github.com/specverify/specverify/internal/resolve"
	"github.com/specverify/specverify/internal/strata"
)

func parseResolve(t *testing.T, src string) (*ast.Program, *resolve.Program) {
	t.Helper()
	forms, bag := parser.ReadForms("t.spec", src)
	if !bag.Empty() {
		t.Fatalf("ReadForms: %v", bag.Items())
	}
	prog, bag := parser.BuildProgram("t.spec", forms)
	if !bag.Empty() {
		t.Fatalf("BuildProgram: %v", bag.Items())
	}
	res, bag := resolve.Resolve(prog)
	if !bag.Empty() {
		t.Fatalf("Resolve: %v", bag.Items())
	}
	return prog, res
}

func TestCheckUnusedFlagsUnreferencedRelation(t *testing.T) {
	prog, res := parseResolve(t, `
		(sort Subject)
		(relation active Subject)
		(relation dormant Subject)
		(universe Subject (a))
		(assert always-active ((u Subject)) (active u))
	`)
	bag := lint.CheckUnused(prog, res.Namespaces)
	found := false
	for _, d := range bag.Items() {
		if d.DiagCode == "L-UNUSED-DECL" && d.Message == `relation "dormant" is never referenced by an assert or defn refinement` {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected L-UNUSED-DECL for relation dormant, got %v", bag.Items())
	}
}

func TestCheckUnusedAcceptsFullyReferencedProgram(t *testing.T) {
	prog, res := parseResolve(t, `
		(sort Subject)
		(relation active Subject)
		(universe Subject (a))
		(assert always-active ((u Subject)) (active u))
	`)
	bag := lint.CheckUnused(prog, res.Namespaces)
	for _, d := range bag.Items() {
		if d.DiagCode == "L-UNUSED-DECL" {
			t.Fatalf("unexpected L-UNUSED-DECL: %v", d)
		}
	}
}

func TestCheckDuplicatesExactFindsIdenticalRules(t *testing.T) {
	prog, _ := parseResolve(t, `
		(data Node (a) (b) (c))
		(relation edge Node Node)
		(relation path Node Node)
		(rule (path ?x ?y) (edge ?x ?y))
		(rule (path ?p ?q) (edge ?p ?q))
	`)
	bag := lint.CheckDuplicatesExact(prog)
	found := false
	for _, d := range bag.Items() {
		if d.DiagCode == "L-DUP-EXACT" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected L-DUP-EXACT diagnostic, got %v", bag.Items())
	}
}

func TestCheckDuplicatesSemanticFindsEquivalentDefns(t *testing.T) {
	prog, _ := parseResolve(t, `
		(data Bit (zero) (one))
		(universe Bit ((zero) (one)))
		(defn is-one ((x Bit)) Bool (match x ((zero) false) ((one) true)))
		(defn not-zero ((x Bit)) Bool (is-one x))
	`)
	st, bag := strata.Compute(prog)
	if !bag.Empty() {
		t.Fatalf("strata.Compute: %v", bag.Items())
	}
	model, bag := logic.Evaluate(prog, st)
	if !bag.Empty() {
		t.Fatalf("logic.Evaluate: %v", bag.Items())
	}
	universes := map[string][]ast.Term{"Bit": prog.Universes[0].Values}
	candidates, bag := lint.CheckDuplicatesSemantic(prog, model, universes)
	if len(candidates) != 1 {
		t.Fatalf("candidates = %+v, bag = %v", candidates, bag.Items())
	}
}
