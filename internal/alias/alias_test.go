package alias_test

import (
	"testing"

	"github.com/specverify/specverify/internal/alias"
	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/parser"
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

func TestNormalizeRewritesFactTerms(t *testing.T) {
	prog := parseProgram(t, `
		(data Color (red) (green))
		(alias crimson red)
		(fact favorite-color alice (crimson))
	`)
	bag := alias.Normalize(prog)
	if !bag.Empty() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	ct := prog.Facts[0].Terms[1].(*ast.CtorTerm)
	if ct.Name != "red" {
		t.Fatalf("term = %+v, want canonical red", ct)
	}
}

func TestNormalizeChainsThroughAliases(t *testing.T) {
	prog := parseProgram(t, `
		(data Color (red))
		(alias crimson scarlet)
		(alias scarlet red)
		(fact favorite-color alice (crimson))
	`)
	bag := alias.Normalize(prog)
	if !bag.Empty() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	ct := prog.Facts[0].Terms[1].(*ast.CtorTerm)
	if ct.Name != "red" {
		t.Fatalf("term = %+v, want canonical red", ct)
	}
}

func TestNormalizeRejectsUndefinedCanonical(t *testing.T) {
	prog := parseProgram(t, `
		(data Color (red))
		(alias crimson nonexistent)
	`)
	bag := alias.Normalize(prog)
	if bag.Empty() {
		t.Fatalf("expected E-RESOLVE for undefined canonical constructor")
	}
}

func TestNormalizeRejectsCycle(t *testing.T) {
	prog := parseProgram(t, `
		(data Color (red))
		(alias a b)
		(alias b a)
	`)
	bag := alias.Normalize(prog)
	if bag.Empty() {
		t.Fatalf("expected E-RESOLVE for alias cycle")
	}
}
