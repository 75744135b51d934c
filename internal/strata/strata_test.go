package strata_test

import (
	"testing"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/parser"
	"github.com/specverify/specverify/internal/strata"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	forms, bag := parser.ReadForms("cycle.spec", src)
	if !bag.Empty() {
		t.Fatalf("ReadForms: %v", bag.Items())
	}
	prog, bag := parser.BuildProgram("cycle.spec", forms)
	if !bag.Empty() {
		t.Fatalf("BuildProgram: %v", bag.Items())
	}
	return prog
}

func TestComputeAssignsIncreasingStrataAcrossNegation(t *testing.T) {
	prog := parseProgram(t, `
		(relation dom Symbol)
		(relation p Symbol)
		(relation q Symbol)
		(fact dom a)
		(rule (p ?x) (dom ?x))
		(rule (q ?x) (and (dom ?x) (not (p ?x))))
	`)
	st, bag := strata.Compute(prog)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if st["q"] <= st["p"] {
		t.Fatalf("stratum(q)=%d should be strictly above stratum(p)=%d", st["q"], st["p"])
	}
}

func TestComputeReportsNegativeCycleWithFileAccurateSource(t *testing.T) {
	prog := parseProgram(t, `
		(relation dom Symbol)
		(relation p Symbol)
		(relation q Symbol)
		(fact dom a)
		(rule (p ?x) (and (dom ?x) (not (q ?x))))
		(rule (q ?x) (and (dom ?x) (not (p ?x))))
	`)
	_, bag := strata.Compute(prog)
	if !bag.HasFatal() {
		t.Fatalf("expected E-STRATIFY for the negation cycle")
	}
	for _, d := range bag.Items() {
		if d.Source != "cycle.spec" {
			t.Fatalf("Source = %q, want %q", d.Source, "cycle.spec")
		}
	}
}
