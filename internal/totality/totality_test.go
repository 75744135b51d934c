package totality_test

import (
	"testing"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/parser"
	"github.com/specverify/specverify/internal/resolve"
	"github.com/specverify/specverify/internal/totality"
)

func parseAndResolve(t *testing.T, src string) (*ast.Program, *resolve.Program) {
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

func TestTotalityAcceptsStructurallyDecreasingRecursion(t *testing.T) {
	prog, res := parseAndResolve(t, `
		(data Nat (zero) (succ Nat))
		(defn is-even ((n Nat)) Bool
			(match n
				((zero) true)
				((succ p) (is-odd p))))
		(defn is-odd ((n Nat)) Bool
			(match n
				((zero) false)
				((succ p) (is-even p))))
	`)
	bag := totality.Check(prog, res.Namespaces)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestTotalityRejectsNonTailRecursion(t *testing.T) {
	prog, res := parseAndResolve(t, `
		(data Nat (zero) (succ Nat))
		(defn bad ((n Nat)) Bool
			(match n
				((zero) true)
				((succ p) (if (bad p) true true))))
	`)
	bag := totality.Check(prog, res.Namespaces)
	if !bag.HasFatal() {
		t.Fatalf("expected E-TOTAL for non-tail recursive call")
	}
}

func TestTotalityRejectsNonDecreasingArgument(t *testing.T) {
	prog, res := parseAndResolve(t, `
		(data Nat (zero) (succ Nat))
		(defn loop ((n Nat)) Bool (loop n))
	`)
	bag := totality.Check(prog, res.Namespaces)
	if !bag.HasFatal() {
		t.Fatalf("expected E-TOTAL for non-decreasing argument")
	}
}

func TestTotalityAcceptsNonRecursiveDefn(t *testing.T) {
	prog, res := parseAndResolve(t, `
		(data Nat (zero) (succ Nat))
		(defn is-zero ((n Nat)) Bool (match n ((zero) true) ((succ p) false)))
	`)
	bag := totality.Check(prog, res.Namespaces)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}
