package types_test

import (
	"testing"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/parser"
	"github.com/specverify/specverify/internal/resolve"
	"github.com/specverify/specverify/internal/types"
)

func checkProgram(t *testing.T, src string) (*ast.Program, *types.Table, *diagnostics.Bag) {
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
	table, checkBag := types.Check(prog, res.Namespaces)
	return prog, table, checkBag
}

func TestCheckDefnIfBranchTypeMismatch(t *testing.T) {
	_, _, bag := checkProgram(t, `
		(defn bad () Int (if true 1 false))
	`)
	if !bag.HasFatal() {
		t.Fatalf("expected E-TYPE for mismatched if branches")
	}
}

func TestCheckDefnReturnsDeclaredType(t *testing.T) {
	_, table, bag := checkProgram(t, `
		(defn inc ((x Int)) Int (if true x x))
	`)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	sig := table.Defns["inc"]
	if sig.Return.Kind != types.Int {
		t.Fatalf("return type = %v, want Int", sig.Return)
	}
}

func TestCheckMatchExhaustivenessOnAdt(t *testing.T) {
	_, _, bag := checkProgram(t, `
		(data Color (red) (green) (blue))
		(defn is-red ((c Color)) Bool
			(match c ((red) true) ((green) false)))
	`)
	if !bag.HasFatal() {
		t.Fatalf("expected E-MATCH for missing blue arm")
	}
}

func TestCheckMatchWildcardCoversRest(t *testing.T) {
	_, _, bag := checkProgram(t, `
		(data Color (red) (green) (blue))
		(defn is-red ((c Color)) Bool
			(match c ((red) true) (_ false)))
	`)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestCheckUnreachableMatchArm(t *testing.T) {
	_, _, bag := checkProgram(t, `
		(data Color (red) (green))
		(defn is-red ((c Color)) Bool
			(match c (_ false) ((red) true)))
	`)
	if !bag.HasFatal() {
		t.Fatalf("expected E-MATCH for unreachable arm after wildcard")
	}
}

func TestCheckFactAcceptsGroundSymbolInDomainPosition(t *testing.T) {
	_, _, bag := checkProgram(t, `
		(sort Subject)
		(sort Resource)
		(relation can-access Subject Resource)
		(fact can-access alice doc1)
	`)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestCheckRelationCallArgMustBeSimple(t *testing.T) {
	_, _, bag := checkProgram(t, `
		(relation p Int)
		(defn f () Bool (p (if true 1 2)))
	`)
	if !bag.HasFatal() {
		t.Fatalf("expected E-TYPE: relation call argument must be simple")
	}
}
