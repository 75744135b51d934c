package resolve_test

import (
	"testing"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/config"
	"github.com/specverify/specverify/internal/parser"
	"github.com/specverify/specverify/internal/resolve"
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

func TestResolveAssertBinderBecomesVarTerm(t *testing.T) {
	prog := parseProgram(t, `
		(sort Subject)
		(relation can-access Subject Symbol)
		(assert read-granted ((u Subject)) (can-access u doc1))
	`)
	res, bag := resolve.Resolve(prog)
	if !bag.Empty() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	atomF := prog.Asserts[0].Formula.(*ast.AtomFormula)
	if _, ok := atomF.Atom.Args[0].(*ast.VarTerm); !ok {
		t.Fatalf("arg0 = %#v, want VarTerm", atomF.Atom.Args[0])
	}
	if _, ok := atomF.Atom.Args[1].(*ast.LitTerm); !ok {
		t.Fatalf("arg1 = %#v, want LitTerm (symbol doc1)", atomF.Atom.Args[1])
	}
	if res.Namespaces.Relations["can-access"] == nil {
		t.Fatalf("relation not registered in namespace")
	}
}

func TestResolveCallExprKindDefnVsCtor(t *testing.T) {
	prog := parseProgram(t, `
		(data Color (red) (green))
		(defn other-color ((c Color)) Color (if true (red) c))
		(defn pick ((c Color)) Color (other-color c))
	`)
	_, bag := resolve.Resolve(prog)
	if !bag.Empty() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	ifE := prog.Defns[0].Body.(*ast.IfExpr)
	ctorCall := ifE.Then.(*ast.CallExpr)
	if ctorCall.Kind != ast.CallCtor {
		t.Fatalf("kind = %v, want CallCtor", ctorCall.Kind)
	}
	defnCall := prog.Defns[1].Body.(*ast.CallExpr)
	if defnCall.Kind != ast.CallDefn {
		t.Fatalf("kind = %v, want CallDefn", defnCall.Kind)
	}
}

func TestResolveDetectsDuplicateConstructor(t *testing.T) {
	prog := parseProgram(t, `
		(data A (x))
		(data B (x))
	`)
	_, bag := resolve.Resolve(prog)
	if !bag.HasFatal() {
		t.Fatalf("expected E-RESOLVE for duplicate constructor name")
	}
}

func TestResolveDetectsUnsafeRule(t *testing.T) {
	prog := parseProgram(t, `
		(relation p Symbol)
		(relation q Symbol)
		(rule (p ?x) (q ?y))
	`)
	_, bag := resolve.Resolve(prog)
	if !bag.HasFatal() {
		t.Fatalf("expected E-RESOLVE for unsafe rule")
	}
}

func TestResolveAssignsDeterministicIDsInTestMode(t *testing.T) {
	config.IsTestMode = true
	defer func() { config.IsTestMode = false }()

	src := `
		(sort Subject)
		(data Color (red) (green))
	`
	prog1 := parseProgram(t, src)
	res1, bag := resolve.Resolve(prog1)
	if !bag.Empty() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	prog2 := parseProgram(t, src)
	res2, bag := resolve.Resolve(prog2)
	if !bag.Empty() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if res1.IDs[prog1.Sorts[0]] != res2.IDs[prog2.Sorts[0]] {
		t.Fatalf("IDs diverge across runs in test mode: %v vs %v",
			res1.IDs[prog1.Sorts[0]], res2.IDs[prog2.Sorts[0]])
	}
}

func TestResolveAcceptsSafeRule(t *testing.T) {
	prog := parseProgram(t, `
		(relation p Symbol)
		(relation q Symbol)
		(rule (p ?x) (and (q ?x) (not (r ?x))))
	`)
	_, bag := resolve.Resolve(prog)
	if bag.HasFatal() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}
