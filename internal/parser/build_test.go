package parser_test

import (
	"testing"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/parser"
)

func build(t *testing.T, src string) *ast.Program {
	t.Helper()
	forms, bag := parser.ReadForms("t.spec", src)
	if !bag.Empty() {
		t.Fatalf("ReadForms diagnostics: %v", bag.Items())
	}
	prog, bag := parser.BuildProgram("t.spec", forms)
	if !bag.Empty() {
		t.Fatalf("BuildProgram diagnostics: %v", bag.Items())
	}
	return prog
}

func TestBuildSortDataRelation(t *testing.T) {
	prog := build(t, `
		(sort Subject)
		(data Color (red) (green) (blue))
		(relation can-access Subject Symbol)
	`)
	if len(prog.Sorts) != 1 || prog.Sorts[0].Name != "Subject" {
		t.Fatalf("sorts = %+v", prog.Sorts)
	}
	if len(prog.Datas) != 1 || len(prog.Datas[0].Constructors) != 3 {
		t.Fatalf("datas = %+v", prog.Datas)
	}
	if len(prog.Relations) != 1 || len(prog.Relations[0].ArgTypes) != 2 {
		t.Fatalf("relations = %+v", prog.Relations)
	}
}

func TestBuildFactAndRule(t *testing.T) {
	prog := build(t, `
		(fact can-access alice doc1 (read))
		(rule (can-access ?u ?d) (and (owns ?u ?d) (not (revoked ?u ?d))))
	`)
	if len(prog.Facts) != 1 || prog.Facts[0].Relation != "can-access" {
		t.Fatalf("facts = %+v", prog.Facts)
	}
	ct, ok := prog.Facts[0].Terms[2].(*ast.CtorTerm)
	if !ok || ct.Name != "read" {
		t.Fatalf("fact term[2] = %#v", prog.Facts[0].Terms[2])
	}

	if len(prog.Rules) != 1 {
		t.Fatalf("rules = %+v", prog.Rules)
	}
	rule := prog.Rules[0]
	if rule.Head.Pred != "can-access" || len(rule.Head.Args) != 2 {
		t.Fatalf("rule head = %+v", rule.Head)
	}
	if _, ok := rule.Head.Args[0].(*ast.VarTerm); !ok {
		t.Fatalf("rule head arg 0 = %#v, want VarTerm", rule.Head.Args[0])
	}
	and, ok := rule.Body.(*ast.AndFormula)
	if !ok || len(and.Terms) != 2 {
		t.Fatalf("rule body = %#v", rule.Body)
	}
	if _, ok := and.Terms[1].(*ast.NotFormula); !ok {
		t.Fatalf("rule body term[1] = %#v, want NotFormula", and.Terms[1])
	}
}

func TestBuildAssertWithPlainBinder(t *testing.T) {
	prog := build(t, `(assert read-granted ((u Subject)) (can-access u doc1 (read)))`)
	if len(prog.Asserts) != 1 {
		t.Fatalf("asserts = %+v", prog.Asserts)
	}
	as := prog.Asserts[0]
	if len(as.Binders) != 1 || as.Binders[0].Name != "u" {
		t.Fatalf("binders = %+v", as.Binders)
	}
	atomF, ok := as.Formula.(*ast.AtomFormula)
	if !ok {
		t.Fatalf("formula = %#v, want AtomFormula", as.Formula)
	}
	// "u" is a plain-name binder reference, not a rule variable: the
	// parser leaves it as an unresolved NameTerm for internal/resolve.
	nt, ok := atomF.Atom.Args[0].(*ast.NameTerm)
	if !ok || nt.Name != "u" {
		t.Fatalf("formula arg 0 = %#v, want NameTerm(u)", atomF.Atom.Args[0])
	}
}

func TestBuildDefnWithIfAndMatch(t *testing.T) {
	prog := build(t, `
		(defn classify ((c Color)) Symbol
			(match c ((red) hot) ((green) cool) (_ neutral)))
		(defn choose ((ok Bool)) Int (if ok 1 0))
	`)
	if len(prog.Defns) != 2 {
		t.Fatalf("defns = %+v", prog.Defns)
	}
	m, ok := prog.Defns[0].Body.(*ast.MatchExpr)
	if !ok || len(m.Arms) != 3 {
		t.Fatalf("classify body = %#v", prog.Defns[0].Body)
	}
	if _, ok := m.Arms[2].Pattern.(*ast.WildcardPattern); !ok {
		t.Fatalf("arm 2 pattern = %#v, want wildcard", m.Arms[2].Pattern)
	}
	ifE, ok := prog.Defns[1].Body.(*ast.IfExpr)
	if !ok {
		t.Fatalf("choose body = %#v, want IfExpr", prog.Defns[1].Body)
	}
	lit, ok := ifE.Then.(*ast.LitExpr)
	if !ok || lit.Kind != ast.LitInt || lit.Int != 1 {
		t.Fatalf("if-then = %#v", ifE.Then)
	}
}

func TestBuildUniverseAndAlias(t *testing.T) {
	prog := build(t, `
		(universe Color (red) (green) (blue))
		(alias クロ black)
	`)
	if len(prog.Universes) != 1 || len(prog.Universes[0].Values) != 3 {
		t.Fatalf("universes = %+v", prog.Universes)
	}
	if len(prog.Aliases) != 1 || prog.Aliases[0].Canonical != "black" {
		t.Fatalf("aliases = %+v", prog.Aliases)
	}
}

func TestResolveModeDetectsSurfaceForm(t *testing.T) {
	forms, bag := parser.ReadForms("t.spec", `(relation can-access :args (Subject Symbol))`)
	if !bag.Empty() {
		t.Fatalf("ReadForms diagnostics: %v", bag.Items())
	}
	mode, bag := parser.ResolveMode("t.spec", forms, parser.ModeAuto)
	if !bag.Empty() {
		t.Fatalf("ResolveMode diagnostics: %v", bag.Items())
	}
	if mode != parser.ModeSurface {
		t.Fatalf("mode = %v, want ModeSurface", mode)
	}
}
