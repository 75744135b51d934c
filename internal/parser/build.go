package parser

import (
	"strconv"
	"strings"

	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
)

// builder turns canonical Core-shaped forms (already desugared by
// internal/surface if the file used Surface syntax) into an
// *ast.Program. It does not resolve names: every bare, non-`?`
// identifier that could be a variable, a nullary constructor, or a
// symbol literal is left as an ast.VarExpr or ast.NameTerm for
// internal/resolve to disambiguate (see ast.NameTerm's doc comment).
type builder struct {
	file string
	bag  *diagnostics.Bag
}

// BuildProgram converts a file's canonical top-level forms into an
// *ast.Program. Forms with structural errors (wrong arity, a head that
// isn't a bare atom, a child that isn't the expected shape) are
// skipped and reported rather than aborting the whole file, so one bad
// declaration doesn't hide errors in the rest of the file.
func BuildProgram(file string, forms []*List) (*ast.Program, *diagnostics.Bag) {
	b := &builder{file: file, bag: diagnostics.NewBag()}
	prog := &ast.Program{File: file}
	for _, f := range forms {
		b.buildDecl(prog, f)
	}
	return prog, b.bag
}

func (b *builder) errorf(sp ast.Span, format string, args ...any) {
	b.bag.Add(diagnostics.New(diagnostics.EParse, b.file, sp, format, args...))
}

func (b *builder) buildDecl(prog *ast.Program, l *List) {
	if len(l.Items) == 0 {
		return
	}
	switch l.Head() {
	case "import":
		b.buildImport(prog, l)
	case "sort":
		b.buildSort(prog, l)
	case "data":
		b.buildData(prog, l)
	case "relation":
		b.buildRelation(prog, l)
	case "fact":
		b.buildFact(prog, l)
	case "rule":
		b.buildRule(prog, l)
	case "assert":
		b.buildAssert(prog, l)
	case "universe":
		b.buildUniverse(prog, l)
	case "defn":
		b.buildDefn(prog, l)
	case "alias":
		b.buildAlias(prog, l)
	default:
		b.errorf(l.Span(), "unknown top-level declaration %q", l.Head())
	}
}

// --- small shared helpers -------------------------------------------------

func (b *builder) atomLiteral(s SExpr, what string) (string, bool) {
	a, ok := s.(*Atom)
	if !ok || a.Quoted {
		b.errorf(s.Span(), "expected a bare %s name", what)
		return "", false
	}
	return a.Literal, true
}

func (b *builder) asList(s SExpr, what string) (*List, bool) {
	l, ok := s.(*List)
	if !ok {
		b.errorf(s.Span(), "expected a parenthesized %s", what)
		return nil, false
	}
	return l, true
}

func (b *builder) need(l *List, n int, form string) bool {
	if len(l.Items) < n {
		b.errorf(l.Span(), "%q expects at least %d argument(s), got %d", form, n-1, len(l.Items)-1)
		return false
	}
	return true
}

// --- types -----------------------------------------------------------------

func (b *builder) parseType(s SExpr) ast.Type {
	switch v := s.(type) {
	case *Atom:
		switch v.Literal {
		case "Bool":
			return &ast.BoolType{Sp: v.Sp}
		case "Int":
			return &ast.IntType{Sp: v.Sp}
		case "Symbol":
			return &ast.SymbolType{Sp: v.Sp}
		default:
			return &ast.NamedType{Sp: v.Sp, Name: v.Literal}
		}
	case *List:
		if v.Head() == "Refine" {
			return b.parseRefineType(v)
		}
		b.errorf(v.Span(), "unknown type form %q", v.Head())
		return &ast.NamedType{Sp: v.Sp, Name: "?"}
	default:
		b.errorf(s.Span(), "expected a type")
		return &ast.NamedType{Sp: s.Span(), Name: "?"}
	}
}

// parseRefineType handles `(Refine bound Base Formula)`.
func (b *builder) parseRefineType(l *List) ast.Type {
	if !b.need(l, 4, "Refine") {
		return &ast.NamedType{Sp: l.Sp, Name: "?"}
	}
	bound, _ := b.atomLiteral(l.Items[1], "refinement bound name")
	base := b.parseType(l.Items[2])
	formula := b.parseFormula(l.Items[3])
	return &ast.RefineType{Sp: l.Sp, Bound: bound, Base: base, Predicate: formula}
}

// --- terms and formulas ------------------------------------------------

func (b *builder) parseTerm(s SExpr) ast.Term {
	switch v := s.(type) {
	case *Atom:
		if v.Quoted {
			return &ast.LitTerm{Sp: v.Sp, Kind: ast.LitSymbol, Symbol: v.Literal}
		}
		if strings.HasPrefix(v.Literal, "?") {
			return &ast.VarTerm{Sp: v.Sp, Name: v.Literal}
		}
		switch v.Literal {
		case "true":
			return &ast.LitTerm{Sp: v.Sp, Kind: ast.LitBool, Bool: true}
		case "false":
			return &ast.LitTerm{Sp: v.Sp, Kind: ast.LitBool, Bool: false}
		}
		if n, err := strconv.ParseInt(v.Literal, 10, 64); err == nil {
			return &ast.LitTerm{Sp: v.Sp, Kind: ast.LitInt, Int: n}
		}
		return &ast.NameTerm{Sp: v.Sp, Name: v.Literal}
	case *List:
		name, _ := b.atomLiteral(firstOrNil(v), "constructor")
		args := make([]ast.Term, 0, len(v.Items)-1)
		for _, it := range v.Items[1:] {
			args = append(args, b.parseTerm(it))
		}
		return &ast.CtorTerm{Sp: v.Sp, Name: name, Args: args}
	default:
		b.errorf(s.Span(), "expected a term")
		return &ast.LitTerm{Sp: s.Span(), Kind: ast.LitSymbol, Symbol: "?"}
	}
}

func firstOrNil(l *List) SExpr {
	if len(l.Items) == 0 {
		return &Atom{Sp: l.Sp, Literal: ""}
	}
	return l.Items[0]
}

// parseAtomCall parses `(Pred t1 t2 ...)` as a predicate application,
// used for rule heads and for the body of AtomFormula/NotFormula.
func (b *builder) parseAtomCall(l *List) *ast.Atom {
	pred, _ := b.atomLiteral(firstOrNil(l), "predicate")
	args := make([]ast.Term, 0, len(l.Items)-1)
	for _, it := range l.Items[1:] {
		args = append(args, b.parseTerm(it))
	}
	return &ast.Atom{Sp: l.Sp, Pred: pred, Args: args}
}

func (b *builder) parseFormula(s SExpr) ast.Formula {
	switch v := s.(type) {
	case *Atom:
		if !v.Quoted && v.Literal == "true" {
			return &ast.TrueFormula{Sp: v.Sp}
		}
		b.errorf(v.Span(), "expected a formula")
		return &ast.TrueFormula{Sp: v.Sp}
	case *List:
		switch v.Head() {
		case "and":
			terms := make([]ast.Formula, 0, len(v.Items)-1)
			for _, it := range v.Items[1:] {
				terms = append(terms, b.parseFormula(it))
			}
			return &ast.AndFormula{Sp: v.Sp, Terms: terms}
		case "not":
			if !b.need(v, 2, "not") {
				return &ast.TrueFormula{Sp: v.Sp}
			}
			inner, ok := b.asList(v.Items[1], "negated predicate call")
			if !ok {
				return &ast.TrueFormula{Sp: v.Sp}
			}
			return &ast.NotFormula{Sp: v.Sp, Atom: b.parseAtomCall(inner)}
		default:
			return &ast.AtomFormula{Sp: v.Sp, Atom: b.parseAtomCall(v)}
		}
	default:
		b.errorf(s.Span(), "expected a formula")
		return &ast.TrueFormula{Sp: s.Span()}
	}
}

// --- expressions and patterns -------------------------------------------

func (b *builder) parseExpr(s SExpr) ast.Expr {
	switch v := s.(type) {
	case *Atom:
		if v.Quoted {
			return &ast.LitExpr{Sp: v.Sp, Kind: ast.LitSymbol, Symbol: v.Literal}
		}
		switch v.Literal {
		case "true":
			return &ast.LitExpr{Sp: v.Sp, Kind: ast.LitBool, Bool: true}
		case "false":
			return &ast.LitExpr{Sp: v.Sp, Kind: ast.LitBool, Bool: false}
		}
		if n, err := strconv.ParseInt(v.Literal, 10, 64); err == nil {
			return &ast.LitExpr{Sp: v.Sp, Kind: ast.LitInt, Int: n}
		}
		return &ast.VarExpr{Sp: v.Sp, Name: v.Literal}
	case *List:
		switch v.Head() {
		case "let":
			return b.parseLet(v)
		case "if":
			return b.parseIf(v)
		case "match":
			return b.parseMatch(v)
		default:
			name, _ := b.atomLiteral(firstOrNil(v), "call target")
			args := make([]ast.Expr, 0, len(v.Items)-1)
			for _, it := range v.Items[1:] {
				args = append(args, b.parseExpr(it))
			}
			return &ast.CallExpr{Sp: v.Sp, Name: name, Args: args, Kind: ast.CallUnresolved}
		}
	default:
		b.errorf(s.Span(), "expected an expression")
		return &ast.LitExpr{Sp: s.Span(), Kind: ast.LitBool, Bool: false}
	}
}

// parseLet handles `(let ((x1 e1) (x2 e2) ...) body)`.
func (b *builder) parseLet(l *List) ast.Expr {
	if !b.need(l, 3, "let") {
		return &ast.LitExpr{Sp: l.Sp, Kind: ast.LitBool, Bool: false}
	}
	bindingsList, ok := b.asList(l.Items[1], "let bindings")
	if !ok {
		return &ast.LitExpr{Sp: l.Sp, Kind: ast.LitBool, Bool: false}
	}
	bindings := make([]*ast.LetBinding, 0, len(bindingsList.Items))
	for _, item := range bindingsList.Items {
		pair, ok := b.asList(item, "let binding")
		if !ok || !b.need(pair, 2, "let binding") {
			continue
		}
		name, _ := b.atomLiteral(pair.Items[0], "let-bound name")
		bindings = append(bindings, &ast.LetBinding{Sp: pair.Sp, Name: name, Value: b.parseExpr(pair.Items[1])})
	}
	body := b.parseExpr(l.Items[2])
	return &ast.LetExpr{Sp: l.Sp, Bindings: bindings, Body: body}
}

// parseIf handles `(if cond then else)`.
func (b *builder) parseIf(l *List) ast.Expr {
	if !b.need(l, 4, "if") {
		return &ast.LitExpr{Sp: l.Sp, Kind: ast.LitBool, Bool: false}
	}
	return &ast.IfExpr{
		Sp:   l.Sp,
		Cond: b.parseExpr(l.Items[1]),
		Then: b.parseExpr(l.Items[2]),
		Else: b.parseExpr(l.Items[3]),
	}
}

// parseMatch handles `(match scrutinee (pat1 body1) (pat2 body2) ...)`.
func (b *builder) parseMatch(l *List) ast.Expr {
	if !b.need(l, 3, "match") {
		return &ast.LitExpr{Sp: l.Sp, Kind: ast.LitBool, Bool: false}
	}
	scrutinee := b.parseExpr(l.Items[1])
	arms := make([]*ast.MatchArm, 0, len(l.Items)-2)
	for _, item := range l.Items[2:] {
		arm, ok := b.asList(item, "match arm")
		if !ok || !b.need(arm, 2, "match arm") {
			continue
		}
		arms = append(arms, &ast.MatchArm{
			Sp:      arm.Sp,
			Pattern: b.parsePattern(arm.Items[0]),
			Body:    b.parseExpr(arm.Items[1]),
		})
	}
	return &ast.MatchExpr{Sp: l.Sp, Scrutinee: scrutinee, Arms: arms}
}

func (b *builder) parsePattern(s SExpr) ast.Pattern {
	switch v := s.(type) {
	case *Atom:
		if !v.Quoted {
			switch v.Literal {
			case "_":
				return &ast.WildcardPattern{Sp: v.Sp}
			case "true":
				return &ast.LitPattern{Sp: v.Sp, Kind: ast.LitBool, Bool: true}
			case "false":
				return &ast.LitPattern{Sp: v.Sp, Kind: ast.LitBool, Bool: false}
			}
			if n, err := strconv.ParseInt(v.Literal, 10, 64); err == nil {
				return &ast.LitPattern{Sp: v.Sp, Kind: ast.LitInt, Int: n}
			}
		}
		return &ast.VarPattern{Sp: v.Sp, Name: v.Literal}
	case *List:
		name, _ := b.atomLiteral(firstOrNil(v), "constructor pattern")
		args := make([]ast.Pattern, 0, len(v.Items)-1)
		for _, it := range v.Items[1:] {
			args = append(args, b.parsePattern(it))
		}
		return &ast.CtorPattern{Sp: v.Sp, Name: name, Args: args}
	default:
		b.errorf(s.Span(), "expected a pattern")
		return &ast.WildcardPattern{Sp: s.Span()}
	}
}

// --- top-level declarations ----------------------------------------------

func (b *builder) buildImport(prog *ast.Program, l *List) {
	if !b.need(l, 2, "import") {
		return
	}
	a, ok := l.Items[1].(*Atom)
	if !ok || !a.Quoted {
		b.errorf(l.Span(), "import path must be a quoted string")
		return
	}
	prog.Imports = append(prog.Imports, &ast.Import{Sp: l.Sp, Path: a.Literal})
}

func (b *builder) buildSort(prog *ast.Program, l *List) {
	if !b.need(l, 2, "sort") {
		return
	}
	name, ok := b.atomLiteral(l.Items[1], "sort")
	if !ok {
		return
	}
	prog.Sorts = append(prog.Sorts, &ast.Sort{Sp: l.Sp, Name: name})
}

func (b *builder) buildData(prog *ast.Program, l *List) {
	if !b.need(l, 2, "data") {
		return
	}
	name, ok := b.atomLiteral(l.Items[1], "data type")
	if !ok {
		return
	}
	ctors := make([]*ast.Constructor, 0, len(l.Items)-2)
	for _, item := range l.Items[2:] {
		cl, ok := b.asList(item, "constructor")
		if !ok || len(cl.Items) == 0 {
			continue
		}
		cname, ok := b.atomLiteral(cl.Items[0], "constructor name")
		if !ok {
			continue
		}
		args := make([]ast.Type, 0, len(cl.Items)-1)
		for _, t := range cl.Items[1:] {
			args = append(args, b.parseType(t))
		}
		ctors = append(ctors, &ast.Constructor{Sp: cl.Sp, Name: cname, Args: args})
	}
	prog.Datas = append(prog.Datas, &ast.Data{Sp: l.Sp, Name: name, Constructors: ctors})
}

func (b *builder) buildRelation(prog *ast.Program, l *List) {
	if !b.need(l, 2, "relation") {
		return
	}
	name, ok := b.atomLiteral(l.Items[1], "relation")
	if !ok {
		return
	}
	argTypes := make([]ast.Type, 0, len(l.Items)-2)
	for _, t := range l.Items[2:] {
		argTypes = append(argTypes, b.parseType(t))
	}
	prog.Relations = append(prog.Relations, &ast.Relation{Sp: l.Sp, Name: name, ArgTypes: argTypes})
}

func (b *builder) buildFact(prog *ast.Program, l *List) {
	if !b.need(l, 2, "fact") {
		return
	}
	rel, ok := b.atomLiteral(l.Items[1], "fact relation")
	if !ok {
		return
	}
	terms := make([]ast.Term, 0, len(l.Items)-2)
	for _, t := range l.Items[2:] {
		terms = append(terms, b.parseTerm(t))
	}
	prog.Facts = append(prog.Facts, &ast.Fact{Sp: l.Sp, Relation: rel, Terms: terms})
}

func (b *builder) buildRule(prog *ast.Program, l *List) {
	if !b.need(l, 3, "rule") {
		return
	}
	headList, ok := b.asList(l.Items[1], "rule head")
	if !ok {
		return
	}
	head := b.parseAtomCall(headList)
	body := b.parseFormula(l.Items[2])
	prog.Rules = append(prog.Rules, &ast.Rule{Sp: l.Sp, Head: head, Body: body})
}

func (b *builder) buildAssert(prog *ast.Program, l *List) {
	if !b.need(l, 4, "assert") {
		return
	}
	name, ok := b.atomLiteral(l.Items[1], "assert")
	if !ok {
		return
	}
	binders := b.parseBinderList(l.Items[2])
	formula := b.parseFormula(l.Items[3])
	prog.Asserts = append(prog.Asserts, &ast.Assert{Sp: l.Sp, Name: name, Binders: binders, Formula: formula})
}

func (b *builder) buildUniverse(prog *ast.Program, l *List) {
	if !b.need(l, 2, "universe") {
		return
	}
	typeRef, ok := b.atomLiteral(l.Items[1], "universe type")
	if !ok {
		return
	}
	// A single parenthesized argument is the value list itself.
	items := l.Items[2:]
	if len(items) == 1 {
		if vl, ok := items[0].(*List); ok {
			items = vl.Items
		}
	}
	values := make([]ast.Term, 0, len(items))
	for _, t := range items {
		values = append(values, b.parseTerm(t))
	}
	prog.Universes = append(prog.Universes, &ast.Universe{Sp: l.Sp, TypeRef: typeRef, Values: values})
}

func (b *builder) buildDefn(prog *ast.Program, l *List) {
	if !b.need(l, 5, "defn") {
		return
	}
	name, ok := b.atomLiteral(l.Items[1], "defn")
	if !ok {
		return
	}
	params := b.parseBinderList(l.Items[2])
	retType := b.parseType(l.Items[3])
	body := b.parseExpr(l.Items[4])
	prog.Defns = append(prog.Defns, &ast.Defn{Sp: l.Sp, Name: name, Params: params, ReturnType: retType, Body: body})
}

func (b *builder) buildAlias(prog *ast.Program, l *List) {
	if !b.need(l, 3, "alias") {
		return
	}
	surface, ok1 := b.atomLiteral(l.Items[1], "alias surface name")
	canonical, ok2 := b.atomLiteral(l.Items[2], "alias canonical name")
	if !ok1 || !ok2 {
		return
	}
	prog.Aliases = append(prog.Aliases, &ast.Alias{Sp: l.Sp, Surface: surface, Canonical: canonical})
}

// parseBinderList parses `((n1 T1) (n2 T2) ...)`.
func (b *builder) parseBinderList(s SExpr) []*ast.Binder {
	l, ok := b.asList(s, "binder list")
	if !ok {
		return nil
	}
	binders := make([]*ast.Binder, 0, len(l.Items))
	for _, item := range l.Items {
		pair, ok := b.asList(item, "binder")
		if !ok || !b.need(pair, 2, "binder") {
			continue
		}
		name, ok := b.atomLiteral(pair.Items[0], "binder name")
		if !ok {
			continue
		}
		binders = append(binders, &ast.Binder{Sp: pair.Sp, Name: name, Type: b.parseType(pair.Items[1])})
	}
	return binders
}
