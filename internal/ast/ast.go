// Package ast defines the Core AST of §3 "Declarations"/"Expressions
// and Patterns"/"Formulas and Terms". Every node carries a Span so
// diagnostics can always point at source (§4.11). The shape follows
// the teacher's tagged-sum convention (internal/ast/ast_core.go: a
// narrow Node interface plus one struct per alternative) rather than a
// single polymorphic node type, so a missing case at any switch is a
// compile error waiting to be discovered by a linter, not a silent
// runtime default.
package ast

// Span is a byte range in one source file.
type Span struct {
	File  string
	Start int
	End   int
	Line  int
	Col   int
}

// Node is the base interface implemented by every AST alternative.
type Node interface {
	Span() Span
}

// Program is the root of one file's parse. Import loading concatenates
// many Programs into a single merged Program (§4.3); the merged form
// reuses this same type, with File set to the entry file's path. Each
// declaration's own Span.File names the file it came from.
type Program struct {
	File     string
	Imports  []*Import
	Sorts    []*Sort
	Datas    []*Data
	Relations []*Relation
	Facts    []*Fact
	Rules    []*Rule
	Asserts  []*Assert
	Universes []*Universe
	Defns    []*Defn
	Aliases  []*Alias
}

// Decls returns every top-level declaration in source order, for
// passes (dedup lint, unused-decl lint) that need a uniform view.
func (p *Program) Decls() []Node {
	var out []Node
	for _, d := range p.Sorts {
		out = append(out, d)
	}
	for _, d := range p.Datas {
		out = append(out, d)
	}
	for _, d := range p.Relations {
		out = append(out, d)
	}
	for _, d := range p.Facts {
		out = append(out, d)
	}
	for _, d := range p.Rules {
		out = append(out, d)
	}
	for _, d := range p.Asserts {
		out = append(out, d)
	}
	for _, d := range p.Universes {
		out = append(out, d)
	}
	for _, d := range p.Defns {
		out = append(out, d)
	}
	for _, d := range p.Aliases {
		out = append(out, d)
	}
	return out
}

// Import is `(import "relative/path")` (§4.3).
type Import struct {
	Sp   Span
	Path string
}

func (n *Import) Span() Span { return n.Sp }

// Sort is `(sort Name)` — an open domain axis (§3).
type Sort struct {
	Sp   Span
	Name string
}

func (n *Sort) Span() Span { return n.Sp }

// Constructor is one variant of a `data` declaration.
type Constructor struct {
	Sp   Span
	Name string
	Args []Type
}

// Data is `(data Name (Ctor1 T...) (Ctor2 T...) ...)` — a closed ADT
// (§3). Recursion, self or mutual via constructor argument types, is
// permitted.
type Data struct {
	Sp           Span
	Name         string
	Constructors []*Constructor
}

func (n *Data) Span() Span { return n.Sp }

// Relation is `(relation Name T1 T2 ...)` — a predicate signature.
type Relation struct {
	Sp      Span
	Name    string
	ArgTypes []Type
}

func (n *Relation) Span() Span { return n.Sp }

// Fact is `(fact Relation t1 t2 ...)` — an extensional ground tuple.
type Fact struct {
	Sp       Span
	Relation string
	Terms    []Term
}

func (n *Fact) Span() Span { return n.Sp }

// Atom is a single predicate application, used as a rule head and as
// the target of a positive or negated literal in a rule body.
type Atom struct {
	Sp   Span
	Pred string
	Args []Term
}

// Rule is `(rule (Head args...) Body)` — a Horn clause with stratified
// negation (§3, §4.5, §4.6).
type Rule struct {
	Sp   Span
	Head *Atom
	Body Formula
}

func (n *Rule) Span() Span { return n.Sp }

// Binder is one `(name Type)` pair in an `assert` quantifier list or a
// `defn` parameter list.
type Binder struct {
	Sp   Span
	Name string
	Type Type
}

// Assert is `(assert Name ((v1 T1)...) Formula)` — a universally
// quantified proof obligation (§3, §4.10).
type Assert struct {
	Sp       Span
	Name     string
	Binders  []*Binder
	Formula  Formula
}

func (n *Assert) Span() Span { return n.Sp }

// Universe is `(universe TypeRef (v1 v2 ...))` or
// `(universe TypeRef v1 v2 ...)` — a finite enumeration used only for
// proof quantification (§3, §4.10). A single parenthesized argument is
// read as the value list, not as one value.
type Universe struct {
	Sp      Span
	TypeRef string
	Values  []Term
}

func (n *Universe) Span() Span { return n.Sp }

// Defn is `(defn Name ((p1 T1)...) ReturnType Body)` — a total
// function, possibly with a `Refine` return type inducing a proof
// obligation (§3, §4.7, §4.8, §4.10).
type Defn struct {
	Sp         Span
	Name       string
	Params     []*Binder
	ReturnType Type
	Body       Expr
}

func (n *Defn) Span() Span { return n.Sp }

// Alias is `(alias Surface Canonical)` — rewrites constructor
// references before resolution (§3, §4.4).
type Alias struct {
	Sp        Span
	Surface   string
	Canonical string
}

func (n *Alias) Span() Span { return n.Sp }
