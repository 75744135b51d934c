package ast

// Term is the restricted expression language allowed inside a formula
// or fact (§3 "Formulas and Terms"): variable, literal, or constructor
// application on terms. This is syntactically narrower than Expr —
// a formula can never embed an `if`/`match`/`let`/defn-call — which is
// what keeps the logic engine's unification decidable and keeps rule
// safety (§4.5) checkable without running arbitrary code.
type Term interface {
	Node
	termNode()
}

// VarTerm is a rule/assert-quantified variable. Per §4.5, identifiers
// starting with `?` are rule variables; Name retains the `?` prefix so
// alpha-renaming and safety-checking can recognize it uniformly.
type VarTerm struct {
	Sp   Span
	Name string
}

func (t *VarTerm) Span() Span { return t.Sp }
func (t *VarTerm) termNode()  {}

// NameTerm is a bare, non-`?` identifier in term position whose
// meaning the parser cannot decide from concrete syntax alone: inside
// an `assert`'s formula it may name one of the assert's own quantifier
// binders (a variable scoped to that assert, §3's `(u Subject)` style
// binder list — unlike rule variables, assert binders are written
// without a `?` prefix), inside a defn's refinement predicate a defn
// parameter or the refinement's bound name, or, if it names none of
// them, a ground symbol literal or a nullary constructor.
// internal/resolve rewrites every NameTerm into a VarTerm, LitTerm, or
// CtorTerm using the enclosing binder scope, per §4.5's resolution order (local binder,
// then constructor, then literal fallback). Facts, universes, and rule
// bodies never contain a NameTerm that resolves to a variable: facts
// and universe values are ground by definition, and rule variables are
// always `?`-prefixed and so parse directly as VarTerm.
type NameTerm struct {
	Sp   Span
	Name string
}

func (t *NameTerm) Span() Span { return t.Sp }
func (t *NameTerm) termNode()  {}

// LitTerm is a bool, int, or symbol literal term.
type LitTerm struct {
	Sp     Span
	Kind   LitKind
	Bool   bool
	Int    int64
	Symbol string
}

func (t *LitTerm) Span() Span { return t.Sp }
func (t *LitTerm) termNode()  {}

// CtorTerm is a constructor application on ground or variable terms.
type CtorTerm struct {
	Sp   Span
	Name string
	Args []Term
}

func (t *CtorTerm) Span() Span { return t.Sp }
func (t *CtorTerm) termNode()  {}

// Formula is the restricted logical language of rule bodies and
// assert goals (§3 "Formulas and Terms"): true, a positive predicate,
// a conjunction, or a negation of a single predicate call. Negation is
// syntactic and can only wrap one predicate call (enforced by the
// parser, per §3).
type Formula interface {
	Node
	formulaNode()
}

// TrueFormula is the literal `true` formula.
type TrueFormula struct{ Sp Span }

func (f *TrueFormula) Span() Span { return f.Sp }
func (f *TrueFormula) formulaNode() {}

// AtomFormula is a positive predicate call, e.g. `(can-access ?u ?r)`.
type AtomFormula struct {
	Sp   Span
	Atom *Atom
}

func (f *AtomFormula) Span() Span { return f.Sp }
func (f *AtomFormula) formulaNode() {}

// AndFormula is `(and f1 f2 ...)`, a conjunction.
type AndFormula struct {
	Sp    Span
	Terms []Formula
}

func (f *AndFormula) Span() Span { return f.Sp }
func (f *AndFormula) formulaNode() {}

// NotFormula is `(not (pred args...))` — negation of a single
// predicate call, never of an arbitrary formula (§3).
type NotFormula struct {
	Sp   Span
	Atom *Atom
}

func (f *NotFormula) Span() Span { return f.Sp }
func (f *NotFormula) formulaNode() {}
