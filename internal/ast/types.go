package ast

// Type is the Core-AST type annotation surface (§3 "Types"): the
// syntax a programmer writes. The resolved, checked counterpart
// (internal/types.Type) is a distinct representation produced by
// internal/types from these nodes; keeping the two separate mirrors
// the teacher's split between ast.Type (syntax) and typesystem.Type
// (the unifiable, substitutable semantic type).
type Type interface {
	Node
	typeNode()
}

// BoolType is the `Bool` annotation.
type BoolType struct{ Sp Span }

func (t *BoolType) Span() Span { return t.Sp }
func (t *BoolType) typeNode()  {}

// IntType is the `Int` annotation.
type IntType struct{ Sp Span }

func (t *IntType) Span() Span { return t.Sp }
func (t *IntType) typeNode()  {}

// SymbolType is the `Symbol` annotation.
type SymbolType struct{ Sp Span }

func (t *SymbolType) Span() Span { return t.Sp }
func (t *SymbolType) typeNode()  {}

// NamedType is a bare identifier in type position: resolves to either
// a `Domain(Sort)` or an `Adt(Data)` depending on what Name names
// (§4.5 "then sort/data for type positions").
type NamedType struct {
	Sp   Span
	Name string
}

func (t *NamedType) Span() Span { return t.Sp }
func (t *NamedType) typeNode()  {}

// RefineType is `(Refine bound base Formula)` — a predicate attached
// to a base type that a `defn` return value must be proved to satisfy
// (§3, §4.7, §4.10).
type RefineType struct {
	Sp       Span
	Bound    string
	Base     Type
	Predicate Formula
}

func (t *RefineType) Span() Span { return t.Sp }
func (t *RefineType) typeNode()  {}
