package ast

// Expr is the Core-AST expression surface (§3 "Expressions and
// Patterns"): variable, literal, constructor application, relation
// call, defn call, let, if, match.
type Expr interface {
	Node
	exprNode()
}

// VarExpr references a local binder: a defn parameter, a `let`
// binding, or a `match` pattern variable.
type VarExpr struct {
	Sp   Span
	Name string
}

func (e *VarExpr) Span() Span { return e.Sp }
func (e *VarExpr) exprNode()  {}

// LitKind distinguishes the three literal shapes §3 allows.
type LitKind int

const (
	LitBool LitKind = iota
	LitInt
	LitSymbol
)

// LitExpr is a bool, int, or symbol literal.
type LitExpr struct {
	Sp      Span
	Kind    LitKind
	Bool    bool
	Int     int64
	Symbol  string
}

func (e *LitExpr) Span() Span { return e.Sp }
func (e *LitExpr) exprNode()  {}

// CallKind distinguishes what a CallExpr's Name turned out to name,
// decided by internal/resolve using §4.5's lookup order (constructor,
// then relation, then defn) — the parser cannot tell these apart from
// concrete syntax alone, since all three are written `(Name arg...)`.
type CallKind int

const (
	// CallUnresolved is the parser's output: Kind has not been decided.
	CallUnresolved CallKind = iota
	CallCtor
	CallRelation
	CallDefn
)

// CallExpr is `(Name e1 e2 ...)` where Name is neither a special form
// (let/if/match) nor a local binder: a constructor application, a
// boolean-valued relation call, or a defn call. §4.7 requires a
// relation call's arguments be syntactically a variable, literal, or
// constructor term, not an arbitrary expression — checked by the type
// checker once Kind is known, not by the parser.
type CallExpr struct {
	Sp   Span
	Name string
	Args []Expr
	Kind CallKind
}

func (e *CallExpr) Span() Span { return e.Sp }
func (e *CallExpr) exprNode()  {}

// LetBinding is one sequential binding of a `let`.
type LetBinding struct {
	Sp    Span
	Name  string
	Value Expr
}

// LetExpr is `(let ((x1 e1) (x2 e2) ...) body)` with sequential
// (not mutually recursive) bindings.
type LetExpr struct {
	Sp       Span
	Bindings []*LetBinding
	Body     Expr
}

func (e *LetExpr) Span() Span { return e.Sp }
func (e *LetExpr) exprNode()  {}

// IfExpr is `(if cond then else)`; cond must be Bool and the two
// branches must have equal type (§4.7).
type IfExpr struct {
	Sp        Span
	Cond      Expr
	Then      Expr
	Else      Expr
}

func (e *IfExpr) Span() Span { return e.Sp }
func (e *IfExpr) exprNode()  {}

// MatchArm is one `(pattern body)` alternative of a `match`.
type MatchArm struct {
	Sp      Span
	Pattern Pattern
	Body    Expr
}

// MatchExpr is `(match scrutinee (pat1 body1) (pat2 body2) ...)`;
// see §4.7 for exhaustiveness/reachability and §4.8 for how match
// patterns introduce strict subterms for the totality analyzer.
type MatchExpr struct {
	Sp        Span
	Scrutinee Expr
	Arms      []*MatchArm
}

func (e *MatchExpr) Span() Span { return e.Sp }
func (e *MatchExpr) exprNode()  {}

// Pattern is the Core-AST pattern surface: wildcard, variable binder,
// boolean/integer literal, constructor with sub-patterns.
type Pattern interface {
	Node
	patternNode()
}

// WildcardPattern is `_`.
type WildcardPattern struct{ Sp Span }

func (p *WildcardPattern) Span() Span { return p.Sp }
func (p *WildcardPattern) patternNode() {}

// VarPattern binds the scrutinee (or subterm) to a name.
type VarPattern struct {
	Sp   Span
	Name string
}

func (p *VarPattern) Span() Span { return p.Sp }
func (p *VarPattern) patternNode() {}

// LitPattern matches a literal boolean or integer value.
type LitPattern struct {
	Sp   Span
	Kind LitKind
	Bool bool
	Int  int64
}

func (p *LitPattern) Span() Span { return p.Sp }
func (p *LitPattern) patternNode() {}

// CtorPattern is `(Ctor p1 p2 ...)`, destructuring a constructor
// application. Each sub-pattern binds a strict subterm of the
// scrutinee (§4.8 "Strict subterm").
type CtorPattern struct {
	Sp   Span
	Name string
	Args []Pattern
}

func (p *CtorPattern) Span() Span { return p.Sp }
func (p *CtorPattern) patternNode() {}
