// Package diagnostics implements the structured error taxonomy of §7:
// every stage reports failures as a *DiagnosticError rather than a bare
// error, and accumulates them into a Bag so that a stage can surface
// every locally-detectable problem in one pass instead of stopping at
// the first one.
package diagnostics

import (
	"fmt"

	"github.com/specverify/specverify/internal/ast"
)

// Code identifies a diagnostic's kind per the §7 taxonomy.
type Code string

const (
	EIO         Code = "E-IO"
	EImport     Code = "E-IMPORT"
	EParse      Code = "E-PARSE"
	ESyntaxAuto Code = "E-SYNTAX-AUTO"
	EResolve    Code = "E-RESOLVE"
	EStratify   Code = "E-STRATIFY"
	EType       Code = "E-TYPE"
	EData       Code = "E-DATA"
	ETotal      Code = "E-TOTAL"
	EMatch      Code = "E-MATCH"
	EEntail     Code = "E-ENTAIL"
	EProve      Code = "E-PROVE"

	LDupExact       Code = "L-DUP-EXACT"
	LDupMaybe       Code = "L-DUP-MAYBE"
	LDupSkipUniv    Code = "L-DUP-SKIP-UNIVERSE"
	LDupSkipDepth   Code = "L-DUP-SKIP-EVAL-DEPTH"
	LUnusedDecl     Code = "L-UNUSED-DECL"
)

// Span is a byte range within a single source file. It is the same
// representation internal/ast nodes carry, so every stage can pass an
// ast.Span (or a parser.SExpr's Span()) straight into a diagnostic
// without a conversion step.
type Span = ast.Span

// IsWarning reports whether a code is a lint warning (never fatal)
// rather than an error that halts the pipeline (§7 "Propagation").
func (c Code) IsWarning() bool {
	switch c {
	case LDupExact, LDupMaybe, LDupSkipUniv, LDupSkipDepth, LUnusedDecl:
		return true
	default:
		return false
	}
}

// DiagnosticError is the single diagnostic shape every stage emits.
// Extra carries the code-specific structured fields named in §4.11:
// reason, arg_indices, lint_code, confidence, missing, valuation,
// counterexample.
type DiagnosticError struct {
	DiagCode Code
	Message  string
	Source   string // file identifier; empty if not file-scoped
	Span     Span
	Extra    map[string]any
}

func (e *DiagnosticError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s:%d:%d: %s", e.DiagCode, e.Source, e.Span.Line, e.Span.Col, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.DiagCode, e.Message)
}

// New builds a diagnostic without structured extras.
func New(code Code, source string, span Span, format string, args ...any) *DiagnosticError {
	return &DiagnosticError{
		DiagCode: code,
		Message:  fmt.Sprintf(format, args...),
		Source:   source,
		Span:     span,
	}
}

// WithExtra attaches a structured field and returns the receiver, so
// diagnostic construction can be chained at the call site.
func (e *DiagnosticError) WithExtra(key string, value any) *DiagnosticError {
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	e.Extra[key] = value
	return e
}

// Bag accumulates diagnostics for one stage or one whole pipeline run.
// The dedup key mirrors the teacher analyzer's errorSet keyed by
// "line:col:code": the same fault reported twice by overlapping walks
// (e.g. a sub-expression visited from two different parent checks)
// collapses to one diagnostic.
type Bag struct {
	seen  map[string]bool
	items []*DiagnosticError
}

// NewBag constructs an empty diagnostic bag.
func NewBag() *Bag {
	return &Bag{seen: make(map[string]bool)}
}

// Add appends a diagnostic, skipping an exact (source, span, code,
// message) duplicate.
func (b *Bag) Add(d *DiagnosticError) {
	key := fmt.Sprintf("%s:%d:%d:%s:%s", d.Source, d.Span.Line, d.Span.Col, d.DiagCode, d.Message)
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.items = append(b.items, d)
}

// Merge appends every item of other into b.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	for _, d := range other.items {
		b.Add(d)
	}
}

// Items returns diagnostics in the stable order §4.11 requires: by
// file, then by byte offset.
func (b *Bag) Items() []*DiagnosticError {
	out := make([]*DiagnosticError, len(b.items))
	copy(out, b.items)
	sortDiagnostics(out)
	return out
}

func sortDiagnostics(items []*DiagnosticError) {
	// Insertion sort: diagnostic volumes per program are small, and a
	// stable sort keeps diagnostics raised in the same (source, span)
	// in their original relative order.
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && less(items[j], items[j-1]) {
			items[j], items[j-1] = items[j-1], items[j]
			j--
		}
	}
}

func less(a, b *DiagnosticError) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.Span.Start < b.Span.Start
}

// HasFatal reports whether the bag contains any non-warning diagnostic.
func (b *Bag) HasFatal() bool {
	for _, d := range b.items {
		if !d.DiagCode.IsWarning() {
			return true
		}
	}
	return false
}

// Empty reports whether no diagnostics were recorded at all.
func (b *Bag) Empty() bool {
	return len(b.items) == 0
}
