package pipeline

import (
	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/lint"
	"github.com/specverify/specverify/internal/logic"
	"github.com/specverify/specverify/internal/prove"
	"github.com/specverify/specverify/internal/resolve"
	"github.com/specverify/specverify/internal/strata"
	"github.com/specverify/specverify/internal/types"
)

// Processor is one stage of the verification pipeline. Every stage
// receives the context produced by the previous stage and returns the
// (possibly extended) context for the next one — the same shape as the
// teacher's Process(ctx) convention, generalized here to a single
// shared context struct since, unlike funxy's uniform lex/parse/eval
// chain, specverify's stages each add a structurally different
// artifact (a stratification, a type table, a model) rather than
// transforming one value of constant shape.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// ProcessorFunc adapts a plain function to a Processor.
type ProcessorFunc func(ctx *PipelineContext) *PipelineContext

func (f ProcessorFunc) Process(ctx *PipelineContext) *PipelineContext { return f(ctx) }

// PipelineContext threads state through the verification pipeline
// (§2 data-flow: source → forms → Program → merged Program →
// alias-normalized Program → resolved Program → stratified/checked
// Program → model → obligations → lint findings). Later stages read
// the fields earlier stages populate and leave already-populated
// fields untouched; a stage whose prerequisite is nil or carries a
// fatal diagnostic should leave its own output field nil rather than
// guess.
type PipelineContext struct {
	// EntryFile is the file identifier the run started from.
	EntryFile string

	// Program is the fully imported, alias-normalized merged Program
	// (internal/loader then internal/alias), ready for resolution.
	Program *ast.Program

	// Resolved is internal/resolve's output: namespaces, declaration
	// IDs, and the annotated Program with every CallExpr/NameTerm
	// disambiguated.
	Resolved *resolve.Program

	// Strata is internal/strata's per-relation stratum assignment.
	Strata strata.Strata

	// Types is internal/types' per-expression type table.
	Types *types.Table

	// Totality has no separate artifact beyond its diagnostics: the
	// analyzer is purely a checker (§4.8), so totality verdicts live
	// only in Diagnostics.

	// Model is internal/logic's minimal model of derived facts.
	Model *logic.Model

	// Obligations is internal/prove's per-assert/per-refinement proof
	// trace.
	Obligations *prove.Trace

	// DuplicateCandidates is internal/lint's semantic-mode L-DUP-MAYBE
	// findings (warnings from that same pass live in Diagnostics).
	DuplicateCandidates []lint.DuplicateCandidate

	// Diagnostics accumulates every stage's diagnostics bag.
	Diagnostics *diagnostics.Bag
}

// NewContext builds an empty context with an initialized diagnostics
// bag, ready for the first pipeline stage.
func NewContext(entryFile string) *PipelineContext {
	return &PipelineContext{EntryFile: entryFile, Diagnostics: diagnostics.NewBag()}
}
