// Package verifier is the library boundary §6 describes: parse_and_load,
// resolve, check, solve_facts, prove, and lint, each taking the
// previous stage's output and returning either its artifact or
// diagnostics. It sequences internal/loader, internal/alias,
// internal/resolve, internal/strata, internal/types, internal/totality,
// internal/logic, internal/prove, and internal/lint through a single
// internal/pipeline.PipelineContext, mirroring the teacher's
// pkg/embed.VM as the one high-level entrypoint a caller outside
// internal/ is meant to use.
package verifier

import (
	"github.com/specverify/specverify/internal/alias"
	"github.com/specverify/specverify/internal/ast"
	"github.com/specverify/specverify/internal/diagnostics"
	"github.com/specverify/specverify/internal/lint"
	"github.com/specverify/specverify/internal/loader"
	"github.com/specverify/specverify/internal/logic"
	"github.com/specverify/specverify/internal/pipeline"
	"github.com/specverify/specverify/internal/prove"
	"github.com/specverify/specverify/internal/resolve"
	"github.com/specverify/specverify/internal/strata"
	"github.com/specverify/specverify/internal/totality"
	"github.com/specverify/specverify/internal/types"
)

// LintOptions controls internal/lint's semantic mode (§4.12).
type LintOptions struct {
	// Semantic enables L-DUP-MAYBE (and its L-DUP-SKIP-* companions),
	// which uses the logic engine and prover as an oracle. Off by
	// default since it is O(programs²) in the number of same-kind
	// declarations.
	Semantic bool
}

// ParseAndLoad reads entryPath and every file it transitively imports,
// merging them into one Program (§4.1–§4.3). Use loader.OSReader for a
// disk-backed run, or a test double for in-memory fixtures.
func ParseAndLoad(entryPath string, read loader.FileReader) (*ast.Program, *diagnostics.Bag) {
	return loader.Load(entryPath, read)
}

// Resolve alias-normalizes and name-resolves prog (§4.4–§4.5),
// returning a *resolve.Program with every CallExpr/NameTerm
// disambiguated and every declaration assigned a stable ID.
func Resolve(prog *ast.Program) (*resolve.Program, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	bag.Merge(alias.Normalize(prog))
	if bag.HasFatal() {
		return nil, bag
	}
	res, resolveBag := resolve.Resolve(prog)
	bag.Merge(resolveBag)
	if bag.HasFatal() {
		return nil, bag
	}
	return res, bag
}

// Check runs the stratifier, type checker, and totality analyzer over
// a resolved program (§4.6–§4.8), returning every diagnostic found
// (stratification, typing/match, and totality are independent checks,
// so all three always run and report together).
func Check(res *resolve.Program) (strata.Strata, *types.Table, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	st, strataBag := strata.Compute(res.AST)
	bag.Merge(strataBag)
	table, typeBag := types.Check(res.AST, res.Namespaces)
	bag.Merge(typeBag)
	bag.Merge(totality.Check(res.AST, res.Namespaces))
	return st, table, bag
}

// SolveFacts runs the stratified fixpoint engine (§4.9), producing the
// minimal model of derived facts. The caller must have run Check first
// and confirmed no fatal diagnostic.
func SolveFacts(res *resolve.Program, st strata.Strata) (*logic.Model, *diagnostics.Bag) {
	return logic.Evaluate(res.AST, st)
}

// Prove generates and evaluates every proof obligation (§4.10).
func Prove(res *resolve.Program, model *logic.Model) (*prove.Trace, *diagnostics.Bag) {
	return prove.Prove(res.AST, model)
}

// Lint runs duplicate/unused checks (§4.12). When opts.Semantic is
// set and model is non-nil, L-DUP-MAYBE also runs and its candidates
// are returned alongside the diagnostics.
func Lint(res *resolve.Program, model *logic.Model, opts LintOptions) ([]lint.DuplicateCandidate, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	bag.Merge(lint.CheckUnused(res.AST, res.Namespaces))
	bag.Merge(lint.CheckDuplicatesExact(res.AST))

	if !opts.Semantic || model == nil {
		return nil, bag
	}
	universes := prove.UniversesByTypeRef(res.AST)
	candidates, semBag := lint.CheckDuplicatesSemantic(res.AST, model, universes)
	bag.Merge(semBag)
	return candidates, bag
}

// Run drives the full pipeline end to end (§2 data flow) through
// internal/pipeline.Pipeline, the teacher's Processor-chain mechanism
// (cmd/funxy's lexer→parser→analyzer→backend chain, generalized here
// to specverify's six stages). Each stage checks its own prerequisite
// and no-ops if an earlier stage left it nil, so a fatal diagnostic in
// an early stage still short-circuits the stages that need its output
// (§7 "Propagation") while the chain itself always runs to its end.
// Callers needing to inspect or reuse an intermediate artifact should
// call the per-stage functions directly instead.
func Run(entryPath string, read loader.FileReader, opts LintOptions) *pipeline.PipelineContext {
	stages := []pipeline.Processor{
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			prog, bag := ParseAndLoad(entryPath, read)
			ctx.Diagnostics.Merge(bag)
			if !bag.HasFatal() {
				ctx.Program = prog
			}
			return ctx
		}),
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			if ctx.Program == nil {
				return ctx
			}
			res, bag := Resolve(ctx.Program)
			ctx.Diagnostics.Merge(bag)
			if !bag.HasFatal() {
				ctx.Resolved = res
			}
			return ctx
		}),
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			if ctx.Resolved == nil {
				return ctx
			}
			st, table, bag := Check(ctx.Resolved)
			ctx.Diagnostics.Merge(bag)
			ctx.Strata = st
			ctx.Types = table
			return ctx
		}),
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			if ctx.Resolved == nil || ctx.Diagnostics.HasFatal() {
				return ctx
			}
			model, bag := SolveFacts(ctx.Resolved, ctx.Strata)
			ctx.Diagnostics.Merge(bag)
			ctx.Model = model
			return ctx
		}),
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			if ctx.Model == nil {
				return ctx
			}
			trace, bag := Prove(ctx.Resolved, ctx.Model)
			ctx.Diagnostics.Merge(bag)
			ctx.Obligations = trace
			return ctx
		}),
		pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
			if ctx.Resolved == nil {
				return ctx
			}
			candidates, bag := Lint(ctx.Resolved, ctx.Model, opts)
			ctx.Diagnostics.Merge(bag)
			ctx.DuplicateCandidates = candidates
			return ctx
		}),
	}
	return pipeline.New(stages...).Run(pipeline.NewContext(entryPath))
}
