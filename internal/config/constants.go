// Package config holds the small set of constants shared across every
// pipeline stage: the recognized source extension and the depth/size
// caps §5 and §9 require the logic engine and prover to enforce.
package config

// SourceFileExt is the recognized extension for DSL source files.
const SourceFileExt = ".spec"

// IsTestMode is toggled by tests that need reproducible output: when
// set, internal/resolve derives declaration UUIDs deterministically
// instead of at random. Mirrors the teacher's config.IsTestMode switch.
var IsTestMode = false

// MaxFactTermDepth bounds the constructor-nesting depth of any ground
// term the logic engine will insert into the fact set. Exceeding it
// yields E-PROVE instead of letting the fixpoint diverge (§4.9, §9).
const MaxFactTermDepth = 64

// MaxEvalDepth bounds recursive defn body evaluation performed by the
// prover (and by lint's semantic oracle). Exceeding it yields E-PROVE
// for a prover obligation, or L-DUP-SKIP-EVAL-DEPTH for a lint
// semantic comparison (§5, §4.12).
const MaxEvalDepth = 512

// MaxUniverseProduct softly caps the number of valuations the prover
// will enumerate for a single obligation (the product of the sizes of
// the quantified variables' universes). Exceeding it yields E-PROVE
// with a size report rather than exhausting memory (§5). The reported
// size is a lower bound: counting stops once the cap is passed.
const MaxUniverseProduct = 1_000_000
