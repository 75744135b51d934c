package pipeline

// Pipeline is a fixed sequence of verification stages (parse/load,
// resolve, check, solve facts, prove, lint). Every stage runs in
// order regardless of an earlier stage's outcome; a stage whose
// prerequisite field is nil is expected to no-op rather than panic,
// so the caller always gets every diagnostic a partial run can still
// produce instead of stopping at the first failing stage.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage in order over initialCtx.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}
