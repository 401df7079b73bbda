package pipeline

import (
	"context"
)

// Stage is one step of a pipeline. A stage mutates and returns the context
// it was given.
type Stage interface {
	Name() string
	Apply(ctx context.Context, pctx *Context) (*Context, error)
}

// Stage names, also used as metric key prefixes.
const (
	StagePromptInput = "prompt_input"
	StageStarted     = "broadcast_started"
	StageGenerate    = "generate"
	StageParse       = "parse"
	StageStorage     = "storage"
	StageCompleted   = "broadcast_completed"
	StageMetrics     = "metrics"
)

type stageFunc struct {
	name string
	fn   func(context.Context, *Context) (*Context, error)
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Apply(ctx context.Context, pctx *Context) (*Context, error) {
	return s.fn(ctx, pctx)
}

// NewStage adapts a function to Stage.
func NewStage(name string, fn func(context.Context, *Context) (*Context, error)) Stage {
	return stageFunc{name: name, fn: fn}
}
