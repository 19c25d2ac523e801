package pipeline

import (
	"context"
	"log/slog"
)

// Processor is one stage of the pipeline. Process receives a frame and
// pushes zero or more frames downstream. Processors must push frames
// they do not consume so control frames reach later stages.
type Processor interface {
	Name() string
	Process(ctx context.Context, frame Frame, push func(Frame)) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc struct {
	ProcessorName string
	Fn            func(ctx context.Context, frame Frame, push func(Frame)) error
}

// Name returns the processor name.
func (p ProcessorFunc) Name() string { return p.ProcessorName }

// Process invokes the wrapped function.
func (p ProcessorFunc) Process(ctx context.Context, frame Frame, push func(Frame)) error {
	return p.Fn(ctx, frame, push)
}

// Runner drives a task's frames through a processor chain until the
// task is cancelled, an EndFrame drains through, or the context ends.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger.With("component", "pipeline.runner")}
}

// Run processes frames until completion. A processor error is logged
// and does not stop the run; only cancellation, EndFrame or context
// expiry do.
func (r *Runner) Run(ctx context.Context, task *Task, processors ...Processor) error {
	r.logger.Info("pipeline started", "task", task.ID, "processors", len(processors))
	defer r.logger.Info("pipeline finished", "task", task.ID)

	for {
		select {
		case <-ctx.Done():
			task.Cancel()
			return ctx.Err()
		case <-task.done:
			r.dispatch(ctx, CancelFrame{}, processors)
			return nil
		case frame := <-task.frames:
			r.dispatch(ctx, frame, processors)
			if _, ok := frame.(EndFrame); ok {
				task.Cancel()
				return nil
			}
		}
	}
}

// dispatch feeds a frame to the head of the chain; pushes from each
// stage flow to the next.
func (r *Runner) dispatch(ctx context.Context, frame Frame, processors []Processor) {
	if len(processors) == 0 {
		return
	}
	head, rest := processors[0], processors[1:]
	push := func(f Frame) {
		r.dispatch(ctx, f, rest)
	}
	if err := head.Process(ctx, frame, push); err != nil {
		r.logger.Error("processor failed", "processor", head.Name(), "error", err)
	}
}
