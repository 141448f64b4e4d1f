package flow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/logging"
	"github.com/hupe1980/reactmesh/tool"
)

const (
	notFoundTemplate = "Error: %s"
	failureTemplate  = "Error: %s\n Please fix your mistakes."
)

// ActionOptions configure an ActionStage.
type ActionOptions struct {
	// MaxParallel bounds concurrent calls; <= 0 runs every request at once.
	MaxParallel int
	Logger      logging.Logger
	Tracer      trace.Tracer
}

// ActionStage executes the pending action requests of the last message.
type ActionStage struct {
	opts ActionOptions
}

var _ Actor = (*ActionStage)(nil)

// NewActionStage creates an action stage.
func NewActionStage(optFns ...func(o *ActionOptions)) *ActionStage {
	opts := ActionOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tracer == nil {
		opts.Tracer = tracer
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &ActionStage{opts: opts}
}

// Act runs every request of the last assistant message concurrently and
// appends exactly one action result per request, in request order. Unknown
// capabilities, failures and panics become error results; only cancellation
// of ctx aborts the stage.
func (s *ActionStage) Act(ctx context.Context, st *core.State, reg *tool.Registry) ([]core.Message, error) {
	last, ok := st.Last()
	if !ok || last.Role != core.RoleAssistant || !last.HasActionRequests() {
		return nil, ErrNoPendingActions
	}

	reqs := last.ActionRequests

	ctx, span := s.opts.Tracer.Start(ctx, "flow.action", trace.WithAttributes(
		attribute.Int("turn", st.Turn()),
		attribute.Int("action_requests", len(reqs)),
	))
	defer span.End()

	results := make([]core.Message, len(reqs))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	if s.opts.MaxParallel > 0 {
		g.SetLimit(s.opts.MaxParallel)
	}

	for i, req := range reqs {
		g.Go(func() error {
			results[i] = s.execute(gctx, reg, req)
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st.Append(results...)

	s.opts.Logger.Debug("agent.actions.batch.complete",
		"count", len(reqs),
		"parallelism", s.opts.MaxParallel,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return results, nil
}

func (s *ActionStage) execute(ctx context.Context, reg *tool.Registry, req core.ActionRequest) core.Message {
	logger := logging.With(s.opts.Logger, "tool", req.Name, "request_id", req.ID)

	impl, err := reg.Lookup(req.Name)
	if err != nil {
		logger.Warn("tool.call.not_found", "available", reg.Names())
		return core.NewActionResultMessage(req.ID, req.Name, fmt.Sprintf(notFoundTemplate, err.Error()), true)
	}

	ctx = tool.WithCallInfo(ctx, tool.CallInfo{RequestID: req.ID, Name: req.Name, Logger: logger})

	start := time.Now()
	result, err := call(ctx, impl, req)
	logging.LogToolCall(s.opts.Logger, req.Name, req.ID, time.Since(start), err)

	if err != nil {
		return core.NewActionResultMessage(req.ID, req.Name, fmt.Sprintf(failureTemplate, err.Error()), true)
	}

	return core.NewActionResultMessage(req.ID, req.Name, result, false)
}

// call invokes the capability, converting a panic into a PANIC tool error.
func call(ctx context.Context, impl tool.Tool, req core.ActionRequest) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &tool.ToolError{
				Tool:    req.Name,
				Message: fmt.Sprintf("panic: %v", r),
				Code:    tool.CodePanic,
				Details: string(debug.Stack()),
			}
		}
	}()

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}

	result, err = impl.Call(ctx, args)
	if err != nil {
		var te *tool.ToolError
		if !errors.As(err, &te) {
			err = &tool.ToolError{Tool: req.Name, Message: err.Error(), Code: tool.CodeExecution, Err: err}
		}
	}

	return result, err
}
