package agent

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/flow"
	"github.com/hupe1980/reactmesh/logging"
	"github.com/hupe1980/reactmesh/model/provider"
	"github.com/hupe1980/reactmesh/tool"
	"github.com/hupe1980/reactmesh/tool/toolset"
)

// RefreshMode selects how often the capability registry is assembled.
type RefreshMode int

const (
	// RefreshPerRun assembles the registry once per Run.
	RefreshPerRun RefreshMode = iota
	// RefreshPerCompletion assembles a fresh registry for every completion
	// and every action stage.
	RefreshPerCompletion
)

// String returns the mode name.
func (m RefreshMode) String() string {
	switch m {
	case RefreshPerRun:
		return "per-run"
	case RefreshPerCompletion:
		return "per-completion"
	default:
		return fmt.Sprintf("RefreshMode(%d)", int(m))
	}
}

// Assembler builds the capability registry for a configuration.
type Assembler interface {
	Assemble(ctx context.Context, cfg config.Config) (*tool.Registry, error)
}

// Options configure an Agent.
type Options struct {
	// MaxTurns is the completion ceiling; <= 0 selects core.DefaultMaxTurns.
	MaxTurns int
	Refresh  RefreshMode
	Logger   logging.Logger
	// Loader resolves backend identifiers; defaults to provider.Default().
	Loader provider.Loader
	// Assembler defaults to toolset.New with the agent logger.
	Assembler Assembler
	// Clock supplies the time rendered into the system prompt.
	Clock func() time.Time
	// OnPartial receives streamed text deltas; setting it enables streaming.
	OnPartial func(text string)
	// MaxParallel bounds concurrent capability calls per action stage.
	MaxParallel int
	Tracer      trace.Tracer
}

// Agent runs the loop for one configuration. It holds no per-run state and
// is safe for concurrent use.
type Agent struct {
	cfg        config.Config
	opts       Options
	completion *flow.CompletionStage
	action     *flow.ActionStage
}

// New validates cfg and wires the stages. Configuration errors, including an
// unknown provider prefix, surface here before any assembly or backend call.
func New(cfg config.Config, optFns ...func(o *Options)) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{MaxTurns: core.DefaultMaxTurns, Clock: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxTurns <= 0 {
		opts.MaxTurns = core.DefaultMaxTurns
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/hupe1980/reactmesh/agent")
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Loader == nil {
		opts.Loader = provider.Default()
	}
	if err := provider.Check(opts.Loader, cfg.Model); err != nil {
		return nil, err
	}
	if opts.Assembler == nil {
		opts.Assembler = toolset.New(func(o *toolset.Options) { o.Logger = opts.Logger })
	}

	return &Agent{
		cfg:  cfg,
		opts: opts,
		completion: flow.NewCompletionStage(func(o *flow.CompletionOptions) {
			o.Loader = opts.Loader
			o.Clock = opts.Clock
			o.Logger = opts.Logger
			o.OnPartial = opts.OnPartial
			o.Tracer = opts.Tracer
		}),
		action: flow.NewActionStage(func(o *flow.ActionOptions) {
			o.MaxParallel = opts.MaxParallel
			o.Logger = opts.Logger
			o.Tracer = opts.Tracer
		}),
	}, nil
}

// Config returns the configuration the agent was built with.
func (a *Agent) Config() config.Config { return a.cfg }

// Tools assembles the registry the next Run would start with.
func (a *Agent) Tools(ctx context.Context) (*tool.Registry, error) {
	return a.opts.Assembler.Assemble(ctx, a.cfg)
}

type loopState int

const (
	awaitingCompletion loopState = iota
	awaitingAction
	done
)

func (s loopState) String() string {
	switch s {
	case awaitingCompletion:
		return "awaiting_completion"
	case awaitingAction:
		return "awaiting_action"
	default:
		return "done"
	}
}

// Run executes the loop on the caller's messages and returns the full
// accumulated history: the input followed by every assistant message and
// action result. The system prompt is never part of the result.
//
// Backend failures, configuration errors and cancellation abort the run;
// capability failures are reported to the model as action results.
func (a *Agent) Run(ctx context.Context, msgs []core.Message) ([]core.Message, error) {
	ctx, span := a.opts.Tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
		attribute.Int("max_turns", a.opts.MaxTurns),
		attribute.String("refresh", a.opts.Refresh.String()),
	))
	defer span.End()

	out, err := a.run(ctx, msgs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return out, err
}

func (a *Agent) run(ctx context.Context, msgs []core.Message) ([]core.Message, error) {
	logger := a.opts.Logger
	st := core.NewState(a.cfg, a.opts.MaxTurns, msgs...)

	var reg *tool.Registry
	registry := func() (*tool.Registry, error) {
		if a.opts.Refresh == RefreshPerRun && reg != nil {
			return reg, nil
		}
		return a.opts.Assembler.Assemble(ctx, a.cfg)
	}

	if a.opts.Refresh == RefreshPerRun {
		r, err := registry()
		if err != nil {
			return nil, err
		}
		reg = r
	}

	logger.Info("agent.run.start", "model", a.cfg.Model, "messages", len(msgs), "refresh", a.opts.Refresh.String())
	start := time.Now()

	state := awaitingCompletion
	for state != done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch state {
		case awaitingCompletion:
			r, err := registry()
			if err != nil {
				return nil, err
			}

			turn, err := st.NextTurn()
			if err != nil {
				return nil, err
			}

			msg, err := a.completion.Complete(ctx, st, r)
			if err != nil {
				logger.Error("agent.completion.failed", "turn", turn, "error", err.Error())
				return nil, err
			}

			if msg.HasActionRequests() {
				state = awaitingAction
			} else {
				state = done
			}

		case awaitingAction:
			r, err := registry()
			if err != nil {
				return nil, err
			}

			if _, err := a.action.Act(ctx, st, r); err != nil {
				return nil, err
			}

			state = awaitingCompletion
		}

		logger.Debug("agent.state", "state", state.String(), "turn", st.Turn())
	}

	logger.Info("agent.run.done", "turns", st.Turn(), "messages", st.Len(), "duration", time.Since(start))

	return st.Messages(), nil
}
