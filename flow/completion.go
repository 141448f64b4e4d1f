package flow

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/internal/util"
	"github.com/hupe1980/reactmesh/logging"
	"github.com/hupe1980/reactmesh/model"
	"github.com/hupe1980/reactmesh/model/provider"
	"github.com/hupe1980/reactmesh/tool"
)

// PromptData is the data the system prompt template is rendered with.
type PromptData struct {
	// Tools holds one "name - description" line per capability.
	Tools string
	// SystemTime is the current UTC time in RFC 3339 form.
	SystemTime string
}

// CompletionOptions configure a CompletionStage.
type CompletionOptions struct {
	// Loader resolves the backend identifier; defaults to provider.Default().
	Loader provider.Loader
	// Clock supplies the timestamp rendered into the prompt.
	Clock  func() time.Time
	Logger logging.Logger
	// OnPartial receives streamed text deltas; setting it enables streaming.
	OnPartial func(text string)
	Tracer    trace.Tracer
}

// CompletionStage asks the backend for the next assistant message.
type CompletionStage struct {
	opts CompletionOptions
}

var _ Completer = (*CompletionStage)(nil)

// NewCompletionStage creates a completion stage.
func NewCompletionStage(optFns ...func(o *CompletionOptions)) *CompletionStage {
	opts := CompletionOptions{Clock: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Loader == nil {
		opts.Loader = provider.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Tracer == nil {
		opts.Tracer = tracer
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &CompletionStage{opts: opts}
}

// RenderSystemPrompt renders the configured template for reg at now.
func RenderSystemPrompt(cfg config.Config, reg *tool.Registry, now time.Time) (string, error) {
	text, err := util.RenderTemplate(cfg.SystemPrompt, PromptData{
		Tools:      reg.Describe(),
		SystemTime: now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", config.NewConfigError("system_prompt", "", err.Error())
	}
	return text, nil
}

// Complete renders the prompt, loads the backend once, and invokes it with the
// system message followed by the full history. A response that still requests
// actions in the last allowed turn is replaced by the budget message. The
// returned message is appended to st.
func (s *CompletionStage) Complete(ctx context.Context, st *core.State, reg *tool.Registry) (core.Message, error) {
	ctx, span := s.opts.Tracer.Start(ctx, "flow.completion", trace.WithAttributes(
		attribute.String("model", st.Config.Model),
		attribute.Int("turn", st.Turn()),
		attribute.Int("tools", reg.Len()),
	))
	defer span.End()

	msg, err := s.complete(ctx, st, reg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return core.Message{}, err
	}

	span.SetAttributes(attribute.Int("action_requests", len(msg.ActionRequests)))
	st.Append(msg)

	return msg, nil
}

func (s *CompletionStage) complete(ctx context.Context, st *core.State, reg *tool.Registry) (core.Message, error) {
	cfg := st.Config
	logger := s.opts.Logger

	system, err := RenderSystemPrompt(cfg, reg, s.opts.Clock())
	if err != nil {
		return core.Message{}, err
	}

	backend, err := s.opts.Loader.Load(ctx, cfg.Model)
	if err != nil {
		return core.Message{}, err
	}

	bound := model.Bind(backend, reg.Definitions(), func(o *model.BindOptions) {
		o.Logger = logger
		o.OnPartial = s.opts.OnPartial
	})

	history := st.Messages()
	msgs := make([]core.Message, 0, len(history)+1)
	msgs = append(msgs, core.NewSystemMessage(system))
	msgs = append(msgs, history...)

	logger.Debug("agent.completion.start", "model", cfg.Model, "turn", st.Turn(), "messages", len(msgs))

	start := time.Now()
	msg, usage, err := bound.Complete(ctx, msgs)

	tokens := 0
	if usage != nil {
		tokens = usage.TotalTokens
	}
	logging.LogModelCall(logger, cfg.Model, tokens, time.Since(start), err)

	if err != nil {
		var be *model.BackendError
		if !errors.As(err, &be) {
			info := backend.Info()
			err = &model.BackendError{Provider: info.Provider, Model: info.Name, Err: err}
		}
		return core.Message{}, err
	}

	if core.BudgetExhausted(st.Turn(), st.MaxTurns(), len(msg.ActionRequests)) {
		logger.Warn("agent.budget.exhausted", "turn", st.Turn(), "max_turns", st.MaxTurns(), "pending", len(msg.ActionRequests))
		budget := core.NewAssistantMessage(core.BudgetExhaustedMessage)
		budget.ID = msg.ID
		return budget, nil
	}

	return msg, nil
}
