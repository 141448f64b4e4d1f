package model

import (
	"context"
	"errors"

	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/logging"
)

// Bound is a model bound to a fixed capability set. It exposes the single
// operation the completion stage needs: messages in, one assistant message out.
type Bound struct {
	model     Model
	tools     []ToolDefinition
	known     map[string]struct{}
	logger    logging.Logger
	onPartial func(text string)
}

// BindOptions configure a Bound model.
type BindOptions struct {
	Logger logging.Logger
	// OnPartial receives streamed text deltas. Setting it enables streaming.
	OnPartial func(text string)
}

// Bind attaches tool definitions to a model.
func Bind(m Model, tools []ToolDefinition, optFns ...func(o *BindOptions)) *Bound {
	opts := BindOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	known := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		known[t.Function.Name] = struct{}{}
	}

	return &Bound{
		model:     m,
		tools:     tools,
		known:     known,
		logger:    logging.OrNoOp(opts.Logger),
		onPartial: opts.OnPartial,
	}
}

// Info returns the underlying model info.
func (b *Bound) Info() Info { return b.model.Info() }

// Tools returns the bound definitions.
func (b *Bound) Tools() []ToolDefinition { return b.tools }

// Complete sends msgs to the model and collects the final assistant message.
// Provider failures are wrapped in *BackendError.
func (b *Bound) Complete(ctx context.Context, msgs []core.Message) (core.Message, *TokenUsage, error) {
	info := b.model.Info()
	req := Request{Messages: msgs, Tools: b.tools, Stream: b.onPartial != nil}

	respCh, errCh := b.model.Generate(ctx, req)

	var (
		final    *Response
		firstErr error
	)

	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				if b.onPartial != nil {
					if text := r.Message.Text(); text != "" {
						b.onPartial(text)
					}
				}
				continue
			}
			resp := r
			final = &resp
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return core.Message{}, nil, b.wrap(info, firstErr)
	}

	if final == nil {
		if err := ctx.Err(); err != nil {
			return core.Message{}, nil, b.wrap(info, err)
		}
		return core.Message{}, nil, b.wrap(info, errors.New("model returned no response"))
	}

	msg := final.Message
	msg.Role = core.RoleAssistant
	if final.ID != "" {
		msg.ID = final.ID
	}
	if msg.ID == "" {
		msg.ID = core.NewID()
	}

	for i, req := range msg.ActionRequests {
		if req.ID == "" {
			msg.ActionRequests[i].ID = core.NewID()
		}
		if req.Arguments == nil {
			msg.ActionRequests[i].Arguments = map[string]any{}
		}
		if _, ok := b.known[req.Name]; !ok {
			b.logger.Warn("model.unbound_tool", "tool", req.Name, "model", info.Name)
		}
	}

	return msg, final.Usage, nil
}

func (b *Bound) wrap(info Info, err error) error {
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Provider: info.Provider, Model: info.Name, Err: err}
}
