// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API (including streaming + function/tool calling). It also
// serves OpenAI-compatible endpoints such as Groq and Ollama via BaseURL.
package openai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/model"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// allowing reconstruction of complete action requests when the finish reason
// is emitted.
type aggCall struct{ id, name, args string }

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// APIKey overrides OPENAI_API_KEY.
	APIKey string
	// BaseURL targets an OpenAI-compatible endpoint.
	BaseURL string
	// Provider is reported by Info; defaults to "openai".
	Provider string
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

var _ model.Model = (*Model)(nil)

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Provider:            "openai",
	}
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements unified streaming / non-streaming generation.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req, buildMessages(req.Messages))
		if req.Stream {
			m.handleStreaming(ctx, params, out, errCh)
			return
		}
		m.handleNonStreaming(ctx, params, out, errCh)
	}()

	return out, errCh
}

// buildMessages converts the transcript into OpenAI chat messages. Action
// results map to tool messages correlated by request ID.
func buildMessages(msgs []core.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))

	for _, msg := range msgs {
		text := msg.Text()

		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(text))
		case core.RoleAssistant:
			if !msg.HasActionRequests() {
				messages = append(messages, openai.AssistantMessage(text))
				continue
			}
			param := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls(msg.ActionRequests)}
			if text != "" {
				param.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &param})
		case core.RoleActionResult:
			messages = append(messages, openai.ToolMessage(text, msg.RequestID))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}

	return messages
}

func toolCalls(reqs []core.ActionRequest) []openai.ChatCompletionMessageToolCallParam {
	calls := make([]openai.ChatCompletionMessageToolCallParam, len(reqs))
	for i, r := range reqs {
		calls[i] = openai.ChatCompletionMessageToolCallParam{
			ID:   r.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      r.Name,
				Arguments: model.EncodeArguments(r.Arguments),
			},
		}
	}
	return calls
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (m *Model) buildParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools

	return params
}

// handleStreaming processes streaming responses and forwards partial / final events.
func (m *Model) handleStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		textBuilder strings.Builder
		id          string
	)
	toolAgg := map[int64]*aggCall{}

	for stream.Next() {
		ck := stream.Current()
		if ck.ID != "" {
			id = ck.ID
		}
		for _, ch := range ck.Choices {
			if ch.Delta.Content != "" {
				textBuilder.WriteString(ch.Delta.Content)
				out <- model.Response{Partial: true, Message: core.NewAssistantMessage(ch.Delta.Content)}
			}
			aggregateToolCalls(ch, toolAgg)
			if ch.FinishReason != "" {
				out <- model.Response{
					ID:           id,
					Message:      core.NewAssistantMessage(textBuilder.String(), aggregatedRequests(toolAgg)...),
					FinishReason: ch.FinishReason,
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("openai streaming error: %w", err)
	}
}

func aggregateToolCalls(ch openai.ChatCompletionChunkChoice, agg map[int64]*aggCall) {
	for _, tc := range ch.Delta.ToolCalls {
		ac, ok := agg[tc.Index]
		if !ok {
			ac = &aggCall{}
			agg[tc.Index] = ac
		}
		if tc.ID != "" {
			ac.id = tc.ID
		}
		if tc.Function.Name != "" {
			ac.name = tc.Function.Name
		}
		ac.args += tc.Function.Arguments
	}
}

// aggregatedRequests returns the streamed calls ordered by their index.
func aggregatedRequests(agg map[int64]*aggCall) []core.ActionRequest {
	idx := make([]int64, 0, len(agg))
	for i := range agg {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })

	reqs := make([]core.ActionRequest, 0, len(idx))
	for _, i := range idx {
		ac := agg[i]
		reqs = append(reqs, core.ActionRequest{ID: ac.id, Name: ac.name, Arguments: model.DecodeArguments(ac.args)})
	}
	return reqs
}

// handleNonStreaming processes a normal (non-streaming) completion.
func (m *Model) handleNonStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("openai api error: %w", err)
		return
	}

	if len(resp.Choices) == 0 {
		errCh <- fmt.Errorf("no choices returned")
		return
	}

	ch0 := resp.Choices[0]

	reqs := make([]core.ActionRequest, 0, len(ch0.Message.ToolCalls))
	for _, tc := range ch0.Message.ToolCalls {
		reqs = append(reqs, core.ActionRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: model.DecodeArguments(tc.Function.Arguments),
		})
	}

	out <- model.Response{
		ID:           resp.ID,
		Message:      core.NewAssistantMessage(ch0.Message.Content, reqs...),
		FinishReason: ch0.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
}

// Info returns metadata describing this model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      m.opts.Provider,
		SupportsTools: true,
	}
}
