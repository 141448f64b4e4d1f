// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/model"
)

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, API key).
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	APIKey      string
	BaseURL     string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

var _ model.Model = (*Model)(nil)

func defaultOptions() Options {
	return Options{
		Model:       string(anthropic.ModelClaude3_5Sonnet20241022),
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// NewModel creates a new Anthropic model using the official client.
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

	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate adapts the Anthropic Messages API into model.Response events.
// Streaming requests are served with a single final response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(m.opts.Model),
			Messages:    buildMessages(req.Messages),
			MaxTokens:   m.opts.MaxTokens,
			Temperature: anthropic.Float(m.opts.Temperature),
		}

		if system := systemBlocks(req.Messages); len(system) > 0 {
			params.System = system
		}

		if len(req.Tools) > 0 {
			params.Tools = buildTools(req.Tools)
		}

		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic api error: %w", err)
			return
		}

		var (
			text string
			reqs []core.ActionRequest
		)

		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text += block.AsText().Text
			case "tool_use":
				toolBlock := block.AsToolUse()
				args := ""
				if toolBlock.Input != nil {
					if b, err := json.Marshal(toolBlock.Input); err == nil {
						args = string(b)
					}
				}
				reqs = append(reqs, core.ActionRequest{
					ID:        toolBlock.ID,
					Name:      toolBlock.Name,
					Arguments: model.DecodeArguments(args),
				})
			}
		}

		finishReason := "stop"
		if resp.StopReason != "" {
			finishReason = string(resp.StopReason)
		}

		out <- model.Response{
			ID:           resp.ID,
			Message:      core.NewAssistantMessage(text, reqs...),
			FinishReason: finishReason,
			Usage: &model.TokenUsage{
				PromptTokens:     int(resp.Usage.InputTokens),
				CompletionTokens: int(resp.Usage.OutputTokens),
				TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
			},
		}
	}()

	return out, errCh
}

// buildMessages converts the transcript to Anthropic message format. System
// messages travel separately; consecutive action results are merged into a
// single user message of tool_result blocks.
func buildMessages(msgs []core.Message) []anthropic.MessageParam {
	var (
		messages []anthropic.MessageParam
		results  []anthropic.ContentBlockParamUnion
	)

	flush := func() {
		if len(results) > 0 {
			messages = append(messages, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			continue
		case core.RoleActionResult:
			results = append(results, anthropic.NewToolResultBlock(msg.RequestID, msg.Text(), msg.IsError))
		case core.RoleAssistant:
			flush()
			if content := assistantContent(msg); len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
		default:
			flush()
			if text := msg.Text(); text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}
	}
	flush()

	return messages
}

func assistantContent(msg core.Message) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion
	if text := msg.Text(); text != "" {
		content = append(content, anthropic.NewTextBlock(text))
	}
	for _, r := range msg.ActionRequests {
		args := r.Arguments
		if args == nil {
			args = map[string]any{}
		}
		content = append(content, anthropic.NewToolUseBlock(r.ID, args, r.Name))
	}
	return content
}

func systemBlocks(msgs []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, msg := range msgs {
		if msg.Role != core.RoleSystem {
			continue
		}
		if text := msg.Text(); text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: text})
		}
	}
	return blocks
}

// buildTools converts tool definitions to Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if params := tool.Function.Parameters; params != nil {
			if properties, ok := params["properties"]; ok {
				inputSchema.Properties = properties
			}
			inputSchema.Required = requiredFields(params["required"])
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Function.Name)
		if out[i].OfTool != nil && tool.Function.Description != "" {
			out[i].OfTool.Description = anthropic.String(tool.Function.Description)
		}
	}

	return out
}

func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
