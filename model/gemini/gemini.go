// Package gemini provides a model.Model backed by the Google Gen AI SDK
// (Gemini API).
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/model"
)

// Options configures the Gemini adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	// APIKey overrides GOOGLE_API_KEY / GEMINI_API_KEY.
	APIKey string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
}

// Model wraps genai.Client behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

var _ model.Model = (*Model)(nil)

// NewModel creates a Gemini model. The client is created eagerly so that a
// missing API key surfaces as an error.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:           "gemini-2.0-flash",
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cc := &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{Model: "gemini-2.0-flash", Temperature: 0.7, MaxOutputTokens: 4096}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate calls GenerateContent and emits one final response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, buildContents(req.Messages), m.buildConfig(req))
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}

		msg, finish := convertResponse(resp)

		r := model.Response{ID: resp.ResponseID, Message: msg, FinishReason: finish}
		if u := resp.UsageMetadata; u != nil {
			r.Usage = &model.TokenUsage{
				PromptTokens:     int(u.PromptTokenCount),
				CompletionTokens: int(u.CandidatesTokenCount),
				TotalTokens:      int(u.TotalTokenCount),
			}
		}
		out <- r
	}()

	return out, errCh
}

func (m *Model) buildConfig(req model.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(m.opts.Temperature),
		MaxOutputTokens: m.opts.MaxOutputTokens,
	}

	var system []string
	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem {
			system = append(system, msg.Text())
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}

	if tools := buildTools(req.Tools); tools != nil {
		cfg.Tools = tools
	}

	return cfg
}

// buildContents maps the transcript to Gemini contents. Consecutive action
// results become one user turn of function responses.
func buildContents(msgs []core.Message) []*genai.Content {
	var (
		out     []*genai.Content
		pending *genai.Content
	)

	flush := func() {
		if pending != nil {
			out = append(out, pending)
			pending = nil
		}
	}

	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			continue
		case core.RoleActionResult:
			if pending == nil {
				pending = &genai.Content{Role: genai.RoleUser}
			}
			pending.Parts = append(pending.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.RequestID,
				Name:     msg.Name,
				Response: functionResponse(msg),
			}})
		case core.RoleAssistant:
			flush()
			content := &genai.Content{Role: genai.RoleModel}
			if text := msg.Text(); text != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: text})
			}
			for _, r := range msg.ActionRequests {
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   r.ID,
					Name: r.Name,
					Args: r.Arguments,
				}})
			}
			if len(content.Parts) > 0 {
				out = append(out, content)
			}
		default:
			flush()
			if text := msg.Text(); text != "" {
				out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}})
			}
		}
	}
	flush()

	return out
}

// functionResponse keeps JSON object results as-is and wraps anything else.
func functionResponse(msg core.Message) map[string]any {
	text := msg.Text()
	if !msg.IsError {
		var obj map[string]any
		if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
			return obj
		}
		return map[string]any{"result": text}
	}
	return map[string]any{"error": text}
}

func convertResponse(resp *genai.GenerateContentResponse) (core.Message, string) {
	var (
		text strings.Builder
		reqs []core.ActionRequest
	)

	finish := "stop"

	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		cand := resp.Candidates[0]
		if cand.FinishReason != "" {
			finish = strings.ToLower(string(cand.FinishReason))
		}
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part == nil {
					continue
				}
				if part.Text != "" && !part.Thought {
					text.WriteString(part.Text)
				}
				if fc := part.FunctionCall; fc != nil {
					id := fc.ID
					if id == "" {
						id = core.NewID()
					}
					args := fc.Args
					if args == nil {
						args = map[string]any{}
					}
					reqs = append(reqs, core.ActionRequest{ID: id, Name: fc.Name, Arguments: args})
				}
			}
		}
	}

	if len(reqs) > 0 {
		finish = "tool_calls"
	}

	return core.NewAssistantMessage(text.String(), reqs...), finish
}

func buildTools(defs []model.ToolDefinition) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Function.Name,
			Description: d.Function.Description,
			Parameters:  toSchema(d.Function.Parameters),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toSchema converts a JSON Schema map to Gemini's Schema type.
func toSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}

	s := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}

	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}

	switch enum := m["enum"].(type) {
	case []string:
		s.Enum = append(s.Enum, enum...)
	case []any:
		for _, e := range enum {
			if v, ok := e.(string); ok {
				s.Enum = append(s.Enum, v)
			}
		}
	}

	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if pm, ok := prop.(map[string]any); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}

	switch req := m["required"].(type) {
	case []string:
		s.Required = append(s.Required, req...)
	case []any:
		for _, r := range req {
			if v, ok := r.(string); ok {
				s.Required = append(s.Required, v)
			}
		}
	}

	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}

	return s
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini", SupportsTools: true}
}
