package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/reactmesh/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// NewToolDefinition builds a function tool definition.
func NewToolDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{Type: "function", Function: FunctionDefinition{
		Name:        name,
		Description: description,
		Parameters:  parameters,
	}}
}

// Request captures the normalized model input: the rendered system message
// followed by the full conversation history, plus the bound tool definitions.
type Request struct {
	Messages []core.Message  `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. Only the final
// chunk carries action requests.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the completion stage to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// BackendError wraps a failure reported by a model provider.
type BackendError struct {
	Provider string
	Model    string
	Err      error
}

// Error implements error.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s:%s: %v", e.Provider, e.Model, e.Err)
}

// Unwrap exposes the provider error.
func (e *BackendError) Unwrap() error { return e.Err }

// DecodeArguments parses a JSON argument object emitted by a provider. Empty
// or malformed input yields an empty map so that argument validation of the
// target capability reports the problem back to the model.
func DecodeArguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// EncodeArguments renders an argument map as a JSON object string.
func EncodeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// DefinitionNames returns the sorted names of the given definitions.
func DefinitionNames(defs []ToolDefinition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Function.Name
	}
	sort.Strings(names)
	return names
}
