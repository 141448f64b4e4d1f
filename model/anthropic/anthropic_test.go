package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/model"
)

func TestGenerateToolUse(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Let me search."},
				{"type": "tool_use", "id": "toolu_1", "name": "web_search", "input": {"query": "capital of France"}}
			],
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
		o.Model = "claude-3-5-sonnet-20241022"
	})

	history := []core.Message{
		core.NewSystemMessage("system prompt"),
		core.NewHumanMessage("first"),
		core.NewAssistantMessage("", core.ActionRequest{ID: "a", Name: "t1", Arguments: map[string]any{}},
			core.ActionRequest{ID: "b", Name: "t2", Arguments: map[string]any{"x": 1}}),
		core.NewActionResultMessage("a", "t1", "ra", false),
		core.NewActionResultMessage("b", "t2", "Error: boom", true),
	}
	defs := []model.ToolDefinition{model.NewToolDefinition("web_search", "Search", map[string]any{
		"type":       "object",
		"properties": map[string]any{"query": map[string]any{"type": "string"}},
		"required":   []any{"query"},
	})}

	msg, usage, err := model.Bind(m, defs).Complete(context.Background(), history)
	require.NoError(t, err)

	assert.Equal(t, "msg_01", msg.ID)
	assert.Equal(t, "Let me search.", msg.Text())
	require.Len(t, msg.ActionRequests, 1)
	assert.Equal(t, "toolu_1", msg.ActionRequests[0].ID)
	assert.Equal(t, "capital of France", msg.ActionRequests[0].Arguments["query"])
	assert.Equal(t, 19, usage.TotalTokens)

	// system prompt travels separately, results are merged in one user turn
	assert.NotNil(t, captured["system"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
	results := msgs[2].(map[string]any)
	assert.Equal(t, "user", results["role"])
	blocks := results["content"].([]any)
	require.Len(t, blocks, 2)
	assert.Equal(t, "tool_result", blocks[0].(map[string]any)["type"])
	assert.Equal(t, "a", blocks[0].(map[string]any)["tool_use_id"])
	assert.Equal(t, true, blocks[1].(map[string]any)["is_error"])

	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "Search", tools[0].(map[string]any)["description"])
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredFields([]string{"a"}))
	assert.Equal(t, []string{"a", "b"}, requiredFields([]any{"a", 3, "b"}))
	assert.Nil(t, requiredFields(nil))
}
