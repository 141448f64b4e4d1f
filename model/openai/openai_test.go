package openai

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

const toolCallCompletion = `{
  "id": "chatcmpl-123",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "web_search", "arguments": "{\"query\":\"capital of France\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func newTestServer(t *testing.T, body string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateToolCalls(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, toolCallCompletion, &captured)

	m := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.APIKey = "test-key"
	})

	req := model.Request{
		Messages: []core.Message{
			core.NewSystemMessage("You are helpful."),
			core.NewHumanMessage("What is the capital of France?"),
		},
		Tools: []model.ToolDefinition{model.NewToolDefinition("web_search", "Search the web", map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
		})},
	}

	msg, usage, err := model.Bind(m, req.Tools).Complete(context.Background(), req.Messages)
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-123", msg.ID)
	require.Len(t, msg.ActionRequests, 1)
	assert.Equal(t, "call_1", msg.ActionRequests[0].ID)
	assert.Equal(t, "web_search", msg.ActionRequests[0].Name)
	assert.Equal(t, "capital of France", msg.ActionRequests[0].Arguments["query"])
	require.NotNil(t, usage)
	assert.Equal(t, 15, usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
}

func TestGenerateMapsActionResults(t *testing.T) {
	var captured map[string]any
	srv := newTestServer(t, `{"id":"c2","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Paris"}}]}`, &captured)

	m := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.APIKey = "test-key"
		o.Model = "llama3"
		o.Provider = "ollama"
	})

	history := []core.Message{
		core.NewHumanMessage("capital?"),
		core.NewAssistantMessage("", core.ActionRequest{ID: "call_1", Name: "web_search", Arguments: map[string]any{"query": "x"}}),
		core.NewActionResultMessage("call_1", "web_search", "Paris is the capital.", false),
	}

	msg, _, err := model.Bind(m, nil).Complete(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Paris", msg.Text())
	assert.Equal(t, model.Info{Name: "llama3", Provider: "ollama", SupportsTools: true}, m.Info())

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 3)
	assistant := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	calls := assistant["tool_calls"].([]any)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].(map[string]any)["id"])

	toolMsg := msgs[2].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.BaseURL = srv.URL
		o.APIKey = "test-key"
	})

	_, _, err := model.Bind(m, nil).Complete(context.Background(), []core.Message{core.NewHumanMessage("hi")})
	var be *model.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "openai", be.Provider)
}
