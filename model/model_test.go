package model

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactmesh/core"
)

func TestBoundCompleteText(t *testing.T) {
	m := NewMockModel("mock", "test").ReplyText("The capital of France is Paris.")
	b := Bind(m, nil)

	msg, _, err := b.Complete(context.Background(), []core.Message{core.NewHumanMessage("capital of France?")})
	require.NoError(t, err)
	assert.Equal(t, core.RoleAssistant, msg.Role)
	assert.Equal(t, "The capital of France is Paris.", msg.Text())
	assert.False(t, msg.HasActionRequests())
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, 1, m.Calls())
}

func TestBoundCompleteFillsRequestIDs(t *testing.T) {
	m := NewMockModel("mock", "test").ReplyActions(core.ActionRequest{Name: "web_search"})
	b := Bind(m, []ToolDefinition{NewToolDefinition("web_search", "search", nil)})

	msg, _, err := b.Complete(context.Background(), []core.Message{core.NewHumanMessage("q")})
	require.NoError(t, err)
	require.Len(t, msg.ActionRequests, 1)
	assert.NotEmpty(t, msg.ActionRequests[0].ID)
	assert.NotNil(t, msg.ActionRequests[0].Arguments)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"web_search"}, DefinitionNames(reqs[0].Tools))
}

func TestBoundCompleteBackendError(t *testing.T) {
	boom := errors.New("rate limited")
	m := NewMockModel("gpt", "openai").Fail(boom)

	_, _, err := Bind(m, nil).Complete(context.Background(), []core.Message{core.NewHumanMessage("hi")})
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "openai", be.Provider)
	assert.Equal(t, "gpt", be.Model)
	assert.ErrorIs(t, err, boom)
}

func TestBoundCompleteStreaming(t *testing.T) {
	m := NewMockModel("mock", "test").ReplyText("abc")
	var sb strings.Builder

	msg, _, err := Bind(m, nil, func(o *BindOptions) {
		o.OnPartial = func(text string) { sb.WriteString(text) }
	}).Complete(context.Background(), []core.Message{core.NewHumanMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "abc", sb.String())
	assert.Equal(t, "abc", msg.Text())
}

func TestMockModelRepeatsLastStep(t *testing.T) {
	m := NewMockModel("mock", "test").ReplyActions(core.ActionRequest{ID: "1", Name: "loop"})
	b := Bind(m, nil)
	in := []core.Message{core.NewHumanMessage("go")}

	first, _, err := b.Complete(context.Background(), in)
	require.NoError(t, err)
	second, _, err := b.Complete(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "loop", second.ActionRequests[0].Name)
	assert.NotEqual(t, first.ActionRequests[0].ID, second.ActionRequests[0].ID)
	assert.Equal(t, 2, m.Calls())
}

func TestMockModelEcho(t *testing.T) {
	msg, _, err := Bind(NewMockModel("mock", "test"), nil).
		Complete(context.Background(), []core.Message{core.NewHumanMessage("ping")})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: ping", msg.Text())
}

func TestMockModelNoMessages(t *testing.T) {
	_, _, err := Bind(NewMockModel("mock", "test"), nil).Complete(context.Background(), nil)
	assert.Error(t, err)
}

func TestDecodeArguments(t *testing.T) {
	assert.Equal(t, map[string]any{"q": "x"}, DecodeArguments(`{"q":"x"}`))
	assert.Equal(t, map[string]any{}, DecodeArguments(""))
	assert.Equal(t, map[string]any{}, DecodeArguments("{not json"))
	assert.Equal(t, map[string]any{}, DecodeArguments("null"))
	assert.Equal(t, "{}", EncodeArguments(nil))
	assert.JSONEq(t, `{"a":1}`, EncodeArguments(map[string]any{"a": 1}))
}
