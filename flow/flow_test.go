package flow

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/core"
	"github.com/hupe1980/reactmesh/internal/testutil"
	"github.com/hupe1980/reactmesh/model"
	"github.com/hupe1980/reactmesh/tool"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

func mockConfig() config.Config {
	cfg := config.Default()
	cfg.Model = "mock:scripted"
	return cfg
}

func echoTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "returns its input", map[string]any{
		"type":       "object",
		"properties": map[string]any{"input": map[string]any{"type": "string"}},
		"required":   []string{"input"},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return name + ":" + args["input"].(string), nil
	})
}

func newCompletion(m model.Model) (*CompletionStage, *testutil.MockLoader) {
	loader := testutil.NewMockLoader(m)
	return NewCompletionStage(func(o *CompletionOptions) {
		o.Loader = loader
		o.Clock = func() time.Time { return fixedNow }
	}), loader
}

func TestRenderSystemPrompt(t *testing.T) {
	cfg := mockConfig()
	cfg.SystemPrompt = "Tools:\n{{.Tools}}\nNow: {{.SystemTime}}"

	out, err := RenderSystemPrompt(cfg, tool.MustRegistry(echoTool("a"), echoTool("b")), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Tools:\na - returns its input\nb - returns its input\nNow: 2024-05-01T10:30:00Z", out)

	cfg.SystemPrompt = "{{.Unknown}}"
	_, err = RenderSystemPrompt(cfg, tool.MustRegistry(), fixedNow)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestCompleteSendsSystemPlusHistory(t *testing.T) {
	m := model.NewMockModel("scripted", "mock").ReplyText("Paris")
	stage, loader := newCompletion(m)

	st := core.NewState(mockConfig(), 0, core.NewHumanMessage("What is the capital of France?"))
	_, err := st.NextTurn()
	require.NoError(t, err)

	msg, err := stage.Complete(context.Background(), st, tool.MustRegistry(echoTool("echo")))
	require.NoError(t, err)
	assert.Equal(t, "Paris", msg.Text())
	assert.Equal(t, []string{"scripted"}, loader.Constructions())

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, core.RoleSystem, reqs[0].Messages[0].Role)
	assert.Contains(t, reqs[0].Messages[0].Text(), "echo - returns its input")
	assert.Contains(t, reqs[0].Messages[0].Text(), "2024-05-01T10:30:00Z")
	assert.Equal(t, "What is the capital of France?", reqs[0].Messages[1].Text())
	assert.Equal(t, []string{"echo"}, model.DefinitionNames(reqs[0].Tools))

	assert.Equal(t, 2, st.Len())
	for _, stored := range st.Messages() {
		assert.NotEqual(t, core.RoleSystem, stored.Role)
	}
}

func TestCompleteLoadsBackendPerCall(t *testing.T) {
	m := model.NewMockModel("scripted", "mock").ReplyText("one").ReplyText("two")
	stage, loader := newCompletion(m)
	st := core.NewState(mockConfig(), 0, core.NewHumanMessage("hi"))

	for i := 0; i < 2; i++ {
		_, err := st.NextTurn()
		require.NoError(t, err)
		_, err = stage.Complete(context.Background(), st, tool.MustRegistry())
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"scripted", "scripted"}, loader.Constructions())
}

func TestCompleteBudgetMessageKeepsID(t *testing.T) {
	reply := core.NewAssistantMessage("", testutil.Request("c1", "echo", map[string]any{"input": "x"}))
	m := model.NewMockModel("scripted", "mock").Reply(reply)
	stage, _ := newCompletion(m)

	st := core.NewState(mockConfig(), 1, core.NewHumanMessage("loop"))
	_, err := st.NextTurn()
	require.NoError(t, err)

	msg, err := stage.Complete(context.Background(), st, tool.MustRegistry(echoTool("echo")))
	require.NoError(t, err)
	assert.Equal(t, core.BudgetExhaustedMessage, msg.Text())
	assert.Equal(t, reply.ID, msg.ID)
	assert.False(t, msg.HasActionRequests())
}

func TestCompleteErrors(t *testing.T) {
	t.Run("malformed identifier", func(t *testing.T) {
		m := model.NewMockModel("scripted", "mock")
		stage, loader := newCompletion(m)
		cfg := mockConfig()
		cfg.Model = "mock"

		_, err := stage.Complete(context.Background(), core.NewState(cfg, 0, core.NewHumanMessage("x")), tool.MustRegistry())
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Empty(t, loader.Constructions())
		assert.Zero(t, m.Calls())
	})

	t.Run("backend failure", func(t *testing.T) {
		m := model.NewMockModel("scripted", "mock").Fail(errors.New("rate limited"))
		stage, _ := newCompletion(m)

		st := core.NewState(mockConfig(), 0, core.NewHumanMessage("x"))
		_, err := stage.Complete(context.Background(), st, tool.MustRegistry())

		var be *model.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "mock", be.Provider)
		assert.ErrorContains(t, err, "rate limited")
		assert.Equal(t, 1, st.Len())
	})
}

func TestCompleteStreamsPartials(t *testing.T) {
	m := model.NewMockModel("scripted", "mock").ReplyText("abc")
	var sb strings.Builder
	stage := NewCompletionStage(func(o *CompletionOptions) {
		o.Loader = testutil.NewMockLoader(m)
		o.OnPartial = func(s string) { sb.WriteString(s) }
	})

	msg, err := stage.Complete(context.Background(), core.NewState(mockConfig(), 0, core.NewHumanMessage("x")), tool.MustRegistry())
	require.NoError(t, err)
	assert.Equal(t, "abc", msg.Text())
	assert.Equal(t, "abc", sb.String())
}

func stateWithRequests(reqs ...core.ActionRequest) *core.State {
	return core.NewState(mockConfig(), 0, testutil.NewTranscript().Human("go").Assistant("", reqs...).Build()...)
}

func TestActPreservesRequestOrder(t *testing.T) {
	var running, peak atomic.Int32
	slow := tool.NewFunctionTool("slow", "sleeps", nil, func(_ context.Context, args map[string]any) (any, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		d := time.Duration(args["ms"].(float64)) * time.Millisecond
		time.Sleep(d)
		return args["ms"], nil
	})

	reqs := []core.ActionRequest{
		testutil.Request("r1", "slow", map[string]any{"ms": 40.0}),
		testutil.Request("r2", "slow", map[string]any{"ms": 1.0}),
		testutil.Request("r3", "slow", map[string]any{"ms": 20.0}),
	}
	st := stateWithRequests(reqs...)

	results, err := NewActionStage().Act(context.Background(), st, tool.MustRegistry(slow))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, reqs[i].ID, r.RequestID)
		assert.Equal(t, "slow", r.Name)
		assert.False(t, r.IsError)
	}
	assert.Equal(t, "40", results[0].Text())
	assert.Equal(t, 5, st.Len())
	assert.True(t, testutil.Correlated(st.Messages()))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestActMaxParallel(t *testing.T) {
	var running, peak atomic.Int32
	counter := tool.NewFunctionTool("counter", "counts concurrent calls", nil, func(context.Context, map[string]any) (any, error) {
		n := running.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return "ok", nil
	})

	st := stateWithRequests(
		testutil.Request("a", "counter", nil),
		testutil.Request("b", "counter", nil),
		testutil.Request("c", "counter", nil),
	)

	_, err := NewActionStage(func(o *ActionOptions) { o.MaxParallel = 1 }).Act(context.Background(), st, tool.MustRegistry(counter))
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}

func TestActErrorResults(t *testing.T) {
	boom := tool.NewFunctionTool("boom", "fails", nil, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("disk full")
	})
	panicky := tool.NewFunctionTool("panicky", "panics", nil, func(context.Context, map[string]any) (any, error) {
		panic("nil map")
	})

	st := stateWithRequests(
		testutil.Request("1", "missing", nil),
		testutil.Request("2", "boom", nil),
		testutil.Request("3", "panicky", nil),
		testutil.Request("4", "echo", map[string]any{}),
		testutil.Request("5", "echo", map[string]any{"input": "ok"}),
	)
	reg := tool.MustRegistry(echoTool("echo"), boom, panicky)

	results, err := NewActionStage().Act(context.Background(), st, reg)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, "Error: missing is not a valid tool, try one of [echo, boom, panicky].", results[0].Text())
	assert.True(t, results[0].IsError)

	assert.True(t, strings.HasPrefix(results[1].Text(), "Error: "))
	assert.Contains(t, results[1].Text(), "disk full")
	assert.True(t, strings.HasSuffix(results[1].Text(), "\n Please fix your mistakes."))

	assert.Contains(t, results[2].Text(), tool.CodePanic)
	assert.Contains(t, results[2].Text(), "nil map")

	assert.Contains(t, results[3].Text(), tool.CodeValidation)
	assert.True(t, results[3].IsError)

	assert.Equal(t, "echo:ok", results[4].Text())
	assert.False(t, results[4].IsError)
}

func TestActRequiresPendingRequests(t *testing.T) {
	st := core.NewState(mockConfig(), 0, core.NewHumanMessage("hi"))
	_, err := NewActionStage().Act(context.Background(), st, tool.MustRegistry())
	assert.ErrorIs(t, err, ErrNoPendingActions)

	_, err = NewActionStage().Act(context.Background(), core.NewState(mockConfig(), 0), tool.MustRegistry())
	assert.ErrorIs(t, err, ErrNoPendingActions)
}

func TestActCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := stateWithRequests(testutil.Request("1", "echo", map[string]any{"input": "x"}))
	_, err := NewActionStage().Act(ctx, st, tool.MustRegistry(echoTool("echo")))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, st.Len())
}
