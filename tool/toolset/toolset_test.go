package toolset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/memory"
	"github.com/hupe1980/reactmesh/tool"
)

type recordingLogger struct {
	mu      sync.Mutex
	warns   []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

type fakeDiscoverer struct {
	tools []tool.Tool
	err   error
	calls []string
}

func (f *fakeDiscoverer) Discover(_ context.Context, endpoint string) ([]tool.Tool, error) {
	f.calls = append(f.calls, endpoint)
	return f.tools, f.err
}

func named(names ...string) []tool.Tool {
	out := make([]tool.Tool, len(names))
	for i, n := range names {
		out[i] = tool.NewFunctionTool(n, n+" tool", nil, func(context.Context, map[string]any) (any, error) { return n, nil })
	}
	return out
}

func staticLocals(names ...string) LocalFactory {
	return func(context.Context, config.Config) ([]tool.Tool, error) { return named(names...), nil }
}

func TestAssembleLocalsThenRemotes(t *testing.T) {
	d := &fakeDiscoverer{tools: named("remote_b", "remote_a")}
	a := New(func(o *Options) {
		o.Locals = staticLocals("web_search", "go_interpreter")
		o.Discoverer = d
	})

	cfg := config.Default()
	cfg.DiscoveryURL = "http://tools.local/mcp"

	reg, err := a.Assemble(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"web_search", "go_interpreter", "remote_b", "remote_a"}, reg.Names())
	assert.Equal(t, []string{"http://tools.local/mcp"}, d.calls)
}

func TestAssembleLocalOnlySkipsDiscovery(t *testing.T) {
	d := &fakeDiscoverer{tools: named("remote")}
	a := New(func(o *Options) {
		o.Locals = staticLocals("web_search", "go_interpreter")
		o.Discoverer = d
	})

	reg, err := a.Assemble(context.Background(), config.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"web_search", "go_interpreter"}, reg.Names())
	assert.Empty(t, d.calls)
}

func TestAssembleDiscoveryFailureDegrades(t *testing.T) {
	logger := &recordingLogger{}
	a := New(func(o *Options) {
		o.Locals = staticLocals("web_search", "go_interpreter")
		o.Discoverer = &fakeDiscoverer{err: errors.New("connection refused")}
		o.Logger = logger
	})

	cfg := config.Default()
	cfg.DiscoveryURL = "http://127.0.0.1:1"

	reg, err := a.Assemble(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"web_search", "go_interpreter"}, reg.Names())
	assert.Equal(t, []string{"toolset.discovery.failed"}, logger.warns)
}

func TestAssembleDefaultDiscovererUnreachable(t *testing.T) {
	a := New(func(o *Options) { o.Locals = staticLocals("web_search") })

	cfg := config.Default()
	cfg.DiscoveryURL = "http://127.0.0.1:1/mcp"

	reg, err := a.Assemble(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"web_search"}, reg.Names())
}

func TestAssembleDuplicateIsConfigError(t *testing.T) {
	a := New(func(o *Options) {
		o.Locals = staticLocals("web_search")
		o.Discoverer = &fakeDiscoverer{tools: named("web_search")}
	})

	cfg := config.Default()
	cfg.DiscoveryURL = "http://tools.local"

	_, err := a.Assemble(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestAssembleLocalFactoryError(t *testing.T) {
	a := New(func(o *Options) {
		o.Locals = func(context.Context, config.Config) ([]tool.Tool, error) { return nil, fmt.Errorf("bad locals") }
	})

	_, err := a.Assemble(context.Background(), config.Default())
	assert.EqualError(t, err, "bad locals")
}

func TestLocalsBaselineAndExtended(t *testing.T) {
	store := memory.NewInMemoryStore(memory.HashEmbedder{})
	l := NewLocals(func(o *LocalsOptions) { o.Store = store })

	cfg := config.Default()
	tools, err := l.Tools(context.Background(), cfg)
	require.NoError(t, err)
	reg := tool.MustRegistry(tools...)
	assert.Equal(t, []string{"web_search", "go_interpreter"}, reg.Names())

	cfg.ExtendedTools = true
	tools, err = l.Tools(context.Background(), cfg)
	require.NoError(t, err)
	reg = tool.MustRegistry(tools...)
	assert.Equal(t, []string{"web_search", "go_interpreter", "wikipedia", "arxiv", "add_document", "search_documents"}, reg.Names())
}

func TestLocalsReuseStatefulTools(t *testing.T) {
	l := NewLocals(func(o *LocalsOptions) { o.Embedder = memory.HashEmbedder{} })

	cfg := config.Default()
	cfg.ExtendedTools = true

	first, err := l.Tools(context.Background(), cfg)
	require.NoError(t, err)
	second, err := l.Tools(context.Background(), cfg)
	require.NoError(t, err)

	assert.Same(t, first[0], second[0])

	add, _ := tool.MustRegistry(first...).Lookup("add_document")
	_, err = add.Call(context.Background(), map[string]any{"content": "remember me"})
	require.NoError(t, err)

	search, _ := tool.MustRegistry(second...).Lookup("search_documents")
	out, err := search.Call(context.Background(), map[string]any{"query": "remember me", "k": 1})
	require.NoError(t, err)
	assert.Contains(t, out, "remember me")

	cfg.MaxSearchResults = 2
	third, err := l.Tools(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotSame(t, first[0], third[0])
}

func TestLocalsInvalidEmbeddingModel(t *testing.T) {
	cfg := config.Default()
	cfg.ExtendedTools = true
	cfg.EmbeddingModel = "nope"

	_, err := NewLocals().Tools(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
