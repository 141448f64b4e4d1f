package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactmesh/tool"
)

func newWeatherServer(optFns ...server.ServerOption) *server.MCPServer {
	s := server.NewMCPServer("weather", "0.1.0", append([]server.ServerOption{server.WithToolCapabilities(false)}, optFns...)...)

	s.AddTool(mcpgo.NewTool("get_weather",
		mcpgo.WithDescription("Weather for a city"),
		mcpgo.WithString("city", mcpgo.Required()),
	), func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		city, _ := req.GetArguments()["city"].(string)
		return mcpgo.NewToolResultText("sunny in " + city), nil
	})

	s.AddTool(mcpgo.NewTool("fail",
		mcpgo.WithDescription("Always fails"),
	), func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultError("boom"), nil
	})

	return s
}

// sessionGate fronts a streamable HTTP server and answers 404 for sessions
// marked as expired, the way a server does after a restart.
type sessionGate struct {
	next http.Handler

	mu       sync.Mutex
	last     string
	sessions map[string]bool
	expired  map[string]bool
}

func newSessionGate(next http.Handler) *sessionGate {
	return &sessionGate{next: next, sessions: map[string]bool{}, expired: map[string]bool{}}
}

func (g *sessionGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("Mcp-Session-Id")

	g.mu.Lock()
	if id != "" {
		g.last = id
		g.sessions[id] = true
	}
	dead := g.expired[id]
	g.mu.Unlock()

	if dead {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	g.next.ServeHTTP(w, r)
}

func (g *sessionGate) expire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired[g.last] = true
}

func (g *sessionGate) sessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func newStreamableEndpoint(t *testing.T, s *server.MCPServer) (string, *sessionGate) {
	t.Helper()

	gate := newSessionGate(server.NewStreamableHTTPServer(s))
	ts := httptest.NewServer(gate)
	t.Cleanup(ts.Close)

	return ts.URL + "/mcp", gate
}

func discover(t *testing.T, d *Discoverer, endpoint string) map[string]tool.Tool {
	t.Helper()

	tools, err := d.Discover(context.Background(), endpoint)
	require.NoError(t, err)

	byName := map[string]tool.Tool{}
	for _, tl := range tools {
		byName[tl.Name()] = tl
	}

	return byName
}

func TestNewClientTransport(t *testing.T) {
	tests := []struct {
		endpoint string
		override Transport
		want     Transport
	}{
		{"http://localhost:8080/sse", TransportAuto, TransportSSE},
		{"http://localhost:8080/mcp", TransportAuto, TransportStreamableHTTP},
		{"http://localhost:8080/mcp/", TransportAuto, TransportStreamableHTTP},
		{"https://tools.example.com/", TransportAuto, TransportSSE},
		{"http://localhost:8080/mcp", TransportSSE, TransportSSE},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint+"/"+string(tt.override), func(t *testing.T) {
			c, err := NewClient(tt.endpoint, func(o *ClientOptions) { o.Transport = tt.override })
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Transport())
			assert.False(t, c.Connected())
		})
	}
}

func TestNewClientInvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "localhost:8080", "ftp://host/sse", "http://"} {
		_, err := NewClient(endpoint)
		assert.Error(t, err, endpoint)
	}
}

func TestDiscoverAndCallOverSSE(t *testing.T) {
	ts := server.NewTestServer(newWeatherServer())
	t.Cleanup(ts.Close)

	d := NewDiscoverer(nil)
	t.Cleanup(d.Holder().Reset)

	tools := discover(t, d, ts.URL+"/sse")
	require.Len(t, tools, 2)

	weather := tools["get_weather"]
	require.NotNil(t, weather)
	assert.Equal(t, "Weather for a city", weather.Description())

	params := weather.Parameters()
	assert.Equal(t, "object", params["type"])
	assert.Contains(t, params["properties"], "city")
	assert.Equal(t, []string{"city"}, params["required"])

	out, err := weather.Call(context.Background(), map[string]any{"city": "Paris"})
	require.NoError(t, err)
	assert.Equal(t, "sunny in Paris", out)

	client, err := d.Holder().Get(ts.URL + "/sse")
	require.NoError(t, err)
	assert.Equal(t, "weather", client.ServerInfo().Name)
}

func TestDiscoverAndCallOverStreamableHTTP(t *testing.T) {
	endpoint, _ := newStreamableEndpoint(t, newWeatherServer())

	d := NewDiscoverer(nil)
	t.Cleanup(d.Holder().Reset)

	tools := discover(t, d, endpoint)
	require.Contains(t, tools, "get_weather")

	out, err := tools["get_weather"].Call(context.Background(), map[string]any{"city": "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, "sunny in Oslo", out)
}

func TestDiscoverFollowsPagination(t *testing.T) {
	endpoint, _ := newStreamableEndpoint(t, newWeatherServer(server.WithPaginationLimit(1)))

	d := NewDiscoverer(nil)
	t.Cleanup(d.Holder().Reset)

	tools := discover(t, d, endpoint)
	assert.Len(t, tools, 2)
}

func TestRemoteErrorResult(t *testing.T) {
	endpoint, _ := newStreamableEndpoint(t, newWeatherServer())

	d := NewDiscoverer(nil)
	t.Cleanup(d.Holder().Reset)

	tools := discover(t, d, endpoint)

	_, err := tools["fail"].Call(context.Background(), nil)
	require.Error(t, err)

	var te *tool.ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, tool.CodeExecution, te.Code)
	assert.Equal(t, "boom", te.Message)
}

func TestDiscoverReconnectsAfterSessionExpiry(t *testing.T) {
	endpoint, gate := newStreamableEndpoint(t, newWeatherServer())

	d := NewDiscoverer(nil)
	t.Cleanup(d.Holder().Reset)

	_ = discover(t, d, endpoint)
	assert.Equal(t, 1, gate.sessionCount())

	gate.expire()

	tools := discover(t, d, endpoint)
	assert.Len(t, tools, 2)
	assert.Equal(t, 2, gate.sessionCount())
	assert.Equal(t, 1, d.Holder().Created())
}

func TestCallReconnectsAfterSessionExpiry(t *testing.T) {
	endpoint, gate := newStreamableEndpoint(t, newWeatherServer())

	d := NewDiscoverer(nil)
	t.Cleanup(d.Holder().Reset)

	tools := discover(t, d, endpoint)

	gate.expire()

	out, err := tools["get_weather"].Call(context.Background(), map[string]any{"city": "Rome"})
	require.NoError(t, err)
	assert.Equal(t, "sunny in Rome", out)
	assert.Equal(t, 2, gate.sessionCount())
}

func TestDiscoverUnreachable(t *testing.T) {
	d := NewDiscoverer(nil)
	t.Cleanup(d.Holder().Reset)

	_, err := d.Discover(context.Background(), "http://127.0.0.1:1/mcp")
	require.Error(t, err)

	client, err := d.Holder().Get("http://127.0.0.1:1/mcp")
	require.NoError(t, err)
	assert.False(t, client.Connected())
}

func TestClientHolder(t *testing.T) {
	h := NewClientHolder(nil)

	a, err := h.Get("http://localhost:8080/sse")
	require.NoError(t, err)

	b, err := h.Get("http://localhost:8080/sse")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.True(t, h.Held("http://localhost:8080/sse"))
	assert.Equal(t, 1, h.Created())

	_, err = h.Get("not a url")
	require.Error(t, err)
	assert.False(t, h.Held("not a url"))
	assert.Equal(t, 1, h.Created())

	h.Reset()
	assert.False(t, h.Held("http://localhost:8080/sse"))
	assert.Equal(t, 0, h.Created())
}

func TestTextContent(t *testing.T) {
	res := &mcpgo.CallToolResult{Content: []mcpgo.Content{
		mcpgo.NewTextContent("a"),
		&mcpgo.TextContent{Type: "text", Text: "b"},
		mcpgo.NewImageContent("aGk=", "image/png"),
	}}

	assert.Equal(t, "a\nb\n[non-text content: mcp.ImageContent]", textContent(res))
	assert.Equal(t, "", textContent(nil))
}
