package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/reactmesh/tool"
)

func newServer(t *testing.T, hits *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 2, body["max_results"])

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"capital of France","results":[
			{"title":"Paris","url":"https://en.wikipedia.org/wiki/Paris","content":"Paris is the capital of France.","score":0.98},
			{"title":"France","url":"https://en.wikipedia.org/wiki/France","content":"France ...","score":0.9},
			{"title":"Extra","url":"https://example.com","content":"over the cap","score":0.1}
		]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTool(srv *httptest.Server) *Tool {
	return New(func(o *Options) {
		o.APIKey = "tvly-test"
		o.BaseURL = srv.URL
		o.MaxResults = 2
		o.RequestsPerMinute = 0
	})
}

func TestSearch(t *testing.T) {
	var hits atomic.Int32
	ws := newTool(newServer(t, &hits, http.StatusOK))

	out, err := ws.Call(context.Background(), map[string]any{"query": "capital of France"})
	require.NoError(t, err)

	resp := out.(Response)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Paris", resp.Results[0].Title)

	// cached
	_, err = ws.Call(context.Background(), map[string]any{"query": "capital of France"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestSearchValidation(t *testing.T) {
	var hits atomic.Int32
	ws := newTool(newServer(t, &hits, http.StatusOK))

	_, err := ws.Call(context.Background(), map[string]any{})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
	assert.Zero(t, hits.Load())
}

func TestSearchAPIError(t *testing.T) {
	var hits atomic.Int32
	ws := newTool(newServer(t, &hits, http.StatusUnauthorized))

	_, err := ws.Call(context.Background(), map[string]any{"query": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSearchMissingKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	ws := New(func(o *Options) { o.BaseURL = "http://127.0.0.1:0" })
	_, err := ws.Call(context.Background(), map[string]any{"query": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAVILY_API_KEY")
}

func TestDefaults(t *testing.T) {
	ws := New(func(o *Options) { o.MaxResults = -1 })
	assert.Equal(t, 5, ws.MaxResults())
	assert.Equal(t, Name, ws.Name())
	assert.NotEmpty(t, ws.Description())
}
