// Package websearch provides the web search capability backed by the Tavily
// search API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/tool"
)

const (
	// Name is the tool name exposed to the model.
	Name = "web_search"
	// DefaultBaseURL is the Tavily API endpoint.
	DefaultBaseURL = "https://api.tavily.com"

	description = "A search engine optimized for comprehensive, accurate, and trusted results. " +
		"Useful for when you need to answer questions about current events. Input should be a search query."
)

// Options configure the search tool.
type Options struct {
	// APIKey defaults to TAVILY_API_KEY.
	APIKey string
	// BaseURL overrides the Tavily endpoint.
	BaseURL string
	// MaxResults caps the number of results; values <= 0 select config.DefaultMaxSearchResults.
	MaxResults int
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// CacheSize bounds the response cache; 0 disables caching.
	CacheSize int
	// CacheTTL is the lifetime of cached responses.
	CacheTTL time.Duration
	// RequestsPerMinute throttles outgoing calls; 0 disables throttling.
	RequestsPerMinute int
}

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Response is the structured tool output.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
}

// Tool searches the web through Tavily.
type Tool struct {
	opts    Options
	client  *http.Client
	cache   *expirable.LRU[string, Response]
	limiter *rate.Limiter
}

var _ tool.Tool = (*Tool)(nil)

// New creates the search tool.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{
		BaseURL:           DefaultBaseURL,
		MaxResults:        config.DefaultMaxSearchResults,
		CacheSize:         256,
		CacheTTL:          5 * time.Minute,
		RequestsPerMinute: 60,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("TAVILY_API_KEY")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = config.DefaultMaxSearchResults
	}

	t := &Tool{opts: opts, client: opts.HTTPClient}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.CacheSize > 0 {
		t.cache = expirable.NewLRU[string, Response](opts.CacheSize, nil, opts.CacheTTL)
	}
	if opts.RequestsPerMinute > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}

	return t
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return Name }

// Description implements tool.Tool.
func (t *Tool) Description() string { return description }

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Search query to look up"},
			"topic": map[string]any{
				"type":        "string",
				"enum":        []string{"general", "news", "finance"},
				"description": "Search category, defaults to general",
			},
		},
		"required": []string{"query"},
	}
}

// MaxResults reports the configured result cap.
func (t *Tool) MaxResults() int { return t.opts.MaxResults }

type searchRequest struct {
	Query         string `json:"query"`
	Topic         string `json:"topic,omitempty"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

// Call implements tool.Tool.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := tool.ValidateArguments(t.Parameters(), args); err != nil {
		return nil, &tool.ToolError{Tool: Name, Message: err.Error(), Code: tool.CodeValidation, Err: err}
	}

	query := strings.TrimSpace(args["query"].(string))
	if query == "" {
		return nil, tool.NewToolError(Name, "query must not be empty", tool.CodeValidation)
	}

	topic, _ := args["topic"].(string)

	key := fmt.Sprintf("%s|%s|%d", query, topic, t.opts.MaxResults)
	if t.cache != nil {
		if resp, ok := t.cache.Get(key); ok {
			return resp, nil
		}
	}

	if t.opts.APIKey == "" {
		return nil, tool.NewToolError(Name, "TAVILY_API_KEY is not set", tool.CodeExecution)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := t.search(ctx, searchRequest{
		Query:       query,
		Topic:       topic,
		MaxResults:  t.opts.MaxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		t.cache.Add(key, resp)
	}

	return resp, nil
}

func (t *Tool) search(ctx context.Context, sr searchRequest) (Response, error) {
	body, err := json.Marshal(sr)
	if err != nil {
		return Response{}, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(t.opts.BaseURL, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.opts.APIKey)

	res, err := t.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return Response{}, fmt.Errorf("search API returned status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode search response: %w", err)
	}

	if len(out.Results) > t.opts.MaxResults {
		out.Results = out.Results[:t.opts.MaxResults]
	}
	if out.Results == nil {
		out.Results = []Result{}
	}

	return out, nil
}
