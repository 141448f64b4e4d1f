// Package wikipedia provides an encyclopedia lookup capability using the
// MediaWiki search and extracts APIs.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/reactmesh/tool"
)

const (
	// Name is the tool name exposed to the model.
	Name = "wikipedia"
	// DefaultBaseURL is the English Wikipedia endpoint.
	DefaultBaseURL = "https://en.wikipedia.org"

	noResult    = "No good Wikipedia Search Result was found"
	description = "A wrapper around Wikipedia. Useful for when you need to answer general questions about " +
		"people, places, companies, facts, historical events, or other subjects. Input should be a search query."
)

// Options configure the lookup.
type Options struct {
	BaseURL    string
	TopK       int
	MaxChars   int
	HTTPClient *http.Client
	UserAgent  string
}

// Tool looks up Wikipedia articles.
type Tool struct {
	opts   Options
	client *http.Client
}

var _ tool.Tool = (*Tool)(nil)

// New creates the tool.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{
		BaseURL:   DefaultBaseURL,
		TopK:      3,
		MaxChars:  4000,
		UserAgent: "reactmesh/1.0 (https://github.com/hupe1980/reactmesh)",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	return &Tool{opts: opts, client: client}
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
			"query": map[string]any{"type": "string", "description": "query to look up on wikipedia"},
		},
		"required": []string{"query"},
	}
}

type page struct {
	Title   string `json:"title"`
	Index   int    `json:"index"`
	Extract string `json:"extract"`
}

type queryResponse struct {
	Query struct {
		Pages map[string]page `json:"pages"`
	} `json:"query"`
}

// Call implements tool.Tool.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := tool.ValidateArguments(t.Parameters(), args); err != nil {
		return nil, &tool.ToolError{Tool: Name, Message: err.Error(), Code: tool.CodeValidation, Err: err}
	}

	query := strings.TrimSpace(args["query"].(string))
	if query == "" {
		return noResult, nil
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", strconv.Itoa(t.opts.TopK))
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("exlimit", strconv.Itoa(t.opts.TopK))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(t.opts.BaseURL, "/")+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", t.opts.UserAgent)

	res, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned status %d", res.StatusCode)
	}

	var qr queryResponse
	if err := json.NewDecoder(res.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode wikipedia response: %w", err)
	}

	pages := make([]page, 0, len(qr.Query.Pages))
	for _, p := range qr.Query.Pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	summaries := make([]string, 0, len(pages))
	for _, p := range pages {
		if len(summaries) == t.opts.TopK {
			break
		}
		if p.Extract == "" {
			continue
		}
		summaries = append(summaries, fmt.Sprintf("Page: %s\nSummary: %s", p.Title, p.Extract))
	}

	if len(summaries) == 0 {
		return noResult, nil
	}

	out := strings.Join(summaries, "\n\n")
	if t.opts.MaxChars > 0 && len(out) > t.opts.MaxChars {
		out = out[:t.opts.MaxChars]
	}

	return out, nil
}
