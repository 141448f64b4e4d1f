// Package arxiv provides a scholarly-article lookup capability backed by the
// arXiv export API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/reactmesh/tool"
)

const (
	// Name is the tool name exposed to the model.
	Name = "arxiv"
	// DefaultBaseURL is the public arXiv export endpoint.
	DefaultBaseURL = "https://export.arxiv.org"

	noResult    = "No good Arxiv Result was found"
	description = "A wrapper around Arxiv.org. Useful for when you need to answer questions about Physics, " +
		"Mathematics, Computer Science, Quantitative Biology, Quantitative Finance, Statistics, " +
		"Electrical Engineering, and Economics from scientific articles on arxiv.org. Input should be a search query."
)

// Options configure the lookup.
type Options struct {
	BaseURL    string
	TopK       int
	MaxChars   int
	HTTPClient *http.Client
}

// Tool searches arXiv.
type Tool struct {
	opts   Options
	client *http.Client
}

var _ tool.Tool = (*Tool)(nil)

// New creates the tool.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{BaseURL: DefaultBaseURL, TopK: 3, MaxChars: 4000}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
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
			"query": map[string]any{"type": "string", "description": "search query to look up"},
		},
		"required": []string{"query"},
	}
}

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []author `xml:"author"`
}

type author struct {
	Name string `xml:"name"`
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
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(t.opts.TopK))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(t.opts.BaseURL, "/")+"/api/query?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create arxiv request: %w", err)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d", res.StatusCode)
	}

	var f feed
	if err := xml.NewDecoder(res.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	docs := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		if len(docs) == t.opts.TopK {
			break
		}
		docs = append(docs, format(e))
	}

	if len(docs) == 0 {
		return noResult, nil
	}

	out := strings.Join(docs, "\n\n")
	if t.opts.MaxChars > 0 && len(out) > t.opts.MaxChars {
		out = out[:t.opts.MaxChars]
	}

	return out, nil
}

func format(e entry) string {
	names := make([]string, len(e.Authors))
	for i, a := range e.Authors {
		names[i] = a.Name
	}

	published := strings.TrimSpace(e.Published)
	if ts, err := time.Parse(time.RFC3339, published); err == nil {
		published = ts.Format(time.DateOnly)
	}

	return fmt.Sprintf("Published: %s\nTitle: %s\nAuthors: %s\nSummary: %s",
		published, collapse(e.Title), strings.Join(names, ", "), collapse(e.Summary))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
