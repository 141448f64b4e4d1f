// Package docstore exposes a memory.Store to the model as the add_document
// and search_documents capabilities.
package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/reactmesh/memory"
	"github.com/hupe1980/reactmesh/tool"
)

const (
	// AddName is the name of the insert capability.
	AddName = "add_document"
	// SearchName is the name of the query capability.
	SearchName = "search_documents"
	// DefaultK is the number of documents returned when k is omitted.
	DefaultK = 4

	noDocuments = "No documents found."
)

// New returns both capabilities over store.
func New(store memory.Store) []tool.Tool {
	return []tool.Tool{NewAddTool(store), NewSearchTool(store)}
}

// NewAddTool stores a document for later retrieval.
func NewAddTool(store memory.Store) *tool.FunctionTool {
	return tool.NewFunctionTool(
		AddName,
		"Add a document to the document store so it can be found later with search_documents. "+
			"Input is the document text and optional metadata.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content":  map[string]any{"type": "string", "description": "text of the document"},
				"metadata": map[string]any{"type": "object", "description": "optional key/value metadata"},
			},
			"required": []string{"content"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			content := strings.TrimSpace(args["content"].(string))
			if content == "" {
				return nil, tool.NewToolError(AddName, "content must not be empty", tool.CodeValidation)
			}

			md, _ := args["metadata"].(map[string]any)

			id, err := store.Add(ctx, content, md)
			if err != nil {
				return nil, err
			}

			return fmt.Sprintf("Document %s added.", id), nil
		},
	)
}

// NewSearchTool queries the store for similar documents.
func NewSearchTool(store memory.Store) *tool.FunctionTool {
	return tool.NewFunctionTool(
		SearchName,
		"Search the document store for documents relevant to a query. Returns the most similar documents.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "search query"},
				"k":     map[string]any{"type": "integer", "minimum": 1, "description": "number of documents to return (default 4)"},
			},
			"required": []string{"query"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			k := DefaultK
			if v, ok := args["k"].(float64); ok && v >= 1 {
				k = int(v)
			} else if v, ok := args["k"].(int); ok && v >= 1 {
				k = v
			}

			results, err := store.Search(ctx, args["query"].(string), k)
			if err != nil {
				return nil, err
			}

			if len(results) == 0 {
				return noDocuments, nil
			}

			var b strings.Builder
			for i, r := range results {
				if i > 0 {
					b.WriteString("\n\n")
				}
				fmt.Fprintf(&b, "[%d] (score %.3f) %s", i+1, r.Score, r.Content)
			}

			return b.String(), nil
		},
	)
}
