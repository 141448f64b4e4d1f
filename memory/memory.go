package memory

import (
	"context"
	"errors"
	"math"
	"sort"
)

// ErrNoEmbedding is returned when an embedder yields fewer vectors than inputs.
var ErrNoEmbedding = errors.New("embedder returned no vector")

// Document is a stored piece of text with free-form metadata.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResult is a document with its similarity to the query.
type SearchResult struct {
	Document
	Score float64 `json:"score"`
}

// Store persists documents and answers similarity queries.
type Store interface {
	// Add stores content and returns the generated document ID.
	Add(ctx context.Context, content string, metadata map[string]any) (string, error)
	// Search returns up to k documents ordered by descending score.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)
}

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, ErrNoEmbedding
	}
	return vecs[0], nil
}

// cosine returns the cosine similarity of a and b, or 0 when either is empty
// or the lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// topK sorts results by score (stable on insertion order) and truncates.
func topK(results []SearchResult, k int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func copyMetadata(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
