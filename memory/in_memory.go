package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type storedDocument struct {
	doc    Document
	vector []float32
}

// InMemoryStore is a process-local Store.
//
// With an embedder, Search ranks by cosine similarity between the query and
// document vectors. Without one it falls back to case-insensitive substring
// matching with a constant score of 1.0. Protected by an RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	embedder Embedder
	docs     []storedDocument
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store. embedder may be nil.
func NewInMemoryStore(embedder Embedder) *InMemoryStore {
	return &InMemoryStore{embedder: embedder}
}

// Add embeds and appends a document with an incremental "doc_N" ID.
func (s *InMemoryStore) Add(ctx context.Context, content string, metadata map[string]any) (string, error) {
	var vec []float32
	if s.embedder != nil {
		v, err := embedOne(ctx, s.embedder, content)
		if err != nil {
			return "", fmt.Errorf("embed document: %w", err)
		}
		vec = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("doc_%d", len(s.docs))
	s.docs = append(s.docs, storedDocument{
		doc:    Document{ID: id, Content: content, Metadata: copyMetadata(metadata)},
		vector: vec,
	})

	return id, nil
}

// Search implements Store.
func (s *InMemoryStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	var qvec []float32
	if s.embedder != nil {
		v, err := embedOne(ctx, s.embedder, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		qvec = v
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	results := make([]SearchResult, 0, len(s.docs))

	for _, d := range s.docs {
		doc := Document{ID: d.doc.ID, Content: d.doc.Content, Metadata: copyMetadata(d.doc.Metadata)}
		if qvec != nil {
			results = append(results, SearchResult{Document: doc, Score: cosine(qvec, d.vector)})
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(d.doc.Content), needle) {
			results = append(results, SearchResult{Document: doc, Score: 1.0})
		}
	}

	return topK(results, k), nil
}

// Len returns the number of stored documents.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
