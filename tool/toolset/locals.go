package toolset

import (
	"context"
	"sync"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/memory"
	"github.com/hupe1980/reactmesh/tool"
	"github.com/hupe1980/reactmesh/tool/arxiv"
	"github.com/hupe1980/reactmesh/tool/coderun"
	"github.com/hupe1980/reactmesh/tool/docstore"
	"github.com/hupe1980/reactmesh/tool/websearch"
	"github.com/hupe1980/reactmesh/tool/wikipedia"
)

// LocalsOptions configure the built-in local capabilities.
type LocalsOptions struct {
	// Store backs the document capabilities. When nil it is opened from
	// DocStorePath and EmbeddingModel on first use.
	Store memory.Store
	// Search customizes the web search tool (API key, endpoint, client).
	Search []func(o *websearch.Options)
	// Wikipedia and Arxiv customize the lookup tools.
	Wikipedia []func(o *wikipedia.Options)
	Arxiv     []func(o *arxiv.Options)
	// Embedder overrides embedder resolution for a lazily opened store.
	Embedder memory.Embedder
}

// Locals builds the local capability set. Tools with process-wide state
// (search cache and rate limiter, document store) are created once and
// shared by every registry it assembles.
type Locals struct {
	opts LocalsOptions

	mu         sync.Mutex
	search     *websearch.Tool
	maxResults int
	code       *coderun.Tool
	store      memory.Store
}

// NewLocals creates the local capability factory.
func NewLocals(optFns ...func(o *LocalsOptions)) *Locals {
	opts := LocalsOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Locals{opts: opts, store: opts.Store}
}

// Tools returns web search and code execution, plus encyclopedia lookup,
// scholarly lookup and the document store pair when cfg.ExtendedTools is set.
func (l *Locals) Tools(ctx context.Context, cfg config.Config) ([]tool.Tool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.search == nil || l.maxResults != cfg.MaxSearchResults {
		fns := append([]func(o *websearch.Options){}, l.opts.Search...)
		fns = append(fns, func(o *websearch.Options) {
			if cfg.MaxSearchResults > 0 {
				o.MaxResults = cfg.MaxSearchResults
			}
		})
		l.search = websearch.New(fns...)
		l.maxResults = cfg.MaxSearchResults
	}

	if l.code == nil {
		l.code = coderun.New(nil)
	}

	tools := []tool.Tool{l.search, l.code}

	if !cfg.ExtendedTools {
		return tools, nil
	}

	store, err := l.documentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tools = append(tools, wikipedia.New(l.opts.Wikipedia...), arxiv.New(l.opts.Arxiv...))
	tools = append(tools, docstore.New(store)...)

	return tools, nil
}

func (l *Locals) documentStore(ctx context.Context, cfg config.Config) (memory.Store, error) {
	if l.store != nil {
		return l.store, nil
	}

	embedder := l.opts.Embedder
	if embedder == nil {
		e, err := memory.NewEmbedder(ctx, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		embedder = e
	}

	if cfg.DocStorePath == "" {
		l.store = memory.NewInMemoryStore(embedder)
		return l.store, nil
	}

	s, err := memory.NewSQLiteStore(cfg.DocStorePath, embedder)
	if err != nil {
		return nil, err
	}
	l.store = s

	return l.store, nil
}
