// Package provider resolves "<provider>:<model>" backend identifiers to
// concrete model.Model implementations.
package provider

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/reactmesh/config"
	"github.com/hupe1980/reactmesh/model"
	"github.com/hupe1980/reactmesh/model/anthropic"
	"github.com/hupe1980/reactmesh/model/gemini"
	"github.com/hupe1980/reactmesh/model/openai"
)

const (
	// GroqBaseURL is the OpenAI-compatible Groq endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"
	// DefaultOllamaBaseURL is used when OLLAMA_BASE_URL is unset.
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
)

// Constructor builds a model for the model segment of an identifier.
type Constructor func(ctx context.Context, modelName string) (model.Model, error)

// Loader resolves a backend identifier into a model. The completion stage
// invokes it once per completion call.
type Loader interface {
	Load(ctx context.Context, id string) (model.Model, error)
}

// Checker is implemented by loaders that can tell up front whether a
// provider prefix is known.
type Checker interface {
	Supports(provider string) bool
}

// Check validates id without constructing a backend. Unknown providers are
// only detected when l implements Checker.
func Check(l Loader, id string) error {
	mid, err := config.ParseModelID(id)
	if err != nil {
		return err
	}

	if c, ok := l.(Checker); ok && !c.Supports(mid.Provider) {
		return unsupported(l, id, mid.Provider)
	}

	return nil
}

func unsupported(l Loader, id, provider string) error {
	reason := fmt.Sprintf("unsupported provider %q", provider)
	if r, ok := l.(interface{ Providers() []string }); ok {
		reason += ", supported: " + strings.Join(r.Providers(), ", ")
	}
	return config.NewConfigError("model", id, reason)
}

// Registry maps provider prefixes to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

var (
	_ Loader  = (*Registry)(nil)
	_ Checker = (*Registry)(nil)
)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

// Register binds a provider prefix to a constructor, replacing any previous one.
func (r *Registry) Register(provider string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[provider] = c
}

// Supports reports whether a provider prefix is known.
func (r *Registry) Supports(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[provider]
	return ok
}

// Providers returns the registered prefixes in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.constructors))
	for p := range r.constructors {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Load parses id and invokes the matching constructor with the model segment
// unmodified. Malformed identifiers and unknown providers are configuration
// errors; constructor failures are backend errors.
func (r *Registry) Load(ctx context.Context, id string) (model.Model, error) {
	mid, err := config.ParseModelID(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	c, ok := r.constructors[mid.Provider]
	r.mu.RUnlock()

	if !ok {
		return nil, unsupported(r, id, mid.Provider)
	}

	m, err := c(ctx, mid.Model)
	if err != nil {
		return nil, &model.BackendError{Provider: mid.Provider, Model: mid.Model, Err: err}
	}

	return m, nil
}

// Options configure the default registry.
type Options struct {
	// Getenv resolves API keys and endpoints; defaults to os.Getenv.
	Getenv func(string) string
}

// Default returns a registry with the built-in providers: openai, groq,
// ollama, anthropic and gemini.
func Default(optFns ...func(o *Options)) *Registry {
	opts := Options{Getenv: os.Getenv}
	for _, fn := range optFns {
		fn(&opts)
	}
	env := opts.Getenv

	r := NewRegistry()

	r.Register("openai", func(_ context.Context, name string) (model.Model, error) {
		return openai.NewModel(func(o *openai.Options) {
			o.Model = name
			o.APIKey = env("OPENAI_API_KEY")
		}), nil
	})

	r.Register("groq", func(_ context.Context, name string) (model.Model, error) {
		key := env("GROQ_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is not set")
		}
		return openai.NewModel(func(o *openai.Options) {
			o.Model = name
			o.APIKey = key
			o.BaseURL = GroqBaseURL
			o.Provider = "groq"
		}), nil
	})

	r.Register("ollama", func(_ context.Context, name string) (model.Model, error) {
		base := env("OLLAMA_BASE_URL")
		if base == "" {
			base = DefaultOllamaBaseURL
		}
		return openai.NewModel(func(o *openai.Options) {
			o.Model = name
			o.APIKey = "ollama"
			o.BaseURL = base
			o.Provider = "ollama"
		}), nil
	})

	r.Register("anthropic", func(_ context.Context, name string) (model.Model, error) {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = name
			o.APIKey = env("ANTHROPIC_API_KEY")
		}), nil
	})

	r.Register("gemini", func(ctx context.Context, name string) (model.Model, error) {
		key := env("GOOGLE_API_KEY")
		if key == "" {
			key = env("GEMINI_API_KEY")
		}
		return gemini.NewModel(ctx, func(o *gemini.Options) {
			o.Model = name
			o.APIKey = key
		})
	})

	return r
}

// SupportedModels lists example identifiers for the built-in providers.
func SupportedModels() []string {
	return []string{
		"openai:gpt-4o-mini",
		"openai:gpt-4o",
		"groq:llama3-70b-8192",
		"groq:mixtral-8x7b-32768",
		"ollama:llama3",
		"anthropic:claude-3-5-sonnet-20241022",
		"anthropic:claude-3-haiku-20240307",
		"gemini:gemini-2.0-flash",
		"gemini:gemini-1.5-pro-latest",
	}
}
