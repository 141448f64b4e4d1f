package memory

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"strings"
	"unicode"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/hupe1980/reactmesh/config"
)

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// OpenAIEmbedderOptions configure NewOpenAIEmbedder.
type OpenAIEmbedderOptions struct {
	APIKey  string
	BaseURL string
}

// NewOpenAIEmbedder creates an embedder for the given model name.
func NewOpenAIEmbedder(modelName string, optFns ...func(o *OpenAIEmbedderOptions)) *OpenAIEmbedder {
	opts := OpenAIEmbedderOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return &OpenAIEmbedder{client: &client, model: modelName}
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if int(d.Index) >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}

	return out, nil
}

// GeminiEmbedder calls the Gemini embedContent API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates an embedder backed by a new genai client.
func NewGeminiEmbedder(ctx context.Context, modelName, apiKey string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: modelName}, nil
}

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		out = append(out, emb.Values)
	}

	return out, nil
}

// HashEmbedder is a deterministic bag-of-words embedder. Tokens are
// lower-cased, hashed with FNV-1a into Dim buckets and the result is L2
// normalized. It needs no network and backs the "hash" provider.
type HashEmbedder struct {
	Dim int
}

var _ Embedder = HashEmbedder{}

// Embed implements Embedder.
func (h HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	dim := h.Dim
	if dim <= 0 {
		dim = 256
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dim)
		for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(tok))
			vec[f.Sum32()%uint32(dim)]++
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			n := float32(math.Sqrt(norm))
			for j := range vec {
				vec[j] /= n
			}
		}
		out[i] = vec
	}

	return out, nil
}

// EmbedderOptions configure NewEmbedder.
type EmbedderOptions struct {
	// Getenv resolves API keys; defaults to os.Getenv.
	Getenv func(string) string
}

// NewEmbedder resolves a "<provider>:<model>" identifier. Supported
// providers are openai, gemini and hash (model segment is ignored).
func NewEmbedder(ctx context.Context, id string, optFns ...func(o *EmbedderOptions)) (Embedder, error) {
	opts := EmbedderOptions{Getenv: os.Getenv}
	for _, fn := range optFns {
		fn(&opts)
	}

	mid, err := config.ParseModelID(id)
	if err != nil {
		var ce *config.ConfigError
		if errors.As(err, &ce) {
			return nil, config.NewConfigError("embedding_model", id, ce.Reason)
		}
		return nil, err
	}

	switch mid.Provider {
	case "openai":
		return NewOpenAIEmbedder(mid.Model, func(o *OpenAIEmbedderOptions) {
			o.APIKey = opts.Getenv("OPENAI_API_KEY")
		}), nil
	case "gemini":
		key := opts.Getenv("GOOGLE_API_KEY")
		if key == "" {
			key = opts.Getenv("GEMINI_API_KEY")
		}
		return NewGeminiEmbedder(ctx, mid.Model, key)
	case "hash":
		return HashEmbedder{}, nil
	default:
		return nil, config.NewConfigError("embedding_model", id, fmt.Sprintf("unsupported embedding provider %q", mid.Provider))
	}
}
