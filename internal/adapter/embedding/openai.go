package embedding

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"pagectx/internal/domain"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// OpenAIConfig configures an OpenAI-compatible embedding client.
type OpenAIConfig struct {
	// Model is the embedding model, e.g. "text-embedding-3-small".
	Model string

	// BaseURL of the API. Defaults to the OpenAI endpoint.
	BaseURL string

	// APIKeyEnv names the environment variable holding the API key.
	// Empty means the service needs no key.
	APIKeyEnv string

	// Timeout for each HTTP request (default 60s).
	Timeout time.Duration

	// RequestsPerSecond limits embedding calls; 0 disables limiting.
	RequestsPerSecond float64
}

// OpenAIEmbedder embeds text through any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension atomic.Int64
	limiter   *rate.Limiter
}

// NewOpenAIEmbedder creates an embedder for the OpenAI API or a compatible service.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", domain.ErrInitialization)
	}

	apiKey := "unused"
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: API key not found in environment variable: %s", domain.ErrInitialization, cfg.APIKeyEnv)
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	e := &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		limiter: limiter,
	}
	e.dimension.Store(int64(knownDimension(cfg.Model)))
	return e, nil
}

// NewOllamaEmbedder creates an embedder for a local Ollama server.
func NewOllamaEmbedder(model, baseURL string) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return NewOpenAIEmbedder(OpenAIConfig{
		Model:   model,
		BaseURL: baseURL,
		Timeout: 120 * time.Second,
	})
}

func knownDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	default:
		return 0
	}
}

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (domain.Vector, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: cannot embed empty text", domain.ErrEmbedding)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrEmbedding, err)
		}
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrEmbedding, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding data returned", domain.ErrEmbedding)
	}

	raw := resp.Data[0].Embedding
	vec := make(domain.Vector, len(raw))
	for i := range raw {
		vec[i] = float32(raw[i])
	}
	e.dimension.CompareAndSwap(0, int64(len(vec)))

	return vec, nil
}

// Similarity returns the cosine similarity of a and b.
func (e *OpenAIEmbedder) Similarity(a, b domain.Vector) (float64, error) {
	return CosineSimilarity(a, b)
}

// Dimension returns the vector dimension, 0 until known.
func (e *OpenAIEmbedder) Dimension() int {
	return int(e.dimension.Load())
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
