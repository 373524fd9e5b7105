package embedding

import (
	"fmt"

	"pagectx/config"
	"pagectx/internal/port"
)

// NewProvider creates the embedder named by ec.Provider.
func NewProvider(ec config.EmbeddingConfig) (port.Embedder, error) {
	var (
		embedder port.Embedder
		err      error
	)

	switch ec.Provider {
	case "openai":
		var e *OpenAIEmbedder
		e, err = NewOpenAIEmbedder(OpenAIConfig{
			Model:             ec.Model,
			BaseURL:           ec.BaseURL,
			APIKeyEnv:         ec.APIKeyEnv,
			Timeout:           ec.Timeout,
			RequestsPerSecond: ec.RequestsPerSecond,
		})
		embedder = e
	case "ollama":
		var e *OpenAIEmbedder
		e, err = NewOllamaEmbedder(ec.Model, ec.BaseURL)
		embedder = e
	case "hashing":
		var e *HashingEmbedder
		e, err = NewHashingEmbedder(ec.Model, ec.Dimension)
		embedder = e
	case "mock":
		embedder = NewMockEmbedder(ec.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ec.Provider)
	}
	if err != nil {
		return nil, err
	}
	return embedder, nil
}
