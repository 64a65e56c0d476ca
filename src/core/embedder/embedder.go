package embedder

import (
	"context"
	"fmt"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultOpenAIModel     = "text-embedding-ada-002"
	DefaultOpenAIDimension = 1536
	DefaultOllamaModel     = "nomic-embed-text"
	DefaultOllamaDimension = 768
)

// Embedder turns text into vectors of a fixed dimension.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension is the length of every vector the embedder produces.
	Dimension() int
}

// HealthChecker is implemented by embedders that can ping their backend.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Provider  string
	Model     string
	Dimension int
	APIKey    string
	BaseURL   string
}

// New builds the configured embedder.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		e, err := NewOpenAIEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai embedder: %w", err)
		}
		return e, nil
	case ProviderOllama:
		e, err := NewOllamaEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported embedder provider %q", cfg.Provider)
	}
}
