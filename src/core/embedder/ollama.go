package embedder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/TayoO/embedchain/src/infrastructure/integrations/ollama"
)

// OllamaEmbedder embeds text with a model served by Ollama.
type OllamaEmbedder struct {
	client    *ollama.Client
	model     string
	dimension int
}

func NewOllamaEmbedder(cfg Config) (*OllamaEmbedder, error) {
	client, err := ollama.NewClient(cfg.BaseURL, &http.Client{
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultOllamaDimension
	}

	return &OllamaEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
	}, nil
}

func (e *OllamaEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.client.GetEmbeddings(ctx, e.model, texts)
}

func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.client.GetEmbeddings(ctx, e.model, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return vectors[0], nil
}

func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

func (e *OllamaEmbedder) Ping(ctx context.Context) error {
	return e.client.Ping(ctx)
}
