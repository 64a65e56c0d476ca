package embedder

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbedder wraps langchaingo's embedder over the OpenAI client.
type OpenAIEmbedder struct {
	inner     *embeddings.EmbedderImpl
	dimension int
}

func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultOpenAIDimension
	}

	opts := []openai.Option{openai.WithEmbeddingModel(model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	inner, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, err
	}

	return &OpenAIEmbedder{inner: inner, dimension: dimension}, nil
}

func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.EmbedDocuments(ctx, texts)
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.inner.EmbedQuery(ctx, text)
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}
