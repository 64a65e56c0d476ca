package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/TayoO/embedchain/src/infrastructure/log"
)

const (
	DefaultURL = "http://localhost:11434"
)

// Client is a thin wrapper over the Ollama API client
type Client struct {
	api *api.Client
}

// NewClient creates a new Ollama API client
func NewClient(baseURL string, c *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = http.DefaultClient
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}

	return &Client{
		api: api.NewClient(u, c),
	}, nil
}

// GetEmbeddings generates one embedding vector per input text
func (c *Client) GetEmbeddings(ctx context.Context, model string, texts []string) ([][]float32, error) {
	resp, err := c.api.Embed(ctx, &api.EmbedRequest{
		Model: model,
		Input: texts,
	})
	if err != nil {
		log.Error(err, "failed to make request to ollama", "model", model)
		return nil, fmt.Errorf("error making request: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

// Ping checks that the server is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.api.Heartbeat(ctx)
}
