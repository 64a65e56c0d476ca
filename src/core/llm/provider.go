package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ProviderConfig selects and configures the chat backend.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewOpenAI creates an OpenAI chat model. An empty api key falls back to
// OPENAI_API_KEY inside langchaingo.
func NewOpenAI(cfg ProviderConfig) (*openai.LLM, error) {
	opts := []openai.Option{}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	} else {
		opts = append(opts, openai.WithModel(DefaultModel))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

// NewOllama creates a chat model served by an Ollama instance.
func NewOllama(cfg ProviderConfig) (*ollama.LLM, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama provider requires a model name")
	}
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	return ollama.New(opts...)
}

// NewChatModel builds the configured provider.
func NewChatModel(cfg ProviderConfig) (ChatModel, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		m, err := NewOpenAI(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return m, nil
	case ProviderOllama:
		m, err := NewOllama(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
