package llm

import (
	"github.com/tmc/langchaingo/llms"
)

// BuildMessages assembles the chat messages for a prompt. The system prompt,
// when set, always comes first.
func BuildMessages(prompt string, cfg Config) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, 2)
	if cfg.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, cfg.SystemPrompt))
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))
}

// CallParams are the sampling parameters sent with a completion request.
type CallParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        *float64
}

func BuildCallParams(cfg Config) CallParams {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return CallParams{
		Model:       model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		TopP:        cfg.TopP,
	}
}

// Options converts the parameters into langchaingo call options. top_p is
// only sent when it was set.
func (p CallParams) Options() []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithModel(p.Model),
		llms.WithTemperature(p.Temperature),
		llms.WithMaxTokens(p.MaxTokens),
	}
	if p.TopP != nil {
		opts = append(opts, llms.WithTopP(*p.TopP))
	}
	return opts
}
