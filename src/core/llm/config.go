package llm

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultModel           = "gpt-3.5-turbo"
	DefaultMaxTokens       = 1000
	DefaultNumberDocuments = 1
)

// DefaultTemplate is rendered with the retrieved contexts and the user query.
const DefaultTemplate = `Use the following pieces of context to answer the query at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.

{{.Context}}

Query: {{.Query}}

Helpful Answer:`

// DefaultHistoryTemplate is used by chat sessions that already have history.
const DefaultHistoryTemplate = `Use the following pieces of context to answer the query at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
I will provide you with our conversation history.

{{.Context}}

History: {{.History}}

Query: {{.Query}}

Helpful Answer:`

var ErrInvalidTemplate = errors.New("invalid prompt template")

// Config holds the per-call settings of the LLM adapter. A Config is built
// once and treated as read-only afterwards.
type Config struct {
	Model        string   `json:"model,omitempty"`
	Temperature  float64  `json:"temperature"`
	MaxTokens    int      `json:"maxTokens,omitempty"`
	TopP         *float64 `json:"topP,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Stream       bool     `json:"stream"`

	NumberDocuments int    `json:"numberDocuments,omitempty"`
	Template        string `json:"template,omitempty"`
	HistoryTemplate string `json:"historyTemplate,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Temperature:     0,
		MaxTokens:       DefaultMaxTokens,
		NumberDocuments: DefaultNumberDocuments,
		Template:        DefaultTemplate,
		HistoryTemplate: DefaultHistoryTemplate,
	}
}

// WithDefaults fills zero-valued prompt fields from DefaultConfig. Model is
// left alone, BuildCallParams owns that default.
func (c Config) WithDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.NumberDocuments <= 0 {
		c.NumberDocuments = DefaultNumberDocuments
	}
	if c.Template == "" {
		c.Template = DefaultTemplate
	}
	if c.HistoryTemplate == "" {
		c.HistoryTemplate = DefaultHistoryTemplate
	}
	return c
}

func (c Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}
	if c.TopP != nil && (*c.TopP < 0 || *c.TopP > 1) {
		return fmt.Errorf("top_p must be within [0, 1], got %v", *c.TopP)
	}
	if c.Template != "" && !hasFields(c.Template, ".Context", ".Query") {
		return fmt.Errorf("%w: template must reference {{.Context}} and {{.Query}}", ErrInvalidTemplate)
	}
	if c.HistoryTemplate != "" && !hasFields(c.HistoryTemplate, ".Context", ".Query", ".History") {
		return fmt.Errorf("%w: history template must reference {{.Context}}, {{.Query}} and {{.History}}", ErrInvalidTemplate)
	}
	return nil
}

func hasFields(tmpl string, fields ...string) bool {
	for _, f := range fields {
		if !strings.Contains(tmpl, f) {
			return false
		}
	}
	return true
}

// Float64 returns a pointer to v, for optional fields such as TopP.
func Float64(v float64) *float64 {
	return &v
}
