package llm

import (
	"fmt"
	"strings"
	"text/template"
)

// TemplateData is the data available to prompt templates.
type TemplateData struct {
	Context string
	Query   string
	History string
}

// GeneratePrompt renders the configured template with the retrieved contexts.
// The history template is used only when history is non-empty.
func GeneratePrompt(cfg Config, input string, contexts []string, history []string) (string, error) {
	cfg = cfg.WithDefaults()

	text := cfg.Template
	if len(history) > 0 {
		text = cfg.HistoryTemplate
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	data := TemplateData{
		Context: strings.Join(contexts, " | "),
		Query:   input,
		History: strings.Join(history, "\n"),
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return sb.String(), nil
}
