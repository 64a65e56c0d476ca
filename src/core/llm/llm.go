package llm

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/tmc/langchaingo/llms"
)

var ErrEmptyResponse = errors.New("chat model returned no choices")

// ChatModel is the part of a langchaingo model the adapter needs.
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Answer is either Immediate or Streamed.
type Answer interface {
	answer()
}

// Immediate is the content of a blocking completion.
type Immediate struct {
	Content string
}

// Streamed is returned when the chunks were already written to the stream
// writer. Response is the raw backend response.
type Streamed struct {
	Response *llms.ContentResponse
}

func (Immediate) answer() {}
func (Streamed) answer()  {}

// Text returns the generated text of either variant.
func Text(a Answer) string {
	switch v := a.(type) {
	case Immediate:
		return v.Content
	case Streamed:
		if v.Response == nil || len(v.Response.Choices) == 0 {
			return ""
		}
		return v.Response.Choices[0].Content
	default:
		return ""
	}
}

// Adapter forwards prompts to a chat model.
type Adapter struct {
	model ChatModel
	out   io.Writer
}

func NewAdapter(model ChatModel) *Adapter {
	return &Adapter{
		model: model,
		out:   os.Stdout,
	}
}

// WithStreamWriter returns a copy of the adapter that writes streamed chunks
// to w.
func (a *Adapter) WithStreamWriter(w io.Writer) *Adapter {
	cp := *a
	cp.out = w
	return &cp
}

// Answer sends prompt to the model. Errors from the model are returned as is.
func (a *Adapter) Answer(ctx context.Context, prompt string, cfg Config) (Answer, error) {
	messages := BuildMessages(prompt, cfg)
	opts := BuildCallParams(cfg).Options()

	if cfg.Stream {
		out := a.out
		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			_, err := out.Write(chunk)
			return err
		}))

		resp, err := a.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return nil, err
		}
		return Streamed{Response: resp}, nil
	}

	resp, err := a.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return Immediate{Content: resp.Choices[0].Content}, nil
}
