package app

import (
	"context"
	"io"

	"github.com/TayoO/embedchain/src/core/llm"
)

// Service is the App surface served over HTTP and the CLI
type Service interface {
	ID() string
	LLMConfig() llm.Config
	Add(ctx context.Context, source string, dataType DataType, metadata map[string]any) (string, error)
	AddReader(ctx context.Context, name string, r io.Reader, dataType DataType, metadata map[string]any) (string, error)
	Retrieve(ctx context.Context, input string, cfg llm.Config, opts ...QueryOption) ([]string, error)
	Query(ctx context.Context, input string, cfg llm.Config, opts ...QueryOption) (llm.Answer, error)
	Chat(ctx context.Context, sessionID, input string, cfg llm.Config, opts ...QueryOption) (llm.Answer, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	DataSources(ctx context.Context) ([]DataSource, error)
}

var _ Service = (*App)(nil)
