package app

import (
	"errors"
	"fmt"

	"github.com/TayoO/embedchain/src/core/llm"
)

const (
	DefaultAppID        = "default"
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 0
	DefaultHistoryLimit = 10
)

var ErrInvalidConfig = errors.New("invalid app config")

type ChunkerConfig struct {
	Size    int `mapstructure:"size" json:"size"`
	Overlap int `mapstructure:"overlap" json:"overlap"`
}

// Config describes one app. Every record the app writes is tagged with ID
// and every query is scoped to it. An empty CollectionName keeps the
// collection the vector store was configured with.
type Config struct {
	ID             string        `mapstructure:"id" json:"id"`
	CollectionName string        `mapstructure:"collection_name" json:"collection_name"`
	Chunker        ChunkerConfig `mapstructure:"chunker" json:"chunker"`
	HistoryLimit   int           `mapstructure:"history_limit" json:"history_limit"`
	LLM            llm.Config    `mapstructure:"llm" json:"llm"`
}

func (c Config) WithDefaults() Config {
	if c.ID == "" {
		c.ID = DefaultAppID
	}
	if c.Chunker.Size <= 0 {
		c.Chunker.Size = DefaultChunkSize
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	c.LLM = c.LLM.WithDefaults()
	return c
}

func (c Config) Validate() error {
	if c.Chunker.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative", ErrInvalidConfig)
	}
	if c.Chunker.Size > 0 && c.Chunker.Overlap >= c.Chunker.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfig, c.Chunker.Overlap, c.Chunker.Size)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
