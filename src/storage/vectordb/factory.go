package vectordb

import (
	"fmt"

	"github.com/TayoO/embedchain/src/core/embedder"
)

// New decodes the raw config section of the provider, resolves environment
// fallbacks and builds the store. Config problems are reported before any
// network call.
func New(provider string, raw map[string]any, emb embedder.Embedder) (VectorDB, error) {
	switch provider {
	case "", ProviderElasticsearch:
		cfg, err := DecodeElasticsearchConfig(raw)
		if err != nil {
			return nil, err
		}
		cfg, err = ResolveElasticsearchConfig(cfg)
		if err != nil {
			return nil, err
		}
		db, err := NewElasticsearchDB(cfg, emb)
		if err != nil {
			return nil, err
		}
		return db, nil
	case ProviderWeaviate:
		cfg, err := DecodeWeaviateConfig(raw)
		if err != nil {
			return nil, err
		}
		cfg, err = ResolveWeaviateConfig(cfg)
		if err != nil {
			return nil, err
		}
		db, err := NewWeaviateDB(cfg, emb)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported vector database provider %q", provider)
	}
}
