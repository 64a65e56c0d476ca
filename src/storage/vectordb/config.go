package vectordb

import (
	"os"

	"github.com/mitchellh/mapstructure"
)

const (
	ProviderElasticsearch = "elasticsearch"
	ProviderWeaviate      = "weaviate"

	EnvElasticsearchURL = "ELASTICSEARCH_URL"
	EnvWeaviateURL      = "WEAVIATE_URL"
)

// ElasticsearchConfig holds the connection settings of the Elasticsearch
// backend. Either URL or CloudID must be set once resolved.
type ElasticsearchConfig struct {
	URL            string `mapstructure:"url"`
	CloudID        string `mapstructure:"cloud_id"`
	APIKey         string `mapstructure:"api_key"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	CollectionName string `mapstructure:"collection_name"`
}

// WeaviateConfig holds the connection settings of the Weaviate backend.
type WeaviateConfig struct {
	URL            string `mapstructure:"url"`
	Scheme         string `mapstructure:"scheme"`
	APIKey         string `mapstructure:"api_key"`
	CollectionName string `mapstructure:"collection_name"`
}

// DecodeElasticsearchConfig decodes a raw config section. Unknown keys and
// values of the wrong type are rejected with a *TypeError.
func DecodeElasticsearchConfig(raw map[string]any) (ElasticsearchConfig, error) {
	var cfg ElasticsearchConfig
	if err := decodeStrict(raw, &cfg); err != nil {
		return ElasticsearchConfig{}, &TypeError{Backend: ProviderElasticsearch, Err: err}
	}
	return cfg, nil
}

func DecodeWeaviateConfig(raw map[string]any) (WeaviateConfig, error) {
	var cfg WeaviateConfig
	if err := decodeStrict(raw, &cfg); err != nil {
		return WeaviateConfig{}, &TypeError{Backend: ProviderWeaviate, Err: err}
	}
	return cfg, nil
}

func decodeStrict(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: false,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// ResolveElasticsearchConfig fills the URL from ELASTICSEARCH_URL when
// neither a URL nor a cloud id was given.
func ResolveElasticsearchConfig(cfg ElasticsearchConfig) (ElasticsearchConfig, error) {
	if cfg.URL == "" && cfg.CloudID == "" {
		cfg.URL = os.Getenv(EnvElasticsearchURL)
	}
	if cfg.URL == "" && cfg.CloudID == "" {
		return ElasticsearchConfig{}, &ConfigError{
			Backend: ProviderElasticsearch,
			Field:   "url",
			Message: "pass url in the vectordb config or set " + EnvElasticsearchURL,
		}
	}
	if cfg.CollectionName == "" {
		cfg.CollectionName = DefaultCollectionName
	}
	return cfg, nil
}

// ResolveWeaviateConfig fills the URL from WEAVIATE_URL when unset.
func ResolveWeaviateConfig(cfg WeaviateConfig) (WeaviateConfig, error) {
	if cfg.URL == "" {
		cfg.URL = os.Getenv(EnvWeaviateURL)
	}
	if cfg.URL == "" {
		return WeaviateConfig{}, &ConfigError{
			Backend: ProviderWeaviate,
			Field:   "url",
			Message: "pass url in the vectordb config or set " + EnvWeaviateURL,
		}
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.CollectionName == "" {
		cfg.CollectionName = DefaultCollectionName
	}
	return cfg, nil
}
