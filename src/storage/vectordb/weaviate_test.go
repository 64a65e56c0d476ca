package vectordb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeaviateClassName(t *testing.T) {
	tests := []struct {
		collection string
		dimension  int
		want       string
	}{
		{collection: "embedchain_store", dimension: 1536, want: "Embedchain_store_1536"},
		{collection: "my-docs", dimension: 768, want: "My_docs_768"},
		{collection: "1st", dimension: 3, want: "C1st_3"},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			assert.Equal(t, tt.want, weaviateClassName(tt.collection, tt.dimension))
		})
	}
}

func TestObjectIDIsStable(t *testing.T) {
	assert.Equal(t, objectID("doc_1"), objectID("doc_1"))
	assert.NotEqual(t, objectID("doc_1"), objectID("doc_2"))
	assert.Len(t, objectID("doc_1"), 36)
}

func TestWeaviateWhere(t *testing.T) {
	w, err := weaviateWhere(nil)
	require.NoError(t, err)
	assert.Nil(t, w)

	w, err = weaviateWhere(map[string]any{"app_id": "a"})
	require.NoError(t, err)
	assert.NotNil(t, w)

	w, err = weaviateWhere(map[string]any{"app_id": "a", "doc_id": "d"})
	require.NoError(t, err)
	assert.NotNil(t, w)

	_, err = weaviateWhere(map[string]any{"url": "x"})
	assert.ErrorContains(t, err, "cannot filter")
}

func TestNewWeaviateWithoutURL(t *testing.T) {
	t.Setenv(EnvWeaviateURL, "")

	_, err := New(ProviderWeaviate, map[string]any{"scheme": "http"}, nil)
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = New(ProviderWeaviate, map[string]any{"url": true}, nil)
	var typeErr *TypeError
	assert.True(t, errors.As(err, &typeErr))
}
