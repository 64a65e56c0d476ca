package embedder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TayoO/embedchain/src/core/embedder"
)

func newOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/api/embed":
			var req struct {
				Model string   `json:"model"`
				Input []string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			vectors := make([][]float32, len(req.Input))
			for i := range req.Input {
				vectors[i] = []float32{float32(i), float32(len(req.Input[i]))}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":      req.Model,
				"embeddings": vectors,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder(t *testing.T) {
	srv := newOllamaServer(t)

	e, err := embedder.New(embedder.Config{
		Provider: embedder.ProviderOllama,
		BaseURL:  srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, embedder.DefaultOllamaDimension, e.Dimension())

	ctx := context.Background()

	docs, err := e.EmbedDocuments(ctx, []string{"a", "bcd"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 3}}, docs)

	query, err := e.EmbedQuery(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 5}, query)

	checker, ok := e.(embedder.HealthChecker)
	require.True(t, ok)
	assert.NoError(t, checker.Ping(ctx))
}

func TestNewUnsupportedProvider(t *testing.T) {
	_, err := embedder.New(embedder.Config{Provider: "cohere"})
	assert.ErrorContains(t, err, "unsupported embedder provider")
}
