package vectordb

import (
	"context"
	"errors"
	"fmt"
)

const DefaultCollectionName = "embedchain_store"

var (
	ErrLengthMismatch = errors.New("embeddings, documents, metadatas and ids must have the same length")
	ErrDuplicateID    = errors.New("duplicate id in batch")
	ErrMissingVector  = errors.New("query vector is required when embedding is skipped")
	ErrNoEmbedder     = errors.New("embedder is required")
	ErrEmptyFilter    = errors.New("delete needs a non-empty filter")
)

// ConfigError reports a missing or invalid connection parameter. It is
// returned by constructors before any network call.
type ConfigError struct {
	Backend string
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Backend, e.Field, e.Message)
}

// TypeError reports a backend config section with the wrong shape.
type TypeError struct {
	Backend string
	Err     error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: malformed config: %v", e.Backend, e.Err)
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

// AddRequest is one insertion batch. The slices are parallel.
type AddRequest struct {
	Embeddings    [][]float32
	Documents     []string
	Metadatas     []map[string]any
	IDs           []string
	SkipEmbedding bool
}

// QueryRequest searches with either raw text (embedded by the store) or a
// precomputed vector when SkipEmbedding is set.
type QueryRequest struct {
	Input         string
	Vector        []float32
	NResults      int
	Where         map[string]any
	SkipEmbedding bool
}

// VectorDB stores documents with their embeddings and searches them by
// similarity.
type VectorDB interface {
	// Initialize creates the backing index or class if it does not exist.
	Initialize(ctx context.Context) error
	// Get returns the ids among ids that are already stored and match where.
	// An empty ids slice returns every id matching where, up to limit.
	Get(ctx context.Context, ids []string, where map[string]any, limit int) ([]string, error)
	Add(ctx context.Context, req AddRequest) error
	// Query returns document texts, ordered as the backend ranked them.
	Query(ctx context.Context, req QueryRequest) ([]string, error)
	Count(ctx context.Context) (int, error)
	// Delete removes every record matching where. An empty where is
	// rejected with ErrEmptyFilter; Reset drops the whole collection.
	Delete(ctx context.Context, where map[string]any) error
	// Reset drops the collection, including records of other apps.
	Reset(ctx context.Context) error
	SetCollectionName(name string) error
}

// Validate checks the shape of the batch. Embeddings are only required when
// SkipEmbedding is set, otherwise they are computed from the documents.
func (r AddRequest) Validate() error {
	n := len(r.Documents)
	if len(r.Metadatas) != n || len(r.IDs) != n {
		return fmt.Errorf("%w: %d documents, %d metadatas, %d ids", ErrLengthMismatch, n, len(r.Metadatas), len(r.IDs))
	}
	if r.SkipEmbedding && len(r.Embeddings) != n {
		return fmt.Errorf("%w: %d embeddings for %d documents", ErrLengthMismatch, len(r.Embeddings), n)
	}
	if !r.SkipEmbedding && len(r.Embeddings) != 0 && len(r.Embeddings) != n {
		return fmt.Errorf("%w: %d embeddings for %d documents", ErrLengthMismatch, len(r.Embeddings), n)
	}

	seen := make(map[string]struct{}, n)
	for _, id := range r.IDs {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
