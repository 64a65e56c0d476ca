package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/TayoO/embedchain/src/core/embedder"
	"github.com/TayoO/embedchain/src/infrastructure/log"
	"github.com/TayoO/embedchain/src/storage/weaviate"
)

// Metadata keys that are stored as filterable Weaviate properties.
var weaviateFilterable = map[string]string{
	"app_id": "appId",
	"doc_id": "docId",
}

// WeaviateDB stores records as objects of one class per collection and
// embedding dimension. Object ids are UUIDs derived from record ids.
type WeaviateDB struct {
	sdk        *weaviate.SDK
	embedder   embedder.Embedder
	collection string
}

func NewWeaviateDB(cfg WeaviateConfig, emb embedder.Embedder) (*WeaviateDB, error) {
	if cfg.URL == "" {
		return nil, &ConfigError{
			Backend: ProviderWeaviate,
			Field:   "url",
			Message: "pass url in the vectordb config or set " + EnvWeaviateURL,
		}
	}
	if emb == nil {
		return nil, ErrNoEmbedder
	}

	// url may be a bare host or carry its own scheme
	wcfg := weaviateClient.Config{
		Host:   cfg.URL,
		Scheme: cfg.Scheme,
	}
	if u, err := url.Parse(cfg.URL); err == nil && u.Scheme != "" && u.Host != "" {
		wcfg.Host = u.Host
		wcfg.Scheme = u.Scheme
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviateClient.NewClient(wcfg)
	if err != nil {
		return nil, &ConfigError{Backend: ProviderWeaviate, Field: "client", Message: err.Error()}
	}

	collection := cfg.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	return &WeaviateDB{
		sdk:        weaviate.NewSDK(client),
		embedder:   emb,
		collection: collection,
	}, nil
}

// ClassName is the Weaviate class backing the collection.
func (db *WeaviateDB) ClassName() string {
	return weaviateClassName(db.collection, db.embedder.Dimension())
}

func weaviateClassName(collection string, dimension int) string {
	var sb strings.Builder
	for i, r := range collection {
		switch {
		case i == 0 && unicode.IsLetter(r):
			sb.WriteRune(unicode.ToUpper(r))
		case i == 0:
			sb.WriteString("C")
			sb.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return fmt.Sprintf("%s_%d", sb.String(), dimension)
}

// objectID maps a record id onto the UUID Weaviate requires.
func objectID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func (db *WeaviateDB) SetCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name must not be empty")
	}
	db.collection = name
	return nil
}

func (db *WeaviateDB) Initialize(ctx context.Context) error {
	properties := []*models.Property{
		{Name: "text", DataType: []string{"text"}, Description: "Document text"},
		{Name: "refId", DataType: []string{"text"}, Tokenization: "field", Description: "Record id"},
		{Name: "appId", DataType: []string{"text"}, Tokenization: "field", Description: "App the record belongs to"},
		{Name: "docId", DataType: []string{"text"}, Tokenization: "field", Description: "Source document hash"},
		{Name: "metadata", DataType: []string{"text"}, Description: "Record metadata as JSON"},
	}
	return db.sdk.EnsureClass(ctx, db.ClassName(), properties)
}

func (db *WeaviateDB) Get(ctx context.Context, ids []string, where map[string]any, limit int) ([]string, error) {
	operands, err := weaviateOperands(where)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		if limit <= 0 {
			limit = 10000
		}
		return db.refIDs(ctx, combineOperands(operands), limit)
	}

	found := make([]string, 0, len(ids))
	for start := 0; start < len(ids); start += getBatchSize {
		batch := ids[start:min(start+getBatchSize, len(ids))]
		byID := filters.Where().
			WithPath([]string{"refId"}).
			WithOperator(filters.ContainsAny).
			WithValueText(batch...)
		hits, err := db.refIDs(ctx, combineOperands(append([]*filters.WhereBuilder{byID}, operands...)), len(batch))
		if err != nil {
			return nil, err
		}
		found = append(found, hits...)
		if limit > 0 && len(found) >= limit {
			return found[:limit], nil
		}
	}
	return found, nil
}

func (db *WeaviateDB) refIDs(ctx context.Context, filter *filters.WhereBuilder, limit int) ([]string, error) {
	results, err := db.sdk.QueryVectors(ctx, db.ClassName(), nil, weaviate.QueryConfig{
		Fields: []string{"refId"},
		Limit:  limit,
		Where:  filter,
	})
	if err != nil {
		return nil, err
	}

	found := make([]string, 0, len(results))
	for _, r := range results {
		if id, ok := r.Properties["refId"].(string); ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (db *WeaviateDB) Add(ctx context.Context, req AddRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if len(req.Documents) == 0 {
		return nil
	}

	vectors := req.Embeddings
	if !req.SkipEmbedding {
		var err error
		vectors, err = db.embedder.EmbedDocuments(ctx, req.Documents)
		if err != nil {
			return fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(vectors) != len(req.Documents) {
			return fmt.Errorf("%w: embedder returned %d vectors for %d documents", ErrLengthMismatch, len(vectors), len(req.Documents))
		}
	}

	objects := make([]weaviate.VectorObject, len(req.IDs))
	for i, id := range req.IDs {
		meta, err := json.Marshal(req.Metadatas[i])
		if err != nil {
			return fmt.Errorf("failed to encode metadata of %s: %w", id, err)
		}
		props := map[string]interface{}{
			"text":     req.Documents[i],
			"refId":    id,
			"metadata": string(meta),
		}
		for key, prop := range weaviateFilterable {
			if v, ok := req.Metadatas[i][key]; ok {
				props[prop] = fmt.Sprint(v)
			}
		}
		objects[i] = weaviate.VectorObject{
			ID:         objectID(id),
			Vector:     vectors[i],
			Properties: props,
		}
	}

	return db.sdk.BatchUpsert(ctx, db.ClassName(), objects)
}

func (db *WeaviateDB) Query(ctx context.Context, req QueryRequest) ([]string, error) {
	vector := req.Vector
	if req.SkipEmbedding {
		if len(vector) == 0 {
			return nil, ErrMissingVector
		}
	} else {
		var err error
		vector, err = db.embedder.EmbedQuery(ctx, req.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
	}

	filter, err := weaviateWhere(req.Where)
	if err != nil {
		return nil, err
	}

	limit := req.NResults
	if limit <= 0 {
		limit = 1
	}

	results, err := db.sdk.QueryVectors(ctx, db.ClassName(), vector, weaviate.QueryConfig{
		Fields: []string{"text"},
		Limit:  limit,
		Where:  filter,
	})
	if err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(results))
	for _, r := range results {
		text, _ := r.Properties["text"].(string)
		contents = append(contents, text)
	}
	return contents, nil
}

func (db *WeaviateDB) Count(ctx context.Context) (int, error) {
	return db.sdk.Count(ctx, db.ClassName())
}

func (db *WeaviateDB) Delete(ctx context.Context, where map[string]any) error {
	if len(where) == 0 {
		return ErrEmptyFilter
	}
	filter, err := weaviateWhere(where)
	if err != nil {
		return err
	}
	exists, err := db.sdk.ClassExists(ctx, db.ClassName())
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	n, err := db.sdk.DeleteWhere(ctx, db.ClassName(), filter)
	if err != nil {
		return err
	}
	log.Debug("deleted objects from weaviate", "class", db.ClassName(), "count", n)
	return nil
}

func (db *WeaviateDB) Reset(ctx context.Context) error {
	exists, err := db.sdk.ClassExists(ctx, db.ClassName())
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return db.sdk.DeleteClass(ctx, db.ClassName())
}

// weaviateWhere builds an equality filter. Only keys stored as properties
// can be filtered on.
func weaviateWhere(where map[string]any) (*filters.WhereBuilder, error) {
	operands, err := weaviateOperands(where)
	if err != nil {
		return nil, err
	}
	return combineOperands(operands), nil
}

func weaviateOperands(where map[string]any) ([]*filters.WhereBuilder, error) {
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	operands := make([]*filters.WhereBuilder, 0, len(keys))
	for _, k := range keys {
		prop, ok := weaviateFilterable[k]
		if !ok {
			return nil, fmt.Errorf("weaviate cannot filter on metadata key %q", k)
		}
		operands = append(operands, filters.Where().
			WithPath([]string{prop}).
			WithOperator(filters.Equal).
			WithValueText(fmt.Sprint(where[k])))
	}
	return operands, nil
}

func combineOperands(operands []*filters.WhereBuilder) *filters.WhereBuilder {
	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(operands)
	}
}
