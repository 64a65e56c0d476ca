package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/TayoO/embedchain/src/core/embedder"
	"github.com/TayoO/embedchain/src/infrastructure/log"
)

// ElasticsearchDB stores records in one index per collection and embedding
// dimension.
type ElasticsearchDB struct {
	client     *elasticsearch.Client
	embedder   embedder.Embedder
	collection string
}

// NewElasticsearchDB connects a client for a resolved config. It does not
// talk to the cluster.
func NewElasticsearchDB(cfg ElasticsearchConfig, emb embedder.Embedder) (*ElasticsearchDB, error) {
	if cfg.URL == "" && cfg.CloudID == "" {
		return nil, &ConfigError{
			Backend: ProviderElasticsearch,
			Field:   "url",
			Message: "pass url in the vectordb config or set " + EnvElasticsearchURL,
		}
	}
	if emb == nil {
		return nil, ErrNoEmbedder
	}

	esCfg := elasticsearch.Config{
		CloudID:  cfg.CloudID,
		APIKey:   cfg.APIKey,
		Username: cfg.Username,
		Password: cfg.Password,
	}
	if cfg.URL != "" {
		esCfg.Addresses = []string{cfg.URL}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, &ConfigError{Backend: ProviderElasticsearch, Field: "client", Message: err.Error()}
	}

	collection := cfg.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	return &ElasticsearchDB{
		client:     client,
		embedder:   emb,
		collection: collection,
	}, nil
}

// Index is the name of the backing index.
func (db *ElasticsearchDB) Index() string {
	return strings.ToLower(fmt.Sprintf("%s_%d", db.collection, db.embedder.Dimension()))
}

func (db *ElasticsearchDB) SetCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name must not be empty")
	}
	db.collection = name
	return nil
}

func (db *ElasticsearchDB) indexExists(ctx context.Context) (bool, error) {
	res, err := db.client.Indices.Exists([]string{db.Index()}, db.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("failed to check index: %s", res.String())
	}
}

func (db *ElasticsearchDB) Initialize(ctx context.Context) error {
	exists, err := db.indexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	settings := map[string]any{
		"mappings": map[string]any{
			"dynamic_templates": []any{
				map[string]any{
					"metadata_strings": map[string]any{
						"path_match":         "metadata.*",
						"match_mapping_type": "string",
						"mapping":            map[string]any{"type": "keyword"},
					},
				},
			},
			"properties": map[string]any{
				"text": map[string]any{"type": "text"},
				"embeddings": map[string]any{
					"type":  "dense_vector",
					"index": false,
					"dims":  db.embedder.Dimension(),
				},
			},
		},
	}

	res, err := db.client.Indices.Create(db.Index(),
		db.client.Indices.Create.WithBody(esutil.NewJSONReader(settings)),
		db.client.Indices.Create.WithContext(ctx),
	)
	if err := checkResponse(res, err, "create index"); err != nil {
		return err
	}
	log.Info("created elasticsearch index", "index", db.Index())
	return nil
}

// getBatchSize bounds the ids looked up per search, well below the default
// index.max_result_window of 10000.
const getBatchSize = 1000

func (db *ElasticsearchDB) Get(ctx context.Context, ids []string, where map[string]any, limit int) ([]string, error) {
	if len(ids) == 0 {
		if limit <= 0 {
			limit = 10000
		}
		return db.search(ctx, whereClauses(where), limit)
	}

	found := make([]string, 0, len(ids))
	for start := 0; start < len(ids); start += getBatchSize {
		batch := ids[start:min(start+getBatchSize, len(ids))]
		must := append([]any{map[string]any{"ids": map[string]any{"values": batch}}}, whereClauses(where)...)
		hits, err := db.search(ctx, must, len(batch))
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

// search returns the ids of up to size records matching all clauses
func (db *ElasticsearchDB) search(ctx context.Context, must []any, size int) ([]string, error) {
	body := map[string]any{
		"query":   map[string]any{"bool": map[string]any{"must": must}},
		"_source": false,
	}

	var result searchResponse
	res, err := db.client.Search(
		db.client.Search.WithContext(ctx),
		db.client.Search.WithIndex(db.Index()),
		db.client.Search.WithBody(esutil.NewJSONReader(body)),
		db.client.Search.WithSize(size),
	)
	if err := decodeResponse(res, err, "get", &result); err != nil {
		return nil, err
	}

	found := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		found = append(found, hit.ID)
	}
	return found, nil
}

func (db *ElasticsearchDB) Add(ctx context.Context, req AddRequest) error {
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

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, id := range req.IDs {
		action := map[string]any{"index": map[string]any{"_index": db.Index(), "_id": id}}
		source := map[string]any{
			"text":       req.Documents[i],
			"metadata":   req.Metadatas[i],
			"embeddings": vectors[i],
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(source); err != nil {
			return fmt.Errorf("failed to encode document %s: %w", id, err)
		}
	}

	var result bulkResponse
	res, err := db.client.Bulk(bytes.NewReader(buf.Bytes()), db.client.Bulk.WithContext(ctx))
	if err := decodeResponse(res, err, "bulk index", &result); err != nil {
		return err
	}
	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("bulk index failed for %s: %s: %s", op.ID, op.Error.Type, op.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk index reported errors")
	}

	res, err = db.client.Indices.Refresh(
		db.client.Indices.Refresh.WithIndex(db.Index()),
		db.client.Indices.Refresh.WithContext(ctx),
	)
	if err := checkResponse(res, err, "refresh index"); err != nil {
		return err
	}

	log.Debug("added documents to elasticsearch", "index", db.Index(), "count", len(req.IDs))
	return nil
}

func (db *ElasticsearchDB) Query(ctx context.Context, req QueryRequest) ([]string, error) {
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

	must := []any{map[string]any{"exists": map[string]any{"field": "text"}}}
	must = append(must, whereClauses(req.Where)...)

	body := map[string]any{
		"query": map[string]any{
			"script_score": map[string]any{
				"query": map[string]any{"bool": map[string]any{"must": must}},
				"script": map[string]any{
					"source": "cosineSimilarity(params.input_query_vector, 'embeddings') + 1.0",
					"params": map[string]any{"input_query_vector": vector},
				},
			},
		},
		"_source": []string{"text"},
	}

	size := req.NResults
	if size <= 0 {
		size = 1
	}

	var result searchResponse
	res, err := db.client.Search(
		db.client.Search.WithContext(ctx),
		db.client.Search.WithIndex(db.Index()),
		db.client.Search.WithBody(esutil.NewJSONReader(body)),
		db.client.Search.WithSize(size),
	)
	if err := decodeResponse(res, err, "search", &result); err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		contents = append(contents, hit.Source.Text)
	}
	return contents, nil
}

func (db *ElasticsearchDB) Count(ctx context.Context) (int, error) {
	body := map[string]any{"query": map[string]any{"match_all": map[string]any{}}}

	var result struct {
		Count int `json:"count"`
	}
	res, err := db.client.Count(
		db.client.Count.WithContext(ctx),
		db.client.Count.WithIndex(db.Index()),
		db.client.Count.WithBody(esutil.NewJSONReader(body)),
	)
	if err := decodeResponse(res, err, "count", &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Delete removes the records matching where and refreshes the index
func (db *ElasticsearchDB) Delete(ctx context.Context, where map[string]any) error {
	if len(where) == 0 {
		return ErrEmptyFilter
	}
	exists, err := db.indexExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	body := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": whereClauses(where)}},
	}

	var result struct {
		Deleted  int   `json:"deleted"`
		Failures []any `json:"failures"`
	}
	res, err := db.client.DeleteByQuery([]string{db.Index()}, esutil.NewJSONReader(body),
		db.client.DeleteByQuery.WithContext(ctx),
		db.client.DeleteByQuery.WithRefresh(true),
		db.client.DeleteByQuery.WithConflicts("proceed"),
	)
	if err := decodeResponse(res, err, "delete by query", &result); err != nil {
		return err
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("delete by query reported %d failures", len(result.Failures))
	}
	log.Debug("deleted documents from elasticsearch", "index", db.Index(), "count", result.Deleted)
	return nil
}

// Reset deletes the index. It is recreated by the next Initialize.
func (db *ElasticsearchDB) Reset(ctx context.Context) error {
	exists, err := db.indexExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	res, err := db.client.Indices.Delete([]string{db.Index()}, db.client.Indices.Delete.WithContext(ctx))
	if err := checkResponse(res, err, "delete index"); err != nil {
		return err
	}
	log.Info("deleted elasticsearch index", "index", db.Index())
	return nil
}

// whereClauses turns a metadata filter into term clauses, sorted by key so
// the request body is stable.
func whereClauses(where map[string]any) []any {
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]any, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, map[string]any{
			"term": map[string]any{"metadata." + k: where[k]},
		})
	}
	return clauses
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				Text string `json:"text"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

func checkResponse(res *esapi.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to %s: %s", op, res.String())
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

func decodeResponse(res *esapi.Response, err error, op string, v any) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to %s: %s", op, res.String())
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
