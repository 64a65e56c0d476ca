package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// SDK encapsulates the Weaviate operations used by the vector store
type SDK struct {
	client *weaviate.Client
}

// NewSDK creates a new instance of SDK
func NewSDK(client *weaviate.Client) *SDK {
	return &SDK{
		client: client,
	}
}

// EnsureClass creates the class unless it already exists
func (w *SDK) EnsureClass(ctx context.Context, className string, properties []*models.Property) error {
	exists, err := w.ClassExists(ctx, className)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      className,
		Properties: properties,
		Vectorizer: "none",
	}

	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create Weaviate class: %w", err)
	}

	return nil
}

// ClassExists checks if a class exists in the schema
func (w *SDK) ClassExists(ctx context.Context, className string) (bool, error) {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get schema: %w", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return true, nil
		}
	}

	return false, nil
}

// DeleteClass deletes a class and all of its objects
func (w *SDK) DeleteClass(ctx context.Context, className string) error {
	if err := w.client.Schema().ClassDeleter().WithClassName(className).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete Weaviate class: %w", err)
	}

	return nil
}

// VectorObject represents a single object with its id, vector and properties
type VectorObject struct {
	ID         string
	Vector     []float32
	Properties map[string]interface{}
}

// BatchUpsert writes the objects in a single batch. Objects with an existing
// id are replaced.
func (w *SDK) BatchUpsert(ctx context.Context, className string, objects []VectorObject) error {
	objs := make([]*models.Object, len(objects))
	for i, obj := range objects {
		objs[i] = &models.Object{
			Class:      className,
			ID:         strfmt.UUID(obj.ID),
			Properties: obj.Properties,
			Vector:     obj.Vector,
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch add vectors: %w", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("batch operation returned no results")
	}

	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("failed to add object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
		}
	}

	return nil
}

// DeleteWhere deletes every object of the class matching where and returns
// how many were removed. Weaviate caps one batch delete at its query
// limit, so the delete is repeated until a round matches fewer objects.
func (w *SDK) DeleteWhere(ctx context.Context, className string, where *filters.WhereBuilder) (int64, error) {
	var deleted int64
	for {
		resp, err := w.client.Batch().ObjectsBatchDeleter().
			WithClassName(className).
			WithWhere(where).
			WithOutput("minimal").
			Do(ctx)
		if err != nil {
			return deleted, fmt.Errorf("failed to batch delete objects: %w", err)
		}
		if resp == nil || resp.Results == nil {
			return deleted, nil
		}
		if resp.Results.Failed > 0 {
			return deleted, fmt.Errorf("failed to delete %d objects", resp.Results.Failed)
		}
		deleted += resp.Results.Successful
		if resp.Results.Limit == 0 || resp.Results.Matches < resp.Results.Limit {
			return deleted, nil
		}
	}
}

// QueryConfig represents configuration for a Get query
type QueryConfig struct {
	Fields []string
	Limit  int
	// Where is an optional property filter
	Where *filters.WhereBuilder
}

const DefaultQueryLimit = 20

// QueryResult represents a single object returned by a query
type QueryResult struct {
	ID         string
	Distance   float64
	Properties map[string]interface{}
}

// QueryVectors performs vector similarity search in a class. A nil vector
// lists objects without ranking.
func (w *SDK) QueryVectors(ctx context.Context, className string, vector []float32, config QueryConfig) ([]QueryResult, error) {
	fields := make([]graphql.Field, 0, len(config.Fields)+1)
	for _, field := range config.Fields {
		fields = append(fields, graphql.Field{Name: field})
	}
	fields = append(fields, graphql.Field{Name: "_additional { id distance }"})

	if config.Limit <= 0 {
		config.Limit = DefaultQueryLimit
	}

	get := w.client.GraphQL().Get().
		WithClassName(className).
		WithFields(fields...).
		WithLimit(config.Limit)

	if vector != nil {
		get = get.WithNearVector(w.client.GraphQL().NearVectorArgBuilder().WithVector(vector))
	}
	if config.Where != nil {
		get = get.WithWhere(config.Where)
	}

	result, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to query vectors: %s", result.Errors[0].Message)
	}

	var queryResults []QueryResult
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return queryResults, nil
	}
	objects, ok := data[className].([]interface{})
	if !ok {
		return queryResults, nil
	}

	for _, obj := range objects {
		objMap, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		// Create properties map excluding _additional
		properties := make(map[string]interface{})
		for k, v := range objMap {
			if k != "_additional" {
				properties[k] = v
			}
		}

		qr := QueryResult{Properties: properties}
		if additional, ok := objMap["_additional"].(map[string]interface{}); ok {
			qr.ID, _ = additional["id"].(string)
			qr.Distance, _ = additional["distance"].(float64)
		}
		queryResults = append(queryResults, qr)
	}

	return queryResults, nil
}

// Count returns the number of objects in a class
func (w *SDK) Count(ctx context.Context, className string) (int, error) {
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate class: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("failed to aggregate class: %s", result.Errors[0].Message)
	}

	aggregate, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	groups, ok := aggregate[className].([]interface{})
	if !ok || len(groups) == 0 {
		return 0, nil
	}
	group, _ := groups[0].(map[string]interface{})
	meta, _ := group["meta"].(map[string]interface{})
	count, _ := meta["count"].(float64)

	return int(count), nil
}
