package job

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/TayoO/embedchain/src/core/app"
)

const TaskTypeIngest = "ingest"

// IngestPayload points at an uploaded object that should be added to the app
type IngestPayload struct {
	Bucket   string         `json:"bucket"`
	Object   string         `json:"object"`
	Name     string         `json:"name"`
	DataType app.DataType   `json:"data_type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type IngestResult struct {
	DocID string `json:"doc_id"`
}

type ObjectStore interface {
	GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
}

// Ingester is the part of app.App the worker drives
type Ingester interface {
	AddReader(ctx context.Context, name string, r io.Reader, dataType app.DataType, metadata map[string]any) (string, error)
}

type IngestTask struct {
	objects ObjectStore
	app     Ingester
}

func NewIngestTask(objects ObjectStore, ingester Ingester) *IngestTask {
	return &IngestTask{
		objects: objects,
		app:     ingester,
	}
}

func (task *IngestTask) HandleIngestTask(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var p IngestPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingest payload: %w", err)
	}
	if p.Bucket == "" || p.Object == "" {
		return nil, fmt.Errorf("ingest payload needs bucket and object")
	}

	name := p.Name
	if name == "" {
		name = p.Object
	}
	dataType, err := app.ParseDataType(string(p.DataType), name)
	if err != nil {
		return nil, err
	}

	obj, err := task.objects.GetObject(ctx, p.Bucket, p.Object)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	docID, err := task.app.AddReader(ctx, name, obj, dataType, p.Metadata)
	if err != nil {
		return nil, err
	}

	return json.Marshal(IngestResult{DocID: docID})
}
