package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/TayoO/embedchain/src/core/llm"
	"github.com/TayoO/embedchain/src/fsutil"
	"github.com/TayoO/embedchain/src/infrastructure/log"
	"github.com/TayoO/embedchain/src/storage/vectordb"
)

var ErrEmptyQuery = errors.New("query must not be empty")

// App ties a vector store and a chat model together. Documents added to an
// app are chunked, embedded and stored; queries retrieve the closest chunks
// and hand them to the model as context.
type App struct {
	cfg       Config
	llm       *llm.Adapter
	db        vectordb.VectorDB
	chunker   Chunker
	fs        fsutil.FileStore
	converter Converter
	sources   DataSourceStore
	history   HistoryStore
}

type Option func(*App)

func WithFileStore(fs fsutil.FileStore) Option {
	return func(a *App) { a.fs = fs }
}

func WithConverter(c Converter) Option {
	return func(a *App) { a.converter = c }
}

func WithDataSourceStore(s DataSourceStore) Option {
	return func(a *App) { a.sources = s }
}

func WithHistoryStore(s HistoryStore) Option {
	return func(a *App) { a.history = s }
}

// New validates cfg, points db at the app collection when one is set and
// initializes it.
func New(ctx context.Context, cfg Config, adapter *llm.Adapter, db vectordb.VectorDB, opts ...Option) (*App, error) {
	if adapter == nil {
		return nil, fmt.Errorf("llm adapter is required")
	}
	if db == nil {
		return nil, fmt.Errorf("vector database is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	a := &App{
		cfg:     cfg,
		llm:     adapter,
		db:      db,
		chunker: NewChunker(cfg.Chunker),
		fs:      fsutil.NewLocalFileStore(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.CollectionName != "" {
		if err := db.SetCollectionName(cfg.CollectionName); err != nil {
			return nil, fmt.Errorf("failed to set collection: %w", err)
		}
	}
	if err := db.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize vector database: %w", err)
	}
	return a, nil
}

func (a *App) ID() string {
	return a.cfg.ID
}

// LLMConfig is the default model config of the app
func (a *App) LLMConfig() llm.Config {
	return a.cfg.LLM
}

// Add loads source, stores the chunks that are not stored yet and returns
// the document id.
func (a *App) Add(ctx context.Context, source string, dataType DataType, metadata map[string]any) (string, error) {
	content, err := a.load(ctx, source, dataType)
	if err != nil {
		return "", err
	}

	url := source
	if dataType == DataTypeText {
		url = "local"
	}
	return a.addContent(ctx, url, dataType, content, metadata)
}

// AddReader is Add for content that is not on the local filesystem. name
// is recorded as the source.
func (a *App) AddReader(ctx context.Context, name string, r io.Reader, dataType DataType, metadata map[string]any) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}

	content, err := a.decode(ctx, name, dataType, buf.Bytes())
	if err != nil {
		return "", err
	}
	return a.addContent(ctx, name, dataType, content, metadata)
}

func (a *App) addContent(ctx context.Context, url string, dataType DataType, content string, metadata map[string]any) (string, error) {
	chunks, err := a.chunker.Chunk(a.cfg.ID, url, content)
	if err != nil {
		return "", err
	}
	if len(chunks.Documents) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoContent, url)
	}

	existing, err := a.db.Get(ctx, chunks.IDs, map[string]any{"app_id": a.cfg.ID}, 0)
	if err != nil {
		return "", fmt.Errorf("failed to look up existing chunks: %w", err)
	}
	stored := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		stored[id] = struct{}{}
	}

	req := vectordb.AddRequest{}
	for i, id := range chunks.IDs {
		if _, ok := stored[id]; ok {
			continue
		}
		meta := make(map[string]any, len(metadata)+4)
		maps.Copy(meta, metadata)
		meta["url"] = url
		meta["data_type"] = string(dataType)
		meta["doc_id"] = chunks.DocID
		meta["app_id"] = a.cfg.ID

		req.Documents = append(req.Documents, chunks.Documents[i])
		req.IDs = append(req.IDs, id)
		req.Metadatas = append(req.Metadatas, meta)
	}

	if len(req.IDs) == 0 {
		log.Info("all chunks already stored", "source", url, "doc_id", chunks.DocID)
		return chunks.DocID, nil
	}

	if err := a.db.Add(ctx, req); err != nil {
		return "", fmt.Errorf("failed to add chunks: %w", err)
	}
	log.Info("added data source", "source", url, "doc_id", chunks.DocID, "new_chunks", len(req.IDs), "total_chunks", len(chunks.IDs))

	if a.sources != nil {
		src := &DataSource{
			AppID:     a.cfg.ID,
			DocID:     chunks.DocID,
			DataType:  dataType,
			Source:    url,
			Chunks:    len(chunks.IDs),
			Metadata:  metadata,
			CreatedAt: time.Now().UTC(),
		}
		if err := a.sources.Save(ctx, src); err != nil {
			return "", fmt.Errorf("failed to record data source: %w", err)
		}
	}
	return chunks.DocID, nil
}

// QueryOptions are the resolved QueryOption values
type QueryOptions struct {
	Where        map[string]any
	StreamWriter io.Writer
	DryRun       bool
}

type QueryOption func(*QueryOptions)

func NewQueryOptions(opts ...QueryOption) QueryOptions {
	var o QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithWhere narrows retrieval by metadata. The app id is always added.
func WithWhere(where map[string]any) QueryOption {
	return func(o *QueryOptions) { o.Where = where }
}

// WithStreamWriter sets where streamed chunks are written.
func WithStreamWriter(w io.Writer) QueryOption {
	return func(o *QueryOptions) { o.StreamWriter = w }
}

// DryRun returns the rendered prompt as an Immediate answer without calling
// the model.
func DryRun() QueryOption {
	return func(o *QueryOptions) { o.DryRun = true }
}

// Retrieve returns the cfg.NumberDocuments stored chunks closest to input.
func (a *App) Retrieve(ctx context.Context, input string, cfg llm.Config, opts ...QueryOption) ([]string, error) {
	o := a.queryOptions(opts)
	cfg = cfg.WithDefaults()

	contexts, err := a.db.Query(ctx, vectordb.QueryRequest{
		Input:    input,
		NResults: cfg.NumberDocuments,
		Where:    o.Where,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve contexts: %w", err)
	}
	return contexts, nil
}

func (a *App) queryOptions(opts []QueryOption) QueryOptions {
	o := NewQueryOptions(opts...)
	where := make(map[string]any, len(o.Where)+1)
	maps.Copy(where, o.Where)
	where["app_id"] = a.cfg.ID
	o.Where = where
	return o
}

// Query answers input using the retrieved contexts.
func (a *App) Query(ctx context.Context, input string, cfg llm.Config, opts ...QueryOption) (llm.Answer, error) {
	return a.answer(ctx, input, cfg, nil, opts)
}

// Chat is Query with the recent history of the session rendered into the
// prompt. The exchange is appended to the history.
func (a *App) Chat(ctx context.Context, sessionID, input string, cfg llm.Config, opts ...QueryOption) (llm.Answer, error) {
	if sessionID == "" {
		sessionID = "default"
	}

	var history []string
	if a.history != nil {
		msgs, err := a.history.Recent(ctx, a.cfg.ID, sessionID, a.cfg.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load chat history: %w", err)
		}
		for _, m := range msgs {
			history = append(history, m.Role+": "+m.Content)
		}
	}

	answer, err := a.answer(ctx, input, cfg, history, opts)
	if err != nil {
		return nil, err
	}

	if a.history != nil && !a.queryOptions(opts).DryRun {
		now := time.Now().UTC()
		err := a.history.Append(ctx,
			&ChatMessage{AppID: a.cfg.ID, SessionID: sessionID, Role: RoleHuman, Content: input, CreatedAt: now},
			&ChatMessage{AppID: a.cfg.ID, SessionID: sessionID, Role: RoleAI, Content: llm.Text(answer), CreatedAt: now},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to save chat history: %w", err)
		}
	}
	return answer, nil
}

func (a *App) answer(ctx context.Context, input string, cfg llm.Config, history []string, opts []QueryOption) (llm.Answer, error) {
	if input == "" {
		return nil, ErrEmptyQuery
	}
	o := a.queryOptions(opts)
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	contexts, err := a.Retrieve(ctx, input, cfg, opts...)
	if err != nil {
		return nil, err
	}

	prompt, err := llm.GeneratePrompt(cfg, input, contexts, history)
	if err != nil {
		return nil, err
	}
	log.Debug("generated prompt", "app_id", a.cfg.ID, "contexts", len(contexts), "history", len(history))

	if o.DryRun {
		return llm.Immediate{Content: prompt}, nil
	}

	adapter := a.llm
	if o.StreamWriter != nil {
		adapter = adapter.WithStreamWriter(o.StreamWriter)
	}
	return adapter.Answer(ctx, prompt, cfg)
}

func (a *App) Count(ctx context.Context) (int, error) {
	return a.db.Count(ctx)
}

// Reset removes the app's records from the collection along with its data
// sources and chat history. Records of other apps sharing the collection
// are kept.
func (a *App) Reset(ctx context.Context) error {
	if err := a.db.Delete(ctx, map[string]any{"app_id": a.cfg.ID}); err != nil {
		return fmt.Errorf("failed to delete app records: %w", err)
	}
	if a.sources != nil {
		if err := a.sources.DeleteByApp(ctx, a.cfg.ID); err != nil {
			return fmt.Errorf("failed to delete data sources: %w", err)
		}
	}
	if a.history != nil {
		if err := a.history.DeleteByApp(ctx, a.cfg.ID); err != nil {
			return fmt.Errorf("failed to delete chat history: %w", err)
		}
	}
	log.Info("reset app", "app_id", a.cfg.ID)
	return nil
}

func (a *App) DataSources(ctx context.Context) ([]DataSource, error) {
	if a.sources == nil {
		return []DataSource{}, nil
	}
	return a.sources.List(ctx, a.cfg.ID)
}
