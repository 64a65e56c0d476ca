package app_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/TayoO/embedchain/src/core/app"
	"github.com/TayoO/embedchain/src/core/llm"
	"github.com/TayoO/embedchain/src/storage/vectordb"
)

type record struct {
	id       string
	text     string
	metadata map[string]any
}

// memoryDB is an in-memory vectordb.VectorDB that returns matches in
// insertion order.
type memoryDB struct {
	collection  string
	records     []record
	initialized int
	lastQuery   vectordb.QueryRequest
	adds        int
}

func (m *memoryDB) Initialize(ctx context.Context) error {
	m.initialized++
	return nil
}

func (m *memoryDB) SetCollectionName(name string) error {
	m.collection = name
	return nil
}

func matches(meta, where map[string]any) bool {
	for k, v := range where {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func (m *memoryDB) Get(ctx context.Context, ids []string, where map[string]any, limit int) ([]string, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var found []string
	for _, r := range m.records {
		if (len(ids) == 0 || want[r.id]) && matches(r.metadata, where) {
			found = append(found, r.id)
		}
	}
	return found, nil
}

func (m *memoryDB) Add(ctx context.Context, req vectordb.AddRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	m.adds++
	for i, id := range req.IDs {
		m.records = append(m.records, record{id: id, text: req.Documents[i], metadata: req.Metadatas[i]})
	}
	return nil
}

func (m *memoryDB) Query(ctx context.Context, req vectordb.QueryRequest) ([]string, error) {
	m.lastQuery = req
	var out []string
	for _, r := range m.records {
		if len(out) == req.NResults {
			break
		}
		if matches(r.metadata, req.Where) {
			out = append(out, r.text)
		}
	}
	return out, nil
}

func (m *memoryDB) Count(ctx context.Context) (int, error) {
	return len(m.records), nil
}

func (m *memoryDB) Delete(ctx context.Context, where map[string]any) error {
	if len(where) == 0 {
		return vectordb.ErrEmptyFilter
	}
	kept := m.records[:0]
	for _, r := range m.records {
		if !matches(r.metadata, where) {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *memoryDB) Reset(ctx context.Context) error {
	m.records = nil
	return nil
}

type echoModel struct {
	prompts []string
	err     error
}

func (e *echoModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if e.err != nil {
		return nil, e.err
	}
	last := messages[len(messages)-1].Parts[0].(llms.TextContent).Text
	e.prompts = append(e.prompts, last)

	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	if opts.StreamingFunc != nil {
		for _, c := range []string{"streamed ", "answer"} {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "streamed answer"}}}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "answer"}}}, nil
}

type memorySources struct {
	saved []app.DataSource
}

func (m *memorySources) Save(ctx context.Context, src *app.DataSource) error {
	src.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, *src)
	return nil
}

func (m *memorySources) List(ctx context.Context, appID string) ([]app.DataSource, error) {
	var out []app.DataSource
	for _, s := range m.saved {
		if s.AppID == appID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memorySources) DeleteByApp(ctx context.Context, appID string) error {
	kept := m.saved[:0]
	for _, s := range m.saved {
		if s.AppID != appID {
			kept = append(kept, s)
		}
	}
	m.saved = kept
	return nil
}

type memoryHistory struct {
	msgs []app.ChatMessage
}

func (m *memoryHistory) Append(ctx context.Context, msgs ...*app.ChatMessage) error {
	for _, msg := range msgs {
		m.msgs = append(m.msgs, *msg)
	}
	return nil
}

func (m *memoryHistory) Recent(ctx context.Context, appID, sessionID string, limit int) ([]app.ChatMessage, error) {
	var out []app.ChatMessage
	for _, msg := range m.msgs {
		if msg.AppID == appID && msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryHistory) DeleteByApp(ctx context.Context, appID string) error {
	m.msgs = nil
	return nil
}

type upperConverter struct{}

func (upperConverter) ConvertToText(ctx context.Context, filename string, content []byte) (string, error) {
	return strings.ToUpper(string(content)), nil
}

func newApp(t *testing.T, cfg app.Config, opts ...app.Option) (*app.App, *memoryDB, *echoModel) {
	t.Helper()
	db := &memoryDB{}
	model := &echoModel{}
	a, err := app.New(context.Background(), cfg, llm.NewAdapter(model), db, opts...)
	require.NoError(t, err)
	return a, db, model
}

func TestNewInitializesCollection(t *testing.T) {
	_, db, _ := newApp(t, app.Config{ID: "bot"})
	assert.Empty(t, db.collection)
	assert.Equal(t, 1, db.initialized)

	_, db, _ = newApp(t, app.Config{CollectionName: "my_docs"})
	assert.Equal(t, "my_docs", db.collection)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := app.New(context.Background(), app.Config{Chunker: app.ChunkerConfig{Size: 10, Overlap: 10}}, llm.NewAdapter(&echoModel{}), &memoryDB{})
	assert.ErrorIs(t, err, app.ErrInvalidConfig)
}

func TestAddText(t *testing.T) {
	sources := &memorySources{}
	a, db, _ := newApp(t, app.Config{ID: "bot"}, app.WithDataSourceStore(sources))
	ctx := context.Background()

	docID, err := a.Add(ctx, "Paris is the capital of France.", app.DataTypeText, map[string]any{"lang": "en"})
	require.NoError(t, err)
	require.NotEmpty(t, docID)

	require.Len(t, db.records, 1)
	rec := db.records[0]
	assert.Len(t, rec.id, 64)
	assert.Equal(t, "Paris is the capital of France.", rec.text)
	assert.Equal(t, map[string]any{
		"lang":      "en",
		"url":       "local",
		"data_type": "text",
		"doc_id":    docID,
		"app_id":    "bot",
	}, rec.metadata)

	require.Len(t, sources.saved, 1)
	assert.Equal(t, docID, sources.saved[0].DocID)
	assert.Equal(t, 1, sources.saved[0].Chunks)

	again, err := a.Add(ctx, "Paris is the capital of France.", app.DataTypeText, nil)
	require.NoError(t, err)
	assert.Equal(t, docID, again)
	assert.Len(t, db.records, 1)
	assert.Equal(t, 1, db.adds)
	assert.Len(t, sources.saved, 1)
}

func TestAddSplitsIntoChunks(t *testing.T) {
	a, db, _ := newApp(t, app.Config{Chunker: app.ChunkerConfig{Size: 30}})

	text := "First paragraph here.\n\nSecond paragraph here.\n\nFirst paragraph here."
	_, err := a.Add(context.Background(), text, app.DataTypeText, nil)
	require.NoError(t, err)

	docs := make([]string, 0, len(db.records))
	for _, r := range db.records {
		docs = append(docs, r.text)
	}
	assert.Equal(t, []string{"First paragraph here.", "Second paragraph here."}, docs)
}

func TestAddEmptyText(t *testing.T) {
	a, _, _ := newApp(t, app.Config{})
	_, err := a.Add(context.Background(), "   ", app.DataTypeText, nil)
	assert.ErrorIs(t, err, app.ErrNoContent)
}

func TestAddFiles(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	pdf := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(txt, []byte("plain notes"), 0644))
	require.NoError(t, os.WriteFile(pdf, []byte("pdf body"), 0644))

	a, db, _ := newApp(t, app.Config{}, app.WithConverter(upperConverter{}))
	ctx := context.Background()

	_, err := a.Add(ctx, txt, app.DataTypeTextFile, nil)
	require.NoError(t, err)
	_, err = a.Add(ctx, pdf, app.DataTypePDFFile, nil)
	require.NoError(t, err)

	require.Len(t, db.records, 2)
	assert.Equal(t, "plain notes", db.records[0].text)
	assert.Equal(t, txt, db.records[0].metadata["url"])
	assert.Equal(t, "PDF BODY", db.records[1].text)
	assert.Equal(t, "pdf_file", db.records[1].metadata["data_type"])

	_, err = a.Add(ctx, filepath.Join(dir, "missing.txt"), app.DataTypeTextFile, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAddPDFWithoutConverter(t *testing.T) {
	a, _, _ := newApp(t, app.Config{})
	_, err := a.AddReader(context.Background(), "x.pdf", strings.NewReader("x"), app.DataTypePDFFile, nil)
	assert.ErrorIs(t, err, app.ErrNoConverter)
}

func TestAddReader(t *testing.T) {
	a, db, _ := newApp(t, app.Config{ID: "bot"})

	docID, err := a.AddReader(context.Background(), "upload.txt", strings.NewReader("uploaded text"), app.DataTypeTextFile, map[string]any{"job": "1"})
	require.NoError(t, err)
	require.Len(t, db.records, 1)
	assert.Equal(t, "upload.txt", db.records[0].metadata["url"])
	assert.Equal(t, docID, db.records[0].metadata["doc_id"])
	assert.Equal(t, "1", db.records[0].metadata["job"])
}

func TestSameContentInTwoApps(t *testing.T) {
	db := &memoryDB{}
	ctx := context.Background()
	for _, id := range []string{"one", "two"} {
		a, err := app.New(ctx, app.Config{ID: id}, llm.NewAdapter(&echoModel{}), db)
		require.NoError(t, err)
		_, err = a.Add(ctx, "shared text", app.DataTypeText, nil)
		require.NoError(t, err)
	}
	require.Len(t, db.records, 2)
	assert.NotEqual(t, db.records[0].id, db.records[1].id)
}

func TestQuery(t *testing.T) {
	a, db, model := newApp(t, app.Config{ID: "bot"})
	ctx := context.Background()
	_, err := a.Add(ctx, "Paris is the capital of France.", app.DataTypeText, nil)
	require.NoError(t, err)

	got, err := a.Query(ctx, "What is the capital of France?", llm.Config{}, app.WithWhere(map[string]any{"data_type": "text"}))
	require.NoError(t, err)
	assert.Equal(t, llm.Immediate{Content: "answer"}, got)

	assert.Equal(t, map[string]any{"app_id": "bot", "data_type": "text"}, db.lastQuery.Where)
	assert.Equal(t, 1, db.lastQuery.NResults)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Paris is the capital of France.")
	assert.Contains(t, model.prompts[0], "Query: What is the capital of France?")
}

func TestQueryStreams(t *testing.T) {
	a, _, _ := newApp(t, app.Config{})
	var buf bytes.Buffer

	got, err := a.Query(context.Background(), "q", llm.Config{Stream: true}, app.WithStreamWriter(&buf))
	require.NoError(t, err)
	assert.IsType(t, llm.Streamed{}, got)
	assert.Equal(t, "streamed answer", buf.String())
}

func TestQueryDryRun(t *testing.T) {
	a, _, model := newApp(t, app.Config{})
	_, err := a.Add(context.Background(), "some context", app.DataTypeText, nil)
	require.NoError(t, err)

	got, err := a.Query(context.Background(), "q", llm.Config{}, app.DryRun())
	require.NoError(t, err)
	assert.Contains(t, llm.Text(got), "some context")
	assert.Empty(t, model.prompts)
}

func TestQueryErrors(t *testing.T) {
	a, _, model := newApp(t, app.Config{})

	_, err := a.Query(context.Background(), "", llm.Config{})
	assert.ErrorIs(t, err, app.ErrEmptyQuery)

	backendErr := errors.New("model unavailable")
	model.err = backendErr
	_, err = a.Query(context.Background(), "q", llm.Config{})
	assert.ErrorIs(t, err, backendErr)
}

func TestChatKeepsHistory(t *testing.T) {
	history := &memoryHistory{}
	a, _, model := newApp(t, app.Config{ID: "bot"}, app.WithHistoryStore(history))
	ctx := context.Background()

	_, err := a.Chat(ctx, "s1", "hello", llm.Config{})
	require.NoError(t, err)
	_, err = a.Chat(ctx, "s1", "and again", llm.Config{})
	require.NoError(t, err)

	require.Len(t, model.prompts, 2)
	assert.NotContains(t, model.prompts[0], "History:")
	assert.Contains(t, model.prompts[1], "History: human: hello\nai: answer")

	require.Len(t, history.msgs, 4)
	assert.Equal(t, app.RoleHuman, history.msgs[2].Role)
	assert.Equal(t, "and again", history.msgs[2].Content)

	_, err = a.Chat(ctx, "s2", "other session", llm.Config{})
	require.NoError(t, err)
	assert.NotContains(t, model.prompts[2], "History:")
}

func TestResetAndDataSources(t *testing.T) {
	sources := &memorySources{}
	history := &memoryHistory{}
	a, db, _ := newApp(t, app.Config{ID: "bot"}, app.WithDataSourceStore(sources), app.WithHistoryStore(history))
	ctx := context.Background()

	_, err := a.Add(ctx, "one", app.DataTypeText, nil)
	require.NoError(t, err)
	_, err = a.Chat(ctx, "s", "q", llm.Config{})
	require.NoError(t, err)

	n, err := a.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := a.DataSources(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, a.Reset(ctx))
	n, err = a.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sources.saved)
	assert.Empty(t, history.msgs)
	assert.Equal(t, 1, db.initialized)
}

func TestResetKeepsOtherApps(t *testing.T) {
	db := &memoryDB{}
	sources := &memorySources{}
	ctx := context.Background()

	apps := map[string]*app.App{}
	for _, id := range []string{"one", "two"} {
		a, err := app.New(ctx, app.Config{ID: id}, llm.NewAdapter(&echoModel{}), db, app.WithDataSourceStore(sources))
		require.NoError(t, err)
		_, err = a.Add(ctx, "notes of "+id, app.DataTypeText, nil)
		require.NoError(t, err)
		apps[id] = a
	}
	require.Len(t, db.records, 2)

	require.NoError(t, apps["one"].Reset(ctx))

	require.Len(t, db.records, 1)
	assert.Equal(t, "two", db.records[0].metadata["app_id"])
	list, err := apps["two"].DataSources(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = apps["one"].DataSources(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	contexts, err := apps["two"].Retrieve(ctx, "notes", llm.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes of two"}, contexts)
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in, source string
		want       app.DataType
		wantErr    bool
	}{
		{in: "text", want: app.DataTypeText},
		{in: "pdf_file", want: app.DataTypePDFFile},
		{in: "", source: "a/Report.PDF", want: app.DataTypePDFFile},
		{in: "", source: "notes.md", want: app.DataTypeTextFile},
		{in: "youtube_video", wantErr: true},
	}
	for _, tt := range tests {
		got, err := app.ParseDataType(tt.in, tt.source)
		if tt.wantErr {
			assert.ErrorIs(t, err, app.ErrUnsupportedDataType)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
