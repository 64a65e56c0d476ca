package v2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TayoO/embedchain/src/core/app"
	"github.com/TayoO/embedchain/src/core/llm"
	"github.com/TayoO/embedchain/src/infrastructure/job"
)

type fakeService struct {
	added     []string
	lastCfg   llm.Config
	lastOpts  app.QueryOptions
	sessionID string
	chunks    []string
	err       error
	reset     bool
	stream    bool
}

func (f *fakeService) ID() string { return "bot" }

func (f *fakeService) LLMConfig() llm.Config {
	return llm.Config{Model: "gpt-4", Temperature: 0.2, NumberDocuments: 3, Stream: f.stream}
}

func (f *fakeService) Add(ctx context.Context, source string, dataType app.DataType, metadata map[string]any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.added = append(f.added, string(dataType)+":"+source)
	return "doc-1", nil
}

func (f *fakeService) AddReader(ctx context.Context, name string, r io.Reader, dataType app.DataType, metadata map[string]any) (string, error) {
	return "doc-2", nil
}

func (f *fakeService) Retrieve(ctx context.Context, input string, cfg llm.Config, opts ...app.QueryOption) ([]string, error) {
	f.lastCfg = cfg
	f.lastOpts = app.NewQueryOptions(opts...)
	return []string{"ctx one", "ctx two"}, f.err
}

func (f *fakeService) Query(ctx context.Context, input string, cfg llm.Config, opts ...app.QueryOption) (llm.Answer, error) {
	f.lastCfg = cfg
	f.lastOpts = app.NewQueryOptions(opts...)
	if f.err != nil {
		return nil, f.err
	}
	if f.lastOpts.DryRun {
		return llm.Immediate{Content: "prompt for " + input}, nil
	}
	if cfg.Stream && f.lastOpts.StreamWriter != nil {
		for _, c := range f.chunks {
			_, _ = f.lastOpts.StreamWriter.Write([]byte(c))
		}
		return llm.Streamed{}, nil
	}
	return llm.Immediate{Content: "answer to " + input}, nil
}

func (f *fakeService) Chat(ctx context.Context, sessionID, input string, cfg llm.Config, opts ...app.QueryOption) (llm.Answer, error) {
	f.sessionID = sessionID
	return f.Query(ctx, input, cfg, opts...)
}

func (f *fakeService) Count(ctx context.Context) (int, error) { return 7, f.err }

func (f *fakeService) Reset(ctx context.Context) error {
	f.reset = true
	return f.err
}

func (f *fakeService) DataSources(ctx context.Context) ([]app.DataSource, error) {
	return []app.DataSource{{ID: 1, AppID: "bot", DocID: "doc-1", DataType: app.DataTypeText, Source: "local", Chunks: 1}}, nil
}

type fakeUploader struct {
	bucket, object, content string
}

func (f *fakeUploader) PutObject(ctx context.Context, bucketName, objectName string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.bucket, f.object, f.content = bucketName, objectName, string(data)
	return nil
}

type fakeJobs struct {
	payload job.IngestPayload
}

func (f *fakeJobs) EnqueueIngest(ctx context.Context, p job.IngestPayload) (*job.Job, error) {
	f.payload = p
	return &job.Job{ID: 5, TaskType: job.TaskTypeIngest, Status: job.JobStatusPending}, nil
}

func (f *fakeJobs) Get(ctx context.Context, id int) (*job.Job, error) {
	if id != 5 {
		return nil, job.ErrJobNotFound
	}
	return &job.Job{ID: 5, Status: job.JobStatusCompleted, Result: json.RawMessage(`{"doc_id":"doc-2"}`)}, nil
}

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdd(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/add", map[string]any{"source": "hello"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"docId":"doc-1"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/add", map[string]any{"source": "more", "dataType": "text"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"text:hello", "text:more"}, svc.added)

	w = doJSON(t, r, http.MethodPost, "/api/v1/add", map[string]any{"source": "x", "dataType": "web_page"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/add", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddDoesNotReadServerFiles(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secrets.env")
	require.NoError(t, os.WriteFile(secret, []byte("DB_PASSWORD=hunter2"), 0600))

	svc := &fakeService{}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	for _, dataType := range []string{"text_file", "pdf_file"} {
		t.Run(dataType, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/add", map[string]any{"source": secret, "dataType": dataType})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "INVALID_ARGUMENT")
			assert.Contains(t, w.Body.String(), "/resources")
		})
	}
	assert.Empty(t, svc.added)
}

func TestQuery(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]any{
		"query":       "capital?",
		"temperature": 0.9,
		"topP":        0.5,
		"where":       map[string]any{"doc_id": "d1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"answer to capital?"}`, w.Body.String())

	assert.Equal(t, "gpt-4", svc.lastCfg.Model)
	assert.Equal(t, 0.9, svc.lastCfg.Temperature)
	require.NotNil(t, svc.lastCfg.TopP)
	assert.Equal(t, 0.5, *svc.lastCfg.TopP)
	assert.Equal(t, 3, svc.lastCfg.NumberDocuments)
	assert.Equal(t, map[string]any{"doc_id": "d1"}, svc.lastOpts.Where)

	w = doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]any{"query": "capital?", "dryRun": true, "stream": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"prompt for capital?"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryStream(t *testing.T) {
	svc := &fakeService{chunks: []string{"Hel", "lo"}}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]any{"query": "greet", "stream": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event:message\ndata:Hel\n\n")
	assert.Contains(t, body, "event:message\ndata:lo\n\n")
	assert.True(t, strings.HasSuffix(body, "event:done\ndata:\n\n"), body)
}

func TestQueryUsesConfiguredStream(t *testing.T) {
	svc := &fakeService{stream: true, chunks: []string{"Hi"}}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]any{"query": "greet"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, svc.lastCfg.Stream)

	w = doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]any{"query": "greet", "stream": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"answer to greet"}`, w.Body.String())
	assert.False(t, svc.lastCfg.Stream)
}

func TestQueryBackendError(t *testing.T) {
	svc := &fakeService{err: errors.New("429 rate limited")}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]any{"query": "q", "stream": true})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "429 rate limited")

	svc.err = app.ErrEmptyQuery
	w = doJSON(t, r, http.MethodPost, "/api/v1/query", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/chat", map[string]any{"query": "hi", "sessionId": "s1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"answer to hi"}`, w.Body.String())
	assert.Equal(t, "s1", svc.sessionID)
}

func TestSearch(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	w := doJSON(t, r, http.MethodPost, "/api/v1/search", map[string]any{"query": "q", "numberDocuments": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"contexts":["ctx one","ctx two"]}`, w.Body.String())
	assert.Equal(t, 2, svc.lastCfg.NumberDocuments)
}

func TestCountResetDataSources(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(NewHandler(svc, nil, "", nil, nil))

	w := doJSON(t, r, http.MethodGet, "/api/v1/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":7}`, w.Body.String())

	w = doJSON(t, r, http.MethodDelete, "/api/v1/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, svc.reset)

	w = doJSON(t, r, http.MethodGet, "/api/v1/data-sources", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sources []app.DataSource
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sources))
	require.Len(t, sources, 1)
	assert.Equal(t, "doc-1", sources[0].DocID)
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateResource(t *testing.T) {
	uploads := &fakeUploader{}
	jobs := &fakeJobs{}
	r := setupRouter(NewHandler(&fakeService{}, uploads, "uploads", jobs, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "report.pdf", "%PDF", map[string]string{"metadata": `{"team":"docs"}`}))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	assert.Equal(t, "uploads", uploads.bucket)
	assert.True(t, strings.HasSuffix(uploads.object, "/report.pdf"))
	assert.Equal(t, "%PDF", uploads.content)
	assert.Equal(t, job.IngestPayload{
		Bucket:   "uploads",
		Object:   uploads.object,
		Name:     "report.pdf",
		DataType: app.DataTypePDFFile,
		Metadata: map[string]any{"team": "docs"},
	}, jobs.payload)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "notes.txt", "x", map[string]string{"metadata": "not json"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "notes.txt", "x", map[string]string{"dataType": "text"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateResourceWithoutUploads(t *testing.T) {
	r := setupRouter(NewHandler(&fakeService{}, nil, "", nil, nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "notes.txt", "x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetJob(t *testing.T) {
	r := setupRouter(NewHandler(&fakeService{}, &fakeUploader{}, "uploads", &fakeJobs{}, nil))

	w := doJSON(t, r, http.MethodGet, "/api/v1/jobs/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got job.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, job.JobStatusCompleted, got.Status)
	assert.JSONEq(t, `{"doc_id":"doc-2"}`, string(got.Result))

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/6", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/jobs/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckHealth(t *testing.T) {
	checks := map[string]HealthCheck{
		"vectordb": func(ctx context.Context) error { return nil },
	}
	r := setupRouter(NewHandler(&fakeService{}, nil, "", nil, checks))

	w := doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","components":{"vectordb":"ok"}}`, w.Body.String())

	checks["embedder"] = func(ctx context.Context) error { return errors.New("connection refused") }
	w = doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","components":{"vectordb":"ok","embedder":"connection refused"}}`, w.Body.String())
}
