package v2

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TayoO/embedchain/src/core/app"
	"github.com/TayoO/embedchain/src/core/llm"
	"github.com/TayoO/embedchain/src/infrastructure/job"
	"github.com/TayoO/embedchain/src/storage/vectordb"
)

// Uploader stores uploaded files until a worker ingests them
type Uploader interface {
	PutObject(ctx context.Context, bucketName, objectName string, r io.Reader, size int64, contentType string) error
}

type JobQueue interface {
	EnqueueIngest(ctx context.Context, p job.IngestPayload) (*job.Job, error)
	Get(ctx context.Context, id int) (*job.Job, error)
}

// HealthCheck reports nil when a dependency is reachable
type HealthCheck func(ctx context.Context) error

type Handler struct {
	svc     app.Service
	uploads Uploader
	bucket  string
	jobs    JobQueue
	checks  map[string]HealthCheck
}

// NewHandler serves svc. uploads and jobs may be nil, in which case resource
// uploads are rejected.
func NewHandler(svc app.Service, uploads Uploader, bucket string, jobs JobQueue, checks map[string]HealthCheck) *Handler {
	return &Handler{
		svc:     svc,
		uploads: uploads,
		bucket:  bucket,
		jobs:    jobs,
		checks:  checks,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// App routes
	v1.POST("/add", h.Add)
	v1.POST("/query", h.Query)
	v1.POST("/chat", h.Chat)
	v1.POST("/search", h.Search)
	v1.GET("/count", h.Count)
	v1.DELETE("/reset", h.Reset)
	v1.GET("/data-sources", h.ListDataSources)

	// Ingestion routes
	v1.POST("/resources", h.CreateResource)
	v1.GET("/jobs/:id", h.GetJob)

	// System routes
	v1.GET("/health", h.CheckHealth)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	var cfgErr *vectordb.ConfigError
	var typeErr *vectordb.TypeError
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, app.ErrEmptyQuery),
		errors.Is(err, app.ErrUnsupportedDataType),
		errors.Is(err, app.ErrNoContent),
		errors.Is(err, llm.ErrInvalidTemplate),
		errors.Is(err, vectordb.ErrLengthMismatch),
		errors.Is(err, vectordb.ErrDuplicateID):
		code = "INVALID_ARGUMENT"
		status = http.StatusBadRequest
	case errors.As(err, &cfgErr), errors.As(err, &typeErr):
		code = "MISCONFIGURED"
		status = http.StatusInternalServerError
	case status == http.StatusBadRequest:
		code = "INVALID_ARGUMENT"
	case status == http.StatusServiceUnavailable:
		code = "UNAVAILABLE"
	default:
		code = "INTERNAL_ERROR"
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
