package v2

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/TayoO/embedchain/src/core/app"
	"github.com/TayoO/embedchain/src/infrastructure/job"
)

var errUploadsDisabled = errors.New("resource uploads are not configured")

// CreateResource godoc
// @Summary Upload a file to be added to the app by a worker
// @Tags resources
// @Accept multipart/form-data
// @Param file formData file true "Resource file"
// @Param dataType formData string false "text_file or pdf_file, guessed from the file name when empty"
// @Param metadata formData string false "JSON object stored with every chunk"
// @Produce json
// @Success 202 {object} job.Job
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /resources [post]
func (h *Handler) CreateResource(c *gin.Context) {
	if h.uploads == nil || h.jobs == nil {
		sendError(c, http.StatusServiceUnavailable, errUploadsDisabled)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	dataType, err := app.ParseDataType(c.PostForm("dataType"), name)
	if err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}
	if dataType == app.DataTypeText {
		sendError(c, http.StatusBadRequest, fmt.Errorf("uploads must be text_file or pdf_file"))
		return
	}

	var metadata map[string]any
	if raw := c.PostForm("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("metadata must be a JSON object: %w", err))
			return
		}
	}

	object := uuid.NewString() + "/" + name
	ctx := c.Request.Context()
	if err := h.uploads.PutObject(ctx, h.bucket, object, file, header.Size, header.Header.Get("Content-Type")); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	created, err := h.jobs.EnqueueIngest(ctx, job.IngestPayload{
		Bucket:   h.bucket,
		Object:   object,
		Name:     name,
		DataType: dataType,
		Metadata: metadata,
	})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusAccepted, created)
}
