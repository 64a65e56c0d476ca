package v2

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TayoO/embedchain/src/core/app"
)

type addRequest struct {
	Source   string         `json:"source" binding:"required"`
	DataType string         `json:"dataType"`
	Metadata map[string]any `json:"metadata"`
}

// Server paths are never read on behalf of an HTTP caller
var errFileSource = errors.New("files must be uploaded through /resources")

type addResponse struct {
	DocID string `json:"docId"`
}

// Add godoc
// @Summary Add text to the app
// @Description Only the text data type is accepted. Files go through /resources.
// @Tags app
// @Accept json
// @Produce json
// @Param body body addRequest true "Data source"
// @Success 201 {object} addResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /add [post]
func (h *Handler) Add(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	dataType := app.DataTypeText
	if req.DataType != "" {
		var err error
		dataType, err = app.ParseDataType(req.DataType, req.Source)
		if err != nil {
			sendError(c, http.StatusBadRequest, err)
			return
		}
	}
	if dataType != app.DataTypeText {
		sendError(c, http.StatusBadRequest, fmt.Errorf("data type %s: %w", dataType, errFileSource))
		return
	}

	docID, err := h.svc.Add(c.Request.Context(), req.Source, dataType, req.Metadata)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusCreated, addResponse{DocID: docID})
}

type countResponse struct {
	Count int `json:"count"`
}

// Count godoc
// @Summary Count stored chunks
// @Tags app
// @Produce json
// @Success 200 {object} countResponse
// @Failure 500 {object} ErrorResponse
// @Router /count [get]
func (h *Handler) Count(c *gin.Context) {
	n, err := h.svc.Count(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, countResponse{Count: n})
}

// Reset godoc
// @Summary Delete everything stored for the app
// @Tags app
// @Success 204 "No Content"
// @Failure 500 {object} ErrorResponse
// @Router /reset [delete]
func (h *Handler) Reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context()); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDataSources godoc
// @Summary List data sources added to the app
// @Tags app
// @Produce json
// @Success 200 {array} app.DataSource
// @Failure 500 {object} ErrorResponse
// @Router /data-sources [get]
func (h *Handler) ListDataSources(c *gin.Context) {
	sources, err := h.svc.DataSources(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, sources)
}
