package v2

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetJob godoc
// @Summary Get the status of an ingestion job
// @Tags resources
// @Param id path int true "Job ID"
// @Produce json
// @Success 200 {object} job.Job
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	if h.jobs == nil {
		sendError(c, http.StatusServiceUnavailable, errUploadsDisabled)
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid job id %q", c.Param("id")))
		return
	}

	j, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, j)
}
