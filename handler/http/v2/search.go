package v2

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TayoO/embedchain/src/core/app"
)

type searchRequest struct {
	Query           string         `json:"query" binding:"required"`
	NumberDocuments *int           `json:"numberDocuments"`
	Where           map[string]any `json:"where"`
}

type searchResponse struct {
	Contexts []string `json:"contexts"`
}

// Search godoc
// @Summary Retrieve the stored chunks closest to a query
// @Tags search
// @Accept json
// @Produce json
// @Param body body searchRequest true "Search parameters"
// @Success 200 {object} searchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /search [post]
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	cfg := llmOverrides{NumberDocuments: req.NumberDocuments}.apply(h.svc.LLMConfig())
	contexts, err := h.svc.Retrieve(c.Request.Context(), req.Query, cfg, app.WithWhere(req.Where))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if contexts == nil {
		contexts = []string{}
	}

	sendJSON(c, http.StatusOK, searchResponse{Contexts: contexts})
}
