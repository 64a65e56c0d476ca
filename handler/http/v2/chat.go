package v2

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TayoO/embedchain/src/core/app"
	"github.com/TayoO/embedchain/src/core/llm"
)

// llmOverrides are per-request changes to the app's model config
type llmOverrides struct {
	Model           *string  `json:"model"`
	Temperature     *float64 `json:"temperature"`
	MaxTokens       *int     `json:"maxTokens"`
	TopP            *float64 `json:"topP"`
	SystemPrompt    *string  `json:"systemPrompt"`
	NumberDocuments *int     `json:"numberDocuments"`
	Template        *string  `json:"template"`
	Stream          *bool    `json:"stream"`
}

func (o llmOverrides) apply(cfg llm.Config) llm.Config {
	if o.Model != nil {
		cfg.Model = *o.Model
	}
	if o.Temperature != nil {
		cfg.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		cfg.MaxTokens = *o.MaxTokens
	}
	if o.TopP != nil {
		cfg.TopP = o.TopP
	}
	if o.SystemPrompt != nil {
		cfg.SystemPrompt = *o.SystemPrompt
	}
	if o.NumberDocuments != nil {
		cfg.NumberDocuments = *o.NumberDocuments
	}
	if o.Template != nil {
		cfg.Template = *o.Template
	}
	if o.Stream != nil {
		cfg.Stream = *o.Stream
	}
	return cfg
}

type queryRequest struct {
	Query  string         `json:"query" binding:"required"`
	Where  map[string]any `json:"where"`
	DryRun bool           `json:"dryRun"`
	llmOverrides
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	queryRequest
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// Query godoc
// @Summary Answer a question from the stored data
// @Description Streams server-sent events when stream is true.
// @Tags app
// @Accept json
// @Produce json
// @Param body body queryRequest true "Query parameters"
// @Success 200 {object} answerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /query [post]
func (h *Handler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	cfg := req.apply(h.svc.LLMConfig())
	h.answer(c, req, cfg, func(opts ...app.QueryOption) (llm.Answer, error) {
		return h.svc.Query(c.Request.Context(), req.Query, cfg, opts...)
	})
}

// Chat godoc
// @Summary Answer a question using the stored data and the session history
// @Description Streams server-sent events when stream is true.
// @Tags app
// @Accept json
// @Produce json
// @Param body body chatRequest true "Chat parameters"
// @Success 200 {object} answerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /chat [post]
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	cfg := req.apply(h.svc.LLMConfig())
	h.answer(c, req.queryRequest, cfg, func(opts ...app.QueryOption) (llm.Answer, error) {
		return h.svc.Chat(c.Request.Context(), req.SessionID, req.Query, cfg, opts...)
	})
}

func (h *Handler) answer(c *gin.Context, req queryRequest, cfg llm.Config, run func(opts ...app.QueryOption) (llm.Answer, error)) {
	opts := []app.QueryOption{app.WithWhere(req.Where)}
	if req.DryRun {
		opts = append(opts, app.DryRun())
	}

	if !cfg.Stream || req.DryRun {
		answer, err := run(opts...)
		if err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}
		sendJSON(c, http.StatusOK, answerResponse{Answer: llm.Text(answer)})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	w := &sseWriter{c: c}
	_, err := run(append(opts, app.WithStreamWriter(w))...)
	if err != nil {
		if !c.Writer.Written() {
			sendError(c, http.StatusInternalServerError, err)
			return
		}
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", "")
	c.Writer.Flush()
}

// sseWriter sends every streamed chunk as a message event
type sseWriter struct {
	c *gin.Context
}

var _ io.Writer = (*sseWriter)(nil)

func (w *sseWriter) Write(p []byte) (int, error) {
	w.c.SSEvent("message", string(p))
	w.c.Writer.Flush()
	return len(p), nil
}
