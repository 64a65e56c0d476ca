package v2

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// CheckHealth godoc
// @Summary Check system health status
// @Tags system
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{Status: "ok", Components: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](c.Request.Context()); err != nil {
			status.Status = "degraded"
			status.Components[name] = err.Error()
			continue
		}
		status.Components[name] = "ok"
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	sendJSON(c, code, status)
}
