package api

import (
	"net/http"
	"time"

	"github.com/standuphq/standup-engine/internal/api/respond"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	serviceHealthy func() bool
}

// NewHealthHandler builds the handler around a cached health function; nil
// means "always healthy" (used before checkers start and in tests).
func NewHealthHandler(serviceHealthy func() bool) *HealthHandler {
	if serviceHealthy == nil {
		serviceHealthy = func() bool { return true }
	}
	return &HealthHandler{serviceHealthy: serviceHealthy}
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.serviceHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
