package handlers

import (
	"net/http"

	"github.com/anstrom/netenum/internal/logging"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"API is running"`
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	logger *logging.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *logging.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// Health reports that the API is up.
//
// @Summary Health check
// @Description Reports that the API is running.
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, HealthResponse{Status: "API is running"})
}
