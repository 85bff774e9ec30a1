package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/portfolio-gate/pkg/http"
)

// StoreHealthChecker is implemented by every attempt store backend
type StoreHealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the attempt store is reachable
type HealthHandler struct {
	store   StoreHealthChecker
	backend string
	logger  *slog.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store StoreHealthChecker, backend string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, backend: backend, logger: logger}
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	State  string `json:"state"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("attempt store health check failed",
			slog.String("store", h.backend),
			slog.String("error", err.Error()))
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Store: h.backend, State: "down"})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Store: h.backend, State: "up"})
}
