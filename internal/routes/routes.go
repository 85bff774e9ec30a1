package routes

import (
	"github.com/BradenHooton/portfolio-gate/internal/handlers"
	"github.com/BradenHooton/portfolio-gate/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	gateHandler *handlers.GateHandler,
	healthHandler *handlers.HealthHandler,
	rateLimitConfig middleware.RateLimitConfig,
) {
	// The attempt store is the real brute-force guard; this only caps raw request volume
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/validate-password", gateHandler.ValidatePassword)

	router.Get("/health", healthHandler.Health)
}
