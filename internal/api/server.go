package api

import (
	"net/http"
	"time"

	askapi "github.com/askbase/knowledge-backend/internal/api/ask"
	"github.com/askbase/knowledge-backend/internal/api/docs"
	exportapi "github.com/askbase/knowledge-backend/internal/api/export"
	"github.com/askbase/knowledge-backend/internal/api/middleware"
	sourceapi "github.com/askbase/knowledge-backend/internal/api/source"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	askHandler *askapi.Handler,
	sourceHandler *sourceapi.Handler,
	exportHandler *exportapi.Handler,
	verifier middleware.TokenVerifier,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                  // Recover from panics
	r.Use(chimiddleware.RequestID)                  // Add request ID
	r.Use(middleware.Logger(logger))                // Log requests
	r.Use(middleware.CORS)                          // Handle CORS
	r.Use(chimiddleware.Timeout(120 * time.Second)) // Ingestion can be slow

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	// API routes share the caller identity middleware
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(verifier))

		askapi.RegisterRoutes(r, askHandler)
		sourceapi.RegisterRoutes(r, sourceHandler)
		exportapi.RegisterRoutes(r, exportHandler)
	})

	return r
}
