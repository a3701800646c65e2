package ask

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers question-answering routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/ask", h.Ask)
}
