package source

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers source ingestion routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/sources", func(r chi.Router) {
		r.Post("/", h.UploadFile)
		r.Post("/web", h.IngestWeb)
		r.Post("/audio", h.UploadAudio)
		r.Post("/image", h.IngestImage)
		r.Delete("/{source}", h.DeleteSource)
	})
}
