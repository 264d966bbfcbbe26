package ingest

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Post("/ingest", h.HandleIngest)
	r.Post("/ingest/upload", h.HandleUpload)
	r.Get("/ingest/transcripts", h.HandleTranscripts)
}
