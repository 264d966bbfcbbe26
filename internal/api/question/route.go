package question

import "github.com/gofiber/fiber/v3"

func RegisterRoutes(r fiber.Router, h *Handler) {
	grp := r.Group("/questions")

	grp.Post("/generate", h.HandleGenerate)
	grp.Post("/feedback", h.HandleFeedback)
	grp.Get("/topics", h.HandleTopics)
}
