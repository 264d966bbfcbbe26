package history

import "github.com/gofiber/fiber/v3"

func RegisterRoutes(r fiber.Router, h *Handler) {
	grp := r.Group("/history")

	grp.Get("/", h.HandleList)
	grp.Get("/:id", h.HandleGet)
}
