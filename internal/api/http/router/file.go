package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
)

func (r *Router) registerFileRoutes(api fiber.Router, h *handler.FileHandler, g guards) {
	group := api.Group("/file", g.auth)
	group.Post("/upload", h.Upload)
	group.Get("/download", h.Download)
}
