package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
)

func (r *Router) registerSearchRoutes(api fiber.Router, h *handler.SearchHandler, g guards) {
	group := api.Group("/search", g.auth, g.perm(authorize.ResourceSearch, authorize.ActionRead))
	group.Get("/user", h.Users)
	group.Get("/product", h.Products)
	group.Get("/case", h.Cases)
	group.Get("/clinic", h.Clinics)
	group.Get("/lab", h.Labs)
}
