package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
)

func (r *Router) registerProductRoutes(api fiber.Router, h *handler.ProductHandler, g guards) {
	res := authorize.ResourceProduct

	group := api.Group("/product", g.auth)
	group.Post("/create", g.perm(res, authorize.ActionCreate), h.Create)
	group.Get("/all", g.perm(res, authorize.ActionList), h.List)
	group.Get("/single/:id", g.perm(res, authorize.ActionRead), h.Get)
	group.Put("/update/:id", g.perm(res, authorize.ActionUpdate), h.Update)
	group.Delete("/delete/:id", g.perm(res, authorize.ActionDelete), h.Delete)
}
