package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

func (r *Router) registerAdminRoutes(api fiber.Router, h *handler.AdminHandler, g guards) {
	adminOnly := g.roles(middleware.MsgAdminOnly, constants.RoleAdmin, constants.RoleSuperAdmin)

	group := api.Group("/admin", g.auth, adminOnly)
	group.Get("/all-admin", g.perm(authorize.ResourceAdmin, authorize.ActionList), h.List)
	group.Get("/single-admin/:id", g.perm(authorize.ResourceAdmin, authorize.ActionRead), h.Get)
	// the service limits admins to their own record
	group.Put("/update-admin/:id", h.Update)
	group.Patch("/update-admin-image/:id", h.UpdateImages)
}
