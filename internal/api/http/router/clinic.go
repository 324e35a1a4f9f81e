package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

func (r *Router) registerClinicRoutes(api fiber.Router, h *handler.OrgHandler, g guards) {
	superOnly := g.roles(middleware.MsgSuperAdminOnly, constants.RoleSuperAdmin)
	res := authorize.ResourceClinic

	group := api.Group("/clinic", g.auth)
	group.Post("/create", superOnly, h.Create)
	group.Get("/get", g.perm(res, authorize.ActionList), h.List)
	group.Get("/single/:id", g.perm(res, authorize.ActionRead), h.Get)
	group.Put("/update/:id", g.perm(res, authorize.ActionUpdate), h.Update)
	group.Patch("/change-status/:id", g.perm(res, authorize.ActionUpdate), h.ChangeStatus)
	group.Delete("/delete/:id", superOnly, h.Delete)
}

func (r *Router) registerLabRoutes(api fiber.Router, h *handler.OrgHandler, g guards) {
	res := authorize.ResourceLab

	group := api.Group("/lab", g.auth)
	group.Post("/create", g.perm(res, authorize.ActionCreate), h.Create)
	group.Get("/get", g.perm(res, authorize.ActionList), h.List)
	group.Get("/active-labs", g.perm(res, authorize.ActionList), h.Active)
	group.Get("/single/:id", g.perm(res, authorize.ActionRead), h.Get)
	group.Put("/update/:id", g.perm(res, authorize.ActionUpdate), h.Update)
	group.Patch("/change-lab-status/:id", g.perm(res, authorize.ActionUpdate), h.ChangeStatus)
	group.Delete("/delete/:id", g.perm(res, authorize.ActionDelete), h.Delete)
}
