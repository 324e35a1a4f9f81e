package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

func (r *Router) registerUserRoutes(api fiber.Router, h *handler.UserHandler, authH *handler.AuthHandler, g guards) {
	superOnly := g.roles(middleware.MsgSuperAdminOnly, constants.RoleSuperAdmin)

	group := api.Group("/user")

	// staff auth
	group.Post("/user-login", g.limiter, authH.UserLogin)
	group.Post("/refresh-token", authH.Refresh)
	group.Post("/user-change-password", g.auth, authH.ChangePassword)
	group.Patch("/user-update-personal-info", g.auth, h.UpdatePersonalInfo)

	group.Post("/create-user", g.auth, superOnly, h.Create)
	group.Post("/labManager-create-labTechnician", g.auth,
		g.roles(middleware.MsgLabManagerOnly, constants.RoleLabManager),
		g.perm(authorize.ResourceTechnician, authorize.ActionCreate),
		h.CreateTechnician)

	group.Get("/get-all-user", g.auth, g.perm(authorize.ResourceUser, authorize.ActionList), h.List)
	group.Get("/all-block-user-list", g.auth, g.perm(authorize.ResourceUser, authorize.ActionList), h.Blocked)
	group.Get("/user-count-by-role", g.auth, g.perm(authorize.ResourceUser, authorize.ActionList), h.CountByRole)
	group.Get("/user-ratio-by-month", g.auth, g.perm(authorize.ResourceUser, authorize.ActionList), h.RatioByMonth)
	group.Get("/get-user/:id", g.auth, g.perm(authorize.ResourceUser, authorize.ActionRead), h.Get)

	group.Put("/update-user/:id", g.auth, g.perm(authorize.ResourceUser, authorize.ActionUpdate), h.Update)
	group.Patch("/change-user-status/:id", g.auth, g.perm(authorize.ResourceUser, authorize.ActionUpdate), h.ChangeStatus)
	group.Patch("/change-user-image/:id", g.auth, g.perm(authorize.ResourceUser, authorize.ActionUpdate), h.ChangeImages)
	group.Delete("/delete-user/:id", g.auth, superOnly, h.Delete)
}
