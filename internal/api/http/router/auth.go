package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

func (r *Router) registerAuthRoutes(api fiber.Router, h *handler.AuthHandler, ah *handler.AdminHandler, g guards) {
	superOnly := g.roles(middleware.MsgSuperAdminOnly, constants.RoleSuperAdmin)

	group := api.Group("/auth")
	group.Post("/signup", g.auth, superOnly, h.Signup)
	group.Post("/login", g.limiter, h.AdminLogin)
	group.Post("/logout", g.auth, h.Logout)
	group.Post("/refresh-token", h.Refresh)
	group.Post("/forgot-password", g.limiter, h.ForgotPassword)
	group.Post("/resend-otp", g.limiter, h.ForgotPassword)
	group.Post("/verify-reset-otp", g.limiter, h.VerifyResetOTP)
	group.Post("/reset-password", g.limiter, h.ResetPassword)
	group.Post("/change-password", g.auth, h.ChangePassword)
	group.Delete("/delete-admin/:id", g.auth, superOnly, h.DeleteAdmin)
	group.Patch("/update-admin-personal-info", g.auth, ah.UpdatePersonalInfo)
}
