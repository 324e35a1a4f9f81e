package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
)

func (r *Router) registerNotificationRoutes(api fiber.Router, h *handler.NotificationHandler, g guards) {
	res := authorize.ResourceNotification

	group := api.Group("/notification", g.auth)
	group.Get("/notify-list", g.perm(res, authorize.ActionList), h.List)
	group.Patch("/mark-read/:id", g.perm(res, authorize.ActionUpdate), h.MarkRead)
	group.Patch("/mark-all-read", g.perm(res, authorize.ActionUpdate), h.MarkAllRead)
}
