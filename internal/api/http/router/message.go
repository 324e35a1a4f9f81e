package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
)

func (r *Router) registerMessageRoutes(api fiber.Router, h *handler.MessageHandler, g guards) {
	res := authorize.ResourceMessage

	group := api.Group("/message", g.auth)
	group.Get("/get-chat-list", g.perm(res, authorize.ActionList), h.ChatList)
	group.Get("/get_single_conversation/:id", g.perm(res, authorize.ActionRead), h.Conversation)
	group.Post("/send-message", g.perm(res, authorize.ActionCreate), h.Send)
	group.Patch("/edit-message/:id", g.perm(res, authorize.ActionUpdate), h.Edit)
	group.Delete("/delete-message/:id", g.perm(res, authorize.ActionDelete), h.Delete)
}
