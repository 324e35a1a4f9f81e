package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/service/notification"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func recipient(c fiber.Ctx) (notification.Recipient, bool) {
	actor, valid := middleware.ActorFromFiber(c)
	if !valid {
		return notification.Recipient{}, false
	}
	return notification.Recipient{ID: actor.ID, Role: actor.Role}, true
}

// GET /notification/notify-list
func (h *NotificationHandler) List(c fiber.Ctx) error {
	who, valid := recipient(c)
	if !valid {
		return unauthorized(c)
	}
	createdBy, err := queryUUID(c, "createdBy")
	if err != nil {
		return badRequest(c, err.Error())
	}
	list, err := h.svc.List(c.Context(), who, notification.ListRequest{
		ReceiverRole: constants.Role(strings.ToLower(c.Query("receiverRole"))),
		IsRead:       queryBool(c, "isRead"),
		CreatedBy:    createdBy,
		Limit:        queryInt(c, "limit", 0),
	})
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, "Notifications retrieved successfully", list)
}

// PATCH /notification/mark-read/:id
func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	who, valid := recipient(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	n, err := h.svc.MarkRead(c.Context(), who, id)
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, "Notification marked as read", n)
}

// PATCH /notification/mark-all-read
func (h *NotificationHandler) MarkAllRead(c fiber.Ctx) error {
	who, valid := recipient(c)
	if !valid {
		return unauthorized(c)
	}
	n, err := h.svc.MarkAllRead(c.Context(), who)
	if err != nil {
		return mapNotificationError(c, err)
	}
	return ok(c, "All notifications marked as read", fiber.Map{"modifiedCount": n})
}

func mapNotificationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, notification.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, notification.ErrInvalidInput):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
