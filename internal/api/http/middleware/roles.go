package middleware

import (
	"slices"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

const (
	MsgSuperAdminOnly = "Only Super Admin Can Perform This Action"
	MsgLabManagerOnly = "Forbidden: Only lab managers can access this"
	MsgAdminOnly      = "Forbidden: Only admins can access this"
)

// RequireRoles lets through callers holding one of roles and answers 403
// with msg otherwise. It must run after AuthRequired.
func RequireRoles(msg string, roles ...constants.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		actor, ok := ActorFromFiber(c)
		if !ok {
			return deny(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		if !slices.Contains(roles, actor.Role) {
			return deny(c, fiber.StatusForbidden, msg)
		}
		return c.Next()
	}
}
