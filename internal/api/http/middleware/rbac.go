package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
)

// RequirePermission checks the caller's role group against a casbin rule in
// the sys domain. It must run after AuthRequired.
func RequirePermission(auth authorize.IAuthorization, resource authorize.Resource, action authorize.Action) fiber.Handler {
	return func(c fiber.Ctx) error {
		actor, ok := ActorFromFiber(c)
		if !ok {
			return deny(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		err := auth.MustEnforce(c.Context(), authorize.SubjectFor(actor.ID), authorize.DomainSys, resource, action)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, authorize.ErrForbidden):
			return deny(c, fiber.StatusForbidden, "Access denied")
		default:
			slog.ErrorContext(c.Context(), "authorization check failed",
				"resource", resource, "action", action, "error", err)
			return deny(c, fiber.StatusInternalServerError, "Internal server error")
		}
	}
}
