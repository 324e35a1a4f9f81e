package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
	"github.com/Alijeyrad/dentlab_backend/internal/service/user"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
	"github.com/Alijeyrad/dentlab_backend/pkg/reqctx"
)

const LocalsActor = "auth.actor"

type TokenVerifier interface {
	Verify(token string) (*pasetotoken.Claims, error)
}

// SessionChecker is satisfied by auth.Service.
type SessionChecker interface {
	Session(ctx context.Context, sessionID uuid.UUID) error
}

// ActorLoader is satisfied by user.Service.
type ActorLoader interface {
	Actor(ctx context.Context, sub pasetotoken.Subject) (*cases.Actor, error)
}

func deny(c fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}

// authenticate resolves the request's access token into claims and the
// acting account. It returns the HTTP status to answer with on failure.
func authenticate(c fiber.Ctx, tokens TokenVerifier, sessions SessionChecker, actors ActorLoader) (*pasetotoken.Claims, *cases.Actor, int, string) {
	raw := pasetotoken.TokenFromRequest(c)
	if raw == "" {
		return nil, nil, fiber.StatusUnauthorized, "Unauthorized: no token provided"
	}
	claims, err := tokens.Verify(raw)
	if err != nil || claims.Type != pasetotoken.TokenTypeAccess {
		return nil, nil, fiber.StatusUnauthorized, "Invalid or expired token"
	}
	if claims.SessionID != nil {
		if err := sessions.Session(c.Context(), *claims.SessionID); err != nil {
			return nil, nil, fiber.StatusUnauthorized, "Session expired. Please log in again"
		}
	}
	actor, err := actors.Actor(c.Context(), claims.Subject())
	if err != nil {
		if errors.Is(err, user.ErrAccountInactive) {
			return nil, nil, fiber.StatusForbidden, err.Error()
		}
		return nil, nil, fiber.StatusUnauthorized, "User not found"
	}
	return claims, actor, 0, ""
}

func attach(c fiber.Ctx, claims *pasetotoken.Claims, actor *cases.Actor) {
	c.Locals(pasetotoken.CtxKeyClaims, claims)
	c.Locals(LocalsActor, actor)
	c.SetContext(reqctx.WithClaims(c.Context(), claims))
}

// AuthRequired accepts an access token from the bearer header, the
// accessToken cookie, the x-access-token header or the query string, checks
// its session in Redis and loads the acting account.
func AuthRequired(tokens TokenVerifier, sessions SessionChecker, actors ActorLoader) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims, actor, status, msg := authenticate(c, tokens, sessions, actors)
		if status != 0 {
			return deny(c, status, msg)
		}
		attach(c, claims, actor)
		return c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(tokens TokenVerifier, sessions SessionChecker, actors ActorLoader) fiber.Handler {
	return func(c fiber.Ctx) error {
		if claims, actor, status, _ := authenticate(c, tokens, sessions, actors); status == 0 {
			attach(c, claims, actor)
		}
		return c.Next()
	}
}

// ActorFromFiber returns the caller set by AuthRequired or OptionalAuth.
func ActorFromFiber(c fiber.Ctx) (*cases.Actor, bool) {
	a, ok := c.Locals(LocalsActor).(*cases.Actor)
	return a, ok && a != nil
}
