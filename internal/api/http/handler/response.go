package handler

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/pkg/reqctx"
)

// HeaderDegraded marks a successful write whose side effects partly failed.
const HeaderDegraded = "X-Degraded"

// Pagination is the paging block of list responses.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

func ok(c fiber.Ctx, msg string, data any) error {
	return c.JSON(envelope{Success: true, Message: msg, Data: data})
}

func okPage(c fiber.Ctx, msg string, data any, p Pagination) error {
	return c.JSON(envelope{Success: true, Message: msg, Data: data, Pagination: &p})
}

func created(c fiber.Ctx, msg string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(envelope{Success: true, Message: msg, Data: data})
}

func fail(c fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(envelope{Success: false, Message: msg})
}

func badRequest(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusBadRequest, msg)
}

func unauthorized(c fiber.Ctx) error {
	return fail(c, fiber.StatusUnauthorized, "Unauthorized")
}

func forbidden(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusForbidden, msg)
}

func notFound(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusNotFound, msg)
}

func conflict(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusConflict, msg)
}

func tooManyRequests(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusTooManyRequests, msg)
}

// internalError logs the cause with the request id and answers without it.
func internalError(c fiber.Ctx, err error) error {
	slog.ErrorContext(c.Context(), "request failed",
		"request_id", reqctx.RequestIDFromContext(c.Context()),
		"method", c.Method(),
		"path", c.Path(),
		"error", err,
	)
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// degraded flags the response when best-effort side effects failed.
func degraded(c fiber.Ctx, effects []string) {
	if len(effects) == 0 {
		return
	}
	c.Set(HeaderDegraded, "true")
	c.Set(HeaderDegraded+"-Effects", strings.Join(effects, ","))
}
