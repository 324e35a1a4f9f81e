package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/service/search"
)

type SearchHandler struct {
	svc *search.Service
}

func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// found answers {success, count, data}.
func found[T any](c fiber.Ctx, rows []T, err error) error {
	if err != nil {
		if errors.Is(err, search.ErrQueryRequired) {
			return badRequest(c, err.Error())
		}
		return mapCaseError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "count": len(rows), "data": rows})
}

// GET /search/user?q=
func (h *SearchHandler) Users(c fiber.Ctx) error {
	rows, err := h.svc.Users(c.Context(), c.Query("q"))
	return found(c, rows, err)
}

// GET /search/product?q=
func (h *SearchHandler) Products(c fiber.Ctx) error {
	rows, err := h.svc.Products(c.Context(), c.Query("q"))
	return found(c, rows, err)
}

// GET /search/case?q=
func (h *SearchHandler) Cases(c fiber.Ctx) error {
	actor, valid := middleware.ActorFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	rows, err := h.svc.Cases(c.Context(), actor, c.Query("q"))
	return found(c, rows, err)
}

// GET /search/clinic?q=
func (h *SearchHandler) Clinics(c fiber.Ctx) error {
	rows, err := h.svc.Clinics(c.Context(), c.Query("q"))
	return found(c, rows, err)
}

// GET /search/lab?q=
func (h *SearchHandler) Labs(c fiber.Ctx) error {
	rows, err := h.svc.Labs(c.Context(), c.Query("q"))
	return found(c, rows, err)
}
