package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/service/clinic"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

// OrgHandler serves the clinic and lab directories, which share one shape.
type OrgHandler struct {
	svc   clinic.Service
	title string
}

func NewOrgHandler(svc clinic.Service) *OrgHandler {
	name := svc.Kind().Name
	return &OrgHandler{svc: svc, title: strings.ToUpper(name[:1]) + name[1:]}
}

type orgBody struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Details *string `json:"details"`
}

// POST /clinic/create, /lab/create
func (h *OrgHandler) Create(c fiber.Ctx) error {
	var body orgBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	o, err := h.svc.Create(c.Context(), clinic.CreateRequest{
		Name:    deref(body.Name),
		Email:   deref(body.Email),
		Phone:   deref(body.Phone),
		Address: deref(body.Address),
		Details: deref(body.Details),
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return created(c, h.title+" created successfully", o)
}

func (h *OrgHandler) list(c fiber.Ctx, status string) error {
	if status == "" {
		status = strings.ToLower(c.Query("status"))
	}
	res, err := h.svc.List(c.Context(), clinic.ListRequest{
		Status: status,
		Search: strings.TrimSpace(c.Query("search")),
		Page:   queryPage(c),
	})
	if err != nil {
		return internalError(c, err)
	}
	return okPage(c, h.title+"s retrieved successfully", res.Data,
		pagination(res.Page, res.PerPage, res.Total, res.TotalPages))
}

// GET /clinic/get, /lab/get
func (h *OrgHandler) List(c fiber.Ctx) error { return h.list(c, "") }

// GET /lab/active-labs
func (h *OrgHandler) Active(c fiber.Ctx) error { return h.list(c, constants.StatusActive) }

// GET /clinic/single/:id, /lab/single/:id
func (h *OrgHandler) Get(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	o, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return ok(c, h.title+" retrieved successfully", o)
}

// PUT /clinic/update/:id, /lab/update/:id
func (h *OrgHandler) Update(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body orgBody
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	o, err := h.svc.Update(c.Context(), id, clinic.UpdateRequest{
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Address: body.Address,
		Details: body.Details,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return ok(c, h.title+" updated successfully", o)
}

// PATCH /clinic/change-status/:id, /lab/change-lab-status/:id
func (h *OrgHandler) ChangeStatus(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	o, err := h.svc.ChangeStatus(c.Context(), id, body.Status)
	if err != nil {
		return h.mapError(c, err)
	}
	return ok(c, h.title+" status updated successfully", o)
}

// DELETE /clinic/delete/:id, /lab/delete/:id
func (h *OrgHandler) Delete(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.svc.Delete(c.Context(), id); err != nil {
		return h.mapError(c, err)
	}
	return ok(c, h.title+" deleted successfully", nil)
}

func (h *OrgHandler) mapError(c fiber.Ctx, err error) error {
	kind := h.svc.Kind()
	switch {
	case errors.Is(err, kind.NotFound):
		return notFound(c, err.Error())
	case errors.Is(err, kind.EmailExists):
		return conflict(c, err.Error())
	case errors.Is(err, clinic.ErrFieldsRequired),
		errors.Is(err, clinic.ErrInvalidEmail),
		errors.Is(err, clinic.ErrInvalidPhone),
		errors.Is(err, clinic.ErrInvalidStatus):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
