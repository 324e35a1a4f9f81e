package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/service/admin"
	"github.com/Alijeyrad/dentlab_backend/internal/service/file"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type AdminHandler struct {
	svc   admin.Service
	files file.Service
}

func NewAdminHandler(svc admin.Service, files file.Service) *AdminHandler {
	return &AdminHandler{svc: svc, files: files}
}

func caller(c fiber.Ctx) (admin.Caller, bool) {
	actor, valid := middleware.ActorFromFiber(c)
	if !valid || actor.Kind != constants.KindAdmin {
		return admin.Caller{}, false
	}
	return admin.Caller{ID: actor.ID, Role: actor.Role}, true
}

// GET /admin/all-admin
func (h *AdminHandler) List(c fiber.Ctx) error {
	res, err := h.svc.List(c.Context(), strings.TrimSpace(c.Query("search")), queryPage(c))
	if err != nil {
		return internalError(c, err)
	}
	return okPage(c, "Admins retrieved successfully", res.Data,
		pagination(res.Page, res.PerPage, res.Total, res.TotalPages))
}

// GET /admin/single-admin/:id
func (h *AdminHandler) Get(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	a, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapAdminError(c, err)
	}
	return ok(c, "Admin retrieved successfully", a)
}

// PUT /admin/update-admin/:id
func (h *AdminHandler) Update(c fiber.Ctx) error {
	by, valid := caller(c)
	if !valid {
		return forbidden(c, middleware.MsgAdminOnly)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Phone *string `json:"phone"`
		Role  *string `json:"role"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req := admin.UpdateRequest{Name: body.Name, Email: body.Email, Phone: body.Phone}
	if body.Role != nil {
		r := constants.Role(strings.ToLower(*body.Role))
		req.Role = &r
	}

	a, err := h.svc.Update(c.Context(), by, id, req)
	if err != nil {
		return mapAdminError(c, err)
	}
	return ok(c, "Admin updated successfully", a)
}

// PATCH /admin/update-admin-image/:id
func (h *AdminHandler) UpdateImages(c fiber.Ctx) error {
	by, valid := caller(c)
	if !valid {
		return forbidden(c, middleware.MsgAdminOnly)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	images, err := uploadImages(c, h.files, file.FolderAdmins)
	if err != nil {
		return mapFileError(c, err)
	}
	a, err := h.svc.UpdateImages(c.Context(), by, id, images)
	if err != nil {
		h.files.Remove(c.Context(), images...)
		return mapAdminError(c, err)
	}
	return ok(c, "Admin images updated successfully", a)
}

// PATCH /auth/update-admin-personal-info
func (h *AdminHandler) UpdatePersonalInfo(c fiber.Ctx) error {
	by, valid := caller(c)
	if !valid {
		return forbidden(c, middleware.MsgAdminOnly)
	}
	var body struct {
		Name  *string `json:"name"`
		Phone *string `json:"phone"`
	}
	if err := decodeBody(c, &body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	images, err := uploadImages(c, h.files, file.FolderAdmins)
	if err != nil {
		return mapFileError(c, err)
	}
	a, err := h.svc.UpdatePersonalInfo(c.Context(), by.ID, admin.PersonalInfoRequest{
		Name:   body.Name,
		Phone:  body.Phone,
		Images: images,
	})
	if err != nil {
		h.files.Remove(c.Context(), images...)
		return mapAdminError(c, err)
	}
	return ok(c, "Personal information updated successfully", a)
}

func mapAdminError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, admin.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, admin.ErrEmailInUse):
		return conflict(c, err.Error())
	case errors.Is(err, admin.ErrForbidden):
		return forbidden(c, err.Error())
	case errors.Is(err, admin.ErrInvalidEmail),
		errors.Is(err, admin.ErrInvalidPhone),
		errors.Is(err, admin.ErrInvalidRole),
		errors.Is(err, admin.ErrImagesRequired):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
