package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/file"
	"github.com/Alijeyrad/dentlab_backend/internal/service/settings"
)

type SettingsHandler struct {
	svc   settings.Service
	files file.Service
}

func NewSettingsHandler(svc settings.Service, files file.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc, files: files}
}

// Get serves GET /settings/<kind>.
func (h *SettingsHandler) Get(kind repo.SettingKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		st, err := h.svc.Get(c.Context(), kind)
		if err != nil {
			return mapSettingsError(c, err)
		}
		return ok(c, "Content retrieved successfully", st)
	}
}

// Put serves PATCH /settings/create-<kind>.
func (h *SettingsHandler) Put(kind repo.SettingKind) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body struct {
			Description string `json:"description"`
		}
		if err := decodeBody(c, &body); err != nil {
			return badRequest(c, "Invalid request body")
		}
		images, err := uploadImages(c, h.files, file.FolderSettings)
		if err != nil {
			return mapFileError(c, err)
		}
		st, err := h.svc.Put(c.Context(), kind, body.Description, images)
		if err != nil {
			h.files.Remove(c.Context(), images...)
			return mapSettingsError(c, err)
		}
		return ok(c, "Content saved successfully", st)
	}
}

func mapSettingsError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, settings.ErrNotFound),
		errors.Is(err, settings.ErrUnknownKind):
		return notFound(c, err.Error())
	case errors.Is(err, settings.ErrEmpty):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
