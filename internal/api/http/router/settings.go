package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
)

func (r *Router) registerSettingsRoutes(api fiber.Router, h *handler.SettingsHandler, g guards) {
	group := api.Group("/settings")
	for _, kind := range []repo.SettingKind{repo.SettingAboutUs, repo.SettingPrivacyPolicy, repo.SettingTerms} {
		group.Get("/"+string(kind), h.Get(kind))
		group.Patch("/create-"+string(kind), g.auth,
			g.perm(authorize.ResourceSettings, authorize.ActionUpdate), h.Put(kind))
	}
}
