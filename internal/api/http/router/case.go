package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

func (r *Router) registerCaseRoutes(api fiber.Router, h *handler.CaseHandler, g guards) {
	perm := g.perm
	list := perm(authorize.ResourceCase, authorize.ActionList)

	group := api.Group("/case")

	// anonymous listing is opt-in
	if r.p.Cfg.Cases.PublicSearch {
		group.Get("/all-case", g.optional, h.List)
	} else {
		group.Get("/all-case", g.auth, list, h.List)
	}

	group.Post("/create-case", g.auth, perm(authorize.ResourceCase, authorize.ActionCreate), h.Create)
	group.Get("/single-case/:id", g.auth, perm(authorize.ResourceCase, authorize.ActionRead), h.Get)
	group.Get("/stats", g.auth, list, h.Stats)
	group.Get("/pending-cases", g.auth, list, h.Pending)
	group.Get("/accepted-cases", g.auth, list, h.Accepted)
	group.Get("/technician-cases", g.auth, list, h.Technician)
	group.Get("/archived-cases", g.auth, list, h.Archived)
	group.Get("/get-cases-by-patient/:patientID", g.auth, list, h.ByPatient)
	group.Get("/get-cases-by-clinic/:clinicId", g.auth, list, h.ByClinic)

	group.Put("/update-case/:id", g.auth, perm(authorize.ResourceCase, authorize.ActionUpdate), h.Update)
	group.Put("/remake-case/:id", g.auth, perm(authorize.ResourceCase, authorize.ActionUpdate), h.Remake)
	group.Post("/add-note/:id", g.auth, perm(authorize.ResourceCase, authorize.ActionRead), h.AddNote)
	group.Delete("/delete-case/:id", g.auth,
		g.roles(middleware.MsgAdminOnly, constants.RoleAdmin, constants.RoleSuperAdmin), h.Delete)

	group.Patch("/update-case-status/:id", g.auth, perm(authorize.ResourceCaseStatus, authorize.ActionUpdate), h.UpdateStatus)
	group.Patch("/admin-approve/:id", g.auth, perm(authorize.ResourceCaseReview, authorize.ActionExecute), h.Review)
	group.Patch("/assign-technician/:id", g.auth, perm(authorize.ResourceCaseAssignment, authorize.ActionExecute), h.AssignTechnician)
	group.Patch("/assign-case/:id", g.auth, perm(authorize.ResourceCaseAssignment, authorize.ActionExecute), h.AssignCase)
	group.Patch("/complete-case/:id", g.auth, perm(authorize.ResourceCaseStatus, authorize.ActionUpdate), h.Complete)
	group.Post("/archive-old", g.auth, perm(authorize.ResourceCaseArchive, authorize.ActionExecute), h.ArchiveOld)
}
