package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
	"github.com/Alijeyrad/dentlab_backend/internal/service/file"
)

type CaseHandler struct {
	svc   cases.Service
	files file.Service
}

func NewCaseHandler(svc cases.Service, files file.Service) *CaseHandler {
	return &CaseHandler{svc: svc, files: files}
}

// caseBody accepts JSON or multipart; under multipart the tier trees and
// age arrive as JSON text.
type caseBody struct {
	CaseType     *string            `json:"caseType"`
	Gender       *string            `json:"gender"`
	Age          *int               `json:"age"`
	CaseNumber   *string            `json:"caseNumber"`
	PatientID    *string            `json:"patientID"`
	ScanNumber   *string            `json:"scanNumber"`
	SelectedTier *string            `json:"selectedTier"`
	Standard     *repo.StandardTier `json:"standard"`
	Premium      *repo.PremiumTier  `json:"premium"`
	Description  *string            `json:"description"`
	ClinicID     *string            `json:"clinicId"`
	ProductID    *string            `json:"product"`
}

var caseRawFields = []string{"age", "standard", "premium"}

func (h *CaseHandler) attachments(c fiber.Ctx) ([]repo.Attachment, error) {
	parts := files(c, "globalAttachments", "attachments", "files")
	if len(parts) == 0 {
		return nil, nil
	}
	return h.files.Upload(c.Context(), file.FolderCases, parts)
}

// respond answers a lifecycle write, flagging failed side effects.
func respond(c fiber.Ctx, status int, msg string, out *cases.Outcome) error {
	degraded(c, out.FailedEffects())
	return c.Status(status).JSON(envelope{Success: true, Message: msg, Data: out.Case})
}

// POST /case/create-case
func (h *CaseHandler) Create(c fiber.Ctx) error {
	actor, valid := middleware.ActorFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	var body caseBody
	if err := decodeBody(c, &body, caseRawFields...); err != nil {
		return badRequest(c, "Invalid request body")
	}
	clinicID, err := uuidField(body.ClinicID)
	if err != nil {
		return badRequest(c, err.Error())
	}
	productID, err := uuidField(body.ProductID)
	if err != nil {
		return badRequest(c, err.Error())
	}
	attachments, err := h.attachments(c)
	if err != nil {
		return mapFileError(c, err)
	}

	out, err := h.svc.Create(c.Context(), actor, cases.CreateRequest{
		CaseType:          repo.CaseType(deref(body.CaseType)),
		Gender:            repo.Gender(deref(body.Gender)),
		Age:               lo.FromPtr(body.Age),
		CaseNumber:        deref(body.CaseNumber),
		PatientID:         deref(body.PatientID),
		ScanNumber:        deref(body.ScanNumber),
		SelectedTier:      repo.Tier(deref(body.SelectedTier)),
		Standard:          body.Standard,
		Premium:           body.Premium,
		Description:       deref(body.Description),
		ClinicID:          clinicID,
		ProductID:         productID,
		GlobalAttachments: attachments,
	})
	if err != nil {
		h.files.Remove(c.Context(), attachmentURLs(attachments)...)
		return mapCaseError(c, err)
	}
	return respond(c, fiber.StatusCreated, "Case created successfully", out)
}

func caseQuery(c fiber.Ctx) (cases.Query, error) {
	clinicID, err := queryUUID(c, "clinicId")
	if err != nil {
		return cases.Query{}, err
	}
	var statuses []repo.CaseStatus
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, repo.CaseStatus(s))
		}
	}
	return cases.Query{
		ClinicID:       clinicID,
		Statuses:       statuses,
		ApprovalStatus: repo.ApprovalStatus(c.Query("approvalStatus")),
		Tier:           repo.Tier(c.Query("selectedTier")),
		PatientID:      strings.TrimSpace(c.Query("patientID")),
		CaseNumber:     strings.TrimSpace(c.Query("caseNumber")),
		Search:         strings.TrimSpace(c.Query("search")),
	}, nil
}

type listFunc func(fiber.Ctx, *cases.Actor, cases.ListRequest) (*cases.PaginatedResult[*repo.Case], error)

// list serves every case listing; preset narrows the query after the
// request's own filters are read.
func (h *CaseHandler) list(c fiber.Ctx, fetch listFunc, preset func(*cases.Query)) error {
	actor, _ := middleware.ActorFromFiber(c)
	q, err := caseQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if preset != nil {
		preset(&q)
	}
	res, err := fetch(c, actor, cases.ListRequest{Query: q, Sort: querySort(c), Page: queryPage(c)})
	if err != nil {
		return mapCaseError(c, err)
	}
	return okPage(c, "Cases retrieved successfully", res.Data,
		pagination(res.Page, res.PerPage, res.Total, res.TotalPages))
}

func (h *CaseHandler) fetch(c fiber.Ctx, a *cases.Actor, req cases.ListRequest) (*cases.PaginatedResult[*repo.Case], error) {
	return h.svc.List(c.Context(), a, req)
}

func (h *CaseHandler) fetchArchived(c fiber.Ctx, a *cases.Actor, req cases.ListRequest) (*cases.PaginatedResult[*repo.Case], error) {
	return h.svc.ListArchived(c.Context(), a, req)
}

// GET /case/all-case
func (h *CaseHandler) List(c fiber.Ctx) error { return h.list(c, h.fetch, nil) }

// GET /case/pending-cases
func (h *CaseHandler) Pending(c fiber.Ctx) error {
	return h.list(c, h.fetch, cases.PendingReview)
}

// GET /case/accepted-cases
func (h *CaseHandler) Accepted(c fiber.Ctx) error {
	return h.list(c, h.fetch, cases.AwaitingAssignment)
}

// GET /case/technician-cases
func (h *CaseHandler) Technician(c fiber.Ctx) error {
	return h.list(c, h.fetch, cases.AssignedWork)
}

// GET /case/archived-cases
func (h *CaseHandler) Archived(c fiber.Ctx) error { return h.list(c, h.fetchArchived, nil) }

// GET /case/get-cases-by-patient/:patientID
func (h *CaseHandler) ByPatient(c fiber.Ctx) error {
	patientID := strings.TrimSpace(c.Params("patientID"))
	return h.list(c, h.fetch, func(q *cases.Query) { q.PatientIDExact = patientID })
}

// GET /case/get-cases-by-clinic/:clinicId
func (h *CaseHandler) ByClinic(c fiber.Ctx) error {
	clinicID, err := paramUUID(c, "clinicId")
	if err != nil {
		return badRequest(c, err.Error())
	}
	return h.list(c, h.fetch, func(q *cases.Query) { q.ClinicID = &clinicID })
}

// GET /case/single-case/:id
func (h *CaseHandler) Get(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	cs, err := h.svc.Get(c.Context(), actor, id)
	if err != nil {
		return mapCaseError(c, err)
	}
	return ok(c, "Case retrieved successfully", cs)
}

// GET /case/stats
func (h *CaseHandler) Stats(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	q, err := caseQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	st, err := h.svc.Stats(c.Context(), actor, q)
	if err != nil {
		return mapCaseError(c, err)
	}
	return ok(c, "Case stats retrieved successfully", st)
}

// PUT /case/update-case/:id
func (h *CaseHandler) Update(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body caseBody
	if err := decodeBody(c, &body, caseRawFields...); err != nil {
		return badRequest(c, "Invalid request body")
	}
	productID, err := uuidField(body.ProductID)
	if err != nil {
		return badRequest(c, err.Error())
	}
	attachments, err := h.attachments(c)
	if err != nil {
		return mapFileError(c, err)
	}

	req := cases.UpdateRequest{
		Age:         body.Age,
		CaseNumber:  body.CaseNumber,
		PatientID:   body.PatientID,
		ScanNumber:  body.ScanNumber,
		Standard:    body.Standard,
		Premium:     body.Premium,
		Description: body.Description,
		ProductID:   productID,
		Attachments: attachments,
	}
	if body.CaseType != nil {
		req.CaseType = lo.ToPtr(repo.CaseType(*body.CaseType))
	}
	if body.Gender != nil {
		req.Gender = lo.ToPtr(repo.Gender(*body.Gender))
	}
	if body.SelectedTier != nil {
		req.SelectedTier = lo.ToPtr(repo.Tier(*body.SelectedTier))
	}

	cs, err := h.svc.Update(c.Context(), actor, id, req)
	if err != nil {
		h.files.Remove(c.Context(), attachmentURLs(attachments)...)
		return mapCaseError(c, err)
	}
	return ok(c, "Case updated successfully", cs)
}

// PUT /case/remake-case/:id
func (h *CaseHandler) Remake(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	out, err := h.svc.Remake(c.Context(), actor, id)
	if err != nil {
		return mapCaseError(c, err)
	}
	return respond(c, fiber.StatusOK, "Case submitted for remake", out)
}

// DELETE /case/delete-case/:id
func (h *CaseHandler) Delete(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	cs, err := h.svc.Get(c.Context(), actor, id)
	if err != nil {
		return mapCaseError(c, err)
	}
	if err := h.svc.Delete(c.Context(), actor, id); err != nil {
		return mapCaseError(c, err)
	}
	h.files.Remove(c.Context(), attachmentURLs(cs.GlobalAttachments)...)
	return ok(c, "Case deleted successfully", nil)
}

// PATCH /case/update-case-status/:id
func (h *CaseHandler) UpdateStatus(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
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
	out, err := h.svc.UpdateStatus(c.Context(), actor, id, body.Status)
	if err != nil {
		return mapCaseError(c, err)
	}
	return respond(c, fiber.StatusOK, "Case status updated successfully", out)
}

// PATCH /case/admin-approve/:id
func (h *CaseHandler) Review(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		Action          string `json:"action"`
		RejectionReason string `json:"rejectionReason"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	out, err := h.svc.Review(c.Context(), actor, id, cases.ReviewRequest{
		Action:          cases.ReviewAction(body.Action),
		RejectionReason: body.RejectionReason,
	})
	if err != nil {
		return mapCaseError(c, err)
	}
	msg := "Case accepted successfully"
	if out.Case.AdminApproval.Status == repo.ApprovalRejected {
		msg = "Case rejected successfully"
	}
	return respond(c, fiber.StatusOK, msg, out)
}

func (h *CaseHandler) assign(c fiber.Ctx, field string) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body map[string]string
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	techID, err := uuid.Parse(strings.TrimSpace(body[field]))
	if err != nil {
		return badRequest(c, field+" must be a valid ID")
	}
	out, err := h.svc.AssignTechnician(c.Context(), actor, id, techID)
	if err != nil {
		return mapCaseError(c, err)
	}
	return respond(c, fiber.StatusOK, "Technician assigned successfully", out)
}

// PATCH /case/assign-technician/:id
func (h *CaseHandler) AssignTechnician(c fiber.Ctx) error { return h.assign(c, "technicianId") }

// PATCH /case/assign-case/:id
func (h *CaseHandler) AssignCase(c fiber.Ctx) error { return h.assign(c, "assignedTo") }

// PATCH /case/complete-case/:id
func (h *CaseHandler) Complete(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	out, err := h.svc.Complete(c.Context(), actor, id)
	if err != nil {
		return mapCaseError(c, err)
	}
	return respond(c, fiber.StatusOK, "Case marked as completed", out)
}

// POST /case/add-note/:id
func (h *CaseHandler) AddNote(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	cs, err := h.svc.AddNote(c.Context(), actor, id, body.Text)
	if err != nil {
		return mapCaseError(c, err)
	}
	return ok(c, "Note added successfully", cs)
}

// POST /case/archive-old
func (h *CaseHandler) ArchiveOld(c fiber.Ctx) error {
	res, err := h.svc.Sweep(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	return ok(c, "Old cases archived", res)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapCaseError(c fiber.Ctx, err error) error {
	var verr *cases.ValidationError
	switch {
	case errors.As(err, &verr):
		return badRequest(c, verr.Error())
	case errors.Is(err, cases.ErrCaseNotFound):
		return notFound(c, "Case not found")
	case errors.Is(err, cases.ErrForbidden),
		errors.Is(err, cases.ErrNotAssignee):
		return forbidden(c, err.Error())
	case errors.Is(err, cases.ErrPatientIDExists),
		errors.Is(err, cases.ErrAlreadyReviewed):
		return conflict(c, err.Error())
	case errors.Is(err, cases.ErrNotApproved),
		errors.Is(err, cases.ErrReasonRequired),
		errors.Is(err, cases.ErrInvalidAction),
		errors.Is(err, cases.ErrInvalidStatus),
		errors.Is(err, cases.ErrInvalidTransition),
		errors.Is(err, cases.ErrNoTechnician),
		errors.Is(err, cases.ErrInvalidTechnician),
		errors.Is(err, cases.ErrArchived),
		errors.Is(err, cases.ErrCaseNumberNeeded),
		errors.Is(err, cases.ErrInvalidGender),
		errors.Is(err, cases.ErrInvalidAge),
		errors.Is(err, cases.ErrInvalidCaseType),
		errors.Is(err, cases.ErrInvalidTier),
		errors.Is(err, cases.ErrNoteRequired),
		errors.Is(err, cases.ErrSearchRequired):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
