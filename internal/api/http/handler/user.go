package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/file"
	"github.com/Alijeyrad/dentlab_backend/internal/service/user"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	s3pkg "github.com/Alijeyrad/dentlab_backend/pkg/s3"
)

type UserHandler struct {
	svc   user.Service
	files file.Service
}

func NewUserHandler(svc user.Service, files file.Service) *UserHandler {
	return &UserHandler{svc: svc, files: files}
}

type userBody struct {
	Name        *string           `json:"name"`
	Email       *string           `json:"email"`
	Phone       *string           `json:"phone"`
	Password    string            `json:"password"`
	Role        *string           `json:"role"`
	ClinicID    *string           `json:"clinic"`
	LabID       *string           `json:"lab"`
	Country     *string           `json:"country"`
	DateOfBirth *string           `json:"dateOfBirth"`
	Permissions *repo.Permissions `json:"permissions"`
}

// uploadImages stores the "images" parts of a multipart request.
func uploadImages(c fiber.Ctx, fs file.Service, folder file.Folder) ([]string, error) {
	parts := files(c, "images", "image")
	if len(parts) == 0 {
		return nil, nil
	}
	return fs.UploadURLs(c.Context(), folder, parts)
}

func (h *UserHandler) createRequest(c fiber.Ctx) (user.CreateRequest, error) {
	var body userBody
	if err := decodeBody(c, &body, "permissions"); err != nil {
		return user.CreateRequest{}, errors.New("Invalid request body")
	}
	clinicID, err := uuidField(body.ClinicID)
	if err != nil {
		return user.CreateRequest{}, err
	}
	labID, err := uuidField(body.LabID)
	if err != nil {
		return user.CreateRequest{}, err
	}
	dob, err := dateField(body.DateOfBirth)
	if err != nil {
		return user.CreateRequest{}, err
	}
	req := user.CreateRequest{
		Name:        deref(body.Name),
		Email:       deref(body.Email),
		Phone:       deref(body.Phone),
		Password:    body.Password,
		Role:        constants.Role(strings.ToLower(deref(body.Role))),
		ClinicID:    clinicID,
		LabID:       labID,
		Country:     deref(body.Country),
		DateOfBirth: dob,
	}
	if body.Permissions != nil {
		req.Permissions = *body.Permissions
	}
	return req, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *UserHandler) create(c fiber.Ctx, fn func(user.CreateRequest) (*user.Created, error)) error {
	req, err := h.createRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	images, err := uploadImages(c, h.files, file.FolderUsers)
	if err != nil {
		return mapFileError(c, err)
	}
	req.Images = images

	res, err := fn(req)
	if err != nil {
		h.files.Remove(c.Context(), images...)
		return mapUserError(c, err)
	}
	if res.MailFailed {
		degraded(c, []string{"mail"})
		return created(c, "User created, but the credentials email could not be sent", res.User)
	}
	return created(c, "User created successfully", res.User)
}

// POST /user/create-user  (superadmin)
func (h *UserHandler) Create(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	return h.create(c, func(req user.CreateRequest) (*user.Created, error) {
		return h.svc.Create(c.Context(), actor, req)
	})
}

// POST /user/labManager-create-labTechnician
func (h *UserHandler) CreateTechnician(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	return h.create(c, func(req user.CreateRequest) (*user.Created, error) {
		return h.svc.CreateTechnician(c.Context(), actor, req)
	})
}

// PUT /user/update-user/:id
func (h *UserHandler) Update(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var body userBody
	if err := decodeBody(c, &body, "permissions"); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req := user.UpdateRequest{
		Name:        body.Name,
		Email:       body.Email,
		Phone:       body.Phone,
		Country:     body.Country,
		Permissions: body.Permissions,
	}
	if body.Role != nil {
		r := constants.Role(strings.ToLower(*body.Role))
		req.Role = &r
	}
	if req.ClinicID, err = uuidField(body.ClinicID); err != nil {
		return badRequest(c, err.Error())
	}
	if req.LabID, err = uuidField(body.LabID); err != nil {
		return badRequest(c, err.Error())
	}
	if req.DateOfBirth, err = dateField(body.DateOfBirth); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Images, err = uploadImages(c, h.files, file.FolderUsers); err != nil {
		return mapFileError(c, err)
	}

	u, err := h.svc.Update(c.Context(), actor, id, req)
	if err != nil {
		h.files.Remove(c.Context(), req.Images...)
		return mapUserError(c, err)
	}
	return ok(c, "User updated successfully", u)
}

// PATCH /user/user-update-personal-info
func (h *UserHandler) UpdatePersonalInfo(c fiber.Ctx) error {
	actor, valid := middleware.ActorFromFiber(c)
	if !valid {
		return unauthorized(c)
	}
	var body struct {
		Name        *string `json:"name"`
		Phone       *string `json:"phone"`
		Country     *string `json:"country"`
		DateOfBirth *string `json:"dateOfBirth"`
	}
	if err := decodeBody(c, &body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	dob, err := dateField(body.DateOfBirth)
	if err != nil {
		return badRequest(c, err.Error())
	}
	images, err := uploadImages(c, h.files, file.FolderUsers)
	if err != nil {
		return mapFileError(c, err)
	}

	u, err := h.svc.UpdatePersonalInfo(c.Context(), actor.ID, user.PersonalInfoRequest{
		Name:        body.Name,
		Phone:       body.Phone,
		Country:     body.Country,
		DateOfBirth: dob,
		Images:      images,
	})
	if err != nil {
		h.files.Remove(c.Context(), images...)
		return mapUserError(c, err)
	}
	return ok(c, "Personal information updated successfully", u)
}

func (h *UserHandler) list(c fiber.Ctx, status string) error {
	clinicID, err := queryUUID(c, "clinic")
	if err != nil {
		return badRequest(c, err.Error())
	}
	labID, err := queryUUID(c, "lab")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if status == "" {
		status = c.Query("status")
	}

	res, err := h.svc.List(c.Context(), user.ListRequest{
		Filter: repo.UserFilter{
			Role:     constants.Role(strings.ToLower(c.Query("role"))),
			Status:   status,
			ClinicID: clinicID,
			LabID:    labID,
			Search:   strings.TrimSpace(c.Query("search")),
		},
		Sort: querySort(c),
		Page: queryPage(c),
	})
	if err != nil {
		return internalError(c, err)
	}
	return okPage(c, "Users retrieved successfully", res.Data,
		pagination(res.Page, res.PerPage, res.Total, res.TotalPages))
}

// GET /user/get-all-user
func (h *UserHandler) List(c fiber.Ctx) error { return h.list(c, "") }

// GET /user/all-block-user-list
func (h *UserHandler) Blocked(c fiber.Ctx) error { return h.list(c, constants.StatusInactive) }

// GET /user/get-user/:id
func (h *UserHandler) Get(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	u, err := h.svc.Get(c.Context(), id)
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, "User retrieved successfully", u)
}

// DELETE /user/delete-user/:id  (superadmin)
func (h *UserHandler) Delete(c fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.svc.Delete(c.Context(), id); err != nil {
		return mapUserError(c, err)
	}
	return ok(c, "User deleted successfully", nil)
}

// PATCH /user/change-user-status/:id
func (h *UserHandler) ChangeStatus(c fiber.Ctx) error {
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
	u, err := h.svc.ChangeStatus(c.Context(), actor, id, strings.ToLower(strings.TrimSpace(body.Status)))
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, "User status updated successfully", u)
}

// PATCH /user/change-user-image/:id
func (h *UserHandler) ChangeImages(c fiber.Ctx) error {
	actor, _ := middleware.ActorFromFiber(c)
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	images, err := uploadImages(c, h.files, file.FolderUsers)
	if err != nil {
		return mapFileError(c, err)
	}
	u, err := h.svc.ChangeImages(c.Context(), actor, id, images)
	if err != nil {
		h.files.Remove(c.Context(), images...)
		return mapUserError(c, err)
	}
	return ok(c, "User images updated successfully", u)
}

// GET /user/user-count-by-role
func (h *UserHandler) CountByRole(c fiber.Ctx) error {
	counts, err := h.svc.CountByRole(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	return ok(c, "User count by role retrieved successfully", counts)
}

// GET /user/user-ratio-by-month?year=
func (h *UserHandler) RatioByMonth(c fiber.Ctx) error {
	months, err := h.svc.RatioByMonth(c.Context(), queryInt(c, "year", 0))
	if err != nil {
		return mapUserError(c, err)
	}
	return ok(c, "User ratio by month retrieved successfully", months)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapUserError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrClinicNotFound),
		errors.Is(err, user.ErrLabNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, user.ErrEmailAlreadyExists):
		return conflict(c, err.Error())
	case errors.Is(err, user.ErrForbidden),
		errors.Is(err, user.ErrAccountInactive):
		return forbidden(c, err.Error())
	case errors.Is(err, user.ErrFieldsRequired),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidPhone),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrInvalidStatus),
		errors.Is(err, user.ErrClinicRequired),
		errors.Is(err, user.ErrLabRequired),
		errors.Is(err, user.ErrImagesRequired),
		errors.Is(err, user.ErrInvalidYear):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

func mapFileError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, file.ErrUnsupportedType),
		errors.Is(err, file.ErrNoFiles):
		return badRequest(c, err.Error())
	default:
		var tooLarge s3pkg.ErrTooLarge
		if errors.As(err, &tooLarge) {
			return fail(c, fiber.StatusRequestEntityTooLarge, err.Error())
		}
		return internalError(c, err)
	}
}
