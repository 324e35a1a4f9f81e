package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
	"github.com/Alijeyrad/dentlab_backend/pkg/phone"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/password"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type Store interface {
	Create(ctx context.Context, u *repo.User) error
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
	Save(ctx context.Context, u *repo.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f repo.UserFilter, sort repo.Sort, page repo.Page) ([]*repo.User, int, error)
	CountByRole(ctx context.Context) (map[constants.Role]int, error)
	CreatedPerMonth(ctx context.Context, year int, loc *time.Location) ([12]int, error)
}

// OrgLookup is satisfied by *repo.ClinicStore and *repo.LabStore.
type OrgLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Organization, error)
}

type Mailer interface {
	SendCredentials(ctx context.Context, to, name, password string) error
}

type Options struct {
	PhoneRegion string
	// Location buckets the monthly statistics.
	Location *time.Location
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Name        string
	Email       string
	Phone       string
	Password    string
	Role        constants.Role
	ClinicID    *uuid.UUID
	LabID       *uuid.UUID
	Country     string
	DateOfBirth *time.Time
	Images      []string
	Permissions repo.Permissions
}

// Created reports a new account. MailFailed is set when the credentials
// email could not be sent; the account exists either way.
type Created struct {
	User       *repo.User
	MailFailed bool
}

type UpdateRequest struct {
	Name        *string
	Email       *string
	Phone       *string
	Role        *constants.Role
	ClinicID    *uuid.UUID
	LabID       *uuid.UUID
	Country     *string
	DateOfBirth *time.Time
	Images      []string
	Permissions *repo.Permissions
}

type PersonalInfoRequest struct {
	Name        *string
	Phone       *string
	Country     *string
	DateOfBirth *time.Time
	Images      []string
}

type ListRequest struct {
	Filter repo.UserFilter
	Sort   repo.Sort
	Page   repo.Page
}

type PaginatedResult[T any] struct {
	Data       []T
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, by *cases.Actor, req CreateRequest) (*Created, error)
	CreateTechnician(ctx context.Context, manager *cases.Actor, req CreateRequest) (*Created, error)
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
	List(ctx context.Context, req ListRequest) (*PaginatedResult[*repo.User], error)
	Update(ctx context.Context, by *cases.Actor, id uuid.UUID, req UpdateRequest) (*repo.User, error)
	UpdatePersonalInfo(ctx context.Context, id uuid.UUID, req PersonalInfoRequest) (*repo.User, error)
	ChangeStatus(ctx context.Context, by *cases.Actor, id uuid.UUID, status string) (*repo.User, error)
	ChangeImages(ctx context.Context, by *cases.Actor, id uuid.UUID, images []string) (*repo.User, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CountByRole(ctx context.Context) (map[constants.Role]int, error)
	RatioByMonth(ctx context.Context, year int) ([]MonthCount, error)

	// Actor loads the account behind a verified token subject.
	Actor(ctx context.Context, sub pasetotoken.Subject) (*cases.Actor, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type UserService struct {
	store   Store
	clinics OrgLookup
	labs    OrgLookup
	mailer  Mailer
	hasher  *password.Hasher
	authz   authorize.IAuthorization
	opts    Options
}

func New(store Store, clinics, labs OrgLookup, mailer Mailer, hasher *password.Hasher, authz authorize.IAuthorization, opts Options) *UserService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &UserService{
		store:   store,
		clinics: clinics,
		labs:    labs,
		mailer:  mailer,
		hasher:  hasher,
		authz:   authz,
		opts:    opts,
	}
}

var labRoles = map[constants.Role]bool{
	constants.RoleLabManager:    true,
	constants.RoleLabTechnician: true,
}

func (s *UserService) lookupErr(err error) error {
	if repo.IsNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

func (s *UserService) normalizePhone(raw string) (string, error) {
	p, err := phone.Normalize(raw, s.opts.PhoneRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	return p, nil
}

// checkOrgs verifies the role's organisation is given and exists.
func (s *UserService) checkOrgs(ctx context.Context, role constants.Role, clinicID, labID *uuid.UUID) error {
	if labRoles[role] {
		if labID == nil {
			return ErrLabRequired
		}
	} else if clinicID == nil {
		return ErrClinicRequired
	}
	if clinicID != nil && s.clinics != nil {
		if _, err := s.clinics.Get(ctx, *clinicID); err != nil {
			if repo.IsNotFound(err) {
				return ErrClinicNotFound
			}
			return fmt.Errorf("get clinic: %w", err)
		}
	}
	if labID != nil && s.labs != nil {
		if _, err := s.labs.Get(ctx, *labID); err != nil {
			if repo.IsNotFound(err) {
				return ErrLabNotFound
			}
			return fmt.Errorf("get lab: %w", err)
		}
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, by *cases.Actor, req CreateRequest) (*Created, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || strings.TrimSpace(req.Phone) == "" {
		return nil, ErrFieldsRequired
	}
	if a, err := mail.ParseAddress(req.Email); err != nil || a.Address != req.Email {
		return nil, ErrInvalidEmail
	}
	if req.Role == "" {
		req.Role = constants.RoleDentist
	}
	if !req.Role.IsStaff() {
		return nil, ErrInvalidRole
	}
	ph, err := s.normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if err := s.checkOrgs(ctx, req.Role, req.ClinicID, req.LabID); err != nil {
		return nil, err
	}

	// generated passwords are mailed; supplied ones are not
	plain, generated := req.Password, false
	if plain == "" {
		if plain, err = password.Generate(0); err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
		generated = true
	} else if err := password.Validate(plain); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &repo.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        ph,
		PasswordHash: hash,
		Role:         req.Role,
		Status:       constants.StatusActive,
		Images:       lo.Uniq(lo.Compact(req.Images)),
		ClinicID:     req.ClinicID,
		LabID:        req.LabID,
		Country:      strings.TrimSpace(req.Country),
		DateOfBirth:  req.DateOfBirth,
		Permissions:  req.Permissions,
	}
	if by != nil {
		id := by.ID
		u.CreatedBy = &id
	}
	if err := s.store.Create(ctx, u); err != nil {
		if repo.IsDuplicate(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.authz != nil {
		if err := authorize.AssignAccountRole(ctx, s.authz, u.ID, u.Role); err != nil {
			return nil, fmt.Errorf("assign role: %w", err)
		}
	}

	out := &Created{User: u}
	if generated && s.mailer != nil {
		if err := s.mailer.SendCredentials(ctx, u.Email, u.Name, plain); err != nil {
			slog.WarnContext(ctx, "user: credentials mail failed", "user_id", u.ID, "err", err)
			out.MailFailed = true
		}
	}
	return out, nil
}

// CreateTechnician creates a lab technician in the manager's own lab,
// whatever role and lab the request names.
func (s *UserService) CreateTechnician(ctx context.Context, manager *cases.Actor, req CreateRequest) (*Created, error) {
	if manager == nil || manager.Role != constants.RoleLabManager {
		return nil, ErrForbidden
	}
	if manager.LabID == nil {
		return nil, ErrLabRequired
	}
	req.Role = constants.RoleLabTechnician
	lab := *manager.LabID
	req.LabID = &lab
	req.ClinicID = nil
	return s.Create(ctx, manager, req)
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*repo.User, error) {
	u, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.lookupErr(err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, req ListRequest) (*PaginatedResult[*repo.User], error) {
	page := req.Page.Normalize()
	if req.Filter.Status != "" && req.Filter.Status != constants.StatusActive && req.Filter.Status != constants.StatusInactive {
		return nil, ErrInvalidStatus
	}
	items, total, err := s.store.List(ctx, req.Filter, req.Sort, page)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if items == nil {
		items = []*repo.User{}
	}
	return &PaginatedResult[*repo.User]{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

// canManage: admins manage everyone, a lab manager manages the technicians
// of its lab, and everyone manages themselves.
func canManage(by *cases.Actor, u *repo.User) bool {
	switch {
	case by == nil:
		return false
	case by.Role.IsAdmin():
		return true
	case by.ID == u.ID:
		return true
	case by.Role == constants.RoleLabManager:
		return u.Role == constants.RoleLabTechnician &&
			by.LabID != nil && u.LabID != nil && *by.LabID == *u.LabID
	}
	return false
}

func (s *UserService) Update(ctx context.Context, by *cases.Actor, id uuid.UUID, req UpdateRequest) (*repo.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(by, u) {
		return nil, ErrForbidden
	}

	prevRole := u.Role
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			u.Name = name
		}
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
			return nil, ErrInvalidEmail
		}
		u.Email = email
	}
	if req.Phone != nil {
		if u.Phone, err = s.normalizePhone(*req.Phone); err != nil {
			return nil, err
		}
	}
	if req.Role != nil && *req.Role != u.Role {
		// only admins move accounts between roles
		if !by.Role.IsAdmin() {
			return nil, ErrForbidden
		}
		if !req.Role.IsStaff() {
			return nil, ErrInvalidRole
		}
		u.Role = *req.Role
	}
	if req.ClinicID != nil {
		u.ClinicID = req.ClinicID
	}
	if req.LabID != nil {
		u.LabID = req.LabID
	}
	if req.ClinicID != nil || req.LabID != nil || u.Role != prevRole {
		if err := s.checkOrgs(ctx, u.Role, u.ClinicID, u.LabID); err != nil {
			return nil, err
		}
	}
	if req.Country != nil {
		u.Country = strings.TrimSpace(*req.Country)
	}
	if req.DateOfBirth != nil {
		u.DateOfBirth = req.DateOfBirth
	}
	if len(req.Images) > 0 {
		u.Images = lo.Uniq(lo.Compact(req.Images))
	}
	if req.Permissions != nil && by.Role.IsAdmin() {
		u.Permissions = *req.Permissions
	}

	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	if u.Role != prevRole && s.authz != nil {
		if err := authorize.ChangeAccountRole(ctx, s.authz, u.ID, prevRole, u.Role); err != nil {
			return nil, fmt.Errorf("change role: %w", err)
		}
	}
	return u, nil
}

func (s *UserService) UpdatePersonalInfo(ctx context.Context, id uuid.UUID, req PersonalInfoRequest) (*repo.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			u.Name = name
		}
	}
	if req.Phone != nil {
		if u.Phone, err = s.normalizePhone(*req.Phone); err != nil {
			return nil, err
		}
	}
	if req.Country != nil {
		u.Country = strings.TrimSpace(*req.Country)
	}
	if req.DateOfBirth != nil {
		u.DateOfBirth = req.DateOfBirth
	}
	if len(req.Images) > 0 {
		u.Images = lo.Uniq(lo.Compact(req.Images))
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) ChangeStatus(ctx context.Context, by *cases.Actor, id uuid.UUID, status string) (*repo.User, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != constants.StatusActive && status != constants.StatusInactive {
		return nil, ErrInvalidStatus
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// nobody deactivates themselves
	if !canManage(by, u) || (by.ID == u.ID && !by.Role.IsAdmin()) {
		return nil, ErrForbidden
	}
	u.Status = status
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) ChangeImages(ctx context.Context, by *cases.Actor, id uuid.UUID, images []string) (*repo.User, error) {
	images = lo.Uniq(lo.Compact(images))
	if len(images) == 0 {
		return nil, ErrImagesRequired
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(by, u) {
		return nil, ErrForbidden
	}
	u.Images = images
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.lookupErr(err)
	}
	if s.authz != nil {
		if err := authorize.RemoveAccountRole(ctx, s.authz, u.ID, u.Role); err != nil {
			slog.WarnContext(ctx, "user: remove role grouping failed", "user_id", u.ID, "err", err)
		}
	}
	return nil
}

func (s *UserService) save(ctx context.Context, u *repo.User) error {
	if err := s.store.Save(ctx, u); err != nil {
		if repo.IsDuplicate(err) {
			return ErrEmailAlreadyExists
		}
		return s.lookupErr(err)
	}
	return nil
}

// CountByRole reports every staff role, including those with no accounts.
func (s *UserService) CountByRole(ctx context.Context) (map[constants.Role]int, error) {
	counts, err := s.store.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	out := make(map[constants.Role]int, len(constants.StaffRoles))
	for _, r := range constants.StaffRoles {
		out[r] = counts[r]
	}
	return out, nil
}

func (s *UserService) RatioByMonth(ctx context.Context, year int) ([]MonthCount, error) {
	if year == 0 {
		year = time.Now().In(s.opts.Location).Year()
	}
	if year < 2000 || year > 9999 {
		return nil, ErrInvalidYear
	}
	buckets, err := s.store.CreatedPerMonth(ctx, year, s.opts.Location)
	if err != nil {
		return nil, fmt.Errorf("users per month: %w", err)
	}
	out := make([]MonthCount, 12)
	for i, n := range buckets {
		out[i] = MonthCount{Month: time.Month(i + 1).String()[:3], Count: n}
	}
	return out, nil
}

func (s *UserService) Actor(ctx context.Context, sub pasetotoken.Subject) (*cases.Actor, error) {
	if sub.Kind == constants.KindAdmin {
		return &cases.Actor{ID: sub.UserID, Kind: constants.KindAdmin, Role: sub.Role}, nil
	}
	u, err := s.Get(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	if u.Status != constants.StatusActive {
		return nil, ErrAccountInactive
	}
	// the stored role wins over a stale token
	return &cases.Actor{
		ID:       u.ID,
		Kind:     constants.KindUser,
		Role:     u.Role,
		ClinicID: u.ClinicID,
		LabID:    u.LabID,
	}, nil
}
