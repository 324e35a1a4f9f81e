package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	"github.com/Alijeyrad/dentlab_backend/pkg/phone"
)

type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Admin, error)
	Save(ctx context.Context, a *repo.Admin) error
	List(ctx context.Context, search string, page repo.Page) ([]*repo.Admin, int, error)
}

type PaginatedResult[T any] struct {
	Data       []T
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

type UpdateRequest struct {
	Name  *string
	Email *string
	Phone *string
	Role  *constants.Role
}

type PersonalInfoRequest struct {
	Name   *string
	Phone  *string
	Images []string
}

// Caller is the admin performing a change.
type Caller struct {
	ID   uuid.UUID
	Role constants.Role
}

type Service interface {
	List(ctx context.Context, search string, page repo.Page) (*PaginatedResult[*repo.Admin], error)
	Get(ctx context.Context, id uuid.UUID) (*repo.Admin, error)
	Update(ctx context.Context, by Caller, id uuid.UUID, req UpdateRequest) (*repo.Admin, error)
	UpdateImages(ctx context.Context, by Caller, id uuid.UUID, images []string) (*repo.Admin, error)
	UpdatePersonalInfo(ctx context.Context, id uuid.UUID, req PersonalInfoRequest) (*repo.Admin, error)
}

type adminService struct {
	store       Store
	authz       authorize.IAuthorization
	phoneRegion string
}

func New(store Store, authz authorize.IAuthorization, phoneRegion string) Service {
	return &adminService{store: store, authz: authz, phoneRegion: phoneRegion}
}

func (s *adminService) List(ctx context.Context, search string, page repo.Page) (*PaginatedResult[*repo.Admin], error) {
	page = page.Normalize()
	items, total, err := s.store.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	if items == nil {
		items = []*repo.Admin{}
	}
	return &PaginatedResult[*repo.Admin]{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

func (s *adminService) Get(ctx context.Context, id uuid.UUID) (*repo.Admin, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

// allowed: a superadmin edits anyone, an admin only itself.
func allowed(by Caller, id uuid.UUID) bool {
	return by.Role == constants.RoleSuperAdmin || by.ID == id
}

func (s *adminService) Update(ctx context.Context, by Caller, id uuid.UUID, req UpdateRequest) (*repo.Admin, error) {
	if !allowed(by, id) {
		return nil, ErrForbidden
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prevRole := a.Role

	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			a.Name = name
		}
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			return nil, ErrInvalidEmail
		}
		a.Email = email
	}
	if req.Phone != nil {
		if a.Phone, err = phone.Normalize(*req.Phone, s.phoneRegion); err != nil {
			return nil, ErrInvalidPhone
		}
	}
	if req.Role != nil && *req.Role != a.Role {
		if by.Role != constants.RoleSuperAdmin {
			return nil, ErrForbidden
		}
		if !req.Role.IsAdmin() {
			return nil, ErrInvalidRole
		}
		a.Role = *req.Role
	}

	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	if a.Role != prevRole && s.authz != nil {
		if err := authorize.ChangeAccountRole(ctx, s.authz, a.ID, prevRole, a.Role); err != nil {
			return nil, fmt.Errorf("change role: %w", err)
		}
	}
	return a, nil
}

func (s *adminService) UpdateImages(ctx context.Context, by Caller, id uuid.UUID, images []string) (*repo.Admin, error) {
	if !allowed(by, id) {
		return nil, ErrForbidden
	}
	images = lo.Uniq(lo.Compact(images))
	if len(images) == 0 {
		return nil, ErrImagesRequired
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Images = images
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *adminService) UpdatePersonalInfo(ctx context.Context, id uuid.UUID, req PersonalInfoRequest) (*repo.Admin, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			a.Name = name
		}
	}
	if req.Phone != nil {
		if a.Phone, err = phone.Normalize(*req.Phone, s.phoneRegion); err != nil {
			return nil, ErrInvalidPhone
		}
	}
	if imgs := lo.Uniq(lo.Compact(req.Images)); len(imgs) > 0 {
		a.Images = imgs
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "admin: personal info updated", "admin_id", a.ID)
	return a, nil
}

func (s *adminService) save(ctx context.Context, a *repo.Admin) error {
	if err := s.store.Save(ctx, a); err != nil {
		switch {
		case repo.IsDuplicate(err):
			return ErrEmailInUse
		case repo.IsNotFound(err):
			return ErrNotFound
		}
		return fmt.Errorf("save admin: %w", err)
	}
	return nil
}
