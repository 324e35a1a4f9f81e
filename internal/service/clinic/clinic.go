// Package clinic manages the two organisation directories: clinics, which
// submit cases, and labs, which fulfil them. Both share one record shape
// and one rule set.
package clinic

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	"github.com/Alijeyrad/dentlab_backend/pkg/phone"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.ClinicStore and *repo.LabStore.
type Store interface {
	Create(ctx context.Context, o *repo.Organization) error
	Get(ctx context.Context, id uuid.UUID) (*repo.Organization, error)
	Save(ctx context.Context, o *repo.Organization) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f repo.OrgFilter, p repo.Page) ([]*repo.Organization, int, error)
	Search(ctx context.Context, term string, limit int) ([]*repo.Organization, error)
}

// Kind names a directory and carries its error values.
type Kind struct {
	Name        string
	NotFound    error
	EmailExists error
}

var (
	KindClinic = Kind{Name: "clinic", NotFound: ErrClinicNotFound, EmailExists: ErrClinicEmailExists}
	KindLab    = Kind{Name: "lab", NotFound: ErrLabNotFound, EmailExists: ErrLabEmailExists}
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type PaginatedResult[T any] struct {
	Data       []T
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

type CreateRequest struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Details string
}

type UpdateRequest struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	Details *string
}

type ListRequest struct {
	Status string
	Search string
	Page   repo.Page
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*repo.Organization, error)
	Get(ctx context.Context, id uuid.UUID) (*repo.Organization, error)
	List(ctx context.Context, req ListRequest) (*PaginatedResult[*repo.Organization], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*repo.Organization, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*repo.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, term string, limit int) ([]*repo.Organization, error)
	Kind() Kind
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type directory struct {
	store       Store
	kind        Kind
	phoneRegion string
}

func New(store Store, kind Kind, phoneRegion string) Service {
	return &directory{store: store, kind: kind, phoneRegion: phoneRegion}
}

func NewClinics(store Store, phoneRegion string) Service { return New(store, KindClinic, phoneRegion) }
func NewLabs(store Store, phoneRegion string) Service    { return New(store, KindLab, phoneRegion) }

func (d *directory) Kind() Kind { return d.kind }

func normalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if a, err := mail.ParseAddress(s); err != nil || a.Address != s {
		return "", ErrInvalidEmail
	}
	return s, nil
}

func normalizeStatus(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s != constants.StatusActive && s != constants.StatusInactive {
		return "", ErrInvalidStatus
	}
	return s, nil
}

func (d *directory) Create(ctx context.Context, req CreateRequest) (*repo.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.Email) == "" {
		return nil, ErrFieldsRequired
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	ph, err := phone.Normalize(req.Phone, d.phoneRegion)
	if err != nil {
		return nil, ErrInvalidPhone
	}

	o := &repo.Organization{
		Name:    name,
		Email:   email,
		Phone:   ph,
		Address: strings.TrimSpace(req.Address),
		Details: strings.TrimSpace(req.Details),
		Status:  constants.StatusActive,
	}
	if err := d.store.Create(ctx, o); err != nil {
		if repo.IsDuplicate(err) {
			return nil, d.kind.EmailExists
		}
		return nil, fmt.Errorf("create %s: %w", d.kind.Name, err)
	}
	return o, nil
}

func (d *directory) Get(ctx context.Context, id uuid.UUID) (*repo.Organization, error) {
	o, err := d.store.Get(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, d.kind.NotFound
		}
		return nil, fmt.Errorf("get %s: %w", d.kind.Name, err)
	}
	return o, nil
}

func (d *directory) List(ctx context.Context, req ListRequest) (*PaginatedResult[*repo.Organization], error) {
	f := repo.OrgFilter{Search: strings.TrimSpace(req.Search)}
	if req.Status != "" {
		status, err := normalizeStatus(req.Status)
		if err != nil {
			return nil, err
		}
		f.Status = status
	}
	page := req.Page.Normalize()
	items, total, err := d.store.List(ctx, f, page)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.kind.Name, err)
	}
	if items == nil {
		items = []*repo.Organization{}
	}
	return &PaginatedResult[*repo.Organization]{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

func (d *directory) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*repo.Organization, error) {
	o, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			o.Name = name
		}
	}
	if req.Email != nil {
		if o.Email, err = normalizeEmail(*req.Email); err != nil {
			return nil, err
		}
	}
	if req.Phone != nil {
		if o.Phone, err = phone.Normalize(*req.Phone, d.phoneRegion); err != nil {
			return nil, ErrInvalidPhone
		}
	}
	if req.Address != nil {
		o.Address = strings.TrimSpace(*req.Address)
	}
	if req.Details != nil {
		o.Details = strings.TrimSpace(*req.Details)
	}
	return o, d.save(ctx, o)
}

func (d *directory) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*repo.Organization, error) {
	status, err := normalizeStatus(status)
	if err != nil {
		return nil, err
	}
	o, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Status = status
	return o, d.save(ctx, o)
}

func (d *directory) Delete(ctx context.Context, id uuid.UUID) error {
	if err := d.store.Delete(ctx, id); err != nil {
		if repo.IsNotFound(err) {
			return d.kind.NotFound
		}
		return fmt.Errorf("delete %s: %w", d.kind.Name, err)
	}
	return nil
}

func (d *directory) Search(ctx context.Context, term string, limit int) ([]*repo.Organization, error) {
	items, err := d.store.Search(ctx, strings.TrimSpace(term), limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", d.kind.Name, err)
	}
	return items, nil
}

func (d *directory) save(ctx context.Context, o *repo.Organization) error {
	if err := d.store.Save(ctx, o); err != nil {
		switch {
		case repo.IsDuplicate(err):
			return d.kind.EmailExists
		case repo.IsNotFound(err):
			return d.kind.NotFound
		}
		return fmt.Errorf("save %s: %w", d.kind.Name, err)
	}
	return nil
}
