package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

type Store interface {
	Create(ctx context.Context, p *repo.Product) error
	Get(ctx context.Context, id uuid.UUID) (*repo.Product, error)
	Save(ctx context.Context, p *repo.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f repo.ProductFilter, page repo.Page) ([]*repo.Product, int, error)
	Search(ctx context.Context, term string, limit int) ([]*repo.Product, error)
}

type PaginatedResult[T any] struct {
	Data       []T
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

type CreateRequest struct {
	Name        string
	Price       float64
	Description string
	Stock       int
	Category    string
	ProductType string
	ProductTier repo.Tier
	Images      []repo.Attachment
}

type UpdateRequest struct {
	Name        *string
	Price       *float64
	Description *string
	Stock       *int
	Category    *string
	ProductType *string
	ProductTier *repo.Tier
	// appended to the existing images
	Images []repo.Attachment
}

type ListRequest struct {
	Filter repo.ProductFilter
	Page   repo.Page
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*repo.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*repo.Product, error)
	List(ctx context.Context, req ListRequest) (*PaginatedResult[*repo.Product], error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*repo.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (*repo.Product, error)
	Search(ctx context.Context, term string, limit int) ([]*repo.Product, error)
}

type productService struct {
	store Store
}

func New(store Store) Service {
	return &productService{store: store}
}

func validTier(t repo.Tier) bool {
	return t == "" || t == repo.TierStandard || t == repo.TierPremium
}

func uniqueImages(in []repo.Attachment) []repo.Attachment {
	in = lo.Filter(in, func(a repo.Attachment, _ int) bool { return a.FileURL != "" })
	return lo.UniqBy(in, func(a repo.Attachment) string { return a.FileURL })
}

func (s *productService) Create(ctx context.Context, req CreateRequest) (*repo.Product, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return nil, ErrNameRequired
	case req.Price < 0:
		return nil, ErrInvalidPrice
	case req.Stock < 0:
		return nil, ErrInvalidStock
	case !validTier(req.ProductTier):
		return nil, ErrInvalidTier
	}
	p := &repo.Product{
		Name:        name,
		Price:       req.Price,
		Description: strings.TrimSpace(req.Description),
		Stock:       req.Stock,
		Category:    strings.TrimSpace(req.Category),
		ProductType: strings.TrimSpace(req.ProductType),
		ProductTier: req.ProductTier,
		Images:      uniqueImages(req.Images),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*repo.Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *productService) List(ctx context.Context, req ListRequest) (*PaginatedResult[*repo.Product], error) {
	if !validTier(req.Filter.Tier) {
		return nil, ErrInvalidTier
	}
	page := req.Page.Normalize()
	items, total, err := s.store.List(ctx, req.Filter, page)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if items == nil {
		items = []*repo.Product{}
	}
	return &PaginatedResult[*repo.Product]{
		Data:       items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*repo.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			p.Name = name
		}
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, ErrInvalidPrice
		}
		p.Price = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, ErrInvalidStock
		}
		p.Stock = *req.Stock
	}
	if req.ProductTier != nil {
		if !validTier(*req.ProductTier) {
			return nil, ErrInvalidTier
		}
		p.ProductTier = *req.ProductTier
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.ProductType != nil {
		p.ProductType = strings.TrimSpace(*req.ProductType)
	}
	if len(req.Images) > 0 {
		p.Images = uniqueImages(append(p.Images, req.Images...))
	}
	if err := s.store.Save(ctx, p); err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("save product: %w", err)
	}
	return p, nil
}

// Delete returns the removed product so callers can clean up its images.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) (*repo.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete product: %w", err)
	}
	return p, nil
}

func (s *productService) Search(ctx context.Context, term string, limit int) ([]*repo.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrSearchMissing
	}
	items, err := s.store.Search(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return items, nil
}
