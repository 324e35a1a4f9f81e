// Package search runs the quick lookups behind the search bar. Every
// lookup is case-insensitive and returns at most Limit rows.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
)

const Limit = 20

var ErrQueryRequired = errors.New("Search query required")

type UserSearcher interface {
	Search(ctx context.Context, term string, limit int) ([]*repo.User, error)
}

type ProductSearcher interface {
	Search(ctx context.Context, term string, limit int) ([]*repo.Product, error)
}

type OrgSearcher interface {
	Search(ctx context.Context, term string, limit int) ([]*repo.Organization, error)
}

type CaseSearcher interface {
	Search(ctx context.Context, actor *cases.Actor, term string) ([]*repo.Case, error)
}

type Service struct {
	users    UserSearcher
	products ProductSearcher
	cases    CaseSearcher
	clinics  OrgSearcher
	labs     OrgSearcher
}

func New(users UserSearcher, products ProductSearcher, cs CaseSearcher, clinics, labs OrgSearcher) *Service {
	return &Service{users: users, products: products, cases: cs, clinics: clinics, labs: labs}
}

func term(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ErrQueryRequired
	}
	return q, nil
}

// nonNil keeps empty results serialising as [].
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// Users matches name, email, phone or role.
func (s *Service) Users(ctx context.Context, q string) ([]*repo.User, error) {
	t, err := term(q)
	if err != nil {
		return nil, err
	}
	out, err := s.users.Search(ctx, t, Limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return nonNil(out), nil
}

// Products matches name, type or tier.
func (s *Service) Products(ctx context.Context, q string) ([]*repo.Product, error) {
	t, err := term(q)
	if err != nil {
		return nil, err
	}
	out, err := s.products.Search(ctx, t, Limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return nonNil(out), nil
}

// Cases matches case number, patient id or scan number among the cases
// the actor may see.
func (s *Service) Cases(ctx context.Context, actor *cases.Actor, q string) ([]*repo.Case, error) {
	t, err := term(q)
	if err != nil {
		return nil, err
	}
	out, err := s.cases.Search(ctx, actor, t)
	if err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (s *Service) Clinics(ctx context.Context, q string) ([]*repo.Organization, error) {
	return s.orgs(ctx, s.clinics, "clinics", q)
}

func (s *Service) Labs(ctx context.Context, q string) ([]*repo.Organization, error) {
	return s.orgs(ctx, s.labs, "labs", q)
}

func (s *Service) orgs(ctx context.Context, src OrgSearcher, what, q string) ([]*repo.Organization, error) {
	t, err := term(q)
	if err != nil {
		return nil, err
	}
	out, err := src.Search(ctx, t, Limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", what, err)
	}
	return nonNil(out), nil
}
