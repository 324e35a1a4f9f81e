package product

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

type memStore struct {
	byID map[uuid.UUID]*repo.Product
}

func (m *memStore) Create(_ context.Context, p *repo.Product) error {
	p.ID = uuid.New()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*repo.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) Save(_ context.Context, p *repo.Product) error {
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.byID, id)
	return nil
}

func (m *memStore) List(context.Context, repo.ProductFilter, repo.Page) ([]*repo.Product, int, error) {
	var out []*repo.Product
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memStore) Search(context.Context, string, int) ([]*repo.Product, error) { return nil, nil }

func TestCreateValidation(t *testing.T) {
	svc := New(&memStore{byID: map[uuid.UUID]*repo.Product{}})
	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"no name", CreateRequest{Price: 10}, ErrNameRequired},
		{"negative price", CreateRequest{Name: "Crown", Price: -1}, ErrInvalidPrice},
		{"negative stock", CreateRequest{Name: "Crown", Stock: -2}, ErrInvalidStock},
		{"bad tier", CreateRequest{Name: "Crown", ProductTier: "Gold"}, ErrInvalidTier},
		{"ok", CreateRequest{Name: "Zirconia crown", Price: 120, ProductTier: repo.TierPremium}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateAppendsImages(t *testing.T) {
	ctx := context.Background()
	svc := New(&memStore{byID: map[uuid.UUID]*repo.Product{}})
	p, err := svc.Create(ctx, CreateRequest{Name: "Night guard", Images: []repo.Attachment{{FileURL: "https://cdn/a.png"}}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Update(ctx, p.ID, UpdateRequest{Images: []repo.Attachment{
		{FileURL: "https://cdn/a.png"}, {FileURL: "https://cdn/b.png"}, {FileURL: ""},
	}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(got.Images) != 2 {
		t.Errorf("images = %+v, want a and b once", got.Images)
	}

	if _, err := svc.Update(ctx, uuid.New(), UpdateRequest{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing product err = %v", err)
	}
	if _, err := svc.Search(ctx, "  ", 20); !errors.Is(err, ErrSearchMissing) {
		t.Errorf("empty search err = %v", err)
	}
}
