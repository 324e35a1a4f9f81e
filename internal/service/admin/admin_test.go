package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type memStore map[uuid.UUID]*repo.Admin

func (m memStore) Get(_ context.Context, id uuid.UUID) (*repo.Admin, error) {
	a, ok := m[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memStore) Save(_ context.Context, a *repo.Admin) error {
	for id, x := range m {
		if id != a.ID && x.Email == a.Email {
			return repo.ErrDuplicate
		}
	}
	cp := *a
	m[a.ID] = &cp
	return nil
}

func (m memStore) List(context.Context, string, repo.Page) ([]*repo.Admin, int, error) {
	out := make([]*repo.Admin, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	return out, len(out), nil
}

func seed() (memStore, *repo.Admin, *repo.Admin) {
	root := &repo.Admin{ID: uuid.New(), Name: "Root", Email: "root@lab.test", Role: constants.RoleSuperAdmin}
	ops := &repo.Admin{ID: uuid.New(), Name: "Ops", Email: "ops@lab.test", Role: constants.RoleAdmin}
	return memStore{root.ID: root, ops.ID: ops}, root, ops
}

func TestUpdatePermissions(t *testing.T) {
	ctx := context.Background()
	store, root, ops := seed()
	svc := New(store, nil, "US")

	superRole := constants.RoleSuperAdmin
	dentist := constants.RoleDentist
	taken := "root@lab.test"
	name := "Operations"

	tests := []struct {
		name string
		by   Caller
		id   uuid.UUID
		req  UpdateRequest
		want error
	}{
		{"admin edits other", Caller{ID: ops.ID, Role: constants.RoleAdmin}, root.ID, UpdateRequest{Name: &name}, ErrForbidden},
		{"admin promotes self", Caller{ID: ops.ID, Role: constants.RoleAdmin}, ops.ID, UpdateRequest{Role: &superRole}, ErrForbidden},
		{"staff role", Caller{ID: root.ID, Role: constants.RoleSuperAdmin}, ops.ID, UpdateRequest{Role: &dentist}, ErrInvalidRole},
		{"email taken", Caller{ID: root.ID, Role: constants.RoleSuperAdmin}, ops.ID, UpdateRequest{Email: &taken}, ErrEmailInUse},
		{"admin edits self", Caller{ID: ops.ID, Role: constants.RoleAdmin}, ops.ID, UpdateRequest{Name: &name}, nil},
		{"superadmin promotes", Caller{ID: root.ID, Role: constants.RoleSuperAdmin}, ops.ID, UpdateRequest{Role: &superRole}, nil},
		{"missing", Caller{ID: root.ID, Role: constants.RoleSuperAdmin}, uuid.New(), UpdateRequest{}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Update(ctx, tt.by, tt.id, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if got := store[ops.ID]; got.Name != "Operations" || got.Role != constants.RoleSuperAdmin {
		t.Errorf("stored = %+v", got)
	}
}

func TestUpdateImages(t *testing.T) {
	store, root, _ := seed()
	svc := New(store, nil, "")
	by := Caller{ID: root.ID, Role: constants.RoleSuperAdmin}

	if _, err := svc.UpdateImages(context.Background(), by, root.ID, []string{"", ""}); !errors.Is(err, ErrImagesRequired) {
		t.Errorf("empty images err = %v", err)
	}
	a, err := svc.UpdateImages(context.Background(), by, root.ID, []string{"https://cdn/x.png", "https://cdn/x.png"})
	if err != nil || len(a.Images) != 1 {
		t.Errorf("UpdateImages = %+v, %v", a, err)
	}
}
