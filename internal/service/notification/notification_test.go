package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type memStore struct {
	items []*repo.Notification
	fail  error
}

func (m *memStore) Create(_ context.Context, n *repo.Notification) error {
	if m.fail != nil {
		return m.fail
	}
	n.ID = uuid.New()
	m.items = append(m.items, n)
	return nil
}

func matches(n *repo.Notification, f repo.NotificationFilter) bool {
	switch {
	case f.ReceiverID != nil && f.ReceiverRole != "":
		if !((n.ReceiverID != nil && *n.ReceiverID == *f.ReceiverID) ||
			(n.ReceiverID == nil && n.ReceiverRole == f.ReceiverRole)) {
			return false
		}
	case f.ReceiverRole != "":
		if n.ReceiverRole != f.ReceiverRole {
			return false
		}
	}
	if f.IsRead != nil && n.IsRead != *f.IsRead {
		return false
	}
	return true
}

func (m *memStore) List(_ context.Context, f repo.NotificationFilter, limit int) ([]*repo.Notification, error) {
	var out []*repo.Notification
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		if matches(m.items[i], f) {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*repo.Notification, error) {
	for _, n := range m.items {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memStore) MarkRead(_ context.Context, f repo.NotificationFilter, id *uuid.UUID) (int64, error) {
	var n int64
	for _, it := range m.items {
		if it.IsRead || !matches(it, f) || (id != nil && it.ID != *id) {
			continue
		}
		it.IsRead = true
		n++
	}
	return n, nil
}

type pushed struct {
	user  uuid.UUID
	role  constants.Role
	event string
}

type memEmitter struct {
	sent []pushed
	err  error
}

func (e *memEmitter) EmitToUser(_ context.Context, id uuid.UUID, event string, _ any) error {
	e.sent = append(e.sent, pushed{user: id, event: event})
	return e.err
}

func (e *memEmitter) EmitToRole(_ context.Context, r constants.Role, event string, _ any) error {
	e.sent = append(e.sent, pushed{role: r, event: event})
	return e.err
}

func TestNotifyRoutesToRoom(t *testing.T) {
	ctx := context.Background()
	tech := uuid.New()

	tests := []struct {
		name     string
		n        *repo.Notification
		wantRole constants.Role
		wantUser uuid.UUID
		wantErr  error
	}{
		{"role wide", &repo.Notification{Type: "case_created", Title: "New case", ReceiverRole: constants.RoleSuperAdmin}, constants.RoleAdmin, uuid.Nil, nil},
		{"single user", &repo.Notification{Type: "case_assigned", Title: "Assigned", ReceiverRole: constants.RoleLabTechnician, ReceiverID: &tech}, "", tech, nil},
		{"no receiver", &repo.Notification{Title: "x"}, "", uuid.Nil, ErrInvalidInput},
		{"no title", &repo.Notification{ReceiverRole: constants.RoleAdmin}, "", uuid.Nil, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := &memEmitter{}
			svc := New(&memStore{}, em)
			err := svc.Notify(ctx, tt.n)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if len(em.sent) != 0 {
					t.Errorf("pushed %d events for invalid notification", len(em.sent))
				}
				return
			}
			if len(em.sent) != 1 || em.sent[0].event != EventNotification {
				t.Fatalf("sent = %+v", em.sent)
			}
			if em.sent[0].role != tt.wantRole || em.sent[0].user != tt.wantUser {
				t.Errorf("sent to %+v, want role %q user %s", em.sent[0], tt.wantRole, tt.wantUser)
			}
		})
	}
}

func TestNotifyPushFailureIsSwallowed(t *testing.T) {
	store := &memStore{}
	svc := New(store, &memEmitter{err: errors.New("nats down")})
	n := &repo.Notification{Title: "New case", ReceiverRole: constants.RoleAdmin}
	if err := svc.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(store.items) != 1 {
		t.Errorf("stored = %d, want 1", len(store.items))
	}
}

func TestNotifyStoreFailure(t *testing.T) {
	em := &memEmitter{}
	svc := New(&memStore{fail: errors.New("db down")}, em)
	err := svc.Notify(context.Background(), &repo.Notification{Title: "x", ReceiverRole: constants.RoleAdmin})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(em.sent) != 0 {
		t.Error("pushed a notification that was never stored")
	}
}

func TestListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	svc := New(store, nil)

	admin := Recipient{ID: uuid.New(), Role: constants.RoleSuperAdmin}
	tech := Recipient{ID: uuid.New(), Role: constants.RoleLabTechnician}
	other := uuid.New()

	for _, n := range []*repo.Notification{
		{Title: "a1", ReceiverRole: constants.RoleAdmin},
		{Title: "a2", ReceiverRole: constants.RoleAdmin},
		{Title: "t-mine", ReceiverRole: constants.RoleLabTechnician, ReceiverID: &tech.ID},
		{Title: "t-other", ReceiverRole: constants.RoleLabTechnician, ReceiverID: &other},
		{Title: "t-all", ReceiverRole: constants.RoleLabTechnician},
	} {
		if err := svc.Notify(ctx, n); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	got, err := svc.List(ctx, admin, ListRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Title != "a2" {
		t.Errorf("admin inbox = %d items, first %q", len(got), got[0].Title)
	}

	got, _ = svc.List(ctx, tech, ListRequest{ReceiverRole: constants.RoleAdmin})
	if len(got) != 2 {
		t.Errorf("technician inbox = %d, want 2 (own + role wide)", len(got))
	}
	for _, n := range got {
		if n.Title == "t-other" || n.ReceiverRole == constants.RoleAdmin {
			t.Errorf("technician saw %q", n.Title)
		}
	}

	if _, err := svc.MarkRead(ctx, tech, store.items[3].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("mark other's notification err = %v, want ErrNotFound", err)
	}
	n, err := svc.MarkRead(ctx, tech, store.items[2].ID)
	if err != nil || !n.IsRead {
		t.Fatalf("MarkRead = %+v, %v", n, err)
	}

	count, err := svc.MarkAllRead(ctx, admin)
	if err != nil || count != 2 {
		t.Errorf("MarkAllRead = %d, %v; want 2", count, err)
	}
	unread := false
	got, _ = svc.List(ctx, admin, ListRequest{IsRead: &unread})
	if len(got) != 0 {
		t.Errorf("unread after mark all = %d", len(got))
	}
}
