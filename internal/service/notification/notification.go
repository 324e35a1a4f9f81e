package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

const (
	EventNotification = "notification"

	defaultLimit = 50
	maxLimit     = 200
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type Store interface {
	Create(ctx context.Context, n *repo.Notification) error
	List(ctx context.Context, f repo.NotificationFilter, limit int) ([]*repo.Notification, error)
	Get(ctx context.Context, id uuid.UUID) (*repo.Notification, error)
	MarkRead(ctx context.Context, f repo.NotificationFilter, id *uuid.UUID) (int64, error)
}

// Emitter is satisfied by *realtime.Bus.
type Emitter interface {
	EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload any) error
	EmitToRole(ctx context.Context, role constants.Role, event string, payload any) error
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Recipient is the caller whose inbox is read.
type Recipient struct {
	ID   uuid.UUID
	Role constants.Role
}

type ListRequest struct {
	// ReceiverRole overrides the caller's role group when set.
	ReceiverRole constants.Role
	IsRead       *bool
	CreatedBy    *uuid.UUID
	Limit        int
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Notify persists n and pushes it to the receiver's room. A push failure
	// is logged; only a persistence failure is returned.
	Notify(ctx context.Context, n *repo.Notification) error
	List(ctx context.Context, who Recipient, req ListRequest) ([]*repo.Notification, error)
	MarkRead(ctx context.Context, who Recipient, id uuid.UUID) (*repo.Notification, error)
	MarkAllRead(ctx context.Context, who Recipient) (int64, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type notificationService struct {
	store   Store
	emitter Emitter
}

func New(store Store, emitter Emitter) Service {
	return &notificationService{store: store, emitter: emitter}
}

// RoleGroup maps a role to the inbox it reads; both admin roles share one.
func RoleGroup(r constants.Role) constants.Role {
	if r.IsAdmin() {
		return constants.RoleAdmin
	}
	return r
}

func (s *notificationService) Notify(ctx context.Context, n *repo.Notification) error {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" || (n.ReceiverRole == "" && n.ReceiverID == nil) {
		return ErrInvalidInput
	}
	if n.ReceiverRole != "" {
		n.ReceiverRole = RoleGroup(n.ReceiverRole)
	}
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	if s.emitter == nil {
		return nil
	}

	var err error
	if n.ReceiverID != nil {
		err = s.emitter.EmitToUser(ctx, *n.ReceiverID, EventNotification, n)
	} else {
		err = s.emitter.EmitToRole(ctx, n.ReceiverRole, EventNotification, n)
	}
	if err != nil {
		slog.WarnContext(ctx, "notification: push failed", "id", n.ID, "type", n.Type, "err", err)
	}
	return nil
}

func (s *notificationService) inbox(who Recipient, role constants.Role) repo.NotificationFilter {
	if role == "" {
		role = RoleGroup(who.Role)
	}
	f := repo.NotificationFilter{ReceiverRole: role}
	if who.ID != uuid.Nil {
		id := who.ID
		f.ReceiverID = &id
	}
	return f
}

func (s *notificationService) List(ctx context.Context, who Recipient, req ListRequest) ([]*repo.Notification, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	// only admins may read another role's inbox
	role := RoleGroup(who.Role)
	if req.ReceiverRole != "" && who.Role.IsAdmin() {
		role = RoleGroup(req.ReceiverRole)
	}
	f := s.inbox(who, role)
	f.IsRead = req.IsRead
	f.CreatedBy = req.CreatedBy

	items, err := s.store.List(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if items == nil {
		items = []*repo.Notification{}
	}
	return items, nil
}

func (s *notificationService) MarkRead(ctx context.Context, who Recipient, id uuid.UUID) (*repo.Notification, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	if !visibleTo(n, who) {
		return nil, ErrNotFound
	}
	if n.IsRead {
		return n, nil
	}
	if _, err := s.store.MarkRead(ctx, repo.NotificationFilter{}, &id); err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n.IsRead = true
	return n, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, who Recipient) (int64, error) {
	n, err := s.store.MarkRead(ctx, s.inbox(who, ""), nil)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}

func visibleTo(n *repo.Notification, who Recipient) bool {
	if n.ReceiverID != nil {
		return *n.ReceiverID == who.ID
	}
	return n.ReceiverRole == RoleGroup(who.Role) || who.Role.IsAdmin()
}
