package repo

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

type Notification struct {
	ID           uuid.UUID      `json:"id"`
	Type         string         `json:"type"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	CaseID       *uuid.UUID     `json:"caseId,omitempty"`
	CreatedBy    *uuid.UUID     `json:"createdBy,omitempty"`
	ReceiverRole constants.Role `json:"receiverRole"`
	ReceiverID   *uuid.UUID     `json:"receiverId,omitempty"`
	IsRead       bool           `json:"isRead"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// NotificationFilter selects an inbox. A receiver sees notifications
// addressed to its id or, when unaddressed, to its role.
type NotificationFilter struct {
	ReceiverRole constants.Role
	ReceiverID   *uuid.UUID
	IsRead       *bool
	CreatedBy    *uuid.UUID
}

func (f NotificationFilter) predicate() *sql.Predicate {
	var ps []*sql.Predicate
	switch {
	case f.ReceiverID != nil && f.ReceiverRole != "":
		ps = append(ps, sql.Or(
			sql.EQ("receiver_id", *f.ReceiverID),
			sql.And(sql.IsNull("receiver_id"), sql.EQ("receiver_role", string(f.ReceiverRole))),
		))
	case f.ReceiverID != nil:
		ps = append(ps, sql.EQ("receiver_id", *f.ReceiverID))
	case f.ReceiverRole != "":
		ps = append(ps, sql.EQ("receiver_role", string(f.ReceiverRole)))
	}
	if f.IsRead != nil {
		ps = append(ps, sql.EQ("is_read", *f.IsRead))
	}
	if f.CreatedBy != nil {
		ps = append(ps, sql.EQ("created_by", *f.CreatedBy))
	}
	return andAll(ps)
}

const notificationsTable = "notifications"

var notificationColumns = []string{
	"id", "type", "title", "message", "case_id", "created_by", "receiver_role", "receiver_id", "is_read", "created_at", "updated_at",
}

type NotificationStore struct {
	drv dialect.Driver
}

func scanNotification(rows *sql.Rows) (*Notification, error) {
	var (
		n                         Notification
		role                      string
		caseID, creator, receiver uuid.NullUUID
	)
	if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &caseID, &creator, &role, &receiver, &n.IsRead, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.ReceiverRole = constants.Role(role)
	n.CaseID = uuidPtr(caseID)
	n.CreatedBy = uuidPtr(creator)
	n.ReceiverID = uuidPtr(receiver)
	return &n, nil
}

func (s *NotificationStore) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now().UTC()
	n.UpdatedAt = n.CreatedAt
	q, args := builder().Insert(notificationsTable).Columns(notificationColumns...).Values(
		n.ID, n.Type, n.Title, n.Message, nullUUID(n.CaseID), nullUUID(n.CreatedBy),
		string(n.ReceiverRole), nullUUID(n.ReceiverID), n.IsRead, n.CreatedAt, n.UpdatedAt,
	).Query()
	if _, err := exec(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) List(ctx context.Context, f NotificationFilter, limit int) ([]*Notification, error) {
	sel := builder().Select(notificationColumns...).From(sql.Table(notificationsTable))
	if p := f.predicate(); p != nil {
		sel.Where(p)
	}
	q, args := sel.OrderBy(sql.Desc("created_at")).Limit(limit).Query()
	var out []*Notification
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		n, err := scanNotification(rows)
		if err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	return out, err
}

func (s *NotificationStore) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	q, args := builder().Select(notificationColumns...).From(sql.Table(notificationsTable)).Where(sql.EQ("id", id)).Query()
	var out *Notification
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanNotification(rows)
		return err
	})
	return out, err
}

// MarkRead flags the matching unread notifications and returns how many changed.
func (s *NotificationStore) MarkRead(ctx context.Context, f NotificationFilter, id *uuid.UUID) (int64, error) {
	ps := []*sql.Predicate{sql.EQ("is_read", false)}
	if p := f.predicate(); p != nil {
		ps = append(ps, p)
	}
	if id != nil {
		ps = append(ps, sql.EQ("id", *id))
	}
	q, args := builder().Update(notificationsTable).
		Set("is_read", true).
		Set("updated_at", time.Now().UTC()).
		Where(andAll(ps)).
		Query()
	return exec(ctx, s.drv, q, args)
}
