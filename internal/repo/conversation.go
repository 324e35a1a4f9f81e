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

// Participant is one side of a conversation; admins and staff users live
// in separate tables.
type Participant struct {
	ID   uuid.UUID             `json:"id"`
	Kind constants.AccountKind `json:"kind"`
}

type Conversation struct {
	ID            uuid.UUID      `json:"id"`
	Participants  [2]Participant `json:"participants"`
	CaseID        *uuid.UUID     `json:"caseId,omitempty"`
	LastMessageID *uuid.UUID     `json:"lastMessage,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Other returns the participant that is not id.
func (c *Conversation) Other(id uuid.UUID) Participant {
	if c.Participants[0].ID == id {
		return c.Participants[1]
	}
	return c.Participants[0]
}

func (c *Conversation) Has(id uuid.UUID) bool {
	return c.Participants[0].ID == id || c.Participants[1].ID == id
}

type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConversationID uuid.UUID   `json:"conversationId"`
	Sender         Participant `json:"sender"`
	Receiver       Participant `json:"receiver"`
	CaseID         *uuid.UUID  `json:"caseId,omitempty"`
	Text           string      `json:"text,omitempty"`
	Images         []string    `json:"image"`
	Audio          []string    `json:"audio"`
	Video          []string    `json:"video"`
	Seen           bool        `json:"seen"`
	Edited         bool        `json:"edited"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

const (
	conversationsTable = "conversations"
	messagesTable      = "messages"
)

var conversationColumns = []string{
	"id", "participant_a", "participant_a_kind", "participant_b", "participant_b_kind",
	"case_id", "last_message_id", "created_at", "updated_at",
}

var messageColumns = []string{
	"id", "conversation_id", "sender_id", "sender_kind", "receiver_id", "receiver_kind",
	"case_id", "text", "images", "audio", "video", "seen", "edited", "created_at", "updated_at",
}

type ConversationStore struct {
	drv dialect.Driver
}

// orderPair fixes the participant order so a pair maps to one row.
func orderPair(a, b Participant) (Participant, Participant) {
	if a.ID.String() > b.ID.String() {
		return b, a
	}
	return a, b
}

func scanConversation(rows *sql.Rows) (*Conversation, error) {
	var (
		c            Conversation
		aKind, bKind string
		caseID, last uuid.NullUUID
	)
	if err := rows.Scan(&c.ID, &c.Participants[0].ID, &aKind, &c.Participants[1].ID, &bKind, &caseID, &last, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	c.Participants[0].Kind = constants.AccountKind(aKind)
	c.Participants[1].Kind = constants.AccountKind(bKind)
	c.CaseID = uuidPtr(caseID)
	c.LastMessageID = uuidPtr(last)
	return &c, nil
}

func pairPredicate(a, b Participant, caseID *uuid.UUID) *sql.Predicate {
	ps := []*sql.Predicate{sql.EQ("participant_a", a.ID), sql.EQ("participant_b", b.ID)}
	if caseID != nil {
		ps = append(ps, sql.EQ("case_id", *caseID))
	} else {
		ps = append(ps, sql.IsNull("case_id"))
	}
	return sql.And(ps...)
}

// FindOrCreate returns the conversation for the pair (scoped to caseID when
// set), creating it if needed. Concurrent callers converge on one row.
func (s *ConversationStore) FindOrCreate(ctx context.Context, a, b Participant, caseID *uuid.UUID) (*Conversation, error) {
	a, b = orderPair(a, b)
	now := time.Now().UTC()
	ins, args := builder().Insert(conversationsTable).Columns(conversationColumns...).
		Values(uuid.New(), a.ID, string(a.Kind), b.ID, string(b.Kind), nullUUID(caseID), nil, now, now).
		OnConflict(sql.DoNothing()).
		Query()
	if _, err := exec(ctx, s.drv, ins, args); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	q, qargs := builder().Select(conversationColumns...).From(sql.Table(conversationsTable)).
		Where(pairPredicate(a, b, caseID)).
		Query()
	var out *Conversation
	err := queryOne(ctx, s.drv, q, qargs, func(rows *sql.Rows) (err error) {
		out, err = scanConversation(rows)
		return err
	})
	return out, err
}

func (s *ConversationStore) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	q, args := builder().Select(conversationColumns...).From(sql.Table(conversationsTable)).Where(sql.EQ("id", id)).Query()
	var out *Conversation
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanConversation(rows)
		return err
	})
	return out, err
}

// ListFor returns every conversation id takes part in, most recent first.
func (s *ConversationStore) ListFor(ctx context.Context, id uuid.UUID) ([]*Conversation, error) {
	q, args := builder().Select(conversationColumns...).From(sql.Table(conversationsTable)).
		Where(sql.Or(sql.EQ("participant_a", id), sql.EQ("participant_b", id))).
		OrderBy(sql.Desc("updated_at")).
		Query()
	var out []*Conversation
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		c, err := scanConversation(rows)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

// SetLastMessage moves the conversation's last-message pointer. Later
// writes win.
func (s *ConversationStore) SetLastMessage(ctx context.Context, conversationID uuid.UUID, messageID *uuid.UUID) error {
	q, args := builder().Update(conversationsTable).
		Set("last_message_id", nullUUID(messageID)).
		Set("updated_at", time.Now().UTC()).
		Where(sql.EQ("id", conversationID)).
		Query()
	return execOne(ctx, s.drv, q, args)
}

func scanMessage(rows *sql.Rows) (*Message, error) {
	var (
		m                    Message
		sKind, rKind         string
		caseID               uuid.NullUUID
		images, audio, video []byte
	)
	err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender.ID, &sKind, &m.Receiver.ID, &rKind,
		&caseID, &m.Text, &images, &audio, &video, &m.Seen, &m.Edited, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.Sender.Kind = constants.AccountKind(sKind)
	m.Receiver.Kind = constants.AccountKind(rKind)
	m.CaseID = uuidPtr(caseID)
	for _, f := range []struct {
		raw []byte
		dst *[]string
	}{{images, &m.Images}, {audio, &m.Audio}, {video, &m.Video}} {
		if err := fromJSONB(f.raw, f.dst); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (s *ConversationStore) CreateMessage(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	m.Images, m.Audio, m.Video = nonNil(m.Images), nonNil(m.Audio), nonNil(m.Video)
	q, args := builder().Insert(messagesTable).Columns(messageColumns...).Values(
		m.ID, m.ConversationID, m.Sender.ID, string(m.Sender.Kind), m.Receiver.ID, string(m.Receiver.Kind),
		nullUUID(m.CaseID), m.Text, mustJSONB(m.Images), mustJSONB(m.Audio), mustJSONB(m.Video),
		m.Seen, m.Edited, m.CreatedAt, m.UpdatedAt,
	).Query()
	if _, err := exec(ctx, s.drv, q, args); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *ConversationStore) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	q, args := builder().Select(messageColumns...).From(sql.Table(messagesTable)).Where(sql.EQ("id", id)).Query()
	var out *Message
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanMessage(rows)
		return err
	})
	return out, err
}

func (s *ConversationStore) GetMessages(ctx context.Context, ids []uuid.UUID) ([]*Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	vs := make([]any, len(ids))
	for i, id := range ids {
		vs[i] = id
	}
	q, args := builder().Select(messageColumns...).From(sql.Table(messagesTable)).Where(sql.In("id", vs...)).Query()
	return s.collectMessages(ctx, q, args)
}

func (s *ConversationStore) UpdateMessageText(ctx context.Context, id uuid.UUID, text string) error {
	q, args := builder().Update(messagesTable).
		Set("text", text).
		Set("edited", true).
		Set("updated_at", time.Now().UTC()).
		Where(sql.EQ("id", id)).
		Query()
	return execOne(ctx, s.drv, q, args)
}

func (s *ConversationStore) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	q, args := builder().Delete(messagesTable).Where(sql.EQ("id", id)).Query()
	return execOne(ctx, s.drv, q, args)
}

// LatestMessage returns the newest message of a conversation.
func (s *ConversationStore) LatestMessage(ctx context.Context, conversationID uuid.UUID) (*Message, error) {
	q, args := builder().Select(messageColumns...).From(sql.Table(messagesTable)).
		Where(sql.EQ("conversation_id", conversationID)).
		OrderBy(sql.Desc("created_at")).
		Limit(1).
		Query()
	var out *Message
	err := queryOne(ctx, s.drv, q, args, func(rows *sql.Rows) (err error) {
		out, err = scanMessage(rows)
		return err
	})
	return out, err
}

// ListMessages pages a conversation newest first.
func (s *ConversationStore) ListMessages(ctx context.Context, conversationID uuid.UUID, page Page) ([]*Message, int, error) {
	page = page.Normalize()
	p := sql.EQ("conversation_id", conversationID)
	total, err := count(ctx, s.drv, messagesTable, p)
	if err != nil {
		return nil, 0, err
	}
	q, args := builder().Select(messageColumns...).From(sql.Table(messagesTable)).
		Where(sql.EQ("conversation_id", conversationID)).
		OrderBy(sql.Desc("created_at"), sql.Desc("id")).
		Limit(page.Limit).
		Offset(page.Offset()).
		Query()
	out, err := s.collectMessages(ctx, q, args)
	return out, total, err
}

func (s *ConversationStore) collectMessages(ctx context.Context, q string, args []any) ([]*Message, error) {
	var out []*Message
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		m, err := scanMessage(rows)
		if err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// UnseenCounts returns, per conversation, how many messages addressed to
// receiver are still unseen.
func (s *ConversationStore) UnseenCounts(ctx context.Context, receiver uuid.UUID) (map[uuid.UUID]int, error) {
	q, args := builder().Select("conversation_id", sql.Count("*")).From(sql.Table(messagesTable)).
		Where(sql.And(sql.EQ("receiver_id", receiver), sql.EQ("seen", false))).
		GroupBy("conversation_id").
		Query()
	out := make(map[uuid.UUID]int)
	err := queryRows(ctx, s.drv, q, args, func(rows *sql.Rows) error {
		var (
			id uuid.UUID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		out[id] = n
		return nil
	})
	return out, err
}

func (s *ConversationStore) MarkSeen(ctx context.Context, conversationID, receiver uuid.UUID) (int64, error) {
	q, args := builder().Update(messagesTable).
		Set("seen", true).
		Where(sql.And(
			sql.EQ("conversation_id", conversationID),
			sql.EQ("receiver_id", receiver),
			sql.EQ("seen", false),
		)).
		Query()
	return exec(ctx, s.drv, q, args)
}
