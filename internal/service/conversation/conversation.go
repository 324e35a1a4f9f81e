package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

// Socket events emitted by the service.
const (
	EventNewMessage     = "new-message"
	EventMessageUpdated = "message-updated"
	EventMessageDeleted = "message-deleted"
)

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

type Store interface {
	FindOrCreate(ctx context.Context, a, b repo.Participant, caseID *uuid.UUID) (*repo.Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*repo.Conversation, error)
	ListFor(ctx context.Context, id uuid.UUID) ([]*repo.Conversation, error)
	SetLastMessage(ctx context.Context, conversationID uuid.UUID, messageID *uuid.UUID) error

	CreateMessage(ctx context.Context, m *repo.Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*repo.Message, error)
	GetMessages(ctx context.Context, ids []uuid.UUID) ([]*repo.Message, error)
	UpdateMessageText(ctx context.Context, id uuid.UUID, text string) error
	DeleteMessage(ctx context.Context, id uuid.UUID) error
	LatestMessage(ctx context.Context, conversationID uuid.UUID) (*repo.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, page repo.Page) ([]*repo.Message, int, error)
	UnseenCounts(ctx context.Context, receiver uuid.UUID) (map[uuid.UUID]int, error)
	MarkSeen(ctx context.Context, conversationID, receiver uuid.UUID) (int64, error)
}

// Emitter pushes live events. Delivery is best effort.
type Emitter interface {
	EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload any) error
	EmitToConversation(ctx context.Context, convID uuid.UUID, event string, payload any) error
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type ChatListRequest struct {
	SearchTerm string
	Page       repo.Page
}

type ChatItem struct {
	ID          uuid.UUID     `json:"id"`
	Participant *Profile      `json:"participant"`
	CaseID      *uuid.UUID    `json:"caseId,omitempty"`
	LastMessage *repo.Message `json:"lastMessage"`
	UnseenCount int           `json:"unseenMsg"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type ChatList struct {
	Items      []*ChatItem
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

type MessagePage struct {
	Conversation *repo.Conversation
	Participant  *Profile
	Messages     []*repo.Message
	Total        int
	Page         int
	PerPage      int
	TotalPages   int
}

type SendRequest struct {
	ReceiverID uuid.UUID
	CaseID     *uuid.UUID
	Text       string
	Images     []string
	Audio      []string
	Video      []string
}

// Deleted is the payload of a message-deleted event.
type Deleted struct {
	MessageID      uuid.UUID `json:"messageId"`
	ConversationID uuid.UUID `json:"conversationId"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	ChatList(ctx context.Context, who repo.Participant, req ChatListRequest) (*ChatList, error)
	Conversation(ctx context.Context, who repo.Participant, id uuid.UUID, page repo.Page) (*MessagePage, error)
	ConversationIDs(ctx context.Context, who uuid.UUID) ([]uuid.UUID, error)
	Send(ctx context.Context, sender repo.Participant, req SendRequest) (*repo.Message, error)
	Edit(ctx context.Context, who repo.Participant, id uuid.UUID, text string) (*repo.Message, error)
	Delete(ctx context.Context, who repo.Participant, id uuid.UUID) (*Deleted, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type conversationService struct {
	store   Store
	dir     Directory
	emitter Emitter
}

func New(store Store, dir Directory, emitter Emitter) Service {
	return &conversationService{store: store, dir: dir, emitter: emitter}
}

// ChatList returns the caller's conversations, newest activity first. The
// search term matches the other participant's name.
func (s *conversationService) ChatList(ctx context.Context, who repo.Participant, req ChatListRequest) (*ChatList, error) {
	page := req.Page.Normalize()
	convs, err := s.store.ListFor(ctx, who.ID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	others := lo.Map(convs, func(c *repo.Conversation, _ int) repo.Participant { return c.Other(who.ID) })
	profiles, err := s.dir.Resolve(ctx, others)
	if err != nil {
		return nil, err
	}

	if term := strings.ToLower(strings.TrimSpace(req.SearchTerm)); term != "" {
		convs = lo.Filter(convs, func(c *repo.Conversation, _ int) bool {
			p := profiles[c.Other(who.ID).ID]
			return p != nil && strings.Contains(strings.ToLower(p.Name), term)
		})
	}

	total := len(convs)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	convs = convs[start:end]

	lastIDs := lo.FilterMap(convs, func(c *repo.Conversation, _ int) (uuid.UUID, bool) {
		if c.LastMessageID == nil {
			return uuid.Nil, false
		}
		return *c.LastMessageID, true
	})
	lasts, err := s.store.GetMessages(ctx, lastIDs)
	if err != nil {
		return nil, fmt.Errorf("load last messages: %w", err)
	}
	lastByID := lo.KeyBy(lasts, func(m *repo.Message) uuid.UUID { return m.ID })

	unseen, err := s.store.UnseenCounts(ctx, who.ID)
	if err != nil {
		return nil, fmt.Errorf("count unseen: %w", err)
	}

	items := make([]*ChatItem, 0, len(convs))
	for _, c := range convs {
		item := &ChatItem{
			ID:          c.ID,
			Participant: profiles[c.Other(who.ID).ID],
			CaseID:      c.CaseID,
			UnseenCount: unseen[c.ID],
			UpdatedAt:   c.UpdatedAt,
		}
		if c.LastMessageID != nil {
			item.LastMessage = lastByID[*c.LastMessageID]
		}
		items = append(items, item)
	}
	return &ChatList{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		PerPage:    page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

func (s *conversationService) participantOf(ctx context.Context, who repo.Participant, id uuid.UUID) (*repo.Conversation, error) {
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if !conv.Has(who.ID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// Conversation pages a conversation's messages newest first and marks what
// the caller received as seen.
func (s *conversationService) Conversation(ctx context.Context, who repo.Participant, id uuid.UUID, page repo.Page) (*MessagePage, error) {
	page = page.Normalize()
	conv, err := s.participantOf(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.MarkSeen(ctx, conv.ID, who.ID); err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}
	msgs, total, err := s.store.ListMessages(ctx, conv.ID, page)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	profiles, err := s.dir.Resolve(ctx, []repo.Participant{conv.Other(who.ID)})
	if err != nil {
		return nil, err
	}
	return &MessagePage{
		Conversation: conv,
		Participant:  profiles[conv.Other(who.ID).ID],
		Messages:     nonNilMessages(msgs),
		Total:        total,
		Page:         page.Page,
		PerPage:      page.Limit,
		TotalPages:   page.TotalPages(total),
	}, nil
}

// ConversationIDs lists the rooms a connecting socket joins.
func (s *conversationService) ConversationIDs(ctx context.Context, who uuid.UUID) ([]uuid.UUID, error) {
	convs, err := s.store.ListFor(ctx, who)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return lo.Map(convs, func(c *repo.Conversation, _ int) uuid.UUID { return c.ID }), nil
}

// Send stores a message in the pair's conversation, creating it on first
// contact, and pushes new-message to the conversation room. A brand-new
// conversation has no room members yet, so the receiver is also reached
// through their user room.
func (s *conversationService) Send(ctx context.Context, sender repo.Participant, req SendRequest) (*repo.Message, error) {
	if req.ReceiverID == uuid.Nil {
		return nil, ErrReceiverRequired
	}
	if req.ReceiverID == sender.ID {
		return nil, ErrSelfMessage
	}
	req.Text = strings.TrimSpace(req.Text)
	req.Images, req.Audio, req.Video = compact(req.Images), compact(req.Audio), compact(req.Video)
	if req.Text == "" && len(req.Images)+len(req.Audio)+len(req.Video) == 0 {
		return nil, ErrEmptyMessage
	}

	receiver, err := s.dir.Find(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}

	conv, err := s.store.FindOrCreate(ctx, sender, receiver.Participant(), req.CaseID)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	first := conv.LastMessageID == nil

	msg := &repo.Message{
		ConversationID: conv.ID,
		Sender:         sender,
		Receiver:       receiver.Participant(),
		CaseID:         req.CaseID,
		Text:           req.Text,
		Images:         req.Images,
		Audio:          req.Audio,
		Video:          req.Video,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.store.SetLastMessage(ctx, conv.ID, &msg.ID); err != nil {
		return nil, fmt.Errorf("set last message: %w", err)
	}

	s.push(ctx, "new message", func() error { return s.emitter.EmitToConversation(ctx, conv.ID, EventNewMessage, msg) })
	if first {
		s.push(ctx, "new message", func() error { return s.emitter.EmitToUser(ctx, receiver.ID, EventNewMessage, msg) })
	}
	return msg, nil
}

func (s *conversationService) ownMessage(ctx context.Context, who repo.Participant, id uuid.UUID) (*repo.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg.Sender.ID != who.ID {
		return nil, ErrNotSender
	}
	return msg, nil
}

func (s *conversationService) Edit(ctx context.Context, who repo.Participant, id uuid.UUID, text string) (*repo.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	msg, err := s.ownMessage(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateMessageText(ctx, msg.ID, text); err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	updated, err := s.store.GetMessage(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("reload message: %w", err)
	}
	s.push(ctx, "message updated", func() error {
		return s.emitter.EmitToConversation(ctx, updated.ConversationID, EventMessageUpdated, updated)
	})
	return updated, nil
}

// Delete removes a message. When it was the conversation's last message the
// pointer falls back to the newest remaining one.
func (s *conversationService) Delete(ctx context.Context, who repo.Participant, id uuid.UUID) (*Deleted, error) {
	msg, err := s.ownMessage(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteMessage(ctx, msg.ID); err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}

	conv, err := s.store.Get(ctx, msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv.LastMessageID != nil && *conv.LastMessageID == msg.ID {
		var next *uuid.UUID
		latest, err := s.store.LatestMessage(ctx, conv.ID)
		switch {
		case err == nil:
			next = &latest.ID
		case !errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("latest message: %w", err)
		}
		if err := s.store.SetLastMessage(ctx, conv.ID, next); err != nil {
			return nil, fmt.Errorf("set last message: %w", err)
		}
	}

	out := &Deleted{MessageID: msg.ID, ConversationID: conv.ID}
	s.push(ctx, "message deleted", func() error {
		return s.emitter.EmitToConversation(ctx, conv.ID, EventMessageDeleted, out)
	})
	return out, nil
}

func (s *conversationService) push(ctx context.Context, what string, fn func() error) {
	if s.emitter == nil {
		return
	}
	if err := fn(); err != nil {
		slog.WarnContext(ctx, "conversation: push failed", "event", what, "error", err)
	}
}

func compact(in []string) []string {
	return lo.Filter(in, func(v string, _ int) bool { return strings.TrimSpace(v) != "" })
}

func nonNilMessages(in []*repo.Message) []*repo.Message {
	if in == nil {
		return []*repo.Message{}
	}
	return in
}
