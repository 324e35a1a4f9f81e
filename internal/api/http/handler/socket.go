package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/realtime"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
	"github.com/Alijeyrad/dentlab_backend/internal/service/conversation"
)

// Socket events.
const (
	EvJoinConversation  = "join-conversation"
	EvGetConversations  = "get-conversations"
	EvConversationList  = "conversation-list"
	EvMessagePage       = "message-page"
	EvMessagePageResult = "message-page-result"
	EvTyping            = "typing"
	EvStopTyping        = "stop-typing"
	EvUserTyping        = "user-typing"
	EvUserStopTyping    = "user-stop-typing"
	EvSendMessage       = "single-chat-send-message"
	EvMessageSent       = "single-message-sent"
	EvSocketError       = "socket-error"
	EvJoined            = "joined-conversation"
)

// frameTimeout bounds the work done for one inbound frame.
const frameTimeout = 15 * time.Second

type SocketHandler struct {
	bus      *realtime.Bus
	presence *realtime.Presence
	convs    conversation.Service
	opts     realtime.Options

	// base is cancelled on shutdown so open sockets close cleanly.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSocketHandler(bus *realtime.Bus, presence *realtime.Presence, convs conversation.Service, opts realtime.Options) *SocketHandler {
	base, cancel := context.WithCancel(context.Background())
	return &SocketHandler{bus: bus, presence: presence, convs: convs, opts: opts, base: base, cancel: cancel}
}

// Handshake lets browsers pass the access token as ?token=, since they
// cannot set headers on a websocket request.
func (h *SocketHandler) Handshake(c fiber.Ctx) error {
	if tok := c.Query("token"); tok != "" && c.Get(fiber.HeaderAuthorization) == "" {
		c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	}
	return c.Next()
}

func (h *SocketHandler) checkOrigin(ctx *fasthttp.RequestCtx) bool {
	if len(h.opts.AllowedOrigins) == 0 || slices.Contains(h.opts.AllowedOrigins, "*") {
		return true
	}
	origin := string(ctx.Request.Header.Peek(fiber.HeaderOrigin))
	return origin == "" || slices.Contains(h.opts.AllowedOrigins, origin)
}

// Upgrade serves GET /ws. It runs behind OptionalAuth: a handshake without
// a usable identity is upgraded, told why in a socket-error and closed.
func (h *SocketHandler) Upgrade(c fiber.Ctx) error {
	actor, authed := middleware.ActorFromFiber(c)

	var reject string
	switch {
	case !authed && c.Query("id") == "" && c.Get(fiber.HeaderAuthorization) == "":
		reject = realtime.ErrUserRequired.Error()
	case !authed:
		reject = realtime.ErrUserNotFound.Error()
	case c.Query("id") != "" && c.Query("id") != actor.ID.String():
		reject = realtime.ErrUserNotFound.Error()
	}

	upgrader := websocket.FastHTTPUpgrader{CheckOrigin: h.checkOrigin}
	// the fiber context is recycled once the connection is hijacked
	err := upgrader.Upgrade(c.RequestCtx(), func(ws *websocket.Conn) {
		defer ws.Close()
		if reject != "" {
			h.refuse(ws, reject)
			return
		}
		h.wg.Add(1)
		defer h.wg.Done()
		h.serve(ws, actor)
	})
	if err != nil {
		slog.WarnContext(c.Context(), "realtime: upgrade failed", "err", err)
		return badRequest(c, "Websocket upgrade required")
	}
	return nil
}

func (h *SocketHandler) refuse(ws *websocket.Conn, msg string) {
	frame, _ := json.Marshal(realtime.Frame{Event: EvSocketError, Data: mustJSON(realtime.ErrorPayload(msg))})
	_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = ws.WriteMessage(websocket.TextMessage, frame)
	_ = ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg))
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// Shutdown closes every open socket and waits for their loops to end.
func (h *SocketHandler) Shutdown(ctx context.Context) error {
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *SocketHandler) serve(ws *websocket.Conn, actor *cases.Actor) {
	ctx := h.base
	hub := h.bus.Hub()
	client := realtime.NewClient(actor.ID, actor.Role, h.opts.SendBuffer)
	hub.Register(client)
	defer hub.Unregister(client)

	rooms := []string{realtime.UserRoom(actor.ID), realtime.RoleRoom(actor.Role)}
	ids, err := h.convs.ConversationIDs(ctx, actor.ID)
	if err != nil {
		slog.WarnContext(ctx, "realtime: load conversations failed", "user_id", actor.ID, "err", err)
	}
	for _, id := range ids {
		rooms = append(rooms, realtime.ConversationRoom(id))
	}
	hub.Join(client, rooms...)

	if err := h.presence.Connect(ctx, actor.ID); err != nil {
		slog.WarnContext(ctx, "realtime: presence connect failed", "user_id", actor.ID, "err", err)
	}
	defer func() {
		// the base context may already be cancelled on shutdown
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.presence.Disconnect(cctx, actor.ID); err != nil {
			slog.Warn("realtime: presence disconnect failed", "user_id", actor.ID, "err", err)
		}
	}()

	s := &session{h: h, client: client, who: repo.Participant{ID: actor.ID, Kind: actor.Kind}}
	realtime.Serve(ctx, ws, client, h.opts, s.handle)
}

// session dispatches the frames of one connection.
type session struct {
	h      *SocketHandler
	client *realtime.Client
	who    repo.Participant
}

type conversationRef struct {
	ConversationID string `json:"conversationId"`
	Page           int    `json:"page"`
	Limit          int    `json:"limit"`
	SearchTerm     string `json:"searchTerm"`
}

func (s *session) fail(msg string) {
	_ = s.client.Emit(EvSocketError, realtime.ErrorPayload(msg))
}

func (s *session) failErr(err error) {
	var msg string
	switch {
	case errors.Is(err, conversation.ErrNotFound),
		errors.Is(err, conversation.ErrNotParticipant),
		errors.Is(err, conversation.ErrReceiverNotFound),
		errors.Is(err, conversation.ErrReceiverRequired),
		errors.Is(err, conversation.ErrSelfMessage),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, errInvalidID):
		msg = err.Error()
	default:
		slog.Error("realtime: frame failed", "user_id", s.who.ID, "err", err)
		msg = "Internal server error"
	}
	s.fail(msg)
}

func (s *session) handle(f realtime.Frame) {
	ctx, cancel := context.WithTimeout(s.h.base, frameTimeout)
	defer cancel()
	_ = s.h.presence.Touch(ctx, s.who.ID)

	switch f.Event {
	case EvJoinConversation:
		s.join(ctx, f.Data)
	case EvGetConversations:
		s.conversations(ctx, f.Data)
	case EvMessagePage:
		s.messagePage(ctx, f.Data)
	case EvTyping:
		s.typing(ctx, f.Data, EvUserTyping)
	case EvStopTyping:
		s.typing(ctx, f.Data, EvUserStopTyping)
	case EvSendMessage:
		s.send(ctx, f.Data)
	default:
		s.fail("Unknown event " + f.Event)
	}
}

func (s *session) ref(data json.RawMessage) (conversationRef, uuid.UUID, bool) {
	var r conversationRef
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r); err != nil {
			s.fail("Invalid event data")
			return r, uuid.Nil, false
		}
	}
	id, err := uuid.Parse(strings.TrimSpace(r.ConversationID))
	if err != nil {
		s.fail("Conversation ID is required")
		return r, uuid.Nil, false
	}
	return r, id, true
}

// member reports whether the caller belongs to conversation id.
func (s *session) member(ctx context.Context, id uuid.UUID) (bool, error) {
	ids, err := s.h.convs.ConversationIDs(ctx, s.who.ID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, id), nil
}

func (s *session) join(ctx context.Context, data json.RawMessage) {
	_, id, valid := s.ref(data)
	if !valid {
		return
	}
	isMember, err := s.member(ctx, id)
	if err != nil {
		s.failErr(err)
		return
	}
	if !isMember {
		s.fail(conversation.ErrNotParticipant.Error())
		return
	}
	s.h.bus.Hub().Join(s.client, realtime.ConversationRoom(id))
	_ = s.client.Emit(EvJoined, map[string]any{"conversationId": id})
}

func (s *session) conversations(ctx context.Context, data json.RawMessage) {
	var r conversationRef
	if len(data) > 0 {
		_ = json.Unmarshal(data, &r)
	}
	res, err := s.h.convs.ChatList(ctx, s.who, conversation.ChatListRequest{
		SearchTerm: strings.TrimSpace(r.SearchTerm),
		Page:       repo.Page{Page: r.Page, Limit: r.Limit}.Normalize(),
	})
	if err != nil {
		s.failErr(err)
		return
	}
	_ = s.client.Emit(EvConversationList, map[string]any{
		"success":    true,
		"data":       res.Items,
		"pagination": pagination(res.Page, res.PerPage, res.Total, res.TotalPages),
	})
}

func (s *session) messagePage(ctx context.Context, data json.RawMessage) {
	r, id, valid := s.ref(data)
	if !valid {
		return
	}
	res, err := s.h.convs.Conversation(ctx, s.who, id, repo.Page{Page: r.Page, Limit: r.Limit}.Normalize())
	if err != nil {
		s.failErr(err)
		return
	}
	_ = s.client.Emit(EvMessagePageResult, map[string]any{
		"success":        true,
		"conversationId": id,
		"participant":    res.Participant,
		"messages":       res.Messages,
		"pagination":     pagination(res.Page, res.PerPage, res.Total, res.TotalPages),
	})
}

// typing relays to the other members of a room the caller has joined.
func (s *session) typing(ctx context.Context, data json.RawMessage, event string) {
	_, id, valid := s.ref(data)
	if !valid {
		return
	}
	room := realtime.ConversationRoom(id)
	if !s.h.bus.Hub().InRoom(room, s.who.ID) {
		s.fail(conversation.ErrNotParticipant.Error())
		return
	}
	payload := map[string]any{"conversationId": id, "userId": s.who.ID}
	if err := s.h.bus.Emit(ctx, room, event, payload, s.client.ID); err != nil {
		slog.WarnContext(ctx, "realtime: typing relay failed", "err", err)
	}
}

func (s *session) send(ctx context.Context, data json.RawMessage) {
	var body struct {
		ReceiverID string   `json:"receiverId"`
		CaseID     *string  `json:"caseId"`
		Text       string   `json:"text"`
		Images     []string `json:"imageUrl"`
		Audio      []string `json:"audioUrl"`
		Video      []string `json:"videoUrl"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		s.fail("Invalid event data")
		return
	}
	receiver, err := uuidField(&body.ReceiverID)
	if err != nil {
		s.failErr(err)
		return
	}
	if receiver == nil {
		s.failErr(conversation.ErrReceiverRequired)
		return
	}
	caseID, err := uuidField(body.CaseID)
	if err != nil {
		s.failErr(err)
		return
	}

	msg, err := s.h.convs.Send(ctx, s.who, conversation.SendRequest{
		ReceiverID: *receiver,
		CaseID:     caseID,
		Text:       body.Text,
		Images:     body.Images,
		Audio:      body.Audio,
		Video:      body.Video,
	})
	if err != nil {
		s.failErr(err)
		return
	}
	s.h.bus.Hub().Join(s.client, realtime.ConversationRoom(msg.ConversationID))
	_ = s.client.Emit(EvMessageSent, map[string]any{"success": true, "data": msg})
}
