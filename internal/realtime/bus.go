package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

const subjectPrefix = "dentlab.rt."

// envelope is what crosses NATS; every instance delivers Frame to its own
// members of Room.
type envelope struct {
	Room   string          `json:"room"`
	Except string          `json:"except,omitempty"`
	Frame  json.RawMessage `json:"frame"`
}

func subjectFor(room string) string {
	return subjectPrefix + strings.ReplaceAll(room, ":", ".")
}

// Bus emits events to rooms. With a NATS connection every instance
// receives the event and delivers it to its local sockets; without one
// delivery stays in this process.
type Bus struct {
	hub *Hub
	nc  *nats.Conn
	sub *nats.Subscription
}

func NewBus(hub *Hub, nc *nats.Conn) *Bus {
	return &Bus{hub: hub, nc: nc}
}

func (b *Bus) Start() error {
	if b.nc == nil {
		slog.Info("realtime: no NATS connection, delivering locally")
		return nil
	}
	sub, err := b.nc.Subscribe(subjectPrefix+">", b.onMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s>: %w", subjectPrefix, err)
	}
	b.sub = sub
	slog.Info("realtime: bridge started", "subject", subjectPrefix+">")
	return nil
}

func (b *Bus) Stop() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}

func (b *Bus) onMessage(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		slog.Warn("realtime: bad envelope", "subject", msg.Subject, "err", err)
		return
	}
	b.hub.Deliver(env.Room, env.Frame, env.Except)
}

// Emit sends event to room, skipping the connection with id except.
func (b *Bus) Emit(_ context.Context, room, event string, payload any, except string) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	if b.nc == nil {
		b.hub.Deliver(room, frame, except)
		return nil
	}
	data, err := json.Marshal(envelope{Room: room, Except: except, Frame: frame})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := b.nc.Publish(subjectFor(room), data); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

func (b *Bus) EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload any) error {
	return b.Emit(ctx, UserRoom(userID), event, payload, "")
}

func (b *Bus) EmitToRole(ctx context.Context, role constants.Role, event string, payload any) error {
	return b.Emit(ctx, RoleRoom(role), event, payload, "")
}

func (b *Bus) EmitToConversation(ctx context.Context, convID uuid.UUID, event string, payload any) error {
	return b.Emit(ctx, ConversationRoom(convID), event, payload, "")
}

// Hub exposes the local registry for the socket endpoint.
func (b *Bus) Hub() *Hub { return b.hub }
