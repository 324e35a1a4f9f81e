package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

func drain(c *Client) []Frame {
	var out []Frame
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				return out
			}
			var f Frame
			if err := json.Unmarshal(b, &f); err == nil {
				out = append(out, f)
			}
		default:
			return out
		}
	}
}

func TestHubRooms(t *testing.T) {
	h := NewHub()
	alice := NewClient(uuid.New(), constants.RoleDentist, 8)
	bob := NewClient(uuid.New(), constants.RoleLabManager, 8)
	h.Register(alice)
	h.Register(bob)

	conv := ConversationRoom(uuid.New())
	h.Join(alice, UserRoom(alice.UserID), conv)
	h.Join(bob, UserRoom(bob.UserID), conv)

	frame, _ := encodeFrame("user-typing", map[string]string{"conversationId": conv})

	tests := []struct {
		name   string
		room   string
		except string
		want   int
	}{
		{"whole room", conv, "", 2},
		{"skip sender", conv, alice.ID, 1},
		{"single user", UserRoom(bob.UserID), "", 1},
		{"empty room", RoleRoom(constants.RoleAdmin), "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Deliver(tt.room, frame, tt.except); got != tt.want {
				t.Errorf("Deliver = %d, want %d", got, tt.want)
			}
		})
	}

	if !h.InRoom(conv, alice.UserID) {
		t.Error("alice should be in the conversation room")
	}
	h.Leave(alice, conv)
	if h.InRoom(conv, alice.UserID) {
		t.Error("alice still in room after Leave")
	}
}

func TestHubUnregisterClosesQueue(t *testing.T) {
	h := NewHub()
	c := NewClient(uuid.New(), constants.RoleDentist, 1)
	h.Register(c)
	h.Join(c, UserRoom(c.UserID))

	h.Unregister(c)
	h.Unregister(c)

	if _, ok := <-c.send; ok {
		t.Fatal("send queue still open")
	}
	if h.Connections() != 0 {
		t.Errorf("connections = %d, want 0", h.Connections())
	}
	if n := h.Deliver(UserRoom(c.UserID), []byte(`{}`), ""); n != 0 {
		t.Errorf("delivered to unregistered client: %d", n)
	}
}

func TestSlowConsumerDropsFrames(t *testing.T) {
	h := NewHub()
	c := NewClient(uuid.New(), constants.RoleDentist, 1)
	h.Register(c)
	h.Join(c, UserRoom(c.UserID))

	if n := h.Deliver(UserRoom(c.UserID), []byte(`{}`), ""); n != 1 {
		t.Fatalf("first deliver = %d", n)
	}
	if n := h.Deliver(UserRoom(c.UserID), []byte(`{}`), ""); n != 0 {
		t.Errorf("full queue accepted frame")
	}
	if err := c.Emit("ping", nil); err != ErrSlowConsumer {
		t.Errorf("Emit on full queue = %v, want ErrSlowConsumer", err)
	}
}

func TestBusWithoutNATSDeliversLocally(t *testing.T) {
	h := NewHub()
	bus := NewBus(h, nil)
	if err := bus.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c := NewClient(uuid.New(), constants.RoleLabTechnician, 4)
	h.Register(c)
	h.Join(c, UserRoom(c.UserID), RoleRoom(c.Role))

	ctx := context.Background()
	if err := bus.EmitToUser(ctx, c.UserID, "notification", map[string]string{"title": "Case assigned"}); err != nil {
		t.Fatalf("EmitToUser: %v", err)
	}
	if err := bus.EmitToRole(ctx, constants.RoleLabTechnician, "notification", map[string]string{"title": "New case"}); err != nil {
		t.Fatalf("EmitToRole: %v", err)
	}

	frames := drain(c)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	var body map[string]string
	if err := json.Unmarshal(frames[0].Data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frames[0].Event != "notification" || body["title"] != "Case assigned" {
		t.Errorf("frame = %+v", frames[0])
	}
}

func TestSubjectFor(t *testing.T) {
	id := uuid.MustParse("0190c4c2-0000-7000-8000-000000000001")
	if got, want := subjectFor(UserRoom(id)), "dentlab.rt.user."+id.String(); got != want {
		t.Errorf("subject = %q, want %q", got, want)
	}
	if got := subjectFor(RoleRoom(constants.RoleAdmin)); got != "dentlab.rt.role.admin" {
		t.Errorf("subject = %q", got)
	}
}
