// Package realtime keeps the socket connections of this instance in named
// rooms and fans events out to them, locally or through NATS.
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
)

// Frame is the JSON message exchanged with a socket in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

func UserRoom(id uuid.UUID) string         { return "user:" + id.String() }
func RoleRoom(r constants.Role) string     { return "role:" + string(r) }
func ConversationRoom(id uuid.UUID) string { return "conv:" + id.String() }

// Client is one socket connection. Frames queued for it are drained by the
// write loop in Serve.
type Client struct {
	ID     string
	UserID uuid.UUID
	Role   constants.Role

	send  chan []byte
	rooms map[string]struct{} // guarded by Hub.mu
}

func NewClient(userID uuid.UUID, role constants.Role, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		send:   make(chan []byte, buffer),
		rooms:  map[string]struct{}{},
	}
}

// Emit queues an event for this connection only.
func (c *Client) Emit(event string, payload any) error {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSlowConsumer
	}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: map[*Client]struct{}{},
		rooms:   map[string]map[*Client]struct{}{},
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister drops the client from every room and closes its queue.
// Calling it twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) Join(c *Client, rooms ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for _, room := range rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = map[*Client]struct{}{}
			h.rooms[room] = members
		}
		members[c] = struct{}{}
		c.rooms[room] = struct{}{}
	}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	h.leaveLocked(c, room)
	h.mu.Unlock()
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	members := h.rooms[room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Deliver queues frame for every member of room except the connection with
// id except. Members whose queue is full miss the frame. It returns how many
// connections received it.
func (h *Hub) Deliver(room string, frame []byte, except string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.rooms[room] {
		if except != "" && c.ID == except {
			continue
		}
		select {
		case c.send <- frame:
			n++
		default:
		}
	}
	return n
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// InRoom reports whether the user has at least one connection in room.
func (h *Hub) InRoom(room string, userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
