package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/notes/internal/access"
	"github.com/dukerupert/notes/internal/model"
)

// Note event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Message is a real-time notification pushed to connected clients.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub maintains the set of active WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish tells every client allowed to view n that it changed. Clients of
// other users never learn the note exists.
func (h *Hub) Publish(n *model.Note, action string) {
	msg := NewMessage("note", action, n.ID, map[string]any{"slug": n.Slug})
	h.send(msg, func(c *Client) bool {
		return access.Authorize(c.identity, n, access.ViewDetail) == nil
	})
}

func (h *Hub) send(msg Message, allow func(*Client) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if !allow(c) {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			h.logger.Warn("client buffer full, dropping message", "type", msg.Type, "user_id", c.identity.UserID)
		}
	}
	h.logger.Debug("published", "type", msg.Type, "id", msg.ID, "clients", delivered)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
